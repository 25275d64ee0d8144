// Copyright 2026 The OSVoice Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers.
//
// [RequireReceive] wraps the select-with-timeout safety valve so tests
// that wait on a goroutine never hang the suite. It is the only place
// tests use a real wall-clock timeout.
//
// [IsolateEnvironment] points HOME and XDG_CONFIG_HOME at a temporary
// directory and clears the OSVoice override variables, so a test never
// reads or creates the developer's real secret file.
//
// [UniqueProvider] returns distinct, valid provider identifiers.
package testutil
