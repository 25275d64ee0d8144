// Copyright 2026 The OSVoice Authors
// SPDX-License-Identifier: Apache-2.0

// Package process provides the entrypoint error handler for OSVoice
// binaries: main calls run, and hands any error to [Fatal].
package process
