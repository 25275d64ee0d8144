// Copyright 2026 The OSVoice Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads YAML configuration for the OSVoice key vault.
//
// Unlike a server, the desktop application must start with no config
// file at all, so [Load] returns [Default] when OSVOICE_CONFIG is
// unset. When a file is named, by OSVOICE_CONFIG or a --config flag
// through [LoadFile], its values are merged over the defaults.
//
// After loading, ${HOME}, ${OSVOICE_DATA} (the resolved data
// directory) and ${VAR:-default} patterns are expanded in path fields.
// Environment variables do not otherwise override file values; the
// root secret override variable is read by lib/keyring, not here.
package config
