// Copyright 2026 The OSVoice Authors
// SPDX-License-Identifier: Apache-2.0

package apikeystore

// migrations is the ordered schema history. Append only.
var migrations = []string{
	`CREATE TABLE api_keys (
		provider   TEXT PRIMARY KEY NOT NULL,
		salt       TEXT NOT NULL,
		key_hash   TEXT NOT NULL,
		ciphertext TEXT NOT NULL,
		key_suffix TEXT,
		root_id    TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	) STRICT;`,
}

const recordColumns = `provider, key_suffix, root_id, created_at, updated_at`
