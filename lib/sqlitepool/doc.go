// Copyright 2026 The OSVoice Authors
// SPDX-License-Identifier: Apache-2.0

// Package sqlitepool opens the local SQLite database that holds sealed
// API keys.
//
// It wraps zombiezen.com/go/sqlite's sqlitex.Pool. Callers
// [Pool.Take] a connection, do their work, and [Pool.Put] it back.
// Connections are not safe for concurrent use.
//
// # Pragmas
//
//   - journal_mode=WAL: the desktop app and the CLI can read while the
//     other writes.
//   - synchronous=FULL: a saved key survives power loss.
//   - busy_timeout=5000: wait for the write lock instead of failing.
//   - foreign_keys=ON.
//   - secure_delete=ON: freed pages are zeroed, so a replaced or
//     deleted ciphertext does not linger in the file.
//   - temp_store=MEMORY.
//
// # Files and schema
//
// A new database file is created with mode 0600 inside a 0700
// directory. Schema is managed with [Config.Migrations], an ordered
// list of scripts tracked through PRAGMA user_version and applied in a
// single immediate transaction when the pool opens.
//
//	pool, err := sqlitepool.Open(ctx, sqlitepool.Config{
//	    Path:       filepath.Join(dataDir, "osvoice.db"),
//	    Logger:     logger,
//	    Migrations: []string{schemaV1},
//	})
//	if err != nil {
//	    return err
//	}
//	defer pool.Close()
package sqlitepool
