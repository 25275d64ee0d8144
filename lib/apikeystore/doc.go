// Copyright 2026 The OSVoice Authors
// SPDX-License-Identifier: Apache-2.0

// Package apikeystore persists sealed API keys in the application's
// SQLite database, one row per provider.
//
// Each row holds the four fields produced by apikey.Protect (salt,
// fingerprint, ciphertext, display suffix) plus the public identifier
// of the root secret that sealed it and creation/update timestamps.
// Plaintext never touches the database and is never logged.
//
// [Store.Reveal] upgrades on read: a row that only a legacy strategy
// could open is re-sealed under the authenticated scheme before the
// plaintext is returned. [Store.Verify] checks a candidate key against
// the stored fingerprint without decrypting anything.
package apikeystore
