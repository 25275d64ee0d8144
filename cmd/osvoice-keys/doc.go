// Copyright 2026 The OSVoice Authors
// SPDX-License-Identifier: Apache-2.0

// Osvoice-keys manages the API keys an OSVoice installation keeps for
// its transcription and language-model providers.
//
// Keys are sealed under the installation's root secret (see
// lib/keyring) and stored in the SQLite database in the data
// directory. Plaintext keys enter only through a file, a pipe, or a
// no-echo prompt, and leave only through "reveal", "open", and
// "export".
//
//	osvoice-keys set openai < key.txt
//	osvoice-keys list
//	osvoice-keys reveal openai
//	osvoice-keys export --recipient age1... --output keys.age
package main
