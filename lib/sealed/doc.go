// Copyright 2026 The OSVoice Authors
// SPDX-License-Identifier: Apache-2.0

// Package sealed encrypts payloads to age x25519 recipients for
// transfer between installations.
//
// Ciphertext is ASCII-armored ("-----BEGIN AGE ENCRYPTED FILE-----")
// so an export can be pasted into a terminal or a chat window intact.
// Private keys and decrypted payloads are held in [secret.Buffer]
// values and must be closed by the caller.
//
// A receiving installation runs [GenerateKeypair], keeps the private
// key in an identity file, and hands the public key to the sender.
package sealed
