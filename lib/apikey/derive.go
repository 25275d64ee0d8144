// Copyright 2026 The OSVoice Authors
// SPDX-License-Identifier: Apache-2.0

package apikey

import (
	"crypto/sha256"
)

const (
	// KeySize is the size of a derived encryption key.
	KeySize = 32

	// SaltSize is the size of the per-bundle salt.
	SaltSize = 16
)

// keyDomain prefixes every derivation so the derived key can never
// equal any other hash of the same secret. Changing it invalidates
// every stored ciphertext.
var keyDomain = []byte("osvoice-aead-key-v2")

// DeriveKey returns SHA-256(domain || secret || salt).
func DeriveKey(secret, salt []byte) [KeySize]byte {
	hasher := sha256.New()
	hasher.Write(keyDomain)
	hasher.Write(secret)
	hasher.Write(salt)
	var key [KeySize]byte
	hasher.Sum(key[:0])
	return key
}

// Fingerprint returns SHA-256(secret || salt || plaintext). It is
// one-way: it lets a caller check a candidate key against a bundle
// without decrypting.
func Fingerprint(secret, salt []byte, plaintext string) [sha256.Size]byte {
	hasher := sha256.New()
	hasher.Write(secret)
	hasher.Write(salt)
	hasher.Write([]byte(plaintext))
	var digest [sha256.Size]byte
	hasher.Sum(digest[:0])
	return digest
}
