// Copyright 2026 The OSVoice Authors
// SPDX-License-Identifier: Apache-2.0

package apikey

import (
	"crypto/sha256"
	"encoding/binary"
)

// HistoricalDefaultSecret is the fixed secret used by releases that
// predate per-installation secrets. Keys sealed by those releases can
// only be recovered with it.
var HistoricalDefaultSecret = []byte("osvoice-default-secret")

// maxPlausibleLength bounds the byte length of a legacy plaintext.
const maxPlausibleLength = 512

// legacyKeystream returns length bytes of SHA-256(secret || salt ||
// uint32_be(counter)) blocks, counter starting at zero.
func legacyKeystream(secret, salt []byte, length int) []byte {
	keystream := make([]byte, 0, length+sha256.Size)
	var counter uint32
	var counterBytes [4]byte
	for len(keystream) < length {
		binary.BigEndian.PutUint32(counterBytes[:], counter)
		hasher := sha256.New()
		hasher.Write(secret)
		hasher.Write(salt)
		hasher.Write(counterBytes[:])
		keystream = hasher.Sum(keystream)
		counter++
	}
	return keystream[:length]
}

// legacyXOR applies the legacy keystream to data. The operation is its
// own inverse.
func legacyXOR(secret, salt, data []byte) []byte {
	keystream := legacyKeystream(secret, salt, len(data))
	output := make([]byte, len(data))
	for index := range data {
		output[index] = data[index] ^ keystream[index]
	}
	return output
}

// SealLegacy produces a ciphertext the way releases before the
// authenticated scheme did: the raw XOR of plaintext with the legacy
// keystream, no nonce and no tag. Kept for compatibility tests and
// for migration tooling; new keys are always sealed with [Protect].
func SealLegacy(secret, salt []byte, plaintext string) []byte {
	return legacyXOR(secret, salt, []byte(plaintext))
}

// Plausible reports whether s looks like an API key: non-empty,
// shorter than 512 bytes, and made only of printable ASCII with no
// spaces or control characters.
func Plausible(s string) bool {
	if s == "" || len(s) >= maxPlausibleLength {
		return false
	}
	for index := 0; index < len(s); index++ {
		if s[index] < 0x21 || s[index] > 0x7e {
			return false
		}
	}
	return true
}
