// Copyright 2026 The OSVoice Authors
// SPDX-License-Identifier: Apache-2.0

package apikey

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

// NonceSize is the ChaCha20-Poly1305 nonce length prefixed to every
// stored ciphertext.
const NonceSize = chacha20poly1305.NonceSize

// TagSize is the Poly1305 authentication tag length.
const TagSize = chacha20poly1305.Overhead

// suffixLength is the maximum number of trailing characters kept for
// display.
const suffixLength = 4

// Bundle is a sealed API key ready for storage. Every field is opaque
// text except Suffix.
type Bundle struct {
	// Salt is the base64 per-bundle salt.
	Salt string `json:"salt"`

	// Hash is the base64 fingerprint of secret||salt||plaintext.
	Hash string `json:"key_hash"`

	// Ciphertext is the base64 of nonce||ChaCha20-Poly1305 output.
	Ciphertext string `json:"ciphertext"`

	// Suffix holds up to the last four characters of the plaintext.
	// Empty only when the plaintext was empty; see HasSuffix.
	Suffix string `json:"key_suffix,omitempty"`
}

// HasSuffix reports whether the bundle carries a display suffix. It is
// false exactly when the sealed plaintext was empty.
func (b Bundle) HasSuffix() bool { return b.Suffix != "" }

// Protect seals plaintext under secret with a fresh salt and nonce.
// Two calls with the same arguments never produce the same bundle.
func Protect(secret []byte, plaintext string) Bundle {
	salt := randomBytes(SaltSize)
	key := DeriveKey(secret, salt)

	aead, err := chacha20poly1305.New(key[:])
	if err != nil {
		panic(fmt.Sprintf("apikey: creating ChaCha20-Poly1305: %v", err))
	}

	combined := make([]byte, NonceSize, NonceSize+len(plaintext)+TagSize)
	if _, err := rand.Read(combined); err != nil {
		panic("apikey: crypto/rand failed: " + err.Error())
	}
	combined = aead.Seal(combined, combined[:NonceSize], []byte(plaintext), nil)

	fingerprint := Fingerprint(secret, salt, plaintext)

	return Bundle{
		Salt:       base64.StdEncoding.EncodeToString(salt),
		Hash:       base64.StdEncoding.EncodeToString(fingerprint[:]),
		Ciphertext: base64.StdEncoding.EncodeToString(combined),
		Suffix:     Suffix(plaintext),
	}
}

// Matches reports whether candidate is the plaintext sealed into a
// bundle with the given salt and fingerprint under secret. The
// comparison is constant-time; nothing is decrypted.
func Matches(secret []byte, saltB64, hashB64, candidate string) (bool, error) {
	salt, err := base64.StdEncoding.DecodeString(saltB64)
	if err != nil {
		return false, fmt.Errorf("%w: salt: %v", ErrMalformedEncoding, err)
	}
	stored, err := base64.StdEncoding.DecodeString(hashB64)
	if err != nil {
		return false, fmt.Errorf("%w: key hash: %v", ErrMalformedEncoding, err)
	}
	computed := Fingerprint(secret, salt, candidate)
	return subtle.ConstantTimeCompare(computed[:], stored) == 1, nil
}

// Suffix returns up to the last four characters of plaintext in their
// original order. Characters are runes, not bytes.
func Suffix(plaintext string) string {
	runes := []rune(plaintext)
	if len(runes) > suffixLength {
		runes = runes[len(runes)-suffixLength:]
	}
	return string(runes)
}

func randomBytes(size int) []byte {
	buffer := make([]byte, size)
	if _, err := rand.Read(buffer); err != nil {
		panic("apikey: crypto/rand failed: " + err.Error())
	}
	return buffer
}
