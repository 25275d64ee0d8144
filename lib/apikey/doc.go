// Copyright 2026 The OSVoice Authors
// SPDX-License-Identifier: Apache-2.0

// Package apikey seals third-party API keys for storage and opens
// them again.
//
// [Protect] turns a plaintext key into a [Bundle] of four text fields:
// a base64 salt, a base64 SHA-256 fingerprint over
// secret||salt||plaintext, a base64 ciphertext (12-byte nonce followed
// by ChaCha20-Poly1305 output), and a display suffix of up to four
// trailing characters. The encryption key for each bundle is
// SHA-256("osvoice-aead-key-v2" || secret || salt), see [DeriveKey].
//
// An [Opener] recovers the plaintext by trying an ordered list of
// [Strategy] values and returning the first success. The default
// order is the authenticated scheme, then the unauthenticated legacy
// keystream under the current secret, then the legacy keystream under
// the historical default secret. Legacy results pass a plausibility
// filter before they are accepted because that scheme carries no
// integrity check.
//
// Everything here is a pure function of its inputs. The root secret is
// passed in explicitly; callers obtain it from lib/keyring.
package apikey
