// Copyright 2026 The OSVoice Authors
// SPDX-License-Identifier: Apache-2.0

package apikey

import "errors"

var (
	// ErrMalformedEncoding is returned when a stored salt or ciphertext
	// is not valid standard base64.
	ErrMalformedEncoding = errors.New("apikey: invalid base64 data")

	// ErrInvalidText is returned when the authenticated scheme opened
	// the ciphertext but the plaintext is not valid UTF-8, and no
	// fallback strategy recovered it either.
	ErrInvalidText = errors.New("apikey: stored API key is not valid UTF-8")

	// ErrDecryptionFailed is returned when every strategy failed. It
	// does not distinguish a wrong secret from corrupted data.
	ErrDecryptionFailed = errors.New("apikey: unable to decrypt API key with any available method")
)
