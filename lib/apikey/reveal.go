// Copyright 2026 The OSVoice Authors
// SPDX-License-Identifier: Apache-2.0

package apikey

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"unicode/utf8"

	"golang.org/x/crypto/chacha20poly1305"
)

// Strategy names, in default order.
const (
	StrategyAEAD             = "aead"
	StrategyLegacyXOR        = "legacy-xor"
	StrategyLegacyXORDefault = "legacy-xor-default"
)

// Strategy is one way of opening a stored ciphertext. Open receives the
// decoded salt and ciphertext and reports whether it recovered a
// plaintext.
type Strategy struct {
	Name string
	Open func(salt, combined []byte) (string, bool)
}

// Revealed is a successfully opened key together with the strategy
// that opened it.
type Revealed struct {
	Plaintext string
	Strategy  string
}

// Legacy reports whether the key was opened by something other than
// the authenticated scheme and should be re-sealed.
func (r Revealed) Legacy() bool { return r.Strategy != StrategyAEAD }

// Opener tries its strategies in order and returns the first success.
type Opener struct {
	strategies []Strategy

	// invalidText distinguishes ErrInvalidText from ErrDecryptionFailed
	// once every strategy has failed. Set only by DefaultOpener.
	invalidText func(salt, combined []byte) bool
}

// NewOpener returns an Opener over strategies. Panics if strategies is
// empty.
func NewOpener(strategies ...Strategy) *Opener {
	if len(strategies) == 0 {
		panic("apikey: opener requires at least one strategy")
	}
	return &Opener{strategies: strategies}
}

// DefaultOpener returns an Opener over [DefaultStrategies](secret).
func DefaultOpener(secret []byte) *Opener {
	opener := NewOpener(DefaultStrategies(secret)...)
	opener.invalidText = func(salt, combined []byte) bool {
		plaintext, ok := openAEAD(secret, salt, combined)
		return ok && !utf8.Valid(plaintext)
	}
	return opener
}

// DefaultStrategies returns the standard strategy order for secret:
// authenticated, legacy keystream under secret, then legacy keystream
// under [HistoricalDefaultSecret] unless secret already equals it.
func DefaultStrategies(secret []byte) []Strategy {
	strategies := []Strategy{
		AEADStrategy(secret),
		LegacyStrategy(StrategyLegacyXOR, secret),
	}
	if !bytes.Equal(secret, HistoricalDefaultSecret) {
		strategies = append(strategies, LegacyStrategy(StrategyLegacyXORDefault, HistoricalDefaultSecret))
	}
	return strategies
}

// AEADStrategy opens nonce||ChaCha20-Poly1305 ciphertexts sealed by
// [Protect]. Inputs too short to hold a nonce and tag are skipped.
func AEADStrategy(secret []byte) Strategy {
	return Strategy{
		Name: StrategyAEAD,
		Open: func(salt, combined []byte) (string, bool) {
			plaintext, ok := openAEAD(secret, salt, combined)
			if !ok || !utf8.Valid(plaintext) {
				return "", false
			}
			return string(plaintext), true
		},
	}
}

// LegacyStrategy opens unauthenticated legacy ciphertexts under secret.
// Results that fail [Plausible] are rejected.
func LegacyStrategy(name string, secret []byte) Strategy {
	return Strategy{
		Name: name,
		Open: func(salt, combined []byte) (string, bool) {
			plaintext := legacyXOR(secret, salt, combined)
			if !utf8.Valid(plaintext) {
				return "", false
			}
			candidate := string(plaintext)
			if !Plausible(candidate) {
				return "", false
			}
			return candidate, true
		},
	}
}

// Reveal decodes saltB64 and ciphertextB64 and runs the strategies.
func (o *Opener) Reveal(saltB64, ciphertextB64 string) (string, error) {
	revealed, err := o.RevealWith(saltB64, ciphertextB64)
	if err != nil {
		return "", err
	}
	return revealed.Plaintext, nil
}

// RevealWith is Reveal that also reports which strategy succeeded.
func (o *Opener) RevealWith(saltB64, ciphertextB64 string) (Revealed, error) {
	salt, err := base64.StdEncoding.DecodeString(saltB64)
	if err != nil {
		return Revealed{}, fmt.Errorf("%w: salt: %v", ErrMalformedEncoding, err)
	}
	combined, err := base64.StdEncoding.DecodeString(ciphertextB64)
	if err != nil {
		return Revealed{}, fmt.Errorf("%w: ciphertext: %v", ErrMalformedEncoding, err)
	}

	for _, strategy := range o.strategies {
		if plaintext, ok := strategy.Open(salt, combined); ok {
			return Revealed{Plaintext: plaintext, Strategy: strategy.Name}, nil
		}
	}

	if o.invalidText != nil && o.invalidText(salt, combined) {
		return Revealed{}, ErrInvalidText
	}
	return Revealed{}, ErrDecryptionFailed
}

// Reveal opens a bundle's salt and ciphertext under secret with the
// default strategies.
func Reveal(secret []byte, saltB64, ciphertextB64 string) (string, error) {
	return DefaultOpener(secret).Reveal(saltB64, ciphertextB64)
}

// newAEAD constructs the cipher for openAEAD. Replaced in tests.
var newAEAD = chacha20poly1305.New

func openAEAD(secret, salt, combined []byte) ([]byte, bool) {
	if len(combined) < NonceSize+TagSize {
		return nil, false
	}
	key := DeriveKey(secret, salt)
	aead, err := newAEAD(key[:])
	if err != nil {
		panic(fmt.Sprintf("apikey: creating ChaCha20-Poly1305: %v", err))
	}
	nonce, sealed := combined[:NonceSize], combined[NonceSize:]
	plaintext, err := aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, false
	}
	return plaintext, true
}
