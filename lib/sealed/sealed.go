// Copyright 2026 The OSVoice Authors
// SPDX-License-Identifier: Apache-2.0

package sealed

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"filippo.io/age"
	"filippo.io/age/armor"

	"github.com/osvoice/osvoice/lib/secret"
)

// maxPayloadSize bounds a decrypted payload. Archives of API keys are
// a few kilobytes.
const maxPayloadSize = 1 << 20

// Keypair is an age x25519 keypair. Close releases the private key.
type Keypair struct {
	// PrivateKey is the AGE-SECRET-KEY-1... identity. Never log it or
	// pass it on a command line.
	PrivateKey *secret.Buffer

	// PublicKey is the age1... recipient. Safe to share.
	PublicKey string
}

// Close zeroes and releases the private key. Idempotent.
func (k *Keypair) Close() error {
	if k.PrivateKey != nil {
		return k.PrivateKey.Close()
	}
	return nil
}

// GenerateKeypair returns a fresh x25519 keypair.
func GenerateKeypair() (*Keypair, error) {
	identity, err := age.GenerateX25519Identity()
	if err != nil {
		return nil, fmt.Errorf("generating age keypair: %w", err)
	}

	// identity.String() leaves a heap copy behind; the buffer is the
	// copy that lives.
	privateKey, err := secret.NewFromBytes([]byte(identity.String()))
	if err != nil {
		return nil, fmt.Errorf("protecting private key: %w", err)
	}
	return &Keypair{
		PrivateKey: privateKey,
		PublicKey:  identity.Recipient().String(),
	}, nil
}

// Seal encrypts plaintext to every recipient and returns armored text.
func Seal(plaintext []byte, recipientKeys []string) (string, error) {
	if len(recipientKeys) == 0 {
		return "", fmt.Errorf("at least one recipient is required")
	}

	recipients := make([]age.Recipient, 0, len(recipientKeys))
	for _, key := range recipientKeys {
		recipient, err := age.ParseX25519Recipient(strings.TrimSpace(key))
		if err != nil {
			return "", fmt.Errorf("parsing recipient key %q: %w", key, err)
		}
		recipients = append(recipients, recipient)
	}

	var output bytes.Buffer
	armorWriter := armor.NewWriter(&output)
	writer, err := age.Encrypt(armorWriter, recipients...)
	if err != nil {
		return "", fmt.Errorf("creating age encryptor: %w", err)
	}
	if _, err := writer.Write(plaintext); err != nil {
		return "", fmt.Errorf("writing plaintext to age encryptor: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("finalizing age encryption: %w", err)
	}
	if err := armorWriter.Close(); err != nil {
		return "", fmt.Errorf("finalizing armor: %w", err)
	}
	return output.String(), nil
}

// Open decrypts armored ciphertext with identity, which holds one or
// more age identities in identity-file syntax (comments and blank
// lines allowed). The identity is borrowed, not closed. The returned
// buffer must be closed by the caller.
func Open(ciphertext string, identity *secret.Buffer) (*secret.Buffer, error) {
	identities, err := age.ParseIdentities(bytes.NewReader(identity.Bytes()))
	if err != nil {
		return nil, fmt.Errorf("parsing identity: %w", err)
	}

	reader, err := age.Decrypt(armor.NewReader(strings.NewReader(strings.TrimSpace(ciphertext)+"\n")), identities...)
	if err != nil {
		return nil, fmt.Errorf("decrypting: %w", err)
	}

	plaintext, err := io.ReadAll(io.LimitReader(reader, maxPayloadSize+1))
	if err != nil {
		secret.Zero(plaintext)
		return nil, fmt.Errorf("reading decrypted payload: %w", err)
	}
	if len(plaintext) > maxPayloadSize {
		secret.Zero(plaintext)
		return nil, fmt.Errorf("decrypted payload exceeds %d bytes", maxPayloadSize)
	}
	if len(plaintext) == 0 {
		return nil, fmt.Errorf("decrypted payload is empty")
	}

	buffer, err := secret.NewFromBytes(plaintext)
	if err != nil {
		secret.Zero(plaintext)
		return nil, fmt.Errorf("protecting decrypted payload: %w", err)
	}
	return buffer, nil
}

// ParsePublicKey reports whether publicKey is a valid age x25519
// recipient.
func ParsePublicKey(publicKey string) error {
	if _, err := age.ParseX25519Recipient(strings.TrimSpace(publicKey)); err != nil {
		return fmt.Errorf("invalid age public key: %w", err)
	}
	return nil
}

// PublicKeyOf returns the recipient for the first x25519 identity in
// identity.
func PublicKeyOf(identity *secret.Buffer) (string, error) {
	identities, err := age.ParseIdentities(bytes.NewReader(identity.Bytes()))
	if err != nil {
		return "", fmt.Errorf("parsing identity: %w", err)
	}
	for _, candidate := range identities {
		if x25519, ok := candidate.(*age.X25519Identity); ok {
			return x25519.Recipient().String(), nil
		}
	}
	return "", fmt.Errorf("identity contains no x25519 key")
}
