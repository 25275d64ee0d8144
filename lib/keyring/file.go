// Copyright 2026 The OSVoice Authors
// SPDX-License-Identifier: Apache-2.0

package keyring

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/osvoice/osvoice/lib/clock"
)

const (
	// FileName is the name of the secret file inside the configured
	// directory.
	FileName = ".encryption-key"

	// SecretSize is the number of random bytes in a generated secret.
	SecretSize = 32

	// readBackAttempts and readBackInterval bound how long a process
	// that lost the exclusive-create race waits for the winner to
	// finish writing.
	readBackAttempts = 5
	readBackInterval = 20 * time.Millisecond
)

// readOrCreateSecretFile returns the secret stored at path, creating
// the file with fresh random material if it does not exist.
func readOrCreateSecretFile(path string, clk clock.Clock) ([]byte, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("creating secret directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if errors.Is(err, fs.ErrExist) {
		return readSecretFile(path, clk)
	}
	if err != nil {
		return nil, fmt.Errorf("creating secret file: %w", err)
	}

	material := make([]byte, SecretSize)
	if _, err := rand.Read(material); err != nil {
		panic("keyring: crypto/rand failed: " + err.Error())
	}

	encoded := base64.StdEncoding.EncodeToString(material)
	if _, err := file.WriteString(encoded); err != nil {
		file.Close()
		os.Remove(path)
		return nil, fmt.Errorf("writing secret file: %w", err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(path)
		return nil, fmt.Errorf("syncing secret file: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("closing secret file: %w", err)
	}
	return material, nil
}

// readSecretFile reads and decodes an existing secret file. An empty
// file is retried briefly: another process may have created it and
// not yet written the contents.
func readSecretFile(path string, clk clock.Clock) ([]byte, error) {
	var contents string
	for attempt := 0; attempt < readBackAttempts; attempt++ {
		if attempt > 0 {
			clk.Sleep(readBackInterval)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading secret file: %w", err)
		}
		contents = strings.TrimSpace(string(data))
		if contents != "" {
			break
		}
	}
	if contents == "" {
		return nil, fmt.Errorf("secret file %s is empty", path)
	}

	material, err := base64.StdEncoding.DecodeString(contents)
	if err != nil {
		return nil, fmt.Errorf("decoding secret file: %w", err)
	}
	if len(material) == 0 {
		return nil, fmt.Errorf("secret file %s decodes to zero bytes", path)
	}
	return material, nil
}
