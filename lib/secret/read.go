// Copyright 2026 The OSVoice Authors
// SPDX-License-Identifier: Apache-2.0

package secret

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
)

// maxReadSize bounds how much ReadFrom accepts. API keys are short; a
// multi-kilobyte input is a mistake (wrong file), not a credential.
const maxReadSize = 16 * 1024

// ReadFromPath reads a single credential from a file, or from stdin
// when path is "-". Surrounding whitespace is trimmed. The returned
// buffer must be closed by the caller.
func ReadFromPath(path string) (*Buffer, error) {
	if path == "-" {
		return ReadFrom(os.Stdin)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return ReadFrom(file)
}

// ReadFrom reads the first line of reader into a protected buffer.
// Returns an error if the line is empty after trimming or the input
// exceeds the size limit.
func ReadFrom(reader io.Reader) (*Buffer, error) {
	scanner := bufio.NewScanner(io.LimitReader(reader, maxReadSize+1))
	scanner.Buffer(make([]byte, 0, 512), maxReadSize+1)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("reading secret: %w", err)
		}
		return nil, fmt.Errorf("secret is empty")
	}

	line := scanner.Bytes()
	if len(line) > maxReadSize {
		Zero(line)
		return nil, fmt.Errorf("secret exceeds %d bytes", maxReadSize)
	}

	trimmed := bytes.TrimSpace(line)
	if len(trimmed) == 0 {
		Zero(line)
		return nil, fmt.Errorf("secret is empty")
	}

	buffer, err := NewFromBytes(trimmed)
	Zero(line)
	if err != nil {
		return nil, err
	}
	return buffer, nil
}
