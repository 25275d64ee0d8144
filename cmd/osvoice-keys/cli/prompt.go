// Copyright 2026 The OSVoice Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"golang.org/x/term"

	"github.com/osvoice/osvoice/lib/secret"
)

// ReadKey obtains an API key. A non-empty path is read with
// secret.ReadFromPath ("-" is stdin). Otherwise a terminal stdin gets
// a no-echo prompt on prompt, and a piped stdin is read directly.
// The caller must close the returned buffer.
func ReadKey(path string, stdin io.Reader, prompt io.Writer, label string) (*secret.Buffer, error) {
	if path != "" {
		return secret.ReadFromPath(path)
	}

	file, ok := stdin.(*os.File)
	if !ok || !term.IsTerminal(int(file.Fd())) {
		return secret.ReadFrom(stdin)
	}

	fmt.Fprintf(prompt, "%s: ", label)
	raw, err := term.ReadPassword(int(file.Fd()))
	fmt.Fprintln(prompt)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", label, err)
	}
	defer secret.Zero(raw)
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("%s is empty", label)
	}
	return secret.NewFromBytes(trimmed)
}
