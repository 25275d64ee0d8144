// Copyright 2026 The OSVoice Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"path/filepath"
	"testing"
)

// IsolateEnvironment redirects HOME and XDG_CONFIG_HOME into a fresh
// temporary directory, clears OSVOICE_CONFIG and
// OSVOICE_API_KEY_SECRET, and returns the directory the default
// configuration will use as its data directory.
func IsolateEnvironment(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, ".config"))
	t.Setenv("OSVOICE_CONFIG", "")
	t.Setenv("OSVOICE_API_KEY_SECRET", "")
	return filepath.Join(home, ".config", "osvoice")
}
