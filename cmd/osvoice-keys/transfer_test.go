// Copyright 2026 The OSVoice Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func keygen(t *testing.T, install *installation) string {
	t.Helper()
	var result keygenResult
	install.mustRunJSON(&result, "", "keygen")
	if !strings.HasPrefix(result.PublicKey, "age1") {
		t.Fatalf("public key = %q, want age1 prefix", result.PublicKey)
	}
	return result.PublicKey
}

func TestKeygen(t *testing.T) {
	install := newInstallation(t)
	publicKey := keygen(t, install)

	path := filepath.Join(install.dataDir, "transfer-identity.txt")
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("identity file not created: %v", err)
	}
	if mode := info.Mode().Perm(); mode != 0o600 {
		t.Errorf("identity file mode = %o, want 600", mode)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(content), "# public key: "+publicKey) {
		t.Errorf("identity file missing public key comment:\n%s", content)
	}
	if !strings.Contains(string(content), "AGE-SECRET-KEY-1") {
		t.Error("identity file missing private key")
	}

	if got := strings.TrimSpace(install.mustRun("", "keygen", "--show")); got != publicKey {
		t.Errorf("keygen --show = %q, want %q", got, publicKey)
	}

	if err := install.run("", "keygen"); err == nil || !strings.Contains(err.Error(), "already exists") {
		t.Errorf("second keygen = %v, want already-exists error", err)
	}
}

func TestExportImportBetweenInstallations(t *testing.T) {
	source := newInstallation(t)
	source.mustRun("sk-openai-1111", "set", "openai")
	source.mustRun("sk-ant-2222", "set", "anthropic")

	destination := newInstallation(t)
	publicKey := keygen(t, destination)
	destination.mustRun("sk-local-3333", "set", "openai")

	archive := source.mustRun("", "export", "--recipient", publicKey)
	if !strings.HasPrefix(archive, "-----BEGIN AGE ENCRYPTED FILE-----") {
		t.Fatalf("export output is not an armored age file:\n%s", archive)
	}
	if strings.Contains(archive, "sk-openai") {
		t.Fatal("archive contains a plaintext key")
	}

	var result importResult
	destination.mustRunJSON(&result, archive, "import")
	if strings.Join(result.Imported, ",") != "anthropic" || strings.Join(result.Skipped, ",") != "openai" {
		t.Errorf("import = %+v, want anthropic imported and openai skipped", result)
	}
	if got := destination.mustRun("", "reveal", "anthropic"); got != "sk-ant-2222\n" {
		t.Errorf("imported anthropic key = %q", got)
	}
	if got := destination.mustRun("", "reveal", "openai"); got != "sk-local-3333\n" {
		t.Errorf("skipped openai key = %q, want the local key kept", got)
	}

	destination.mustRun(archive, "import", "--overwrite")
	if got := destination.mustRun("", "reveal", "openai"); got != "sk-openai-1111\n" {
		t.Errorf("overwritten openai key = %q", got)
	}
}

func TestExportSelectedProvidersToFile(t *testing.T) {
	source := newInstallation(t)
	source.mustRun("sk-openai-1111", "set", "openai")
	source.mustRun("sk-ant-2222", "set", "anthropic")
	publicKey := keygen(t, source)

	archivePath := filepath.Join(t.TempDir(), "keys.age")
	source.mustRun("", "export", "openai", "--recipient", publicKey, "--output", archivePath)

	diagnostic := source.mustRun("", "inspect", "--input", archivePath)
	if !strings.Contains(diagnostic, `"openai"`) || strings.Contains(diagnostic, `"anthropic"`) {
		t.Errorf("inspect shows the wrong providers:\n%s", diagnostic)
	}
	if strings.Contains(diagnostic, "sk-openai") || !strings.Contains(diagnostic, `"***1111"`) {
		t.Errorf("inspect did not redact the key:\n%s", diagnostic)
	}
}

func TestExportRequiresRecipient(t *testing.T) {
	install := newInstallation(t)
	install.mustRun("sk-openai-1111", "set", "openai")

	if err := install.run("", "export"); err == nil || !strings.Contains(err.Error(), "no recipients") {
		t.Errorf("export without recipients = %v", err)
	}
	if err := install.run("", "export", "--recipient", "not-a-key"); err == nil {
		t.Error("export with an invalid recipient succeeded")
	}
	if err := install.run("", "export", "missing", "--recipient", keygen(t, install)); err == nil {
		t.Error("export of a missing provider succeeded")
	}
}

func TestImportWithoutIdentity(t *testing.T) {
	install := newInstallation(t)
	err := install.run("irrelevant", "import")
	if err == nil || !strings.Contains(err.Error(), "osvoice-keys keygen") {
		t.Errorf("import without identity = %v, want a keygen hint", err)
	}
}

func TestImportWrongIdentity(t *testing.T) {
	source := newInstallation(t)
	source.mustRun("sk-openai-1111", "set", "openai")
	intended := newInstallation(t)
	archive := source.mustRun("", "export", "--recipient", keygen(t, intended))

	other := newInstallation(t)
	keygen(t, other)
	if err := other.run(archive, "import"); err == nil {
		t.Fatal("import with the wrong identity succeeded")
	}
}
