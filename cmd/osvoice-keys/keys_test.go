// Copyright 2026 The OSVoice Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/osvoice/osvoice/cmd/osvoice-keys/cli"
	"github.com/osvoice/osvoice/lib/apikeystore"
	"github.com/osvoice/osvoice/lib/keyring"
)

func TestSetRevealRoundTrip(t *testing.T) {
	install := newInstallation(t)

	output := install.mustRun("sk-live-abcd1234\n", "set", "openai")
	if !strings.Contains(output, "stored key for openai (...1234)") {
		t.Errorf("set output = %q", output)
	}

	if got := install.mustRun("", "reveal", "openai"); got != "sk-live-abcd1234\n" {
		t.Errorf("reveal output = %q, want the stored key", got)
	}

	var revealed revealResult
	install.mustRunJSON(&revealed, "", "reveal", "openai")
	if revealed.Provider != "openai" || revealed.Key != "sk-live-abcd1234" {
		t.Errorf("reveal --json = %+v", revealed)
	}
}

func TestSetCreatesSecretFileAndDatabase(t *testing.T) {
	install := newInstallation(t)
	install.mustRun("sk-live-abcd1234", "set", "openai")

	for _, name := range []string{keyring.FileName, "osvoice.db"} {
		info, err := os.Stat(filepath.Join(install.dataDir, name))
		if err != nil {
			t.Fatalf("stat %s: %v", name, err)
		}
		if mode := info.Mode().Perm(); mode != 0o600 {
			t.Errorf("%s mode = %o, want 600", name, mode)
		}
	}

	database, err := os.ReadFile(filepath.Join(install.dataDir, "osvoice.db"))
	if err != nil {
		t.Fatalf("reading database: %v", err)
	}
	if strings.Contains(string(database), "sk-live-abcd1234") {
		t.Error("database contains the plaintext key")
	}
}

func TestSetKeyFile(t *testing.T) {
	install := newInstallation(t)
	keyFile := filepath.Join(t.TempDir(), "key.txt")
	if err := os.WriteFile(keyFile, []byte("  dg-key-9876  \n"), 0o600); err != nil {
		t.Fatal(err)
	}

	install.mustRun("", "set", "deepgram", "--key-file", keyFile)
	if got := install.mustRun("", "reveal", "deepgram"); got != "dg-key-9876\n" {
		t.Errorf("reveal = %q, want trimmed key from file", got)
	}
}

func TestSetRejectsInvalidProvider(t *testing.T) {
	install := newInstallation(t)
	if err := install.run("key", "set", "Open AI"); err == nil {
		t.Fatal("set with an invalid provider succeeded")
	}
}

func TestSetRequiresKey(t *testing.T) {
	install := newInstallation(t)
	if err := install.run("", "set", "openai"); err == nil {
		t.Fatal("set with empty stdin succeeded")
	}
}

func TestGetAndList(t *testing.T) {
	install := newInstallation(t)
	install.mustRun("sk-openai-1111", "set", "openai")
	install.clock.Advance(time.Minute)
	install.mustRun("sk-ant-2222", "set", "anthropic")

	var record apikeystore.Record
	install.mustRunJSON(&record, "", "get", "openai")
	if record.Provider != "openai" || record.Suffix != "1111" {
		t.Errorf("get --json = %+v", record)
	}
	if !record.CreatedAt.Equal(epoch) {
		t.Errorf("CreatedAt = %v, want %v", record.CreatedAt, epoch)
	}

	text := install.mustRun("", "get", "openai")
	for _, want := range []string{"provider:", "...1111", "root id:", record.RootID} {
		if !strings.Contains(text, want) {
			t.Errorf("get output missing %q:\n%s", want, text)
		}
	}

	var records []apikeystore.Record
	install.mustRunJSON(&records, "", "list")
	if len(records) != 2 || records[0].Provider != "anthropic" || records[1].Provider != "openai" {
		t.Fatalf("list --json = %+v, want anthropic then openai", records)
	}

	listing := install.mustRun("", "list")
	if !strings.HasPrefix(listing, "PROVIDER") || !strings.Contains(listing, "...2222") {
		t.Errorf("list output:\n%s", listing)
	}
	if strings.Contains(listing, "sk-ant") {
		t.Errorf("list output leaks a key:\n%s", listing)
	}
}

func TestListEmpty(t *testing.T) {
	install := newInstallation(t)
	if got := install.mustRun("", "list"); got != "no keys stored\n" {
		t.Errorf("list output = %q", got)
	}
	if got := strings.TrimSpace(install.mustRun("", "list", "--json")); got != "[]" {
		t.Errorf("list --json = %q, want []", got)
	}
}

func TestMissingProvider(t *testing.T) {
	install := newInstallation(t)
	for _, command := range []string{"get", "reveal", "delete"} {
		err := install.run("", command, "nothing")
		if err == nil || !strings.Contains(err.Error(), `no key stored for "nothing"`) {
			t.Errorf("%s nothing = %v, want not-found error", command, err)
		}
	}
}

func TestVerify(t *testing.T) {
	install := newInstallation(t)
	install.mustRun("sk-live-abcd1234", "set", "openai")

	if got := install.mustRun("sk-live-abcd1234", "verify", "openai"); got != "match\n" {
		t.Errorf("verify output = %q, want match", got)
	}

	err := install.run("sk-live-wrong", "verify", "openai")
	var exitErr *cli.ExitError
	if !errors.As(err, &exitErr) || exitErr.Code != 1 {
		t.Fatalf("verify mismatch = %v, want ExitError code 1", err)
	}
	if install.stdout.String() != "mismatch\n" {
		t.Errorf("verify output = %q, want mismatch", install.stdout.String())
	}
}

func TestDelete(t *testing.T) {
	install := newInstallation(t)
	install.mustRun("sk-live-abcd1234", "set", "openai")
	install.mustRun("", "delete", "openai")

	if err := install.run("", "reveal", "openai"); err == nil {
		t.Fatal("reveal after delete succeeded")
	}
}

func TestKeysSurviveAcrossProcesses(t *testing.T) {
	install := newInstallation(t)
	install.mustRun("sk-live-abcd1234", "set", "openai")

	// Each run builds a fresh keyring provider and store, as a new
	// process would.
	for range 3 {
		if got := install.mustRun("", "reveal", "openai"); got != "sk-live-abcd1234\n" {
			t.Fatalf("reveal = %q", got)
		}
	}
}

func TestEnvironmentSecretOverridesFile(t *testing.T) {
	install := newInstallation(t)
	t.Setenv(keyring.DefaultEnvVar, "operator-supplied-secret")
	install.mustRun("sk-live-abcd1234", "set", "openai")

	if _, err := os.Stat(filepath.Join(install.dataDir, keyring.FileName)); !os.IsNotExist(err) {
		t.Errorf("secret file created despite environment override (stat err = %v)", err)
	}

	t.Setenv(keyring.DefaultEnvVar, "a-different-secret")
	if err := install.run("", "reveal", "openai"); err == nil {
		t.Fatal("reveal under a different secret succeeded")
	}
}

func TestConfigFile(t *testing.T) {
	install := newInstallation(t)
	configPath := filepath.Join(t.TempDir(), "osvoice.yaml")
	database := filepath.Join(t.TempDir(), "keys.db")
	content := "data_dir: " + install.dataDir + "\ndatabase: " + database + "\nlog_level: debug\n"
	if err := os.WriteFile(configPath, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	if err := install.exec("sk-live-abcd1234", "set", "openai", "--config", configPath); err != nil {
		t.Fatalf("set with --config: %v", err)
	}
	if _, err := os.Stat(database); err != nil {
		t.Errorf("configured database not created: %v", err)
	}
}
