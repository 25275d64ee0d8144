// Copyright 2026 The OSVoice Authors
// SPDX-License-Identifier: Apache-2.0

package apikeystore

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/osvoice/osvoice/lib/apikey"
	"github.com/osvoice/osvoice/lib/clock"
	"github.com/osvoice/osvoice/lib/keyring"
)

var epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func testRoot(material string) *keyring.Root {
	return keyring.NewRoot([]byte(material), keyring.SourceEnvironment)
}

func openTestStore(t *testing.T, path string, root *keyring.Root, clk clock.Clock) *Store {
	t.Helper()
	if path == "" {
		path = filepath.Join(t.TempDir(), "osvoice.db")
	}
	store, err := Open(context.Background(), Config{Path: path, Root: root, Clock: clk})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("Close: %v", err)
		}
	})
	return store
}

func TestSetGetReveal(t *testing.T) {
	fake := clock.Fake(epoch)
	root := testRoot("store-secret-one")
	store := openTestStore(t, "", root, fake)
	ctx := context.Background()

	record, err := store.Set(ctx, "openai", "sk-proj-1234abcd")
	if err != nil {
		t.Fatalf("Set: %v", err)
	}
	if record.Provider != "openai" || record.Suffix != "abcd" || record.RootID != root.ID() {
		t.Errorf("Set record = %+v", record)
	}
	if !record.CreatedAt.Equal(epoch) || !record.UpdatedAt.Equal(epoch) {
		t.Errorf("timestamps = %v/%v, want %v", record.CreatedAt, record.UpdatedAt, epoch)
	}

	got, err := store.Get(ctx, "openai")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != record {
		t.Errorf("Get = %+v, want %+v", got, record)
	}

	plaintext, err := store.Reveal(ctx, "openai")
	if err != nil {
		t.Fatalf("Reveal: %v", err)
	}
	if plaintext != "sk-proj-1234abcd" {
		t.Errorf("Reveal = %q, want %q", plaintext, "sk-proj-1234abcd")
	}
}

func TestSetReplacesAndKeepsCreatedAt(t *testing.T) {
	fake := clock.Fake(epoch)
	store := openTestStore(t, "", testRoot("store-secret-two"), fake)
	ctx := context.Background()

	if _, err := store.Set(ctx, "groq", "gsk-first-0001"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	fake.Advance(time.Hour)
	record, err := store.Set(ctx, "groq", "gsk-second-0002")
	if err != nil {
		t.Fatalf("Set: %v", err)
	}

	if !record.CreatedAt.Equal(epoch) {
		t.Errorf("CreatedAt = %v, want %v", record.CreatedAt, epoch)
	}
	if want := epoch.Add(time.Hour); !record.UpdatedAt.Equal(want) {
		t.Errorf("UpdatedAt = %v, want %v", record.UpdatedAt, want)
	}
	plaintext, err := store.Reveal(ctx, "groq")
	if err != nil {
		t.Fatalf("Reveal: %v", err)
	}
	if plaintext != "gsk-second-0002" {
		t.Errorf("Reveal = %q, want %q", plaintext, "gsk-second-0002")
	}
}

func TestSetEmptyKeyHasNoSuffix(t *testing.T) {
	store := openTestStore(t, "", testRoot("store-secret-empty"), clock.Fake(epoch))
	ctx := context.Background()

	record, err := store.Set(ctx, "local", "")
	if err != nil {
		t.Fatalf("Set: %v", err)
	}
	if record.Suffix != "" {
		t.Errorf("Suffix = %q, want empty", record.Suffix)
	}

	conn, err := store.pool.Take(ctx)
	if err != nil {
		t.Fatalf("Take: %v", err)
	}
	defer store.pool.Put(conn)
	var columnType sqlite.ColumnType
	err = sqlitex.Execute(conn, `SELECT key_suffix FROM api_keys WHERE provider = 'local'`, &sqlitex.ExecOptions{
		ResultFunc: func(stmt *sqlite.Stmt) error {
			columnType = stmt.ColumnType(0)
			return nil
		},
	})
	if err != nil {
		t.Fatalf("SELECT: %v", err)
	}
	if columnType != sqlite.TypeNull {
		t.Errorf("key_suffix column type = %v, want NULL", columnType)
	}
}

func TestListOrderedByProvider(t *testing.T) {
	store := openTestStore(t, "", testRoot("store-secret-list"), clock.Fake(epoch))
	ctx := context.Background()

	for _, provider := range []string{"openai", "anthropic", "groq"} {
		if _, err := store.Set(ctx, provider, "key-for-"+provider); err != nil {
			t.Fatalf("Set %s: %v", provider, err)
		}
	}

	records, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	var providers []string
	for _, record := range records {
		providers = append(providers, record.Provider)
	}
	if got, want := strings.Join(providers, ","), "anthropic,groq,openai"; got != want {
		t.Errorf("List providers = %s, want %s", got, want)
	}
}

func TestListEmpty(t *testing.T) {
	store := openTestStore(t, "", testRoot("store-secret-none"), clock.Fake(epoch))
	records, err := store.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("List returned %d records, want 0", len(records))
	}
}

func TestNotFound(t *testing.T) {
	store := openTestStore(t, "", testRoot("store-secret-missing"), clock.Fake(epoch))
	ctx := context.Background()

	if _, err := store.Get(ctx, "absent"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get error = %v, want ErrNotFound", err)
	}
	if _, err := store.Reveal(ctx, "absent"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Reveal error = %v, want ErrNotFound", err)
	}
	if _, err := store.Verify(ctx, "absent", "x"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Verify error = %v, want ErrNotFound", err)
	}
	if err := store.Delete(ctx, "absent"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Delete error = %v, want ErrNotFound", err)
	}
}

func TestDelete(t *testing.T) {
	store := openTestStore(t, "", testRoot("store-secret-delete"), clock.Fake(epoch))
	ctx := context.Background()

	if _, err := store.Set(ctx, "deepgram", "dg-key-0001"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := store.Delete(ctx, "deepgram"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := store.Get(ctx, "deepgram"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get after Delete error = %v, want ErrNotFound", err)
	}
}

func TestVerify(t *testing.T) {
	store := openTestStore(t, "", testRoot("store-secret-verify"), clock.Fake(epoch))
	ctx := context.Background()

	if _, err := store.Set(ctx, "openai", "sk-verify-0001"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	for candidate, want := range map[string]bool{
		"sk-verify-0001": true,
		"sk-verify-0002": false,
		"":               false,
	} {
		matched, err := store.Verify(ctx, "openai", candidate)
		if err != nil {
			t.Fatalf("Verify(%q): %v", candidate, err)
		}
		if matched != want {
			t.Errorf("Verify(%q) = %v, want %v", candidate, matched, want)
		}
	}
}

func TestPersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "osvoice.db")
	ctx := context.Background()

	first, err := Open(ctx, Config{Path: path, Root: testRoot("store-secret-reopen"), Clock: clock.Fake(epoch)})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := first.Set(ctx, "openai", "sk-persisted"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	second := openTestStore(t, path, testRoot("store-secret-reopen"), clock.Fake(epoch))
	plaintext, err := second.Reveal(ctx, "openai")
	if err != nil {
		t.Fatalf("Reveal after reopen: %v", err)
	}
	if plaintext != "sk-persisted" {
		t.Errorf("Reveal = %q, want %q", plaintext, "sk-persisted")
	}
}

func TestRevealUnderDifferentRootFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "osvoice.db")
	ctx := context.Background()

	first, err := Open(ctx, Config{Path: path, Root: testRoot("original-root"), Clock: clock.Fake(epoch)})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := first.Set(ctx, "openai", "sk-bound"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	first.Close()

	second := openTestStore(t, path, testRoot("replacement-root"), clock.Fake(epoch))
	if _, err := second.Reveal(ctx, "openai"); !errors.Is(err, apikey.ErrDecryptionFailed) {
		t.Fatalf("Reveal error = %v, want ErrDecryptionFailed", err)
	}
}

func TestRevealResealsLegacyRecord(t *testing.T) {
	fake := clock.Fake(epoch)
	root := testRoot("store-secret-legacy")
	store := openTestStore(t, "", root, fake)
	ctx := context.Background()

	salt := bytes.Repeat([]byte{0x5c}, apikey.SaltSize)
	legacy := apikey.Bundle{
		Salt:       base64.StdEncoding.EncodeToString(salt),
		Hash:       "",
		Ciphertext: base64.StdEncoding.EncodeToString(apikey.SealLegacy(apikey.HistoricalDefaultSecret, salt, "sk-ancient-key")),
		Suffix:     "-key",
	}
	insertRow(t, store, "openai", legacy, "legacy")

	fake.Advance(time.Minute)
	plaintext, err := store.Reveal(ctx, "openai")
	if err != nil {
		t.Fatalf("Reveal: %v", err)
	}
	if plaintext != "sk-ancient-key" {
		t.Fatalf("Reveal = %q, want %q", plaintext, "sk-ancient-key")
	}

	conn, err := store.pool.Take(ctx)
	if err != nil {
		t.Fatalf("Take: %v", err)
	}
	stored, err := store.bundle(conn, "openai")
	store.pool.Put(conn)
	if err != nil {
		t.Fatalf("bundle: %v", err)
	}
	if stored.bundle.Ciphertext == legacy.Ciphertext {
		t.Fatal("legacy ciphertext was not replaced")
	}
	if stored.rootID != root.ID() {
		t.Errorf("root_id = %q, want %q", stored.rootID, root.ID())
	}
	revealed, err := apikey.DefaultOpener(root.Bytes()).RevealWith(stored.bundle.Salt, stored.bundle.Ciphertext)
	if err != nil {
		t.Fatalf("RevealWith on re-sealed row: %v", err)
	}
	if revealed.Strategy != apikey.StrategyAEAD {
		t.Errorf("re-sealed row opened by %q, want %q", revealed.Strategy, apikey.StrategyAEAD)
	}

	matched, err := store.Verify(ctx, "openai", "sk-ancient-key")
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if !matched {
		t.Error("re-sealed row does not verify against its plaintext")
	}

	record, err := store.Get(ctx, "openai")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !record.CreatedAt.Equal(epoch) {
		t.Errorf("CreatedAt = %v, want %v", record.CreatedAt, epoch)
	}
	if want := epoch.Add(time.Minute); !record.UpdatedAt.Equal(want) {
		t.Errorf("UpdatedAt = %v, want %v", record.UpdatedAt, want)
	}
}

func TestResealSkipsSupersededRow(t *testing.T) {
	root := testRoot("store-secret-superseded")
	store := openTestStore(t, "", root, clock.Fake(epoch))
	ctx := context.Background()

	salt := bytes.Repeat([]byte{0x3a}, apikey.SaltSize)
	legacy := apikey.Bundle{
		Salt:       base64.StdEncoding.EncodeToString(salt),
		Ciphertext: base64.StdEncoding.EncodeToString(apikey.SealLegacy(apikey.HistoricalDefaultSecret, salt, "sk-ancient-key")),
	}
	insertRow(t, store, "openai", legacy, "legacy")

	// Another writer replaces the row between the read and the upgrade.
	if _, err := store.Set(ctx, "openai", "sk-fresh-key"); err != nil {
		t.Fatalf("Set: %v", err)
	}

	conn, err := store.pool.Take(ctx)
	if err != nil {
		t.Fatalf("Take: %v", err)
	}
	resealed, err := store.reseal(conn, "openai", legacy.Ciphertext, "sk-ancient-key")
	store.pool.Put(conn)
	if err != nil {
		t.Fatalf("reseal: %v", err)
	}
	if resealed {
		t.Error("reseal reported success for a row that was already replaced")
	}

	plaintext, err := store.Reveal(ctx, "openai")
	if err != nil {
		t.Fatalf("Reveal: %v", err)
	}
	if plaintext != "sk-fresh-key" {
		t.Errorf("Reveal = %q, want the concurrent writer's key %q", plaintext, "sk-fresh-key")
	}
}

func TestResealReportsUpdatedRow(t *testing.T) {
	store := openTestStore(t, "", testRoot("store-secret-reseal"), clock.Fake(epoch))
	ctx := context.Background()

	salt := bytes.Repeat([]byte{0x21}, apikey.SaltSize)
	legacy := apikey.Bundle{
		Salt:       base64.StdEncoding.EncodeToString(salt),
		Ciphertext: base64.StdEncoding.EncodeToString(apikey.SealLegacy(apikey.HistoricalDefaultSecret, salt, "sk-ancient-key")),
	}
	insertRow(t, store, "openai", legacy, "legacy")

	conn, err := store.pool.Take(ctx)
	if err != nil {
		t.Fatalf("Take: %v", err)
	}
	defer store.pool.Put(conn)
	resealed, err := store.reseal(conn, "openai", legacy.Ciphertext, "sk-ancient-key")
	if err != nil {
		t.Fatalf("reseal: %v", err)
	}
	if !resealed {
		t.Error("reseal reported no change for an unmodified legacy row")
	}
}

func TestInvalidProviderRejected(t *testing.T) {
	store := openTestStore(t, "", testRoot("store-secret-ids"), clock.Fake(epoch))
	for _, provider := range []string{"", "OpenAI", "open ai", "key/../x", strings.Repeat("a", 65)} {
		if _, err := store.Set(context.Background(), provider, "k"); err == nil {
			t.Errorf("Set(%q) succeeded, want error", provider)
		}
	}
	for _, provider := range []string{"openai", "azure.openai", "my_provider-2", strings.Repeat("a", 64)} {
		if err := ValidateProvider(provider); err != nil {
			t.Errorf("ValidateProvider(%q) = %v, want nil", provider, err)
		}
	}
}

func TestConcurrentSetAndReveal(t *testing.T) {
	store := openTestStore(t, "", testRoot("store-secret-concurrent"), clock.Fake(epoch))
	ctx := context.Background()

	providers := []string{"a", "b", "c", "d", "e", "f", "g", "h"}
	var wait sync.WaitGroup
	errs := make(chan error, len(providers))
	for _, provider := range providers {
		wait.Add(1)
		go func() {
			defer wait.Done()
			if _, err := store.Set(ctx, provider, "key-"+provider); err != nil {
				errs <- err
				return
			}
			plaintext, err := store.Reveal(ctx, provider)
			if err != nil {
				errs <- err
				return
			}
			if plaintext != "key-"+provider {
				errs <- errors.New("wrong plaintext for " + provider)
			}
		}()
	}
	wait.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}

func TestOpenRequiresRoot(t *testing.T) {
	_, err := Open(context.Background(), Config{Path: filepath.Join(t.TempDir(), "x.db")})
	if err == nil {
		t.Fatal("expected error when Root is nil")
	}
}

func insertRow(t *testing.T, store *Store, provider string, bundle apikey.Bundle, rootID string) {
	t.Helper()
	conn, err := store.pool.Take(context.Background())
	if err != nil {
		t.Fatalf("Take: %v", err)
	}
	defer store.pool.Put(conn)
	now := store.clock.Now().UnixMilli()
	err = sqlitex.Execute(conn, `
		INSERT INTO api_keys (provider, salt, key_hash, ciphertext, key_suffix, root_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		&sqlitex.ExecOptions{
			Args: []any{provider, bundle.Salt, bundle.Hash, bundle.Ciphertext, bundle.Suffix, rootID, now, now},
		})
	if err != nil {
		t.Fatalf("inserting row: %v", err)
	}
}
