// Copyright 2026 The OSVoice Authors
// SPDX-License-Identifier: Apache-2.0

package apikeystore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/osvoice/osvoice/lib/apikey"
	"github.com/osvoice/osvoice/lib/clock"
	"github.com/osvoice/osvoice/lib/keyring"
	"github.com/osvoice/osvoice/lib/sqlitepool"
)

// ErrNotFound is returned when no key is stored for a provider.
var ErrNotFound = errors.New("apikeystore: no API key stored for provider")

// maxProviderLength bounds provider identifiers.
const maxProviderLength = 64

var providerPattern = regexp.MustCompile(`^[a-z0-9._-]+$`)

// ValidateProvider checks that provider is a usable identifier:
// non-empty, at most 64 characters, lowercase ASCII letters, digits,
// '.', '_' and '-'.
func ValidateProvider(provider string) error {
	if provider == "" {
		return fmt.Errorf("provider is empty")
	}
	if len(provider) > maxProviderLength {
		return fmt.Errorf("provider %q is longer than %d characters", provider, maxProviderLength)
	}
	if !providerPattern.MatchString(provider) {
		return fmt.Errorf("provider %q contains characters outside [a-z0-9._-]", provider)
	}
	return nil
}

// Record is the non-secret metadata of a stored key.
type Record struct {
	Provider  string    `json:"provider"`
	Suffix    string    `json:"key_suffix,omitempty"`
	RootID    string    `json:"root_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Config holds the parameters for [Open].
type Config struct {
	// Path is the SQLite database file. Required.
	Path string

	// Root seals and opens every key. Required.
	Root *keyring.Root

	// PoolSize is passed to sqlitepool. Zero uses its default.
	PoolSize int

	// Clock stamps created_at and updated_at. Nil means [clock.Real].
	Clock clock.Clock

	// Logger receives store records. Nil discards.
	Logger *slog.Logger
}

// Store is the SQLite-backed API key table. Safe for concurrent use.
type Store struct {
	pool   *sqlitepool.Pool
	root   *keyring.Root
	opener *apikey.Opener
	clock  clock.Clock
	logger *slog.Logger
}

// Open opens (creating if needed) the key store at cfg.Path.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Root == nil {
		return nil, fmt.Errorf("apikeystore: Root is required")
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.Real()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}

	pool, err := sqlitepool.Open(ctx, sqlitepool.Config{
		Path:       cfg.Path,
		PoolSize:   cfg.PoolSize,
		Logger:     cfg.Logger,
		Migrations: migrations,
	})
	if err != nil {
		return nil, fmt.Errorf("apikeystore: %w", err)
	}

	if !cfg.Root.Persistent() {
		cfg.Logger.Warn("key store opened with an ephemeral root secret; keys saved now will not survive a restart",
			"path", cfg.Path,
		)
	}

	return &Store{
		pool:   pool,
		root:   cfg.Root,
		opener: apikey.DefaultOpener(cfg.Root.Bytes()),
		clock:  cfg.Clock,
		logger: cfg.Logger,
	}, nil
}

// Close closes the underlying pool.
func (s *Store) Close() error {
	return s.pool.Close()
}

// Set seals plaintext and stores it for provider, replacing any
// existing key. The original created_at is kept on replacement.
func (s *Store) Set(ctx context.Context, provider, plaintext string) (Record, error) {
	if err := ValidateProvider(provider); err != nil {
		return Record{}, fmt.Errorf("apikeystore: %w", err)
	}

	bundle := apikey.Protect(s.root.Bytes(), plaintext)
	now := s.clock.Now()

	conn, err := s.pool.Take(ctx)
	if err != nil {
		return Record{}, fmt.Errorf("apikeystore: %w", err)
	}
	defer s.pool.Put(conn)

	if err := s.upsert(conn, provider, bundle, now); err != nil {
		return Record{}, err
	}

	record, err := s.get(conn, provider)
	if err != nil {
		return Record{}, err
	}
	s.logger.Info("API key stored",
		"provider", provider,
		"suffix", record.Suffix,
		"root_id", record.RootID,
	)
	return record, nil
}

// Get returns the metadata for provider's key.
func (s *Store) Get(ctx context.Context, provider string) (Record, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return Record{}, fmt.Errorf("apikeystore: %w", err)
	}
	defer s.pool.Put(conn)
	return s.get(conn, provider)
}

// List returns the metadata of every stored key, ordered by provider.
func (s *Store) List(ctx context.Context) ([]Record, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("apikeystore: %w", err)
	}
	defer s.pool.Put(conn)

	var records []Record
	err = sqlitex.Execute(conn,
		`SELECT `+recordColumns+` FROM api_keys ORDER BY provider`,
		&sqlitex.ExecOptions{
			ResultFunc: func(stmt *sqlite.Stmt) error {
				records = append(records, scanRecord(stmt))
				return nil
			},
		})
	if err != nil {
		return nil, fmt.Errorf("apikeystore: listing keys: %w", err)
	}
	return records, nil
}

// Reveal returns provider's plaintext key. A key recoverable only by a
// legacy strategy is re-sealed in place before returning.
func (s *Store) Reveal(ctx context.Context, provider string) (string, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return "", fmt.Errorf("apikeystore: %w", err)
	}
	defer s.pool.Put(conn)

	stored, err := s.bundle(conn, provider)
	if err != nil {
		return "", err
	}

	revealed, err := s.opener.RevealWith(stored.bundle.Salt, stored.bundle.Ciphertext)
	if err != nil {
		s.logger.Warn("API key could not be opened",
			"provider", provider,
			"sealed_root_id", stored.rootID,
			"current_root_id", s.root.ID(),
			"error", err,
		)
		return "", fmt.Errorf("apikeystore: revealing %s: %w", provider, err)
	}

	if revealed.Legacy() {
		resealed, err := s.reseal(conn, provider, stored.bundle.Ciphertext, revealed.Plaintext)
		switch {
		case err != nil:
			// The plaintext is still good; the upgrade is retried on
			// the next read.
			s.logger.Warn("re-sealing legacy API key failed", "provider", provider, "error", err)
		case !resealed:
			s.logger.Info("legacy API key superseded by a concurrent write; not re-sealed",
				"provider", provider,
			)
		default:
			s.logger.Info("legacy API key re-sealed",
				"provider", provider,
				"strategy", revealed.Strategy,
				"root_id", s.root.ID(),
			)
		}
	}
	return revealed.Plaintext, nil
}

// Verify reports whether candidate is provider's stored key by
// comparing fingerprints. Nothing is decrypted.
func (s *Store) Verify(ctx context.Context, provider, candidate string) (bool, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return false, fmt.Errorf("apikeystore: %w", err)
	}
	defer s.pool.Put(conn)

	stored, err := s.bundle(conn, provider)
	if err != nil {
		return false, err
	}
	matched, err := apikey.Matches(s.root.Bytes(), stored.bundle.Salt, stored.bundle.Hash, candidate)
	if err != nil {
		return false, fmt.Errorf("apikeystore: verifying %s: %w", provider, err)
	}
	return matched, nil
}

// Delete removes provider's key.
func (s *Store) Delete(ctx context.Context, provider string) error {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("apikeystore: %w", err)
	}
	defer s.pool.Put(conn)

	err = sqlitex.Execute(conn, `DELETE FROM api_keys WHERE provider = ?`, &sqlitex.ExecOptions{
		Args: []any{provider},
	})
	if err != nil {
		return fmt.Errorf("apikeystore: deleting %s: %w", provider, err)
	}
	if conn.Changes() == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, provider)
	}
	s.logger.Info("API key deleted", "provider", provider)
	return nil
}

// storedBundle is a row's sealed fields.
type storedBundle struct {
	bundle apikey.Bundle
	rootID string
}

func (s *Store) upsert(conn *sqlite.Conn, provider string, bundle apikey.Bundle, now time.Time) error {
	var suffix any
	if bundle.HasSuffix() {
		suffix = bundle.Suffix
	}
	err := sqlitex.Execute(conn, `
		INSERT INTO api_keys (provider, salt, key_hash, ciphertext, key_suffix, root_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (provider) DO UPDATE SET
			salt = excluded.salt,
			key_hash = excluded.key_hash,
			ciphertext = excluded.ciphertext,
			key_suffix = excluded.key_suffix,
			root_id = excluded.root_id,
			updated_at = excluded.updated_at`,
		&sqlitex.ExecOptions{
			Args: []any{
				provider, bundle.Salt, bundle.Hash, bundle.Ciphertext, suffix,
				s.root.ID(), now.UnixMilli(), now.UnixMilli(),
			},
		})
	if err != nil {
		return fmt.Errorf("apikeystore: storing %s: %w", provider, err)
	}
	return nil
}

// reseal replaces provider's row with a fresh authenticated bundle,
// but only if the ciphertext is still the one that was just opened.
// It reports false when another writer replaced the row first.
func (s *Store) reseal(conn *sqlite.Conn, provider, previousCiphertext, plaintext string) (bool, error) {
	bundle := apikey.Protect(s.root.Bytes(), plaintext)
	var suffix any
	if bundle.HasSuffix() {
		suffix = bundle.Suffix
	}
	err := sqlitex.Execute(conn, `
		UPDATE api_keys
		SET salt = ?, key_hash = ?, ciphertext = ?, key_suffix = ?, root_id = ?, updated_at = ?
		WHERE provider = ? AND ciphertext = ?`,
		&sqlitex.ExecOptions{
			Args: []any{
				bundle.Salt, bundle.Hash, bundle.Ciphertext, suffix, s.root.ID(),
				s.clock.Now().UnixMilli(), provider, previousCiphertext,
			},
		})
	if err != nil {
		return false, fmt.Errorf("apikeystore: re-sealing %s: %w", provider, err)
	}
	return conn.Changes() > 0, nil
}

func (s *Store) get(conn *sqlite.Conn, provider string) (Record, error) {
	var record Record
	found := false
	err := sqlitex.Execute(conn,
		`SELECT `+recordColumns+` FROM api_keys WHERE provider = ?`,
		&sqlitex.ExecOptions{
			Args: []any{provider},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				record = scanRecord(stmt)
				found = true
				return nil
			},
		})
	if err != nil {
		return Record{}, fmt.Errorf("apikeystore: reading %s: %w", provider, err)
	}
	if !found {
		return Record{}, fmt.Errorf("%w: %s", ErrNotFound, provider)
	}
	return record, nil
}

func (s *Store) bundle(conn *sqlite.Conn, provider string) (storedBundle, error) {
	var stored storedBundle
	found := false
	err := sqlitex.Execute(conn,
		`SELECT salt, key_hash, ciphertext, key_suffix, root_id FROM api_keys WHERE provider = ?`,
		&sqlitex.ExecOptions{
			Args: []any{provider},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				stored = storedBundle{
					bundle: apikey.Bundle{
						Salt:       stmt.ColumnText(0),
						Hash:       stmt.ColumnText(1),
						Ciphertext: stmt.ColumnText(2),
						Suffix:     stmt.ColumnText(3),
					},
					rootID: stmt.ColumnText(4),
				}
				found = true
				return nil
			},
		})
	if err != nil {
		return storedBundle{}, fmt.Errorf("apikeystore: reading %s: %w", provider, err)
	}
	if !found {
		return storedBundle{}, fmt.Errorf("%w: %s", ErrNotFound, provider)
	}
	return stored, nil
}

func scanRecord(stmt *sqlite.Stmt) Record {
	return Record{
		Provider:  stmt.ColumnText(0),
		Suffix:    stmt.ColumnText(1),
		RootID:    stmt.ColumnText(2),
		CreatedAt: time.UnixMilli(stmt.ColumnInt64(3)).UTC(),
		UpdatedAt: time.UnixMilli(stmt.ColumnInt64(4)).UTC(),
	}
}
