// Copyright 2026 The OSVoice Authors
// SPDX-License-Identifier: Apache-2.0

package keytransfer

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/osvoice/osvoice/lib/apikey"
	"github.com/osvoice/osvoice/lib/codec"
	"github.com/osvoice/osvoice/lib/sealed"
	"github.com/osvoice/osvoice/lib/secret"
)

// ArchiveVersion is the archive format written by Export.
const ArchiveVersion = 1

// ErrUnsupportedVersion is returned by Import for an archive written by
// a newer format.
var ErrUnsupportedVersion = errors.New("keytransfer: unsupported archive version")

// Entry is one provider's key in an archive.
type Entry struct {
	Provider  string    `cbor:"provider"`
	Key       string    `cbor:"key"`
	CreatedAt time.Time `cbor:"created_at"`
}

type archive struct {
	Version    int       `cbor:"version"`
	ExportedAt time.Time `cbor:"exported_at"`
	Entries    []Entry   `cbor:"entries"`
}

// Export encrypts entries to recipients. Entries are sorted by
// provider; duplicate providers are rejected.
func Export(entries []Entry, recipients []string, exportedAt time.Time) (string, error) {
	sorted := append([]Entry(nil), entries...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Provider < sorted[j].Provider })
	for index := 1; index < len(sorted); index++ {
		if sorted[index].Provider == sorted[index-1].Provider {
			return "", fmt.Errorf("keytransfer: duplicate provider %q", sorted[index].Provider)
		}
	}

	payload, err := codec.Marshal(archive{
		Version:    ArchiveVersion,
		ExportedAt: exportedAt.UTC(),
		Entries:    sorted,
	})
	if err != nil {
		return "", fmt.Errorf("keytransfer: encoding archive: %w", err)
	}
	defer secret.Zero(payload)

	armored, err := sealed.Seal(payload, recipients)
	if err != nil {
		return "", fmt.Errorf("keytransfer: %w", err)
	}
	return armored, nil
}

// Import decrypts an archive with identity and returns its entries.
// The identity is borrowed, not closed.
func Import(armored string, identity *secret.Buffer) ([]Entry, error) {
	decoded, err := open(armored, identity)
	if err != nil {
		return nil, err
	}
	return decoded.Entries, nil
}

// Diagnose decrypts an archive and returns it in CBOR diagnostic
// notation with each key replaced by its display suffix.
func Diagnose(armored string, identity *secret.Buffer) (string, error) {
	decoded, err := open(armored, identity)
	if err != nil {
		return "", err
	}
	for index := range decoded.Entries {
		decoded.Entries[index].Key = redactedPrefix + apikey.Suffix(decoded.Entries[index].Key)
	}

	redacted, err := codec.Marshal(decoded)
	if err != nil {
		return "", fmt.Errorf("keytransfer: encoding archive: %w", err)
	}
	return codec.Diagnose(redacted)
}

const redactedPrefix = "***"

func open(armored string, identity *secret.Buffer) (archive, error) {
	payload, err := sealed.Open(armored, identity)
	if err != nil {
		return archive{}, fmt.Errorf("keytransfer: %w", err)
	}
	defer payload.Close()

	var decoded archive
	if err := codec.Unmarshal(payload.Bytes(), &decoded); err != nil {
		return archive{}, fmt.Errorf("keytransfer: decoding archive: %w", err)
	}
	if decoded.Version < 1 || decoded.Version > ArchiveVersion {
		return archive{}, fmt.Errorf("%w: %d", ErrUnsupportedVersion, decoded.Version)
	}
	for _, entry := range decoded.Entries {
		if entry.Provider == "" {
			return archive{}, fmt.Errorf("keytransfer: archive entry with empty provider")
		}
	}
	return decoded, nil
}
