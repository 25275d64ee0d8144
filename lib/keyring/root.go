// Copyright 2026 The OSVoice Authors
// SPDX-License-Identifier: Apache-2.0

package keyring

import (
	"encoding/hex"
	"log/slog"

	"github.com/zeebo/blake3"

	"github.com/osvoice/osvoice/lib/secret"
)

// Source identifies where a Root's bytes came from.
type Source int

const (
	// SourceEphemeral is random material generated for this process
	// only.
	SourceEphemeral Source = iota

	// SourceEnvironment is the value of the override environment
	// variable.
	SourceEnvironment

	// SourceFile is the per-installation secret file.
	SourceFile
)

func (s Source) String() string {
	switch s {
	case SourceEnvironment:
		return "environment"
	case SourceFile:
		return "file"
	case SourceEphemeral:
		return "ephemeral"
	default:
		return "unknown"
	}
}

// rootIDDomain prefixes the root bytes when computing [Root.ID]. The
// identifier must never collide with a derived encryption key.
var rootIDDomain = []byte("osvoice-root-id-v1")

// Root is a resolved root secret. It is immutable after construction
// and safe for concurrent use.
type Root struct {
	buffer *secret.Buffer
	heap   []byte
	source Source
	id     string
}

// NewRoot wraps material as a Root reported as coming from source.
// The material is copied into protected memory when possible and the
// caller's slice is zeroed either way. Panics on empty material.
func NewRoot(material []byte, source Source) *Root {
	return newRoot(material, source, nil)
}

func newRoot(material []byte, source Source, logger *slog.Logger) *Root {
	if len(material) == 0 {
		panic("keyring: root secret material is empty")
	}

	root := &Root{source: source, id: computeID(material)}

	buffer, err := secret.NewFromBytes(material)
	if err != nil {
		if logger != nil {
			logger.Debug("root secret held in unlocked memory", "error", err)
		}
		root.heap = make([]byte, len(material))
		copy(root.heap, material)
		secret.Zero(material)
		return root
	}
	root.buffer = buffer
	return root
}

// Bytes returns the secret. The slice must not be modified or retained
// beyond the call that needs it.
func (r *Root) Bytes() []byte {
	if r.buffer != nil {
		return r.buffer.Bytes()
	}
	return r.heap
}

// Source reports where the secret came from.
func (r *Root) Source() Source { return r.source }

// Persistent reports whether the secret will be the same after a
// restart. False only for [SourceEphemeral].
func (r *Root) Persistent() bool { return r.source != SourceEphemeral }

// ID returns the hex encoding of the first 8 bytes of
// BLAKE3("osvoice-root-id-v1" || secret). Safe to log and store.
func (r *Root) ID() string { return r.id }

// Locked reports whether the secret is held in mlock'd memory.
func (r *Root) Locked() bool { return r.buffer != nil }

func computeID(material []byte) string {
	hasher := blake3.New()
	hasher.Write(rootIDDomain)
	hasher.Write(material)
	digest := hasher.Sum(nil)
	return hex.EncodeToString(digest[:8])
}
