// Copyright 2026 The OSVoice Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec holds the shared CBOR configuration for binary
// payloads, currently the key transfer archive.
//
// Encoding is deterministic: the same logical value always produces
// the same bytes. Decoding ignores unknown fields so newer archives
// stay readable by older binaries, and rejects duplicate map keys and
// indefinite-length items.
//
// Struct types use `cbor` tags when they are only ever CBOR, and
// `json` tags when they are also printed as CLI JSON output;
// fxamacker/cbor falls back to `json` tags when `cbor` tags are absent.
//
//	data, err := codec.Marshal(value)
//	err = codec.Unmarshal(data, &value)
package codec
