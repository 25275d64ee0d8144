// Copyright 2026 The OSVoice Authors
// SPDX-License-Identifier: Apache-2.0

// Package keyring resolves the root secret from which every API key
// encryption key is derived.
//
// A [Provider] resolves its [Root] exactly once, on first use, from
// the first source that works:
//
//  1. The environment variable named in [Config.EnvVar]
//     (OSVOICE_API_KEY_SECRET by default), if set and non-empty. Its
//     raw bytes are the secret.
//  2. The secret file <dir>/.encryption-key, if a directory was
//     configured. The file holds the standard base64 encoding of 32
//     random bytes and is created with O_EXCL at mode 0600. When two
//     processes race to create it, the loser reads back what the
//     winner wrote.
//  3. 32 random bytes that live only as long as the process. This is
//     logged as a warning: anything sealed under an ephemeral root is
//     unreadable after restart.
//
// Secret-file failures never surface as errors. Availability of the
// vault takes priority over recoverability across sessions, so any
// I/O or decoding problem downgrades to the ephemeral source.
//
// Root bytes live in a [secret.Buffer] (mlock'd, excluded from core
// dumps) when the kernel permits; otherwise in an ordinary slice.
// [Root.ID] is a public, non-reversible identifier for log lines and
// stored records.
package keyring
