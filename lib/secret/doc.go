// Copyright 2026 The OSVoice Authors
// SPDX-License-Identifier: Apache-2.0

// Package secret provides a memory-safe buffer for key material: the
// root secret, age identities, and API keys read from the terminal.
//
// [Buffer] allocates memory outside the Go heap via mmap(MAP_ANONYMOUS),
// locks it into physical RAM via mlock, and marks it excluded from core
// dumps via madvise(MADV_DONTDUMP). On Close the memory is zeroed,
// unlocked, and unmapped. The garbage collector never sees the region,
// so it cannot leave stray copies behind.
//
// Constructors:
//
//   - [New] -- zero-filled buffer of a given size
//   - [NewFromBytes] -- copies into protected memory, zeroes the source
//   - [ReadFromPath] / [ReadFrom] -- one trimmed line from a file or stdin
//
// [Buffer.Equal] compares in constant time. [Zero] clears ordinary
// slices that briefly held secret material.
//
// Depends on golang.org/x/sys/unix. No other osvoice packages.
package secret
