// Copyright 2026 The OSVoice Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"fmt"
	"sync/atomic"
)

var uniqueCounter atomic.Uint64

// UniqueProvider returns "prefix-N" with N increasing across the test
// binary. prefix must itself be a valid provider identifier.
func UniqueProvider(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, uniqueCounter.Add(1))
}
