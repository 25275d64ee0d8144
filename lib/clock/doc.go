// Copyright 2026 The OSVoice Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable time source.
//
// Production code holds a [Clock] and is wired with [Real]. Tests wire
// [Fake] and drive time with [FakeClock.Advance]:
//
//	fake := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	store, _ := apikeystore.Open(apikeystore.Config{Clock: fake, ...})
//	fake.Advance(time.Hour)
//
// Goroutines that Sleep on a FakeClock register a waiter; use
// [FakeClock.WaitForTimers] before Advance so the test never races the
// registration.
package clock
