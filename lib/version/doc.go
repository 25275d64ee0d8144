// Copyright 2026 The OSVoice Authors
// SPDX-License-Identifier: Apache-2.0

// Package version reports build information for OSVoice binaries.
//
// Release builds inject values with -ldflags:
//
//	go build -ldflags "-X github.com/osvoice/osvoice/lib/version.Version=1.4.0"
//
// When GitCommit is not injected, the VCS revision recorded by the Go
// toolchain is used instead.
package version
