// Copyright 2026 The OSVoice Authors
// SPDX-License-Identifier: Apache-2.0

package cli

// ExitError ends the process with Code. Message is printed as an
// error line when non-empty; commands whose non-zero exit is a normal
// answer ("verify" on a mismatch) leave it empty and print their own
// output.
type ExitError struct {
	Code    int
	Message string
}

func (e *ExitError) Error() string { return e.Message }

// ExitCode satisfies the interface process.Fatal checks for.
func (e *ExitError) ExitCode() int { return e.Code }
