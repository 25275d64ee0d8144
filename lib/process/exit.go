// Copyright 2026 The OSVoice Authors
// SPDX-License-Identifier: Apache-2.0

package process

import (
	"errors"
	"fmt"
	"io"
	"os"
)

// exitCoder is implemented by errors that carry their own exit status,
// such as "verify: key does not match" (status 1, no message needed).
type exitCoder interface {
	ExitCode() int
}

// Fatal reports err and exits. Errors carrying an exit code exit with
// that code and print only if their message is non-empty; everything
// else prints "error: ..." and exits 1.
func Fatal(err error) {
	os.Exit(report(os.Stderr, err))
}

func report(stderr io.Writer, err error) int {
	var coded exitCoder
	if errors.As(err, &coded) {
		if message := err.Error(); message != "" {
			fmt.Fprintf(stderr, "error: %s\n", message)
		}
		return coded.ExitCode()
	}
	fmt.Fprintf(stderr, "error: %v\n", err)
	return 1
}
