// Copyright 2026 The OSVoice Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"io"

	"github.com/osvoice/osvoice/cmd/osvoice-keys/cli"
	"github.com/osvoice/osvoice/lib/clock"
)

// app carries the process surroundings every command runs against.
// Tests substitute buffers and a fake clock.
type app struct {
	ctx    context.Context
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	clock  clock.Clock
}

func rootCommand(a *app) *cli.Command {
	return &cli.Command{
		Name:   "osvoice-keys",
		Output: a.stderr,
		Description: `Manage the API keys stored by this OSVoice installation.

Keys are sealed with the installation's root secret, which comes from
$OSVOICE_API_KEY_SECRET or the .encryption-key file in the data
directory.`,
		Subcommands: []*cli.Command{
			setCommand(a),
			getCommand(a),
			listCommand(a),
			revealCommand(a),
			verifyCommand(a),
			deleteCommand(a),
			protectCommand(a),
			openCommand(a),
			secretCommand(a),
			keygenCommand(a),
			exportCommand(a),
			importCommand(a),
			inspectCommand(a),
			versionCommand(a),
		},
	}
}
