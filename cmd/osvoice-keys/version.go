// Copyright 2026 The OSVoice Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"

	"github.com/spf13/pflag"

	"github.com/osvoice/osvoice/cmd/osvoice-keys/cli"
	"github.com/osvoice/osvoice/lib/version"
)

type versionParams struct {
	cli.JSONOutput
}

func versionCommand(a *app) *cli.Command {
	var params versionParams
	return &cli.Command{
		Name:    "version",
		Summary: "Print build information",
		Flags:   func() *pflag.FlagSet { return cli.FlagsFromParams("version", &params) },
		Run: func(args []string) error {
			if done, err := params.EmitJSON(a.stdout, version.Current()); done {
				return err
			}
			fmt.Fprintf(a.stdout, "osvoice-keys %s\n", version.Full())
			return nil
		},
	}
}
