// Copyright 2026 The OSVoice Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/pflag"

	"github.com/osvoice/osvoice/cmd/osvoice-keys/cli"
)

type secretParams struct {
	vaultParams
	cli.JSONOutput
}

type secretStatus struct {
	Source     string `json:"source"`
	ID         string `json:"id"`
	Persistent bool   `json:"persistent"`
	Locked     bool   `json:"locked"`
	Path       string `json:"path"`
	EnvVar     string `json:"env_var"`
}

func secretCommand(a *app) *cli.Command {
	var params secretParams
	return &cli.Command{
		Name:    "secret",
		Summary: "Show where the root secret comes from",
		Description: `Resolve the root secret and report its source, its public identifier,
and whether keys sealed now will survive a restart. Creates the secret
file on first use. The secret itself is never printed.`,
		Flags: func() *pflag.FlagSet { return cli.FlagsFromParams("secret", &params) },
		Run: func(args []string) error {
			v, err := a.openRoot(params.vaultParams)
			if err != nil {
				return err
			}

			status := secretStatus{
				Source:     v.root.Source().String(),
				ID:         v.root.ID(),
				Persistent: v.root.Persistent(),
				Locked:     v.root.Locked(),
				Path:       v.keyring.Path(),
				EnvVar:     v.config.SecretEnv,
			}
			if done, err := params.EmitJSON(a.stdout, status); done {
				return err
			}

			writer := tabwriter.NewWriter(a.stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintf(writer, "source:\t%s\n", status.Source)
			fmt.Fprintf(writer, "id:\t%s\n", status.ID)
			fmt.Fprintf(writer, "persistent:\t%t\n", status.Persistent)
			fmt.Fprintf(writer, "locked:\t%t\n", status.Locked)
			fmt.Fprintf(writer, "file:\t%s\n", status.Path)
			fmt.Fprintf(writer, "override:\t$%s\n", status.EnvVar)
			if err := writer.Flush(); err != nil {
				return err
			}
			if !status.Persistent {
				fmt.Fprintln(a.stdout, "\nwarning: the root secret is ephemeral; stored keys will be unreadable after this process exits")
			}
			return nil
		},
	}
}
