// Copyright 2026 The OSVoice Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/pflag"

	"github.com/osvoice/osvoice/cmd/osvoice-keys/cli"
	"github.com/osvoice/osvoice/lib/apikeystore"
)

type setParams struct {
	vaultParams
	cli.JSONOutput
	KeyFile string `json:"-" flag:"key-file" desc:"read the key from this file (- for stdin) instead of prompting"`
}

func setCommand(a *app) *cli.Command {
	var params setParams
	command := &cli.Command{
		Name:    "set",
		Summary: "Store or replace the API key for a provider",
		Description: `Seal an API key under the root secret and store it for a provider.

The key is read from --key-file, from stdin when it is a pipe, or from
a no-echo prompt. It is never accepted as a command-line argument.`,
		Usage: "osvoice-keys set <provider> [flags]",
		Examples: []cli.Example{
			{Description: "Prompt for the key", Command: "osvoice-keys set openai"},
			{Description: "Read the key from a file", Command: "osvoice-keys set deepgram --key-file ~/deepgram.txt"},
		},
		Flags: func() *pflag.FlagSet { return cli.FlagsFromParams("set", &params) },
	}
	command.Run = func(args []string) error {
		if err := command.RequireArgs(args, 1, "<provider>"); err != nil {
			return err
		}
		provider := args[0]
		if err := apikeystore.ValidateProvider(provider); err != nil {
			return err
		}

		key, err := cli.ReadKey(params.KeyFile, a.stdin, a.stderr, "API key for "+provider)
		if err != nil {
			return err
		}
		defer key.Close()

		v, err := a.openVault(params.vaultParams)
		if err != nil {
			return err
		}
		defer v.Close()

		record, err := v.store.Set(a.ctx, provider, key.String())
		if err != nil {
			return err
		}
		if done, err := params.EmitJSON(a.stdout, record); done {
			return err
		}
		fmt.Fprintf(a.stdout, "stored key for %s%s\n", record.Provider, suffixNote(record.Suffix))
		return nil
	}
	return command
}

type getParams struct {
	vaultParams
	cli.JSONOutput
}

func getCommand(a *app) *cli.Command {
	var params getParams
	command := &cli.Command{
		Name:    "get",
		Summary: "Show metadata for a stored key",
		Usage:   "osvoice-keys get <provider> [flags]",
		Flags:   func() *pflag.FlagSet { return cli.FlagsFromParams("get", &params) },
	}
	command.Run = func(args []string) error {
		if err := command.RequireArgs(args, 1, "<provider>"); err != nil {
			return err
		}
		v, err := a.openVault(params.vaultParams)
		if err != nil {
			return err
		}
		defer v.Close()

		record, err := v.store.Get(a.ctx, args[0])
		if err != nil {
			return notFound(err, args[0])
		}
		if done, err := params.EmitJSON(a.stdout, record); done {
			return err
		}

		writer := tabwriter.NewWriter(a.stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintf(writer, "provider:\t%s\n", record.Provider)
		fmt.Fprintf(writer, "suffix:\t%s\n", displaySuffix(record.Suffix))
		fmt.Fprintf(writer, "root id:\t%s\n", record.RootID)
		fmt.Fprintf(writer, "created:\t%s\n", record.CreatedAt.Format(time.RFC3339))
		fmt.Fprintf(writer, "updated:\t%s\n", record.UpdatedAt.Format(time.RFC3339))
		return writer.Flush()
	}
	return command
}

type listParams struct {
	vaultParams
	cli.JSONOutput
}

func listCommand(a *app) *cli.Command {
	var params listParams
	return &cli.Command{
		Name:    "list",
		Summary: "List providers with a stored key",
		Flags:   func() *pflag.FlagSet { return cli.FlagsFromParams("list", &params) },
		Run: func(args []string) error {
			v, err := a.openVault(params.vaultParams)
			if err != nil {
				return err
			}
			defer v.Close()

			records, err := v.store.List(a.ctx)
			if err != nil {
				return err
			}
			if done, err := params.EmitJSON(a.stdout, records); done {
				return err
			}
			if len(records) == 0 {
				fmt.Fprintln(a.stdout, "no keys stored")
				return nil
			}

			writer := tabwriter.NewWriter(a.stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(writer, "PROVIDER\tSUFFIX\tUPDATED")
			for _, record := range records {
				fmt.Fprintf(writer, "%s\t%s\t%s\n",
					record.Provider, displaySuffix(record.Suffix), record.UpdatedAt.Format(time.RFC3339))
			}
			return writer.Flush()
		},
	}
}

type revealParams struct {
	vaultParams
	cli.JSONOutput
}

type revealResult struct {
	Provider string `json:"provider"`
	Key      string `json:"key"`
}

func revealCommand(a *app) *cli.Command {
	var params revealParams
	command := &cli.Command{
		Name:    "reveal",
		Summary: "Print the plaintext API key for a provider",
		Description: `Open the stored key for a provider and print it.

Keys stored by older releases are opened through the legacy fallback
and re-sealed in the current format as a side effect.`,
		Usage: "osvoice-keys reveal <provider> [flags]",
		Flags: func() *pflag.FlagSet { return cli.FlagsFromParams("reveal", &params) },
	}
	command.Run = func(args []string) error {
		if err := command.RequireArgs(args, 1, "<provider>"); err != nil {
			return err
		}
		v, err := a.openVault(params.vaultParams)
		if err != nil {
			return err
		}
		defer v.Close()

		plaintext, err := v.store.Reveal(a.ctx, args[0])
		if err != nil {
			return notFound(err, args[0])
		}
		if done, err := params.EmitJSON(a.stdout, revealResult{Provider: args[0], Key: plaintext}); done {
			return err
		}
		fmt.Fprintln(a.stdout, plaintext)
		return nil
	}
	return command
}

type verifyParams struct {
	vaultParams
	cli.JSONOutput
	KeyFile string `json:"-" flag:"key-file" desc:"read the candidate key from this file (- for stdin) instead of prompting"`
}

type verifyResult struct {
	Provider string `json:"provider"`
	Match    bool   `json:"match"`
}

func verifyCommand(a *app) *cli.Command {
	var params verifyParams
	command := &cli.Command{
		Name:    "verify",
		Summary: "Check a candidate key against the stored fingerprint",
		Description: `Compare a candidate key with the stored key's fingerprint without
decrypting the stored key. Exits 0 on a match and 1 otherwise.`,
		Usage: "osvoice-keys verify <provider> [flags]",
		Flags: func() *pflag.FlagSet { return cli.FlagsFromParams("verify", &params) },
	}
	command.Run = func(args []string) error {
		if err := command.RequireArgs(args, 1, "<provider>"); err != nil {
			return err
		}
		candidate, err := cli.ReadKey(params.KeyFile, a.stdin, a.stderr, "Candidate key for "+args[0])
		if err != nil {
			return err
		}
		defer candidate.Close()

		v, err := a.openVault(params.vaultParams)
		if err != nil {
			return err
		}
		defer v.Close()

		match, err := v.store.Verify(a.ctx, args[0], candidate.String())
		if err != nil {
			return notFound(err, args[0])
		}

		done, err := params.EmitJSON(a.stdout, verifyResult{Provider: args[0], Match: match})
		if err != nil {
			return err
		}
		if !done {
			if match {
				fmt.Fprintln(a.stdout, "match")
			} else {
				fmt.Fprintln(a.stdout, "mismatch")
			}
		}
		if !match {
			return &cli.ExitError{Code: 1}
		}
		return nil
	}
	return command
}

type deleteParams struct {
	vaultParams
}

func deleteCommand(a *app) *cli.Command {
	var params deleteParams
	command := &cli.Command{
		Name:    "delete",
		Summary: "Remove the stored key for a provider",
		Usage:   "osvoice-keys delete <provider> [flags]",
		Flags:   func() *pflag.FlagSet { return cli.FlagsFromParams("delete", &params) },
	}
	command.Run = func(args []string) error {
		if err := command.RequireArgs(args, 1, "<provider>"); err != nil {
			return err
		}
		v, err := a.openVault(params.vaultParams)
		if err != nil {
			return err
		}
		defer v.Close()

		if err := v.store.Delete(a.ctx, args[0]); err != nil {
			return notFound(err, args[0])
		}
		fmt.Fprintf(a.stdout, "deleted key for %s\n", args[0])
		return nil
	}
	return command
}

func notFound(err error, provider string) error {
	if errors.Is(err, apikeystore.ErrNotFound) {
		return fmt.Errorf("no key stored for %q (see 'osvoice-keys list')", provider)
	}
	return err
}

func displaySuffix(suffix string) string {
	if suffix == "" {
		return "-"
	}
	return "..." + suffix
}

func suffixNote(suffix string) string {
	if suffix == "" {
		return ""
	}
	return " (..." + suffix + ")"
}
