// Copyright 2026 The OSVoice Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"

	"github.com/osvoice/osvoice/cmd/osvoice-keys/cli"
	"github.com/osvoice/osvoice/lib/apikey"
)

// maxBundleSize bounds the JSON read by "open". A bundle is four short
// base64 fields.
const maxBundleSize = 64 * 1024

type protectParams struct {
	vaultParams
	KeyFile string `json:"-" flag:"key-file" desc:"read the key from this file (- for stdin) instead of prompting"`
}

func protectCommand(a *app) *cli.Command {
	var params protectParams
	return &cli.Command{
		Name:    "protect",
		Summary: "Seal a key and print the bundle as JSON without storing it",
		Description: `Seal an API key under the root secret and print the resulting bundle
(salt, key_hash, ciphertext, key_suffix) as JSON. Nothing is written to
the database; callers that keep their own storage persist the bundle
and hand it back to "open".`,
		Flags: func() *pflag.FlagSet { return cli.FlagsFromParams("protect", &params) },
		Run: func(args []string) error {
			key, err := cli.ReadKey(params.KeyFile, a.stdin, a.stderr, "API key")
			if err != nil {
				return err
			}
			defer key.Close()

			v, err := a.openRoot(params.vaultParams)
			if err != nil {
				return err
			}
			return cli.WriteJSON(a.stdout, apikey.Protect(v.root.Bytes(), key.String()))
		},
	}
}

type openParams struct {
	vaultParams
	cli.JSONOutput
	BundleFile string `json:"-" flag:"bundle-file" desc:"read the bundle JSON from this file instead of stdin"`
}

type openResult struct {
	Key      string `json:"key"`
	Strategy string `json:"strategy"`
	Legacy   bool   `json:"legacy"`
}

func openCommand(a *app) *cli.Command {
	var params openParams
	return &cli.Command{
		Name:    "open",
		Summary: "Reveal the key inside a bundle produced by protect",
		Description: `Read a bundle as JSON and print the plaintext key. Bundles written by
older releases are opened through the legacy fallback; --json reports
which strategy succeeded so callers can re-protect them.`,
		Flags: func() *pflag.FlagSet { return cli.FlagsFromParams("open", &params) },
		Run: func(args []string) error {
			bundle, err := a.readBundle(params.BundleFile)
			if err != nil {
				return err
			}

			v, err := a.openRoot(params.vaultParams)
			if err != nil {
				return err
			}
			revealed, err := apikey.DefaultOpener(v.root.Bytes()).RevealWith(bundle.Salt, bundle.Ciphertext)
			if err != nil {
				return err
			}
			if revealed.Legacy() {
				v.logger.Warn("bundle opened with a legacy strategy; protect it again to upgrade",
					"strategy", revealed.Strategy)
			}

			result := openResult{Key: revealed.Plaintext, Strategy: revealed.Strategy, Legacy: revealed.Legacy()}
			if done, err := params.EmitJSON(a.stdout, result); done {
				return err
			}
			fmt.Fprintln(a.stdout, revealed.Plaintext)
			return nil
		},
	}
}

func (a *app) readBundle(path string) (apikey.Bundle, error) {
	reader := a.stdin
	if path != "" && path != "-" {
		file, err := os.Open(path)
		if err != nil {
			return apikey.Bundle{}, fmt.Errorf("reading bundle: %w", err)
		}
		defer file.Close()
		reader = file
	}

	var bundle apikey.Bundle
	decoder := json.NewDecoder(io.LimitReader(reader, maxBundleSize))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&bundle); err != nil {
		return apikey.Bundle{}, fmt.Errorf("parsing bundle: %w", err)
	}
	if bundle.Salt == "" || bundle.Ciphertext == "" {
		return apikey.Bundle{}, fmt.Errorf("parsing bundle: salt and ciphertext are required")
	}
	return bundle, nil
}
