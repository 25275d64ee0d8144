// Copyright 2026 The OSVoice Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/pflag"

	"github.com/osvoice/osvoice/cmd/osvoice-keys/cli"
	"github.com/osvoice/osvoice/lib/apikeystore"
	"github.com/osvoice/osvoice/lib/keytransfer"
	"github.com/osvoice/osvoice/lib/sealed"
	"github.com/osvoice/osvoice/lib/secret"
)

// maxArchiveSize bounds archive input. An archive holds a handful of
// short keys.
const maxArchiveSize = 4 << 20

type keygenParams struct {
	vaultParams
	cli.JSONOutput
	Output string `json:"-" flag:"output,o" desc:"identity file to create (default transfer.identity_file)"`
	Show   bool   `json:"-" flag:"show" desc:"print the public key of the existing identity instead of creating one"`
}

type keygenResult struct {
	IdentityFile string `json:"identity_file"`
	PublicKey    string `json:"public_key"`
}

func keygenCommand(a *app) *cli.Command {
	var params keygenParams
	return &cli.Command{
		Name:    "keygen",
		Summary: "Create the age identity used to receive exported keys",
		Description: `Generate an age x25519 identity for this installation and write it to
the identity file (mode 0600). The file is never overwritten. The
printed public key is what another installation passes to
"export --recipient". With --show, print the public key of the existing
identity instead.`,
		Flags: func() *pflag.FlagSet { return cli.FlagsFromParams("keygen", &params) },
		Run: func(args []string) error {
			cfg, err := a.loadConfig(params.vaultParams)
			if err != nil {
				return err
			}
			path := params.Output
			if path == "" {
				path = cfg.Transfer.IdentityFile
			}

			if params.Show {
				identity, err := readIdentityFile(path)
				if err != nil {
					return err
				}
				defer identity.Close()
				publicKey, err := sealed.PublicKeyOf(identity)
				if err != nil {
					return fmt.Errorf("identity file %s: %w", path, err)
				}
				if done, err := params.EmitJSON(a.stdout, keygenResult{IdentityFile: path, PublicKey: publicKey}); done {
					return err
				}
				fmt.Fprintln(a.stdout, publicKey)
				return nil
			}

			keypair, err := sealed.GenerateKeypair()
			if err != nil {
				return err
			}
			defer keypair.Close()

			if err := writeIdentityFile(path, keypair, a.clock.Now()); err != nil {
				return err
			}

			result := keygenResult{IdentityFile: path, PublicKey: keypair.PublicKey}
			if done, err := params.EmitJSON(a.stdout, result); done {
				return err
			}
			fmt.Fprintf(a.stderr, "identity written to %s\n", path)
			fmt.Fprintln(a.stdout, keypair.PublicKey)
			return nil
		},
	}
}

// writeIdentityFile creates path exclusively and writes the identity
// in age-keygen layout.
func writeIdentityFile(path string, keypair *sealed.Keypair, now time.Time) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating identity directory: %w", err)
	}
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return fmt.Errorf("identity file %s already exists; remove it first or pass --output", path)
		}
		return fmt.Errorf("creating identity file: %w", err)
	}

	_, err = fmt.Fprintf(file, "# created: %s\n# public key: %s\n", now.UTC().Format(time.RFC3339), keypair.PublicKey)
	if err == nil {
		_, err = file.Write(keypair.PrivateKey.Bytes())
	}
	if err == nil {
		_, err = file.Write([]byte("\n"))
	}
	if err == nil {
		err = file.Sync()
	}
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(path)
		return fmt.Errorf("writing identity file: %w", err)
	}
	return nil
}

func readIdentityFile(path string) (*secret.Buffer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading identity file: %w (create one with 'osvoice-keys keygen')", err)
	}
	buffer, err := secret.NewFromBytes(data)
	if err != nil {
		secret.Zero(data)
		return nil, fmt.Errorf("identity file %s: %w", path, err)
	}
	return buffer, nil
}

type exportParams struct {
	vaultParams
	Recipients []string `json:"-" flag:"recipient,r" desc:"age public key to encrypt to (repeatable; default transfer.recipients)"`
	Output     string   `json:"-" flag:"output,o" desc:"archive file to write (- for stdout)" default:"-"`
}

func exportCommand(a *app) *cli.Command {
	var params exportParams
	return &cli.Command{
		Name:    "export",
		Summary: "Encrypt stored keys into an archive for another installation",
		Description: `Reveal the stored keys and encrypt them into an armored age archive
readable only by the given recipients. With provider arguments only
those keys are exported; otherwise all of them are.`,
		Usage: "osvoice-keys export [provider...] [flags]",
		Examples: []cli.Example{
			{
				Description: "Export everything to a second machine",
				Command:     "osvoice-keys export --recipient age1... --output keys.age",
			},
		},
		Flags: func() *pflag.FlagSet { return cli.FlagsFromParams("export", &params) },
		Run: func(args []string) error {
			v, err := a.openVault(params.vaultParams)
			if err != nil {
				return err
			}
			defer v.Close()

			recipients := params.Recipients
			if len(recipients) == 0 {
				recipients = v.config.Transfer.Recipients
			}
			if len(recipients) == 0 {
				return fmt.Errorf("no recipients: pass --recipient or set transfer.recipients")
			}
			for _, recipient := range recipients {
				if err := sealed.ParsePublicKey(recipient); err != nil {
					return err
				}
			}

			providers := args
			if len(providers) == 0 {
				records, err := v.store.List(a.ctx)
				if err != nil {
					return err
				}
				for _, record := range records {
					providers = append(providers, record.Provider)
				}
			}

			entries := make([]keytransfer.Entry, 0, len(providers))
			for _, provider := range providers {
				record, err := v.store.Get(a.ctx, provider)
				if err != nil {
					return notFound(err, provider)
				}
				key, err := v.store.Reveal(a.ctx, provider)
				if err != nil {
					return err
				}
				entries = append(entries, keytransfer.Entry{
					Provider:  provider,
					Key:       key,
					CreatedAt: record.CreatedAt,
				})
			}

			armored, err := keytransfer.Export(entries, recipients, a.clock.Now())
			if err != nil {
				return err
			}
			if err := a.writeOutput(params.Output, []byte(armored)); err != nil {
				return err
			}
			v.logger.Info("keys exported", "count", len(entries), "recipients", len(recipients))
			return nil
		},
	}
}

type importParams struct {
	vaultParams
	cli.JSONOutput
	IdentityFile string `json:"-" flag:"identity-file,i" desc:"age identity file (default transfer.identity_file)"`
	Input        string `json:"-" flag:"input" desc:"archive file to read (- for stdin)" default:"-"`
	Overwrite    bool   `json:"-" flag:"overwrite" desc:"replace keys that are already stored"`
}

type importResult struct {
	Imported []string `json:"imported"`
	Skipped  []string `json:"skipped"`
}

func importCommand(a *app) *cli.Command {
	var params importParams
	return &cli.Command{
		Name:    "import",
		Summary: "Store the keys from an exported archive",
		Description: `Decrypt an archive with this installation's identity and store each
key under the local root secret. Providers that already have a key are
skipped unless --overwrite is given.`,
		Flags: func() *pflag.FlagSet { return cli.FlagsFromParams("import", &params) },
		Run: func(args []string) error {
			v, err := a.openVault(params.vaultParams)
			if err != nil {
				return err
			}
			defer v.Close()

			entries, err := readArchive(a, params.Input, params.IdentityFile, v.config.Transfer.IdentityFile, keytransfer.Import)
			if err != nil {
				return err
			}

			var result importResult
			for _, entry := range entries {
				if err := apikeystore.ValidateProvider(entry.Provider); err != nil {
					return fmt.Errorf("archive entry: %w", err)
				}
				if !params.Overwrite {
					_, err := v.store.Get(a.ctx, entry.Provider)
					if err == nil {
						result.Skipped = append(result.Skipped, entry.Provider)
						continue
					}
					if !errors.Is(err, apikeystore.ErrNotFound) {
						return err
					}
				}
				if _, err := v.store.Set(a.ctx, entry.Provider, entry.Key); err != nil {
					return err
				}
				result.Imported = append(result.Imported, entry.Provider)
			}

			if result.Imported == nil {
				result.Imported = []string{}
			}
			if result.Skipped == nil {
				result.Skipped = []string{}
			}
			if done, err := params.EmitJSON(a.stdout, result); done {
				return err
			}
			fmt.Fprintf(a.stdout, "imported %d, skipped %d\n", len(result.Imported), len(result.Skipped))
			for _, provider := range result.Skipped {
				fmt.Fprintf(a.stdout, "  skipped %s (already stored; use --overwrite)\n", provider)
			}
			return nil
		},
	}
}

type inspectParams struct {
	vaultParams
	IdentityFile string `json:"-" flag:"identity-file,i" desc:"age identity file (default transfer.identity_file)"`
	Input        string `json:"-" flag:"input" desc:"archive file to read (- for stdin)" default:"-"`
}

func inspectCommand(a *app) *cli.Command {
	var params inspectParams
	return &cli.Command{
		Name:    "inspect",
		Summary: "Show an archive's contents with keys redacted",
		Description: `Decrypt an archive and print it in CBOR diagnostic notation. Each key
is replaced by its display suffix.`,
		Flags: func() *pflag.FlagSet { return cli.FlagsFromParams("inspect", &params) },
		Run: func(args []string) error {
			cfg, err := a.loadConfig(params.vaultParams)
			if err != nil {
				return err
			}
			diagnostic, err := readArchive(a, params.Input, params.IdentityFile, cfg.Transfer.IdentityFile, keytransfer.Diagnose)
			if err != nil {
				return err
			}
			fmt.Fprintln(a.stdout, diagnostic)
			return nil
		},
	}
}

// readArchive reads the armored archive at input and decrypts it with
// the identity file, falling back to defaultIdentity.
func readArchive[T any](a *app, input, identityFile, defaultIdentity string, decode func(string, *secret.Buffer) (T, error)) (T, error) {
	var zero T
	var reader io.Reader = a.stdin
	if input != "" && input != "-" {
		file, err := os.Open(input)
		if err != nil {
			return zero, fmt.Errorf("reading archive: %w", err)
		}
		defer file.Close()
		reader = file
	}
	armored, err := io.ReadAll(io.LimitReader(reader, maxArchiveSize))
	if err != nil {
		return zero, fmt.Errorf("reading archive: %w", err)
	}

	if identityFile == "" {
		identityFile = defaultIdentity
	}
	identity, err := readIdentityFile(identityFile)
	if err != nil {
		return zero, err
	}
	defer identity.Close()

	return decode(string(armored), identity)
}

func (a *app) writeOutput(path string, data []byte) error {
	if path == "" || path == "-" {
		_, err := a.stdout.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
