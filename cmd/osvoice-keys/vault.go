// Copyright 2026 The OSVoice Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"log/slog"

	"github.com/osvoice/osvoice/cmd/osvoice-keys/cli"
	"github.com/osvoice/osvoice/lib/apikeystore"
	"github.com/osvoice/osvoice/lib/config"
	"github.com/osvoice/osvoice/lib/keyring"
)

// vaultParams are the location flags shared by every command that
// touches the root secret or the database.
type vaultParams struct {
	ConfigPath string `json:"-" flag:"config" desc:"configuration file (default $OSVOICE_CONFIG, then built-in defaults)"`
	DataDir    string `json:"-" flag:"data-dir" desc:"directory holding the secret file and database"`
}

// vault is an opened installation: configuration, resolved root
// secret, and (when requested) the key store.
type vault struct {
	config  *config.Config
	keyring *keyring.Provider
	root    *keyring.Root
	store   *apikeystore.Store
	logger  *slog.Logger
}

func (v *vault) Close() error {
	if v.store == nil {
		return nil
	}
	return v.store.Close()
}

func (a *app) loadConfig(params vaultParams) (*config.Config, error) {
	var cfg *config.Config
	var err error
	if params.ConfigPath != "" {
		cfg, err = config.LoadFile(params.ConfigPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}
	if params.DataDir != "" {
		cfg.SetDataDir(params.DataDir)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// openRoot loads configuration and resolves the root secret without
// opening the database. An unusable data directory is not an error
// here: the root falls back to an ephemeral secret.
func (a *app) openRoot(params vaultParams) (*vault, error) {
	cfg, err := a.loadConfig(params)
	if err != nil {
		return nil, err
	}

	logger := cli.NewCommandLogger(a.stderr, cfg.Level())
	// The keyring creates the directory itself and falls back to an
	// ephemeral secret when it cannot.
	if err := cfg.EnsureDataDir(); err != nil {
		logger.Warn("data directory unavailable", "path", cfg.DataDir, "error", err)
	}
	provider := keyring.New(keyring.Config{
		EnvVar: cfg.SecretEnv,
		Logger: logger,
		Clock:  a.clock,
	})
	root := provider.Initialize(cfg.DataDir)

	return &vault{
		config:  cfg,
		keyring: provider,
		root:    root,
		logger:  logger,
	}, nil
}

// openVault resolves the root secret and opens the key store.
func (a *app) openVault(params vaultParams) (*vault, error) {
	v, err := a.openRoot(params)
	if err != nil {
		return nil, err
	}
	if err := v.config.EnsureDataDir(); err != nil {
		return nil, err
	}

	store, err := apikeystore.Open(a.ctx, apikeystore.Config{
		Path:   v.config.Database,
		Root:   v.root,
		Clock:  a.clock,
		Logger: v.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("opening key store: %w", err)
	}
	v.store = store
	return v, nil
}
