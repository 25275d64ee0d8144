// Copyright 2026 The OSVoice Authors
// SPDX-License-Identifier: Apache-2.0

package keyring

import (
	"crypto/rand"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/osvoice/osvoice/lib/clock"
)

// DefaultEnvVar is the environment variable consulted when
// [Config.EnvVar] is empty.
const DefaultEnvVar = "OSVOICE_API_KEY_SECRET"

// Config holds the parameters for [New].
type Config struct {
	// EnvVar names the override environment variable. Empty means
	// [DefaultEnvVar].
	EnvVar string

	// Dir is the directory holding the secret file. May be left empty
	// and supplied later through [Provider.Initialize].
	Dir string

	// Logger receives resolution and fallback records. Nil discards.
	Logger *slog.Logger

	// Clock paces secret-file read-back retries. Nil means
	// [clock.Real].
	Clock clock.Clock
}

// Provider resolves the root secret once and hands out the cached
// [Root] thereafter. Safe for concurrent use: concurrent first callers
// block until resolution completes and all observe the same Root.
type Provider struct {
	envVar string
	logger *slog.Logger
	clock  clock.Clock

	mu     sync.Mutex
	dir    string
	dirSet bool

	once sync.Once
	root *Root
}

// New creates a Provider. Nothing is read or written until the first
// call to Root or Initialize.
func New(config Config) *Provider {
	if config.EnvVar == "" {
		config.EnvVar = DefaultEnvVar
	}
	if config.Logger == nil {
		config.Logger = slog.New(slog.DiscardHandler)
	}
	if config.Clock == nil {
		config.Clock = clock.Real()
	}
	return &Provider{
		envVar: config.EnvVar,
		logger: config.Logger,
		clock:  config.Clock,
		dir:    config.Dir,
		dirSet: config.Dir != "",
	}
}

// Initialize records dir as the location of the secret file and
// resolves the root. Only the first directory ever recorded has effect;
// later calls, and calls after the root was already resolved, just
// return the cached Root.
func (p *Provider) Initialize(dir string) *Root {
	p.mu.Lock()
	if !p.dirSet && dir != "" {
		p.dir = dir
		p.dirSet = true
	}
	p.mu.Unlock()
	return p.Root()
}

// Root returns the root secret, resolving it on the first call.
func (p *Provider) Root() *Root {
	p.once.Do(func() {
		p.root = p.resolve()
		p.logger.Info("root secret resolved",
			"source", p.root.Source().String(),
			"root_id", p.root.ID(),
			"locked", p.root.Locked(),
		)
	})
	return p.root
}

// Path returns the secret file path, or "" if no directory is
// configured.
func (p *Provider) Path() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.dirSet {
		return ""
	}
	return filepath.Join(p.dir, FileName)
}

func (p *Provider) resolve() *Root {
	if value := os.Getenv(p.envVar); value != "" {
		return newRoot([]byte(value), SourceEnvironment, p.logger)
	}

	if path := p.Path(); path != "" {
		material, err := readOrCreateSecretFile(path, p.clock)
		if err == nil {
			return newRoot(material, SourceFile, p.logger)
		}
		p.logger.Warn("failed to manage secret file", "path", path, "error", err)
	}

	p.logger.Warn("could not initialize persistent API key secret; " +
		"API keys protected in this session may not be recoverable")
	material := make([]byte, SecretSize)
	if _, err := rand.Read(material); err != nil {
		panic("keyring: crypto/rand failed: " + err.Error())
	}
	return newRoot(material, SourceEphemeral, p.logger)
}
