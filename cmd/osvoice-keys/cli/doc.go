// Copyright 2026 The OSVoice Authors
// SPDX-License-Identifier: Apache-2.0

// Package cli is the command framework behind osvoice-keys.
//
// A [Command] has a name, an optional pflag.FlagSet factory, and either
// a Run function or nested Subcommands. [Command.Execute] routes
// arguments down the tree, parses flags, and prints help. Unknown
// commands and flags get a "did you mean" suggestion by edit distance.
//
// Parameter structs declare flags with tags and are bound by
// [FlagsFromParams]:
//
//	type revealParams struct {
//	    cli.JSONOutput
//	    DataDir string `flag:"data-dir" desc:"directory holding the secret file and database"`
//	}
//
// [ReadKey] obtains an API key from a file, from a pipe, or from a
// no-echo terminal prompt, so keys never appear in argv or shell
// history.
package cli
