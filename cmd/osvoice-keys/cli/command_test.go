// Copyright 2026 The OSVoice Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/spf13/pflag"
)

func newTree(output *bytes.Buffer, ran *[]string) *Command {
	var name string
	return &Command{
		Name:   "osvoice-keys",
		Output: output,
		Subcommands: []*Command{
			{
				Name:    "get",
				Summary: "Show a stored key's metadata",
				Flags: func() *pflag.FlagSet {
					flagSet := pflag.NewFlagSet("get", pflag.ContinueOnError)
					flagSet.StringVar(&name, "name", "", "display name")
					return flagSet
				},
				Run: func(args []string) error {
					*ran = append(*ran, "get:"+name+":"+strings.Join(args, ","))
					return nil
				},
			},
			{
				Name:    "list",
				Summary: "List stored providers",
				Run: func(args []string) error {
					*ran = append(*ran, "list")
					return nil
				},
			},
		},
	}
}

func TestExecuteDispatch(t *testing.T) {
	var output bytes.Buffer
	var ran []string
	root := newTree(&output, &ran)

	if err := root.Execute([]string{"get", "--name", "x", "openai"}); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if err := root.Execute([]string{"list"}); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	want := []string{"get:x:openai", "list"}
	if strings.Join(ran, "|") != strings.Join(want, "|") {
		t.Errorf("ran = %v, want %v", ran, want)
	}
}

func TestExecuteUnknownCommandSuggests(t *testing.T) {
	var output bytes.Buffer
	var ran []string
	root := newTree(&output, &ran)

	err := root.Execute([]string{"lsit"})
	if err == nil {
		t.Fatal("expected error for unknown command")
	}
	if !strings.Contains(err.Error(), `did you mean "list"`) {
		t.Errorf("error = %q, want a suggestion for list", err)
	}
}

func TestExecuteUnknownFlagSuggests(t *testing.T) {
	var output bytes.Buffer
	var ran []string
	root := newTree(&output, &ran)

	err := root.Execute([]string{"get", "--nmae", "x"})
	if err == nil {
		t.Fatal("expected error for unknown flag")
	}
	if !strings.Contains(err.Error(), "did you mean --name") {
		t.Errorf("error = %q, want a suggestion for --name", err)
	}
	if len(ran) != 0 {
		t.Errorf("Run called despite flag error: %v", ran)
	}
}

func TestExecuteHelp(t *testing.T) {
	var output bytes.Buffer
	var ran []string
	root := newTree(&output, &ran)

	if err := root.Execute([]string{"--help"}); err != nil {
		t.Fatalf("Execute --help: %v", err)
	}
	text := output.String()
	for _, want := range []string{"Usage:", "get", "List stored providers", "osvoice-keys <command> --help"} {
		if !strings.Contains(text, want) {
			t.Errorf("help output missing %q:\n%s", want, text)
		}
	}

	output.Reset()
	if err := root.Execute([]string{"get", "--help"}); err != nil {
		t.Fatalf("Execute get --help: %v", err)
	}
	if !strings.Contains(output.String(), "--name") {
		t.Errorf("subcommand help missing flags:\n%s", output.String())
	}
	if len(ran) != 0 {
		t.Errorf("help should not run commands, ran %v", ran)
	}
}

func TestExecuteSubcommandRequired(t *testing.T) {
	var output bytes.Buffer
	var ran []string
	root := newTree(&output, &ran)

	if err := root.Execute(nil); err == nil {
		t.Fatal("expected error when no subcommand is given")
	}
	if !strings.Contains(output.String(), "Commands:") {
		t.Errorf("expected help to be printed, got:\n%s", output.String())
	}
}

func TestRequireArgs(t *testing.T) {
	command := &Command{Name: "get"}
	if err := command.RequireArgs([]string{"openai"}, 1, "<provider>"); err != nil {
		t.Errorf("RequireArgs with one arg: %v", err)
	}
	if err := command.RequireArgs(nil, 1, "<provider>"); err == nil || !strings.Contains(err.Error(), "missing argument <provider>") {
		t.Errorf("RequireArgs with no args = %v, want missing argument error", err)
	}
	if err := command.RequireArgs([]string{"a", "b"}, 1, "<provider>"); err == nil || !strings.Contains(err.Error(), `unexpected argument "b"`) {
		t.Errorf("RequireArgs with two args = %v, want unexpected argument error", err)
	}
}

func TestExitError(t *testing.T) {
	var err error = &ExitError{Code: 1}
	var exitErr *ExitError
	if !errors.As(err, &exitErr) {
		t.Fatal("errors.As failed for *ExitError")
	}
	if exitErr.ExitCode() != 1 {
		t.Errorf("ExitCode() = %d, want 1", exitErr.ExitCode())
	}
	if err.Error() != "" {
		t.Errorf("Error() = %q, want empty", err.Error())
	}
}

func TestLevenshtein(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"", "abc", 3},
		{"list", "list", 0},
		{"lsit", "list", 2},
		{"reveal", "revel", 1},
		{"kitten", "sitting", 3},
	}
	for _, test := range tests {
		if got := levenshtein(test.a, test.b); got != test.want {
			t.Errorf("levenshtein(%q, %q) = %d, want %d", test.a, test.b, got, test.want)
		}
	}
}
