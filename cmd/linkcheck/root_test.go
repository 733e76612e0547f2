package main

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/spf13/cobra"
)

// TestNewRootCmd tests the root command creation.
func TestNewRootCmd(t *testing.T) {
	t.Parallel()

	cmd := NewRootCmd()

	t.Run("has correct use", func(t *testing.T) {
		t.Parallel()
		if cmd.Use != "linkcheck" {
			t.Errorf("expected use 'linkcheck', got %q", cmd.Use)
		}
	})

	t.Run("has descriptions", func(t *testing.T) {
		t.Parallel()
		if cmd.Short == "" || cmd.Long == "" {
			t.Error("expected non-empty short and long descriptions")
		}
	})

	t.Run("has version", func(t *testing.T) {
		t.Parallel()
		if cmd.Version == "" {
			t.Error("expected non-empty version")
		}
	})

	t.Run("has verbose flag", func(t *testing.T) {
		t.Parallel()
		flag := cmd.PersistentFlags().Lookup("verbose")
		if flag == nil {
			t.Fatal("expected verbose flag")
		}
		if flag.Shorthand != "v" {
			t.Errorf("expected shorthand 'v', got %q", flag.Shorthand)
		}
		if flag.DefValue != "false" {
			t.Errorf("expected default 'false', got %q", flag.DefValue)
		}
	})

	t.Run("has subcommands", func(t *testing.T) {
		t.Parallel()
		want := map[string]bool{
			"check [paths...]": false,
			"history":          false,
			"init":             false,
			"version":          false,
		}
		for _, sub := range cmd.Commands() {
			if _, ok := want[sub.Use]; ok {
				want[sub.Use] = true
			}
		}
		for use, found := range want {
			if !found {
				t.Errorf("expected subcommand %q", use)
			}
		}
	})

	t.Run("silences usage and errors", func(t *testing.T) {
		t.Parallel()
		if !cmd.SilenceUsage {
			t.Error("expected SilenceUsage to be true")
		}
		if !cmd.SilenceErrors {
			t.Error("expected SilenceErrors to be true")
		}
	})
}

// TestGetVerboseFlag tests that the persistent flag is visible from subcommands.
func TestGetVerboseFlag(t *testing.T) {
	t.Parallel()

	root := NewRootCmd()
	root.SetArgs([]string{"version", "-v"})
	var got bool
	for _, sub := range root.Commands() {
		if sub.Use == "version" {
			sub.Run = func(cmd *cobra.Command, _ []string) {
				got = getVerboseFlag(cmd)
			}
		}
	}
	if err := root.Execute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got {
		t.Error("expected verbose to be true")
	}

	if getVerboseFlag(NewVersionCmd()) {
		t.Error("expected verbose to be false without a root command")
	}
}

// TestSetupLogger tests the text and JSON log formats.
func TestSetupLogger(t *testing.T) {
	tests := []struct {
		name   string
		args   []string
		isJSON bool
	}{
		{name: "text by default", args: []string{"version"}},
		{name: "json with --log-json", args: []string{"version", "--log-json"}, isJSON: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stderr bytes.Buffer
			root := NewRootCmd()
			root.SetErr(&stderr)
			root.SetArgs(tt.args)
			for _, sub := range root.Commands() {
				if sub.Use == "version" {
					sub.Run = func(cmd *cobra.Command, _ []string) {
						setupLogger(cmd).Warn("hello", "password", "hunter2")
					}
				}
			}
			if err := root.Execute(); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			out := stderr.Bytes()
			if bytes.Contains(out, []byte("hunter2")) {
				t.Errorf("secret leaked into log: %s", out)
			}
			if got := json.Valid(bytes.TrimSpace(out)); got != tt.isJSON {
				t.Errorf("json.Valid = %v, expected %v for %s", got, tt.isJSON, out)
			}
		})
	}
}
