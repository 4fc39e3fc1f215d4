package cli

import (
	"testing"

	"github.com/spf13/cobra"
)

// TestLsShortcut tests the ls shortcut command
func TestLsShortcut(t *testing.T) {
	cmd := newLsShortcut()
	if cmd == nil {
		t.Fatal("newLsShortcut() returned nil")
	}

	if cmd.Use != "ls [category]" {
		t.Errorf("Expected Use='ls [category]', got '%s'", cmd.Use)
	}

	if cmd.RunE == nil {
		t.Error("RunE function is nil")
	}

	if cmd.Flags().Lookup("category") == nil {
		t.Error("--category flag not found")
	}

	if cmd.Flags().Lookup("format") == nil {
		t.Error("--format flag not found")
	}
}

// TestRmShortcut tests the rm shortcut command
func TestRmShortcut(t *testing.T) {
	cmd := newRmShortcut()
	if cmd == nil {
		t.Fatal("newRmShortcut() returned nil")
	}

	if cmd.Use != "rm <file-id>" {
		t.Errorf("Expected Use='rm <file-id>', got '%s'", cmd.Use)
	}

	if err := cmd.Args(cmd, nil); err == nil {
		t.Error("rm should require a file id")
	}

	if cmd.Flags().Lookup("yes") == nil {
		t.Error("--yes flag not found")
	}
}

// TestShortcutCommands tests that all shortcut commands exist
func TestShortcutCommands(t *testing.T) {
	shortcuts := []struct {
		name     string
		createFn func() *cobra.Command
	}{
		{"ls", newLsShortcut},
		{"rm", newRmShortcut},
		{"cat", newCatShortcut},
	}

	for _, sc := range shortcuts {
		t.Run(sc.name, func(t *testing.T) {
			cmd := sc.createFn()
			if cmd == nil {
				t.Fatalf("Shortcut command '%s' creation returned nil", sc.name)
			}

			if cmd.Name() != sc.name {
				t.Errorf("Name() = %q, want %q", cmd.Name(), sc.name)
			}

			if cmd.RunE == nil {
				t.Errorf("Shortcut command '%s' has no RunE function", sc.name)
			}

			if cmd.Short == "" {
				t.Errorf("Shortcut command '%s' has empty Short description", sc.name)
			}

			if cmd.Long == "" {
				t.Errorf("Shortcut command '%s' has empty Long description", sc.name)
			}
		})
	}
}

// TestAddCommands tests that every command is registered on root
func TestAddCommands(t *testing.T) {
	rootCmd := NewRootCmd()
	AddCommands(rootCmd)

	expected := []string{
		"login", "logout", "list", "search", "stats",
		"upload", "download", "delete", "preview",
		"config", "version", "ls", "rm", "cat",
	}
	found := make(map[string]bool)
	for _, cmd := range rootCmd.Commands() {
		found[cmd.Name()] = true
	}

	for _, name := range expected {
		if !found[name] {
			t.Errorf("Command '%s' not found in root command", name)
		}
	}

	for _, flag := range []string{"config", "base-url", "verbose"} {
		if rootCmd.PersistentFlags().Lookup(flag) == nil {
			t.Errorf("--%s persistent flag not found", flag)
		}
	}
}
