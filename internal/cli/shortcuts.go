// Package cli provides command shortcuts for common operations.
package cli

import (
	"github.com/spf13/cobra"
)

// AddShortcuts adds shortcut commands to the root command.
// Shortcuts provide convenient aliases for commonly-used operations.
func AddShortcuts(rootCmd *cobra.Command) {
	rootCmd.AddCommand(newLsShortcut())
	rootCmd.AddCommand(newRmShortcut())
	rootCmd.AddCommand(newCatShortcut())
}

// newLsShortcut creates the 'ls' shortcut command.
// Shortcut for: list
func newLsShortcut() *cobra.Command {
	var category string
	var format string

	cmd := &cobra.Command{
		Use:   "ls [category]",
		Short: "List files (shortcut for 'list')",
		Long: `Shortcut for listing files.

Equivalent to: megacloud list --category <category>

Examples:
  megacloud ls
  megacloud ls images
  megacloud ls --format json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				category = args[0]
			}
			return runList(cmd, category, format)
		},
	}

	addListFlags(cmd, &category, &format)
	return cmd
}

// newRmShortcut creates the 'rm' shortcut command.
// Shortcut for: delete
func newRmShortcut() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "rm <file-id>",
		Short: "Delete a file (shortcut for 'delete')",
		Long: `Shortcut for deleting a file.

Equivalent to: megacloud delete <file-id>

Examples:
  megacloud rm 42
  megacloud rm 42 -y`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDelete(args[0], yes)
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Delete without asking")
	return cmd
}

// newCatShortcut creates the 'cat' shortcut command.
// Shortcut for: preview
func newCatShortcut() *cobra.Command {
	cmd := newPreviewCmd()
	cmd.Use = "cat <file-id>"
	cmd.Short = "Show a file's preview (shortcut for 'preview')"
	cmd.Long = `Shortcut for previewing a file.

Equivalent to: megacloud preview <file-id>

Examples:
  megacloud cat 42`
	return cmd
}
