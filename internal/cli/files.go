package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/megacloud/megacloud-cli/internal/api"
	"github.com/megacloud/megacloud-cli/internal/models"
)

// newListCmd creates the 'list' command.
func newListCmd() *cobra.Command {
	var category string
	var format string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List your files",
		Long: `List the files in your MegaCloud storage.

Categories: Images, Documents, Videos, Audio, Other, All (default).

Examples:
  megacloud list
  megacloud list --category images
  megacloud list --format csv > files.csv`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(cmd, category, format)
		},
	}

	addListFlags(cmd, &category, &format)
	return cmd
}

func addListFlags(cmd *cobra.Command, category, format *string) {
	cmd.Flags().StringVar(category, "category", "All", "Show only one category")
	cmd.Flags().StringVarP(format, "format", "f", formatTable, "Output format: table, csv or json")
}

func runList(cmd *cobra.Command, category, format string) error {
	filter, err := models.ParseFilter(category)
	if err != nil {
		return err
	}
	format, err = parseFormat(format)
	if err != nil {
		return err
	}

	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.close()

	if err := s.dash.Directory.Refresh(GetContext(), filter); err != nil {
		s.notifier.Failure(api.UserMessage(err, "Failed to fetch files."))
		return errReported
	}

	snap := s.dash.Directory.Snapshot()
	out := cmd.OutOrStdout()
	if format == formatTable {
		writeCounts(out, snap.View, snap.Filter)
		fmt.Fprintln(out)
		if len(snap.Visible) == 0 {
			fmt.Fprintln(out, "No files.")
			return nil
		}
	}
	return writeRecords(out, format, snap.Visible)
}

// newSearchCmd creates the 'search' command.
func newSearchCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search your files by name",
		Long: `Search your files on the server. An empty query lists everything.

Examples:
  megacloud search report
  megacloud search "quarterly report" --format json`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			outFormat, err := parseFormat(format)
			if err != nil {
				return err
			}
			query := strings.TrimSpace(strings.Join(args, " "))

			s, err := openSession()
			if err != nil {
				return err
			}
			defer s.close()

			if err := s.dash.Directory.RefreshSearch(GetContext(), query); err != nil {
				s.notifier.Failure(api.UserMessage(err, "Failed to search files."))
				return errReported
			}

			snap := s.dash.Directory.Snapshot()
			out := cmd.OutOrStdout()
			if outFormat == formatTable && len(snap.Visible) == 0 {
				fmt.Fprintf(out, "No files match %q.\n", query)
				return nil
			}
			return writeRecords(out, outFormat, snap.Visible)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", formatTable, "Output format: table, csv or json")
	return cmd
}

// newStatsCmd creates the 'stats' command.
func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show storage usage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession()
			if err != nil {
				return err
			}
			defer s.close()

			if err := s.dash.Directory.RefreshStats(GetContext()); err != nil {
				s.notifier.Failure(api.UserMessage(err, "Failed to fetch stats."))
				return errReported
			}
			stats, _ := s.dash.Directory.LastStats()

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Storage used: %s of %s (%.1f%%)\n",
				formatSizeMB(stats.StorageUsedMB),
				formatSizeMB(stats.TotalCapacityMB),
				stats.UsedPercent())
			fmt.Fprintf(out, "Total files:  %d\n", stats.TotalFiles)
			return nil
		},
	}
}
