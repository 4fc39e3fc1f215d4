package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/gocarina/gocsv"

	"github.com/megacloud/megacloud-cli/internal/models"
)

// Listing output formats
const (
	formatTable = "table"
	formatCSV   = "csv"
	formatJSON  = "json"
)

func parseFormat(s string) (string, error) {
	switch f := strings.ToLower(strings.TrimSpace(s)); f {
	case "", formatTable:
		return formatTable, nil
	case formatCSV, formatJSON:
		return f, nil
	default:
		return "", fmt.Errorf("unknown format %q (want table, csv or json)", s)
	}
}

// writeRecords prints records in the given format.
func writeRecords(w io.Writer, format string, records []models.FileRecord) error {
	if records == nil {
		records = []models.FileRecord{}
	}

	switch format {
	case formatCSV:
		return gocsv.Marshal(&records, w)
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "FILE ID\tNAME\tCATEGORY\tSIZE")
	for _, r := range records {
		fmt.Fprintf(tw, "%s\t%s %s\t%s\t%s\n",
			r.FileID,
			models.FileIcon(r.DisplayFilename),
			r.DisplayFilename,
			r.Category,
			formatSizeMB(r.SizeMB))
	}
	return tw.Flush()
}

// writeCounts prints the category bar with per-category totals. The
// active filter is bracketed.
func writeCounts(w io.Writer, view models.DirectoryView, active models.Category) {
	counts := view.Counts()

	label := func(c models.Category, n int) string {
		s := fmt.Sprintf("%s %s (%d)", c.Icon(), c, n)
		if c == active {
			return "[" + s + "]"
		}
		return s
	}

	parts := []string{label(models.CategoryAll, len(view.Files))}
	for _, c := range models.Categories {
		parts = append(parts, label(c, counts[c]))
	}
	fmt.Fprintln(w, strings.Join(parts, "  "))
}

func formatSizeMB(mb float64) string {
	switch {
	case mb >= 1024:
		return fmt.Sprintf("%.2f GB", mb/1024)
	case mb >= 1:
		return fmt.Sprintf("%.2f MB", mb)
	default:
		return fmt.Sprintf("%.0f KB", mb*1024)
	}
}
