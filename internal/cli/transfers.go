package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/megacloud/megacloud-cli/internal/constants"
	"github.com/megacloud/megacloud-cli/internal/services"
	"github.com/megacloud/megacloud-cli/internal/util/paths"
	"github.com/megacloud/megacloud-cli/internal/util/sanitize"
)

// newUploadCmd creates the 'upload' command.
func newUploadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "upload <file> [file...]",
		Short: "Upload files",
		Long: `Upload one or more local files to MegaCloud.

Files are uploaded one at a time. The listing and storage stats are
refreshed after each successful upload.

Examples:
  megacloud upload photo.jpg
  megacloud upload *.pdf`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession()
			if err != nil {
				return err
			}
			defer s.close()

			return executeUpload(s, args)
		},
	}
}

func executeUpload(s *session, files []string) error {
	ctx := GetContext()
	failed := 0

	for _, path := range files {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		file, closer, err := services.OpenLocalFile(path)
		if err != nil {
			s.notifier.Failure(fmt.Sprintf("Upload failed: %v", err))
			failed++
			continue
		}

		res := s.dash.Transfers.Upload(ctx, file, func() { closer.Close() })
		if !res.OK {
			failed++
		}
	}

	if failed > 0 {
		s.logger.Debug().Int("failed", failed).Int("total", len(files)).Msg("upload finished with failures")
		return errReported
	}
	return nil
}

// newDownloadCmd creates the 'download' command.
func newDownloadCmd() *cobra.Command {
	var outputDir string

	cmd := &cobra.Command{
		Use:   "download <file-id> [file-id...]",
		Short: "Download files",
		Long: `Download files by id. Existing local files are never overwritten;
a numbered name such as "report (1).pdf" is used instead.

Examples:
  megacloud download 42
  megacloud download 42 43 --outdir ./downloads`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession()
			if err != nil {
				return err
			}
			defer s.close()

			dir := outputDir
			if dir == "" {
				dir = s.cfg.DownloadDir
			}
			return executeDownload(s, args, dir)
		},
	}

	cmd.Flags().StringVarP(&outputDir, "outdir", "o", "", "Output directory (default: download_dir from config)")
	return cmd
}

func executeDownload(s *session, fileIDs []string, dir string) error {
	ctx := GetContext()
	failed := 0

	for _, id := range fileIDs {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		res := s.dash.Transfers.Download(ctx, id, dir)
		if !res.OK {
			failed++
			continue
		}
		s.logger.Debug().Str("path", res.Path).Float64("size_mb", res.SizeMB).Msg("saved")
	}

	if failed > 0 {
		return errReported
	}
	return nil
}

// newDeleteCmd creates the 'delete' command.
func newDeleteCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete <file-id>",
		Short: "Delete a file",
		Long: `Delete a file by id. You are asked to confirm unless --yes is given.

Examples:
  megacloud delete 42
  megacloud delete 42 --yes`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDelete(args[0], yes)
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Delete without asking")
	return cmd
}

func runDelete(fileID string, yes bool) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.close()

	ctx := GetContext()
	name := fileID
	if rec, ok, err := s.dash.Directory.Lookup(ctx, fileID); err != nil {
		s.logger.Debug().Err(err).Msg("name lookup failed, prompting with the id")
	} else if ok {
		name = rec.DisplayFilename
	}

	var confirm services.Confirmer = promptConfirmer{in: stdin(), out: os.Stderr}
	if yes {
		confirm = services.ConfirmFunc(func(string) bool { return true })
	}

	res := s.dash.Transfers.Delete(ctx, fileID, name, confirm)
	if res.Err == nil && !res.OK {
		fmt.Fprintln(os.Stderr, res.Message)
		return nil
	}
	return result(res)
}

// newPreviewCmd creates the 'preview' command.
func newPreviewCmd() *cobra.Command {
	var save string

	cmd := &cobra.Command{
		Use:   "preview <file-id>",
		Short: "Preview a file",
		Long: `Fetch a file's preview and show what it is. Text files are printed.
Use --save to keep the preview content locally.

Examples:
  megacloud preview 42
  megacloud preview 42 --save ./preview.png
  megacloud preview 42 --save ./previews/`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession()
			if err != nil {
				return err
			}
			defer s.close()

			ps, err := s.dash.Previews.Open(GetContext(), args[0])
			if err != nil {
				return errReported
			}
			defer s.dash.Previews.Close()

			data, ok := s.dash.Previews.Content(ps)
			if !ok {
				return fmt.Errorf("preview content is no longer available")
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Name: %s\n", ps.DisplayFilename)
			fmt.Fprintf(out, "Type: %s (%s)\n", ps.MIMEType, ps.Kind)
			fmt.Fprintf(out, "Size: %s\n", formatSizeMB(float64(len(data))/(1024*1024)))

			if ps.Kind == services.PreviewText && save == "" {
				fmt.Fprintln(out)
				out.Write(data)
				if len(data) > 0 && data[len(data)-1] != '\n' {
					fmt.Fprintln(out)
				}
			}
			if ps.Kind == services.PreviewUnsupported {
				fmt.Fprintln(out, "Preview not available for this file type.")
			}

			if save != "" {
				path, err := savePreview(save, ps.DisplayFilename, data)
				if err != nil {
					s.notifier.Failure(fmt.Sprintf("Failed to save preview: %v", err))
					return errReported
				}
				s.notifier.Saved(ps.DisplayFilename, path)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&save, "save", "", "Write the preview to this file or directory")
	return cmd
}

// savePreview writes data to dest. When dest is a directory the file is
// created inside it under a free name derived from name.
func savePreview(dest, name string, data []byte) (string, error) {
	info, err := os.Stat(dest)
	if err != nil || !info.IsDir() {
		if err := os.WriteFile(dest, data, 0644); err != nil {
			return "", err
		}
		return dest, nil
	}

	f, err := paths.CreateUnique(dest, sanitize.Filename(name, constants.FallbackPreviewName))
	if err != nil {
		return "", err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}
