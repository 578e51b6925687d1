package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/clouddrive/drive/internal/browser"
	"github.com/clouddrive/drive/internal/pathutil"
	"github.com/clouddrive/drive/internal/progress"
	"github.com/clouddrive/drive/internal/util/sanitize"
)

// enterFolder navigates to id, naming it from the folder index. An empty id
// stays at home.
func enterFolder(ctx context.Context, c *browser.Controller, id string) error {
	if id == "" {
		return nil
	}
	name := id
	for _, f := range c.Folders() {
		if f.ID == id {
			name = f.Name
			break
		}
	}
	return c.SelectFolder(ctx, id, name)
}

// newLsCmd creates the 'ls' command.
func newLsCmd() *cobra.Command {
	var (
		folderID string
		search   string
		sortBy   string
	)

	cmd := &cobra.Command{
		Use:   "ls",
		Short: "List the files in a folder",
		Long: `List the files in your home folder or in the folder given with --folder.

Examples:
  drive ls
  drive ls --folder 64f1c0... --sort name
  drive ls --search report`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			key, ok := browser.ParseSortKey(sortBy)
			if !ok {
				return fmt.Errorf("invalid --sort %q (use name or date)", sortBy)
			}
			return withBrowser(cmd, nil, func(ctx context.Context, a *app, c *browser.Controller) error {
				if err := enterFolder(ctx, c, folderID); err != nil {
					return err
				}
				c.SetQuery(search)
				c.SetSort(key)
				renderListing(a.out, c.Snapshot())
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&folderID, "folder", "f", "", "Folder ID (default: home)")
	cmd.Flags().StringVarP(&search, "search", "s", "", "Only show names containing this text")
	cmd.Flags().StringVar(&sortBy, "sort", "date", "Sort order: name or date")
	return cmd
}

// newFoldersCmd creates the 'folders' command.
func newFoldersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "folders",
		Short: "List all folders",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBrowser(cmd, nil, func(ctx context.Context, a *app, c *browser.Controller) error {
				renderFolders(a.out, c.Folders())
				return nil
			})
		},
	}
}

// newRecentCmd creates the 'recent' command.
func newRecentCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "recent",
		Short: "Show the most recent files in your home folder",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBrowser(cmd, nil, func(ctx context.Context, a *app, c *browser.Controller) error {
				renderRecent(a.out, c.Recent())
				return nil
			})
		},
	}
}

// newMkdirCmd creates the 'mkdir' command.
func newMkdirCmd() *cobra.Command {
	var parentID string

	cmd := &cobra.Command{
		Use:   "mkdir [NAME]",
		Short: "Create a folder",
		Long:  `Create a folder in your home folder or in --parent. Prompts for the name when omitted.`,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBrowser(cmd, nil, func(ctx context.Context, a *app, c *browser.Controller) error {
				if err := enterFolder(ctx, c, parentID); err != nil {
					return err
				}
				if len(args) == 0 {
					return c.RequestCreateFolder(ctx)
				}
				return c.CreateFolder(ctx, sanitize.Name(args[0]))
			})
		},
	}

	cmd.Flags().StringVarP(&parentID, "parent", "p", "", "Parent folder ID (default: home)")
	return cmd
}

// newRenameCmd creates the 'rename' command.
func newRenameCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rename ID [NAME]",
		Short: "Rename a file or folder",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBrowser(cmd, nil, func(ctx context.Context, a *app, c *browser.Controller) error {
				if len(args) == 1 {
					return c.RequestRename(ctx, args[0])
				}
				return c.Rename(ctx, args[0], sanitize.Name(args[1]))
			})
		},
	}
}

// newRmCmd creates the 'rm' command.
func newRmCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "rm ID",
		Short: "Delete a file or folder",
		Long: `Delete a file or folder. Asks for confirmation unless --yes is given.
With confirm_delete_by_name enabled the name has to be typed back.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBrowser(cmd, nil, func(ctx context.Context, a *app, c *browser.Controller) error {
				if yes {
					return c.Delete(ctx, args[0])
				}
				return c.RequestDelete(ctx, args[0])
			})
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation")
	return cmd
}

// newUploadCmd creates the 'upload' command.
func newUploadCmd() *cobra.Command {
	var (
		folderID string
		quiet    bool
	)

	cmd := &cobra.Command{
		Use:   "upload PATH",
		Short: "Upload a local file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBrowser(cmd, nil, func(ctx context.Context, a *app, c *browser.Controller) error {
				if err := enterFolder(ctx, c, folderID); err != nil {
					return err
				}
				return uploadFile(ctx, c, args[0], quiet)
			})
		},
	}

	cmd.Flags().StringVarP(&folderID, "folder", "f", "", "Destination folder ID (default: home)")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Hide the progress bar")
	return cmd
}

// uploadFile streams path into the controller's current folder.
func uploadFile(ctx context.Context, c *browser.Controller, path string, quiet bool) error {
	path, err := pathutil.ExpandHome(path)
	if err != nil {
		return err
	}
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", path)
	}

	var reporter progress.Reporter = progress.NewNoOpProgress()
	if !quiet && isTerminal(os.Stderr) {
		reporter = progress.NewCLIProgress(os.Stderr)
	}
	reporter.Start(info.Size(), filepath.Base(path))
	err = c.Upload(ctx, progress.NewReader(f, reporter), filepath.Base(path))
	if err != nil {
		reporter.Error(err)
		return err
	}
	reporter.Finish()
	return nil
}

// newOpenCmd creates the 'open' command.
func newOpenCmd() *cobra.Command {
	var printOnly bool

	cmd := &cobra.Command{
		Use:   "open ID",
		Short: "Open a file in the browser",
		Long:  `Resolve a fresh access link for a file and open it. Use --print to only print the link.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBrowser(cmd, func(a *app) browser.Viewer {
				v := newTerminalViewer(a.client, a.out, true)
				v.printOnly = printOnly
				return v
			}, func(ctx context.Context, a *app, c *browser.Controller) error {
				_, err := c.Open(ctx, args[0])
				return err
			})
		},
	}

	cmd.Flags().BoolVar(&printOnly, "print", false, "Print the link instead of opening it")
	return cmd
}

// newDownloadCmd creates the 'download' command.
func newDownloadCmd() *cobra.Command {
	var (
		output   string
		folderID string
		quiet    bool
	)

	cmd := &cobra.Command{
		Use:   "download ID",
		Short: "Download a file",
		Long: `Download a file to the current directory, or to --output.

The file has to be in your home folder or in the folder given with --folder
so that its name is known.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var viewer *terminalViewer
			return withBrowser(cmd, func(a *app) browser.Viewer {
				viewer = newTerminalViewer(a.client, a.out, quiet)
				return viewer
			}, func(ctx context.Context, a *app, c *browser.Controller) error {
				if err := enterFolder(ctx, c, folderID); err != nil {
					return err
				}
				dest, err := downloadPath(c.Snapshot(), args[0], output)
				if err != nil {
					return err
				}
				viewer.dest = dest
				if _, err := c.Download(ctx, args[0]); err != nil {
					return err
				}
				fmt.Fprintf(a.out, "Saved %s\n", dest)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file or directory")
	cmd.Flags().StringVarP(&folderID, "folder", "f", "", "Folder containing the file (default: home)")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Hide the progress bar")
	return cmd
}

// downloadPath picks the local destination for id. output may be empty, a
// directory or a file path.
func downloadPath(snap browser.Snapshot, id, output string) (string, error) {
	name := ""
	for _, r := range snap.Listing {
		if r.ID == id {
			name = r.Name
		}
	}
	name = sanitize.FileName(name, id)

	if output == "" {
		return name, nil
	}
	output, err := pathutil.ExpandHome(output)
	if err != nil {
		return "", err
	}
	if info, err := os.Stat(output); err == nil && info.IsDir() {
		return filepath.Join(output, name), nil
	}
	return output, nil
}

// newShareCmd creates the 'share' command.
func newShareCmd() *cobra.Command {
	var printOnly bool

	cmd := &cobra.Command{
		Use:   "share TOKEN",
		Short: "Open a public share link",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			url := a.client.PublicShareURL(args[0])
			viewer := newTerminalViewer(a.client, a.out, true)
			viewer.printOnly = printOnly
			return viewer.OpenNew(cmd.Context(), url)
		},
	}

	cmd.Flags().BoolVar(&printOnly, "print", false, "Print the link instead of opening it")
	return cmd
}
