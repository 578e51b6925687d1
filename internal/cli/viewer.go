package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"github.com/clouddrive/drive/internal/diskspace"
	"github.com/clouddrive/drive/internal/progress"
)

// fetcher streams an access URL.
type fetcher interface {
	Fetch(ctx context.Context, rawURL string) (io.ReadCloser, int64, error)
}

// opener hands a URL to the platform's default handler.
type opener func(ctx context.Context, url string) error

// systemOpener starts the desktop URL handler.
func systemOpener(ctx context.Context, url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.CommandContext(ctx, "open", url)
	case "windows":
		cmd = exec.CommandContext(ctx, "rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.CommandContext(ctx, "xdg-open", url)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start browser: %w", err)
	}
	go func() { _ = cmd.Wait() }()
	return nil
}

// terminalViewer implements browser.Viewer for the CLI. OpenNew hands the
// URL to the desktop; Redirect, the download path, streams it to dest.
type terminalViewer struct {
	fetch    fetcher
	open     opener
	progress func() progress.Reporter

	// dest is the local file the next Redirect writes to.
	dest string
	// printOnly prints OpenNew URLs instead of launching a browser.
	printOnly bool
	out       io.Writer
}

func newTerminalViewer(f fetcher, out io.Writer, quiet bool) *terminalViewer {
	v := &terminalViewer{
		fetch: f,
		open:  systemOpener,
		out:   out,
	}
	v.progress = func() progress.Reporter {
		if quiet || !isTerminal(os.Stderr) {
			return progress.NewNoOpProgress()
		}
		return progress.NewCLIProgress(os.Stderr)
	}
	return v
}

// OpenNew implements browser.Viewer.
func (v *terminalViewer) OpenNew(ctx context.Context, url string) error {
	if v.printOnly || v.open == nil {
		fmt.Fprintln(v.out, url)
		return nil
	}
	if err := v.open(ctx, url); err != nil {
		fmt.Fprintln(v.out, url)
		return err
	}
	return nil
}

// Redirect implements browser.Viewer by downloading url into dest.
// The file is written to a temporary sibling and renamed on success.
func (v *terminalViewer) Redirect(ctx context.Context, url string) error {
	if v.dest == "" {
		return errors.New("no download destination")
	}

	body, size, err := v.fetch.Fetch(ctx, url)
	if err != nil {
		return err
	}
	defer body.Close()

	if err := diskspace.CheckAvailableSpace(v.dest, size, diskspace.DownloadMargin); err != nil {
		return err
	}

	dir := filepath.Dir(v.dest)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(v.dest)+".*.part")
	if err != nil {
		return fmt.Errorf("failed to create download file: %w", err)
	}
	tmpName := tmp.Name()

	_, err = progress.Copy(tmp, body, size, filepath.Base(v.dest), v.progress())
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to write %s: %w", v.dest, err)
	}
	if err := os.Rename(tmpName, v.dest); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to move download into place: %w", err)
	}
	return nil
}
