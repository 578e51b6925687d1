package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	nethttp "net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/spf13/cobra"

	"github.com/clouddrive/drive/internal/browser"
	"github.com/clouddrive/drive/internal/tour"
	"github.com/clouddrive/drive/internal/util/sanitize"
)

const shellHelp = `Commands:
  ls                      show the current folder
  cd ID | cd .. | home    open a folder, or go back home
  folders                 list all folders
  recent                  show recent files
  search [TEXT]           filter by name (no text clears the filter)
  sort name|date          change the order
  refresh                 reload files and folders
  mkdir [NAME]            create a folder here
  rename ID [NAME]        rename a file or folder
  rm ID                   delete a file or folder
  upload PATH             upload a local file here
  open ID                 open a file in the browser
  download ID [PATH]      download a file
  tour [next|skip]        show or step through the introduction
  logout                  sign out and leave
  help                    show this help
  exit                    leave the shell`

// errExitShell ends the REPL without an error.
var errExitShell = errors.New("exit")

// newShellCmd creates the 'shell' command.
func newShellCmd() *cobra.Command {
	var metricsAddr string

	cmd := &cobra.Command{
		Use:   "shell",
		Short: "Interactive file browser",
		Long: `Start an interactive browser over your drive.

The session is checked before every command; when it expires the shell
stops and asks you to sign in again.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.requireSession(); err != nil {
				return err
			}

			ctx := cmd.Context()
			if metricsAddr != "" {
				stop := serveMetrics(a, metricsAddr)
				defer stop()
			}

			sh := newShell(a, cmd.InOrStdin())
			return sh.run(ctx)
		},
	}

	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (e.g. 127.0.0.1:9090)")
	return cmd
}

// serveMetrics exposes the client metrics while the shell runs.
func serveMetrics(a *app, addr string) (stop func()) {
	r := mux.NewRouter()
	r.Handle("/metrics", a.metrics.Handler()).Methods(nethttp.MethodGet)

	srv := &nethttp.Server{Addr: addr, Handler: r, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
			a.logger.Error().Err(err).Str("addr", addr).Msg("Metrics server failed")
		}
	}()
	a.logger.Info().Str("addr", addr).Msg("Serving metrics")

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}

// shell is the interactive REPL over one mounted controller.
type shell struct {
	a        *app
	c        *browser.Controller
	tour     *tour.Tour
	prompter *terminalPrompter
	viewer   *terminalViewer
	out      io.Writer
}

func newShell(a *app, in io.Reader) *shell {
	sh := &shell{
		a:        a,
		out:      a.out,
		prompter: newTerminalPrompter(in, a.out),
		viewer:   newTerminalViewer(a.client, a.out, false),
		tour:     tour.New(a.profile, a.bus, a.logger),
	}
	return sh
}

func (sh *shell) run(ctx context.Context) error {
	c, err := sh.a.newController(sh.prompter, sh.viewer, sh.tour)
	if err != nil {
		return err
	}
	sh.c = c
	defer c.Unmount()

	sess, _ := sh.a.sessions.Read()
	fmt.Fprintf(sh.out, "Cloud Drive (%s). Type \"help\" for commands.\n", sessionSummary(sess, time.Now()))

	if err := c.Mount(ctx); err != nil {
		sh.a.logger.Debug().Err(err).Msg("Initial load failed")
	}
	sh.showTour()
	renderListing(sh.out, c.Snapshot())

	for {
		fmt.Fprintf(sh.out, "%s> ", breadcrumb(c.Context()))
		line, err := sh.prompter.readLine(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				fmt.Fprintln(sh.out)
				return nil
			}
			return err
		}

		args, err := splitArgs(line)
		if err != nil {
			fmt.Fprintf(sh.out, "%v\n", err)
			continue
		}
		if len(args) == 0 {
			continue
		}

		err = sh.exec(ctx, args)
		switch {
		case err == nil:
		case errors.Is(err, errExitShell):
			return nil
		case errors.Is(err, errLoginRequired):
			return err
		case errors.Is(err, context.Canceled) && ctx.Err() != nil:
			return ctx.Err()
		default:
			sh.report(err)
		}
	}
}

// report prints errors the notifications did not already cover.
func (sh *shell) report(err error) {
	switch {
	case errors.Is(err, browser.ErrRemoteFailure),
		errors.Is(err, browser.ErrValidation),
		errors.Is(err, browser.ErrMutationInProgress):
		sh.a.logger.Debug().Err(err).Msg("Command failed")
	default:
		fmt.Fprintf(sh.out, "Error: %v\n", loginHint(err))
	}
}

// exec runs one command. The session guard is evaluated before every
// command that touches the drive.
func (sh *shell) exec(ctx context.Context, args []string) error {
	name, rest := args[0], args[1:]

	switch name {
	case "help", "?":
		fmt.Fprintln(sh.out, shellHelp)
		return nil
	case "exit", "quit":
		return errExitShell
	}

	if err := sh.a.requireSession(); err != nil {
		return err
	}

	c := sh.c
	switch name {
	case "ls":
		renderListing(sh.out, c.Snapshot())
	case "cd":
		if len(rest) != 1 {
			return errors.New("usage: cd ID | cd ..")
		}
		var err error
		switch rest[0] {
		case "..", "/", "~":
			err = c.GoHome(ctx)
		default:
			err = enterFolder(ctx, c, rest[0])
		}
		if err != nil {
			return err
		}
		renderListing(sh.out, c.Snapshot())
	case "home":
		if err := c.GoHome(ctx); err != nil {
			return err
		}
		renderListing(sh.out, c.Snapshot())
	case "folders":
		renderFolders(sh.out, c.Folders())
	case "recent":
		renderRecent(sh.out, c.Recent())
	case "search":
		c.SetQuery(strings.Join(rest, " "))
		renderListing(sh.out, c.Snapshot())
	case "sort":
		if len(rest) != 1 {
			return errors.New("usage: sort name|date")
		}
		key, ok := browser.ParseSortKey(rest[0])
		if !ok {
			return fmt.Errorf("unknown sort order %q", rest[0])
		}
		c.SetSort(key)
		renderListing(sh.out, c.Snapshot())
	case "refresh":
		if err := c.Refresh(ctx); err != nil {
			return err
		}
		renderListing(sh.out, c.Snapshot())
	case "mkdir":
		if len(rest) == 0 {
			return c.RequestCreateFolder(ctx)
		}
		return c.CreateFolder(ctx, sanitize.Name(strings.Join(rest, " ")))
	case "rename":
		switch len(rest) {
		case 0:
			return errors.New("usage: rename ID [NAME]")
		case 1:
			return c.RequestRename(ctx, rest[0])
		default:
			return c.Rename(ctx, rest[0], sanitize.Name(strings.Join(rest[1:], " ")))
		}
	case "rm":
		if len(rest) != 1 {
			return errors.New("usage: rm ID")
		}
		return c.RequestDelete(ctx, rest[0])
	case "upload":
		if len(rest) != 1 {
			return errors.New("usage: upload PATH")
		}
		return uploadFile(ctx, c, rest[0], false)
	case "open":
		if len(rest) != 1 {
			return errors.New("usage: open ID")
		}
		_, err := c.Open(ctx, rest[0])
		return err
	case "download":
		if len(rest) < 1 || len(rest) > 2 {
			return errors.New("usage: download ID [PATH]")
		}
		output := ""
		if len(rest) == 2 {
			output = rest[1]
		}
		dest, err := downloadPath(c.Snapshot(), rest[0], output)
		if err != nil {
			return err
		}
		sh.viewer.dest = dest
		if _, err := c.Download(ctx, rest[0]); err != nil {
			return err
		}
		fmt.Fprintf(sh.out, "Saved %s\n", dest)
	case "tour":
		return sh.tourCmd(rest)
	case "logout":
		if err := sh.a.sessions.Logout(); err != nil {
			return err
		}
		fmt.Fprintln(sh.out, "Signed out.")
		return errExitShell
	default:
		return fmt.Errorf("unknown command %q, type \"help\"", name)
	}
	return nil
}

func (sh *shell) tourCmd(args []string) error {
	action := ""
	if len(args) > 0 {
		action = args[0]
	}
	var err error
	switch action {
	case "":
	case "next":
		err = sh.tour.Advance()
	case "skip", "done":
		err = sh.tour.Skip()
	default:
		return errors.New("usage: tour [next|skip]")
	}
	if err != nil {
		return err
	}
	if !sh.showTour() && action == "" {
		fmt.Fprintln(sh.out, "The introduction has been completed.")
	}
	return nil
}

// showTour prints the current tour step if the tour is visible.
func (sh *shell) showTour() bool {
	step, ok := sh.tour.Current()
	if !ok {
		return false
	}
	idx, _ := sh.tour.State()
	fmt.Fprintf(sh.out, "\n[Tour %d/%d] %s\n  %s\n  (\"tour next\" to continue, \"tour skip\" to close)\n\n",
		idx+1, len(tour.Steps), step.Title, step.Text)
	return true
}

// splitArgs splits a command line on whitespace, honouring single and double
// quotes so names with spaces can be passed.
func splitArgs(line string) ([]string, error) {
	var (
		args    []string
		cur     strings.Builder
		quote   rune
		pending bool
	)
	for _, r := range line {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
				continue
			}
			cur.WriteRune(r)
		case r == '"' || r == '\'':
			quote = r
			pending = true
		case r == ' ' || r == '\t':
			if pending {
				args = append(args, cur.String())
				cur.Reset()
				pending = false
			}
		default:
			cur.WriteRune(r)
			pending = true
		}
	}
	if quote != 0 {
		return nil, errors.New("unterminated quote")
	}
	if pending {
		args = append(args, cur.String())
	}
	return args, nil
}
