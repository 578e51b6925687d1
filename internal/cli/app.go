package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/clouddrive/drive/internal/api"
	"github.com/clouddrive/drive/internal/browser"
	"github.com/clouddrive/drive/internal/config"
	"github.com/clouddrive/drive/internal/dialog"
	"github.com/clouddrive/drive/internal/events"
	"github.com/clouddrive/drive/internal/logging"
	"github.com/clouddrive/drive/internal/metrics"
	"github.com/clouddrive/drive/internal/notify"
	"github.com/clouddrive/drive/internal/profile"
	"github.com/clouddrive/drive/internal/session"
	"github.com/clouddrive/drive/internal/tour"
)

// errLoginRequired is returned by guarded commands after the guard redirected.
var errLoginRequired = errors.New(`not signed in, run "drive login"`)

// loadConfig resolves configuration with precedence flags > env > file > defaults.
func loadConfig() (*config.Config, string, error) {
	path := cfgFile
	if path == "" {
		var err error
		path, err = config.DefaultConfigPath()
		if err != nil {
			return nil, "", err
		}
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, path, err
	}
	cfg.ApplyEnv()
	if apiBaseURL != "" {
		cfg.APIURL = apiBaseURL
	}
	if profilePath != "" {
		cfg.ProfilePath = profilePath
	}
	if err := cfg.Validate(); err != nil {
		return nil, path, fmt.Errorf("invalid configuration in %s: %w", path, err)
	}
	return cfg, path, nil
}

// app wires one command invocation: config, profile, session, API client
// and the event plumbing that prints notifications.
type app struct {
	cfg      *config.Config
	logger   *logging.Logger
	profile  *profile.DB
	sessions *session.Store
	guard    *session.Guard
	client   *api.Client
	bus      *events.EventBus
	metrics  *metrics.Metrics
	notifier *notify.Notifier

	out io.Writer
	err io.Writer

	stopNotify context.CancelFunc
	waitNotify func()
}

func newApp(cmd *cobra.Command) (*app, error) {
	cfg, _, err := loadConfig()
	if err != nil {
		return nil, err
	}

	log := GetLogger()
	logFile, err := cfg.ResolvedLogFile()
	if err != nil {
		log.Warn().Err(err).Msg("Log file unavailable, logging to console only")
	}
	if logFile != "" || cfg.LogLevel != "info" {
		level := cfg.LogLevel
		if verbose || debug {
			level = "debug"
		}
		log = logging.NewLogger(logging.Options{Console: cmd.ErrOrStderr(), File: logFile, Level: level})
		logger = log
	}

	path, err := cfg.ResolvedProfilePath()
	if err != nil {
		return nil, err
	}
	db, err := profile.Open(path)
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:      cfg,
		logger:   log,
		profile:  db,
		sessions: session.NewStore(db),
		bus:      events.NewEventBus(0),
		metrics:  metrics.New(),
		out:      cmd.OutOrStdout(),
		err:      cmd.ErrOrStderr(),
	}

	a.guard = session.NewGuard(a.sessions, session.RedirectFunc(a.redirectToLogin), session.GuardOptions{
		EventBus: a.bus,
		Metrics:  a.metrics,
		Logger:   log,
	})

	a.client, err = api.NewClient(cfg, api.TokenFunc(a.sessions.Token), log)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	a.notifier = notify.NewNotifier(a.err, &notify.Config{Enabled: true, ShowErrors: verbose || debug}, log)
	var notifyCtx context.Context
	notifyCtx, a.stopNotify = context.WithCancel(context.Background())
	a.waitNotify = a.notifier.Run(notifyCtx, a.bus)

	return a, nil
}

// Close flushes notifications and releases the profile lock.
func (a *app) Close() {
	a.stopNotify()
	a.waitNotify()
	a.bus.Close()
	if err := a.profile.Close(); err != nil {
		a.logger.Warn().Err(err).Msg("Failed to close profile")
	}
	if err := a.logger.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to close log file: %v\n", err)
	}
}

func (a *app) redirectToLogin(reason session.DenyReason) {
	switch reason {
	case session.ReasonExpired:
		fmt.Fprintln(a.err, `Your session has expired. Please run "drive login".`)
	default:
		fmt.Fprintln(a.err, `You are not signed in. Please run "drive login".`)
	}
}

// requireSession evaluates the guard. Nothing is cached; every call re-reads
// the stored session.
func (a *app) requireSession() error {
	d := a.guard.Admit(time.Now())
	if d.Allowed {
		return nil
	}
	return fmt.Errorf("%w: %w", errLoginRequired, d.Err())
}

// newController builds a browser controller over the API client.
func (a *app) newController(prompter dialog.Prompter, viewer browser.Viewer, tr *tour.Tour) (*browser.Controller, error) {
	tag, err := a.cfg.CollationTag()
	if err != nil {
		return nil, err
	}

	opts := browser.Options{
		Client:              a.client,
		Viewer:              viewer,
		Prompter:            prompter,
		EventBus:            a.bus,
		Metrics:             a.metrics,
		Logger:              a.logger,
		MutationTimeout:     a.cfg.MutationTimeout,
		Collation:           tag,
		ConfirmDeleteByName: a.cfg.ConfirmDeleteByName,
		Tour:                tr,
	}
	return browser.New(opts), nil
}

// withBrowser runs fn against a mounted controller after the session guard
// admitted the command.
func withBrowser(cmd *cobra.Command, viewer func(*app) browser.Viewer, fn func(ctx context.Context, a *app, c *browser.Controller) error) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.requireSession(); err != nil {
		return err
	}

	var v browser.Viewer
	if viewer != nil {
		v = viewer(a)
	}
	c, err := a.newController(newTerminalPrompter(cmd.InOrStdin(), a.out), v, nil)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = GetContext()
	}
	if err := c.Mount(ctx); err != nil {
		c.Unmount()
		return loginHint(err)
	}
	defer c.Unmount()

	return loginHint(fn(ctx, a, c))
}

// loginHint adds a re-login suggestion to 401 failures.
func loginHint(err error) error {
	if err != nil && api.IsUnauthorized(err) {
		return fmt.Errorf(`%w (the server rejected your session, run "drive login")`, err)
	}
	return err
}
