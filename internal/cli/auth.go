package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/clouddrive/drive/internal/api"
	"github.com/clouddrive/drive/internal/session"
)

const expiryLayout = "Mon Jan 2 2006 15:04 MST"

// newLoginCmd creates the 'login' command.
func newLoginCmd() *cobra.Command {
	var (
		email    string
		remember bool
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store a session on this device",
		Long: `Sign in with your email and password.

The session lasts 30 minutes, or 7 days with --remember. If the server's
token expires sooner, the session ends with it.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			p := newTerminalPrompter(cmd.InOrStdin(), a.out)
			if email == "" {
				if email, err = p.ask(ctx, "Email: "); err != nil {
					return fmt.Errorf("failed to read email: %w", err)
				}
			}
			if strings.TrimSpace(email) == "" {
				return fmt.Errorf("email is required")
			}
			password, err := p.readPassword("Password: ")
			if err != nil {
				return err
			}

			sess, err := a.sessions.Login(ctx, a.client, strings.TrimSpace(email), password, remember, time.Now())
			if err != nil {
				a.logger.Debug().Err(err).Msg("Login failed")
				if msg := api.ServerMessage(err); msg != "" {
					return fmt.Errorf("login failed: %s", msg)
				}
				return fmt.Errorf("login failed: %w", err)
			}

			a.logger.Info().Time("expires_at", sess.ExpiresAt).Bool("remember", remember).Msg("Signed in")
			fmt.Fprintf(a.out, "Signed in. Session valid until %s\n", sess.ExpiresAt.Local().Format(expiryLayout))
			return nil
		},
	}

	cmd.Flags().StringVarP(&email, "email", "e", "", "Account email (prompted when omitted)")
	cmd.Flags().BoolVarP(&remember, "remember", "r", false, "Keep the session for 7 days instead of 30 minutes")
	return cmd
}

// newLogoutCmd creates the 'logout' command.
func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.sessions.Logout(); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "Signed out.")
			return nil
		},
	}
}

// newStatusCmd creates the 'status' command.
func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the session and account overview",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			profile, _ := a.cfg.ResolvedProfilePath()
			fmt.Fprintf(a.out, "API:      %s\n", a.client.BaseURL())
			fmt.Fprintf(a.out, "Profile:  %s\n", profile)

			sess, readErr := a.sessions.Read()
			now := time.Now()
			switch {
			case readErr != nil:
				fmt.Fprintln(a.out, "Session:  unreadable")
			case sess == nil:
				fmt.Fprintln(a.out, "Session:  not signed in")
			case !sess.ValidAt(now):
				fmt.Fprintln(a.out, "Session:  expired")
			default:
				fmt.Fprintf(a.out, "Session:  valid until %s (%s left)\n",
					sess.ExpiresAt.Local().Format(expiryLayout), sess.ExpiresAt.Sub(now).Round(time.Minute))
			}

			if err := a.requireSession(); err != nil {
				return nil
			}

			c, err := a.newController(nil, nil, nil)
			if err != nil {
				return err
			}
			defer c.Unmount()
			if err := c.Mount(cmd.Context()); err != nil {
				return loginHint(err)
			}
			snap := c.Snapshot()
			files := 0
			for _, r := range snap.Listing {
				if !r.IsFolder {
					files++
				}
			}
			fmt.Fprintf(a.out, "Home:     %d file(s)\n", files)
			fmt.Fprintf(a.out, "Folders:  %d\n", len(snap.Folders))
			return nil
		},
	}
}

// sessionSummary is a one-line description used by the shell banner.
func sessionSummary(sess *session.Session, now time.Time) string {
	if sess == nil {
		return "not signed in"
	}
	if !sess.ValidAt(now) {
		return "session expired"
	}
	return "signed in until " + sess.ExpiresAt.Local().Format(expiryLayout)
}
