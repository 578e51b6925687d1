package session

import (
	"fmt"
	"time"

	"github.com/clouddrive/drive/internal/events"
	"github.com/clouddrive/drive/internal/logging"
	"github.com/clouddrive/drive/internal/metrics"
)

// DenyReason says why the guard refused entry.
type DenyReason int

const (
	ReasonNone DenyReason = iota
	ReasonMissing
	ReasonExpired
)

func (r DenyReason) String() string {
	switch r {
	case ReasonNone:
		return "allowed"
	case ReasonMissing:
		return "missing"
	case ReasonExpired:
		return "expired"
	default:
		return "unknown"
	}
}

// Decision is the outcome of Guard.Admit.
type Decision struct {
	Allowed bool
	Reason  DenyReason
}

// Err returns nil for an allowed decision and an ErrAuthExpired wrap otherwise.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	return fmt.Errorf("%w (%s)", ErrAuthExpired, d.Reason)
}

// Redirector sends the user to the login entry point.
type Redirector interface {
	RedirectToLogin(reason DenyReason)
}

// RedirectFunc adapts a function to Redirector.
type RedirectFunc func(reason DenyReason)

// RedirectToLogin implements Redirector.
func (f RedirectFunc) RedirectToLogin(reason DenyReason) { f(reason) }

// GuardOptions carries the guard's optional collaborators.
type GuardOptions struct {
	EventBus *events.EventBus
	Metrics  *metrics.Metrics
	Logger   *logging.Logger
}

// Guard admits protected navigation only while the stored session is valid.
// Nothing is cached: every call re-reads the store.
type Guard struct {
	store    *Store
	redirect Redirector
	eventBus *events.EventBus
	metrics  *metrics.Metrics
	logger   *logging.Logger
}

// NewGuard creates a guard over store. redirect may be nil.
func NewGuard(store *Store, redirect Redirector, opts GuardOptions) *Guard {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Guard{
		store:    store,
		redirect: redirect,
		eventBus: opts.EventBus,
		metrics:  opts.Metrics,
		logger:   logger,
	}
}

// Admit evaluates the stored session at now.
//
// Allowed iff a token is present and now < expiry. On denial the whole
// record is cleared and the redirector is invoked. An unreadable or corrupt
// record counts as missing.
func (g *Guard) Admit(now time.Time) Decision {
	sess, err := g.store.Read()
	if err != nil {
		g.logger.Warn().Err(err).Msg("Unreadable session treated as missing")
	}

	var d Decision
	switch {
	case sess == nil:
		d = Decision{Reason: ReasonMissing}
	case !now.Before(sess.ExpiresAt):
		d = Decision{Reason: ReasonExpired}
	default:
		d = Decision{Allowed: true, Reason: ReasonNone}
	}

	g.metrics.RecordGuardDecision(d.Reason.String())
	g.logger.Debug().Bool("allowed", d.Allowed).Str("reason", d.Reason.String()).Msg("Session guard decision")

	if d.Allowed {
		return d
	}

	if err := g.store.Clear(); err != nil {
		g.logger.Error().Err(err).Msg("Failed to clear session after denial")
	}
	if g.eventBus != nil {
		g.eventBus.PublishSessionDenied(d.Reason.String())
	}
	if g.redirect != nil {
		g.redirect.RedirectToLogin(d.Reason)
	}
	return d
}
