package session

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clouddrive/drive/internal/events"
	"github.com/clouddrive/drive/internal/profile"
)

type recordingRedirect struct {
	reasons []DenyReason
}

func (r *recordingRedirect) RedirectToLogin(reason DenyReason) {
	r.reasons = append(r.reasons, reason)
}

func newGuard(t *testing.T) (*Guard, *Store, *profile.Memory, *recordingRedirect) {
	t.Helper()
	mem := profile.NewMemory()
	store := NewStore(mem)
	redirect := &recordingRedirect{}
	return NewGuard(store, redirect, GuardOptions{}), store, mem, redirect
}

func TestGuardAllowsValidSession(t *testing.T) {
	guard, store, _, redirect := newGuard(t)
	require.NoError(t, store.Write(Session{Token: "tok", ExpiresAt: t0.Add(time.Minute)}))

	d := guard.Admit(t0)
	assert.True(t, d.Allowed)
	assert.NoError(t, d.Err())
	assert.Empty(t, redirect.reasons)

	sess, _ := store.Read()
	assert.NotNil(t, sess, "an allowed decision must not clear the session")
}

func TestGuardMissing(t *testing.T) {
	guard, _, _, redirect := newGuard(t)

	d := guard.Admit(t0)
	assert.False(t, d.Allowed)
	assert.Equal(t, ReasonMissing, d.Reason)
	assert.True(t, errors.Is(d.Err(), ErrAuthExpired))
	assert.Equal(t, []DenyReason{ReasonMissing}, redirect.reasons)
}

func TestGuardBoundary(t *testing.T) {
	expiry := t0.Add(time.Hour)

	tests := []struct {
		name    string
		now     time.Time
		allowed bool
	}{
		{"one millisecond before", expiry.Add(-time.Millisecond), true},
		{"exactly at expiry", expiry, false},
		{"after expiry", expiry.Add(time.Millisecond), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			guard, store, _, _ := newGuard(t)
			require.NoError(t, store.Write(Session{Token: "tok", ExpiresAt: expiry}))

			d := guard.Admit(tt.now)
			assert.Equal(t, tt.allowed, d.Allowed)
			if !tt.allowed {
				assert.Equal(t, ReasonExpired, d.Reason)
			}
		})
	}
}

func TestGuardExpiredClearsEverythingThenMissing(t *testing.T) {
	guard, store, mem, redirect := newGuard(t)
	require.NoError(t, store.Write(Session{Token: "tok", ExpiresAt: t0}))

	d := guard.Admit(t0.Add(time.Second))
	assert.Equal(t, ReasonExpired, d.Reason)

	token, expiry, _ := mem.LoadSession()
	assert.Empty(t, token)
	assert.Empty(t, expiry, "token and expiry are cleared together")

	d = guard.Admit(t0.Add(2 * time.Second))
	assert.Equal(t, ReasonMissing, d.Reason)
	assert.Equal(t, []DenyReason{ReasonExpired, ReasonMissing}, redirect.reasons)
}

func TestGuardCorruptExpiryIsMissing(t *testing.T) {
	guard, _, mem, _ := newGuard(t)
	mem.SetRaw("tok", "not-a-number")

	d := guard.Admit(t0)
	assert.False(t, d.Allowed)
	assert.Equal(t, ReasonMissing, d.Reason)

	token, _, _ := mem.LoadSession()
	assert.Empty(t, token, "corrupt record must be cleared")
}

func TestGuardPublishesDenial(t *testing.T) {
	bus := events.NewEventBus(4)
	defer bus.Close()
	ch := bus.Subscribe(events.EventSessionDenied)

	guard := NewGuard(NewStore(profile.NewMemory()), nil, GuardOptions{EventBus: bus})
	guard.Admit(t0)

	select {
	case e := <-ch:
		denied := e.(*events.SessionDeniedEvent)
		assert.Equal(t, "missing", denied.Reason)
	case <-time.After(100 * time.Millisecond):
		t.Fatal("no SessionDeniedEvent published")
	}
}

func TestGuardRedirectFunc(t *testing.T) {
	var got DenyReason
	guard := NewGuard(NewStore(profile.NewMemory()), RedirectFunc(func(r DenyReason) { got = r }), GuardOptions{})
	guard.Admit(t0)
	assert.Equal(t, ReasonMissing, got)
}
