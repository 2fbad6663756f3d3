// Package orch wires the credential machine, the session registry and the
// settings file together for the adapters.
package orch

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/castlink/internal/app/auth"
	"github.com/dkeye/castlink/internal/app/session"
	"github.com/dkeye/castlink/internal/core"
	"github.com/dkeye/castlink/internal/domain"
)

// Settings is a SettingsStore that can be flushed to disk.
type Settings interface {
	core.SettingsStore
	Save() error
}

type Orchestrator struct {
	Auth        *auth.Machine
	Sessions    *session.Registry
	Settings    Settings
	Policy      Policy
	JoinTimeout time.Duration
	ServiceURL  string

	// ops serializes everything that starts a run or touches the store,
	// so no run can begin between a cancel and the mutation that follows.
	ops sync.Mutex

	mu      sync.Mutex
	running *auth.Task
}

// RequestRefresh starts a refresh run unless one is already in flight, in
// which case the running task is returned. Runs never overlap.
func (o *Orchestrator) RequestRefresh(ctx context.Context) *auth.Task {
	o.ops.Lock()
	defer o.ops.Unlock()
	return o.startLocked(ctx)
}

// startLocked must be called with ops held.
func (o *Orchestrator) startLocked(ctx context.Context) *auth.Task {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.running != nil {
		select {
		case <-o.running.Done():
		default:
			return o.running
		}
	}
	o.running = o.Auth.Start(ctx, o.persist)
	return o.running
}

// Refreshing reports whether a run is in flight.
func (o *Orchestrator) Refreshing() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.running == nil {
		return false
	}
	select {
	case <-o.running.Done():
		return false
	default:
		return true
	}
}

// Login replaces the credentials, drops the old token and refreshes.
// An empty tracking id keeps the stored one. The returned task runs with
// the new credentials only.
func (o *Orchestrator) Login(ctx context.Context, creds domain.Credentials) *auth.Task {
	o.ops.Lock()
	defer o.ops.Unlock()
	o.stopLocked()
	if creds.TrackingID == "" {
		creds.TrackingID = o.Auth.Store.EnsureTrackingID()
	}
	o.Auth.ClearCurrentState()
	o.Auth.Store.SetCredentials(creds)
	log.Info().Str("module", "app.orch").Str("email", creds.Email).Msg("login requested")
	return o.startLocked(ctx)
}

// Logout clears everything but email and tracking id and persists that.
func (o *Orchestrator) Logout() {
	o.ops.Lock()
	defer o.ops.Unlock()
	o.stopLocked()
	o.Auth.ClearCurrentState()
	o.persist()
	log.Info().Str("module", "app.orch").Msg("logged out")
}

// Reload reads the settings back into the store and refreshes. Used when
// the settings file changed underneath us.
func (o *Orchestrator) Reload(ctx context.Context) *auth.Task {
	o.ops.Lock()
	defer o.ops.Unlock()
	o.stopLocked()
	o.Auth.LoadState(o.Settings)
	return o.startLocked(ctx)
}

// stopLocked cancels and waits for a running refresh so its writes cannot
// land after a credential change. ops must be held.
func (o *Orchestrator) stopLocked() {
	o.mu.Lock()
	t := o.running
	o.mu.Unlock()
	if t != nil {
		t.Cancel()
		t.Wait()
	}
}

func (o *Orchestrator) persist() {
	if o.Settings == nil {
		return
	}
	o.Auth.SaveState(o.Settings)
	if err := o.Settings.Save(); err != nil {
		log.Error().Err(err).Str("module", "app.orch").Msg("failed to persist auth state")
	}
}

// RunPeriodic refreshes immediately and then every interval until ctx is
// done. A non-positive interval refreshes once.
func (o *Orchestrator) RunPeriodic(ctx context.Context, interval time.Duration) {
	o.RequestRefresh(ctx)
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			o.RequestRefresh(ctx)
		}
	}
}

// Shutdown stops background refreshes and closes every session.
func (o *Orchestrator) Shutdown() {
	o.Auth.Close()
	n := o.Sessions.TerminateAll()
	log.Info().Str("module", "app.orch").Int("sessions", n).Msg("orchestrator stopped")
}

// AuthState is the read model shown by the control API.
type AuthState struct {
	Email        string        `json:"email"`
	TrackingID   string        `json:"tracking_id"`
	HasToken     bool          `json:"has_token"`
	TokenExpires *time.Time    `json:"token_expires,omitempty"`
	StreamKey    string        `json:"stream_key"`
	Connected    bool          `json:"connected"`
	Refreshing   bool          `json:"refreshing"`
	Service      string        `json:"service,omitempty"`
	Rooms        []domain.Room `json:"rooms"`
}

func (o *Orchestrator) AuthState() AuthState {
	creds := o.Auth.Store.Credentials()
	token := o.Auth.Store.Token()
	key := o.Auth.Store.StreamKey()
	st := AuthState{
		Email:      creds.Email,
		TrackingID: creds.TrackingID,
		HasToken:   !token.Empty(),
		StreamKey:  key,
		Connected:  key != "",
		Refreshing: o.Refreshing(),
		Rooms:      o.Auth.Store.Rooms().Ordered,
	}
	if st.Rooms == nil {
		st.Rooms = []domain.Room{}
	}
	if exp, ok := auth.TokenExpiry(token); ok {
		st.TokenExpires = &exp
	}
	if o.ServiceURL != "" {
		st.Service, _ = auth.SplitURL(o.ServiceURL)
	}
	return st
}
