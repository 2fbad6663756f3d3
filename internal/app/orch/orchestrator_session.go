package orch

import (
	"context"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/castlink/internal/adapters/rtc"
	"github.com/dkeye/castlink/internal/app/session"
	"github.com/dkeye/castlink/internal/core"
	"github.com/dkeye/castlink/internal/domain"
	"github.com/dkeye/castlink/internal/metrics"
)

// sessionFor fetches or creates the Session for key with the orchestrator
// installed as its observer. The handler is bound to this handle, so a late
// event from a terminated session cannot act on its replacement.
func (o *Orchestrator) sessionFor(key domain.SessionKey) *session.Session {
	s := o.Sessions.GetOrCreate(key)
	s.RegisterEventHandler(core.EventHandlerFunc(func(domain.SessionKey) { o.emptyRoom(s) }))
	return s
}

func (o *Orchestrator) OnAttendees(key domain.SessionKey, attendees []domain.Attendee) {
	o.sessionFor(key).StoreAttendees(attendees)
}

func (o *Orchestrator) OnAttendeeJoined(key domain.SessionKey, a domain.Attendee) {
	o.sessionFor(key).AttendeeArrived(a)
}

func (o *Orchestrator) OnAttendeeLeft(key domain.SessionKey, id string) {
	if s, ok := o.Sessions.Lookup(key); ok {
		s.AttendeeLeft(id)
	}
}

func (o *Orchestrator) OnIceServers(key domain.SessionKey, servers []webrtc.ICEServer) {
	o.sessionFor(key).StoreIceServers(servers)
}

// OnHangup ends the session. It reports false for an unknown key.
func (o *Orchestrator) OnHangup(key domain.SessionKey) bool {
	return o.Sessions.Terminate(key)
}

func (o *Orchestrator) emptyRoom(s *session.Session) {
	if s.Closed() {
		return
	}
	metrics.EmptyRooms.Inc()
	log.Info().Str("module", "app.orch").Int64("session", int64(s.Key())).Msg("room emptied")
	if o.Policy == nil {
		return
	}
	if o.Policy.OnEmptyRoom(s.Key()) == TerminateSession {
		o.Sessions.TerminateSession(s)
	}
}

// Join waits for the session to have attendees and ICE servers and returns
// the peer connection configuration to negotiate with. ok is false on
// timeout, cancellation, an ICE set pion rejects or if the session was
// terminated meanwhile.
func (o *Orchestrator) Join(ctx context.Context, key domain.SessionKey) (cfg webrtc.Configuration, ok bool) {
	s := o.sessionFor(key)
	if !s.AwaitJoinComplete(ctx, o.JoinTimeout) {
		log.Warn().Str("module", "app.orch").Int64("session", int64(key)).Bool("closed", s.Closed()).Msg("join incomplete")
		return webrtc.Configuration{}, false
	}
	// The handle was held across a wait; make sure it is still the live one.
	if live, found := o.Sessions.Lookup(key); !found || live != s {
		return webrtc.Configuration{}, false
	}
	cfg = rtc.Configuration(s.IceServers())
	if err := rtc.Validate(cfg); err != nil {
		log.Warn().Err(err).Str("module", "app.orch").Int64("session", int64(key)).Msg("unusable ice servers")
		return webrtc.Configuration{}, false
	}
	log.Info().Str("module", "app.orch").Int64("session", int64(key)).Int("attendees", len(s.Attendees())).Msg("join complete")
	return cfg, true
}

// SessionView is the read model of one session.
type SessionView struct {
	Key        domain.SessionKey  `json:"key"`
	State      string             `json:"state"`
	Attendees  []domain.Attendee  `json:"attendees"`
	IceServers []webrtc.ICEServer `json:"ice_servers"`
}

func (o *Orchestrator) SessionView(key domain.SessionKey) (SessionView, bool) {
	s, ok := o.Sessions.Lookup(key)
	if !ok {
		return SessionView{}, false
	}
	v := SessionView{
		Key:        key,
		State:      s.State().String(),
		Attendees:  s.Attendees(),
		IceServers: s.IceServers(),
	}
	if v.Attendees == nil {
		v.Attendees = []domain.Attendee{}
	}
	if v.IceServers == nil {
		v.IceServers = []webrtc.ICEServer{}
	}
	return v, true
}
