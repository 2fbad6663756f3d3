package session

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/castlink/internal/core"
	"github.com/dkeye/castlink/internal/domain"
)

type State int32

const (
	StateOpen State = iota
	StateClosing
)

func (s State) String() string {
	if s == StateClosing {
		return "closing"
	}
	return "open"
}

// Session is the per-call state fed by signalling: who is in the room and
// which ICE servers to use. All methods are safe for concurrent use.
type Session struct {
	key    domain.SessionKey
	logger zerolog.Logger

	mu         sync.Mutex
	attendees  []domain.Attendee
	iceServers []webrtc.ICEServer
	state      State
	handler    core.EventHandler
	// changed is closed and replaced on every wake, which lets waiters
	// block on it together with a timer.
	changed chan struct{}
}

func newSession(key domain.SessionKey) *Session {
	return &Session{
		key:     key,
		logger:  log.With().Str("module", "app.session").Int64("session", int64(key)).Logger(),
		changed: make(chan struct{}),
	}
}

func (s *Session) Key() domain.SessionKey { return s.key }

// wake must be called with mu held.
func (s *Session) wake() {
	close(s.changed)
	s.changed = make(chan struct{})
}

// StoreAttendees replaces the attendee list and wakes waiters.
func (s *Session) StoreAttendees(attendees []domain.Attendee) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attendees = slices.Clone(attendees)
	s.wake()
	s.logger.Debug().Int("attendees", len(attendees)).Msg("attendees stored")
}

// AttendeeArrived appends one attendee. It does not wake waiters.
func (s *Session) AttendeeArrived(a domain.Attendee) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attendees = append(s.attendees, a)
	s.logger.Debug().Str("attendee", a.ID).Msg("attendee arrived")
}

// AttendeeLeft removes the first attendee with id. The empty-room event
// fires only if this call removed someone and nobody is left, so repeated
// leave notices for the same id are harmless.
func (s *Session) AttendeeLeft(id string) {
	s.mu.Lock()
	i := slices.IndexFunc(s.attendees, func(a domain.Attendee) bool { return a.ID == id })
	if i < 0 {
		s.mu.Unlock()
		return
	}
	s.attendees = slices.Delete(s.attendees, i, i+1)
	empty := len(s.attendees) == 0
	handler := s.handler
	s.mu.Unlock()

	s.logger.Debug().Str("attendee", id).Bool("empty", empty).Msg("attendee left")
	if empty && handler != nil {
		handler.HandleEmptyRoom(s.key)
	}
}

// RegisterEventHandler installs h, replacing any previous handler.
func (s *Session) RegisterEventHandler(h core.EventHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handler = h
}

// StoreIceServers replaces the ICE server list and wakes waiters.
func (s *Session) StoreIceServers(servers []webrtc.ICEServer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.iceServers = cloneICEServers(servers)
	s.wake()
	s.logger.Debug().Int("ice_servers", len(servers)).Msg("ice servers stored")
}

func (s *Session) ready() bool {
	return len(s.attendees) > 0 && len(s.iceServers) > 0
}

// AwaitJoinComplete blocks until both attendees and ICE servers are known,
// the session is closing, timeout elapses or ctx is done. It reports
// whether both lists were non-empty when it woke; a closing session
// always reports false.
func (s *Session) AwaitJoinComplete(ctx context.Context, timeout time.Duration) bool {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	s.mu.Lock()
	defer s.mu.Unlock()
	for s.state == StateOpen && !s.ready() {
		changed := s.changed
		s.mu.Unlock()
		select {
		case <-changed:
			s.mu.Lock()
		case <-timer.C:
			s.mu.Lock()
			return s.state == StateOpen && s.ready()
		case <-ctx.Done():
			s.mu.Lock()
			return s.state == StateOpen && s.ready()
		}
	}
	return s.state == StateOpen && s.ready()
}

// Attendees returns a copy of the current attendee list.
func (s *Session) Attendees() []domain.Attendee {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.attendees)
}

// IceServers returns a deep copy of the current ICE server list.
func (s *Session) IceServers() []webrtc.ICEServer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneICEServers(s.iceServers)
}

// WebRTCConfiguration returns a pion configuration carrying the stored ICE
// servers as they are. Fallback servers are the rtc adapter's business.
func (s *Session) WebRTCConfiguration() webrtc.Configuration {
	return webrtc.Configuration{ICEServers: s.IceServers()}
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) Closed() bool { return s.State() == StateClosing }

// close flips the session to closing and releases every waiter in the
// same critical section. The handler is dropped: nobody observes a
// terminated session.
func (s *Session) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateClosing {
		return
	}
	s.state = StateClosing
	s.handler = nil
	s.wake()
}

func cloneICEServers(in []webrtc.ICEServer) []webrtc.ICEServer {
	if in == nil {
		return nil
	}
	out := make([]webrtc.ICEServer, len(in))
	for i, srv := range in {
		out[i] = srv
		out[i].URLs = slices.Clone(srv.URLs)
	}
	return out
}
