package auth

import (
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/dkeye/castlink/internal/domain"
)

// Store holds the credential state behind one lock. The lock is held only
// for the copy in or out, never across a request.
type Store struct {
	mu          sync.Mutex
	credentials domain.Credentials
	token       domain.Token
	streamKey   string
	rooms       domain.Rooms
}

func NewStore() *Store {
	return &Store{}
}

func (s *Store) SetCredentials(c domain.Credentials) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.credentials = c
}

func (s *Store) Credentials() domain.Credentials {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.credentials
}

func (s *Store) SetToken(t domain.Token) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = t
}

func (s *Store) Token() domain.Token {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

func (s *Store) SetStreamKey(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.streamKey = key
}

func (s *Store) StreamKey() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.streamKey
}

func (s *Store) SetRooms(r domain.Rooms) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rooms = domain.Rooms{Ordered: slices.Clone(r.Ordered)}
}

func (s *Store) Rooms() domain.Rooms {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.Rooms{Ordered: slices.Clone(s.rooms.Ordered)}
}

// EnsureTrackingID assigns a random tracking id if none is stored yet and
// returns the current one.
func (s *Store) EnsureTrackingID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.credentials.TrackingID == "" {
		s.credentials.TrackingID = uuid.NewString()
	}
	return s.credentials.TrackingID
}

// Reset drops token, stream key and rooms and blanks the password.
// Email and tracking id are kept so the login form stays filled in.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.credentials.Password = ""
	s.token = domain.Token{}
	s.streamKey = ""
	s.rooms = domain.Rooms{}
}
