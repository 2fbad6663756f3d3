package core

import "github.com/dkeye/castlink/internal/domain"

// EventHandler observes a session. HandleEmptyRoom is called outside the
// session lock, so it may call back into the session.
type EventHandler interface {
	HandleEmptyRoom(key domain.SessionKey)
}

type EventHandlerFunc func(key domain.SessionKey)

func (f EventHandlerFunc) HandleEmptyRoom(key domain.SessionKey) { f(key) }
