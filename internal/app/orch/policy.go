package orch

import "github.com/dkeye/castlink/internal/domain"

type EmptyRoomAction int

const (
	KeepSession EmptyRoomAction = iota
	TerminateSession
)

// Policy decides what happens once the last attendee has left.
type Policy interface {
	OnEmptyRoom(key domain.SessionKey) EmptyRoomAction
}

// SimplePolicy keeps the session; signalling will hang it up.
type SimplePolicy struct{}

func (SimplePolicy) OnEmptyRoom(domain.SessionKey) EmptyRoomAction { return KeepSession }

// HangupPolicy terminates a session as soon as it is empty.
type HangupPolicy struct{}

func (HangupPolicy) OnEmptyRoom(domain.SessionKey) EmptyRoomAction { return TerminateSession }
