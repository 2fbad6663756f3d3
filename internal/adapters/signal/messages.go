package signal

import (
	"github.com/pion/webrtc/v4"

	"github.com/dkeye/castlink/internal/domain"
)

type envelope struct {
	Type    string            `json:"type"`
	Session domain.SessionKey `json:"session"`
}

// pongMsg carries no session.
type pongMsg struct {
	Type string `json:"type"`
}

type attendeeJSON struct {
	ID      string `json:"id"`
	Display string `json:"display"`
}

func (a attendeeJSON) toDomain() domain.Attendee {
	return domain.Attendee{ID: a.ID, Display: a.Display}
}

type attendeesMsg struct {
	envelope
	Attendees []attendeeJSON `json:"attendees"`
}

type joinedMsg struct {
	envelope
	Attendee attendeeJSON `json:"attendee"`
}

type leftMsg struct {
	envelope
	ID string `json:"id"`
}

type iceServersMsg struct {
	envelope
	IceServers []webrtc.ICEServer `json:"ice_servers"`
}

// readyMsg answers a join once the session is complete.
type readyMsg struct {
	envelope
	IceServers []webrtc.ICEServer `json:"ice_servers"`
}
