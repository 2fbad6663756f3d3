package domain

// SessionKey identifies a signalling session (one per room/call).
type SessionKey int64

// Attendee is one participant as announced by the signalling server.
type Attendee struct {
	ID      string `json:"id"`
	Display string `json:"display,omitempty"`
}
