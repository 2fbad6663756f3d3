package signal

import (
	"context"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/castlink/internal/domain"
)

func decode(data []byte, v any) bool {
	if err := json.Unmarshal(data, v); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad payload")
		return false
	}
	return true
}

func (cl *Client) handleAttendees(data []byte) {
	var msg attendeesMsg
	if !decode(data, &msg) {
		return
	}
	list := make([]domain.Attendee, 0, len(msg.Attendees))
	for _, a := range msg.Attendees {
		list = append(list, a.toDomain())
	}
	cl.Sink.OnAttendees(msg.Session, list)
}

func (cl *Client) handleJoined(data []byte) {
	var msg joinedMsg
	if !decode(data, &msg) || msg.Attendee.ID == "" {
		return
	}
	cl.Sink.OnAttendeeJoined(msg.Session, msg.Attendee.toDomain())
}

// Janus repeats "unpublished" for a feed that already left; the session
// treats the second notice as a no-op.
func (cl *Client) handleLeft(data []byte) {
	var msg leftMsg
	if !decode(data, &msg) || msg.ID == "" {
		return
	}
	cl.Sink.OnAttendeeLeft(msg.Session, msg.ID)
}

func (cl *Client) handleIceServers(data []byte) {
	var msg iceServersMsg
	if !decode(data, &msg) {
		return
	}
	cl.Sink.OnIceServers(msg.Session, msg.IceServers)
}

func (cl *Client) handleHangup(env envelope) {
	if !cl.Sink.OnHangup(env.Session) {
		log.Debug().Str("module", "signal").Int64("session", int64(env.Session)).Msg("hangup for unknown session")
	}
}

// handleJoin waits for the session off the read loop, since the events
// that complete it arrive on the same connection.
func (cl *Client) handleJoin(ctx context.Context, c *conn, env envelope) {
	c.joins.Add(1)
	go func() {
		defer c.joins.Done()
		cfg, ok := cl.Sink.Join(ctx, env.Session)
		if !ok {
			cl.sendJSON(c, envelope{Type: "join_failed", Session: env.Session})
			return
		}
		cl.sendJSON(c, readyMsg{
			envelope:   envelope{Type: "ready", Session: env.Session},
			IceServers: cfg.ICEServers,
		})
	}()
}
