package transport

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// WebSocket timeout constants, grounded on the teacher's Gorilla usage
// pattern in server/client.go.
const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second
	maxMessageSize = 1 << 20
)

// client is one WebSocket connection. It may join any number of diagrams;
// before authenticating it must not touch any diagram state.
type client struct {
	server *Server
	conn   *websocket.Conn
	send   chan outboundMessage

	sessionID string

	authenticated bool
	userID        string
	username      string

	diagramIDs map[string]bool
	// durableSessions maps a joined diagram id to its row id in the
	// collaboration_sessions table, so leaving/disconnecting can deactivate
	// the durable mirror without a second lookup.
	durableSessions map[string]string
}

func newClient(s *Server, conn *websocket.Conn) *client {
	return &client{
		server:          s,
		conn:            conn,
		send:            make(chan outboundMessage, 32),
		sessionID:       uuid.New().String(),
		diagramIDs:      make(map[string]bool),
		durableSessions: make(map[string]string),
	}
}

func (c *client) readPump() {
	defer func() {
		c.server.unregisterClient(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNoStatusReceived) {
				c.server.log.Debugw("websocket read error", "session_id", shortID(c.sessionID), "error", err)
			}
			return
		}

		var msg inboundMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			c.sendJSON(outboundMessage{Type: "error", Payload: errorPayload{Message: "malformed message"}})
			continue
		}
		c.routeMessage(msg)
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case <-c.server.ctx.Done():
			return
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *client) sendJSON(msg outboundMessage) {
	select {
	case c.send <- msg:
	default:
		c.server.log.Warnw("client send channel full, dropping message", "session_id", shortID(c.sessionID), "type", msg.Type)
	}
}

// routeMessage dispatches one decoded frame to its handler: the five inbound
// transport events of spec.md §6. The sixth, disconnect, is handled when
// readPump exits (unregisterClient).
func (c *client) routeMessage(msg inboundMessage) {
	switch msg.Type {
	case "authenticate":
		c.handleAuthenticate(msg.Payload)
	case "join_diagram":
		c.handleJoinDiagram(msg.Payload)
	case "leave_diagram":
		c.handleLeaveDiagram(msg.Payload)
	case "diagram_change":
		c.handleDiagramChange(msg.Payload)
	case "cursor_move":
		c.handleCursorMove(msg.Payload)
	default:
		c.server.log.Debugw("unknown message type", "type", msg.Type, "session_id", shortID(c.sessionID))
	}
}

func (c *client) handleAuthenticate(raw json.RawMessage) {
	var p authenticatePayload
	if err := json.Unmarshal(raw, &p); err != nil {
		c.sendJSON(outboundMessage{Type: "auth_error", Payload: authErrorPayload{Message: "malformed authenticate payload"}})
		return
	}

	claims, err := c.server.jwt.ValidateToken(p.Token)
	if err != nil {
		c.sendJSON(outboundMessage{Type: "auth_error", Payload: authErrorPayload{Message: "invalid or expired token"}})
		return
	}

	user, err := c.server.users.GetByID(c.server.ctx, claims.UserID)
	if err != nil {
		c.sendJSON(outboundMessage{Type: "auth_error", Payload: authErrorPayload{Message: "unknown user"}})
		return
	}

	c.authenticated = true
	c.userID = user.ID
	c.username = user.Username
	c.server.presence.Bind(c.userID, c.sessionID)

	if err := c.server.users.SetOnline(c.server.ctx, c.userID, true); err != nil {
		c.server.log.Warnw("failed to mark user online", "user_id", c.userID, "error", err)
	}

	c.sendJSON(outboundMessage{Type: "authenticated", Payload: authenticatedPayload{UserID: c.userID, Username: c.username}})
}

func (c *client) requireAuth() bool {
	if c.authenticated {
		return true
	}
	c.sendJSON(outboundMessage{Type: "error", Payload: errorPayload{Message: "authenticate before joining a diagram"}})
	return false
}

func (c *client) handleJoinDiagram(raw json.RawMessage) {
	if !c.requireAuth() {
		return
	}
	var p joinDiagramPayload
	if err := json.Unmarshal(raw, &p); err != nil || p.DiagramID == "" {
		c.sendJSON(outboundMessage{Type: "error", Payload: errorPayload{Message: "malformed join_diagram payload"}})
		return
	}

	c.server.coordinator.AddParticipant(p.DiagramID, c.sessionID, c.userID, c.username)
	c.diagramIDs[p.DiagramID] = true
	c.server.engines.get(p.DiagramID) // ensure the diagram's engine exists

	if cs, err := c.server.sessions.Upsert(c.server.ctx, p.DiagramID, c.userID); err != nil {
		c.server.log.Warnw("failed to record collaboration session", "diagram_id", p.DiagramID, "error", err)
	} else {
		c.durableSessions[p.DiagramID] = cs.ID
	}

	now := time.Now()
	recipients := c.server.coordinator.Recipients(p.DiagramID, c.userID)
	c.server.sendToSessions(recipients, outboundMessage{
		Type:    "user_joined",
		Payload: userJoinedPayload{UserID: c.userID, Username: c.username, Timestamp: now},
	})

	participants := make([]participantView, 0)
	for _, pt := range c.server.coordinator.GetParticipants(p.DiagramID) {
		participants = append(participants, participantView{
			UserID: pt.UserID, Username: pt.Username, X: pt.CursorX, Y: pt.CursorY,
		})
	}
	c.sendJSON(outboundMessage{Type: "participants_updated", Payload: participantsUpdatedPayload{Participants: participants}})
}

func (c *client) deactivateDurableSession(diagramID string) {
	id, ok := c.durableSessions[diagramID]
	if !ok {
		return
	}
	delete(c.durableSessions, diagramID)
	if err := c.server.sessions.Deactivate(c.server.ctx, id); err != nil {
		c.server.log.Warnw("failed to deactivate collaboration session", "diagram_id", diagramID, "error", err)
	}
}

func (c *client) handleLeaveDiagram(raw json.RawMessage) {
	var p leaveDiagramPayload
	if err := json.Unmarshal(raw, &p); err != nil || p.DiagramID == "" {
		return
	}

	c.server.coordinator.RemoveParticipant(p.DiagramID, c.sessionID)
	delete(c.diagramIDs, p.DiagramID)
	c.deactivateDurableSession(p.DiagramID)

	recipients := c.server.coordinator.Recipients(p.DiagramID, c.userID)
	c.server.sendToSessions(recipients, outboundMessage{
		Type:    "user_left",
		Payload: userLeftPayload{UserID: c.userID, Username: c.username, Timestamp: time.Now()},
	})
}

// handleDiagramChange applies a batch of changes through the diagram's
// mediator and rejects stale senders per spec.md's last-writer-wins
// version check (no OT/CRDT reconciliation).
func (c *client) handleDiagramChange(raw json.RawMessage) {
	if !c.requireAuth() {
		return
	}
	var p diagramChangePayload
	if err := json.Unmarshal(raw, &p); err != nil || p.DiagramID == "" {
		c.sendJSON(outboundMessage{Type: "error", Payload: errorPayload{Message: "malformed diagram_change payload"}})
		return
	}

	newVersion, err := c.server.diagrams.BumpVersion(c.server.ctx, p.DiagramID, p.Version)
	if err != nil {
		c.sendJSON(outboundMessage{
			Type:    "version_conflict",
			Payload: versionConflictPayload{DiagramID: p.DiagramID, ServerVersion: newVersion},
		})
		return
	}

	c.server.coordinator.Touch(p.DiagramID, c.sessionID)
	eng := c.server.engines.get(p.DiagramID)
	for _, ev := range p.Changes {
		if err := eng.mediator.HandleLocalChange(ev, c.sessionID); err != nil {
			c.server.log.Warnw("failed to apply local change", "diagram_id", p.DiagramID, "error", err)
		}
	}
}

func (c *client) handleCursorMove(raw json.RawMessage) {
	if !c.requireAuth() {
		return
	}
	var p cursorMovePayload
	if err := json.Unmarshal(raw, &p); err != nil || p.DiagramID == "" {
		return
	}

	if err := c.server.coordinator.UpdateCursor(p.DiagramID, c.sessionID, p.X, p.Y); err != nil {
		return
	}
	c.server.presence.Touch(c.sessionID)

	recipients := c.server.coordinator.Recipients(p.DiagramID, c.userID)
	c.server.sendToSessions(recipients, outboundMessage{
		Type: "cursor_updated",
		Payload: cursorUpdatedPayload{
			UserID: c.userID, Username: c.username, X: p.X, Y: p.Y, Timestamp: time.Now(),
		},
	})
}
