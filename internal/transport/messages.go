package transport

import (
	"encoding/json"
	"time"

	"github.com/jongik-sv/kirosync/internal/changeset"
)

// inboundMessage is the generic JSON frame shape a client sends: {type,
// payload}, with payload's concrete shape depending on type. Grounded on
// the teacher's QueryMessage envelope in server/types.go.
type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type authenticatePayload struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	Token    string `json:"token"`
}

type joinDiagramPayload struct {
	DiagramID string `json:"diagramId"`
}

type leaveDiagramPayload struct {
	DiagramID string `json:"diagramId"`
}

type diagramChangePayload struct {
	DiagramID string                    `json:"diagramId"`
	Changes   []changeset.ChangeEvent   `json:"changes"`
	Version   int                       `json:"version"`
}

type cursorMovePayload struct {
	DiagramID string `json:"diagramId"`
	X         int    `json:"x"`
	Y         int    `json:"y"`
}

// outboundMessage is the generic JSON frame shape sent to clients.
type outboundMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

type authenticatedPayload struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
}

type authErrorPayload struct {
	Message string `json:"message"`
}

type userJoinedPayload struct {
	UserID    string    `json:"userId"`
	Username  string    `json:"username"`
	Timestamp time.Time `json:"timestamp"`
}

type userLeftPayload struct {
	UserID    string    `json:"userId"`
	Username  string    `json:"username"`
	Timestamp time.Time `json:"timestamp"`
}

type participantView struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	X        int    `json:"x"`
	Y        int    `json:"y"`
}

type participantsUpdatedPayload struct {
	Participants []participantView `json:"participants"`
}

type diagramUpdatedPayload struct {
	Changes   []changeset.ChangeEvent `json:"changes"`
	Version   int                     `json:"version"`
	UserID    string                  `json:"userId"`
	Username  string                  `json:"username"`
	Timestamp time.Time               `json:"timestamp"`
}

type versionConflictPayload struct {
	DiagramID      string `json:"diagramId"`
	ServerVersion  int    `json:"serverVersion"`
}

type cursorUpdatedPayload struct {
	UserID    string    `json:"userId"`
	Username  string    `json:"username"`
	X         int       `json:"x"`
	Y         int       `json:"y"`
	Timestamp time.Time `json:"timestamp"`
}

type errorPayload struct {
	Message string `json:"message"`
}
