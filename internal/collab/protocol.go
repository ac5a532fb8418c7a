package collab

import "encoding/json"

type Message struct {
	Type     string          `json:"type"`
	MapID    string          `json:"mapId,omitempty"`
	ClientID string          `json:"clientId,omitempty"`
	UserID   string          `json:"userId,omitempty"`
	Seq      int64           `json:"seq,omitempty"`
	Payload  json.RawMessage `json:"payload"`
}

const (
	// Presence
	TypeHoverUpdate   = "hover.update"
	TypePresenceState = "presence.state"
	TypePresenceJoin  = "presence.join"
	TypePresenceLeave = "presence.leave"
	TypeError         = "error"

	// Connection
	TypeWelcome = "welcome"

	// Map state sync
	TypeStateSnapshot    = "state.snapshot"
	TypeStateUpdate      = "state.update"
	TypeStyleUpdate      = "style.update"
	TypeDocumentReplaced = "document.replaced"

	// Mutations sent by operators
	TypeStateSet = "state.set"
	TypeStyleSet = "style.set"
	TypeAck      = "mutation.ack"
	TypeNack     = "mutation.nack"
)

// HoverPayload carries the shape a viewer is pointing at. An empty ShapeID
// means the pointer is over no dynamic shape.
type HoverPayload struct {
	ShapeID     string `json:"shapeId"`
	DisplayName string `json:"displayName,omitempty"`
}

type PresenceStatePayload struct {
	Presences map[string]*HoverPayload `json:"presences"`
}

type PresenceJoinPayload struct {
	ClientID    string `json:"clientId"`
	UserID      string `json:"userId,omitempty"`
	DisplayName string `json:"displayName"`
}

type PresenceLeavePayload struct {
	ClientID string `json:"clientId"`
}

type WelcomePayload struct {
	ClientID  string `json:"clientId"`
	Anonymous bool   `json:"anonymous"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

type SnapshotPayload struct {
	States map[string]int32 `json:"states"`
	Styles map[int32]string `json:"styles"`
}

type StateUpdatePayload struct {
	ShapeID string `json:"shapeId"`
	State   int32  `json:"state"`
	Cleared bool   `json:"cleared,omitempty"`
}

type StyleUpdatePayload struct {
	State int32  `json:"state"`
	Style string `json:"style"`
}

// StateSetPayload asks for a shape state change. A nil State clears it.
type StateSetPayload struct {
	RequestID string `json:"requestId"`
	ShapeID   string `json:"shapeId"`
	State     *int32 `json:"state"`
}

type StyleSetPayload struct {
	RequestID string `json:"requestId"`
	State     int32  `json:"state"`
	Style     string `json:"style"`
}

type AckPayload struct {
	RequestID string `json:"requestId"`
	ServerSeq int64  `json:"serverSeq"`
}

type NackPayload struct {
	RequestID string `json:"requestId"`
	Reason    string `json:"reason"`
}

func newMessage(typ string, payload interface{}) *Message {
	data, _ := json.Marshal(payload)
	return &Message{Type: typ, Payload: data}
}
