package models

// MessageType enumerates the closed set of payload variants.
type MessageType string

const (
	TypeText     MessageType = "text"
	TypeImage    MessageType = "image"
	TypeVideo    MessageType = "video"
	TypeFile     MessageType = "file"
	TypeChoice   MessageType = "choice"
	TypeQuestion MessageType = "question"
	// System and command messages are the control variants emitted by the
	// automated assistant participant.
	TypeSystem  MessageType = "system"
	TypeCommand MessageType = "command"
)

// MessageStatus is the delivery state of a message. Transitions are
// monotonic: once seen, a message never reverts to sent or delivered.
type MessageStatus string

const (
	StatusSent      MessageStatus = "sent"
	StatusDelivered MessageStatus = "delivered"
	StatusSeen      MessageStatus = "seen"
)

func (s MessageStatus) rank() int {
	switch s {
	case StatusSent:
		return 0
	case StatusDelivered:
		return 1
	case StatusSeen:
		return 2
	}
	return -1
}

// CanTransition reports whether moving to the given status respects the
// monotonic ordering sent < delivered < seen.
func (s MessageStatus) CanTransition(to MessageStatus) bool {
	return to.rank() >= s.rank()
}

// Message is a projected chat message. Author is resolved from the room
// roster at read time; the stored record carries only the author id.
type Message struct {
	ID         string         `json:"id"`
	RoomID     string         `json:"roomId"`
	Author     User           `json:"author"`
	Type       MessageType    `json:"type"`
	Status     MessageStatus  `json:"status"`
	Visibility []string       `json:"visibility"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Payload    Payload        `json:"payload"`
	CreatedAt  *int64         `json:"createdAt,omitempty"`
	UpdatedAt  *int64         `json:"updatedAt,omitempty"`
}

// VisibleTo reports whether the message's access-control list includes
// the given user.
func (m Message) VisibleTo(userID string) bool {
	for _, id := range m.Visibility {
		if id == userID {
			return true
		}
	}
	return false
}
