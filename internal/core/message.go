package core

import (
	"strings"
	"time"
)

// MessageKind classifies a timeline entry.
type MessageKind string

const (
	KindText   MessageKind = "text"
	KindSystem MessageKind = "system"
	KindAction MessageKind = "action"
	KindGift   MessageKind = "gift"
	KindBot    MessageKind = "bot"
)

// LocalIDPrefix marks messages created on local send before the server confirmed them.
const LocalIDPrefix = "local-"

// Sender is the display snapshot of the user who authored a message.
type Sender struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Level    int    `json:"level,omitempty"`
	Online   bool   `json:"online,omitempty"`
	Mentor   bool   `json:"mentor,omitempty"`
	Merchant bool   `json:"merchant,omitempty"`
	Admin    bool   `json:"admin,omitempty"`
}

// Gift describes a gift attached to a gift message.
type Gift struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Quantity int    `json:"quantity,omitempty"`
	To       string `json:"to,omitempty"`
}

// Payload is optional structured content carried by a message.
type Payload struct {
	Gift      *Gift  `json:"gift,omitempty"`
	CardImage string `json:"cardImage,omitempty"`
}

// Message is the domain model for a timeline entry. It is not mutated after creation.
type Message struct {
	ID        string      `json:"id"`
	RoomID    string      `json:"roomId"`
	Body      string      `json:"body"`
	Sender    Sender      `json:"sender"`
	CreatedAt time.Time   `json:"createdAt"`
	Kind      MessageKind `json:"kind"`
	Payload   *Payload    `json:"payload,omitempty"`
}

// Optimistic reports whether the message was created locally and still awaits confirmation.
func (m Message) Optimistic() bool {
	return strings.HasPrefix(m.ID, LocalIDPrefix)
}
