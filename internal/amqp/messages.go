package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"fintrack/internal/core"
)

// Transaction event types.
const (
	EventCreated = "created"
	EventUpdated = "updated"
	EventDeleted = "deleted"
)

// TransactionEvent carries a full snapshot so consumers never read back from
// the database; a deleted row is gone by the time the event is handled.
type TransactionEvent struct {
	Event     string           `json:"event"`
	Kind      core.Kind        `json:"kind"`
	ID        int64            `json:"id"`
	OwnerID   int64            `json:"owner_id"`
	Snapshot  core.Transaction `json:"snapshot"`
	Timestamp time.Time        `json:"timestamp"`
}

func NewTransactionEvent(event string, tx core.Transaction) *TransactionEvent {
	return &TransactionEvent{
		Event:     event,
		Kind:      tx.Kind,
		ID:        tx.ID,
		OwnerID:   tx.OwnerID,
		Snapshot:  tx,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *TransactionEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// TransactionEventFromJSON decodes and sanity checks an event. The snapshot
// gets its owner and kind back from the envelope.
func TransactionEventFromJSON(data []byte) (*TransactionEvent, error) {
	var msg TransactionEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	switch msg.Event {
	case EventCreated, EventUpdated, EventDeleted:
	default:
		return nil, fmt.Errorf("unknown event %q", msg.Event)
	}
	if !msg.Kind.Valid() {
		return nil, fmt.Errorf("%w: %q", core.ErrUnknownKind, msg.Kind)
	}
	msg.Snapshot.ID = msg.ID
	msg.Snapshot.OwnerID = msg.OwnerID
	msg.Snapshot.Kind = msg.Kind
	return &msg, nil
}

// EmailMessage is a plain text email waiting to be sent.
type EmailMessage struct {
	To        string    `json:"to"`
	Subject   string    `json:"subject"`
	Body      string    `json:"body"`
	Timestamp time.Time `json:"timestamp"`
}

func NewEmailMessage(to, subject, body string) *EmailMessage {
	return &EmailMessage{To: to, Subject: subject, Body: body, Timestamp: time.Now()}
}

func (m *EmailMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func EmailMessageFromJSON(data []byte) (*EmailMessage, error) {
	var msg EmailMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.To == "" {
		return nil, fmt.Errorf("email without recipient")
	}
	return &msg, nil
}
