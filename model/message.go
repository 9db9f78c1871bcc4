// Package model contains the domain values exchanged through the realtime broker:
// messages, their type and priority taxonomies, channel naming, and the wire
// envelope clients send over a connection.
package model

import (
	"fmt"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
)

// MessageType identifies the kind of a message. The set is closed: DecodeMessage
// and Envelope validation reject unknown types at the wire boundary so dispatch
// sites only ever see the constants below.
type MessageType string

// System message types, handled by the broker itself.
const (
	TypeHeartbeat   MessageType = "heartbeat"
	TypeAuth        MessageType = "auth"
	TypeSubscribe   MessageType = "subscribe"
	TypeUnsubscribe MessageType = "unsubscribe"
)

// Operational message types.
const (
	TypeDeploymentUpdate  MessageType = "deployment_update"
	TypePersonnelStatus   MessageType = "personnel_status"
	TypeEquipmentStatus   MessageType = "equipment_status"
	TypeSafetyAlert       MessageType = "safety_alert"
	TypeOperationUpdate   MessageType = "operation_update"
	TypeMissionAssignment MessageType = "mission_assignment"
)

// Coordination message types.
const (
	TypeChatMessage     MessageType = "chat_message"
	TypeLocationUpdate  MessageType = "location_update"
	TypeResourceRequest MessageType = "resource_request"
	TypeSituationReport MessageType = "situation_report"
)

// Notification message types.
const (
	TypeNotification MessageType = "notification"
	TypeAlert        MessageType = "alert"
	TypeBroadcast    MessageType = "broadcast"
)

// IsValid reports whether t is one of the known message types.
func (t MessageType) IsValid() bool {
	switch t {
	case TypeHeartbeat, TypeAuth, TypeSubscribe, TypeUnsubscribe,
		TypeDeploymentUpdate, TypePersonnelStatus, TypeEquipmentStatus,
		TypeSafetyAlert, TypeOperationUpdate, TypeMissionAssignment,
		TypeChatMessage, TypeLocationUpdate, TypeResourceRequest,
		TypeSituationReport, TypeNotification, TypeAlert, TypeBroadcast:
		return true
	}
	return false
}

// IsControl reports whether t is consumed by the broker's connection handling
// (heartbeat and subscription management) rather than published to channels.
func (t MessageType) IsControl() bool {
	switch t {
	case TypeHeartbeat, TypeSubscribe, TypeUnsubscribe:
		return true
	}
	return false
}

// Priority is the delivery priority of a message. Priorities are ordered:
// low < normal < high < critical < emergency. Use Rank for comparisons.
type Priority string

// Priority levels.
const (
	PriorityLow       Priority = "low"
	PriorityNormal    Priority = "normal"
	PriorityHigh      Priority = "high"
	PriorityCritical  Priority = "critical"
	PriorityEmergency Priority = "emergency"
)

// Rank returns the ordinal position of the priority, starting at 0 for low.
// Unknown priorities rank below low.
func (p Priority) Rank() int {
	switch p {
	case PriorityLow:
		return 0
	case PriorityNormal:
		return 1
	case PriorityHigh:
		return 2
	case PriorityCritical:
		return 3
	case PriorityEmergency:
		return 4
	}
	return -1
}

// IsValid reports whether p is one of the known priority levels.
func (p Priority) IsValid() bool {
	return p.Rank() >= 0
}

// AtLeast reports whether p is ordered at or above other.
func (p Priority) AtLeast(other Priority) bool {
	return p.Rank() >= other.Rank()
}

// Message is one unit of communication flowing through the broker.
// Messages are immutable once constructed; equality is by ID.
//
// Recipient, when set, names a user who receives the message even without a
// subscription to the channel. Content is an opaque payload; the broker never
// inspects it.
type Message struct {
	ID          string            `json:"id"`
	Type        MessageType       `json:"type"`
	Channel     string            `json:"channel"`
	Sender      string            `json:"sender"`
	Recipient   string            `json:"recipient,omitempty"`
	Content     map[string]any    `json:"content"`
	Priority    Priority          `json:"priority"`
	Timestamp   time.Time         `json:"timestamp"`
	ExpiresAt   *time.Time        `json:"expiresAt,omitempty"`
	RequiresAck bool              `json:"requiresAck"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// NewMessage creates a message with a generated ID, the current timestamp and
// normal priority. Callers adjust the remaining fields before first use; once a
// message has been published it must not be mutated.
func NewMessage(t MessageType, channel, sender string, content map[string]any) Message {
	if content == nil {
		content = map[string]any{}
	}
	return Message{
		ID:        uuid.NewString(),
		Type:      t,
		Channel:   channel,
		Sender:    sender,
		Content:   content,
		Priority:  PriorityNormal,
		Timestamp: time.Now().UTC(),
	}
}

// Expired reports whether the message carries an expiry in the past.
// Messages without ExpiresAt never expire.
func (m Message) Expired(now time.Time) bool {
	return m.ExpiresAt != nil && !m.ExpiresAt.After(now)
}

// Equal reports message identity. Messages are value objects keyed by ID;
// two copies of the same publication compare equal regardless of decode round trips.
func (m Message) Equal(other Message) bool {
	return m.ID != "" && m.ID == other.ID
}

// Encode serializes the message to its JSON wire form.
func (m Message) Encode() ([]byte, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to encode message %s: %w", m.ID, err)
	}
	return data, nil
}

// DecodeMessage parses a JSON wire form produced by Encode, as received from a
// peer broker. The type and priority are checked against the closed sets.
func DecodeMessage(data []byte) (Message, error) {
	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		return Message{}, fmt.Errorf("failed to decode message: %w", err)
	}
	if m.ID == "" {
		return Message{}, fmt.Errorf("message has no id")
	}
	if !m.Type.IsValid() {
		return Message{}, fmt.Errorf("unknown message type %q", m.Type)
	}
	if m.Priority == "" {
		m.Priority = PriorityNormal
	}
	if !m.Priority.IsValid() {
		return Message{}, fmt.Errorf("unknown priority %q", m.Priority)
	}
	if m.Content == nil {
		m.Content = map[string]any{}
	}
	return m, nil
}
