package model

import (
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	json "github.com/goccy/go-json"
)

// Envelope is the frame a client sends over its connection. It is a loose
// Message shape: the broker fills in the ID, sender and timestamp itself and
// never trusts them from the wire.
type Envelope struct {
	Type        string            `json:"type"`
	Channel     string            `json:"channel"`
	Recipient   string            `json:"recipient"`
	Content     map[string]any    `json:"content"`
	Priority    string            `json:"priority"`
	RequiresAck bool              `json:"requiresAck"`
	Metadata    map[string]string `json:"metadata"`
}

// Validate checks the envelope against the closed message taxonomies.
// Channel and priority are optional; the broker defaults them.
func (e Envelope) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.Type, validation.Required, validation.By(knownMessageType)),
		validation.Field(&e.Priority, validation.By(knownPriority)),
		validation.Field(&e.Channel, validation.Length(0, 255)),
		validation.Field(&e.Recipient, validation.Length(0, 255)),
	)
}

func knownMessageType(value any) error {
	s, _ := value.(string)
	if !MessageType(s).IsValid() {
		return fmt.Errorf("unknown message type %q", s)
	}
	return nil
}

func knownPriority(value any) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	if !Priority(s).IsValid() {
		return fmt.Errorf("unknown priority %q", s)
	}
	return nil
}

// DecodeEnvelope parses and validates a client frame.
func DecodeEnvelope(data []byte) (Envelope, error) {
	var e Envelope
	if err := json.Unmarshal(data, &e); err != nil {
		return Envelope{}, fmt.Errorf("failed to decode envelope: %w", err)
	}
	if err := e.Validate(); err != nil {
		return Envelope{}, fmt.Errorf("invalid envelope: %w", err)
	}
	return e, nil
}

// Message builds a full publishable message from the envelope on behalf of
// sender. Channel defaults to the global channel and priority to normal.
func (e Envelope) Message(sender string) Message {
	m := NewMessage(MessageType(e.Type), e.Channel, sender, e.Content)
	if m.Channel == "" {
		m.Channel = ChannelGlobal
	}
	if e.Priority != "" {
		m.Priority = Priority(e.Priority)
	}
	m.Recipient = e.Recipient
	m.RequiresAck = e.RequiresAck
	m.Metadata = e.Metadata
	return m
}
