package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEnvelope_Validate(t *testing.T) {
	env := Envelope{Type: string(TypeChatMessage), Channel: ChannelGlobal}
	assert.NoError(t, env.Validate())

	env = Envelope{Type: string(TypeHeartbeat)}
	assert.NoError(t, env.Validate(), "channel is optional")

	env = Envelope{Channel: ChannelGlobal}
	assert.Error(t, env.Validate(), "type is required")

	env = Envelope{Type: "bogus"}
	assert.Error(t, env.Validate(), "unknown type is rejected")

	env = Envelope{Type: string(TypeChatMessage), Priority: "severe"}
	assert.Error(t, env.Validate(), "unknown priority is rejected")

	env = Envelope{Type: string(TypeChatMessage), Priority: string(PriorityHigh)}
	assert.NoError(t, env.Validate())
}

func TestDecodeEnvelope(t *testing.T) {
	env, err := DecodeEnvelope([]byte(`{"type":"chat_message","channel":"global","content":{"text":"hi"}}`))
	assert.NoError(t, err)
	assert.Equal(t, string(TypeChatMessage), env.Type)
	assert.Equal(t, ChannelGlobal, env.Channel)
	assert.Equal(t, "hi", env.Content["text"])

	_, err = DecodeEnvelope([]byte("not json"))
	assert.Error(t, err)

	_, err = DecodeEnvelope([]byte(`{"type":"bogus"}`))
	assert.Error(t, err)
}

func TestEnvelope_Message(t *testing.T) {
	env := Envelope{
		Type:        string(TypeSafetyAlert),
		Channel:     TaskForceChannel("CA-TF1"),
		Recipient:   "bob",
		Content:     map[string]any{"hazard": "flooding"},
		Priority:    string(PriorityCritical),
		RequiresAck: true,
		Metadata:    map[string]string{"source": "field"},
	}

	m := env.Message("alice")
	assert.NotEmpty(t, m.ID)
	assert.Equal(t, TypeSafetyAlert, m.Type)
	assert.Equal(t, "tf_CA-TF1", m.Channel)
	assert.Equal(t, "alice", m.Sender)
	assert.Equal(t, "bob", m.Recipient)
	assert.Equal(t, PriorityCritical, m.Priority)
	assert.True(t, m.RequiresAck)
	assert.Equal(t, "flooding", m.Content["hazard"])
	assert.Equal(t, "field", m.Metadata["source"])
}

func TestEnvelope_Message_Defaults(t *testing.T) {
	env := Envelope{Type: string(TypeChatMessage)}

	m := env.Message("alice")
	assert.Equal(t, ChannelGlobal, m.Channel, "missing channel defaults to global")
	assert.Equal(t, PriorityNormal, m.Priority, "missing priority defaults to normal")
	assert.NotNil(t, m.Content)
}
