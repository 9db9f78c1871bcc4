package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMessageType_IsValid(t *testing.T) {
	valid := []MessageType{
		TypeHeartbeat, TypeAuth, TypeSubscribe, TypeUnsubscribe,
		TypeDeploymentUpdate, TypePersonnelStatus, TypeEquipmentStatus,
		TypeSafetyAlert, TypeOperationUpdate, TypeMissionAssignment,
		TypeChatMessage, TypeLocationUpdate, TypeResourceRequest,
		TypeSituationReport, TypeNotification, TypeAlert, TypeBroadcast,
	}
	for _, mt := range valid {
		assert.True(t, mt.IsValid(), "expected %s to be valid", mt)
	}

	assert.False(t, MessageType("").IsValid())
	assert.False(t, MessageType("unknown").IsValid())
	assert.False(t, MessageType("HEARTBEAT").IsValid())
}

func TestMessageType_IsControl(t *testing.T) {
	assert.True(t, TypeHeartbeat.IsControl())
	assert.True(t, TypeSubscribe.IsControl())
	assert.True(t, TypeUnsubscribe.IsControl())

	assert.False(t, TypeAuth.IsControl())
	assert.False(t, TypeChatMessage.IsControl())
	assert.False(t, TypeSafetyAlert.IsControl())
}

func TestPriority_Rank(t *testing.T) {
	assert.Equal(t, 0, PriorityLow.Rank())
	assert.Equal(t, 1, PriorityNormal.Rank())
	assert.Equal(t, 2, PriorityHigh.Rank())
	assert.Equal(t, 3, PriorityCritical.Rank())
	assert.Equal(t, 4, PriorityEmergency.Rank())
	assert.Equal(t, -1, Priority("urgent").Rank())
}

func TestPriority_Ordering(t *testing.T) {
	ordered := []Priority{PriorityLow, PriorityNormal, PriorityHigh, PriorityCritical, PriorityEmergency}
	for i := 1; i < len(ordered); i++ {
		assert.True(t, ordered[i].AtLeast(ordered[i-1]),
			"expected %s to rank at least %s", ordered[i], ordered[i-1])
		assert.False(t, ordered[i-1].AtLeast(ordered[i]))
	}
	assert.True(t, PriorityNormal.AtLeast(PriorityNormal))
}

func TestPriority_IsValid(t *testing.T) {
	assert.True(t, PriorityLow.IsValid())
	assert.True(t, PriorityEmergency.IsValid())
	assert.False(t, Priority("").IsValid())
	assert.False(t, Priority("severe").IsValid())
}

func TestNewMessage(t *testing.T) {
	content := map[string]any{"text": "hello"}
	m := NewMessage(TypeChatMessage, ChannelGlobal, "user-1", content)

	assert.NotEmpty(t, m.ID)
	assert.Equal(t, TypeChatMessage, m.Type)
	assert.Equal(t, ChannelGlobal, m.Channel)
	assert.Equal(t, "user-1", m.Sender)
	assert.Equal(t, content, m.Content)
	assert.Equal(t, PriorityNormal, m.Priority)
	assert.WithinDuration(t, time.Now(), m.Timestamp, time.Second)
	assert.Empty(t, m.Recipient)
	assert.Nil(t, m.ExpiresAt)
	assert.False(t, m.RequiresAck)
}

func TestNewMessage_NilContent(t *testing.T) {
	m := NewMessage(TypeNotification, ChannelSystem, "system", nil)
	assert.NotNil(t, m.Content)
	assert.Empty(t, m.Content)
}

func TestNewMessage_UniqueIDs(t *testing.T) {
	a := NewMessage(TypeChatMessage, ChannelGlobal, "u", nil)
	b := NewMessage(TypeChatMessage, ChannelGlobal, "u", nil)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestMessage_Expired(t *testing.T) {
	now := time.Now()

	m := NewMessage(TypeAlert, ChannelAlerts, "system", nil)
	assert.False(t, m.Expired(now), "message without expiry never expires")

	past := now.Add(-time.Minute)
	m.ExpiresAt = &past
	assert.True(t, m.Expired(now))

	future := now.Add(time.Minute)
	m.ExpiresAt = &future
	assert.False(t, m.Expired(now))

	m.ExpiresAt = &now
	assert.True(t, m.Expired(now), "expiry boundary counts as expired")
}

func TestMessage_Equal(t *testing.T) {
	a := NewMessage(TypeChatMessage, ChannelGlobal, "u", nil)
	b := a
	b.Content = map[string]any{"changed": true}

	assert.True(t, a.Equal(b), "equality is by ID")
	assert.False(t, a.Equal(NewMessage(TypeChatMessage, ChannelGlobal, "u", nil)))
	assert.False(t, Message{}.Equal(Message{}), "empty IDs never compare equal")
}

func TestMessage_EncodeDecode(t *testing.T) {
	m := NewMessage(TypeSafetyAlert, TaskForceChannel("CA-TF1"), "leader-1",
		map[string]any{"hazard": "gas leak"})
	m.Priority = PriorityCritical
	m.RequiresAck = true
	m.Recipient = "user-2"
	m.Metadata = map[string]string{"source": "sensor-7"}

	data, err := m.Encode()
	assert.NoError(t, err)

	decoded, err := DecodeMessage(data)
	assert.NoError(t, err)
	assert.Equal(t, m.ID, decoded.ID)
	assert.Equal(t, m.Type, decoded.Type)
	assert.Equal(t, m.Channel, decoded.Channel)
	assert.Equal(t, m.Sender, decoded.Sender)
	assert.Equal(t, m.Recipient, decoded.Recipient)
	assert.Equal(t, m.Priority, decoded.Priority)
	assert.True(t, decoded.RequiresAck)
	assert.Equal(t, "gas leak", decoded.Content["hazard"])
	assert.Equal(t, "sensor-7", decoded.Metadata["source"])
}

func TestDecodeMessage_Invalid(t *testing.T) {
	_, err := DecodeMessage([]byte("not json"))
	assert.Error(t, err)

	_, err = DecodeMessage([]byte(`{"type":"chat_message","channel":"global"}`))
	assert.Error(t, err, "missing id is rejected")

	_, err = DecodeMessage([]byte(`{"id":"m1","type":"bogus","channel":"global"}`))
	assert.Error(t, err, "unknown type is rejected")

	_, err = DecodeMessage([]byte(`{"id":"m1","type":"chat_message","priority":"severe"}`))
	assert.Error(t, err, "unknown priority is rejected")
}

func TestDecodeMessage_Defaults(t *testing.T) {
	m, err := DecodeMessage([]byte(`{"id":"m1","type":"chat_message","channel":"global"}`))
	assert.NoError(t, err)
	assert.Equal(t, PriorityNormal, m.Priority, "missing priority defaults to normal")
	assert.NotNil(t, m.Content, "missing content defaults to empty map")
}
