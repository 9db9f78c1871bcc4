package realtime

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/coregx/realtime/model"
)

func TestCanSubscribe_PrivateChannels(t *testing.T) {
	conn := NewConnection(&fakeTransport{}, "alice", "observer")

	assert.True(t, CanSubscribe(conn, model.PrivateChannel("alice")))
	assert.False(t, CanSubscribe(conn, model.PrivateChannel("bob")))
}

func TestCanSubscribe_PrivateChannel_PrefixOwner(t *testing.T) {
	// A user ID that itself starts with the private prefix must still only
	// match its exact channel.
	conn := NewConnection(&fakeTransport{}, "user_bob", "observer")

	assert.True(t, CanSubscribe(conn, model.PrivateChannel("user_bob")))
	assert.False(t, CanSubscribe(conn, model.PrivateChannel("bob")))
}

func TestCanSubscribe_CommandChannel(t *testing.T) {
	leader := NewConnection(&fakeTransport{}, "alice", "task_force_leader")
	chief := NewConnection(&fakeTransport{}, "bob", "operations_chief")
	observer := NewConnection(&fakeTransport{}, "carol", "observer")

	assert.True(t, CanSubscribe(leader, model.ChannelCommand))
	assert.True(t, CanSubscribe(chief, model.ChannelCommand))
	assert.False(t, CanSubscribe(observer, model.ChannelCommand))
}

func TestCanSubscribe_OpenChannels(t *testing.T) {
	conn := NewConnection(&fakeTransport{}, "alice", "observer")

	assert.True(t, CanSubscribe(conn, model.ChannelGlobal))
	assert.True(t, CanSubscribe(conn, model.ChannelSafety))
	assert.True(t, CanSubscribe(conn, model.TaskForceChannel("CA-TF1")))
	assert.True(t, CanSubscribe(conn, "some_new_channel"))
}
