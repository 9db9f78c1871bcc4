package realtime

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coregx/realtime/model"
)

func TestSendSafetyAlert(t *testing.T) {
	b := newTestBroker(t)
	ctx := context.Background()

	safetyOfficer, ftSafety := addConnection(b, "officer-x", "safety_officer")
	taskForceMember, ftTaskForce := addConnection(b, "member-y", "rescue_specialist")

	subscribe(b, safetyOfficer, model.ChannelSafety)
	subscribe(b, taskForceMember, model.TaskForceChannel("CA-TF1"))

	alert := map[string]any{"hazard": "gas leak"}
	require.NoError(t, SendSafetyAlert(ctx, b, "CA-TF1", alert, "leader-1"))

	waitForFrames(t, ftTaskForce, 1)
	waitForFrames(t, ftSafety, 1)

	tfMsg := ftTaskForce.messages(t)[0]
	assert.Equal(t, model.TypeSafetyAlert, tfMsg.Type)
	assert.Equal(t, "tf_CA-TF1", tfMsg.Channel)
	assert.Equal(t, "leader-1", tfMsg.Sender)
	assert.Equal(t, model.PriorityCritical, tfMsg.Priority)
	assert.True(t, tfMsg.RequiresAck)
	assert.Equal(t, "gas leak", tfMsg.Content["hazard"])

	safetyMsg := ftSafety.messages(t)[0]
	assert.Equal(t, model.TypeSafetyAlert, safetyMsg.Type)
	assert.Equal(t, model.ChannelSafety, safetyMsg.Channel)
	assert.Equal(t, model.PriorityCritical, safetyMsg.Priority)
	assert.True(t, safetyMsg.RequiresAck)

	// Each subscriber sees exactly one copy
	assert.Equal(t, 1, ftTaskForce.frameCount())
	assert.Equal(t, 1, ftSafety.frameCount())

	// Both copies are retained for late acknowledgement
	retained, err := b.ArchivedMessages(ctx, model.TaskForceChannel("CA-TF1"), 10)
	require.NoError(t, err)
	assert.Len(t, retained, 1)

	retained, err = b.ArchivedMessages(ctx, model.ChannelSafety, 10)
	require.NoError(t, err)
	assert.Len(t, retained, 1)
}

func TestSendSafetyAlert_DefaultSender(t *testing.T) {
	b := newTestBroker(t)
	ctx := context.Background()

	conn, ft := addConnection(b, "member-y", "rescue_specialist")
	subscribe(b, conn, model.TaskForceChannel("CA-TF1"))

	require.NoError(t, SendSafetyAlert(ctx, b, "CA-TF1", nil, ""))

	waitForFrames(t, ft, 1)
	assert.Equal(t, systemSender, ft.messages(t)[0].Sender)
}

func TestSendDeploymentUpdate(t *testing.T) {
	b := newTestBroker(t)
	ctx := context.Background()

	conn, ft := addConnection(b, "member-y", "rescue_specialist")
	subscribe(b, conn, model.DeploymentChannel("dep-42"))

	update := map[string]any{"status": "en_route"}
	require.NoError(t, SendDeploymentUpdate(ctx, b, "dep-42", update, "chief-1"))

	waitForFrames(t, ft, 1)
	m := ft.messages(t)[0]
	assert.Equal(t, model.TypeDeploymentUpdate, m.Type)
	assert.Equal(t, "deployment_dep-42", m.Channel)
	assert.Equal(t, "chief-1", m.Sender)
	assert.Equal(t, model.PriorityHigh, m.Priority)
	assert.False(t, m.RequiresAck)
	assert.Equal(t, "en_route", m.Content["status"])
}

func TestSendPersonnelNotification(t *testing.T) {
	b := newTestBroker(t)
	ctx := context.Background()

	// The private channel subscription comes from registration, not the test.
	_, ft := addConnection(b, "alice", "observer")

	content := map[string]any{"text": "report to staging"}
	require.NoError(t, SendPersonnelNotification(ctx, b, "alice", content, model.PriorityHigh, "chief-1"))

	waitForFrames(t, ft, 1)
	m := ft.messages(t)[0]
	assert.Equal(t, model.TypeNotification, m.Type)
	assert.Equal(t, model.PrivateChannel("alice"), m.Channel)
	assert.Equal(t, "alice", m.Recipient)
	assert.Equal(t, model.PriorityHigh, m.Priority)
	assert.Equal(t, "report to staging", m.Content["text"])
}

func TestSendPersonnelNotification_DefaultPriority(t *testing.T) {
	b := newTestBroker(t)

	_, ft := addConnection(b, "alice", "observer")

	require.NoError(t, SendPersonnelNotification(context.Background(), b, "alice", nil, "", ""))

	waitForFrames(t, ft, 1)
	m := ft.messages(t)[0]
	assert.Equal(t, model.PriorityNormal, m.Priority)
	assert.Equal(t, systemSender, m.Sender)
}
