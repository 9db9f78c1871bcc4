package realtime

import (
	"context"

	"github.com/coregx/realtime/model"
)

// SendSafetyAlert publishes a critical, ack-required safety alert to the task
// force channel and mirrors it on the shared safety channel, so both the
// affected task force and safety officers see it.
func SendSafetyAlert(ctx context.Context, b *Broker, taskForceID string, alert map[string]any, sender string) error {
	if sender == "" {
		sender = systemSender
	}

	m := model.NewMessage(model.TypeSafetyAlert, model.TaskForceChannel(taskForceID), sender, alert)
	m.Priority = model.PriorityCritical
	m.RequiresAck = true
	if err := b.Publish(ctx, m); err != nil {
		return err
	}

	mirror := model.NewMessage(model.TypeSafetyAlert, model.ChannelSafety, sender, alert)
	mirror.Priority = model.PriorityCritical
	mirror.RequiresAck = true
	return b.Publish(ctx, mirror)
}

// SendDeploymentUpdate publishes a high-priority update on a deployment channel.
func SendDeploymentUpdate(ctx context.Context, b *Broker, deploymentID string, update map[string]any, sender string) error {
	if sender == "" {
		sender = systemSender
	}

	m := model.NewMessage(model.TypeDeploymentUpdate, model.DeploymentChannel(deploymentID), sender, update)
	m.Priority = model.PriorityHigh
	return b.Publish(ctx, m)
}

// SendPersonnelNotification publishes a notification to one user's private
// channel, naming the user as recipient so it also reaches their connections
// on peer brokers.
func SendPersonnelNotification(ctx context.Context, b *Broker, userID string, content map[string]any, priority model.Priority, sender string) error {
	if sender == "" {
		sender = systemSender
	}
	if priority == "" {
		priority = model.PriorityNormal
	}

	m := model.NewMessage(model.TypeNotification, model.PrivateChannel(userID), sender, content)
	m.Recipient = userID
	m.Priority = priority
	return b.Publish(ctx, m)
}
