package model

import "strings"

// Reserved channel names. Channel names are case-sensitive and, apart from the
// private-channel prefix, opaque to the broker.
const (
	// Global channels.
	ChannelGlobal = "global"
	ChannelSystem = "system"
	ChannelAlerts = "alerts"

	// Operational channels.
	ChannelCommand    = "command"
	ChannelOperations = "operations"
	ChannelSafety     = "safety"
	ChannelLogistics  = "logistics"
)

const privateChannelPrefix = "user_"

// TaskForceChannel returns the channel for a task force, e.g. "tf_CA-TF1".
func TaskForceChannel(taskForceID string) string {
	return "tf_" + taskForceID
}

// DeploymentChannel returns the channel for a deployment.
func DeploymentChannel(deploymentID string) string {
	return "deployment_" + deploymentID
}

// FunctionalGroupChannel returns the channel for a functional group within a
// task force, e.g. "fg_search_CA-TF1".
func FunctionalGroupChannel(group, taskForceID string) string {
	return "fg_" + group + "_" + taskForceID
}

// PrivateChannel returns the private channel owned by a user. Every connection
// is auto-subscribed to its user's private channel on registration.
func PrivateChannel(userID string) string {
	return privateChannelPrefix + userID
}

// PrivateChannelOwner returns the user that owns a private channel, and whether
// the channel is private at all.
func PrivateChannelOwner(channel string) (string, bool) {
	owner, ok := strings.CutPrefix(channel, privateChannelPrefix)
	if !ok || owner == "" {
		return "", false
	}
	return owner, true
}
