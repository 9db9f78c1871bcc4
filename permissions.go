package realtime

import "github.com/coregx/realtime/model"

// commandRoles lists the roles allowed to subscribe to the command channel.
var commandRoles = map[string]struct{}{
	"task_force_leader": {},
	"operations_chief":  {},
}

// CanSubscribe reports whether a connection may subscribe to a channel.
//
// A connection may never subscribe to another user's private channel, and the
// command channel is restricted to command-level roles. Everything else is
// permitted; channels spring into existence on first subscription.
//
// Pure check with no side effects; the broker calls it before any
// subscription mutation.
func CanSubscribe(conn *Connection, channel string) bool {
	if owner, ok := model.PrivateChannelOwner(channel); ok {
		return owner == conn.UserID()
	}
	if channel == model.ChannelCommand {
		_, ok := commandRoles[conn.UserRole()]
		return ok
	}
	return true
}
