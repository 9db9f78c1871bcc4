package realtime

import "sync"

// ChannelManager keeps the bidirectional subscription index: channel to
// subscriber connection IDs and connection ID to channels. The two indexes are
// mutated together under one lock, so a channel appears in a connection's set
// exactly when the connection appears in that channel's subscriber set.
//
// Removing the last subscriber of a channel deletes the channel entry entirely,
// so empty channels do not accumulate.
//
// Thread safety: safe for concurrent use.
type ChannelManager struct {
	mu            sync.RWMutex
	subscriptions map[string]map[string]struct{} // channel -> connection IDs
	channels      map[string]map[string]struct{} // connection ID -> channels
}

// NewChannelManager creates an empty channel manager.
func NewChannelManager() *ChannelManager {
	return &ChannelManager{
		subscriptions: make(map[string]map[string]struct{}),
		channels:      make(map[string]map[string]struct{}),
	}
}

// Subscribe adds a connection to a channel. Subscribing twice is a no-op.
func (cm *ChannelManager) Subscribe(connectionID, channel string) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	subs, ok := cm.subscriptions[channel]
	if !ok {
		subs = make(map[string]struct{})
		cm.subscriptions[channel] = subs
	}
	subs[connectionID] = struct{}{}

	chans, ok := cm.channels[connectionID]
	if !ok {
		chans = make(map[string]struct{})
		cm.channels[connectionID] = chans
	}
	chans[channel] = struct{}{}
}

// Unsubscribe removes a connection from a channel. Unknown pairs are a no-op.
func (cm *ChannelManager) Unsubscribe(connectionID, channel string) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.unsubscribeLocked(connectionID, channel)
}

func (cm *ChannelManager) unsubscribeLocked(connectionID, channel string) {
	if subs, ok := cm.subscriptions[channel]; ok {
		delete(subs, connectionID)
		if len(subs) == 0 {
			delete(cm.subscriptions, channel)
		}
	}
	if chans, ok := cm.channels[connectionID]; ok {
		delete(chans, channel)
		if len(chans) == 0 {
			delete(cm.channels, connectionID)
		}
	}
}

// UnsubscribeAll removes a connection from every channel it subscribes to.
// Must be called on connection teardown to prevent index leaks.
func (cm *ChannelManager) UnsubscribeAll(connectionID string) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	chans := cm.channels[connectionID]
	for channel := range chans {
		cm.unsubscribeLocked(connectionID, channel)
	}
}

// Subscribers returns a copy of the subscriber set of a channel.
// Callers may mutate the returned map freely.
func (cm *ChannelManager) Subscribers(channel string) map[string]struct{} {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	subs := make(map[string]struct{}, len(cm.subscriptions[channel]))
	for id := range cm.subscriptions[channel] {
		subs[id] = struct{}{}
	}
	return subs
}

// Channels returns a copy of the channel set of a connection.
func (cm *ChannelManager) Channels(connectionID string) map[string]struct{} {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	chans := make(map[string]struct{}, len(cm.channels[connectionID]))
	for channel := range cm.channels[connectionID] {
		chans[channel] = struct{}{}
	}
	return chans
}

// ChannelCount returns the number of channels with at least one subscriber.
func (cm *ChannelManager) ChannelCount() int {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return len(cm.subscriptions)
}
