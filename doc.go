// Package realtime provides a real-time publish/subscribe message broker for
// Go: persistent client connections organized into named channels, message
// fanout to channel subscribers plus explicit recipients, and clustering of
// multiple broker instances over a shared pub/sub bus so they behave as one
// logical message bus.
//
// Works both as a library for embedding in your application AND as a
// standalone server with a websocket endpoint and REST API.
//
// # Features
//
//   - Channel-based fanout with explicit-recipient delivery
//   - Structured channel naming: global/system/alerts, command/operations/
//     safety/logistics, per task force, deployment, functional group and user
//   - Private per-user channels with permission-checked subscriptions
//   - Heartbeat monitoring with automatic eviction of silent connections
//   - Bounded per-connection outbound queues with slow-consumer eviction
//   - Cluster fanout over NATS with loop-free inbound delivery
//   - Local-only mode as a first-class deployment (no bus required)
//   - Advisory retention of ack-required messages (in-memory or SQL via
//     Relica adapters: MySQL, PostgreSQL, SQLite)
//   - Options Pattern for service configuration
//   - Pluggable Logger; bring zerolog, zap, or nothing
//
// # Quick Start
//
// # Option 1: As Embedded Library
//
//	broker, err := realtime.NewBroker(
//	    realtime.WithLogger(logger),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	ctx := context.Background()
//	if err := broker.Initialize(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer broker.Shutdown(ctx)
//
//	// Register connections as clients complete their transport handshake.
//	conn := realtime.NewConnection(transport, "user-17", "task_force_leader")
//	broker.AddConnection(conn)
//
//	// Inject messages from business logic.
//	m := model.NewMessage(model.TypeOperationUpdate, model.ChannelOperations, "dispatch", payload)
//	broker.Publish(ctx, m)
//
// Enable clustering by supplying a bus:
//
//	bus, err := natsbus.Connect(os.Getenv("NATS_URL"))
//	if err != nil {
//	    log.Fatal(err) // or continue local-only
//	}
//
//	broker, err := realtime.NewBroker(
//	    realtime.WithClusterBus(bus),
//	    realtime.WithLogger(logger),
//	)
//
// # Option 2: As Standalone Server
//
// Run cmd/realtime-server and point clients at ws://host:8080/ws. The server
// reads the authenticated identity from X-User-ID / X-User-Role headers
// supplied by the fronting auth layer.
//
//	# Publish from business logic
//	curl -X POST http://localhost:8080/api/v1/publish \
//	  -H "Content-Type: application/json" \
//	  -d '{"type":"operation_update","channel":"operations","content":{"status":"staging"}}'
//
//	# Observability snapshot
//	curl http://localhost:8080/api/v1/stats
//
// # Architecture
//
//	┌─────────────────────────────────────┐
//	│        Transport Layer              │
//	│  (websocket endpoint, REST API)     │
//	└─────────────┬───────────────────────┘
//	              │
//	┌─────────────▼───────────────────────┐
//	│        Broker                       │
//	│  (registry, fanout, heartbeats,     │
//	│   handlers, permission checks)      │
//	└────┬──────────────────────────┬─────┘
//	     │                          │
//	┌────▼─────────────┐   ┌────────▼──────────┐
//	│  ClusterBridge   │   │  ArchiveRepository │
//	│  (NATS adapter)  │   │  (Relica adapter)  │
//	└──────────────────┘   └───────────────────┘
//
// Key principles:
//   - The broker owns all mutable state (connection registry, subscription
//     indexes, handler table); nothing is package-level
//   - Interfaces at the root (Transport, ClusterBus, ArchiveRepository),
//     implementations under adapters/
//   - Inbound cluster messages take the local-only delivery path, so a
//     message never cycles publish → cluster → publish
//   - Cluster and archive failures degrade to local delivery; nothing in the
//     broker is fatal to the process
//
// # Message Flow
//
//  1. CLIENT FRAME
//     HandleClientMessage → heartbeat/subscribe handled in place
//     → everything else becomes a Message and is published
//
//  2. PUBLISH
//     archive if requiresAck → deliver to local subscribers + recipient
//     → forward to cluster → run registered handlers
//
//  3. CLUSTER INBOUND
//     decode → deliver to local subscribers only (no re-publish)
//
// # Retention
//
// Messages with requiresAck are appended to a per-channel archive with a one
// hour expiry and purged in the background. This is advisory retention for
// late retrieval, not a durable log: there is no acknowledgment tracking and
// no redelivery.
//
// See the examples/ directory and cmd/realtime-server for complete usage.
package realtime
