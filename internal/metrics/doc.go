// Package metrics collects operational counters for the sync server.
//
// It uses a channel-based event pipeline so that the connection read loops and
// the broadcast path never block on bookkeeping:
//   - connections opened and closed
//   - inbound frames per message type, and malformed frames
//   - broadcasts, per-member deliveries and delivery failures
//   - relay publish failures
//
// The collector runs in a dedicated goroutine. Emit never blocks; when the
// buffer is full the event is dropped.
//
// Example usage:
//
//	collector := metrics.NewCollector(1024, logger)
//	collector.Start(ctx)
//
//	collector.Emit(metrics.Event{Type: metrics.EventFrameReceived, FrameType: "text-update"})
//
//	snapshot := collector.Snapshot()
//
// Remaining events are drained when the context is cancelled.
package metrics
