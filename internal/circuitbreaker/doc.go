// Package circuitbreaker stops calling a failing dependency for a while.
//
// The sync server uses it to guard publishes to the cross-instance relay, so
// that an unreachable Redis costs one fast check per broadcast instead of a
// network timeout. It has three states:
//
//   - CLOSED: normal operation, calls pass through
//   - OPEN: dependency failing, calls rejected with ErrOpen
//   - HALF-OPEN: reset timeout elapsed, one probe call is let through
//
// Usage:
//
//	cb := circuitbreaker.New(5, 30*time.Second)
//	err := cb.Do(func() error {
//	    return publish(ctx, msg)
//	})
//	if errors.Is(err, circuitbreaker.ErrOpen) {
//	    // skipped
//	}
package circuitbreaker
