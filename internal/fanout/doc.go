// Package fanout delivers a payload to every member of a document room except
// the connection that produced it.
//
// Delivery is best effort. Members whose transport is closed are skipped, a
// failed write is logged and counted without interrupting delivery to the
// remaining members, and nothing is retried or queued: a member that misses a
// broadcast never receives it.
//
// When a relay is configured, locally originated broadcasts are also published
// for other server instances, and frames arriving from them are delivered to
// every local member through DeliverRemote.
package fanout
