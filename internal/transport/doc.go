// Package transport adapts a gorilla/websocket connection to the registry.Conn
// interface: a stable id, serialized writes with a deadline, an open flag that
// flips on the first transport failure, and ping-based liveness detection.
package transport
