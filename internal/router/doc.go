// Package router implements the per-connection protocol state machine.
//
// A Session starts Unjoined and becomes Joined(documentId) after a
// join-document frame; the state itself lives in the registry. Frames are
// handled one at a time, in the order the connection sent them. Edits are
// recorded in the analytics aggregator before they are relayed, so a relayed
// text-update is always already counted.
package router
