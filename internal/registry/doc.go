// Package registry tracks live connections and the document room each one
// belongs to.
//
// A room is the set of connections associated with one document id. Rooms are
// created on first join and removed as soon as their last member leaves, so an
// empty room is never retained. A connection is a member of at most one room:
// joining a different document moves it out of its previous room.
//
// The registry references connections through the Conn interface and never
// closes them; the transport layer owns their lifetime.
package registry
