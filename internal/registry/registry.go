package registry

import (
	"sync"
)

// Conn is the registry's view of a live connection.
type Conn interface {
	ID() string
	Send(payload []byte) error
	IsOpen() bool
}

const (
	StatusJoined        = "joined"
	StatusAlreadyJoined = "already-joined"
)

// JoinResult confirms a join. Left names the room the connection was moved out
// of, if any.
type JoinResult struct {
	DocumentID string `json:"documentId"`
	Status     string `json:"status"`
	Left       string `json:"left,omitempty"`
}

type Stats struct {
	Rooms       int `json:"rooms"`
	Connections int `json:"connections"`
}

type Registry struct {
	mutex sync.RWMutex
	rooms map[string]map[string]Conn // document id -> connection id -> conn
	index map[string]string          // connection id -> document id
}

func New() *Registry {
	return &Registry{
		rooms: make(map[string]map[string]Conn),
		index: make(map[string]string),
	}
}

// Join adds conn to the room for documentID. Joining the room the connection is
// already in is a no-op.
func (r *Registry) Join(conn Conn, documentID string) JoinResult {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	id := conn.ID()
	result := JoinResult{DocumentID: documentID, Status: StatusJoined}

	if current, ok := r.index[id]; ok {
		if current == documentID {
			result.Status = StatusAlreadyJoined
			return result
		}
		r.removeLocked(id, current)
		result.Left = current
	}

	room, exists := r.rooms[documentID]
	if !exists {
		room = make(map[string]Conn)
		r.rooms[documentID] = room
	}
	room[id] = conn
	r.index[id] = documentID

	return result
}

// Leave removes conn from its room. It reports the room it left; leaving while
// in no room is a no-op.
func (r *Registry) Leave(conn Conn) (string, bool) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	id := conn.ID()
	documentID, ok := r.index[id]
	if !ok {
		return "", false
	}

	r.removeLocked(id, documentID)
	return documentID, true
}

// removeLocked drops the connection from both indexes and deletes the room once
// it is empty. Callers hold the write lock.
func (r *Registry) removeLocked(connID, documentID string) {
	delete(r.index, connID)

	room, ok := r.rooms[documentID]
	if !ok {
		return
	}
	delete(room, connID)
	if len(room) == 0 {
		delete(r.rooms, documentID)
	}
}

// Members returns a snapshot of the room's connections in no particular order.
func (r *Registry) Members(documentID string) []Conn {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	room := r.rooms[documentID]
	members := make([]Conn, 0, len(room))
	for _, conn := range room {
		members = append(members, conn)
	}

	return members
}

// RoomOf returns the document the connection is currently joined to.
func (r *Registry) RoomOf(conn Conn) (string, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	documentID, ok := r.index[conn.ID()]
	return documentID, ok
}

// HasRoom reports whether a room entry exists for documentID.
func (r *Registry) HasRoom(documentID string) bool {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	_, ok := r.rooms[documentID]
	return ok
}

func (r *Registry) Stats() Stats {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	return Stats{
		Rooms:       len(r.rooms),
		Connections: len(r.index),
	}
}
