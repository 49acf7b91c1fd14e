// Package relay carries broadcasts between server instances over Redis pub/sub.
//
// Every instance publishes the frames it fans out locally on the channel
// "<prefix><documentId>" and pattern-subscribes to "<prefix>*". Messages carry
// the id of the publishing instance so that an instance never redelivers its
// own broadcasts.
package relay
