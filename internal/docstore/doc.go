// Package docstore looks up documents in durable storage.
//
// The sync core never talks to the store; only the HTTP analytics endpoints
// use it, to resolve the title shown next to a visualization. Postgres is the
// production implementation and Memory serves development and tests.
package docstore
