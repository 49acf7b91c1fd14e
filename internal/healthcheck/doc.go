// Package healthcheck periodically pings the service's external dependencies
// (the document database and the relay broker) and keeps their last known
// state for the /healthz endpoint.
package healthcheck
