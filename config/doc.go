// Package config loads the service configuration from a YAML file and
// environment variables and validates it. It covers the HTTP listener, logging,
// WebSocket limits, bearer-token verification, the document store, the optional
// Redis relay, dependency health checks and the operational metrics buffer.
package config
