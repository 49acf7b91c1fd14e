// Package handler implements the HTTP surface of the service: the WebSocket
// endpoint that feeds the message router, the authenticated analytics
// endpoints, the status banner and health report, and shared middleware.
package handler
