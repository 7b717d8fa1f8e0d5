// internal/handlers/ws_codes.go
package handlers

// Custom WebSocket close codes, more specific than the standard set.
const (
	BadSubprotocolError   = 3000 // Client connected with an unsupported subprotocol.
	InvalidAuthTokenError = 3001 // Auth token was invalid or expired.
)
