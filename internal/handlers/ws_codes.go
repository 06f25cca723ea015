// internal/handlers/ws_codes.go
package handlers

import "github.com/coder/websocket"

// Custom WebSocket close codes used by the match channel.
// These provide more specific reasons for closure than standard codes.
const (
	BadSubprotocolError   websocket.StatusCode = 3000 // Client connected with an unsupported subprotocol.
	InvalidAuthTokenError websocket.StatusCode = 3001 // Token missing, invalid, or not matching the join identity.
	InvalidJoinError      websocket.StatusCode = 3002 // First message was not a well-formed join.
	SessionNotFoundError  websocket.StatusCode = 3003 // Session id unknown or already reaped.
	NotSeatedError        websocket.StatusCode = 3004 // Identity is not one of the session's two players.
	AlreadyConnectedError websocket.StatusCode = 3005 // Seat already has a live connection.
	SessionOverError      websocket.StatusCode = 3006 // Session already finished.
)
