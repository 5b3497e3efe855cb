package server

import (
	"encoding/json"
	"fmt"
)

// HandlerFunc is the signature for non-streaming JSON-RPC method handlers
type HandlerFunc func(params json.RawMessage) (interface{}, error)

// GetMethodRegistry returns a map of method names to handler functions
// This is used by both the WebSocket handler and embedded clients.
// server_shutdown is deliberately absent: it needs the running server
// and is only honored on the HTTP endpoint.
func GetMethodRegistry() map[string]HandlerFunc {
	return map[string]HandlerFunc{
		"sessions":       handleSessionsList,
		"session_create": handleSessionCreate,
		"session_close":  handleSessionClose,
		"session_state":  handleSessionState,
		"touch_start":    handleTouchStart,
		"touch_move":     handleTouchMove,
		"touch_end":      handleTouchEnd,
		"direction_set":  handleDirectionSet,
		"events_poll":    handleEventsPoll,
		"replay":         handleReplay,
	}
}

// Execute dispatches a method call using the registry
// This is the main entry point for embedded clients
func Execute(method string, params json.RawMessage) (interface{}, error) {
	registry := GetMethodRegistry()

	handler, exists := registry[method]
	if !exists {
		return nil, fmt.Errorf("method not found: %s", method)
	}

	return handler(params)
}
