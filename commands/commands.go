package commands

import (
	"fmt"
	"strings"
	"sync"
)

// CommandResponse represents a standardized response format for all commands
type CommandResponse struct {
	Status string      `json:"status"`
	Data   interface{} `json:"data,omitempty"`
	Error  string      `json:"error,omitempty"`
}

// NewSuccessResponse creates a success response
func NewSuccessResponse(data interface{}) *CommandResponse {
	return &CommandResponse{
		Status: "ok",
		Data:   data,
	}
}

// NewErrorResponse creates an error response
func NewErrorResponse(err error) *CommandResponse {
	return &CommandResponse{
		Status: "error",
		Error:  err.Error(),
	}
}

// sessionEngine holds the engine the command layer operates on.
// It is set at application startup via SetEngine and used by commands to
// create, look up and tear down recognizer sessions. ActiveEngine lazily
// builds a default engine so one-shot CLI commands work without wiring.
var (
	engineMu      sync.Mutex
	sessionEngine *Engine
)

// SetEngine sets the global session engine. Called once at application
// startup (main.go or the server command); the previous engine, if any,
// is left for its owner to close.
func SetEngine(engine *Engine) {
	engineMu.Lock()
	defer engineMu.Unlock()
	sessionEngine = engine
}

// ActiveEngine returns the current session engine, creating a default
// one on first use.
func ActiveEngine() *Engine {
	engineMu.Lock()
	defer engineMu.Unlock()
	if sessionEngine == nil {
		sessionEngine = NewEngine(EngineOptions{})
	}
	return sessionEngine
}

// FindSession finds a session by ID
func FindSession(sessionID string) (*Session, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("session ID is required")
	}
	session, ok := ActiveEngine().Session(sessionID)
	if !ok {
		return nil, fmt.Errorf("session not found: %s", sessionID)
	}
	return session, nil
}

// FindSessionOrAutoSelect finds a session by ID, or auto-selects when
// sessionID is empty and exactly one session is live
func FindSessionOrAutoSelect(sessionID string) (*Session, error) {
	if sessionID != "" {
		return FindSession(sessionID)
	}

	sessions := ActiveEngine().Sessions()
	if len(sessions) == 0 {
		return nil, fmt.Errorf("no active sessions")
	}
	if len(sessions) > 1 {
		return nil, fmt.Errorf("multiple sessions found (%d), please specify sessionId with one of: %s",
			len(sessions), getSessionIDList(sessions))
	}
	return FindSession(sessions[0].ID)
}

// getSessionIDList returns a comma-separated list of session IDs for error messages
func getSessionIDList(sessions []SessionInfo) string {
	var ids []string
	for _, s := range sessions {
		ids = append(ids, s.ID)
	}
	return fmt.Sprintf("[%s]", strings.Join(ids, ", "))
}
