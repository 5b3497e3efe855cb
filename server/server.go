package server

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gesturekit/gesturekit/commands"
	"github.com/gesturekit/gesturekit/config"
	"github.com/gesturekit/gesturekit/trace"
	"github.com/gesturekit/gesturekit/types"
	"github.com/gesturekit/gesturekit/utils"
)

const (
	// Parse error: Invalid JSON was received by the server
	ErrCodeParseError = -32700

	// Invalid Request: The JSON sent is not a valid Request object
	ErrCodeInvalidRequest = -32600

	// Method not found: The method does not exist / is not available
	ErrCodeMethodNotFound = -32601

	// Server error: Internal JSON-RPC error
	ErrCodeServerError = -32000

	// Invalid params: Invalid method parameters
	ErrCodeInvalidParams = -32602

	// Internal error: Internal JSON-RPC error
	ErrCodeInternalError = -32603
)

// Server timeouts
const (
	ReadTimeout     = 10 * time.Second
	WriteTimeout    = 10 * time.Second
	IdleTimeout     = 120 * time.Second
	ShutdownTimeout = 5 * time.Second
)

var okResponse = map[string]interface{}{"status": "ok"}

type JSONRPCRequest struct {
	// these fields are all omitempty, so we can report back to client if they are missing
	JSONRPC string          `json:"jsonrpc,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	ID      interface{}     `json:"id,omitempty"`
}

// JSONRPCResponse represents a JSON-RPC response
type JSONRPCResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	Result  interface{} `json:"result,omitempty"`
	Error   interface{} `json:"error,omitempty"`
	ID      interface{} `json:"id"`
}

// JSONRPCNotification is a server-initiated message without an ID,
// used to push gesture events to websocket hosts.
type JSONRPCNotification struct {
	JSONRPC string      `json:"jsonrpc"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params"`
}

// Options configure the RPC server.
type Options struct {
	// EnableCORS allows cross-origin requests and websocket upgrades.
	EnableCORS bool
	// RequireAuth guards /rpc with a bearer token check.
	RequireAuth bool
	// AuthToken is the expected bearer token when RequireAuth is set.
	AuthToken string
}

// Server serves the gesture recognition API over JSON-RPC: HTTP POST
// and websocket upgrades share the /rpc endpoint.
type Server struct {
	opts         Options
	httpServer   *http.Server
	shutdownOnce sync.Once
}

// NewServer builds a server bound to addr. A bare port is accepted and
// expanded to ":port".
func NewServer(addr string, opts Options) (*Server, error) {
	// if host is missing, default to localhost
	if !strings.Contains(addr, ":") {
		// convert addr to integer
		port, err := strconv.Atoi(addr)
		if err != nil {
			return nil, fmt.Errorf("invalid port: %v", err)
		}

		addr = fmt.Sprintf(":%d", port)
	}

	s := &Server{opts: opts}
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  ReadTimeout,
		WriteTimeout: WriteTimeout,
		IdleTimeout:  IdleTimeout,
	}
	return s, nil
}

// StartServer runs a server until it fails or a server_shutdown
// request stops it. Live sessions are torn down before it returns.
func StartServer(addr string, opts Options) error {
	s, err := NewServer(addr, opts)
	if err != nil {
		return err
	}
	return s.ListenAndServe()
}

// Handler returns the composed HTTP handler, also used by in-process
// tests.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", sendBanner)
	mux.HandleFunc("/rpc", s.handleRPC)

	var handler http.Handler = mux
	if s.opts.RequireAuth {
		handler = s.authMiddleware(handler)
	}
	if s.opts.EnableCORS {
		handler = corsMiddleware(handler)
	}
	return handler
}

// ListenAndServe blocks until the server stops. Whatever the cause,
// every live session is closed on the way out so no long-press timer
// outlives the server.
func (s *Server) ListenAndServe() error {
	utils.Info("Starting server on http://%s...", s.httpServer.Addr)
	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		err = nil
	}
	commands.ActiveEngine().CloseAll()
	return err
}

// requestShutdown begins a graceful stop. It returns immediately so
// the triggering RPC can still be answered.
func (s *Server) requestShutdown() {
	s.shutdownOnce.Do(func() {
		utils.Info("Shutdown requested")
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
			defer cancel()
			_ = s.httpServer.Shutdown(ctx)
		}()
	})
}

// corsMiddleware handles CORS preflight requests and adds CORS headers to responses.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// authMiddleware enforces the bearer token on /rpc. The banner stays
// open so health checks work without credentials.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rpc" {
			next.ServeHTTP(w, r)
			return
		}
		token := bearerToken(r)
		if token == "" || subtle.ConstantTimeCompare([]byte(token), []byte(s.opts.AuthToken)) != 1 {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(auth) > len(prefix) && strings.EqualFold(auth[:len(prefix)], prefix) {
		return auth[len(prefix):]
	}
	return ""
}

// handleRPC serves the /rpc endpoint: websocket upgrades and HTTP POST
// requests share it, everything else is rejected.
func (s *Server) handleRPC(w http.ResponseWriter, r *http.Request) {
	if isWebSocketUpgrade(r) {
		s.handleWebSocket(w, r)
		return
	}
	s.handleJSONRPC(w, r)
}

func (s *Server) handleJSONRPC(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req JSONRPCRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendJSONRPCError(w, nil, ErrCodeParseError, errTitleParseError, errMsgParseError)
		return
	}

	if req.JSONRPC != "2.0" {
		sendJSONRPCError(w, req.ID, ErrCodeInvalidRequest, errTitleInvalidReq, errMsgInvalidJSONRPC)
		return
	}

	if req.ID == nil {
		sendJSONRPCError(w, nil, ErrCodeInvalidRequest, errTitleInvalidReq, errMsgIDRequired)
		return
	}

	utils.Verbose("Request ID: %v, Method: %s, Params: %s", req.ID, req.Method, string(req.Params))

	var result interface{}
	var err error

	switch req.Method {
	case "sessions":
		result, err = handleSessionsList(req.Params)
	case "session_create":
		result, err = handleSessionCreate(req.Params)
	case "session_close":
		result, err = handleSessionClose(req.Params)
	case "session_state":
		result, err = handleSessionState(req.Params)
	case "touch_start":
		result, err = handleTouchStart(req.Params)
	case "touch_move":
		result, err = handleTouchMove(req.Params)
	case "touch_end":
		result, err = handleTouchEnd(req.Params)
	case "direction_set":
		result, err = handleDirectionSet(req.Params)
	case "events_poll":
		result, err = handleEventsPoll(req.Params)
	case "replay":
		result, err = handleReplay(req.Params)
	case "server_shutdown":
		s.requestShutdown()
		result = okResponse
	case "":
		err = fmt.Errorf("'method' is required")

	default:
		sendJSONRPCError(w, req.ID, ErrCodeMethodNotFound, "Method not found", fmt.Sprintf("Method '%s' not found", req.Method))
		return
	}

	if err != nil {
		log.Printf("Error executing method %s: %v", req.Method, err)
		sendJSONRPCError(w, req.ID, ErrCodeServerError, "Server error", err.Error())
		return
	}

	sendJSONRPCResponse(w, req.ID, result)
}

// SessionCreateParams for session_create method
type SessionCreateParams struct {
	SessionID string         `json:"sessionId,omitempty"`
	Config    *config.Tuning `json:"config,omitempty"`
}

// SessionParams for methods addressing one session
type SessionParams struct {
	SessionID string `json:"sessionId,omitempty"`
}

// EventsPollParams for events_poll method
type EventsPollParams struct {
	SessionID string `json:"sessionId,omitempty"`
	Max       int    `json:"max,omitempty"`
}

// ReplayParams for replay method; the trace travels inline so remote
// hosts do not need filesystem access on the server.
type ReplayParams struct {
	Events []trace.Event  `json:"events"`
	Config *config.Tuning `json:"config,omitempty"`
}

func handleSessionsList(params json.RawMessage) (interface{}, error) {
	return commandResult(commands.SessionsCommand())
}

func handleSessionCreate(params json.RawMessage) (interface{}, error) {
	var createParams SessionCreateParams
	if len(params) > 0 {
		if err := json.Unmarshal(params, &createParams); err != nil {
			return nil, fmt.Errorf("invalid parameters: %v", err)
		}
	}

	return commandResult(commands.SessionCreateCommand(commands.SessionCreateRequest{
		SessionID: createParams.SessionID,
		Tuning:    createParams.Config,
	}))
}

func handleSessionClose(params json.RawMessage) (interface{}, error) {
	var sessionParams SessionParams
	if len(params) > 0 {
		if err := json.Unmarshal(params, &sessionParams); err != nil {
			return nil, fmt.Errorf("invalid parameters: %v", err)
		}
	}

	return commandResult(commands.SessionCloseCommand(commands.SessionCloseRequest{
		SessionID: sessionParams.SessionID,
	}))
}

func handleSessionState(params json.RawMessage) (interface{}, error) {
	var sessionParams SessionParams
	if len(params) > 0 {
		if err := json.Unmarshal(params, &sessionParams); err != nil {
			return nil, fmt.Errorf("invalid parameters: %v", err)
		}
	}

	return commandResult(commands.SessionStateCommand(commands.SessionStateRequest{
		SessionID: sessionParams.SessionID,
	}))
}

func handleTouchStart(params json.RawMessage) (interface{}, error) {
	touchParams, err := parseTouchParams(params)
	if err != nil {
		return nil, err
	}
	return commandResult(commands.TouchStartCommand(touchParams))
}

func handleTouchMove(params json.RawMessage) (interface{}, error) {
	touchParams, err := parseTouchParams(params)
	if err != nil {
		return nil, err
	}
	return commandResult(commands.TouchMoveCommand(touchParams))
}

func handleTouchEnd(params json.RawMessage) (interface{}, error) {
	touchParams, err := parseTouchParams(params)
	if err != nil {
		return nil, err
	}
	return commandResult(commands.TouchEndCommand(touchParams))
}

func parseTouchParams(params json.RawMessage) (types.TouchEventParams, error) {
	var touchParams types.TouchEventParams
	if len(params) == 0 {
		return touchParams, fmt.Errorf("parameters are required")
	}
	if err := json.Unmarshal(params, &touchParams); err != nil {
		return touchParams, fmt.Errorf("invalid parameters: %v", err)
	}
	return touchParams, nil
}

func handleDirectionSet(params json.RawMessage) (interface{}, error) {
	var directionParams types.DirectionParams
	if len(params) > 0 {
		if err := json.Unmarshal(params, &directionParams); err != nil {
			return nil, fmt.Errorf("invalid parameters: %v", err)
		}
	}

	return commandResult(commands.DirectionSetCommand(directionParams))
}

func handleEventsPoll(params json.RawMessage) (interface{}, error) {
	var pollParams EventsPollParams
	if len(params) > 0 {
		if err := json.Unmarshal(params, &pollParams); err != nil {
			return nil, fmt.Errorf("invalid parameters: %v", err)
		}
	}

	return commandResult(commands.EventsPollCommand(commands.EventsPollRequest{
		SessionID: pollParams.SessionID,
		Max:       pollParams.Max,
	}))
}

func handleReplay(params json.RawMessage) (interface{}, error) {
	var replayParams ReplayParams
	if len(params) == 0 {
		return nil, fmt.Errorf("parameters are required")
	}
	if err := json.Unmarshal(params, &replayParams); err != nil {
		return nil, fmt.Errorf("invalid parameters: %v", err)
	}
	if len(replayParams.Events) == 0 {
		return nil, fmt.Errorf("'events' must not be empty")
	}
	for i := range replayParams.Events {
		if err := replayParams.Events[i].Validate(); err != nil {
			return nil, fmt.Errorf("event %d: %v", i, err)
		}
	}

	result, err := commands.Replay(replayParams.Events, replayParams.Config)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// commandResult unwraps a CommandResponse into the JSON-RPC result or
// error position.
func commandResult(resp *commands.CommandResponse) (interface{}, error) {
	if resp.Status != "ok" {
		return nil, fmt.Errorf("%s", resp.Error)
	}
	return resp.Data, nil
}

func sendJSONRPCResponse(w http.ResponseWriter, id interface{}, result interface{}) {
	response := JSONRPCResponse{
		JSONRPC: "2.0",
		Result:  result,
		ID:      id,
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(response)
}

func sendJSONRPCError(w http.ResponseWriter, id interface{}, code int, message string, data interface{}) {
	response := JSONRPCResponse{
		JSONRPC: "2.0",
		Error: map[string]interface{}{
			"code":    code,
			"message": message,
			"data":    data,
		},
		ID: id,
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(response)
}

func sendBanner(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(okResponse)
}
