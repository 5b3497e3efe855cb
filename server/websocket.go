package server

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/gesturekit/gesturekit/commands"
	"github.com/gesturekit/gesturekit/utils"
)

const (
	errTitleParseError    = "Parse error"
	errTitleInvalidReq    = "Invalid Request"
	errTitleMethodNotSupp = "Method not supported"

	errMsgParseError     = "expecting jsonrpc payload"
	errMsgInvalidJSONRPC = "'jsonrpc' must be '2.0'"
	errMsgIDRequired     = "'id' field is required"
	errMsgMethodRequired = "'method' is required"
	errMsgTextOnly       = "only text messages accepted for requests"
	errMsgShutdown       = "server_shutdown not supported over WebSocket, use HTTP /rpc endpoint"
)

// wsConnection wraps a websocket connection and the sessions created
// over it. Those sessions push their gesture events through this
// connection and are closed when it goes away.
type wsConnection struct {
	conn    *websocket.Conn
	writeMu sync.Mutex

	mu       sync.Mutex
	sessions map[string]bool
}

func newUpgrader(enableCORS bool) *websocket.Upgrader {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
	}

	if enableCORS {
		upgrader.CheckOrigin = func(r *http.Request) bool {
			return true
		}
	} else {
		upgrader.CheckOrigin = isSameOrigin
	}

	return &upgrader
}

func isWebSocketUpgrade(r *http.Request) bool {
	return websocket.IsWebSocketUpgrade(r)
}

// NewWebSocketHandler returns a handler that upgrades every request.
// Used by in-process tests and embedders that route upgrades themselves.
func NewWebSocketHandler(enableCORS bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handleWebSocket(w, r, enableCORS)
	})
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	handleWebSocket(w, r, s.opts.EnableCORS)
}

func handleWebSocket(w http.ResponseWriter, r *http.Request, enableCORS bool) {
	conn, err := newUpgrader(enableCORS).Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	wsConn := &wsConnection{conn: conn}
	defer wsConn.cleanup()

	for {
		messageType, message, err := conn.ReadMessage()
		if err != nil {
			// connection closed or error
			utils.Verbose("WebSocket connection closed: %v", err)
			break
		}

		if messageType != websocket.TextMessage {
			wsConn.sendError(nil, ErrCodeInvalidRequest, errTitleInvalidReq, errMsgTextOnly)
			continue
		}

		handleWSMessage(wsConn, message)
	}
}

func isSameOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}

	originURL, err := url.Parse(origin)
	if err != nil {
		return false
	}

	return originURL.Host == r.Host
}

// rpcError is a validation failure to be reported to the client
type rpcError struct {
	code    int
	message string
	data    string
}

func validateJSONRPCRequest(req JSONRPCRequest) *rpcError {
	if req.JSONRPC != "2.0" {
		return &rpcError{code: ErrCodeInvalidRequest, message: errTitleInvalidReq, data: errMsgInvalidJSONRPC}
	}

	if req.ID == nil {
		return &rpcError{code: ErrCodeInvalidRequest, message: errTitleInvalidReq, data: errMsgIDRequired}
	}

	if req.Method == "" {
		return &rpcError{code: ErrCodeInvalidRequest, message: errTitleInvalidReq, data: errMsgMethodRequired}
	}

	// shutdown must answer over HTTP so the response is flushed before
	// the listener stops
	if req.Method == "server_shutdown" {
		return &rpcError{code: ErrCodeMethodNotFound, message: errTitleMethodNotSupp, data: errMsgShutdown}
	}

	return nil
}

func handleWSMessage(wsConn *wsConnection, message []byte) {
	var req JSONRPCRequest
	if err := json.Unmarshal(message, &req); err != nil {
		wsConn.sendError(nil, ErrCodeParseError, errTitleParseError, errMsgParseError)
		return
	}

	if verr := validateJSONRPCRequest(req); verr != nil {
		id := req.ID
		if verr.data == errMsgIDRequired {
			id = nil
		}
		wsConn.sendError(id, verr.code, verr.message, verr.data)
		return
	}

	utils.Verbose("WebSocket Request ID: %v, Method: %s, Params: %s", req.ID, req.Method, string(req.Params))

	handleWSMethodCall(wsConn, req)
}

func handleWSMethodCall(wsConn *wsConnection, req JSONRPCRequest) {
	// session_create and session_close are intercepted so sessions can
	// be bound to this connection for event push and teardown
	switch req.Method {
	case "session_create":
		result, err := wsConn.createSession(req.Params)
		wsConn.respond(req, result, err)
		return
	case "session_close":
		result, err := wsConn.closeSession(req.Params)
		wsConn.respond(req, result, err)
		return
	}

	registry := GetMethodRegistry()
	handler, exists := registry[req.Method]
	if !exists {
		wsConn.sendError(req.ID, ErrCodeMethodNotFound, "Method not found", req.Method+" not found")
		return
	}

	result, err := handler(req.Params)
	wsConn.respond(req, result, err)
}

func (wsc *wsConnection) respond(req JSONRPCRequest, result interface{}, err error) {
	if err != nil {
		log.Printf("Error executing method %s: %v", req.Method, err)
		wsc.sendError(req.ID, ErrCodeServerError, "Server error", err.Error())
		return
	}
	wsc.sendResponse(req.ID, result)
}

// createSession builds a session whose gesture events bypass the poll
// queue and are pushed to this connection as gesture_event
// notifications.
func (wsc *wsConnection) createSession(params json.RawMessage) (interface{}, error) {
	var createParams SessionCreateParams
	if len(params) > 0 {
		if err := json.Unmarshal(params, &createParams); err != nil {
			return nil, fmt.Errorf("invalid parameters: %v", err)
		}
	}

	session, err := commands.ActiveEngine().CreateSession(createParams.SessionID, createParams.Config)
	if err != nil {
		return nil, fmt.Errorf("error creating session: %v", err)
	}

	session.SetNotify(func(event commands.GestureEvent) {
		if err := wsc.sendNotification("gesture_event", event); err != nil {
			utils.Verbose("failed to push gesture event for %s: %v", event.SessionID, err)
		}
	})
	wsc.track(session.ID)

	return map[string]interface{}{
		"sessionId": session.ID,
		"rtl":       session.IsRTL(),
	}, nil
}

func (wsc *wsConnection) closeSession(params json.RawMessage) (interface{}, error) {
	var sessionParams SessionParams
	if len(params) > 0 {
		if err := json.Unmarshal(params, &sessionParams); err != nil {
			return nil, fmt.Errorf("invalid parameters: %v", err)
		}
	}

	result, err := commandResult(commands.SessionCloseCommand(commands.SessionCloseRequest{
		SessionID: sessionParams.SessionID,
	}))
	if err != nil {
		return nil, err
	}

	wsc.untrack(sessionParams.SessionID)
	return result, nil
}

func (wsc *wsConnection) track(id string) {
	wsc.mu.Lock()
	defer wsc.mu.Unlock()
	if wsc.sessions == nil {
		wsc.sessions = make(map[string]bool)
	}
	wsc.sessions[id] = true
}

func (wsc *wsConnection) untrack(id string) {
	wsc.mu.Lock()
	defer wsc.mu.Unlock()
	delete(wsc.sessions, id)
}

// cleanup closes every session created over this connection. A host
// that goes away must not leave recognizers running.
func (wsc *wsConnection) cleanup() {
	wsc.mu.Lock()
	ids := make([]string, 0, len(wsc.sessions))
	for id := range wsc.sessions {
		ids = append(ids, id)
	}
	wsc.sessions = nil
	wsc.mu.Unlock()

	for _, id := range ids {
		if commands.ActiveEngine().CloseSession(id) {
			utils.Verbose("closed session %s with its connection", id)
		}
	}
}

func (wsc *wsConnection) sendResponse(id interface{}, result interface{}) error {
	response := JSONRPCResponse{
		JSONRPC: "2.0",
		Result:  result,
		ID:      id,
	}
	return wsc.sendJSON(response)
}

func (wsc *wsConnection) sendError(id interface{}, code int, message string, data interface{}) error {
	response := JSONRPCResponse{
		JSONRPC: "2.0",
		Error: map[string]interface{}{
			"code":    code,
			"message": message,
			"data":    data,
		},
		ID: id,
	}
	return wsc.sendJSON(response)
}

func (wsc *wsConnection) sendNotification(method string, params interface{}) error {
	return wsc.sendJSON(JSONRPCNotification{
		JSONRPC: "2.0",
		Method:  method,
		Params:  params,
	})
}

func (wsc *wsConnection) sendJSON(v interface{}) error {
	wsc.writeMu.Lock()
	defer wsc.writeMu.Unlock()
	return wsc.conn.WriteJSON(v)
}
