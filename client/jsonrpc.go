package client

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/gesturekit/gesturekit/commands"
	"github.com/gesturekit/gesturekit/utils"
)

type jsonRPCRequest struct {
	JSONRPC string      `json:"jsonrpc"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params"`
	ID      int64       `json:"id"`
}

type jsonRPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

type jsonRPCResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *jsonRPCError   `json:"error,omitempty"`
	ID      int64           `json:"id"`
}

// wsMessage covers both responses and notifications on the wire. A nil
// ID with a method set marks a server push.
type wsMessage struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *jsonRPCError   `json:"error,omitempty"`
	ID      *int64          `json:"id,omitempty"`
}

func (c *Client) dispatchNotification(msg wsMessage) {
	if msg.Method != "gesture_event" {
		utils.Verbose("ignoring notification %q", msg.Method)
		return
	}

	var event commands.GestureEvent
	if err := json.Unmarshal(msg.Params, &event); err != nil {
		utils.Verbose("malformed gesture_event notification: %v", err)
		return
	}

	c.mu.Lock()
	handler := c.onEvent
	c.mu.Unlock()

	if handler != nil {
		handler(event)
	}
}

func (c *Client) call(method string, params interface{}) (json.RawMessage, error) {
	return c.callWithTimeout(method, params, 5*time.Second)
}

func (c *Client) callWithTimeout(method string, params interface{}, timeout time.Duration) (json.RawMessage, error) {
	if err := c.connect(); err != nil {
		return nil, err
	}

	id := c.requestID.Add(1)

	req := jsonRPCRequest{
		JSONRPC: "2.0",
		Method:  method,
		Params:  params,
		ID:      id,
	}

	ch := make(chan jsonRPCResponse, 1)

	c.mu.Lock()
	if c.conn == nil {
		c.mu.Unlock()
		return nil, fmt.Errorf("WebSocket connection closed")
	}
	c.pending[id] = ch
	err := c.conn.WriteJSON(req)
	c.mu.Unlock()

	if err != nil {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
		return nil, fmt.Errorf("failed to send request to %s: %w", method, err)
	}

	select {
	case resp, ok := <-ch:
		if !ok {
			return nil, fmt.Errorf("WebSocket connection closed while waiting for %s", method)
		}
		if resp.Error != nil {
			return nil, fmt.Errorf("JSON-RPC error %d: %s", resp.Error.Code, resp.Error.Message)
		}
		return resp.Result, nil

	case <-time.After(timeout):
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
		return nil, fmt.Errorf("timeout waiting for response to %s", method)
	}
}
