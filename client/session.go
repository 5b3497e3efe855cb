package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gesturekit/gesturekit/commands"
	"github.com/gesturekit/gesturekit/config"
)

// CreateSession opens a recognizer session. An empty sessionID asks
// the server to generate one. The session is bound to this client's
// connection: its events arrive via OnGestureEvent and it is closed
// when the connection drops.
func (c *Client) CreateSession(sessionID string, tuning *config.Tuning) (string, bool, error) {
	params := map[string]interface{}{}
	if sessionID != "" {
		params["sessionId"] = sessionID
	}
	if tuning != nil {
		params["config"] = tuning
	}

	result, err := c.call("session_create", params)
	if err != nil {
		return "", false, err
	}

	var created struct {
		SessionID string `json:"sessionId"`
		RTL       bool   `json:"rtl"`
	}
	if err := json.Unmarshal(result, &created); err != nil {
		return "", false, fmt.Errorf("malformed session_create result: %w", err)
	}
	return created.SessionID, created.RTL, nil
}

func (c *Client) CloseSession(sessionID string) error {
	params := map[string]interface{}{
		"sessionId": sessionID,
	}
	_, err := c.call("session_close", params)
	return err
}

func (c *Client) Sessions() ([]commands.SessionInfo, error) {
	result, err := c.call("sessions", map[string]interface{}{})
	if err != nil {
		return nil, err
	}

	var infos []commands.SessionInfo
	if err := json.Unmarshal(result, &infos); err != nil {
		return nil, fmt.Errorf("malformed sessions result: %w", err)
	}
	return infos, nil
}

func (c *Client) SessionState(sessionID string) (*commands.SessionInfo, error) {
	params := map[string]interface{}{
		"sessionId": sessionID,
	}
	result, err := c.call("session_state", params)
	if err != nil {
		return nil, err
	}

	var info commands.SessionInfo
	if err := json.Unmarshal(result, &info); err != nil {
		return nil, fmt.Errorf("malformed session_state result: %w", err)
	}
	return &info, nil
}

// Shutdown asks the server to stop. It goes over plain HTTP because
// the server refuses shutdown requests on websocket connections.
func (c *Client) Shutdown() error {
	payload := fmt.Sprintf(`{"jsonrpc":"2.0","method":"server_shutdown","id":%d}`, c.requestID.Add(1))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, "POST", c.httpURL+"/rpc", strings.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create shutdown request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("shutdown request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("shutdown request returned status %d", resp.StatusCode)
	}
	return nil
}
