// Package client is a Go host for a gesturekit server: it feeds raw
// touch input over a single websocket connection and receives
// recognized gestures either by polling or as pushed notifications.
package client

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/gesturekit/gesturekit/commands"
	"github.com/gesturekit/gesturekit/utils"
)

type Client struct {
	httpURL    string
	wsURL      string
	authToken  string
	httpClient *http.Client
	requestID  atomic.Int64

	mu       sync.Mutex
	conn     *websocket.Conn
	pending  map[int64]chan jsonRPCResponse
	onEvent  func(commands.GestureEvent)
	closeErr error
}

func NewClient(hostname string, port int) *Client {
	httpURL := fmt.Sprintf("http://%s:%d", hostname, port)
	wsURL := fmt.Sprintf("ws://%s:%d", hostname, port)

	return &Client{
		httpURL: httpURL,
		wsURL:   wsURL,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		pending: make(map[int64]chan jsonRPCResponse),
	}
}

// SetAuthToken sets the bearer token sent with every request. Call it
// before the first method call.
func (c *Client) SetAuthToken(token string) {
	c.authToken = token
}

// OnGestureEvent registers the handler for pushed gesture_event
// notifications. Sessions created over this connection deliver their
// events here instead of the poll queue.
func (c *Client) OnGestureEvent(fn func(commands.GestureEvent)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onEvent = fn
}

func (c *Client) connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		return nil
	}

	url := fmt.Sprintf("%s/rpc", c.wsURL)
	var header http.Header
	if c.authToken != "" {
		header = http.Header{"Authorization": {"Bearer " + c.authToken}}
	}
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	if err != nil {
		return fmt.Errorf("failed to connect to gesture server: %w", err)
	}

	c.conn = conn
	c.closeErr = nil
	go c.readLoop(conn)

	return nil
}

func (c *Client) readLoop(conn *websocket.Conn) {
	for {
		var msg wsMessage
		err := conn.ReadJSON(&msg)
		if err != nil {
			c.mu.Lock()
			c.closeErr = err
			c.conn = nil
			for _, ch := range c.pending {
				close(ch)
			}
			c.pending = make(map[int64]chan jsonRPCResponse)
			c.mu.Unlock()
			return
		}

		// server-initiated notifications carry a method and no id
		if msg.ID == nil {
			c.dispatchNotification(msg)
			continue
		}

		c.mu.Lock()
		ch, ok := c.pending[*msg.ID]
		if ok {
			delete(c.pending, *msg.ID)
		}
		c.mu.Unlock()

		if ok {
			ch <- jsonRPCResponse{Result: msg.Result, Error: msg.Error, ID: *msg.ID}
		}
	}
}

func (c *Client) Close() {
	c.mu.Lock()
	pending := c.pending
	c.pending = make(map[int64]chan jsonRPCResponse)
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
	c.mu.Unlock()

	for _, ch := range pending {
		close(ch)
	}
}

// HealthCheck verifies the server banner answers.
func (c *Client) HealthCheck() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, "GET", c.httpURL+"/", nil)
	if err != nil {
		return fmt.Errorf("failed to create health check request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

func (c *Client) WaitForReady(timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("timed out waiting for gesture server to be ready")
		case <-ticker.C:
			err := c.HealthCheck()
			if err != nil {
				utils.Verbose("gesture server not ready yet: %v", err)
				continue
			}
			return nil
		}
	}
}
