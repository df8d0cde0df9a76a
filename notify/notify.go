/* SPDX-License-Identifier: MPL-2.0
 * Copyright 2026 Vocaline SDK Contributors
 *
 * See CONTRIBUTORS.md for full contributor list.
 */

// Package notify implements the Vocaline push notification channel. It keeps
// a websocket open to the notification service and dispatches server-side
// signals (ring hints, credential refresh nudges, message-waiting) to
// registered handlers.
package notify

import (
	"encoding/json"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vocaline/vocaline-go-sdk/vocalinesdk"
)

// Config holds the configuration for the notify client
type Config struct {
	// URL is the websocket endpoint of the notification service.
	URL string

	PingInterval                time.Duration // Interval between ping messages
	PongTimeout                 time.Duration // Timeout for receiving a pong response
	BackoffTimeMax              time.Duration // Maximum time between connection attempts
	BackoffTimeReset            time.Duration // Initial time before the first retry
	MaxRetries                  int           // Number of times to retry before giving up
	InitialConnectionMaxRetries int           // Number of times to retry before giving up on the initial connection
}

// DefaultConfig returns the default configuration for the notify client
func DefaultConfig() *Config {
	return &Config{
		URL:                         "wss://push.vocaline.io/v1/channel",
		PingInterval:                30 * time.Second,
		PongTimeout:                 10 * time.Second,
		BackoffTimeMax:              32 * time.Second,
		BackoffTimeReset:            1 * time.Second,
		MaxRetries:                  3,
		InitialConnectionMaxRetries: 5,
	}
}

// EventHandler is a function that handles a notification event
type EventHandler func(event *Event)

// Event represents a notification channel event
type Event struct {
	ID             string                 `json:"id,omitempty"`
	Data           map[string]interface{} `json:"data,omitempty"`
	Timestamp      int64                  `json:"timestamp,omitempty"`
	SequenceNumber int64                  `json:"sequenceNumber,omitempty"`

	// EventType is populated from data.eventType during processing.
	EventType string `json:"-"`
}

// seenLimit bounds the redelivery dedupe window.
const seenLimit = 1024

// Client is the notification channel client
type Client struct {
	core   *vocalinesdk.Client
	config *Config

	mu             sync.Mutex
	conn           *websocket.Conn
	connected      bool
	connecting     bool
	hasConnected   bool
	eventHandlers  map[string][]EventHandler
	closeCh        chan struct{}
	retryCount     int
	currentBackoff time.Duration
	customURL      string

	// Redelivery dedupe: event IDs already dispatched, FIFO-bounded.
	seen      map[string]struct{}
	seenOrder []string
}

// New creates a new notify client
func New(core *vocalinesdk.Client, config *Config) *Client {
	if config == nil {
		config = DefaultConfig()
	}

	return &Client{
		core:           core,
		config:         config,
		eventHandlers:  make(map[string][]EventHandler),
		closeCh:        make(chan struct{}),
		currentBackoff: config.BackoffTimeReset,
		seen:           make(map[string]struct{}),
	}
}

// SetWebSocketURL overrides the notification service URL for this client
func (c *Client) SetWebSocketURL(url string) {
	c.mu.Lock()
	c.customURL = url
	c.mu.Unlock()
}

// Connect establishes a websocket connection to the notification service
func (c *Client) Connect() error {
	c.mu.Lock()
	if c.connected {
		c.mu.Unlock()
		return nil
	}

	if c.connecting {
		c.mu.Unlock()
		return fmt.Errorf("connection attempt already in progress")
	}

	c.connecting = true
	wsURL := c.customURL
	c.mu.Unlock()

	if wsURL == "" {
		wsURL = c.config.URL
	}

	return c.connectWithBackoff(wsURL)
}

// Disconnect closes the websocket connection
func (c *Client) Disconnect() error {
	c.mu.Lock()
	if !c.connected && !c.connecting {
		c.mu.Unlock()
		return nil
	}

	// Signal all goroutines to stop
	close(c.closeCh)

	// Create a fresh channel for future connections
	c.closeCh = make(chan struct{})

	conn := c.conn
	c.conn = nil
	c.connected = false
	c.connecting = false
	c.mu.Unlock()

	if conn != nil {
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "Disconnected by client"))
		_ = conn.Close()
	}

	return nil
}

// On registers an event handler for a specific event type. The event type
// "*" matches every event.
func (c *Client) On(eventType string, handler EventHandler) {
	if handler == nil {
		return
	}

	c.mu.Lock()
	c.eventHandlers[eventType] = append(c.eventHandlers[eventType], handler)
	c.mu.Unlock()
}

// Off removes an event handler for a specific event type
func (c *Client) Off(eventType string, handler EventHandler) {
	if handler == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	handlers, ok := c.eventHandlers[eventType]
	if !ok {
		return
	}

	// Find the handler by comparing function pointers
	handlerPtr := fmt.Sprintf("%p", handler)
	for i, h := range handlers {
		if fmt.Sprintf("%p", h) == handlerPtr {
			c.eventHandlers[eventType] = append(handlers[:i], handlers[i+1:]...)
			break
		}
	}

	if len(c.eventHandlers[eventType]) == 0 {
		delete(c.eventHandlers, eventType)
	}
}

// IsConnected returns whether the client is connected to the notification service
func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// connectWithBackoff attempts to connect with exponential backoff
func (c *Client) connectWithBackoff(wsURL string) error {
	c.retryCount = 0
	c.currentBackoff = c.config.BackoffTimeReset

	maxRetries := c.config.MaxRetries
	if !c.hasConnected {
		maxRetries = c.config.InitialConnectionMaxRetries
	}

	var err error
	for c.retryCount <= maxRetries {
		err = c.attemptConnection(wsURL)
		if err == nil {
			return nil
		}

		c.retryCount++
		if c.retryCount > maxRetries {
			break
		}

		// Wait for backoff time or until connection is closed
		select {
		case <-time.After(c.currentBackoff):
			c.currentBackoff *= 2
			if c.currentBackoff > c.config.BackoffTimeMax {
				c.currentBackoff = c.config.BackoffTimeMax
			}
		case <-c.closeCh:
			return nil
		}
	}

	c.mu.Lock()
	c.connecting = false
	c.mu.Unlock()
	return fmt.Errorf("failed to connect after %d attempts: %v", c.retryCount, err)
}

// attemptConnection makes a single connection attempt
func (c *Client) attemptConnection(wsURL string) error {
	token := c.core.GetAccessToken()

	parsedURL, err := url.Parse(wsURL)
	if err != nil {
		return fmt.Errorf("invalid websocket URL: %v", err)
	}
	query := parsedURL.Query()
	query.Set("clientTimestamp", fmt.Sprintf("%d", time.Now().UnixMilli()))
	parsedURL.RawQuery = query.Encode()

	conn, err := c.dialWebSocket(parsedURL.String(), token)
	if err != nil {
		return err
	}

	conn.SetPongHandler(func(data string) error {
		return c.handlePong()
	})

	if err = c.authenticateConnection(conn, token); err != nil {
		conn.Close()
		return err
	}

	// Each connection gets its own done channel so the goroutines of a
	// replaced connection cannot outlive it or tear down its successor.
	done := make(chan struct{})

	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.connecting = false
	c.hasConnected = true
	c.mu.Unlock()

	go c.startPingPong(conn, done)
	go c.listen(conn, done)

	return nil
}

// dialWebSocket establishes a websocket connection with auth headers
func (c *Client) dialWebSocket(url string, token string) (*websocket.Conn, error) {
	headers := make(map[string][]string)
	headers["Authorization"] = []string{"Bearer " + token}

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	conn, _, err := dialer.Dial(url, headers)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to websocket: %v", err)
	}

	return conn, nil
}

// authenticateConnection sends the authorization frame and waits for the
// service to acknowledge with a notify.ready event.
func (c *Client) authenticateConnection(conn *websocket.Conn, token string) error {
	authMsg := map[string]interface{}{
		"id":   fmt.Sprintf("%d", time.Now().UnixMilli()),
		"type": "authorization",
		"data": map[string]interface{}{
			"token": token,
		},
	}

	authJSON, err := json.Marshal(authMsg)
	if err != nil {
		return fmt.Errorf("failed to marshal auth message: %v", err)
	}

	if err = conn.WriteMessage(websocket.TextMessage, authJSON); err != nil {
		return fmt.Errorf("failed to send auth message: %v", err)
	}

	authChan := make(chan error, 1)
	go c.waitForReady(conn, authChan)

	select {
	case err := <-authChan:
		return err
	case <-time.After(30 * time.Second):
		return fmt.Errorf("authorization timed out after 30 seconds")
	}
}

// waitForReady waits for the notify.ready acknowledgement
func (c *Client) waitForReady(conn *websocket.Conn, authChan chan<- error) {
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			authChan <- fmt.Errorf("error reading auth response: %v", err)
			return
		}

		var event map[string]interface{}
		if err := json.Unmarshal(message, &event); err != nil {
			continue
		}

		if data, ok := event["data"].(map[string]interface{}); ok {
			if eventType, ok := data["eventType"].(string); ok && eventType == "notify.ready" {
				authChan <- nil
				return
			}
		}

		if eventType, ok := event["type"].(string); ok && eventType == "error" {
			authChan <- fmt.Errorf("authorization failed: %v", event)
			return
		}
	}
}

// listen reads messages from the websocket
func (c *Client) listen(conn *websocket.Conn, done chan struct{}) {
	defer func() {
		c.mu.Lock()
		if c.conn == conn {
			c.connected = false
		}
		c.mu.Unlock()
		close(done)
	}()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			c.handleConnectionError(conn)
			return
		}

		var event Event
		if err := json.Unmarshal(message, &event); err != nil {
			continue
		}

		c.processEvent(&event)
	}
}

// handleConnectionError triggers reconnection unless the client was
// deliberately disconnected or the failed connection is already replaced
func (c *Client) handleConnectionError(conn *websocket.Conn) {
	c.mu.Lock()
	stale := c.conn != conn
	closeCh := c.closeCh
	c.mu.Unlock()

	if stale {
		return
	}

	select {
	case <-closeCh:
		// Deliberate disconnect, don't reconnect
	default:
		go c.reconnect(conn)
	}
}

// processEvent extracts metadata, drops redelivered events and dispatches
func (c *Client) processEvent(event *Event) {
	if event.Data != nil {
		if eventType, ok := event.Data["eventType"].(string); ok {
			event.EventType = eventType
		}
	}

	// Internal channel events never reach handlers
	if event.EventType == "notify.ready" {
		return
	}

	if event.ID != "" && c.alreadySeen(event.ID) {
		c.core.GetLogger().Printf("notify: dropping redelivered event %s", event.ID)
		return
	}

	c.dispatchEvent(event)
}

// alreadySeen records the event ID and reports whether it was dispatched
// before. The window is FIFO-bounded at seenLimit.
func (c *Client) alreadySeen(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.seen[id]; ok {
		return true
	}

	c.seen[id] = struct{}{}
	c.seenOrder = append(c.seenOrder, id)
	if len(c.seenOrder) > seenLimit {
		delete(c.seen, c.seenOrder[0])
		c.seenOrder = c.seenOrder[1:]
	}
	return false
}

// dispatchEvent dispatches an event to typed and wildcard handlers
func (c *Client) dispatchEvent(event *Event) {
	c.mu.Lock()
	handlers := append([]EventHandler(nil), c.eventHandlers[event.EventType]...)
	wildcard := append([]EventHandler(nil), c.eventHandlers["*"]...)
	c.mu.Unlock()

	for _, handler := range handlers {
		go handler(event)
	}
	for _, handler := range wildcard {
		go handler(event)
	}
}

// startPingPong begins the ping/pong cycle to keep the connection alive
func (c *Client) startPingPong(conn *websocket.Conn, done chan struct{}) {
	ticker := time.NewTicker(c.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := c.ping(conn); err != nil {
				c.reconnect(conn)
				return
			}
		case <-c.closeCh:
			return
		case <-done:
			return
		}
	}
}

// ping sends a ping message and arms the pong deadline
func (c *Client) ping(conn *websocket.Conn) error {
	if err := conn.SetReadDeadline(time.Now().Add(c.config.PongTimeout)); err != nil {
		return err
	}

	return conn.WriteMessage(websocket.PingMessage, []byte(fmt.Sprintf("%d", time.Now().UnixMilli())))
}

// handlePong clears the pong deadline
func (c *Client) handlePong() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return nil
	}

	return c.conn.SetReadDeadline(time.Time{})
}

// reconnect attempts to re-establish the connection after a failure. The
// failed connection identifies the attempt: if it is no longer the current
// one, another caller already handled it.
func (c *Client) reconnect(failed *websocket.Conn) {
	c.mu.Lock()
	if c.connecting || c.conn == nil || c.conn != failed {
		c.mu.Unlock()
		return
	}

	c.connected = false
	c.connecting = true
	conn := c.conn
	customURL := c.customURL
	c.conn = nil
	c.mu.Unlock()

	conn.Close()

	go func() {
		wsURL := customURL
		if wsURL == "" {
			wsURL = c.config.URL
		}
		_ = c.connectWithBackoff(wsURL)
	}()
}
