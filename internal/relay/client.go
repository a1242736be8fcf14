package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/buscalogo/capture-agent/internal/monitoring"
	"github.com/buscalogo/capture-agent/internal/search"
)

// Connection states reported by Status.
const (
	StateDisconnected = "disconnected"
	StateConnecting   = "connecting"
	StateConnected    = "connected"
)

// Message types on the relay channel.
const (
	MsgPeerConnect    = "PEER_CONNECT"
	MsgSearchRequest  = "SEARCH_REQUEST"
	MsgSearchResponse = "SEARCH_RESPONSE"
	MsgPing           = "PING"
	MsgPong           = "PONG"
	MsgWelcome        = "WELCOME"
	MsgEstablished    = "CONNECTION_ESTABLISHED"
)

const (
	maxReconnectAttempts = 5
	baseReconnectDelay   = time.Second
	maxReconnectDelay    = 30 * time.Second
	heartbeatInterval    = 30 * time.Second
	pongDeadline         = 10 * time.Second
)

// Message is the envelope for every frame exchanged with the relay.
type Message struct {
	Type         string        `json:"type"`
	PeerID       string        `json:"peerId,omitempty"`
	QueryID      string        `json:"queryId,omitempty"`
	Query        string        `json:"query,omitempty"`
	Results      interface{}   `json:"results,omitempty"`
	Error        string        `json:"error,omitempty"`
	Capabilities *Capabilities `json:"capabilities,omitempty"`
	Timestamp    int64         `json:"timestamp,omitempty"`
}

// Capabilities advertises what this agent can answer for the relay.
type Capabilities struct {
	Search  bool `json:"search"`
	Storage bool `json:"storage"`
}

// Logger is the slice of the agent logger this package needs.
type Logger interface {
	LogInfo(format string, v ...interface{})
	LogError(format string, v ...interface{})
	LogDebug(format string, v ...interface{})
}

// Client keeps one reconnecting WebSocket to the relay, answers inbound
// search requests from the local index and heartbeats the link. Send
// failures are logged, never surfaced; the relay link must not be able to
// take down the capture process.
type Client struct {
	relayURL string
	index    *search.Index
	logger   Logger

	writeMu sync.Mutex

	mu       sync.Mutex
	conn     *websocket.Conn
	state    string
	peerID   string
	attempts int
	running  bool
}

func NewClient(relayURL string, index *search.Index, logger Logger) *Client {
	return &Client{
		relayURL: relayURL,
		index:    index,
		logger:   logger,
		state:    StateDisconnected,
	}
}

// Connect starts the connect/reconnect cycle if it is not already running.
// Calling it again after the cycle has given up resets the attempt budget,
// so it doubles as the manual retry trigger.
func (c *Client) Connect(ctx context.Context) {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return
	}
	c.running = true
	c.attempts = 0
	c.mu.Unlock()

	go c.run(ctx)
}

func (c *Client) run(ctx context.Context) {
	defer func() {
		c.mu.Lock()
		c.running = false
		c.state = StateDisconnected
		c.mu.Unlock()
	}()

	for {
		if ctx.Err() != nil {
			return
		}

		if err := c.session(ctx); err != nil {
			c.logger.LogError("relay session ended: %v", err)
		}

		c.mu.Lock()
		c.attempts++
		attempt := c.attempts
		c.mu.Unlock()

		if attempt > maxReconnectAttempts {
			c.logger.LogError("relay reconnect budget exhausted after %d attempts", maxReconnectAttempts)
			return
		}

		delay := reconnectDelay(attempt)
		c.logger.LogInfo("relay reconnect %d/%d in %s", attempt, maxReconnectAttempts, delay)

		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
	}
}

// reconnectDelay doubles per attempt from the base, capped at 30s.
func reconnectDelay(attempt int) time.Duration {
	delay := baseReconnectDelay << uint(attempt)
	if delay > maxReconnectDelay || delay <= 0 {
		return maxReconnectDelay
	}
	return delay
}

// session dials, announces the peer and pumps messages until the connection
// drops. A fresh peer ID is minted per attempt so the relay never sees two
// generations of the same agent at once.
func (c *Client) session(ctx context.Context) error {
	peerID := newPeerID()

	dialURL, err := url.Parse(c.relayURL)
	if err != nil {
		return fmt.Errorf("invalid relay URL %q: %w", c.relayURL, err)
	}
	query := dialURL.Query()
	query.Set("peerId", peerID)
	dialURL.RawQuery = query.Encode()

	c.mu.Lock()
	c.state = StateConnecting
	c.peerID = peerID
	c.mu.Unlock()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, dialURL.String(), nil)
	if err != nil {
		return fmt.Errorf("failed to dial relay: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.state = StateConnected
	c.attempts = 0
	c.mu.Unlock()
	monitoring.RelayConnected.Set(1)
	c.logger.LogInfo("connected to relay as %s", peerID)

	done := make(chan struct{})
	pong := make(chan struct{}, 1)

	defer func() {
		close(done)
		conn.Close()
		c.mu.Lock()
		c.conn = nil
		c.state = StateDisconnected
		c.mu.Unlock()
		monitoring.RelayConnected.Set(0)
	}()

	// Unblock the read loop when the process is shutting down.
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	go c.heartbeat(ctx, conn, peerID, pong, done)

	c.send(Message{
		Type:         MsgPeerConnect,
		PeerID:       peerID,
		Capabilities: &Capabilities{Search: true, Storage: true},
		Timestamp:    time.Now().UnixMilli(),
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("relay read failed: %w", err)
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			c.logger.LogError("unparseable relay message: %v", err)
			continue
		}

		c.dispatch(ctx, msg, pong)
	}
}

func (c *Client) dispatch(ctx context.Context, msg Message, pong chan<- struct{}) {
	switch msg.Type {
	case MsgWelcome, MsgEstablished:
		c.logger.LogInfo("relay handshake message: %s", msg.Type)
	case MsgPong:
		select {
		case pong <- struct{}{}:
		default:
		}
	case MsgSearchRequest:
		go c.handleSearchRequest(ctx, msg.QueryID, msg.Query)
	default:
		c.logger.LogDebug("ignoring relay message type %q", msg.Type)
	}
}

// handleSearchRequest answers one SEARCH_REQUEST. Search failures go back to
// the relay as an error payload keyed by the query ID; a request without a
// query ID cannot be answered and is dropped.
func (c *Client) handleSearchRequest(ctx context.Context, queryID, query string) {
	if queryID == "" {
		c.logger.LogError("search request without queryId dropped")
		return
	}

	monitoring.SearchesTotal.WithLabelValues("relay").Inc()
	c.logger.LogInfo("relay search %q (%s)", query, queryID)

	results, err := c.index.Search(ctx, query)
	if err != nil {
		c.send(Message{
			Type:      MsgSearchResponse,
			QueryID:   queryID,
			Error:     err.Error(),
			PeerID:    c.PeerID(),
			Timestamp: time.Now().UnixMilli(),
		})
		return
	}

	if results == nil {
		results = []search.ScoredPage{}
	}

	c.send(Message{
		Type:      MsgSearchResponse,
		QueryID:   queryID,
		Results:   results,
		PeerID:    c.PeerID(),
		Timestamp: time.Now().UnixMilli(),
	})
}

// heartbeat sends an application-level PING every 30s and expects a PONG
// within 10s. A missed deadline closes the connection, which the read loop
// turns into a normal reconnect.
func (c *Client) heartbeat(ctx context.Context, conn *websocket.Conn, peerID string, pong <-chan struct{}, done <-chan struct{}) {
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.send(Message{
				Type:      MsgPing,
				PeerID:    peerID,
				Timestamp: time.Now().UnixMilli(),
			})

			select {
			case <-pong:
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-time.After(pongDeadline):
				c.logger.LogError("pong deadline missed, dropping relay connection")
				conn.Close()
				return
			}
		}
	}
}

// send serializes one message onto the current connection. Failures are
// logged and swallowed.
func (c *Client) send(msg Message) {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()

	if conn == nil {
		c.logger.LogDebug("relay not connected, dropping %s", msg.Type)
		return
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := conn.WriteJSON(msg); err != nil {
		c.logger.LogError("failed to send %s to relay: %v", msg.Type, err)
	}
}

// Status reports the connection state for the status endpoint.
func (c *Client) Status() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Client) Connected() bool {
	return c.Status() == StateConnected
}

func (c *Client) PeerID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.peerID
}

func newPeerID() string {
	return fmt.Sprintf("agent_%d_%s", time.Now().UnixMilli(), uuid.NewString()[:8])
}
