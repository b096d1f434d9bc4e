// Package client is a websocket client for sketchduet game sessions. It
// dials the server, pumps inbound messages to a handler, and transparently
// reconnects after network failures with capped exponential backoff.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/coder/websocket"
)

const msgGameNotFound = "game-not-found"

var (
	// ErrSessionEnded means the server reported the game gone. Retrying
	// cannot help; the caller should surface "session ended" to the user.
	ErrSessionEnded = errors.New("session ended: the game no longer exists on the server")

	// ErrRetriesExhausted means the retry budget ran out without a
	// successful reconnect.
	ErrRetriesExhausted = errors.New("could not reconnect")

	ErrNotConnected = errors.New("not connected")
)

type Status string

const (
	StatusIdle         Status = "idle"
	StatusConnecting   Status = "connecting"
	StatusOpen         Status = "open"
	StatusRetryWaiting Status = "retry-waiting"
	StatusSessionEnded Status = "session-ended"
	StatusGivenUp      Status = "given-up"
	StatusClosed       Status = "closed"
)

// Envelope is one server frame. Payload stays raw for the caller to decode
// by Type.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type StrokePayload struct {
	Points []Point `json:"points"`
	Color  string  `json:"color,omitempty"`
	Width  int     `json:"width,omitempty"`
	Tool   string  `json:"tool,omitempty"`
}

// Dialer opens one connection attempt. Tests substitute scripted ones.
type Dialer func(ctx context.Context, url string) (*websocket.Conn, error)

type Option func(*Client)

func WithDialer(d Dialer) Option {
	return func(c *Client) { c.dial = d }
}

// WithMaxRetries caps the consecutive failed attempts per outage. A
// successful connect resets the count.
func WithMaxRetries(n int) Option {
	return func(c *Client) { c.maxRetries = n }
}

// WithBackoff replaces the retry schedule. The factory is called once per
// Run; the schedule resets on every successful connect.
func WithBackoff(factory func() backoff.BackOff) Option {
	return func(c *Client) { c.newBackoff = factory }
}

func WithMessageHandler(fn func(Envelope)) Option {
	return func(c *Client) { c.onMessage = fn }
}

func WithStatusHandler(fn func(Status)) Option {
	return func(c *Client) { c.onStatus = fn }
}

// WithSpectator asks for a watching attachment instead of a seat.
func WithSpectator() Option {
	return func(c *Client) { c.spectate = true }
}

type Client struct {
	baseURL  string
	gameID   string
	clientID string
	spectate bool

	dial       Dialer
	maxRetries int
	newBackoff func() backoff.BackOff
	onMessage  func(Envelope)
	onStatus   func(Status)

	mu      sync.Mutex
	conn    *websocket.Conn
	status  Status
	closed  bool
	closeCh chan struct{} // closed once by Close
}

// New builds a client for one session. baseURL is the server root, e.g.
// "ws://localhost:8080".
func New(baseURL, gameID, clientID string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		gameID:     gameID,
		clientID:   clientID,
		dial:       defaultDialer,
		maxRetries: 5,
		newBackoff: DefaultBackoff,
		status:     StatusIdle,
		closeCh:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// DefaultBackoff is the stock retry schedule: 500ms doubling to a ceiling
// of 8s, without jitter so successive delays never shrink.
func DefaultBackoff() backoff.BackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 500 * time.Millisecond
	bo.Multiplier = 2
	bo.MaxInterval = 8 * time.Second
	bo.RandomizationFactor = 0
	bo.MaxElapsedTime = 0 // the retry count is the only budget
	bo.Reset()
	return bo
}

func defaultDialer(ctx context.Context, rawURL string) (*websocket.Conn, error) {
	conn, _, err := websocket.Dial(ctx, rawURL, nil)
	return conn, err
}

func (c *Client) url() string {
	u := fmt.Sprintf("%s/ws/%s/%s", c.baseURL, c.gameID, c.clientID)
	if c.spectate {
		u += "?spectate=1"
	}
	return u
}

func (c *Client) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Run dials and keeps the session alive until ctx is cancelled, Close is
// called, the server closes normally, the session turns out to be gone, or
// the retry budget runs out. It blocks, so start it in its own goroutine
// when the caller needs to keep working. Run must not be called twice on
// one client.
func (c *Client) Run(ctx context.Context) error {
	bo := c.newBackoff()
	retries := 0

	for {
		if c.wasClosed() {
			c.setStatus(StatusClosed)
			return nil
		}

		c.setStatus(StatusConnecting)
		conn, err := c.dial(ctx, c.url())
		if err == nil {
			if !c.registerConn(conn) {
				// Close arrived while dialing; discard the fresh socket.
				conn.Close(websocket.StatusNormalClosure, "client closing")
				c.setStatus(StatusClosed)
				return nil
			}
			retries = 0
			bo.Reset()
			c.setStatus(StatusOpen)

			err = c.readLoop(ctx, conn)

			// The dead socket must be fully closed before any redial.
			conn.CloseNow()
			c.clearConn()

			if c.wasClosed() {
				c.setStatus(StatusClosed)
				return nil
			}
			if errors.Is(err, ErrSessionEnded) ||
				websocket.CloseStatus(err) == websocket.StatusPolicyViolation {
				c.setStatus(StatusSessionEnded)
				return ErrSessionEnded
			}
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure {
				c.setStatus(StatusClosed)
				return nil
			}
		}

		if c.wasClosed() {
			c.setStatus(StatusClosed)
			return nil
		}
		if ctx.Err() != nil {
			c.setStatus(StatusClosed)
			return ctx.Err()
		}

		if retries >= c.maxRetries {
			c.setStatus(StatusGivenUp)
			return fmt.Errorf("%w: gave up after %d attempts", ErrRetriesExhausted, retries)
		}
		retries++

		delay := bo.NextBackOff()
		if delay == backoff.Stop {
			c.setStatus(StatusGivenUp)
			return fmt.Errorf("%w: retry schedule exhausted", ErrRetriesExhausted)
		}

		c.setStatus(StatusRetryWaiting)
		if err := c.waitRetry(ctx, delay); err != nil {
			c.setStatus(StatusClosed)
			return err
		}
	}
}

// readLoop pumps frames until the connection dies. The server announcing
// game-not-found comes back as ErrSessionEnded; every other exit returns
// the read error, whose close status Run inspects.
func (c *Client) readLoop(ctx context.Context, conn *websocket.Conn) error {
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return err
		}

		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			continue
		}

		if env.Type == msgGameNotFound {
			conn.Close(websocket.StatusNormalClosure, "game not found")
			return ErrSessionEnded
		}

		if c.onMessage != nil {
			c.onMessage(env)
		}
	}
}

// waitRetry sleeps out one backoff delay, cut short by cancellation or
// Close. After a Close the loop head stops the run.
func (c *Client) waitRetry(ctx context.Context, delay time.Duration) error {
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-c.closeCh:
		return nil
	case <-timer.C:
		return nil
	}
}

// Close ends the session deliberately: any live connection is closed with
// code 1000 and any pending retry is abandoned. Run returns nil. Close is
// safe to call more than once.
func (c *Client) Close() error {
	c.mu.Lock()
	if !c.closed {
		c.closed = true
		close(c.closeCh)
	}
	conn := c.conn
	c.mu.Unlock()

	if conn != nil {
		return conn.Close(websocket.StatusNormalClosure, "client closing")
	}
	return nil
}

/*
 * Outbound commands
 */

// Send writes one command frame with the session's envelope ids filled in.
func (c *Client) Send(ctx context.Context, msgType string, payload interface{}) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}

	frame := struct {
		Type     string      `json:"type"`
		GameID   string      `json:"gameId"`
		SenderID string      `json:"senderId"`
		Payload  interface{} `json:"payload,omitempty"`
	}{msgType, c.gameID, c.clientID, payload}

	data, err := json.Marshal(frame)
	if err != nil {
		return fmt.Errorf("marshal error: %w", err)
	}
	return conn.Write(ctx, websocket.MessageText, data)
}

func (c *Client) Ping(ctx context.Context) error {
	return c.Send(ctx, "ping", struct{}{})
}

func (c *Client) DrawStroke(ctx context.Context, stroke StrokePayload) error {
	return c.Send(ctx, "draw-stroke", stroke)
}

func (c *Client) ClearCanvas(ctx context.Context) error {
	return c.Send(ctx, "clear-canvas", struct{}{})
}

func (c *Client) SubmitDrawing(ctx context.Context) error {
	return c.Send(ctx, "submit-drawing", struct{}{})
}

func (c *Client) GuessWord(ctx context.Context, index int) error {
	return c.Send(ctx, "guess-word", struct {
		Index int `json:"index"`
	}{index})
}

func (c *Client) EndGuessing(ctx context.Context) error {
	return c.Send(ctx, "end-guessing", struct{}{})
}

/*
 * Internals
 */

// registerConn publishes the connection for Send. It reports false once
// Close has run, and the caller must then discard the socket.
func (c *Client) registerConn(conn *websocket.Conn) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	c.conn = conn
	return true
}

func (c *Client) clearConn() {
	c.mu.Lock()
	c.conn = nil
	c.mu.Unlock()
}

func (c *Client) wasClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *Client) setStatus(status Status) {
	c.mu.Lock()
	c.status = status
	cb := c.onStatus
	c.mu.Unlock()

	if cb != nil {
		cb(status)
	}
}
