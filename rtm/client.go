package rtm

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/c360/videostream/errors"
	"github.com/c360/videostream/metric"
)

// Status is the connection lifecycle state of a Client.
type Status int32

const (
	// StatusStopped means no connection is held.
	StatusStopped Status = iota + 1
	// StatusRunning means the connection is established and frames flow.
	StatusRunning
	// StatusPendingStopped means Stop was requested and the client is
	// waiting for the transport to confirm closure.
	StatusPendingStopped
)

// String returns the string representation of Status
func (s Status) String() string {
	switch s {
	case StatusStopped:
		return "stopped"
	case StatusRunning:
		return "running"
	case StatusPendingStopped:
		return "pending_stopped"
	default:
		return "unknown"
	}
}

const defaultHandshakeTimeout = 10 * time.Second

// Conn is the transport seam: one duplex, message-oriented connection.
// *websocket.Conn satisfies it through gorillaConn; tests substitute an
// in-memory implementation.
type Conn interface {
	ReadMessage() ([]byte, error)
	WriteMessage(data []byte) error
	Close() error
}

// Dialer establishes a Conn to the given WebSocket URL.
type Dialer func(ctx context.Context, url string, tlsConfig *tls.Config) (Conn, error)

type gorillaConn struct {
	conn *websocket.Conn
}

func (g *gorillaConn) ReadMessage() ([]byte, error) {
	_, data, err := g.conn.ReadMessage()
	return data, err
}

func (g *gorillaConn) WriteMessage(data []byte) error {
	return g.conn.WriteMessage(websocket.TextMessage, data)
}

func (g *gorillaConn) Close() error {
	return g.conn.Close()
}

func defaultDialer(ctx context.Context, url string, tlsConfig *tls.Config) (Conn, error) {
	dialer := websocket.Dialer{
		TLSClientConfig:  tlsConfig,
		HandshakeTimeout: defaultHandshakeTimeout,
	}
	conn, resp, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		if resp != nil && resp.Body != nil {
			_ = resp.Body.Close()
		}
		return nil, err
	}
	return &gorillaConn{conn: conn}, nil
}

// SubscriptionCallbacks receives the signals owned by one channel
// subscription. Nil fields are safe: missing handlers are no-ops. OnError
// is invoked at most once; the record is removed when it fires.
type SubscriptionCallbacks struct {
	OnData  func(message json.RawMessage)
	OnError func(err error)
}

func (cb SubscriptionCallbacks) data(msg json.RawMessage) {
	if cb.OnData != nil {
		cb.OnData(msg)
	}
}

func (cb SubscriptionCallbacks) fail(err error) {
	if cb.OnError != nil {
		cb.OnError(err)
	}
}

// SubscribeOptions tunes one channel subscription.
type SubscribeOptions struct {
	History *History
}

type recordState int

const (
	statePendingSubscribe recordState = iota
	stateCurrent
	statePendingUnsubscribe
)

func (s recordState) String() string {
	switch s {
	case statePendingSubscribe:
		return "pending_subscribe"
	case stateCurrent:
		return "current"
	case statePendingUnsubscribe:
		return "pending_unsubscribe"
	default:
		return "unknown"
	}
}

// subscriptionRecord is one registry entry, keyed by channel name.
type subscriptionRecord struct {
	channel   string
	state     recordState
	callbacks SubscriptionCallbacks
	pendingID uint64
}

// Client owns one persistent connection to the messaging service and the
// subscription registry multiplexed over it. All exported methods are
// safe for concurrent use; subscription callbacks are invoked
// sequentially from the client's read goroutine, outside the registry
// lock, so callbacks may call back into the client.
type Client struct {
	url       string
	prefix    string
	logger    *slog.Logger
	metrics   *metric.Metrics
	tlsConfig *tls.Config
	dial      Dialer
	onError   func(error)

	status atomic.Int32
	failed atomic.Bool

	mu       sync.Mutex
	conn     Conn
	done     chan struct{}
	registry map[string]*subscriptionRecord
	pending  map[uint64]string // correlation id -> channel
	nextID   uint64

	writeMu sync.Mutex
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithLogger sets the client's logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) { c.logger = logger }
}

// WithTLSConfig sets the TLS configuration used when dialing.
func WithTLSConfig(cfg *tls.Config) ClientOption {
	return func(c *Client) { c.tlsConfig = cfg }
}

// WithServicePrefix overrides the action prefix of protocol frames.
// The default is "rtm".
func WithServicePrefix(prefix string) ClientOption {
	return func(c *Client) { c.prefix = prefix }
}

// WithErrorCallback sets the callback receiving client-level fatal
// errors (connection loss, protocol desynchronization). It fires at most
// once per connection.
func WithErrorCallback(fn func(error)) ClientOption {
	return func(c *Client) { c.onError = fn }
}

// WithMetrics attaches SDK metrics to the client.
func WithMetrics(m *metric.Metrics) ClientOption {
	return func(c *Client) { c.metrics = m }
}

// WithDialer overrides the transport dialer.
func WithDialer(d Dialer) ClientOption {
	return func(c *Client) { c.dial = d }
}

// NewClient creates a client for the given WebSocket URL. The client
// starts in the Stopped state; call Start to connect.
func NewClient(url string, opts ...ClientOption) *Client {
	c := &Client{
		url:      url,
		prefix:   "rtm",
		logger:   slog.Default(),
		dial:     defaultDialer,
		registry: make(map[string]*subscriptionRecord),
		pending:  make(map[uint64]string),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.status.Store(int32(StatusStopped))
	return c
}

// Status returns the current connection lifecycle state.
func (c *Client) Status() Status {
	return Status(c.status.Load())
}

func (c *Client) setStatus(s Status) {
	c.status.Store(int32(s))
	if c.metrics != nil {
		c.metrics.RecordClientStatus(int(s))
	}
	c.logger.Debug("client status changed", "status", s.String())
}

func (c *Client) action(suffix string) string {
	return c.prefix + "/" + suffix
}

// Start dials the endpoint and begins reading frames. It is an error to
// start a client that is not stopped.
func (c *Client) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.Status() != StatusStopped {
		c.mu.Unlock()
		return errors.WrapInvalid(
			fmt.Errorf("client is %s", c.Status()), "rtm", "Start", "start client")
	}
	c.mu.Unlock()

	conn, err := c.dial(ctx, c.url, c.tlsConfig)
	if err != nil {
		return errors.WrapTransient(
			fmt.Errorf("%w: %w", errors.ErrConnectionFailed, err),
			"rtm", "Start", "dial endpoint")
	}

	c.mu.Lock()
	c.conn = conn
	c.done = make(chan struct{})
	done := c.done
	c.failed.Store(false)
	c.mu.Unlock()

	c.setStatus(StatusRunning)
	c.logger.Info("client connected", "url", c.url)

	go c.readLoop(conn, done)
	return nil
}

// Stop requests closure, waits for the read loop to confirm it, and
// purges all subscription records atomically.
func (c *Client) Stop() error {
	c.mu.Lock()
	if c.Status() != StatusRunning {
		c.mu.Unlock()
		return errors.WrapInvalid(errors.ErrNotConnected, "rtm", "Stop", "stop client")
	}
	conn := c.conn
	done := c.done
	c.mu.Unlock()

	c.setStatus(StatusPendingStopped)
	_ = conn.Close()
	<-done

	c.logger.Info("client stopped")
	return nil
}

// Publish sends one message to a channel. It is fire-and-forget: no
// correlation id is assigned and no delivery acknowledgement arrives.
func (c *Client) Publish(channel string, message any) error {
	if c.Status() != StatusRunning {
		return errors.WrapInvalid(errors.ErrNotConnected, "rtm", "Publish", "publish message")
	}

	err := c.writeFrame(frame{
		Action: c.action("publish"),
		Body:   publishBody{Channel: channel, Message: message},
	})
	if err != nil {
		return errors.WrapTransient(err, "rtm", "Publish", "write publish frame")
	}

	if c.metrics != nil {
		c.metrics.RecordMessagePublished(channel)
	}
	return nil
}

// Subscribe registers callbacks for a channel and sends the subscribe
// frame. The record enters PendingSubscribe until the matching
// acknowledgement arrives. opts may be nil.
func (c *Client) Subscribe(channel string, callbacks SubscriptionCallbacks, opts *SubscribeOptions) error {
	if c.Status() != StatusRunning {
		return errors.WrapInvalid(errors.ErrNotConnected, "rtm", "Subscribe", "subscribe channel")
	}

	c.mu.Lock()
	if _, exists := c.registry[channel]; exists {
		c.mu.Unlock()
		return errors.WrapInvalid(errors.ErrAlreadySubscribed, "rtm", "Subscribe",
			fmt.Sprintf("subscribe channel %q", channel))
	}
	c.nextID++
	id := c.nextID
	c.registry[channel] = &subscriptionRecord{
		channel:   channel,
		state:     statePendingSubscribe,
		callbacks: callbacks,
		pendingID: id,
	}
	c.pending[id] = channel
	size := len(c.registry)
	c.mu.Unlock()

	if c.metrics != nil {
		c.metrics.RecordSubscriptions(size)
	}

	body := subscribeBody{Channel: channel, SubscriptionID: channel}
	if opts != nil {
		body.History = opts.History
	}
	if err := c.writeFrame(frame{Action: c.action("subscribe"), Body: body, ID: id}); err != nil {
		c.removeRecord(channel, id)
		return errors.WrapTransient(err, "rtm", "Subscribe", "write subscribe frame")
	}

	c.logger.Debug("subscribe requested", "channel", channel, "id", id)
	return nil
}

// Unsubscribe requests removal of a Current subscription. The record
// enters PendingUnsubscribe; it is removed when the acknowledgement
// arrives, whether it reports success or failure.
func (c *Client) Unsubscribe(channel string) error {
	if c.Status() != StatusRunning {
		return errors.WrapInvalid(errors.ErrNotConnected, "rtm", "Unsubscribe", "unsubscribe channel")
	}

	c.mu.Lock()
	rec, exists := c.registry[channel]
	if !exists || rec.state != stateCurrent {
		state := "absent"
		if exists {
			state = rec.state.String()
		}
		c.mu.Unlock()
		return errors.WrapInvalid(
			fmt.Errorf("channel %q is %s", channel, state),
			"rtm", "Unsubscribe", "unsubscribe channel")
	}
	c.nextID++
	id := c.nextID
	rec.state = statePendingUnsubscribe
	rec.pendingID = id
	c.pending[id] = channel
	c.mu.Unlock()

	err := c.writeFrame(frame{
		Action: c.action("unsubscribe"),
		Body:   unsubscribeBody{SubscriptionID: channel},
		ID:     id,
	})
	if err != nil {
		c.mu.Lock()
		if rec, ok := c.registry[channel]; ok && rec.pendingID == id {
			rec.state = stateCurrent
			delete(c.pending, id)
		}
		c.mu.Unlock()
		return errors.WrapTransient(err, "rtm", "Unsubscribe", "write unsubscribe frame")
	}

	c.logger.Debug("unsubscribe requested", "channel", channel, "id", id)
	return nil
}

func (c *Client) writeFrame(f frame) error {
	data, err := json.Marshal(f)
	if err != nil {
		return err
	}

	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return errors.ErrNotConnected
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return conn.WriteMessage(data)
}

func (c *Client) removeRecord(channel string, id uint64) {
	c.mu.Lock()
	delete(c.registry, channel)
	delete(c.pending, id)
	size := len(c.registry)
	c.mu.Unlock()
	if c.metrics != nil {
		c.metrics.RecordSubscriptions(size)
	}
}

// readLoop reads and dispatches frames until the connection fails. A read
// failure while a stop is pending is the expected closure; anything else
// is fatal.
func (c *Client) readLoop(conn Conn, done chan struct{}) {
	defer close(done)
	for {
		data, err := conn.ReadMessage()
		if err != nil {
			if c.Status() == StatusPendingStopped {
				c.purge(nil)
				c.setStatus(StatusStopped)
				return
			}
			c.fatal(errors.WrapFatal(
				fmt.Errorf("%w: %w", errors.ErrConnectionLost, err),
				"rtm", "readLoop", "read frame"))
			return
		}
		if err := c.processFrame(data); err != nil {
			c.fatal(err)
			return
		}
	}
}

// fatal tears the client down after an unrecoverable failure: every
// registered subscription receives the error, the connection closes, and
// the client error callback fires exactly once.
func (c *Client) fatal(err error) {
	if !c.failed.CompareAndSwap(false, true) {
		return
	}
	c.logger.Error("fatal client failure", "error", err)

	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()
	if conn != nil {
		_ = conn.Close()
	}

	c.purge(err)
	c.setStatus(StatusStopped)

	if c.metrics != nil {
		c.metrics.RecordError("rtm", errors.Classify(err).String())
	}
	if c.onError != nil {
		c.onError(err)
	}
}

// purge removes every registry record. If err is non-nil each record's
// error callback is invoked with it, outside the lock.
func (c *Client) purge(err error) {
	c.mu.Lock()
	records := make([]*subscriptionRecord, 0, len(c.registry))
	for _, rec := range c.registry {
		records = append(records, rec)
	}
	c.registry = make(map[string]*subscriptionRecord)
	c.pending = make(map[uint64]string)
	c.mu.Unlock()

	if c.metrics != nil {
		c.metrics.RecordSubscriptions(0)
	}
	if err == nil {
		return
	}
	for _, rec := range records {
		rec.callbacks.fail(err)
	}
}

// processFrame dispatches one inbound frame. A returned error is a
// protocol desynchronization and is fatal to the connection.
func (c *Client) processFrame(data []byte) error {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return errors.WrapFatal(
			fmt.Errorf("%w: %w", errors.ErrResponseParsing, err),
			"rtm", "processFrame", "parse inbound frame")
	}

	if c.metrics != nil {
		c.metrics.RecordFrameReceived(env.Action)
	}

	switch env.Action {
	case c.action("subscription/data"):
		return c.handleData(env.Body)
	case c.action("subscribe/ok"):
		return c.handleSubscribeAck(env.ID, env.Body, true)
	case c.action("subscribe/error"):
		return c.handleSubscribeAck(env.ID, env.Body, false)
	case c.action("unsubscribe/ok"):
		return c.handleUnsubscribeAck(env.ID, env.Body, true)
	case c.action("unsubscribe/error"):
		return c.handleUnsubscribeAck(env.ID, env.Body, false)
	case c.action("subscription/error"):
		return c.handleSubscriptionError(env.Body)
	default:
		return errors.WrapFatal(
			fmt.Errorf("%w: unrecognized action %q", errors.ErrInvalidResponse, env.Action),
			"rtm", "processFrame", "dispatch inbound frame")
	}
}

func (c *Client) handleData(body json.RawMessage) error {
	var data dataBody
	if err := json.Unmarshal(body, &data); err != nil {
		return errors.WrapFatal(
			fmt.Errorf("%w: %w", errors.ErrResponseParsing, err),
			"rtm", "handleData", "parse data frame")
	}

	c.mu.Lock()
	rec, exists := c.registry[data.SubscriptionID]
	if !exists {
		c.mu.Unlock()
		return errors.WrapFatal(
			fmt.Errorf("%w: data frame for unknown channel %q", errors.ErrProtocolDesync, data.SubscriptionID),
			"rtm", "handleData", "route data frame")
	}
	state := rec.state
	callbacks := rec.callbacks
	c.mu.Unlock()

	if state != stateCurrent {
		// the consumer has logically unsubscribed, or the subscribe ack
		// has not arrived yet
		c.logger.Debug("discarding data frame", "channel", data.SubscriptionID, "state", state.String())
		return nil
	}

	for _, msg := range data.Messages {
		callbacks.data(msg)
	}
	return nil
}

func (c *Client) handleSubscribeAck(id uint64, body json.RawMessage, ok bool) error {
	c.mu.Lock()
	channel, exists := c.pending[id]
	if !exists {
		c.mu.Unlock()
		return errors.WrapFatal(
			fmt.Errorf("%w: subscribe acknowledgement with no pending id %d", errors.ErrProtocolDesync, id),
			"rtm", "handleSubscribeAck", "correlate acknowledgement")
	}
	rec := c.registry[channel]
	if rec == nil || rec.pendingID != id || rec.state != statePendingSubscribe {
		c.mu.Unlock()
		return errors.WrapFatal(
			fmt.Errorf("%w: subscribe acknowledgement %d does not match channel %q", errors.ErrProtocolDesync, id, channel),
			"rtm", "handleSubscribeAck", "correlate acknowledgement")
	}
	delete(c.pending, id)

	if ok {
		rec.state = stateCurrent
		rec.pendingID = 0
		c.mu.Unlock()
		c.logger.Info("subscribed", "channel", channel)
		return nil
	}

	delete(c.registry, channel)
	size := len(c.registry)
	callbacks := rec.callbacks
	c.mu.Unlock()

	if c.metrics != nil {
		c.metrics.RecordSubscriptions(size)
	}
	callbacks.fail(errors.WrapInvalid(
		fmt.Errorf("%w: channel %q: %s", errors.ErrSubscribeFailed, channel, reason(body)),
		"rtm", "handleSubscribeAck", "subscribe channel"))
	return nil
}

func (c *Client) handleUnsubscribeAck(id uint64, body json.RawMessage, ok bool) error {
	c.mu.Lock()
	channel, exists := c.pending[id]
	if !exists {
		c.mu.Unlock()
		return errors.WrapFatal(
			fmt.Errorf("%w: unsubscribe acknowledgement with no pending id %d", errors.ErrProtocolDesync, id),
			"rtm", "handleUnsubscribeAck", "correlate acknowledgement")
	}
	rec := c.registry[channel]
	if rec == nil || rec.pendingID != id || rec.state != statePendingUnsubscribe {
		c.mu.Unlock()
		return errors.WrapFatal(
			fmt.Errorf("%w: unsubscribe acknowledgement %d does not match channel %q", errors.ErrProtocolDesync, id, channel),
			"rtm", "handleUnsubscribeAck", "correlate acknowledgement")
	}

	// unsubscription is terminal once requested: the record is removed
	// whether the service reports success or failure
	delete(c.pending, id)
	delete(c.registry, channel)
	size := len(c.registry)
	callbacks := rec.callbacks
	c.mu.Unlock()

	if c.metrics != nil {
		c.metrics.RecordSubscriptions(size)
	}

	if ok {
		c.logger.Info("unsubscribed", "channel", channel)
		return nil
	}
	callbacks.fail(errors.WrapInvalid(
		fmt.Errorf("%w: channel %q: %s", errors.ErrUnsubscribeFailed, channel, reason(body)),
		"rtm", "handleUnsubscribeAck", "unsubscribe channel"))
	return nil
}

func (c *Client) handleSubscriptionError(body json.RawMessage) error {
	var errBody errorBody
	if err := json.Unmarshal(body, &errBody); err != nil {
		return errors.WrapFatal(
			fmt.Errorf("%w: %w", errors.ErrResponseParsing, err),
			"rtm", "handleSubscriptionError", "parse subscription error")
	}

	c.mu.Lock()
	rec, exists := c.registry[errBody.SubscriptionID]
	if !exists {
		c.mu.Unlock()
		return errors.WrapFatal(
			fmt.Errorf("%w: subscription error for unknown channel %q", errors.ErrProtocolDesync, errBody.SubscriptionID),
			"rtm", "handleSubscriptionError", "route subscription error")
	}
	if rec.pendingID != 0 {
		delete(c.pending, rec.pendingID)
	}
	delete(c.registry, errBody.SubscriptionID)
	size := len(c.registry)
	callbacks := rec.callbacks
	c.mu.Unlock()

	if c.metrics != nil {
		c.metrics.RecordSubscriptions(size)
	}
	callbacks.fail(errors.WrapTransient(
		fmt.Errorf("%w: channel %q: %s", errors.ErrSubscription, errBody.SubscriptionID, reason(body)),
		"rtm", "handleSubscriptionError", "deliver channel data"))
	return nil
}

// reason extracts a human-readable failure reason from an error body.
func reason(body json.RawMessage) string {
	var errBody errorBody
	if len(body) == 0 || json.Unmarshal(body, &errBody) != nil {
		return "no reason given"
	}
	switch {
	case errBody.Reason != "":
		return errBody.Reason
	case errBody.Error != "":
		return errBody.Error
	default:
		return "no reason given"
	}
}
