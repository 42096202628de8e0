package alphasec

import (
	"context"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("exchange", "alphasec")

// ConnectionState is the lifecycle of the stream connection.
type ConnectionState int32

const (
	StateDisconnected ConnectionState = iota
	StateConnecting
	StateConnected
	StateReconnecting
	StateStopped
)

func (s ConnectionState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	case StateStopped:
		return "stopped"
	}

	return "unknown"
}

const (
	defaultMessageBufferSize    = 256
	defaultPingInterval         = 10 * time.Second
	defaultReadTimeout          = 30 * time.Second
	defaultWriteTimeout         = 5 * time.Second
	defaultReconnectDelay       = time.Second
	defaultMaxReconnectDelay    = 30 * time.Second
	defaultMaxReconnectAttempts = 10
)

type wsCommand struct {
	Method string          `json:"method"`
	Params wsCommandParams `json:"params"`
	ID     int64           `json:"id"`
}

type wsCommandParams struct {
	Channels []string `json:"channels"`
}

// Stream multiplexes every subscription of one websocket connection into a
// single ordered message channel. It reconnects on connection loss with
// exponential backoff and replays the subscription set, and moves to the
// stopped state once the retry limit is exhausted.
type Stream struct {
	url    string
	dialer *websocket.Dialer

	state int32

	conn       *websocket.Conn
	connLock   sync.Mutex
	connCtx    context.Context
	connCancel context.CancelFunc

	closeCtx    context.Context
	closeCancel context.CancelFunc
	closeOnce   sync.Once

	reconnectC        chan struct{}
	reconnectorActive int32

	wg sync.WaitGroup

	registry *subscriptionRegistry

	// resolveChannel rewrites a requested channel before it hits the
	// wire, e.g. mapping market symbols to market ids.
	resolveChannel func(channel string) (string, error)

	writeMu   sync.Mutex
	requestID int64

	ackMu       sync.Mutex
	pendingAcks map[int64]string

	msgC          chan StreamMessage
	receiverMu    sync.Mutex
	receiverTaken bool

	PingInterval         time.Duration
	ReconnectDelay       time.Duration
	MaxReconnectDelay    time.Duration
	MaxReconnectAttempts uint64
}

func NewStream(wsURL string) *Stream {
	closeCtx, closeCancel := context.WithCancel(context.Background())
	return &Stream{
		url:         wsURL,
		dialer:      websocket.DefaultDialer,
		closeCtx:    closeCtx,
		closeCancel: closeCancel,
		reconnectC:  make(chan struct{}, 1),
		registry:    newSubscriptionRegistry(),
		pendingAcks: make(map[int64]string),
		msgC:        make(chan StreamMessage, defaultMessageBufferSize),

		PingInterval:         defaultPingInterval,
		ReconnectDelay:       defaultReconnectDelay,
		MaxReconnectDelay:    defaultMaxReconnectDelay,
		MaxReconnectAttempts: defaultMaxReconnectAttempts,
	}
}

// SetChannelResolver installs a channel rewrite hook applied on Subscribe
// and Unsubscribe.
func (s *Stream) SetChannelResolver(resolve func(channel string) (string, error)) {
	s.resolveChannel = resolve
}

func (s *Stream) State() ConnectionState {
	return ConnectionState(atomic.LoadInt32(&s.state))
}

func (s *Stream) setState(state ConnectionState) {
	atomic.StoreInt32(&s.state, int32(state))
}

func (s *Stream) isClosed() bool {
	select {
	case <-s.closeCtx.Done():
		return true
	default:
		return false
	}
}

// Connect dials the endpoint and starts the background workers. It is also
// the way back to a live connection after the stream stopped itself.
func (s *Stream) Connect(ctx context.Context) error {
	if s.isClosed() {
		return ErrStreamClosed
	}

	switch s.State() {
	case StateConnected, StateConnecting:
		return nil
	}

	if err := s.connect(ctx); err != nil {
		return err
	}

	if atomic.CompareAndSwapInt32(&s.reconnectorActive, 0, 1) {
		go s.reconnector()
	}

	return nil
}

func (s *Stream) connect(ctx context.Context) error {
	if s.isClosed() {
		return backoff.Permanent(ErrStreamClosed)
	}

	// a failed dial inside a backoff run keeps the reconnecting state
	reconnecting := s.State() == StateReconnecting
	if !reconnecting {
		s.setState(StateConnecting)
	}

	conn, _, err := s.dialer.DialContext(ctx, s.url, nil)
	if err != nil {
		if !reconnecting {
			s.setState(StateDisconnected)
		}
		return errors.Wrapf(err, "failed to dial %s", s.url)
	}

	_ = conn.SetReadDeadline(time.Now().Add(defaultReadTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(defaultReadTimeout))
	})

	s.connLock.Lock()
	// shut down the workers of the previous connection and close its
	// socket, only one physical connection may be live
	if s.connCancel != nil {
		s.connCancel()
	}
	if s.conn != nil {
		_ = s.conn.Close()
	}
	s.connCtx, s.connCancel = context.WithCancel(context.Background())
	connCtx := s.connCtx
	s.conn = conn
	s.connLock.Unlock()

	s.ackMu.Lock()
	// acks for frames written to the previous connection will never arrive
	s.pendingAcks = make(map[int64]string)
	s.ackMu.Unlock()

	s.setState(StateConnected)
	log.Infof("websocket connected: %s", s.url)

	s.wg.Add(2)
	go s.read(connCtx, conn)
	go s.ping(connCtx, conn)

	s.registry.markRequested()
	s.sendSubscriptions(conn)
	return nil
}

// reconnector serializes reconnect attempts. One signal triggers one
// backoff run, failure of the whole run stops the stream.
func (s *Stream) reconnector() {
	defer atomic.StoreInt32(&s.reconnectorActive, 0)

	for {
		select {
		case <-s.closeCtx.Done():
			return

		case <-s.reconnectC:
			log.Warnf("received reconnect signal, reconnecting...")
			time.Sleep(s.ReconnectDelay)

			if err := s.reconnectWithBackoff(); err != nil {
				log.WithError(err).Errorf("reconnect attempts exhausted, stopping stream")
				s.setState(StateStopped)

				select {
				case s.msgC <- &DisconnectedEvent{}:
				case <-s.closeCtx.Done():
				}
				return
			}
		}
	}
}

func (s *Stream) reconnectWithBackoff() error {
	s.setState(StateReconnecting)

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = s.ReconnectDelay
	bo.MaxInterval = s.MaxReconnectDelay
	bo.MaxElapsedTime = 0

	return backoff.Retry(func() error {
		return s.connect(s.closeCtx)
	}, backoff.WithContext(backoff.WithMaxRetries(bo, s.MaxReconnectAttempts), s.closeCtx))
}

// emitReconnect requests a reconnect without blocking, extra signals while
// one is pending collapse into it.
func (s *Stream) emitReconnect() {
	select {
	case s.reconnectC <- struct{}{}:
	default:
	}
}

func (s *Stream) read(ctx context.Context, conn *websocket.Conn) {
	defer s.wg.Done()

	for {
		mt, data, err := conn.ReadMessage()
		if err != nil {
			// do not reconnect when we initiated the teardown
			select {
			case <-ctx.Done():
				return
			case <-s.closeCtx.Done():
				return
			default:
			}

			switch err := err.(type) {
			case *websocket.CloseError:
				log.Warnf("websocket closed, code: %d, reason: %s", err.Code, err.Text)
			case net.Error:
				log.WithError(err).Error("websocket read network error")
			default:
				log.WithError(err).Error("websocket read error")
			}

			s.emitReconnect()
			return
		}

		_ = conn.SetReadDeadline(time.Now().Add(defaultReadTimeout))

		if mt != websocket.TextMessage {
			continue
		}

		msg, err := parseMessage(data)
		if err != nil {
			log.WithError(err).Warnf("unable to parse websocket frame: %s", string(data))
			continue
		}

		// a superseded reader must not enqueue frames from its stale
		// connection
		select {
		case <-ctx.Done():
			return
		default:
		}

		if ack, ok := msg.(*subscribeAck); ok {
			s.handleAck(ack.ID)
			continue
		}

		if msg == nil {
			continue
		}

		// backpressure: a slow consumer stalls the stream instead of
		// losing frames
		select {
		case s.msgC <- msg:
		case <-ctx.Done():
			return
		case <-s.closeCtx.Done():
			return
		}
	}
}

func (s *Stream) ping(ctx context.Context, conn *websocket.Conn) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-s.closeCtx.Done():
			return

		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(defaultWriteTimeout)); err != nil {
				log.WithError(err).Error("ping error")
				s.emitReconnect()
				return
			}
		}
	}
}

func (s *Stream) handleAck(id int64) {
	s.ackMu.Lock()
	channel, ok := s.pendingAcks[id]
	delete(s.pendingAcks, id)
	s.ackMu.Unlock()

	if ok {
		s.registry.activate(channel)
	}
}

func (s *Stream) currentConn() *websocket.Conn {
	s.connLock.Lock()
	defer s.connLock.Unlock()
	return s.conn
}

func (s *Stream) sendCommand(conn *websocket.Conn, method, channel string) error {
	id := atomic.AddInt64(&s.requestID, 1)

	if method == "subscribe" {
		s.ackMu.Lock()
		s.pendingAcks[id] = channel
		s.ackMu.Unlock()
	}

	cmd := wsCommand{
		Method: method,
		Params: wsCommandParams{Channels: []string{channel}},
		ID:     id,
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return conn.WriteJSON(cmd)
}

func (s *Stream) sendSubscriptions(conn *websocket.Conn) {
	for _, sub := range s.registry.snapshot() {
		if err := s.sendCommand(conn, "subscribe", sub.Channel); err != nil {
			log.WithError(err).Errorf("failed to subscribe channel %s", sub.Channel)
			s.emitReconnect()
			return
		}

		log.Infof("subscribed to channel %s", sub.Channel)
	}
}

// Subscribe registers a channel and issues the subscribe frame. Subscribing
// to an already registered channel returns the existing handle without
// another frame.
func (s *Stream) Subscribe(channel string) (*Subscription, error) {
	if s.isClosed() {
		return nil, ErrStreamClosed
	}
	if s.State() == StateStopped {
		return nil, ErrConnectionLost
	}

	if s.resolveChannel != nil {
		resolved, err := s.resolveChannel(channel)
		if err != nil {
			return nil, err
		}
		channel = resolved
	}

	sub, isNew := s.registry.register(channel)
	if !isNew {
		return sub, nil
	}

	if conn := s.currentConn(); conn != nil && s.State() == StateConnected {
		if err := s.sendCommand(conn, "subscribe", channel); err != nil {
			// stays registered, the reconnect replay picks it up
			log.WithError(err).Warnf("subscribe frame failed for channel %s", channel)
			s.emitReconnect()
		}
	}

	return sub, nil
}

// Unsubscribe removes a subscription. Unsubscribing a channel that is not
// registered is a no-op and sends nothing.
func (s *Stream) Unsubscribe(sub *Subscription) error {
	if sub == nil {
		return nil
	}
	if s.isClosed() {
		return ErrStreamClosed
	}

	if !s.registry.remove(sub.Channel) {
		return nil
	}

	if conn := s.currentConn(); conn != nil && s.State() == StateConnected {
		if err := s.sendCommand(conn, "unsubscribe", sub.Channel); err != nil {
			log.WithError(err).Warnf("unsubscribe frame failed for channel %s", sub.Channel)
		}
	}

	return nil
}

// SubscriptionState reports the lifecycle state of a channel, after
// applying the channel resolver.
func (s *Stream) SubscriptionState(channel string) SubscriptionState {
	if s.resolveChannel != nil {
		if resolved, err := s.resolveChannel(channel); err == nil {
			channel = resolved
		}
	}

	return s.registry.state(channel)
}

// TakeMessageReceiver hands out the single consumer end of the message
// channel. The second caller gets ErrReceiverAlreadyTaken.
func (s *Stream) TakeMessageReceiver() (<-chan StreamMessage, error) {
	s.receiverMu.Lock()
	defer s.receiverMu.Unlock()

	if s.receiverTaken {
		return nil, ErrReceiverAlreadyTaken
	}

	s.receiverTaken = true
	return s.msgC, nil
}

// Close tears the stream down for good and closes the message channel as
// end of stream. A closed stream cannot be reconnected.
func (s *Stream) Close() {
	s.closeOnce.Do(func() {
		s.closeCancel()

		s.connLock.Lock()
		if s.connCancel != nil {
			s.connCancel()
		}
		if s.conn != nil {
			_ = s.conn.Close()
		}
		s.connLock.Unlock()

		s.registry.clear()
		s.setState(StateStopped)

		s.wg.Wait()
		close(s.msgC)
		log.Infof("stream closed")
	})
}
