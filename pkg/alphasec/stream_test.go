package alphasec

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// wsTestServer records every command frame the stream writes and acks
// subscribe requests the way the exchange does.
type wsTestServer struct {
	*httptest.Server

	upgrader websocket.Upgrader
	writeMu  sync.Mutex

	ackMu   sync.Mutex
	skipAck map[string]bool

	commands chan wsCommand
	conns    chan *websocket.Conn
}

func newWSTestServer(t *testing.T) *wsTestServer {
	s := &wsTestServer{
		skipAck:  make(map[string]bool),
		commands: make(chan wsCommand, 32),
		conns:    make(chan *websocket.Conn, 4),
	}

	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		s.conns <- conn

		for {
			var cmd wsCommand
			if err := conn.ReadJSON(&cmd); err != nil {
				return
			}

			s.commands <- cmd
			if cmd.Method == "subscribe" && s.shouldAck(cmd) {
				s.write(conn, map[string]interface{}{"id": cmd.ID, "result": "success"})
			}
		}
	}))

	t.Cleanup(func() {
		s.CloseClientConnections()
		_ = s.Listener.Close()
	})
	return s
}

// setSkipAck leaves subscribe frames for a channel unacked, simulating an
// ack lost to a dying connection.
func (s *wsTestServer) setSkipAck(channel string, skip bool) {
	s.ackMu.Lock()
	defer s.ackMu.Unlock()
	s.skipAck[channel] = skip
}

func (s *wsTestServer) shouldAck(cmd wsCommand) bool {
	s.ackMu.Lock()
	defer s.ackMu.Unlock()

	for _, channel := range cmd.Params.Channels {
		if s.skipAck[channel] {
			return false
		}
	}
	return true
}

func (s *wsTestServer) wsURL() string {
	return "ws" + strings.TrimPrefix(s.URL, "http")
}

func (s *wsTestServer) write(conn *websocket.Conn, v interface{}) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_ = conn.WriteJSON(v)
}

func (s *wsTestServer) push(conn *websocket.Conn, frame string) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_ = conn.WriteMessage(websocket.TextMessage, []byte(frame))
}

func (s *wsTestServer) waitConn(t *testing.T) *websocket.Conn {
	select {
	case conn := <-s.conns:
		return conn
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for a websocket connection")
		return nil
	}
}

func (s *wsTestServer) waitCommand(t *testing.T) wsCommand {
	select {
	case cmd := <-s.commands:
		return cmd
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for a command frame")
		return wsCommand{}
	}
}

func (s *wsTestServer) assertNoCommand(t *testing.T, wait time.Duration) {
	select {
	case cmd := <-s.commands:
		t.Fatalf("unexpected command frame: %+v", cmd)
	case <-time.After(wait):
	}
}

func newTestStream(t *testing.T, server *wsTestServer) *Stream {
	stream := NewStream(server.wsURL())
	stream.ReconnectDelay = 10 * time.Millisecond
	stream.MaxReconnectDelay = 50 * time.Millisecond
	t.Cleanup(stream.Close)
	return stream
}

func waitSubscriptionState(t *testing.T, stream *Stream, channel string, want SubscriptionState) {
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if stream.SubscriptionState(channel) == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}

	t.Fatalf("channel %s never reached state %d", channel, want)
}

func TestStreamSubscribeDeduplicates(t *testing.T) {
	server := newWSTestServer(t)
	stream := newTestStream(t, server)

	require.NoError(t, stream.Connect(context.Background()))

	first, err := stream.Subscribe("ticker@1_2")
	require.NoError(t, err)

	cmd := server.waitCommand(t)
	assert.Equal(t, "subscribe", cmd.Method)
	assert.Equal(t, []string{"ticker@1_2"}, cmd.Params.Channels)

	second, err := stream.Subscribe("ticker@1_2")
	require.NoError(t, err)
	assert.Same(t, first, second)

	// the duplicate must not produce a second frame
	server.assertNoCommand(t, 100*time.Millisecond)

	waitSubscriptionState(t, stream, "ticker@1_2", SubscriptionActive)
}

func TestStreamSubscribeBeforeConnect(t *testing.T) {
	server := newWSTestServer(t)
	stream := newTestStream(t, server)

	_, err := stream.Subscribe("trade@1_2")
	require.NoError(t, err)
	assert.Equal(t, SubscriptionRequested, stream.SubscriptionState("trade@1_2"))

	require.NoError(t, stream.Connect(context.Background()))

	cmd := server.waitCommand(t)
	assert.Equal(t, "subscribe", cmd.Method)
	assert.Equal(t, []string{"trade@1_2"}, cmd.Params.Channels)

	waitSubscriptionState(t, stream, "trade@1_2", SubscriptionActive)
}

func TestStreamUnsubscribeIdempotent(t *testing.T) {
	server := newWSTestServer(t)
	stream := newTestStream(t, server)

	require.NoError(t, stream.Connect(context.Background()))

	sub, err := stream.Subscribe("depth@1_2")
	require.NoError(t, err)
	server.waitCommand(t)

	require.NoError(t, stream.Unsubscribe(sub))
	cmd := server.waitCommand(t)
	assert.Equal(t, "unsubscribe", cmd.Method)

	// already removed, no second frame
	require.NoError(t, stream.Unsubscribe(sub))
	server.assertNoCommand(t, 100*time.Millisecond)

	assert.Equal(t, SubscriptionClosed, stream.SubscriptionState("depth@1_2"))
}

func TestStreamTakeMessageReceiverOnce(t *testing.T) {
	server := newWSTestServer(t)
	stream := newTestStream(t, server)

	_, err := stream.TakeMessageReceiver()
	require.NoError(t, err)

	_, err = stream.TakeMessageReceiver()
	assert.ErrorIs(t, err, ErrReceiverAlreadyTaken)
}

func TestStreamDeliversMessages(t *testing.T) {
	server := newWSTestServer(t)
	stream := newTestStream(t, server)

	receiver, err := stream.TakeMessageReceiver()
	require.NoError(t, err)

	require.NoError(t, stream.Connect(context.Background()))
	conn := server.waitConn(t)

	_, err = stream.Subscribe("ticker@1_2")
	require.NoError(t, err)
	server.waitCommand(t)

	server.push(conn, `{"method":"subscription","params":{"channel":"ticker@1_2","result":[{"marketId":"1_2","price":"0.152"}]}}`)

	select {
	case msg := <-receiver:
		event, ok := msg.(*TickerEvent)
		require.True(t, ok, "unexpected message type %T", msg)
		require.Len(t, event.Tickers, 1)
		assert.Equal(t, "0.152", event.Tickers[0].Price)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for a ticker event")
	}
}

func TestStreamReconnectResubscribes(t *testing.T) {
	server := newWSTestServer(t)
	stream := newTestStream(t, server)

	require.NoError(t, stream.Connect(context.Background()))
	first := server.waitConn(t)

	_, err := stream.Subscribe("ticker@1_2")
	require.NoError(t, err)
	server.waitCommand(t)
	waitSubscriptionState(t, stream, "ticker@1_2", SubscriptionActive)

	// drop the connection server side, the stream must come back and
	// replay the subscription
	_ = first.Close()

	server.waitConn(t)
	cmd := server.waitCommand(t)
	assert.Equal(t, "subscribe", cmd.Method)
	assert.Equal(t, []string{"ticker@1_2"}, cmd.Params.Channels)

	waitSubscriptionState(t, stream, "ticker@1_2", SubscriptionActive)
}

func TestStreamReconnectClosesPreviousConnection(t *testing.T) {
	server := newWSTestServer(t)
	stream := newTestStream(t, server)

	receiver, err := stream.TakeMessageReceiver()
	require.NoError(t, err)

	require.NoError(t, stream.Connect(context.Background()))
	first := server.waitConn(t)

	_, err = stream.Subscribe("ticker@1_2")
	require.NoError(t, err)
	server.waitCommand(t)
	waitSubscriptionState(t, stream, "ticker@1_2", SubscriptionActive)

	// force a reconnect while the first connection is still healthy, as a
	// failed ping write on a half-open socket would
	stream.emitReconnect()

	second := server.waitConn(t)
	cmd := server.waitCommand(t)
	assert.Equal(t, "subscribe", cmd.Method)
	waitSubscriptionState(t, stream, "ticker@1_2", SubscriptionActive)

	// a frame pushed down the superseded connection must never reach the
	// consumer, only the live connection delivers
	server.push(first, `{"method":"subscription","params":{"channel":"ticker@1_2","result":[{"marketId":"1_2","price":"0.001"}]}}`)
	server.push(second, `{"method":"subscription","params":{"channel":"ticker@1_2","result":[{"marketId":"1_2","price":"0.200"}]}}`)

	select {
	case msg := <-receiver:
		event, ok := msg.(*TickerEvent)
		require.True(t, ok, "unexpected message type %T", msg)
		require.Len(t, event.Tickers, 1)
		assert.Equal(t, "0.200", event.Tickers[0].Price)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for a ticker event")
	}

	select {
	case msg := <-receiver:
		t.Fatalf("unexpected extra message: %+v", msg)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestStreamReportsReconnectingAcrossFailedDials(t *testing.T) {
	server := newWSTestServer(t)
	stream := newTestStream(t, server)
	stream.MaxReconnectAttempts = 50

	require.NoError(t, stream.Connect(context.Background()))
	conn := server.waitConn(t)

	// every dial of the retry run fails
	require.NoError(t, server.Listener.Close())
	_ = conn.Close()

	require.Eventually(t, func() bool {
		return stream.State() == StateReconnecting
	}, 5*time.Second, 5*time.Millisecond)

	// the state holds for the whole run instead of flapping through
	// connecting and disconnected between attempts
	for i := 0; i < 20; i++ {
		assert.Equal(t, StateReconnecting, stream.State())
		time.Sleep(5 * time.Millisecond)
	}
}

func TestStreamReconnectDropsStalePendingAcks(t *testing.T) {
	server := newWSTestServer(t)
	stream := newTestStream(t, server)

	require.NoError(t, stream.Connect(context.Background()))
	first := server.waitConn(t)

	_, err := stream.Subscribe("ticker@1_2")
	require.NoError(t, err)
	server.waitCommand(t)
	waitSubscriptionState(t, stream, "ticker@1_2", SubscriptionActive)

	// this subscribe frame is written but its ack never arrives
	server.setSkipAck("depth@1_2", true)
	_, err = stream.Subscribe("depth@1_2")
	require.NoError(t, err)
	server.waitCommand(t)
	require.Equal(t, 1, pendingAckCount(stream))

	server.setSkipAck("depth@1_2", false)
	_ = first.Close()

	server.waitConn(t)
	server.waitCommand(t)
	server.waitCommand(t)
	waitSubscriptionState(t, stream, "depth@1_2", SubscriptionActive)

	// the replayed subscribes were acked and the stale entry is gone
	require.Eventually(t, func() bool {
		return pendingAckCount(stream) == 0
	}, 5*time.Second, 5*time.Millisecond)
}

func pendingAckCount(stream *Stream) int {
	stream.ackMu.Lock()
	defer stream.ackMu.Unlock()
	return len(stream.pendingAcks)
}

func TestStreamStopsAfterExhaustedReconnects(t *testing.T) {
	server := newWSTestServer(t)
	stream := newTestStream(t, server)
	stream.MaxReconnectAttempts = 1

	receiver, err := stream.TakeMessageReceiver()
	require.NoError(t, err)

	require.NoError(t, stream.Connect(context.Background()))
	conn := server.waitConn(t)

	// no listener to come back to
	require.NoError(t, server.Listener.Close())
	_ = conn.Close()

	deadline := time.After(10 * time.Second)
	for {
		select {
		case msg := <-receiver:
			if _, ok := msg.(*DisconnectedEvent); ok {
				assert.Equal(t, StateStopped, stream.State())

				_, err := stream.Subscribe("ticker@1_2")
				assert.ErrorIs(t, err, ErrConnectionLost)
				return
			}
		case <-deadline:
			t.Fatal("timed out waiting for the disconnected event")
		}
	}
}

func TestStreamClose(t *testing.T) {
	server := newWSTestServer(t)
	stream := NewStream(server.wsURL())

	receiver, err := stream.TakeMessageReceiver()
	require.NoError(t, err)

	require.NoError(t, stream.Connect(context.Background()))
	server.waitConn(t)

	stream.Close()

	// the message channel closes as end of stream
	select {
	case _, ok := <-receiver:
		assert.False(t, ok)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for the channel to close")
	}

	assert.Equal(t, StateStopped, stream.State())

	_, err = stream.Subscribe("ticker@1_2")
	assert.ErrorIs(t, err, ErrStreamClosed)
	assert.ErrorIs(t, stream.Connect(context.Background()), ErrStreamClosed)

	// closing again is a no-op
	stream.Close()
}

func TestStreamChannelResolver(t *testing.T) {
	server := newWSTestServer(t)
	stream := newTestStream(t, server)
	stream.SetChannelResolver(func(channel string) (string, error) {
		if channel == "ticker@KAIA/USDT" {
			return "ticker@1_2", nil
		}
		return channel, nil
	})

	require.NoError(t, stream.Connect(context.Background()))

	sub, err := stream.Subscribe("ticker@KAIA/USDT")
	require.NoError(t, err)
	assert.Equal(t, "ticker@1_2", sub.Channel)

	cmd := server.waitCommand(t)
	assert.Equal(t, []string{"ticker@1_2"}, cmd.Params.Channels)

	// the resolved and the symbolic form address the same subscription
	again, err := stream.Subscribe("ticker@1_2")
	require.NoError(t, err)
	assert.Same(t, sub, again)
	server.assertNoCommand(t, 100*time.Millisecond)
}
