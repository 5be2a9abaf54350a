package rtm

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/videostream/errors"
)

// fakeConn is an in-memory Conn. Inbound frames are injected with serve;
// outbound frames are captured for inspection.
type fakeConn struct {
	in        chan []byte
	closed    chan struct{}
	closeOnce sync.Once

	mu     sync.Mutex
	writes [][]byte
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		in:     make(chan []byte, 16),
		closed: make(chan struct{}),
	}
}

func (f *fakeConn) ReadMessage() ([]byte, error) {
	select {
	case msg := <-f.in:
		return msg, nil
	case <-f.closed:
		return nil, io.EOF
	}
}

func (f *fakeConn) WriteMessage(data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes = append(f.writes, data)
	return nil
}

func (f *fakeConn) Close() error {
	f.closeOnce.Do(func() { close(f.closed) })
	return nil
}

func (f *fakeConn) serve(t *testing.T, frame string) {
	t.Helper()
	select {
	case f.in <- []byte(frame):
	case <-time.After(time.Second):
		t.Fatal("read loop did not consume frame")
	}
}

func (f *fakeConn) written(t *testing.T, i int) map[string]any {
	t.Helper()
	require.Eventually(t, func() bool {
		f.mu.Lock()
		defer f.mu.Unlock()
		return len(f.writes) > i
	}, time.Second, time.Millisecond)

	f.mu.Lock()
	defer f.mu.Unlock()
	var frame map[string]any
	require.NoError(t, json.Unmarshal(f.writes[i], &frame))
	return frame
}

func startTestClient(t *testing.T, opts ...ClientOption) (*Client, *fakeConn) {
	t.Helper()
	conn := newFakeConn()
	opts = append(opts, WithDialer(
		func(_ context.Context, _ string, _ *tls.Config) (Conn, error) {
			return conn, nil
		}))
	client := NewClient("wss://example.com/v2?appkey=k", opts...)
	require.NoError(t, client.Start(context.Background()))
	return client, conn
}

func eventually(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	require.Eventually(t, cond, time.Second, time.Millisecond, msg)
}

func TestClient_StartStop(t *testing.T) {
	client, _ := startTestClient(t)
	assert.Equal(t, StatusRunning, client.Status())

	require.NoError(t, client.Stop())
	assert.Equal(t, StatusStopped, client.Status())

	// stopping again is invalid
	assert.Error(t, client.Stop())
}

func TestClient_StartWhileRunning(t *testing.T) {
	client, _ := startTestClient(t)
	defer func() { _ = client.Stop() }()

	assert.Error(t, client.Start(context.Background()))
}

func TestClient_PublishNotConnected(t *testing.T) {
	client := NewClient("wss://example.com/v2?appkey=k")
	err := client.Publish("camera", map[string]any{"x": 1})
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrNotConnected)
}

func TestClient_PublishCarriesNoID(t *testing.T) {
	client, conn := startTestClient(t)
	defer func() { _ = client.Stop() }()

	require.NoError(t, client.Publish("camera", map[string]any{"x": 1}))

	frame := conn.written(t, 0)
	assert.Equal(t, "rtm/publish", frame["action"])
	assert.NotContains(t, frame, "id")
	body := frame["body"].(map[string]any)
	assert.Equal(t, "camera", body["channel"])
	assert.Equal(t, map[string]any{"x": float64(1)}, body["message"])
}

func TestClient_SubscribeFlow(t *testing.T) {
	client, conn := startTestClient(t)
	defer func() { _ = client.Stop() }()

	var mu sync.Mutex
	var received []string
	require.NoError(t, client.Subscribe("a", SubscriptionCallbacks{
		OnData: func(msg json.RawMessage) {
			mu.Lock()
			received = append(received, string(msg))
			mu.Unlock()
		},
	}, nil))

	frame := conn.written(t, 0)
	assert.Equal(t, "rtm/subscribe", frame["action"])
	assert.Equal(t, float64(1), frame["id"])
	body := frame["body"].(map[string]any)
	assert.Equal(t, "a", body["channel"])
	assert.Equal(t, "a", body["subscription_id"])

	// data before the ack is discarded, not delivered
	conn.serve(t, `{"action":"rtm/subscription/data","body":{"subscription_id":"a","messages":[{"early":true}]}}`)
	conn.serve(t, `{"action":"rtm/subscribe/ok","id":1}`)
	conn.serve(t, `{"action":"rtm/subscription/data","body":{"subscription_id":"a","messages":[{"x":1},{"x":2}]}}`)

	eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(received) == 2
	}, "data frames delivered after ack")

	mu.Lock()
	defer mu.Unlock()
	assert.JSONEq(t, `{"x":1}`, received[0])
	assert.JSONEq(t, `{"x":2}`, received[1])
}

func TestClient_SubscribeWithHistory(t *testing.T) {
	client, conn := startTestClient(t)
	defer func() { _ = client.Stop() }()

	require.NoError(t, client.Subscribe("meta", SubscriptionCallbacks{},
		&SubscribeOptions{History: &History{Count: 1}}))

	frame := conn.written(t, 0)
	body := frame["body"].(map[string]any)
	history := body["history"].(map[string]any)
	assert.Equal(t, float64(1), history["count"])
}

func TestClient_DoubleSubscribe(t *testing.T) {
	client, _ := startTestClient(t)
	defer func() { _ = client.Stop() }()

	require.NoError(t, client.Subscribe("a", SubscriptionCallbacks{}, nil))
	err := client.Subscribe("a", SubscriptionCallbacks{}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrAlreadySubscribed)
}

func TestClient_SubscribeError(t *testing.T) {
	client, _ := startTestClient(t)
	defer func() { _ = client.Stop() }()

	var mu sync.Mutex
	var subErr error
	var dataDelivered bool
	require.NoError(t, client.Subscribe("a", SubscriptionCallbacks{
		OnData: func(json.RawMessage) {
			mu.Lock()
			dataDelivered = true
			mu.Unlock()
		},
		OnError: func(err error) {
			mu.Lock()
			subErr = err
			mu.Unlock()
		},
	}, nil))

	conn := clientConn(t, client)
	conn.serve(t, `{"action":"rtm/subscribe/error","id":1,"body":{"error":"denied","reason":"no such channel"}}`)

	eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return subErr != nil
	}, "error callback invoked")

	mu.Lock()
	assert.ErrorIs(t, subErr, errors.ErrSubscribeFailed)
	assert.Contains(t, subErr.Error(), "no such channel")
	assert.False(t, dataDelivered)
	mu.Unlock()
	assert.Equal(t, StatusRunning, client.Status(), "a subscribe error is not fatal")
}

func TestClient_UnsubscribeDiscardsInflightData(t *testing.T) {
	client, conn := startTestClient(t)
	defer func() { _ = client.Stop() }()

	var mu sync.Mutex
	var received int
	var subErr error
	require.NoError(t, client.Subscribe("a", SubscriptionCallbacks{
		OnData: func(json.RawMessage) {
			mu.Lock()
			received++
			mu.Unlock()
		},
		OnError: func(err error) {
			mu.Lock()
			subErr = err
			mu.Unlock()
		},
	}, nil))
	conn.serve(t, `{"action":"rtm/subscribe/ok","id":1}`)

	eventually(t, func() bool {
		return client.Unsubscribe("a") == nil
	}, "unsubscribe accepted once current")

	frame := conn.written(t, 1)
	assert.Equal(t, "rtm/unsubscribe", frame["action"])
	assert.Equal(t, float64(2), frame["id"])

	// in-flight data between request and ack is silently dropped
	conn.serve(t, `{"action":"rtm/subscription/data","body":{"subscription_id":"a","messages":[{"x":1}]}}`)
	conn.serve(t, `{"action":"rtm/unsubscribe/ok","id":2}`)

	// record removed: resubscribing the same channel is accepted
	eventually(t, func() bool {
		return client.Subscribe("a", SubscriptionCallbacks{}, nil) == nil
	}, "record removed after unsubscribe ack")

	mu.Lock()
	defer mu.Unlock()
	assert.Zero(t, received)
	assert.NoError(t, subErr)
}

func TestClient_UnsubscribeRequiresCurrent(t *testing.T) {
	client, _ := startTestClient(t)
	defer func() { _ = client.Stop() }()

	assert.Error(t, client.Unsubscribe("absent"))

	require.NoError(t, client.Subscribe("a", SubscriptionCallbacks{}, nil))
	assert.Error(t, client.Unsubscribe("a"), "pending subscribe cannot be unsubscribed")
}

func TestClient_SubscriptionErrorRemovesRecord(t *testing.T) {
	client, conn := startTestClient(t)
	defer func() { _ = client.Stop() }()

	var mu sync.Mutex
	var subErr error
	require.NoError(t, client.Subscribe("a", SubscriptionCallbacks{
		OnError: func(err error) {
			mu.Lock()
			subErr = err
			mu.Unlock()
		},
	}, nil))
	conn.serve(t, `{"action":"rtm/subscribe/ok","id":1}`)
	conn.serve(t, `{"action":"rtm/subscription/error","body":{"subscription_id":"a","reason":"expired"}}`)

	eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return subErr != nil
	}, "subscription error delivered")

	mu.Lock()
	assert.ErrorIs(t, subErr, errors.ErrSubscription)
	mu.Unlock()
	assert.Equal(t, StatusRunning, client.Status())
}

func TestClient_UnknownActionIsFatal(t *testing.T) {
	fatal := make(chan error, 1)
	client, conn := startTestClient(t, WithErrorCallback(func(err error) { fatal <- err }))

	conn.serve(t, `{"action":"rtm/bogus"}`)

	select {
	case err := <-fatal:
		assert.ErrorIs(t, err, errors.ErrInvalidResponse)
		assert.True(t, errors.IsFatal(err))
	case <-time.After(time.Second):
		t.Fatal("fatal callback not invoked")
	}
	eventually(t, func() bool { return client.Status() == StatusStopped }, "client torn down")
}

func TestClient_UnmatchedAckIsFatal(t *testing.T) {
	fatal := make(chan error, 1)
	client, conn := startTestClient(t, WithErrorCallback(func(err error) { fatal <- err }))

	conn.serve(t, `{"action":"rtm/subscribe/ok","id":99}`)

	select {
	case err := <-fatal:
		assert.ErrorIs(t, err, errors.ErrProtocolDesync)
	case <-time.After(time.Second):
		t.Fatal("fatal callback not invoked")
	}
	eventually(t, func() bool { return client.Status() == StatusStopped }, "client torn down")
}

func TestClient_DataForUnknownChannelIsFatal(t *testing.T) {
	fatal := make(chan error, 1)
	subErrs := make(chan error, 1)
	client, conn := startTestClient(t, WithErrorCallback(func(err error) { fatal <- err }))

	require.NoError(t, client.Subscribe("a", SubscriptionCallbacks{
		OnError: func(err error) { subErrs <- err },
	}, nil))
	conn.serve(t, `{"action":"rtm/subscribe/ok","id":1}`)
	conn.serve(t, `{"action":"rtm/subscription/data","body":{"subscription_id":"ghost","messages":[]}}`)

	select {
	case err := <-fatal:
		assert.ErrorIs(t, err, errors.ErrProtocolDesync)
	case <-time.After(time.Second):
		t.Fatal("fatal callback not invoked")
	}

	// the surviving subscription is errored during teardown
	select {
	case err := <-subErrs:
		assert.ErrorIs(t, err, errors.ErrProtocolDesync)
	case <-time.After(time.Second):
		t.Fatal("registered subscription not notified")
	}
	eventually(t, func() bool { return client.Status() == StatusStopped }, "client torn down")
}

func TestClient_ConnectionLossIsFatal(t *testing.T) {
	fatal := make(chan error, 1)
	client, conn := startTestClient(t, WithErrorCallback(func(err error) { fatal <- err }))

	// an unexpected close is not the requested-stop path
	_ = conn.Close()

	select {
	case err := <-fatal:
		assert.ErrorIs(t, err, errors.ErrConnectionLost)
	case <-time.After(time.Second):
		t.Fatal("fatal callback not invoked")
	}
	eventually(t, func() bool { return client.Status() == StatusStopped }, "client torn down")
}

func TestClient_StopPurgesWithoutErrors(t *testing.T) {
	client, conn := startTestClient(t)

	errs := make(chan error, 1)
	require.NoError(t, client.Subscribe("a", SubscriptionCallbacks{
		OnError: func(err error) { errs <- err },
	}, nil))
	conn.serve(t, `{"action":"rtm/subscribe/ok","id":1}`)

	require.NoError(t, client.Stop())

	select {
	case err := <-errs:
		t.Fatalf("requested stop must not error subscriptions, got %v", err)
	default:
	}
	assert.Equal(t, StatusStopped, client.Status())
}

func TestClient_ReentrantUnsubscribeFromDataCallback(t *testing.T) {
	client, conn := startTestClient(t)
	defer func() { _ = client.Stop() }()

	unsubErr := make(chan error, 1)
	require.NoError(t, client.Subscribe("a", SubscriptionCallbacks{
		OnData: func(json.RawMessage) {
			unsubErr <- client.Unsubscribe("a")
		},
	}, nil))
	conn.serve(t, `{"action":"rtm/subscribe/ok","id":1}`)
	conn.serve(t, `{"action":"rtm/subscription/data","body":{"subscription_id":"a","messages":[{"x":1}]}}`)

	select {
	case err := <-unsubErr:
		assert.NoError(t, err, "unsubscribe from inside a data callback must not deadlock")
	case <-time.After(time.Second):
		t.Fatal("data callback never ran")
	}
}

// clientConn extracts the fake connection for tests that created the
// client through startTestClient but lost the handle.
func clientConn(t *testing.T, c *Client) *fakeConn {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	conn, ok := c.conn.(*fakeConn)
	require.True(t, ok)
	return conn
}
