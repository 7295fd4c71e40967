package transport

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type echoResponder struct{}

func (echoResponder) Request(_ context.Context, payload []byte) ([]byte, error) {
	if string(payload) == "fail" {
		return nil, errors.New("boom")
	}
	return []byte(strings.ToUpper(string(payload))), nil
}

func newTestServer(t *testing.T) string {
	t.Helper()
	srv := httptest.NewServer(NewServer(echoResponder{}, ServerConfig{Logger: log.New(io.Discard, "", 0)}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestConnRequestRoundTrip(t *testing.T) {
	url := newTestServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	conn, err := Dial(ctx, url, DialConfig{Logger: log.New(io.Discard, "", 0)})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	for _, msg := range []string{"positions", "pause", "restart"} {
		reply, err := conn.Request(ctx, []byte(msg))
		require.NoError(t, err)
		assert.Equal(t, strings.ToUpper(msg), string(reply))
	}

	reply, err := conn.Request(ctx, []byte("fail"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"error":"boom"}`, string(reply))
}

func TestConnClose(t *testing.T) {
	url := newTestServer(t)
	conn, err := Dial(context.Background(), url, DialConfig{Logger: log.New(io.Discard, "", 0)})
	require.NoError(t, err)

	require.NoError(t, conn.Close())
	require.NoError(t, conn.Close())
	_, err = conn.Request(context.Background(), []byte("x"))
	assert.ErrorIs(t, err, ErrClosed)
}

func TestDialFailure(t *testing.T) {
	_, err := Dial(context.Background(), "ws://127.0.0.1:1/none", DialConfig{Timeout: 200 * time.Millisecond})
	assert.Error(t, err)
}

func TestRequestHonoursCancelledContext(t *testing.T) {
	url := newTestServer(t)
	conn, err := Dial(context.Background(), url, DialConfig{Logger: log.New(io.Discard, "", 0)})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = conn.Request(ctx, []byte("x"))
	assert.ErrorIs(t, err, context.Canceled)
}

// slowFirstResponder stalls its first request only.
type slowFirstResponder struct {
	calls atomic.Int32
	delay time.Duration
}

func (r *slowFirstResponder) Request(_ context.Context, payload []byte) ([]byte, error) {
	if r.calls.Add(1) == 1 {
		time.Sleep(r.delay)
	}
	return []byte(strings.ToUpper(string(payload))), nil
}

func TestConnRecoversAfterTimeout(t *testing.T) {
	logger := log.New(io.Discard, "", 0)
	srv := httptest.NewServer(NewServer(&slowFirstResponder{delay: 80 * time.Millisecond}, ServerConfig{Logger: logger}))
	t.Cleanup(srv.Close)
	url := "ws" + strings.TrimPrefix(srv.URL, "http")

	conn, err := Dial(context.Background(), url, DialConfig{Logger: logger})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	short, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	_, err = conn.Request(short, []byte("late"))
	cancel()
	require.Error(t, err)

	time.Sleep(100 * time.Millisecond)
	for _, msg := range []string{"positions", "collisions", "pause"} {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		reply, err := conn.Request(ctx, []byte(msg))
		cancel()
		require.NoError(t, err)
		assert.Equal(t, strings.ToUpper(msg), string(reply), "stale reply must not leak into a later request")
	}
}
