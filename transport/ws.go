package transport

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

var ErrClosed = errors.New("transport: connection closed")

type DialConfig struct {
	// Timeout bounds the handshake when ctx has no deadline. Zero means 5s.
	Timeout time.Duration
	Header  http.Header
	Logger  *log.Logger
}

// Conn is a request/response channel over one websocket. Each Request
// writes a text frame and waits for the next frame as its answer. A socket
// that fails a read or write is dropped and the next Request dials again,
// so a late reply is never taken for the answer to a later request.
type Conn struct {
	mu     sync.Mutex
	ws     *websocket.Conn
	url    string
	cfg    DialConfig
	closed bool
	logger *log.Logger
}

func Dial(ctx context.Context, url string, cfg DialConfig) (*Conn, error) {
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	c := &Conn{url: url, cfg: cfg, logger: cfg.Logger}
	ws, err := c.dial(ctx)
	if err != nil {
		return nil, err
	}
	c.ws = ws
	return c, nil
}

func (c *Conn) dial(ctx context.Context) (*websocket.Conn, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	dialer := *websocket.DefaultDialer
	ws, resp, err := dialer.DialContext(ctx, c.url, c.cfg.Header)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("transport: dial %s: %w", c.url, err)
	}
	c.logger.Printf("transport: connected to %s", c.url)
	return ws, nil
}

// drop discards a socket left in an unknown state.
func (c *Conn) drop() {
	if c.ws == nil {
		return
	}
	c.ws.Close()
	c.ws = nil
}

// Request sends payload and returns the reply. Calls are serialized.
func (c *Conn) Request(ctx context.Context, payload []byte) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if c.ws == nil {
		ws, err := c.dial(ctx)
		if err != nil {
			return nil, err
		}
		c.ws = ws
	}

	deadline, _ := ctx.Deadline()
	if err := c.ws.SetWriteDeadline(deadline); err != nil {
		c.drop()
		return nil, fmt.Errorf("transport: %w", err)
	}
	if err := c.ws.WriteMessage(websocket.TextMessage, payload); err != nil {
		c.drop()
		return nil, fmt.Errorf("transport: write %s: %w", c.url, err)
	}
	if err := c.ws.SetReadDeadline(deadline); err != nil {
		c.drop()
		return nil, fmt.Errorf("transport: %w", err)
	}
	_, reply, err := c.ws.ReadMessage()
	if err != nil {
		c.drop()
		return nil, fmt.Errorf("transport: read %s: %w", c.url, err)
	}
	return reply, nil
}

// Close says goodbye to the peer and releases the socket. It is safe to
// call more than once.
func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	if c.ws == nil {
		return nil
	}
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	if err := c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second)); err != nil {
		c.logger.Printf("transport: close %s: %v", c.url, err)
	}
	err := c.ws.Close()
	c.ws = nil
	return err
}

// Responder answers one request frame.
type Responder interface {
	Request(ctx context.Context, payload []byte) ([]byte, error)
}

type ServerConfig struct {
	Logger *log.Logger
	// CheckOrigin defaults to accepting every origin.
	CheckOrigin func(r *http.Request) bool
}

// Server exposes a Responder over websocket, one reply per frame.
type Server struct {
	responder Responder
	upgrader  websocket.Upgrader
	logger    *log.Logger
}

func NewServer(responder Responder, cfg ServerConfig) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}
	check := cfg.CheckOrigin
	if check == nil {
		check = func(*http.Request) bool { return true }
	}
	return &Server{
		responder: responder,
		upgrader:  websocket.Upgrader{CheckOrigin: check},
		logger:    logger,
	}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Printf("transport: upgrade: %v", err)
		return
	}
	defer ws.Close()

	for {
		kind, payload, err := ws.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Printf("transport: read: %v", err)
			}
			return
		}
		if kind != websocket.TextMessage {
			continue
		}
		reply, err := s.responder.Request(r.Context(), payload)
		if err != nil {
			s.logger.Printf("transport: request: %v", err)
			reply = []byte(fmt.Sprintf(`{"error":%q}`, err.Error()))
		}
		if err := ws.WriteMessage(websocket.TextMessage, reply); err != nil {
			s.logger.Printf("transport: write: %v", err)
			return
		}
	}
}
