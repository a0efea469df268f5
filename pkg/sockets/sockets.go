package sockets

import (
	"context"
	"crypto/tls"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

type Connection interface {
	Dial(ctx context.Context, url string) error
	Send(msg Msg) error
	io.Closer
}

// Conn is a thin callback-driven wrapper over a gorilla websocket client.
// One read goroutine feeds OnMessage; writes happen on the caller's
// goroutine; a transport failure surfaces through OnError at most once per
// connection.
type Conn struct {
	mu            sync.Mutex
	ws            *websocket.Conn
	closed        bool
	sslSkipVerify bool
	readLimit     int64
	onError       func(err error)
	onMessage     func([]byte, Connection)
	onConnected   func(Connection)
}

func New(opts ...func(*Conn)) *Conn {
	c := &Conn{}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Msg is the message structure.
type Msg struct {
	Body []byte
}

// Close closes the connection.
func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.close()
	return nil
}

func (c *Conn) close() {
	if c.ws != nil {
		_ = c.ws.Close()
	}
	c.closed = true
}

func (c *Conn) Send(msg Msg) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.ws == nil {
		return errors.New("closed connection")
	}
	if err := c.ws.WriteMessage(websocket.TextMessage, msg.Body); err != nil {
		c.close()
		return err
	}
	return nil
}

func (c *Conn) Dial(ctx context.Context, url string) error {
	dialer := &websocket.Dialer{
		HandshakeTimeout: 15 * time.Second,
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: c.sslSkipVerify,
		},
	}
	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.ws = conn
	c.closed = false
	if c.readLimit > 0 {
		c.ws.SetReadLimit(c.readLimit)
	}
	c.mu.Unlock()

	if c.onConnected != nil {
		c.onConnected(c)
	}
	go c.readLoop(conn)
	return nil
}

func (c *Conn) readLoop(ws *websocket.Conn) {
	for {
		msgType, msg, err := ws.ReadMessage()
		if err != nil {
			c.mu.Lock()
			deliberate := c.closed
			c.close()
			c.mu.Unlock()
			// a deliberate Close races the reader; only report errors
			// the owner did not cause itself
			if !deliberate && c.onError != nil {
				c.onError(err)
			}
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}
		if c.onMessage != nil {
			c.onMessage(msg, c)
		}
	}
}
