// Package ws is the agent side of the arena websocket: one Conn per ship.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"arenabot.ai/internal/protocol"
)

// ErrClosed is returned by Receive and Send once the connection is gone,
// whichever side closed it. It matches io.EOF.
var ErrClosed = fmt.Errorf("ws: connection closed: %w", io.EOF)

type Options struct {
	HandshakeTimeout time.Duration // default 5s
	WriteTimeout     time.Duration // default 5s
	// ReadTimeout bounds the wait for one frame. Zero waits forever; the
	// arena only talks while a round is running.
	ReadTimeout time.Duration

	Logger *log.Logger
}

func (o *Options) normalize() {
	if o.HandshakeTimeout <= 0 {
		o.HandshakeTimeout = 5 * time.Second
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = 5 * time.Second
	}
	if o.Logger == nil {
		o.Logger = log.Default()
	}
}

// Conn carries snapshots in and commands out over one websocket.
// Receive must be called from a single goroutine; Send and Close are safe from any.
type Conn struct {
	ws   *websocket.Conn
	opts Options
	log  *log.Logger

	writeMu sync.Mutex

	closeOnce sync.Once
	closed    chan struct{}
}

// Dial connects to the arena at url (e.g. ws://localhost:48666).
func Dial(ctx context.Context, url string, opts Options) (*Conn, error) {
	opts.normalize()
	d := websocket.Dialer{
		HandshakeTimeout: opts.HandshakeTimeout,
		ReadBufferSize:   64 * 1024,
		WriteBufferSize:  4 * 1024,
	}
	c, resp, err := d.DialContext(ctx, url, http.Header{})
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("ws: dial %s: %w", url, err)
	}
	opts.Logger.Debug("connected", "url", url, "remote", c.RemoteAddr())
	return Wrap(c, opts), nil
}

// Wrap adopts an established websocket.
func Wrap(c *websocket.Conn, opts Options) *Conn {
	opts.normalize()
	return &Conn{
		ws:     c,
		opts:   opts,
		log:    opts.Logger,
		closed: make(chan struct{}),
	}
}

// Receive blocks for the next data frame. Cancelling ctx closes the connection,
// which is the only way to wake a blocked ReadMessage; Receive then returns ctx.Err().
func (c *Conn) Receive(ctx context.Context) ([]byte, error) {
	if c.isClosed() {
		return nil, ErrClosed
	}
	stop := context.AfterFunc(ctx, func() { _ = c.Close() })
	defer stop()

	if c.opts.ReadTimeout > 0 {
		_ = c.ws.SetReadDeadline(time.Now().Add(c.opts.ReadTimeout))
	}
	_, msg, err := c.ws.ReadMessage()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if c.isClosed() || isClosedErr(err) {
			c.log.Debug("remote closed", "err", err)
			_ = c.Close()
			return nil, ErrClosed
		}
		return nil, fmt.Errorf("ws: read: %w", err)
	}
	return msg, nil
}

// Send writes cmd as one text frame. Writes are serialized, so commands from
// one agent arrive in the order they were sent.
func (c *Conn) Send(cmd protocol.Command) error {
	b, err := json.Marshal(cmd)
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if c.isClosed() {
		return ErrClosed
	}
	_ = c.ws.SetWriteDeadline(time.Now().Add(c.opts.WriteTimeout))
	if err := c.ws.WriteMessage(websocket.TextMessage, b); err != nil {
		if isClosedErr(err) {
			return ErrClosed
		}
		return fmt.Errorf("ws: write: %w", err)
	}
	return nil
}

// Close sends a best-effort close frame and tears the socket down. It is idempotent.
func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closed)
		_ = c.ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		err = c.ws.Close()
	})
	return err
}

func (c *Conn) isClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

func isClosedErr(err error) bool {
	var ce *websocket.CloseError
	switch {
	case errors.As(err, &ce):
		return true
	case errors.Is(err, net.ErrClosed), errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		return true
	case errors.Is(err, websocket.ErrCloseSent):
		return true
	case errors.Is(err, syscall.ECONNRESET), errors.Is(err, syscall.EPIPE):
		// Arena killed or restarted without a close frame.
		return true
	}
	return false
}
