package protocol

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// ErrClosed is returned by a Conn after it, or its peer, has been closed.
var ErrClosed = errors.New("protocol: connection closed")

// Conn carries serialized frames between host and sandbox. The two ends
// share nothing but the frames themselves.
type Conn interface {
	Send(ctx context.Context, frame []byte) error
	Receive(ctx context.Context) ([]byte, error)
	Close() error
}

// SendMessage encodes m and sends it on c.
func SendMessage(ctx context.Context, c Conn, m Message) error {
	frame, err := Encode(m)
	if err != nil {
		return err
	}
	return c.Send(ctx, frame)
}

// pipeBuffer is the number of frames each direction of a Pipe holds before
// Send blocks.
const pipeBuffer = 32

type pipeConn struct {
	in  <-chan []byte
	out chan<- []byte

	done chan struct{}
	once *sync.Once
}

// Pipe returns two connected in-process endpoints. Frames are copied on
// Send, so neither side can observe the other's buffers. Closing either end
// closes both.
func Pipe() (host, sandbox Conn) {
	toSandbox := make(chan []byte, pipeBuffer)
	toHost := make(chan []byte, pipeBuffer)
	done := make(chan struct{})
	once := &sync.Once{}

	h := &pipeConn{in: toHost, out: toSandbox, done: done, once: once}
	s := &pipeConn{in: toSandbox, out: toHost, done: done, once: once}
	return h, s
}

func (p *pipeConn) Send(ctx context.Context, frame []byte) error {
	select {
	case <-p.done:
		return ErrClosed
	default:
	}
	buf := append([]byte(nil), frame...)
	select {
	case p.out <- buf:
		return nil
	case <-p.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *pipeConn) Receive(ctx context.Context) ([]byte, error) {
	select {
	case frame := <-p.in:
		return frame, nil
	case <-p.done:
		return nil, ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (p *pipeConn) Close() error {
	p.once.Do(func() { close(p.done) })
	return nil
}

// writeWait bounds a single websocket write when the caller's context has
// no deadline.
const writeWait = 10 * time.Second

// WebSocketConn adapts a gorilla websocket connection to Conn. Frames are
// sent as text messages.
type WebSocketConn struct {
	ws *websocket.Conn

	writeMu sync.Mutex
	frames  chan []byte
	readErr error
	done    chan struct{}
	closed  sync.Once
}

// NewWebSocketConn wraps ws and starts reading from it. Inbound messages
// larger than MaxFrameSize close the connection.
func NewWebSocketConn(ws *websocket.Conn) *WebSocketConn {
	ws.SetReadLimit(MaxFrameSize)
	c := &WebSocketConn{
		ws:     ws,
		frames: make(chan []byte, pipeBuffer),
		done:   make(chan struct{}),
	}
	go c.readLoop()
	return c
}

func (c *WebSocketConn) readLoop() {
	defer close(c.frames)
	for {
		kind, data, err := c.ws.ReadMessage()
		if err != nil {
			c.readErr = err
			return
		}
		if kind != websocket.TextMessage && kind != websocket.BinaryMessage {
			continue
		}
		select {
		case c.frames <- data:
		case <-c.done:
			return
		}
	}
}

func (c *WebSocketConn) Send(ctx context.Context, frame []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case <-c.done:
		return ErrClosed
	default:
	}
	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(writeWait)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.ws.SetWriteDeadline(deadline)
	if err := c.ws.WriteMessage(websocket.TextMessage, frame); err != nil {
		return fmt.Errorf("writing frame: %w", err)
	}
	return nil
}

func (c *WebSocketConn) Receive(ctx context.Context) ([]byte, error) {
	select {
	case frame, ok := <-c.frames:
		if !ok {
			if websocket.IsCloseError(c.readErr, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil, ErrClosed
			}
			return nil, fmt.Errorf("reading frame: %w", errors.Join(ErrClosed, c.readErr))
		}
		return frame, nil
	case <-c.done:
		return nil, ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close sends a close frame and releases the underlying connection.
func (c *WebSocketConn) Close() error {
	var err error
	c.closed.Do(func() {
		close(c.done)
		c.writeMu.Lock()
		c.ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		c.writeMu.Unlock()
		err = c.ws.Close()
	})
	return err
}
