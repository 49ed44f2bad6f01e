package stream

import (
	"context"
	"io"

	"github.com/coder/websocket"
)

// Socket is the transport seam. The real implementation wraps a websocket;
// tests substitute FakeSocket.
type Socket interface {
	ReadText(ctx context.Context) (string, error)
	WriteText(ctx context.Context, text string) error
	Close() error
}

type Dialer interface {
	Dial(ctx context.Context, url string) (Socket, error)
}

type RealDialer struct{}

func (RealDialer) Dial(ctx context.Context, url string) (Socket, error) {
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	return &realSocket{conn: conn}, nil
}

type realSocket struct {
	conn *websocket.Conn
}

func (s *realSocket) ReadText(ctx context.Context) (string, error) {
	_, data, err := s.conn.Read(ctx)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (s *realSocket) WriteText(ctx context.Context, text string) error {
	return s.conn.Write(ctx, websocket.MessageText, []byte(text))
}

func (s *realSocket) Close() error {
	return s.conn.Close(websocket.StatusNormalClosure, "")
}

// FakeSocket is an in-memory Socket for tests and wiring checks.
type FakeSocket struct {
	readCh  chan string
	written chan string
	closed  chan struct{}
}

func NewFakeSocket() *FakeSocket {
	return &FakeSocket{
		readCh:  make(chan string, 64),
		written: make(chan string, 64),
		closed:  make(chan struct{}),
	}
}

// EmitText queues one inbound frame.
func (f *FakeSocket) EmitText(text string) {
	f.readCh <- text
}

// CloseFromServer simulates the peer dropping the connection.
func (f *FakeSocket) CloseFromServer() {
	select {
	case <-f.closed:
	default:
		close(f.closed)
	}
}

func (f *FakeSocket) ReadText(ctx context.Context) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-f.closed:
		return "", io.EOF
	case text := <-f.readCh:
		return text, nil
	}
}

func (f *FakeSocket) WriteText(ctx context.Context, text string) error {
	select {
	case f.written <- text:
	default:
	}
	return nil
}

// Written drains and returns the frames written so far.
func (f *FakeSocket) Written() []string {
	out := []string{}
	for {
		select {
		case text := <-f.written:
			out = append(out, text)
		default:
			return out
		}
	}
}

func (f *FakeSocket) Close() error {
	f.CloseFromServer()
	return nil
}
