package transport

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// WebSocket carries one protocol message per text frame, for servers that
// sit behind a websocket bridge.
//
// A gorilla connection cannot be read again after a read deadline fires, so
// a single goroutine owns ReadMessage and Recv waits on its channel instead.
type WebSocket struct {
	conn        *websocket.Conn
	url         string
	readTimeout time.Duration

	sendMu sync.Mutex // gorilla allows one concurrent writer

	msgs     chan []byte
	readDone chan struct{}
	readErr  error // set before readDone is closed

	done      chan struct{}
	closeOnce sync.Once
}

// DialWebSocket connects to url and starts the reader.
func DialWebSocket(ctx context.Context, url string, handshakeTimeout, readTimeout time.Duration) (*WebSocket, error) {
	if handshakeTimeout <= 0 {
		handshakeTimeout = 10 * time.Second
	}
	if readTimeout <= 0 {
		readTimeout = DefaultReadTimeout
	}
	dialer := websocket.Dialer{
		HandshakeTimeout: handshakeTimeout,
	}
	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}
	w := &WebSocket{
		conn:        conn,
		url:         url,
		readTimeout: readTimeout,
		msgs:        make(chan []byte, 64),
		readDone:    make(chan struct{}),
		done:        make(chan struct{}),
	}
	go w.readLoop()
	return w, nil
}

func (w *WebSocket) readLoop() {
	defer close(w.readDone)
	for {
		_, message, err := w.conn.ReadMessage()
		if err != nil {
			w.readErr = err
			return
		}
		select {
		case w.msgs <- message:
		case <-w.done:
			return
		}
	}
}

func (w *WebSocket) Send(b []byte) error {
	select {
	case <-w.done:
		return ErrClosed
	default:
	}
	w.sendMu.Lock()
	defer w.sendMu.Unlock()
	if err := w.conn.WriteMessage(websocket.TextMessage, b); err != nil {
		return fmt.Errorf("websocket send: %w", err)
	}
	return nil
}

func (w *WebSocket) Recv() ([]byte, error) {
	timer := time.NewTimer(w.readTimeout)
	defer timer.Stop()

	select {
	case m := <-w.msgs:
		return m, nil
	case <-w.done:
		return nil, ErrClosed
	case <-timer.C:
		return nil, ErrTimeout
	case <-w.readDone:
		// Drain what the reader delivered before it stopped.
		select {
		case m := <-w.msgs:
			return m, nil
		default:
		}
		if websocket.IsCloseError(w.readErr, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
			return nil, ErrClosed
		}
		select {
		case <-w.done:
			return nil, ErrClosed
		default:
		}
		return nil, fmt.Errorf("websocket recv: %w", w.readErr)
	}
}

func (w *WebSocket) Peer() string { return w.url }

// Close sends a close frame and drops the connection. It unblocks Recv.
func (w *WebSocket) Close() error {
	var err error
	w.closeOnce.Do(func() {
		close(w.done)
		w.sendMu.Lock()
		_ = w.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		w.sendMu.Unlock()
		err = w.conn.Close()
	})
	return err
}

// WebSocketDialer dials a websocket bridge.
type WebSocketDialer struct {
	URL              string
	HandshakeTimeout time.Duration
	ReadTimeout      time.Duration
}

func (d *WebSocketDialer) Dial(ctx context.Context) (Transport, error) {
	return DialWebSocket(ctx, d.URL, d.HandshakeTimeout, d.ReadTimeout)
}
