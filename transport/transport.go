// Package transport carries datagrams between an agent and the server.
//
// The protocol is connectionless, but a Transport behaves like a single
// connection: Send goes to the current peer, and Recv is bounded by a read
// timeout and unblocked by Close so that callers can always shut down.
package transport

import (
	"context"
	"errors"
	"strings"
	"time"
)

var (
	// ErrTimeout is returned by Recv when nothing arrived within the read
	// timeout. The transport is still usable.
	ErrTimeout = errors.New("transport: receive timeout")
	// ErrClosed is returned once Close has been called.
	ErrClosed = errors.New("transport: closed")
)

// Transport is one logical connection to the server.
type Transport interface {
	Send(b []byte) error
	// Recv blocks for the next message, at most the read timeout.
	Recv() ([]byte, error)
	// Peer is the address messages are currently sent to.
	Peer() string
	Close() error
}

// Dialer opens transports. Agents dial once per Connect.
type Dialer interface {
	Dial(ctx context.Context) (Transport, error)
}

const DefaultReadTimeout = 500 * time.Millisecond

// NewDialer picks a websocket dialer for ws:// and wss:// addresses and a
// UDP dialer for host:port.
func NewDialer(addr string, readTimeout time.Duration) Dialer {
	if strings.HasPrefix(addr, "ws://") || strings.HasPrefix(addr, "wss://") {
		return &WebSocketDialer{URL: addr, ReadTimeout: readTimeout}
	}
	return &UDPDialer{Addr: addr, ReadTimeout: readTimeout}
}
