package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"sync/atomic"
	"time"
)

// maxDatagram covers the largest message the server sends.
const maxDatagram = 8192 * 2

// UDP is an unconnected socket whose peer follows the server: after init the
// server answers from a per-client port, and every datagram read moves the
// peer to its sender.
type UDP struct {
	conn        *net.UDPConn
	peer        atomic.Pointer[net.UDPAddr]
	readTimeout time.Duration
	closed      atomic.Bool
	buf         []byte
}

// DialUDP resolves addr and opens a local socket on an ephemeral port.
func DialUDP(ctx context.Context, addr string, readTimeout time.Duration) (*UDP, error) {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, fmt.Errorf("parse address %q: %w", addr, err)
	}
	ips, err := net.DefaultResolver.LookupIPAddr(ctx, host)
	if err != nil {
		return nil, fmt.Errorf("resolve %q: %w", host, err)
	}
	if len(ips) == 0 {
		return nil, fmt.Errorf("resolve %q: no addresses", host)
	}
	portNum, err := net.LookupPort("udp", port)
	if err != nil {
		return nil, fmt.Errorf("resolve port %q: %w", port, err)
	}
	// The server normally listens on IPv4 only.
	ip := ips[0]
	for _, cand := range ips {
		if cand.IP.To4() != nil {
			ip = cand
			break
		}
	}
	raddr := &net.UDPAddr{IP: ip.IP, Port: portNum, Zone: ip.Zone}

	network := "udp4"
	if raddr.IP.To4() == nil {
		network = "udp6"
	}
	conn, err := net.ListenUDP(network, nil)
	if err != nil {
		return nil, fmt.Errorf("listen udp: %w", err)
	}
	if readTimeout <= 0 {
		readTimeout = DefaultReadTimeout
	}
	u := &UDP{conn: conn, readTimeout: readTimeout, buf: make([]byte, maxDatagram)}
	u.peer.Store(raddr)
	return u, nil
}

func (u *UDP) Send(b []byte) error {
	if u.closed.Load() {
		return ErrClosed
	}
	if _, err := u.conn.WriteToUDP(b, u.peer.Load()); err != nil {
		if u.closed.Load() {
			return ErrClosed
		}
		return fmt.Errorf("udp send: %w", err)
	}
	return nil
}

// Recv must not be called from more than one goroutine at a time.
func (u *UDP) Recv() ([]byte, error) {
	if u.closed.Load() {
		return nil, ErrClosed
	}
	if err := u.conn.SetReadDeadline(time.Now().Add(u.readTimeout)); err != nil {
		return nil, u.mapErr(err)
	}
	n, from, err := u.conn.ReadFromUDP(u.buf)
	if err != nil {
		return nil, u.mapErr(err)
	}
	u.peer.Store(from)
	out := make([]byte, n)
	copy(out, u.buf[:n])
	return out, nil
}

func (u *UDP) mapErr(err error) error {
	if u.closed.Load() || errors.Is(err, net.ErrClosed) {
		return ErrClosed
	}
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return ErrTimeout
	}
	return fmt.Errorf("udp recv: %w", err)
}

func (u *UDP) Peer() string { return u.peer.Load().String() }

// LocalAddr is the socket's own address.
func (u *UDP) LocalAddr() net.Addr { return u.conn.LocalAddr() }

func (u *UDP) Close() error {
	if u.closed.Swap(true) {
		return nil
	}
	return u.conn.Close()
}

// UDPDialer dials the server over plain UDP.
type UDPDialer struct {
	Addr        string
	ReadTimeout time.Duration
}

func (d *UDPDialer) Dial(ctx context.Context) (Transport, error) {
	return DialUDP(ctx, d.Addr, d.ReadTimeout)
}
