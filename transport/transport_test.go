package transport

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func listenLoopback(t *testing.T) *net.UDPConn {
	t.Helper()
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readFrom(t *testing.T, conn *net.UDPConn) (string, *net.UDPAddr) {
	t.Helper()
	buf := make([]byte, 1024)
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	n, addr, err := conn.ReadFromUDP(buf)
	if err != nil {
		t.Fatalf("server read: %v", err)
	}
	return string(buf[:n]), addr
}

func TestUDPPeerFollowsServer(t *testing.T) {
	welcome := listenLoopback(t)
	perClient := listenLoopback(t)

	u, err := DialUDP(context.Background(), welcome.LocalAddr().String(), time.Second)
	if err != nil {
		t.Fatalf("DialUDP: %v", err)
	}
	defer u.Close()

	if err := u.Send([]byte("(init gophers (version 11))")); err != nil {
		t.Fatalf("Send: %v", err)
	}
	msg, client := readFrom(t, welcome)
	if msg != "(init gophers (version 11))" {
		t.Fatalf("server got %q", msg)
	}

	// The server answers from a different port, which becomes the peer.
	if _, err := perClient.WriteToUDP([]byte("(init l 1 before_kick_off)\x00"), client); err != nil {
		t.Fatal(err)
	}
	got, err := u.Recv()
	if err != nil {
		t.Fatalf("Recv: %v", err)
	}
	if string(got) != "(init l 1 before_kick_off)\x00" {
		t.Errorf("Recv = %q", got)
	}
	if u.Peer() != perClient.LocalAddr().String() {
		t.Errorf("peer = %s, want %s", u.Peer(), perClient.LocalAddr())
	}

	if err := u.Send([]byte("(dash 10.0000000000)")); err != nil {
		t.Fatal(err)
	}
	if msg, _ := readFrom(t, perClient); msg != "(dash 10.0000000000)" {
		t.Errorf("per-client socket got %q", msg)
	}
}

func TestUDPRecvTimeout(t *testing.T) {
	server := listenLoopback(t)
	u, err := DialUDP(context.Background(), server.LocalAddr().String(), 50*time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}
	defer u.Close()

	start := time.Now()
	if _, err := u.Recv(); !errors.Is(err, ErrTimeout) {
		t.Fatalf("Recv error = %v, want ErrTimeout", err)
	}
	if time.Since(start) > time.Second {
		t.Error("Recv ignored its read timeout")
	}
}

func TestUDPCloseUnblocksRecv(t *testing.T) {
	server := listenLoopback(t)
	u, err := DialUDP(context.Background(), server.LocalAddr().String(), 10*time.Second)
	if err != nil {
		t.Fatal(err)
	}

	errc := make(chan error, 1)
	go func() {
		_, err := u.Recv()
		errc <- err
	}()
	time.Sleep(50 * time.Millisecond)
	if err := u.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	select {
	case err := <-errc:
		if !errors.Is(err, ErrClosed) {
			t.Errorf("Recv error = %v, want ErrClosed", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Recv still blocked after Close")
	}
	if err := u.Send([]byte("(bye)")); !errors.Is(err, ErrClosed) {
		t.Errorf("Send after Close = %v", err)
	}
	if err := u.Close(); err != nil {
		t.Errorf("second Close = %v", err)
	}
}

func TestDialUDPBadAddress(t *testing.T) {
	if _, err := DialUDP(context.Background(), "no-port", time.Second); err == nil {
		t.Fatal("expected an error for an address without a port")
	}
}

func TestNewDialer(t *testing.T) {
	if _, ok := NewDialer("ws://localhost:6000/agent", 0).(*WebSocketDialer); !ok {
		t.Error("ws:// should pick the websocket dialer")
	}
	if _, ok := NewDialer("localhost:6000", 0).(*UDPDialer); !ok {
		t.Error("host:port should pick the UDP dialer")
	}
}

func echoServer(t *testing.T) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			mt, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if err := conn.WriteMessage(mt, append([]byte("echo "), msg...)); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestWebSocketRoundTrip(t *testing.T) {
	srv := echoServer(t)
	url := "ws" + strings.TrimPrefix(srv.URL, "http")

	tr, err := (&WebSocketDialer{URL: url, ReadTimeout: time.Second}).Dial(context.Background())
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer tr.Close()

	if err := tr.Send([]byte("(init gophers (version 11))")); err != nil {
		t.Fatalf("Send: %v", err)
	}
	got, err := tr.Recv()
	if err != nil {
		t.Fatalf("Recv: %v", err)
	}
	if string(got) != "echo (init gophers (version 11))" {
		t.Errorf("Recv = %q", got)
	}
	if tr.Peer() != url {
		t.Errorf("Peer = %q", tr.Peer())
	}
}

func TestWebSocketTimeoutAndClose(t *testing.T) {
	srv := echoServer(t)
	url := "ws" + strings.TrimPrefix(srv.URL, "http")

	ws, err := DialWebSocket(context.Background(), url, time.Second, 50*time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ws.Recv(); !errors.Is(err, ErrTimeout) {
		t.Fatalf("Recv = %v, want ErrTimeout", err)
	}
	// A timeout leaves the connection usable.
	if err := ws.Send([]byte("ping")); err != nil {
		t.Fatal(err)
	}
	if got, err := ws.Recv(); err != nil || string(got) != "echo ping" {
		t.Fatalf("Recv after timeout = %q, %v", got, err)
	}

	if err := ws.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := ws.Recv(); !errors.Is(err, ErrClosed) {
		t.Errorf("Recv after Close = %v", err)
	}
	if err := ws.Send([]byte("x")); !errors.Is(err, ErrClosed) {
		t.Errorf("Send after Close = %v", err)
	}
}
