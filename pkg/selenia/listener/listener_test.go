package listener

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/SeleniaProject/Selenia-Web-Server-SWS/pkg/selenia/socket"
)

func TestBindAndAcceptFanOut(t *testing.T) {
	out := make(chan Accepted, 4)
	l, err := Bind("127.0.0.1:0", *socket.DefaultConfig(), out)
	if err != nil {
		t.Fatalf("Bind: %v", err)
	}
	defer l.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	l.Serve(ctx)

	conn, err := net.Dial("tcp", l.ln.Addr().String())
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()

	select {
	case acc := <-out:
		if acc.Listener != l {
			t.Fatal("expected Accepted.Listener to reference originating listener")
		}
		acc.Conn.Close()
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for accepted connection")
	}
}

func TestCloseStopsAcceptLoop(t *testing.T) {
	out := make(chan Accepted, 1)
	l, err := Bind("127.0.0.1:0", *socket.DefaultConfig(), out)
	if err != nil {
		t.Fatalf("Bind: %v", err)
	}
	addr := l.ln.Addr().String()
	l.Serve(context.Background())
	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := net.Dial("tcp", addr); err == nil {
		t.Fatal("expected dial to a closed listener to fail")
	}
}
