package bus

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func echoServer(t *testing.T) string {
	return flakyEchoServer(t, 0)
}

// flakyEchoServer closes the first drop connections right after the
// handshake and echoes on every later one.
func flakyEchoServer(t *testing.T, drop int32) string {
	t.Helper()
	upgrader := websocket.Upgrader{}
	var accepted atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		if accepted.Add(1) <= drop {
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "restart"))
			return
		}
		for {
			mt, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if err := conn.WriteMessage(mt, data); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestBus_WriteRead(t *testing.T) {
	b, err := Dial(echoServer(t))
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer b.Close()

	sent := &Message{From: "vox", To: "ui", Kind: KindMessage, Role: "assistant", Content: "Paris"}
	if err := b.Write(sent); err != nil {
		t.Fatalf("write: %v", err)
	}

	got, err := b.Read()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if *got != *sent {
		t.Fatalf("got %+v want %+v", got, sent)
	}
}

func TestDial_BadURL(t *testing.T) {
	if _, err := Dial("ws://127.0.0.1:1/none"); err == nil {
		t.Fatalf("expected dial error")
	}
}

func TestBus_MalformedFrame(t *testing.T) {
	b, err := Dial(echoServer(t))
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer b.Close()

	if err := b.conn.WriteMessage(websocket.TextMessage, []byte("not json")); err != nil {
		t.Fatalf("raw write: %v", err)
	}

	_, err = b.Read()
	if !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected ErrMalformed, got %v", err)
	}
	if IsClosed(err) {
		t.Fatalf("malformed frame is not a closed connection")
	}
}

func TestBus_ReconnectAfterClose(t *testing.T) {
	b, err := Dial(flakyEchoServer(t, 1))
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer b.Close()

	_, err = b.Read()
	if !IsClosed(err) {
		t.Fatalf("expected close error, got %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := b.Reconnect(ctx, 10*time.Millisecond); err != nil {
		t.Fatalf("reconnect: %v", err)
	}

	sent := &Message{From: "vox", To: "ui", Kind: KindClear}
	if err := b.Write(sent); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := b.Read()
	if err != nil || *got != *sent {
		t.Fatalf("got %+v, %v", got, err)
	}
}

func TestBus_ReconnectGivesUpWithContext(t *testing.T) {
	b, err := Dial(echoServer(t))
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer b.Close()
	b.url = "ws://127.0.0.1:1/none"

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := b.Reconnect(ctx, 10*time.Millisecond); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline, got %v", err)
	}
}
