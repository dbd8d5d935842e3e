package ws

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

func TestSend_NoConnection(t *testing.T) {
	r := NewRegistry()
	if r.Send(42, []byte("hello")) {
		t.Fatal("send to unregistered user must report false")
	}
}

func TestRegisterAndSend(t *testing.T) {
	r := NewRegistry()
	c := r.Register(7)

	if !r.Send(7, []byte("new_message")) {
		t.Fatal("send to registered user must report true")
	}
	select {
	case got := <-c.send:
		if string(got) != "new_message" {
			t.Fatalf("payload: %q", got)
		}
	default:
		t.Fatal("payload not queued")
	}
}

func TestRegister_ReplacesPreviousConnection(t *testing.T) {
	r := NewRegistry()
	old := r.Register(7)
	fresh := r.Register(7)

	// The old channel is closed so its write pump shuts down.
	select {
	case _, ok := <-old.send:
		if ok {
			t.Fatal("old channel delivered a payload instead of closing")
		}
	default:
		t.Fatal("old channel not closed on replacement")
	}

	if !r.Send(7, []byte("x")) {
		t.Fatal("send must reach the fresh connection")
	}
	select {
	case got := <-fresh.send:
		if string(got) != "x" {
			t.Fatalf("payload: %q", got)
		}
	default:
		t.Fatal("payload not queued on fresh connection")
	}
}

func TestSend_FullBufferEvicts(t *testing.T) {
	r := NewRegistry()
	r.Register(7)

	for i := 0; i < sendBuffer; i++ {
		if !r.Send(7, []byte("fill")) {
			t.Fatalf("fill send %d rejected", i)
		}
	}
	if r.Send(7, []byte("overflow")) {
		t.Fatal("send into a full buffer must report false")
	}
	// The connection is gone: subsequent sends drop.
	if r.Send(7, []byte("after")) {
		t.Fatal("evicted connection must not accept sends")
	}
}

func TestUnregister_StaleHandleIsNoop(t *testing.T) {
	r := NewRegistry()
	stale := r.Register(7)
	fresh := r.Register(7)

	// A disconnect notification from the replaced connection must not tear
	// down the reconnect.
	r.Unregister(7, stale)
	if !r.Send(7, []byte("still here")) {
		t.Fatal("fresh connection lost to stale unregister")
	}

	r.Unregister(7, fresh)
	if r.Send(7, []byte("gone")) {
		t.Fatal("send after genuine unregister must report false")
	}
}

func TestClose_TearsDownAllConnections(t *testing.T) {
	r := NewRegistry()
	a := r.Register(1)
	b := r.Register(2)
	r.Close()

	for _, c := range []*Conn{a, b} {
		select {
		case _, ok := <-c.send:
			if ok {
				t.Fatal("channel delivered a payload instead of closing")
			}
		default:
			t.Fatal("channel not closed on registry close")
		}
	}
	if r.Send(1, []byte("x")) || r.Send(2, []byte("x")) {
		t.Fatal("send after close must report false")
	}
}

func TestServe_DeliversOverSocket(t *testing.T) {
	gin.SetMode(gin.TestMode)
	reg := NewRegistry()

	router := gin.New()
	router.GET("/ws/:user_id", func(c *gin.Context) {
		reg.Serve(c, 7)
	})
	srv := httptest.NewServer(router)
	defer srv.Close()
	defer reg.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/7"
	sock, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer sock.Close()

	// Registration happens inside Serve before the pumps start, but the
	// HTTP handler may still be in flight when Dial returns.
	deadline := time.Now().Add(2 * time.Second)
	for !reg.Send(7, []byte("new_message")) {
		if time.Now().After(deadline) {
			t.Fatal("connection never registered")
		}
		time.Sleep(10 * time.Millisecond)
	}

	sock.SetReadDeadline(time.Now().Add(2 * time.Second))
	kind, payload, err := sock.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if kind != websocket.TextMessage || string(payload) != "new_message" {
		t.Fatalf("got kind=%d payload=%q", kind, payload)
	}
}
