package voice

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// liveTestServer speaks just enough of the BidiGenerateContent protocol
// to drive the client: it acknowledges the setup and then runs script
// against the accepted connection.
func liveTestServer(t *testing.T, script func(conn *websocket.Conn)) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		var setup liveClientMessage
		if err := conn.ReadJSON(&setup); err != nil {
			return
		}
		if setup.Setup == nil {
			t.Error("first client message is not a session setup")
			return
		}
		if err := conn.WriteJSON(liveServerMessage{SetupComplete: &struct{}{}}); err != nil {
			return
		}
		script(conn)
	}))
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestGeminiLiveDialer_SetupHandshake(t *testing.T) {
	srv := liveTestServer(t, func(conn *websocket.Conn) {
		_ = conn.WriteJSON(liveServerMessage{ServerContent: &liveServerContent{
			InputTranscription: &liveTranscription{Text: "ninety eight"},
		}})
		// Hold the connection until the client hangs up.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})
	defer srv.Close()

	dialer := &GeminiLiveDialer{APIKey: "test-key", Model: "test-model", endpoint: wsURL(srv)}
	stream, err := dialer.Dial(context.Background())
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer stream.Close()

	select {
	case text := <-stream.Fragments():
		if text != "ninety eight" {
			t.Fatalf("unexpected fragment %q", text)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no fragment arrived")
	}
}

func TestGeminiLiveStream_CloseUnblocksReader(t *testing.T) {
	srv := liveTestServer(t, func(conn *websocket.Conn) {
		// Flood far more fragments than the client buffers while
		// nobody on the client side is consuming them.
		for i := 0; i < 100; i++ {
			msg := liveServerMessage{ServerContent: &liveServerContent{
				InputTranscription: &liveTranscription{Text: "fragment"},
			}}
			if err := conn.WriteJSON(msg); err != nil {
				return
			}
		}
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})
	defer srv.Close()

	dialer := &GeminiLiveDialer{APIKey: "test-key", Model: "test-model", endpoint: wsURL(srv)}
	stream, err := dialer.Dial(context.Background())
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}

	// Give the reader time to fill its buffer and block on the next
	// fragment send, then hang up without ever draining.
	time.Sleep(100 * time.Millisecond)
	if err := stream.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	// The reader owns the fragment channel and closes it on exit, so a
	// closed channel proves the goroutine did not stay parked on the
	// send.
	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-stream.Fragments():
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("fragment channel never closed after Close")
		}
	}
}
