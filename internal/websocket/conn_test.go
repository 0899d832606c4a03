package websocket

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	gws "github.com/gorilla/websocket"
)

// dialTestConn stands up an echo-discard server and returns a wrapped
// client connection.
func dialTestConn(t *testing.T) *Conn {
	t.Helper()

	upgrader := gws.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sock, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer sock.Close()
		for {
			if _, _, err := sock.ReadMessage(); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)

	sock, _, err := gws.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { sock.Close() })

	return NewConn(sock)
}

func TestConnSerializesConcurrentWrites(t *testing.T) {
	// The attempt stream writes from the read loop and the tick pusher
	// at the same time. The underlying library panics on overlapping
	// writers, so the wrapper must fully serialize them.
	conn := dialTestConn(t)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		writeErr error
	)
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				err := conn.WriteTyped(TickResponse{Event: EventTick, SecondsRemaining: i})
				if err != nil {
					mu.Lock()
					writeErr = err
					mu.Unlock()
					return
				}
			}
		}()
	}
	wg.Wait()

	if writeErr != nil {
		t.Fatalf("concurrent write failed: %v", writeErr)
	}
}

func TestConnWriteError(t *testing.T) {
	conn := dialTestConn(t)
	if err := conn.WriteError("bad request"); err != nil {
		t.Fatalf("WriteError: %v", err)
	}
}
