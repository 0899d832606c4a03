package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	gws "github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/eduquiz/eduquiz-backend/internal/model"
	"github.com/eduquiz/eduquiz-backend/internal/session"
	ws "github.com/eduquiz/eduquiz-backend/internal/websocket"
)

type discardResultStore struct{}

func (discardResultStore) CreateResult(context.Context, *model.Result) error { return nil }

// newStreamPair dials a local WebSocket server and returns the wrapped
// client side plus a channel of the frames the server receives.
func newStreamPair(t *testing.T) (*ws.Conn, <-chan map[string]interface{}) {
	t.Helper()

	frames := make(chan map[string]interface{}, 64)
	upgrader := gws.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sock, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer sock.Close()
		for {
			_, raw, err := sock.ReadMessage()
			if err != nil {
				return
			}
			var frame map[string]interface{}
			if json.Unmarshal(raw, &frame) == nil {
				frames <- frame
			}
		}
	}))
	t.Cleanup(srv.Close)

	sock, _, err := gws.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { sock.Close() })

	return ws.NewConn(sock), frames
}

func streamQuiz(durationMinutes int) *model.Quiz {
	return &model.Quiz{
		ID:              uuid.New(),
		Title:           "Stream",
		Kind:            model.QuizKindPractice,
		DurationMinutes: durationMinutes,
		Published:       true,
	}
}

func streamStudent() *model.User {
	return &model.User{ID: uuid.New(), Username: "minh", Role: model.RoleStudent, FullName: "Tran Van Minh"}
}

func TestPushTicksSkipsGradedAfterManualSubmit(t *testing.T) {
	// A manual submit already received its graded reply on the request
	// path, so the tick loop must stay silent instead of re-announcing
	// the score as an expiry.
	sess := session.Start(streamQuiz(30), streamStudent(), discardResultStore{}, zerolog.Nop())
	sess.Submit(session.TriggerManual)

	conn, frames := newStreamPair(t)
	done := make(chan struct{})
	defer close(done)
	h := &WSHandler{log: zerolog.Nop()}
	go h.pushTicks(conn, sess, done, zerolog.Nop())

	select {
	case frame := <-frames:
		t.Fatalf("unexpected frame after manual submit: %v", frame)
	case <-time.After(2 * time.Second):
	}
}

func TestPushTicksPushesAutoExpiryGradeOnce(t *testing.T) {
	// Zero duration expires on the session's first tick.
	sess := session.Start(streamQuiz(0), streamStudent(), discardResultStore{}, zerolog.Nop())

	conn, frames := newStreamPair(t)
	done := make(chan struct{})
	defer close(done)
	h := &WSHandler{log: zerolog.Nop()}
	go h.pushTicks(conn, sess, done, zerolog.Nop())

	deadline := time.After(5 * time.Second)
	var graded map[string]interface{}
	for graded == nil {
		select {
		case frame := <-frames:
			if frame["event"] == string(ws.EventGraded) {
				graded = frame
			}
		case <-deadline:
			t.Fatal("timed out waiting for the expiry grade")
		}
	}

	if auto, _ := graded["auto"].(bool); !auto {
		t.Fatalf("expiry grade not flagged auto: %v", graded)
	}

	select {
	case frame := <-frames:
		if frame["event"] == string(ws.EventGraded) {
			t.Fatalf("grade pushed twice: %v", frame)
		}
	case <-time.After(2 * time.Second):
	}
}
