package extract

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"

	"github.com/eduquiz/eduquiz-backend/internal/model"
)

func testClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := NewClient("test-key", "gemini-2.5-flash", zerolog.Nop())
	c.baseURL = srv.URL
	return c
}

func geminiReply(text string) string {
	body, _ := json.Marshal(map[string]interface{}{
		"candidates": []map[string]interface{}{{
			"content": map[string]interface{}{
				"parts": []map[string]string{{"text": text}},
			},
		}},
	})
	return string(body)
}

func TestParseQuestions(t *testing.T) {
	t.Run("normalizes kinds and applies default points", func(t *testing.T) {
		questions, err := parseQuestions(`[
			{"kind":"MCQ","text":"2+2?","options":["A. 3","B. 4"],"correct_answer":"B. 4"},
			{"kind":"group_tf","text":"Check each.","sub_questions":[
				{"text":"a","correct_answer":"True"},{"text":"b","correct_answer":"False"}]},
			{"kind":"short","text":"Name it.","correct_answer":"Hanoi","points":"0,5"},
			{"kind":"essay","text":"dropped"},
			{"kind":"mcq","text":"   "}
		]`)
		if err != nil {
			t.Fatalf("parseQuestions: %v", err)
		}
		if len(questions) != 3 {
			t.Fatalf("questions = %d, want 3 (unknown kind and blank text dropped)", len(questions))
		}
		if questions[0].Kind != model.KindMCQ || questions[0].Points != defaultPointsMCQ {
			t.Errorf("mcq = %v/%v, want mcq with default points", questions[0].Kind, questions[0].Points)
		}
		if questions[1].Points != defaultPointsGroupTF {
			t.Errorf("group_tf points = %v, want default %v", questions[1].Points, model.Points(defaultPointsGroupTF))
		}
		if questions[2].Points != 0.5 {
			t.Errorf("short points = %v, want locale string parsed as 0.5", questions[2].Points)
		}
		for _, sub := range questions[1].SubQuestions {
			if sub.ID.String() == "00000000-0000-0000-0000-000000000000" {
				t.Error("sub-question missing generated id")
			}
		}
	})

	t.Run("tolerates markdown fences", func(t *testing.T) {
		questions, err := parseQuestions("```json\n[{\"kind\":\"short\",\"text\":\"q\",\"correct_answer\":\"a\"}]\n```")
		if err != nil {
			t.Fatalf("parseQuestions: %v", err)
		}
		if len(questions) != 1 {
			t.Fatalf("questions = %d, want 1", len(questions))
		}
	})

	t.Run("empty array is an error", func(t *testing.T) {
		if _, err := parseQuestions(`[]`); err == nil {
			t.Fatal("expected error for empty question list")
		}
	})

	t.Run("garbage is an error", func(t *testing.T) {
		if _, err := parseQuestions(`not json at all`); err == nil {
			t.Fatal("expected decode error")
		}
	})
}

func TestGenerateQuestionsRetries(t *testing.T) {
	var calls int
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(geminiReply(`[{"kind":"mcq","text":"q","options":["A","B"],"correct_answer":"A"}]`)))
	}))

	questions, err := c.GenerateQuestions(context.Background(), "algebra", model.Grade10, 1, 0, 0)
	if err != nil {
		t.Fatalf("GenerateQuestions: %v", err)
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2 (one retry after 429)", calls)
	}
	if len(questions) != 1 {
		t.Fatalf("questions = %d, want 1", len(questions))
	}
}

func TestGenerateQuestionsPermanentFailure(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"bad request"}`))
	}))

	if _, err := c.GenerateQuestions(context.Background(), "algebra", model.Grade10, 1, 0, 0); err == nil {
		t.Fatal("expected error on 400 response")
	}
}

func TestClientDisabledWithoutKey(t *testing.T) {
	c := NewClient("", "gemini-2.5-flash", zerolog.Nop())
	if c.Enabled() {
		t.Fatal("client without key should be disabled")
	}
	if _, err := c.ParseQuestionsFromPDF(context.Background(), []byte("%PDF-")); err != ErrNotConfigured {
		t.Fatalf("err = %v, want ErrNotConfigured", err)
	}
}
