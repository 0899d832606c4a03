package model

import (
	"encoding/json"
	"testing"
)

func TestParsePoints(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want float64
	}{
		{name: "plain number", raw: "0.25", want: 0.25},
		{name: "comma decimal", raw: "0,25", want: 0.25},
		{name: "integer", raw: "5", want: 5},
		{name: "padded", raw: "  1,5  ", want: 1.5},
		{name: "empty", raw: "", want: 0},
		{name: "garbage", raw: "abc", want: 0},
		{name: "half parsed garbage", raw: "1,2,3", want: 0},
		{name: "negative kept", raw: "-0,5", want: -0.5},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := ParsePoints(tc.raw)
			if got.Float() != tc.want {
				t.Fatalf("ParsePoints(%q) = %v, want %v", tc.raw, got.Float(), tc.want)
			}
		})
	}
}

func TestParsePointsIdempotent(t *testing.T) {
	once := ParsePoints("0,25")
	again := ParsePoints("0.25")
	if once != again {
		t.Fatalf("normalization not idempotent: %v vs %v", once, again)
	}
}

func TestPointsUnmarshalJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want float64
	}{
		{name: "number", in: `{"points": 0.25}`, want: 0.25},
		{name: "locale string", in: `{"points": "0,25"}`, want: 0.25},
		{name: "plain string", in: `{"points": "1.5"}`, want: 1.5},
		{name: "garbage string", in: `{"points": "??"}`, want: 0},
		{name: "null", in: `{"points": null}`, want: 0},
		{name: "object never errors", in: `{"points": {}}`, want: 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var q struct {
				Points Points `json:"points"`
			}
			if err := json.Unmarshal([]byte(tc.in), &q); err != nil {
				t.Fatalf("unmarshal returned error: %v", err)
			}
			if q.Points.Float() != tc.want {
				t.Fatalf("points = %v, want %v", q.Points.Float(), tc.want)
			}
		})
	}
}

func TestQuizTotalPoints(t *testing.T) {
	quiz := Quiz{Questions: []Question{
		{Kind: KindMCQ, Points: 0.25},
		{Kind: KindGroupTF, Points: 1},
		{Kind: KindShort, Points: 0.5},
	}}
	if got := quiz.TotalPoints(); got != 1.75 {
		t.Fatalf("TotalPoints = %v, want 1.75", got)
	}
}
