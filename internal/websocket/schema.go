package websocket

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionAnswer Action = "answer"
	ActionReset  Action = "reset"
	ActionSubmit Action = "submit"
	ActionState  Action = "state"
	ActionPing   Action = "ping"
)

// RequestEnvelope is used to peek at the action before full parsing.
type RequestEnvelope struct {
	Action Action `json:"action"`
}

// AnswerRequest records one answer in the live attempt snapshot. Key is
// the question id, or "questionID_subID" for grouped true/false
// statements.
type AnswerRequest struct {
	Action Action `json:"action"`
	Key    string `json:"key"`
	Answer string `json:"ans"`
}

// ResetRequest clears every answer of the running attempt.
type ResetRequest struct {
	Action Action `json:"action"`
}

// SubmitRequest finishes and grades the attempt. Confirm must be true;
// the server rejects unconfirmed submits so a stray click cannot end
// the attempt.
type SubmitRequest struct {
	Action  Action `json:"action"`
	Confirm bool   `json:"confirm"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventError  Event = "error"
	EventSaved  Event = "saved"
	EventTick   Event = "tick"
	EventGraded Event = "graded"
	EventState  Event = "state"
	EventPong   Event = "pong"
)

type SavedResponse struct {
	Event         Event `json:"event"`
	AnsweredCount int   `json:"answered_count"`
}

// TickResponse is pushed every second while the attempt runs.
type TickResponse struct {
	Event            Event `json:"event"`
	SecondsRemaining int   `json:"seconds_remaining"`
}

// GradedResponse announces the final score. Auto is true when the
// deadline expired rather than the student submitting.
type GradedResponse struct {
	Event        Event   `json:"event"`
	Score        float64 `json:"score"`
	ScoreDisplay string  `json:"score_display"`
	Passed       bool    `json:"passed"`
	SecondsSpent int     `json:"seconds_spent"`
	Auto         bool    `json:"auto"`
}

// StateResponse reports the attempt state with the full taking view
// when applicable, so a reconnecting client can restore itself.
type StateResponse struct {
	Event Event       `json:"event"`
	State string      `json:"state"`
	View  interface{} `json:"view,omitempty"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
