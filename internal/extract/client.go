// Package extract turns exam PDFs and topic prompts into structured
// question lists using the Gemini generateContent REST API.
package extract

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/eduquiz/eduquiz-backend/internal/model"
)

// Extraction errors.
var (
	ErrNotConfigured = errors.New("gemini API key not configured")
	ErrEmptyResponse = errors.New("model returned no usable content")
)

const (
	defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	maxRetries     = 3
	requestTimeout = 120 * time.Second
)

// Default question weights applied when the model omits points.
const (
	defaultPointsMCQ     = 0.25
	defaultPointsGroupTF = 1.0
	defaultPointsShort   = 0.5
)

// Client calls the Gemini API. A zero API key produces a client whose
// every call fails with ErrNotConfigured; the handlers surface that as
// a configuration error instead of crashing at startup.
type Client struct {
	apiKey  string
	modelID string
	baseURL string
	http    *http.Client
	log     zerolog.Logger
}

// NewClient creates a Gemini client.
func NewClient(apiKey, modelID string, log zerolog.Logger) *Client {
	return &Client{
		apiKey:  apiKey,
		modelID: modelID,
		baseURL: defaultBaseURL,
		http:    &http.Client{Timeout: requestTimeout},
		log:     log.With().Str("component", "extract").Logger(),
	}
}

// Enabled reports whether an API key is configured.
func (c *Client) Enabled() bool { return c.apiKey != "" }

const extractPrompt = `You are given a Vietnamese high-school exam paper as a PDF.
Extract every question into a JSON array. Each element:
{"kind":"mcq"|"group_tf"|"short","text":"...","points":0.25,
 "options":["A. ...","B. ...","C. ...","D. ..."],"correct_answer":"A. ...",
 "sub_questions":[{"text":"...","correct_answer":"True"}],"solution":"..."}
Rules:
- "mcq": exactly four options, correct_answer must equal one option verbatim.
- "group_tf": exactly four sub_questions, correct_answer is "True" or "False".
- "short": correct_answer is the expected short text, no options.
- Preserve all mathematical notation as plain text.
- Output only the JSON array, no commentary.`

const generatePrompt = `Create %d multiple-choice, %d grouped true/false, and %d short-answer
questions for a Vietnamese grade %s exam on the topic: %s.
Use the same JSON schema and rules as above. Output only the JSON array.`

// ParseQuestionsFromPDF extracts questions from a PDF document.
func (c *Client) ParseQuestionsFromPDF(ctx context.Context, pdf []byte) ([]model.Question, error) {
	if !c.Enabled() {
		return nil, ErrNotConfigured
	}

	req := generateContentRequest{
		Contents: []content{{
			Parts: []part{
				{Text: extractPrompt},
				{InlineData: &inlineData{
					MimeType: "application/pdf",
					Data:     base64.StdEncoding.EncodeToString(pdf),
				}},
			},
		}},
		GenerationConfig: &generationConfig{ResponseMimeType: "application/json"},
	}
	return c.generate(ctx, &req)
}

// GenerateQuestions asks the model to author fresh questions on a topic.
func (c *Client) GenerateQuestions(ctx context.Context, topic string, grade model.Grade, mcq, groupTF, short int) ([]model.Question, error) {
	if !c.Enabled() {
		return nil, ErrNotConfigured
	}

	prompt := extractPrompt + "\n\n" + fmt.Sprintf(generatePrompt, mcq, groupTF, short, grade, topic)
	req := generateContentRequest{
		Contents:         []content{{Parts: []part{{Text: prompt}}}},
		GenerationConfig: &generationConfig{ResponseMimeType: "application/json"},
	}
	return c.generate(ctx, &req)
}

// ─── Wire types ─────────────────────────────────────────────────────

type generateContentRequest struct {
	Contents         []content         `json:"contents"`
	GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inline_data,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type generationConfig struct {
	ResponseMimeType string `json:"responseMimeType,omitempty"`
}

type generateContentResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// rawQuestion is the model's loose output schema before normalization.
type rawQuestion struct {
	Kind          string           `json:"kind"`
	Text          string           `json:"text"`
	Points        model.Points     `json:"points"`
	Options       []string         `json:"options"`
	CorrectAnswer string           `json:"correct_answer"`
	SubQuestions  []rawSubQuestion `json:"sub_questions"`
	Solution      string           `json:"solution"`
}

type rawSubQuestion struct {
	Text          string `json:"text"`
	CorrectAnswer string `json:"correct_answer"`
}

// ─── Transport ──────────────────────────────────────────────────────

func (c *Client) generate(ctx context.Context, req *generateContentRequest) ([]model.Question, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, c.modelID)

	var respBody []byte
	for attempt := 0; ; attempt++ {
		respBody, err = c.doOnce(ctx, url, body)
		if err == nil {
			break
		}
		var re *retryableError
		if !errors.As(err, &re) || attempt >= maxRetries {
			return nil, err
		}
		// Exponential backoff: 1s, 2s, 4s.
		delay := time.Duration(1<<attempt) * time.Second
		c.log.Warn().Err(err).Int("attempt", attempt+1).Dur("backoff", delay).Msg("Gemini request retrying")
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}

	var resp generateContentResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, ErrEmptyResponse
	}

	text := resp.Candidates[0].Content.Parts[0].Text
	return parseQuestions(text)
}

type retryableError struct {
	status int
}

func (e *retryableError) Error() string {
	return fmt.Sprintf("gemini returned status %d", e.status)
}

func (c *Client) doOnce(ctx context.Context, url string, body []byte) ([]byte, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("call gemini: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		return respBody, nil
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusServiceUnavailable:
		return nil, &retryableError{status: resp.StatusCode}
	default:
		return nil, fmt.Errorf("gemini returned status %d: %s", resp.StatusCode, truncate(respBody, 200))
	}
}

// parseQuestions decodes the model's JSON, tolerating markdown fences,
// and normalizes each question: unknown kinds are dropped, missing
// points fall back to the per-kind defaults.
func parseQuestions(text string) ([]model.Question, error) {
	text = stripFences(text)

	var raws []rawQuestion
	if err := json.Unmarshal([]byte(text), &raws); err != nil {
		return nil, fmt.Errorf("decode questions: %w", err)
	}

	questions := make([]model.Question, 0, len(raws))
	for i := range raws {
		raw := &raws[i]

		kind := model.QuestionKind(strings.ToLower(strings.TrimSpace(raw.Kind)))
		switch kind {
		case model.KindMCQ, model.KindGroupTF, model.KindShort:
		default:
			continue
		}
		if strings.TrimSpace(raw.Text) == "" {
			continue
		}

		points := raw.Points
		if points == 0 {
			points = defaultPoints(kind)
		}

		q := model.Question{
			ID:            uuid.New(),
			Kind:          kind,
			Text:          raw.Text,
			Points:        points,
			Options:       raw.Options,
			CorrectAnswer: raw.CorrectAnswer,
			Solution:      raw.Solution,
		}
		for _, sub := range raw.SubQuestions {
			q.SubQuestions = append(q.SubQuestions, model.SubQuestion{
				ID:            uuid.New(),
				Text:          sub.Text,
				CorrectAnswer: sub.CorrectAnswer,
			})
		}
		questions = append(questions, q)
	}

	if len(questions) == 0 {
		return nil, ErrEmptyResponse
	}
	return questions, nil
}

func defaultPoints(kind model.QuestionKind) model.Points {
	switch kind {
	case model.KindGroupTF:
		return defaultPointsGroupTF
	case model.KindShort:
		return defaultPointsShort
	default:
		return defaultPointsMCQ
	}
}

func stripFences(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		if idx := strings.Index(text, "\n"); idx >= 0 {
			text = text[idx+1:]
		}
		text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	}
	return strings.TrimSpace(text)
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
