package service

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/eduquiz/eduquiz-backend/internal/config"
	"github.com/eduquiz/eduquiz-backend/internal/model"
	"github.com/eduquiz/eduquiz-backend/internal/repository"
)

// Quiz domain errors.
var (
	ErrNotQuizAuthor    = errors.New("caller is not the quiz author")
	ErrQuizNoQuestions  = errors.New("quiz has no questions")
	ErrQuizNotPublished = errors.New("quiz is not published")
)

// quizCacheTTL bounds staleness of the published-quiz payload cache.
// Publish and unpublish rewrite the keys eagerly, so the TTL only
// covers out-of-band DB edits.
const quizCacheTTL = 6 * time.Hour

// QuizService handles quiz authoring, publishing, and result exports.
type QuizService struct {
	quizzes *repository.QuizRepository
	results *repository.ResultRepository
	rdb     *redis.Client
	log     zerolog.Logger
}

// NewQuizService creates a new QuizService.
func NewQuizService(quizzes *repository.QuizRepository, results *repository.ResultRepository, rdb *redis.Client, log zerolog.Logger) *QuizService {
	return &QuizService{
		quizzes: quizzes,
		results: results,
		rdb:     rdb,
		log:     log.With().Str("component", "quiz_service").Logger(),
	}
}

// Create builds a quiz from the request and stores it unpublished.
func (s *QuizService) Create(ctx context.Context, authorID uuid.UUID, req *model.CreateQuizRequest) (*model.Quiz, error) {
	quiz := &model.Quiz{
		Title:           req.Title,
		Description:     req.Description,
		Kind:            model.QuizKind(req.Kind),
		Grade:           model.Grade(req.Grade),
		AuthorID:        authorID,
		ScheduledStart:  req.ScheduledStart,
		DurationMinutes: req.DurationMinutes,
		Questions:       buildQuestions(req.Questions),
	}
	if err := s.quizzes.Create(ctx, quiz); err != nil {
		return nil, fmt.Errorf("create quiz: %w", err)
	}
	return quiz, nil
}

// Get retrieves a quiz. Only the author may read an unpublished quiz
// with answer keys; callers enforce role, this enforces ownership.
func (s *QuizService) Get(ctx context.Context, quizID, callerID uuid.UUID) (*model.Quiz, error) {
	quiz, err := s.quizzes.GetByID(ctx, quizID)
	if err != nil {
		return nil, err
	}
	if quiz.AuthorID != callerID {
		return nil, ErrNotQuizAuthor
	}
	return quiz, nil
}

// ListByAuthor lists a teacher's quizzes.
func (s *QuizService) ListByAuthor(ctx context.Context, authorID uuid.UUID) ([]model.Quiz, error) {
	return s.quizzes.ListByAuthor(ctx, authorID)
}

// Update rewrites a quiz after an ownership check. Editing a published
// quiz refreshes the student payload cache.
func (s *QuizService) Update(ctx context.Context, quizID, callerID uuid.UUID, req *model.UpdateQuizRequest) (*model.Quiz, error) {
	quiz, err := s.Get(ctx, quizID, callerID)
	if err != nil {
		return nil, err
	}

	if req.Title != "" {
		quiz.Title = req.Title
	}
	if req.Description != nil {
		quiz.Description = *req.Description
	}
	if req.Kind != "" {
		quiz.Kind = model.QuizKind(req.Kind)
	}
	if req.Grade != "" {
		quiz.Grade = model.Grade(req.Grade)
	}
	if req.ScheduledStart != nil {
		quiz.ScheduledStart = req.ScheduledStart
	}
	if req.DurationMinutes != nil {
		quiz.DurationMinutes = *req.DurationMinutes
	}
	if req.Questions != nil {
		quiz.Questions = buildQuestions(req.Questions)
	}
	if req.Published != nil {
		quiz.Published = *req.Published
	}

	if err := s.quizzes.Update(ctx, quiz); err != nil {
		return nil, fmt.Errorf("update quiz: %w", err)
	}

	if quiz.Published {
		s.warmCache(ctx, quiz)
	} else {
		s.dropCache(ctx, quiz.ID)
	}
	return quiz, nil
}

// SetPublished publishes or unpublishes a quiz. Publishing requires at
// least one question and warms the Redis payload so attempt starts do
// not hit Postgres under load.
func (s *QuizService) SetPublished(ctx context.Context, quizID, callerID uuid.UUID, published bool) (*model.Quiz, error) {
	quiz, err := s.Get(ctx, quizID, callerID)
	if err != nil {
		return nil, err
	}
	if published && len(quiz.Questions) == 0 {
		return nil, ErrQuizNoQuestions
	}

	if err := s.quizzes.SetPublished(ctx, quizID, published); err != nil {
		return nil, fmt.Errorf("set published: %w", err)
	}
	quiz.Published = published

	if published {
		s.warmCache(ctx, quiz)
	} else {
		s.dropCache(ctx, quiz.ID)
	}
	return quiz, nil
}

// Delete removes a quiz and its cache entries.
func (s *QuizService) Delete(ctx context.Context, quizID, callerID uuid.UUID) error {
	if _, err := s.Get(ctx, quizID, callerID); err != nil {
		return err
	}
	if err := s.quizzes.Delete(ctx, quizID); err != nil {
		return fmt.Errorf("delete quiz: %w", err)
	}
	s.dropCache(ctx, quizID)
	return nil
}

// ListForStudent lists published quizzes for the student's grade.
func (s *QuizService) ListForStudent(ctx context.Context, grade model.Grade, page, perPage int) ([]model.Quiz, int, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}
	return s.quizzes.ListPublishedForGrade(ctx, grade, perPage, (page-1)*perPage)
}

// GetForAttempt loads a published quiz for a new attempt, trying the
// Redis payload first and falling back to Postgres.
func (s *QuizService) GetForAttempt(ctx context.Context, quizID uuid.UUID) (*model.Quiz, error) {
	payload, err := s.rdb.Get(ctx, config.CacheKey.QuizPayloadKey(quizID.String())).Bytes()
	if err == nil {
		quiz := &model.Quiz{}
		if err := json.Unmarshal(payload, quiz); err == nil {
			return quiz, nil
		}
		s.log.Warn().Str("quiz_id", quizID.String()).Msg("corrupt quiz cache payload, falling back to DB")
	} else if !errors.Is(err, redis.Nil) {
		s.log.Warn().Err(err).Msg("quiz cache read failed, falling back to DB")
	}

	quiz, err := s.quizzes.GetByID(ctx, quizID)
	if err != nil {
		return nil, err
	}
	if !quiz.Published {
		return nil, ErrQuizNotPublished
	}
	return quiz, nil
}

// Results lists all results for a quiz after an ownership check.
func (s *QuizService) Results(ctx context.Context, quizID, callerID uuid.UUID) ([]model.Result, error) {
	if _, err := s.Get(ctx, quizID, callerID); err != nil {
		return nil, err
	}
	return s.results.ListByQuiz(ctx, quizID)
}

// ExportResultsCSV streams a quiz's results as CSV, best score first.
func (s *QuizService) ExportResultsCSV(ctx context.Context, quizID, callerID uuid.UUID, w io.Writer) error {
	results, err := s.Results(ctx, quizID, callerID)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"rank", "student", "score", "passed", "seconds_spent", "submitted_at"}); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i := range results {
		r := &results[i]
		passed := "no"
		if r.Passed() {
			passed = "yes"
		}
		record := []string{
			strconv.Itoa(i + 1),
			r.StudentName,
			strconv.FormatFloat(r.Score, 'f', 2, 64),
			passed,
			strconv.Itoa(r.SecondsSpent),
			r.SubmittedAt.UTC().Format(time.RFC3339),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// warmCache writes the full quiz payload and a flat answer-key map to
// Redis. Cache failures are logged, never fatal; attempts fall back to
// Postgres.
func (s *QuizService) warmCache(ctx context.Context, quiz *model.Quiz) {
	payload, err := json.Marshal(quiz)
	if err != nil {
		s.log.Error().Err(err).Msg("encode quiz payload")
		return
	}
	if err := s.rdb.Set(ctx, config.CacheKey.QuizPayloadKey(quiz.ID.String()), payload, quizCacheTTL).Err(); err != nil {
		s.log.Warn().Err(err).Str("quiz_id", quiz.ID.String()).Msg("warm quiz payload cache")
	}

	answerKey := make(map[string]string)
	for i := range quiz.Questions {
		q := &quiz.Questions[i]
		if q.CorrectAnswer != "" {
			answerKey[q.ID.String()] = q.CorrectAnswer
		}
		for j := range q.SubQuestions {
			sub := &q.SubQuestions[j]
			answerKey[q.ID.String()+"_"+sub.ID.String()] = sub.CorrectAnswer
		}
	}
	keyPayload, err := json.Marshal(answerKey)
	if err != nil {
		s.log.Error().Err(err).Msg("encode answer key")
		return
	}
	if err := s.rdb.Set(ctx, config.CacheKey.QuizAnswerKey(quiz.ID.String()), keyPayload, quizCacheTTL).Err(); err != nil {
		s.log.Warn().Err(err).Str("quiz_id", quiz.ID.String()).Msg("warm answer key cache")
	}
}

func (s *QuizService) dropCache(ctx context.Context, quizID uuid.UUID) {
	keys := []string{
		config.CacheKey.QuizPayloadKey(quizID.String()),
		config.CacheKey.QuizAnswerKey(quizID.String()),
	}
	if err := s.rdb.Del(ctx, keys...).Err(); err != nil {
		s.log.Warn().Err(err).Str("quiz_id", quizID.String()).Msg("drop quiz cache")
	}
}

// buildQuestions materializes request questions, assigning IDs and
// normalizing the points field.
func buildQuestions(reqs []model.AddQuestionRequest) []model.Question {
	questions := make([]model.Question, 0, len(reqs))
	for i := range reqs {
		req := &reqs[i]

		var points model.Points
		// Points.UnmarshalJSON never fails on valid JSON; the binding
		// layer already rejected syntactically invalid bodies.
		_ = json.Unmarshal(req.Points, &points)

		q := model.Question{
			ID:            uuid.New(),
			Kind:          model.QuestionKind(req.Kind),
			Text:          req.Text,
			ImageURL:      req.ImageURL,
			Points:        points,
			Options:       req.Options,
			CorrectAnswer: req.CorrectAnswer,
			Solution:      req.Solution,
		}
		for _, sub := range req.SubQuestions {
			if sub.ID == uuid.Nil {
				sub.ID = uuid.New()
			}
			q.SubQuestions = append(q.SubQuestions, sub)
		}
		questions = append(questions, q)
	}
	return questions
}
