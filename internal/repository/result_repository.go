package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/eduquiz/eduquiz-backend/internal/model"
)

var ErrResultNotFound = errors.New("result not found")

// ResultRepository handles completed attempt records. Results are
// insert-only.
type ResultRepository struct {
	pool *pgxpool.Pool
}

// NewResultRepository creates a new ResultRepository.
func NewResultRepository(pool *pgxpool.Pool) *ResultRepository {
	return &ResultRepository{pool: pool}
}

// CreateResult inserts a finished attempt record.
func (r *ResultRepository) CreateResult(ctx context.Context, res *model.Result) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO results (quiz_id, student_id, student_name, score, total_questions, seconds_spent, submitted_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id`,
		res.QuizID, res.StudentID, res.StudentName, res.Score,
		res.TotalQuestions, res.SecondsSpent, res.SubmittedAt,
	).Scan(&res.ID)
}

// GetByID retrieves a single result.
func (r *ResultRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Result, error) {
	res := &model.Result{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, quiz_id, student_id, student_name, score, total_questions, seconds_spent, submitted_at
		 FROM results WHERE id = $1`, id,
	).Scan(&res.ID, &res.QuizID, &res.StudentID, &res.StudentName,
		&res.Score, &res.TotalQuestions, &res.SecondsSpent, &res.SubmittedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrResultNotFound
		}
		return nil, err
	}
	return res, nil
}

// ListByQuiz retrieves every result for a quiz, best score first.
func (r *ResultRepository) ListByQuiz(ctx context.Context, quizID uuid.UUID) ([]model.Result, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, quiz_id, student_id, student_name, score, total_questions, seconds_spent, submitted_at
		 FROM results WHERE quiz_id = $1
		 ORDER BY score DESC, seconds_spent ASC`, quizID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectResults(rows)
}

// ListByStudent retrieves a student's attempt history, newest first.
func (r *ResultRepository) ListByStudent(ctx context.Context, studentID uuid.UUID) ([]model.Result, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, quiz_id, student_id, student_name, score, total_questions, seconds_spent, submitted_at
		 FROM results WHERE student_id = $1
		 ORDER BY submitted_at DESC`, studentID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectResults(rows)
}

func collectResults(rows pgx.Rows) ([]model.Result, error) {
	var results []model.Result
	for rows.Next() {
		var res model.Result
		if err := rows.Scan(&res.ID, &res.QuizID, &res.StudentID, &res.StudentName,
			&res.Score, &res.TotalQuestions, &res.SecondsSpent, &res.SubmittedAt); err != nil {
			return nil, err
		}
		results = append(results, res)
	}
	return results, rows.Err()
}
