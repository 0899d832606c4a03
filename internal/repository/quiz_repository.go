package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/eduquiz/eduquiz-backend/internal/model"
)

var ErrQuizNotFound = errors.New("quiz not found")

// QuizRepository handles quiz data access. The question list is stored
// as a single JSONB column so an attempt always loads a consistent
// snapshot in one read.
type QuizRepository struct {
	pool *pgxpool.Pool
}

// NewQuizRepository creates a new QuizRepository.
func NewQuizRepository(pool *pgxpool.Pool) *QuizRepository {
	return &QuizRepository{pool: pool}
}

const quizColumns = `id, title, description, kind, grade, author_id, scheduled_start, duration_minutes, questions, published, created_at, updated_at`

func scanQuiz(row pgx.Row) (*model.Quiz, error) {
	q := &model.Quiz{}
	var questionsJSON []byte
	err := row.Scan(
		&q.ID, &q.Title, &q.Description, &q.Kind, &q.Grade, &q.AuthorID,
		&q.ScheduledStart, &q.DurationMinutes, &questionsJSON, &q.Published,
		&q.CreatedAt, &q.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(questionsJSON, &q.Questions); err != nil {
		return nil, fmt.Errorf("decode questions: %w", err)
	}
	return q, nil
}

// GetByID retrieves a quiz with its full question list.
func (r *QuizRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Quiz, error) {
	q, err := scanQuiz(r.pool.QueryRow(ctx,
		`SELECT `+quizColumns+` FROM quizzes WHERE id = $1`, id,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrQuizNotFound
		}
		return nil, err
	}
	return q, nil
}

// ListByAuthor retrieves all quizzes created by a teacher, newest first.
func (r *QuizRepository) ListByAuthor(ctx context.Context, authorID uuid.UUID) ([]model.Quiz, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+quizColumns+` FROM quizzes WHERE author_id = $1 ORDER BY created_at DESC`,
		authorID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectQuizzes(rows)
}

// ListPublishedForGrade retrieves published quizzes visible to a grade,
// with pagination. Newest first.
func (r *QuizRepository) ListPublishedForGrade(ctx context.Context, grade model.Grade, limit, offset int) ([]model.Quiz, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM quizzes WHERE published = TRUE AND grade = $1`, grade,
	).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+quizColumns+` FROM quizzes WHERE published = TRUE AND grade = $1
		 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		grade, limit, offset,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	quizzes, err := collectQuizzes(rows)
	if err != nil {
		return nil, 0, err
	}
	return quizzes, total, nil
}

// Create inserts a new quiz with its question list.
func (r *QuizRepository) Create(ctx context.Context, q *model.Quiz) error {
	questionsJSON, err := json.Marshal(q.Questions)
	if err != nil {
		return fmt.Errorf("encode questions: %w", err)
	}
	return r.pool.QueryRow(ctx,
		`INSERT INTO quizzes (title, description, kind, grade, author_id, scheduled_start, duration_minutes, questions, published)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING id, created_at, updated_at`,
		q.Title, q.Description, q.Kind, q.Grade, q.AuthorID,
		q.ScheduledStart, q.DurationMinutes, questionsJSON, q.Published,
	).Scan(&q.ID, &q.CreatedAt, &q.UpdatedAt)
}

// Update rewrites a quiz's metadata and question list.
func (r *QuizRepository) Update(ctx context.Context, q *model.Quiz) error {
	questionsJSON, err := json.Marshal(q.Questions)
	if err != nil {
		return fmt.Errorf("encode questions: %w", err)
	}
	tag, err := r.pool.Exec(ctx,
		`UPDATE quizzes SET title = $1, description = $2, kind = $3, grade = $4,
			scheduled_start = $5, duration_minutes = $6, questions = $7, published = $8,
			updated_at = CURRENT_TIMESTAMP
		 WHERE id = $9`,
		q.Title, q.Description, q.Kind, q.Grade,
		q.ScheduledStart, q.DurationMinutes, questionsJSON, q.Published,
		q.ID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrQuizNotFound
	}
	return nil
}

// SetPublished flips the publish flag.
func (r *QuizRepository) SetPublished(ctx context.Context, id uuid.UUID, published bool) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE quizzes SET published = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2`,
		published, id,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrQuizNotFound
	}
	return nil
}

// Delete removes a quiz and, via FK cascade, its results.
func (r *QuizRepository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM quizzes WHERE id = $1`, id)
	return err
}

func collectQuizzes(rows pgx.Rows) ([]model.Quiz, error) {
	var quizzes []model.Quiz
	for rows.Next() {
		q, err := scanQuiz(rows)
		if err != nil {
			return nil, err
		}
		quizzes = append(quizzes, *q)
	}
	return quizzes, rows.Err()
}
