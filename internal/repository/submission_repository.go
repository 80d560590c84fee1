package repository

import (
	"context"

	"github.com/Poe1999/TgBot.China/internal/model"
	"github.com/jackc/pgx/v5/pgxpool"
)

type SubmissionRepository struct {
	pool *pgxpool.Pool
}

func NewSubmissionRepository(pool *pgxpool.Pool) *SubmissionRepository {
	return &SubmissionRepository{pool: pool}
}

func (r *SubmissionRepository) Create(ctx context.Context, s *model.Submission) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO submissions (user_id, task_id, user_answer, is_correct)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, submitted_at`,
		s.UserID, s.TaskID, s.UserAnswer, s.IsCorrect).
		Scan(&s.ID, &s.SubmittedAt)
}

func (r *SubmissionRepository) Count(ctx context.Context) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM submissions`).Scan(&n)
	return n, err
}
