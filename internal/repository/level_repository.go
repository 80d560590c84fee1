package repository

import (
	"context"

	"github.com/Poe1999/TgBot.China/internal/model"
	"github.com/jackc/pgx/v5/pgxpool"
)

type LevelRepository struct {
	pool *pgxpool.Pool
}

func NewLevelRepository(pool *pgxpool.Pool) *LevelRepository {
	return &LevelRepository{pool: pool}
}

// Ensure inserts the level if it does not exist yet. Used by reference
// seeding; idempotent.
func (r *LevelRepository) Ensure(ctx context.Context, name string) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO exam_levels (name) VALUES ($1) ON CONFLICT (name) DO NOTHING`,
		name)
	return err
}

func (r *LevelRepository) GetByName(ctx context.Context, name string) (*model.ExamLevel, error) {
	var l model.ExamLevel
	err := r.pool.QueryRow(ctx,
		`SELECT id, name FROM exam_levels WHERE name = $1`,
		name).Scan(&l.ID, &l.Name)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *LevelRepository) GetByID(ctx context.Context, id int) (*model.ExamLevel, error) {
	var l model.ExamLevel
	err := r.pool.QueryRow(ctx,
		`SELECT id, name FROM exam_levels WHERE id = $1`,
		id).Scan(&l.ID, &l.Name)
	if err != nil {
		return nil, err
	}
	return &l, nil
}
