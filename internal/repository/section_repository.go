package repository

import (
	"context"

	"github.com/Poe1999/TgBot.China/internal/model"
	"github.com/jackc/pgx/v5/pgxpool"
)

type SectionRepository struct {
	pool *pgxpool.Pool
}

func NewSectionRepository(pool *pgxpool.Pool) *SectionRepository {
	return &SectionRepository{pool: pool}
}

// Ensure inserts the section if it does not exist yet. Idempotent.
func (r *SectionRepository) Ensure(ctx context.Context, name string) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO sections (name) VALUES ($1) ON CONFLICT (name) DO NOTHING`,
		name)
	return err
}

func (r *SectionRepository) GetByName(ctx context.Context, name string) (*model.Section, error) {
	var s model.Section
	err := r.pool.QueryRow(ctx,
		`SELECT id, name FROM sections WHERE name = $1`,
		name).Scan(&s.ID, &s.Name)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *SectionRepository) GetByID(ctx context.Context, id int) (*model.Section, error) {
	var s model.Section
	err := r.pool.QueryRow(ctx,
		`SELECT id, name FROM sections WHERE id = $1`,
		id).Scan(&s.ID, &s.Name)
	if err != nil {
		return nil, err
	}
	return &s, nil
}
