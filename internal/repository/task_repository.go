package repository

import (
	"context"

	"github.com/Poe1999/TgBot.China/internal/model"
	"github.com/jackc/pgx/v5/pgxpool"
)

// taskColumns is the shared select list for task reads: task row plus the
// joined level and section names.
const taskColumns = `
	t.id, t.level_id, t.section_id, t.task_number,
	t.photo_file_id, COALESCE(t.audio_file_id, ''), t.comment_text,
	COALESCE(t.correct_answer, ''), t.created_at,
	l.name, s.name`

const taskJoins = `
	FROM tasks t
	JOIN exam_levels l ON l.id = t.level_id
	JOIN sections s ON s.id = t.section_id`

type TaskRepository struct {
	pool *pgxpool.Pool
}

func NewTaskRepository(pool *pgxpool.Pool) *TaskRepository {
	return &TaskRepository{pool: pool}
}

func (r *TaskRepository) Create(ctx context.Context, t *model.Task) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO tasks (level_id, section_id, task_number, photo_file_id, audio_file_id, comment_text, correct_answer)
		 VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, NULLIF($7, ''))
		 RETURNING id, created_at`,
		t.LevelID, t.SectionID, t.TaskNumber, t.PhotoFileID, t.AudioFileID, t.CommentText, t.CorrectAnswer).
		Scan(&t.ID, &t.CreatedAt)
}

func (r *TaskRepository) GetByID(ctx context.Context, id int) (*model.Task, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT`+taskColumns+taskJoins+` WHERE t.id = $1`, id)
	return scanTask(row)
}

func (r *TaskRepository) GetByNumber(ctx context.Context, levelID, sectionID, taskNumber int) (*model.Task, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT`+taskColumns+taskJoins+`
		 WHERE t.level_id = $1 AND t.section_id = $2 AND t.task_number = $3`,
		levelID, sectionID, taskNumber)
	return scanTask(row)
}

// NextAfter returns the task with the lowest task number greater than
// afterNumber within the same level+section, or pgx.ErrNoRows if afterNumber
// was the last one.
func (r *TaskRepository) NextAfter(ctx context.Context, levelID, sectionID, afterNumber int) (*model.Task, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT`+taskColumns+taskJoins+`
		 WHERE t.level_id = $1 AND t.section_id = $2 AND t.task_number > $3
		 ORDER BY t.task_number ASC LIMIT 1`,
		levelID, sectionID, afterNumber)
	return scanTask(row)
}

func (r *TaskRepository) ListBySection(ctx context.Context, levelID, sectionID int) ([]model.Task, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT`+taskColumns+taskJoins+`
		 WHERE t.level_id = $1 AND t.section_id = $2
		 ORDER BY t.task_number ASC`,
		levelID, sectionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []model.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *t)
	}
	return tasks, rows.Err()
}

func (r *TaskRepository) Count(ctx context.Context) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM tasks`).Scan(&n)
	return n, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*model.Task, error) {
	var t model.Task
	err := row.Scan(
		&t.ID, &t.LevelID, &t.SectionID, &t.TaskNumber,
		&t.PhotoFileID, &t.AudioFileID, &t.CommentText,
		&t.CorrectAnswer, &t.CreatedAt,
		&t.LevelName, &t.SectionName,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
