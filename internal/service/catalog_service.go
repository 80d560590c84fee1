package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Poe1999/TgBot.China/internal/config"
	"github.com/Poe1999/TgBot.China/internal/model"
	"github.com/Poe1999/TgBot.China/internal/repository"
	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Domain Errors
var (
	ErrLevelNotFound   = errors.New("exam level not found")
	ErrSectionNotFound = errors.New("section not found")
	ErrTaskNotFound    = errors.New("task not found")
)

// CatalogService wraps the reference-data repositories and caches the
// read-mostly task lists in Redis. Task inserts invalidate the affected
// list key.
type CatalogService struct {
	levelRepo   *repository.LevelRepository
	sectionRepo *repository.SectionRepository
	taskRepo    *repository.TaskRepository
	rdb         *redis.Client
	validate    *validator.Validate
	cacheTTL    time.Duration
	log         zerolog.Logger
}

// NewCatalogService creates a new CatalogService.
func NewCatalogService(
	levelRepo *repository.LevelRepository,
	sectionRepo *repository.SectionRepository,
	taskRepo *repository.TaskRepository,
	rdb *redis.Client,
	cacheTTL time.Duration,
	log zerolog.Logger,
) *CatalogService {
	return &CatalogService{
		levelRepo:   levelRepo,
		sectionRepo: sectionRepo,
		taskRepo:    taskRepo,
		rdb:         rdb,
		validate:    validator.New(),
		cacheTTL:    cacheTTL,
		log:         log.With().Str("component", "catalog_service").Logger(),
	}
}

// SeedReferenceData inserts the fixed exam levels and sections if missing.
// Safe to run on every startup.
func (s *CatalogService) SeedReferenceData(ctx context.Context) error {
	for _, name := range model.LevelNames() {
		if err := s.levelRepo.Ensure(ctx, name); err != nil {
			return fmt.Errorf("seed level %q: %w", name, err)
		}
	}
	for _, name := range model.SectionNames() {
		if err := s.sectionRepo.Ensure(ctx, name); err != nil {
			return fmt.Errorf("seed section %q: %w", name, err)
		}
	}
	s.log.Info().Msg("Reference data seeded")
	return nil
}

func (s *CatalogService) LevelByName(ctx context.Context, name string) (*model.ExamLevel, error) {
	l, err := s.levelRepo.GetByName(ctx, name)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrLevelNotFound
	}
	return l, err
}

func (s *CatalogService) LevelByID(ctx context.Context, id int) (*model.ExamLevel, error) {
	l, err := s.levelRepo.GetByID(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrLevelNotFound
	}
	return l, err
}

func (s *CatalogService) SectionByName(ctx context.Context, name string) (*model.Section, error) {
	sec, err := s.sectionRepo.GetByName(ctx, name)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrSectionNotFound
	}
	return sec, err
}

func (s *CatalogService) SectionByID(ctx context.Context, id int) (*model.Section, error) {
	sec, err := s.sectionRepo.GetByID(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrSectionNotFound
	}
	return sec, err
}

// TasksBySection lists a level+section's tasks ordered by task number,
// served from the Redis cache when warm. Cache failures fall through to
// PostgreSQL; the list is re-cached on the way out.
func (s *CatalogService) TasksBySection(ctx context.Context, levelID, sectionID int) ([]model.Task, error) {
	key := config.CacheKey.TaskListKey(levelID, sectionID)

	if data, err := s.rdb.Get(ctx, key).Bytes(); err == nil {
		var tasks []model.Task
		if err := json.Unmarshal(data, &tasks); err == nil {
			return tasks, nil
		}
		// Corrupt entry: drop it and reload from the database.
		s.rdb.Del(ctx, key)
	}

	tasks, err := s.taskRepo.ListBySection(ctx, levelID, sectionID)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(tasks); err == nil {
		if err := s.rdb.Set(ctx, key, data, s.cacheTTL).Err(); err != nil {
			s.log.Debug().Err(err).Str("key", key).Msg("Task list cache write failed")
		}
	}
	return tasks, nil
}

func (s *CatalogService) TaskByNumber(ctx context.Context, levelID, sectionID, taskNumber int) (*model.Task, error) {
	t, err := s.taskRepo.GetByNumber(ctx, levelID, sectionID, taskNumber)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrTaskNotFound
	}
	return t, err
}

func (s *CatalogService) TaskByID(ctx context.Context, id int) (*model.Task, error) {
	t, err := s.taskRepo.GetByID(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrTaskNotFound
	}
	return t, err
}

// NextTask returns the task following current within the same level+section,
// or (nil, nil) when current is the last one.
func (s *CatalogService) NextTask(ctx context.Context, current *model.Task) (*model.Task, error) {
	t, err := s.taskRepo.NextAfter(ctx, current.LevelID, current.SectionID, current.TaskNumber)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return t, err
}

// CreateTask validates the authoring draft, resolves its level and section
// names, persists the task, and invalidates the cached task list.
func (s *CatalogService) CreateTask(ctx context.Context, draft *model.TaskDraft) (*model.Task, error) {
	if err := s.validate.Struct(draft); err != nil {
		return nil, fmt.Errorf("validate draft: %w", err)
	}

	level, err := s.LevelByName(ctx, draft.LevelName)
	if err != nil {
		return nil, err
	}
	section, err := s.SectionByName(ctx, draft.SectionName)
	if err != nil {
		return nil, err
	}

	task := &model.Task{
		LevelID:       level.ID,
		SectionID:     section.ID,
		TaskNumber:    draft.TaskNumber,
		PhotoFileID:   draft.PhotoFileID,
		AudioFileID:   draft.AudioFileID,
		CommentText:   draft.Comment,
		CorrectAnswer: draft.CorrectAnswer,
		LevelName:     level.Name,
		SectionName:   section.Name,
	}
	if err := s.taskRepo.Create(ctx, task); err != nil {
		return nil, err
	}

	key := config.CacheKey.TaskListKey(level.ID, section.ID)
	if err := s.rdb.Del(ctx, key).Err(); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("Task list cache invalidation failed")
	}

	s.log.Info().
		Str("level", level.Name).
		Str("section", section.Name).
		Int("task_number", task.TaskNumber).
		Msg("Task created")
	return task, nil
}

// TaskCount reports the total number of authored tasks.
func (s *CatalogService) TaskCount(ctx context.Context) (int, error) {
	return s.taskRepo.Count(ctx)
}
