package history

import (
	"context"
	"errors"
	"fmt"
	"time"

	"account-sync/core/reconcile"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ErrRunNotFound is returned when a run id is unknown.
var ErrRunNotFound = errors.New("run not found")

// DefaultListLimit caps ListRuns when no limit is given.
const DefaultListLimit = 20

// Service persists and reads sync runs.
type Service struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewService creates a new history service.
func NewService(db *gorm.DB, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{db: db, logger: logger}
}

// Migrate creates or updates the history tables.
func (s *Service) Migrate() error {
	if err := s.db.AutoMigrate(&Run{}, &Decision{}); err != nil {
		return fmt.Errorf("failed to migrate history tables: %w", err)
	}
	return nil
}

// StartRun inserts a run in the running state.
func (s *Service) StartRun(ctx context.Context, run *Run) error {
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}
	run.Status = StatusRunning
	if err := s.db.WithContext(ctx).Create(run).Error; err != nil {
		return fmt.Errorf("failed to record run %s: %w", run.ID, err)
	}
	return nil
}

// AddDecision appends one decision to a run.
func (s *Service) AddDecision(ctx context.Context, d *Decision) error {
	if err := s.db.WithContext(ctx).Create(d).Error; err != nil {
		return fmt.Errorf("failed to record decision for %s: %w", d.Account, err)
	}
	return nil
}

// FinishRun stores the final counters and status of a run.
func (s *Service) FinishRun(ctx context.Context, id string, summary reconcile.Summary, status, errMsg string) error {
	var run Run
	run.apply(summary)
	finished := time.Now()

	res := s.db.WithContext(ctx).Model(&Run{}).Where("id = ?", id).Updates(map[string]any{
		"finished_at":     &finished,
		"status":          status,
		"total":           run.Total,
		"created":         run.Created,
		"updated":         run.Updated,
		"unchanged":       run.Unchanged,
		"skipped":         run.Skipped,
		"failed":          run.Failed,
		"parents_created": run.ParentsCreated,
		"cycles":          run.Cycles,
		"duration_ms":     run.DurationMS,
		"error":           errMsg,
	})
	if res.Error != nil {
		return fmt.Errorf("failed to finish run %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return nil
}

// SetSnapshot records the snapshot object saved for a run.
func (s *Service) SetSnapshot(ctx context.Context, id, object string) error {
	err := s.db.WithContext(ctx).Model(&Run{}).Where("id = ?", id).Update("snapshot", object).Error
	if err != nil {
		return fmt.Errorf("failed to set snapshot for run %s: %w", id, err)
	}
	return nil
}

// ListRuns returns the most recent runs without their decisions.
func (s *Service) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	var runs []Run
	if err := s.db.WithContext(ctx).Order("started_at DESC").Limit(limit).Find(&runs).Error; err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	return runs, nil
}

// GetRun returns a run with its decisions in processing order.
func (s *Service) GetRun(ctx context.Context, id string) (*Run, error) {
	var run Run
	err := s.db.WithContext(ctx).
		Preload("Decisions", func(db *gorm.DB) *gorm.DB { return db.Order("seq ASC") }).
		Where("id = ?", id).
		First(&run).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
		}
		return nil, fmt.Errorf("failed to load run %s: %w", id, err)
	}
	return &run, nil
}
