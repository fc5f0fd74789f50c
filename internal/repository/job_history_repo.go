package repository

import (
	"context"
	"fmt"

	"github.com/timmy/podsum/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// JobHistoryRepository journals terminal job records.
type JobHistoryRepository struct {
	db *gorm.DB
}

// NewJobHistoryRepository creates a job-history repository.
func NewJobHistoryRepository(db *gorm.DB) *JobHistoryRepository {
	return &JobHistoryRepository{db: db}
}

// Record upserts a terminal job record. Re-recording the same job id
// overwrites the previous row (last write wins).
func (r *JobHistoryRepository) Record(ctx context.Context, record domain.JobRecord) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).
		Create(&record).Error
	if err != nil {
		return fmt.Errorf("record job history: %w", err)
	}
	return nil
}

// Recent returns the most recently finished job records.
func (r *JobHistoryRepository) Recent(ctx context.Context, limit int) ([]domain.JobRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	var records []domain.JobRecord
	err := r.db.WithContext(ctx).
		Order("finished_at DESC").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("list job history: %w", err)
	}
	return records, nil
}
