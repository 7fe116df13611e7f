package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/richardiffusion/mrga/domain/persistence"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ChatRepository implements persistence.ChatRepository
type ChatRepository struct {
	db *gorm.DB
}

func NewChatRepository(db *gorm.DB) persistence.ChatRepository {
	return &ChatRepository{db: db}
}

func (r *ChatRepository) Create(ctx context.Context, entity *persistence.ChatRecord) error {
	if err := r.db.WithContext(ctx).Create(entity).Error; err != nil {
		return fmt.Errorf("failed to create chat record: %w", err)
	}
	return nil
}

func (r *ChatRepository) Update(ctx context.Context, entity *persistence.ChatRecord) error {
	if err := r.db.WithContext(ctx).Save(entity).Error; err != nil {
		return fmt.Errorf("failed to update chat record: %w", err)
	}
	return nil
}

func (r *ChatRepository) FindByID(ctx context.Context, id uuid.UUID) (*persistence.ChatRecord, error) {
	var record persistence.ChatRecord
	if err := r.db.WithContext(ctx).First(&record, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", persistence.ErrRecordNotFound, id)
		}
		return nil, fmt.Errorf("failed to find chat record: %w", err)
	}
	return &record, nil
}

// FindRecent returns the newest records first
func (r *ChatRepository) FindRecent(ctx context.Context, limit int) ([]*persistence.ChatRecord, error) {
	var records []*persistence.ChatRecord
	query := r.db.WithContext(ctx).Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to find recent chat records: %w", err)
	}
	return records, nil
}

// Stats aggregates records per provider
func (r *ChatRepository) Stats(ctx context.Context) ([]persistence.ProviderStats, error) {
	var stats []persistence.ProviderStats
	err := r.db.WithContext(ctx).
		Model(&persistence.ChatRecord{}).
		Select(`provider,
			COUNT(*) AS total_requests,
			SUM(CASE WHEN streaming THEN 1 ELSE 0 END) AS streaming_count,
			SUM(CASE WHEN status = ? THEN 1 ELSE 0 END) AS completed_count,
			SUM(CASE WHEN status = ? THEN 1 ELSE 0 END) AS failed_count,
			SUM(CASE WHEN status = ? THEN 1 ELSE 0 END) AS fallback_count,
			COALESCE(AVG(CASE WHEN status <> ? THEN latency_ms END), 0) AS average_latency_ms`,
			persistence.RequestStatusCompleted,
			persistence.RequestStatusFailed,
			persistence.RequestStatusFallback,
			persistence.RequestStatusPending,
		).
		Group("provider").
		Order("provider").
		Scan(&stats).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate chat records: %w", err)
	}
	return stats, nil
}
