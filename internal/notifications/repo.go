package notifications

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/coverledger/pkg/db/models"
	"github.com/angelmondragon/coverledger/pkg/pagination"
)

// Repository persists in-app notifications.
type Repository interface {
	Create(ctx context.Context, notification *models.Notification) error
	List(ctx context.Context, q listQuery) ([]models.Notification, *pagination.Key, error)
	MarkRead(ctx context.Context, recipientID, notificationID uuid.UUID, now time.Time) (markOutcome, error)
	MarkAllRead(ctx context.Context, recipientID uuid.UUID, now time.Time) (int64, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type listQuery struct {
	RecipientID uuid.UUID
	Limit       int
	After       *pagination.Key
	UnreadOnly  bool
}

// markOutcome separates a missing notification from one that was already read.
type markOutcome int

const (
	markMissing markOutcome = iota
	markAlreadyRead
	markApplied
)

type gormRepository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) inbox(ctx context.Context, recipientID uuid.UUID) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.Notification{}).Where("recipient_id = ?", recipientID)
}

func (r *gormRepository) Create(ctx context.Context, notification *models.Notification) error {
	return r.db.WithContext(ctx).Create(notification).Error
}

// List pages a recipient's inbox newest first.
func (r *gormRepository) List(ctx context.Context, q listQuery) ([]models.Notification, *pagination.Key, error) {
	query := r.inbox(ctx, q.RecipientID)
	if q.UnreadOnly {
		query = query.Where("read_at IS NULL")
	}
	var rows []models.Notification
	if err := pagination.Scope(query, q.After, pagination.Descending, q.Limit).Find(&rows).Error; err != nil {
		return nil, nil, err
	}
	page, next := pagination.Cut(rows, q.Limit, func(n models.Notification) pagination.Key {
		return pagination.Key{CreatedAt: n.CreatedAt, ID: n.ID}
	})
	return page, next, nil
}

// MarkRead keeps the first read_at; marking twice is not an error.
func (r *gormRepository) MarkRead(ctx context.Context, recipientID, notificationID uuid.UUID, now time.Time) (markOutcome, error) {
	res := r.inbox(ctx, recipientID).
		Where("id = ? AND read_at IS NULL", notificationID).
		UpdateColumn("read_at", now)
	if res.Error != nil {
		return markMissing, res.Error
	}
	if res.RowsAffected > 0 {
		return markApplied, nil
	}

	var n int64
	if err := r.inbox(ctx, recipientID).Where("id = ?", notificationID).Count(&n).Error; err != nil {
		return markMissing, err
	}
	if n == 0 {
		return markMissing, nil
	}
	return markAlreadyRead, nil
}

func (r *gormRepository) MarkAllRead(ctx context.Context, recipientID uuid.UUID, now time.Time) (int64, error) {
	res := r.inbox(ctx, recipientID).Where("read_at IS NULL").UpdateColumn("read_at", now)
	return res.RowsAffected, res.Error
}

func (r *gormRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Where("created_at < ?", cutoff).Delete(&models.Notification{})
	return res.RowsAffected, res.Error
}
