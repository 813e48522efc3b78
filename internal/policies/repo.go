package policies

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/coverledger/pkg/db/models"
	"github.com/angelmondragon/coverledger/pkg/enums"
)

// Repository persists policies.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, policy *models.Policy) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Policy, error)
	FindActive(ctx context.Context, category enums.PolicyCategory, at time.Time) (*models.Policy, error)
	Deactivate(ctx context.Context, id uuid.UUID) (bool, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, policy *models.Policy) error {
	return r.db.WithContext(ctx).Create(policy).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Policy, error) {
	var policy models.Policy
	if err := r.db.WithContext(ctx).Where("id = ?", id).Take(&policy).Error; err != nil {
		return nil, err
	}
	return &policy, nil
}

// FindActive returns the active policy of category whose window contains at,
// preferring the most recent start.
func (r *repository) FindActive(ctx context.Context, category enums.PolicyCategory, at time.Time) (*models.Policy, error) {
	var policy models.Policy
	if err := r.db.WithContext(ctx).
		Where("category = ? AND is_active = ? AND start_date <= ? AND end_date > ?", category, true, at, at).
		Order("start_date DESC, created_at DESC").
		Take(&policy).Error; err != nil {
		return nil, err
	}
	return &policy, nil
}

// Deactivate clears is_active and reports whether the row changed.
func (r *repository) Deactivate(ctx context.Context, id uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Policy{}).
		Where("id = ? AND is_active = ?", id, true).
		Updates(map[string]any{"is_active": false, "updated_at": time.Now().UTC()})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
