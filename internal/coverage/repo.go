package coverage

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/coverledger/pkg/db/models"
	"github.com/angelmondragon/coverledger/pkg/enums"
)

// Repository persists coverages. current_usage is never written here.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, coverage *models.Coverage) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Coverage, error)
	ListInForce(ctx context.Context, entityType enums.CoveredEntityType, entityID uuid.UUID, at time.Time) ([]models.Coverage, error)
	ListEnded(ctx context.Context, at time.Time, limit int) ([]uuid.UUID, error)
	Deactivate(ctx context.Context, ids []uuid.UUID) (int64, error)
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

func (r *repository) Create(ctx context.Context, coverage *models.Coverage) error {
	return r.db.WithContext(ctx).Omit("Policy").Create(coverage).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Coverage, error) {
	var coverage models.Coverage
	if err := r.db.WithContext(ctx).
		Preload("Policy").
		Where("id = ?", id).
		Take(&coverage).Error; err != nil {
		return nil, err
	}
	return &coverage, nil
}

// ListInForce returns active coverages for the entity that have not ended at at.
func (r *repository) ListInForce(ctx context.Context, entityType enums.CoveredEntityType, entityID uuid.UUID, at time.Time) ([]models.Coverage, error) {
	var rows []models.Coverage
	if err := r.db.WithContext(ctx).
		Preload("Policy").
		Where("entity_type = ? AND entity_id = ? AND is_active = ? AND end_date >= ?", entityType, entityID, true, at).
		Order("created_at ASC, id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ListEnded returns ids of still-active coverages whose end date is before at.
func (r *repository) ListEnded(ctx context.Context, at time.Time, limit int) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	query := r.db.WithContext(ctx).
		Model(&models.Coverage{}).
		Where("is_active = ? AND end_date < ?", true, at).
		Order("end_date ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *repository) Deactivate(ctx context.Context, ids []uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	result := r.db.WithContext(ctx).
		Model(&models.Coverage{}).
		Where("id IN ? AND is_active = ?", ids, true).
		Updates(map[string]any{"is_active": false, "updated_at": time.Now().UTC()})
	return result.RowsAffected, result.Error
}
