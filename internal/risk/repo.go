package risk

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/coverledger/pkg/db/models"
	"github.com/angelmondragon/coverledger/pkg/enums"
)

// Repository reads claim history and stores the latest assessment per entity.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CountClaimsByClaimant(ctx context.Context, userID uuid.UUID) (int64, error)
	CountClaimsOnEntity(ctx context.Context, entityType enums.CoveredEntityType, entityID uuid.UUID) (int64, error)
	Upsert(ctx context.Context, assessment *models.RiskAssessment) (*models.RiskAssessment, error)
	Find(ctx context.Context, entityType enums.RiskEntityType, entityID uuid.UUID) (*models.RiskAssessment, error)
	ListDue(ctx context.Context, now time.Time, limit int) ([]models.RiskAssessment, error)
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

func (r *repository) CountClaimsByClaimant(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Claim{}).
		Where("claimant_id = ?", userID).
		Count(&count).Error
	return count, err
}

func (r *repository) CountClaimsOnEntity(ctx context.Context, entityType enums.CoveredEntityType, entityID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Claim{}).
		Joins("JOIN coverages ON coverages.id = claims.coverage_id").
		Where("coverages.entity_type = ? AND coverages.entity_id = ?", entityType, entityID).
		Count(&count).Error
	return count, err
}

// Upsert replaces the assessment for (entity_type, entity_id) and returns the stored row.
func (r *repository) Upsert(ctx context.Context, assessment *models.RiskAssessment) (*models.RiskAssessment, error) {
	conn := r.db.WithContext(ctx)
	err := conn.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "entity_type"}, {Name: "entity_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"score",
			"risk_level",
			"risk_factors",
			"last_assessment",
			"next_assessment",
			"updated_at",
		}),
	}).Create(assessment).Error
	if err != nil {
		return nil, err
	}
	return r.Find(ctx, assessment.EntityType, assessment.EntityID)
}

func (r *repository) Find(ctx context.Context, entityType enums.RiskEntityType, entityID uuid.UUID) (*models.RiskAssessment, error) {
	var row models.RiskAssessment
	if err := r.db.WithContext(ctx).
		Where("entity_type = ? AND entity_id = ?", entityType, entityID).
		Take(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// ListDue returns assessments whose next_assessment is at or before now, oldest first.
func (r *repository) ListDue(ctx context.Context, now time.Time, limit int) ([]models.RiskAssessment, error) {
	var rows []models.RiskAssessment
	query := r.db.WithContext(ctx).
		Where("next_assessment <= ?", now).
		Order("next_assessment ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
