package claims

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/coverledger/pkg/db/models"
	"github.com/angelmondragon/coverledger/pkg/enums"
)

// Repository persists claims, their assessments and payments. It is also the
// only writer of coverages.current_usage.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, claim *models.Claim) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Claim, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from enums.ClaimStatus, updates map[string]any) (bool, error)
	CreateAssessment(ctx context.Context, assessment *models.ClaimAssessment) error
	ListAssessments(ctx context.Context, claimID uuid.UUID) ([]models.ClaimAssessment, error)
	CreatePayment(ctx context.Context, payment *models.ClaimPayment) error
	FindPayment(ctx context.Context, claimID uuid.UUID) (*models.ClaimPayment, error)
	FindCoverage(ctx context.Context, coverageID uuid.UUID) (*models.Coverage, error)
	ConsumeCoverage(ctx context.Context, coverageID uuid.UUID, amount decimal.Decimal, now time.Time) (bool, error)
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

func (r *repository) Create(ctx context.Context, claim *models.Claim) error {
	return r.db.WithContext(ctx).Create(claim).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Claim, error) {
	var claim models.Claim
	if err := r.db.WithContext(ctx).Where("id = ?", id).Take(&claim).Error; err != nil {
		return nil, err
	}
	return &claim, nil
}

// UpdateStatus applies updates only while the claim is still in from.
func (r *repository) UpdateStatus(ctx context.Context, id uuid.UUID, from enums.ClaimStatus, updates map[string]any) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Claim{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *repository) CreateAssessment(ctx context.Context, assessment *models.ClaimAssessment) error {
	return r.db.WithContext(ctx).Create(assessment).Error
}

func (r *repository) ListAssessments(ctx context.Context, claimID uuid.UUID) ([]models.ClaimAssessment, error) {
	var rows []models.ClaimAssessment
	if err := r.db.WithContext(ctx).
		Where("claim_id = ?", claimID).
		Order("created_at ASC, id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) CreatePayment(ctx context.Context, payment *models.ClaimPayment) error {
	return r.db.WithContext(ctx).Create(payment).Error
}

func (r *repository) FindPayment(ctx context.Context, claimID uuid.UUID) (*models.ClaimPayment, error) {
	var payment models.ClaimPayment
	if err := r.db.WithContext(ctx).Where("claim_id = ?", claimID).Take(&payment).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *repository) FindCoverage(ctx context.Context, coverageID uuid.UUID) (*models.Coverage, error) {
	var coverage models.Coverage
	if err := r.db.WithContext(ctx).
		Preload("Policy").
		Where("id = ?", coverageID).
		Take(&coverage).Error; err != nil {
		return nil, err
	}
	return &coverage, nil
}

// ConsumeCoverage adds amount to current_usage only if the result stays within
// max_coverage. The check and the increment are one statement. Both sides are
// compared in whole cents since sqlite keeps numeric columns as REAL.
func (r *repository) ConsumeCoverage(ctx context.Context, coverageID uuid.UUID, amount decimal.Decimal, now time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Coverage{}).
		Where("id = ? AND is_active = ?", coverageID, true).
		Where("ROUND((current_usage + ?) * 100) <= ROUND(max_coverage * 100)", amount).
		Updates(map[string]any{
			"current_usage": gorm.Expr("ROUND(current_usage + ?, 2)", amount),
			"updated_at":    now,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}
