package warranties

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/coverledger/pkg/db/models"
	"github.com/angelmondragon/coverledger/pkg/enums"
)

// Binding is the part of a service or delivery warranty a claim is checked against.
type Binding struct {
	ID             uuid.UUID
	Kind           enums.WarrantyKind
	IsActive       bool
	EndDate        time.Time
	MaxClaimAmount decimal.Decimal
	ClaimsCount    int
}

// Repository persists warranty products, their bindings and claims.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateWarranty(ctx context.Context, warranty *models.Warranty) error
	FindWarranty(ctx context.Context, id uuid.UUID) (*models.Warranty, error)
	CreateServiceWarranty(ctx context.Context, binding *models.ServiceWarranty) error
	CreateDeliveryWarranty(ctx context.Context, binding *models.DeliveryWarranty) error
	FindBinding(ctx context.Context, kind enums.WarrantyKind, id uuid.UUID) (*Binding, error)
	IncrementClaims(ctx context.Context, kind enums.WarrantyKind, id uuid.UUID) (bool, error)
	CreateClaim(ctx context.Context, claim *models.WarrantyClaim) error
	FindClaim(ctx context.Context, id uuid.UUID) (*models.WarrantyClaim, error)
	ListEnded(ctx context.Context, kind enums.WarrantyKind, at time.Time, limit int) ([]uuid.UUID, error)
	Deactivate(ctx context.Context, kind enums.WarrantyKind, ids []uuid.UUID) (int64, error)
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

func bindingModel(kind enums.WarrantyKind) (any, error) {
	switch kind {
	case enums.WarrantyKindService:
		return &models.ServiceWarranty{}, nil
	case enums.WarrantyKindDelivery:
		return &models.DeliveryWarranty{}, nil
	default:
		return nil, fmt.Errorf("unknown warranty kind %q", kind)
	}
}

func (r *repository) CreateWarranty(ctx context.Context, warranty *models.Warranty) error {
	return r.db.WithContext(ctx).Create(warranty).Error
}

func (r *repository) FindWarranty(ctx context.Context, id uuid.UUID) (*models.Warranty, error) {
	var warranty models.Warranty
	if err := r.db.WithContext(ctx).Where("id = ?", id).Take(&warranty).Error; err != nil {
		return nil, err
	}
	return &warranty, nil
}

func (r *repository) CreateServiceWarranty(ctx context.Context, binding *models.ServiceWarranty) error {
	return r.db.WithContext(ctx).Create(binding).Error
}

func (r *repository) CreateDeliveryWarranty(ctx context.Context, binding *models.DeliveryWarranty) error {
	return r.db.WithContext(ctx).Create(binding).Error
}

func (r *repository) FindBinding(ctx context.Context, kind enums.WarrantyKind, id uuid.UUID) (*Binding, error) {
	model, err := bindingModel(kind)
	if err != nil {
		return nil, err
	}
	var binding Binding
	err = r.db.WithContext(ctx).
		Model(model).
		Select("id, is_active, end_date, max_claim_amount, claims_count").
		Where("id = ?", id).
		Take(&binding).Error
	if err != nil {
		return nil, err
	}
	binding.Kind = kind
	return &binding, nil
}

// IncrementClaims bumps claims_count on an active binding.
func (r *repository) IncrementClaims(ctx context.Context, kind enums.WarrantyKind, id uuid.UUID) (bool, error) {
	model, err := bindingModel(kind)
	if err != nil {
		return false, err
	}
	result := r.db.WithContext(ctx).
		Model(model).
		Where("id = ? AND is_active = ?", id, true).
		Updates(map[string]any{
			"claims_count": gorm.Expr("claims_count + 1"),
			"updated_at":   time.Now().UTC(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *repository) CreateClaim(ctx context.Context, claim *models.WarrantyClaim) error {
	return r.db.WithContext(ctx).Create(claim).Error
}

func (r *repository) FindClaim(ctx context.Context, id uuid.UUID) (*models.WarrantyClaim, error) {
	var claim models.WarrantyClaim
	if err := r.db.WithContext(ctx).Where("id = ?", id).Take(&claim).Error; err != nil {
		return nil, err
	}
	return &claim, nil
}

func (r *repository) ListEnded(ctx context.Context, kind enums.WarrantyKind, at time.Time, limit int) ([]uuid.UUID, error) {
	model, err := bindingModel(kind)
	if err != nil {
		return nil, err
	}
	var ids []uuid.UUID
	query := r.db.WithContext(ctx).
		Model(model).
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

func (r *repository) Deactivate(ctx context.Context, kind enums.WarrantyKind, ids []uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	model, err := bindingModel(kind)
	if err != nil {
		return 0, err
	}
	result := r.db.WithContext(ctx).
		Model(model).
		Where("id IN ? AND is_active = ?", ids, true).
		Updates(map[string]any{"is_active": false, "updated_at": time.Now().UTC()})
	return result.RowsAffected, result.Error
}
