package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/angelmondragon/coverledger/pkg/enums"
)

// Warranty is a warranty product with a default duration.
type Warranty struct {
	ID           uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Name         string    `gorm:"column:name;not null"`
	Description  string    `gorm:"column:description"`
	DurationDays int       `gorm:"column:duration_days;not null"`
	IsActive     bool      `gorm:"column:is_active;not null"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (w *Warranty) BeforeCreate(*gorm.DB) error {
	assignID(&w.ID)
	return nil
}

// ServiceWarranty binds a warranty to a completed service.
type ServiceWarranty struct {
	ID             uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	ServiceID      uuid.UUID       `gorm:"column:service_id;type:uuid;not null;index"`
	ProviderID     uuid.UUID       `gorm:"column:provider_id;type:uuid;not null"`
	ClientID       uuid.UUID       `gorm:"column:client_id;type:uuid;not null"`
	WarrantyID     uuid.UUID       `gorm:"column:warranty_id;type:uuid;not null"`
	StartDate      time.Time       `gorm:"column:start_date;not null"`
	EndDate        time.Time       `gorm:"column:end_date;not null"`
	MaxClaimAmount decimal.Decimal `gorm:"column:max_claim_amount;type:numeric(14,2);not null"`
	ClaimsCount    int             `gorm:"column:claims_count;not null;default:0"`
	IsActive       bool            `gorm:"column:is_active;not null"`
	CreatedAt      time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (w *ServiceWarranty) BeforeCreate(*gorm.DB) error {
	assignID(&w.ID)
	return nil
}

// DeliveryWarranty binds a warranty to a completed delivery.
type DeliveryWarranty struct {
	ID             uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	DeliveryID     uuid.UUID       `gorm:"column:delivery_id;type:uuid;not null;index"`
	DelivererID    uuid.UUID       `gorm:"column:deliverer_id;type:uuid;not null"`
	ClientID       uuid.UUID       `gorm:"column:client_id;type:uuid;not null"`
	WarrantyID     uuid.UUID       `gorm:"column:warranty_id;type:uuid;not null"`
	StartDate      time.Time       `gorm:"column:start_date;not null"`
	EndDate        time.Time       `gorm:"column:end_date;not null"`
	MaxClaimAmount decimal.Decimal `gorm:"column:max_claim_amount;type:numeric(14,2);not null"`
	ClaimsCount    int             `gorm:"column:claims_count;not null;default:0"`
	IsActive       bool            `gorm:"column:is_active;not null"`
	CreatedAt      time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (w *DeliveryWarranty) BeforeCreate(*gorm.DB) error {
	assignID(&w.ID)
	return nil
}

// WarrantyClaim references exactly one binding: ServiceWarrantyID or DeliveryWarrantyID.
type WarrantyClaim struct {
	ID                 uuid.UUID                   `gorm:"column:id;type:uuid;primaryKey"`
	ClaimNumber        string                      `gorm:"column:claim_number;not null;uniqueIndex"`
	Kind               enums.WarrantyKind          `gorm:"column:kind;not null"`
	ServiceWarrantyID  *uuid.UUID                  `gorm:"column:service_warranty_id;type:uuid;index"`
	DeliveryWarrantyID *uuid.UUID                  `gorm:"column:delivery_warranty_id;type:uuid;index"`
	ClaimantID         uuid.UUID                   `gorm:"column:claimant_id;type:uuid;not null"`
	ClaimType          enums.ClaimType             `gorm:"column:claim_type;not null"`
	Description        string                      `gorm:"column:description;not null"`
	RequestedAmount    decimal.Decimal             `gorm:"column:requested_amount;type:numeric(14,2);not null"`
	Evidence           datatypes.JSONSlice[string] `gorm:"column:evidence"`
	Status             enums.WarrantyClaimStatus   `gorm:"column:status;not null"`
	CreatedAt          time.Time                   `gorm:"column:created_at;autoCreateTime"`
}

func (c *WarrantyClaim) BeforeCreate(*gorm.DB) error {
	assignID(&c.ID)
	return nil
}
