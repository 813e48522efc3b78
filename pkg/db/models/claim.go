package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/angelmondragon/coverledger/pkg/enums"
)

// Claim is a declared loss against exactly one coverage.
type Claim struct {
	ID                uuid.UUID                   `gorm:"column:id;type:uuid;primaryKey"`
	ClaimNumber       string                      `gorm:"column:claim_number;not null;uniqueIndex"`
	PolicyID          uuid.UUID                   `gorm:"column:policy_id;type:uuid;not null"`
	CoverageID        uuid.UUID                   `gorm:"column:coverage_id;type:uuid;not null;index"`
	ClaimantID        uuid.UUID                   `gorm:"column:claimant_id;type:uuid;not null;index"`
	IncidentDate      time.Time                   `gorm:"column:incident_date;not null"`
	ClaimType         enums.ClaimType             `gorm:"column:claim_type;not null"`
	RequestedAmount   decimal.Decimal             `gorm:"column:requested_amount;type:numeric(14,2);not null"`
	Description       string                      `gorm:"column:description;not null"`
	Circumstances     string                      `gorm:"column:circumstances"`
	Evidence          datatypes.JSONSlice[string] `gorm:"column:evidence"`
	Status            enums.ClaimStatus           `gorm:"column:status;not null;index"`
	Findings          *string                     `gorm:"column:findings"`
	RecommendedAmount *decimal.Decimal            `gorm:"column:recommended_amount;type:numeric(14,2)"`
	ApprovedAmount    *decimal.Decimal            `gorm:"column:approved_amount;type:numeric(14,2)"`
	ApprovedBy        *uuid.UUID                  `gorm:"column:approved_by;type:uuid"`
	RejectionReason   *string                     `gorm:"column:rejection_reason"`
	RejectedBy        *uuid.UUID                  `gorm:"column:rejected_by;type:uuid"`
	SettledAt         *time.Time                  `gorm:"column:settled_at"`
	CreatedAt         time.Time                   `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time                   `gorm:"column:updated_at;autoUpdateTime"`
}

func (c *Claim) BeforeCreate(*gorm.DB) error {
	assignID(&c.ID)
	return nil
}

// ClaimAssessment is one evaluation of a claim. Re-assessment appends rows.
type ClaimAssessment struct {
	ID                uuid.UUID                   `gorm:"column:id;type:uuid;primaryKey"`
	ClaimID           uuid.UUID                   `gorm:"column:claim_id;type:uuid;not null;index"`
	AssessorID        uuid.UUID                   `gorm:"column:assessor_id;type:uuid;not null"`
	Findings          string                      `gorm:"column:findings;not null"`
	RecommendedAmount *decimal.Decimal            `gorm:"column:recommended_amount;type:numeric(14,2)"`
	Photos            datatypes.JSONSlice[string] `gorm:"column:photos"`
	Report            *string                     `gorm:"column:report"`
	CreatedAt         time.Time                   `gorm:"column:created_at;autoCreateTime"`
}

func (a *ClaimAssessment) BeforeCreate(*gorm.DB) error {
	assignID(&a.ID)
	return nil
}

// ClaimPayment is the payment instruction spawned by an approval. Its status
// is advanced by the external payment rail.
type ClaimPayment struct {
	ID            uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	ClaimID       uuid.UUID           `gorm:"column:claim_id;type:uuid;not null;uniqueIndex"`
	Amount        decimal.Decimal     `gorm:"column:amount;type:numeric(14,2);not null"`
	PaymentMethod string              `gorm:"column:payment_method;not null"`
	Status        enums.PaymentStatus `gorm:"column:status;not null"`
	CreatedAt     time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *ClaimPayment) BeforeCreate(*gorm.DB) error {
	assignID(&p.ID)
	return nil
}
