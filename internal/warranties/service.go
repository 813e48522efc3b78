// Package warranties runs the fixed-cap warranty ledger for services and
// deliveries. Bindings count claims; they do not accumulate claimed amounts.
package warranties

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/coverledger/internal/audit"
	"github.com/angelmondragon/coverledger/internal/notifications"
	"github.com/angelmondragon/coverledger/pkg/config"
	"github.com/angelmondragon/coverledger/pkg/db/models"
	"github.com/angelmondragon/coverledger/pkg/enums"
	pkgerrors "github.com/angelmondragon/coverledger/pkg/errors"
	"github.com/angelmondragon/coverledger/pkg/logger"
	"github.com/angelmondragon/coverledger/pkg/validation"
)

const expireBatchSize = 500

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type numberAllocator interface {
	Next(ctx context.Context, tx *gorm.DB, kind enums.NumberKind, now time.Time) (string, error)
}

type notifier interface {
	Send(ctx context.Context, msg notifications.Notification)
}

type auditRecorder interface {
	Record(ctx context.Context, entry audit.Entry)
}

// Service defines the warranty operations.
type Service interface {
	CreateWarranty(ctx context.Context, input CreateWarrantyInput) (*models.Warranty, error)
	CreateServiceWarranty(ctx context.Context, serviceID, providerID, clientID, warrantyID uuid.UUID, durationDays int) (*models.ServiceWarranty, error)
	CreateDeliveryWarranty(ctx context.Context, deliveryID, delivererID, clientID, warrantyID uuid.UUID) (*models.DeliveryWarranty, error)
	CreateWarrantyClaim(ctx context.Context, input CreateWarrantyClaimInput) (*models.WarrantyClaim, error)
	GetClaim(ctx context.Context, claimID uuid.UUID) (*models.WarrantyClaim, error)
	ExpireEnded(ctx context.Context, now time.Time) (int, error)
}

// ServiceParams groups dependencies for the warranty service.
type ServiceParams struct {
	Repository        Repository
	TransactionRunner txRunner
	Numbering         numberAllocator
	Notifier          notifier
	Audit             auditRecorder
	Config            config.InsuranceConfig
	Logger            *logger.Logger
}

type CreateWarrantyInput struct {
	Name         string `json:"name" validate:"required,max=200"`
	Description  string `json:"description"`
	DurationDays int    `json:"durationDays" validate:"gt=0"`
}

// CreateWarrantyClaimInput points at exactly one binding through Kind and BindingID.
type CreateWarrantyClaimInput struct {
	Kind            enums.WarrantyKind `json:"kind" validate:"required,oneof=service delivery"`
	BindingID       uuid.UUID          `json:"bindingId" validate:"required"`
	ClaimantID      uuid.UUID          `json:"claimantId" validate:"required"`
	ClaimType       enums.ClaimType    `json:"claimType" validate:"required"`
	Description     string             `json:"description" validate:"required,max=5000"`
	RequestedAmount decimal.Decimal    `json:"requestedAmount" validate:"gt=0"`
	Evidence        []string           `json:"evidence"`
}

type service struct {
	repo      Repository
	tx        txRunner
	numbering numberAllocator
	notifier  notifier
	audit     auditRecorder
	cfg       config.InsuranceConfig
	logg      *logger.Logger
	now       func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repository == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "warranty repository required")
	}
	if params.TransactionRunner == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transaction runner required")
	}
	if params.Numbering == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "numbering service required")
	}
	if params.Notifier == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notifier required")
	}
	if params.Audit == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "audit recorder required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	return &service{
		repo:      params.Repository,
		tx:        params.TransactionRunner,
		numbering: params.Numbering,
		notifier:  params.Notifier,
		audit:     params.Audit,
		cfg:       params.Config,
		logg:      params.Logger,
		now:       time.Now,
	}, nil
}

func (s *service) CreateWarranty(ctx context.Context, input CreateWarrantyInput) (*models.Warranty, error) {
	if err := validation.Struct(input); err != nil {
		return nil, err
	}
	warranty := &models.Warranty{
		Name:         input.Name,
		Description:  input.Description,
		DurationDays: input.DurationDays,
		IsActive:     true,
	}
	if err := s.repo.CreateWarranty(ctx, warranty); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create warranty")
	}
	s.audit.Record(ctx, audit.Entry{
		EntityType: enums.AuditEntityWarranty,
		EntityID:   warranty.ID,
		Action:     enums.AuditActionCreated,
		Details:    map[string]any{"name": warranty.Name, "duration_days": warranty.DurationDays},
	})
	return warranty, nil
}

func (s *service) CreateServiceWarranty(ctx context.Context, serviceID, providerID, clientID, warrantyID uuid.UUID, durationDays int) (*models.ServiceWarranty, error) {
	if err := requireIDs(map[string]uuid.UUID{"serviceId": serviceID, "providerId": providerID, "clientId": clientID, "warrantyId": warrantyID}); err != nil {
		return nil, err
	}
	if durationDays < 0 {
		return nil, validation.Field("durationDays", "must be at least 0")
	}
	if durationDays == 0 {
		durationDays = s.cfg.DefaultServiceWarrantyDays
	}
	if _, err := s.activeWarranty(ctx, warrantyID); err != nil {
		return nil, err
	}

	start := s.now().UTC()
	binding := &models.ServiceWarranty{
		ServiceID:      serviceID,
		ProviderID:     providerID,
		ClientID:       clientID,
		WarrantyID:     warrantyID,
		StartDate:      start,
		EndDate:        start.AddDate(0, 0, durationDays),
		MaxClaimAmount: s.cfg.ServiceWarrantyCap,
		IsActive:       true,
	}
	if err := s.repo.CreateServiceWarranty(ctx, binding); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create service warranty")
	}
	s.recordBinding(ctx, binding.ID, enums.WarrantyKindService, warrantyID, binding.EndDate)
	return binding, nil
}

func (s *service) CreateDeliveryWarranty(ctx context.Context, deliveryID, delivererID, clientID, warrantyID uuid.UUID) (*models.DeliveryWarranty, error) {
	if err := requireIDs(map[string]uuid.UUID{"deliveryId": deliveryID, "delivererId": delivererID, "clientId": clientID, "warrantyId": warrantyID}); err != nil {
		return nil, err
	}
	warranty, err := s.activeWarranty(ctx, warrantyID)
	if err != nil {
		return nil, err
	}

	start := s.now().UTC()
	binding := &models.DeliveryWarranty{
		DeliveryID:     deliveryID,
		DelivererID:    delivererID,
		ClientID:       clientID,
		WarrantyID:     warrantyID,
		StartDate:      start,
		EndDate:        start.AddDate(0, 0, warranty.DurationDays),
		MaxClaimAmount: s.cfg.DeliveryWarrantyCap,
		IsActive:       true,
	}
	if err := s.repo.CreateDeliveryWarranty(ctx, binding); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create delivery warranty")
	}
	s.recordBinding(ctx, binding.ID, enums.WarrantyKindDelivery, warrantyID, binding.EndDate)
	return binding, nil
}

func (s *service) CreateWarrantyClaim(ctx context.Context, input CreateWarrantyClaimInput) (*models.WarrantyClaim, error) {
	if err := validation.Struct(input); err != nil {
		return nil, err
	}
	if !input.ClaimType.IsValid() {
		return nil, validation.Field("claimType", "is invalid")
	}
	evidence := input.Evidence
	if evidence == nil {
		evidence = []string{}
	}

	now := s.now().UTC()
	var claim *models.WarrantyClaim

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		binding, err := repo.FindBinding(ctx, input.Kind, input.BindingID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "warranty not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load warranty")
		}
		if !binding.IsActive {
			return pkgerrors.New(pkgerrors.CodeInactiveResource, "warranty is not active").
				WithDetails(map[string]any{"bindingId": binding.ID.String()})
		}
		if now.After(binding.EndDate) {
			return pkgerrors.New(pkgerrors.CodeWarrantyExpired, "warranty expired").
				WithDetails(map[string]any{"endDate": binding.EndDate.Format(time.RFC3339)})
		}
		if input.RequestedAmount.GreaterThan(binding.MaxClaimAmount) {
			return pkgerrors.New(pkgerrors.CodeClaimExceedsLimit,
				fmt.Sprintf("requested amount exceeds the maximum of %s", binding.MaxClaimAmount.StringFixed(2))).
				WithDetails(map[string]any{
					"maxClaimAmount": binding.MaxClaimAmount.StringFixed(2),
					"requested":      input.RequestedAmount.StringFixed(2),
				})
		}

		number, err := s.numbering.Next(ctx, tx, enums.NumberKindWarrantyClaim, now)
		if err != nil {
			return err
		}
		claim = &models.WarrantyClaim{
			ClaimNumber:     number,
			Kind:            input.Kind,
			ClaimantID:      input.ClaimantID,
			ClaimType:       input.ClaimType,
			Description:     input.Description,
			RequestedAmount: input.RequestedAmount,
			Evidence:        evidence,
			Status:          enums.WarrantyClaimStatusSubmitted,
		}
		bindingID := binding.ID
		if input.Kind == enums.WarrantyKindService {
			claim.ServiceWarrantyID = &bindingID
		} else {
			claim.DeliveryWarrantyID = &bindingID
		}
		if err := repo.CreateClaim(ctx, claim); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create warranty claim")
		}
		incremented, err := repo.IncrementClaims(ctx, input.Kind, bindingID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "increment warranty claims")
		}
		if !incremented {
			return pkgerrors.New(pkgerrors.CodeInactiveResource, "warranty is not active").
				WithDetails(map[string]any{"bindingId": bindingID.String()})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithField(ctx, "warranty_claim_id", claim.ID.String()), "warranty claim filed")
	s.notifier.Send(ctx, notifications.Notification{
		RecipientID: claim.ClaimantID,
		Type:        enums.NotificationTypeWarrantyClaimCreated,
		Title:       "Warranty claim: " + claim.ClaimNumber,
		Content:     fmt.Sprintf("Your warranty claim has been recorded. Amount: %s", claim.RequestedAmount.StringFixed(2)),
		Metadata:    map[string]any{"warrantyClaimId": claim.ID.String()},
	})
	claimant := claim.ClaimantID
	s.audit.Record(ctx, audit.Entry{
		EntityType:  enums.AuditEntityWarrantyClaim,
		EntityID:    claim.ID,
		Action:      enums.AuditActionCreated,
		PerformedBy: &claimant,
		Details: map[string]any{
			"claim_number": claim.ClaimNumber,
			"kind":         string(claim.Kind),
			"binding_id":   input.BindingID.String(),
			"amount":       claim.RequestedAmount.String(),
		},
	})
	return claim, nil
}

func (s *service) GetClaim(ctx context.Context, claimID uuid.UUID) (*models.WarrantyClaim, error) {
	claim, err := s.repo.FindClaim(ctx, claimID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "warranty claim not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load warranty claim")
	}
	return claim, nil
}

// ExpireEnded deactivates service and delivery bindings past their end date.
func (s *service) ExpireEnded(ctx context.Context, now time.Time) (int, error) {
	total := 0
	for _, kind := range []enums.WarrantyKind{enums.WarrantyKindService, enums.WarrantyKindDelivery} {
		for {
			ids, err := s.repo.ListEnded(ctx, kind, now.UTC(), expireBatchSize)
			if err != nil {
				return total, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list ended warranties")
			}
			if len(ids) == 0 {
				break
			}
			affected, err := s.repo.Deactivate(ctx, kind, ids)
			if err != nil {
				return total, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deactivate warranties")
			}
			total += int(affected)
			for _, id := range ids {
				s.audit.Record(ctx, audit.Entry{
					EntityType: enums.AuditEntityWarranty,
					EntityID:   id,
					Action:     enums.AuditActionExpired,
					Details:    map[string]any{"kind": string(kind)},
				})
			}
			if len(ids) < expireBatchSize {
				break
			}
		}
	}
	return total, nil
}

func (s *service) activeWarranty(ctx context.Context, warrantyID uuid.UUID) (*models.Warranty, error) {
	warranty, err := s.repo.FindWarranty(ctx, warrantyID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "warranty not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load warranty")
	}
	if !warranty.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeInactiveResource, "warranty is not active").
			WithDetails(map[string]any{"warrantyId": warrantyID.String()})
	}
	return warranty, nil
}

func (s *service) recordBinding(ctx context.Context, bindingID uuid.UUID, kind enums.WarrantyKind, warrantyID uuid.UUID, end time.Time) {
	s.audit.Record(ctx, audit.Entry{
		EntityType: enums.AuditEntityWarranty,
		EntityID:   bindingID,
		Action:     enums.AuditActionCreated,
		Details: map[string]any{
			"kind":        string(kind),
			"warranty_id": warrantyID.String(),
			"end_date":    end.Format(time.RFC3339),
		},
	})
}

func requireIDs(ids map[string]uuid.UUID) error {
	missing := map[string]string{}
	for field, id := range ids {
		if id == uuid.Nil {
			missing[field] = "is required"
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeValidation, "validation failed").WithDetails(missing)
}
