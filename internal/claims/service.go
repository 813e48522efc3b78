// Package claims is the claims ledger: it owns the claim state machine and is
// the only writer of coverage usage.
package claims

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
	"github.com/angelmondragon/coverledger/pkg/metrics"
	"github.com/angelmondragon/coverledger/pkg/outbox"
	"github.com/angelmondragon/coverledger/pkg/outbox/payloads"
	"github.com/angelmondragon/coverledger/pkg/validation"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type numberAllocator interface {
	Next(ctx context.Context, tx *gorm.DB, kind enums.NumberKind, now time.Time) (string, error)
}

type eventEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type notifier interface {
	Send(ctx context.Context, msg notifications.Notification)
	SendAll(ctx context.Context, recipients []uuid.UUID, msg notifications.Notification)
}

type auditRecorder interface {
	Record(ctx context.Context, entry audit.Entry)
}

// Service defines the claim lifecycle.
type Service interface {
	FileClaim(ctx context.Context, input FileClaimInput) (*models.Claim, error)
	OpenInvestigation(ctx context.Context, claimID uuid.UUID, actorID *uuid.UUID) (*models.Claim, error)
	AssessClaim(ctx context.Context, input AssessClaimInput) (*models.ClaimAssessment, error)
	ApproveClaim(ctx context.Context, input ApproveClaimInput) (*models.Claim, error)
	RejectClaim(ctx context.Context, input RejectClaimInput) (*models.Claim, error)
	Get(ctx context.Context, claimID uuid.UUID) (*models.Claim, error)
	ListAssessments(ctx context.Context, claimID uuid.UUID) ([]models.ClaimAssessment, error)
	Payment(ctx context.Context, claimID uuid.UUID) (*models.ClaimPayment, error)
}

// ServiceParams groups dependencies for the claims ledger.
type ServiceParams struct {
	Repository        Repository
	TransactionRunner txRunner
	Numbering         numberAllocator
	Outbox            eventEmitter
	Notifier          notifier
	Directory         notifications.Directory
	Audit             auditRecorder
	Config            config.InsuranceConfig
	Logger            *logger.Logger
	Metrics           *metrics.LedgerMetrics
}

// FileClaimInput declares a loss against one coverage. PolicyID may be left
// empty, in which case the coverage's policy is used.
type FileClaimInput struct {
	PolicyID      uuid.UUID       `json:"policyId"`
	CoverageID    uuid.UUID       `json:"coverageId" validate:"required"`
	ClaimantID    uuid.UUID       `json:"claimantId" validate:"required"`
	IncidentDate  time.Time       `json:"incidentDate" validate:"required"`
	ClaimType     enums.ClaimType `json:"claimType" validate:"required"`
	Amount        decimal.Decimal `json:"amount" validate:"gt=0"`
	Description   string          `json:"description" validate:"required,max=5000"`
	Circumstances string          `json:"circumstances"`
	Evidence      []string        `json:"evidence"`
}

type AssessClaimInput struct {
	ClaimID           uuid.UUID        `json:"claimId" validate:"required"`
	AssessorID        uuid.UUID        `json:"assessorId" validate:"required"`
	Findings          string           `json:"findings" validate:"required"`
	RecommendedAmount *decimal.Decimal `json:"recommendedAmount"`
	Photos            []string         `json:"photos"`
	Report            *string          `json:"report"`
}

type ApproveClaimInput struct {
	ClaimID    uuid.UUID       `json:"claimId" validate:"required"`
	Amount     decimal.Decimal `json:"approvedAmount" validate:"gt=0"`
	ApprovedBy uuid.UUID       `json:"approvedBy" validate:"required"`
}

type RejectClaimInput struct {
	ClaimID    uuid.UUID `json:"claimId" validate:"required"`
	Reason     string    `json:"reason" validate:"required"`
	RejectedBy uuid.UUID `json:"rejectedBy" validate:"required"`
}

type service struct {
	repo      Repository
	tx        txRunner
	numbering numberAllocator
	outbox    eventEmitter
	notifier  notifier
	directory notifications.Directory
	audit     auditRecorder
	cfg       config.InsuranceConfig
	logg      *logger.Logger
	metrics   *metrics.LedgerMetrics
	now       func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repository == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "claims repository required")
	}
	if params.TransactionRunner == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transaction runner required")
	}
	if params.Numbering == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "numbering service required")
	}
	if params.Outbox == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "outbox emitter required")
	}
	if params.Notifier == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notifier required")
	}
	if params.Directory == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "reviewer directory required")
	}
	if params.Audit == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "audit recorder required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	if params.Config.PaymentMethod == "" {
		params.Config.PaymentMethod = config.DefaultInsurance().PaymentMethod
	}
	return &service{
		repo:      params.Repository,
		tx:        params.TransactionRunner,
		numbering: params.Numbering,
		outbox:    params.Outbox,
		notifier:  params.Notifier,
		directory: params.Directory,
		audit:     params.Audit,
		cfg:       params.Config,
		logg:      params.Logger,
		metrics:   params.Metrics,
		now:       time.Now,
	}, nil
}

func (s *service) FileClaim(ctx context.Context, input FileClaimInput) (*models.Claim, error) {
	if err := validation.Struct(input); err != nil {
		return nil, err
	}
	if !input.ClaimType.IsValid() {
		return nil, validation.Field("claimType", "is invalid")
	}

	now := s.now().UTC()
	evidence := input.Evidence
	if evidence == nil {
		evidence = []string{}
	}
	var claim *models.Claim

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		coverage, err := s.loadCoverage(ctx, repo, input.CoverageID)
		if err != nil {
			return err
		}
		if !coverage.InForce(now) {
			return pkgerrors.New(pkgerrors.CodeInactiveResource, "coverage is not active").
				WithDetails(map[string]any{"coverageId": coverage.ID.String()})
		}
		if coverage.Policy == nil || !coverage.Policy.IsActive {
			return pkgerrors.New(pkgerrors.CodeInactiveResource, "policy is not active").
				WithDetails(map[string]any{"policyId": coverage.PolicyID.String()})
		}
		if input.PolicyID != uuid.Nil && input.PolicyID != coverage.PolicyID {
			return validation.Field("policyId", "does not match the coverage policy")
		}
		if available := coverage.Remaining(); input.Amount.GreaterThan(available) {
			return insufficientCoverage(available, input.Amount)
		}

		number, err := s.numbering.Next(ctx, tx, enums.NumberKindClaim, now)
		if err != nil {
			return err
		}
		claim = &models.Claim{
			ClaimNumber:     number,
			PolicyID:        coverage.PolicyID,
			CoverageID:      coverage.ID,
			ClaimantID:      input.ClaimantID,
			IncidentDate:    input.IncidentDate.UTC(),
			ClaimType:       input.ClaimType,
			RequestedAmount: input.Amount,
			Description:     input.Description,
			Circumstances:   input.Circumstances,
			Evidence:        evidence,
			Status:          enums.ClaimStatusSubmitted,
		}
		if err := repo.Create(ctx, claim); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create claim")
		}
		return nil
	})
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeInsufficientCoverage) {
			s.metrics.IncInsufficientCoverage("file")
		}
		return nil, err
	}

	ctx = s.logg.WithClaimID(ctx, claim.ID.String())
	s.metrics.IncTransition("", string(enums.ClaimStatusSubmitted))
	s.logg.Info(s.logg.WithCoverageID(ctx, claim.CoverageID.String()), "claim filed")

	metadata := map[string]any{"claimId": claim.ID.String()}
	if reviewers, err := s.directory.Reviewers(ctx); err != nil {
		s.metrics.IncBestEffortFailure("notification")
		s.logg.Error(ctx, "reviewer lookup failed", err)
	} else {
		s.notifier.SendAll(ctx, reviewers, notifications.Notification{
			Type:     enums.NotificationTypeNewInsuranceClaim,
			Title:    "New claim: " + claim.ClaimNumber,
			Content:  fmt.Sprintf("Amount: %s - Type: %s", claim.RequestedAmount.StringFixed(2), claim.ClaimType),
			Metadata: metadata,
		})
	}
	s.notifier.Send(ctx, notifications.Notification{
		RecipientID: claim.ClaimantID,
		Type:        enums.NotificationTypeInsuranceClaimCreated,
		Title:       "Claim filed: " + claim.ClaimNumber,
		Content:     fmt.Sprintf("Your claim has been recorded. Amount: %s", claim.RequestedAmount.StringFixed(2)),
		Metadata:    metadata,
	})
	claimant := claim.ClaimantID
	s.audit.Record(ctx, audit.Entry{
		EntityType:  enums.AuditEntityClaim,
		EntityID:    claim.ID,
		Action:      enums.AuditActionCreated,
		PerformedBy: &claimant,
		Details: map[string]any{
			"claim_number": claim.ClaimNumber,
			"amount":       claim.RequestedAmount.String(),
			"claim_type":   string(claim.ClaimType),
		},
	})
	return claim, nil
}

// OpenInvestigation moves a submitted claim, or one sent back from
// assessment, into UNDER_INVESTIGATION.
func (s *service) OpenInvestigation(ctx context.Context, claimID uuid.UUID, actorID *uuid.UUID) (*models.Claim, error) {
	if claimID == uuid.Nil {
		return nil, validation.Field("claimId", "is required")
	}
	now := s.now().UTC()
	var claim *models.Claim
	var from enums.ClaimStatus

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		loaded, err := s.transition(ctx, tx, claimID, enums.ClaimStatusUnderInvestigation, map[string]any{}, now)
		if err != nil {
			return err
		}
		claim, from = loaded, loaded.Status
		claim.Status = enums.ClaimStatusUnderInvestigation
		claim.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, err
	}

	ctx = s.logg.WithClaimID(ctx, claim.ID.String())
	s.metrics.IncTransition(string(from), string(claim.Status))
	s.logg.Info(ctx, "claim investigation opened")
	s.notifier.Send(ctx, notifications.Notification{
		RecipientID: claim.ClaimantID,
		Type:        enums.NotificationTypeClaimUnderInvestigation,
		Title:       "Claim under investigation: " + claim.ClaimNumber,
		Content:     "An investigator has started reviewing your claim.",
		Metadata:    map[string]any{"claimId": claim.ID.String()},
	})
	s.audit.Record(ctx, audit.Entry{
		EntityType:  enums.AuditEntityClaim,
		EntityID:    claim.ID,
		Action:      enums.AuditActionInvestigationOpened,
		PerformedBy: actorID,
		Details:     map[string]any{"from": string(from)},
	})
	return claim, nil
}

// AssessClaim records an assessment and moves the claim to BEING_ASSESSED. The
// recommended amount is stored on the claim; approved_amount stays unset.
func (s *service) AssessClaim(ctx context.Context, input AssessClaimInput) (*models.ClaimAssessment, error) {
	if err := validation.Struct(input); err != nil {
		return nil, err
	}
	if input.RecommendedAmount != nil && input.RecommendedAmount.IsNegative() {
		return nil, validation.Field("recommendedAmount", "must be at least 0")
	}
	photos := input.Photos
	if photos == nil {
		photos = []string{}
	}

	now := s.now().UTC()
	var claim *models.Claim
	var assessment *models.ClaimAssessment

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		findings := input.Findings
		updates := map[string]any{
			"findings":           findings,
			"recommended_amount": nil,
		}
		if input.RecommendedAmount != nil {
			updates["recommended_amount"] = *input.RecommendedAmount
		}
		loaded, err := s.transition(ctx, tx, input.ClaimID, enums.ClaimStatusBeingAssessed, updates, now)
		if err != nil {
			return err
		}
		loaded.Findings = &findings
		loaded.RecommendedAmount = input.RecommendedAmount
		assessment = &models.ClaimAssessment{
			ClaimID:           loaded.ID,
			AssessorID:        input.AssessorID,
			Findings:          findings,
			RecommendedAmount: input.RecommendedAmount,
			Photos:            photos,
			Report:            input.Report,
		}
		if err := s.repo.WithTx(tx).CreateAssessment(ctx, assessment); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create assessment")
		}
		claim = loaded
		return nil
	})
	if err != nil {
		return nil, err
	}

	ctx = s.logg.WithClaimID(ctx, claim.ID.String())
	s.metrics.IncTransition(string(enums.ClaimStatusUnderInvestigation), string(enums.ClaimStatusBeingAssessed))
	s.logg.Info(ctx, "claim assessed")

	recommended := decimal.Zero
	if input.RecommendedAmount != nil {
		recommended = *input.RecommendedAmount
	}
	s.notifier.Send(ctx, notifications.Notification{
		RecipientID: claim.ClaimantID,
		Type:        enums.NotificationTypeClaimAssessed,
		Title:       "Assessment of your claim " + claim.ClaimNumber,
		Content:     fmt.Sprintf("The assessment of your claim is complete. Recommended amount: %s", recommended.StringFixed(2)),
		Metadata:    map[string]any{"claimId": claim.ID.String()},
	})
	assessor := input.AssessorID
	details := map[string]any{"assessment_id": assessment.ID.String()}
	if input.RecommendedAmount != nil {
		details["recommended_amount"] = input.RecommendedAmount.String()
	}
	s.audit.Record(ctx, audit.Entry{
		EntityType:  enums.AuditEntityClaim,
		EntityID:    claim.ID,
		Action:      enums.AuditActionAssessed,
		PerformedBy: &assessor,
		Details:     details,
	})
	return assessment, nil
}

// ApproveClaim settles the claim, consumes coverage and queues the payment in
// one transaction. The remaining coverage is checked by the increment itself.
func (s *service) ApproveClaim(ctx context.Context, input ApproveClaimInput) (*models.Claim, error) {
	if err := validation.Struct(input); err != nil {
		return nil, err
	}
	amount := input.Amount.Round(2)
	now := s.now().UTC()
	approver := input.ApprovedBy
	var claim *models.Claim
	var payment *models.ClaimPayment

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		updates := map[string]any{
			"approved_amount": amount,
			"approved_by":     approver,
			"settled_at":      now,
		}
		loaded, err := s.transition(ctx, tx, input.ClaimID, enums.ClaimStatusApproved, updates, now)
		if err != nil {
			return err
		}

		consumed, err := repo.ConsumeCoverage(ctx, loaded.CoverageID, amount, now)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "consume coverage")
		}
		if !consumed {
			coverage, err := s.loadCoverage(ctx, repo, loaded.CoverageID)
			if err != nil {
				return err
			}
			if !coverage.IsActive {
				return pkgerrors.New(pkgerrors.CodeInactiveResource, "coverage is not active").
					WithDetails(map[string]any{"coverageId": coverage.ID.String()})
			}
			return insufficientCoverage(coverage.Remaining(), amount)
		}

		payment = &models.ClaimPayment{
			ClaimID:       loaded.ID,
			Amount:        amount,
			PaymentMethod: s.cfg.PaymentMethod,
			Status:        enums.PaymentStatusPending,
		}
		if err := repo.CreatePayment(ctx, payment); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create claim payment")
		}

		err = s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventClaimPaymentRequested,
			AggregateType: enums.AggregateClaim,
			AggregateID:   loaded.ID,
			Actor:         &outbox.ActorRef{UserID: approver, Role: "approver"},
			OccurredAt:    now,
			Data: payloads.ClaimPaymentRequestedEvent{
				PaymentID:     payment.ID,
				ClaimID:       loaded.ID,
				ClaimNumber:   loaded.ClaimNumber,
				CoverageID:    loaded.CoverageID,
				ClaimantID:    loaded.ClaimantID,
				Amount:        amount,
				PaymentMethod: payment.PaymentMethod,
				ApprovedAt:    now,
			},
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit claim payment event")
		}

		loaded.Status = enums.ClaimStatusApproved
		loaded.ApprovedAmount = &amount
		loaded.ApprovedBy = &approver
		loaded.SettledAt = &now
		loaded.UpdatedAt = now
		claim = loaded
		return nil
	})
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeInsufficientCoverage) {
			s.metrics.IncInsufficientCoverage("approve")
		}
		return nil, err
	}

	ctx = s.logg.WithClaimID(ctx, claim.ID.String())
	s.metrics.IncTransition(string(enums.ClaimStatusBeingAssessed), string(enums.ClaimStatusApproved))
	s.metrics.AddApproved(amount)
	s.logg.Info(s.logg.WithCoverageID(ctx, claim.CoverageID.String()), "claim approved")

	s.notifier.Send(ctx, notifications.Notification{
		RecipientID: claim.ClaimantID,
		Type:        enums.NotificationTypeClaimApproved,
		Title:       "Claim approved: " + claim.ClaimNumber,
		Content:     fmt.Sprintf("Your claim was approved for %s. Payment will be made within 5 business days.", amount.StringFixed(2)),
		Metadata:    map[string]any{"claimId": claim.ID.String()},
	})
	s.audit.Record(ctx, audit.Entry{
		EntityType:  enums.AuditEntityClaim,
		EntityID:    claim.ID,
		Action:      enums.AuditActionApproved,
		PerformedBy: &approver,
		Details: map[string]any{
			"approved_amount": amount.String(),
			"payment_id":      payment.ID.String(),
		},
	})
	return claim, nil
}

func (s *service) RejectClaim(ctx context.Context, input RejectClaimInput) (*models.Claim, error) {
	if err := validation.Struct(input); err != nil {
		return nil, err
	}
	now := s.now().UTC()
	rejecter := input.RejectedBy
	reason := input.Reason
	var claim *models.Claim
	var from enums.ClaimStatus

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		updates := map[string]any{
			"rejection_reason": reason,
			"rejected_by":      rejecter,
			"settled_at":       now,
		}
		loaded, err := s.transition(ctx, tx, input.ClaimID, enums.ClaimStatusRejected, updates, now)
		if err != nil {
			return err
		}
		from = loaded.Status
		loaded.Status = enums.ClaimStatusRejected
		loaded.RejectionReason = &reason
		loaded.RejectedBy = &rejecter
		loaded.SettledAt = &now
		loaded.UpdatedAt = now
		claim = loaded
		return nil
	})
	if err != nil {
		return nil, err
	}

	ctx = s.logg.WithClaimID(ctx, claim.ID.String())
	s.metrics.IncTransition(string(from), string(enums.ClaimStatusRejected))
	s.logg.Info(ctx, "claim rejected")

	s.notifier.Send(ctx, notifications.Notification{
		RecipientID: claim.ClaimantID,
		Type:        enums.NotificationTypeClaimRejected,
		Title:       "Claim rejected: " + claim.ClaimNumber,
		Content:     "Your claim was rejected. Reason: " + reason,
		Metadata:    map[string]any{"claimId": claim.ID.String()},
	})
	s.audit.Record(ctx, audit.Entry{
		EntityType:  enums.AuditEntityClaim,
		EntityID:    claim.ID,
		Action:      enums.AuditActionRejected,
		PerformedBy: &rejecter,
		Details:     map[string]any{"rejection_reason": reason, "from": string(from)},
	})
	return claim, nil
}

func (s *service) Get(ctx context.Context, claimID uuid.UUID) (*models.Claim, error) {
	return s.load(ctx, s.repo, claimID)
}

func (s *service) ListAssessments(ctx context.Context, claimID uuid.UUID) ([]models.ClaimAssessment, error) {
	if _, err := s.load(ctx, s.repo, claimID); err != nil {
		return nil, err
	}
	rows, err := s.repo.ListAssessments(ctx, claimID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list assessments")
	}
	return rows, nil
}

func (s *service) Payment(ctx context.Context, claimID uuid.UUID) (*models.ClaimPayment, error) {
	payment, err := s.repo.FindPayment(ctx, claimID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "claim payment not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load claim payment")
	}
	return payment, nil
}

// transition loads the claim inside tx, checks the move against the allowed
// table and applies updates with a compare-and-swap on the loaded status. The
// returned claim still carries the status it had before the move.
func (s *service) transition(ctx context.Context, tx *gorm.DB, claimID uuid.UUID, to enums.ClaimStatus, updates map[string]any, now time.Time) (*models.Claim, error) {
	repo := s.repo.WithTx(tx)
	claim, err := s.load(ctx, repo, claimID)
	if err != nil {
		return nil, err
	}
	if !claim.Status.CanTransitionTo(to) {
		return nil, stateConflict(claim.Status, to)
	}
	updates["status"] = to
	updates["updated_at"] = now
	swapped, err := repo.UpdateStatus(ctx, claim.ID, claim.Status, updates)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update claim status")
	}
	if !swapped {
		return nil, stateConflict(claim.Status, to)
	}
	return claim, nil
}

func (s *service) load(ctx context.Context, repo Repository, claimID uuid.UUID) (*models.Claim, error) {
	if claimID == uuid.Nil {
		return nil, validation.Field("claimId", "is required")
	}
	claim, err := repo.FindByID(ctx, claimID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "claim not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load claim")
	}
	if _, err := enums.ParseClaimStatus(string(claim.Status)); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "claim has unknown status")
	}
	return claim, nil
}

func (s *service) loadCoverage(ctx context.Context, repo Repository, coverageID uuid.UUID) (*models.Coverage, error) {
	coverage, err := repo.FindCoverage(ctx, coverageID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "coverage not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load coverage")
	}
	return coverage, nil
}

func insufficientCoverage(available, requested decimal.Decimal) *pkgerrors.Error {
	if available.IsNegative() {
		available = decimal.Zero
	}
	shortfall := requested.Sub(available)
	return pkgerrors.New(pkgerrors.CodeInsufficientCoverage,
		fmt.Sprintf("requested %s exceeds remaining coverage %s", requested.StringFixed(2), available.StringFixed(2))).
		WithDetails(map[string]any{
			"available": available.StringFixed(2),
			"requested": requested.StringFixed(2),
			"shortfall": shortfall.StringFixed(2),
		})
}

// stateConflict names the statuses that could have moved into to, so callers
// can tell a closed claim from one that is merely early.
func stateConflict(from, to enums.ClaimStatus) *pkgerrors.Error {
	msg := fmt.Sprintf("claim cannot move from %s to %s", from, to)
	if from.IsTerminal() {
		msg = fmt.Sprintf("claim is already %s", from)
	}
	sources := enums.SourcesFor(to)
	allowed := make([]string, 0, len(sources))
	for _, source := range sources {
		allowed = append(allowed, string(source))
	}
	return pkgerrors.New(pkgerrors.CodeInvalidState, msg).
		WithDetails(map[string]any{"from": string(from), "to": string(to), "allowedFrom": allowed})
}
