// Package activity records finished deliveries and services, the history
// the risk engine scores users on.
package activity

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/coverledger/pkg/db/models"
	"github.com/angelmondragon/coverledger/pkg/enums"
	pkgerrors "github.com/angelmondragon/coverledger/pkg/errors"
	"github.com/angelmondragon/coverledger/pkg/validation"
)

// Service records completions and answers history counts.
type Service interface {
	RecordCompletion(ctx context.Context, input RecordCompletionInput) (bool, error)
	CountCompletedByUser(ctx context.Context, userID uuid.UUID) (int64, error)
}

// RecordCompletionInput is one finished job. A delivery counts for both the
// client and the deliverer, so callers record it once per participant.
type RecordCompletionInput struct {
	UserID      uuid.UUID               `json:"userId" validate:"required"`
	EntityType  enums.CoveredEntityType `json:"entityType" validate:"required,oneof=delivery service"`
	EntityID    uuid.UUID               `json:"entityId" validate:"required"`
	CompletedAt time.Time               `json:"completedAt"`
}

type service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "activity repository required")
	}
	return &service{repo: repo, now: time.Now}, nil
}

func (s *service) RecordCompletion(ctx context.Context, input RecordCompletionInput) (bool, error) {
	if err := validation.Struct(input); err != nil {
		return false, err
	}
	completedAt := input.CompletedAt
	if completedAt.IsZero() {
		completedAt = s.now()
	}
	created, err := s.repo.Upsert(ctx, &models.JobCompletion{
		UserID:      input.UserID,
		EntityType:  input.EntityType,
		EntityID:    input.EntityID,
		CompletedAt: completedAt.UTC(),
	})
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record job completion")
	}
	return created, nil
}

func (s *service) CountCompletedByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	if userID == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	count, err := s.repo.CountByUser(ctx, userID)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count job completions")
	}
	return count, nil
}
