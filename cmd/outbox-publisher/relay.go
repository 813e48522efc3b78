package main

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/coverledger/pkg/db/models"
	"github.com/angelmondragon/coverledger/pkg/enums"
	"github.com/angelmondragon/coverledger/pkg/outbox/registry"
)

// dispatchOutcome is what happened to a single outbox row within a batch.
type dispatchOutcome int

const (
	outcomePublished dispatchOutcome = iota
	outcomeRetry
	outcomeDeadLettered
)

// verdict pairs an outcome with the failure that caused it.
type verdict struct {
	outcome dispatchOutcome
	reason  enums.OutboxDLQErrorReason
	cause   error
}

// processBatch locks one batch of rows and settles every row in the same
// transaction. A publish failure only affects its own row.
func (s *Service) processBatch(ctx context.Context) (bool, error) {
	var rows int
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		events, err := s.repo.FetchUnpublishedForPublish(tx, s.batchSize, s.maxAttempts)
		if err != nil {
			return fmt.Errorf("fetch outbox batch: %w", err)
		}
		rows = len(events)
		for _, event := range events {
			if _, err := s.dispatch(ctx, tx, event); err != nil {
				return err
			}
		}
		return nil
	})
	return rows > 0, err
}

// judge decides how a row leaves the batch given the publish error.
func (s *Service) judge(event models.OutboxEvent, pubErr error) verdict {
	switch {
	case pubErr == nil:
		return verdict{outcome: outcomePublished}
	case registry.IsPermanent(pubErr):
		return verdict{outcome: outcomeDeadLettered, reason: enums.OutboxDLQReasonNonRetryable, cause: pubErr}
	case event.AttemptCount+1 >= s.maxAttempts:
		return verdict{
			outcome: outcomeDeadLettered,
			reason:  enums.OutboxDLQReasonMaxAttempts,
			cause:   fmt.Errorf("max publish attempts reached: %w", pubErr),
		}
	default:
		return verdict{outcome: outcomeRetry, cause: pubErr}
	}
}

// dispatch publishes one row and records the result. The returned error is
// only set when the bookkeeping itself fails.
func (s *Service) dispatch(ctx context.Context, tx *gorm.DB, event models.OutboxEvent) (dispatchOutcome, error) {
	fields := rowFields(event)
	resolved, err := s.registry.Resolve(event)
	if err != nil {
		err = registry.Permanent(err)
	} else {
		fields["topic"] = resolved.Topic
		fields["event_id"] = resolved.Envelope.EventID
		fields["occurred_at"] = resolved.Envelope.OccurredAt.Format(time.RFC3339Nano)
		err = s.publish(ctx, event, resolved)
	}

	v := s.judge(event, err)
	logCtx := s.logg.WithFields(ctx, fields)
	eventType := string(event.EventType)

	switch v.outcome {
	case outcomePublished:
		if err := s.repo.MarkPublishedTx(tx, event.ID); err != nil {
			return v.outcome, fmt.Errorf("mark published %s: %w", event.ID, err)
		}
		s.metrics.IncPublished(eventType)
		s.logg.Info(logCtx, "outbox event published")
	case outcomeRetry:
		s.logg.Warn(s.logg.WithFields(logCtx, map[string]any{
			"error":         v.cause.Error(),
			"attempt_count": event.AttemptCount + 1,
		}), "outbox publish failed")
		if err := s.repo.MarkFailedTx(tx, event.ID, v.cause); err != nil {
			return v.outcome, fmt.Errorf("mark failure %s: %w", event.ID, err)
		}
		s.metrics.IncRetried(eventType)
	default:
		if err := s.deadLetter(logCtx, tx, event, v); err != nil {
			return v.outcome, err
		}
	}
	return v.outcome, nil
}

func (s *Service) deadLetter(ctx context.Context, tx *gorm.DB, event models.OutboxEvent, v verdict) error {
	s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
		"error":        v.cause.Error(),
		"error_reason": v.reason,
	}), "outbox event moved to dlq")

	msg := v.cause.Error()
	entry := models.OutboxDLQ{
		EventID:       event.ID,
		EventType:     event.EventType,
		AggregateType: event.AggregateType,
		AggregateID:   event.AggregateID,
		Payload:       event.Payload,
		ErrorReason:   v.reason,
		ErrorMessage:  &msg,
		AttemptCount:  event.AttemptCount,
		FailedAt:      s.now().UTC(),
	}
	if err := s.dlq.InsertTx(tx, entry); err != nil {
		return fmt.Errorf("insert dlq %s: %w", event.ID, err)
	}
	if err := s.repo.MarkTerminalTx(tx, event.ID, v.cause, s.maxAttempts); err != nil {
		return fmt.Errorf("mark terminal %s: %w", event.ID, err)
	}
	s.metrics.IncDeadLettered(string(event.EventType), string(v.reason))
	return nil
}

func rowFields(event models.OutboxEvent) map[string]any {
	fields := map[string]any{
		"outbox_id":      event.ID.String(),
		"event_type":     event.EventType,
		"aggregate_type": event.AggregateType,
		"aggregate_id":   event.AggregateID.String(),
		"attempt_count":  event.AttemptCount,
	}
	if event.LastError != nil {
		fields["last_error"] = *event.LastError
	}
	return fields
}
