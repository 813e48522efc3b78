package controllers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/coverledger/api/responses"
	"github.com/angelmondragon/coverledger/pkg/db/models"
	"github.com/angelmondragon/coverledger/pkg/logger"
	"github.com/angelmondragon/coverledger/pkg/pagination"
	"github.com/angelmondragon/coverledger/pkg/validation"
)

// DeadLetterStore is the read side of the outbox dead letter table.
type DeadLetterStore interface {
	Get(ctx context.Context, eventID uuid.UUID) (*models.OutboxDLQ, error)
	Page(ctx context.Context, after *pagination.Key, limit int) ([]models.OutboxDLQ, *pagination.Key, error)
}

type deadLetterView struct {
	EventID       string    `json:"eventId"`
	EventType     string    `json:"eventType"`
	AggregateType string    `json:"aggregateType"`
	AggregateID   string    `json:"aggregateId"`
	ErrorReason   string    `json:"errorReason"`
	ErrorMessage  *string   `json:"errorMessage,omitempty"`
	AttemptCount  int       `json:"attemptCount"`
	FailedAt      time.Time `json:"failedAt"`
}

type deadLetterPage struct {
	Items      []deadLetterView `json:"items"`
	NextCursor string           `json:"nextCursor,omitempty"`
}

func viewOf(d models.OutboxDLQ) deadLetterView {
	return deadLetterView{
		EventID:       d.EventID.String(),
		EventType:     string(d.EventType),
		AggregateType: string(d.AggregateType),
		AggregateID:   d.AggregateID.String(),
		ErrorReason:   d.ErrorReason.String(),
		ErrorMessage:  d.ErrorMessage,
		AttemptCount:  d.AttemptCount,
		FailedAt:      d.FailedAt.UTC(),
	}
}

// ListDeadLetters pages dead letters newest first. Query: cursor, limit.
func ListDeadLetters(logg *logger.Logger, store DeadLetterStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		after, err := pagination.Decode(query.Get("cursor"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit := 0
		if raw := query.Get("limit"); raw != "" {
			if limit, err = strconv.Atoi(raw); err != nil {
				responses.WriteError(r.Context(), logg, w, validation.Field("limit", "must be a number"))
				return
			}
		}

		rows, next, err := store.Page(r.Context(), after, limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page := deadLetterPage{Items: make([]deadLetterView, 0, len(rows))}
		for _, row := range rows {
			page.Items = append(page.Items, viewOf(row))
		}
		if next != nil {
			page.NextCursor = pagination.Encode(*next)
		}
		responses.WriteSuccess(w, page)
	}
}

func GetDeadLetter(logg *logger.Logger, store DeadLetterStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		eventID, err := uuid.Parse(chi.URLParam(r, "eventID"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, validation.Field("eventId", "must be a uuid"))
			return
		}
		entry, err := store.Get(r.Context(), eventID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, viewOf(*entry))
	}
}
