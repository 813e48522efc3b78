package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/coverledger/pkg/enums"
)

// NotificationRequestedEvent asks the notifications worker to store an in-app
// notification for one recipient.
type NotificationRequestedEvent struct {
	RecipientID uuid.UUID              `json:"recipient_id"`
	Type        enums.NotificationType `json:"type"`
	Title       string                 `json:"title"`
	Content     string                 `json:"content"`
	Metadata    map[string]any         `json:"metadata,omitempty"`
}

// ClaimPaymentRequestedEvent hands an approved claim to the external payment rail.
type ClaimPaymentRequestedEvent struct {
	PaymentID     uuid.UUID       `json:"payment_id"`
	ClaimID       uuid.UUID       `json:"claim_id"`
	ClaimNumber   string          `json:"claim_number"`
	CoverageID    uuid.UUID       `json:"coverage_id"`
	ClaimantID    uuid.UUID       `json:"claimant_id"`
	Amount        decimal.Decimal `json:"amount"`
	PaymentMethod string          `json:"payment_method"`
	ApprovedAt    time.Time       `json:"approved_at"`
}
