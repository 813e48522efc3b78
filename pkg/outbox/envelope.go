package outbox

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	pkgerrors "github.com/angelmondragon/coverledger/pkg/errors"
)

// CurrentVersion is stamped on envelopes whose producer did not pick one.
const CurrentVersion = 1

// ActorRef identifies who produced the event. Nil for system-initiated events.
type ActorRef struct {
	UserID uuid.UUID `json:"userId"`
	Role   string    `json:"role,omitempty"`
}

// PayloadEnvelope wraps every payload stored in outbox_events and published
// to pubsub. EventID equals the outbox row id.
type PayloadEnvelope struct {
	Version    int             `json:"version"`
	EventID    string          `json:"eventId"`
	OccurredAt time.Time       `json:"occurredAt"`
	Actor      *ActorRef       `json:"actor,omitempty"`
	Data       json.RawMessage `json:"data"`
}

// Open parses raw into an envelope and checks the fields every consumer
// relies on.
func Open(raw []byte) (PayloadEnvelope, error) {
	var env PayloadEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return env, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode envelope")
	}
	if env.Version <= 0 {
		return env, pkgerrors.New(pkgerrors.CodeValidation, "envelope version missing")
	}
	if _, err := uuid.Parse(env.EventID); err != nil {
		return env, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "envelope event id invalid")
	}
	if data := bytes.TrimSpace(env.Data); len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return env, pkgerrors.New(pkgerrors.CodeValidation, "envelope data missing")
	}
	return env, nil
}

// ID returns the parsed event id; Open has already validated it.
func (e PayloadEnvelope) ID() uuid.UUID {
	id, _ := uuid.Parse(e.EventID)
	return id
}
