package idempotency

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	pkgerrors "github.com/angelmondragon/coverledger/pkg/errors"
	"github.com/angelmondragon/coverledger/pkg/instance"
	"github.com/angelmondragon/coverledger/pkg/redis"
)

// Store is the redis surface a Guard needs.
type Store interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
}

// Guard remembers which outbox events one consumer has already handled, so a
// redelivered message can be acked without repeating its side effects.
type Guard struct {
	store    Store
	consumer string
	ttl      time.Duration
}

func NewGuard(store Store, consumer string, ttl time.Duration) (*Guard, error) {
	consumer = strings.TrimSpace(consumer)
	switch {
	case store == nil:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "idempotency store required")
	case consumer == "":
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "consumer name required")
	case ttl <= 0:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "idempotency ttl must be positive")
	}
	return &Guard{store: store, consumer: consumer, ttl: ttl}, nil
}

// Claim returns true when this is the first delivery of eventID seen by the
// consumer within the ttl. The claim holds the instance id of the claimer.
func (g *Guard) Claim(ctx context.Context, eventID uuid.UUID) (bool, error) {
	if eventID == uuid.Nil {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "event id required")
	}
	first, err := g.store.SetNX(ctx, g.Key(eventID), instance.GetID(), g.ttl)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "claim event")
	}
	return first, nil
}

// Forget drops a claim so the next delivery is processed again.
func (g *Guard) Forget(ctx context.Context, eventID uuid.UUID) error {
	if err := g.store.Del(ctx, g.Key(eventID)); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "forget event")
	}
	return nil
}

func (g *Guard) Key(eventID uuid.UUID) string {
	return redis.Key(redis.KeyspaceDedupe, g.consumer, eventID.String())
}
