package activity

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/coverledger/pkg/db/dbtest"
	"github.com/angelmondragon/coverledger/pkg/db/models"
	"github.com/angelmondragon/coverledger/pkg/enums"
	pkgerrors "github.com/angelmondragon/coverledger/pkg/errors"
)

func TestRecordCompletionCountsOncePerParticipant(t *testing.T) {
	client := dbtest.Open(t)
	svc, err := NewService(NewRepository(client.DB()))
	require.NoError(t, err)
	ctx := context.Background()

	client1 := uuid.New()
	deliverer := uuid.New()
	delivery := uuid.New()

	for _, user := range []uuid.UUID{client1, deliverer} {
		created, err := svc.RecordCompletion(ctx, RecordCompletionInput{UserID: user, EntityType: enums.CoveredEntityDelivery, EntityID: delivery})
		require.NoError(t, err)
		require.True(t, created)
	}

	created, err := svc.RecordCompletion(ctx, RecordCompletionInput{UserID: client1, EntityType: enums.CoveredEntityDelivery, EntityID: delivery})
	require.NoError(t, err)
	require.False(t, created, "replayed completion must not count twice")

	_, err = svc.RecordCompletion(ctx, RecordCompletionInput{UserID: client1, EntityType: enums.CoveredEntityService, EntityID: uuid.New()})
	require.NoError(t, err)

	count, err := svc.CountCompletedByUser(ctx, client1)
	require.NoError(t, err)
	require.Equal(t, int64(2), count)

	count, err = svc.CountCompletedByUser(ctx, deliverer)
	require.NoError(t, err)
	require.Equal(t, int64(1), count)
}

func TestRecordCompletionDefaultsTimestamp(t *testing.T) {
	client := dbtest.Open(t)
	svc, err := NewService(NewRepository(client.DB()))
	require.NoError(t, err)
	fixed := time.Date(2026, time.March, 3, 12, 0, 0, 0, time.UTC)
	svc.(*service).now = func() time.Time { return fixed }

	user := uuid.New()
	_, err = svc.RecordCompletion(context.Background(), RecordCompletionInput{UserID: user, EntityType: enums.CoveredEntityService, EntityID: uuid.New()})
	require.NoError(t, err)

	var row models.JobCompletion
	require.NoError(t, client.DB().Where("user_id = ?", user).Take(&row).Error)
	require.True(t, row.CompletedAt.Equal(fixed))
}

func TestRecordCompletionValidates(t *testing.T) {
	client := dbtest.Open(t)
	svc, err := NewService(NewRepository(client.DB()))
	require.NoError(t, err)

	_, err = svc.RecordCompletion(context.Background(), RecordCompletionInput{EntityType: "order", EntityID: uuid.New()})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeValidation, typed.Code())
	details := typed.Details().(map[string]string)
	require.Contains(t, details, "userId")
	require.Contains(t, details, "entityType")

	_, err = svc.CountCompletedByUser(context.Background(), uuid.Nil)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}
