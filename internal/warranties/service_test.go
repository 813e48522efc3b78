package warranties

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/coverledger/internal/audit"
	"github.com/angelmondragon/coverledger/internal/notifications"
	"github.com/angelmondragon/coverledger/internal/numbering"
	"github.com/angelmondragon/coverledger/pkg/config"
	"github.com/angelmondragon/coverledger/pkg/db"
	"github.com/angelmondragon/coverledger/pkg/db/dbtest"
	"github.com/angelmondragon/coverledger/pkg/db/models"
	"github.com/angelmondragon/coverledger/pkg/enums"
	pkgerrors "github.com/angelmondragon/coverledger/pkg/errors"
	"github.com/angelmondragon/coverledger/pkg/logger"
)

type recordingNotifier struct {
	mu   sync.Mutex
	sent []notifications.Notification
}

func (r *recordingNotifier) Send(_ context.Context, msg notifications.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, msg)
}

type recordingAudit struct {
	mu      sync.Mutex
	entries []audit.Entry
}

func (r *recordingAudit) Record(_ context.Context, entry audit.Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
}

var now = time.Date(2026, time.October, 15, 12, 0, 0, 0, time.UTC)

type fixture struct {
	svc      *service
	client   *db.Client
	notifier *recordingNotifier
	audit    *recordingAudit
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	client := dbtest.Open(t)
	nums, err := numbering.NewService(numbering.NewDBBackend(client.DB()), nil)
	require.NoError(t, err)

	f := &fixture{client: client, notifier: &recordingNotifier{}, audit: &recordingAudit{}}
	svc, err := NewService(ServiceParams{
		Repository:        NewRepository(client.DB()),
		TransactionRunner: client,
		Numbering:         nums,
		Notifier:          f.notifier,
		Audit:             f.audit,
		Config:            config.DefaultInsurance(),
		Logger:            logger.New(logger.Options{Output: io.Discard}),
	})
	require.NoError(t, err)
	f.svc = svc.(*service)
	f.svc.now = func() time.Time { return now }
	return f
}

func (f *fixture) warranty(t *testing.T, days int) *models.Warranty {
	t.Helper()
	w, err := f.svc.CreateWarranty(context.Background(), CreateWarrantyInput{Name: "Standard", DurationDays: days})
	require.NoError(t, err)
	return w
}

func TestCreateServiceWarrantyDefaults(t *testing.T) {
	f := newFixture(t)
	w := f.warranty(t, 90)

	binding, err := f.svc.CreateServiceWarranty(context.Background(), uuid.New(), uuid.New(), uuid.New(), w.ID, 0)
	require.NoError(t, err)
	assert.True(t, binding.MaxClaimAmount.Equal(decimal.NewFromInt(1000)))
	assert.True(t, binding.EndDate.Equal(now.AddDate(0, 0, 30)))
	assert.True(t, binding.IsActive)
	assert.Equal(t, 0, binding.ClaimsCount)

	custom, err := f.svc.CreateServiceWarranty(context.Background(), uuid.New(), uuid.New(), uuid.New(), w.ID, 7)
	require.NoError(t, err)
	assert.True(t, custom.EndDate.Equal(now.AddDate(0, 0, 7)))
}

func TestCreateDeliveryWarrantyUsesWarrantyDuration(t *testing.T) {
	f := newFixture(t)
	w := f.warranty(t, 14)

	binding, err := f.svc.CreateDeliveryWarranty(context.Background(), uuid.New(), uuid.New(), uuid.New(), w.ID)
	require.NoError(t, err)
	assert.True(t, binding.MaxClaimAmount.Equal(decimal.NewFromInt(500)))
	assert.True(t, binding.EndDate.Equal(now.AddDate(0, 0, 14)))
}

func TestBindingRequiresActiveWarranty(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.CreateDeliveryWarranty(context.Background(), uuid.New(), uuid.New(), uuid.New(), uuid.New())
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound), "got %v", err)

	w := f.warranty(t, 30)
	require.NoError(t, f.client.DB().Model(&models.Warranty{}).Where("id = ?", w.ID).Update("is_active", false).Error)
	_, err = f.svc.CreateServiceWarranty(context.Background(), uuid.New(), uuid.New(), uuid.New(), w.ID, 0)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInactiveResource), "got %v", err)

	_, err = f.svc.CreateServiceWarranty(context.Background(), uuid.Nil, uuid.New(), uuid.New(), w.ID, 0)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "got %v", err)
}

func TestCreateWarrantyClaimWithinLimit(t *testing.T) {
	f := newFixture(t)
	w := f.warranty(t, 30)
	binding, err := f.svc.CreateServiceWarranty(context.Background(), uuid.New(), uuid.New(), uuid.New(), w.ID, 0)
	require.NoError(t, err)

	claimant := uuid.New()
	claim, err := f.svc.CreateWarrantyClaim(context.Background(), CreateWarrantyClaimInput{
		Kind:            enums.WarrantyKindService,
		BindingID:       binding.ID,
		ClaimantID:      claimant,
		ClaimType:       enums.ClaimTypeDamage,
		Description:     "pipe leaked again",
		RequestedAmount: decimal.NewFromInt(400),
	})
	require.NoError(t, err)
	assert.Equal(t, "GAR26100001", claim.ClaimNumber)
	assert.Equal(t, enums.WarrantyClaimStatusSubmitted, claim.Status)
	require.NotNil(t, claim.ServiceWarrantyID)
	assert.Equal(t, binding.ID, *claim.ServiceWarrantyID)
	assert.Nil(t, claim.DeliveryWarrantyID)

	var stored models.ServiceWarranty
	require.NoError(t, f.client.DB().Where("id = ?", binding.ID).Take(&stored).Error)
	assert.Equal(t, 1, stored.ClaimsCount)

	require.Len(t, f.notifier.sent, 1)
	msg := f.notifier.sent[0]
	assert.Equal(t, claimant, msg.RecipientID)
	assert.Equal(t, enums.NotificationTypeWarrantyClaimCreated, msg.Type)
	assert.Equal(t, "Warranty claim: GAR26100001", msg.Title)
	assert.Equal(t, claim.ID.String(), msg.Metadata["warrantyClaimId"])

	last := f.audit.entries[len(f.audit.entries)-1]
	assert.Equal(t, enums.AuditEntityWarrantyClaim, last.EntityType)
	assert.Equal(t, enums.AuditActionCreated, last.Action)

	loaded, err := f.svc.GetClaim(context.Background(), claim.ID)
	require.NoError(t, err)
	assert.True(t, loaded.RequestedAmount.Equal(decimal.NewFromInt(400)))
}

func TestCreateWarrantyClaimRejections(t *testing.T) {
	f := newFixture(t)
	w := f.warranty(t, 30)
	binding, err := f.svc.CreateDeliveryWarranty(context.Background(), uuid.New(), uuid.New(), uuid.New(), w.ID)
	require.NoError(t, err)

	input := CreateWarrantyClaimInput{
		Kind:            enums.WarrantyKindDelivery,
		BindingID:       binding.ID,
		ClaimantID:      uuid.New(),
		ClaimType:       enums.ClaimTypeLoss,
		Description:     "parcel never arrived",
		RequestedAmount: decimal.NewFromInt(600),
	}

	_, err = f.svc.CreateWarrantyClaim(context.Background(), input)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed, "got %v", err)
	assert.Equal(t, pkgerrors.CodeClaimExceedsLimit, typed.Code())
	details, ok := typed.Details().(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "500.00", details["maxClaimAmount"])
	assert.Equal(t, "600.00", details["requested"])

	missing := input
	missing.BindingID = uuid.New()
	_, err = f.svc.CreateWarrantyClaim(context.Background(), missing)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound), "got %v", err)

	wrongKind := input
	wrongKind.Kind = enums.WarrantyKindService
	_, err = f.svc.CreateWarrantyClaim(context.Background(), wrongKind)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound), "got %v", err)

	input.RequestedAmount = decimal.NewFromInt(100)
	f.svc.now = func() time.Time { return now.AddDate(0, 0, 31) }
	_, err = f.svc.CreateWarrantyClaim(context.Background(), input)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeWarrantyExpired), "got %v", err)

	f.svc.now = func() time.Time { return now }
	require.NoError(t, f.client.DB().Model(&models.DeliveryWarranty{}).Where("id = ?", binding.ID).Update("is_active", false).Error)
	_, err = f.svc.CreateWarrantyClaim(context.Background(), input)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInactiveResource), "got %v", err)

	var count int64
	require.NoError(t, f.client.DB().Model(&models.WarrantyClaim{}).Count(&count).Error)
	assert.Zero(t, count)
	assert.Empty(t, f.notifier.sent)
}

func TestCreateWarrantyClaimValidation(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.CreateWarrantyClaim(context.Background(), CreateWarrantyClaimInput{
		Kind:            "boat",
		BindingID:       uuid.New(),
		ClaimantID:      uuid.New(),
		ClaimType:       enums.ClaimTypeDamage,
		Description:     "x",
		RequestedAmount: decimal.NewFromInt(10),
	})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "got %v", err)

	_, err = f.svc.CreateWarrantyClaim(context.Background(), CreateWarrantyClaimInput{
		Kind:            enums.WarrantyKindService,
		BindingID:       uuid.New(),
		ClaimantID:      uuid.New(),
		ClaimType:       enums.ClaimTypeDamage,
		Description:     "x",
		RequestedAmount: decimal.Zero,
	})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "got %v", err)
}

func TestExpireEndedDeactivatesBothKinds(t *testing.T) {
	f := newFixture(t)
	w := f.warranty(t, 10)
	short, err := f.svc.CreateServiceWarranty(context.Background(), uuid.New(), uuid.New(), uuid.New(), w.ID, 5)
	require.NoError(t, err)
	delivery, err := f.svc.CreateDeliveryWarranty(context.Background(), uuid.New(), uuid.New(), uuid.New(), w.ID)
	require.NoError(t, err)
	longer, err := f.svc.CreateServiceWarranty(context.Background(), uuid.New(), uuid.New(), uuid.New(), w.ID, 60)
	require.NoError(t, err)

	expired, err := f.svc.ExpireEnded(context.Background(), now.AddDate(0, 0, 20))
	require.NoError(t, err)
	assert.Equal(t, 2, expired)

	var sw models.ServiceWarranty
	require.NoError(t, f.client.DB().Where("id = ?", short.ID).Take(&sw).Error)
	assert.False(t, sw.IsActive)
	var dw models.DeliveryWarranty
	require.NoError(t, f.client.DB().Where("id = ?", delivery.ID).Take(&dw).Error)
	assert.False(t, dw.IsActive)
	require.NoError(t, f.client.DB().Where("id = ?", longer.ID).Take(&sw).Error)
	assert.True(t, sw.IsActive)

	again, err := f.svc.ExpireEnded(context.Background(), now.AddDate(0, 0, 20))
	require.NoError(t, err)
	assert.Zero(t, again)
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	_, err := NewService(ServiceParams{})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
}
