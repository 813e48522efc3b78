package risk

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/coverledger/internal/audit"
	"github.com/angelmondragon/coverledger/pkg/config"
	"github.com/angelmondragon/coverledger/pkg/db/dbtest"
	"github.com/angelmondragon/coverledger/pkg/db/models"
	"github.com/angelmondragon/coverledger/pkg/enums"
	pkgerrors "github.com/angelmondragon/coverledger/pkg/errors"
	"github.com/angelmondragon/coverledger/pkg/logger"
)

type stubActivity struct {
	jobs map[uuid.UUID]int64
	err  error
}

func (s stubActivity) CountCompletedByUser(_ context.Context, userID uuid.UUID) (int64, error) {
	return s.jobs[userID], s.err
}

type recordingAudit struct {
	entries []audit.Entry
}

func (r *recordingAudit) Record(_ context.Context, entry audit.Entry) {
	r.entries = append(r.entries, entry)
}

func newTestEngine(t *testing.T, conn *gorm.DB, activity ActivitySource) (*engine, *recordingAudit) {
	t.Helper()
	rec := &recordingAudit{}
	eng, err := NewEngine(EngineParams{
		Repository: NewRepository(conn),
		Activity:   activity,
		Audit:      rec,
		Config:     config.DefaultInsurance(),
		Logger:     logger.New(logger.Options{Output: io.Discard}),
	})
	require.NoError(t, err)
	return eng.(*engine), rec
}

func seedClaim(t *testing.T, conn *gorm.DB, claimant uuid.UUID, coverage models.Coverage, n int) {
	t.Helper()
	claim := models.Claim{
		ClaimNumber:     fmt.Sprintf("SIN202610%04d", n),
		PolicyID:        coverage.PolicyID,
		CoverageID:      coverage.ID,
		ClaimantID:      claimant,
		IncidentDate:    time.Now().UTC(),
		ClaimType:       enums.ClaimTypeDamage,
		RequestedAmount: decimal.NewFromInt(50),
		Description:     "dented box",
		Status:          enums.ClaimStatusSubmitted,
	}
	require.NoError(t, conn.Create(&claim).Error)
}

func seedCoverage(t *testing.T, conn *gorm.DB, entityType enums.CoveredEntityType, entityID uuid.UUID) models.Coverage {
	t.Helper()
	now := time.Now().UTC()
	cov := models.Coverage{
		PolicyID:     uuid.New(),
		EntityType:   entityType,
		EntityID:     entityID,
		CoverageType: enums.CoverageTypeDamage,
		MaxCoverage:  decimal.NewFromInt(1000),
		CurrentUsage: decimal.Zero,
		StartDate:    now,
		EndDate:      now.Add(24 * time.Hour),
		IsActive:     true,
	}
	require.NoError(t, conn.Create(&cov).Error)
	return cov
}

func TestAssessUserHighRiskAndIdempotent(t *testing.T) {
	client := dbtest.Open(t)
	user := uuid.New()
	eng, rec := newTestEngine(t, client.DB(), stubActivity{jobs: map[uuid.UUID]int64{user: 3}})
	fixed := time.Date(2026, time.October, 1, 8, 0, 0, 0, time.UTC)
	eng.now = func() time.Time { return fixed }

	cov := seedCoverage(t, client.DB(), enums.CoveredEntityDelivery, uuid.New())
	seedClaim(t, client.DB(), user, cov, 1)

	first, err := eng.Assess(context.Background(), enums.RiskEntityUser, user)
	require.NoError(t, err)
	require.Equal(t, 50, first.Score)
	require.Equal(t, enums.RiskLevelHigh, first.RiskLevel)
	require.ElementsMatch(t, []string{FactorHighClaimRatio, FactorNoviceUser}, []string(first.RiskFactors))
	require.True(t, first.NextAssessment.Equal(fixed.Add(90*24*time.Hour)))

	eng.now = func() time.Time { return fixed.Add(time.Hour) }
	second, err := eng.Assess(context.Background(), enums.RiskEntityUser, user)
	require.NoError(t, err)
	require.Equal(t, first.Score, second.Score)
	require.Equal(t, first.RiskLevel, second.RiskLevel)
	require.Equal(t, first.ID, second.ID, "assessment must be replaced in place")
	require.True(t, second.LastAssessment.Equal(fixed.Add(time.Hour)))

	var count int64
	require.NoError(t, client.DB().Model(&models.RiskAssessment{}).Count(&count).Error)
	require.Equal(t, int64(1), count)

	require.Len(t, rec.entries, 2)
	require.Equal(t, enums.AuditActionRiskAssessed, rec.entries[0].Action)
	require.Equal(t, first.ID, rec.entries[0].EntityID)
}

func TestAssessDeliveryCountsClaimsOnEntity(t *testing.T) {
	client := dbtest.Open(t)
	eng, _ := newTestEngine(t, client.DB(), stubActivity{})

	delivery := uuid.New()
	cov := seedCoverage(t, client.DB(), enums.CoveredEntityDelivery, delivery)
	seedClaim(t, client.DB(), uuid.New(), cov, 1)

	got, err := eng.Assess(context.Background(), enums.RiskEntityDelivery, delivery)
	require.NoError(t, err)
	require.Equal(t, 30, got.Score)
	require.Equal(t, enums.RiskLevelMedium, got.RiskLevel)

	clean, err := eng.Assess(context.Background(), enums.RiskEntityService, uuid.New())
	require.NoError(t, err)
	require.Equal(t, 0, clean.Score)
	require.Equal(t, enums.RiskLevelLow, clean.RiskLevel)
}

func TestAssessErrors(t *testing.T) {
	client := dbtest.Open(t)
	eng, _ := newTestEngine(t, client.DB(), stubActivity{err: errors.New("orders offline")})

	_, err := eng.Assess(context.Background(), "vehicle", uuid.New())
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = eng.Assess(context.Background(), enums.RiskEntityUser, uuid.Nil)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = eng.Assess(context.Background(), enums.RiskEntityUser, uuid.New())
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
}

func TestDueListsExpiredAssessments(t *testing.T) {
	client := dbtest.Open(t)
	eng, _ := newTestEngine(t, client.DB(), stubActivity{})
	base := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)

	eng.now = func() time.Time { return base }
	old, err := eng.Assess(context.Background(), enums.RiskEntityService, uuid.New())
	require.NoError(t, err)
	eng.now = func() time.Time { return base.AddDate(0, 2, 0) }
	_, err = eng.Assess(context.Background(), enums.RiskEntityService, uuid.New())
	require.NoError(t, err)

	due, err := eng.Due(context.Background(), base.AddDate(0, 4, 0), 10)
	require.NoError(t, err)
	require.Len(t, due, 1)
	require.Equal(t, old.EntityID, due[0].EntityID)
}

func TestNewEngineRequiresDeps(t *testing.T) {
	if _, err := NewEngine(EngineParams{}); err == nil {
		t.Fatalf("expected error without dependencies")
	}
}
