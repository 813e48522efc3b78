package numbering

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/coverledger/pkg/db/dbtest"
	"github.com/angelmondragon/coverledger/pkg/enums"
	pkgerrors "github.com/angelmondragon/coverledger/pkg/errors"
)

var october = time.Date(2026, time.October, 15, 9, 30, 0, 0, time.UTC)

func TestFormat(t *testing.T) {
	cases := []struct {
		kind enums.NumberKind
		seq  int64
		want string
	}{
		{enums.NumberKindPolicy, 1, "POL2026000001"},
		{enums.NumberKindPolicy, 1234567, "POL20261234567"},
		{enums.NumberKindClaim, 42, "SIN2026100042"},
		{enums.NumberKindWarrantyClaim, 7, "GAR26100007"},
	}
	for _, tc := range cases {
		if got := Format(tc.kind, october, tc.seq); got != tc.want {
			t.Fatalf("Format(%s, %d) = %q, want %q", tc.kind, tc.seq, got, tc.want)
		}
	}
}

func TestPeriodGranularity(t *testing.T) {
	january := time.Date(2027, time.January, 1, 0, 0, 0, 0, time.UTC)
	if Period(enums.NumberKindPolicy, october) != "2026" || Period(enums.NumberKindPolicy, january) != "2027" {
		t.Fatalf("policy numbers must roll over yearly")
	}
	if Period(enums.NumberKindClaim, october) == Period(enums.NumberKindClaim, october.AddDate(0, 1, 0)) {
		t.Fatalf("claim numbers must roll over monthly")
	}
	local := time.Date(2026, time.November, 1, 0, 30, 0, 0, time.FixedZone("CET", 3600))
	if got := Period(enums.NumberKindClaim, local); got != "202610" {
		t.Fatalf("period should be computed in UTC, got %s", got)
	}
}

func TestDBBackendSequencesPerPeriod(t *testing.T) {
	client := dbtest.Open(t)
	svc, err := NewService(NewDBBackend(client.DB()), nil)
	require.NoError(t, err)
	ctx := context.Background()

	var got []string
	err = client.WithTx(ctx, func(tx *gorm.DB) error {
		for i := 0; i < 3; i++ {
			n, err := svc.Next(ctx, tx, enums.NumberKindClaim, october)
			if err != nil {
				return err
			}
			got = append(got, n)
		}
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, []string{"SIN2026100001", "SIN2026100002", "SIN2026100003"}, got)

	next, err := svc.Next(ctx, nil, enums.NumberKindClaim, october.AddDate(0, 1, 0))
	require.NoError(t, err)
	require.Equal(t, "SIN2026110001", next)

	policy, err := svc.Next(ctx, nil, enums.NumberKindPolicy, october)
	require.NoError(t, err)
	require.Equal(t, "POL2026000001", policy)
}

func TestDBBackendRollbackReleasesNumber(t *testing.T) {
	client := dbtest.Open(t)
	svc, err := NewService(NewDBBackend(client.DB()), nil)
	require.NoError(t, err)
	ctx := context.Background()

	boom := errors.New("insert failed")
	err = client.WithTx(ctx, func(tx *gorm.DB) error {
		if _, err := svc.Next(ctx, tx, enums.NumberKindPolicy, october); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	n, err := svc.Next(ctx, nil, enums.NumberKindPolicy, october)
	require.NoError(t, err)
	require.Equal(t, "POL2026000001", n)
}

func TestDBBackendConcurrentAllocationsAreUnique(t *testing.T) {
	client := dbtest.Open(t)
	svc, err := NewService(NewDBBackend(client.DB()), nil)
	require.NoError(t, err)
	ctx := context.Background()

	const workers = 8
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		seen = map[string]bool{}
		errs []error
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := client.WithTx(ctx, func(tx *gorm.DB) error {
				n, err := svc.Next(ctx, tx, enums.NumberKindWarrantyClaim, october)
				if err != nil {
					return err
				}
				mu.Lock()
				seen[n] = true
				mu.Unlock()
				return nil
			})
			if err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	require.Empty(t, errs)
	require.Len(t, seen, workers)
	require.True(t, seen["GAR26100008"])
}

type fakeCounter struct {
	counts map[string]int64
	ttls   map[string]time.Duration
	err    error
}

func (f *fakeCounter) IncrWithTTL(_ context.Context, key string, ttl time.Duration) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.counts[key]++
	f.ttls[key] = ttl
	return f.counts[key], nil
}

func TestRedisBackend(t *testing.T) {
	store := &fakeCounter{counts: map[string]int64{}, ttls: map[string]time.Duration{}}
	svc, err := NewService(NewRedisBackend(store), nil)
	require.NoError(t, err)

	first, err := svc.Next(context.Background(), nil, enums.NumberKindClaim, october)
	require.NoError(t, err)
	second, err := svc.Next(context.Background(), nil, enums.NumberKindClaim, october)
	require.NoError(t, err)

	require.Equal(t, "SIN2026100001", first)
	require.Equal(t, "SIN2026100002", second)
	require.Equal(t, 62*24*time.Hour, store.ttls["cl:counter:numbering:CLAIM:202610"])
}

func TestNextWrapsBackendFailure(t *testing.T) {
	store := &fakeCounter{err: errors.New("connection refused")}
	svc, err := NewService(NewRedisBackend(store), nil)
	require.NoError(t, err)

	_, err = svc.Next(context.Background(), nil, enums.NumberKindPolicy, october)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))

	_, err = svc.Next(context.Background(), nil, enums.NumberKind("INVOICE"), october)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestNewServiceRequiresBackend(t *testing.T) {
	if _, err := NewService(nil, nil); err == nil {
		t.Fatalf("expected error without backend")
	}
}
