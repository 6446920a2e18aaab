package watcher

import (
	"context"
	"errors"
	"testing"
	"time"

	"gradwatch/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubListings struct {
	recent []models.Pair
	latest []models.Pair
	err    error
}

func (s *stubListings) RecentListings(ctx context.Context, limit int) ([]models.Pair, error) {
	return s.recent, s.err
}

func (s *stubListings) LatestListings(ctx context.Context, limit int) ([]models.Pair, error) {
	return s.latest, s.err
}

func (s *stubListings) PairByMint(ctx context.Context, mint string) (*models.Pair, error) {
	return nil, nil
}

type stubHolders struct {
	counts        map[string]int
	concentration map[string]float64
	err           error
}

func (s *stubHolders) HolderCount(ctx context.Context, mint string) (int, error) {
	if s.err != nil {
		return 0, s.err
	}
	return s.counts[mint], nil
}

func (s *stubHolders) TopHolderConcentration(ctx context.Context, mint string, topN int) (float64, error) {
	if s.err != nil {
		return 0, s.err
	}
	return s.concentration[mint], nil
}

func namedPair(mint string, liq float64, age time.Duration) models.Pair {
	p := healthyPair()
	p.BaseToken.Address = mint
	p.BaseToken.Symbol = mint
	p.Liquidity = &models.Liquidity{USD: liq}
	p.PairCreatedAt = testNow.Add(-age).UnixMilli()
	return p
}

func newTestWatcher(listings ListingSource, holders HolderSource) *Watcher {
	return New(Config{
		Listings: listings,
		Holders:  holders,
		Now:      func() time.Time { return testNow },
	})
}

func TestScanForGraduations_RankedByScore(t *testing.T) {
	// strong has better liquidity tier and holder data than weak.
	strong := namedPair("strong", 60_000, 20*time.Minute)
	weak := namedPair("weak", 9_000, 20*time.Minute)

	w := newTestWatcher(
		&stubListings{recent: []models.Pair{weak, strong}},
		&stubHolders{
			counts:        map[string]int{"strong": 300, "weak": 40},
			concentration: map[string]float64{"strong": 15, "weak": 40},
		},
	)

	got, err := w.ScanForGraduations(context.Background(), models.DefaultPolicy())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "strong", got[0].Graduation.Mint)
	assert.Greater(t, got[0].Score, got[1].Score)
}

func TestScanForGraduations_KeepsFailingCandidates(t *testing.T) {
	failing := namedPair("failing", 500, 20*time.Minute) // liquidity below floor

	w := newTestWatcher(&stubListings{recent: []models.Pair{failing}}, &stubHolders{})
	got, err := w.ScanForGraduations(context.Background(), models.DefaultPolicy())
	require.NoError(t, err)

	require.Len(t, got, 1)
	assert.False(t, got[0].PassesFilter)
	assert.NotEmpty(t, got[0].FilterFailures)
	assert.Equal(t, len(got[0].FilterFailures) == 0, got[0].PassesFilter)
}

func TestScanForGraduations_EnrichmentFailureDegradesSoftly(t *testing.T) {
	p := namedPair("mint", 60_000, 20*time.Minute)

	w := newTestWatcher(
		&stubListings{recent: []models.Pair{p}},
		&stubHolders{err: errors.New("indexer down")},
	)

	got, err := w.ScanForGraduations(context.Background(), models.DefaultPolicy())
	require.NoError(t, err)
	require.Len(t, got, 1)

	// Defaults in place of enrichment; candidate survives.
	assert.Equal(t, 0, got[0].Metrics.Holders)
	assert.Equal(t, 0.0, got[0].Metrics.TopHolderConcentration)
	assert.True(t, got[0].PassesFilter)
}

func TestScanForGraduations_SourceFailureSurfaces(t *testing.T) {
	w := newTestWatcher(&stubListings{err: errors.New("down")}, &stubHolders{})
	_, err := w.ScanForGraduations(context.Background(), models.DefaultPolicy())
	assert.Error(t, err)
}

func TestScanFreshGraduations_AgeWindowAndPassersOnly(t *testing.T) {
	fresh := namedPair("fresh", 60_000, 10*time.Minute)
	stale := namedPair("stale", 60_000, 5*time.Hour)    // outside window, skipped pre-enrichment
	illiquid := namedPair("thin", 500, 10*time.Minute)  // fails filter, dropped

	w := newTestWatcher(
		&stubListings{latest: []models.Pair{stale, fresh, illiquid}},
		&stubHolders{counts: map[string]int{"fresh": 200}},
	)

	got, err := w.ScanFreshGraduations(context.Background(), models.DefaultPolicy())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "fresh", got[0].Graduation.Mint)
	assert.True(t, got[0].PassesFilter)
}

func TestScanFreshGraduations_SortedByCreationDesc(t *testing.T) {
	older := namedPair("older", 60_000, 40*time.Minute)
	newer := namedPair("newer", 60_000, 5*time.Minute)

	w := newTestWatcher(&stubListings{latest: []models.Pair{older, newer}}, &stubHolders{})
	got, err := w.ScanFreshGraduations(context.Background(), models.DefaultPolicy())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "newer", got[0].Graduation.Mint)
	assert.Equal(t, "older", got[1].Graduation.Mint)
}

func TestScanFreshGraduations_SeenMintsSuppressed(t *testing.T) {
	p := namedPair("repeat", 60_000, 10*time.Minute)
	src := &stubListings{latest: []models.Pair{p}}

	w := newTestWatcher(src, &stubHolders{})

	first, err := w.ScanFreshGraduations(context.Background(), models.DefaultPolicy())
	require.NoError(t, err)
	require.Len(t, first, 1)

	second, err := w.ScanFreshGraduations(context.Background(), models.DefaultPolicy())
	require.NoError(t, err)
	assert.Empty(t, second)

	w.ClearSeenMints()
	third, err := w.ScanFreshGraduations(context.Background(), models.DefaultPolicy())
	require.NoError(t, err)
	assert.Len(t, third, 1)
}

func TestScanAllGraduations_WarningsInsteadOfFailures(t *testing.T) {
	shady := namedPair("shady", 40_000, 10*time.Minute)
	shady.MarketCap = 1_000_000 // ratio 4%: warned, not rejected
	drained := namedPair("drained", 20_000, 10*time.Minute)
	drained.MarketCap = 1_000_000 // ratio 2%: hard reject

	w := newTestWatcher(&stubListings{latest: []models.Pair{shady, drained}}, &stubHolders{})
	got, err := w.ScanAllGraduations(context.Background(), 120)
	require.NoError(t, err)

	require.Len(t, got, 1)
	assert.Equal(t, "shady", got[0].Graduation.Mint)
	assert.NotEmpty(t, got[0].Warnings)
	assert.Empty(t, got[0].FilterFailures)
}

func TestScanAllGraduations_RespectsAgeWindow(t *testing.T) {
	old := namedPair("old", 60_000, 3*time.Hour)

	w := newTestWatcher(&stubListings{latest: []models.Pair{old}}, &stubHolders{})
	got, err := w.ScanAllGraduations(context.Background(), 60)
	require.NoError(t, err)
	assert.Empty(t, got)
}
