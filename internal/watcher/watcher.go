package watcher

import (
	"context"
	"sort"
	"sync"
	"time"

	"gradwatch/internal/constants"
	"gradwatch/internal/models"

	"github.com/sirupsen/logrus"
)

// ListingSource provides market-pair listings (DexScreener in production).
type ListingSource interface {
	RecentListings(ctx context.Context, limit int) ([]models.Pair, error)
	LatestListings(ctx context.Context, limit int) ([]models.Pair, error)
	PairByMint(ctx context.Context, mint string) (*models.Pair, error)
}

// HolderSource provides holder-distribution enrichment (Helius in production).
type HolderSource interface {
	HolderCount(ctx context.Context, mint string) (int, error)
	TopHolderConcentration(ctx context.Context, mint string, topN int) (float64, error)
}

// Watcher composes listings, enrichment, filtering and scoring into the three
// scan modes. One instance is wired at startup and shared by the scheduler
// and the command handlers.
type Watcher struct {
	listings ListingSource
	holders  HolderSource
	logger   *logrus.Logger
	now      func() time.Time

	fetchLimit  int
	concurrency int

	mu        sync.Mutex
	seenMints map[string]struct{}
}

// Config holds configuration for the watcher.
type Config struct {
	Listings    ListingSource
	Holders     HolderSource
	Logger      *logrus.Logger
	FetchLimit  int
	Concurrency int

	// Now overrides the clock, for tests.
	Now func() time.Time
}

// New creates a watcher.
func New(cfg Config) *Watcher {
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	if cfg.FetchLimit <= 0 {
		cfg.FetchLimit = 30
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 8
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &Watcher{
		listings:    cfg.Listings,
		holders:     cfg.Holders,
		logger:      cfg.Logger,
		now:         cfg.Now,
		fetchLimit:  cfg.FetchLimit,
		concurrency: cfg.Concurrency,
		seenMints:   make(map[string]struct{}),
	}
}

// ScanForGraduations fetches recently-active Raydium pairs, enriches and
// scores every one, and returns all candidates sorted by score descending.
// Failing candidates are included; callers decide whether to show only
// passers. An empty result with a nil error means "nothing found", which is
// a normal outcome, not an error.
func (w *Watcher) ScanForGraduations(ctx context.Context, policy models.FilterPolicy) ([]models.GraduationCandidate, error) {
	pairs, err := w.listings.RecentListings(ctx, w.fetchLimit)
	if err != nil {
		return nil, err
	}

	now := w.now()
	candidates := w.buildCandidates(ctx, pairs, func(pair models.Pair, metrics models.TokenMetrics) (models.GraduationCandidate, bool) {
		verdict := ApplyFilter(pair, metrics, policy, now)
		return models.GraduationCandidate{
			Graduation:     graduationFromPair(pair),
			Pair:           pair,
			Metrics:        metrics,
			Score:          Score(pair, metrics),
			PassesFilter:   verdict.Passes,
			FilterFailures: verdict.Failures,
		}, true
	})

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})

	w.logger.WithFields(logrus.Fields{
		"policy":     policy.Name,
		"pairs":      len(pairs),
		"candidates": len(candidates),
	}).Debug("graduation scan complete")

	return candidates, nil
}

// ScanFreshGraduations fetches creation-ordered listings, drops anything
// older than the policy window before paying for enrichment, and returns
// only candidates that pass the filter, newest first. Mints already seen by
// this watcher instance are suppressed until ClearSeenMints.
func (w *Watcher) ScanFreshGraduations(ctx context.Context, policy models.FilterPolicy) ([]models.GraduationCandidate, error) {
	pairs, err := w.listings.LatestListings(ctx, w.fetchLimit)
	if err != nil {
		return nil, err
	}

	now := w.now()

	// Age pre-filter before the expensive holder calls. Ordering only; the
	// filter re-checks age with the same rule.
	fresh := pairs[:0:0]
	for _, p := range pairs {
		if ageMinutes(p, now) > policy.MaxAgeMinutes {
			continue
		}
		if w.isSeen(p.BaseToken.Address) {
			continue
		}
		fresh = append(fresh, p)
	}

	candidates := w.buildCandidates(ctx, fresh, func(pair models.Pair, metrics models.TokenMetrics) (models.GraduationCandidate, bool) {
		verdict := ApplyFilter(pair, metrics, policy, now)
		if !verdict.Passes {
			return models.GraduationCandidate{}, false
		}
		return models.GraduationCandidate{
			Graduation:     graduationFromPair(pair),
			Pair:           pair,
			Metrics:        metrics,
			Score:          Score(pair, metrics),
			PassesFilter:   true,
			FilterFailures: nil,
		}, true
	})

	for _, c := range candidates {
		w.markSeen(c.Graduation.Mint)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Pair.PairCreatedAt > candidates[j].Pair.PairCreatedAt
	})
	return candidates, nil
}

// ScanAllGraduations is the show-everything mode: every listing inside the
// age window is surfaced with advisory warnings instead of filter failures.
// Only the hard-reject predicate (drained liquidity or near-total whale
// ownership) excludes a candidate.
func (w *Watcher) ScanAllGraduations(ctx context.Context, maxAgeMinutes float64) ([]models.GraduationCandidate, error) {
	pairs, err := w.listings.LatestListings(ctx, w.fetchLimit)
	if err != nil {
		return nil, err
	}

	now := w.now()
	inWindow := pairs[:0:0]
	for _, p := range pairs {
		if ageMinutes(p, now) <= maxAgeMinutes {
			inWindow = append(inWindow, p)
		}
	}

	candidates := w.buildCandidates(ctx, inWindow, func(pair models.Pair, metrics models.TokenMetrics) (models.GraduationCandidate, bool) {
		warnings, hardReject := Warnings(pair, metrics)
		if hardReject {
			return models.GraduationCandidate{}, false
		}
		return models.GraduationCandidate{
			Graduation:   graduationFromPair(pair),
			Pair:         pair,
			Metrics:      metrics,
			Score:        Score(pair, metrics),
			PassesFilter: true,
			Warnings:     warnings,
		}, true
	})

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Pair.PairCreatedAt > candidates[j].Pair.PairCreatedAt
	})
	return candidates, nil
}

// ClearSeenMints resets the cross-scan dedupe set.
func (w *Watcher) ClearSeenMints() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.seenMints = make(map[string]struct{})
}

// buildCandidates maps, enriches and evaluates pairs concurrently. Every
// candidate is fully evaluated before any ordering decision; a single
// enrichment failure degrades that candidate's metrics, never the scan.
func (w *Watcher) buildCandidates(
	ctx context.Context,
	pairs []models.Pair,
	build func(models.Pair, models.TokenMetrics) (models.GraduationCandidate, bool),
) []models.GraduationCandidate {
	now := w.now()

	results := make([]*models.GraduationCandidate, len(pairs))
	sem := make(chan struct{}, w.concurrency)
	var wg sync.WaitGroup

	for i, pair := range pairs {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, pair models.Pair) {
			defer wg.Done()
			defer func() { <-sem }()

			metrics := MetricsFromPair(pair, now)
			w.enrich(ctx, &metrics)

			if c, ok := build(pair, metrics); ok {
				results[i] = &c
			}
		}(i, pair)
	}
	wg.Wait()

	out := make([]models.GraduationCandidate, 0, len(pairs))
	for _, c := range results {
		if c != nil {
			out = append(out, *c)
		}
	}
	return out
}

// enrich overlays holder data onto the metrics. Both calls fail soft to 0,
// the documented "unknown" default: the scorer and filter must always get a
// usable number, and one indexer hiccup must not abort a scan cycle.
func (w *Watcher) enrich(ctx context.Context, metrics *models.TokenMetrics) {
	if w.holders == nil {
		return
	}

	if n, err := w.holders.HolderCount(ctx, metrics.Mint); err != nil {
		w.logger.WithError(err).WithField("mint", metrics.Mint).Debug("holder count unavailable, defaulting to 0")
	} else {
		metrics.Holders = n
	}

	if pct, err := w.holders.TopHolderConcentration(ctx, metrics.Mint, constants.TopHolderSampleN); err != nil {
		w.logger.WithError(err).WithField("mint", metrics.Mint).Debug("concentration unavailable, defaulting to 0")
	} else {
		metrics.TopHolderConcentration = pct
	}
}

func (w *Watcher) isSeen(mint string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, ok := w.seenMints[mint]
	return ok
}

func (w *Watcher) markSeen(mint string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.seenMints[mint] = struct{}{}
}

func graduationFromPair(pair models.Pair) models.Graduation {
	return models.Graduation{
		Mint:               pair.BaseToken.Address,
		Symbol:             pair.BaseToken.Symbol,
		Name:               pair.BaseToken.Name,
		GraduatedAt:        time.UnixMilli(pair.PairCreatedAt).UTC(),
		RaydiumPairAddress: pair.PairAddress,
		InitialLiquidity:   pair.LiquidityUSD(),
		InitialMarketCap:   pair.MarketCap,
		ImageURL:           pair.ImageURL(),
	}
}
