package autopost

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"gradwatch/internal/constants"
	"gradwatch/internal/flags"
	"gradwatch/internal/models"
	"gradwatch/internal/storage"

	"github.com/sirupsen/logrus"
)

// Notifier delivers one candidate to one chat. The Telegram sender implements
// it in production; tests use a fake.
type Notifier interface {
	SendCandidate(ctx context.Context, chatID int64, candidate models.GraduationCandidate) error
}

// Scanner produces the scored candidates a cycle dispatches.
type Scanner interface {
	ScanForGraduations(ctx context.Context, policy models.FilterPolicy) ([]models.GraduationCandidate, error)
}

// PauseSwitch reads the operator kill switch. The flags store implements it.
type PauseSwitch interface {
	Enabled(ctx context.Context, key string) (bool, error)
}

// Scheduler runs the periodic scan-and-dispatch loop. Each cycle scans once,
// then fans the surviving candidates out to every active recipient, applying
// per-recipient policy (quiet hours, daily cap, score threshold) and recording
// every attempt in the call log.
type Scheduler struct {
	scanner  Scanner
	store    storage.Store
	archive  *storage.Archive
	notifier Notifier
	flags    PauseSwitch
	logger   *logrus.Logger

	policy         models.FilterPolicy
	interval       time.Duration
	globalMinScore float64
	sendDelay      time.Duration
	now            func() time.Time

	running  atomic.Bool
	scanning atomic.Bool
	cancel   context.CancelFunc
	done     chan struct{}

	// Cross-recipient dedupe of already-dispatched mints, bounded so a
	// long-running process does not grow without limit. Oldest entry is
	// evicted first.
	mu        sync.Mutex
	seen      map[string]struct{}
	seenOrder []string
}

// Config holds configuration for the scheduler.
type Config struct {
	Scanner  Scanner
	Store    storage.Store
	Archive  *storage.Archive // optional
	Notifier Notifier
	Flags    PauseSwitch // optional
	Logger   *logrus.Logger

	Policy         models.FilterPolicy
	Interval       time.Duration
	GlobalMinScore float64
	SendDelay      time.Duration

	// Now overrides the clock, for tests.
	Now func() time.Time
}

// New creates a scheduler.
func New(cfg Config) *Scheduler {
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	if cfg.Policy.Name == "" {
		cfg.Policy = models.DefaultPolicy()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 60 * time.Second
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &Scheduler{
		scanner:        cfg.Scanner,
		store:          cfg.Store,
		archive:        cfg.Archive,
		notifier:       cfg.Notifier,
		flags:          cfg.Flags,
		logger:         cfg.Logger,
		policy:         cfg.Policy,
		interval:       cfg.Interval,
		globalMinScore: cfg.GlobalMinScore,
		sendDelay:      cfg.SendDelay,
		now:            cfg.Now,
		seen:           make(map[string]struct{}),
	}
}

// Start launches the background loop. The first cycle runs immediately,
// subsequent cycles on the configured interval. Safe to call once; repeated
// calls are no-ops until Stop.
func (s *Scheduler) Start(ctx context.Context) {
	if !s.running.CompareAndSwap(false, true) {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})

	s.logger.WithFields(logrus.Fields{
		"interval":  s.interval,
		"policy":    s.policy.Name,
		"min_score": s.globalMinScore,
	}).Info("autopost scheduler started")

	go s.run(ctx)
}

// Stop halts the loop and waits for an in-flight cycle to finish.
func (s *Scheduler) Stop() {
	if !s.running.CompareAndSwap(true, false) {
		return
	}
	s.cancel()
	<-s.done
	s.logger.Info("autopost scheduler stopped")
}

// IsRunning reports whether the background loop is active.
func (s *Scheduler) IsRunning() bool {
	return s.running.Load()
}

func (s *Scheduler) run(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	if err := s.ScanAndNotify(ctx); err != nil {
		s.logger.WithError(err).Warn("autopost cycle failed")
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.ScanAndNotify(ctx); err != nil {
				s.logger.WithError(err).Warn("autopost cycle failed")
			}
		}
	}
}

// ScanAndNotify runs one full cycle: scan, threshold, dedupe, dispatch. If a
// previous cycle is still in flight the call is skipped, so a slow upstream
// never stacks concurrent scans.
func (s *Scheduler) ScanAndNotify(ctx context.Context) error {
	if !s.scanning.CompareAndSwap(false, true) {
		s.logger.Debug("previous autopost cycle still in flight, skipping")
		return nil
	}
	defer s.scanning.Store(false)

	if s.flags != nil {
		paused, ferr := s.flags.Enabled(ctx, flags.KeyAutopostPaused)
		if ferr != nil {
			s.logger.WithError(ferr).Warn("failed to read pause flag")
		} else if paused {
			s.logger.Debug("autopost paused by operator flag, skipping cycle")
			return nil
		}
	}

	// The full activity scan returns failing candidates too; autopost only
	// dispatches filter passers above the global floor. Cross-scan dedupe
	// lives in the scheduler's own seen set, never the watcher's, so
	// user-triggered scans cannot shadow autopost.
	candidates, err := s.scanner.ScanForGraduations(ctx, s.policy)
	if err != nil {
		return fmt.Errorf("graduation scan: %w", err)
	}

	eligible := candidates[:0:0]
	for _, c := range candidates {
		if !c.PassesFilter || c.Score < s.globalMinScore {
			continue
		}
		if s.alreadyDispatched(c.Graduation.Mint) {
			continue
		}
		eligible = append(eligible, c)
	}
	if len(eligible) == 0 {
		return nil
	}

	recipients, err := s.store.GetActiveRecipients(ctx)
	if err != nil {
		return fmt.Errorf("load recipients: %w", err)
	}
	if len(recipients) == 0 {
		s.logger.Debug("no active recipients, nothing to dispatch")
		return nil
	}

	for _, c := range eligible {
		s.markDispatched(c.Graduation.Mint)
		for i := range recipients {
			s.dispatch(ctx, &recipients[i], c)
		}
	}
	return nil
}

// dispatch sends one candidate to one recipient if the recipient's policy
// allows it. A send failure is logged and recorded but never aborts the rest
// of the cycle.
func (s *Scheduler) dispatch(ctx context.Context, rec *models.RecipientConfig, c models.GraduationCandidate) {
	now := s.now().UTC()

	if rec.InQuietHours(now.Hour()) {
		s.logger.WithFields(logrus.Fields{
			"chat_id": rec.ChatID,
			"mint":    c.Graduation.Mint,
			"hour":    now.Hour(),
		}).Debug("recipient in quiet hours, suppressing call")
		return
	}

	if !sameUTCDay(rec.LastCallAt, now) {
		rec.CallsToday = 0
	}
	if rec.MaxCallsPerDay > 0 && rec.CallsToday >= rec.MaxCallsPerDay {
		s.logger.WithField("chat_id", rec.ChatID).Debug("daily call cap reached")
		return
	}

	if rec.MinConfidenceScore > 0 && c.Score < rec.MinConfidenceScore {
		return
	}

	if s.recentlyCalled(ctx, rec.ChatID, c.Graduation.Mint) {
		return
	}

	err := s.notifier.SendCandidate(ctx, rec.ChatID, c)
	delivered := err == nil
	if err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"chat_id": rec.ChatID,
			"mint":    c.Graduation.Mint,
		}).Warn("failed to deliver call")
	}

	entry := models.CallLog{
		Mint:      c.Graduation.Mint,
		Symbol:    c.Graduation.Symbol,
		Score:     c.Score,
		ChatID:    rec.ChatID,
		SentAt:    now,
		Delivered: delivered,
	}
	if lerr := s.store.AppendCallLog(ctx, entry); lerr != nil {
		s.logger.WithError(lerr).WithField("chat_id", rec.ChatID).Warn("failed to append call log")
	}
	if aerr := s.archive.InsertCall(ctx, entry); aerr != nil {
		s.logger.WithError(aerr).Warn("failed to archive call")
	}

	if !delivered {
		return
	}

	rec.CallsToday++
	rec.LastCallAt = now
	rec.UpdatedAt = now
	if serr := s.store.SaveRecipient(ctx, *rec); serr != nil {
		s.logger.WithError(serr).WithField("chat_id", rec.ChatID).Warn("failed to persist recipient state")
	}

	s.logger.WithFields(logrus.Fields{
		"chat_id": rec.ChatID,
		"mint":    c.Graduation.Mint,
		"symbol":  c.Graduation.Symbol,
		"score":   c.Score,
	}).Info("call dispatched")

	s.pause(ctx)
}

// recentlyCalled reports whether this mint already appears in the recipient's
// call log. Catches restarts, where the in-memory seen set is empty but the
// log survived.
func (s *Scheduler) recentlyCalled(ctx context.Context, chatID int64, mint string) bool {
	logs, err := s.store.GetCallLogs(ctx, chatID, constants.MaxTrackedCallLogs)
	if err != nil {
		s.logger.WithError(err).WithField("chat_id", chatID).Warn("failed to read call log for dedupe")
		return false
	}
	for _, l := range logs {
		if l.Mint == mint {
			return true
		}
	}
	return false
}

func (s *Scheduler) alreadyDispatched(mint string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.seen[mint]
	return ok
}

func (s *Scheduler) markDispatched(mint string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.seen[mint]; ok {
		return
	}
	s.seen[mint] = struct{}{}
	s.seenOrder = append(s.seenOrder, mint)
	if len(s.seenOrder) > constants.SchedulerSeenCap {
		oldest := s.seenOrder[0]
		s.seenOrder = s.seenOrder[1:]
		delete(s.seen, oldest)
	}
}

// pause spaces out consecutive sends so a burst of candidates does not trip
// Telegram's flood limits.
func (s *Scheduler) pause(ctx context.Context) {
	if s.sendDelay <= 0 {
		return
	}
	select {
	case <-ctx.Done():
	case <-time.After(s.sendDelay):
	}
}

func sameUTCDay(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}
