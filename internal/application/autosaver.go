package application

import (
	"context"
	"sync"
	"time"

	"archie-core-merchant-onboarding/internal/domain"
	"archie-core-merchant-onboarding/internal/infrastructure/metrics"

	"github.com/rs/zerolog"
)

// DefaultAutosaveDebounce is the idle time before queued draft edits are written
const DefaultAutosaveDebounce = 1500 * time.Millisecond

const autosaveTimeout = 10 * time.Second

type draftSaveFunc func(ctx context.Context, userID string, patch domain.ApplicationPatch, currentStep int) error

type pendingDraft struct {
	patch domain.ApplicationPatch
	step  int
	gen   uint64
	timer *time.Timer
}

// AutoSaver coalesces bursts of draft edits into one write per idle period.
// Saves for the same user never overlap; failures are logged and swallowed.
type AutoSaver struct {
	mu       sync.Mutex
	pending  map[string]*pendingDraft
	inflight map[string]chan struct{}
	delay    time.Duration
	save     draftSaveFunc
	logger   zerolog.Logger
}

// NewAutoSaver creates a debounced draft writer
func NewAutoSaver(save draftSaveFunc, delay time.Duration, logger zerolog.Logger) *AutoSaver {
	if delay <= 0 {
		delay = DefaultAutosaveDebounce
	}
	return &AutoSaver{
		pending:  make(map[string]*pendingDraft),
		inflight: make(map[string]chan struct{}),
		delay:    delay,
		save:     save,
		logger:   logger,
	}
}

// Queue merges the patch into the user's pending draft and restarts the idle timer
func (a *AutoSaver) Queue(userID string, patch domain.ApplicationPatch, currentStep int) {
	a.mu.Lock()
	defer a.mu.Unlock()

	p, ok := a.pending[userID]
	if !ok {
		p = &pendingDraft{}
		a.pending[userID] = p
	} else if p.timer != nil {
		p.timer.Stop()
	}

	p.patch = p.patch.Merge(patch)
	if currentStep > 0 {
		p.step = currentStep
	}
	p.gen++
	gen := p.gen
	p.timer = time.AfterFunc(a.delay, func() {
		a.fire(userID, p, gen)
	})
}

// Flush writes the user's pending draft now and waits until every save for the user has settled
func (a *AutoSaver) Flush(ctx context.Context, userID string) {
	a.mu.Lock()
	p, ok := a.pending[userID]
	var prev, done chan struct{}
	if ok {
		if p.timer != nil {
			p.timer.Stop()
		}
		prev, done = a.claimLocked(userID)
	}
	a.mu.Unlock()

	if ok {
		a.run(ctx, userID, p, prev, done)
	}
	a.wait(ctx, userID)
}

// Close flushes every pending draft. Used on shutdown.
func (a *AutoSaver) Close(ctx context.Context) {
	a.mu.Lock()
	users := make([]string, 0, len(a.pending))
	for userID := range a.pending {
		users = append(users, userID)
	}
	a.mu.Unlock()

	for _, userID := range users {
		a.Flush(ctx, userID)
	}
}

// Pending reports whether the user has queued edits not yet written
func (a *AutoSaver) Pending(userID string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	_, ok := a.pending[userID]
	return ok
}

func (a *AutoSaver) fire(userID string, p *pendingDraft, gen uint64) {
	a.mu.Lock()
	if a.pending[userID] != p || p.gen != gen {
		a.mu.Unlock()
		return
	}
	prev, done := a.claimLocked(userID)
	a.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), autosaveTimeout)
	defer cancel()
	a.run(ctx, userID, p, prev, done)
}

// claimLocked moves the user's draft from pending to in-flight. Caller holds a.mu,
// so a concurrent Flush always sees the draft in one of the two maps.
func (a *AutoSaver) claimLocked(userID string) (prev, done chan struct{}) {
	delete(a.pending, userID)
	prev = a.inflight[userID]
	done = make(chan struct{})
	a.inflight[userID] = done
	return prev, done
}

// run performs one save after any earlier save for the same user has finished
func (a *AutoSaver) run(ctx context.Context, userID string, p *pendingDraft, prev, done chan struct{}) {
	defer func() {
		close(done)
		a.mu.Lock()
		if a.inflight[userID] == done {
			delete(a.inflight, userID)
		}
		a.mu.Unlock()
	}()

	if prev != nil {
		select {
		case <-prev:
		case <-ctx.Done():
			a.logger.Warn().Err(ctx.Err()).Str("userId", userID).Msg("Auto-save abandoned while waiting for previous save")
			metrics.RecordAutosave(false)
			return
		}
	}

	if err := a.save(ctx, userID, p.patch, p.step); err != nil {
		a.logger.Warn().Err(err).Str("userId", userID).Int("step", p.step).Msg("Auto-save failed")
		metrics.RecordAutosave(false)
		return
	}
	metrics.RecordAutosave(true)
	a.logger.Debug().Str("userId", userID).Int("step", p.step).Msg("Auto-saved onboarding draft")
}

func (a *AutoSaver) wait(ctx context.Context, userID string) {
	a.mu.Lock()
	done := a.inflight[userID]
	a.mu.Unlock()
	if done == nil {
		return
	}
	select {
	case <-done:
	case <-ctx.Done():
	}
}
