package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/jsamuelsen/quotekeeper/internal/domain"
	"github.com/jsamuelsen/quotekeeper/internal/platform/logging"
	"github.com/jsamuelsen/quotekeeper/internal/ports"
)

const (
	instrumentationName = "github.com/jsamuelsen/quotekeeper/internal/app"

	// DefaultSyncInterval is how often the reconciler runs when no interval is configured.
	DefaultSyncInterval = 5 * time.Minute

	// DefaultFetchLimit bounds how many remote records one cycle consumes.
	DefaultFetchLimit = 5

	defaultFetchTimeout    = 30 * time.Second
	defaultPostConcurrency = 4
)

// SyncState is the reconciler's position within a cycle.
type SyncState string

const (
	SyncStateIdle     SyncState = "idle"
	SyncStateFetching SyncState = "fetching"
	SyncStateMerging  SyncState = "merging"
)

// SyncTrigger records what started a cycle.
type SyncTrigger string

const (
	TriggerTimer  SyncTrigger = "timer"
	TriggerManual SyncTrigger = "manual"
	TriggerStart  SyncTrigger = "start"
)

// SyncResult describes one call to RunCycle.
type SyncResult struct {
	// CycleID tags the cycle's log records. Skipped cycles have none.
	CycleID string      `json:"cycleId,omitempty"`
	Trigger SyncTrigger `json:"trigger"`

	// Skipped is true when another cycle was already in flight.
	Skipped bool `json:"skipped"`

	// Fetched is how many quotes the remote returned.
	Fetched int `json:"fetched"`

	// Added holds the quotes this cycle introduced.
	Added domain.Collection `json:"added"`

	// Total is the collection size after the commit.
	Total int `json:"total"`

	// Error is set when the fetch or the commit failed. The store is unchanged.
	Error string `json:"error,omitempty"`

	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
}

// Ticker is the subset of *time.Ticker the reconciler needs.
type Ticker interface {
	Chan() <-chan time.Time
	Stop()
}

type timeTicker struct{ *time.Ticker }

func (t timeTicker) Chan() <-chan time.Time { return t.C }

func newTimeTicker(d time.Duration) Ticker { return timeTicker{time.NewTicker(d)} }

// Reconciler periodically merges the remote quote collection into the store.
// Remote quotes whose text already exists locally are dropped, so the local
// record (and its category) always survives a merge.
type Reconciler struct {
	store     *QuoteStore
	source    ports.QuoteSource
	publisher ports.EventPublisher
	logger    *slog.Logger

	interval        time.Duration
	fetchLimit      int
	fetchTimeout    time.Duration
	runOnStart      bool
	postConcurrency int
	now             func() time.Time
	newTicker       func(time.Duration) Ticker

	inFlight atomic.Bool

	mu         sync.Mutex
	state      SyncState
	lastResult *SyncResult
	stopCh     chan struct{}
	cancel     context.CancelFunc
	done       chan struct{}

	cycles metric.Int64Counter
	added  metric.Int64Counter
}

// ReconcilerConfig contains the reconciler's dependencies and tuning.
type ReconcilerConfig struct {
	Store     *QuoteStore
	Source    ports.QuoteSource
	Publisher ports.EventPublisher
	Logger    *slog.Logger

	Interval        time.Duration
	FetchLimit      int
	FetchTimeout    time.Duration
	RunOnStart      bool
	PostConcurrency int

	// Now and NewTicker replace the wall clock in tests.
	Now       func() time.Time
	NewTicker func(time.Duration) Ticker
}

// NewReconciler creates a reconciler in the Idle state. It does not schedule
// anything until Start is called.
func NewReconciler(cfg ReconcilerConfig) (*Reconciler, error) {
	if cfg.Store == nil {
		return nil, errors.New("app: reconciler requires a QuoteStore")
	}

	if cfg.Source == nil {
		return nil, errors.New("app: reconciler requires a QuoteSource")
	}

	r := &Reconciler{
		store:           cfg.Store,
		source:          cfg.Source,
		publisher:       cfg.Publisher,
		logger:          cfg.Logger,
		interval:        cfg.Interval,
		fetchLimit:      cfg.FetchLimit,
		fetchTimeout:    cfg.FetchTimeout,
		runOnStart:      cfg.RunOnStart,
		postConcurrency: cfg.PostConcurrency,
		now:             cfg.Now,
		newTicker:       cfg.NewTicker,
		state:           SyncStateIdle,
	}

	if r.logger == nil {
		r.logger = slog.Default()
	}

	r.logger = r.logger.With(slog.String("component", "reconciler"))

	if r.interval <= 0 {
		r.interval = DefaultSyncInterval
	}

	if r.fetchLimit <= 0 {
		r.fetchLimit = DefaultFetchLimit
	}

	if r.fetchTimeout <= 0 {
		r.fetchTimeout = defaultFetchTimeout
	}

	if r.postConcurrency <= 0 {
		r.postConcurrency = defaultPostConcurrency
	}

	if r.now == nil {
		r.now = time.Now
	}

	if r.newTicker == nil {
		r.newTicker = newTimeTicker
	}

	meter := otel.Meter(instrumentationName)

	var err error

	r.cycles, err = meter.Int64Counter(
		"quotes.sync.cycles",
		metric.WithDescription("Sync cycles by outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating cycles metric: %w", err)
	}

	r.added, err = meter.Int64Counter(
		"quotes.sync.added",
		metric.WithDescription("Quotes introduced by sync cycles"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating added metric: %w", err)
	}

	return r, nil
}

// Merge returns local followed by every remote quote whose text is not already
// present, and the slice of quotes that were appended. Text comparison is
// exact. A remote quote that duplicates an earlier remote quote in the same
// batch is dropped as well.
func Merge(local, remote domain.Collection) (merged, added domain.Collection) {
	seen := local.Texts()
	added = make(domain.Collection, 0, len(remote))

	for _, q := range remote {
		if _, dup := seen[q.Text]; dup {
			continue
		}

		seen[q.Text] = struct{}{}
		added = append(added, q)
	}

	merged = make(domain.Collection, 0, len(local)+len(added))
	merged = append(merged, local...)
	merged = append(merged, added...)

	return merged, added
}

// FetchRemote returns up to the configured limit of remote quotes, each in
// the "Server" category. Failures are logged and yield an empty collection.
func (r *Reconciler) FetchRemote(ctx context.Context) domain.Collection {
	quotes, err := r.fetch(ctx)
	if err != nil {
		r.logger.WarnContext(ctx, "remote fetch failed", slog.Any("error", err))
		return domain.Collection{}
	}

	return quotes
}

func (r *Reconciler) fetch(ctx context.Context) (domain.Collection, error) {
	ctx, cancel := context.WithTimeout(ctx, r.fetchTimeout)
	defer cancel()

	fetched, err := r.source.FetchQuotes(ctx, r.fetchLimit)
	if err != nil {
		if !domain.IsRemoteFetch(err) {
			err = domain.NewRemoteFetchError("quote-remote", err)
		}

		return nil, err
	}

	out := make(domain.Collection, 0, min(len(fetched), r.fetchLimit))

	for _, q := range fetched {
		if len(out) == r.fetchLimit {
			break
		}

		if q.Text == "" {
			continue
		}

		out = append(out, domain.Quote{Text: q.Text, Category: domain.ServerCategory})
	}

	return out, nil
}

// RunCycle performs one fetch, merge and commit. If a cycle is already in
// flight it returns immediately with Skipped set. A failed fetch ends the
// cycle without touching the store.
func (r *Reconciler) RunCycle(ctx context.Context, trigger SyncTrigger) (result SyncResult) {
	result = SyncResult{Trigger: trigger, StartedAt: r.now(), Added: domain.Collection{}}

	if !r.inFlight.CompareAndSwap(false, true) {
		result.Skipped = true
		result.FinishedAt = r.now()

		r.logger.DebugContext(ctx, "sync already in flight, skipping",
			slog.String("trigger", string(trigger)),
		)
		r.record(ctx, "skipped", 0)

		return result
	}
	defer r.inFlight.Store(false)

	result.CycleID = uuid.NewString()
	ctx = logging.WithCycleID(logging.WithContext(ctx, r.logger), result.CycleID)
	logger := logging.FromContext(ctx)

	defer func() {
		result.FinishedAt = r.now()
		r.finish(result)
	}()

	r.setState(SyncStateFetching)

	remote, err := r.fetch(ctx)
	if err != nil {
		logger.WarnContext(ctx, "sync cycle abandoned",
			slog.String("trigger", string(trigger)),
			slog.Any("error", err),
		)

		result.Error = err.Error()
		r.record(ctx, "fetch_failed", 0)

		return result
	}

	result.Fetched = len(remote)

	r.setState(SyncStateMerging)

	var added domain.Collection

	err = r.store.Update(ctx, func(local domain.Collection) domain.Collection {
		var merged domain.Collection

		merged, added = Merge(local, remote)
		result.Total = len(merged)

		return merged
	})
	if err != nil {
		logger.ErrorContext(ctx, "committing merged quotes failed",
			slog.String("trigger", string(trigger)),
			slog.Any("error", err),
		)

		result.Error = err.Error()
		result.Total = 0
		r.record(ctx, "commit_failed", 0)

		return result
	}

	result.Added = added

	for _, q := range added {
		logger.Log(ctx, logging.LevelTrace, "remote quote merged", slog.String("text", q.Text))
	}

	r.record(ctx, "ok", len(added))

	logger.InfoContext(ctx, "sync cycle complete",
		slog.String("trigger", string(trigger)),
		slog.Int("fetched", result.Fetched),
		slog.Int("added", len(added)),
		slog.Int("total", result.Total),
	)

	if len(added) > 0 {
		r.notify(ctx, domain.QuotesSynced{Added: added.Clone(), Total: result.Total, SyncedAt: r.now()})
	}

	return result
}

func (r *Reconciler) notify(ctx context.Context, event domain.QuotesSynced) {
	if r.publisher == nil {
		return
	}

	if err := r.publisher.Publish(ctx, event); err != nil {
		r.logger.WarnContext(ctx, "publishing sync notification failed", slog.Any("error", err))
	}
}

func (r *Reconciler) record(ctx context.Context, outcome string, added int) {
	r.cycles.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))

	if added > 0 {
		r.added.Add(ctx, int64(added))
	}
}

func (r *Reconciler) setState(state SyncState) {
	r.mu.Lock()
	r.state = state
	r.mu.Unlock()
}

func (r *Reconciler) finish(result SyncResult) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.state = SyncStateIdle
	r.lastResult = &result
}

// SyncNow runs a cycle on demand. It shares RunCycle's single-flight guard
// with the timer.
func (r *Reconciler) SyncNow(ctx context.Context) SyncResult {
	return r.RunCycle(ctx, TriggerManual)
}

// Status returns the current state and the result of the last completed cycle,
// which is nil before the first cycle finishes.
func (r *Reconciler) Status() (SyncState, *SyncResult) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.lastResult == nil {
		return r.state, nil
	}

	last := *r.lastResult
	last.Added = last.Added.Clone()

	return r.state, &last
}

// Interval returns the configured timer period.
func (r *Reconciler) Interval() time.Duration { return r.interval }

// Start arms the recurring timer. Calling Start while running restarts the
// timer. Cycles run on a context derived from ctx that Stop cancels.
func (r *Reconciler) Start(ctx context.Context) {
	r.Stop()

	r.mu.Lock()

	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	stopCh := make(chan struct{})
	done := make(chan struct{})
	ticker := r.newTicker(r.interval)

	r.cancel = cancel
	r.stopCh = stopCh
	r.done = done

	r.mu.Unlock()

	r.logger.InfoContext(ctx, "sync timer started", slog.Duration("interval", r.interval))

	go func() {
		defer close(done)
		defer ticker.Stop()

		if r.runOnStart {
			r.RunCycle(loopCtx, TriggerStart)
		}

		for {
			select {
			case <-ticker.Chan():
				r.RunCycle(loopCtx, TriggerTimer)
			case <-stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop disarms the timer and waits for the loop to exit. An in-flight cycle
// has its context cancelled. Stop is safe to call more than once.
func (r *Reconciler) Stop() {
	r.mu.Lock()

	stopCh, cancel, done := r.stopCh, r.cancel, r.done
	r.stopCh, r.cancel, r.done = nil, nil, nil

	r.mu.Unlock()

	if stopCh == nil {
		return
	}

	close(stopCh)
	cancel()
	<-done

	r.logger.Info("sync timer stopped")
}

// PostQuote sends q upstream. It is best-effort: failures are logged and a
// nil ack is returned, with no retry.
func (r *Reconciler) PostQuote(ctx context.Context, q domain.Quote) *ports.RemoteAck {
	ack, err := r.source.PostQuote(ctx, q)
	if err != nil {
		r.logger.WarnContext(ctx, "posting quote upstream failed", slog.Any("error", err))
		return nil
	}

	r.logger.DebugContext(ctx, "quote posted upstream", slog.String("remote_id", ack.ID))

	return ack
}

// PostQuotes posts each quote with bounded concurrency and returns how many
// the remote acknowledged.
func (r *Reconciler) PostQuotes(ctx context.Context, quotes domain.Collection) int {
	fns := make([]func(context.Context) (*ports.RemoteAck, error), len(quotes))

	for i, q := range quotes {
		fns[i] = func(ctx context.Context) (*ports.RemoteAck, error) {
			ack := r.PostQuote(ctx, q)
			if ack == nil {
				return nil, domain.ErrRemotePost
			}

			return ack, nil
		}
	}

	acked := 0

	for _, res := range ParallelPartialLimit(ctx, r.postConcurrency, fns...) {
		if res.Err == nil {
			acked++
		}
	}

	return acked
}
