package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/quotekeeper/internal/domain"
	"github.com/jsamuelsen/quotekeeper/internal/mocks"
	"github.com/jsamuelsen/quotekeeper/internal/ports"
)

// fakeTicker is driven by the test instead of the wall clock.
type fakeTicker struct {
	c       chan time.Time
	mu      sync.Mutex
	stopped bool
}

func newFakeTicker() *fakeTicker { return &fakeTicker{c: make(chan time.Time)} }

func (f *fakeTicker) Chan() <-chan time.Time { return f.c }

func (f *fakeTicker) Stop() {
	f.mu.Lock()
	f.stopped = true
	f.mu.Unlock()
}

func (f *fakeTicker) isStopped() bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.stopped
}

type reconcilerFixture struct {
	store     *QuoteStore
	source    *mocks.MockQuoteSource
	publisher *mocks.MockEventPublisher
	r         *Reconciler
}

func newReconcilerFixture(t *testing.T, local domain.Collection, opts ...func(*ReconcilerConfig)) *reconcilerFixture {
	t.Helper()

	store, _ := newTestStore(t, nil)
	require.NoError(t, store.ReplaceAll(context.Background(), local))

	f := &reconcilerFixture{
		store:     store,
		source:    mocks.NewMockQuoteSource(t),
		publisher: mocks.NewMockEventPublisher(t),
	}

	cfg := ReconcilerConfig{
		Store:     store,
		Source:    f.source,
		Publisher: f.publisher,
		Logger:    discardLogger(),
		Now:       func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) },
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	r, err := NewReconciler(cfg)
	require.NoError(t, err)

	f.r = r

	return f
}

func remoteTitles(titles ...string) domain.Collection {
	c := make(domain.Collection, 0, len(titles))
	for _, title := range titles {
		c = append(c, domain.Quote{Text: title, Category: domain.ServerCategory})
	}

	return c
}

func TestNewReconciler_RequiresDependencies(t *testing.T) {
	store, _ := newTestStore(t, nil)

	_, err := NewReconciler(ReconcilerConfig{Source: mocks.NewMockQuoteSource(t)})
	require.Error(t, err)

	_, err = NewReconciler(ReconcilerConfig{Store: store})
	require.Error(t, err)

	r, err := NewReconciler(ReconcilerConfig{Store: store, Source: mocks.NewMockQuoteSource(t)})
	require.NoError(t, err)
	assert.Equal(t, DefaultSyncInterval, r.Interval())
	assert.Equal(t, DefaultFetchLimit, r.fetchLimit)
}

func TestMerge(t *testing.T) {
	hello := domain.Quote{Text: "Hello", Category: "A"}
	world := domain.Quote{Text: "World", Category: domain.ServerCategory}

	tests := []struct {
		name       string
		local      domain.Collection
		remote     domain.Collection
		wantMerged domain.Collection
		wantAdded  domain.Collection
	}{
		{
			name:       "empty remote is a no-op",
			local:      domain.Collection{hello},
			remote:     domain.Collection{},
			wantMerged: domain.Collection{hello},
			wantAdded:  domain.Collection{},
		},
		{
			name:       "full overlap adds nothing",
			local:      domain.Collection{hello, world},
			remote:     domain.Collection{hello, world},
			wantMerged: domain.Collection{hello, world},
			wantAdded:  domain.Collection{},
		},
		{
			name:       "local category is never overwritten",
			local:      domain.Collection{{Text: "A", Category: "X"}},
			remote:     domain.Collection{{Text: "A", Category: "Y"}},
			wantMerged: domain.Collection{{Text: "A", Category: "X"}},
			wantAdded:  domain.Collection{},
		},
		{
			name:       "new remote text is appended after local",
			local:      domain.Collection{hello},
			remote:     remoteTitles("Hello", "World"),
			wantMerged: domain.Collection{hello, world},
			wantAdded:  domain.Collection{world},
		},
		{
			name:       "match is case and whitespace sensitive",
			local:      domain.Collection{hello},
			remote:     remoteTitles("hello", "Hello "),
			wantMerged: append(domain.Collection{hello}, remoteTitles("hello", "Hello ")...),
			wantAdded:  remoteTitles("hello", "Hello "),
		},
		{
			name:       "text repeated within one remote batch is added once",
			local:      domain.Collection{},
			remote:     remoteTitles("World", "World"),
			wantMerged: domain.Collection{world},
			wantAdded:  domain.Collection{world},
		},
		{
			name:       "remote batch repeats are dropped alongside local matches",
			local:      domain.Collection{hello},
			remote:     remoteTitles("World", "Hello", "World", "Hello"),
			wantMerged: domain.Collection{hello, world},
			wantAdded:  domain.Collection{world},
		},
		{
			name:       "empty local takes everything",
			local:      nil,
			remote:     remoteTitles("World"),
			wantMerged: domain.Collection{world},
			wantAdded:  domain.Collection{world},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			merged, added := Merge(tt.local, tt.remote)

			assert.Equal(t, tt.wantMerged, merged)
			assert.Equal(t, tt.wantAdded, added)
		})
	}
}

func TestMerge_DoesNotAliasInputs(t *testing.T) {
	local := make(domain.Collection, 1, 4)
	local[0] = domain.Quote{Text: "Hello", Category: "A"}

	merged, _ := Merge(local, remoteTitles("World"))
	merged[0].Category = "changed"

	assert.Equal(t, "A", local[0].Category)
}

func TestReconciler_FetchRemote(t *testing.T) {
	t.Run("maps to server category and honours limit", func(t *testing.T) {
		f := newReconcilerFixture(t, domain.Collection{}, func(c *ReconcilerConfig) { c.FetchLimit = 2 })

		f.source.EXPECT().FetchQuotes(mock.Anything, 2).Return(domain.Collection{
			{Text: "one", Category: "ignored"},
			{Text: "", Category: "skipped"},
			{Text: "two"},
			{Text: "three"},
		}, nil)

		got := f.r.FetchRemote(context.Background())

		assert.Equal(t, remoteTitles("one", "two"), got)
	})

	t.Run("failure yields empty collection", func(t *testing.T) {
		f := newReconcilerFixture(t, domain.Collection{})

		f.source.EXPECT().FetchQuotes(mock.Anything, DefaultFetchLimit).
			Return(nil, domain.NewUnavailableError("quote-remote", "HTTP 503"))

		got := f.r.FetchRemote(context.Background())

		assert.NotNil(t, got)
		assert.Empty(t, got)
	})
}

func TestReconciler_RunCycle_Scenario(t *testing.T) {
	f := newReconcilerFixture(t, domain.Collection{{Text: "Hello", Category: "A"}})

	f.source.EXPECT().FetchQuotes(mock.Anything, DefaultFetchLimit).
		Return(remoteTitles("Hello", "World"), nil)

	var published domain.QuotesSynced

	f.publisher.EXPECT().Publish(mock.Anything, mock.Anything).
		Run(func(_ context.Context, event ports.Event) {
			published = event.(domain.QuotesSynced)
		}).
		Return(nil).
		Once()

	result := f.r.RunCycle(context.Background(), TriggerManual)

	want := domain.Collection{
		{Text: "Hello", Category: "A"},
		{Text: "World", Category: domain.ServerCategory},
	}

	assert.False(t, result.Skipped)
	assert.NotEmpty(t, result.CycleID)
	assert.Empty(t, result.Error)
	assert.Equal(t, 2, result.Fetched)
	assert.Equal(t, 2, result.Total)
	assert.Equal(t, remoteTitles("World"), result.Added)
	assert.False(t, result.FinishedAt.IsZero())
	assert.Equal(t, want, f.store.Snapshot())

	assert.Equal(t, domain.EventQuotesSynced, published.EventType())
	assert.Len(t, published.Added, 1)
	assert.Equal(t, "Quotes synced with server: 1 new quote added.", published.Message())

	state, last := f.r.Status()
	assert.Equal(t, SyncStateIdle, state)
	require.NotNil(t, last)
	assert.Equal(t, TriggerManual, last.Trigger)
}

func TestReconciler_RunCycle_IsIdempotent(t *testing.T) {
	f := newReconcilerFixture(t, domain.Collection{{Text: "Hello", Category: "A"}})

	f.source.EXPECT().FetchQuotes(mock.Anything, DefaultFetchLimit).
		Return(remoteTitles("Hello", "World", "Again"), nil).
		Times(2)

	f.publisher.EXPECT().Publish(mock.Anything, mock.Anything).Return(nil).Once()

	first := f.r.RunCycle(context.Background(), TriggerTimer)
	afterFirst := f.store.Snapshot()

	second := f.r.RunCycle(context.Background(), TriggerTimer)

	assert.Len(t, first.Added, 2)
	assert.Empty(t, second.Added)
	assert.Equal(t, afterFirst, f.store.Snapshot())
}

func TestReconciler_RunCycle_FetchFailureEndsCycle(t *testing.T) {
	f := newReconcilerFixture(t, domain.Collection{{Text: "Hello", Category: "A"}})
	before := f.store.Snapshot()

	f.source.EXPECT().FetchQuotes(mock.Anything, DefaultFetchLimit).
		Return(nil, errors.New("dial tcp: connection refused"))

	result := f.r.RunCycle(context.Background(), TriggerTimer)

	assert.Contains(t, result.Error, "connection refused")
	assert.Contains(t, result.Error, "fetch")
	assert.Empty(t, result.Added)
	assert.Equal(t, before, f.store.Snapshot())

	state, _ := f.r.Status()
	assert.Equal(t, SyncStateIdle, state)
}

func TestReconciler_RunCycle_PublishFailureIsLogged(t *testing.T) {
	f := newReconcilerFixture(t, domain.Collection{})

	f.source.EXPECT().FetchQuotes(mock.Anything, DefaultFetchLimit).Return(remoteTitles("New"), nil)
	f.publisher.EXPECT().Publish(mock.Anything, mock.Anything).Return(domain.NewUnavailableError("notify", ""))

	result := f.r.RunCycle(context.Background(), TriggerManual)

	assert.Empty(t, result.Error)
	assert.Equal(t, remoteTitles("New"), f.store.Snapshot())
}

func TestReconciler_RunCycle_SingleFlight(t *testing.T) {
	f := newReconcilerFixture(t, domain.Collection{})

	entered := make(chan struct{})
	release := make(chan struct{})

	f.source.EXPECT().FetchQuotes(mock.Anything, DefaultFetchLimit).
		RunAndReturn(func(context.Context, int) (domain.Collection, error) {
			close(entered)
			<-release

			return domain.Collection{}, nil
		}).
		Once()

	done := make(chan SyncResult)

	go func() { done <- f.r.RunCycle(context.Background(), TriggerTimer) }()

	<-entered

	state, _ := f.r.Status()
	assert.Equal(t, SyncStateFetching, state)

	skipped := f.r.SyncNow(context.Background())
	assert.True(t, skipped.Skipped)
	assert.Empty(t, skipped.CycleID)

	close(release)

	first := <-done
	assert.False(t, first.Skipped)
}

func TestReconciler_StartStop(t *testing.T) {
	ticker := newFakeTicker()

	var gotInterval time.Duration

	f := newReconcilerFixture(t, domain.Collection{}, func(c *ReconcilerConfig) {
		c.Interval = time.Minute
		c.NewTicker = func(d time.Duration) Ticker {
			gotInterval = d
			return ticker
		}
	})

	fetched := make(chan struct{}, 1)

	f.source.EXPECT().FetchQuotes(mock.Anything, DefaultFetchLimit).
		RunAndReturn(func(context.Context, int) (domain.Collection, error) {
			fetched <- struct{}{}
			return domain.Collection{}, nil
		}).
		Once()

	f.r.Start(context.Background())

	ticker.c <- time.Now()

	select {
	case <-fetched:
	case <-time.After(time.Second):
		t.Fatal("timer tick did not run a cycle")
	}

	f.r.Stop()
	f.r.Stop()

	assert.Equal(t, time.Minute, gotInterval)
	assert.True(t, ticker.isStopped())
}

func TestReconciler_Start_RunOnStart(t *testing.T) {
	ticker := newFakeTicker()

	f := newReconcilerFixture(t, domain.Collection{}, func(c *ReconcilerConfig) {
		c.RunOnStart = true
		c.NewTicker = func(time.Duration) Ticker { return ticker }
	})

	fetched := make(chan struct{}, 1)

	f.source.EXPECT().FetchQuotes(mock.Anything, DefaultFetchLimit).
		RunAndReturn(func(context.Context, int) (domain.Collection, error) {
			fetched <- struct{}{}
			return domain.Collection{}, nil
		}).
		Once()

	f.r.Start(context.Background())
	t.Cleanup(f.r.Stop)

	select {
	case <-fetched:
	case <-time.After(time.Second):
		t.Fatal("run-on-start cycle did not run")
	}

	require.Eventually(t, func() bool {
		_, last := f.r.Status()
		return last != nil && last.Trigger == TriggerStart
	}, time.Second, 10*time.Millisecond)
}

func TestReconciler_PostQuote(t *testing.T) {
	quote := domain.Quote{Text: "Hello", Category: "A"}

	t.Run("returns ack", func(t *testing.T) {
		f := newReconcilerFixture(t, domain.Collection{})
		f.source.EXPECT().PostQuote(mock.Anything, quote).Return(&ports.RemoteAck{ID: "101"}, nil).Once()

		ack := f.r.PostQuote(context.Background(), quote)

		require.NotNil(t, ack)
		assert.Equal(t, "101", ack.ID)
	})

	t.Run("failure is swallowed without retry", func(t *testing.T) {
		f := newReconcilerFixture(t, domain.Collection{})
		f.source.EXPECT().PostQuote(mock.Anything, quote).
			Return(nil, domain.NewRemotePostError("quote-remote", errors.New("HTTP 500"))).
			Once()

		assert.Nil(t, f.r.PostQuote(context.Background(), quote))
	})
}

func TestReconciler_PostQuotes(t *testing.T) {
	f := newReconcilerFixture(t, domain.Collection{})

	ok := domain.Quote{Text: "ok", Category: "A"}
	bad := domain.Quote{Text: "bad", Category: "A"}

	f.source.EXPECT().PostQuote(mock.Anything, ok).Return(&ports.RemoteAck{ID: "1"}, nil).Twice()
	f.source.EXPECT().PostQuote(mock.Anything, bad).Return(nil, errors.New("boom")).Once()

	acked := f.r.PostQuotes(context.Background(), domain.Collection{ok, bad, ok})

	assert.Equal(t, 2, acked)
}
