package app

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/jsamuelsen/quote-generator/internal/domain"
	"github.com/jsamuelsen/quote-generator/internal/ports"
)

// Sync defaults.
const (
	DefaultSyncInterval    = 300 * time.Second
	DefaultNotificationTTL = 5 * time.Second

	// SyncedMessage is posted when a sync replaced the local quotes.
	SyncedMessage = "Quotes synced with server!"
)

// SyncOutcome classifies one sync cycle.
type SyncOutcome string

const (
	SyncUnchanged SyncOutcome = "unchanged"
	SyncReplaced  SyncOutcome = "replaced"
	SyncFailed    SyncOutcome = "failed"
	SyncSkipped   SyncOutcome = "skipped"
)

// SyncResult reports what a sync cycle did.
type SyncResult struct {
	Outcome   SyncOutcome   `json:"outcome"`
	Count     int           `json:"count"`
	Message   string        `json:"message,omitempty"`
	StartedAt time.Time     `json:"startedAt"`
	Duration  time.Duration `json:"duration"`
}

// SyncMetrics are the Prometheus collectors for the sync agent.
type SyncMetrics struct {
	cycles *prometheus.CounterVec
}

// NewSyncMetrics registers the sync collectors with reg. The quotes gauge
// reads the store size at scrape time. A nil reg creates unregistered
// collectors.
func NewSyncMetrics(reg prometheus.Registerer, store *QuoteStore) *SyncMetrics {
	factory := promauto.With(reg)

	m := &SyncMetrics{
		cycles: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "quotegen_sync_cycles_total",
			Help: "Sync cycles by outcome.",
		}, []string{"outcome"}),
	}

	if store != nil {
		factory.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "quotegen_quotes",
			Help: "Number of quotes in the store.",
		}, func() float64 { return float64(store.Len()) })
	}

	return m
}

func (m *SyncMetrics) observe(outcome SyncOutcome) {
	if m == nil {
		return
	}

	m.cycles.WithLabelValues(string(outcome)).Inc()
}

// SyncAgentConfig wires a SyncAgent.
type SyncAgentConfig struct {
	Source          ports.RemoteQuoteSource
	Store           *QuoteStore
	Categories      *CategoryIndex
	Notifier        *Notifier
	Executor        *Executor
	Metrics         *SyncMetrics
	Interval        time.Duration
	NotificationTTL time.Duration
	Logger          *slog.Logger
}

// SyncAgent periodically replaces the local quotes with the remote list when
// the two differ. It is either idle or syncing; a trigger that arrives while
// a cycle is running is skipped.
type SyncAgent struct {
	source     ports.RemoteQuoteSource
	store      *QuoteStore
	categories *CategoryIndex
	notifier   *Notifier
	executor   *Executor
	metrics    *SyncMetrics
	interval   time.Duration
	ttl        time.Duration
	logger     *slog.Logger

	syncing atomic.Bool
	cycles  sync.WaitGroup
}

// NewSyncAgent creates an agent. Panics if Source or Store is nil.
func NewSyncAgent(cfg SyncAgentConfig) *SyncAgent {
	if cfg.Source == nil {
		panic("app: NewSyncAgent requires a RemoteQuoteSource")
	}

	if cfg.Store == nil {
		panic("app: NewSyncAgent requires a QuoteStore")
	}

	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	if cfg.Categories == nil {
		cfg.Categories = NewCategoryIndex()
	}

	if cfg.Notifier == nil {
		cfg.Notifier = NewNotifier(nil)
	}

	if cfg.Executor == nil {
		cfg.Executor = NewExecutor(cfg.Logger)
	}

	if cfg.Interval <= 0 {
		cfg.Interval = DefaultSyncInterval
	}

	if cfg.NotificationTTL <= 0 {
		cfg.NotificationTTL = DefaultNotificationTTL
	}

	return &SyncAgent{
		source:     cfg.Source,
		store:      cfg.Store,
		categories: cfg.Categories,
		notifier:   cfg.Notifier,
		executor:   cfg.Executor,
		metrics:    cfg.Metrics,
		interval:   cfg.Interval,
		ttl:        cfg.NotificationTTL,
		logger:     cfg.Logger.With(slog.String("component", "sync_agent")),
	}
}

// Syncing reports whether a cycle is in flight.
func (a *SyncAgent) Syncing() bool {
	return a.syncing.Load()
}

// Run triggers one cycle immediately and then one per interval until ctx is
// done. It waits for an in-flight cycle before returning.
func (a *SyncAgent) Run(ctx context.Context) error {
	a.logger.InfoContext(ctx, "sync agent started", slog.Duration("interval", a.interval))

	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	a.trigger(ctx)

	for {
		select {
		case <-ctx.Done():
			a.cycles.Wait()
			a.logger.InfoContext(context.WithoutCancel(ctx), "sync agent stopped")

			return nil
		case <-ticker.C:
			a.trigger(ctx)
		}
	}
}

// trigger starts a cycle in the background so a slow remote never delays
// the ticker. Overlap is handled by SyncNow.
func (a *SyncAgent) trigger(ctx context.Context) {
	a.cycles.Go(func() {
		_, _ = a.SyncNow(ctx)
	})
}

type syncPlan struct {
	remote  []domain.Quote
	changed bool
}

// SyncNow runs one cycle unless another is in flight, in which case it
// returns a skipped result. Failures are logged and reported in the result;
// the returned error is the cause for callers that want it.
func (a *SyncAgent) SyncNow(ctx context.Context) (SyncResult, error) {
	started := time.Now()

	if !a.syncing.CompareAndSwap(false, true) {
		a.logger.InfoContext(ctx, "sync already in progress, skipping trigger")
		a.metrics.observe(SyncSkipped)

		return SyncResult{Outcome: SyncSkipped, Count: a.store.Len(), StartedAt: started}, nil
	}
	defer a.syncing.Store(false)

	res, err := Execute(ctx, a.executor, a.operation(), struct{}{})
	res.StartedAt = started
	res.Duration = time.Since(started)

	if err != nil {
		a.logger.ErrorContext(ctx, "sync failed, local quotes kept", slog.Any("error", err))
		a.metrics.observe(SyncFailed)

		return SyncResult{
			Outcome:   SyncFailed,
			Count:     a.store.Len(),
			Message:   err.Error(),
			StartedAt: started,
			Duration:  res.Duration,
		}, err
	}

	a.metrics.observe(res.Outcome)
	a.logger.InfoContext(ctx, "sync completed",
		slog.String("outcome", string(res.Outcome)),
		slog.Int("count", res.Count),
	)

	return res, nil
}

func (a *SyncAgent) operation() Operation[struct{}, []domain.Quote, syncPlan, SyncResult] {
	return Operation[struct{}, []domain.Quote, syncPlan, SyncResult]{
		Name: "sync_quotes",
		Perform: func(ctx context.Context, _ struct{}) ([]domain.Quote, error) {
			return a.source.FetchQuotes(ctx)
		},
		Verify: func(_ context.Context, _ struct{}, remote []domain.Quote) (syncPlan, error) {
			for i, q := range remote {
				if err := q.Validate(); err != nil {
					return syncPlan{}, fmt.Errorf("remote quote %d: %w", i, err)
				}
			}

			return syncPlan{
				remote:  remote,
				changed: !slices.Equal(remote, a.store.Snapshot()),
			}, nil
		},
		Archive: func(ctx context.Context, _ struct{}, plan syncPlan) error {
			if !plan.changed {
				return nil
			}

			if err := a.store.Replace(ctx, plan.remote, StrategyReplaceAll); err != nil {
				return err
			}

			a.categories.Refresh(plan.remote)

			return nil
		},
		Respond: func(_ context.Context, _ struct{}, plan syncPlan) (SyncResult, error) {
			if !plan.changed {
				return SyncResult{Outcome: SyncUnchanged, Count: len(plan.remote)}, nil
			}

			notice := a.notifier.Post(SyncedMessage, a.ttl)

			return SyncResult{
				Outcome: SyncReplaced,
				Count:   len(plan.remote),
				Message: notice.Message,
			}, nil
		},
	}
}
