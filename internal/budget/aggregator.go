package budget

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"

	"ssmartr/internal/cache"
	"ssmartr/internal/core"
	"ssmartr/internal/log"
	"ssmartr/internal/notify"
	"ssmartr/internal/store"
)

// Reader is the part of the store the aggregator reads.
type Reader interface {
	store.CategoryReader
	store.TransactionReader
}

// Source supplies the change version and change events.
type Source interface {
	Version() uint64
	Subscribe() *notify.Subscription
}

// Snapshot is one computed overview.
type Snapshot struct {
	Version          uint64
	Signature        string
	TransactionCount int
	Uncategorized    int
	Income           decimal.Decimal
	Categories       []CategoryStats
	Totals           Stats
	ComputedAt       time.Time

	categories string
}

// Find returns the stats for one category.
func (s Snapshot) Find(id uuid.UUID) (CategoryStats, bool) {
	for _, cs := range s.Categories {
		if cs.Category.ID == id {
			return cs, true
		}
	}
	return CategoryStats{}, false
}

// Fingerprint identifies the figures independent of version: two snapshots
// with equal fingerprints render the same overview.
func (s Snapshot) Fingerprint() string {
	return s.Signature + "#" + s.categories + "#" + s.Income.String()
}

// Detail is one category's stats with the transactions assigned to it,
// newest first.
type Detail struct {
	CategoryStats
	Version      uint64
	Transactions []core.Transaction
}

type Options struct {
	Income decimal.Decimal
	// TTL bounds how long a cached snapshot is trusted without refetching.
	TTL       time.Duration
	CacheSize int
}

// Aggregator serves overview snapshots. A snapshot is cached per notifier
// version; after the TTL the store is re-read and the overview recomputed
// only if the transaction count, the categorization signature or the
// categories changed.
type Aggregator struct {
	reader Reader
	source Source
	logger *log.Logger
	income decimal.Decimal
	ttl    time.Duration
	now    func() time.Time

	snapshots *cache.LRUCache[Snapshot]
	details   *cache.LRUCache[Detail]
	group     singleflight.Group

	mu   sync.Mutex
	last *Snapshot

	recomputes atomic.Uint64
}

func NewAggregator(r Reader, src Source, logger *log.Logger, opts Options) *Aggregator {
	if logger == nil {
		logger = log.Discard()
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = 16
	}
	return &Aggregator{
		reader:    r,
		source:    src,
		logger:    logger.WithComponent(log.ComponentBudget),
		income:    opts.Income,
		ttl:       opts.TTL,
		now:       time.Now,
		snapshots: cache.NewLRUCache[Snapshot](4, opts.TTL),
		details:   cache.NewLRUCache[Detail](opts.CacheSize, opts.TTL),
	}
}

// Income is the monthly income assumption the budgets are derived from.
func (a *Aggregator) Income() decimal.Decimal {
	return a.income
}

// Snapshot returns the overview for the current version.
func (a *Aggregator) Snapshot(ctx context.Context) (Snapshot, error) {
	v := a.source.Version()
	key := fmt.Sprintf("overview@%d", v)
	if s, ok := a.snapshots.Get(key); ok {
		return s, nil
	}

	res, err, _ := a.group.Do(key, func() (any, error) {
		if s, ok := a.snapshots.Get(key); ok {
			return s, nil
		}
		s, err := a.compute(ctx, v)
		if err != nil {
			return Snapshot{}, err
		}
		a.snapshots.Set(key, s)
		return s, nil
	})
	if err != nil {
		return Snapshot{}, err
	}
	return res.(Snapshot), nil
}

func (a *Aggregator) compute(ctx context.Context, version uint64) (Snapshot, error) {
	cats, err := a.reader.FetchCategories(ctx, store.CategoryQuery{})
	if err != nil {
		a.logger.LogError(ctx, "Failed to fetch categories", err, log.OpRecompute, nil)
		return Snapshot{}, fmt.Errorf("fetch categories: %w", err)
	}
	txs, err := a.reader.FetchTransactions(ctx, store.TransactionQuery{})
	if err != nil {
		a.logger.LogError(ctx, "Failed to fetch transactions", err, log.OpRecompute, nil)
		return Snapshot{}, fmt.Errorf("fetch transactions: %w", err)
	}

	next := Snapshot{
		Version:          version,
		Signature:        Signature(txs),
		TransactionCount: len(txs),
		Income:           a.income,
		ComputedAt:       a.now(),
		categories:       categoriesKey(cats),
	}
	for _, t := range txs {
		if t.IsUncategorized() {
			next.Uncategorized++
		}
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	reason := changeReason(a.last, next)
	if reason == "" {
		next.Categories = a.last.Categories
		next.Totals = a.last.Totals
		a.logger.DebugContext(ctx, "Overview unchanged", log.FieldVersion, version)
	} else {
		next.Categories = Overview(cats, txs, a.income)
		next.Totals = Totals(next.Categories)
		a.recomputes.Add(1)
		a.logger.DebugContext(ctx, "Recomputed overview",
			log.FieldVersion, version,
			log.FieldReason, reason,
			log.FieldTransactionCnt, len(txs))
	}
	a.last = &next
	return next, nil
}

// changeReason names the first input that differs from prev, or "" when
// the previous overview is still valid.
func changeReason(prev *Snapshot, next Snapshot) string {
	switch {
	case prev == nil:
		return "initial"
	case prev.Version != next.Version:
		return "version"
	case prev.TransactionCount != next.TransactionCount:
		return "count"
	case prev.Signature != next.Signature:
		return "signature"
	case prev.categories != next.categories:
		return "categories"
	case !prev.Income.Equal(next.Income):
		return "income"
	}
	return ""
}

// Stats returns one category's figures from the current snapshot.
func (a *Aggregator) Stats(ctx context.Context, id uuid.UUID) (CategoryStats, error) {
	s, err := a.Snapshot(ctx)
	if err != nil {
		return CategoryStats{}, err
	}
	cs, ok := s.Find(id)
	if !ok {
		return CategoryStats{}, core.ErrCategoryNotFound
	}
	return cs, nil
}

// CategoryDetail returns the stats and transactions of one category.
func (a *Aggregator) CategoryDetail(ctx context.Context, id uuid.UUID) (Detail, error) {
	s, err := a.Snapshot(ctx)
	if err != nil {
		return Detail{}, err
	}
	cs, ok := s.Find(id)
	if !ok {
		return Detail{}, core.ErrCategoryNotFound
	}

	key := fmt.Sprintf("%s@%d:%s", id, s.Version, s.ComputedAt.Format(time.RFC3339Nano))
	if d, ok := a.details.Get(key); ok {
		return d, nil
	}
	txs, err := a.reader.FetchTransactions(ctx, store.InCategoryQuery(id))
	if err != nil {
		a.logger.LogError(ctx, "Failed to fetch category transactions", err, log.OpFetch,
			log.LogFields{log.FieldCategoryID: id.String()})
		return Detail{}, fmt.Errorf("fetch category transactions: %w", err)
	}
	d := Detail{CategoryStats: cs, Version: s.Version, Transactions: txs}
	a.details.Set(key, d)
	return d, nil
}

// Invalidate drops every cached snapshot so the next read refetches.
func (a *Aggregator) Invalidate() {
	a.snapshots.Clear()
	a.details.Clear()
}

// Run keeps the cache warm: every change event triggers a recompute, and
// expired entries are swept every TTL. It returns when ctx is done or the
// notifier closes.
func (a *Aggregator) Run(ctx context.Context) error {
	sub := a.source.Subscribe()
	defer sub.Close()

	mgr := cache.NewManager(a.logger)
	mgr.Register(a.snapshots)
	mgr.Register(a.details)
	mgr.StartCleanup(a.ttl)
	defer mgr.Stop()

	a.logger.InfoContext(ctx, "Budget aggregator started", "ttl", a.ttl)
	if _, err := a.Snapshot(ctx); err != nil {
		a.logger.LogError(ctx, "Initial overview failed", err, log.OpRecompute, nil)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-sub.C():
			if !ok {
				return nil
			}
			if _, err := a.Snapshot(ctx); err != nil {
				a.logger.LogError(ctx, "Recompute after change failed", err, log.OpRecompute,
					log.NewFields().WithVersion(ev.Version))
			}
		}
	}
}
