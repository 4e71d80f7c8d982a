package categorize

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"ssmartr/internal/core"
	"ssmartr/internal/notify"
	"ssmartr/internal/seed"
	"ssmartr/internal/store"
	"ssmartr/internal/store/memory"
)

type fixture struct {
	engine   *Engine
	store    *memory.Store
	notifier *notify.Notifier
	ds       seed.Dataset
	food     core.Category
	travel   core.Category
	queue    []uuid.UUID // uncategorized IDs, newest first
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	s := memory.New()
	ds := seed.DefaultDataset(time.Date(2025, 11, 14, 9, 0, 0, 0, time.UTC))
	if _, err := seed.SeedIfEmpty(ctx, s, ds, nil); err != nil {
		t.Fatalf("seed: %v", err)
	}
	n := notify.New(nil)
	f := &fixture{
		engine:   New(s, n, nil, Options{}),
		store:    s,
		notifier: n,
		ds:       ds,
		food:     ds.Categories[0],
		travel:   ds.Categories[2],
	}
	q, err := f.engine.Queue(ctx, "")
	if err != nil {
		t.Fatalf("queue: %v", err)
	}
	for _, tr := range q {
		f.queue = append(f.queue, tr.ID)
	}
	return f
}

func (f *fixture) tx(t *testing.T, id uuid.UUID) core.Transaction {
	t.Helper()
	tr, err := store.TransactionByID(context.Background(), f.store, id)
	if err != nil {
		t.Fatalf("TransactionByID(%s): %v", id, err)
	}
	return tr
}

func (f *fixture) snapshot(t *testing.T) map[uuid.UUID]string {
	t.Helper()
	all, err := f.store.FetchTransactions(context.Background(), store.TransactionQuery{})
	if err != nil {
		t.Fatal(err)
	}
	out := make(map[uuid.UUID]string, len(all))
	for _, tr := range all {
		out[tr.ID] = tr.CategoryKey()
	}
	return out
}

func TestCategorizeSetsFieldAndLeavesOthers(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	before := f.snapshot(t)
	targets := f.queue[:2]

	out, err := f.engine.Categorize(ctx, targets, f.food.ID)
	if err != nil {
		t.Fatalf("Categorize() error = %v", err)
	}
	if len(out.Applied) != 2 || !out.Persisted || out.Version != 1 {
		t.Fatalf("unexpected outcome: %+v", out)
	}

	after := f.snapshot(t)
	for id, cat := range after {
		switch id {
		case targets[0], targets[1]:
			if cat != f.food.ID.String() {
				t.Errorf("%s not categorized", id)
			}
		default:
			if cat != before[id] {
				t.Errorf("%s changed from %q to %q", id, before[id], cat)
			}
		}
	}
	if f.notifier.Version() != 1 {
		t.Errorf("expected one publish, version = %d", f.notifier.Version())
	}
}

func TestUndoInvertsLastCategorize(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	before := f.snapshot(t)

	if _, err := f.engine.Categorize(ctx, f.queue, f.travel.ID); err != nil {
		t.Fatal(err)
	}
	rec, ok := f.engine.LastAction()
	if !ok || rec.CategoryID != f.travel.ID || len(rec.TransactionIDs) != len(f.queue) {
		t.Fatalf("LastAction() = %+v, %v", rec, ok)
	}

	out, err := f.engine.Undo(ctx)
	if err != nil || len(out.Applied) != len(f.queue) {
		t.Fatalf("Undo() = %+v, %v", out, err)
	}
	if got := f.snapshot(t); len(got) != len(before) {
		t.Fatalf("snapshot size changed")
	} else {
		for id, cat := range before {
			if got[id] != cat {
				t.Errorf("%s = %q after undo, want %q", id, got[id], cat)
			}
		}
	}
	if _, ok := f.engine.LastAction(); ok {
		t.Errorf("undo slot should be empty after undo")
	}
	if f.notifier.Version() != 2 {
		t.Errorf("categorize and undo should each publish, version = %d", f.notifier.Version())
	}
}

func TestUndoIsSingleSlot(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	t1, t2 := f.queue[:1], f.queue[1:3]

	if _, err := f.engine.Categorize(ctx, t1, f.food.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := f.engine.Categorize(ctx, t2, f.travel.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := f.engine.Undo(ctx); err != nil {
		t.Fatal(err)
	}

	if !f.tx(t, t1[0]).InCategory(f.food.ID) {
		t.Errorf("first batch must stay categorized")
	}
	for _, id := range t2 {
		if f.tx(t, id).CategoryID != nil {
			t.Errorf("second batch must be reverted")
		}
	}

	// A second undo has nothing left to revert.
	out, err := f.engine.Undo(ctx)
	if err != nil || out.Changed() {
		t.Fatalf("second Undo() = %+v, %v", out, err)
	}
}

func TestCategorizeNoOps(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	tests := []struct {
		name        string
		ids         []uuid.UUID
		category    uuid.UUID
		wantSkipped bool
	}{
		{name: "empty ids", ids: nil, category: uuid.Nil},
		{name: "unknown transactions", ids: []uuid.UUID{uuid.New(), uuid.New()}},
		{name: "missing category", ids: nil, category: uuid.New(), wantSkipped: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ids := tt.ids
			category := tt.category
			if category == uuid.Nil {
				category = f.food.ID
			}
			if tt.wantSkipped {
				ids = f.queue[:1]
			}
			out, err := f.engine.Categorize(ctx, ids, category)
			if err != nil {
				t.Fatalf("Categorize() error = %v", err)
			}
			if out.Changed() || out.Skipped != tt.wantSkipped {
				t.Fatalf("unexpected outcome: %+v", out)
			}
		})
	}

	if f.notifier.Version() != 0 {
		t.Errorf("no-ops must not publish")
	}
	if _, ok := f.engine.LastAction(); ok {
		t.Errorf("no-ops must not touch the undo slot")
	}
}

func TestCategorizeSkipsAlreadyCategorized(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	var done uuid.UUID
	for _, tr := range f.ds.Transactions {
		if tr.InCategory(f.food.ID) {
			done = tr.ID
			break
		}
	}

	out, err := f.engine.Categorize(ctx, []uuid.UUID{done, f.queue[0], uuid.New()}, f.travel.ID)
	if err != nil {
		t.Fatal(err)
	}
	if out.Requested != 3 || len(out.Applied) != 1 || out.Applied[0] != f.queue[0] {
		t.Fatalf("unexpected outcome: %+v", out)
	}
	if !f.tx(t, done).InCategory(f.food.ID) {
		t.Errorf("already categorized transaction must keep its category")
	}

	// Undo only touches what this call changed.
	if _, err := f.engine.Undo(ctx); err != nil {
		t.Fatal(err)
	}
	if !f.tx(t, done).InCategory(f.food.ID) {
		t.Errorf("undo must not clear transactions it did not categorize")
	}
}

type failingStore struct {
	*memory.Store
	err error
}

func (s *failingStore) Save(context.Context) error {
	s.Store.Discard()
	return s.err
}

func TestCategorizeSaveFailure(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	boom := errors.New("disk full")
	e := New(&failingStore{Store: f.store, err: boom}, f.notifier, nil, Options{})
	e.Select(f.queue[0])

	out, err := e.Categorize(ctx, f.queue[:1], f.food.ID)
	if !errors.Is(err, boom) {
		t.Fatalf("Categorize() error = %v, want %v", err, boom)
	}
	if out.Persisted || len(out.Applied) != 1 {
		t.Fatalf("unexpected outcome: %+v", out)
	}
	if f.notifier.Version() != 0 {
		t.Errorf("failed save must not publish")
	}
	if _, ok := e.LastAction(); !ok {
		t.Errorf("undo slot is overwritten even when the save fails")
	}
	if len(e.Selection()) != 0 {
		t.Errorf("selection is cleared even when the save fails")
	}
	if f.tx(t, f.queue[0]).CategoryID != nil {
		t.Errorf("failed save must not change the store")
	}

	undone, err := e.Undo(ctx)
	if err != nil {
		t.Fatalf("Undo() error = %v", err)
	}
	if len(undone.Applied) != 0 || undone.Persisted {
		t.Errorf("undo of an unsaved categorize must change nothing: %+v", undone)
	}
	if _, ok := e.LastAction(); ok {
		t.Errorf("undo empties the slot")
	}
	if f.notifier.Version() != 0 {
		t.Errorf("empty undo must not publish")
	}
}

func TestPropagationDelayBeforePublish(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	e := New(f.store, f.notifier, nil, Options{PropagationDelay: 100 * time.Millisecond})

	var slept time.Duration
	e.sleep = func(_ context.Context, d time.Duration) {
		if f.notifier.Version() != 0 {
			t.Errorf("published before the delay elapsed")
		}
		slept = d
	}

	if _, err := e.Categorize(ctx, f.queue[:1], f.food.ID); err != nil {
		t.Fatal(err)
	}
	if slept != 100*time.Millisecond {
		t.Errorf("slept %v, want 100ms", slept)
	}
	if f.notifier.Version() != 1 {
		t.Errorf("expected publish after delay")
	}
}

func TestConcurrentCategorizeIsSerialized(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	var wg sync.WaitGroup
	applied := make(chan int, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out, err := f.engine.Categorize(ctx, f.queue, f.food.ID)
			if err != nil {
				t.Error(err)
			}
			applied <- len(out.Applied)
		}()
	}
	wg.Wait()
	close(applied)

	total := 0
	for n := range applied {
		total += n
	}
	if total != len(f.queue) {
		t.Fatalf("each transaction must be categorized exactly once, got %d applications", total)
	}
	if f.notifier.Version() != 1 {
		t.Errorf("only the winning call publishes, version = %d", f.notifier.Version())
	}
}

func TestQueueAndIgnore(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	q, err := f.engine.Queue(ctx, "")
	if err != nil || len(q) != 4 {
		t.Fatalf("Queue() = %d items, %v", len(q), err)
	}
	for i := 1; i < len(q); i++ {
		if q[i].TransactionDate.After(q[i-1].TransactionDate) {
			t.Fatalf("queue must be newest first")
		}
	}

	q, _ = f.engine.Queue(ctx, "TRADER")
	if len(q) != 1 || q[0].Vendor != "Trader Joe's" {
		t.Fatalf("vendor search = %v", q)
	}
	q, _ = f.engine.Queue(ctx, "18.99")
	if len(q) != 1 || q[0].Vendor != "Uber" {
		t.Fatalf("amount search = %v", q)
	}

	target := f.queue[0]
	f.engine.Select(target)
	out, err := f.engine.Ignore(ctx, target, true)
	if err != nil || !out.Changed() || out.Version == 0 {
		t.Fatalf("Ignore() = %+v, %v", out, err)
	}
	q, _ = f.engine.Queue(ctx, "")
	if len(q) != 3 {
		t.Fatalf("ignored transaction must leave the queue")
	}
	if len(f.engine.Selection()) != 0 {
		t.Errorf("ignored transaction must leave the selection")
	}

	// Ignored transactions are not categorizable.
	res, _ := f.engine.Categorize(ctx, []uuid.UUID{target}, f.food.ID)
	if res.Changed() {
		t.Errorf("ignored transaction was categorized")
	}

	out, err = f.engine.Ignore(ctx, target, true)
	if err != nil || out.Changed() {
		t.Errorf("repeated Ignore() should be a no-op: %+v %v", out, err)
	}
	if _, err := f.engine.Ignore(ctx, uuid.New(), true); !errors.Is(err, core.ErrTransactionNotFound) {
		t.Errorf("Ignore(unknown) error = %v", err)
	}
}
