// Package categorize assigns transactions to categories and keeps the
// single-slot undo history and list selection that go with it.
//
// Every mutating call runs under one lock, shared with any other writer of
// the same store, so a second categorize or undo waits for the first to
// finish instead of interleaving with it.
package categorize

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"ssmartr/internal/core"
	"ssmartr/internal/log"
	"ssmartr/internal/notify"
	"ssmartr/internal/store"
)

// UndoRecord is the last categorize action that changed something.
type UndoRecord struct {
	TransactionIDs []uuid.UUID
	CategoryID     uuid.UUID
	At             time.Time
}

// Outcome describes what a categorize, undo or ignore call did.
type Outcome struct {
	CategoryID uuid.UUID
	Requested  int
	Applied    []uuid.UUID
	// Skipped is set when the target category no longer exists and the
	// whole action was dropped.
	Skipped   bool
	Persisted bool
	// Version is the notifier version published for this change, 0 if
	// nothing was published.
	Version uint64
}

// Changed reports whether any transaction was modified.
func (o Outcome) Changed() bool {
	return len(o.Applied) > 0
}

type Options struct {
	// PropagationDelay is waited after a successful save and before the
	// change is published. Stores with read-your-writes need none.
	PropagationDelay time.Duration
	// Lock serializes writers that share the store's changeset. Every
	// component that stages and saves on the same store must use the same
	// lock. Nil gives the engine a private one.
	Lock sync.Locker
}

type Engine struct {
	store    store.Store
	notifier notify.Publisher
	logger   *log.Logger
	delay    time.Duration
	now      func() time.Time
	sleep    func(context.Context, time.Duration)

	mu        sync.Locker
	undo      *UndoRecord
	selection map[uuid.UUID]struct{}
}

func New(st store.Store, notifier notify.Publisher, logger *log.Logger, opts Options) *Engine {
	if logger == nil {
		logger = log.Discard()
	}
	if opts.Lock == nil {
		opts.Lock = &sync.Mutex{}
	}
	return &Engine{
		mu:        opts.Lock,
		store:     st,
		notifier:  notifier,
		logger:    logger.WithComponent(log.ComponentCategorize),
		delay:     opts.PropagationDelay,
		now:       time.Now,
		sleep:     sleepContext,
		selection: map[uuid.UUID]struct{}{},
	}
}

// Categorize assigns categoryID to every listed transaction that is still
// uncategorized. Unknown and already categorized IDs are skipped. A missing
// category drops the action without error.
//
// If the save fails the undo slot and selection are still updated, the error
// is returned and nothing is published.
func (e *Engine) Categorize(ctx context.Context, ids []uuid.UUID, categoryID uuid.UUID) (Outcome, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.categorizeLocked(ctx, ids, categoryID)
}

func (e *Engine) categorizeLocked(ctx context.Context, ids []uuid.UUID, categoryID uuid.UUID) (Outcome, error) {
	ids = dedupe(ids)
	out := Outcome{CategoryID: categoryID, Requested: len(ids)}
	if len(ids) == 0 {
		return out, nil
	}

	if _, err := store.CategoryByID(ctx, e.store, categoryID); err != nil {
		if errors.Is(err, core.ErrCategoryNotFound) {
			e.logger.InfoContext(ctx, "Category not found, skipping categorize",
				log.FieldCategoryID, categoryID.String(),
				log.FieldRequested, len(ids))
			out.Skipped = true
			return out, nil
		}
		e.logger.LogError(ctx, "Failed to look up category", err, log.OpFetch,
			log.NewFields().WithCategorization(categoryID.String(), len(ids), 0))
		return out, fmt.Errorf("look up category: %w", err)
	}

	txs, err := e.store.FetchTransactions(ctx, store.TransactionQuery{IDs: ids})
	if err != nil {
		e.logger.LogError(ctx, "Failed to fetch transactions", err, log.OpFetch,
			log.NewFields().WithCategorization(categoryID.String(), len(ids), 0))
		return out, fmt.Errorf("fetch transactions: %w", err)
	}

	for _, t := range txs {
		if !t.IsUncategorized() {
			continue
		}
		cid := categoryID
		t.CategoryID = &cid
		e.store.UpdateTransaction(t)
		out.Applied = append(out.Applied, t.ID)
	}
	if len(out.Applied) == 0 {
		e.logger.DebugContext(ctx, "Nothing to categorize",
			log.NewFields().WithCategorization(categoryID.String(), len(ids), 0).ToSlice()...)
		return out, nil
	}

	saveErr := e.store.Save(ctx)

	// Recorded even when the save failed. The IDs were then never persisted,
	// so a later Undo finds nothing in the category and only empties the slot.
	e.undo = &UndoRecord{
		TransactionIDs: slices.Clone(out.Applied),
		CategoryID:     categoryID,
		At:             e.now(),
	}
	clear(e.selection)

	fields := log.NewFields().WithCategorization(categoryID.String(), len(ids), len(out.Applied))
	if saveErr != nil {
		e.logger.LogError(ctx, "Failed to save categorization", saveErr, log.OpSave, fields)
		return out, fmt.Errorf("save categorization: %w", saveErr)
	}
	out.Persisted = true

	out.Version = e.publish(ctx, notify.ReasonCategorized)
	e.logger.InfoContext(ctx, "Categorized transactions", fields.WithVersion(out.Version).ToSlice()...)
	return out, nil
}

// Undo reverts the last categorize call. Only transactions still in the
// recorded category are reset; the slot is emptied either way.
func (e *Engine) Undo(ctx context.Context) (Outcome, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.undo == nil {
		return Outcome{}, nil
	}
	rec := *e.undo
	out := Outcome{CategoryID: rec.CategoryID, Requested: len(rec.TransactionIDs)}

	txs, err := e.store.FetchTransactions(ctx, store.TransactionQuery{IDs: rec.TransactionIDs})
	if err != nil {
		e.logger.LogError(ctx, "Failed to fetch transactions for undo", err, log.OpFetch,
			log.NewFields().WithCategorization(rec.CategoryID.String(), out.Requested, 0))
		return out, fmt.Errorf("fetch transactions: %w", err)
	}

	for _, t := range txs {
		if !t.InCategory(rec.CategoryID) {
			continue
		}
		t.CategoryID = nil
		e.store.UpdateTransaction(t)
		out.Applied = append(out.Applied, t.ID)
	}
	e.undo = nil

	if len(out.Applied) == 0 {
		return out, nil
	}

	fields := log.NewFields().WithCategorization(rec.CategoryID.String(), out.Requested, len(out.Applied))
	if err := e.store.Save(ctx); err != nil {
		e.logger.LogError(ctx, "Failed to save undo", err, log.OpSave, fields)
		return out, fmt.Errorf("save undo: %w", err)
	}
	out.Persisted = true

	out.Version = e.publish(ctx, notify.ReasonUndo)
	e.logger.InfoContext(ctx, "Undid categorization", fields.WithVersion(out.Version).ToSlice()...)
	return out, nil
}

// LastAction returns the current undo slot.
func (e *Engine) LastAction() (UndoRecord, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.undo == nil {
		return UndoRecord{}, false
	}
	rec := *e.undo
	rec.TransactionIDs = slices.Clone(rec.TransactionIDs)
	return rec, true
}

// Ignore sets or clears the ignore flag. Ignored transactions leave the
// queue and the selection.
func (e *Engine) Ignore(ctx context.Context, id uuid.UUID, ignored bool) (Outcome, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := Outcome{Requested: 1}
	t, err := store.TransactionByID(ctx, e.store, id)
	if err != nil {
		return out, err
	}
	if t.Ignored() == ignored {
		out.Persisted = true
		return out, nil
	}

	t.IsIgnored = core.Ptr(ignored)
	e.store.UpdateTransaction(t)
	out.Applied = []uuid.UUID{id}
	if ignored {
		delete(e.selection, id)
	}

	if err := e.store.Save(ctx); err != nil {
		e.logger.LogError(ctx, "Failed to save ignore flag", err, log.OpIgnore,
			log.LogFields{log.FieldTransactionID: id.String()})
		return out, fmt.Errorf("save ignore flag: %w", err)
	}
	out.Persisted = true
	out.Version = e.publish(ctx, notify.ReasonIgnored)
	return out, nil
}

// Queue lists the uncategorized work queue, newest first, narrowed by
// search text.
func (e *Engine) Queue(ctx context.Context, search string) ([]core.Transaction, error) {
	txs, err := e.store.FetchTransactions(ctx, store.QueueQuery(search))
	if err != nil {
		e.logger.LogError(ctx, "Failed to fetch queue", err, log.OpFetch, nil)
		return nil, fmt.Errorf("fetch queue: %w", err)
	}
	return txs, nil
}

// publish waits out the propagation delay and signals listeners.
func (e *Engine) publish(ctx context.Context, reason string) uint64 {
	if e.delay > 0 {
		e.sleep(ctx, e.delay)
	}
	if e.notifier == nil {
		return 0
	}
	return e.notifier.Publish(reason).Version
}

// sleepContext waits for d or until ctx is done. The write is already
// durable, so an early return still publishes.
func sleepContext(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

func dedupe(ids []uuid.UUID) []uuid.UUID {
	if len(ids) == 0 {
		return nil
	}
	out := slices.Clone(ids)
	slices.SortFunc(out, compareIDs)
	return slices.Compact(out)
}

func compareIDs(a, b uuid.UUID) int {
	return bytes.Compare(a[:], b[:])
}
