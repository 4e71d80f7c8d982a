package categorize

import (
	"context"
	"slices"

	"github.com/google/uuid"
)

// Toggle flips id in the list selection and reports whether it is now
// selected.
func (e *Engine) Toggle(id uuid.UUID) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.selection[id]; ok {
		delete(e.selection, id)
		return false
	}
	e.selection[id] = struct{}{}
	return true
}

// Select adds ids to the selection.
func (e *Engine) Select(ids ...uuid.UUID) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, id := range ids {
		e.selection[id] = struct{}{}
	}
}

func (e *Engine) ClearSelection() {
	e.mu.Lock()
	defer e.mu.Unlock()
	clear(e.selection)
}

// Selection returns the selected IDs in a stable order.
func (e *Engine) Selection() []uuid.UUID {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.selectionLocked()
}

func (e *Engine) selectionLocked() []uuid.UUID {
	out := make([]uuid.UUID, 0, len(e.selection))
	for id := range e.selection {
		out = append(out, id)
	}
	slices.SortFunc(out, compareIDs)
	return out
}

// CategorizeSelection categorizes everything selected. The selection is
// cleared when something was categorized.
func (e *Engine) CategorizeSelection(ctx context.Context, categoryID uuid.UUID) (Outcome, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.categorizeLocked(ctx, e.selectionLocked(), categoryID)
}
