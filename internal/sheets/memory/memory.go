// Package memory is an in-process OverviewWriter, used when no spreadsheet
// is configured and in tests.
package memory

import (
	"context"
	"sync"

	"ssmartr/internal/budget"
	"ssmartr/internal/sheets"
)

type Writer struct {
	mu     sync.Mutex
	writes int
	last   [][]any
	meta   [][]any
}

var _ sheets.OverviewWriter = (*Writer)(nil)

func New() *Writer {
	return &Writer{}
}

// WriteOverview keeps the rendered table of s.
func (w *Writer) WriteOverview(ctx context.Context, s budget.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.writes++
	w.last = sheets.OverviewTable(s)
	w.meta = sheets.OverviewMeta(s)
	return nil
}

// Last returns the most recently written table.
func (w *Writer) Last() ([][]any, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.last, w.writes > 0
}

// Meta returns the most recently written metadata block.
func (w *Writer) Meta() [][]any {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.meta
}

func (w *Writer) Writes() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.writes
}
