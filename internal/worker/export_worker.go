// Package worker exports the budget overview whenever the main service
// reports a categorization change over the broker.
package worker

import (
	"context"
	"fmt"
	"sync"

	"ssmartr/internal/amqp"
	"ssmartr/internal/budget"
	"ssmartr/internal/log"
	"ssmartr/internal/notify"
	"ssmartr/internal/sheets"
)

// OverviewSource yields the current overview.
type OverviewSource interface {
	Snapshot(ctx context.Context) (budget.Snapshot, error)
}

// ExportWorker writes the overview to a spreadsheet. Exports whose figures
// match the last successful export are skipped.
type ExportWorker struct {
	source   OverviewSource
	writer   sheets.OverviewWriter
	notifier notify.Publisher
	logger   *log.Logger

	mu   sync.Mutex
	last string
}

// NewExportWorker wires the worker. notifier is the worker's local notifier:
// remote changes are republished on it so the overview cache moves on.
func NewExportWorker(source OverviewSource, writer sheets.OverviewWriter, notifier notify.Publisher, logger *log.Logger) *ExportWorker {
	if logger == nil {
		logger = log.Discard()
	}
	return &ExportWorker{
		source:   source,
		writer:   writer,
		notifier: notifier,
		logger:   logger.WithComponent(log.ComponentWorker),
	}
}

// HandleChange processes one change message from the broker.
func (w *ExportWorker) HandleChange(ctx context.Context, msg *amqp.CategorizationChanged) error {
	w.logger.InfoContext(ctx, "Processing change message",
		"remote_version", msg.Version,
		log.FieldReason, msg.Reason)

	if w.notifier != nil {
		w.notifier.Publish(notify.ReasonRemote)
	}
	if err := w.ExportOverview(ctx); err != nil {
		return fmt.Errorf("export after change: %w", err)
	}
	return nil
}

// ExportOverview writes the current overview unless it is unchanged since
// the last successful export.
func (w *ExportWorker) ExportOverview(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	snap, err := w.source.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("compute overview: %w", err)
	}
	fp := snap.Fingerprint()
	if fp == w.last {
		w.logger.DebugContext(ctx, "Overview unchanged, skipping export", log.FieldVersion, snap.Version)
		return nil
	}

	if err := w.writer.WriteOverview(ctx, snap); err != nil {
		w.logger.LogError(ctx, "Failed to export overview", err, log.OpExport,
			log.NewFields().WithVersion(snap.Version))
		return fmt.Errorf("write overview: %w", err)
	}
	w.last = fp

	w.logger.InfoContext(ctx, "Exported overview",
		log.FieldVersion, snap.Version,
		"categories", len(snap.Categories),
		"uncategorized", snap.Uncategorized)
	return nil
}

// StartupExport forces one export when the worker starts, to recover from
// changes missed while it was down.
func (w *ExportWorker) StartupExport(ctx context.Context) error {
	w.mu.Lock()
	w.last = ""
	w.mu.Unlock()
	return w.ExportOverview(ctx)
}
