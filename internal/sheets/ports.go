// Package sheets exports the budget overview to spreadsheet backends.
package sheets

import (
	"context"

	"ssmartr/internal/budget"
)

// Ports for outbound adapters.
type (
	// OverviewWriter replaces the exported overview with s.
	OverviewWriter interface {
		WriteOverview(ctx context.Context, s budget.Snapshot) error
	}
)
