package sheets

import (
	"time"

	"github.com/shopspring/decimal"

	"ssmartr/internal/budget"
)

// OverviewHeader is the first row of every exported overview.
var OverviewHeader = []any{"Emoji", "Category", "Percent", "Budgeted", "Spent", "Left", "Transactions"}

// OverviewTable renders s as rows: the header, one row per category in
// snapshot order, then a totals row. Amounts are major units.
func OverviewTable(s budget.Snapshot) [][]any {
	rows := make([][]any, 0, len(s.Categories)+2)
	rows = append(rows, OverviewHeader)

	var points float64
	var spendCount int
	for _, cs := range s.Categories {
		points += cs.Category.PercentPoints()
		spendCount += cs.SpendCount
		rows = append(rows, []any{
			cs.Category.Emoji,
			cs.Category.Name,
			cs.Category.PercentPoints(),
			amount(cs.Stats.Budgeted),
			amount(cs.Stats.Spent),
			amount(cs.Stats.Left),
			cs.SpendCount,
		})
	}
	rows = append(rows, []any{
		"", "Total", points,
		amount(s.Totals.Budgeted),
		amount(s.Totals.Spent),
		amount(s.Totals.Left),
		spendCount,
	})
	return rows
}

// OverviewMeta is the key/value block written next to the table.
func OverviewMeta(s budget.Snapshot) [][]any {
	return [][]any{
		{"Version", s.Version},
		{"Monthly income", amount(s.Income)},
		{"Uncategorized", s.Uncategorized},
		{"Updated", s.ComputedAt.UTC().Format(time.RFC3339)},
	}
}

func amount(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}
