// Package budget derives per-category budgeted, spent and left amounts from
// the current categories, transactions and monthly income assumption.
//
// The functions in this file are pure. Aggregator wraps them with caching
// and change detection.
package budget

import (
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"ssmartr/internal/core"
)

// Stats are the three budget figures for one category, in major units.
type Stats struct {
	Budgeted decimal.Decimal
	Spent    decimal.Decimal
	Left     decimal.Decimal
}

// Overspent reports whether spending exceeded the allocation.
func (s Stats) Overspent() bool {
	return s.Left.IsNegative()
}

func (s Stats) add(o Stats) Stats {
	return Stats{
		Budgeted: s.Budgeted.Add(o.Budgeted),
		Spent:    s.Spent.Add(o.Spent),
		Left:     s.Left.Add(o.Left),
	}
}

// CategoryStats pairs a category with its figures. SpendCount is the number
// of spend transactions that contributed to Spent.
type CategoryStats struct {
	Category   core.Category
	Stats      Stats
	SpendCount int
}

// Budgeted is income times the category's percent fraction, rounded to cents.
func Budgeted(income decimal.Decimal, percent float64) decimal.Decimal {
	return income.Mul(decimal.NewFromFloat(percent)).Round(2)
}

// StatsFor computes the figures for c over the full transaction set. Income
// transactions never count as spend, even when categorized. Spend is summed
// in decimal so totals beyond the int64 cent range stay exact.
func StatsFor(c core.Category, txs []core.Transaction, income decimal.Decimal) Stats {
	spent := decimal.Zero
	for _, t := range txs {
		if t.IsSpend() && t.InCategory(c.ID) {
			spent = spent.Add(t.Amount().AbsMajor())
		}
	}
	return statsFromSpent(c, spent, income)
}

func statsFromSpent(c core.Category, spent, income decimal.Decimal) Stats {
	budgeted := Budgeted(income, c.Percent)
	return Stats{
		Budgeted: budgeted,
		Spent:    spent,
		Left:     budgeted.Sub(spent),
	}
}

// Overview computes stats for every category, in the order given. Spend
// pointing at a category that is not in cats is counted nowhere.
func Overview(cats []core.Category, txs []core.Transaction, income decimal.Decimal) []CategoryStats {
	type acc struct {
		spent decimal.Decimal
		count int
	}
	spend := make(map[uuid.UUID]acc, len(cats))
	for _, t := range txs {
		if !t.IsSpend() || t.CategoryID == nil {
			continue
		}
		a := spend[*t.CategoryID]
		a.spent = a.spent.Add(t.Amount().AbsMajor())
		a.count++
		spend[*t.CategoryID] = a
	}

	out := make([]CategoryStats, 0, len(cats))
	for _, c := range cats {
		a := spend[c.ID]
		out = append(out, CategoryStats{
			Category:   c,
			Stats:      statsFromSpent(c, a.spent, income),
			SpendCount: a.count,
		})
	}
	return out
}

// Totals sums the figures of every category.
func Totals(stats []CategoryStats) Stats {
	total := Stats{Budgeted: decimal.Zero, Spent: decimal.Zero, Left: decimal.Zero}
	for _, s := range stats {
		total = total.add(s.Stats)
	}
	return total
}

// Signature is a stable fingerprint of which transaction sits in which
// category: the sorted join of "id:categoryID" pairs. It changes on any
// categorization, even when the collection size does not.
func Signature(txs []core.Transaction) string {
	pairs := make([]string, len(txs))
	for i, t := range txs {
		pairs[i] = t.ID.String() + ":" + t.CategoryKey()
	}
	slices.Sort(pairs)
	return strings.Join(pairs, ",")
}

// categoriesKey fingerprints every displayed category field, so edits that
// bypass the notifier still show up in the next snapshot.
func categoriesKey(cats []core.Category) string {
	var b strings.Builder
	for _, c := range cats {
		b.WriteString(c.ID.String())
		b.WriteByte('|')
		b.WriteString(c.Name)
		b.WriteByte('|')
		b.WriteString(c.Emoji)
		b.WriteByte('|')
		b.WriteString(c.ColorHex)
		b.WriteByte('|')
		b.WriteString(decimal.NewFromFloat(c.Percent).String())
		b.WriteByte(';')
	}
	return b.String()
}
