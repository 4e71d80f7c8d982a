package http

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"ssmartr/internal/budget"
	"ssmartr/internal/categorize"
	"ssmartr/internal/core"
)

// JSON shapes served by the API. Domain types stay free of wire tags.

type categoryView struct {
	ID            uuid.UUID `json:"id"`
	Name          string    `json:"name"`
	Emoji         string    `json:"emoji"`
	ColorHex      string    `json:"color_hex"`
	Percent       float64   `json:"percent"`
	PercentPoints float64   `json:"percent_points"`
	CreatedAt     time.Time `json:"created_at"`
}

func toCategoryView(c core.Category) categoryView {
	return categoryView{
		ID:            c.ID,
		Name:          c.Name,
		Emoji:         c.Emoji,
		ColorHex:      c.ColorHex,
		Percent:       c.Percent,
		PercentPoints: c.PercentPoints(),
		CreatedAt:     c.CreatedAt,
	}
}

type transactionView struct {
	ID              uuid.UUID  `json:"id"`
	Vendor          string     `json:"vendor"`
	AmountCents     int64      `json:"amount_cents"`
	Amount          string     `json:"amount"`
	TransactionDate time.Time  `json:"transaction_date"`
	PostedDate      *time.Time `json:"posted_date,omitempty"`
	DisplayDate     time.Time  `json:"display_date"`
	AccountID       *string    `json:"account_id,omitempty"`
	CardName        *string    `json:"card_name,omitempty"`
	Address         *string    `json:"address,omitempty"`
	Latitude        *float64   `json:"latitude,omitempty"`
	Longitude       *float64   `json:"longitude,omitempty"`
	Source          *string    `json:"source,omitempty"`
	CategoryID      *uuid.UUID `json:"category_id"`
	Ignored         bool       `json:"ignored"`
}

func toTransactionView(t core.Transaction) transactionView {
	return transactionView{
		ID:              t.ID,
		Vendor:          t.Vendor,
		AmountCents:     t.AmountCents,
		Amount:          t.Amount().String(),
		TransactionDate: t.TransactionDate,
		PostedDate:      t.PostedDate,
		DisplayDate:     t.DisplayDate(),
		AccountID:       t.AccountID,
		CardName:        t.CardName,
		Address:         t.Address,
		Latitude:        t.Latitude,
		Longitude:       t.Longitude,
		Source:          t.Source,
		CategoryID:      t.CategoryID,
		Ignored:         t.Ignored(),
	}
}

func toTransactionViews(txs []core.Transaction) []transactionView {
	out := make([]transactionView, 0, len(txs))
	for _, t := range txs {
		out = append(out, toTransactionView(t))
	}
	return out
}

type accountView struct {
	ID              uuid.UUID `json:"id"`
	InstitutionName string    `json:"institution_name"`
	DisplayName     string    `json:"display_name"`
	Mask            string    `json:"mask"`
	Type            string    `json:"type"`
	IsActive        bool      `json:"is_active"`
}

func toAccountView(a core.BankAccount) accountView {
	return accountView{
		ID:              a.ID,
		InstitutionName: a.InstitutionName,
		DisplayName:     a.DisplayName,
		Mask:            a.Mask,
		Type:            a.Type,
		IsActive:        a.IsActive,
	}
}

// Amounts are rendered as fixed two-decimal strings so clients never see
// float rounding.
type statsView struct {
	Budgeted  string `json:"budgeted"`
	Spent     string `json:"spent"`
	Left      string `json:"left"`
	Overspent bool   `json:"overspent"`
}

func toStatsView(s budget.Stats) statsView {
	return statsView{
		Budgeted:  fixed(s.Budgeted),
		Spent:     fixed(s.Spent),
		Left:      fixed(s.Left),
		Overspent: s.Overspent(),
	}
}

func fixed(d decimal.Decimal) string {
	return d.StringFixed(2)
}

type categoryStatsView struct {
	Category   categoryView `json:"category"`
	Stats      statsView    `json:"stats"`
	SpendCount int          `json:"spend_count"`
}

func toCategoryStatsView(cs budget.CategoryStats) categoryStatsView {
	return categoryStatsView{
		Category:   toCategoryView(cs.Category),
		Stats:      toStatsView(cs.Stats),
		SpendCount: cs.SpendCount,
	}
}

type overviewView struct {
	Version          uint64              `json:"version"`
	Income           string              `json:"income"`
	TransactionCount int                 `json:"transaction_count"`
	Uncategorized    int                 `json:"uncategorized"`
	Categories       []categoryStatsView `json:"categories"`
	Totals           statsView           `json:"totals"`
	ComputedAt       time.Time           `json:"computed_at"`
}

func toOverviewView(s budget.Snapshot) overviewView {
	cats := make([]categoryStatsView, 0, len(s.Categories))
	for _, cs := range s.Categories {
		cats = append(cats, toCategoryStatsView(cs))
	}
	return overviewView{
		Version:          s.Version,
		Income:           fixed(s.Income),
		TransactionCount: s.TransactionCount,
		Uncategorized:    s.Uncategorized,
		Categories:       cats,
		Totals:           toStatsView(s.Totals),
		ComputedAt:       s.ComputedAt,
	}
}

type detailView struct {
	categoryStatsView
	Version      uint64            `json:"version"`
	Transactions []transactionView `json:"transactions"`
}

func toDetailView(d budget.Detail) detailView {
	return detailView{
		categoryStatsView: toCategoryStatsView(d.CategoryStats),
		Version:           d.Version,
		Transactions:      toTransactionViews(d.Transactions),
	}
}

type outcomeView struct {
	CategoryID *uuid.UUID  `json:"category_id,omitempty"`
	Requested  int         `json:"requested"`
	Applied    []uuid.UUID `json:"applied"`
	Skipped    bool        `json:"skipped"`
	Persisted  bool        `json:"persisted"`
	Version    uint64      `json:"version,omitempty"`
}

func toOutcomeView(o categorize.Outcome) outcomeView {
	v := outcomeView{
		Requested: o.Requested,
		Applied:   o.Applied,
		Skipped:   o.Skipped,
		Persisted: o.Persisted,
		Version:   o.Version,
	}
	if v.Applied == nil {
		v.Applied = []uuid.UUID{}
	}
	if o.CategoryID != uuid.Nil {
		id := o.CategoryID
		v.CategoryID = &id
	}
	return v
}

type undoView struct {
	Available      bool        `json:"available"`
	CategoryID     *uuid.UUID  `json:"category_id,omitempty"`
	TransactionIDs []uuid.UUID `json:"transaction_ids,omitempty"`
	At             *time.Time  `json:"at,omitempty"`
}

func toUndoView(rec categorize.UndoRecord, ok bool) undoView {
	if !ok {
		return undoView{}
	}
	at := rec.At
	return undoView{
		Available:      true,
		CategoryID:     &rec.CategoryID,
		TransactionIDs: rec.TransactionIDs,
		At:             &at,
	}
}
