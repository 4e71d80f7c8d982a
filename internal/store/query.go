package store

import (
	"bytes"
	"slices"
	"strings"

	"github.com/google/uuid"

	"ssmartr/internal/core"
)

// SortKey selects the field transactions are ordered by.
type SortKey int

const (
	SortByTransactionDate SortKey = iota
	SortByPostedDate              // falls back to the transaction date
	SortByCreatedAt
	SortByAmount
)

// TransactionQuery is a conjunction of optional predicates plus an ordering.
// The zero value matches everything, oldest transaction first.
type TransactionQuery struct {
	IDs           []uuid.UUID
	Uncategorized bool       // CategoryID is nil
	CategoryID    *uuid.UUID // CategoryID equals
	Ignored       *bool      // absent flag counts as false
	Search        string
	MinCents      *int64
	MaxCents      *int64

	SortBy     SortKey
	Descending bool
	Limit      int
}

// QueueQuery is the uncategorized work queue: no category, not ignored,
// newest first, optionally narrowed by search text.
func QueueQuery(search string) TransactionQuery {
	notIgnored := false
	return TransactionQuery{
		Uncategorized: true,
		Ignored:       &notIgnored,
		Search:        search,
		SortBy:        SortByTransactionDate,
		Descending:    true,
	}
}

// InCategoryQuery lists the transactions assigned to a category, newest first.
func InCategoryQuery(id uuid.UUID) TransactionQuery {
	return TransactionQuery{CategoryID: &id, SortBy: SortByTransactionDate, Descending: true}
}

// Match reports whether t satisfies every predicate set on q.
func (q TransactionQuery) Match(t core.Transaction) bool {
	if len(q.IDs) > 0 && !slices.Contains(q.IDs, t.ID) {
		return false
	}
	if q.Uncategorized && t.CategoryID != nil {
		return false
	}
	if q.CategoryID != nil && !t.InCategory(*q.CategoryID) {
		return false
	}
	if q.Ignored != nil && t.Ignored() != *q.Ignored {
		return false
	}
	if q.MinCents != nil && t.AmountCents < *q.MinCents {
		return false
	}
	if q.MaxCents != nil && t.AmountCents > *q.MaxCents {
		return false
	}
	return MatchesSearch(t, q.Search)
}

// MatchesSearch is the free-text filter: a case-insensitive vendor substring,
// or a substring of the absolute amount rendered with two decimals.
// Blank text matches everything.
func MatchesSearch(t core.Transaction, text string) bool {
	text = strings.TrimSpace(text)
	if text == "" {
		return true
	}
	if strings.Contains(strings.ToLower(t.Vendor), strings.ToLower(text)) {
		return true
	}
	return strings.Contains(core.SearchRendering(t.AmountCents), text)
}

// Apply filters, sorts and limits txs, returning a new slice.
func (q TransactionQuery) Apply(txs []core.Transaction) []core.Transaction {
	out := make([]core.Transaction, 0, len(txs))
	for _, t := range txs {
		if q.Match(t) {
			out = append(out, t)
		}
	}
	q.Sort(out)
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out
}

// Sort orders txs by the query's key. Equal keys fall back to the ID so the
// order is stable across backends.
func (q TransactionQuery) Sort(txs []core.Transaction) {
	slices.SortStableFunc(txs, func(a, b core.Transaction) int {
		c := q.compareKey(a, b)
		if q.Descending {
			c = -c
		}
		if c != 0 {
			return c
		}
		return bytes.Compare(a.ID[:], b.ID[:])
	})
}

func (q TransactionQuery) compareKey(a, b core.Transaction) int {
	switch q.SortBy {
	case SortByPostedDate:
		return a.DisplayDate().Compare(b.DisplayDate())
	case SortByCreatedAt:
		return a.CreatedAt.Compare(b.CreatedAt)
	case SortByAmount:
		switch {
		case a.AmountCents < b.AmountCents:
			return -1
		case a.AmountCents > b.AmountCents:
			return 1
		}
		return 0
	default:
		return a.TransactionDate.Compare(b.TransactionDate)
	}
}

// CategoryQuery selects categories, ordered by creation time unless ByName.
type CategoryQuery struct {
	IDs    []uuid.UUID
	ByName bool
}

func (q CategoryQuery) Match(c core.Category) bool {
	return len(q.IDs) == 0 || slices.Contains(q.IDs, c.ID)
}

// Apply filters and sorts cats, returning a new slice.
func (q CategoryQuery) Apply(cats []core.Category) []core.Category {
	out := make([]core.Category, 0, len(cats))
	for _, c := range cats {
		if q.Match(c) {
			out = append(out, c)
		}
	}
	slices.SortStableFunc(out, func(a, b core.Category) int {
		var c int
		if q.ByName {
			c = strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
		} else {
			c = a.CreatedAt.Compare(b.CreatedAt)
		}
		if c != 0 {
			return c
		}
		return bytes.Compare(a.ID[:], b.ID[:])
	})
	return out
}
