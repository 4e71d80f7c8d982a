// Package seed populates an empty store with the starter categories and
// sample transactions, or with a user supplied JSON dataset.
package seed

import (
	"time"

	"github.com/google/uuid"

	"ssmartr/internal/core"
)

// Dataset is a set of entities inserted together.
type Dataset struct {
	Categories   []core.Category
	Transactions []core.Transaction
	Accounts     []core.BankAccount
}

type sample struct {
	vendor   string
	cents    int64
	txAgo    int
	postAgo  int
	card     string
	source   string
	category string // "" = uncategorized
}

var samples = []sample{
	{"Din Tai Fung", -3500, 1, 1, "Chase Sapphire Preferred", "Credit Card", ""},
	{"Trader Joe's", -7200, 2, 2, "Amex Gold", "Credit Card", ""},
	{"Uber", -1899, 0, 0, "Chase Sapphire Preferred", "Credit Card", ""},
	{"Microsoft Paycheck", 420000, 10, 9, "Direct Deposit", "Income", ""},

	{"Chipotle", -1299, 3, 3, "Chase Sapphire Preferred", "Credit Card", "Food"},
	{"Starbucks", -645, 4, 4, "Amex Gold", "Credit Card", "Food"},
	{"Whole Foods", -4890, 5, 5, "Chase Sapphire Preferred", "Credit Card", "Food"},

	{"Uniqlo", -3990, 6, 6, "Amex Gold", "Credit Card", "Shopping"},
	{"Apple Store", -129900, 7, 7, "Chase Sapphire Preferred", "Credit Card", "Shopping"},

	{"Delta Airlines", -32000, 12, 11, "Chase Sapphire Preferred", "Credit Card", "Travel"},
	{"Marriott Hotel", -18900, 14, 13, "Amex Platinum", "Credit Card", "Travel"},

	{"T-Mobile", -7000, 8, 7, "Checking Account", "Checking", "Bills"},
	{"Seattle City Light", -9500, 9, 8, "Checking Account", "Checking", "Bills"},

	{"AMC Theater", -1599, 4, 4, "Chase Sapphire Preferred", "Credit Card", "Fun"},
	{"Steam Games", -2999, 6, 6, "Chase Sapphire Preferred", "Credit Card", "Fun"},
}

// DefaultDataset returns the five starter categories and a sample month of
// transactions relative to now. Four transactions are left uncategorized,
// one of them income.
func DefaultDataset(now time.Time) Dataset {
	cats := []core.Category{
		core.NewCategory("Food", "🍔", "#FF8A65", 0.30, now),
		core.NewCategory("Shopping", "🛍️", "#BA68C8", 0.20, now.Add(time.Millisecond)),
		core.NewCategory("Travel", "✈️", "#4FC3F7", 0.25, now.Add(2*time.Millisecond)),
		core.NewCategory("Bills", "💡", "#FFD54F", 0.15, now.Add(3*time.Millisecond)),
		core.NewCategory("Fun", "🎮", "#81C784", 0.10, now.Add(4*time.Millisecond)),
	}
	byName := make(map[string]uuid.UUID, len(cats))
	for _, c := range cats {
		byName[c.Name] = c.ID
	}

	daysAgo := func(n int) time.Time { return now.AddDate(0, 0, -n) }

	txs := make([]core.Transaction, 0, len(samples))
	for _, s := range samples {
		t := core.Transaction{
			ID:              uuid.New(),
			Vendor:          s.vendor,
			AmountCents:     s.cents,
			TransactionDate: daysAgo(s.txAgo),
			PostedDate:      core.Ptr(daysAgo(s.postAgo)),
			CardName:        core.Ptr(s.card),
			Source:          core.Ptr(s.source),
			CreatedAt:       now,
		}
		if s.category != "" {
			id := byName[s.category]
			t.CategoryID = &id
		}
		txs = append(txs, t)
	}

	return Dataset{Categories: cats, Transactions: txs}
}
