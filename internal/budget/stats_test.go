package budget

import (
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"ssmartr/internal/core"
)

var testIncome = decimal.RequireFromString("5000.00")

func tx(cents int64, cat *uuid.UUID) core.Transaction {
	return core.Transaction{
		ID:              uuid.New(),
		Vendor:          "v",
		AmountCents:     cents,
		TransactionDate: time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC),
		CategoryID:      cat,
	}
}

func TestStatsFor(t *testing.T) {
	food := core.NewCategory("Food", "🍔", "#FF8A65", 0.30, time.Now())
	other := uuid.New()

	tests := []struct {
		name         string
		txs          []core.Transaction
		wantSpent    string
		wantLeft     string
		wantOverdraw bool
	}{
		{name: "no transactions", wantSpent: "0", wantLeft: "1500"},
		{
			name:      "spend in category",
			txs:       []core.Transaction{tx(-1299, &food.ID), tx(-645, &food.ID)},
			wantSpent: "19.44",
			wantLeft:  "1480.56",
		},
		{
			name:      "income excluded",
			txs:       []core.Transaction{tx(-1000, &food.ID), tx(420000, &food.ID)},
			wantSpent: "10",
			wantLeft:  "1490",
		},
		{
			name:      "other categories and uncategorized ignored",
			txs:       []core.Transaction{tx(-5000, &other), tx(-7000, nil)},
			wantSpent: "0",
			wantLeft:  "1500",
		},
		{
			name:         "overspent",
			txs:          []core.Transaction{tx(-160000, &food.ID)},
			wantSpent:    "1600",
			wantLeft:     "-100",
			wantOverdraw: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := StatsFor(food, tt.txs, testIncome)
			if !got.Budgeted.Equal(decimal.RequireFromString("1500")) {
				t.Errorf("Budgeted = %s, want 1500", got.Budgeted)
			}
			if !got.Spent.Equal(decimal.RequireFromString(tt.wantSpent)) {
				t.Errorf("Spent = %s, want %s", got.Spent, tt.wantSpent)
			}
			if !got.Left.Equal(decimal.RequireFromString(tt.wantLeft)) {
				t.Errorf("Left = %s, want %s", got.Left, tt.wantLeft)
			}
			if got.Overspent() != tt.wantOverdraw {
				t.Errorf("Overspent() = %v", got.Overspent())
			}
		})
	}
}

func TestStatsForExtremeAmounts(t *testing.T) {
	food := core.NewCategory("Food", "🍔", "#FF8A65", 0.30, time.Now())
	half := -(int64(math.MaxInt64/2) + 10)

	tests := []struct {
		name      string
		txs       []core.Transaction
		wantSpent string
	}{
		{
			name:      "sum beyond int64 cents",
			txs:       []core.Transaction{tx(half, &food.ID), tx(half, &food.ID)},
			wantSpent: "92233720368547758.26",
		},
		{
			name:      "most negative amount",
			txs:       []core.Transaction{tx(math.MinInt64, &food.ID)},
			wantSpent: "92233720368547758.08",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := StatsFor(food, tt.txs, testIncome)
			if !got.Spent.Equal(decimal.RequireFromString(tt.wantSpent)) {
				t.Errorf("Spent = %s, want %s", got.Spent, tt.wantSpent)
			}
			if !got.Overspent() || !got.Left.IsNegative() {
				t.Errorf("Left = %s, want overspent", got.Left)
			}
			overview := Overview([]core.Category{food}, tt.txs, testIncome)
			if !overview[0].Stats.Spent.Equal(got.Spent) {
				t.Errorf("Overview spent = %s, StatsFor %s", overview[0].Stats.Spent, got.Spent)
			}
		})
	}
}

func TestStatsForIsDeterministic(t *testing.T) {
	food := core.NewCategory("Food", "🍔", "#FF8A65", 0.1234, time.Now())
	txs := []core.Transaction{tx(-333, &food.ID), tx(-1, &food.ID), tx(77, &food.ID)}

	first := StatsFor(food, txs, testIncome)
	for i := 0; i < 10; i++ {
		again := StatsFor(food, txs, testIncome)
		if !again.Budgeted.Equal(first.Budgeted) || !again.Spent.Equal(first.Spent) || !again.Left.Equal(first.Left) {
			t.Fatalf("run %d differs: %+v vs %+v", i, again, first)
		}
	}
}

func TestBudgetedRoundsToCents(t *testing.T) {
	got := Budgeted(decimal.RequireFromString("1000"), 1.0/3)
	if !got.Equal(decimal.RequireFromString("333.33")) {
		t.Errorf("Budgeted = %s, want 333.33", got)
	}
}

func TestOverviewMatchesStatsFor(t *testing.T) {
	now := time.Now()
	cats := []core.Category{
		core.NewCategory("Food", "🍔", "#FF8A65", 0.30, now),
		core.NewCategory("Fun", "🎮", "#81C784", 0.10, now.Add(time.Millisecond)),
	}
	dangling := uuid.New()
	txs := []core.Transaction{
		tx(-1299, &cats[0].ID),
		tx(-2999, &cats[1].ID),
		tx(-1599, &cats[1].ID),
		tx(-9999, &dangling),
		tx(5000, &cats[1].ID),
	}

	overview := Overview(cats, txs, testIncome)
	if len(overview) != 2 || overview[0].Category.ID != cats[0].ID {
		t.Fatalf("Overview() order = %v", overview)
	}
	for _, cs := range overview {
		want := StatsFor(cs.Category, txs, testIncome)
		if !cs.Stats.Spent.Equal(want.Spent) || !cs.Stats.Left.Equal(want.Left) {
			t.Errorf("%s: overview %+v, StatsFor %+v", cs.Category.Name, cs.Stats, want)
		}
	}
	if overview[1].SpendCount != 2 {
		t.Errorf("Fun SpendCount = %d, want 2", overview[1].SpendCount)
	}

	total := Totals(overview)
	if !total.Spent.Equal(decimal.RequireFromString("58.97")) {
		t.Errorf("total spent = %s; dangling spend must not count", total.Spent)
	}
	if !total.Budgeted.Equal(decimal.RequireFromString("2000")) {
		t.Errorf("total budgeted = %s", total.Budgeted)
	}
}

func TestSignature(t *testing.T) {
	cat := uuid.New()
	a, b := tx(-1, nil), tx(-2, nil)

	s1 := Signature([]core.Transaction{a, b})
	if s2 := Signature([]core.Transaction{b, a}); s1 != s2 {
		t.Errorf("signature depends on order")
	}

	// In-place categorization keeps the count but changes the signature.
	a.CategoryID = &cat
	if s3 := Signature([]core.Transaction{a, b}); s3 == s1 {
		t.Errorf("signature did not change after categorizing")
	}
	if Signature(nil) != "" {
		t.Errorf("empty signature should be empty")
	}
}
