package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"ssmartr/internal/core"
	"ssmartr/internal/store"
)

func newTx(vendor string, cents int64) core.Transaction {
	return core.Transaction{
		ID:              uuid.New(),
		Vendor:          vendor,
		AmountCents:     cents,
		TransactionDate: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestStagedWritesInvisibleUntilSave(t *testing.T) {
	ctx := context.Background()
	s := New()
	tr := newTx("Uber", -1899)
	s.InsertTransaction(tr)

	got, err := s.FetchTransactions(ctx, store.TransactionQuery{})
	if err != nil || len(got) != 0 {
		t.Fatalf("staged insert visible before save: %v %v", got, err)
	}
	if err := s.Save(ctx); err != nil {
		t.Fatalf("Save() = %v", err)
	}
	got, _ = s.FetchTransactions(ctx, store.TransactionQuery{})
	if len(got) != 1 || got[0].ID != tr.ID {
		t.Fatalf("expected saved transaction, got %v", got)
	}
}

func TestSaveIsAtomic(t *testing.T) {
	ctx := context.Background()
	s := New()
	cat := core.NewCategory("Food", "🍔", "#FF8A65", 0.3, time.Now())
	s.InsertCategory(cat)
	if err := s.Save(ctx); err != nil {
		t.Fatalf("Save() = %v", err)
	}

	// The second op fails, so the first must not land either.
	good := newTx("Chipotle", -1299)
	s.InsertTransaction(good)
	s.UpdateTransaction(newTx("ghost", -1))

	err := s.Save(ctx)
	if !errors.Is(err, core.ErrTransactionNotFound) {
		t.Fatalf("Save() error = %v, want ErrTransactionNotFound", err)
	}
	got, _ := s.FetchTransactions(ctx, store.TransactionQuery{})
	if len(got) != 0 {
		t.Fatalf("failed save leaked %d transactions", len(got))
	}
	if s.Pending() != 0 {
		t.Fatalf("failed save must drop the changeset")
	}
}

func TestSaveRejectsDuplicateInsert(t *testing.T) {
	ctx := context.Background()
	s := New()
	tr := newTx("Uber", -1899)
	s.InsertTransaction(tr)
	s.InsertTransaction(tr)
	if err := s.Save(ctx); !errors.Is(err, store.ErrDuplicateID) {
		t.Fatalf("Save() error = %v, want ErrDuplicateID", err)
	}
}

func TestUpdateAndDelete(t *testing.T) {
	ctx := context.Background()
	s := New()
	cat := core.NewCategory("Food", "🍔", "#FF8A65", 0.3, time.Now())
	tr := newTx("Chipotle", -1299)
	s.InsertCategory(cat)
	s.InsertTransaction(tr)
	if err := s.Save(ctx); err != nil {
		t.Fatal(err)
	}

	tr.CategoryID = &cat.ID
	s.UpdateTransaction(tr)
	if err := s.Save(ctx); err != nil {
		t.Fatal(err)
	}
	got, err := store.TransactionByID(ctx, s, tr.ID)
	if err != nil || !got.InCategory(cat.ID) {
		t.Fatalf("update not applied: %+v %v", got, err)
	}

	s.DeleteCategory(cat)
	if err := s.Save(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := store.CategoryByID(ctx, s, cat.ID); !errors.Is(err, core.ErrCategoryNotFound) {
		t.Fatalf("CategoryByID after delete = %v", err)
	}
	// The transaction keeps its dangling reference.
	got, _ = store.TransactionByID(ctx, s, tr.ID)
	if !got.InCategory(cat.ID) {
		t.Fatalf("deleting a category must not rewrite transactions")
	}
}

func TestDiscard(t *testing.T) {
	ctx := context.Background()
	s := New()
	s.InsertAccount(core.BankAccount{ID: uuid.New(), DisplayName: "Checking"})
	s.Discard()
	if err := s.Save(ctx); err != nil {
		t.Fatal(err)
	}
	accounts, _ := s.FetchAccounts(ctx)
	if len(accounts) != 0 {
		t.Fatalf("discarded insert was saved")
	}
}

func TestFetchHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := New().FetchCategories(ctx, store.CategoryQuery{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("FetchCategories() error = %v, want context.Canceled", err)
	}
}
