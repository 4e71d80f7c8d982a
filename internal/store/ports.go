// Package store defines the entity store contract shared by every backend.
//
// Writes are staged and only become visible to fetches after Save. A backend
// applies the staged changes atomically: either all of them land or none do.
package store

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"ssmartr/internal/core"
)

// Ports for the persistence adapters.
type (
	// Stager collects mutations until the next Save.
	Stager interface {
		InsertCategory(c core.Category)
		InsertTransaction(t core.Transaction)
		InsertAccount(a core.BankAccount)
		UpdateCategory(c core.Category)
		UpdateTransaction(t core.Transaction)
		DeleteCategory(c core.Category)
		DeleteTransaction(t core.Transaction)
	}

	CategoryReader interface {
		FetchCategories(ctx context.Context, q CategoryQuery) ([]core.Category, error)
	}

	TransactionReader interface {
		FetchTransactions(ctx context.Context, q TransactionQuery) ([]core.Transaction, error)
	}

	AccountReader interface {
		FetchAccounts(ctx context.Context) ([]core.BankAccount, error)
	}

	// Saver is the durability boundary. Discard drops anything staged.
	Saver interface {
		Save(ctx context.Context) error
		Discard()
	}

	// Store is the full entity store used by the engine and services.
	Store interface {
		Stager
		CategoryReader
		TransactionReader
		AccountReader
		Saver
	}
)

// CategoryByID fetches a single category, returning core.ErrCategoryNotFound
// when it does not exist.
func CategoryByID(ctx context.Context, r CategoryReader, id uuid.UUID) (core.Category, error) {
	cats, err := r.FetchCategories(ctx, CategoryQuery{IDs: []uuid.UUID{id}})
	if err != nil {
		return core.Category{}, err
	}
	if len(cats) == 0 {
		return core.Category{}, core.ErrCategoryNotFound
	}
	return cats[0], nil
}

// TransactionByID fetches a single transaction, returning
// core.ErrTransactionNotFound when it does not exist.
func TransactionByID(ctx context.Context, r TransactionReader, id uuid.UUID) (core.Transaction, error) {
	txs, err := r.FetchTransactions(ctx, TransactionQuery{IDs: []uuid.UUID{id}})
	if err != nil {
		return core.Transaction{}, err
	}
	if len(txs) == 0 {
		return core.Transaction{}, core.ErrTransactionNotFound
	}
	return txs[0], nil
}

var (
	// ErrDuplicateID is returned by Save when an insert reuses an existing ID.
	ErrDuplicateID     = errors.New("duplicate id")
	ErrAccountNotFound = errors.New("account not found")
)
