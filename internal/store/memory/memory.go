// Package memory is the in-process entity store. It is the default backend
// and the one tests run against.
package memory

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"

	"ssmartr/internal/core"
	"ssmartr/internal/store"
)

type Store struct {
	store.Changeset

	mu       sync.RWMutex
	cats     map[uuid.UUID]core.Category
	txs      map[uuid.UUID]core.Transaction
	accounts map[uuid.UUID]core.BankAccount
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		cats:     map[uuid.UUID]core.Category{},
		txs:      map[uuid.UUID]core.Transaction{},
		accounts: map[uuid.UUID]core.BankAccount{},
	}
}

// FetchCategories returns committed categories matching q.
func (s *Store) FetchCategories(ctx context.Context, q store.CategoryQuery) ([]core.Category, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	all := make([]core.Category, 0, len(s.cats))
	for _, c := range s.cats {
		all = append(all, c)
	}
	s.mu.RUnlock()
	return q.Apply(all), nil
}

// FetchTransactions returns committed transactions matching q.
func (s *Store) FetchTransactions(ctx context.Context, q store.TransactionQuery) ([]core.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	all := make([]core.Transaction, 0, len(s.txs))
	for _, t := range s.txs {
		all = append(all, t)
	}
	s.mu.RUnlock()
	return q.Apply(all), nil
}

func (s *Store) FetchAccounts(ctx context.Context) ([]core.BankAccount, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.BankAccount, 0, len(s.accounts))
	for _, a := range s.accounts {
		out = append(out, a)
	}
	sortAccounts(out)
	return out, nil
}

// Save applies the staged changeset. Ops are replayed on copies of the
// committed maps which replace the originals only if every op succeeded.
// The changeset is drained either way.
func (s *Store) Save(ctx context.Context) error {
	ops := s.Take()
	if len(ops) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cats := maps.Clone(s.cats)
	txs := maps.Clone(s.txs)
	accounts := maps.Clone(s.accounts)

	for i, op := range ops {
		var err error
		switch {
		case op.Category != nil:
			err = apply(cats, op.Kind, op.Category.ID, *op.Category, core.ErrCategoryNotFound)
		case op.Transaction != nil:
			err = apply(txs, op.Kind, op.Transaction.ID, *op.Transaction, core.ErrTransactionNotFound)
		case op.Account != nil:
			err = apply(accounts, op.Kind, op.Account.ID, *op.Account, store.ErrAccountNotFound)
		}
		if err != nil {
			return fmt.Errorf("save op %d (%s %s): %w", i, op.Kind, op.EntityID(), err)
		}
	}

	s.cats, s.txs, s.accounts = cats, txs, accounts
	return nil
}

func apply[T any](m map[uuid.UUID]T, kind store.OpKind, id uuid.UUID, v T, notFound error) error {
	_, exists := m[id]
	switch kind {
	case store.OpInsert:
		if exists {
			return store.ErrDuplicateID
		}
		m[id] = v
	case store.OpUpdate:
		if !exists {
			return notFound
		}
		m[id] = v
	case store.OpDelete:
		if !exists {
			return notFound
		}
		delete(m, id)
	}
	return nil
}

func sortAccounts(accounts []core.BankAccount) {
	slices.SortFunc(accounts, func(a, b core.BankAccount) int {
		if c := strings.Compare(a.DisplayName, b.DisplayName); c != 0 {
			return c
		}
		return strings.Compare(a.ID.String(), b.ID.String())
	})
}
