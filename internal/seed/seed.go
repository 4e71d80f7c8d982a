package seed

import (
	"context"
	"fmt"

	"ssmartr/internal/log"
	"ssmartr/internal/store"
)

// SeedIfEmpty inserts ds and saves, but only when the store holds no
// categories, transactions or accounts yet. It reports whether anything was
// written.
func SeedIfEmpty(ctx context.Context, st store.Store, ds Dataset, logger *log.Logger) (bool, error) {
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentSeed)

	empty, err := isEmpty(ctx, st)
	if err != nil {
		return false, err
	}
	if !empty {
		logger.DebugContext(ctx, "Store already seeded")
		return false, nil
	}

	for _, c := range ds.Categories {
		st.InsertCategory(c)
	}
	for _, a := range ds.Accounts {
		st.InsertAccount(a)
	}
	for _, t := range ds.Transactions {
		st.InsertTransaction(t)
	}

	if err := st.Save(ctx); err != nil {
		logger.LogError(ctx, "Seeding failed", err, log.OpSeed, nil)
		return false, fmt.Errorf("save seed data: %w", err)
	}

	logger.InfoContext(ctx, "Seeded store",
		"categories", len(ds.Categories),
		log.FieldTransactionCnt, len(ds.Transactions),
		"accounts", len(ds.Accounts))
	return true, nil
}

func isEmpty(ctx context.Context, st store.Store) (bool, error) {
	cats, err := st.FetchCategories(ctx, store.CategoryQuery{})
	if err != nil {
		return false, fmt.Errorf("check existing categories: %w", err)
	}
	if len(cats) > 0 {
		return false, nil
	}
	txs, err := st.FetchTransactions(ctx, store.TransactionQuery{Limit: 1})
	if err != nil {
		return false, fmt.Errorf("check existing transactions: %w", err)
	}
	if len(txs) > 0 {
		return false, nil
	}
	accounts, err := st.FetchAccounts(ctx)
	if err != nil {
		return false, fmt.Errorf("check existing accounts: %w", err)
	}
	return len(accounts) == 0, nil
}
