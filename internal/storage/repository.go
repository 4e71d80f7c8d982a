package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"ssmartr/internal/core"
	"ssmartr/internal/store"

	_ "modernc.org/sqlite"
)

// SQLiteRepository is the durable entity store. Staged ops are written in a
// single transaction on Save.
type SQLiteRepository struct {
	store.Changeset

	db     *sql.DB
	dbPath string
}

var _ store.Store = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	// Run migrations
	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db, dbPath: dbPath}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// SchemaVersion reports the migration version of the open database.
func (r *SQLiteRepository) SchemaVersion() (uint, bool, error) {
	return SchemaVersion(r.dbPath)
}

// Ping is used by the readiness probe.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

const categoryColumns = `id, name, emoji, color_hex, percent, created_at`

const transactionColumns = `id, plaid_transaction_id, account_id, vendor, amount_cents,
	transaction_date, posted_date, card_name, address, latitude, longitude, source,
	category_id, is_ignored, created_at`

// FetchCategories implements store.CategoryReader
func (r *SQLiteRepository) FetchCategories(ctx context.Context, q store.CategoryQuery) ([]core.Category, error) {
	query := `SELECT ` + categoryColumns + ` FROM categories`
	var args []any
	if len(q.IDs) > 0 {
		query += ` WHERE id IN (` + placeholders(len(q.IDs)) + `)`
		args = appendIDs(args, q.IDs)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query categories: %w", err)
	}
	defer rows.Close()

	var cats []core.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		cats = append(cats, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate categories: %w", err)
	}
	return q.Apply(cats), nil
}

// FetchTransactions implements store.TransactionReader. Indexed predicates
// are pushed into SQL; search, ordering and limit go through the shared
// query so every backend returns the same result.
func (r *SQLiteRepository) FetchTransactions(ctx context.Context, q store.TransactionQuery) ([]core.Transaction, error) {
	var (
		where []string
		args  []any
	)
	if len(q.IDs) > 0 {
		where = append(where, `id IN (`+placeholders(len(q.IDs))+`)`)
		args = appendIDs(args, q.IDs)
	}
	if q.Uncategorized {
		where = append(where, `category_id IS NULL`)
	}
	if q.CategoryID != nil {
		where = append(where, `category_id = ?`)
		args = append(args, q.CategoryID.String())
	}
	if q.Ignored != nil {
		where = append(where, `COALESCE(is_ignored, 0) = ?`)
		args = append(args, boolToInt(*q.Ignored))
	}
	if q.MinCents != nil {
		where = append(where, `amount_cents >= ?`)
		args = append(args, *q.MinCents)
	}
	if q.MaxCents != nil {
		where = append(where, `amount_cents <= ?`)
		args = append(args, *q.MaxCents)
	}

	query := `SELECT ` + transactionColumns + ` FROM transactions`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, ` AND `)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	var txs []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txs = append(txs, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return q.Apply(txs), nil
}

// FetchAccounts implements store.AccountReader
func (r *SQLiteRepository) FetchAccounts(ctx context.Context) ([]core.BankAccount, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, plaid_account_id, institution_name, display_name,
		mask, type, is_active FROM bank_accounts ORDER BY display_name, id`)
	if err != nil {
		return nil, fmt.Errorf("query accounts: %w", err)
	}
	defer rows.Close()

	var accounts []core.BankAccount
	for rows.Next() {
		var (
			a      core.BankAccount
			id     string
			active int64
		)
		if err := rows.Scan(&id, &a.PlaidAccountID, &a.InstitutionName, &a.DisplayName,
			&a.Mask, &a.Type, &active); err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		if a.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("parse account id %q: %w", id, err)
		}
		a.IsActive = active != 0
		accounts = append(accounts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate accounts: %w", err)
	}
	return accounts, nil
}

// Save implements store.Saver. The staged ops are drained before writing,
// so a failed save leaves nothing behind to retry.
func (r *SQLiteRepository) Save(ctx context.Context) error {
	ops := r.Take()
	if len(ops) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	for i, op := range ops {
		if err := applyOp(ctx, tx, op); err != nil {
			return fmt.Errorf("save op %d (%s %s): %w", i, op.Kind, op.EntityID(), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	slog.DebugContext(ctx, "Changeset saved to SQLite", "ops", len(ops))
	return nil
}

func applyOp(ctx context.Context, tx *sql.Tx, op store.Op) error {
	var (
		res      sql.Result
		err      error
		notFound error
	)
	switch {
	case op.Category != nil:
		notFound = core.ErrCategoryNotFound
		res, err = execCategory(ctx, tx, op.Kind, *op.Category)
	case op.Transaction != nil:
		notFound = core.ErrTransactionNotFound
		res, err = execTransaction(ctx, tx, op.Kind, *op.Transaction)
	case op.Account != nil:
		notFound = store.ErrAccountNotFound
		res, err = execAccount(ctx, tx, op.Kind, *op.Account)
	default:
		return errors.New("empty op")
	}
	if err != nil {
		if op.Kind == store.OpInsert && isUniqueViolation(err) {
			return store.ErrDuplicateID
		}
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return notFound
	}
	return nil
}

func execCategory(ctx context.Context, tx *sql.Tx, kind store.OpKind, c core.Category) (sql.Result, error) {
	switch kind {
	case store.OpInsert:
		return tx.ExecContext(ctx, `INSERT INTO categories (`+categoryColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
			c.ID.String(), c.Name, c.Emoji, c.ColorHex, c.Percent, formatTime(c.CreatedAt))
	case store.OpUpdate:
		return tx.ExecContext(ctx, `UPDATE categories SET name = ?, emoji = ?, color_hex = ?, percent = ?,
			created_at = ? WHERE id = ?`,
			c.Name, c.Emoji, c.ColorHex, c.Percent, formatTime(c.CreatedAt), c.ID.String())
	default:
		return tx.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, c.ID.String())
	}
}

func execTransaction(ctx context.Context, tx *sql.Tx, kind store.OpKind, t core.Transaction) (sql.Result, error) {
	switch kind {
	case store.OpInsert:
		return tx.ExecContext(ctx, `INSERT INTO transactions (`+transactionColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			t.ID.String(), t.PlaidTransactionID, t.AccountID, t.Vendor, t.AmountCents,
			formatTime(t.TransactionDate), nullTime(t.PostedDate), t.CardName, t.Address,
			t.Latitude, t.Longitude, t.Source, nullUUID(t.CategoryID), nullBool(t.IsIgnored),
			formatTime(t.CreatedAt))
	case store.OpUpdate:
		return tx.ExecContext(ctx, `UPDATE transactions SET plaid_transaction_id = ?, account_id = ?,
			vendor = ?, amount_cents = ?, transaction_date = ?, posted_date = ?, card_name = ?,
			address = ?, latitude = ?, longitude = ?, source = ?, category_id = ?, is_ignored = ?,
			created_at = ? WHERE id = ?`,
			t.PlaidTransactionID, t.AccountID, t.Vendor, t.AmountCents,
			formatTime(t.TransactionDate), nullTime(t.PostedDate), t.CardName, t.Address,
			t.Latitude, t.Longitude, t.Source, nullUUID(t.CategoryID), nullBool(t.IsIgnored),
			formatTime(t.CreatedAt), t.ID.String())
	default:
		return tx.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, t.ID.String())
	}
}

func execAccount(ctx context.Context, tx *sql.Tx, kind store.OpKind, a core.BankAccount) (sql.Result, error) {
	switch kind {
	case store.OpInsert:
		return tx.ExecContext(ctx, `INSERT INTO bank_accounts (id, plaid_account_id, institution_name,
			display_name, mask, type, is_active) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			a.ID.String(), a.PlaidAccountID, a.InstitutionName, a.DisplayName, a.Mask, a.Type,
			boolToInt(a.IsActive))
	case store.OpUpdate:
		return tx.ExecContext(ctx, `UPDATE bank_accounts SET plaid_account_id = ?, institution_name = ?,
			display_name = ?, mask = ?, type = ?, is_active = ? WHERE id = ?`,
			a.PlaidAccountID, a.InstitutionName, a.DisplayName, a.Mask, a.Type,
			boolToInt(a.IsActive), a.ID.String())
	default:
		return tx.ExecContext(ctx, `DELETE FROM bank_accounts WHERE id = ?`, a.ID.String())
	}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCategory(s scanner) (core.Category, error) {
	var (
		c         core.Category
		id        string
		createdAt string
	)
	if err := s.Scan(&id, &c.Name, &c.Emoji, &c.ColorHex, &c.Percent, &createdAt); err != nil {
		return c, fmt.Errorf("scan category: %w", err)
	}
	var err error
	if c.ID, err = uuid.Parse(id); err != nil {
		return c, fmt.Errorf("parse category id %q: %w", id, err)
	}
	if c.CreatedAt, err = parseTime(createdAt); err != nil {
		return c, fmt.Errorf("parse category created_at: %w", err)
	}
	return c, nil
}

func scanTransaction(s scanner) (core.Transaction, error) {
	var (
		t                    core.Transaction
		id                   string
		txDate, createdAt    string
		postedDate, category sql.NullString
		plaidID, accountID   sql.NullString
		cardName, address    sql.NullString
		source               sql.NullString
		latitude, longitude  sql.NullFloat64
		ignored              sql.NullInt64
	)
	if err := s.Scan(&id, &plaidID, &accountID, &t.Vendor, &t.AmountCents, &txDate, &postedDate,
		&cardName, &address, &latitude, &longitude, &source, &category, &ignored, &createdAt); err != nil {
		return t, fmt.Errorf("scan transaction: %w", err)
	}

	var err error
	if t.ID, err = uuid.Parse(id); err != nil {
		return t, fmt.Errorf("parse transaction id %q: %w", id, err)
	}
	if t.TransactionDate, err = parseTime(txDate); err != nil {
		return t, fmt.Errorf("parse transaction_date: %w", err)
	}
	if t.CreatedAt, err = parseTime(createdAt); err != nil {
		return t, fmt.Errorf("parse created_at: %w", err)
	}
	if postedDate.Valid {
		pd, err := parseTime(postedDate.String)
		if err != nil {
			return t, fmt.Errorf("parse posted_date: %w", err)
		}
		t.PostedDate = &pd
	}
	if category.Valid {
		cid, err := uuid.Parse(category.String)
		if err != nil {
			return t, fmt.Errorf("parse category_id %q: %w", category.String, err)
		}
		t.CategoryID = &cid
	}
	if ignored.Valid {
		t.IsIgnored = core.Ptr(ignored.Int64 != 0)
	}
	t.PlaidTransactionID = stringPtr(plaidID)
	t.AccountID = stringPtr(accountID)
	t.CardName = stringPtr(cardName)
	t.Address = stringPtr(address)
	t.Source = stringPtr(source)
	if latitude.Valid {
		t.Latitude = core.Ptr(latitude.Float64)
	}
	if longitude.Valid {
		t.Longitude = core.Ptr(longitude.Float64)
	}
	return t, nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func appendIDs(args []any, ids []uuid.UUID) []any {
	for _, id := range ids {
		args = append(args, id.String())
	}
	return args
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

func nullUUID(id *uuid.UUID) any {
	if id == nil {
		return nil
	}
	return id.String()
}

func nullBool(b *bool) any {
	if b == nil {
		return nil
	}
	return boolToInt(*b)
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

func stringPtr(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	return &s.String
}

func isUniqueViolation(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "PRIMARY KEY")
}
