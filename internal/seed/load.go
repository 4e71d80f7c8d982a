package seed

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"ssmartr/internal/core"
)

// File format for SEED_FILE imports. Amounts are signed decimal strings in
// major units ("-12.34"); categories can be referenced by name or id.
type (
	fileDataset struct {
		Categories   []fileCategory    `json:"categories"`
		Transactions []fileTransaction `json:"transactions"`
		Accounts     []fileAccount     `json:"accounts"`
	}

	fileCategory struct {
		ID       string  `json:"id"`
		Name     string  `json:"name"`
		Emoji    string  `json:"emoji"`
		ColorHex string  `json:"color_hex"`
		Percent  float64 `json:"percent"`
	}

	fileTransaction struct {
		ID              string   `json:"id"`
		Vendor          string   `json:"vendor"`
		Amount          string   `json:"amount"`
		TransactionDate string   `json:"transaction_date"`
		PostedDate      string   `json:"posted_date"`
		CardName        string   `json:"card_name"`
		Address         string   `json:"address"`
		Latitude        *float64 `json:"latitude"`
		Longitude       *float64 `json:"longitude"`
		Source          string   `json:"source"`
		AccountID       string   `json:"account_id"`
		Category        string   `json:"category"`
		Ignored         *bool    `json:"ignored"`
	}

	fileAccount struct {
		ID              string `json:"id"`
		PlaidAccountID  string `json:"plaid_account_id"`
		InstitutionName string `json:"institution_name"`
		DisplayName     string `json:"display_name"`
		Mask            string `json:"mask"`
		Type            string `json:"type"`
		Active          *bool  `json:"active"`
	}
)

var ErrInvalidDataset = errors.New("invalid dataset")

// LoadDataset reads a JSON dataset from path.
func LoadDataset(path string, now time.Time) (Dataset, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Dataset{}, fmt.Errorf("read dataset: %w", err)
	}
	return ParseDataset(raw, now)
}

// ParseDataset converts the JSON form into domain entities. Every record is
// validated; the first problem aborts the import.
func ParseDataset(raw []byte, now time.Time) (Dataset, error) {
	var f fileDataset
	if err := json.Unmarshal(raw, &f); err != nil {
		return Dataset{}, fmt.Errorf("%w: %v", ErrInvalidDataset, err)
	}

	var ds Dataset
	refs := map[string]uuid.UUID{}

	for i, fc := range f.Categories {
		id, err := idOrNew(fc.ID)
		if err != nil {
			return Dataset{}, fmt.Errorf("%w: category %d: %v", ErrInvalidDataset, i, err)
		}
		c := core.Category{
			ID:        id,
			Name:      strings.TrimSpace(fc.Name),
			Emoji:     fc.Emoji,
			ColorHex:  fc.ColorHex,
			Percent:   fc.Percent,
			CreatedAt: now.Add(time.Duration(i) * time.Millisecond),
		}
		if err := c.Validate(); err != nil {
			return Dataset{}, fmt.Errorf("%w: category %d: %v", ErrInvalidDataset, i, err)
		}
		refs[strings.ToLower(c.Name)] = c.ID
		refs[c.ID.String()] = c.ID
		ds.Categories = append(ds.Categories, c)
	}

	for i, fa := range f.Accounts {
		id, err := idOrNew(fa.ID)
		if err != nil {
			return Dataset{}, fmt.Errorf("%w: account %d: %v", ErrInvalidDataset, i, err)
		}
		active := true
		if fa.Active != nil {
			active = *fa.Active
		}
		ds.Accounts = append(ds.Accounts, core.BankAccount{
			ID:              id,
			PlaidAccountID:  fa.PlaidAccountID,
			InstitutionName: fa.InstitutionName,
			DisplayName:     fa.DisplayName,
			Mask:            fa.Mask,
			Type:            fa.Type,
			IsActive:        active,
		})
	}

	for i, ft := range f.Transactions {
		t, err := ft.toTransaction(refs, now)
		if err != nil {
			return Dataset{}, fmt.Errorf("%w: transaction %d: %v", ErrInvalidDataset, i, err)
		}
		ds.Transactions = append(ds.Transactions, t)
	}

	return ds, nil
}

func (ft fileTransaction) toTransaction(refs map[string]uuid.UUID, now time.Time) (core.Transaction, error) {
	id, err := idOrNew(ft.ID)
	if err != nil {
		return core.Transaction{}, err
	}
	cents, err := core.ParseDecimalToCents(ft.Amount)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("amount %q: %w", ft.Amount, err)
	}
	txDate, err := parseDate(ft.TransactionDate)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("transaction_date: %w", err)
	}

	t := core.Transaction{
		ID:              id,
		Vendor:          strings.TrimSpace(ft.Vendor),
		AmountCents:     cents,
		TransactionDate: txDate,
		CardName:        optional(ft.CardName),
		Address:         optional(ft.Address),
		Latitude:        ft.Latitude,
		Longitude:       ft.Longitude,
		Source:          optional(ft.Source),
		AccountID:       optional(ft.AccountID),
		IsIgnored:       ft.Ignored,
		CreatedAt:       now,
	}
	if ft.PostedDate != "" {
		pd, err := parseDate(ft.PostedDate)
		if err != nil {
			return core.Transaction{}, fmt.Errorf("posted_date: %w", err)
		}
		t.PostedDate = &pd
	}
	if ref := strings.TrimSpace(ft.Category); ref != "" {
		cid, ok := refs[strings.ToLower(ref)]
		if !ok {
			return core.Transaction{}, fmt.Errorf("unknown category %q", ref)
		}
		t.CategoryID = &cid
	}
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	return t, nil
}

func idOrNew(s string) (uuid.UUID, error) {
	if strings.TrimSpace(s) == "" {
		return uuid.New(), nil
	}
	return uuid.Parse(s)
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse(time.DateOnly, s)
}

func optional(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}
