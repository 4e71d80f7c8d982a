package core

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

type (
	// Category is a budget bucket. Percent is a fraction of monthly income
	// (0.30 means 30%); whole-number points are converted at the edges.
	Category struct {
		ID        uuid.UUID
		Name      string
		Emoji     string
		ColorHex  string
		Percent   float64
		CreatedAt time.Time
	}

	// Transaction is a single card or bank movement.
	// Negative AmountCents is spend, positive is income.
	Transaction struct {
		ID                 uuid.UUID
		PlaidTransactionID *string
		AccountID          *string
		Vendor             string
		AmountCents        int64
		TransactionDate    time.Time
		PostedDate         *time.Time
		CardName           *string
		Address            *string
		Latitude           *float64
		Longitude          *float64
		Source             *string
		CategoryID         *uuid.UUID // nil = uncategorized
		IsIgnored          *bool
		CreatedAt          time.Time
	}

	BankAccount struct {
		ID              uuid.UUID
		PlaidAccountID  string
		InstitutionName string
		DisplayName     string
		Mask            string
		Type            string
		IsActive        bool
	}
)

var (
	ErrEmptyName           = errors.New("empty category name")
	ErrInvalidPercent      = errors.New("invalid percent")
	ErrEmptyVendor         = errors.New("empty vendor")
	ErrMissingDate         = errors.New("missing transaction date")
	ErrCategoryNotFound    = errors.New("category not found")
	ErrTransactionNotFound = errors.New("transaction not found")
)

// NewCategory builds a category with a fresh identifier.
func NewCategory(name, emoji, colorHex string, percent float64, createdAt time.Time) Category {
	return Category{
		ID:        uuid.New(),
		Name:      name,
		Emoji:     emoji,
		ColorHex:  colorHex,
		Percent:   percent,
		CreatedAt: createdAt,
	}
}

// Validate checks the fields the create surface guards. Edits bypass it.
func (c Category) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyName
	}
	if c.Percent < 0 || c.Percent > 1 {
		return ErrInvalidPercent
	}
	return nil
}

// Color resolves ColorHex, falling back to neutral gray.
func (c Category) Color() RGBA {
	return ParseHexColor(c.ColorHex)
}

// PercentFromPoints converts a 0-100 slider value to the stored fraction.
func PercentFromPoints(points float64) float64 {
	return points / 100
}

// PercentPoints converts the stored fraction to 0-100 points.
func (c Category) PercentPoints() float64 {
	return c.Percent * 100
}

func (t Transaction) Validate() error {
	if strings.TrimSpace(t.Vendor) == "" {
		return ErrEmptyVendor
	}
	if t.TransactionDate.IsZero() {
		return ErrMissingDate
	}
	return nil
}

// Ignored treats an absent flag as false.
func (t Transaction) Ignored() bool {
	return t.IsIgnored != nil && *t.IsIgnored
}

// IsUncategorized reports whether the transaction belongs in the work queue.
func (t Transaction) IsUncategorized() bool {
	return t.CategoryID == nil && !t.Ignored()
}

// InCategory reports whether the transaction references the given category.
func (t Transaction) InCategory(id uuid.UUID) bool {
	return t.CategoryID != nil && *t.CategoryID == id
}

func (t Transaction) IsSpend() bool {
	return t.AmountCents < 0
}

// DisplayDate is the posted date, or the transaction date before settlement.
func (t Transaction) DisplayDate() time.Time {
	if t.PostedDate != nil && !t.PostedDate.IsZero() {
		return *t.PostedDate
	}
	return t.TransactionDate
}

func (t Transaction) Amount() Money {
	return Money{Cents: t.AmountCents}
}

// CategoryKey renders CategoryID for signatures and logs; "" when uncategorized.
func (t Transaction) CategoryKey() string {
	if t.CategoryID == nil {
		return ""
	}
	return t.CategoryID.String()
}

// Ptr returns a pointer to v. Used for the optional transaction fields.
func Ptr[T any](v T) *T {
	return &v
}
