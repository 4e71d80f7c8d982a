package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"ssmartr/internal/core"
	"ssmartr/internal/notify"
	"ssmartr/internal/store"
	"ssmartr/internal/store/memory"
)

func newTestService(t *testing.T) (*CategoryService, *memory.Store, *notify.Notifier) {
	t.Helper()
	st := memory.New()
	n := notify.New(nil)
	svc := NewCategoryService(st, n, nil, nil)
	svc.now = func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }
	return svc, st, n
}

func TestCreateCategory(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name        string
		in          NewCategory
		wantPercent float64
		wantErr     error
	}{
		{
			name:        "fraction",
			in:          NewCategory{Name: "Food", Emoji: "🍔", ColorHex: "#FF8A65", Percent: core.Ptr(0.3)},
			wantPercent: 0.3,
		},
		{
			name:        "points",
			in:          NewCategory{Name: "Fun", PercentPoints: core.Ptr(25.0)},
			wantPercent: 0.25,
		},
		{
			name:        "no percent",
			in:          NewCategory{Name: "Misc"},
			wantPercent: 0,
		},
		{
			name:    "empty name",
			in:      NewCategory{Name: "  ", Percent: core.Ptr(0.1)},
			wantErr: core.ErrEmptyName,
		},
		{
			name:    "fraction out of range",
			in:      NewCategory{Name: "Rent", Percent: core.Ptr(30.0)},
			wantErr: core.ErrInvalidPercent,
		},
		{
			name:    "both forms",
			in:      NewCategory{Name: "Rent", Percent: core.Ptr(0.3), PercentPoints: core.Ptr(30.0)},
			wantErr: ErrAmbiguousPercent,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, st, n := newTestService(t)
			c, err := svc.CreateCategory(ctx, tt.in)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("CreateCategory() error = %v, want %v", err, tt.wantErr)
				}
				if n.Version() != 0 {
					t.Errorf("rejected create must not publish")
				}
				return
			}
			if err != nil {
				t.Fatalf("CreateCategory() error = %v", err)
			}
			if c.Percent != tt.wantPercent {
				t.Errorf("Percent = %v, want %v", c.Percent, tt.wantPercent)
			}
			stored, err := store.CategoryByID(ctx, st, c.ID)
			if err != nil || stored.Name != tt.in.Name || !stored.CreatedAt.Equal(svc.now()) {
				t.Errorf("stored = %+v, %v", stored, err)
			}
			if n.Version() != 1 {
				t.Errorf("create should publish once, version = %d", n.Version())
			}
		})
	}
}

func TestPercentConventionEndToEnd(t *testing.T) {
	ctx := context.Background()
	svc, st, _ := newTestService(t)

	byPoints, err := svc.CreateCategory(ctx, NewCategory{Name: "A", PercentPoints: core.Ptr(40.0)})
	if err != nil {
		t.Fatal(err)
	}
	byFraction, err := svc.CreateCategory(ctx, NewCategory{Name: "B", Percent: core.Ptr(0.4)})
	if err != nil {
		t.Fatal(err)
	}

	a, _ := store.CategoryByID(ctx, st, byPoints.ID)
	b, _ := store.CategoryByID(ctx, st, byFraction.ID)
	if a.Percent != b.Percent || a.Percent != 0.4 {
		t.Errorf("stored percents differ: points=%v fraction=%v", a.Percent, b.Percent)
	}
	if a.PercentPoints() != 40 {
		t.Errorf("PercentPoints() = %v, want 40", a.PercentPoints())
	}
}

func TestUpdateCategory(t *testing.T) {
	ctx := context.Background()
	svc, st, n := newTestService(t)
	c, err := svc.CreateCategory(ctx, NewCategory{Name: "Food", Emoji: "🍔", ColorHex: "#FF8A65", Percent: core.Ptr(0.3)})
	if err != nil {
		t.Fatal(err)
	}

	got, err := svc.UpdateCategory(ctx, c.ID, CategoryPatch{
		Name:          core.Ptr("Groceries"),
		ColorHex:      core.Ptr("zz"),
		PercentPoints: core.Ptr(150.0),
	})
	if err != nil {
		t.Fatalf("UpdateCategory() error = %v", err)
	}
	if got.Name != "Groceries" || got.Emoji != "🍔" || got.Percent != 1.5 {
		t.Errorf("patched = %+v", got)
	}
	// Edits are permissive: a malformed color degrades at render time.
	if got.Color() != core.NeutralGray {
		t.Errorf("malformed color should fall back to the neutral default")
	}
	stored, _ := store.CategoryByID(ctx, st, c.ID)
	if stored.Name != "Groceries" || !stored.CreatedAt.Equal(c.CreatedAt) {
		t.Errorf("stored = %+v", stored)
	}
	if n.Version() != 2 {
		t.Errorf("version = %d, want 2", n.Version())
	}

	if _, err := svc.UpdateCategory(ctx, uuid.New(), CategoryPatch{Name: core.Ptr("x")}); !errors.Is(err, core.ErrCategoryNotFound) {
		t.Errorf("UpdateCategory(unknown) error = %v", err)
	}
	if _, err := svc.UpdateCategory(ctx, c.ID, CategoryPatch{Percent: core.Ptr(0.1), PercentPoints: core.Ptr(10.0)}); !errors.Is(err, ErrAmbiguousPercent) {
		t.Errorf("ambiguous patch error = %v", err)
	}
}

func TestListCategoriesInCreationOrder(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)
	base := svc.now()
	for i, name := range []string{"Zeta", "Alpha", "Mid"} {
		offset := time.Duration(i) * time.Second
		svc.now = func() time.Time { return base.Add(offset) }
		if _, err := svc.CreateCategory(ctx, NewCategory{Name: name}); err != nil {
			t.Fatal(err)
		}
	}

	cats, err := svc.ListCategories(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(cats) != 3 || cats[0].Name != "Zeta" || cats[2].Name != "Mid" {
		t.Errorf("ListCategories() = %v", cats)
	}
}
