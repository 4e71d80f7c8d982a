package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"ssmartr/internal/core"
	"ssmartr/internal/log"
	"ssmartr/internal/notify"
	"ssmartr/internal/store"
)

var ErrAmbiguousPercent = errors.New("set either percent or percent_points, not both")

// NewCategory is the create form. Percent is a fraction of income;
// PercentPoints is the same value on a 0-100 scale. At most one may be set.
type NewCategory struct {
	Name          string
	Emoji         string
	ColorHex      string
	Percent       *float64
	PercentPoints *float64
}

// CategoryPatch edits a category in place. Nil fields are left alone.
type CategoryPatch struct {
	Name          *string
	Emoji         *string
	ColorHex      *string
	Percent       *float64
	PercentPoints *float64
}

// CategoryService is the category edit surface. Every successful change is
// saved and published so overviews recompute.
type CategoryService struct {
	store    store.Store
	notifier notify.Publisher
	logger   *log.Logger
	lock     sync.Locker
	now      func() time.Time
}

// NewCategoryService wires the service. lock must be the one shared with the
// categorize engine when both write to st.
func NewCategoryService(st store.Store, notifier notify.Publisher, logger *log.Logger, lock sync.Locker) *CategoryService {
	if logger == nil {
		logger = log.Discard()
	}
	if lock == nil {
		lock = &sync.Mutex{}
	}
	return &CategoryService{
		store:    st,
		notifier: notifier,
		logger:   logger.WithComponent(log.ComponentCategory),
		lock:     lock,
		now:      time.Now,
	}
}

// ListCategories returns every category in creation order.
func (s *CategoryService) ListCategories(ctx context.Context) ([]core.Category, error) {
	cats, err := s.store.FetchCategories(ctx, store.CategoryQuery{})
	if err != nil {
		s.logger.LogError(ctx, "Failed to list categories", err, log.OpList, nil)
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return cats, nil
}

// CreateCategory validates and stores a new category.
func (s *CategoryService) CreateCategory(ctx context.Context, in NewCategory) (core.Category, error) {
	percent, err := resolvePercent(in.Percent, in.PercentPoints)
	if err != nil {
		return core.Category{}, err
	}
	c := core.NewCategory(in.Name, in.Emoji, in.ColorHex, percent, s.now())
	if err := c.Validate(); err != nil {
		return core.Category{}, fmt.Errorf("validation failed: %w", err)
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	s.store.InsertCategory(c)
	if err := s.store.Save(ctx); err != nil {
		s.logger.LogError(ctx, "Failed to save new category", err, log.OpCreate,
			log.LogFields{log.FieldCategoryID: c.ID.String()})
		return core.Category{}, fmt.Errorf("save category: %w", err)
	}

	ev := s.publish()
	s.logger.InfoContext(ctx, "Created category",
		log.FieldCategoryID, c.ID.String(),
		"name", c.Name,
		"percent", c.Percent,
		log.FieldVersion, ev)
	return c, nil
}

// UpdateCategory applies patch. Edits are not validated beyond rejecting
// both percent forms at once; range checks are left to the caller.
func (s *CategoryService) UpdateCategory(ctx context.Context, id uuid.UUID, patch CategoryPatch) (core.Category, error) {
	if patch.Percent != nil && patch.PercentPoints != nil {
		return core.Category{}, ErrAmbiguousPercent
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	c, err := store.CategoryByID(ctx, s.store, id)
	if err != nil {
		return core.Category{}, err
	}

	if patch.Name != nil {
		c.Name = *patch.Name
	}
	if patch.Emoji != nil {
		c.Emoji = *patch.Emoji
	}
	if patch.ColorHex != nil {
		c.ColorHex = *patch.ColorHex
	}
	switch {
	case patch.Percent != nil:
		c.Percent = *patch.Percent
	case patch.PercentPoints != nil:
		c.Percent = core.PercentFromPoints(*patch.PercentPoints)
	}

	s.store.UpdateCategory(c)
	if err := s.store.Save(ctx); err != nil {
		s.logger.LogError(ctx, "Failed to save category edit", err, log.OpUpdate,
			log.LogFields{log.FieldCategoryID: id.String()})
		return core.Category{}, fmt.Errorf("save category: %w", err)
	}

	ev := s.publish()
	s.logger.InfoContext(ctx, "Updated category", log.FieldCategoryID, id.String(), log.FieldVersion, ev)
	return c, nil
}

func (s *CategoryService) publish() uint64 {
	if s.notifier == nil {
		return 0
	}
	return s.notifier.Publish(notify.ReasonCategoryChanged).Version
}

func resolvePercent(fraction, points *float64) (float64, error) {
	switch {
	case fraction != nil && points != nil:
		return 0, ErrAmbiguousPercent
	case fraction != nil:
		return *fraction, nil
	case points != nil:
		return core.PercentFromPoints(*points), nil
	}
	return 0, nil
}
