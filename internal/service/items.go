package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"
)

const maxItemNameLength = 100

type ItemStatus int

const (
	ItemStatusActive ItemStatus = iota
	ItemStatusInactive
	ItemStatusDraft
)

var itemStatusNames = map[ItemStatus]string{
	ItemStatusActive:   "active",
	ItemStatusInactive: "inactive",
	ItemStatusDraft:    "draft",
}

func (st ItemStatus) String() string {
	if name, ok := itemStatusNames[st]; ok {
		return name
	}
	return fmt.Sprintf("ItemStatus(%d)", int(st))
}

func ParseItemStatus(s string) (ItemStatus, error) {
	for st, name := range itemStatusNames {
		if name == s {
			return st, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown item status %q", ErrInvalidInput, s)
}

func (st ItemStatus) MarshalText() ([]byte, error) {
	if _, ok := itemStatusNames[st]; !ok {
		return nil, fmt.Errorf("unknown item status %d", int(st))
	}
	return []byte(st.String()), nil
}

func (st *ItemStatus) UnmarshalText(text []byte) error {
	parsed, err := ParseItemStatus(string(text))
	if err != nil {
		return err
	}
	*st = parsed
	return nil
}

// Item is a catalog entry managed by authenticated client apps. CreatedBy
// holds the app identifier of the creator.
type Item struct {
	ID          int64
	Name        string
	Description string
	Price       float64
	Status      ItemStatus
	CreatedBy   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type ItemFilter struct {
	Offset int
	Limit  int
	Status *ItemStatus
}

type ItemUpdate struct {
	Name        *string
	Description *string
	Price       *float64
	Status      *ItemStatus
}

// ItemPage is one page of a listing. Offset and Limit are the values
// actually applied after paging defaults and caps.
type ItemPage struct {
	Items  []*Item
	Total  int
	Offset int
	Limit  int
}

func (s *Service) CreateItem(
	ctx context.Context,
	client *AuthenticatedClient,
	name string,
	description string,
	price float64,
	status ItemStatus,
) (
	*Item,
	error,
) {
	now := s.now().UTC().Truncate(time.Second)
	item := &Item{
		Name:        name,
		Description: description,
		Price:       price,
		Status:      status,
		CreatedBy:   client.AppID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := validateItem(item); err != nil {
		return nil, err
	}

	id, err := s.items.InsertItem(ctx, item)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to insert item: %v", ErrInternal, err)
	}
	item.ID = id
	return item, nil
}

func (s *Service) GetItem(
	ctx context.Context,
	id int64,
) (
	*Item,
	error,
) {
	item, err := s.items.GetItem(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: item %d", ErrNotFound, id)
		}
		return nil, fmt.Errorf("%w: failed to load item: %v", ErrInternal, err)
	}
	return item, nil
}

func (s *Service) ListItems(
	ctx context.Context,
	filter ItemFilter,
) (
	*ItemPage,
	error,
) {
	var err error
	filter.Offset, filter.Limit, err = normalizePage(filter.Offset, filter.Limit)
	if err != nil {
		return nil, err
	}

	items, total, err := s.items.ListItems(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to list items: %v", ErrInternal, err)
	}
	return &ItemPage{
		Items:  items,
		Total:  total,
		Offset: filter.Offset,
		Limit:  filter.Limit,
	}, nil
}

func (s *Service) UpdateItem(
	ctx context.Context,
	id int64,
	update ItemUpdate,
) (
	*Item,
	error,
) {
	item, err := s.GetItem(ctx, id)
	if err != nil {
		return nil, err
	}

	if update.Name != nil {
		item.Name = *update.Name
	}
	if update.Description != nil {
		item.Description = *update.Description
	}
	if update.Price != nil {
		item.Price = *update.Price
	}
	if update.Status != nil {
		item.Status = *update.Status
	}
	if err := validateItem(item); err != nil {
		return nil, err
	}
	item.UpdatedAt = s.now().UTC().Truncate(time.Second)

	updated, err := s.items.UpdateItem(ctx, item)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to update item: %v", ErrInternal, err)
	}
	if !updated {
		return nil, fmt.Errorf("%w: item %d", ErrNotFound, id)
	}
	return item, nil
}

func (s *Service) DeleteItem(
	ctx context.Context,
	id int64,
) error {
	deleted, err := s.items.DeleteItem(ctx, id)
	if err != nil {
		return fmt.Errorf("%w: failed to delete item: %v", ErrInternal, err)
	}
	if !deleted {
		return fmt.Errorf("%w: item %d", ErrNotFound, id)
	}
	return nil
}

// validateItem trims text fields in place before checking them.
func validateItem(item *Item) error {
	item.Name = strings.TrimSpace(item.Name)
	item.Description = strings.TrimSpace(item.Description)

	if n := utf8.RuneCountInString(item.Name); n < 1 || n > maxItemNameLength {
		return fmt.Errorf("%w: name must be between 1 and %d characters",
			ErrInvalidInput, maxItemNameLength)
	}
	if utf8.RuneCountInString(item.Description) > maxDescriptionLength {
		return fmt.Errorf("%w: description must be at most %d characters",
			ErrInvalidInput, maxDescriptionLength)
	}
	if math.IsNaN(item.Price) || math.IsInf(item.Price, 0) || item.Price <= 0 {
		return fmt.Errorf("%w: price must be greater than zero", ErrInvalidInput)
	}
	if _, ok := itemStatusNames[item.Status]; !ok {
		return fmt.Errorf("%w: unknown item status", ErrInvalidInput)
	}
	return nil
}
