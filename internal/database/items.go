package database

import (
	"context"
	"fmt"
	"time"

	"git.sr.ht/~jakintosh/apigate/internal/service"
)

type itemRow struct {
	ID          int64   `db:"id"`
	Name        string  `db:"name"`
	Description string  `db:"description"`
	Price       float64 `db:"price"`
	Status      string  `db:"status"`
	CreatedBy   string  `db:"created_by"`
	CreatedAt   int64   `db:"created_at"`
	UpdatedAt   int64   `db:"updated_at"`
}

func (r *itemRow) toItem() (*service.Item, error) {
	status, err := service.ParseItemStatus(r.Status)
	if err != nil {
		return nil, fmt.Errorf("item %d: %v", r.ID, err)
	}
	return &service.Item{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		Price:       r.Price,
		Status:      status,
		CreatedBy:   r.CreatedBy,
		CreatedAt:   time.Unix(r.CreatedAt, 0).UTC(),
		UpdatedAt:   time.Unix(r.UpdatedAt, 0).UTC(),
	}, nil
}

const itemColumns = `
	id, name, description, price, status,
	created_by, created_at, updated_at`

func (s *SQLiteStore) ItemStore() service.ItemStore {
	return s
}

func (s *SQLiteStore) InsertItem(
	ctx context.Context,
	item *service.Item,
) (
	int64,
	error,
) {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO items (
			name, description, price, status,
			created_by, created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?);`,
		item.Name,
		item.Description,
		item.Price,
		item.Status.String(),
		item.CreatedBy,
		item.CreatedAt.Unix(),
		item.UpdatedAt.Unix(),
	)
	if err != nil {
		return 0, fmt.Errorf("couldn't insert into items: %v", err)
	}
	return result.LastInsertId()
}

func (s *SQLiteStore) GetItem(
	ctx context.Context,
	id int64,
) (
	*service.Item,
	error,
) {
	var row itemRow
	err := s.db.GetContext(ctx, &row,
		`SELECT `+itemColumns+` FROM items WHERE id=?;`,
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("couldn't select item: %w", err)
	}
	return row.toItem()
}

// ListItems returns one page of items along with the total number of items
// matching the filter.
func (s *SQLiteStore) ListItems(
	ctx context.Context,
	filter service.ItemFilter,
) (
	[]*service.Item,
	int,
	error,
) {
	where := ""
	args := []any{}
	if filter.Status != nil {
		where = " WHERE status=?"
		args = append(args, filter.Status.String())
	}

	var total int
	err := s.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM items`+where+`;`, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("couldn't count items: %v", err)
	}

	var rows []itemRow
	err = s.db.SelectContext(ctx, &rows,
		`SELECT `+itemColumns+` FROM items`+where+` ORDER BY id LIMIT ? OFFSET ?;`,
		append(args, filter.Limit, filter.Offset)...,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("couldn't list items: %v", err)
	}

	items := make([]*service.Item, 0, len(rows))
	for i := range rows {
		item, err := rows[i].toItem()
		if err != nil {
			return nil, 0, err
		}
		items = append(items, item)
	}
	return items, total, nil
}

func (s *SQLiteStore) UpdateItem(
	ctx context.Context,
	item *service.Item,
) (
	bool,
	error,
) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE items
		SET name=?, description=?, price=?, status=?, updated_at=?
		WHERE id=?;`,
		item.Name,
		item.Description,
		item.Price,
		item.Status.String(),
		item.UpdatedAt.Unix(),
		item.ID,
	)
	if err != nil {
		return false, fmt.Errorf("couldn't update items: %v", err)
	}
	return !resultsEmpty(result), nil
}

func (s *SQLiteStore) DeleteItem(
	ctx context.Context,
	id int64,
) (
	bool,
	error,
) {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM items
		WHERE id=?;`,
		id,
	)
	if err != nil {
		return false, fmt.Errorf("couldn't delete from items: %v", err)
	}
	return !resultsEmpty(result), nil
}
