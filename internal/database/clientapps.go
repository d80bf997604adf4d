package database

import (
	"context"
	"fmt"
	"time"

	"git.sr.ht/~jakintosh/apigate/internal/service"
)

type clientAppRow struct {
	ID          int64  `db:"id"`
	AppID       string `db:"app_id"`
	SecretHash  []byte `db:"secret_hash"`
	Name        string `db:"name"`
	Description string `db:"description"`
	Active      bool   `db:"is_active"`
	CreatedBy   string `db:"created_by"`
	CreatedAt   int64  `db:"created_at"`
	UpdatedAt   int64  `db:"updated_at"`
}

func (r *clientAppRow) toClientApp() *service.ClientApp {
	return &service.ClientApp{
		ID:          r.ID,
		AppID:       r.AppID,
		SecretHash:  r.SecretHash,
		Name:        r.Name,
		Description: r.Description,
		Active:      r.Active,
		CreatedBy:   r.CreatedBy,
		CreatedAt:   time.Unix(r.CreatedAt, 0).UTC(),
		UpdatedAt:   time.Unix(r.UpdatedAt, 0).UTC(),
	}
}

const clientAppColumns = `
	id, app_id, secret_hash, name, description,
	is_active, created_by, created_at, updated_at`

func (s *SQLiteStore) ClientAppStore() service.ClientAppStore {
	return s
}

func (s *SQLiteStore) FindByAppIdentifier(
	ctx context.Context,
	appID string,
) (
	*service.ClientApp,
	error,
) {
	var row clientAppRow
	err := s.db.GetContext(ctx, &row,
		`SELECT `+clientAppColumns+` FROM client_apps WHERE app_id=?;`,
		appID,
	)
	if err != nil {
		return nil, fmt.Errorf("couldn't select client app: %w", err)
	}
	return row.toClientApp(), nil
}

func (s *SQLiteStore) GetClientApp(
	ctx context.Context,
	id int64,
) (
	*service.ClientApp,
	error,
) {
	var row clientAppRow
	err := s.db.GetContext(ctx, &row,
		`SELECT `+clientAppColumns+` FROM client_apps WHERE id=?;`,
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("couldn't select client app: %w", err)
	}
	return row.toClientApp(), nil
}

func (s *SQLiteStore) ListClientApps(
	ctx context.Context,
	offset int,
	limit int,
) (
	[]*service.ClientApp,
	error,
) {
	var rows []clientAppRow
	err := s.db.SelectContext(ctx, &rows,
		`SELECT `+clientAppColumns+` FROM client_apps ORDER BY id LIMIT ? OFFSET ?;`,
		limit,
		offset,
	)
	if err != nil {
		return nil, fmt.Errorf("couldn't list client apps: %v", err)
	}

	apps := make([]*service.ClientApp, 0, len(rows))
	for i := range rows {
		apps = append(apps, rows[i].toClientApp())
	}
	return apps, nil
}

func (s *SQLiteStore) InsertClientApp(
	ctx context.Context,
	app *service.ClientApp,
) (
	int64,
	error,
) {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO client_apps (
			app_id, secret_hash, name, description,
			is_active, created_by, created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?);`,
		app.AppID,
		app.SecretHash,
		app.Name,
		app.Description,
		app.Active,
		app.CreatedBy,
		app.CreatedAt.Unix(),
		app.UpdatedAt.Unix(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("%w: app identifier taken", service.ErrConflict)
		}
		return 0, fmt.Errorf("couldn't insert into client_apps: %v", err)
	}
	return result.LastInsertId()
}

func (s *SQLiteStore) UpdateClientApp(
	ctx context.Context,
	app *service.ClientApp,
) (
	bool,
	error,
) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE client_apps
		SET secret_hash=?, name=?, description=?, is_active=?, updated_at=?
		WHERE id=?;`,
		app.SecretHash,
		app.Name,
		app.Description,
		app.Active,
		app.UpdatedAt.Unix(),
		app.ID,
	)
	if err != nil {
		return false, fmt.Errorf("couldn't update client_apps: %v", err)
	}
	return !resultsEmpty(result), nil
}

func (s *SQLiteStore) DeleteClientApp(
	ctx context.Context,
	id int64,
) (
	bool,
	error,
) {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM client_apps
		WHERE id=?;`,
		id,
	)
	if err != nil {
		return false, fmt.Errorf("couldn't delete from client_apps: %v", err)
	}
	return !resultsEmpty(result), nil
}
