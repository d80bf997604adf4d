package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	minAppNameLength     = 3
	maxAppNameLength     = 100
	maxDescriptionLength = 500
	defaultPageSize      = 100
	maxPageSize          = 100
)

// ClientApp is a registered caller identified by an app identifier and
// secret pair. Only the bcrypt hash of the secret is kept.
type ClientApp struct {
	ID          int64
	AppID       string
	SecretHash  []byte
	Name        string
	Description string
	Active      bool
	CreatedBy   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ClientAppUpdate holds the optional fields of an update; nil leaves a field
// untouched.
type ClientAppUpdate struct {
	Name        *string
	Description *string
	Active      *bool
}

// IssuedCredentials pairs an app with its plaintext secret. It is only ever
// produced at creation and regeneration time.
type IssuedCredentials struct {
	App    *ClientApp
	Secret string
}

func (s *Service) CreateClientApp(
	ctx context.Context,
	operator string,
	name string,
	description string,
	active bool,
) (
	*IssuedCredentials,
	error,
) {
	name, description, err := validateAppFields(name, description)
	if err != nil {
		return nil, err
	}

	appID, err := generateAppID()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}
	secret, hash, err := s.newSecret()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}

	now := s.now().UTC().Truncate(time.Second)
	app := &ClientApp{
		AppID:       appID,
		SecretHash:  hash,
		Name:        name,
		Description: description,
		Active:      active,
		CreatedBy:   operator,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	id, err := s.clientApps.InsertClientApp(ctx, app)
	if err != nil {
		if errors.Is(err, ErrConflict) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: failed to insert client app: %v", ErrInternal, err)
	}
	app.ID = id

	s.log.Info("client app created")
	return &IssuedCredentials{App: app, Secret: secret}, nil
}

func (s *Service) GetClientApp(
	ctx context.Context,
	id int64,
) (
	*ClientApp,
	error,
) {
	app, err := s.clientApps.GetClientApp(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: client app %d", ErrNotFound, id)
		}
		return nil, fmt.Errorf("%w: failed to load client app: %v", ErrInternal, err)
	}
	return app, nil
}

func (s *Service) ListClientApps(
	ctx context.Context,
	offset int,
	limit int,
) (
	[]*ClientApp,
	error,
) {
	offset, limit, err := normalizePage(offset, limit)
	if err != nil {
		return nil, err
	}
	apps, err := s.clientApps.ListClientApps(ctx, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to list client apps: %v", ErrInternal, err)
	}
	return apps, nil
}

func (s *Service) UpdateClientApp(
	ctx context.Context,
	id int64,
	update ClientAppUpdate,
) (
	*ClientApp,
	error,
) {
	app, err := s.GetClientApp(ctx, id)
	if err != nil {
		return nil, err
	}

	name, description := app.Name, app.Description
	if update.Name != nil {
		name = *update.Name
	}
	if update.Description != nil {
		description = *update.Description
	}
	app.Name, app.Description, err = validateAppFields(name, description)
	if err != nil {
		return nil, err
	}
	if update.Active != nil {
		app.Active = *update.Active
	}

	return s.saveClientApp(ctx, app)
}

// ToggleClientApp flips the active flag. Deactivating an app makes every
// token already issued to it fail verification.
func (s *Service) ToggleClientApp(
	ctx context.Context,
	id int64,
) (
	*ClientApp,
	error,
) {
	app, err := s.GetClientApp(ctx, id)
	if err != nil {
		return nil, err
	}
	app.Active = !app.Active
	return s.saveClientApp(ctx, app)
}

// RegenerateSecret replaces the app secret. Tokens issued under the old
// secret stay valid until they expire.
func (s *Service) RegenerateSecret(
	ctx context.Context,
	id int64,
) (
	*IssuedCredentials,
	error,
) {
	app, err := s.GetClientApp(ctx, id)
	if err != nil {
		return nil, err
	}

	secret, hash, err := s.newSecret()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}
	app.SecretHash = hash

	app, err = s.saveClientApp(ctx, app)
	if err != nil {
		return nil, err
	}

	s.log.Info("client app secret regenerated")
	return &IssuedCredentials{App: app, Secret: secret}, nil
}

func (s *Service) DeleteClientApp(
	ctx context.Context,
	id int64,
) error {
	deleted, err := s.clientApps.DeleteClientApp(ctx, id)
	if err != nil {
		return fmt.Errorf("%w: failed to delete client app: %v", ErrInternal, err)
	}
	if !deleted {
		return fmt.Errorf("%w: client app %d", ErrNotFound, id)
	}
	return nil
}

func (s *Service) saveClientApp(
	ctx context.Context,
	app *ClientApp,
) (
	*ClientApp,
	error,
) {
	app.UpdatedAt = s.now().UTC().Truncate(time.Second)
	updated, err := s.clientApps.UpdateClientApp(ctx, app)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to update client app: %v", ErrInternal, err)
	}
	if !updated {
		return nil, fmt.Errorf("%w: client app %d", ErrNotFound, app.ID)
	}
	return app, nil
}

func validateAppFields(
	name string,
	description string,
) (
	string,
	string,
	error,
) {
	name = strings.TrimSpace(name)
	description = strings.TrimSpace(description)

	if n := utf8.RuneCountInString(name); n < minAppNameLength || n > maxAppNameLength {
		return "", "", fmt.Errorf("%w: name must be between %d and %d characters",
			ErrInvalidInput, minAppNameLength, maxAppNameLength)
	}
	if utf8.RuneCountInString(description) > maxDescriptionLength {
		return "", "", fmt.Errorf("%w: description must be at most %d characters",
			ErrInvalidInput, maxDescriptionLength)
	}
	return name, description, nil
}

func normalizePage(
	offset int,
	limit int,
) (
	int,
	int,
	error,
) {
	if offset < 0 {
		return 0, 0, fmt.Errorf("%w: offset must not be negative", ErrInvalidInput)
	}
	switch {
	case limit < 0:
		return 0, 0, fmt.Errorf("%w: limit must not be negative", ErrInvalidInput)
	case limit == 0:
		limit = defaultPageSize
	case limit > maxPageSize:
		limit = maxPageSize
	}
	return offset, limit, nil
}
