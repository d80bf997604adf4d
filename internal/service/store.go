package service

import "context"

// ClientAppStore handles persistence of client applications. Lookups of a
// missing row return an error wrapping sql.ErrNoRows.
type ClientAppStore interface {
	FindByAppIdentifier(ctx context.Context, appID string) (*ClientApp, error)
	GetClientApp(ctx context.Context, id int64) (*ClientApp, error)
	ListClientApps(ctx context.Context, offset, limit int) ([]*ClientApp, error)
	InsertClientApp(ctx context.Context, app *ClientApp) (int64, error)
	UpdateClientApp(ctx context.Context, app *ClientApp) (updated bool, err error)
	DeleteClientApp(ctx context.Context, id int64) (deleted bool, err error)
}

// OperatorStore handles persistence of operator (administrator) accounts
type OperatorStore interface {
	InsertOperator(ctx context.Context, handle string, secret []byte) error
	GetOperatorSecret(ctx context.Context, handle string) ([]byte, error)
}

// ItemStore handles persistence of catalog items
type ItemStore interface {
	InsertItem(ctx context.Context, item *Item) (int64, error)
	GetItem(ctx context.Context, id int64) (*Item, error)
	ListItems(ctx context.Context, filter ItemFilter) ([]*Item, int, error)
	UpdateItem(ctx context.Context, item *Item) (updated bool, err error)
	DeleteItem(ctx context.Context, id int64) (deleted bool, err error)
}

// UserStore handles persistence of directory users. Inserts and updates
// that collide on username or email return an error wrapping ErrConflict.
type UserStore interface {
	InsertUser(ctx context.Context, user *User) (int64, error)
	GetUser(ctx context.Context, id int64) (*User, error)
	ListUsers(ctx context.Context, offset, limit int) ([]*User, int, error)
	UpdateUser(ctx context.Context, user *User) (updated bool, err error)
	DeleteUser(ctx context.Context, id int64) (deleted bool, err error)
}
