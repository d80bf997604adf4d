package database

import (
	"context"
	"fmt"
	"time"

	"git.sr.ht/~jakintosh/apigate/internal/service"
)

type userRow struct {
	ID           int64  `db:"id"`
	Username     string `db:"username"`
	Email        string `db:"email"`
	FullName     string `db:"full_name"`
	Role         string `db:"role"`
	Active       bool   `db:"is_active"`
	PasswordHash []byte `db:"password_hash"`
	CreatedAt    int64  `db:"created_at"`
	UpdatedAt    int64  `db:"updated_at"`
}

func (r *userRow) toUser() (*service.User, error) {
	role, err := service.ParseUserRole(r.Role)
	if err != nil {
		return nil, fmt.Errorf("user %d: %v", r.ID, err)
	}
	return &service.User{
		ID:           r.ID,
		Username:     r.Username,
		Email:        r.Email,
		FullName:     r.FullName,
		Role:         role,
		Active:       r.Active,
		PasswordHash: r.PasswordHash,
		CreatedAt:    time.Unix(r.CreatedAt, 0).UTC(),
		UpdatedAt:    time.Unix(r.UpdatedAt, 0).UTC(),
	}, nil
}

const userColumns = `
	id, username, email, full_name, role,
	is_active, password_hash, created_at, updated_at`

func (s *SQLiteStore) UserStore() service.UserStore {
	return s
}

func (s *SQLiteStore) InsertUser(
	ctx context.Context,
	user *service.User,
) (
	int64,
	error,
) {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO users (
			username, email, full_name, role,
			is_active, password_hash, created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?);`,
		user.Username,
		user.Email,
		user.FullName,
		user.Role.String(),
		user.Active,
		user.PasswordHash,
		user.CreatedAt.Unix(),
		user.UpdatedAt.Unix(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("%w: username or email taken", service.ErrConflict)
		}
		return 0, fmt.Errorf("couldn't insert into users: %v", err)
	}
	return result.LastInsertId()
}

func (s *SQLiteStore) GetUser(
	ctx context.Context,
	id int64,
) (
	*service.User,
	error,
) {
	var row userRow
	err := s.db.GetContext(ctx, &row,
		`SELECT `+userColumns+` FROM users WHERE id=?;`,
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("couldn't select user: %w", err)
	}
	return row.toUser()
}

// ListUsers returns one page of users along with the total number of users.
func (s *SQLiteStore) ListUsers(
	ctx context.Context,
	offset int,
	limit int,
) (
	[]*service.User,
	int,
	error,
) {
	var total int
	if err := s.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM users;`); err != nil {
		return nil, 0, fmt.Errorf("couldn't count users: %v", err)
	}

	var rows []userRow
	err := s.db.SelectContext(ctx, &rows,
		`SELECT `+userColumns+` FROM users ORDER BY id LIMIT ? OFFSET ?;`,
		limit, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("couldn't list users: %v", err)
	}

	users := make([]*service.User, 0, len(rows))
	for i := range rows {
		user, err := rows[i].toUser()
		if err != nil {
			return nil, 0, err
		}
		users = append(users, user)
	}
	return users, total, nil
}

func (s *SQLiteStore) UpdateUser(
	ctx context.Context,
	user *service.User,
) (
	bool,
	error,
) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE users
		SET username=?, email=?, full_name=?, role=?,
			is_active=?, password_hash=?, updated_at=?
		WHERE id=?;`,
		user.Username,
		user.Email,
		user.FullName,
		user.Role.String(),
		user.Active,
		user.PasswordHash,
		user.UpdatedAt.Unix(),
		user.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return false, fmt.Errorf("%w: username or email taken", service.ErrConflict)
		}
		return false, fmt.Errorf("couldn't update users: %v", err)
	}
	return !resultsEmpty(result), nil
}

func (s *SQLiteStore) DeleteUser(
	ctx context.Context,
	id int64,
) (
	bool,
	error,
) {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM users
		WHERE id=?;`,
		id,
	)
	if err != nil {
		return false, fmt.Errorf("couldn't delete from users: %v", err)
	}
	return !resultsEmpty(result), nil
}
