package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const (
	minUsernameLength     = 3
	maxUsernameLength     = 50
	maxFullNameLength     = 100
	minUserPasswordLength = 8
)

type UserRole int

const (
	UserRoleUser UserRole = iota
	UserRoleModerator
	UserRoleAdmin
)

var userRoleNames = map[UserRole]string{
	UserRoleUser:      "user",
	UserRoleModerator: "moderator",
	UserRoleAdmin:     "admin",
}

func (r UserRole) String() string {
	if name, ok := userRoleNames[r]; ok {
		return name
	}
	return fmt.Sprintf("UserRole(%d)", int(r))
}

func ParseUserRole(s string) (UserRole, error) {
	for r, name := range userRoleNames {
		if name == s {
			return r, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown user role %q", ErrInvalidInput, s)
}

func (r UserRole) MarshalText() ([]byte, error) {
	if _, ok := userRoleNames[r]; !ok {
		return nil, fmt.Errorf("unknown user role %d", int(r))
	}
	return []byte(r.String()), nil
}

func (r *UserRole) UnmarshalText(text []byte) error {
	parsed, err := ParseUserRole(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// User is an entry in the user directory served to client apps. Only the
// bcrypt hash of the password is kept.
type User struct {
	ID           int64
	Username     string
	Email        string
	FullName     string
	Role         UserRole
	Active       bool
	PasswordHash []byte
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type NewUser struct {
	Username string
	Email    string
	FullName string
	Password string
	Role     UserRole
	Active   bool
}

// UserUpdate holds the optional fields of an update; nil leaves a field
// untouched.
type UserUpdate struct {
	Username *string
	Email    *string
	FullName *string
	Role     *UserRole
	Active   *bool
	Password *string
}

type UserPage struct {
	Users  []*User
	Total  int
	Offset int
	Limit  int
}

func (s *Service) CreateUser(
	ctx context.Context,
	input NewUser,
) (
	*User,
	error,
) {
	now := s.now().UTC().Truncate(time.Second)
	user := &User{
		Username:  input.Username,
		Email:     input.Email,
		FullName:  input.FullName,
		Role:      input.Role,
		Active:    input.Active,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := validateUser(user); err != nil {
		return nil, err
	}
	hash, err := s.hashUserPassword(input.Password)
	if err != nil {
		return nil, err
	}
	user.PasswordHash = hash

	id, err := s.users.InsertUser(ctx, user)
	if err != nil {
		if errors.Is(err, ErrConflict) {
			return nil, fmt.Errorf("%w: username or email already taken", ErrConflict)
		}
		return nil, fmt.Errorf("%w: failed to insert user: %v", ErrInternal, err)
	}
	user.ID = id

	s.log.Info("user created", zap.Int64("user_id", id), zap.Stringer("role", user.Role))
	return user, nil
}

func (s *Service) GetUser(
	ctx context.Context,
	id int64,
) (
	*User,
	error,
) {
	user, err := s.users.GetUser(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: user %d", ErrNotFound, id)
		}
		return nil, fmt.Errorf("%w: failed to load user: %v", ErrInternal, err)
	}
	return user, nil
}

func (s *Service) ListUsers(
	ctx context.Context,
	offset int,
	limit int,
) (
	*UserPage,
	error,
) {
	offset, limit, err := normalizePage(offset, limit)
	if err != nil {
		return nil, err
	}
	users, total, err := s.users.ListUsers(ctx, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to list users: %v", ErrInternal, err)
	}
	return &UserPage{Users: users, Total: total, Offset: offset, Limit: limit}, nil
}

func (s *Service) UpdateUser(
	ctx context.Context,
	id int64,
	update UserUpdate,
) (
	*User,
	error,
) {
	user, err := s.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}

	if update.Username != nil {
		user.Username = *update.Username
	}
	if update.Email != nil {
		user.Email = *update.Email
	}
	if update.FullName != nil {
		user.FullName = *update.FullName
	}
	if update.Role != nil {
		user.Role = *update.Role
	}
	if update.Active != nil {
		user.Active = *update.Active
	}
	if err := validateUser(user); err != nil {
		return nil, err
	}
	if update.Password != nil {
		user.PasswordHash, err = s.hashUserPassword(*update.Password)
		if err != nil {
			return nil, err
		}
	}
	user.UpdatedAt = s.now().UTC().Truncate(time.Second)

	updated, err := s.users.UpdateUser(ctx, user)
	if err != nil {
		if errors.Is(err, ErrConflict) {
			return nil, fmt.Errorf("%w: username or email already taken", ErrConflict)
		}
		return nil, fmt.Errorf("%w: failed to update user: %v", ErrInternal, err)
	}
	if !updated {
		return nil, fmt.Errorf("%w: user %d", ErrNotFound, id)
	}
	return user, nil
}

func (s *Service) DeleteUser(
	ctx context.Context,
	id int64,
) error {
	deleted, err := s.users.DeleteUser(ctx, id)
	if err != nil {
		return fmt.Errorf("%w: failed to delete user: %v", ErrInternal, err)
	}
	if !deleted {
		return fmt.Errorf("%w: user %d", ErrNotFound, id)
	}
	return nil
}

func (s *Service) hashUserPassword(password string) ([]byte, error) {
	if utf8.RuneCountInString(password) < minUserPasswordLength {
		return nil, fmt.Errorf("%w: password must be at least %d characters",
			ErrInvalidInput, minUserPasswordLength)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.secretMode.Cost())
	if err != nil {
		return nil, fmt.Errorf("%w: failed to hash password: %v", ErrInternal, err)
	}
	return hash, nil
}

// validateUser trims text fields in place before checking them. Emails are
// lowercased so uniqueness is case-insensitive.
func validateUser(user *User) error {
	user.Username = strings.TrimSpace(user.Username)
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	user.FullName = strings.TrimSpace(user.FullName)

	if n := utf8.RuneCountInString(user.Username); n < minUsernameLength || n > maxUsernameLength {
		return fmt.Errorf("%w: username must be between %d and %d characters",
			ErrInvalidInput, minUsernameLength, maxUsernameLength)
	}
	if addr, err := mail.ParseAddress(user.Email); err != nil || addr.Address != user.Email {
		return fmt.Errorf("%w: email must be a valid address", ErrInvalidInput)
	}
	if utf8.RuneCountInString(user.FullName) > maxFullNameLength {
		return fmt.Errorf("%w: full name must be at most %d characters",
			ErrInvalidInput, maxFullNameLength)
	}
	if _, ok := userRoleNames[user.Role]; !ok {
		return fmt.Errorf("%w: unknown user role", ErrInvalidInput)
	}
	return nil
}
