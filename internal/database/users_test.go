package database_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	"git.sr.ht/~jakintosh/apigate/internal/database"
	"git.sr.ht/~jakintosh/apigate/internal/service"
)

func insertUser(
	t *testing.T,
	store *database.SQLiteStore,
	username string,
) *service.User {
	t.Helper()
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	user := &service.User{
		Username:     username,
		Email:        username + "@example.com",
		FullName:     "Test " + username,
		Role:         service.UserRoleModerator,
		Active:       true,
		PasswordHash: []byte("hash"),
		CreatedAt:    created,
		UpdatedAt:    created,
	}
	id, err := store.InsertUser(context.Background(), user)
	if err != nil {
		t.Fatalf("InsertUser failed: %v", err)
	}
	user.ID = id
	return user
}

func TestUsers_InsertAndGet(t *testing.T) {
	t.Parallel()
	store := setupStore(t)

	want := insertUser(t, store, "alice")

	got, err := store.GetUser(context.Background(), want.ID)
	if err != nil {
		t.Fatalf("GetUser failed: %v", err)
	}
	if got.Username != "alice" || got.Email != "alice@example.com" {
		t.Fatalf("unexpected user identity: %+v", got)
	}
	if got.Role != service.UserRoleModerator {
		t.Fatalf("expected moderator role, got %s", got.Role)
	}
	if !got.Active {
		t.Fatalf("expected active user")
	}
	if string(got.PasswordHash) != "hash" {
		t.Fatalf("password hash not persisted")
	}
	if !got.CreatedAt.Equal(want.CreatedAt) {
		t.Fatalf("expected created_at %v, got %v", want.CreatedAt, got.CreatedAt)
	}
}

func TestUsers_GetMissing(t *testing.T) {
	t.Parallel()
	store := setupStore(t)

	_, err := store.GetUser(context.Background(), 99)
	if !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("expected sql.ErrNoRows, got %v", err)
	}
}

func TestUsers_DuplicateUsernameConflicts(t *testing.T) {
	t.Parallel()
	store := setupStore(t)
	insertUser(t, store, "alice")

	dup := &service.User{
		Username:     "alice",
		Email:        "other@example.com",
		PasswordHash: []byte("hash"),
	}
	_, err := store.InsertUser(context.Background(), dup)
	if !errors.Is(err, service.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestUsers_DuplicateEmailOnUpdateConflicts(t *testing.T) {
	t.Parallel()
	store := setupStore(t)
	insertUser(t, store, "alice")
	bob := insertUser(t, store, "bob")

	bob.Email = "alice@example.com"
	_, err := store.UpdateUser(context.Background(), bob)
	if !errors.Is(err, service.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestUsers_ListPages(t *testing.T) {
	t.Parallel()
	store := setupStore(t)
	for i := range 5 {
		insertUser(t, store, fmt.Sprintf("user%d", i))
	}

	users, total, err := store.ListUsers(context.Background(), 2, 2)
	if err != nil {
		t.Fatalf("ListUsers failed: %v", err)
	}
	if total != 5 {
		t.Fatalf("expected total 5, got %d", total)
	}
	if len(users) != 2 {
		t.Fatalf("expected 2 users, got %d", len(users))
	}
	if users[0].Username != "user2" || users[1].Username != "user3" {
		t.Fatalf("unexpected page order: %s, %s", users[0].Username, users[1].Username)
	}
}

func TestUsers_UpdateAndDelete(t *testing.T) {
	t.Parallel()
	store := setupStore(t)
	user := insertUser(t, store, "alice")

	user.FullName = "Alice Liddell"
	user.Role = service.UserRoleAdmin
	user.Active = false
	updated, err := store.UpdateUser(context.Background(), user)
	if err != nil {
		t.Fatalf("UpdateUser failed: %v", err)
	}
	if !updated {
		t.Fatalf("expected update to report a changed row")
	}

	got, err := store.GetUser(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("GetUser failed: %v", err)
	}
	if got.FullName != "Alice Liddell" || got.Role != service.UserRoleAdmin || got.Active {
		t.Fatalf("update not persisted: %+v", got)
	}

	deleted, err := store.DeleteUser(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("DeleteUser failed: %v", err)
	}
	if !deleted {
		t.Fatalf("expected delete to report a removed row")
	}

	deleted, err = store.DeleteUser(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("second DeleteUser failed: %v", err)
	}
	if deleted {
		t.Fatalf("expected second delete to report nothing removed")
	}
}
