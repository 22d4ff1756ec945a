package repo

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-user-backend/internal/domain"
)

func newUserRepoDB(t *testing.T, migrate bool) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), fmt.Sprintf("user_repo_test_%d.db", time.Now().UnixNano()))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	// Ensure the file handle is released before TempDir cleanup (Windows needs this).
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	if migrate {
		if err := db.AutoMigrate(&domain.User{}); err != nil {
			t.Fatalf("automigrate: %v", err)
		}
	}
	return db
}

func seedUser(t *testing.T, db *gorm.DB, username, email string, age int, role string) *domain.User {
	t.Helper()
	u, err := CreateUser(context.Background(), db, username, email, age, role)
	if err != nil {
		t.Fatalf("seed %s: %v", username, err)
	}
	return u
}

func TestCreateUser_Error_NoTable(t *testing.T) {
	db := newUserRepoDB(t, false)
	u, err := CreateUser(context.Background(), db, "alice", "a@b.c", 1, "user")
	if err == nil || u != nil {
		t.Fatalf("expected error creating without table, got user=%v err=%v", u, err)
	}
}

func TestCreateUser_Success_AssignsIncreasingIDs(t *testing.T) {
	db := newUserRepoDB(t, true)

	u1 := seedUser(t, db, "alice", "alice@example.com", 30, "admin")
	u2 := seedUser(t, db, "bob", "bob@example.com", 25, "user")

	if u1.ID <= 0 {
		t.Fatalf("expected positive id, got %d", u1.ID)
	}
	if u2.ID <= u1.ID {
		t.Fatalf("ids must not be reused: %d then %d", u1.ID, u2.ID)
	}
	if u1.Username != "alice" || u1.Email != "alice@example.com" || u1.Age != 30 || u1.Role != "admin" {
		t.Fatalf("unexpected fields: %+v", u1)
	}
}

func TestCreateUser_DuplicateUsernameAndEmail(t *testing.T) {
	db := newUserRepoDB(t, true)
	seedUser(t, db, "alice", "alice@example.com", 30, "admin")

	if _, err := CreateUser(context.Background(), db, "alice", "other@example.com", 1, "user"); err == nil {
		t.Fatalf("expected unique violation on username")
	} else if !strings.Contains(strings.ToLower(err.Error()), "username") {
		t.Fatalf("driver error should name the username column: %v", err)
	}

	if _, err := CreateUser(context.Background(), db, "other", "alice@example.com", 1, "user"); err == nil {
		t.Fatalf("expected unique violation on email")
	} else if !strings.Contains(strings.ToLower(err.Error()), "email") {
		t.Fatalf("driver error should name the email column: %v", err)
	}
}

func TestGetUser_NotFoundAndSuccess(t *testing.T) {
	db := newUserRepoDB(t, true)

	if _, err := GetUser(context.Background(), db, 999); err == nil || err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	u := seedUser(t, db, "alice", "alice@example.com", 30, "admin")
	got, err := GetUser(context.Background(), db, u.ID)
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if got.Username != "alice" || got.Email != "alice@example.com" {
		t.Fatalf("unexpected user: %+v", got)
	}
}

func TestListUsers_EmptyAndPopulated(t *testing.T) {
	db := newUserRepoDB(t, true)

	list, err := ListUsers(context.Background(), db)
	if err != nil {
		t.Fatalf("ListUsers: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("expected empty list, got %d", len(list))
	}

	seedUser(t, db, "alice", "alice@example.com", 30, "admin")
	seedUser(t, db, "bob", "bob@example.com", 25, "user")

	list, err = ListUsers(context.Background(), db)
	if err != nil || len(list) != 2 {
		t.Fatalf("expected 2 users, got %d (err=%v)", len(list), err)
	}
}

func TestListUsersByRole_ExactCaseSensitiveMatch(t *testing.T) {
	db := newUserRepoDB(t, true)
	seedUser(t, db, "alice", "alice@example.com", 30, "admin")
	seedUser(t, db, "bob", "bob@example.com", 25, "user")
	seedUser(t, db, "carol", "carol@example.com", 28, "admin")

	admins, err := ListUsersByRole(context.Background(), db, "admin")
	if err != nil || len(admins) != 2 {
		t.Fatalf("expected 2 admins, got %d (err=%v)", len(admins), err)
	}

	none, err := ListUsersByRole(context.Background(), db, "Admin")
	if err != nil || len(none) != 0 {
		t.Fatalf("role match must be case-sensitive, got %d (err=%v)", len(none), err)
	}
}

func TestUpdateUser_PartialAndNotFound(t *testing.T) {
	db := newUserRepoDB(t, true)
	u := seedUser(t, db, "alice", "alice@example.com", 30, "admin")

	if err := UpdateUser(context.Background(), db, 999, map[string]any{"age": 1}); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := UpdateUser(context.Background(), db, u.ID, map[string]any{"age": 35}); err != nil {
		t.Fatalf("UpdateUser: %v", err)
	}
	got, err := GetUser(context.Background(), db, u.ID)
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if got.Age != 35 || got.Username != "alice" || got.Email != "alice@example.com" || got.Role != "admin" {
		t.Fatalf("partial update must not touch other fields: %+v", got)
	}
}

func TestUpdateUser_SameValueNoConflict(t *testing.T) {
	db := newUserRepoDB(t, true)
	u := seedUser(t, db, "alice", "alice@example.com", 30, "admin")

	if err := UpdateUser(context.Background(), db, u.ID, map[string]any{"username": "alice"}); err != nil {
		t.Fatalf("updating a field to its current value must succeed: %v", err)
	}
}

func TestUpdateUser_UniqueViolation(t *testing.T) {
	db := newUserRepoDB(t, true)
	seedUser(t, db, "alice", "alice@example.com", 30, "admin")
	u := seedUser(t, db, "bob", "bob@example.com", 25, "user")

	err := UpdateUser(context.Background(), db, u.ID, map[string]any{"username": "alice"})
	if err == nil {
		t.Fatalf("expected unique violation")
	}
	if !strings.Contains(strings.ToLower(err.Error()), "username") {
		t.Fatalf("driver error should name the column: %v", err)
	}
}

func TestDeleteUser_RemovesRowPhysically(t *testing.T) {
	db := newUserRepoDB(t, true)
	u := seedUser(t, db, "alice", "alice@example.com", 30, "admin")

	if err := DeleteUser(context.Background(), db, u.ID); err != nil {
		t.Fatalf("DeleteUser: %v", err)
	}
	if _, err := GetUser(context.Background(), db, u.ID); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	// A second delete is a not-found, not a no-op success.
	if err := DeleteUser(context.Background(), db, u.ID); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound on double delete, got %v", err)
	}

	var count int64
	if err := db.Model(&domain.User{}).Count(&count).Error; err != nil || count != 0 {
		t.Fatalf("row must be physically removed: count=%d err=%v", count, err)
	}
}
