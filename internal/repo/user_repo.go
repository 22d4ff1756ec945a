// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the User model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations.
// They follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition.
//
// Error semantics:
//   - When a user is not found, functions return gorm.ErrRecordNotFound
//     (also exported here as ErrNotFound for convenience).
//   - On DB errors (constraint violations, connectivity issues, etc.),
//     the raw gorm error is propagated. Translation into the API error
//     taxonomy happens in the service layer (see services.UserService).
package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/tbourn/go-user-backend/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// CreateUser inserts a new user row. The ID is assigned by the database
// (auto-increment) and populated on the returned value.
//
// Uniqueness of username and email is enforced by the unique indexes; a
// violation surfaces as a raw DB error for the service layer to classify.
func CreateUser(ctx context.Context, db *gorm.DB, username, email string, age int, role string) (*domain.User, error) {
	u := &domain.User{
		Username: username,
		Email:    email,
		Age:      age,
		Role:     role,
	}
	if err := db.WithContext(ctx).Create(u).Error; err != nil {
		return nil, err
	}
	return u, nil
}

// GetUser fetches a single user by primary key. If the record does not
// exist, it returns ErrNotFound. On other DB errors, the raw error is
// returned.
func GetUser(ctx context.Context, db *gorm.DB, id int) (*domain.User, error) {
	var u domain.User
	if err := db.WithContext(ctx).First(&u, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// ListUsers returns all user rows in storage-native order. It returns an
// empty slice when the table is empty. On DB error, it returns the error.
func ListUsers(ctx context.Context, db *gorm.DB) ([]domain.User, error) {
	var out []domain.User
	err := db.WithContext(ctx).Find(&out).Error
	return out, err
}

// ListUsersByRole returns all users whose role matches exactly
// (case-sensitive string equality). On DB error, it returns the error.
func ListUsersByRole(ctx context.Context, db *gorm.DB, role string) ([]domain.User, error) {
	var out []domain.User
	err := db.WithContext(ctx).
		Where("role = ?", role).
		Find(&out).Error
	return out, err
}

// UpdateUser applies the given column→value map to the user identified by
// id. Only the supplied columns change. If no rows are affected (user
// missing), it returns ErrNotFound. On DB error, the raw error is returned.
func UpdateUser(ctx context.Context, db *gorm.DB, id int, fields map[string]any) error {
	res := db.WithContext(ctx).
		Model(&domain.User{}).
		Where("id = ?", id).
		Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// DeleteUser permanently removes the user identified by id. If no rows are
// affected (user missing), it returns ErrNotFound. On DB error, the raw
// error is returned. The delete is physical; there is no tombstone state.
func DeleteUser(ctx context.Context, db *gorm.DB, id int) error {
	res := db.WithContext(ctx).Delete(&domain.User{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
