// Package services defines the business logic for user management. This file
// implements UserService, which coordinates repository operations and
// translates storage-level failures into the API error taxonomy so that raw
// gorm errors never reach the HTTP layer.
//
// Read semantics: Get, List, and ListByRole deliberately degrade storage
// failures to "not found" / empty results instead of surfacing 500s. Callers
// must be aware that a storage outage on a read path is indistinguishable
// from missing data.
//
// Write semantics: every write runs inside a transaction; on failure the
// transaction is rolled back and the error is classified. Uniqueness
// pre-checks are not performed; the database constraint is the
// authoritative arbiter under concurrent writes, and the losing request
// receives a conflict response.
//
// Observability: public methods are OpenTelemetry-instrumented; spans carry
// the user id or username where applicable.
package services

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/tbourn/go-user-backend/internal/apierr"
	"github.com/tbourn/go-user-backend/internal/domain"
	"github.com/tbourn/go-user-backend/internal/repo"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// UserRepo defines the repository contract required by UserService.
// Implementations are responsible for persistence of user rows.
type UserRepo interface {
	// CreateUser inserts a new user row and returns it with its assigned id.
	CreateUser(ctx context.Context, db *gorm.DB, username, email string, age int, role string) (*domain.User, error)

	// GetUser fetches a user by primary key (repo.ErrNotFound if missing).
	GetUser(ctx context.Context, db *gorm.DB, id int) (*domain.User, error)

	// ListUsers returns all users in storage-native order.
	ListUsers(ctx context.Context, db *gorm.DB) ([]domain.User, error)

	// ListUsersByRole returns users whose role matches exactly.
	ListUsersByRole(ctx context.Context, db *gorm.DB, role string) ([]domain.User, error)

	// UpdateUser applies a partial column→value map to a user row.
	UpdateUser(ctx context.Context, db *gorm.DB, id int, fields map[string]any) error

	// DeleteUser permanently removes a user row (repo.ErrNotFound if missing).
	DeleteUser(ctx context.Context, db *gorm.DB, id int) error
}

// UserService provides the CRUD use-cases for users and owns the mapping
// from storage failures to the error taxonomy.
type UserService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Repo is the user repository used by this service.
	Repo UserRepo
}

// NewUserService constructs a UserService bound to the given DB and repo.
func NewUserService(db *gorm.DB, r UserRepo) *UserService {
	return &UserService{DB: db, Repo: r}
}

// Create inserts a new user. On a uniqueness violation the error is
// attributed to the username or email column; other storage failures yield
// a DATABASE_ERROR.
func (s *UserService) Create(ctx context.Context, username, email string, age int, role string) (*domain.User, *apierr.ErrorResponse) {
	tr := otel.Tracer("services/UserService")
	ctx, span := tr.Start(ctx, "Create",
		trace.WithAttributes(attribute.String("username", username)),
	)
	defer span.End()

	var out *domain.User
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		u, err := s.Repo.CreateUser(ctx, tx, username, email, age, role)
		if err != nil {
			return err
		}
		out = u
		return nil
	})
	if err != nil {
		return nil, classifyWriteError(err, username, email)
	}
	return out, nil
}

// Get fetches a user by id. It returns nil both when the row is absent and
// when the storage layer errors on read (degrade-to-not-found policy).
func (s *UserService) Get(ctx context.Context, id int) *domain.User {
	u, err := s.Repo.GetUser(ctx, s.DB, id)
	if err != nil {
		return nil
	}
	return u
}

// List returns all users. On storage failure it returns an empty slice,
// never an error (degrade-to-empty policy).
func (s *UserService) List(ctx context.Context) []domain.User {
	out, err := s.Repo.ListUsers(ctx, s.DB)
	if err != nil || out == nil {
		return []domain.User{}
	}
	return out
}

// ListByRole returns all users with exactly the given role. Unknown roles
// yield an empty slice, as do storage failures.
func (s *UserService) ListByRole(ctx context.Context, role string) []domain.User {
	out, err := s.Repo.ListUsersByRole(ctx, s.DB, role)
	if err != nil || out == nil {
		return []domain.User{}
	}
	return out
}

// Update applies a partial update to the user identified by id. Only the
// supplied fields change. The lookup, update, and re-read run in one
// transaction so no partial write is observable. Uniqueness violations are
// attributed exactly as in Create; updating a field to its current value
// succeeds.
func (s *UserService) Update(ctx context.Context, id int, fields map[string]any) (*domain.User, *apierr.ErrorResponse) {
	tr := otel.Tracer("services/UserService")
	ctx, span := tr.Start(ctx, "Update",
		trace.WithAttributes(attribute.Int("user_id", id)),
	)
	defer span.End()

	var out *domain.User
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.Repo.GetUser(ctx, tx, id); err != nil {
			return err
		}
		if err := s.Repo.UpdateUser(ctx, tx, id, fields); err != nil {
			return err
		}
		u, err := s.Repo.GetUser(ctx, tx, id)
		if err != nil {
			return err
		}
		out = u
		return nil
	})
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, apierr.NotFound("User", id)
		}
		username, _ := fields["username"].(string)
		email, _ := fields["email"].(string)
		return nil, classifyWriteError(err, username, email)
	}
	return out, nil
}

// Delete permanently removes the user identified by id. A missing user
// yields RESOURCE_NOT_FOUND; storage failures yield DATABASE_ERROR.
func (s *UserService) Delete(ctx context.Context, id int) (bool, *apierr.ErrorResponse) {
	tr := otel.Tracer("services/UserService")
	ctx, span := tr.Start(ctx, "Delete",
		trace.WithAttributes(attribute.Int("user_id", id)),
	)
	defer span.End()

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.Repo.DeleteUser(ctx, tx, id)
	})
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return false, apierr.NotFound("User", id)
		}
		return false, apierr.DatabaseError("")
	}
	return true, nil
}

// classifyWriteError maps a storage error from a write path into the
// taxonomy. Uniqueness violations are attributed to a column by inspecting
// the driver's error text for "username" or "email" (case-insensitive),
// checking username first; when neither matches the result is a generic
// CONSTRAINT_VIOLATION. Non-constraint failures become DATABASE_ERROR.
//
// Attribution by substring is a best-effort heuristic and is
// storage-engine-specific; SQLite reports "UNIQUE constraint failed:
// users.username" and Postgres names the violated index.
func classifyWriteError(err error, username, email string) *apierr.ErrorResponse {
	if !isUniqueViolation(err) {
		return apierr.DatabaseError("")
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "username"):
		return apierr.AlreadyExists("User", "username", username)
	case strings.Contains(msg, "email"):
		return apierr.AlreadyExists("User", "email", email)
	default:
		return apierr.ConstraintViolation("unknown", "")
	}
}

// isUniqueViolation detects unique-constraint violations across drivers
// that may not map to gorm.ErrDuplicatedKey.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	// SQLite typically: "UNIQUE constraint failed"
	// Postgres typically: "duplicate key value violates unique constraint"
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate key")
}
