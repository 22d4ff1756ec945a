package handlers

import (
	"context"
	"io"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-user-backend/internal/apierr"
	"github.com/tbourn/go-user-backend/internal/domain"
	"github.com/tbourn/go-user-backend/internal/validation"
)

// UserService is the surface the handlers need from the service layer.
type UserService interface {
	Create(ctx context.Context, username, email string, age int, role string) (*domain.User, *apierr.ErrorResponse)
	Get(ctx context.Context, id int) *domain.User
	List(ctx context.Context) []domain.User
	ListByRole(ctx context.Context, role string) []domain.User
	Update(ctx context.Context, id int, fields map[string]any) (*domain.User, *apierr.ErrorResponse)
	Delete(ctx context.Context, id int) (bool, *apierr.ErrorResponse)
}

// Handlers bundles the HTTP endpoints with their dependencies.
type Handlers struct {
	Users UserService
}

// New constructs the handler set.
func New(users UserService) *Handlers {
	return &Handlers{Users: users}
}

// ListUsersResponse is the envelope for collection endpoints.
type ListUsersResponse struct {
	Users []domain.User `json:"users"`
}

// parseID parses the :id path parameter. A non-integer segment is treated
// as an address of a resource that does not exist.
func parseID(c *gin.Context) (int, bool) {
	raw := c.Param("id")
	id, err := strconv.Atoi(raw)
	if err != nil {
		fail(c, apierr.NotFound("User", raw))
		return 0, false
	}
	return id, true
}

// ListUsers godoc
// @Summary      List users
// @Description  Returns every stored user record.
// @Tags         users
// @Produce      json
// @Success      200 {object} handlers.ListUsersResponse
// @Router       /users [get]
func (h *Handlers) ListUsers(c *gin.Context) {
	ok(c, 200, ListUsersResponse{Users: h.Users.List(c.Request.Context())})
}

// ListUsersByRole godoc
// @Summary      List users by role
// @Description  Returns the users whose role matches the path segment exactly. An unknown role yields an empty list, not an error.
// @Tags         users
// @Produce      json
// @Param        role path string true "Role value"
// @Success      200 {object} handlers.ListUsersResponse
// @Router       /users/role/{role} [get]
func (h *Handlers) ListUsersByRole(c *gin.Context) {
	role := c.Param("role")
	ok(c, 200, ListUsersResponse{Users: h.Users.ListByRole(c.Request.Context(), role)})
}

// GetUser godoc
// @Summary      Get a user
// @Description  Returns a single user by numeric id.
// @Tags         users
// @Produce      json
// @Param        id path int true "User id"
// @Success      200 {object} domain.User
// @Failure      404 {object} apierr.ErrorResponse
// @Router       /users/{id} [get]
func (h *Handlers) GetUser(c *gin.Context) {
	id, valid := parseID(c)
	if !valid {
		return
	}
	u := h.Users.Get(c.Request.Context(), id)
	if u == nil {
		fail(c, apierr.NotFound("User", id))
		return
	}
	ok(c, 200, u)
}

// CreateUser godoc
// @Summary      Create a user
// @Description  Validates the request body and inserts a new user record.
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        body body validation.CreateUserInput true "User attributes"
// @Success      201 {object} domain.User
// @Failure      400 {object} apierr.ErrorResponse
// @Failure      409 {object} apierr.ErrorResponse
// @Failure      500 {object} apierr.ErrorResponse
// @Router       /users [post]
func (h *Handlers) CreateUser(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		fail(c, apierr.InvalidJSON(""))
		return
	}
	in, errResp := validation.DecodeCreate(c.ContentType(), body)
	if errResp != nil {
		fail(c, errResp)
		return
	}
	u, errResp := h.Users.Create(c.Request.Context(), *in.Username, *in.Email, *in.Age, *in.Role)
	if errResp != nil {
		fail(c, errResp)
		return
	}
	ok(c, 201, u)
}

// UpdateUser godoc
// @Summary      Update a user
// @Description  Applies a partial update. At least one updatable field must be present in the body.
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        id   path int                         true "User id"
// @Param        body body validation.UpdateUserInput  true "Fields to change"
// @Success      200 {object} domain.User
// @Failure      400 {object} apierr.ErrorResponse
// @Failure      404 {object} apierr.ErrorResponse
// @Failure      409 {object} apierr.ErrorResponse
// @Failure      500 {object} apierr.ErrorResponse
// @Router       /users/{id} [patch]
func (h *Handlers) UpdateUser(c *gin.Context) {
	id, valid := parseID(c)
	if !valid {
		return
	}
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		fail(c, apierr.InvalidJSON(""))
		return
	}
	in, errResp := validation.DecodeUpdate(c.ContentType(), body)
	if errResp != nil {
		fail(c, errResp)
		return
	}
	fields := in.Fields()
	if len(fields) == 0 {
		fail(c, apierr.InvalidJSON("At least one field must be provided for update"))
		return
	}
	u, errResp := h.Users.Update(c.Request.Context(), id, fields)
	if errResp != nil {
		fail(c, errResp)
		return
	}
	ok(c, 200, u)
}

// DeleteUser godoc
// @Summary      Delete a user
// @Description  Removes the user record permanently.
// @Tags         users
// @Param        id path int true "User id"
// @Success      204 "No Content"
// @Failure      404 {object} apierr.ErrorResponse
// @Failure      500 {object} apierr.ErrorResponse
// @Router       /users/{id} [delete]
func (h *Handlers) DeleteUser(c *gin.Context) {
	id, valid := parseID(c)
	if !valid {
		return
	}
	if _, errResp := h.Users.Delete(c.Request.Context(), id); errResp != nil {
		fail(c, errResp)
		return
	}
	noContent(c)
}
