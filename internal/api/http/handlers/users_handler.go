package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/user-service/internal/api/dto"
	"github.com/spec-kit/user-service/internal/domain"
	"github.com/spec-kit/user-service/internal/validation"
	apperrors "github.com/spec-kit/user-service/pkg/util/errorutil"
)

// UserManager is the lifecycle surface the handler drives.
type UserManager interface {
	AddUser(ctx context.Context, input domain.User) (*domain.User, error)
	UpdateUser(ctx context.Context, input domain.User) error
	DeactivateUser(ctx context.Context, id int64) error
	DeleteUser(ctx context.Context, id int64) error
	GetUser(ctx context.Context, id int64) (*domain.User, error)
	ListActiveUsers(ctx context.Context) ([]domain.User, error)
}

// UsersHandler exposes the user record endpoints.
type UsersHandler struct {
	users     UserManager
	validator *validation.Validator
}

// NewUsersHandler constructs handler.
func NewUsersHandler(users UserManager, validator *validation.Validator) *UsersHandler {
	return &UsersHandler{users: users, validator: validator}
}

// List handles GET /users.
func (h *UsersHandler) List(c *fiber.Ctx) error {
	users, err := h.users.ListActiveUsers(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewUserList(users)})
}

// Get handles GET /users/:id.
func (h *UsersHandler) Get(c *fiber.Ctx) error {
	id, err := userID(c)
	if err != nil {
		return err
	}
	user, err := h.users.GetUser(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewUserResponse(user)})
}

// Create handles POST /users.
func (h *UsersHandler) Create(c *fiber.Ctx) error {
	var req dto.UserRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := h.validator.Struct(req); err != nil {
		return err
	}

	user, err := h.users.AddUser(c.UserContext(), req.ToDomain(0, domain.UserStatusActive))
	if err != nil {
		return err
	}
	c.Location("/users/" + strconv.FormatInt(user.ID, 10))
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewUserResponse(user)})
}

// Update handles PUT /users/:id.
func (h *UsersHandler) Update(c *fiber.Ctx) error {
	id, err := userID(c)
	if err != nil {
		return err
	}
	var req dto.UpdateUserRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := h.validator.Struct(req); err != nil {
		return err
	}

	if err := h.users.UpdateUser(c.UserContext(), req.ToDomain(id, req.Status)); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// Delete handles DELETE /users/:id. The record is deactivated unless
// purge=true is given, in which case it is removed.
func (h *UsersHandler) Delete(c *fiber.Ctx) error {
	id, err := userID(c)
	if err != nil {
		return err
	}
	if c.QueryBool("purge") {
		err = h.users.DeleteUser(c.UserContext(), id)
	} else {
		err = h.users.DeactivateUser(c.UserContext(), id)
	}
	if err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

func userID(c *fiber.Ctx) (int64, error) {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return 0, apperrors.NewValidationError("invalid user id", map[string]any{"id": c.Params("id")})
	}
	return int64(id), nil
}
