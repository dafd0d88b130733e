package dto

import (
	"time"

	"github.com/spec-kit/user-service/internal/domain"
)

// UserRequest is the create payload. Created records are always active.
type UserRequest struct {
	FirstName   string `json:"firstName" validate:"required"`
	LastName    string `json:"lastName" validate:"required"`
	Email       string `json:"email" validate:"required"`
	Address     string `json:"address,omitempty"`
	PhoneNumber string `json:"phoneNumber,omitempty"`
}

// UpdateUserRequest replaces every mutable field, status included. Setting
// status to inactive is a soft delete.
type UpdateUserRequest struct {
	UserRequest
	Status domain.UserStatus `json:"status" validate:"required,oneof=active inactive"`
}

// UserResponse is the transport shape of a user record.
type UserResponse struct {
	ID           int64             `json:"id"`
	FirstName    string            `json:"firstName"`
	LastName     string            `json:"lastName"`
	Email        string            `json:"email"`
	Address      string            `json:"address,omitempty"`
	PhoneNumber  string            `json:"phoneNumber,omitempty"`
	CreatedDate  time.Time         `json:"createdDate"`
	ModifiedDate time.Time         `json:"modifiedDate"`
	Status       domain.UserStatus `json:"status"`
}

// ToDomain maps the request onto a user with the given id and status.
func (r UserRequest) ToDomain(id int64, status domain.UserStatus) domain.User {
	return domain.User{
		ID:          id,
		FirstName:   r.FirstName,
		LastName:    r.LastName,
		Email:       r.Email,
		Address:     r.Address,
		PhoneNumber: r.PhoneNumber,
		Status:      status,
	}
}

// NewUserResponse maps a domain user for output.
func NewUserResponse(u *domain.User) UserResponse {
	return UserResponse{
		ID:           u.ID,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		Email:        u.Email,
		Address:      u.Address,
		PhoneNumber:  u.PhoneNumber,
		CreatedDate:  u.CreatedDate,
		ModifiedDate: u.ModifiedDate,
		Status:       u.Status,
	}
}

// NewUserList maps a slice of users; the result is never nil.
func NewUserList(users []domain.User) []UserResponse {
	out := make([]UserResponse, 0, len(users))
	for i := range users {
		out = append(out, NewUserResponse(&users[i]))
	}
	return out
}
