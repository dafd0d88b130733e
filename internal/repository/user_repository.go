package repository

import (
	"context"
	"errors"

	"github.com/spec-kit/user-service/internal/domain"
)

var (
	// ErrNotFound is returned when no user matches the requested id.
	ErrNotFound = errors.New("user not found")
	// ErrReadOnly is returned by writes through a read-only unit of work.
	ErrReadOnly = errors.New("read-only unit of work")
)

// UserFilter captures listing predicates. Predicates are combined with AND;
// an empty filter matches every record.
type UserFilter struct {
	Statuses []domain.UserStatus
}

// UserRepository defines persistence access for user records. Changes made
// through it become durable only when the owning UnitOfWork commits.
type UserRepository interface {
	Add(ctx context.Context, user *domain.User) error
	Update(ctx context.Context, user *domain.User) error
	Delete(ctx context.Context, user *domain.User) error
	FindByID(ctx context.Context, id int64) (*domain.User, error)
	Exists(ctx context.Context, id int64) (bool, error)
	FindAll(ctx context.Context, filter UserFilter) ([]domain.User, error)
}

// UnitOfWork groups repository calls into one commit.
type UnitOfWork interface {
	Users() UserRepository
	Commit(ctx context.Context) error
	// Rollback discards uncommitted changes. It is a no-op after Commit.
	Rollback(ctx context.Context) error
}

// UnitOfWorkFactory opens units of work against a backing store.
type UnitOfWorkFactory interface {
	Begin(ctx context.Context) (UnitOfWork, error)
}

// ReadUnitOfWorkFactory is implemented by stores that can open units of work
// for reads only. Such units do not wait for concurrent writers; their
// repository rejects writes with ErrReadOnly.
type ReadUnitOfWorkFactory interface {
	BeginRead(ctx context.Context) (UnitOfWork, error)
}

func statusAllowed(statuses []domain.UserStatus, status domain.UserStatus) bool {
	if len(statuses) == 0 {
		return true
	}
	for _, s := range statuses {
		if s == status {
			return true
		}
	}
	return false
}
