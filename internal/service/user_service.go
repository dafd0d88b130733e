package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/user-service/internal/domain"
	"github.com/spec-kit/user-service/internal/events"
	"github.com/spec-kit/user-service/internal/notification"
	"github.com/spec-kit/user-service/internal/repository"
	apperrors "github.com/spec-kit/user-service/pkg/util/errorutil"
)

// UserService coordinates user lifecycle workflows. Every operation runs in
// one unit of work; notifications and events go out only after commit.
type UserService struct {
	store      repository.UnitOfWorkFactory
	sender     notification.Sender
	dispatcher events.Dispatcher
	logger     *zap.Logger
	now        func() time.Time
}

// UserDependencies bundles collaborators for the user service.
type UserDependencies struct {
	Store      repository.UnitOfWorkFactory
	Sender     notification.Sender
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
	// Now defaults to time.Now.
	Now func() time.Time
}

// NewUserService constructs the service.
func NewUserService(deps UserDependencies) *UserService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &UserService{
		store:      deps.Store,
		sender:     deps.Sender,
		dispatcher: deps.Dispatcher,
		logger:     logger,
		now:        now,
	}
}

// AddUser stores a new record and sends the created notification. The input
// id is ignored and an unset status is stored as inactive.
func (s *UserService) AddUser(ctx context.Context, input domain.User) (*domain.User, error) {
	user := input
	user.ID = 0
	user.Normalize()
	now := s.now().UTC()
	if user.CreatedDate.IsZero() {
		user.CreatedDate = now
	}
	if user.ModifiedDate.IsZero() {
		user.ModifiedDate = now
	}

	err := s.inUnitOfWork(ctx, func(users repository.UserRepository) error {
		return users.Add(ctx, &user)
	})
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	s.logger.Info("user created", zap.Int64("user_id", user.ID))
	s.notify(ctx, user.ID, domain.NewNotification(user.Email, domain.NotificationBodyCreated))
	s.publish(ctx, events.EventUserCreated, &user)
	return &user, nil
}

// UpdateUser overwrites the mutable fields of an existing record. An active
// record is notified as updated, an inactive one as deleted.
func (s *UserService) UpdateUser(ctx context.Context, input domain.User) error {
	return s.update(ctx, input, events.EventUserUpdated)
}

// DeactivateUser soft-deletes a record by marking it inactive.
func (s *UserService) DeactivateUser(ctx context.Context, id int64) error {
	user, err := s.GetUser(ctx, id)
	if err != nil {
		return err
	}
	user.Status = domain.UserStatusInactive
	return s.update(ctx, *user, events.EventUserDeactivated)
}

func (s *UserService) update(ctx context.Context, input domain.User, eventType events.EventType) error {
	user := input
	user.Normalize()
	user.ModifiedDate = s.now().UTC()

	err := s.inUnitOfWork(ctx, func(users repository.UserRepository) error {
		exists, err := users.Exists(ctx, user.ID)
		if err != nil {
			return err
		}
		if !exists {
			return repository.ErrNotFound
		}
		return users.Update(ctx, &user)
	})
	if err != nil {
		return s.translate(err, user.ID)
	}

	body := domain.NotificationBodyDeleted
	if user.IsActive() {
		body = domain.NotificationBodyUpdated
	}
	s.logger.Info("user updated", zap.Int64("user_id", user.ID), zap.String("status", string(user.Status)))
	s.notify(ctx, user.ID, domain.NewNotification(user.Email, body))
	s.publish(ctx, eventType, &user)
	return nil
}

// DeleteUser permanently removes a record and notifies its stored address.
func (s *UserService) DeleteUser(ctx context.Context, id int64) error {
	var removed *domain.User
	err := s.inUnitOfWork(ctx, func(users repository.UserRepository) error {
		exists, err := users.Exists(ctx, id)
		if err != nil {
			return err
		}
		if !exists {
			return repository.ErrNotFound
		}
		user, err := users.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if err := users.Delete(ctx, user); err != nil {
			return err
		}
		removed = user
		return nil
	})
	if err != nil {
		return s.translate(err, id)
	}

	s.logger.Info("user deleted", zap.Int64("user_id", id))
	s.notify(ctx, id, domain.NewNotification(removed.Email, domain.NotificationBodyDeleted))
	s.publish(ctx, events.EventUserDeleted, removed)
	return nil
}

// GetUser returns a single record.
func (s *UserService) GetUser(ctx context.Context, id int64) (*domain.User, error) {
	var user *domain.User
	err := s.inReadUnitOfWork(ctx, func(users repository.UserRepository) error {
		found, err := users.FindByID(ctx, id)
		if err != nil {
			return err
		}
		user = found
		return nil
	})
	if err != nil {
		return nil, s.translate(err, id)
	}
	return user, nil
}

// ListActiveUsers returns every active record in store order. The result is
// never nil.
func (s *UserService) ListActiveUsers(ctx context.Context) ([]domain.User, error) {
	users := []domain.User{}
	err := s.inReadUnitOfWork(ctx, func(repo repository.UserRepository) error {
		found, err := repo.FindAll(ctx, repository.UserFilter{
			Statuses: []domain.UserStatus{domain.UserStatusActive},
		})
		if err != nil {
			return err
		}
		if found != nil {
			users = found
		}
		return nil
	})
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return users, nil
}

// inUnitOfWork runs fn in a fresh unit of work, committing on success and
// rolling back otherwise.
func (s *UserService) inUnitOfWork(ctx context.Context, fn func(repository.UserRepository) error) error {
	uow, err := s.store.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin unit of work: %w", err)
	}
	return s.run(ctx, uow, fn)
}

// inReadUnitOfWork is inUnitOfWork for reads. It uses a read-only unit when
// the store offers one.
func (s *UserService) inReadUnitOfWork(ctx context.Context, fn func(repository.UserRepository) error) error {
	reader, ok := s.store.(repository.ReadUnitOfWorkFactory)
	if !ok {
		return s.inUnitOfWork(ctx, fn)
	}
	uow, err := reader.BeginRead(ctx)
	if err != nil {
		return fmt.Errorf("begin read unit of work: %w", err)
	}
	return s.run(ctx, uow, fn)
}

func (s *UserService) run(ctx context.Context, uow repository.UnitOfWork, fn func(repository.UserRepository) error) error {
	defer func() {
		if rbErr := uow.Rollback(ctx); rbErr != nil {
			s.logger.Warn("rollback failed", zap.Error(rbErr))
		}
	}()

	if err := fn(uow.Users()); err != nil {
		return err
	}
	return uow.Commit(ctx)
}

func (s *UserService) translate(err error, id int64) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NewNotFound("user", map[string]any{"id": id})
	}
	return apperrors.NewInternalError(err)
}

// notify sends msg after the change is committed. A failed send cannot undo
// the change, so it is only logged.
func (s *UserService) notify(ctx context.Context, userID int64, msg domain.Email) {
	if s.sender == nil {
		return
	}
	if err := s.sender.Send(ctx, msg); err != nil {
		s.logger.Warn("notification failed",
			zap.Int64("user_id", userID),
			zap.String("to", msg.To),
			zap.Error(err))
	}
}

func (s *UserService) publish(ctx context.Context, eventType events.EventType, user *domain.User) {
	if s.dispatcher == nil {
		return
	}
	event := events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		UserID:    user.ID,
		Timestamp: s.now().UTC(),
		Payload:   events.UserChangedPayload{Email: user.Email, Status: user.Status},
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event publish failed",
			zap.String("event_type", string(eventType)),
			zap.Int64("user_id", user.ID),
			zap.Error(err))
	}
}
