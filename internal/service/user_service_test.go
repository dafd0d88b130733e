package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/user-service/internal/domain"
	"github.com/spec-kit/user-service/internal/events"
	"github.com/spec-kit/user-service/internal/repository"
	apperrors "github.com/spec-kit/user-service/pkg/util/errorutil"
)

type recordingSender struct {
	mu   sync.Mutex
	sent []domain.Email
	err  error
}

func (s *recordingSender) Send(_ context.Context, msg domain.Email) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, msg)
	return s.err
}

func (s *recordingSender) last(t *testing.T) domain.Email {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	require.NotEmpty(t, s.sent, "no notification sent")
	return s.sent[len(s.sent)-1]
}

type fixture struct {
	svc        *UserService
	store      *repository.MemoryStore
	sender     *recordingSender
	dispatched []events.Event
}

var fixedNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store, err := repository.NewMemoryStore()
	require.NoError(t, err)

	f := &fixture{store: store, sender: &recordingSender{}}
	dispatcher := events.NewInMemoryDispatcher()
	for _, eventType := range events.AllEventTypes {
		dispatcher.Subscribe(eventType, func(_ context.Context, e events.Event) error {
			f.dispatched = append(f.dispatched, e)
			return nil
		})
	}
	f.svc = NewUserService(UserDependencies{
		Store:      store,
		Sender:     f.sender,
		Dispatcher: dispatcher,
		Now:        func() time.Time { return fixedNow },
	})
	return f
}

func johnDoe() domain.User {
	return domain.User{FirstName: "John", LastName: "Doe", Email: "john@example.com"}
}

func TestAddUserThenGetUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	input := johnDoe()
	input.ID = 99
	input.Address = "1 Main Street"
	input.Status = domain.UserStatusActive

	created, err := f.svc.AddUser(ctx, input)
	require.NoError(t, err)
	assert.NotZero(t, created.ID)
	assert.NotEqual(t, int64(99), created.ID)
	assert.Equal(t, fixedNow, created.CreatedDate)
	assert.Equal(t, fixedNow, created.ModifiedDate)

	got, err := f.svc.GetUser(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "John", got.FirstName)
	assert.Equal(t, "Doe", got.LastName)
	assert.Equal(t, "john@example.com", got.Email)
	assert.Equal(t, "1 Main Street", got.Address)
	assert.Equal(t, domain.UserStatusActive, got.Status)

	msg := f.sender.last(t)
	assert.Equal(t, domain.Email{
		To:      "john@example.com",
		Subject: "Welcome to ACGSS System",
		Body:    "Your user has been created successfully.",
	}, msg)

	require.Len(t, f.dispatched, 1)
	assert.Equal(t, events.EventUserCreated, f.dispatched[0].Type)
	assert.Equal(t, created.ID, f.dispatched[0].UserID)
	assert.NotEmpty(t, f.dispatched[0].ID)
}

func TestAddUserKeepsProvidedDates(t *testing.T) {
	f := newFixture(t)
	input := johnDoe()
	input.CreatedDate = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

	created, err := f.svc.AddUser(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, input.CreatedDate, created.CreatedDate)
	assert.Equal(t, fixedNow, created.ModifiedDate)
}

func TestMissingUserIsNotFound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.GetUser(ctx, 42)
	assert.True(t, apperrors.IsNotFound(err))

	missing := johnDoe()
	missing.ID = 42
	assert.True(t, apperrors.IsNotFound(f.svc.UpdateUser(ctx, missing)))
	assert.True(t, apperrors.IsNotFound(f.svc.DeleteUser(ctx, 42)))
	assert.True(t, apperrors.IsNotFound(f.svc.DeactivateUser(ctx, 42)))

	assert.Empty(t, f.sender.sent)
	assert.Empty(t, f.dispatched)
}

func TestNotFoundCarriesID(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.GetUser(context.Background(), 7)

	de := apperrors.ToDomainError(err)
	assert.Equal(t, apperrors.CodeNotFound, de.Code)
	assert.Equal(t, int64(7), de.Details["id"])
}

func TestListActiveUsers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	list, err := f.svc.ListActiveUsers(ctx)
	require.NoError(t, err)
	require.NotNil(t, list)
	assert.Empty(t, list)

	var activeIDs []int64
	for i, status := range []domain.UserStatus{domain.UserStatusActive, domain.UserStatusInactive, domain.UserStatusActive, ""} {
		input := johnDoe()
		input.FirstName = []string{"a", "b", "c", "d"}[i]
		input.Status = status
		created, err := f.svc.AddUser(ctx, input)
		require.NoError(t, err)
		if status == domain.UserStatusActive {
			activeIDs = append(activeIDs, created.ID)
		}
	}

	list, err = f.svc.ListActiveUsers(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	for i, user := range list {
		assert.Equal(t, activeIDs[i], user.ID)
		assert.Equal(t, domain.UserStatusActive, user.Status)
	}
}

func TestUpdateUserNotificationFollowsStatus(t *testing.T) {
	tests := []struct {
		name   string
		status domain.UserStatus
		body   string
	}{
		{name: "active", status: domain.UserStatusActive, body: "Your user has been updated successfully."},
		{name: "inactive", status: domain.UserStatusInactive, body: "Your user has been deleted successfully."},
		{name: "unset", status: "", body: "Your user has been deleted successfully."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()
			created, err := f.svc.AddUser(ctx, johnDoe())
			require.NoError(t, err)

			update := *created
			update.FirstName = "Johnny"
			update.Email = "johnny@example.com"
			update.Status = tt.status
			require.NoError(t, f.svc.UpdateUser(ctx, update))

			msg := f.sender.last(t)
			assert.Equal(t, "johnny@example.com", msg.To)
			assert.Equal(t, domain.NotificationSubject, msg.Subject)
			assert.Equal(t, tt.body, msg.Body)

			got, err := f.svc.GetUser(ctx, created.ID)
			require.NoError(t, err)
			assert.Equal(t, "Johnny", got.FirstName)
		})
	}
}

func TestUpdateUserKeepsCreatedDate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	created, err := f.svc.AddUser(ctx, johnDoe())
	require.NoError(t, err)

	later := fixedNow.Add(time.Hour)
	f.svc.now = func() time.Time { return later }

	update := *created
	update.CreatedDate = time.Date(1999, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, f.svc.UpdateUser(ctx, update))

	got, err := f.svc.GetUser(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, fixedNow, got.CreatedDate)
	assert.Equal(t, later, got.ModifiedDate)
}

func TestDeleteUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	created, err := f.svc.AddUser(ctx, johnDoe())
	require.NoError(t, err)

	require.NoError(t, f.svc.DeleteUser(ctx, created.ID))

	_, err = f.svc.GetUser(ctx, created.ID)
	assert.True(t, apperrors.IsNotFound(err))

	msg := f.sender.last(t)
	assert.Equal(t, "john@example.com", msg.To)
	assert.Equal(t, domain.NotificationBodyDeleted, msg.Body)
	assert.Equal(t, events.EventUserDeleted, f.dispatched[len(f.dispatched)-1].Type)
}

func TestDeactivateUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	input := johnDoe()
	input.Status = domain.UserStatusActive
	created, err := f.svc.AddUser(ctx, input)
	require.NoError(t, err)

	require.NoError(t, f.svc.DeactivateUser(ctx, created.ID))

	got, err := f.svc.GetUser(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.UserStatusInactive, got.Status)

	active, err := f.svc.ListActiveUsers(ctx)
	require.NoError(t, err)
	assert.Empty(t, active)

	assert.Equal(t, domain.NotificationBodyDeleted, f.sender.last(t).Body)
	assert.Equal(t, events.EventUserDeactivated, f.dispatched[len(f.dispatched)-1].Type)
}

func TestNotificationFailureDoesNotFailOperation(t *testing.T) {
	f := newFixture(t)
	f.sender.err = errors.New("provider unavailable")
	ctx := context.Background()

	created, err := f.svc.AddUser(ctx, johnDoe())
	require.NoError(t, err)

	_, err = f.svc.GetUser(ctx, created.ID)
	require.NoError(t, err)
	require.NoError(t, f.svc.DeleteUser(ctx, created.ID))
	assert.Len(t, f.sender.sent, 2)
}

func TestEventPublishFailureIsSwallowed(t *testing.T) {
	store, err := repository.NewMemoryStore()
	require.NoError(t, err)
	dispatcher := events.NewInMemoryDispatcher()
	dispatcher.Subscribe(events.EventUserCreated, func(context.Context, events.Event) error {
		return errors.New("stream unavailable")
	})
	svc := NewUserService(UserDependencies{Store: store, Sender: &recordingSender{}, Dispatcher: dispatcher})

	_, err = svc.AddUser(context.Background(), johnDoe())
	assert.NoError(t, err)
}

type failingFactory struct{}

func (failingFactory) Begin(context.Context) (repository.UnitOfWork, error) {
	return nil, errors.New("store offline")
}

func TestStoreFailureIsInternal(t *testing.T) {
	sender := &recordingSender{}
	svc := NewUserService(UserDependencies{Store: failingFactory{}, Sender: sender})
	ctx := context.Background()

	_, err := svc.AddUser(ctx, johnDoe())
	assert.Equal(t, apperrors.CodeInternal, apperrors.ToDomainError(err).Code)
	_, err = svc.ListActiveUsers(ctx)
	assert.Equal(t, apperrors.CodeInternal, apperrors.ToDomainError(err).Code)
	_, err = svc.GetUser(ctx, 1)
	assert.Equal(t, apperrors.CodeInternal, apperrors.ToDomainError(err).Code)
	assert.Empty(t, sender.sent)
}

// An empty store receiving John Doe with no status keeps him out of the
// active list.
func TestJohnDoeScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.svc.AddUser(ctx, johnDoe())
	require.NoError(t, err)
	assert.NotZero(t, created.ID)
	assert.Equal(t, "John", created.FirstName)
	assert.Equal(t, domain.UserStatusInactive, created.Status)

	list, err := f.svc.ListActiveUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, []domain.User{}, list)
}

func TestReadsDoNotWaitForOpenWriter(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	input := johnDoe()
	input.Status = domain.UserStatusActive
	created, err := f.svc.AddUser(ctx, input)
	require.NoError(t, err)

	writer, err := f.store.Begin(ctx)
	require.NoError(t, err)
	defer writer.Rollback(ctx) //nolint:errcheck

	done := make(chan error, 1)
	go func() {
		if _, err := f.svc.GetUser(ctx, created.ID); err != nil {
			done <- err
			return
		}
		_, err := f.svc.ListActiveUsers(ctx)
		done <- err
	}()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("reads blocked behind open writer")
	}
}
