package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync/atomic"

	"github.com/hashicorp/go-memdb"

	"github.com/spec-kit/user-service/internal/domain"
)

const (
	usersTable  = "users"
	indexID     = "id"
	indexStatus = "status"
)

func memorySchema() *memdb.DBSchema {
	return &memdb.DBSchema{
		Tables: map[string]*memdb.TableSchema{
			usersTable: {
				Name: usersTable,
				Indexes: map[string]*memdb.IndexSchema{
					indexID: {
						Name:    indexID,
						Unique:  true,
						Indexer: &memdb.IntFieldIndex{Field: "ID"},
					},
					indexStatus: {
						Name:         indexStatus,
						AllowMissing: true,
						Indexer:      &memdb.StringFieldIndex{Field: "Status"},
					},
				},
			},
		},
	}
}

// MemoryStore is an embedded record store backed by go-memdb. A unit of work
// from Begin holds the single write transaction until it commits or rolls
// back, so writers run one at a time. Units from BeginRead read a snapshot
// and never wait for a writer.
type MemoryStore struct {
	db     *memdb.MemDB
	nextID atomic.Int64
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() (*MemoryStore, error) {
	db, err := memdb.NewMemDB(memorySchema())
	if err != nil {
		return nil, fmt.Errorf("create memdb: %w", err)
	}
	return &MemoryStore{db: db}, nil
}

// Begin opens a write transaction.
func (s *MemoryStore) Begin(_ context.Context) (UnitOfWork, error) {
	txn := s.db.Txn(true)
	return &memoryUnitOfWork{txn: txn, users: &memoryUserRepository{txn: txn, store: s}}, nil
}

// BeginRead opens a read transaction on the current snapshot.
func (s *MemoryStore) BeginRead(_ context.Context) (UnitOfWork, error) {
	txn := s.db.Txn(false)
	return &memoryUnitOfWork{txn: txn, users: &memoryUserRepository{txn: txn, store: s, readOnly: true}}, nil
}

// Ping always succeeds; it lets the store take part in readiness checks.
func (s *MemoryStore) Ping(_ context.Context) error {
	return nil
}

type memoryUnitOfWork struct {
	txn   *memdb.Txn
	users *memoryUserRepository
	done  bool
}

func (u *memoryUnitOfWork) Users() UserRepository {
	return u.users
}

func (u *memoryUnitOfWork) Commit(_ context.Context) error {
	if u.done {
		return errors.New("unit of work already finished")
	}
	u.done = true
	u.txn.Commit()
	return nil
}

func (u *memoryUnitOfWork) Rollback(_ context.Context) error {
	if u.done {
		return nil
	}
	u.done = true
	u.txn.Abort()
	return nil
}

type memoryUserRepository struct {
	txn      *memdb.Txn
	store    *MemoryStore
	readOnly bool
}

func (r *memoryUserRepository) Add(_ context.Context, user *domain.User) error {
	if r.readOnly {
		return ErrReadOnly
	}
	user.ID = r.store.nextID.Add(1)
	record := *user
	record.Normalize()
	if err := r.txn.Insert(usersTable, &record); err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	user.Status = record.Status
	return nil
}

func (r *memoryUserRepository) Update(_ context.Context, user *domain.User) error {
	if r.readOnly {
		return ErrReadOnly
	}
	existing, err := r.find(user.ID)
	if err != nil {
		return err
	}
	record := *user
	record.CreatedDate = existing.CreatedDate
	record.Normalize()
	if err := r.txn.Insert(usersTable, &record); err != nil {
		return fmt.Errorf("update user %d: %w", user.ID, err)
	}
	return nil
}

func (r *memoryUserRepository) Delete(_ context.Context, user *domain.User) error {
	if r.readOnly {
		return ErrReadOnly
	}
	existing, err := r.find(user.ID)
	if err != nil {
		return err
	}
	if err := r.txn.Delete(usersTable, existing); err != nil {
		if errors.Is(err, memdb.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("delete user %d: %w", user.ID, err)
	}
	return nil
}

func (r *memoryUserRepository) FindByID(_ context.Context, id int64) (*domain.User, error) {
	existing, err := r.find(id)
	if err != nil {
		return nil, err
	}
	user := *existing
	return &user, nil
}

func (r *memoryUserRepository) Exists(_ context.Context, id int64) (bool, error) {
	_, err := r.find(id)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (r *memoryUserRepository) FindAll(_ context.Context, filter UserFilter) ([]domain.User, error) {
	result := []domain.User{}
	collect := func(it memdb.ResultIterator) {
		for raw := it.Next(); raw != nil; raw = it.Next() {
			user := *raw.(*domain.User)
			if statusAllowed(filter.Statuses, user.Status) {
				result = append(result, user)
			}
		}
	}

	if len(filter.Statuses) == 0 {
		it, err := r.txn.Get(usersTable, indexID)
		if err != nil {
			return nil, fmt.Errorf("list users: %w", err)
		}
		collect(it)
	} else {
		seen := make(map[domain.UserStatus]struct{}, len(filter.Statuses))
		for _, status := range filter.Statuses {
			if _, dup := seen[status]; dup {
				continue
			}
			seen[status] = struct{}{}
			it, err := r.txn.Get(usersTable, indexStatus, string(status))
			if err != nil {
				return nil, fmt.Errorf("list users by status %s: %w", status, err)
			}
			collect(it)
		}
	}

	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// find returns the stored object itself; callers must copy before handing it out.
func (r *memoryUserRepository) find(id int64) (*domain.User, error) {
	raw, err := r.txn.First(usersTable, indexID, id)
	if err != nil {
		return nil, fmt.Errorf("get user %d: %w", id, err)
	}
	if raw == nil {
		return nil, ErrNotFound
	}
	return raw.(*domain.User), nil
}
