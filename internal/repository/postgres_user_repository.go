package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/user-service/internal/domain"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const userColumns = `id, first_name, last_name, email, address, phone_number, created_date, modified_date, is_active`

type userRepository struct {
	db querier
}

func (r *userRepository) Add(ctx context.Context, user *domain.User) error {
	const query = `
        INSERT INTO users (first_name, last_name, email, address, phone_number, created_date, modified_date, is_active)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        RETURNING id, created_date, modified_date`

	if err := r.db.QueryRow(ctx, query,
		user.FirstName,
		user.LastName,
		user.Email,
		nullable(user.Address),
		nullable(user.PhoneNumber),
		user.CreatedDate,
		user.ModifiedDate,
		user.IsActive(),
	).Scan(&user.ID, &user.CreatedDate, &user.ModifiedDate); err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *userRepository) Update(ctx context.Context, user *domain.User) error {
	const query = `
        UPDATE users SET first_name=$1, last_name=$2, email=$3, address=$4, phone_number=$5,
            modified_date=$6, is_active=$7
        WHERE id=$8`

	cmd, err := r.db.Exec(ctx, query,
		user.FirstName,
		user.LastName,
		user.Email,
		nullable(user.Address),
		nullable(user.PhoneNumber),
		user.ModifiedDate,
		user.IsActive(),
		user.ID,
	)
	if err != nil {
		return fmt.Errorf("update user %d: %w", user.ID, err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *userRepository) Delete(ctx context.Context, user *domain.User) error {
	cmd, err := r.db.Exec(ctx, `DELETE FROM users WHERE id=$1`, user.ID)
	if err != nil {
		return fmt.Errorf("delete user %d: %w", user.ID, err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *userRepository) FindByID(ctx context.Context, id int64) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id=$1`

	user, err := scanUser(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user %d: %w", id, err)
	}
	return user, nil
}

func (r *userRepository) Exists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id=$1)`, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("check user %d: %w", id, err)
	}
	return exists, nil
}

func (r *userRepository) FindAll(ctx context.Context, filter UserFilter) ([]domain.User, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status == domain.UserStatusActive)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("is_active IN (%s)", strings.Join(placeholders, ",")))
	}

	query := fmt.Sprintf(`SELECT %s FROM users WHERE %s ORDER BY id`, userColumns, strings.Join(clauses, " AND "))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	result := []domain.User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		result = append(result, *user)
	}
	return result, rows.Err()
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var (
		user        domain.User
		address     *string
		phoneNumber *string
		isActive    bool
	)
	if err := row.Scan(
		&user.ID,
		&user.FirstName,
		&user.LastName,
		&user.Email,
		&address,
		&phoneNumber,
		&user.CreatedDate,
		&user.ModifiedDate,
		&isActive,
	); err != nil {
		return nil, err
	}
	if address != nil {
		user.Address = *address
	}
	if phoneNumber != nil {
		user.PhoneNumber = *phoneNumber
	}
	user.Status = domain.UserStatusInactive
	if isActive {
		user.Status = domain.UserStatusActive
	}
	return &user, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// PostgresUnitOfWorkFactory opens a transaction per unit of work.
type PostgresUnitOfWorkFactory struct {
	pool *pgxpool.Pool
}

// NewPostgresUnitOfWorkFactory returns a factory bound to pool.
func NewPostgresUnitOfWorkFactory(pool *pgxpool.Pool) *PostgresUnitOfWorkFactory {
	return &PostgresUnitOfWorkFactory{pool: pool}
}

// Begin starts a transaction.
func (f *PostgresUnitOfWorkFactory) Begin(ctx context.Context) (UnitOfWork, error) {
	if f.pool == nil {
		return nil, errors.New("postgres pool not configured")
	}
	tx, err := f.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	return &pgUnitOfWork{tx: tx, users: &userRepository{db: tx}}, nil
}

// BeginRead starts a READ ONLY transaction; Postgres itself rejects writes.
func (f *PostgresUnitOfWorkFactory) BeginRead(ctx context.Context) (UnitOfWork, error) {
	if f.pool == nil {
		return nil, errors.New("postgres pool not configured")
	}
	tx, err := f.pool.BeginTx(ctx, pgx.TxOptions{AccessMode: pgx.ReadOnly})
	if err != nil {
		return nil, fmt.Errorf("begin read transaction: %w", err)
	}
	return &pgUnitOfWork{tx: tx, users: &userRepository{db: tx}}, nil
}

type pgUnitOfWork struct {
	tx    pgx.Tx
	users UserRepository
}

func (u *pgUnitOfWork) Users() UserRepository {
	return u.users
}

func (u *pgUnitOfWork) Commit(ctx context.Context) error {
	if err := u.tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (u *pgUnitOfWork) Rollback(ctx context.Context) error {
	err := u.tx.Rollback(ctx)
	if err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return fmt.Errorf("rollback transaction: %w", err)
	}
	return nil
}
