package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/iliyamo/account-service/internal/database"
	"github.com/iliyamo/account-service/internal/model"
)

const userColumns = "id,email,username,full_name,hashed_password,is_active,is_superuser,created_at,updated_at"

// UserRepo is the MySQL account store.  It runs against either the pool
// or an open transaction.
type UserRepo struct{ DB database.DBTX }

func NewUserRepo(db database.DBTX) *UserRepo { return &UserRepo{DB: db} }

var _ AccountStore = (*UserRepo)(nil)

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (model.User, error) {
	var (
		u        model.User
		fullName sql.NullString
	)
	err := row.Scan(&u.ID, &u.Email, &u.Username, &fullName, &u.HashedPassword,
		&u.IsActive, &u.IsSuperuser, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.User{}, ErrNotFound
		}
		return model.User{}, err
	}
	if fullName.Valid {
		u.FullName = &fullName.String
	}
	u.CreatedAt = u.CreatedAt.UTC()
	u.UpdatedAt = u.UpdatedAt.UTC()
	return u, nil
}

func (r *UserRepo) getOne(ctx context.Context, where string, arg any) (model.User, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE "+where+" LIMIT 1", arg)
	return scanUser(row)
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	return r.getOne(ctx, "id=?", id)
}

// GetByEmail fetches a user by email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	return r.getOne(ctx, "email=?", email)
}

// GetByUsername fetches a user by username.
func (r *UserRepo) GetByUsername(ctx context.Context, username string) (model.User, error) {
	return r.getOne(ctx, "username=?", username)
}

// List returns users ordered by id.
func (r *UserRepo) List(ctx context.Context, skip, limit int) ([]model.User, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+userColumns+" FROM users ORDER BY id LIMIT ? OFFSET ?", limit, skip)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]model.User, 0, limit)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// Create inserts a user and returns the stored row.
func (r *UserRepo) Create(ctx context.Context, in model.NewUser) (model.User, error) {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (email, username, full_name, hashed_password, is_active, is_superuser) VALUES (?,?,?,?,?,?)",
		in.Email, in.Username, nullString(in.FullName), in.HashedPassword, in.IsActive, in.IsSuperuser)
	if err != nil {
		if isDuplicate(err) {
			return model.User{}, ErrConflict
		}
		return model.User{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.User{}, err
	}
	return r.GetByID(ctx, uint64(id))
}

// Update writes the non-nil columns of changes and bumps updated_at.
func (r *UserRepo) Update(ctx context.Context, id uint64, changes model.UserChanges) (model.User, error) {
	var (
		sets []string
		args []any
	)
	add := func(col string, v any) {
		sets = append(sets, col+"=?")
		args = append(args, v)
	}
	if changes.Email != nil {
		add("email", *changes.Email)
	}
	if changes.Username != nil {
		add("username", *changes.Username)
	}
	if changes.FullName != nil {
		add("full_name", *changes.FullName)
	}
	if changes.HashedPassword != nil {
		add("hashed_password", *changes.HashedPassword)
	}
	if changes.IsActive != nil {
		add("is_active", *changes.IsActive)
	}
	if changes.IsSuperuser != nil {
		add("is_superuser", *changes.IsSuperuser)
	}
	if len(sets) == 0 {
		return r.GetByID(ctx, id)
	}
	sets = append(sets, "updated_at=CURRENT_TIMESTAMP(6)")
	args = append(args, id)

	query := fmt.Sprintf("UPDATE users SET %s WHERE id=?", strings.Join(sets, ", "))
	if _, err := r.DB.ExecContext(ctx, query, args...); err != nil {
		if isDuplicate(err) {
			return model.User{}, ErrConflict
		}
		return model.User{}, err
	}
	return r.GetByID(ctx, id)
}

// Delete removes a user and returns the row as it was before deletion.
func (r *UserRepo) Delete(ctx context.Context, id uint64) (model.User, error) {
	u, err := r.GetByID(ctx, id)
	if err != nil {
		return model.User{}, err
	}
	res, err := r.DB.ExecContext(ctx, "DELETE FROM users WHERE id=?", id)
	if err != nil {
		return model.User{}, err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return model.User{}, ErrNotFound
	}
	return u, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// MySQLStore pairs a UserRepo on the pool with transaction support.
type MySQLStore struct {
	*UserRepo
	db *sql.DB
}

func NewMySQLStore(db *sql.DB) *MySQLStore {
	return &MySQLStore{UserRepo: NewUserRepo(db), db: db}
}

// InTx runs fn with a UserRepo bound to a new transaction.
func (s *MySQLStore) InTx(ctx context.Context, fn func(ctx context.Context, store AccountStore) error) error {
	return database.WithTx(ctx, s.db, nil, func(ctx context.Context, tx database.DBTX) error {
		return fn(ctx, NewUserRepo(tx))
	})
}
