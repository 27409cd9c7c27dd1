package repository

import (
	"context"

	"github.com/iliyamo/account-service/internal/model"
)

// Repository is the generic CRUD surface shared by stores.  T is the
// stored entity, C the shape handed to Create and U the change set handed
// to Update.
type Repository[T, C, U any] interface {
	GetByID(ctx context.Context, id uint64) (T, error)
	List(ctx context.Context, skip, limit int) ([]T, error)
	Create(ctx context.Context, in C) (T, error)
	// Update writes changes to the record with the given id and returns
	// the stored result with a fresh updated-at.
	Update(ctx context.Context, id uint64, changes U) (T, error)
	// Delete removes the record and returns it as it was.
	Delete(ctx context.Context, id uint64) (T, error)
}

// AccountStore adds the unique-key lookups accounts need.
type AccountStore interface {
	Repository[model.User, model.NewUser, model.UserChanges]
	GetByEmail(ctx context.Context, email string) (model.User, error)
	GetByUsername(ctx context.Context, username string) (model.User, error)
}

// Transactor runs fn against a store whose writes are applied together or
// not at all.
type Transactor interface {
	InTx(ctx context.Context, fn func(ctx context.Context, store AccountStore) error) error
}

// TxStore is a store that can also open transactions.
type TxStore interface {
	AccountStore
	Transactor
}
