package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/iliyamo/account-service/internal/model"
	"github.com/iliyamo/account-service/internal/repository"
	"github.com/iliyamo/account-service/internal/utils"
)

// TokenVerifier checks a raw access token.
type TokenVerifier interface {
	Verify(raw string) (utils.TokenClaims, error)
}

// AccountReader loads accounts by id.
type AccountReader interface {
	GetByID(ctx context.Context, id uint64) (model.User, error)
}

// Check is one predicate stacked on top of a resolved account.
type Check func(model.User) error

// RequireActive refuses deactivated accounts.
func RequireActive(u model.User) error {
	if !u.IsActive {
		return ErrInactiveAccount
	}
	return nil
}

// RequireSuperuser refuses accounts without the superuser flag.
func RequireSuperuser(u model.User) error {
	if !u.IsSuperuser {
		return ErrForbidden
	}
	return nil
}

// Permission levels, each a prefix of the next.  The active check always
// runs before the role check.
var (
	Authenticated = []Check{}
	Active        = []Check{RequireActive}
	Superuser     = []Check{RequireActive, RequireSuperuser}
)

// Resolver turns a bearer token into an account: token present, token
// valid, account exists, then any extra checks.  It holds no per-request
// state and is safe to share between goroutines.
type Resolver struct {
	tokens   TokenVerifier
	accounts AccountReader
}

func NewResolver(tokens TokenVerifier, accounts AccountReader) *Resolver {
	return &Resolver{tokens: tokens, accounts: accounts}
}

// Resolve runs the chain.  Every token or lookup failure is reported as
// ErrUnauthenticated (the cause is joined for logging only); storage
// failures and cancellation are returned as they are.
func (r *Resolver) Resolve(ctx context.Context, raw string, checks ...Check) (model.User, error) {
	if raw == "" {
		return model.User{}, ErrUnauthenticated
	}
	claims, err := r.tokens.Verify(raw)
	if err != nil {
		return model.User{}, fmt.Errorf("%w: %w", ErrUnauthenticated, err)
	}
	id, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil || id == 0 {
		return model.User{}, fmt.Errorf("%w: subject %q is not an account id", ErrUnauthenticated, claims.Subject)
	}
	u, err := r.accounts.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.User{}, fmt.Errorf("%w: account %d no longer exists", ErrUnauthenticated, id)
		}
		return model.User{}, fmt.Errorf("lookup user: %w", err)
	}
	for _, check := range checks {
		if err := check(u); err != nil {
			return model.User{}, err
		}
	}
	return u, nil
}
