package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/account-service/internal/model"
	"github.com/iliyamo/account-service/internal/queue"
	"github.com/iliyamo/account-service/internal/repository"
	"github.com/iliyamo/account-service/internal/utils"
)

// TokenTypeBearer is the token kind returned by Login.
const TokenTypeBearer = "bearer"

// Pagination bounds for List.
const (
	DefaultListLimit = 100
	MaxListLimit     = 100
)

// dummyPassword is hashed once so unknown emails cost a bcrypt comparison
// like wrong passwords do.
const dummyPassword = "NoSuchAccount0"

// PasswordHasher hashes and checks passwords.
type PasswordHasher interface {
	Hash(plain string) (string, error)
	Verify(plain, hash string) bool
}

// TokenIssuer signs access tokens for an account id.
type TokenIssuer interface {
	Issue(subject string, ttl time.Duration) (utils.AccessToken, error)
}

// EventPublisher delivers account events.  Delivery is best effort.
type EventPublisher interface {
	Publish(ctx context.Context, ev queue.AccountEvent) error
}

// LoginResult is what a successful login hands back.
type LoginResult struct {
	AccessToken string
	TokenType   string
	ExpiresAt   time.Time
	User        model.User
}

// AccountService owns the account lifecycle: signup, authentication,
// profile and password updates, activation and deletion.  It keeps no
// mutable state of its own; all account data lives in the store.
type AccountService struct {
	store     repository.TxStore
	hasher    PasswordHasher
	tokens    TokenIssuer
	events    EventPublisher
	log       logrus.FieldLogger
	now       func() time.Time
	dummyHash string
}

// Option customizes an AccountService.
type Option func(*AccountService)

// WithEvents publishes account events after each committed change.
func WithEvents(p EventPublisher) Option {
	return func(s *AccountService) { s.events = p }
}

// WithLogger sets the logger used for best-effort failures.
func WithLogger(l logrus.FieldLogger) Option {
	return func(s *AccountService) { s.log = l }
}

func NewAccountService(store repository.TxStore, hasher PasswordHasher, tokens TokenIssuer, opts ...Option) *AccountService {
	s := &AccountService{
		store:  store,
		hasher: hasher,
		tokens: tokens,
		log:    logrus.StandardLogger(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if h, err := hasher.Hash(dummyPassword); err == nil {
		s.dummyHash = h
	}
	return s
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// hashPassword enforces the password policy and returns the bcrypt hash.
func (s *AccountService) hashPassword(password string) (string, error) {
	if err := utils.ValidatePasswordOrFail(password); err != nil {
		return "", err
	}
	hash, err := s.hasher.Hash(password)
	if err != nil {
		if errors.Is(err, utils.ErrPasswordTooLong) {
			return "", &PolicyViolationError{Violations: []string{"Password must be at most 72 bytes long"}}
		}
		return "", fmt.Errorf("hash password: %w", err)
	}
	return hash, nil
}

// ensureFree fails with dup when lookup finds an account other than selfID.
func ensureFree(ctx context.Context, lookup func(context.Context, string) (model.User, error), value string, selfID uint64, dup error) error {
	u, err := lookup(ctx, value)
	switch {
	case err == nil && u.ID != selfID:
		return dup
	case err == nil, errors.Is(err, repository.ErrNotFound):
		return nil
	default:
		return fmt.Errorf("lookup user: %w", err)
	}
}

// ensureUnique checks the email, then the username.  Nil values are skipped.
func ensureUnique(ctx context.Context, st repository.AccountStore, email, username *string, selfID uint64) error {
	if email != nil {
		if err := ensureFree(ctx, st.GetByEmail, *email, selfID, ErrDuplicateEmail); err != nil {
			return err
		}
	}
	if username != nil {
		if err := ensureFree(ctx, st.GetByUsername, *username, selfID, ErrDuplicateUsername); err != nil {
			return err
		}
	}
	return nil
}

// Signup creates an account.  Email and username must be unused and the
// password must satisfy the policy.  New accounts are active and not
// superusers unless in sets IsActive or IsSuperuser.
//
// The password is hashed before the transaction opens; uniqueness is
// checked once up front and again inside the transaction.
func (s *AccountService) Signup(ctx context.Context, in model.UserCreate) (model.User, error) {
	email := normalizeEmail(in.Email)
	username := strings.TrimSpace(in.Username)
	if username == "" {
		return model.User{}, ErrBlankUsername
	}

	if err := ensureUnique(ctx, s.store, &email, &username, 0); err != nil {
		return model.User{}, err
	}
	hash, err := s.hashPassword(in.Password)
	if err != nil {
		return model.User{}, err
	}
	row := model.NewUser{
		Email:          email,
		Username:       username,
		FullName:       in.FullName,
		HashedPassword: hash,
		IsActive:       true,
	}
	if in.IsActive != nil {
		row.IsActive = *in.IsActive
	}
	if in.IsSuperuser != nil {
		row.IsSuperuser = *in.IsSuperuser
	}

	var created model.User
	err = s.store.InTx(ctx, func(ctx context.Context, st repository.AccountStore) error {
		if err := ensureUnique(ctx, st, &email, &username, 0); err != nil {
			return err
		}
		var err error
		created, err = st.Create(ctx, row)
		if err != nil {
			return fmt.Errorf("create user: %w", err)
		}
		return nil
	})
	if err != nil {
		return model.User{}, err
	}
	s.publish(ctx, queue.EventAccountRegistered, created)
	return created, nil
}

// Authenticate returns the account matching email and password.  An
// unknown email and a wrong password both yield ErrInvalidCredentials.
func (s *AccountService) Authenticate(ctx context.Context, email, password string) (model.User, error) {
	u, err := s.store.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.hasher.Verify(password, s.dummyHash)
			return model.User{}, ErrInvalidCredentials
		}
		return model.User{}, fmt.Errorf("lookup user: %w", err)
	}
	if !s.hasher.Verify(password, u.HashedPassword) {
		return model.User{}, ErrInvalidCredentials
	}
	return u, nil
}

// Login authenticates and issues an access token.  Inactive accounts are
// refused with ErrInactiveAccount.
func (s *AccountService) Login(ctx context.Context, email, password string) (LoginResult, error) {
	u, err := s.Authenticate(ctx, email, password)
	if err != nil {
		return LoginResult{}, err
	}
	if !u.IsActive {
		return LoginResult{}, ErrInactiveAccount
	}
	tok, err := s.tokens.Issue(strconv.FormatUint(u.ID, 10), 0)
	if err != nil {
		return LoginResult{}, fmt.Errorf("issue token: %w", err)
	}
	return LoginResult{
		AccessToken: tok.Token,
		TokenType:   TokenTypeBearer,
		ExpiresAt:   tok.Exp,
		User:        u,
	}, nil
}

// Update applies a partial update to existing.  Changed emails and
// usernames are checked against other accounts; a new password goes
// through the policy and is stored only as a hash.  Like Signup, hashing
// happens before the transaction and uniqueness is re-checked inside it.
func (s *AccountService) Update(ctx context.Context, existing model.User, patch model.UserUpdate) (model.User, error) {
	var changes model.UserChanges
	if patch.Email != nil {
		if email := normalizeEmail(*patch.Email); email != existing.Email {
			changes.Email = &email
		}
	}
	if patch.Username != nil {
		username := strings.TrimSpace(*patch.Username)
		if username == "" {
			return model.User{}, ErrBlankUsername
		}
		if username != existing.Username {
			changes.Username = &username
		}
	}
	changes.FullName = patch.FullName

	if err := ensureUnique(ctx, s.store, changes.Email, changes.Username, existing.ID); err != nil {
		return model.User{}, err
	}
	if patch.Password != nil {
		hash, err := s.hashPassword(*patch.Password)
		if err != nil {
			return model.User{}, err
		}
		changes.HashedPassword = &hash
	}

	var updated model.User
	err := s.store.InTx(ctx, func(ctx context.Context, st repository.AccountStore) error {
		if err := ensureUnique(ctx, st, changes.Email, changes.Username, existing.ID); err != nil {
			return err
		}
		var err error
		updated, err = st.Update(ctx, existing.ID, changes)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrNotFound
			}
			return fmt.Errorf("update user: %w", err)
		}
		return nil
	})
	if err != nil {
		return model.User{}, err
	}
	s.publish(ctx, queue.EventAccountUpdated, updated)
	return updated, nil
}

// ChangePassword replaces the password after checking the current one.
func (s *AccountService) ChangePassword(ctx context.Context, user model.User, current, next string) (model.User, error) {
	if !s.hasher.Verify(current, user.HashedPassword) {
		return model.User{}, ErrIncorrectPassword
	}
	return s.Update(ctx, user, model.UserUpdate{Password: &next})
}

// SetActive activates or deactivates an account.  Deactivation takes
// effect on the next request that resolves the account.
func (s *AccountService) SetActive(ctx context.Context, id uint64, active bool) (model.User, error) {
	var updated model.User
	err := s.store.InTx(ctx, func(ctx context.Context, st repository.AccountStore) error {
		var err error
		updated, err = st.Update(ctx, id, model.UserChanges{IsActive: &active})
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrNotFound
			}
			return fmt.Errorf("update user: %w", err)
		}
		return nil
	})
	if err != nil {
		return model.User{}, err
	}
	if active {
		s.publish(ctx, queue.EventAccountActivated, updated)
	} else {
		s.publish(ctx, queue.EventAccountDeactivated, updated)
	}
	return updated, nil
}

// Delete hard-deletes an account and returns it.
func (s *AccountService) Delete(ctx context.Context, id uint64) (model.User, error) {
	var deleted model.User
	err := s.store.InTx(ctx, func(ctx context.Context, st repository.AccountStore) error {
		var err error
		deleted, err = st.Delete(ctx, id)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrNotFound
			}
			return fmt.Errorf("delete user: %w", err)
		}
		return nil
	})
	if err != nil {
		return model.User{}, err
	}
	s.publish(ctx, queue.EventAccountDeleted, deleted)
	return deleted, nil
}

// Get returns an account by id.
func (s *AccountService) Get(ctx context.Context, id uint64) (model.User, error) {
	u, err := s.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.User{}, ErrNotFound
		}
		return model.User{}, fmt.Errorf("lookup user: %w", err)
	}
	return u, nil
}

// List pages through accounts.  limit is clamped to [1, MaxListLimit]
// with 0 meaning DefaultListLimit; negative skips start at zero.
func (s *AccountService) List(ctx context.Context, skip, limit int) ([]model.User, error) {
	if skip < 0 {
		skip = 0
	}
	if limit == 0 {
		limit = DefaultListLimit
	}
	if limit < 1 {
		limit = 1
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	users, err := s.store.List(ctx, skip, limit)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

func (s *AccountService) publish(ctx context.Context, typ string, u model.User) {
	if s.events == nil {
		return
	}
	ev := queue.AccountEvent{
		Type:        typ,
		AccountID:   u.ID,
		Email:       u.Email,
		Username:    u.Username,
		IsActive:    u.IsActive,
		IsSuperuser: u.IsSuperuser,
		OccurredAt:  s.now().UTC().Format(time.RFC3339),
	}
	if err := s.events.Publish(ctx, ev); err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{
			"event":      typ,
			"account_id": u.ID,
		}).Warn("account event not published")
	}
}
