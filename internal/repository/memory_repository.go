package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/iliyamo/account-service/internal/model"
)

// MemoryStore keeps accounts in process memory.  It backs APP_STORE=memory
// for local development and the service and handler tests.  Unique keys
// are enforced like the MySQL schema does.
type MemoryStore struct {
	mu    sync.Mutex
	state *memState
}

var _ TxStore = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{state: newMemState(time.Now)}
}

// NewMemoryStoreWithClock is NewMemoryStore with a custom timestamp source.
func NewMemoryStoreWithClock(now func() time.Time) *MemoryStore {
	return &MemoryStore{state: newMemState(now)}
}

func (s *MemoryStore) GetByID(ctx context.Context, id uint64) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.GetByID(ctx, id)
}

func (s *MemoryStore) GetByEmail(ctx context.Context, email string) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.GetByEmail(ctx, email)
}

func (s *MemoryStore) GetByUsername(ctx context.Context, username string) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.GetByUsername(ctx, username)
}

func (s *MemoryStore) List(ctx context.Context, skip, limit int) ([]model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.List(ctx, skip, limit)
}

func (s *MemoryStore) Create(ctx context.Context, in model.NewUser) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Create(ctx, in)
}

func (s *MemoryStore) Update(ctx context.Context, id uint64, changes model.UserChanges) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Update(ctx, id, changes)
}

func (s *MemoryStore) Delete(ctx context.Context, id uint64) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Delete(ctx, id)
}

// InTx runs fn against a copy of the data and publishes the copy only if fn
// succeeds.  The store is locked for the whole call, so fn must only use
// the store it is given.
func (s *MemoryStore) InTx(ctx context.Context, fn func(ctx context.Context, store AccountStore) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	work := s.state.clone()
	if err := fn(ctx, work); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.state = work
	return nil
}

// memState is the unlocked data behind MemoryStore.
type memState struct {
	users  map[uint64]model.User
	nextID uint64
	now    func() time.Time
}

func newMemState(now func() time.Time) *memState {
	return &memState{users: map[uint64]model.User{}, nextID: 1, now: now}
}

func (m *memState) clone() *memState {
	users := make(map[uint64]model.User, len(m.users))
	for id, u := range m.users {
		users[id] = u
	}
	return &memState{users: users, nextID: m.nextID, now: m.now}
}

func (m *memState) GetByID(ctx context.Context, id uint64) (model.User, error) {
	if err := ctx.Err(); err != nil {
		return model.User{}, err
	}
	u, ok := m.users[id]
	if !ok {
		return model.User{}, ErrNotFound
	}
	return u, nil
}

func (m *memState) find(ctx context.Context, match func(model.User) bool) (model.User, error) {
	if err := ctx.Err(); err != nil {
		return model.User{}, err
	}
	for _, u := range m.users {
		if match(u) {
			return u, nil
		}
	}
	return model.User{}, ErrNotFound
}

func (m *memState) GetByEmail(ctx context.Context, email string) (model.User, error) {
	return m.find(ctx, func(u model.User) bool { return u.Email == email })
}

func (m *memState) GetByUsername(ctx context.Context, username string) (model.User, error) {
	return m.find(ctx, func(u model.User) bool { return u.Username == username })
}

func (m *memState) List(ctx context.Context, skip, limit int) ([]model.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ids := make([]uint64, 0, len(m.users))
	for id := range m.users {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	out := []model.User{}
	for i := skip; i < len(ids) && len(out) < limit; i++ {
		out = append(out, m.users[ids[i]])
	}
	return out, nil
}

func (m *memState) taken(id uint64, email, username *string) bool {
	for _, u := range m.users {
		if u.ID == id {
			continue
		}
		if email != nil && u.Email == *email {
			return true
		}
		if username != nil && u.Username == *username {
			return true
		}
	}
	return false
}

func (m *memState) Create(ctx context.Context, in model.NewUser) (model.User, error) {
	if err := ctx.Err(); err != nil {
		return model.User{}, err
	}
	if m.taken(0, &in.Email, &in.Username) {
		return model.User{}, ErrConflict
	}
	now := m.now().UTC()
	u := model.User{
		ID:             m.nextID,
		Email:          in.Email,
		Username:       in.Username,
		HashedPassword: in.HashedPassword,
		IsActive:       in.IsActive,
		IsSuperuser:    in.IsSuperuser,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if in.FullName != nil {
		name := *in.FullName
		u.FullName = &name
	}
	m.users[u.ID] = u
	m.nextID++
	return u, nil
}

func (m *memState) Update(ctx context.Context, id uint64, changes model.UserChanges) (model.User, error) {
	u, err := m.GetByID(ctx, id)
	if err != nil {
		return model.User{}, err
	}
	if changes.Empty() {
		return u, nil
	}
	if m.taken(id, changes.Email, changes.Username) {
		return model.User{}, ErrConflict
	}
	changes.Apply(&u)
	u.UpdatedAt = m.now().UTC()
	m.users[id] = u
	return u, nil
}

func (m *memState) Delete(ctx context.Context, id uint64) (model.User, error) {
	u, err := m.GetByID(ctx, id)
	if err != nil {
		return model.User{}, err
	}
	delete(m.users, id)
	return u, nil
}
