package users

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepository keeps users in process memory. It backs development runs
// without DB_URL and the handler tests.
type MemoryRepository struct {
	mu    sync.RWMutex
	users map[string]User
	now   func() time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		users: make(map[string]User),
		now:   time.Now,
	}
}

func (r *MemoryRepository) Create(_ context.Context, u *User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u.Email = NormalizeEmail(u.Email)
	for _, existing := range r.users {
		if existing.Email == u.Email {
			return ErrEmailTaken
		}
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	now := r.now()
	u.CreatedAt = now
	u.UpdatedAt = now
	r.users[u.ID] = clone(*u)
	return nil
}

func (r *MemoryRepository) FindByID(_ context.Context, id string) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	c := clone(u)
	return &c, nil
}

func (r *MemoryRepository) FindByEmail(_ context.Context, email string) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	email = NormalizeEmail(email)
	for _, u := range r.users {
		if u.Email == email {
			c := clone(u)
			return &c, nil
		}
	}
	return nil, ErrNotFound
}

func (r *MemoryRepository) List(_ context.Context) ([]User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := make([]User, 0, len(r.users))
	for _, u := range r.users {
		list = append(list, clone(u))
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})
	return list, nil
}

func (r *MemoryRepository) UpdateProfile(_ context.Context, id string, changes ProfileChanges) (*User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	if changes.Email != nil {
		email := NormalizeEmail(*changes.Email)
		for otherID, other := range r.users {
			if otherID != id && other.Email == email {
				return nil, ErrEmailTaken
			}
		}
		u.Email = email
	}
	if changes.Name != nil {
		u.Name = strings.TrimSpace(*changes.Name)
	}
	u.UpdatedAt = r.now()
	r.users[id] = u

	c := clone(u)
	return &c, nil
}

func (r *MemoryRepository) SetPassword(_ context.Context, id, hash string) error {
	return r.mutate(id, func(u *User) { u.Password = &hash })
}

func (r *MemoryRepository) SetActive(_ context.Context, id string, active bool) error {
	return r.mutate(id, func(u *User) { u.IsActive = active })
}

func (r *MemoryRepository) AssignCustomer(_ context.Context, id, customerID string) (string, error) {
	stored := customerID
	err := r.mutate(id, func(u *User) {
		if u.CustomerID != nil {
			stored = *u.CustomerID
			return
		}
		u.CustomerID = &customerID
	})
	if err != nil {
		return "", err
	}
	return stored, nil
}

func (r *MemoryRepository) SetSubscription(_ context.Context, id, subscriptionID string, status SubscriptionStatus) error {
	return r.mutate(id, func(u *User) {
		u.SubscriptionID = &subscriptionID
		u.SubscriptionStatus = status
	})
}

func (r *MemoryRepository) SetSubscriptionStatus(_ context.Context, id string, status SubscriptionStatus) error {
	return r.mutate(id, func(u *User) { u.SubscriptionStatus = status })
}

func (r *MemoryRepository) mutate(id string, fn func(u *User)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return ErrNotFound
	}
	fn(&u)
	u.UpdatedAt = r.now()
	r.users[id] = u
	return nil
}

// clone copies pointer fields so callers never alias stored state.
func clone(u User) User {
	c := u
	if u.Password != nil {
		p := *u.Password
		c.Password = &p
	}
	if u.SubscriptionID != nil {
		s := *u.SubscriptionID
		c.SubscriptionID = &s
	}
	if u.CustomerID != nil {
		cu := *u.CustomerID
		c.CustomerID = &cu
	}
	return c
}
