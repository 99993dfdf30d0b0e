package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/newsroom-labs/cms-service/internal/domain"
)

// MemoryUserRepository keeps users in process. Used by tests and local runs without Postgres.
type MemoryUserRepository struct {
	mu      sync.RWMutex
	byID    map[string]domain.User
	byEmail map[string]string
	now     func() time.Time
}

// NewMemoryUserRepository returns an empty store.
func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{
		byID:    make(map[string]domain.User),
		byEmail: make(map[string]string),
		now:     time.Now,
	}
}

func (r *MemoryUserRepository) Create(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.byEmail[user.Email]; taken {
		return ErrDuplicateEmail
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	now := r.now().UTC()
	user.CreatedAt, user.UpdatedAt = now, now
	r.byID[user.ID] = *user
	r.byEmail[user.Email] = user.ID
	return nil
}

func (r *MemoryUserRepository) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &user, nil
}

func (r *MemoryUserRepository) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[email]
	if !ok {
		return nil, ErrNotFound
	}
	user := r.byID[id]
	return &user, nil
}

// Delete removes a user. Only the in-memory store supports it.
func (r *MemoryUserRepository) Delete(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if user, ok := r.byID[id]; ok {
		delete(r.byEmail, user.Email)
		delete(r.byID, id)
	}
}

// MemoryCategoryRepository keeps categories in process.
type MemoryCategoryRepository struct {
	mu     sync.RWMutex
	byID   map[string]domain.Category
	byName map[string]string
	now    func() time.Time
}

// NewMemoryCategoryRepository returns an empty store.
func NewMemoryCategoryRepository() *MemoryCategoryRepository {
	return &MemoryCategoryRepository{
		byID:   make(map[string]domain.Category),
		byName: make(map[string]string),
		now:    time.Now,
	}
}

func (r *MemoryCategoryRepository) Create(_ context.Context, category *domain.Category) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := strings.ToLower(category.Name)
	if _, taken := r.byName[key]; taken {
		return ErrDuplicateName
	}
	if category.ParentID != nil {
		if _, ok := r.byID[*category.ParentID]; !ok {
			return ErrParentNotFound
		}
	}
	if category.ID == "" {
		category.ID = uuid.NewString()
	}
	now := r.now().UTC()
	category.CreatedAt, category.UpdatedAt = now, now
	r.byID[category.ID] = *category
	r.byName[key] = category.ID
	return nil
}

func (r *MemoryCategoryRepository) GetByID(_ context.Context, id string) (*domain.Category, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	category, ok := r.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &category, nil
}

func (r *MemoryCategoryRepository) List(_ context.Context, filter CategoryFilter) ([]domain.Category, int, error) {
	r.mu.RLock()
	all := make([]domain.Category, 0, len(r.byID))
	for _, category := range r.byID {
		all = append(all, category)
	}
	r.mu.RUnlock()

	desc := filter.SortOrder == "desc"
	sort.Slice(all, func(i, j int) bool {
		a, b := all[i], all[j]
		var cmp int
		switch filter.SortBy {
		case "created_at":
			cmp = a.CreatedAt.Compare(b.CreatedAt)
		case "updated_at":
			cmp = a.UpdatedAt.Compare(b.UpdatedAt)
		default:
			cmp = strings.Compare(a.Name, b.Name)
		}
		if cmp == 0 {
			return a.ID < b.ID
		}
		if desc {
			return cmp > 0
		}
		return cmp < 0
	})

	total := len(all)
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	start := filter.Offset
	if start < 0 {
		start = 0
	}
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}
	return append([]domain.Category{}, all[start:end]...), total, nil
}

var (
	_ UserRepository     = (*MemoryUserRepository)(nil)
	_ CategoryRepository = (*MemoryCategoryRepository)(nil)
)
