package resource

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

type memoryRepository struct {
	mu    sync.RWMutex
	items map[string]Resource
	now   func() time.Time
}

// NewMemoryRepository returns a Repository kept in process memory.
func NewMemoryRepository() Repository {
	return &memoryRepository{
		items: make(map[string]Resource),
		now:   time.Now,
	}
}

func (r *memoryRepository) Create(ctx context.Context, res *Resource) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now().UTC()
	res.ID = uuid.NewString()
	res.CreatedAt = now
	res.UpdatedAt = now
	r.items[res.ID] = *res
	return nil
}

func (r *memoryRepository) GetByID(ctx context.Context, id string) (*Resource, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	res, ok := r.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &res, nil
}

func (r *memoryRepository) List(ctx context.Context, filter Filter) ([]*Resource, int, error) {
	r.mu.RLock()
	var matched []*Resource
	keyword := strings.ToLower(filter.Keyword)
	for _, res := range r.items {
		if keyword != "" && !matchesKeyword(res, keyword) {
			continue
		}
		matched = append(matched, &res)
	}
	r.mu.RUnlock()

	desc := !strings.EqualFold(filter.SortOrder, "asc")
	slices.SortFunc(matched, func(a, b *Resource) int {
		c := compareBy(filter.SortBy, a, b)
		if desc {
			c = -c
		}
		if c == 0 {
			c = strings.Compare(a.ID, b.ID)
		}
		return c
	})

	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 {
		filter.PageSize = 20
	}

	total := len(matched)
	start := min((filter.Page-1)*filter.PageSize, total)
	end := min(start+filter.PageSize, total)
	return matched[start:end], total, nil
}

func matchesKeyword(res Resource, keyword string) bool {
	if strings.Contains(strings.ToLower(res.Name), keyword) {
		return true
	}
	return res.Description != nil && strings.Contains(strings.ToLower(*res.Description), keyword)
}

func compareBy(field string, a, b *Resource) int {
	switch field {
	case "name":
		return strings.Compare(a.Name, b.Name)
	case "hourly_rate":
		return cmp.Compare(a.HourlyRate, b.HourlyRate)
	case "capacity":
		return cmp.Compare(capacityOrZero(a), capacityOrZero(b))
	default:
		return a.CreatedAt.Compare(b.CreatedAt)
	}
}

func capacityOrZero(r *Resource) int {
	if r.Capacity == nil {
		return 0
	}
	return *r.Capacity
}

func (r *memoryRepository) Update(ctx context.Context, res *Resource) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.items[res.ID]
	if !ok {
		return ErrNotFound
	}
	res.CreatedAt = existing.CreatedAt
	res.UpdatedAt = r.now().UTC()
	r.items[res.ID] = *res
	return nil
}

func (r *memoryRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[id]; !ok {
		return ErrNotFound
	}
	delete(r.items, id)
	return nil
}
