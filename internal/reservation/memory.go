package reservation

import (
	"cmp"
	"context"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

type memoryRepository struct {
	mu    sync.RWMutex
	items map[string]Reservation
	now   func() time.Time
}

// NewMemoryRepository returns a Repository kept in process memory.
// Resource existence is not checked here; the service resolves the resource through its catalog
// while holding the resource lock.
func NewMemoryRepository() Repository {
	return &memoryRepository{
		items: make(map[string]Reservation),
		now:   time.Now,
	}
}

func (r *memoryRepository) GetByID(ctx context.Context, id string) (*Reservation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	res, ok := r.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &res, nil
}

func (r *memoryRepository) List(ctx context.Context, filter Filter) ([]*Reservation, int, error) {
	r.mu.RLock()
	var matched []*Reservation
	for _, res := range r.items {
		if filter.HolderID != "" && res.HolderID != filter.HolderID {
			continue
		}
		if filter.ResourceID != "" && res.ResourceID != filter.ResourceID {
			continue
		}
		if filter.Status != "" && res.Status != filter.Status {
			continue
		}
		if filter.From != nil && !res.EndTime.After(*filter.From) {
			continue
		}
		if filter.To != nil && !res.StartTime.Before(*filter.To) {
			continue
		}
		matched = append(matched, &res)
	}
	r.mu.RUnlock()

	desc := filter.SortOrder != "ASC"
	slices.SortFunc(matched, func(a, b *Reservation) int {
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

func compareBy(field string, a, b *Reservation) int {
	switch field {
	case "end_time":
		return a.EndTime.Compare(b.EndTime)
	case "created_at":
		return a.CreatedAt.Compare(b.CreatedAt)
	case "status":
		return cmp.Compare(a.Status, b.Status)
	default:
		return a.StartTime.Compare(b.StartTime)
	}
}

func activeIn(items map[string]Reservation, resourceID string, window Interval, excludeID string) []*Reservation {
	var out []*Reservation
	for _, res := range items {
		if res.ResourceID != resourceID || res.ID == excludeID || !res.Status.Active() {
			continue
		}
		if res.Interval().Overlaps(window) {
			out = append(out, &res)
		}
	}
	slices.SortFunc(out, func(a, b *Reservation) int {
		return a.StartTime.Compare(b.StartTime)
	})
	return out
}

func (r *memoryRepository) ListActiveInRange(ctx context.Context, resourceID string, window Interval) ([]*Reservation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return activeIn(r.items, resourceID, window, ""), nil
}

func (r *memoryRepository) HasActiveReservations(ctx context.Context, resourceID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, res := range r.items {
		if res.ResourceID == resourceID && res.Status.Active() {
			return true, nil
		}
	}
	return false, nil
}

// WithinResource holds the write lock for the whole unit of work and applies staged
// writes only when fn succeeds.
func (r *memoryRepository) WithinResource(ctx context.Context, resourceID string, fn func(tx Tx) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx := &memoryTx{
		repo:       r,
		resourceID: resourceID,
		staged:     make(map[string]Reservation),
	}
	if err := fn(tx); err != nil {
		return err
	}

	maps.Copy(r.items, tx.staged)
	return nil
}

type memoryTx struct {
	repo       *memoryRepository
	resourceID string
	staged     map[string]Reservation
}

// view returns the committed rows overlaid with this transaction's writes.
func (t *memoryTx) view() map[string]Reservation {
	if len(t.staged) == 0 {
		return t.repo.items
	}
	merged := maps.Clone(t.repo.items)
	maps.Copy(merged, t.staged)
	return merged
}

func (t *memoryTx) GetForUpdate(ctx context.Context, id string) (*Reservation, error) {
	res, ok := t.staged[id]
	if !ok {
		res, ok = t.repo.items[id]
	}
	if !ok || res.ResourceID != t.resourceID {
		return nil, ErrNotFound
	}
	return &res, nil
}

func (t *memoryTx) ListActiveInRange(ctx context.Context, window Interval, excludeID string) ([]*Reservation, error) {
	return activeIn(t.view(), t.resourceID, window, excludeID), nil
}

func (t *memoryTx) Insert(ctx context.Context, r *Reservation) error {
	now := t.repo.now().UTC()
	r.ID = uuid.NewString()
	r.ResourceID = t.resourceID
	r.CreatedAt = now
	r.UpdatedAt = now
	t.staged[r.ID] = *r
	return nil
}

func (t *memoryTx) Update(ctx context.Context, r *Reservation) error {
	existing, err := t.GetForUpdate(ctx, r.ID)
	if err != nil {
		return err
	}
	r.CreatedAt = existing.CreatedAt
	r.UpdatedAt = t.repo.now().UTC()
	t.staged[r.ID] = *r
	return nil
}
