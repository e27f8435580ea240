package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"clipstream/server/internal/models"
)

// MemoryMediaRepository keeps records in a map. It backs tests and
// single-node development without postgres.
type MemoryMediaRepository struct {
	mu   sync.RWMutex
	data map[string]models.Media
}

func NewMemoryMediaRepository() *MemoryMediaRepository {
	return &MemoryMediaRepository{
		data: make(map[string]models.Media),
	}
}

func (r *MemoryMediaRepository) Create(ctx context.Context, m models.Media) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.data[m.ID]; exists {
		return models.ErrConflict
	}

	now := time.Now()
	m.CreatedAt = now
	m.UpdatedAt = now
	r.data[m.ID] = m
	return nil
}

func (r *MemoryMediaRepository) GetByID(ctx context.Context, id string) (models.Media, error) {
	if err := ctx.Err(); err != nil {
		return models.Media{}, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.data[id]
	if !ok {
		return models.Media{}, models.ErrMediaNotFound
	}
	return m, nil
}

func (r *MemoryMediaRepository) GetForTenant(ctx context.Context, id string, tenantID string) (models.Media, error) {
	m, err := r.GetByID(ctx, id)
	if err != nil {
		return models.Media{}, err
	}
	if m.TenantID != tenantID {
		return models.Media{}, models.ErrMediaNotFound
	}
	return m, nil
}

func (r *MemoryMediaRepository) ListByTenant(ctx context.Context, tenantID string, limit, offset int) ([]models.Media, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var items []models.Media
	for _, m := range r.data {
		if m.TenantID == tenantID {
			items = append(items, m)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})

	if offset >= len(items) {
		return nil, nil
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items, nil
}

func (r *MemoryMediaRepository) Update(ctx context.Context, m models.Media) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.data[m.ID]
	if !ok {
		return models.ErrMediaNotFound
	}
	m.CreatedAt = existing.CreatedAt
	m.UpdatedAt = time.Now()
	r.data[m.ID] = m
	return nil
}

func (r *MemoryMediaRepository) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.data[id]; !ok {
		return models.ErrMediaNotFound
	}
	delete(r.data, id)
	return nil
}

func (r *MemoryMediaRepository) PromoteStatus(ctx context.Context, id string, from []models.MediaStatus, to models.MediaStatus) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.data[id]
	if !ok {
		return false, models.ErrMediaNotFound
	}
	for _, s := range from {
		if m.Status == s {
			m.Status = to
			m.UpdatedAt = time.Now()
			r.data[id] = m
			return true, nil
		}
	}
	return false, nil
}

func (r *MemoryMediaRepository) ListStaleProcessing(ctx context.Context, cutoff time.Time) ([]models.Media, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var items []models.Media
	for _, m := range r.data {
		if m.Status == models.MediaStatusProcessing && m.UpdatedAt.Before(cutoff) {
			items = append(items, m)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].UpdatedAt.Before(items[j].UpdatedAt)
	})
	return items, nil
}
