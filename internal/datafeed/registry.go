package datafeed

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	v1 "github.com/anomalab/datafeed/internal/api/v1"
	"github.com/anomalab/datafeed/internal/core/storage"
)

// Registry manages datafeed configs: validation on write, persistence,
// and a read-through cache. Resolutions of the same datafeed are deduped
// with singleflight so concurrent extraction starts do not re-validate
// the same config in parallel.
type Registry struct {
	store   storage.DatafeedStore
	service *Service

	mu    sync.RWMutex
	cache map[string]*v1.DatafeedConfig

	resolveGroup singleflight.Group
}

func NewRegistry(store storage.DatafeedStore, service *Service) *Registry {
	return &Registry{
		store:   store,
		service: service,
		cache:   make(map[string]*v1.DatafeedConfig),
	}
}

// Put validates and persists a datafeed config. An empty ID gets a
// generated one. Returns the stored config.
func (r *Registry) Put(ctx context.Context, config *v1.DatafeedConfig) (*v1.DatafeedConfig, error) {
	if _, err := r.service.Resolve(config); err != nil {
		return nil, err
	}

	if config.ID == "" {
		config.ID = fmt.Sprintf("datafeed-%s", uuid.New().String())
	}

	now := time.Now().UTC()
	if config.CreatedAt.IsZero() {
		config.CreatedAt = now
	}
	config.UpdatedAt = now

	if err := r.store.Save(ctx, config); err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.cache[config.ID] = config
	r.mu.Unlock()

	return config, nil
}

// Get returns the datafeed config with the given ID.
func (r *Registry) Get(ctx context.Context, id string) (*v1.DatafeedConfig, error) {
	r.mu.RLock()
	config, ok := r.cache[id]
	r.mu.RUnlock()
	if ok {
		return config, nil
	}

	config, err := r.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.cache[id] = config
	r.mu.Unlock()

	return config, nil
}

// List returns all datafeed configs.
func (r *Registry) List(ctx context.Context) ([]*v1.DatafeedConfig, error) {
	return r.store.List(ctx)
}

// Delete removes a datafeed config.
func (r *Registry) Delete(ctx context.Context, id string) error {
	if err := r.store.Delete(ctx, id); err != nil {
		return err
	}

	r.mu.Lock()
	delete(r.cache, id)
	r.mu.Unlock()

	return nil
}

// Resolve loads a datafeed config and derives its extraction parameters.
// Concurrent resolutions of the same ID share one computation.
func (r *Registry) Resolve(ctx context.Context, id string) (*Resolution, error) {
	result, err, _ := r.resolveGroup.Do(id, func() (interface{}, error) {
		config, err := r.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		return r.service.Resolve(config)
	})
	if err != nil {
		return nil, err
	}
	return result.(*Resolution), nil
}
