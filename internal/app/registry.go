package app

import (
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

const defaultRegistrySize = 4096

// Registry remembers recently issued video ids so submissions can be checked
// without a round trip to the object store. It is bounded; old ids fall out.
type Registry struct {
	cache *lru.Cache[string, time.Time]
}

func NewRegistry(size int) (*Registry, error) {
	if size <= 0 {
		size = defaultRegistrySize
	}
	cache, err := lru.New[string, time.Time](size)
	if err != nil {
		return nil, err
	}
	return &Registry{cache: cache}, nil
}

func (r *Registry) Add(id string) {
	if r == nil {
		return
	}
	r.cache.Add(id, time.Now())
}

func (r *Registry) Contains(id string) bool {
	if r == nil {
		return false
	}
	return r.cache.Contains(id)
}

func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return r.cache.Len()
}
