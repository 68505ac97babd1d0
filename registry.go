package wizard

import (
	"reflect"
	"sync"
)

// planKey combines type and configuration fingerprint for cache lookup.
type planKey struct {
	typ    reflect.Type
	config string
}

var (
	planRegistry = make(map[planKey]*plan)
	registryMu   sync.RWMutex
)

// compilePlan returns a cached plan or builds a new one. A plan is built at
// most once per type and configuration; losers of the lock race reuse the
// winner's plan. The write lock stays held for the whole build so nested
// record compilation reads planRegistry without re-locking.
func compilePlan(t reflect.Type, cfg *Config) (*plan, error) {
	key := planKey{typ: t, config: cfg.fingerprint()}

	// Fast path: read-lock cache check
	registryMu.RLock()
	if cached, ok := planRegistry[key]; ok {
		registryMu.RUnlock()
		return cached, nil
	}
	registryMu.RUnlock()

	// Slow path: build and cache with write-lock
	registryMu.Lock()
	defer registryMu.Unlock()

	// Double-check pattern
	if cached, ok := planRegistry[key]; ok {
		return cached, nil
	}

	return newBuilder(cfg).build(t)
}

// Reset clears the plan registry.
// This is primarily useful for test isolation.
func Reset() {
	registryMu.Lock()
	defer registryMu.Unlock()
	planRegistry = make(map[planKey]*plan)
}
