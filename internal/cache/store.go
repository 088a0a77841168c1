package cache

import "fmt"

// Backends accepted by OpenStore.
const (
	BackendNone   = "none"
	BackendMemory = "memory"
	BackendBadger = "badger"
	BackendRedis  = "redis"
)

// StoreOptions selects and configures a Store.
type StoreOptions struct {
	Backend       string
	BadgerPath    string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// OpenStore opens the configured backend. BackendNone returns a nil Store,
// which disables caching.
func OpenStore(o StoreOptions) (Store, error) {
	switch o.Backend {
	case BackendNone:
		return nil, nil
	case BackendMemory, "":
		return NewMemoryStore(), nil
	case BackendBadger:
		store, err := NewBadgerStore(o.BadgerPath)
		if err != nil {
			return nil, err
		}
		return store, nil
	case BackendRedis:
		if o.RedisAddr == "" {
			return nil, fmt.Errorf("redis cache requires an address")
		}
		return NewRedisStore(o.RedisAddr, o.RedisPassword, o.RedisDB), nil
	default:
		return nil, fmt.Errorf("unknown cache backend: %s (supported: none, memory, badger, redis)", o.Backend)
	}
}
