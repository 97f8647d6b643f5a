package config

import (
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

var (
	mu    sync.Mutex
	cache = make(map[reflect.Type]any)

	defaultEnvOnce sync.Once
)

// LoadEnv reads the given .env files into the process environment without
// overriding variables that are already set. Unlike the implicit default
// .env load, a missing explicit file is an error.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		return nil
	}
	if err := godotenv.Load(files...); err != nil {
		return errors.Join(ErrLoadingEnvFile, err)
	}
	return nil
}

// Load parses the environment into v. The first successful parse of a type is
// cached and later calls copy the cached value.
func Load[T any](v *T) error {
	if v == nil {
		return ErrNilPointer
	}

	defaultEnvOnce.Do(func() {
		// The default .env is optional.
		_ = godotenv.Load()
	})

	typ := reflect.TypeFor[T]()

	mu.Lock()
	defer mu.Unlock()

	if cached, ok := cache[typ]; ok {
		*v = cached.(T)
		return nil
	}

	if err := env.Parse(v); err != nil {
		return errors.Join(ErrParsingConfig, err)
	}
	cache[typ] = *v
	return nil
}

// MustLoad works like Load but panics on failure.
func MustLoad[T any](v *T) {
	if err := Load(v); err != nil {
		panic(fmt.Sprintf("failed to load required configuration: %v", err))
	}
}

// ResetCache drops every cached configuration.
func ResetCache() {
	mu.Lock()
	defer mu.Unlock()
	clear(cache)
}
