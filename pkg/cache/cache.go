package cache

import (
	"context"
	"errors"
	"strings"
	"time"
)

var (
	ErrCacheMiss   = errors.New("cache: key not found")
	ErrLockNotHeld = errors.New("cache: lock not held by owner")
)

// Service defines cache operations interface.
// Values are stored as JSON; Get unmarshals into dest.
type Service interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Get(ctx context.Context, key string, dest interface{}) error
	Delete(ctx context.Context, keys ...string) error
	// DeleteByPattern removes keys matching a glob where '*' matches any run of characters.
	DeleteByPattern(ctx context.Context, pattern string) error
	// TryLock takes key for owner unless someone else holds it.
	TryLock(ctx context.Context, key, owner string, ttl time.Duration) (bool, error)
	// Unlock releases key only while owner still holds it, otherwise ErrLockNotHeld.
	Unlock(ctx context.Context, key, owner string) error
}

// Key joins parts with ':'.
func Key(parts ...string) string {
	return strings.Join(parts, ":")
}

// GetOrLoad returns the cached value for key, or calls load and caches its result.
// Cache failures never fail the call; they are reported through onErr when set.
func GetOrLoad[T any](ctx context.Context, c Service, key string, ttl time.Duration, load func(context.Context) (T, error), onErr func(op string, err error)) (T, bool, error) {
	if c == nil {
		v, err := load(ctx)
		return v, false, err
	}

	var v T
	err := c.Get(ctx, key, &v)
	if err == nil {
		return v, true, nil
	}
	if !errors.Is(err, ErrCacheMiss) && onErr != nil {
		onErr("get", err)
	}

	v, err = load(ctx)
	if err != nil {
		return v, false, err
	}
	if err := c.Set(ctx, key, v, ttl); err != nil && onErr != nil {
		onErr("set", err)
	}
	return v, false, nil
}

// matchPattern reports whether key matches a glob with '*' wildcards only.
func matchPattern(pattern, key string) bool {
	parts := strings.Split(pattern, "*")
	if len(parts) == 1 {
		return pattern == key
	}
	if !strings.HasPrefix(key, parts[0]) {
		return false
	}
	key = key[len(parts[0]):]
	last := parts[len(parts)-1]
	for _, p := range parts[1 : len(parts)-1] {
		idx := strings.Index(key, p)
		if idx < 0 {
			return false
		}
		key = key[idx+len(p):]
	}
	return strings.HasSuffix(key, last)
}
