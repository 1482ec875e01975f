// Package cachutil contains helpers for read-through ttlcache caches.
package cachutil

import (
	"time"

	"github.com/jellydator/ttlcache/v3"
	"golang.org/x/sync/singleflight"
)

// Result is a loaded value or the error loading it failed with.
type Result[V any] struct {
	Value V
	Err   error
}

// SuppressedLoader is a ttlcache.Loader calling Fn for missing keys.
// It ensures that only one call of Fn is in-flight for a given key at a time,
// concurrent loads of the key wait for and share its result.
type SuppressedLoader[V any] struct {
	Fn     func(key string) (V, error)
	TTL    time.Duration // TTL of loaded values
	ErrTTL time.Duration // TTL of failed loads, TTL is used if zero

	group singleflight.Group
}

var _ ttlcache.Loader[string, Result[any]] = (*SuppressedLoader[any])(nil)

// Load loads the value of key and stores it in c.
func (l *SuppressedLoader[V]) Load(c *ttlcache.Cache[string, Result[V]], key string) *ttlcache.Item[string, Result[V]] {
	// the error can be discarded since load errors
	// are part of the cached Result
	res, _, _ := l.group.Do(key, func() (interface{}, error) {
		v, err := l.Fn(key)
		ttl := l.TTL
		if err != nil && l.ErrTTL != 0 {
			ttl = l.ErrTTL
		}
		return c.Set(key, Result[V]{Value: v, Err: err}, ttl), nil
	})
	return res.(*ttlcache.Item[string, Result[V]])
}

// Option returns the loader as option for ttlcache.Cache.Get.
func (l *SuppressedLoader[V]) Option() ttlcache.Option[string, Result[V]] {
	return ttlcache.WithLoader[string, Result[V]](l)
}
