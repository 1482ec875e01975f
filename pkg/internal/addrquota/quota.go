// Package addrquota limits events per block of client addresses.
package addrquota

import (
	"net"
	"sync"

	"github.com/golang/groupcache/lru"
	"golang.org/x/time/rate"

	"go.minekube.com/bridge/pkg/util/netutil"
)

// Settings configure a Quota.
type Settings struct {
	Enabled    bool    `yaml:"enabled"`    // If false, there is no such limiting.
	OPS        float32 `yaml:"ops"`        // Allowed operations/events per second, per IP block
	Burst      int     `yaml:"burst"`      // The maximum events per second, per block; the size of the token bucket
	MaxEntries int     `yaml:"maxEntries"` // Maximum number of IP blocks to keep track of in cache
}

// Quota implements a simple IP-based rate limiter.
// IPv4 addresses sharing the upper three bytes and IPv6 addresses
// sharing a /64 prefix are one block that gets events per second.
// Blocks are kept in an LRU cache of size maxEntries.
//
// A nil Quota blocks nothing.
type Quota struct {
	eps   rate.Limit // allowed events per second
	burst int        // maximum events per second (queue)
	mu    sync.Mutex // protects cache
	cache *lru.Cache
}

// New returns a Quota for s, or nil if s is not enabled.
func New(s Settings) *Quota {
	if !s.Enabled {
		return nil
	}
	return NewQuota(s.OPS, s.Burst, s.MaxEntries)
}

// NewQuota returns a new Quota.
func NewQuota(eventsPerSecond float32, burst, maxEntries int) *Quota {
	return &Quota{
		eps:   rate.Limit(eventsPerSecond),
		burst: burst,
		cache: lru.New(maxEntries),
	}
}

// Blocked reports whether an event from addr exceeds the quota of its block
// and consumes one event otherwise.
// Addresses without an IP host are never blocked.
func (q *Quota) Blocked(addr net.Addr) bool {
	if q == nil || addr == nil {
		return false
	}
	key := blockKey(addr)
	if key == "" {
		return false
	}
	q.mu.Lock()
	var limiter *rate.Limiter
	if v, ok := q.cache.Get(key); ok {
		limiter = v.(*rate.Limiter)
	} else {
		limiter = rate.NewLimiter(q.eps, q.burst)
		q.cache.Add(key, limiter)
	}
	q.mu.Unlock()
	return !limiter.Allow()
}

// Len returns the number of tracked blocks.
func (q *Quota) Len() int {
	if q == nil {
		return 0
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.cache.Len()
}

func blockKey(addr net.Addr) string {
	host, _ := netutil.HostPort(addr)
	ip := net.ParseIP(host)
	if ip == nil {
		return ""
	}
	if v4 := ip.To4(); v4 != nil {
		v4[3] = 0
		return v4.String()
	}
	return ip.Mask(net.CIDRMask(64, 128)).String()
}
