package query

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	cache "github.com/Code-Hex/go-generics-cache"
	"github.com/topi314/tint"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/singleflight"
)

const DefaultStaleTime = 30 * time.Second

type entry struct {
	key  Key
	data any
}

// Client caches query results by Key. Concurrent fetches of the same key are
// collapsed into one call and results fetched before an invalidation are never stored.
type Client struct {
	staleTime time.Duration
	cache     *cache.Cache[uint64, entry]
	group     singleflight.Group

	mu          sync.Mutex
	keys        map[uint64]Key
	generations map[uint64]uint64

	requests metric.Int64Counter
}

func NewClient(staleTime time.Duration) *Client {
	if staleTime <= 0 {
		staleTime = DefaultStaleTime
	}
	requests, err := otel.Meter("notifier/query").Int64Counter("notifier.query.requests",
		metric.WithDescription("Number of query lookups partitioned by cache result"),
	)
	if err != nil {
		slog.Error("failed to create query request counter", tint.Err(err))
	}
	return &Client{
		staleTime:   staleTime,
		cache:       cache.New[uint64, entry](),
		keys:        make(map[uint64]Key),
		generations: make(map[uint64]uint64),
		requests:    requests,
	}
}

func (c *Client) record(ctx context.Context, key Key, result string) {
	if c.requests == nil || len(key) == 0 {
		return
	}
	c.requests.Add(ctx, 1, metric.WithAttributes(
		attribute.String("query", key[0]),
		attribute.String("result", result),
	))
}

// begin registers key and returns its current generation.
func (c *Client) begin(key Key, hash uint64) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.keys[hash] = key
	return c.generations[hash]
}

func (c *Client) store(key Key, hash uint64, gen uint64, data any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generations[hash] != gen {
		return
	}
	c.keys[hash] = key
	c.cache.Set(hash, entry{key: key, data: data}, cache.WithExpiration(c.staleTime))
}

// SetData primes the cache for key, e.g. with the result of a mutation.
func (c *Client) SetData(key Key, data any) {
	hash := key.Hash()
	c.store(key, hash, c.begin(key, hash), data)
}

// Invalidate drops every cached entry whose key starts with prefix and
// discards the results of fetches still in flight for those keys.
// It returns the number of matched keys.
func (c *Client) Invalidate(prefix Key) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	var n int
	for hash, key := range c.keys {
		if !key.HasPrefix(prefix) {
			continue
		}
		c.cache.Delete(hash)
		c.generations[hash]++
		n++
	}
	return n
}

// Peek returns the cached data for key if present.
func Peek[T any](c *Client, key Key) (T, bool) {
	var zero T
	e, ok := c.cache.Get(key.Hash())
	if !ok || !e.key.Equal(key) {
		return zero, false
	}
	data, ok := e.data.(T)
	return data, ok
}

// Fetch returns the cached data for key or calls fn once for all concurrent callers of the same key.
func Fetch[T any](ctx context.Context, c *Client, key Key, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if !key.Ready() {
		return zero, fmt.Errorf("query %s is not ready", key)
	}
	if data, ok := Peek[T](c, key); ok {
		c.record(ctx, key, "hit")
		return data, nil
	}
	c.record(ctx, key, "miss")

	hash := key.Hash()
	gen := c.begin(key, hash)
	v, err, _ := c.group.Do(strconv.FormatUint(hash, 16)+":"+strconv.FormatUint(gen, 10), func() (any, error) {
		data, err := fn(ctx)
		if err != nil {
			return nil, err
		}
		c.store(key, hash, gen, data)
		return data, nil
	})
	if err != nil {
		return zero, err
	}
	data, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("query %s returned %T", key, v)
	}
	return data, nil
}
