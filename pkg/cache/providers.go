package cache

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/gomodule/redigo/redis"
)

// PageCache stores rendered pages by target.
type PageCache interface {
	Get(ctx context.Context, target Target) ([]byte, bool, error)
	Put(ctx context.Context, target Target, body []byte) error
}

// ObjectCache is an in-process page cache. It is safe for concurrent use.
type ObjectCache struct {
	mu    sync.RWMutex
	items map[Target][]byte
}

// NewObjectCache returns an empty ObjectCache.
func NewObjectCache() *ObjectCache {
	return &ObjectCache{items: map[Target][]byte{}}
}

func (o *ObjectCache) Name() string { return "object" }

func (o *ObjectCache) Get(_ context.Context, target Target) ([]byte, bool, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	body, ok := o.items[target]
	return body, ok, nil
}

func (o *ObjectCache) Put(_ context.Context, target Target, body []byte) error {
	o.mu.Lock()
	o.items[target] = append([]byte(nil), body...)
	o.mu.Unlock()
	return nil
}

func (o *ObjectCache) PurgeID(_ context.Context, target Target) error {
	o.mu.Lock()
	delete(o.items, target)
	o.mu.Unlock()
	return nil
}

func (o *ObjectCache) PurgeAll(context.Context) error {
	o.mu.Lock()
	o.items = map[Target][]byte{}
	o.mu.Unlock()
	return nil
}

// Len returns the number of cached pages.
func (o *ObjectCache) Len() int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return len(o.items)
}

// RedisPages keeps rendered pages in Redis under "page:<kind>:<id>".
type RedisPages struct {
	pool *redis.Pool
	ttl  time.Duration
}

// NewRedisPool returns a pool dialing addr.
func NewRedisPool(addr string) *redis.Pool {
	return &redis.Pool{
		MaxIdle:     4,
		IdleTimeout: 5 * time.Minute,
		Dial: func() (redis.Conn, error) {
			return redis.Dial("tcp", addr)
		},
	}
}

// NewRedisPages stores pages in pool for ttl (no expiry when ttl <= 0).
func NewRedisPages(pool *redis.Pool, ttl time.Duration) *RedisPages {
	return &RedisPages{pool: pool, ttl: ttl}
}

// PageKey returns the Redis key of target.
func PageKey(target Target) string {
	return "page:" + target.String()
}

func (r *RedisPages) Name() string { return "redis" }

func (r *RedisPages) Get(ctx context.Context, target Target) ([]byte, bool, error) {
	conn, err := r.pool.GetContext(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("cache: redis: %w", err)
	}
	defer conn.Close()
	body, err := redis.Bytes(conn.Do("GET", PageKey(target)))
	if errors.Is(err, redis.ErrNil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache: redis get %s: %w", target, err)
	}
	return body, true, nil
}

func (r *RedisPages) Put(ctx context.Context, target Target, body []byte) error {
	conn, err := r.pool.GetContext(ctx)
	if err != nil {
		return fmt.Errorf("cache: redis: %w", err)
	}
	defer conn.Close()
	args := redis.Args{}.Add(PageKey(target), body)
	if r.ttl > 0 {
		args = args.Add("EX", int64(r.ttl/time.Second))
	}
	if _, err := conn.Do("SET", args...); err != nil {
		return fmt.Errorf("cache: redis set %s: %w", target, err)
	}
	return nil
}

func (r *RedisPages) PurgeID(ctx context.Context, target Target) error {
	conn, err := r.pool.GetContext(ctx)
	if err != nil {
		return fmt.Errorf("cache: redis: %w", err)
	}
	defer conn.Close()
	if _, err := conn.Do("DEL", PageKey(target)); err != nil {
		return fmt.Errorf("cache: redis del %s: %w", target, err)
	}
	return nil
}

// PurgeAll deletes every page key.
func (r *RedisPages) PurgeAll(ctx context.Context) error {
	conn, err := r.pool.GetContext(ctx)
	if err != nil {
		return fmt.Errorf("cache: redis: %w", err)
	}
	defer conn.Close()

	cursor := 0
	for {
		values, err := redis.Values(conn.Do("SCAN", cursor, "MATCH", "page:*", "COUNT", 100))
		if err != nil {
			return fmt.Errorf("cache: redis scan: %w", err)
		}
		var keys []string
		if _, err := redis.Scan(values, &cursor, &keys); err != nil {
			return fmt.Errorf("cache: redis scan: %w", err)
		}
		if len(keys) > 0 {
			if _, err := conn.Do("DEL", redis.Args{}.AddFlat(keys)...); err != nil {
				return fmt.Errorf("cache: redis del: %w", err)
			}
		}
		if cursor == 0 {
			return nil
		}
	}
}

// HTTPPurger sends PURGE requests for each URL to a caching reverse proxy.
type HTTPPurger struct {
	client   *http.Client
	method   string
	attempts uint
	delay    time.Duration
}

// HTTPOption configures an HTTPPurger.
type HTTPOption func(*HTTPPurger)

func WithHTTPClient(client *http.Client) HTTPOption {
	return func(h *HTTPPurger) {
		if client != nil {
			h.client = client
		}
	}
}

// WithPurgeRetry sets the retry policy for failed requests.
func WithPurgeRetry(attempts uint, delay time.Duration) HTTPOption {
	return func(h *HTTPPurger) {
		if attempts > 0 {
			h.attempts = attempts
		}
		h.delay = delay
	}
}

// NewHTTPPurger returns a purger using the PURGE method.
func NewHTTPPurger(opts ...HTTPOption) *HTTPPurger {
	h := &HTTPPurger{client: http.DefaultClient, method: "PURGE", attempts: 3, delay: 250 * time.Millisecond}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h
}

func (h *HTTPPurger) Name() string { return "http-purge" }

// PurgeURLs purges every URL, returning the joined failures.
func (h *HTTPPurger) PurgeURLs(ctx context.Context, urls []string) error {
	var errs []error
	for _, u := range urls {
		if err := h.purge(ctx, u); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (h *HTTPPurger) purge(ctx context.Context, u string) error {
	return retry.Do(func() error {
		req, err := http.NewRequestWithContext(ctx, h.method, u, nil)
		if err != nil {
			return retry.Unrecoverable(err)
		}
		resp, err := h.client.Do(req)
		if err != nil {
			return err
		}
		resp.Body.Close()
		switch {
		case resp.StatusCode >= 500:
			return fmt.Errorf("cache: purge %s: status %d", u, resp.StatusCode)
		case resp.StatusCode >= 400 && resp.StatusCode != http.StatusNotFound:
			return retry.Unrecoverable(fmt.Errorf("cache: purge %s: status %d", u, resp.StatusCode))
		}
		return nil
	},
		retry.Context(ctx),
		retry.Attempts(h.attempts),
		retry.Delay(h.delay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
	)
}
