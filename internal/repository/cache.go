package repository

import (
	"context"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/xenking/order-management/internal/domain/product"
)

const listCacheKey = "list"

type cacheEntry struct {
	products  []product.Product
	expiresAt time.Time
}

var _ product.Repository = (*CachingProductRepository)(nil)

// CachingProductRepository is a cache-aside decorator over a
// product.Repository. Reads (GetByID, List) are cached with a TTL and
// concurrent misses for the same key are collapsed into a single delegate
// call. Every write evicts the whole cache, mirroring the delegate's
// visibility rules at the cost of extra misses.
//
// Search is intentionally not cached: its key space is unbounded.
type CachingProductRepository struct {
	delegate product.Repository
	ttl      time.Duration
	now      func() time.Time

	group singleflight.Group

	mu      sync.RWMutex
	entries map[string]cacheEntry
	// gen is bumped on every eviction; a fetch started under an older
	// generation must not repopulate the cache with pre-write data.
	gen uint64
}

// NewCachingProductRepository wraps delegate with a TTL read cache.
func NewCachingProductRepository(delegate product.Repository, ttl time.Duration) *CachingProductRepository {
	return &CachingProductRepository{
		delegate: delegate,
		ttl:      ttl,
		now:      time.Now,
		entries:  make(map[string]cacheEntry),
	}
}

// GetByID returns a product from the cache, loading it from the delegate on a
// miss.
func (c *CachingProductRepository) GetByID(ctx context.Context, id int64) (*product.Product, error) {
	key := strconv.FormatInt(id, 10)
	products, err := c.load(ctx, key, func() ([]product.Product, error) {
		p, err := c.delegate.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		return []product.Product{*p}, nil
	})
	if err != nil {
		return nil, err
	}
	p := products[0]
	return &p, nil
}

// List returns all products from the cache, loading them from the delegate on
// a miss.
func (c *CachingProductRepository) List(ctx context.Context) ([]product.Product, error) {
	products, err := c.load(ctx, listCacheKey, func() ([]product.Product, error) {
		return c.delegate.List(ctx)
	})
	if err != nil {
		return nil, err
	}
	// Callers may append/sort; hand out a copy.
	out := make([]product.Product, len(products))
	copy(out, products)
	return out, nil
}

// Search always hits the delegate.
func (c *CachingProductRepository) Search(ctx context.Context, filter product.SearchFilter) ([]product.Product, error) {
	return c.delegate.Search(ctx, filter)
}

// Create stores a product and evicts the cache.
func (c *CachingProductRepository) Create(ctx context.Context, p *product.Product) error {
	if err := c.delegate.Create(ctx, p); err != nil {
		return err
	}
	c.evictAll()
	return nil
}

// Update stores a product and evicts the cache.
func (c *CachingProductRepository) Update(ctx context.Context, p *product.Product) error {
	if err := c.delegate.Update(ctx, p); err != nil {
		return err
	}
	c.evictAll()
	return nil
}

// Delete removes a product and evicts the cache.
func (c *CachingProductRepository) Delete(ctx context.Context, id int64) error {
	if err := c.delegate.Delete(ctx, id); err != nil {
		return err
	}
	c.evictAll()
	return nil
}

// DecreaseStock mutates inventory and evicts the cache so subsequent
// availability checks observe the new quantity.
func (c *CachingProductRepository) DecreaseStock(ctx context.Context, id int64, qty int) error {
	if err := c.delegate.DecreaseStock(ctx, id, qty); err != nil {
		return err
	}
	c.evictAll()
	return nil
}

// load implements cache-aside with singleflight collapse: a hit returns the
// cached slice, a miss runs fetch once per key and caches the result.
func (c *CachingProductRepository) load(ctx context.Context, key string, fetch func() ([]product.Product, error)) ([]product.Product, error) {
	if products, ok := c.get(key); ok {
		return products, nil
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		// Re-check: a concurrent flight may have populated the entry between
		// our miss and acquiring the flight.
		if products, ok := c.get(key); ok {
			return products, nil
		}
		gen := c.generation()
		products, err := fetch()
		if err != nil {
			return nil, err
		}
		c.set(key, products, gen)
		return products, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]product.Product), nil
}

func (c *CachingProductRepository) get(key string) ([]product.Product, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok || c.now().After(e.expiresAt) {
		return nil, false
	}
	return e.products, true
}

func (c *CachingProductRepository) generation() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.gen
}

// set stores the fetch result unless an eviction happened since the fetch
// started, in which case the result may predate the write and is discarded.
func (c *CachingProductRepository) set(key string, products []product.Product, gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != gen {
		return
	}
	c.entries[key] = cacheEntry{products: products, expiresAt: c.now().Add(c.ttl)}
}

func (c *CachingProductRepository) evictAll() {
	c.mu.Lock()
	c.gen++
	c.entries = make(map[string]cacheEntry)
	c.mu.Unlock()
}
