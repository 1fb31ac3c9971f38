// Package cache provides server-side HTTP response caching with tag-based
// invalidation.
//
// The package has four parts:
//
// - KeyGenerator: deterministic cache keys from route, sorted query
// parameters and, for private routes, the caller's Authorization header
// - MakeTag / AddResourceSuffix: invalidation tags derived from route names
// - Store: tag-aware storage with passive expiry (Redis and in-memory backends)
// - Entry helpers: building entries from responses, replaying them, and
// answering conditional requests (If-None-Match, If-Modified-Since)
//
// # Basic Usage
//
//	// Create Redis client
//	redisClient := redis.NewClient(&redis.Options{
//		Addr: "localhost:6379",
//	})
//
//	// Create store and key generator
//	store := cache.NewRedisStore(redisClient)
//	keys := cache.NewKeyGenerator(routes, []string{"user_list", "user_show"})
//
//	// Derive the key of an inbound request
//	key, err := keys.Generate(req)
//
//	// Get from cache
//	entry, err := store.Get(ctx, key.Value)
//	if errors.Is(err, cache.ErrCacheMiss) {
//		// Cache miss - dispatch the request
//	}
//
// # Keys
//
// A key is made of segments joined by "|"; parts inside a segment are joined
// by ".":
//
//	product_list.catalog_Products__List|limit=10.page=2
//	user_list.catalog_Users__List||Bearer 7f3c...
//
// Query parameter names and values are escaped so the two delimiters only
// ever appear structurally. Keys are opaque: persist or log them as is.
//
// # Tags
//
// Entries are tagged with the first two tokens of their route name.
// Single-resource "show" routes get the resource id appended, so editing
// product 5 does not invalidate the cached view of product 6:
//
//	product_list        -> "product_list"
//	product_show /5     -> "product_show_5"
//
//	// Invalidate every product list page and product 5
//	err := store.InvalidateTags(ctx, []string{"product_list", "product_show_5"})
//
// # Metrics
//
// Stores export Prometheus metrics:
//
//   - respcache_hits_total{backend} - Cache hits
//   - respcache_misses_total{backend} - Cache misses (expired entries included)
//   - respcache_stored_total{backend} - Entries written
//   - respcache_invalidated_entries_total{backend} - Entries removed by tag
//   - respcache_errors_total{backend,operation} - Cache operation errors
package cache
