package cache

import (
	"context"
	"errors"
)

var (
	// ErrCacheMiss indicates the requested key was not found in cache
	ErrCacheMiss = errors.New("cache miss")

	// ErrInvalidEntry indicates the cache entry is invalid or corrupted
	ErrInvalidEntry = errors.New("invalid cache entry")

	// ErrInvalidTagSet indicates a malformed tag set was passed to InvalidateTags
	ErrInvalidTagSet = errors.New("invalid tag set")
)

// Store is a tag-aware store for cached HTTP responses.
//
// Contract:
//   - Concurrency: implementations must be safe for concurrent use.
//   - Get never returns an expired entry; it returns ErrCacheMiss instead.
//   - Put does not store entries that are already expired.
//   - InvalidateTags is atomic with respect to later Get calls and idempotent.
type Store interface {
	// Get retrieves an entry. Returns ErrCacheMiss on miss or expiry.
	Get(ctx context.Context, key string) (*Entry, error)

	// Put stores an entry under key, indexed by entry.Tags.
	Put(ctx context.Context, key string, entry *Entry) error

	// InvalidateTags removes every entry carrying any of the tags.
	InvalidateTags(ctx context.Context, tags []string) error

	// Delete removes a single entry. Idempotent.
	Delete(ctx context.Context, key string) error
}

// validateTags rejects nil sets and empty tags before anything is removed.
func validateTags(tags []string) error {
	if tags == nil {
		return ErrInvalidTagSet
	}
	for _, tag := range tags {
		if tag == "" {
			return ErrInvalidTagSet
		}
	}
	return nil
}
