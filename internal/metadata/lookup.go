// Package metadata provides best-effort book metadata enrichment from
// external providers. Lookups either succeed or report "unavailable";
// they never surface fatal errors to callers.
package metadata

import (
	"context"
	"log"
	"time"
)

// Provider is implemented by external metadata sources.
type Provider interface {
	SearchByISBN(ctx context.Context, isbn string) (*BookMetadata, error)
	SearchByTitle(ctx context.Context, title, author string) (*BookMetadata, error)
}

// RateLimiter gates outbound provider calls. Shared across all jobs.
type RateLimiter interface {
	Allow(key string) (allowed bool, retryAfter time.Duration)
}

// Lookup wraps a Provider with the shared rate limiter and a per-call
// timeout. A denied or failed lookup degrades to "unavailable" rather
// than an error: callers proceed with the data they already have.
type Lookup struct {
	provider Provider
	limiter  RateLimiter
	timeout  time.Duration
	key      string
}

// NewLookup creates a Lookup. The limiter key identifies the provider's
// quota bucket.
func NewLookup(provider Provider, limiter RateLimiter, timeout time.Duration, key string) *Lookup {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Lookup{
		provider: provider,
		limiter:  limiter,
		timeout:  timeout,
		key:      key,
	}
}

// Lookup fetches metadata for a book, trying ISBN first and falling back
// to title+author search. The second return value is false when the
// lookup is unavailable (rate limit, timeout, or provider error).
func (l *Lookup) Lookup(ctx context.Context, title, author, isbn string) (*BookMetadata, bool) {
	if l.limiter != nil {
		if allowed, retryAfter := l.limiter.Allow(l.key); !allowed {
			log.Printf("metadata lookup rate limited, retry after %s", retryAfter)
			return nil, false
		}
	}

	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	if isbn != "" {
		if meta, err := l.provider.SearchByISBN(ctx, isbn); err == nil && meta != nil {
			return meta, true
		}
	}

	meta, err := l.provider.SearchByTitle(ctx, title, author)
	if err != nil || meta == nil {
		return nil, false
	}

	return meta, true
}
