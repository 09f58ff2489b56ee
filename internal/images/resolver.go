package images

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
)

// Size selects which URL variant of a photo to resolve. Each variant is
// an independent cache entry.
type Size string

const (
	SizeRegular Size = "regular"
	SizeSmall   Size = "small"
	SizeThumb   Size = "thumb"
)

// dimensions maps a size variant to the pixel dimensions used for
// fallback URLs.
func dimensions(size Size) (int, int) {
	switch size {
	case SizeSmall:
		return 400, 300
	case SizeThumb:
		return 200, 150
	default:
		return 800, 600
	}
}

// Searcher is the remote lookup a Resolver depends on.
type Searcher interface {
	Search(ctx context.Context, query string, size Size) (string, error)
}

// Resolver maps keyword strings to image URLs. Lookups are memoized for
// the process lifetime; a failed lookup falls back to a deterministic
// constructed URL which is never memoized, so a later call for the same
// keyword retries the real service.
type Resolver struct {
	client Searcher
	mu     sync.Mutex
	cache  map[string]string
}

// NewResolver creates a resolver backed by the given search client.
// A nil client means every resolution uses the offline fallback.
func NewResolver(client Searcher) *Resolver {
	return &Resolver{
		client: client,
		cache:  make(map[string]string),
	}
}

// Resolve returns an image URL for the keywords. It never fails: on any
// remote error or empty result set it returns FallbackURL instead.
func (r *Resolver) Resolve(ctx context.Context, keywords string, size Size) string {
	keywords = strings.TrimSpace(keywords)
	if keywords == "" {
		keywords = "knowledge"
	}

	key := string(size) + "|" + keywords

	r.mu.Lock()
	if cached, ok := r.cache[key]; ok {
		r.mu.Unlock()
		return cached
	}
	r.mu.Unlock()

	if r.client == nil {
		return FallbackURL(keywords, size)
	}

	// The lock is not held across the remote call; two branches racing
	// on an uncached keyword may both issue the lookup, which is benign.
	resolved, err := r.client.Search(ctx, keywords, size)
	if err != nil || resolved == "" {
		return FallbackURL(keywords, size)
	}

	r.mu.Lock()
	r.cache[key] = resolved
	r.mu.Unlock()

	return resolved
}

// FallbackURL builds a deterministic, offline-safe image URL seeded by
// the keyword text. It involves no remote call and always succeeds.
func FallbackURL(keywords string, size Size) string {
	seed := strings.ToLower(strings.TrimSpace(keywords))
	seed = strings.Join(strings.Fields(seed), "-")
	if seed == "" {
		seed = "knowledge"
	}
	w, h := dimensions(size)
	return fmt.Sprintf("https://picsum.photos/seed/%s/%d/%d", url.PathEscape(seed), w, h)
}
