package app

import (
	"context"
	crand "crypto/rand"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"

	"chileadicto/internal/domain"
)

// listVersionKey holds the namespace token embedded in every cached list key.
// Writes delete the token instead of chasing each filter variant: the next
// read mints a fresh token and every stale list entry becomes unreachable,
// aging out with its TTL.
const listVersionKey = "posts:ver"

// QueryService serves the public read paths through a cache-aside layer.
type QueryService struct {
	repo     domain.PostRepository
	cache    domain.Cache
	cacheTTL time.Duration
	now      func() time.Time
}

func NewQueryService(r domain.PostRepository, c domain.Cache, ttl time.Duration) *QueryService {
	return &QueryService{repo: r, cache: c, cacheTTL: ttl, now: time.Now}
}

func (s *QueryService) GetPost(ctx context.Context, slug string) (domain.Post, error) {
	key := fmt.Sprintf("post:%s", slug)
	var p domain.Post
	if ok, _ := s.cache.Get(ctx, key, &p); ok {
		return p, nil
	}
	p, err := s.repo.GetPost(ctx, slug)
	if err != nil {
		return domain.Post{}, err
	}
	_ = s.cache.Set(ctx, key, p, int(s.cacheTTL.Seconds()))
	return p, nil
}

// ListPosts returns posts matching q, gated by publication status and window
// unless the query asks for hidden entries too.
func (s *QueryService) ListPosts(ctx context.Context, q domain.PostsQuery) ([]domain.Post, error) {
	var (
		key   string
		items []domain.Post
	)
	cacheable := !q.IncludeHidden
	if cacheable {
		key = fmt.Sprintf("posts:%s:%s:%s:%s", s.listVersion(ctx), q.Q, q.Category, q.CategorySlug)
		if ok, _ := s.cache.Get(ctx, key, &items); ok {
			return items, nil
		}
	}

	rows, err := s.repo.ListPosts(ctx, q)
	if err != nil {
		return nil, err
	}

	items = rows[:0:0]
	now := s.now()
	for _, p := range rows {
		if !q.IncludeHidden && !p.VisibleAt(now) {
			continue
		}
		items = append(items, p)
	}
	if items == nil {
		items = []domain.Post{}
	}

	if cacheable {
		_ = s.cache.Set(ctx, key, items, int(s.cacheTTL.Seconds()))
	}
	return items, nil
}

// listVersion returns the current list namespace token, minting one when the
// cache has none. Tokens are stored without expiry; Del on a write rotates
// them.
func (s *QueryService) listVersion(ctx context.Context) string {
	var v string
	if ok, _ := s.cache.Get(ctx, listVersionKey, &v); ok && v != "" {
		return v
	}
	v = newListVersion(s.now())
	_ = s.cache.Set(ctx, listVersionKey, v, 0)
	return v
}

func newListVersion(t time.Time) string {
	b := make([]byte, 8)
	if _, err := crand.Read(b); err != nil {
		return strconv.FormatInt(t.UnixNano(), 36)
	}
	return hex.EncodeToString(b)
}

// ListCategories returns the distinct category labels, sorted.
func (s *QueryService) ListCategories(ctx context.Context) ([]string, error) {
	var labels []string
	if ok, _ := s.cache.Get(ctx, "categories", &labels); ok {
		return labels, nil
	}
	labels, err := s.repo.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	if labels == nil {
		labels = []string{}
	}
	_ = s.cache.Set(ctx, "categories", labels, int(s.cacheTTL.Seconds()))
	return labels, nil
}
