package domain

import "context"

// PostRepository is the relational-store port. Writes are fine-grained on
// purpose: the command service sequences them as one logical (but not atomic)
// multi-table operation and labels failures per step.
type PostRepository interface {
	// Write paths
	FindPostID(ctx context.Context, slug string) (int64, bool, error)
	InsertPostBase(ctx context.Context, p Post) (int64, error)
	UpdatePostBase(ctx context.Context, id int64, p Post) error
	InsertTranslations(ctx context.Context, id int64, p Post) error
	DeleteTranslations(ctx context.Context, id int64) error
	InsertImages(ctx context.Context, id int64, urls []string) error
	DeleteImages(ctx context.Context, id int64) error
	InsertLocations(ctx context.Context, id int64, locs []Location) error
	DeleteLocations(ctx context.Context, id int64) error
	// LinkCategories resolves free-text labels case-insensitively against the
	// category table and links matches; unmatched labels are dropped silently.
	LinkCategories(ctx context.Context, id int64, labels []string) error
	UnlinkCategories(ctx context.Context, id int64) error

	// Read paths
	GetPost(ctx context.Context, slug string) (Post, error)
	ListPosts(ctx context.Context, q PostsQuery) ([]Post, error)
	ListCategories(ctx context.Context) ([]string, error)
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
}

// PostsQuery carries list filters. Q is a case-insensitive substring match
// over slug/name/subtitle/address/display fields; Category matches a label,
// CategorySlug a category slug. Filters are pushed into the datastore query.
type PostsQuery struct {
	Q            string
	Category     string
	CategorySlug string

	// IncludeHidden skips the publication-window gate (admin listings).
	IncludeHidden bool
}
