package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"chileadicto/internal/domain"
)

// CommandService runs the write pipeline: normalize -> validate -> sequential
// multi-table persistence. The sequence is not atomic; a failure partway
// through leaves earlier steps committed, which is why every error is tagged
// with the step that failed.
type CommandService struct {
	repo  domain.PostRepository
	cache domain.Cache
}

func NewCommandService(r domain.PostRepository, cache domain.Cache) *CommandService {
	return &CommandService{repo: r, cache: cache}
}

// CreatePost persists a new post and returns its slug.
func (s *CommandService) CreatePost(ctx context.Context, raw domain.Post) (string, error) {
	p := NormalizePost(raw)
	if res := ValidatePost(p); !res.OK {
		return "", &ValidationError{Issues: res.Issues}
	}

	if _, exists, err := s.repo.FindPostID(ctx, p.Slug); err != nil {
		return "", &domain.StepError{Step: "lookup", Err: err}
	} else if exists {
		return "", domain.ErrSlugExists
	}

	id, err := s.repo.InsertPostBase(ctx, p)
	if err != nil {
		return "", &domain.StepError{Step: "base", Err: err}
	}
	if err := s.writeChildren(ctx, id, p, false); err != nil {
		return "", err
	}

	s.invalidate(ctx, p.Slug)
	log.Info().Str("slug", p.Slug).Int64("id", id).Msg("post created")
	return p.Slug, nil
}

// UpdatePost fully replaces a post's content: the base row is patched in
// place, child rows are delete-then-insert.
func (s *CommandService) UpdatePost(ctx context.Context, slug string, raw domain.Post) error {
	raw.Slug = slug
	p := NormalizePost(raw)
	if res := ValidatePost(p); !res.OK {
		return &ValidationError{Issues: res.Issues}
	}

	id, exists, err := s.repo.FindPostID(ctx, slug)
	if err != nil {
		return &domain.StepError{Step: "lookup", Err: err}
	}
	if !exists {
		return domain.ErrNotFound
	}

	if err := s.repo.UpdatePostBase(ctx, id, p); err != nil {
		return &domain.StepError{Step: "base", Err: err}
	}
	if err := s.writeChildren(ctx, id, p, true); err != nil {
		return err
	}

	s.invalidate(ctx, slug)
	log.Info().Str("slug", slug).Int64("id", id).Msg("post updated")
	return nil
}

// DeletePost is a stub: the endpoint exists for the admin UI but no rows are
// removed. TODO: actual deletion once content archival rules are settled.
func (s *CommandService) DeletePost(ctx context.Context, slug string) error {
	log.Warn().Str("slug", slug).Msg("delete requested; persistence removal not implemented")
	s.invalidate(ctx, slug)
	return nil
}

func (s *CommandService) writeChildren(ctx context.Context, id int64, p domain.Post, replace bool) error {
	if replace {
		if err := s.repo.DeleteTranslations(ctx, id); err != nil {
			return &domain.StepError{Step: "translations", Err: err}
		}
	}
	if err := s.repo.InsertTranslations(ctx, id, p); err != nil {
		return &domain.StepError{Step: "translations", Err: err}
	}

	if replace {
		if err := s.repo.DeleteImages(ctx, id); err != nil {
			return &domain.StepError{Step: "images", Err: err}
		}
	}
	if err := s.repo.InsertImages(ctx, id, p.Images); err != nil {
		return &domain.StepError{Step: "images", Err: err}
	}

	if replace {
		if err := s.repo.DeleteLocations(ctx, id); err != nil {
			return &domain.StepError{Step: "locations", Err: err}
		}
	}
	if err := s.repo.InsertLocations(ctx, id, p.Locations); err != nil {
		return &domain.StepError{Step: "locations", Err: err}
	}

	if replace {
		if err := s.repo.UnlinkCategories(ctx, id); err != nil {
			return &domain.StepError{Step: "categories", Err: err}
		}
	}
	if err := s.repo.LinkCategories(ctx, id, p.Categories); err != nil {
		return &domain.StepError{Step: "categories", Err: err}
	}
	return nil
}

// invalidate drops the detail key, rotates the list namespace token so every
// cached filter variant misses on the next read, and drops the category list.
func (s *CommandService) invalidate(ctx context.Context, slug string) {
	if s.cache == nil {
		return
	}
	_ = s.cache.Del(ctx, fmt.Sprintf("post:%s", slug))
	_ = s.cache.Del(ctx, listVersionKey)
	_ = s.cache.Del(ctx, "categories")
}
