package blog

import (
	"context"
	"errors"
	"fmt"
	"strconv"
)

// slugCandidate returns base for n == 0, otherwise "base-n".
func slugCandidate(base string, n int) string {
	if n == 0 {
		return base
	}
	return base + "-" + strconv.Itoa(n)
}

// resolveSlug finds the first free slug for authorID, probing base, base-1,
// base-2, … starting at suffix start. The post identified by excludeID does
// not count as a collision, so a rename can keep its own slug.
//
// Returns the slug and the suffix it was found at.
func (s *Service) resolveSlug(ctx context.Context, authorID, base, excludeID string, start int) (string, int, error) {
	for n := start; ; n++ {
		if err := ctx.Err(); err != nil {
			return "", 0, err
		}
		candidate := slugCandidate(base, n)
		exists, err := s.repo.SlugExists(ctx, authorID, candidate, excludeID)
		if err != nil {
			return "", 0, fmt.Errorf("check slug %q: %w", candidate, err)
		}
		if !exists {
			return candidate, n, nil
		}
	}
}

// writeWithUniqueSlug assigns a free slug derived from base to p and calls
// write. The existence probe is not atomic with the write: if write reports
// ErrConflict, resolution is retried once from the next suffix before the
// conflict is surfaced.
func (s *Service) writeWithUniqueSlug(ctx context.Context, p *Post, base string, write func(context.Context, *Post) error) error {
	slug, n, err := s.resolveSlug(ctx, p.AuthorID, base, p.ID, 0)
	if err != nil {
		return err
	}
	p.Slug = slug

	err = write(ctx, p)
	if !errors.Is(err, ErrConflict) {
		return err
	}

	s.logger.Warn("slug taken at write time, retrying",
		"author_id", p.AuthorID, "slug", slug)

	slug, _, err = s.resolveSlug(ctx, p.AuthorID, base, p.ID, n+1)
	if err != nil {
		return err
	}
	p.Slug = slug

	if err := write(ctx, p); err != nil {
		if errors.Is(err, ErrConflict) {
			return fmt.Errorf("slug %q for author %s: %w", slug, p.AuthorID, ErrConflict)
		}
		return err
	}
	return nil
}
