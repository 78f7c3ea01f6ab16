// Package blog implements post identity and the publication lifecycle.
//
// The Service is the post mutation API. Every mutating call takes the
// caller's auth.Identity explicitly; ownership is checked against the
// stored post before anything is written.
//
// # Invariants
//
//   - (AuthorID, Slug) is unique. The resolver probes for a free slug
//     (base, base-1, base-2, …) but the storage UNIQUE constraint is the
//     source of truth; a collision at write time is retried once.
//   - Published == true ⇔ PublishedAt != nil.
//   - Excerpt is derived from Content on every save, nil for empty content.
//   - Slug is derived from Title on create and whenever Title changes.
//
// Storage is abstracted by Repository; see internal/store (SQLite) and
// internal/pgstore (PostgreSQL).
package blog
