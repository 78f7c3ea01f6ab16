// Package store provides SQLite-backed storage for users and posts.
//
// Store implements blog.Repository.
//
// # Constraints
//
//   - users.username is UNIQUE; users.email is UNIQUE when present
//   - posts (author_id, slug) is UNIQUE
//   - posts.published = 1 exactly when posts.published_at IS NOT NULL
//   - deleting a user cascades to their posts
//
// Unique violations are reported as blog.ErrConflict and missing rows as
// blog.ErrNotFound.
//
// Timestamps are stored as INTEGER Unix nanoseconds (UTC) so ordering is
// numeric and round-trips are exact.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
