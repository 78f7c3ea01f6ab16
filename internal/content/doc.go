// Package content derives URL and summary data from post titles and markup.
//
// Everything here is a pure function of its input:
//   - Slugify: title → URL-safe slug ([a-z0-9-], diacritics folded)
//   - Username: email or display name → account handle ([a-z0-9])
//   - StripTags / Excerpt / ReadingTime: markup → plain-text derivations
//
// Post markup is treated as opaque except for tag stripping. Derived values
// are always recomputed from stored content and never accepted from clients.
package content
