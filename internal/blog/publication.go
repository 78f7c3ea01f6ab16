package blog

import "time"

// State is the publication state of a post.
type State int

const (
	// Draft posts are visible only to their owner.
	Draft State = iota
	// Published posts are publicly visible.
	Published
)

func (s State) String() string {
	switch s {
	case Draft:
		return "draft"
	case Published:
		return "published"
	default:
		return "unknown"
	}
}

// StateOf returns the publication state of p.
func StateOf(p *Post) State {
	if p.Published {
		return Published
	}
	return Draft
}

// applyPublication runs the publication state machine on p.
//
//	publish == nil   : state unchanged
//	publish == true  : Draft → Published, PublishedAt = now on first publish only
//	publish == false : Published → Draft, PublishedAt cleared
//
// Re-publishing a published post keeps its PublishedAt.
func applyPublication(p *Post, publish *bool, now time.Time) {
	if publish == nil {
		return
	}

	if *publish {
		p.Published = true
		if p.PublishedAt == nil {
			at := now
			p.PublishedAt = &at
		}
		return
	}

	p.Published = false
	p.PublishedAt = nil
}
