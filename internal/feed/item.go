// Package feed implements the timeline engine: the item store, the
// pagination state machine, and the optimistic interaction reducer.
//
// # Ownership
//
// The Store is the single source of truth for every item a view can see.
// The Reducer mutates items in place through the Store and never keeps a
// second copy; pre-mutation snapshots exist only inside pending operations
// so a failed remote call can restore exactly what was there before.
//
// # Concurrency
//
// Nothing in this package locks. All mutations are expected to happen on
// one event loop (the Bubble Tea update loop); remote calls suspend only
// the operation that issued them, carried as a pending op value between
// Begin and Complete.
package feed

import "time"

// MaxContentLen is the longest post or comment body the platform accepts.
const MaxContentLen = 280

// MaxMedia is the most media attachments a single item may carry.
const MaxMedia = 4

// Author is the snapshot of a user embedded in an item. The same user may
// appear in many items, each carrying its own copy; follow and ban changes
// are propagated across all of them by the Reducer.
type Author struct {
	ID       int64
	Name     string
	Username string
	Avatar   string
	Banned   bool
	ReadOnly bool
}

// MediaRef is an opaque reference to an uploaded attachment. The client
// never interprets it beyond passing it back to the server.
type MediaRef string

// Comment is a single comment on an item. The server is canonical: comments
// are only ever added to an item from a remote response, never speculatively.
type Comment struct {
	ID        int64
	Author    Author
	Text      string
	CreatedAt time.Time
}

// Repost wraps the original item a retweet points at, plus the optional
// comment added by the retweeter. One level only; normalization strips
// deeper chains at the API boundary.
type Repost struct {
	Original *Item
	Comment  string
}

// Item is one entry in a timeline: a post, or a retweet wrapper.
type Item struct {
	ID        int64
	Content   string
	CreatedAt time.Time
	Author    Author
	Media     []MediaRef

	Likes int
	Liked bool

	// Following caches whether the viewer follows the author. Cached per
	// item because the same author can appear many times in one timeline.
	Following bool

	Comments []Comment
	Repost   *Repost

	Pinned   bool
	Censored bool
}

// IsRepost reports whether the item is a retweet wrapper.
func (it *Item) IsRepost() bool {
	return it.Repost != nil
}

// Rendering describes how an item should be presented to the viewer.
type Rendering int

const (
	// RenderNormal shows content and media as-is.
	RenderNormal Rendering = iota
	// RenderSuspended replaces everything with a banned-author placeholder.
	RenderSuspended
	// RenderWithheld hides content and media of a censored item.
	RenderWithheld
)

// Rendering returns the display gate for the item. A banned author always
// wins over censorship; a censored repost wrapper still shows its original.
func (it *Item) Rendering() Rendering {
	if it.Author.Banned {
		return RenderSuspended
	}
	if it.Censored && !it.IsRepost() {
		return RenderWithheld
	}
	return RenderNormal
}

// CommentBy returns the comment left by the given user, if any. The
// platform keeps at most one comment per author per item.
func (it *Item) CommentBy(userID int64) (Comment, bool) {
	for _, c := range it.Comments {
		if c.Author.ID == userID {
			return c, true
		}
	}
	return Comment{}, false
}

// upsertComment appends a comment, or replaces the author's existing one in
// place. One comment per author per item.
func (it *Item) upsertComment(c Comment) {
	for i := range it.Comments {
		if it.Comments[i].Author.ID == c.Author.ID {
			it.Comments[i] = c
			return
		}
	}
	it.Comments = append(it.Comments, c)
}

// Viewer identifies who is looking at the feed. It is threaded explicitly
// into every reducer operation instead of being read from ambient state.
type Viewer struct {
	UserID int64
}

// ValidateContent checks the body length rule shared by posts, comments and
// edits. Rejected before any remote call is attempted.
func ValidateContent(content string) error {
	n := len([]rune(content))
	if n < 1 || n > MaxContentLen {
		return ErrContentLength
	}
	return nil
}

// ValidateMediaCount checks the attachment cap for creates and edits.
func ValidateMediaCount(n int) error {
	if n < 0 || n > MaxMedia {
		return ErrTooMuchMedia
	}
	return nil
}
