package feed

import "context"

// Subject is the scope of a paginated feed: the global timeline, or one
// user's posts.
type Subject int64

// SubjectAll is the global timeline.
const SubjectAll Subject = 0

// ForUser returns the subject scoped to a single author's posts.
func ForUser(userID int64) Subject { return Subject(userID) }

// IsAll reports whether the subject is the global timeline.
func (s Subject) IsAll() bool { return s == SubjectAll }

// UserID returns the scoped user id, or 0 for the global timeline.
func (s Subject) UserID() int64 { return int64(s) }

// Source is the remote data source the engine talks to. Implementations
// live behind the transport (see internal/api); the engine only sees this
// contract.
//
// The toggle calls receive the state captured *before* the optimistic flip
// so the server can decide between add and remove. Callers must never pass
// the post-flip value.
type Source interface {
	// FetchPage returns one page of a subject's timeline, newest first.
	// An empty page signals exhaustion.
	FetchPage(ctx context.Context, subject Subject, page int) ([]Item, error)

	ToggleLike(ctx context.Context, itemID, userID int64, wasLiked bool) error
	ToggleFollow(ctx context.Context, followerID, followeeID int64, wasFollowing bool) error
	ToggleBan(ctx context.Context, actorID, targetID int64, wasBanned bool) error

	// AddComment returns the canonical comment record; the client never
	// inserts a speculative one.
	AddComment(ctx context.Context, itemID, userID int64, text string) (Comment, error)

	// UpdateItem replaces content and media; keptMedia indexes into the
	// item's current attachments.
	UpdateItem(ctx context.Context, itemID int64, content string, keptMedia []int, newMedia []MediaRef) (Item, error)

	DeleteItem(ctx context.Context, itemID int64) error

	// CreateRetweet builds the wrapper item server-side.
	CreateRetweet(ctx context.Context, itemID int64, comment string) (Item, error)

	// CreateItem publishes a new post. The caller is responsible for
	// announcing the created item on the live-update bus.
	CreateItem(ctx context.Context, authorID int64, content string, media []MediaRef) (Item, error)
}
