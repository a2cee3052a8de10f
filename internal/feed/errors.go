package feed

import "errors"

// Interaction errors. Everything here is rejected at the reducer boundary,
// before any remote call is attempted.
var (
	// ErrNotFound means the target item is no longer in the store; the
	// operation degrades to a no-op for the caller.
	ErrNotFound = errors.New("item not in store")

	// ErrInFlight means the same operation on the same item is already
	// awaiting its remote result. Duplicates are rejected, not queued.
	ErrInFlight = errors.New("operation already in flight")

	// ErrAuthorBanned rejects following a banned author.
	ErrAuthorBanned = errors.New("author is banned")

	// ErrNotOwner rejects editing or deleting someone else's item.
	ErrNotOwner = errors.New("not the item owner")

	// ErrReadOnly rejects commenting on a read-only account's item.
	ErrReadOnly = errors.New("author account is read-only")

	// ErrContentLength rejects bodies outside 1..280 runes.
	ErrContentLength = errors.New("content length out of range")

	// ErrTooMuchMedia rejects more than four attachments.
	ErrTooMuchMedia = errors.New("too many media attachments")
)
