package ui

import (
	"github.com/infblueocean/flock/internal/bus"
	"github.com/infblueocean/flock/internal/feed"
)

// Messages produced by commands. Each result carries the session id the
// operation was started from so a result arriving after the view was torn
// down can be dropped instead of mutating the wrong store.

// CacheLoadedMsg delivers the offline snapshot shown before the first
// network page arrives.
type CacheLoadedMsg struct {
	SessionID int
	Items     []feed.Item
}

// RefreshMsg delivers a head refresh outside the pagination sequence;
// its items merge ahead of fetched pages but behind local insertions.
type RefreshMsg struct {
	SessionID int
	Subject   feed.Subject
	Items     []feed.Item
	Err       error
}

// PageLoadedMsg delivers one fetched page.
type PageLoadedMsg struct {
	SessionID int
	Req       feed.PageRequest
	Items     []feed.Item
	Err       error
}

// LikeResultMsg resolves a like toggle.
type LikeResultMsg struct {
	SessionID int
	Op        feed.LikeOp
	Err       error
}

// FollowResultMsg resolves a follow toggle.
type FollowResultMsg struct {
	SessionID int
	Op        feed.FollowOp
	Err       error
}

// BanResultMsg resolves a ban toggle.
type BanResultMsg struct {
	SessionID int
	Op        feed.BanOp
	Err       error
}

// CommentResultMsg resolves a comment post with the canonical record.
type CommentResultMsg struct {
	SessionID int
	Op        feed.CommentOp
	Comment   feed.Comment
	Err       error
}

// EditResultMsg resolves an item edit with the server's updated record.
type EditResultMsg struct {
	SessionID int
	Op        feed.EditOp
	Item      feed.Item
	Err       error
}

// DeleteResultMsg resolves a delete.
type DeleteResultMsg struct {
	SessionID int
	Op        feed.DeleteOp
	Err       error
}

// RetweetResultMsg resolves a retweet with the server-built wrapper.
type RetweetResultMsg struct {
	SessionID int
	Op        feed.RetweetOp
	Item      feed.Item
	Err       error
}

// PostCreatedMsg resolves a new post.
type PostCreatedMsg struct {
	Item feed.Item
	Err  error
}

// LiveEventMsg wraps one bus event for the Update loop.
type LiveEventMsg struct {
	Event bus.Event
}
