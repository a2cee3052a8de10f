package feed

// Every interaction follows the same two-phase shape so all store mutations
// stay on the event loop:
//
//	op, err := r.BeginLike(id)   // validate, flip optimistically, snapshot
//	... remote call runs asynchronously with op's pre-toggle state ...
//	r.CompleteLike(op, err)      // clear in-flight, revert on failure
//
// Begin rejects (never queues) a duplicate of an operation that is still in
// flight for the same target, and rejects anything invalid before a remote
// round trip is attempted. Complete is always safe to call: if the target
// vanished while the call was in flight the result is a no-op.

// PinPolicy decides whether pinning one item unpins the author's others.
type PinPolicy int

const (
	// PinMulti leaves other pins alone; any exclusivity is the caller's
	// problem.
	PinMulti PinPolicy = iota
	// PinExclusive auto-unpins the author's previously pinned items.
	PinExclusive
)

type opKind int

const (
	opLike opKind = iota
	opFollow
	opBan
	opComment
	opEdit
	opDelete
	opRetweet
)

// opKey scopes the in-flight guard: per item (or per author for follow and
// ban) and per operation kind, so a like and a comment on the same item may
// overlap but two likes may not.
type opKey struct {
	id   int64
	kind opKind
}

// Reducer applies optimistic interaction state transitions to one store on
// behalf of one viewer.
type Reducer struct {
	store    *Store
	viewer   Viewer
	policy   PinPolicy
	inflight map[opKey]bool
}

// NewReducer creates a reducer bound to a store and viewer.
func NewReducer(store *Store, viewer Viewer, policy PinPolicy) *Reducer {
	return &Reducer{
		store:    store,
		viewer:   viewer,
		policy:   policy,
		inflight: make(map[opKey]bool),
	}
}

// Viewer returns the viewer the reducer acts for.
func (r *Reducer) Viewer() Viewer { return r.viewer }

// InFlight reports whether any operation is outstanding. Used by views to
// show an activity indicator.
func (r *Reducer) InFlight() bool { return len(r.inflight) > 0 }

func (r *Reducer) claim(k opKey) error {
	if r.inflight[k] {
		return ErrInFlight
	}
	r.inflight[k] = true
	return nil
}

// Like / unlike -------------------------------------------------------------

// LikeOp carries the pre-toggle state of a like flip. WasLiked is what the
// remote toggle must be given.
type LikeOp struct {
	ItemID   int64
	WasLiked bool

	prevLikes int
	prevLiked bool
}

// BeginLike toggles the like state optimistically and returns the pending
// op. The count moves by exactly one from its pre-toggle value and never
// goes negative.
func (r *Reducer) BeginLike(itemID int64) (LikeOp, error) {
	it, ok := r.store.Get(itemID)
	if !ok {
		return LikeOp{}, ErrNotFound
	}
	if err := r.claim(opKey{itemID, opLike}); err != nil {
		return LikeOp{}, err
	}

	op := LikeOp{
		ItemID:    itemID,
		WasLiked:  it.Liked,
		prevLikes: it.Likes,
		prevLiked: it.Liked,
	}
	it.Liked = !it.Liked
	if op.WasLiked {
		if it.Likes > 0 {
			it.Likes--
		}
	} else {
		it.Likes++
	}
	return op, nil
}

// CompleteLike resolves the remote toggle. On failure both fields revert
// atomically to the snapshot taken at Begin time.
func (r *Reducer) CompleteLike(op LikeOp, remoteErr error) error {
	delete(r.inflight, opKey{op.ItemID, opLike})
	if remoteErr == nil {
		return nil
	}
	if it, ok := r.store.Get(op.ItemID); ok {
		it.Likes = op.prevLikes
		it.Liked = op.prevLiked
	}
	return remoteErr
}

// Follow / unfollow ---------------------------------------------------------

type followSnap struct {
	hostID    int64
	embedded  bool // true when the author appears via a repost's original
	following bool
}

// FollowOp carries the pre-toggle follow state, snapshotted per item:
// inconsistent wire data can leave an author's items disagreeing, and
// rollback must restore each one exactly.
type FollowOp struct {
	AuthorID     int64
	WasFollowing bool

	snaps []followSnap
}

// BeginFollow toggles the viewer-follows-author flag on every item by the
// author, not just the one clicked. Following a banned author is rejected
// before any mutation.
func (r *Reducer) BeginFollow(authorID int64) (FollowOp, error) {
	var found *Item
	r.store.forEachByAuthor(authorID, func(_, target *Item) {
		if found == nil {
			found = target
		}
	})
	if found == nil {
		return FollowOp{}, ErrNotFound
	}
	if found.Author.Banned {
		return FollowOp{}, ErrAuthorBanned
	}
	if err := r.claim(opKey{authorID, opFollow}); err != nil {
		return FollowOp{}, err
	}

	op := FollowOp{AuthorID: authorID, WasFollowing: found.Following}
	r.store.forEachByAuthor(authorID, func(host, target *Item) {
		op.snaps = append(op.snaps, followSnap{
			hostID:    host.ID,
			embedded:  host != target,
			following: target.Following,
		})
		target.Following = !op.WasFollowing
	})
	return op, nil
}

// CompleteFollow resolves the remote toggle, restoring each affected
// item's exact prior state on failure.
func (r *Reducer) CompleteFollow(op FollowOp, remoteErr error) error {
	delete(r.inflight, opKey{op.AuthorID, opFollow})
	if remoteErr == nil {
		return nil
	}
	for _, s := range op.snaps {
		host, ok := r.store.Get(s.hostID)
		if !ok {
			continue
		}
		target := host
		if s.embedded {
			if host.Repost == nil || host.Repost.Original == nil {
				continue
			}
			target = host.Repost.Original
		}
		target.Following = s.following
	}
	return remoteErr
}

// Ban / unban ---------------------------------------------------------------

type banSnap struct {
	hostID    int64
	embedded  bool // true when the author appears via a repost's original
	banned    bool
	following bool
}

// BanOp carries the pre-toggle ban state plus per-item snapshots, because
// banning also forces unfollow and the prior follow state varies per item.
type BanOp struct {
	AuthorID  int64
	WasBanned bool

	snaps []banSnap
}

// BeginBan toggles the banned flag on the author's snapshot in every item.
// Banning additionally sets Following false everywhere, regardless of its
// previous value; unbanning restores nothing.
func (r *Reducer) BeginBan(authorID int64) (BanOp, error) {
	var found *Item
	r.store.forEachByAuthor(authorID, func(_, target *Item) {
		if found == nil {
			found = target
		}
	})
	if found == nil {
		return BanOp{}, ErrNotFound
	}
	if err := r.claim(opKey{authorID, opBan}); err != nil {
		return BanOp{}, err
	}

	op := BanOp{AuthorID: authorID, WasBanned: found.Author.Banned}
	banning := !op.WasBanned
	r.store.forEachByAuthor(authorID, func(host, target *Item) {
		op.snaps = append(op.snaps, banSnap{
			hostID:    host.ID,
			embedded:  host != target,
			banned:    target.Author.Banned,
			following: target.Following,
		})
		target.Author.Banned = banning
		if banning {
			target.Following = false
		}
	})
	return op, nil
}

// CompleteBan resolves the remote toggle, restoring each item's exact prior
// banned and follow state on failure.
func (r *Reducer) CompleteBan(op BanOp, remoteErr error) error {
	delete(r.inflight, opKey{op.AuthorID, opBan})
	if remoteErr == nil {
		return nil
	}
	for _, s := range op.snaps {
		host, ok := r.store.Get(s.hostID)
		if !ok {
			continue
		}
		target := host
		if s.embedded {
			if host.Repost == nil || host.Repost.Original == nil {
				continue
			}
			target = host.Repost.Original
		}
		target.Author.Banned = s.banned
		target.Following = s.following
	}
	return remoteErr
}

// Comment -------------------------------------------------------------------

// CommentOp marks a pending comment. There is no optimistic insert: the
// remote response supplies the canonical comment record.
type CommentOp struct {
	ItemID int64
	Text   string
}

// BeginComment validates and claims the comment slot for the item. The
// store is not mutated until the remote call succeeds.
func (r *Reducer) BeginComment(itemID int64, text string) (CommentOp, error) {
	it, ok := r.store.Get(itemID)
	if !ok {
		return CommentOp{}, ErrNotFound
	}
	if it.Author.ReadOnly {
		return CommentOp{}, ErrReadOnly
	}
	if err := ValidateContent(text); err != nil {
		return CommentOp{}, err
	}
	if err := r.claim(opKey{itemID, opComment}); err != nil {
		return CommentOp{}, err
	}
	return CommentOp{ItemID: itemID, Text: text}, nil
}

// CompleteComment applies the canonical comment on success. A second
// comment by the same author replaces the first rather than appending.
func (r *Reducer) CompleteComment(op CommentOp, c Comment, remoteErr error) error {
	delete(r.inflight, opKey{op.ItemID, opComment})
	if remoteErr != nil {
		return remoteErr
	}
	if it, ok := r.store.Get(op.ItemID); ok {
		it.upsertComment(c)
	}
	return nil
}

// Edit ----------------------------------------------------------------------

// EditOp carries a validated pending edit. Edits are never optimistic; the
// stored item is untouched until the server returns the updated record.
type EditOp struct {
	ItemID    int64
	Content   string
	KeptMedia []int
	NewMedia  []MediaRef
}

// BeginEdit validates ownership, content length and media count before any
// remote call.
func (r *Reducer) BeginEdit(itemID int64, content string, keptMedia []int, newMedia []MediaRef) (EditOp, error) {
	it, ok := r.store.Get(itemID)
	if !ok {
		return EditOp{}, ErrNotFound
	}
	if it.Author.ID != r.viewer.UserID {
		return EditOp{}, ErrNotOwner
	}
	if err := ValidateContent(content); err != nil {
		return EditOp{}, err
	}
	if err := ValidateMediaCount(len(keptMedia) + len(newMedia)); err != nil {
		return EditOp{}, err
	}
	for _, idx := range keptMedia {
		if idx < 0 || idx >= len(it.Media) {
			return EditOp{}, ErrTooMuchMedia
		}
	}
	if err := r.claim(opKey{itemID, opEdit}); err != nil {
		return EditOp{}, err
	}
	return EditOp{ItemID: itemID, Content: content, KeptMedia: keptMedia, NewMedia: newMedia}, nil
}

// CompleteEdit replaces the stored item with the server's version on
// success; a failed edit leaves the store untouched.
func (r *Reducer) CompleteEdit(op EditOp, updated Item, remoteErr error) error {
	delete(r.inflight, opKey{op.ItemID, opEdit})
	if remoteErr != nil {
		return remoteErr
	}
	r.store.Replace(op.ItemID, updated)
	return nil
}

// Delete --------------------------------------------------------------------

// DeleteOp marks a pending delete. Removal is deliberately not optimistic:
// data loss is irreversible, so the item stays until the server confirms.
type DeleteOp struct {
	ItemID int64
}

// BeginDelete validates ownership and claims the slot.
func (r *Reducer) BeginDelete(itemID int64) (DeleteOp, error) {
	it, ok := r.store.Get(itemID)
	if !ok {
		return DeleteOp{}, ErrNotFound
	}
	if it.Author.ID != r.viewer.UserID {
		return DeleteOp{}, ErrNotOwner
	}
	if err := r.claim(opKey{itemID, opDelete}); err != nil {
		return DeleteOp{}, err
	}
	return DeleteOp{ItemID: itemID}, nil
}

// CompleteDelete removes the item only after remote confirmation.
func (r *Reducer) CompleteDelete(op DeleteOp, remoteErr error) error {
	delete(r.inflight, opKey{op.ItemID, opDelete})
	if remoteErr != nil {
		return remoteErr
	}
	r.store.Remove(op.ItemID)
	return nil
}

// Retweet -------------------------------------------------------------------

// RetweetOp marks a pending retweet of an original item, with an optional
// added comment.
type RetweetOp struct {
	ItemID  int64
	Comment string
}

// BeginRetweet validates the optional comment and claims the slot. The
// wrapper item is only inserted once the server has created it.
func (r *Reducer) BeginRetweet(itemID int64, comment string) (RetweetOp, error) {
	if _, ok := r.store.Get(itemID); !ok {
		return RetweetOp{}, ErrNotFound
	}
	if comment != "" {
		if err := ValidateContent(comment); err != nil {
			return RetweetOp{}, err
		}
	}
	if err := r.claim(opKey{itemID, opRetweet}); err != nil {
		return RetweetOp{}, err
	}
	return RetweetOp{ItemID: itemID, Comment: comment}, nil
}

// CompleteRetweet inserts the server-built wrapper at the head of the feed
// on success.
func (r *Reducer) CompleteRetweet(op RetweetOp, wrapper Item, remoteErr error) error {
	delete(r.inflight, opKey{op.ItemID, opRetweet})
	if remoteErr != nil {
		return remoteErr
	}
	r.store.InsertAtHead(wrapper)
	return nil
}

// Pin -----------------------------------------------------------------------

// TogglePin flips the pinned flag on the viewer's own item. Pins are local
// view state with no remote round trip. Under PinExclusive, pinning an item
// unpins the author's others; under PinMulti nothing else changes.
func (r *Reducer) TogglePin(itemID int64) error {
	it, ok := r.store.Get(itemID)
	if !ok {
		return ErrNotFound
	}
	if it.Author.ID != r.viewer.UserID {
		return ErrNotOwner
	}
	pinning := !it.Pinned
	if pinning && r.policy == PinExclusive {
		r.store.forEachByAuthor(it.Author.ID, func(host, target *Item) {
			if host == target {
				host.Pinned = false
			}
		})
	}
	it.Pinned = pinning
	return nil
}
