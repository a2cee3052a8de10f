package feed

import (
	"errors"
	"strings"
	"testing"
	"time"
)

var errRemote = errors.New("remote call failed")

func newTestReducer(items ...Item) (*Store, *Reducer) {
	s := NewStore()
	s.Merge(items, MergeAppend)
	return s, NewReducer(s, Viewer{UserID: 1}, PinMulti)
}

func TestLikeToggleAndRollback(t *testing.T) {
	it := testItem(1, 2)
	it.Likes = 5
	s, r := newTestReducer(it)

	op, err := r.BeginLike(1)
	if err != nil {
		t.Fatalf("BeginLike: %v", err)
	}
	if op.WasLiked {
		t.Error("pre-toggle state should be unliked")
	}

	got, _ := s.Get(1)
	if got.Likes != 6 || !got.Liked {
		t.Fatalf("optimistic state likes=%d liked=%v, want 6/true", got.Likes, got.Liked)
	}

	// Remote fails: both fields revert atomically.
	if err := r.CompleteLike(op, errRemote); !errors.Is(err, errRemote) {
		t.Fatalf("CompleteLike error = %v", err)
	}
	got, _ = s.Get(1)
	if got.Likes != 5 || got.Liked {
		t.Errorf("rollback state likes=%d liked=%v, want 5/false", got.Likes, got.Liked)
	}
}

func TestLikeRoundTripLaw(t *testing.T) {
	it := testItem(1, 2)
	it.Likes = 3
	it.Liked = true
	s, r := newTestReducer(it)

	op, _ := r.BeginLike(1)
	r.CompleteLike(op, nil)
	op, _ = r.BeginLike(1)
	r.CompleteLike(op, nil)

	got, _ := s.Get(1)
	if got.Likes != 3 || !got.Liked {
		t.Errorf("round trip broke state: likes=%d liked=%v", got.Likes, got.Liked)
	}
}

func TestLikeCountNeverNegative(t *testing.T) {
	it := testItem(1, 2)
	it.Liked = true // inconsistent server data: liked with zero count
	s, r := newTestReducer(it)

	op, _ := r.BeginLike(1)
	r.CompleteLike(op, nil)

	got, _ := s.Get(1)
	if got.Likes < 0 {
		t.Errorf("like count went negative: %d", got.Likes)
	}
}

func TestLikeDuplicateRejected(t *testing.T) {
	_, r := newTestReducer(testItem(1, 2))

	op, _ := r.BeginLike(1)
	if _, err := r.BeginLike(1); !errors.Is(err, ErrInFlight) {
		t.Fatalf("duplicate like error = %v, want ErrInFlight", err)
	}

	// A different operation on the same item may overlap.
	if _, err := r.BeginComment(1, "fine"); err != nil {
		t.Errorf("comment blocked by in-flight like: %v", err)
	}

	r.CompleteLike(op, nil)
	if _, err := r.BeginLike(1); err != nil {
		t.Errorf("like blocked after completion: %v", err)
	}
}

func TestLikeMissingItemIsNoop(t *testing.T) {
	_, r := newTestReducer()
	if _, err := r.BeginLike(42); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestFollowPropagatesAcrossItems(t *testing.T) {
	a, b, c := testItem(1, 7), testItem(2, 7), testItem(3, 8)
	s, r := newTestReducer(a, b, c)

	op, err := r.BeginFollow(7)
	if err != nil {
		t.Fatalf("BeginFollow: %v", err)
	}
	if op.WasFollowing {
		t.Error("pre-toggle should be not-following")
	}

	for _, id := range []int64{1, 2} {
		it, _ := s.Get(id)
		if !it.Following {
			t.Errorf("item %d not marked following", id)
		}
	}
	other, _ := s.Get(3)
	if other.Following {
		t.Error("unrelated author's item flipped")
	}

	r.CompleteFollow(op, errRemote)
	for _, id := range []int64{1, 2} {
		it, _ := s.Get(id)
		if it.Following {
			t.Errorf("item %d not reverted", id)
		}
	}
}

func TestFollowRollbackRestoresPerItemState(t *testing.T) {
	// Wire data can disagree across an author's items; rollback must put
	// back each item's own value, not one shared snapshot.
	a, b := testItem(1, 7), testItem(2, 7)
	b.Following = true
	wrapper := testItem(3, 9)
	orig := testItem(4, 7)
	orig.Following = true
	wrapper.Repost = &Repost{Original: &orig}
	s, r := newTestReducer(a, b, wrapper)

	op, err := r.BeginFollow(7)
	if err != nil {
		t.Fatalf("BeginFollow: %v", err)
	}
	r.CompleteFollow(op, errRemote)

	ia, _ := s.Get(1)
	ib, _ := s.Get(2)
	w, _ := s.Get(3)
	if ia.Following {
		t.Error("item 1 should revert to not-following")
	}
	if !ib.Following {
		t.Error("item 2 should revert to following")
	}
	if !w.Repost.Original.Following {
		t.Error("embedded original should revert to following")
	}
}

func TestFollowBannedAuthorRejected(t *testing.T) {
	it := testItem(1, 7)
	it.Author.Banned = true
	_, r := newTestReducer(it)

	if _, err := r.BeginFollow(7); !errors.Is(err, ErrAuthorBanned) {
		t.Errorf("expected ErrAuthorBanned, got %v", err)
	}
}

func TestBanPropagationAndImpliedUnfollow(t *testing.T) {
	a, b := testItem(1, 7), testItem(2, 7)
	a.Following = true
	b.Following = true
	wrapper := testItem(3, 9)
	orig := testItem(4, 7)
	orig.Following = true
	wrapper.Repost = &Repost{Original: &orig}
	s, r := newTestReducer(a, b, wrapper)

	op, err := r.BeginBan(7)
	if err != nil {
		t.Fatalf("BeginBan: %v", err)
	}

	for _, id := range []int64{1, 2} {
		it, _ := s.Get(id)
		if !it.Author.Banned || it.Following {
			t.Errorf("item %d: banned=%v following=%v, want true/false", id, it.Author.Banned, it.Following)
		}
	}
	w, _ := s.Get(3)
	if !w.Repost.Original.Author.Banned || w.Repost.Original.Following {
		t.Error("embedded repost original not banned/unfollowed")
	}
	if w.Author.Banned {
		t.Error("retweeter got banned too")
	}

	// Rollback restores the exact prior follow state per item.
	r.CompleteBan(op, errRemote)
	for _, id := range []int64{1, 2} {
		it, _ := s.Get(id)
		if it.Author.Banned || !it.Following {
			t.Errorf("item %d not restored", id)
		}
	}
	if w.Repost.Original.Author.Banned || !w.Repost.Original.Following {
		t.Error("embedded original not restored")
	}
}

func TestCommentReplacesByAuthor(t *testing.T) {
	s, r := newTestReducer(testItem(7, 2))

	first := Comment{ID: 100, Author: Author{ID: 1}, Text: "first", CreatedAt: time.Now()}
	op, err := r.BeginComment(7, "first")
	if err != nil {
		t.Fatalf("BeginComment: %v", err)
	}

	// No optimistic insert before the remote confirms.
	it, _ := s.Get(7)
	if len(it.Comments) != 0 {
		t.Fatal("comment inserted before remote confirmation")
	}
	r.CompleteComment(op, first, nil)

	second := Comment{ID: 101, Author: Author{ID: 1}, Text: "second", CreatedAt: time.Now()}
	op, _ = r.BeginComment(7, "second")
	r.CompleteComment(op, second, nil)

	it, _ = s.Get(7)
	if len(it.Comments) != 1 {
		t.Fatalf("expected exactly 1 comment, got %d", len(it.Comments))
	}
	if it.Comments[0].Text != "second" {
		t.Errorf("expected second text retained, got %q", it.Comments[0].Text)
	}
}

func TestCommentValidation(t *testing.T) {
	ro := testItem(5, 2)
	ro.Author.ReadOnly = true
	_, r := newTestReducer(testItem(7, 2), ro)

	cases := []struct {
		name string
		id   int64
		text string
		want error
	}{
		{"empty", 7, "", ErrContentLength},
		{"too long", 7, strings.Repeat("x", MaxContentLen+1), ErrContentLength},
		{"read-only author", 5, "hello", ErrReadOnly},
		{"missing item", 404, "hello", ErrNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := r.BeginComment(tc.id, tc.text); !errors.Is(err, tc.want) {
				t.Errorf("got %v, want %v", err, tc.want)
			}
		})
	}
}

func TestEditValidatesBeforeRemote(t *testing.T) {
	mine := testItem(1, 1)
	mine.Media = []MediaRef{"m1", "m2"}
	theirs := testItem(2, 9)
	_, r := newTestReducer(mine, theirs)

	cases := []struct {
		name    string
		id      int64
		content string
		kept    []int
		fresh   []MediaRef
		want    error
	}{
		{"not owner", 2, "edit", nil, nil, ErrNotOwner},
		{"empty content", 1, "", nil, nil, ErrContentLength},
		{"over limit", 1, strings.Repeat("y", 281), nil, nil, ErrContentLength},
		{"too much media", 1, "ok", []int{0, 1}, []MediaRef{"a", "b", "c"}, ErrTooMuchMedia},
		{"bad kept index", 1, "ok", []int{5}, nil, ErrTooMuchMedia},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := r.BeginEdit(tc.id, tc.content, tc.kept, tc.fresh); !errors.Is(err, tc.want) {
				t.Errorf("got %v, want %v", err, tc.want)
			}
		})
	}
}

func TestEditAppliesOnlyOnSuccess(t *testing.T) {
	mine := testItem(1, 1)
	mine.Content = "before"
	s, r := newTestReducer(mine)

	op, err := r.BeginEdit(1, "after", nil, nil)
	if err != nil {
		t.Fatalf("BeginEdit: %v", err)
	}
	it, _ := s.Get(1)
	if it.Content != "before" {
		t.Fatal("edit mutated the store optimistically")
	}

	r.CompleteEdit(op, Item{}, errRemote)
	it, _ = s.Get(1)
	if it.Content != "before" {
		t.Fatal("failed edit mutated the store")
	}

	op, _ = r.BeginEdit(1, "after", nil, nil)
	updated := mine
	updated.Content = "after"
	r.CompleteEdit(op, updated, nil)
	it, _ = s.Get(1)
	if it.Content != "after" {
		t.Errorf("successful edit not applied: %q", it.Content)
	}
}

func TestDeleteOnlyAfterConfirmation(t *testing.T) {
	s, r := newTestReducer(testItem(1, 1), testItem(2, 9))

	if _, err := r.BeginDelete(2); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("deleting another user's item: %v", err)
	}

	op, _ := r.BeginDelete(1)
	if s.Len() != 2 {
		t.Fatal("delete removed item before confirmation")
	}

	r.CompleteDelete(op, errRemote)
	if s.Len() != 2 {
		t.Fatal("failed delete removed item")
	}

	op, _ = r.BeginDelete(1)
	r.CompleteDelete(op, nil)
	if _, ok := s.Get(1); ok {
		t.Error("confirmed delete left item in store")
	}
}

func TestRetweetInsertsAtHeadOnSuccess(t *testing.T) {
	orig := testItem(1, 9)
	s, r := newTestReducer(orig)

	op, err := r.BeginRetweet(1, "nice one")
	if err != nil {
		t.Fatalf("BeginRetweet: %v", err)
	}
	if s.Len() != 1 {
		t.Fatal("retweet inserted before remote success")
	}

	wrapper := testItem(50, 1)
	wrapper.Repost = &Repost{Original: &orig, Comment: "nice one"}
	r.CompleteRetweet(op, wrapper, nil)

	items := s.Items()
	if len(items) != 2 || items[0].ID != 50 {
		t.Errorf("wrapper not at head: %v", ids(items))
	}
}

func TestPinPolicies(t *testing.T) {
	a, b := testItem(1, 1), testItem(2, 1)
	a.Pinned = true

	s := NewStore()
	s.Merge([]Item{a, b}, MergeAppend)
	r := NewReducer(s, Viewer{UserID: 1}, PinMulti)

	if err := r.TogglePin(2); err != nil {
		t.Fatalf("TogglePin: %v", err)
	}
	ia, _ := s.Get(1)
	ib, _ := s.Get(2)
	if !ia.Pinned || !ib.Pinned {
		t.Error("multi policy should allow both pins")
	}

	s2 := NewStore()
	s2.Merge([]Item{a, b}, MergeAppend)
	r2 := NewReducer(s2, Viewer{UserID: 1}, PinExclusive)
	if err := r2.TogglePin(2); err != nil {
		t.Fatalf("TogglePin exclusive: %v", err)
	}
	ia, _ = s2.Get(1)
	ib, _ = s2.Get(2)
	if ia.Pinned || !ib.Pinned {
		t.Errorf("exclusive policy: got pinned=%v/%v, want false/true", ia.Pinned, ib.Pinned)
	}

	otherOwned := testItem(3, 9)
	s2.Merge([]Item{otherOwned}, MergeAppend)
	if err := r2.TogglePin(3); !errors.Is(err, ErrNotOwner) {
		t.Errorf("pinning another user's item: %v", err)
	}
}

func TestRenderingGates(t *testing.T) {
	plain := testItem(1, 2)
	censored := testItem(2, 2)
	censored.Censored = true
	banned := testItem(3, 2)
	banned.Author.Banned = true
	banned.Censored = true
	orig := testItem(5, 3)
	censoredRepost := testItem(4, 2)
	censoredRepost.Censored = true
	censoredRepost.Repost = &Repost{Original: &orig}

	cases := []struct {
		name string
		item Item
		want Rendering
	}{
		{"plain", plain, RenderNormal},
		{"censored", censored, RenderWithheld},
		{"banned overrides censorship", banned, RenderSuspended},
		{"censored repost still shows", censoredRepost, RenderNormal},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.item.Rendering(); got != tc.want {
				t.Errorf("got %v, want %v", got, tc.want)
			}
		})
	}
}
