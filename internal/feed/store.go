package feed

// MergeMode controls where fetched items land relative to what the store
// already holds.
type MergeMode int

const (
	// MergeAppend places new items after everything present (older pages).
	MergeAppend MergeMode = iota
	// MergePrepend places new items ahead of fetched items but behind
	// locally inserted ones (a head refresh).
	MergePrepend
)

// Store is the ordered, deduplicated collection of items backing one feed
// view. Identity is the item ID; on conflict the first-seen version wins,
// so a stale refetch can never clobber a local optimistic edit.
//
// Ordering: items arrive reverse-chronological from the source. Locally
// inserted items (new posts, retweets, live creation events) always sit
// ahead of every fetched item regardless of timestamp, so the user sees
// their own action immediately.
type Store struct {
	order []int64
	byID  map[int64]*Item

	// local is how many entries at the head of order were inserted
	// locally rather than fetched.
	local int
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{byID: make(map[int64]*Item)}
}

// Len returns the number of items held.
func (s *Store) Len() int { return len(s.order) }

// Get returns the live item for id. The pointer is owned by the store;
// callers outside this package should treat it as read-only.
func (s *Store) Get(id int64) (*Item, bool) {
	it, ok := s.byID[id]
	return it, ok
}

// Items returns copies of all items in display order.
func (s *Store) Items() []Item {
	out := make([]Item, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, *s.byID[id])
	}
	return out
}

// Merge inserts items not already present, preserving their relative order.
// Existing ids are left untouched. Returns the number of items added.
func (s *Store) Merge(items []Item, mode MergeMode) int {
	var fresh []int64
	for i := range items {
		it := items[i]
		if _, dup := s.byID[it.ID]; dup {
			continue
		}
		s.byID[it.ID] = &it
		fresh = append(fresh, it.ID)
	}
	if len(fresh) == 0 {
		return 0
	}

	switch mode {
	case MergePrepend:
		// Behind local insertions, ahead of previously fetched items.
		head := append([]int64{}, s.order[:s.local]...)
		head = append(head, fresh...)
		s.order = append(head, s.order[s.local:]...)
	default:
		s.order = append(s.order, fresh...)
	}
	return len(fresh)
}

// Replace swaps the stored item for id with updated. A missing id is a
// silent no-op: the item was deleted while the update was in flight.
func (s *Store) Replace(id int64, updated Item) {
	if _, ok := s.byID[id]; !ok {
		return
	}
	updated.ID = id
	s.byID[id] = &updated
}

// Remove deletes the item for id, if present.
func (s *Store) Remove(id int64) {
	if _, ok := s.byID[id]; !ok {
		return
	}
	delete(s.byID, id)
	for i, oid := range s.order {
		if oid != id {
			continue
		}
		s.order = append(s.order[:i], s.order[i+1:]...)
		if i < s.local {
			s.local--
		}
		break
	}
}

// InsertAtHead places a locally created item before everything else. It
// does not touch pagination state. Duplicate ids are ignored; the live
// bridge may announce an item the viewer already created locally.
func (s *Store) InsertAtHead(item Item) {
	if _, dup := s.byID[item.ID]; dup {
		return
	}
	s.byID[item.ID] = &item
	s.order = append([]int64{item.ID}, s.order...)
	s.local++
}

// Clear empties the store, e.g. when live data replaces an offline
// snapshot.
func (s *Store) Clear() {
	s.order = s.order[:0]
	s.byID = make(map[int64]*Item)
	s.local = 0
}

// HeadID returns the id of the newest fetched or inserted item, or 0 for an
// empty store. The live notifier uses it as a high-water mark.
func (s *Store) HeadID() int64 {
	var head int64
	for _, id := range s.order {
		if id > head {
			head = id
		}
	}
	return head
}

// forEachByAuthor visits every stored item written by userID, including
// originals embedded in repost wrappers. host is the top-level stored item;
// target is either host itself or the embedded original carrying the
// author's snapshot.
func (s *Store) forEachByAuthor(userID int64, fn func(host, target *Item)) {
	for _, id := range s.order {
		host := s.byID[id]
		if host.Author.ID == userID {
			fn(host, host)
		}
		if host.Repost != nil && host.Repost.Original != nil && host.Repost.Original.Author.ID == userID {
			fn(host, host.Repost.Original)
		}
	}
}
