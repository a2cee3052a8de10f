package ui

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/infblueocean/flock/internal/bus"
	"github.com/infblueocean/flock/internal/feed"
)

// scriptedSource returns canned pages and records calls; individual
// operations can be forced to fail.
type scriptedSource struct {
	mu         sync.Mutex
	pages      map[int][]feed.Item // page number -> items (global subject)
	fetchCalls int
	failLike   bool
	comments   []feed.Comment

	createCalls int
	postBody    string
	postMedia   []feed.MediaRef
}

func (s *scriptedSource) FetchPage(_ context.Context, _ feed.Subject, page int) ([]feed.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fetchCalls++
	return s.pages[page], nil
}

func (s *scriptedSource) ToggleLike(_ context.Context, _, _ int64, _ bool) error {
	if s.failLike {
		return errors.New("network down")
	}
	return nil
}

func (s *scriptedSource) ToggleFollow(_ context.Context, _, _ int64, _ bool) error { return nil }
func (s *scriptedSource) ToggleBan(_ context.Context, _, _ int64, _ bool) error    { return nil }

func (s *scriptedSource) AddComment(_ context.Context, itemID, userID int64, text string) (feed.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := feed.Comment{
		ID:        int64(len(s.comments) + 100),
		Author:    feed.Author{ID: userID},
		Text:      text,
		CreatedAt: time.Now(),
	}
	s.comments = append(s.comments, c)
	return c, nil
}

func (s *scriptedSource) UpdateItem(_ context.Context, itemID int64, content string, _ []int, _ []feed.MediaRef) (feed.Item, error) {
	return feed.Item{ID: itemID, Content: content, Author: feed.Author{ID: 1}}, nil
}

func (s *scriptedSource) DeleteItem(_ context.Context, _ int64) error { return nil }

func (s *scriptedSource) CreateRetweet(_ context.Context, itemID int64, comment string) (feed.Item, error) {
	orig := feed.Item{ID: itemID, Author: feed.Author{ID: 2}}
	return feed.Item{
		ID:     itemID + 1000,
		Author: feed.Author{ID: 1},
		Repost: &feed.Repost{Original: &orig, Comment: comment},
	}, nil
}

func (s *scriptedSource) CreateItem(_ context.Context, authorID int64, content string, media []feed.MediaRef) (feed.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.createCalls++
	s.postBody = content
	s.postMedia = media
	return feed.Item{ID: 9000, Content: content, Media: media, Author: feed.Author{ID: authorID}}, nil
}

func pageOf(n int, startID int64) []feed.Item {
	items := make([]feed.Item, n)
	for i := range items {
		items[i] = feed.Item{
			ID:      startID - int64(i),
			Content: "post",
			Author:  feed.Author{ID: 2, Username: "ann"},
		}
	}
	return items
}

// drive runs a command (possibly a batch) and feeds every produced message
// back into the model, like the runtime would.
func drive(t *testing.T, m tea.Model, cmd tea.Cmd) tea.Model {
	t.Helper()
	if cmd == nil {
		return m
	}
	msg := cmd()
	switch batch := msg.(type) {
	case tea.BatchMsg:
		for _, c := range batch {
			m = drive(t, m, c)
		}
		return m
	case nil:
		return m
	}
	var next tea.Cmd
	m, next = m.Update(msg)
	_ = next // results of results (cache writes etc.) not needed here
	return m
}

func newTestApp(src feed.Source) App {
	return NewApp(Options{
		Source:       src,
		Viewer:       feed.Viewer{UserID: 1},
		PinPolicy:    feed.PinMulti,
		ShowCensored: true,
	})
}

func key(s string) tea.KeyMsg {
	if s == "enter" {
		return tea.KeyMsg{Type: tea.KeyEnter}
	}
	if s == "esc" {
		return tea.KeyMsg{Type: tea.KeyEsc}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func press(t *testing.T, m tea.Model, keys ...string) tea.Model {
	t.Helper()
	for _, k := range keys {
		var cmd tea.Cmd
		m, cmd = m.Update(key(k))
		m = drive(t, m, cmd)
	}
	return m
}

func loadFirstPage(t *testing.T, src *scriptedSource) tea.Model {
	t.Helper()
	app := newTestApp(src)
	var m tea.Model = app
	home := app.sessions[0]
	req, _ := home.pager.Begin()
	items, err := src.FetchPage(context.Background(), req.Subject, req.Page)
	m, _ = m.Update(PageLoadedMsg{SessionID: home.id, Req: req, Items: items, Err: err})
	return m
}

func TestFailedLikeRevertsState(t *testing.T) {
	src := &scriptedSource{failLike: true, pages: map[int][]feed.Item{}}
	app := newTestApp(src)
	home := app.sessions[0]
	it := feed.Item{ID: 1, Likes: 5, Author: feed.Author{ID: 2}}
	home.store.Merge([]feed.Item{it}, feed.MergeAppend)

	var m tea.Model = app
	m, cmd := m.Update(key("l"))

	got, _ := home.store.Get(1)
	if got.Likes != 6 || !got.Liked {
		t.Fatalf("optimistic state likes=%d liked=%v, want 6/true", got.Likes, got.Liked)
	}

	m = drive(t, m, cmd)

	got, _ = home.store.Get(1)
	if got.Likes != 5 || got.Liked {
		t.Errorf("reverted state likes=%d liked=%v, want 5/false", got.Likes, got.Liked)
	}
	if home.status == "" {
		t.Error("failure not surfaced to the user")
	}
}

func TestExhaustionStopsFetching(t *testing.T) {
	src := &scriptedSource{pages: map[int][]feed.Item{
		1: pageOf(20, 100),
		// page 2 missing: empty response
	}}
	m := loadFirstPage(t, src)
	app := m.(App)
	home := app.sessions[0]

	if home.store.Len() != 20 {
		t.Fatalf("expected 20 items, got %d", home.store.Len())
	}

	// Scroll to the bottom; the empty page 2 marks the feed exhausted.
	m = press(t, m, "G")
	app = m.(App)
	if app.sessions[0].pager.State() != feed.StateExhausted {
		t.Fatalf("expected exhausted, got %s", app.sessions[0].pager.State())
	}
	calls := src.fetchCalls

	// Further scroll triggers must not issue another call.
	m = press(t, m, "G", "j", "j")
	if src.fetchCalls != calls {
		t.Errorf("fetch issued after exhaustion: %d -> %d", calls, src.fetchCalls)
	}
}

func TestDoubleCommentKeepsSecondText(t *testing.T) {
	src := &scriptedSource{pages: map[int][]feed.Item{
		1: {{ID: 7, Content: "post", Author: feed.Author{ID: 2}}},
	}}
	m := loadFirstPage(t, src)

	for _, text := range []string{"first", "second"} {
		m = press(t, m, "c")
		app := m.(App)
		if !app.compose.open {
			t.Fatal("compose did not open")
		}
		app.compose.input.SetValue(text)
		m = app
		m = press(t, m, "enter")
	}

	app := m.(App)
	it, _ := app.sessions[0].store.Get(7)
	if len(it.Comments) != 1 {
		t.Fatalf("expected 1 comment, got %d", len(it.Comments))
	}
	if it.Comments[0].Text != "second" {
		t.Errorf("expected second text, got %q", it.Comments[0].Text)
	}
}

func TestDeleteNeedsConfirmation(t *testing.T) {
	src := &scriptedSource{pages: map[int][]feed.Item{
		1: {{ID: 5, Content: "mine", Author: feed.Author{ID: 1}}},
	}}
	m := loadFirstPage(t, src)

	// Declining keeps the item.
	m = press(t, m, "d", "n")
	app := m.(App)
	if app.sessions[0].store.Len() != 1 {
		t.Fatal("declined delete removed the item")
	}

	m = press(t, m, "d", "y")
	app = m.(App)
	if app.sessions[0].store.Len() != 0 {
		t.Error("confirmed delete left the item")
	}
}

func TestRetweetLandsAtHead(t *testing.T) {
	src := &scriptedSource{pages: map[int][]feed.Item{
		1: {{ID: 7, Content: "orig", Author: feed.Author{ID: 2, Username: "ann"}}},
	}}
	m := loadFirstPage(t, src)

	m = press(t, m, "t")
	app := m.(App)
	app.compose.input.SetValue("nice")
	m = app
	m = press(t, m, "enter")

	app = m.(App)
	items := app.sessions[0].store.Items()
	if len(items) != 2 || !items[0].IsRepost() {
		t.Fatalf("wrapper not at head: %+v", items)
	}
	if items[0].Repost.Comment != "nice" {
		t.Errorf("comment lost: %q", items[0].Repost.Comment)
	}
}

func TestProfilePushAndPop(t *testing.T) {
	src := &scriptedSource{pages: map[int][]feed.Item{
		1: {{ID: 7, Content: "post", Author: feed.Author{ID: 2, Username: "ann"}}},
	}}
	m := loadFirstPage(t, src)

	m = press(t, m, "u")
	app := m.(App)
	if len(app.sessions) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(app.sessions))
	}
	if app.top().subject != feed.ForUser(2) {
		t.Errorf("wrong profile subject: %v", app.top().subject)
	}

	m = press(t, m, "esc")
	app = m.(App)
	if len(app.sessions) != 1 {
		t.Errorf("expected 1 session after pop, got %d", len(app.sessions))
	}
}

func TestStaleSessionResultDropped(t *testing.T) {
	src := &scriptedSource{pages: map[int][]feed.Item{
		1: {{ID: 7, Content: "post", Author: feed.Author{ID: 2, Username: "ann"}}},
	}}
	m := loadFirstPage(t, src)
	m = press(t, m, "u")
	app := m.(App)
	profileID := app.top().id
	m = press(t, m, "esc")

	// A page for the popped profile session arrives late.
	m, _ = m.Update(PageLoadedMsg{
		SessionID: profileID,
		Req:       feed.PageRequest{Subject: feed.ForUser(2), Page: 1},
		Items:     pageOf(5, 50),
	})
	app = m.(App)
	if app.sessions[0].store.Len() != 1 {
		t.Errorf("stale session result mutated the home store")
	}
}

func TestCacheSeedDroppedAfterEmptyLiveFeed(t *testing.T) {
	src := &scriptedSource{pages: map[int][]feed.Item{}}
	app := newTestApp(src)
	home := app.sessions[0]
	var m tea.Model = app

	// The live feed answers first, and it is empty.
	req, _ := home.pager.Begin()
	m, _ = m.Update(PageLoadedMsg{SessionID: home.id, Req: req})
	if home.pager.State() != feed.StateExhausted {
		t.Fatalf("expected exhausted pager, got %s", home.pager.State())
	}

	// The offline snapshot arrives late; it must not be seeded, or its
	// stale interaction state would stick around with no live page left
	// to replace it.
	m, _ = m.Update(CacheLoadedMsg{SessionID: home.id, Items: []feed.Item{
		{ID: 2, Content: "stale", Likes: 1, Author: feed.Author{ID: 2}},
	}})
	if home.store.Len() != 0 {
		t.Errorf("offline snapshot seeded after the live feed resolved empty")
	}
}

func TestSelectedItemShowsCommentsInline(t *testing.T) {
	s := newSession(1, feed.SubjectAll, "home", feed.Viewer{UserID: 1}, feed.PinMulti)
	s.store.Merge([]feed.Item{
		{ID: 2, Content: "top", Author: feed.Author{ID: 2, Username: "ann"},
			Comments: []feed.Comment{{ID: 10, Author: feed.Author{ID: 3, Username: "bob"}, Text: "well said"}}},
		{ID: 1, Content: "below", Author: feed.Author{ID: 2, Username: "ann"},
			Comments: []feed.Comment{{ID: 11, Author: feed.Author{ID: 3, Username: "bob"}, Text: "quiet reply"}}},
	}, feed.MergeAppend)

	out := s.render(80, 30, true)
	if !strings.Contains(out, "well said") {
		t.Error("selected item's comments not rendered inline")
	}
	if strings.Contains(out, "quiet reply") {
		t.Error("unselected item's comments rendered")
	}

	s.moveCursor(1)
	out = s.render(80, 30, true)
	if strings.Contains(out, "well said") || !strings.Contains(out, "quiet reply") {
		t.Error("comment expansion did not follow the cursor")
	}
}

func TestSettingsChangeAppliesLive(t *testing.T) {
	src := &scriptedSource{pages: map[int][]feed.Item{
		1: {{ID: 7, Content: "hidden", Censored: true, Author: feed.Author{ID: 2, Username: "ann"}}},
	}}
	m := loadFirstPage(t, src)

	m, _ = m.Update(LiveEventMsg{Event: bus.SettingsChanged{ShowCensored: false}})
	app := m.(App)
	if app.opts.ShowCensored {
		t.Error("settings change not applied to the running view")
	}
}

func TestPostCarriesMediaRefs(t *testing.T) {
	src := &scriptedSource{pages: map[int][]feed.Item{
		1: {{ID: 7, Content: "post", Author: feed.Author{ID: 2, Username: "ann"}}},
	}}
	m := loadFirstPage(t, src)

	m = press(t, m, "n")
	app := m.(App)
	app.compose.input.SetValue("check this out media://a1 media://b2")
	m = app
	m = press(t, m, "enter")

	if src.postBody != "check this out" {
		t.Errorf("media tokens leaked into the body: %q", src.postBody)
	}
	if len(src.postMedia) != 2 || src.postMedia[0] != "a1" || src.postMedia[1] != "b2" {
		t.Errorf("attachments lost: %v", src.postMedia)
	}

	app = m.(App)
	items := app.sessions[0].store.Items()
	if len(items) == 0 || items[0].ID != 9000 {
		t.Fatalf("created post not at head: %+v", items)
	}
}

func TestPostRejectsTooManyMedia(t *testing.T) {
	src := &scriptedSource{pages: map[int][]feed.Item{
		1: {{ID: 7, Content: "post", Author: feed.Author{ID: 2, Username: "ann"}}},
	}}
	m := loadFirstPage(t, src)

	m = press(t, m, "n")
	app := m.(App)
	app.compose.input.SetValue("pics media://a media://b media://c media://d media://e")
	m = app
	m = press(t, m, "enter")

	if src.createCalls != 0 {
		t.Error("over-limit post reached the backend")
	}
	app = m.(App)
	if app.sessions[0].status == "" {
		t.Error("rejection not surfaced to the user")
	}
}

func TestCacheSeedReplacedByLiveData(t *testing.T) {
	src := &scriptedSource{pages: map[int][]feed.Item{
		1: {{ID: 2, Content: "live", Likes: 9, Author: feed.Author{ID: 2}}},
	}}
	app := newTestApp(src)
	home := app.sessions[0]
	var m tea.Model = app

	m, _ = m.Update(CacheLoadedMsg{SessionID: home.id, Items: []feed.Item{
		{ID: 2, Content: "stale", Likes: 1, Author: feed.Author{ID: 2}},
		{ID: 1, Content: "old", Author: feed.Author{ID: 2}},
	}})
	if home.store.Len() != 2 {
		t.Fatal("cache seed not applied")
	}

	req, _ := home.pager.Begin()
	m, _ = m.Update(PageLoadedMsg{SessionID: home.id, Req: req, Items: src.pages[1]})

	got, ok := home.store.Get(2)
	if !ok || got.Likes != 9 || got.Content != "live" {
		t.Errorf("live page did not replace the offline snapshot: %+v", got)
	}
}
