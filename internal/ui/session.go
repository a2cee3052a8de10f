package ui

import (
	"fmt"
	"strings"

	"github.com/infblueocean/flock/internal/feed"
)

// session is one mounted feed view: the global timeline, or a profile
// pushed on top of it. Each session owns its engine state; nothing is
// shared across sessions, so tearing one down cannot corrupt another.
type session struct {
	id      int
	subject feed.Subject
	title   string

	store   *feed.Store
	pager   *feed.Pager
	reducer *feed.Reducer

	cursor int
	status string // transient per-view error line

	// seeded marks a store holding the offline snapshot rather than live
	// data; the first fetched page replaces it wholesale.
	seeded bool

	// liveResolved is set once any page fetch has resolved without error.
	// A cache snapshot arriving after that point is stale against live
	// data and must not be seeded, even when the live feed was empty.
	liveResolved bool
}

func newSession(id int, subject feed.Subject, title string, viewer feed.Viewer, policy feed.PinPolicy) *session {
	store := feed.NewStore()
	return &session{
		id:      id,
		subject: subject,
		title:   title,
		store:   store,
		pager:   feed.NewPager(subject),
		reducer: feed.NewReducer(store, viewer, policy),
	}
}

// current returns the item under the cursor.
func (s *session) current() (feed.Item, bool) {
	items := s.store.Items()
	if s.cursor < 0 || s.cursor >= len(items) {
		return feed.Item{}, false
	}
	return items[s.cursor], true
}

func (s *session) moveCursor(delta int) {
	s.cursor += delta
	if s.cursor < 0 {
		s.cursor = 0
	}
	if n := s.store.Len(); s.cursor >= n && n > 0 {
		s.cursor = n - 1
	}
}

func (s *session) clampCursor() {
	if n := s.store.Len(); s.cursor >= n {
		s.cursor = n - 1
	}
	if s.cursor < 0 {
		s.cursor = 0
	}
}

// nearBottom reports whether the cursor is close enough to the end that
// the next page should be requested.
func (s *session) nearBottom() bool {
	return s.cursor >= s.store.Len()-3
}

// render draws the session's timeline into at most height lines.
func (s *session) render(width, height int, showCensored bool) string {
	items := s.store.Items()
	if len(items) == 0 {
		if s.pager.State() == feed.StateLoading {
			return placeholderStyle.Render("loading feed...")
		}
		return placeholderStyle.Render("nothing here yet")
	}

	var b strings.Builder
	lines := 0
	// Keep the cursor visible: start far enough down the list.
	start := 0
	perItem := 3
	visible := height / perItem
	if visible < 1 {
		visible = 1
	}
	if s.cursor >= visible {
		start = s.cursor - visible + 1
	}

	for i := start; i < len(items); i++ {
		it := items[i]
		block, shown := renderItem(it, width, i == s.cursor, showCensored)
		if !shown {
			continue
		}
		n := strings.Count(block, "\n") + 1
		if lines+n > height {
			break
		}
		b.WriteString(block)
		b.WriteString("\n")
		lines += n
	}
	return b.String()
}

// renderItem draws one timeline entry. The bool is false when the item is
// fully hidden under the current display settings.
func renderItem(it feed.Item, width int, selected bool, showCensored bool) (string, bool) {
	var head, body string

	switch it.Rendering() {
	case feed.RenderSuspended:
		head = handleStyle.Render(displayName(it.Author))
		body = placeholderStyle.Render("account suspended")
	case feed.RenderWithheld:
		if !showCensored {
			return "", false
		}
		head = handleStyle.Render(displayName(it.Author))
		body = placeholderStyle.Render("content withheld")
	default:
		head = authorStyle.Render(displayName(it.Author)) + " " +
			handleStyle.Render("@"+it.Author.Username)
		if it.IsRepost() {
			inner := it.Repost.Original
			prefix := ""
			if it.Repost.Comment != "" {
				prefix = it.Repost.Comment + " "
			}
			body = prefix + repostStyle.Render(
				fmt.Sprintf("RT @%s: %s", inner.Author.Username, inner.Content))
		} else {
			body = it.Content
		}
	}

	var badges []string
	if it.Pinned {
		badges = append(badges, pinStyle.Render("pinned"))
	}
	if it.Following {
		badges = append(badges, followStyle.Render("following"))
	}
	if len(badges) > 0 {
		head += "  " + strings.Join(badges, " ")
	}

	like := fmt.Sprintf("%d likes", it.Likes)
	if it.Liked {
		like = likedStyle.Render(fmt.Sprintf("%d likes ♥", it.Likes))
	}
	meta := metaStyle.Render(fmt.Sprintf("%s · %d comments · %s",
		like, len(it.Comments), it.CreatedAt.Format("Jan 2 15:04")))

	block := head + "\n" + truncate(body, width) + "\n" + meta

	// The selected item expands: its comments show inline.
	if selected && it.Rendering() == feed.RenderNormal {
		for _, c := range it.Comments {
			line := handleStyle.Render("  @"+c.Author.Username+": ") + c.Text
			block += "\n" + truncate(line, width)
		}
	}
	if selected {
		block = selectedStyle.Render(block)
	}
	return block, true
}

func displayName(a feed.Author) string {
	if a.Name != "" {
		return a.Name
	}
	return a.Username
}

func truncate(s string, width int) string {
	if width <= 3 {
		return s
	}
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	return string(r[:width-3]) + "..."
}
