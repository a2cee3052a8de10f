package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textarea"

	"github.com/infblueocean/flock/internal/feed"
)

// mediaScheme prefixes an attachment reference typed into the composer.
// Media is uploaded out of band; the composer only references it by id.
const mediaScheme = "media://"

// splitMedia pulls attachment references out of composed text. Any
// whitespace-separated media:// token becomes an attachment; the remaining
// words are the post body.
func splitMedia(text string) (string, []feed.MediaRef) {
	var media []feed.MediaRef
	var words []string
	for _, w := range strings.Fields(text) {
		if ref, ok := strings.CutPrefix(w, mediaScheme); ok && ref != "" {
			media = append(media, feed.MediaRef(ref))
			continue
		}
		words = append(words, w)
	}
	return strings.Join(words, " "), media
}

// composePurpose distinguishes what the open editor will submit.
type composePurpose int

const (
	composePost composePurpose = iota
	composeComment
	composeEdit
	composeRetweet
)

// composer is the text entry overlay for posts, comments, edits and
// retweet remarks. One instance is reused; open resets it.
type composer struct {
	input   textarea.Model
	purpose composePurpose
	target  int64 // item id for comment, edit and retweet
	open    bool
}

func newComposer() composer {
	ta := textarea.New()
	ta.CharLimit = feed.MaxContentLen
	ta.SetHeight(4)
	ta.ShowLineNumbers = false
	return composer{input: ta}
}

func (c *composer) show(purpose composePurpose, target int64, initial string) {
	c.purpose = purpose
	c.target = target
	c.input.Reset()
	c.input.SetValue(initial)
	c.input.Placeholder = composePlaceholder(purpose)
	c.input.Focus()
	c.open = true
}

func (c *composer) hide() {
	c.open = false
	c.input.Blur()
}

func composePlaceholder(p composePurpose) string {
	switch p {
	case composeComment:
		return "write a comment..."
	case composeEdit:
		return "edit your post..."
	case composeRetweet:
		return "add a remark (optional)..."
	default:
		return "what's happening? (media://id attaches)"
	}
}

func (c *composer) title() string {
	switch c.purpose {
	case composeComment:
		return fmt.Sprintf("Comment on #%d", c.target)
	case composeEdit:
		return fmt.Sprintf("Edit #%d", c.target)
	case composeRetweet:
		return fmt.Sprintf("Retweet #%d", c.target)
	default:
		return "New post"
	}
}

func (c *composer) view(width int) string {
	c.input.SetWidth(width)
	counter := metaStyle.Render(
		fmt.Sprintf("%d/%d · enter to send · esc to cancel",
			len([]rune(c.input.Value())), feed.MaxContentLen))
	return titleStyle.Render(c.title()) + "\n" + c.input.View() + "\n" + counter
}
