package api

import "github.com/infblueocean/flock/internal/feed"

func toAuthor(w wireAuthor) feed.Author {
	return feed.Author{
		ID:       w.ID,
		Name:     w.Name,
		Username: w.Username,
		Avatar:   w.Avatar,
		Banned:   w.Banned,
		ReadOnly: w.ReadOnly,
	}
}

func toComment(w wireComment) feed.Comment {
	return feed.Comment{
		ID:        w.ID,
		Author:    toAuthor(w.Author),
		Text:      w.Text,
		CreatedAt: w.CreatedAt,
	}
}

// toItem normalizes one wire entry. Repost chains are cut to a single
// level: a repost's original is always delivered plain, whatever the
// backend nested under it.
func toItem(w wireItem) feed.Item {
	it := feed.Item{
		ID:        w.ID,
		Content:   w.Content,
		CreatedAt: w.CreatedAt,
		Author:    toAuthor(w.Author),
		Likes:     w.Likes,
		Liked:     w.Liked,
		Following: w.Following,
		Censored:  w.Censored,
	}
	for _, m := range w.Media {
		it.Media = append(it.Media, feed.MediaRef(m))
	}
	for _, c := range w.Comments {
		it.Comments = append(it.Comments, toComment(c))
	}
	if w.Repost != nil && w.Repost.Original != nil {
		inner := *w.Repost.Original
		inner.Repost = nil
		orig := toItem(inner)
		it.Repost = &feed.Repost{Original: &orig, Comment: w.Repost.Comment}
	}
	return it
}

func toItems(ws []wireItem) []feed.Item {
	out := make([]feed.Item, 0, len(ws))
	for _, w := range ws {
		out = append(out, toItem(w))
	}
	return out
}
