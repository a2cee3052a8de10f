package api

import (
	"sort"
	"time"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// wireAuthor is the author snapshot as the backend sends it.
type wireAuthor struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Username string `json:"username"`
	Avatar   string `json:"avatar_url"`
	Banned   bool   `json:"banned"`
	ReadOnly bool   `json:"read_only"`
}

// wireComment is one comment record on the wire.
type wireComment struct {
	ID        int64      `json:"id"`
	Author    wireAuthor `json:"author"`
	Text      string     `json:"text"`
	CreatedAt time.Time  `json:"created_at"`
}

// commentList absorbs both shapes the backend emits for comments: a plain
// array, or a map keyed by comment id. Either way it decodes to one ordered
// slice so nothing downstream ever sees the map form.
type commentList []wireComment

func (c *commentList) UnmarshalJSON(data []byte) error {
	var asArray []wireComment
	if err := json.Unmarshal(data, &asArray); err == nil {
		*c = asArray
		return nil
	}

	var asMap map[string]wireComment
	if err := json.Unmarshal(data, &asMap); err != nil {
		return err
	}
	out := make([]wireComment, 0, len(asMap))
	for _, wc := range asMap {
		out = append(out, wc)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	*c = out
	return nil
}

// wireItem is one feed entry on the wire. Reposts arrive with the original
// nested under "repost".
type wireItem struct {
	ID        int64       `json:"id"`
	Content   string      `json:"content"`
	CreatedAt time.Time   `json:"created_at"`
	Author    wireAuthor  `json:"author"`
	Media     []string    `json:"media,omitempty"`
	Likes     int         `json:"like_count"`
	Liked     bool        `json:"liked"`
	Following bool        `json:"following_author"`
	Comments  commentList `json:"comments,omitempty"`
	Repost    *wireRepost `json:"repost,omitempty"`
	Censored  bool        `json:"censored"`
}

type wireRepost struct {
	Original *wireItem `json:"original"`
	Comment  string    `json:"comment,omitempty"`
}

// pageResponse is the envelope for feed page fetches.
type pageResponse struct {
	Items []wireItem `json:"items"`
}

type itemResponse struct {
	Item wireItem `json:"item"`
}

type commentResponse struct {
	Comment wireComment `json:"comment"`
}

// errorResponse is the backend's error envelope.
type errorResponse struct {
	Error string `json:"error"`
}
