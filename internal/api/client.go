// Package api implements the feed data source over the backend's HTTP API.
package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"

	"github.com/infblueocean/flock/internal/feed"
)

const userAgent = "flock/0.3.0"

// Options configures a Client.
type Options struct {
	BaseURL string
	Token   string
	Timeout time.Duration
	Logger  *log.Logger
}

// Client talks to the backend and satisfies feed.Source.
type Client struct {
	http   *resty.Client
	logger *log.Logger
}

var _ feed.Source = (*Client)(nil)

// New builds a client against the configured backend.
func New(opts Options) *Client {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}

	hc := resty.New().
		SetBaseURL(opts.BaseURL).
		SetTimeout(opts.Timeout).
		SetHeader("User-Agent", userAgent)
	hc.JSONMarshal = json.Marshal
	hc.JSONUnmarshal = json.Unmarshal
	if opts.Token != "" {
		hc.SetHeader("Authorization", "Bearer "+opts.Token)
	}

	hc.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		req.Header.Set("X-Request-ID", uuid.NewString())
		logger.Debug("http request", "method", req.Method, "url", req.URL)
		return nil
	})
	hc.OnAfterResponse(func(_ *resty.Client, resp *resty.Response) error {
		logger.Debug("http response", "status", resp.StatusCode(), "url", resp.Request.URL)
		return nil
	})

	return &Client{http: hc, logger: logger}
}

// statusErr maps a failed response to the engine's error taxonomy where the
// status is unambiguous, and wraps the backend's message otherwise.
func statusErr(action string, resp *resty.Response) error {
	switch resp.StatusCode() {
	case http.StatusNotFound:
		return fmt.Errorf("%s: %w", action, feed.ErrNotFound)
	case http.StatusForbidden:
		return fmt.Errorf("%s: %w", action, feed.ErrNotOwner)
	}
	var envelope errorResponse
	if err := json.Unmarshal(resp.Body(), &envelope); err == nil && envelope.Error != "" {
		return fmt.Errorf("%s: %s", action, envelope.Error)
	}
	return fmt.Errorf("%s: %s", action, resp.Status())
}

// FetchPage retrieves one page of the subject's feed, newest first.
func (c *Client) FetchPage(ctx context.Context, subject feed.Subject, page int) ([]feed.Item, error) {
	path := "/api/v1/feed"
	if !subject.IsAll() {
		path = fmt.Sprintf("/api/v1/users/%d/feed", subject.UserID())
	}

	var response pageResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("page", fmt.Sprintf("%d", page)).
		SetResult(&response).
		Get(path)
	if err != nil {
		return nil, fmt.Errorf("fetch page: %w", err)
	}
	if !resp.IsSuccess() {
		return nil, statusErr("fetch page", resp)
	}
	return toItems(response.Items), nil
}

// toggle issues a POST to set a flag and a DELETE to clear it, the pre-flip
// state deciding which.
func (c *Client) toggle(ctx context.Context, action, path string, wasSet bool) error {
	req := c.http.R().SetContext(ctx)
	var resp *resty.Response
	var err error
	if wasSet {
		resp, err = req.Delete(path)
	} else {
		resp, err = req.Post(path)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", action, err)
	}
	if !resp.IsSuccess() {
		return statusErr(action, resp)
	}
	return nil
}

// ToggleLike flips the like flag for userID on itemID.
func (c *Client) ToggleLike(ctx context.Context, itemID, userID int64, wasLiked bool) error {
	path := fmt.Sprintf("/api/v1/items/%d/like", itemID)
	return c.toggle(ctx, "toggle like", path, wasLiked)
}

// ToggleFollow flips follower's follow of followee.
func (c *Client) ToggleFollow(ctx context.Context, followerID, followeeID int64, wasFollowing bool) error {
	path := fmt.Sprintf("/api/v1/users/%d/follow", followeeID)
	return c.toggle(ctx, "toggle follow", path, wasFollowing)
}

// ToggleBan flips actor's ban of target.
func (c *Client) ToggleBan(ctx context.Context, actorID, targetID int64, wasBanned bool) error {
	path := fmt.Sprintf("/api/v1/users/%d/ban", targetID)
	return c.toggle(ctx, "toggle ban", path, wasBanned)
}

// AddComment posts a comment and returns the canonical record.
func (c *Client) AddComment(ctx context.Context, itemID, userID int64, text string) (feed.Comment, error) {
	var response commentResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]string{"text": text}).
		SetResult(&response).
		Post(fmt.Sprintf("/api/v1/items/%d/comments", itemID))
	if err != nil {
		return feed.Comment{}, fmt.Errorf("add comment: %w", err)
	}
	if !resp.IsSuccess() {
		return feed.Comment{}, statusErr("add comment", resp)
	}
	return toComment(response.Comment), nil
}

// UpdateItem edits an item's content and media set, returning the server's
// updated record.
func (c *Client) UpdateItem(ctx context.Context, itemID int64, content string, keptMedia []int, newMedia []feed.MediaRef) (feed.Item, error) {
	if keptMedia == nil {
		keptMedia = []int{}
	}
	added := make([]string, 0, len(newMedia))
	for _, m := range newMedia {
		added = append(added, string(m))
	}

	var response itemResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]interface{}{
			"content":    content,
			"kept_media": keptMedia,
			"new_media":  added,
		}).
		SetResult(&response).
		Put(fmt.Sprintf("/api/v1/items/%d", itemID))
	if err != nil {
		return feed.Item{}, fmt.Errorf("update item: %w", err)
	}
	if !resp.IsSuccess() {
		return feed.Item{}, statusErr("update item", resp)
	}
	return toItem(response.Item), nil
}

// DeleteItem removes an item.
func (c *Client) DeleteItem(ctx context.Context, itemID int64) error {
	resp, err := c.http.R().
		SetContext(ctx).
		Delete(fmt.Sprintf("/api/v1/items/%d", itemID))
	if err != nil {
		return fmt.Errorf("delete item: %w", err)
	}
	if !resp.IsSuccess() {
		return statusErr("delete item", resp)
	}
	return nil
}

// CreateRetweet wraps an existing item, optionally with added comment text,
// and returns the wrapper the server built.
func (c *Client) CreateRetweet(ctx context.Context, itemID int64, comment string) (feed.Item, error) {
	body := map[string]string{}
	if comment != "" {
		body["comment"] = comment
	}

	var response itemResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&response).
		Post(fmt.Sprintf("/api/v1/items/%d/retweet", itemID))
	if err != nil {
		return feed.Item{}, fmt.Errorf("create retweet: %w", err)
	}
	if !resp.IsSuccess() {
		return feed.Item{}, statusErr("create retweet", resp)
	}
	return toItem(response.Item), nil
}

// CreateItem posts a new item and returns the server's record.
func (c *Client) CreateItem(ctx context.Context, authorID int64, content string, media []feed.MediaRef) (feed.Item, error) {
	refs := make([]string, 0, len(media))
	for _, m := range media {
		refs = append(refs, string(m))
	}

	var response itemResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]interface{}{
			"content": content,
			"media":   refs,
		}).
		SetResult(&response).
		Post("/api/v1/items")
	if err != nil {
		return feed.Item{}, fmt.Errorf("create item: %w", err)
	}
	if !resp.IsSuccess() {
		return feed.Item{}, statusErr("create item", resp)
	}
	return toItem(response.Item), nil
}
