package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

var ErrUnexpectedResponse = errors.New("unexpected response from server")

// Client speaks the ScrapBook HTTP API. It reads tokens from the SessionStore for every
// authenticated call but never writes rotated tokens itself; pass mutation responses to a
// Syncer for that.
type Client struct {
	baseURL string
	http    *http.Client
	store   SessionStore
}

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

func New(baseURL string, store SessionStore, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
		store:   store,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Store() SessionStore {
	return c.store
}

// Register creates an account and stores the issued pair.
func (c *Client) Register(ctx context.Context, username, password, avatar string) (Response, error) {
	resp, err := c.post(ctx, "/users", map[string]any{
		"username": username,
		"password": password,
		"avatar":   avatar,
	})
	if err != nil {
		return Response{}, err
	}
	return resp, c.storeIssued(resp)
}

func (c *Client) Login(ctx context.Context, username, password string) (Response, error) {
	resp, err := c.post(ctx, "/auth/login", map[string]any{
		"username": username,
		"password": password,
	})
	if err != nil {
		return Response{}, err
	}
	return resp, c.storeIssued(resp)
}

func (c *Client) Account(ctx context.Context) (Response, error) {
	return c.authed(ctx, "/auth/account", map[string]any{})
}

func (c *Client) Logout(ctx context.Context) (Response, error) {
	resp, err := c.authed(ctx, "/auth/logout", map[string]any{})
	if err != nil {
		return Response{}, err
	}
	return resp, c.store.Clear()
}

// Community looks a community up by its title as it appears in the page path.
func (c *Client) Community(ctx context.Context, title string) (Response, error) {
	return c.post(ctx, "/communities/community", map[string]any{"title": url.PathEscape(title)})
}

func (c *Client) JoinCommunity(ctx context.Context, communityID string) (Response, error) {
	return c.authed(ctx, "/communities/join", map[string]any{"communityID": communityID})
}

func (c *Client) LeaveCommunity(ctx context.Context, communityID string) (Response, error) {
	return c.authed(ctx, "/communities/leave", map[string]any{"communityID": communityID})
}

func (c *Client) CreateCommunity(ctx context.Context, title, details string, interests []string) (Response, error) {
	return c.authed(ctx, "/communities/create", map[string]any{
		"title":     title,
		"details":   details,
		"interests": interests,
	})
}

func (c *Client) CreatePost(ctx context.Context, communityID, content string, images []string) (Response, error) {
	payload := map[string]any{"communityID": communityID, "content": content}
	if len(images) > 0 {
		payload["images"] = images
	}
	return c.authed(ctx, "/posts", payload)
}

func (c *Client) LikePost(ctx context.Context, postID string) (Response, error) {
	return c.authed(ctx, "/posts/like", map[string]any{"postID": postID})
}

func (c *Client) UnlikePost(ctx context.Context, postID string) (Response, error) {
	return c.authed(ctx, "/posts/unlike", map[string]any{"postID": postID})
}

func (c *Client) CommentOnPost(ctx context.Context, postID, content string) (Response, error) {
	return c.authed(ctx, "/posts/comment", map[string]any{"postID": postID, "content": content})
}

func (c *Client) LikeComment(ctx context.Context, commentID string) (Response, error) {
	return c.authed(ctx, "/posts/likeComment", map[string]any{"commentID": commentID})
}

func (c *Client) EditPost(ctx context.Context, postID, content string) (Response, error) {
	return c.authed(ctx, "/posts/edit", map[string]any{"postID": postID, "content": content})
}

func (c *Client) DeletePost(ctx context.Context, postID string) (Response, error) {
	return c.authed(ctx, "/posts/delete", map[string]any{"postID": postID})
}

func (c *Client) FindPost(ctx context.Context, postID string) (Response, error) {
	return c.post(ctx, "/posts/find", map[string]any{"postID": postID})
}

func (c *Client) authed(ctx context.Context, path string, payload map[string]any) (Response, error) {
	pair, err := c.store.Get()
	if err != nil {
		return Response{}, fmt.Errorf("load session: %w", err)
	}
	payload["accessToken"] = pair.AccessToken
	payload["refreshToken"] = pair.RefreshToken
	return c.post(ctx, path, payload)
}

// post decodes the envelope for any status; only transport failures and bodies that are
// not an envelope are errors.
func (c *Client) post(ctx context.Context, path string, payload any) (Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return Response{}, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return Response{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return Response{}, fmt.Errorf("POST %s: %w", path, err)
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return Response{}, fmt.Errorf("read %s: %w", path, err)
	}

	var resp Response
	if err := json.Unmarshal(raw, &resp); err != nil {
		return Response{}, fmt.Errorf("%w: %s returned %d", ErrUnexpectedResponse, path, res.StatusCode)
	}
	return resp, nil
}

func (c *Client) storeIssued(resp Response) error {
	if !resp.Success || resp.AccessToken == "" {
		return nil
	}
	return c.store.Set(TokenPair{AccessToken: resp.AccessToken, RefreshToken: resp.RefreshToken})
}
