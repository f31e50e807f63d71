// Package client provides a typed HTTP client for the Glimpse API and an
// optimistic-update controller for engagement toggles.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"time"

	"glimpse/internal/models"
	"glimpse/internal/service"
)

// APIError is a non-2xx response decoded into the API's error envelope.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d (%s): %s", e.Status, e.Code, e.Message)
}

// UserMessage maps the failure to copy suitable for direct display,
// keyed by status class rather than endpoint.
func (e *APIError) UserMessage() string {
	switch {
	case e.Status == http.StatusUnauthorized:
		return "Please sign in to continue."
	case e.Status == http.StatusForbidden:
		return "You don't have permission to do that."
	case e.Status == http.StatusNotFound:
		return "That content is no longer available."
	case e.Status == http.StatusTooManyRequests:
		return "You're doing that too fast. Take a breather."
	case e.Status >= 400 && e.Status < 500:
		return "That didn't work. Check your input and try again."
	default:
		return "Something went wrong on our end. Please try again."
	}
}

// UserMessage renders any client error for display. Transport failures
// (no response at all) read differently from server-reported errors.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	if apiErr, ok := err.(*APIError); ok {
		return apiErr.UserMessage()
	}
	return "Couldn't reach the server. Check your connection and try again."
}

// Client is a typed HTTP client for the Glimpse API.
type Client struct {
	baseURL string
	http    *http.Client
	token   string
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithToken sets the bearer token attached to every request.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// New creates a Client for the API at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FeedQuery holds the optional parameters for Feed.
type FeedQuery struct {
	Limit    int
	Offset   int
	AuthorID uint
}

// Feed fetches one page of the feed.
func (c *Client) Feed(ctx context.Context, q FeedQuery) (*models.FeedPage, error) {
	params := url.Values{}
	if q.Limit > 0 {
		params.Set("limit", fmt.Sprint(q.Limit))
	}
	if q.Offset > 0 {
		params.Set("offset", fmt.Sprint(q.Offset))
	}
	if q.AuthorID > 0 {
		params.Set("author_id", fmt.Sprint(q.AuthorID))
	}
	path := "/api/feed"
	if encoded := params.Encode(); encoded != "" {
		path += "?" + encoded
	}

	var page models.FeedPage
	if err := c.do(ctx, http.MethodGet, path, nil, "", &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// GetPost fetches a single post.
func (c *Client) GetPost(ctx context.Context, id uint) (*models.Post, error) {
	var post models.Post
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/posts/%d", id), nil, "", &post); err != nil {
		return nil, err
	}
	return &post, nil
}

// CreatePost uploads an image with a caption as multipart form data.
func (c *Client) CreatePost(ctx context.Context, caption string, image []byte, filename string) (*models.Post, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if err := w.WriteField("caption", caption); err != nil {
		return nil, err
	}
	part, err := w.CreateFormFile("image", filename)
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(image); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	var post models.Post
	if err := c.do(ctx, http.MethodPost, "/api/posts", &buf, w.FormDataContentType(), &post); err != nil {
		return nil, err
	}
	return &post, nil
}

// DeletePost removes one of the caller's posts.
func (c *Client) DeletePost(ctx context.Context, id uint) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/posts/%d", id), nil, "", nil)
}

// LikePost adds the caller's like and returns the post with fresh counts.
func (c *Client) LikePost(ctx context.Context, id uint) (*models.Post, error) {
	var post models.Post
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/api/posts/%d/like", id), nil, "", &post); err != nil {
		return nil, err
	}
	return &post, nil
}

// UnlikePost removes the caller's like and returns the post with fresh counts.
func (c *Client) UnlikePost(ctx context.Context, id uint) (*models.Post, error) {
	var post models.Post
	if err := c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/posts/%d/like", id), nil, "", &post); err != nil {
		return nil, err
	}
	return &post, nil
}

// Comments fetches one page of a post's comments.
func (c *Client) Comments(ctx context.Context, postID uint, limit, offset int) (*models.CommentPage, error) {
	params := url.Values{}
	if limit > 0 {
		params.Set("limit", fmt.Sprint(limit))
	}
	if offset > 0 {
		params.Set("offset", fmt.Sprint(offset))
	}
	path := fmt.Sprintf("/api/posts/%d/comments", postID)
	if encoded := params.Encode(); encoded != "" {
		path += "?" + encoded
	}

	var page models.CommentPage
	if err := c.do(ctx, http.MethodGet, path, nil, "", &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// CreateComment adds a comment to a post.
func (c *Client) CreateComment(ctx context.Context, postID uint, content string) (*models.Comment, error) {
	body, err := jsonReader(map[string]string{"content": content})
	if err != nil {
		return nil, err
	}
	var comment models.Comment
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/api/posts/%d/comments", postID), body, "application/json", &comment); err != nil {
		return nil, err
	}
	return &comment, nil
}

// DeleteComment removes one of the caller's comments.
func (c *Client) DeleteComment(ctx context.Context, id uint) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/comments/%d", id), nil, "", nil)
}

// LikeComment adds the caller's like to a comment.
func (c *Client) LikeComment(ctx context.Context, id uint) (*models.Comment, error) {
	var comment models.Comment
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/api/comments/%d/like", id), nil, "", &comment); err != nil {
		return nil, err
	}
	return &comment, nil
}

// UnlikeComment removes the caller's like from a comment.
func (c *Client) UnlikeComment(ctx context.Context, id uint) (*models.Comment, error) {
	var comment models.Comment
	if err := c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/comments/%d/like", id), nil, "", &comment); err != nil {
		return nil, err
	}
	return &comment, nil
}

// Profile fetches a user profile.
func (c *Client) Profile(ctx context.Context, userID uint) (*models.Profile, error) {
	var profile models.Profile
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/users/%d", userID), nil, "", &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// Follow adds the caller's follow edge and returns the followee profile.
func (c *Client) Follow(ctx context.Context, userID uint) (*models.Profile, error) {
	var profile models.Profile
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/api/users/%d/follow", userID), nil, "", &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// Unfollow removes the caller's follow edge and returns the followee profile.
func (c *Client) Unfollow(ctx context.Context, userID uint) (*models.Profile, error) {
	var profile models.Profile
	if err := c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/users/%d/follow", userID), nil, "", &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// Sync provisions the account for the authenticated principal. Safe to
// call on every sign-in.
func (c *Client) Sync(ctx context.Context, input service.ProvisionInput) (*models.User, error) {
	body, err := jsonReader(input)
	if err != nil {
		return nil, err
	}
	var user models.User
	if err := c.do(ctx, http.MethodPost, "/api/auth/sync", body, "application/json", &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func jsonReader(v any) (io.Reader, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(b), nil
}

// do performs the request and decodes the response into dest (when non-nil).
// Non-2xx responses come back as *APIError.
func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string, dest any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode}
		var envelope models.ErrorResponse
		if decodeErr := json.NewDecoder(resp.Body).Decode(&envelope); decodeErr == nil {
			apiErr.Code = envelope.Code
			apiErr.Message = envelope.Error
		}
		return apiErr
	}

	if dest == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(dest)
}
