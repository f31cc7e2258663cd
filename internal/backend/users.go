package backend

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/redmonkez12/work4u/internal/analytics"
	"github.com/redmonkez12/work4u/internal/user"
)

var errEmptyID = errors.New("user id is required")

type loginStateRequest struct {
	LoggedInData map[string]any `json:"loggedInData"`
}

func userPath(id string) string {
	return "/api/users/" + url.PathEscape(id)
}

// Create registers the profile of a freshly created identity account
func (c *Client) Create(ctx context.Context, token string, req user.CreateRequest) (*user.ApiUser, error) {
	var out user.ApiUser
	if err := c.do(ctx, http.MethodPost, "/api/users", token, req, &out); err != nil {
		return nil, fmt.Errorf("failed to create user profile: %w", err)
	}
	return &out, nil
}

// Get fetches a profile. A missing profile matches ErrNotFound.
func (c *Client) Get(ctx context.Context, token, id string) (*user.ApiUser, error) {
	if id == "" {
		return nil, errEmptyID
	}

	var out user.ApiUser
	if err := c.do(ctx, http.MethodGet, userPath(id), token, nil, &out); err != nil {
		return nil, fmt.Errorf("failed to get user profile: %w", err)
	}
	return &out, nil
}

// Update sends a partial profile change
func (c *Client) Update(ctx context.Context, token, id string, update user.ProfileUpdate) (*user.ApiUser, error) {
	if id == "" {
		return nil, errEmptyID
	}

	var out user.ApiUser
	if err := c.do(ctx, http.MethodPatch, userPath(id), token, update, &out); err != nil {
		return nil, fmt.Errorf("failed to update user profile: %w", err)
	}
	return &out, nil
}

func (c *Client) Delete(ctx context.Context, token, id string) error {
	if id == "" {
		return errEmptyID
	}

	if err := c.do(ctx, http.MethodDelete, userPath(id), token, nil, nil); err != nil {
		return fmt.Errorf("failed to delete user profile: %w", err)
	}
	return nil
}

// SetLoginState records a login with its metadata
func (c *Client) SetLoginState(ctx context.Context, token, id string, data map[string]any) error {
	if id == "" {
		return errEmptyID
	}

	body := loginStateRequest{LoggedInData: data}
	if err := c.doBestEffort(ctx, http.MethodPost, userPath(id)+"/login-state", token, body, nil); err != nil {
		return fmt.Errorf("failed to set login state: %w", err)
	}
	return nil
}

func (c *Client) ClearLoginState(ctx context.Context, token, id string) error {
	if id == "" {
		return errEmptyID
	}

	if err := c.doBestEffort(ctx, http.MethodDelete, userPath(id)+"/login-state", token, nil, nil); err != nil {
		return fmt.Errorf("failed to clear login state: %w", err)
	}
	return nil
}

// TrackEvent posts an analytics event. The endpoint is unauthenticated.
func (c *Client) TrackEvent(ctx context.Context, event analytics.Event) error {
	if err := c.doBestEffort(ctx, http.MethodPost, "/api/analytics", "", event, nil); err != nil {
		return fmt.Errorf("failed to track event: %w", err)
	}
	return nil
}

var (
	_ user.Repository  = (*Client)(nil)
	_ analytics.Sender = (*Client)(nil)
)
