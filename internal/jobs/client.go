package jobs

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/redmonkez12/work4u/internal/backend"
)

// Doer sends JSON requests to the marketplace API.
type Doer interface {
	Do(ctx context.Context, method, path, token string, body, out any) error
}

// Client is the Service backed by the jobs REST API.
type Client struct {
	api Doer
}

var _ Service = (*Client)(nil)

func NewClient(api Doer) *Client {
	return &Client{api: api}
}

func (c *Client) List(ctx context.Context) ([]Job, error) {
	var jobs []Job
	if err := c.api.Do(ctx, http.MethodGet, "/jobs", "", nil, &jobs); err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	if jobs == nil {
		jobs = []Job{}
	}
	return jobs, nil
}

func (c *Client) Get(ctx context.Context, id string) (*Job, error) {
	var job Job
	if err := c.api.Do(ctx, http.MethodGet, "/jobs/"+url.PathEscape(id), "", nil, &job); err != nil {
		return nil, mapError("get job", err)
	}
	return &job, nil
}

func (c *Client) Create(ctx context.Context, req CreateJobRequest) (*Job, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var job Job
	if err := c.api.Do(ctx, http.MethodPost, "/jobs", "", req, &job); err != nil {
		return nil, fmt.Errorf("failed to create job: %w", err)
	}
	return &job, nil
}

func (c *Client) Apply(ctx context.Context, jobID string, req ApplyRequest) (*Application, error) {
	if req.ProposedRate != nil && *req.ProposedRate < 0 {
		return nil, ErrInvalidRate
	}

	var app Application
	path := "/jobs/" + url.PathEscape(jobID) + "/apply"
	if err := c.api.Do(ctx, http.MethodPost, path, "", req, &app); err != nil {
		return nil, mapError("apply to job", err)
	}
	return &app, nil
}

func mapError(op string, err error) error {
	if errors.Is(err, backend.ErrNotFound) {
		return ErrNotFound
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}
