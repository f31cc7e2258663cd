package jobs

import (
	"context"
	"errors"
	"strings"
)

var (
	ErrNotFound     = errors.New("job not found")
	ErrInvalidJob   = errors.New("title, description and location are required")
	ErrInvalidRate  = errors.New("proposed rate must not be negative")
	ErrInvalidInput = errors.New("invalid job input")
)

type BudgetType string

const (
	BudgetFixed  BudgetType = "FIXED"
	BudgetHourly BudgetType = "HOURLY"
)

type ApplicationStatus string

const (
	ApplicationPending     ApplicationStatus = "PENDING"
	ApplicationViewed      ApplicationStatus = "VIEWED"
	ApplicationShortlisted ApplicationStatus = "SHORTLISTED"
	ApplicationRejected    ApplicationStatus = "REJECTED"
	ApplicationAccepted    ApplicationStatus = "ACCEPTED"
	ApplicationWithdrawn   ApplicationStatus = "WITHDRAWN"
)

type Poster struct {
	Name    string  `json:"name"`
	Image   string  `json:"image"`
	Rating  float64 `json:"rating"`
	Reviews int     `json:"reviews"`
}

type Job struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Category    string     `json:"category"`
	Description string     `json:"description"`
	Budget      float64    `json:"budget"`
	BudgetType  BudgetType `json:"budgetType"`
	Location    string     `json:"location"`
	Remote      bool       `json:"remote"`
	Applicants  int        `json:"applicants"`
	Poster      Poster     `json:"poster"`
}

// CreateJobRequest is a Job without the server assigned fields.
type CreateJobRequest struct {
	Title       string     `json:"title"`
	Category    string     `json:"category"`
	Description string     `json:"description"`
	Budget      float64    `json:"budget"`
	BudgetType  BudgetType `json:"budgetType"`
	Location    string     `json:"location"`
	Remote      bool       `json:"remote"`
	Poster      Poster     `json:"poster"`
}

// Validate checks the fields a job posting cannot go without.
func (r CreateJobRequest) Validate() error {
	if strings.TrimSpace(r.Title) == "" || strings.TrimSpace(r.Description) == "" || strings.TrimSpace(r.Location) == "" {
		return ErrInvalidJob
	}
	if r.Budget < 0 {
		return ErrInvalidInput
	}
	if r.BudgetType != "" && r.BudgetType != BudgetFixed && r.BudgetType != BudgetHourly {
		return ErrInvalidInput
	}
	return nil
}

type Application struct {
	ID               string            `json:"id"`
	JobID            string            `json:"jobId"`
	ApplicantID      string            `json:"applicantId"`
	CoverLetter      string            `json:"coverLetter,omitempty"`
	ProposedRate     *float64          `json:"proposedRate,omitempty"`
	ProposedDuration string            `json:"proposedDuration,omitempty"`
	Status           ApplicationStatus `json:"status"`
}

type ApplyRequest struct {
	ApplicantID      string   `json:"applicantId"`
	CoverLetter      string   `json:"coverLetter,omitempty"`
	ProposedRate     *float64 `json:"proposedRate,omitempty"`
	ProposedDuration string   `json:"proposedDuration,omitempty"`
}

// Service is the jobs API, backed by the marketplace or by in-memory data.
type Service interface {
	List(ctx context.Context) ([]Job, error)
	Get(ctx context.Context, id string) (*Job, error)
	Create(ctx context.Context, req CreateJobRequest) (*Job, error)
	Apply(ctx context.Context, jobID string, req ApplyRequest) (*Application, error)
}
