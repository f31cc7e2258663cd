package jobs

import (
	"context"
	"strconv"
	"sync"
	"time"
)

// MockService serves jobs from memory, seeded with sample postings.
type MockService struct {
	latency time.Duration

	mu           sync.RWMutex
	jobs         []Job
	applications []Application
}

func NewMockService(latency time.Duration) *MockService {
	return &MockService{latency: latency, jobs: seedJobs()}
}

func (m *MockService) List(ctx context.Context) ([]Job, error) {
	if err := m.wait(ctx); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Job(nil), m.jobs...), nil
}

func (m *MockService) Get(ctx context.Context, id string) (*Job, error) {
	if err := m.wait(ctx); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, j := range m.jobs {
		if j.ID == id {
			job := j
			return &job, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MockService) Create(ctx context.Context, req CreateJobRequest) (*Job, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if err := m.wait(ctx); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	job := Job{
		ID:          strconv.Itoa(len(m.jobs) + 1),
		Title:       req.Title,
		Category:    req.Category,
		Description: req.Description,
		Budget:      req.Budget,
		BudgetType:  req.BudgetType,
		Location:    req.Location,
		Remote:      req.Remote,
		Poster:      req.Poster,
	}
	if job.BudgetType == "" {
		job.BudgetType = BudgetFixed
	}
	m.jobs = append(m.jobs, job)
	return &job, nil
}

func (m *MockService) Apply(ctx context.Context, jobID string, req ApplyRequest) (*Application, error) {
	if req.ProposedRate != nil && *req.ProposedRate < 0 {
		return nil, ErrInvalidRate
	}
	if err := m.wait(ctx); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	idx := -1
	for i := range m.jobs {
		if m.jobs[i].ID == jobID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, ErrNotFound
	}

	app := Application{
		ID:               strconv.Itoa(len(m.applications) + 1),
		JobID:            jobID,
		ApplicantID:      req.ApplicantID,
		CoverLetter:      req.CoverLetter,
		ProposedRate:     req.ProposedRate,
		ProposedDuration: req.ProposedDuration,
		Status:           ApplicationPending,
	}
	m.applications = append(m.applications, app)
	m.jobs[idx].Applicants++
	return &app, nil
}

func (m *MockService) wait(ctx context.Context) error {
	if m.latency <= 0 {
		return ctx.Err()
	}

	t := time.NewTimer(m.latency)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func seedJobs() []Job {
	return []Job{
		{
			ID:          "1",
			Title:       "Website Design for E-commerce Store",
			Category:    "Design",
			Description: "Need a modern, responsive website design for our online store",
			Budget:      800,
			BudgetType:  BudgetFixed,
			Location:    "Remote",
			Remote:      true,
			Applicants:  12,
			Poster: Poster{
				Name:    "Sarah Johnson",
				Image:   "https://api.dicebear.com/7.x/avataaars/svg?seed=Sarah",
				Rating:  4.8,
				Reviews: 24,
			},
		},
		{
			ID:          "2",
			Title:       "Mobile App Development - iOS",
			Category:    "Development",
			Description: "Build a native iOS app for our fitness tracking platform",
			Budget:      5000,
			BudgetType:  BudgetFixed,
			Location:    "Remote",
			Remote:      true,
			Applicants:  8,
			Poster: Poster{
				Name:    "Tech Startup Inc",
				Image:   "https://api.dicebear.com/7.x/avataaars/svg?seed=Tech",
				Rating:  4.9,
				Reviews: 18,
			},
		},
		{
			ID:          "3",
			Title:       "Content Writing - Blog Posts",
			Category:    "Writing",
			Description: "Write 10 SEO-optimized blog posts about digital marketing",
			Budget:      25,
			BudgetType:  BudgetHourly,
			Location:    "Remote",
			Remote:      true,
			Applicants:  24,
			Poster: Poster{
				Name:    "Marketing Agency",
				Image:   "https://api.dicebear.com/7.x/avataaars/svg?seed=Marketing",
				Rating:  4.7,
				Reviews: 31,
			},
		},
	}
}
