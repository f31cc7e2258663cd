package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redmonkez12/work4u/internal/backend"
	"github.com/redmonkez12/work4u/internal/httputil"
	"github.com/redmonkez12/work4u/internal/i18n"
	"github.com/redmonkez12/work4u/internal/logging"
)

func TestMockServiceSeed(t *testing.T) {
	svc := NewMockService(0)

	jobs, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, jobs, 3)
	assert.Equal(t, "Website Design for E-commerce Store", jobs[0].Title)
	assert.Equal(t, BudgetHourly, jobs[2].BudgetType)
	assert.Equal(t, 24, jobs[2].Applicants)

	job, err := svc.Get(context.Background(), "2")
	require.NoError(t, err)
	assert.Equal(t, "Tech Startup Inc", job.Poster.Name)

	_, err = svc.Get(context.Background(), "42")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMockServiceCreateAndApply(t *testing.T) {
	svc := NewMockService(0)
	ctx := context.Background()

	job, err := svc.Create(ctx, CreateJobRequest{
		Title:       "Logo design",
		Category:    "Design",
		Description: "A logo for a bakery",
		Budget:      150,
		Location:    "Prague",
	})
	require.NoError(t, err)
	assert.Equal(t, "4", job.ID)
	assert.Equal(t, 0, job.Applicants)
	assert.Equal(t, BudgetFixed, job.BudgetType)

	rate := 30.0
	app, err := svc.Apply(ctx, job.ID, ApplyRequest{ApplicantID: "uid-1", ProposedRate: &rate})
	require.NoError(t, err)
	assert.Equal(t, "1", app.ID)
	assert.Equal(t, ApplicationPending, app.Status)

	updated, err := svc.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, updated.Applicants)

	_, err = svc.Apply(ctx, "99", ApplyRequest{ApplicantID: "uid-1"})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.Create(ctx, CreateJobRequest{Title: "No description"})
	assert.ErrorIs(t, err, ErrInvalidJob)
}

func TestMockServiceListReturnsCopy(t *testing.T) {
	svc := NewMockService(0)

	jobs, err := svc.List(context.Background())
	require.NoError(t, err)
	jobs[0].Title = "changed"

	again, err := svc.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Website Design for E-commerce Store", again[0].Title)
}

func TestMockServiceHonoursContext(t *testing.T) {
	svc := NewMockService(time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.List(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestClient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/jobs":
			_, _ = w.Write([]byte(`[{"id":"1","title":"A","budgetType":"FIXED"}]`))
		case r.Method == http.MethodGet && r.URL.Path == "/jobs/404":
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":"no such job"}`))
		case r.Method == http.MethodPost && r.URL.Path == "/jobs/1/apply":
			var req ApplyRequest
			_ = json.NewDecoder(r.Body).Decode(&req)
			_ = json.NewEncoder(w).Encode(Application{ID: "7", JobID: "1", ApplicantID: req.ApplicantID, Status: ApplicationPending})
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer srv.Close()

	c := NewClient(backend.NewClient(srv.URL, time.Second, logging.NewNopLogger()))
	ctx := context.Background()

	jobs, err := c.List(ctx)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, BudgetFixed, jobs[0].BudgetType)

	_, err = c.Get(ctx, "404")
	assert.ErrorIs(t, err, ErrNotFound)

	app, err := c.Apply(ctx, "1", ApplyRequest{ApplicantID: "uid-1"})
	require.NoError(t, err)
	assert.Equal(t, "uid-1", app.ApplicantID)

	negative := -1.0
	_, err = c.Apply(ctx, "1", ApplyRequest{ApplicantID: "uid-1", ProposedRate: &negative})
	assert.ErrorIs(t, err, ErrInvalidRate)
}

type failingService struct{ MockService }

func (f *failingService) List(context.Context) ([]Job, error) {
	return nil, errors.New("boom")
}

func newRouter(t *testing.T, svc Service, applicant ApplicantFunc) http.Handler {
	t.Helper()
	catalog, err := i18n.LoadCatalog()
	require.NoError(t, err)

	h := NewHandler(svc, catalog, applicant)
	r := chi.NewRouter()
	r.Use(i18n.Middleware)
	r.Get("/api/jobs", h.List)
	r.Get("/api/jobs/{id}", h.Get)
	r.Post("/api/jobs", h.Create)
	r.Post("/api/jobs/{id}/apply", h.Apply)
	return r
}

func TestHandler(t *testing.T) {
	signedIn := func(*http.Request) (string, bool) { return "uid-1", true }
	router := newRouter(t, NewMockService(0), signedIn)

	t.Run("list", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/jobs", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		var jobs []Job
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &jobs))
		assert.Len(t, jobs, 3)
	})

	t.Run("not found is localized", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/jobs/99", nil)
		req.Header.Set("Accept-Language", "fr")
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
		var resp httputil.ErrorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, httputil.CodeNotFound, resp.Code)
		assert.NotEmpty(t, resp.Error)
	})

	t.Run("create validation", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/jobs", strings.NewReader(`{"title":"x"}`)))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), httputil.CodeValidationFailed)
	})

	t.Run("apply uses signed-in user", func(t *testing.T) {
		rec := httptest.NewRecorder()
		body := strings.NewReader(`{"applicantId":"spoofed","coverLetter":"hi"}`)
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/jobs/1/apply", body))

		assert.Equal(t, http.StatusCreated, rec.Code)
		var app Application
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &app))
		assert.Equal(t, "uid-1", app.ApplicantID)
		assert.Equal(t, ApplicationPending, app.Status)
	})

	t.Run("bad body", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/jobs", strings.NewReader(`{`)))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), httputil.CodeInvalidRequestBody)
	})
}

func TestHandlerApplyWithoutSession(t *testing.T) {
	anonymous := func(*http.Request) (string, bool) { return "", false }
	router := newRouter(t, NewMockService(0), anonymous)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/jobs/1/apply", strings.NewReader(`{}`)))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), httputil.CodeNoSession)
}

func TestHandlerInternalError(t *testing.T) {
	router := newRouter(t, &failingService{}, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/jobs", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), httputil.CodeInternalError)
}
