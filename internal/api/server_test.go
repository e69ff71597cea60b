package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v5"

	"github.com/cadence-tools/psfdecode/internal/logger"
)

func newTestServer() *echo.Echo {
	s := NewServer(NewJobStore(), 2, 100, logger.Default())
	e := echo.New()
	s.Register(e)
	return e
}

func doJSON(e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestCreateJobValidation(t *testing.T) {
	t.Parallel()
	e := newTestServer()

	rec := doJSON(e, http.MethodPost, "/v1/jobs", `{"input_path":"","output_path":""}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d body=%s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "input_path and output_path are required") {
		t.Fatalf("unexpected error body: %s", rec.Body.String())
	}
}

func TestCreateAndGetJobLifecycle(t *testing.T) {
	t.Parallel()
	e := newTestServer()

	createRec := doJSON(e, http.MethodPost, "/v1/jobs", `{"input_path":"/tmp/in.psf","output_path":"/tmp/out.h5"}`)
	if createRec.Code != http.StatusAccepted {
		t.Fatalf("create status: got %d body=%s", createRec.Code, createRec.Body.String())
	}

	var created CreateJobResponse
	if err := json.Unmarshal(createRec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode create response: %v", err)
	}
	if created.ID == "" {
		t.Fatalf("expected job id")
	}
	if !strings.HasPrefix(created.ID, "job_") {
		t.Fatalf("expected job_ prefix, got %q", created.ID)
	}

	getRec := doJSON(e, http.MethodGet, "/v1/jobs/"+created.ID, "")
	if getRec.Code != http.StatusOK {
		t.Fatalf("get status: got %d body=%s", getRec.Code, getRec.Body.String())
	}

	var got JobResponse
	if err := json.Unmarshal(getRec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode get response: %v", err)
	}
	if got.ID != created.ID {
		t.Fatalf("unexpected id: %q", got.ID)
	}
	if got.Status != JobQueued && got.Status != JobRunning && got.Status != JobFailed && got.Status != JobDone {
		t.Fatalf("unexpected status: %q", got.Status)
	}
}

func TestGetUnknownJob(t *testing.T) {
	t.Parallel()
	e := newTestServer()

	rec := doJSON(e, http.MethodGet, "/v1/jobs/job_does_not_exist", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d body=%s", rec.Code, rec.Body.String())
	}
}

func TestCreateJobRateLimited(t *testing.T) {
	t.Parallel()
	s := NewServer(NewJobStore(), 1, 0.1, logger.Default())
	e := echo.New()
	s.Register(e)

	body := `{"input_path":"/tmp/in.psf","output_path":"/tmp/out.h5"}`
	// The limiter allows one burst request; a second submitted in the same
	// instant should be rejected.
	first := doJSON(e, http.MethodPost, "/v1/jobs", body)
	second := doJSON(e, http.MethodPost, "/v1/jobs", body)

	if first.Code != http.StatusAccepted {
		t.Fatalf("expected first request accepted, got %d body=%s", first.Code, first.Body.String())
	}
	if second.Code != http.StatusTooManyRequests {
		t.Fatalf("expected second request rate limited, got %d body=%s", second.Code, second.Body.String())
	}
}
