// Package api implements the HTTP decode service: a thin job wrapper
// around pkg/psf.DecodeFile, exposed over a small echo-based HTTP surface.
package api

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v5"
	"golang.org/x/time/rate"

	"github.com/cadence-tools/psfdecode/internal/logger"
	"github.com/cadence-tools/psfdecode/pkg/psf"
	"github.com/cadence-tools/psfdecode/pkg/sink"
)

// Server serves the decode job API. One slow PSF file must not starve the
// queue, so job submission is rate-limited and concurrent decodes are
// bounded by a semaphore; neither limit applies to job status lookups.
type Server struct {
	store   *JobStore
	limiter *rate.Limiter
	sem     chan struct{}
	log     logger.Logger
}

// NewServer returns a Server backed by store, admitting at most
// maxConcurrent simultaneous decodes and at most rps job submissions per
// second, with a burst of int(rps)+1 submissions.
func NewServer(store *JobStore, maxConcurrent int, rps float64, log logger.Logger) *Server {
	if store == nil {
		store = NewJobStore()
	}
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	if rps <= 0 {
		rps = 1
	}
	if log == nil {
		log = logger.Default()
	}
	return &Server{
		store:   store,
		limiter: rate.NewLimiter(rate.Limit(rps), int(rps)+1),
		sem:     make(chan struct{}, maxConcurrent),
		log:     log,
	}
}

// Register mounts the job endpoints and swaps in the goccy/go-json
// serializer in place of echo's default.
func (s *Server) Register(e *echo.Echo) {
	e.JSONSerializer = goJSONSerializer{}
	e.POST("/v1/jobs", s.handleCreateJob)
	e.GET("/v1/jobs/:id", s.handleGetJob)
}

func (s *Server) handleCreateJob(c *echo.Context) error {
	if !s.limiter.Allow() {
		return writeError(c, http.StatusTooManyRequests, "rate_limited", "too many job submissions, slow down")
	}

	req, err := decodeJSON[CreateJobRequest](c)
	if err != nil {
		return writeBadRequest(c, err.Error())
	}
	if req.InputPath == "" || req.OutputPath == "" {
		return writeBadRequest(c, newInvalidRequest("input_path and output_path are required").Error())
	}

	id := "job_" + uuid.NewString()
	s.store.Create(id, req.InputPath, req.OutputPath)

	go s.runJob(id, req.InputPath, req.OutputPath)

	return c.JSON(http.StatusAccepted, CreateJobResponse{ID: id})
}

func (s *Server) handleGetJob(c *echo.Context) error {
	id := c.Param("id")
	resp, ok := s.store.Get(id)
	if !ok {
		return writeNotFound(c, "job not found")
	}
	return c.JSON(http.StatusOK, resp)
}

// runJob performs one decode, end to end, off the request goroutine. The
// decoder itself only reads input and calls out to a Sink; all of the
// logging and job bookkeeping around it lives here.
func (s *Server) runJob(id, inputPath, outputPath string) {
	s.sem <- struct{}{}
	defer func() { <-s.sem }()

	s.store.MarkRunning(id)
	log := s.log.With("job_id", id, "input", inputPath, "output", outputPath)
	log.Info("decode job started")

	out, err := sink.NewHDF5Sink(outputPath)
	if err != nil {
		log.Error("decode job failed", "error", err)
		s.store.MarkFailed(id, err)
		return
	}

	ctx := logger.WithContext(context.Background(), log)
	df, decodeErr := psf.DecodeFile(ctx, inputPath, out)
	if decodeErr != nil {
		log.Error("decode job failed", "error", decodeErr)
		s.store.MarkFailed(id, decodeErr)
		return
	}

	summary := summarize(df)
	log.Info("decode job finished", "sweeps", summary.Sweeps, "traces", summary.Traces, "num_points", summary.NumPoints)
	s.store.MarkDone(id, summary)
}

func summarize(df *psf.DecodedFile) JobSummary {
	return JobSummary{
		Sweeps:    len(df.Sweeps),
		Traces:    len(df.Traces),
		NumPoints: df.NumPoints,
		ValueMode: valueModeName(df.ValueMode.Kind),
	}
}

func valueModeName(k psf.ValueModeKind) string {
	switch k {
	case psf.NoSweep:
		return "no_sweep"
	case psf.FlatSweep:
		return "flat_sweep"
	case psf.WindowedSweep:
		return "windowed_sweep"
	default:
		return "unknown"
	}
}
