package api

// JobStatus is the lifecycle state of one decode job.
type JobStatus string

const (
	JobQueued  JobStatus = "queued"
	JobRunning JobStatus = "running"
	JobDone    JobStatus = "done"
	JobFailed  JobStatus = "failed"
)

// CreateJobRequest is the POST /v1/jobs request body: one PSF input and
// one HDF5 output path.
type CreateJobRequest struct {
	InputPath  string `json:"input_path"`
	OutputPath string `json:"output_path"`
}

// CreateJobResponse is returned immediately after a job is enqueued.
type CreateJobResponse struct {
	ID string `json:"id"`
}

// JobSummary mirrors the CLI's decode summary: sweep and trace counts,
// point count, and the value-region mode resolved for the file.
type JobSummary struct {
	Sweeps    int    `json:"sweeps"`
	Traces    int    `json:"traces"`
	NumPoints uint32 `json:"num_points"`
	ValueMode string `json:"value_mode"`
}

// JobResponse is the GET /v1/jobs/:id response.
type JobResponse struct {
	ID         string      `json:"id"`
	InputPath  string      `json:"input_path"`
	OutputPath string      `json:"output_path"`
	Status     JobStatus   `json:"status"`
	Error      string      `json:"error,omitempty"`
	Summary    *JobSummary `json:"summary,omitempty"`
}
