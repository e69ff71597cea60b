package api

import (
	"errors"
	"testing"
)

func TestJobStoreLifecycle(t *testing.T) {
	s := NewJobStore()
	s.Create("job_1", "/in.psf", "/out.h5")

	got, ok := s.Get("job_1")
	if !ok {
		t.Fatalf("expected job_1 to exist")
	}
	if got.Status != JobQueued {
		t.Fatalf("expected queued status, got %q", got.Status)
	}
	if got.InputPath != "/in.psf" || got.OutputPath != "/out.h5" {
		t.Fatalf("unexpected paths: %+v", got)
	}

	s.MarkRunning("job_1")
	got, _ = s.Get("job_1")
	if got.Status != JobRunning {
		t.Fatalf("expected running status, got %q", got.Status)
	}

	summary := JobSummary{Sweeps: 1, Traces: 2, NumPoints: 5, ValueMode: "flat_sweep"}
	s.MarkDone("job_1", summary)
	got, _ = s.Get("job_1")
	if got.Status != JobDone {
		t.Fatalf("expected done status, got %q", got.Status)
	}
	if got.Summary == nil || *got.Summary != summary {
		t.Fatalf("unexpected summary: %+v", got.Summary)
	}
}

func TestJobStoreMarkFailed(t *testing.T) {
	s := NewJobStore()
	s.Create("job_2", "/in.psf", "/out.h5")
	s.MarkFailed("job_2", errors.New("boom"))

	got, ok := s.Get("job_2")
	if !ok {
		t.Fatalf("expected job_2 to exist")
	}
	if got.Status != JobFailed {
		t.Fatalf("expected failed status, got %q", got.Status)
	}
	if got.Error != "boom" {
		t.Fatalf("unexpected error message: %q", got.Error)
	}
}

func TestJobStoreGetUnknown(t *testing.T) {
	s := NewJobStore()
	if _, ok := s.Get("missing"); ok {
		t.Fatalf("expected unknown job to be absent")
	}
}
