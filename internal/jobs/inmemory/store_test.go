package inmemory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/varunidealabs/cash-flow-analyzer/internal/jobs"
)

func TestStore_SaveAndGet(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	if err := s.SaveJob(ctx, &jobs.AnalyzeStatementJob{}); err == nil {
		t.Error("expected error for job without ID")
	}

	job := &jobs.AnalyzeStatementJob{JobID: "a", DocumentName: "jan.pdf", Data: []byte("%PDF-"), Status: jobs.JobStatusPending}
	if err := s.SaveJob(ctx, job); err != nil {
		t.Fatalf("SaveJob() error = %v", err)
	}

	// The store keeps a copy.
	job.Status = jobs.JobStatusRunning

	got, err := s.GetJob(ctx, "a")
	if err != nil {
		t.Fatalf("GetJob() error = %v", err)
	}
	if got.Status != jobs.JobStatusPending || got.Data != nil {
		t.Errorf("GetJob() = %+v", got)
	}

	if _, err := s.GetJob(ctx, "missing"); !errors.Is(err, jobs.ErrJobNotFound) {
		t.Errorf("GetJob(missing) error = %v", err)
	}
}

func TestStore_ListJobs(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, j := range []jobs.AnalyzeStatementJob{
		{JobID: "1", DocumentName: "jan.pdf", Status: jobs.JobStatusCompleted},
		{JobID: "2", DocumentName: "feb.pdf", Status: jobs.JobStatusFailed},
		{JobID: "3", DocumentName: "jan.pdf", Status: jobs.JobStatusPending},
	} {
		j.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		if err := s.SaveJob(ctx, &j); err != nil {
			t.Fatal(err)
		}
	}

	tests := []struct {
		name   string
		filter jobs.JobFilter
		want   []string
	}{
		{"all newest first", jobs.JobFilter{}, []string{"3", "2", "1"}},
		{"by document", jobs.JobFilter{DocumentName: "jan.pdf"}, []string{"3", "1"}},
		{"by status", jobs.JobFilter{Status: jobs.JobStatusFailed}, []string{"2"}},
		{"limit", jobs.JobFilter{Limit: 1}, []string{"3"}},
		{"offset", jobs.JobFilter{Offset: 1, Limit: 1}, []string{"2"}},
		{"offset past end", jobs.JobFilter{Offset: 5}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.ListJobs(ctx, tt.filter)
			if err != nil {
				t.Fatalf("ListJobs() error = %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("ListJobs() returned %d jobs, want %d", len(got), len(tt.want))
			}
			for i, id := range tt.want {
				if got[i].JobID != id {
					t.Errorf("job[%d] = %s, want %s", i, got[i].JobID, id)
				}
			}
		})
	}
}
