package progress

import (
	"testing"
	"time"
)

func TestTrackerSummaryAggregates(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tr := NewTracker(start)

	tr.RecordSuccess(0, 1000, 2*time.Second, 1)
	tr.RecordSuccess(1, 2000, 3*time.Second, 2)
	tr.RecordFailure(2, 500, 1*time.Second, 3)

	now := start.Add(10 * time.Second)
	summary := tr.Summary(now)

	if summary.ChunksProcessed != 3 {
		t.Errorf("ChunksProcessed = %d, want 3", summary.ChunksProcessed)
	}
	if summary.SuccessfulChunks != 2 {
		t.Errorf("SuccessfulChunks = %d, want 2", summary.SuccessfulChunks)
	}
	if summary.FailedChunks != 1 {
		t.Errorf("FailedChunks = %d, want 1", summary.FailedChunks)
	}
	if summary.TotalEstimatedTokens != 3500 {
		t.Errorf("TotalEstimatedTokens = %d, want 3500", summary.TotalEstimatedTokens)
	}
	// attempts-1 summed: (1-1)+(2-1)+(3-1) = 0+1+2 = 3
	if summary.TotalRetries != 3 {
		t.Errorf("TotalRetries = %d, want 3", summary.TotalRetries)
	}
	if summary.TotalDuration != 10*time.Second {
		t.Errorf("TotalDuration = %v, want 10s", summary.TotalDuration)
	}
	wantRate := 2.0 / 3.0
	if summary.SuccessRate != wantRate {
		t.Errorf("SuccessRate = %v, want %v", summary.SuccessRate, wantRate)
	}
}

func TestTrackerSummaryEmpty(t *testing.T) {
	now := time.Now()
	tr := NewTracker(now)
	summary := tr.Summary(now)
	if summary.ChunksProcessed != 0 || summary.SuccessRate != 0 {
		t.Errorf("empty tracker summary = %+v, want zero values", summary)
	}
}

func TestShouldRetrySmallChunksFirst(t *testing.T) {
	tr := NewTracker(time.Now())
	tr.RecordFailure(0, 50_000, time.Second, 1)
	tr.RecordFailure(1, 500, time.Second, 1)

	if !tr.ShouldRetrySmallChunksFirst(1000) {
		t.Error("expected true: a failed chunk is below the 1000-token threshold")
	}
	if tr.ShouldRetrySmallChunksFirst(100) {
		t.Error("expected false: no failed chunk is below the 100-token threshold")
	}
}

func TestFormatTokens(t *testing.T) {
	cases := []struct {
		n    int
		want string
	}{
		{500, "500"},
		{1000, "1K"},
		{1500, "1.5K"},
		{1_000_000, "1.0M"},
	}
	for _, c := range cases {
		if got := FormatTokens(c.n); got != c.want {
			t.Errorf("FormatTokens(%d) = %q, want %q", c.n, got, c.want)
		}
	}
}

func TestDefaultReporterProgress(t *testing.T) {
	r := Quiet()
	r.Start(3, 9000)
	r.ChunkCompleted(0, time.Second)
	r.ChunkCompleted(1, time.Second)

	completed, total := r.Progress()
	if completed != 2 || total != 3 {
		t.Errorf("Progress() = (%d, %d), want (2, 3)", completed, total)
	}
}
