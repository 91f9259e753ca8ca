package components

import (
	"errors"
	"strings"
	"testing"

	"github.com/kerbaras/mangareader/pkg/services"
)

func chapterProgress(chapter, status string, current, total int) services.DownloadProgress {
	return services.DownloadProgress{
		MangaID:       "manga-1",
		ChapterID:     "ch-" + chapter,
		ChapterNumber: chapter,
		Status:        status,
		CurrentPage:   current,
		TotalPages:    total,
	}
}

func TestProgressTrackerLifecycle(t *testing.T) {
	tracker := NewProgressTracker(80)
	if tracker.HasActive() {
		t.Error("Expected no active downloads initially")
	}

	tracker.Update(chapterProgress("1", services.StatusDownloading, 5, 10))
	if !tracker.HasActive() {
		t.Error("Expected tracker to have active downloads")
	}

	tracker.Update(chapterProgress("1", services.StatusProcessing, 10, 10))
	if len(tracker.downloads) != 1 {
		t.Errorf("Expected updates of one chapter to share an entry, got %d", len(tracker.downloads))
	}

	tracker.Update(chapterProgress("1", services.StatusComplete, 10, 10))
	if tracker.HasActive() || len(tracker.order) != 0 {
		t.Error("Expected completed download to be removed")
	}
}

func TestProgressTrackerDropsSkipped(t *testing.T) {
	tracker := NewProgressTracker(80)
	tracker.Update(chapterProgress("1", services.StatusSkipped, 0, 0))

	if tracker.HasActive() {
		t.Error("Expected skipped chapters not to be tracked")
	}
}

func TestProgressTrackerKeepsFailures(t *testing.T) {
	tracker := NewProgressTracker(80)

	failed := chapterProgress("1", services.StatusError, 0, 10)
	failed.Error = errors.New("download failed")
	tracker.Update(failed)
	tracker.Update(chapterProgress("2", services.StatusDownloading, 1, 10))

	if tracker.Failed() != 1 {
		t.Errorf("Expected 1 failed download, got %d", tracker.Failed())
	}

	view := tracker.View()
	for _, want := range []string{"1 active, 1 failed", "Error: download failed"} {
		if !strings.Contains(view, want) {
			t.Errorf("Expected %q in view, got:\n%s", want, view)
		}
	}

	tracker.Update(chapterProgress("2", services.StatusComplete, 10, 10))
	if tracker.HasActive() {
		t.Error("Expected a failure alone not to count as active")
	}

	tracker.Clear()
	if tracker.View() != "" {
		t.Error("Expected empty view after clear")
	}
}

func TestProgressTrackerViewOrder(t *testing.T) {
	tracker := NewProgressTracker(80)
	for _, chapter := range []string{"3", "1", "2"} {
		tracker.Update(chapterProgress(chapter, services.StatusDownloading, 10, 20))
	}

	view := tracker.View()
	first := strings.Index(view, "Chapter 3")
	second := strings.Index(view, "Chapter 1")
	third := strings.Index(view, "Chapter 2")
	if first < 0 || second < first || third < second {
		t.Errorf("Expected chapters in arrival order, got:\n%s", view)
	}
	if !strings.Contains(view, "10/20 pages") {
		t.Error("Expected page progress in view")
	}
}

func TestRenderProgressBar(t *testing.T) {
	tests := []struct {
		name                  string
		current, total, width int
		wantFilled, wantEmpty int
	}{
		{"half", 50, 100, 20, 10, 10},
		{"full", 100, 100, 20, 20, 0},
		{"overflow", 150, 100, 10, 10, 0},
		{"quarter", 25, 100, 40, 10, 30},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bar := SimpleProgress(tt.current, tt.total, tt.width)
			if got := strings.Count(bar, "█"); got != tt.wantFilled {
				t.Errorf("filled = %d, want %d", got, tt.wantFilled)
			}
			if got := strings.Count(bar, "░"); got != tt.wantEmpty {
				t.Errorf("empty = %d, want %d", got, tt.wantEmpty)
			}
		})
	}
}

func TestRenderProgressBarDegenerate(t *testing.T) {
	if bar := renderProgressBar(0, 0, 20); bar != "" {
		t.Errorf("Expected empty string for zero total, got: %s", bar)
	}
	if bar := renderProgressBar(1, 2, -3); bar != "" {
		t.Errorf("Expected empty bar for a negative width, got: %s", bar)
	}
}
