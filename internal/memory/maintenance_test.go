package memory

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/TheFrenchOak/total-reclaw/internal/models"
)

func newTestMaintenance(t *testing.T, svc *Service, markdownDirs []string, memoryFile string) *Maintenance {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewMaintenance(svc, markdownDirs, memoryFile, time.Minute, logger)
}

func TestBootstrapPrunesExpired(t *testing.T) {
	svc, clk := newTestService(t, &fakeEmbedder{})
	m := newTestMaintenance(t, svc, nil, "")

	if _, err := svc.Store("session note", 0.7, "", "", "", "", models.DecaySession); err != nil {
		t.Fatalf("Store: %v", err)
	}
	clk.Advance(models.TTLSeconds[models.DecaySession] + 100)

	if err := m.Bootstrap(7); err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}

	stats, err := svc.Stats()
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Total != 0 {
		t.Fatalf("Total after bootstrap prune = %d, want 0", stats.Total)
	}
}

func TestBootstrapIngestsMemoryFile(t *testing.T) {
	svc, _ := newTestService(t, &fakeEmbedder{})

	memoryFile := filepath.Join(t.TempDir(), "MEMORY.md")
	if err := os.WriteFile(memoryFile, []byte("I prefer tabs over spaces in this repo\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	m := newTestMaintenance(t, svc, nil, memoryFile)
	if err := m.Bootstrap(7); err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}

	stats, err := svc.Stats()
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Total != 1 {
		t.Fatalf("Total after bootstrap ingest = %d, want 1", stats.Total)
	}
}

func TestAutoRecallShortPromptReturnsEmpty(t *testing.T) {
	svc, _ := newTestService(t, &fakeEmbedder{})
	m := newTestMaintenance(t, svc, nil, "")

	out, err := m.AutoRecall("hi")
	if err != nil {
		t.Fatalf("AutoRecall: %v", err)
	}
	if out != "" {
		t.Fatalf("AutoRecall(short prompt) = %q, want empty", out)
	}
}

func TestAutoRecallWrapsRelevantMemories(t *testing.T) {
	svc, _ := newTestService(t, &fakeEmbedder{})
	m := newTestMaintenance(t, svc, nil, "")

	if _, err := svc.Store("the deployment pipeline uses GitHub Actions", 0.7, "", "", "", "", ""); err != nil {
		t.Fatalf("Store: %v", err)
	}

	out, err := m.AutoRecall("tell me about the deployment pipeline")
	if err != nil {
		t.Fatalf("AutoRecall: %v", err)
	}
	if out == "" {
		t.Fatal("expected a non-empty relevant-memories block")
	}
	if !contains(out, "<relevant-memories>") || !contains(out, "</relevant-memories>") {
		t.Fatalf("got %q, missing relevant-memories tags", out)
	}
}

func contains(s, substr string) bool {
	return len(s) >= len(substr) && (func() bool {
		for i := 0; i+len(substr) <= len(s); i++ {
			if s[i:i+len(substr)] == substr {
				return true
			}
		}
		return false
	})()
}

func TestAutoCaptureStoresEligibleStatements(t *testing.T) {
	svc, _ := newTestService(t, &fakeEmbedder{})
	m := newTestMaintenance(t, svc, nil, "")

	messages := []string{
		"My editor is neovim",
		"the sky was a calm shade of blue", // not eligible: no trigger
		"I prefer dark mode for the terminal",
	}
	m.AutoCapture(messages)

	stats, err := svc.Stats()
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Total != 2 {
		t.Fatalf("Total after AutoCapture = %d, want 2", stats.Total)
	}
}

func TestAutoCaptureCapsAtThreePerTurn(t *testing.T) {
	svc, _ := newTestService(t, &fakeEmbedder{})
	m := newTestMaintenance(t, svc, nil, "")

	messages := []string{
		"My editor is vim",
		"My shell is bash",
		"My terminal is kitty",
		"My font is monospace",
		"My theme is dark",
	}
	m.AutoCapture(messages)

	stats, err := svc.Stats()
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Total > 3 {
		t.Fatalf("Total after AutoCapture = %d, want at most 3", stats.Total)
	}
}
