package memory

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/TheFrenchOak/total-reclaw/internal/extract"
	"github.com/TheFrenchOak/total-reclaw/internal/ingest"
)

// Maintenance runs the scheduled hard-prune/soft-decay pass and the
// markdown-ingestion bootstrap described in spec.md §4.8's maintenance
// loop. Grounded on the donor's internal/memory/lifecycle.go LifecycleManager
// (renamed and stripped of the donor's TTL-tier-promotion machinery, which
// has no spec.md operation to serve — see DESIGN.md).
type Maintenance struct {
	svc          *Service
	markdownDirs []string
	memoryFile   string
	interval     time.Duration
	logger       *slog.Logger
}

func NewMaintenance(svc *Service, markdownDirs []string, memoryFile string, interval time.Duration, logger *slog.Logger) *Maintenance {
	return &Maintenance{
		svc:          svc,
		markdownDirs: markdownDirs,
		memoryFile:   memoryFile,
		interval:     interval,
		logger:       logger,
	}
}

// Bootstrap runs once at startup: prune expired, mirror deletions, then
// ingest markdown for the last N days plus the designated memory file.
func (m *Maintenance) Bootstrap(days int) error {
	if _, err := m.svc.Prune(PruneHard); err != nil {
		return fmt.Errorf("bootstrap prune: %w", err)
	}

	count, err := ingest.IngestRecent(m.markdownDirs, m.memoryFile, days, func(c ingest.Candidate) error {
		_, err := m.svc.Store(c.Text, c.Importance, c.Category, "", "", "", "")
		return err
	})
	if err != nil {
		m.logger.Warn("markdown bootstrap ingest failed", "error", err)
	} else if count > 0 {
		m.logger.Info("bootstrap ingested markdown statements", "count", count)
	}
	return nil
}

// Run blocks, ticking the maintenance pass every m.interval until ctx is done.
func (m *Maintenance) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.tick()
		}
	}
}

func (m *Maintenance) tick() {
	result, err := m.svc.Prune(PruneBoth)
	if err != nil {
		m.logger.Error("maintenance prune failed", "error", err)
		return
	}
	if result.Expired > 0 || result.Decayed > 0 {
		m.logger.Info("maintenance tick", "expired", result.Expired, "decayed", result.Decayed)
	}
}

// relevantMemoriesTag wraps the auto-recall prepend-context block.
const relevantMemoriesTag = "relevant-memories"

// AutoRecall implements spec.md §4.8's pre-turn hook: for prompts of
// length >=5, fuse lexical and vector top-3 to 5 and return a tagged
// prepend-context block, or empty string when there is nothing to prepend.
func (m *Maintenance) AutoRecall(prompt string) (string, error) {
	if len(strings.TrimSpace(prompt)) < 5 {
		return "", nil
	}

	results, err := m.svc.RecallFused(prompt, 3, 3, 5, "")
	if err != nil {
		return "", fmt.Errorf("auto-recall: %w", err)
	}
	if len(results) == 0 {
		return "", nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "<%s>\n", relevantMemoriesTag)
	for _, r := range results {
		fmt.Fprintf(&b, "- %s\n", r.Text)
	}
	fmt.Fprintf(&b, "</%s>\n", relevantMemoriesTag)
	return b.String(), nil
}

// AutoCapture implements spec.md §4.8's post-turn hook: iterate user
// message text blocks, filter by ShouldCapture, cap at 3 per turn, require
// a non-null entity or key, skip duplicates, and write. All failures are
// logged and swallowed.
func (m *Maintenance) AutoCapture(messages []string) {
	captured := 0
	for _, raw := range messages {
		if captured >= 3 {
			return
		}
		text := extract.StripPrivate(raw)
		if text == "" || !extract.ShouldCapture(text) {
			continue
		}

		category := extract.DetectCategory(text)
		triple, ok := extract.Extract(text, category)
		if !ok || (triple.Entity == "" && triple.Key == "") {
			continue
		}

		outcome, err := m.svc.Store(text, 0, category, triple.Entity, triple.Key, triple.Value, "")
		if err != nil {
			m.logger.Warn("auto-capture store failed", "error", err)
			continue
		}
		if outcome.Action == "created" {
			captured++
		}
	}
}
