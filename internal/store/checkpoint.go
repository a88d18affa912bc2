package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/TheFrenchOak/total-reclaw/internal/models"
)

// SaveCheckpoint implements spec.md §4.5's checkpoint protocol: persists a
// record with entity="system", key="checkpoint:<now>", decayClass=checkpoint,
// whose text is the JSON-encoded context blob. Returns the entry's id.
func (s *EntryStore) SaveCheckpoint(ctx models.CheckpointContext) (string, error) {
	now := s.clock.Now()
	ctx.SavedAt = now

	blob, err := json.Marshal(ctx)
	if err != nil {
		return "", fmt.Errorf("marshal checkpoint context: %w", err)
	}

	return s.Store(Candidate{
		Text:       string(blob),
		Category:   models.CategoryOther,
		Entity:     "system",
		Key:        fmt.Sprintf("checkpoint:%d", now),
		Source:     "checkpoint",
		DecayClass: models.DecayCheckpoint,
	})
}

// RestoreCheckpoint implements spec.md §4.5's checkpoint protocol:
// selects the single most recent non-expired checkpoint record and returns
// its parsed context. A malformed blob is treated as missing.
func (s *EntryStore) RestoreCheckpoint() (*models.CheckpointContext, error) {
	now := s.clock.Now()
	row := s.db.QueryRow(fmt.Sprintf(`
		SELECT %s FROM memories
		WHERE decay_class = 'checkpoint' AND (expires_at IS NULL OR expires_at > ?)
		ORDER BY created_at DESC LIMIT 1
	`, entryColumns), now)

	entry, err := s.scanOne(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select checkpoint: %w", err)
	}

	var ctx models.CheckpointContext
	if err := json.Unmarshal([]byte(entry.Text), &ctx); err != nil {
		return nil, nil // malformed blob is treated as missing
	}
	return &ctx, nil
}
