// Package models defines the data shapes the memory engine persists and
// returns: the lexical MemoryEntry record, its vector-store projection, and
// the checkpoint context blob. A row-decoder in internal/store turns raw
// SQL rows into MemoryEntry values; no raw column map ever escapes that
// boundary.
package models

// Category classifies the kind of statement a memory entry captures.
type Category string

const (
	CategoryPreference Category = "preference"
	CategoryDecision   Category = "decision"
	CategoryEntity     Category = "entity"
	CategoryFact       Category = "fact"
	CategoryOther      Category = "other"
)

var ValidCategories = map[Category]bool{
	CategoryPreference: true,
	CategoryDecision:   true,
	CategoryEntity:     true,
	CategoryFact:       true,
	CategoryOther:      true,
}

func (c Category) IsValid() bool { return ValidCategories[c] }

// DecayClass is the lifecycle bucket controlling TTL and refresh policy.
type DecayClass string

const (
	DecayPermanent  DecayClass = "permanent"
	DecayStable     DecayClass = "stable"
	DecayActive     DecayClass = "active"
	DecaySession    DecayClass = "session"
	DecayCheckpoint DecayClass = "checkpoint"
)

var ValidDecayClasses = map[DecayClass]bool{
	DecayPermanent:  true,
	DecayStable:     true,
	DecayActive:     true,
	DecaySession:    true,
	DecayCheckpoint: true,
}

func (c DecayClass) IsValid() bool { return ValidDecayClasses[c] }

// TTLSeconds holds the default time-to-live, in seconds, per decay class.
// Permanent has no entry; callers must special-case it as "never expires".
var TTLSeconds = map[DecayClass]int64{
	DecayStable:     90 * 86400,
	DecayActive:     14 * 86400,
	DecaySession:    24 * 3600,
	DecayCheckpoint: 4 * 3600,
}

// MemoryEntry is the canonical lexical record. expiresAt is nil iff
// DecayClass == DecayPermanent.
type MemoryEntry struct {
	ID              string
	Text            string
	Category        Category
	Importance      float64
	Entity          string
	Key             string
	Value           string
	Source          string
	CreatedAt       int64
	DecayClass      DecayClass
	ExpiresAt       *int64
	LastConfirmedAt int64
	Confidence      float64
	SearchTags      string

	// Backend is set by the hybrid fuser/facade to report provenance; it is
	// not a persisted column.
	Backend string
	// Score is set by search/lookup callers; not a persisted column.
	Score float64
}

// Backend tags used to report provenance on recall results.
const (
	BackendLexical = "sqlite"
	BackendVector  = "vector"
)

// VectorRecord is the vector-store projection of a MemoryEntry: a fixed-
// dimensional embedding plus enough metadata to render a recall result
// without a round trip to the lexical store. Entity/Key/Value are not
// carried — see DESIGN.md's resolution of spec.md's open question on
// vector-only hits.
type VectorRecord struct {
	ID         string
	Text       string
	Vector     []float32
	Importance float64
	Category   Category
	CreatedAt  int64
}

// CheckpointContext is the JSON-encoded payload stored in a checkpoint
// record's Text field.
type CheckpointContext struct {
	Intent          string   `json:"intent"`
	State           string   `json:"state"`
	ExpectedOutcome string   `json:"expectedOutcome,omitempty"`
	WorkingFiles    []string `json:"workingFiles,omitempty"`
	SavedAt         int64    `json:"savedAt"`
}

// StatsBreakdown groups entry counts by decay class.
type StatsBreakdown struct {
	Total        int
	ByDecayClass map[DecayClass]int
}
