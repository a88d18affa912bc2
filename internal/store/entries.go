package store

import (
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/TheFrenchOak/total-reclaw/internal/clock"
	"github.com/TheFrenchOak/total-reclaw/internal/decay"
	"github.com/TheFrenchOak/total-reclaw/internal/models"
	"github.com/TheFrenchOak/total-reclaw/internal/synonym"
	"github.com/TheFrenchOak/total-reclaw/internal/textutil"
)

// entryColumns is the canonical column list for all SELECT queries; order
// must match scanOne/scanMany.
const entryColumns = `id, text, category, importance, entity, key, value, source,
	created_at, decay_class, expires_at, last_confirmed_at, confidence, search_tags`

// freshnessWindow is W from spec.md §4.5's freshness formula.
const freshnessWindow = 7 * 86400

// EntryStore handles models.MemoryEntry persistence on SQLite.
type EntryStore struct {
	db    *DB
	clock clock.Clock
}

func NewEntryStore(db *DB, c clock.Clock) *EntryStore {
	return &EntryStore{db: db, clock: c}
}

// Candidate is the caller-supplied input to Store; fields left zero are
// derived (decay class, expiry, importance 0.7, category other). Confidence
// always starts at 1.0 and search tags are always computed by Store.
type Candidate struct {
	Text       string
	Category   models.Category
	Importance float64
	Entity     string
	Key        string
	Value      string
	Source     string
	DecayClass models.DecayClass // optional override
	ExpiresAt  *int64            // optional override
}

// Store implements spec.md §4.5 `store(candidate)`: upsert-by-(entity,key)
// when both are set, else insert a fresh row. Returns the entry's id.
func (s *EntryStore) Store(c Candidate) (string, error) {
	now := s.clock.Now()

	decayClass := c.DecayClass
	if decayClass == "" {
		decayClass = decay.Classify(c.Entity, c.Key, c.Value, c.Text)
	}
	expiresAt := c.ExpiresAt
	if expiresAt == nil {
		expiresAt = decay.CalculateExpiry(decayClass, now)
	}
	importance := c.Importance
	if importance == 0 {
		importance = 0.7
	}
	category := c.Category
	if category == "" {
		category = models.CategoryOther
	}
	searchTags := synonym.Expand(c.Text, c.Entity, c.Key, c.Value)

	if c.Entity != "" && c.Key != "" {
		existingID, err := s.findByEntityKey(c.Entity, c.Key)
		if err != nil {
			return "", err
		}
		if existingID != "" {
			_, err := s.db.Exec(`
				UPDATE memories SET
					text = ?, value = ?, importance = ?, category = ?, source = ?,
					created_at = ?, decay_class = ?, expires_at = ?,
					last_confirmed_at = ?, confidence = 1.0, search_tags = ?
				WHERE id = ?
			`, c.Text, c.Value, importance, string(category), c.Source,
				now, string(decayClass), expiresAt, now, searchTags, existingID)
			if err != nil {
				return "", fmt.Errorf("upsert memory: %w", err)
			}
			return existingID, nil
		}
	}

	id := uuid.NewString()
	_, err := s.db.Exec(`
		INSERT INTO memories (
			id, text, category, importance, entity, key, value, source,
			created_at, decay_class, expires_at, last_confirmed_at, confidence, search_tags
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1.0, ?)
	`, id, c.Text, string(category), importance, nullIfEmpty(c.Entity), nullIfEmpty(c.Key),
		nullIfEmpty(c.Value), nullIfEmpty(c.Source), now, string(decayClass), expiresAt, now, searchTags)
	if err != nil {
		return "", fmt.Errorf("insert memory: %w", err)
	}
	return id, nil
}

func (s *EntryStore) findByEntityKey(entity, key string) (string, error) {
	var id string
	err := s.db.QueryRow(`
		SELECT id FROM memories
		WHERE entity = ? COLLATE NOCASE AND key = ? COLLATE NOCASE
	`, entity, key).Scan(&id)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("find by entity/key: %w", err)
	}
	return id, nil
}

// SearchOptions configures Search.
type SearchOptions struct {
	IncludeExpired bool
}

// Search implements spec.md §4.5 `search`: compile the query, match
// against non-expired rows (unless IncludeExpired), fetch up to 2*limit
// candidates by raw FTS rank, compute the composite score, sort, truncate,
// and access-refresh the returned ids.
func (s *EntryStore) Search(query string, limit int, opts SearchOptions) ([]models.MemoryEntry, error) {
	ftsQuery := textutil.CompileFTSQuery(query)
	if ftsQuery == "" {
		return nil, nil
	}
	now := s.clock.Now()
	fetchLimit := 2 * limit

	q := fmt.Sprintf(`
		SELECT %s, memories_fts.rank AS rank
		FROM memories_fts
		JOIN memories ON memories.rowid = memories_fts.rowid
		WHERE memories_fts MATCH ?
	`, prefixColumns("memories", entryColumns))
	args := []any{ftsQuery}
	if !opts.IncludeExpired {
		q += ` AND (memories.expires_at IS NULL OR memories.expires_at > ?)`
		args = append(args, now)
	}
	q += ` ORDER BY rank LIMIT ?`
	args = append(args, fetchLimit)

	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("fts search: %w", err)
	}
	defer rows.Close()

	type candidate struct {
		entry models.MemoryEntry
		rank  float64
	}
	var candidates []candidate
	minRank, maxRank := 0.0, 0.0
	first := true
	for rows.Next() {
		entry, rank, err := s.scanWithRank(rows)
		if err != nil {
			return nil, err
		}
		if first {
			minRank, maxRank = rank, rank
			first = false
		} else {
			if rank < minRank {
				minRank = rank
			}
			if rank > maxRank {
				maxRank = rank
			}
		}
		candidates = append(candidates, candidate{entry: entry, rank: rank})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate search results: %w", err)
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	rankSpan := maxRank - minRank
	if rankSpan < 1 {
		rankSpan = 1
	}

	for i := range candidates {
		c := &candidates[i]
		bm25 := 1.0
		if maxRank != minRank {
			bm25 = 1 - (c.rank-minRank)/rankSpan
		}
		freshness := freshnessOf(c.entry.ExpiresAt, now)
		c.entry.Score = 0.60*bm25 + 0.25*freshness + 0.15*c.entry.Confidence
		c.entry.Backend = models.BackendLexical
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].entry.Score > candidates[j].entry.Score
	})
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}

	result := make([]models.MemoryEntry, len(candidates))
	ids := make([]string, len(candidates))
	for i, c := range candidates {
		result[i] = c.entry
		ids[i] = c.entry.ID
	}
	if err := s.accessRefresh(ids); err != nil {
		return nil, fmt.Errorf("access refresh: %w", err)
	}
	return result, nil
}

func freshnessOf(expiresAt *int64, now int64) float64 {
	if expiresAt == nil {
		return 1.0
	}
	if *expiresAt <= now {
		return 0.0
	}
	f := float64(*expiresAt-now) / float64(freshnessWindow)
	if f > 1.0 {
		f = 1.0
	}
	return f
}

// Lookup implements spec.md §4.5 `lookup(entity, key?)`.
func (s *EntryStore) Lookup(entity, key string) ([]models.MemoryEntry, error) {
	now := s.clock.Now()
	q := fmt.Sprintf(`SELECT %s FROM memories WHERE entity = ? COLLATE NOCASE AND (expires_at IS NULL OR expires_at > ?)`, entryColumns)
	args := []any{entity, now}
	if key != "" {
		q += ` AND key = ? COLLATE NOCASE`
		args = append(args, key)
	}
	q += ` ORDER BY confidence DESC, created_at DESC`

	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("lookup: %w", err)
	}
	defer rows.Close()

	entries, err := s.scanMany(rows)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(entries))
	for i := range entries {
		entries[i].Score = entries[i].Confidence
		entries[i].Backend = models.BackendLexical
		ids[i] = entries[i].ID
	}
	if err := s.accessRefresh(ids); err != nil {
		return nil, fmt.Errorf("access refresh: %w", err)
	}
	return entries, nil
}

// accessRefresh updates last_confirmed_at=now for the given ids, extending
// expires_at only for decayClass in {stable, active}.
func (s *EntryStore) accessRefresh(ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	now := s.clock.Now()
	placeholders := make([]string, len(ids))
	args := make([]any, 0, len(ids)*3+3)
	args = append(args, now, now+models.TTLSeconds[models.DecayStable], now+models.TTLSeconds[models.DecayActive])
	for i, id := range ids {
		placeholders[i] = "?"
		args = append(args, id)
	}
	q := fmt.Sprintf(`
		UPDATE memories SET
			last_confirmed_at = ?,
			expires_at = CASE decay_class
				WHEN 'stable' THEN ?
				WHEN 'active' THEN ?
				ELSE expires_at
			END
		WHERE id IN (%s)
	`, strings.Join(placeholders, ","))
	_, err := s.db.Exec(q, args...)
	return err
}

// DecayConfidence implements spec.md §4.5 `decayConfidence()`: a pure soft
// update over every non-permanent row with a positive confirm->expiry
// window. Returns the number of rows touched.
func (s *EntryStore) DecayConfidence() (int, error) {
	now := s.clock.Now()
	res, err := s.db.Exec(`
		UPDATE memories SET confidence = MAX(0.05,
			1.0 - CAST(? - last_confirmed_at AS REAL) / CAST(expires_at - last_confirmed_at AS REAL)
		)
		WHERE decay_class != 'permanent'
		  AND expires_at IS NOT NULL
		  AND expires_at > last_confirmed_at
	`, now)
	if err != nil {
		return 0, fmt.Errorf("decay confidence: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// PruneExpired implements spec.md §4.5 `pruneExpired()`: deletes every row
// whose expires_at has passed and returns the deleted ids so the vector
// store can mirror the deletion.
func (s *EntryStore) PruneExpired() (int, []string, error) {
	now := s.clock.Now()
	rows, err := s.db.Query(`SELECT id FROM memories WHERE expires_at IS NOT NULL AND expires_at < ?`, now)
	if err != nil {
		return 0, nil, fmt.Errorf("select expired: %w", err)
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return 0, nil, fmt.Errorf("scan expired id: %w", err)
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, nil, err
	}
	if len(ids) == 0 {
		return 0, nil, nil
	}
	res, err := s.db.Exec(`DELETE FROM memories WHERE expires_at IS NOT NULL AND expires_at < ?`, now)
	if err != nil {
		return 0, nil, fmt.Errorf("delete expired: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), ids, nil
}

// ConfirmFact implements spec.md §4.5 `confirmFact(id)`.
func (s *EntryStore) ConfirmFact(id string) (bool, error) {
	entry, err := s.GetByID(id)
	if err != nil {
		return false, err
	}
	if entry == nil {
		return false, nil
	}
	now := s.clock.Now()
	expiresAt := decay.CalculateExpiry(entry.DecayClass, now)
	_, err = s.db.Exec(`
		UPDATE memories SET confidence = 1.0, last_confirmed_at = ?, expires_at = ?
		WHERE id = ?
	`, now, expiresAt, id)
	if err != nil {
		return false, fmt.Errorf("confirm fact: %w", err)
	}
	return true, nil
}

// GetByID returns a single entry, or nil if it does not exist.
func (s *EntryStore) GetByID(id string) (*models.MemoryEntry, error) {
	row := s.db.QueryRow(fmt.Sprintf(`SELECT %s FROM memories WHERE id = ?`, entryColumns), id)
	entry, err := s.scanOne(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// Delete implements spec.md §4.5 `delete(id)`, returning whether a row existed.
func (s *EntryStore) Delete(id string) (bool, error) {
	res, err := s.db.Exec(`DELETE FROM memories WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete memory: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// Count implements spec.md §4.5 `count()`.
func (s *EntryStore) Count() (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM memories`).Scan(&n)
	return n, err
}

// CountExpired implements spec.md §4.5 `countExpired()`.
func (s *EntryStore) CountExpired() (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM memories WHERE expires_at IS NOT NULL AND expires_at < ?`, s.clock.Now()).Scan(&n)
	return n, err
}

// StatsBreakdown implements spec.md §4.5 `statsBreakdown()`.
func (s *EntryStore) StatsBreakdown() (models.StatsBreakdown, error) {
	out := models.StatsBreakdown{ByDecayClass: make(map[models.DecayClass]int)}
	rows, err := s.db.Query(`SELECT decay_class, COUNT(*) FROM memories GROUP BY decay_class`)
	if err != nil {
		return out, fmt.Errorf("stats breakdown: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var class string
		var count int
		if err := rows.Scan(&class, &count); err != nil {
			return out, fmt.Errorf("scan stats row: %w", err)
		}
		out.ByDecayClass[models.DecayClass(class)] = count
		out.Total += count
	}
	return out, rows.Err()
}

// HasDuplicate implements spec.md §4.5 `hasDuplicate(text)`: an exact
// case-sensitive text match.
func (s *EntryStore) HasDuplicate(text string) (bool, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM memories WHERE text = ?`, text).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("has duplicate: %w", err)
	}
	return n > 0, nil
}

// BackfillDecayClasses implements spec.md §4.5 `backfillDecayClasses()`:
// re-runs the classifier on every row whose class is stable or whose
// expires_at is null and not permanent, in a single transaction, returning
// a by-class count of updates.
func (s *EntryStore) BackfillDecayClasses() (map[models.DecayClass]int, error) {
	counts := make(map[models.DecayClass]int)

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin backfill tx: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.Query(fmt.Sprintf(`
		SELECT %s FROM memories
		WHERE decay_class = 'stable' OR (expires_at IS NULL AND decay_class != 'permanent')
	`, entryColumns))
	if err != nil {
		return nil, fmt.Errorf("select backfill candidates: %w", err)
	}
	entries, err := s.scanMany(rows)
	rows.Close()
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	for _, e := range entries {
		newClass := decay.Classify(e.Entity, e.Key, e.Value, e.Text)
		if newClass == e.DecayClass {
			continue
		}
		newExpiry := decay.CalculateExpiry(newClass, now)
		if _, err := tx.Exec(`UPDATE memories SET decay_class = ?, expires_at = ? WHERE id = ?`,
			string(newClass), newExpiry, e.ID); err != nil {
			return nil, fmt.Errorf("backfill update: %w", err)
		}
		counts[newClass]++
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit backfill tx: %w", err)
	}
	return counts, nil
}

func (s *EntryStore) scanOne(row *sql.Row) (*models.MemoryEntry, error) {
	var e models.MemoryEntry
	var entity, key, value, source sql.NullString
	var decayClass string
	var expiresAt sql.NullInt64

	err := row.Scan(&e.ID, &e.Text, &e.Category, &e.Importance, &entity, &key, &value, &source,
		&e.CreatedAt, &decayClass, &expiresAt, &e.LastConfirmedAt, &e.Confidence, &e.SearchTags)
	if err != nil {
		return nil, err
	}
	populateNullables(&e, entity, key, value, source, decayClass, expiresAt)
	return &e, nil
}

func (s *EntryStore) scanMany(rows *sql.Rows) ([]models.MemoryEntry, error) {
	var out []models.MemoryEntry
	for rows.Next() {
		var e models.MemoryEntry
		var entity, key, value, source sql.NullString
		var decayClass string
		var expiresAt sql.NullInt64

		if err := rows.Scan(&e.ID, &e.Text, &e.Category, &e.Importance, &entity, &key, &value, &source,
			&e.CreatedAt, &decayClass, &expiresAt, &e.LastConfirmedAt, &e.Confidence, &e.SearchTags); err != nil {
			return nil, fmt.Errorf("scan memory: %w", err)
		}
		populateNullables(&e, entity, key, value, source, decayClass, expiresAt)
		out = append(out, e)
	}
	return out, rows.Err()
}

// scanWithRank scans a row that additionally carries the FTS rank column.
func (s *EntryStore) scanWithRank(rows *sql.Rows) (models.MemoryEntry, float64, error) {
	var e models.MemoryEntry
	var entity, key, value, source sql.NullString
	var decayClass string
	var expiresAt sql.NullInt64
	var rank float64

	if err := rows.Scan(&e.ID, &e.Text, &e.Category, &e.Importance, &entity, &key, &value, &source,
		&e.CreatedAt, &decayClass, &expiresAt, &e.LastConfirmedAt, &e.Confidence, &e.SearchTags, &rank); err != nil {
		return e, 0, fmt.Errorf("scan memory with rank: %w", err)
	}
	populateNullables(&e, entity, key, value, source, decayClass, expiresAt)
	return e, rank, nil
}

func populateNullables(e *models.MemoryEntry, entity, key, value, source sql.NullString, decayClass string, expiresAt sql.NullInt64) {
	e.Entity = entity.String
	e.Key = key.String
	e.Value = value.String
	e.Source = source.String
	e.DecayClass = models.DecayClass(decayClass)
	if expiresAt.Valid {
		v := expiresAt.Int64
		e.ExpiresAt = &v
	}
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// prefixColumns rewrites a flat column list so each column is qualified by
// table, needed because entryColumns is shared with the plain (unqualified)
// SELECTs elsewhere in this package.
func prefixColumns(table, columns string) string {
	parts := strings.Split(columns, ",")
	out := make([]string, len(parts))
	for i, p := range parts {
		out[i] = table + "." + strings.TrimSpace(p)
	}
	return strings.Join(out, ", ")
}
