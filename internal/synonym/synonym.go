// Package synonym expands a memory's text/entity/key/value into a flat,
// space-joined tag string used to widen lexical recall without touching
// the FTS ranking of the original text. Module-scope static table, never
// mutated at runtime, per spec.md's "shared static tables" design note.
package synonym

import (
	"sort"
	"strings"
)

// table maps a lowercased term to its synonym set. ~30 entries, 2-5
// synonyms each, covering the developer/agent-memory vocabulary this
// engine is meant to recall over.
var table = map[string][]string{
	"typescript":   {"ts", "javascript", "js", "node"},
	"javascript":   {"js", "ecmascript", "node", "typescript"},
	"python":       {"py", "python3", "pip"},
	"golang":       {"go", "gopher"},
	"go":           {"golang", "gopher"},
	"database":     {"db", "datastore", "storage"},
	"postgres":     {"postgresql", "psql", "pg"},
	"sqlite":       {"sqlite3", "embedded db"},
	"api":          {"endpoint", "interface", "rest"},
	"bug":          {"defect", "issue", "gotcha", "problem"},
	"fix":          {"patch", "resolve", "repair"},
	"editor":       {"ide", "vscode", "vim", "neovim"},
	"prefer":       {"like", "favor", "favour", "choose"},
	"decision":     {"choice", "decided", "rationale"},
	"architecture": {"design", "structure", "layout"},
	"deploy":       {"ship", "release", "publish"},
	"test":         {"spec", "unit test", "verify"},
	"error":        {"exception", "failure", "crash"},
	"config":       {"configuration", "settings", "options"},
	"auth":         {"authentication", "login", "credentials"},
	"branch":       {"feature branch", "git branch"},
	"sprint":       {"iteration", "cycle", "milestone"},
	"todo":         {"task", "backlog", "pending"},
	"checkpoint":   {"savepoint", "snapshot", "resume point"},
	"email":        {"e-mail", "mail address"},
	"phone":        {"telephone", "mobile", "cell"},
	"birthday":     {"date of birth", "dob", "born"},
	"key":          {"shortcut", "identifier", "secret"},
	"cache":        {"caching", "memoize"},
	"docker":       {"container", "containerize"},
	"frontend":     {"client", "ui", "front-end"},
	"backend":      {"server", "service", "back-end"},
}

// sortedTerms fixes iteration order over table so Expand's output is
// deterministic across runs, not just within one (Go map iteration order
// is randomized per-process).
var sortedTerms = func() []string {
	terms := make([]string, 0, len(table))
	for term := range table {
		terms = append(terms, term)
	}
	sort.Strings(terms)
	return terms
}()

// Expand returns a space-joined, deduplicated set of synonyms for every
// table term that appears as a substring of the lowercased concatenation
// of text|entity|key|value. Deterministic, idempotent, empty-safe.
func Expand(text, entity, key, value string) string {
	haystack := strings.ToLower(strings.Join([]string{text, entity, key, value}, "|"))
	if haystack == "|||" {
		return ""
	}

	seen := make(map[string]struct{})
	var ordered []string
	for _, term := range sortedTerms {
		if !strings.Contains(haystack, term) {
			continue
		}
		for _, syn := range table[term] {
			if _, ok := seen[syn]; ok {
				continue
			}
			seen[syn] = struct{}{}
			ordered = append(ordered, syn)
		}
	}
	return strings.Join(ordered, " ")
}
