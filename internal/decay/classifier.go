// Package decay implements the pure classify-and-expire rules that govern
// how long a memory entry survives without reinforcement: a decay class
// derived from its entity/key/value/text, and a TTL-driven expiry computed
// from that class. Modeled on the donor's lifecycle manager (which ties
// TTL to a promotion/expiry pass) and documented the way
// other_examples/lazypower-continuity__decay.go documents its own decay
// algorithm — a short prose block above the code, not a wall of comments
// per rule.
package decay

import (
	"regexp"
	"strings"

	"github.com/TheFrenchOak/total-reclaw/internal/models"
)

// permanentKeyMarkers are substrings of key that force DecayPermanent.
var permanentKeyMarkers = []string{
	"birthday", "born", "email", "phone", "name", "real_name", "full_name",
	"api_key", "architecture", "language", "location", "stack",
}

var permanentTextRe = regexp.MustCompile(`(?i)born on|birthday is|email is|phone number`)

// ruleTextRe intentionally matches bare "always"/"never" anywhere in the
// text; this is broader than internal/extract's French rule-fr matcher by design — preserved
// as-is per an unresolved over-classification question, see DESIGN.md.
var ruleTextRe = regexp.MustCompile(`(?i)decided|architecture|always use|never use|always\b|never\b`)

var sessionKeyMarkers = []string{"current_file", "temp", "debug", "working_on_right_now"}
var sessionTextRe = regexp.MustCompile(`(?i)currently debugging|right now|this session`)

var activeKeyMarkers = []string{
	"current_task", "active_branch", "sprint", "milestone", "task", "todo",
	"wip", "branch", "blocker",
}
var activeTextRe = regexp.MustCompile(`(?i)working on|need to fix|todo:?|wip`)

func containsAny(haystack string, needles []string) bool {
	lower := strings.ToLower(haystack)
	for _, n := range needles {
		if strings.Contains(lower, n) {
			return true
		}
	}
	return false
}

// Classify applies the first-match-wins rule precedence from spec.md §4.2.
func Classify(entity, key, value, text string) models.DecayClass {
	lowerEntity := strings.ToLower(entity)

	switch {
	case containsAny(key, permanentKeyMarkers):
		return models.DecayPermanent
	case permanentTextRe.MatchString(text):
		return models.DecayPermanent
	case ruleTextRe.MatchString(text):
		return models.DecayPermanent
	case lowerEntity == "decision" || lowerEntity == "convention":
		return models.DecayPermanent
	case containsAny(key, sessionKeyMarkers) || sessionTextRe.MatchString(text):
		return models.DecaySession
	case containsAny(key, activeKeyMarkers) || lowerEntity == "project" || lowerEntity == "sprint" || activeTextRe.MatchString(text):
		return models.DecayActive
	case strings.HasPrefix(strings.ToLower(key), "checkpoint:") || strings.Contains(strings.ToLower(key), "preflight"):
		return models.DecayCheckpoint
	default:
		return models.DecayStable
	}
}

// CalculateExpiry returns now+TTL[class], or nil for permanent ("never").
func CalculateExpiry(class models.DecayClass, now int64) *int64 {
	if class == models.DecayPermanent {
		return nil
	}
	ttl, ok := models.TTLSeconds[class]
	if !ok {
		ttl = models.TTLSeconds[models.DecayStable]
	}
	expiry := now + ttl
	return &expiry
}
