// Package extract turns free natural-language text into an optional
// (entity, key, value) triple and a capture-eligibility/category
// classification. Grounded on the ordered first-match-wins regex matcher
// table style seen in the retrieval pack's oro memory-marker extractor
// (implicitPatterns) and the private-tag/email regex idioms in the
// retrieval pack's engram store — adapted here into a bilingual
// (English/French) statement grammar rather than a marker-line grammar.
package extract

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/TheFrenchOak/total-reclaw/internal/models"
	"github.com/TheFrenchOak/total-reclaw/internal/privacy"
)

// Triple is the result of a successful structured extraction.
type Triple struct {
	Entity string
	Key    string
	Value  string
}

const maxKeyLen = 100

func truncateKey(s string) string {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) <= maxKeyLen {
		return s
	}
	r := []rune(s)
	return string(r[:maxKeyLen])
}

// matcher is one entry in the ordered, first-match-wins extraction table.
type matcher struct {
	name string
	re   *regexp.Regexp
	build func(m []string, text string) Triple
}

var neverRe = regexp.MustCompile(`(?i)never|jamais`)

func ruleValue(text string) string {
	if neverRe.MatchString(text) {
		return "never"
	}
	return "always"
}

// matchers is evaluated in order; the first regex that matches wins.
var matchers = []matcher{
	{
		name: "decision-en",
		re:   regexp.MustCompile(`(?i)\b(?:decided|chose|picked|went with|selected)\s+(?:to\s+)?(.+?)(?:\s+because\s+(.+))?[.!]?$`),
		build: func(m []string, _ string) Triple {
			rationale := strings.TrimSpace(m[2])
			if rationale == "" {
				rationale = "no rationale recorded"
			}
			return Triple{Entity: "decision", Key: truncateKey(m[1]), Value: rationale}
		},
	},
	{
		name: "decision-fr",
		re:   regexp.MustCompile(`(?i)\b(?:décidé|choisi|opté pour)\s+(?:de\s+)?(.+?)(?:\s+parce que\s+(.+))?[.!]?$`),
		build: func(m []string, _ string) Triple {
			rationale := strings.TrimSpace(m[2])
			if rationale == "" {
				rationale = "aucune justification enregistrée"
			}
			return Triple{Entity: "decision", Key: truncateKey(m[1]), Value: rationale}
		},
	},
	{
		name: "choice-en",
		re:   regexp.MustCompile(`(?i)\buse\s+(.+?)\s+over\s+(.+?)[.!]?$`),
		build: func(m []string, _ string) Triple {
			return Triple{Entity: "decision", Key: truncateKey(m[1]), Value: strings.TrimSpace(m[2])}
		},
	},
	{
		name: "choice-fr",
		re:   regexp.MustCompile(`(?i)\butiliser\s+(.+?)\s+plutôt que\s+(.+?)[.!]?$`),
		build: func(m []string, _ string) Triple {
			return Triple{Entity: "decision", Key: truncateKey(m[1]), Value: strings.TrimSpace(m[2])}
		},
	},
	{
		name: "rule-en",
		re:   regexp.MustCompile(`(?i)\b(?:always|never)\s+(.+?)[.!]?$`),
		build: func(m []string, text string) Triple {
			return Triple{Entity: "convention", Key: truncateKey(m[1]), Value: ruleValue(text)}
		},
	},
	{
		name: "rule-fr",
		re:   regexp.MustCompile(`(?i)\b(?:toujours|jamais)\s+(?:utiliser|faire|mettre)\s+(.+?)[.!]?$`),
		build: func(m []string, text string) Triple {
			return Triple{Entity: "convention", Key: truncateKey(m[1]), Value: ruleValue(text)}
		},
	},
	{
		name: "possessive-en",
		re:   regexp.MustCompile(`(?i)\b([A-Z][\w]*)'s\s+(.+?)\s+is\s+(.+?)[.!]?$`),
		build: func(m []string, _ string) Triple {
			return Triple{Entity: m[1], Key: truncateKey(m[2]), Value: strings.TrimSpace(m[3])}
		},
	},
	{
		name: "possessive-my",
		re:   regexp.MustCompile(`(?i)\bMy\s+(.+?)\s+is\s+(.+?)[.!]?$`),
		build: func(m []string, _ string) Triple {
			return Triple{Entity: "user", Key: truncateKey(m[1]), Value: strings.TrimSpace(m[2])}
		},
	},
	{
		name: "possessive-mon",
		re:   regexp.MustCompile(`(?i)\b(?:Mon|Ma|Mes)\s+(.+?)\s+est\s+(.+?)[.!]?$`),
		build: func(m []string, _ string) Triple {
			return Triple{Entity: "user", Key: truncateKey(m[1]), Value: strings.TrimSpace(m[2])}
		},
	},
	{
		name: "preference-en",
		re:   regexp.MustCompile(`(?i)\bI\s+(?:prefer|like|love|hate|want|need|use)\s+(.+?)[.!]?$`),
		build: func(m []string, _ string) Triple {
			return Triple{Entity: "user", Key: "preference", Value: strings.TrimSpace(m[1])}
		},
	},
	{
		name: "preference-fr",
		re:   regexp.MustCompile(`(?i)\bJe\s+(?:préfère|aime|adore|déteste|veux|ai besoin de|utilise)\s+(.+?)[.!]?$`),
		build: func(m []string, _ string) Triple {
			return Triple{Entity: "user", Key: "préférence", Value: strings.TrimSpace(m[1])}
		},
	},
	{
		name:  "email",
		re:    regexp.MustCompile(`[\w.+-]+@[\w-]+\.[\w.-]+`),
		build: func(m []string, _ string) Triple {
			return Triple{Entity: "user", Key: "email", Value: m[0]}
		},
	},
	{
		name:  "phone",
		re:    regexp.MustCompile(`\+?[\d][\d\s().-]{7,}\d`),
		build: func(m []string, _ string) Triple {
			return Triple{Entity: "user", Key: "phone", Value: strings.TrimSpace(m[0])}
		},
	},
}

// Extract runs the ordered matcher table against text and returns the
// first non-empty triple. When category is "entity" and nothing matched,
// the first capitalized word becomes the entity with empty key/value.
func Extract(text string, category models.Category) (Triple, bool) {
	for _, mt := range matchers {
		if m := mt.re.FindStringSubmatch(text); m != nil {
			return mt.build(m, text), true
		}
	}
	if category == models.CategoryEntity {
		for _, word := range strings.Fields(text) {
			trimmed := strings.TrimFunc(word, func(r rune) bool { return !unicode.IsLetter(r) })
			if trimmed != "" && unicode.IsUpper([]rune(trimmed)[0]) {
				return Triple{Entity: trimmed}, true
			}
		}
	}
	return Triple{}, false
}

var sensitiveRe = regexp.MustCompile(`(?i)password|api[ _-]?key|secret|token is|ssn|credit card`)
var htmlOpenTagRe = regexp.MustCompile(`<([a-zA-Z][\w-]*)[^>]*>`)

// hasHTMLOpenClose reports whether text holds an opening tag followed later
// by a closing tag of the same name (RE2 has no backreferences, so the
// closing-tag pattern is built per opening tag).
func hasHTMLOpenClose(text string) bool {
	for _, loc := range htmlOpenTagRe.FindAllStringSubmatchIndex(text, -1) {
		name := regexp.QuoteMeta(text[loc[2]:loc[3]])
		if regexp.MustCompile(`</\s*` + name + `\s*>`).MatchString(text[loc[1]:]) {
			return true
		}
	}
	return false
}

var markdownHeaderRe = regexp.MustCompile(`(?m)^#{1,6}\s+.+$`)

// emojiCount counts runes in common emoji blocks; a coarse but adequate
// approximation for the shouldCapture guard.
func emojiCount(s string) int {
	count := 0
	for _, r := range s {
		if (r >= 0x1F300 && r <= 0x1FAFF) || (r >= 0x2600 && r <= 0x27BF) {
			count++
		}
	}
	return count
}

// triggerPatterns is the bilingual set of ~22 patterns a statement must
// match at least one of to be eligible for auto-capture.
var triggerPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bI\s+(?:prefer|like|love|hate|want|need|use)\b`),
	regexp.MustCompile(`(?i)\bJe\s+(?:préfère|aime|adore|déteste|veux|utilise)\b`),
	regexp.MustCompile(`(?i)\b(?:decided|chose|picked|went with|selected)\b`),
	regexp.MustCompile(`(?i)\b(?:décidé|choisi|opté pour)\b`),
	regexp.MustCompile(`(?i)\b(?:always|never)\b`),
	regexp.MustCompile(`(?i)\b(?:toujours|jamais)\b`),
	regexp.MustCompile(`(?i)'s\s+\w+\s+is\b`),
	regexp.MustCompile(`(?i)\bMy\s+\w+\s+is\b`),
	regexp.MustCompile(`(?i)\b(?:Mon|Ma|Mes)\s+\w+\s+est\b`),
	regexp.MustCompile(`(?i)\buse\s+.+\s+over\s+`),
	regexp.MustCompile(`(?i)\butiliser\s+.+\s+plutôt que\s+`),
	regexp.MustCompile(`(?i)\bworking on\b`),
	regexp.MustCompile(`(?i)\ben train de\b`),
	regexp.MustCompile(`(?i)\bneed to fix\b`),
	regexp.MustCompile(`(?i)\btodo:?\b`),
	regexp.MustCompile(`(?i)\bwip\b`),
	regexp.MustCompile(`(?i)\barchitecture\b`),
	regexp.MustCompile(`(?i)\bborn on|birthday is|email is|phone number\b`),
	regexp.MustCompile(`(?i)\bné le|anniversaire est|e-mail est|numéro de téléphone\b`),
	regexp.MustCompile(`[\w.+-]+@[\w-]+\.[\w.-]+`),
	regexp.MustCompile(`(?i)\bcurrently debugging|right now|this session\b`),
	regexp.MustCompile(`(?i)\bcurrently\b`),
}

// ShouldCapture applies the bilingual eligibility guard: length bounds, no
// relevant-memories marker, no balanced HTML block, no markdown header, an
// emoji budget, no sensitive-data pattern, and at least one trigger match.
func ShouldCapture(text string) bool {
	n := utf8.RuneCountInString(text)
	if n < 10 || n > 500 {
		return false
	}
	if strings.Contains(text, "<relevant-memories>") {
		return false
	}
	if hasHTMLOpenClose(text) {
		return false
	}
	if markdownHeaderRe.MatchString(text) {
		return false
	}
	if emojiCount(text) > 3 {
		return false
	}
	if sensitiveRe.MatchString(text) {
		return false
	}
	for _, re := range triggerPatterns {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

// categoryPatterns is applied in order decision -> preference -> entity ->
// fact -> other; the first group with a match wins.
var categoryPatterns = []struct {
	category models.Category
	res      []*regexp.Regexp
}{
	{models.CategoryDecision, []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(?:decided|chose|picked|went with|selected)\b`),
		regexp.MustCompile(`(?i)\b(?:décidé|choisi|opté pour)\b`),
		regexp.MustCompile(`(?i)\buse\s+.+\s+over\s+`),
	}},
	{models.CategoryPreference, []*regexp.Regexp{
		regexp.MustCompile(`(?i)\bI\s+(?:prefer|like|love|hate|want|need)\b`),
		regexp.MustCompile(`(?i)\bJe\s+(?:préfère|aime|adore|déteste)\b`),
	}},
	{models.CategoryEntity, []*regexp.Regexp{
		regexp.MustCompile(`(?i)'s\s+\w+\s+is\b`),
		regexp.MustCompile(`(?i)\bMy\s+\w+\s+is\b`),
		regexp.MustCompile(`(?i)\b(?:Mon|Ma|Mes)\s+\w+\s+est\b`),
	}},
	{models.CategoryFact, []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(?:is|are|was|were)\b`),
		regexp.MustCompile(`(?i)\b(?:est|sont|était|étaient)\b`),
	}},
}

// DetectCategory applies the bilingual pattern groups in category-
// precedence order, defaulting to CategoryOther.
func DetectCategory(text string) models.Category {
	for _, group := range categoryPatterns {
		for _, re := range group.res {
			if re.MatchString(text) {
				return group.category
			}
		}
	}
	return models.CategoryOther
}

// StripPrivate delegates to the privacy package so callers can filter
// <private> blocks before running ShouldCapture/Extract.
func StripPrivate(text string) string { return privacy.StripPrivateTags(text) }
