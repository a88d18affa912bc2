// Package privacy implements the <private> redaction block that
// internal/extract strips before a message is considered for auto-capture
// (spec.md §4.8). Grounded on the donor's internal/privacy/filter.go.
package privacy

import (
	"regexp"
	"strings"
)

// Tag is the element name extract.StripPrivate and Maintenance.AutoCapture
// treat as opaque: anything between an opening and closing Tag never
// reaches the extractor or the store.
const Tag = "private"

// tagBlockRe matches a <private>...</private> span, non-greedy and
// dotall so embedded newlines stay inside the block.
var tagBlockRe = regexp.MustCompile(`(?s)<` + Tag + `>.*?</` + Tag + `>`)

// StripPrivateTags removes every <private>...</private> block from
// content and trims the whitespace left behind.
func StripPrivateTags(content string) string {
	return strings.TrimSpace(tagBlockRe.ReplaceAllString(content, ""))
}

// HasOnlyPrivateContent reports whether content is nothing but
// <private> blocks and whitespace, i.e. stripping it leaves nothing
// for auto-capture to consider.
func HasOnlyPrivateContent(content string) bool {
	return StripPrivateTags(content) == ""
}
