// Package ingest implements the Markdown Ingester (spec.md §2.10): a
// line-level extraction pass over external notes files that feeds
// candidate statements into the facade's store() operation. Grounded on
// the retrieval pack's line-scanning extractor style (oro's
// ExtractMarkers, a bufio.Scanner loop over a reader) and, for the
// supplemented YAML front-matter block (SPEC_FULL.md §12), the donor's own
// use of gopkg.in/yaml.v3 for structured config.
package ingest

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/TheFrenchOak/total-reclaw/internal/extract"
	"github.com/TheFrenchOak/total-reclaw/internal/models"
)

// Candidate is a statement extracted from a note, ready for the facade's
// store() operation.
type Candidate struct {
	Text       string
	Importance float64
	Category   models.Category
}

// frontMatter is the optional YAML block a note may start with.
type frontMatter struct {
	Importance float64  `yaml:"importance"`
	Category   string   `yaml:"category"`
	Tags       []string `yaml:"tags"`
}

const frontMatterDelim = "---"

// IngestRecent walks every directory in dirs plus the single memoryFile
// (if non-empty), extracting one Candidate per eligible line from every
// .md file modified within the last `days` days (memoryFile is always
// included regardless of its modification time), and calls sink for each.
// Returns the number of candidates successfully sunk.
func IngestRecent(dirs []string, memoryFile string, days int, sink func(Candidate) error) (int, error) {
	cutoff := time.Now().AddDate(0, 0, -days)
	count := 0

	var files []string
	for _, dir := range dirs {
		found, err := collectRecentMarkdown(dir, cutoff)
		if err != nil {
			continue // a missing/unreadable notes dir is not fatal to the bootstrap
		}
		files = append(files, found...)
	}
	if memoryFile != "" {
		files = append(files, memoryFile)
	}

	for _, path := range files {
		candidates, err := ExtractFile(path)
		if err != nil {
			continue
		}
		for _, c := range candidates {
			if err := sink(c); err != nil {
				continue
			}
			count++
		}
	}
	return count, nil
}

func collectRecentMarkdown(dir string, cutoff time.Time) ([]string, error) {
	var out []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if filepath.Ext(path) != ".md" {
			return nil
		}
		info, err := d.Info()
		if err != nil || info.ModTime().Before(cutoff) {
			return nil
		}
		out = append(out, path)
		return nil
	})
	return out, err
}

// ExtractFile reads a single markdown file and returns one Candidate per
// line eligible for capture, after consuming any leading YAML front-matter
// block to seed default Importance/Category for every line in the file.
func ExtractFile(path string) ([]Candidate, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)

	defaultImportance := 0.7
	var defaultCategory models.Category

	lines := readAllLines(scanner)
	lines, fm := splitFrontMatter(lines)
	if fm != nil {
		if fm.Importance > 0 {
			defaultImportance = fm.Importance
		}
		if fm.Category != "" {
			defaultCategory = models.Category(fm.Category)
		}
	}

	var out []Candidate
	for _, line := range lines {
		text := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), "-"))
		text = strings.TrimSpace(text)
		if text == "" || !extract.ShouldCapture(text) {
			continue
		}
		category := defaultCategory
		if category == "" {
			category = extract.DetectCategory(text)
		}
		out = append(out, Candidate{Text: text, Importance: defaultImportance, Category: category})
	}
	return out, nil
}

func readAllLines(scanner *bufio.Scanner) []string {
	var lines []string
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	return lines
}

// splitFrontMatter removes a leading "---\n...\n---" YAML block, if
// present, and parses it. Returns the remaining body lines unchanged.
func splitFrontMatter(lines []string) ([]string, *frontMatter) {
	if len(lines) == 0 || strings.TrimSpace(lines[0]) != frontMatterDelim {
		return lines, nil
	}
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == frontMatterDelim {
			var fm frontMatter
			block := strings.Join(lines[1:i], "\n")
			if err := yaml.Unmarshal([]byte(block), &fm); err != nil {
				return lines[i+1:], nil
			}
			return lines[i+1:], &fm
		}
	}
	return lines, nil
}
