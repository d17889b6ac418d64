package extract

import (
	"path/filepath"
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	headerPrefixRe = regexp.MustCompile(`^#+\s*`)
	emphasisRe     = regexp.MustCompile(`\*+`)
	separatorRe    = regexp.MustCompile(`[_-]+`)
)

// TitleFromText guesses a display title from the opening lines of a
// document. Returns "" when no line looks like a title.
func TitleFromText(text string) string {
	lines := strings.Split(strings.TrimSpace(text), "\n")
	limit := len(lines)
	if limit > 5 {
		limit = 5
	}
	for _, line := range lines[:limit] {
		line = strings.TrimSpace(line)
		if len(line) <= 10 || len(line) >= 200 {
			continue
		}
		title := headerPrefixRe.ReplaceAllString(line, "")
		title = emphasisRe.ReplaceAllString(title, "")
		title = strings.TrimSpace(title)
		if title != "" {
			return title
		}
	}
	return ""
}

// TitleFromFilename derives a readable title from an uploaded file's name.
func TitleFromFilename(path string) string {
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	stem = separatorRe.ReplaceAllString(stem, " ")
	stem = strings.TrimSpace(stem)
	if stem == "" {
		return filepath.Base(path)
	}
	return cases.Title(language.English, cases.NoLower).String(stem)
}
