package extract

import (
	"regexp"
	"strings"
)

// Rewrites applied to markdown before narration. Markup that reads badly
// aloud is stripped; headers become standalone sentences so the narrator
// pauses after them.
var (
	htmlTagRe       = regexp.MustCompile(`<[^>]+>`)
	mathBlockRe     = regexp.MustCompile(`\$\$[\s\S]*?\$\$`)
	mathInlineRe    = regexp.MustCompile(`\$[^$]+\$`)
	imageRe         = regexp.MustCompile(`!\[.*?\]\(.*?\)`)
	linkRe          = regexp.MustCompile(`\[([^\]]+)\]\([^)]+\)`)
	escapedLinkRe   = regexp.MustCompile(`\\\[([^\]]+)\\\]`)
	refMarkerRe     = regexp.MustCompile(`\[\\?\[?\d+(?:,\s*\d+)*\\?\]?\]`)
	pageAnchorRe    = regexp.MustCompile(`\(#page-\d+-\d+\)`)
	urlRe           = regexp.MustCompile(`https?://\S+`)
	emailRe         = regexp.MustCompile(`\S+@\S+\.\S+`)
	doiOrgRe        = regexp.MustCompile(`doi\.org/\S+`)
	doiLabelRe      = regexp.MustCompile(`DOI:?\s*\S+`)
	isbnRe          = regexp.MustCompile(`ISBN[:\s]*[\d-]+`)
	permissionRe    = regexp.MustCompile(`(?s)Permission to make digital or hard copies.*?owner/author\(s\)\.`)
	copyrightRe     = regexp.MustCompile(`(?s)©\s*\d{4}.*?(\n\n|\z)`)
	acmISBNRe       = regexp.MustCompile(`ACM ISBN[^\n]*`)
	acmReferenceRe  = regexp.MustCompile(`(?s)ACM Reference Format:.*?\n\n`)
	sectionLabelRe  = regexp.MustCompile(`(?m)^(CCS CONCEPTS|KEYWORDS|ABSTRACT)[.\s]*$`)
	figureCaptionRe = regexp.MustCompile(`(?m)^Figure \d+:.*$`)
	tableCaptionRe  = regexp.MustCompile(`(?m)^Table \d+:.*$`)
	dashRuleRe      = regexp.MustCompile(`(?m)^-{3,}$`)
	starRuleRe      = regexp.MustCompile(`(?m)^\*{3,}$`)
	codeBlockRe     = regexp.MustCompile("```[\\s\\S]*?```")
	codeInlineRe    = regexp.MustCompile("`[^`]+`")
	headerRe        = regexp.MustCompile(`(?m)^#{1,6}\s+(.+)$`)
	bulletRe        = regexp.MustCompile(`(?m)^\s*[-*•]\s+`)
	numberedListRe  = regexp.MustCompile(`(?m)^\s*\d+\.\s+`)
	parenNumberRe   = regexp.MustCompile(`\(\d+\)`)
	parenLetterRe   = regexp.MustCompile(`\([a-z]\)`)
	spaceRunRe      = regexp.MustCompile(`[ \t]+`)
	blankRunRe      = regexp.MustCompile(`\n{3,}`)
	blankLineRe     = regexp.MustCompile(`(?m)^[ \t]+$`)
)

// CleanMarkdownForTTS strips markup and boilerplate that a narrator should
// not read aloud.
func CleanMarkdownForTTS(text string) string {
	text = htmlTagRe.ReplaceAllString(text, "")

	text = mathBlockRe.ReplaceAllString(text, "")
	text = mathInlineRe.ReplaceAllString(text, "")

	text = imageRe.ReplaceAllString(text, "")
	text = linkRe.ReplaceAllString(text, "$1")
	text = escapedLinkRe.ReplaceAllString(text, "$1")

	text = refMarkerRe.ReplaceAllString(text, "")
	text = pageAnchorRe.ReplaceAllString(text, "")

	text = urlRe.ReplaceAllString(text, "")
	text = emailRe.ReplaceAllString(text, "")

	text = doiOrgRe.ReplaceAllString(text, "")
	text = doiLabelRe.ReplaceAllString(text, "")
	text = isbnRe.ReplaceAllString(text, "")

	text = permissionRe.ReplaceAllString(text, "")
	text = copyrightRe.ReplaceAllString(text, "$1")
	text = acmISBNRe.ReplaceAllString(text, "")
	text = acmReferenceRe.ReplaceAllString(text, "\n\n")

	text = sectionLabelRe.ReplaceAllString(text, "")
	text = figureCaptionRe.ReplaceAllString(text, "")
	text = tableCaptionRe.ReplaceAllString(text, "")

	text = dashRuleRe.ReplaceAllString(text, "")
	text = starRuleRe.ReplaceAllString(text, "")

	text = codeBlockRe.ReplaceAllString(text, "")
	text = codeInlineRe.ReplaceAllString(text, "")

	text = headerRe.ReplaceAllString(text, "\n$1.\n")

	text = bulletRe.ReplaceAllString(text, "")
	text = numberedListRe.ReplaceAllString(text, "")

	text = parenNumberRe.ReplaceAllString(text, "")
	text = parenLetterRe.ReplaceAllString(text, "")

	text = spaceRunRe.ReplaceAllString(text, " ")
	text = blankLineRe.ReplaceAllString(text, "")
	text = blankRunRe.ReplaceAllString(text, "\n\n")

	return strings.TrimSpace(text)
}
