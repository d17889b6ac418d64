package speech

import (
	"strings"
	"unicode"
)

// Abbreviations whose trailing period does not end a sentence.
var abbreviations = map[string]struct{}{
	"Mr":   {},
	"Mrs":  {},
	"Dr":   {},
	"Ms":   {},
	"Prof": {},
	"Sr":   {},
	"Jr":   {},
	"vs":   {},
	"etc":  {},
	"e.g":  {},
	"i.e":  {},
	"No":   {},
	"St":   {},
}

// splitSentences breaks text at sentence boundaries: a terminator followed
// by whitespace and an uppercase letter or quote, excluding common
// abbreviations.
func splitSentences(text string) []string {
	var (
		sentences []string
		start     int
	)
	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if r != '.' && r != '!' && r != '?' {
			continue
		}
		if i+1 >= len(runes) {
			break
		}
		if !unicode.IsSpace(runes[i+1]) {
			continue
		}
		next := nextNonSpace(runes, i+1)
		if next != 0 && !unicode.IsUpper(next) && next != '"' && next != '\'' {
			continue
		}
		if r == '.' && isAbbreviation(runes[start : i+1]) {
			continue
		}
		sentence := strings.TrimSpace(string(runes[start : i+1]))
		if sentence != "" {
			sentences = append(sentences, sentence)
		}
		start = i + 1
	}
	if tail := strings.TrimSpace(string(runes[start:])); tail != "" {
		sentences = append(sentences, tail)
	}
	return sentences
}

func nextNonSpace(runes []rune, from int) rune {
	for i := from; i < len(runes); i++ {
		if !unicode.IsSpace(runes[i]) {
			return runes[i]
		}
	}
	return 0
}

func isAbbreviation(segment []rune) bool {
	// segment ends with the candidate period; look at the word before it.
	end := len(segment) - 1
	start := end
	for start > 0 && !unicode.IsSpace(segment[start-1]) {
		start--
	}
	word := strings.TrimSuffix(string(segment[start:end]), ".")
	word = strings.TrimPrefix(word, "(")
	_, ok := abbreviations[word]
	if ok {
		return true
	}
	// e.g and i.e keep their internal period.
	_, ok = abbreviations[string(segment[start:end])]
	return ok
}

// SplitChunks groups sentences into chunks of at most maxChars characters.
// Sentences longer than the limit fall back to paragraph and then hard
// splits so no chunk exceeds the synthesis server's comfortable input size.
func SplitChunks(text string, maxChars int) []string {
	if maxChars <= 0 {
		maxChars = 250
	}

	var (
		chunks  []string
		current strings.Builder
	)
	flush := func() {
		if trimmed := strings.TrimSpace(current.String()); trimmed != "" {
			chunks = append(chunks, trimmed)
		}
		current.Reset()
	}

	for _, sentence := range splitSentences(text) {
		if current.Len()+len(sentence)+1 <= maxChars {
			current.WriteString(sentence)
			current.WriteString(" ")
			continue
		}
		flush()
		if len(sentence) <= maxChars {
			current.WriteString(sentence)
			current.WriteString(" ")
			continue
		}
		for _, para := range strings.Split(sentence, "\n\n") {
			para = strings.TrimSpace(para)
			if para == "" {
				continue
			}
			if len(para) <= maxChars {
				chunks = append(chunks, para)
				continue
			}
			runes := []rune(para)
			for i := 0; i < len(runes); i += maxChars {
				end := i + maxChars
				if end > len(runes) {
					end = len(runes)
				}
				if piece := strings.TrimSpace(string(runes[i:end])); piece != "" {
					chunks = append(chunks, piece)
				}
			}
		}
	}
	flush()

	if len(chunks) == 0 {
		return []string{text}
	}
	return chunks
}
