package speech

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestSplitSentences(t *testing.T) {
	got := splitSentences("First sentence. Second one! Third? Done.")
	if len(got) != 4 {
		t.Fatalf("expected 4 sentences, got %d: %#v", len(got), got)
	}
	if got[1] != "Second one!" {
		t.Fatalf("unexpected sentence: %q", got[1])
	}
}

func TestSplitSentencesKeepsAbbreviations(t *testing.T) {
	got := splitSentences("Dr. Smith met Mr. Jones. They talked.")
	if len(got) != 2 {
		t.Fatalf("expected 2 sentences, got %d: %#v", len(got), got)
	}
	if !strings.HasPrefix(got[0], "Dr. Smith") {
		t.Fatalf("abbreviation split a sentence: %q", got[0])
	}
}

func TestSplitChunksRespectsLimit(t *testing.T) {
	text := strings.TrimSpace(strings.Repeat("This sentence is about forty chars long. ", 20))
	chunks := SplitChunks(text, 100)
	if len(chunks) < 5 {
		t.Fatalf("expected several chunks, got %d", len(chunks))
	}
	for i, chunk := range chunks {
		if len(chunk) > 100 {
			t.Fatalf("chunk %d exceeds limit: %d chars", i, len(chunk))
		}
	}
}

func TestSplitChunksHardSplitsOversizedSentence(t *testing.T) {
	text := strings.Repeat("x", 600)
	chunks := SplitChunks(text, 250)
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
}

func TestSplitChunksHardSplitKeepsRuneBoundaries(t *testing.T) {
	text := strings.Repeat("音声合成の入力文", 100)
	chunks := SplitChunks(text, 50)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for i, chunk := range chunks {
		if !utf8.ValidString(chunk) {
			t.Fatalf("chunk %d split mid-rune: %q", i, chunk)
		}
	}
}

func TestSplitChunksEmptyInput(t *testing.T) {
	chunks := SplitChunks("", 250)
	if len(chunks) != 1 {
		t.Fatalf("expected fallback chunk, got %d", len(chunks))
	}
}

func TestValidVoice(t *testing.T) {
	if !ValidVoice("af_heart") {
		t.Fatal("af_heart should be valid")
	}
	if ValidVoice("zz_nobody") {
		t.Fatal("zz_nobody should be invalid")
	}
	if VoiceName("am_adam") != "Adam" {
		t.Fatalf("unexpected name: %q", VoiceName("am_adam"))
	}
	if VoiceName("zz_nobody") != "this voice" {
		t.Fatalf("unexpected fallback: %q", VoiceName("zz_nobody"))
	}
}
