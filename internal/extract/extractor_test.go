package extract_test

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"outloud/internal/extract"
)

const articleHTML = `<!DOCTYPE html>
<html>
<head>
  <title>Fallback Title</title>
  <meta property="og:title" content="How Compilers Work">
</head>
<body>
  <nav>Home | About | Contact</nav>
  <article>
    <h1>How Compilers Work</h1>
    <p>A compiler translates source code written in one language into another language.</p>
    <p>Most compilers run in several phases, starting with lexical analysis.</p>
  </article>
  <footer>Copyright notice that should not appear.</footer>
  <script>console.log("tracking")</script>
</body>
</html>`

func TestFromURLExtractsArticle(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(articleHTML))
	}))
	defer server.Close()

	svc := extract.NewService(server.Client(), nil)
	result, err := svc.FromURL(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("FromURL failed: %v", err)
	}
	if result.Title != "How Compilers Work" {
		t.Fatalf("unexpected title: %q", result.Title)
	}
	if !strings.Contains(result.Text, "lexical analysis") {
		t.Fatalf("expected article text, got %q", result.Text)
	}
	if strings.Contains(result.Text, "tracking") || strings.Contains(result.Text, "Home | About") {
		t.Fatalf("chrome leaked into extraction: %q", result.Text)
	}
}

func TestFromURLRejectsEmptyPage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html><body></body></html>"))
	}))
	defer server.Close()

	svc := extract.NewService(server.Client(), nil)
	if _, err := svc.FromURL(context.Background(), server.URL); err == nil {
		t.Fatal("expected error for empty page")
	}
}

func TestFromURLRejectsServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer server.Close()

	svc := extract.NewService(server.Client(), nil)
	if _, err := svc.FromURL(context.Background(), server.URL); err == nil {
		t.Fatal("expected error for 500 response")
	}
}

func TestFromFileMarkdown(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "go_concurrency_patterns.md")
	content := "# Concurrency Patterns In Practice\n\nChannels are the backbone of Go concurrency. " +
		"They let goroutines exchange ownership of data safely.\n\nSee [the docs](https://example.com) for more.\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	svc := extract.NewService(nil, nil)
	result, err := svc.FromFile(context.Background(), path)
	if err != nil {
		t.Fatalf("FromFile failed: %v", err)
	}
	if result.Title != "Concurrency Patterns In Practice" {
		t.Fatalf("unexpected title: %q", result.Title)
	}
	if strings.Contains(result.Text, "https://example.com") || strings.Contains(result.Text, "#") {
		t.Fatalf("markdown not cleaned: %q", result.Text)
	}
	if !strings.Contains(result.Text, "the docs") {
		t.Fatalf("link text should survive: %q", result.Text)
	}
}

func TestFromFilePlainTextFallsBackToFilename(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "meeting-notes_march.txt")
	content := strings.Repeat("short lines\n", 2) +
		"body text follows with enough length to pass the extraction threshold easily.\n"
	if err := os.WriteFile(path, []byte("x\ny\n"+content), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	svc := extract.NewService(nil, nil)
	result, err := svc.FromFile(context.Background(), path)
	if err != nil {
		t.Fatalf("FromFile failed: %v", err)
	}
	if result.Title == "" {
		t.Fatal("expected a title")
	}
}

// buildPDF assembles a single-page PDF showing the given text, with a
// byte-accurate cross-reference table.
func buildPDF(text string) []byte {
	stream := fmt.Sprintf("BT /F1 12 Tf 72 712 Td (%s) Tj ET", text)
	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 5 0 R >> >> /Contents 4 0 R >>",
		fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(stream), stream),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>",
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects)+1)
	for i, body := range objects {
		offsets[i+1] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, body)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for i := 1; i <= len(objects); i++ {
		fmt.Fprintf(&buf, "%010d 00000 n \n", offsets[i])
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return buf.Bytes()
}

func TestFromFilePDF(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "quarterly_report.pdf")
	body := "The quarterly report explains how narration input is prepared before synthesis begins."
	if err := os.WriteFile(path, buildPDF(body), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	svc := extract.NewService(nil, nil)
	result, err := svc.FromFile(context.Background(), path)
	if err != nil {
		t.Fatalf("FromFile failed: %v", err)
	}
	if !strings.Contains(result.Text, "narration input") {
		t.Fatalf("page text missing: %q", result.Text)
	}
	if result.Title != "Quarterly Report" {
		t.Fatalf("unexpected title: %q", result.Title)
	}
}

func TestFromFileRejectsCorruptPDF(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "broken.pdf")
	if err := os.WriteFile(path, []byte("this is not a portable document"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	svc := extract.NewService(nil, nil)
	if _, err := svc.FromFile(context.Background(), path); err == nil {
		t.Fatal("expected error for corrupt pdf")
	}
}

func TestTitleFromFilename(t *testing.T) {
	got := extract.TitleFromFilename("/uploads/the_art-of_unix_programming.pdf")
	if got != "The Art Of Unix Programming" {
		t.Fatalf("unexpected title: %q", got)
	}
}

func TestCleanMarkdownForTTS(t *testing.T) {
	cases := []struct {
		name     string
		input    string
		contains string
		excludes []string
	}{
		{
			name:     "headers become sentences",
			input:    "## Background\n\nSome text.",
			contains: "Background.",
			excludes: []string{"##"},
		},
		{
			name:     "links keep their text",
			input:    "Read [the paper](https://example.org/p.pdf) today.",
			contains: "the paper",
			excludes: []string{"https://", "]("},
		},
		{
			name:     "reference markers removed",
			input:    "As shown previously [1], results vary [2, 3].",
			contains: "results vary",
			excludes: []string{"[1]", "[2, 3]"},
		},
		{
			name:     "code blocks removed",
			input:    "Before.\n```go\nfunc main() {}\n```\nAfter.",
			contains: "After.",
			excludes: []string{"func main"},
		},
		{
			name:     "math removed",
			input:    "The bound $$O(n \\log n)$$ holds when $n > 1$ always.",
			contains: "holds",
			excludes: []string{"$"},
		},
		{
			name:     "bullets flattened",
			input:    "- first point\n- second point\n",
			contains: "first point",
			excludes: []string{"- "},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := extract.CleanMarkdownForTTS(tc.input)
			if !strings.Contains(got, tc.contains) {
				t.Fatalf("missing %q in %q", tc.contains, got)
			}
			for _, ex := range tc.excludes {
				if strings.Contains(got, ex) {
					t.Fatalf("unexpected %q in %q", ex, got)
				}
			}
		})
	}
}
