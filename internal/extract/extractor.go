// Package extract pulls readable text and a display title out of URLs and
// uploaded documents.
package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/ledongthuc/pdf"

	"outloud/internal/logging"
)

// Result is the outcome of a successful extraction.
type Result struct {
	Title string
	Text  string
}

// ErrNoContent is returned when a source yields no readable text.
var ErrNoContent = errors.New("no readable text found")

const minTextLength = 50

// Service fetches and extracts content from supported sources.
type Service struct {
	client *http.Client
	logger *slog.Logger
}

// NewService wires an HTTP client; a nil client gets a 30 second timeout default.
func NewService(client *http.Client, logger *slog.Logger) *Service {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Service{client: client, logger: logger}
}

// FromURL downloads a page and extracts its main article text.
func (s *Service) FromURL(ctx context.Context, pageURL string) (Result, error) {
	doc, err := s.fetchDocument(ctx, pageURL)
	if err != nil {
		return Result{}, err
	}

	doc.Find("script, style, noscript, nav, header, footer, aside, form, iframe, svg, figure").Remove()

	text := articleText(doc)
	if len(strings.TrimSpace(text)) < minTextLength {
		return Result{}, fmt.Errorf("%w: %s", ErrNoContent, pageURL)
	}

	title := pageTitle(doc)
	if title == "" {
		title = hostTitle(pageURL)
	}

	s.logger.Info("extracted url",
		slog.String("url", pageURL),
		slog.Int("chars", len(text)),
	)
	return Result{Title: title, Text: text}, nil
}

// FromFile extracts text from an uploaded document. Plain text and markdown
// are read directly, PDFs page by page; HTML goes through the same reader
// used for URLs.
func (s *Service) FromFile(ctx context.Context, path string) (Result, error) {
	_ = ctx

	data, err := os.ReadFile(path)
	if err != nil {
		return Result{}, fmt.Errorf("read document: %w", err)
	}

	var (
		text  string
		title string
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm":
		doc, parseErr := goquery.NewDocumentFromReader(strings.NewReader(string(data)))
		if parseErr != nil {
			return Result{}, fmt.Errorf("parse html document: %w", parseErr)
		}
		doc.Find("script, style, noscript, nav, header, footer, aside, form, iframe, svg, figure").Remove()
		text = articleText(doc)
		title = pageTitle(doc)
	case ".pdf":
		pdfText, parseErr := extractPDF(data)
		if parseErr != nil {
			return Result{}, fmt.Errorf("parse pdf document: %w", parseErr)
		}
		text = pdfText
		title = TitleFromFilename(path)
	case ".md", ".markdown":
		text = CleanMarkdownForTTS(string(data))
		title = TitleFromText(text)
	default:
		text = strings.TrimSpace(string(data))
		title = TitleFromText(text)
	}

	if len(strings.TrimSpace(text)) < minTextLength {
		return Result{}, fmt.Errorf("%w: %s", ErrNoContent, filepath.Base(path))
	}
	if title == "" {
		title = TitleFromFilename(path)
	}

	s.logger.Info("extracted document",
		slog.String("path", filepath.Base(path)),
		slog.Int("chars", len(text)),
	)
	return Result{Title: title, Text: text}, nil
}

// extractPDF pulls plain text out of every page, joined with paragraph
// breaks. Pages that fail to decode are skipped rather than failing the
// whole document.
func extractPDF(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}

	var pages []string
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		content, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		if trimmed := strings.TrimSpace(content); trimmed != "" {
			pages = append(pages, trimmed)
		}
	}
	return strings.Join(pages, "\n\n"), nil
}

func (s *Service) fetchDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "outloud/1.0")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch url: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch url: server returned %s", resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	return doc, nil
}

// articleText collects paragraph-level text from the most article-like
// container in the document.
func articleText(doc *goquery.Document) string {
	root := doc.Find("article").First()
	if root.Length() == 0 {
		root = doc.Find("main").First()
	}
	if root.Length() == 0 {
		root = doc.Find("body").First()
	}

	var paragraphs []string
	root.Find("p, h1, h2, h3, h4, h5, h6, li, blockquote, pre").Each(func(_ int, sel *goquery.Selection) {
		line := strings.Join(strings.Fields(sel.Text()), " ")
		if line == "" {
			return
		}
		paragraphs = append(paragraphs, line)
	})
	if len(paragraphs) == 0 {
		return strings.Join(strings.Fields(root.Text()), " ")
	}
	return strings.Join(paragraphs, "\n\n")
}

func pageTitle(doc *goquery.Document) string {
	if title, ok := doc.Find(`meta[property="og:title"]`).Attr("content"); ok {
		if trimmed := strings.TrimSpace(title); trimmed != "" {
			return trimmed
		}
	}
	return strings.TrimSpace(doc.Find("title").First().Text())
}

func hostTitle(pageURL string) string {
	parsed, err := url.Parse(pageURL)
	if err != nil || parsed.Host == "" {
		return pageURL
	}
	return strings.TrimPrefix(parsed.Host, "www.")
}
