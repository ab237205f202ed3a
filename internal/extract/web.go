package extract

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"
	"github.com/markusmobius/go-trafilatura"
	"golang.org/x/net/html"
)

const maxPageBytes = 10 << 20

type URLOptions struct {
	Timeout   time.Duration
	UserAgent string
}

// WebExtractor fetches a page and extracts its main content as Markdown.
// Extraction tries trafilatura, then readability, then the raw body text.
type WebExtractor struct {
	client    *http.Client
	userAgent string
	conv      *converter.Converter
}

func NewWebExtractor(opts URLOptions) *WebExtractor {
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "Mozilla/5.0 (compatible; docqa/1.0)"
	}
	return &WebExtractor{
		client:    &http.Client{Timeout: opts.Timeout},
		userAgent: opts.UserAgent,
		conv: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
				table.NewTablePlugin(),
			),
		),
	}
}

func (w *WebExtractor) Extract(ctx context.Context, rawURL string) (*Document, error) {
	pageURL, err := url.Parse(rawURL)
	if err != nil || (pageURL.Scheme != "http" && pageURL.Scheme != "https") || pageURL.Host == "" {
		return nil, fmt.Errorf("invalid url %q", rawURL)
	}

	body, err := w.fetch(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	title, text := w.mainContent(body, pageURL)
	if title == "" {
		title = rawURL
	}
	return &Document{Name: title, Text: strings.TrimSpace(text), SourceType: SourceURL}, nil
}

func (w *WebExtractor) fetch(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build page request failed: %w", err)
	}
	req.Header.Set("User-Agent", w.userAgent)

	resp, err := w.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch page failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch page failed: HTTP %d for %s", resp.StatusCode, rawURL)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return nil, fmt.Errorf("read page failed: %w", err)
	}
	return body, nil
}

func (w *WebExtractor) mainContent(body []byte, pageURL *url.URL) (string, string) {
	var title string

	result, err := trafilatura.Extract(bytes.NewReader(body), trafilatura.Options{
		EnableFallback: true,
		OriginalURL:    pageURL,
	})
	if err == nil && result != nil {
		title = result.Metadata.Title
		if result.ContentNode != nil {
			if md := w.nodeMarkdown(result.ContentNode); md != "" {
				return title, md
			}
		}
		if strings.TrimSpace(result.ContentText) != "" {
			return title, result.ContentText
		}
	}

	article, err := readability.FromReader(bytes.NewReader(body), pageURL)
	if err == nil {
		if title == "" {
			title = article.Title
		}
		if md, err := w.conv.ConvertString(article.Content); err == nil && strings.TrimSpace(md) != "" {
			return title, md
		}
		if strings.TrimSpace(article.TextContent) != "" {
			return title, article.TextContent
		}
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return title, ""
	}
	if title == "" {
		title = strings.TrimSpace(doc.Find("title").First().Text())
	}
	doc.Find("script, style, noscript").Remove()
	return title, strings.Join(strings.Fields(doc.Find("body").Text()), " ")
}

func (w *WebExtractor) nodeMarkdown(n *html.Node) string {
	var buf bytes.Buffer
	if err := html.Render(&buf, n); err != nil {
		return ""
	}
	md, err := w.conv.ConvertString(buf.String())
	if err != nil {
		return ""
	}
	return strings.TrimSpace(md)
}
