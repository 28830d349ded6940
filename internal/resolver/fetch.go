package resolver

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"refind/internal/contextutil"
)

// FetchPDF downloads the resolved PDF. Candidates that turn out to be
// HTML landing pages are scraped once for a direct PDF link.
func (c *Client) FetchPDF(ctx context.Context, res *Resolution) ([]byte, error) {
	logger := contextutil.LoggerFromContext(ctx)

	candidates := append([]string{res.PDFURL}, res.AltURLs...)
	var lastErr error
	for _, candidate := range candidates {
		if candidate == "" {
			continue
		}
		data, landing, err := c.fetchOne(ctx, candidate)
		if err != nil {
			lastErr = err
			logger.DebugContext(ctx, "pdf candidate failed", "url", candidate, "error", err)
			continue
		}
		if data != nil {
			return data, nil
		}
		// Got an HTML page: scrape it for PDF links and try those.
		for _, link := range pdfLinks(landing, candidate) {
			data, _, err := c.fetchOne(ctx, link)
			if err != nil {
				lastErr = err
				continue
			}
			if data != nil {
				return data, nil
			}
		}
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no candidate yielded a PDF")
	}
	return nil, fmt.Errorf("failed to fetch pdf for %q: %w", res.Title, lastErr)
}

// fetchOne downloads one URL. It returns the body as the first value when
// it is a PDF, or as the second when it is an HTML page worth scraping.
func (c *Client) fetchOne(ctx context.Context, reqURL string) ([]byte, []byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "refind/1.0 (academic reference resolver)")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, nil, fmt.Errorf("unexpected status %d from %s", resp.StatusCode, reqURL)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPDFSize))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read body: %w", err)
	}

	contentType := resp.Header.Get("Content-Type")
	if strings.Contains(contentType, "application/pdf") || bytes.HasPrefix(body, []byte("%PDF")) {
		return body, nil, nil
	}
	if strings.Contains(contentType, "text/html") {
		return nil, body, nil
	}
	return nil, nil, fmt.Errorf("unexpected content type %q from %s", contentType, reqURL)
}

// pdfLinks extracts likely PDF URLs from an HTML landing page: the
// citation_pdf_url meta tag publishers emit, then anchors pointing at .pdf.
func pdfLinks(html []byte, pageURL string) []string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil
	}
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil
	}

	var links []string
	seen := make(map[string]bool)
	add := func(href string) {
		ref, err := url.Parse(strings.TrimSpace(href))
		if err != nil || ref.String() == "" {
			return
		}
		abs := base.ResolveReference(ref).String()
		if !seen[abs] {
			seen[abs] = true
			links = append(links, abs)
		}
	}

	doc.Find(`meta[name="citation_pdf_url"]`).Each(func(_ int, s *goquery.Selection) {
		if content, ok := s.Attr("content"); ok {
			add(content)
		}
	})
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		lower := strings.ToLower(href)
		if strings.HasSuffix(lower, ".pdf") || strings.Contains(lower, "/pdf/") {
			add(href)
		}
	})
	return links
}
