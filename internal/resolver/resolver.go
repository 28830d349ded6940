// Package resolver locates full-text PDFs for bibliographic references.
// It tries, in order: Unpaywall and doi.org when a DOI is known, then the
// arXiv API and Semantic Scholar by title match. All outbound calls share
// one rate limiter so the public APIs are not hammered.
package resolver

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"refind/internal/contextutil"
	"refind/internal/paper"
)

// ErrNoMatch is returned when no external source yields a confident match
// for the reference.
var ErrNoMatch = errors.New("no match found for reference")

// minTitleSimilarity is the acceptance threshold for title-based matches.
const minTitleSimilarity = 0.5

const maxPDFSize = 50 << 20

// Resolution is the outcome of resolving a reference: where its PDF can
// be fetched from, plus any identifiers discovered along the way.
type Resolution struct {
	Title   string
	DOI     string
	PDFURL  string
	Source  string
	AltURLs []string
}

// Client resolves references against public scholarly APIs.
type Client struct {
	client  *http.Client
	limiter *rate.Limiter
	email   string

	// Endpoint bases, overridable in tests.
	arxivURL     string
	s2URL        string
	unpaywallURL string
	doiURL       string
}

// New creates a resolver client. email identifies us to Unpaywall, rps
// caps outbound requests per second across all sources.
func New(email string, rps float64) *Client {
	if rps <= 0 {
		rps = 1
	}
	return &Client{
		client:       &http.Client{Timeout: 30 * time.Second},
		limiter:      rate.NewLimiter(rate.Limit(rps), 1),
		email:        email,
		arxivURL:     "http://export.arxiv.org/api/query",
		s2URL:        "https://api.semanticscholar.org/graph/v1/paper/search",
		unpaywallURL: "https://api.unpaywall.org/v2",
		doiURL:       "https://doi.org",
	}
}

// Resolve finds PDF candidates for the reference. A known DOI is trusted
// outright; otherwise the title is matched against arXiv and Semantic
// Scholar and accepted only above the similarity threshold.
func (c *Client) Resolve(ctx context.Context, ref paper.ReferenceRecord) (*Resolution, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if ref.DOI != "" {
		res, err := c.resolveDOI(ctx, ref)
		if err == nil {
			return res, nil
		}
		logger.WarnContext(ctx, "doi resolution failed, falling back to title search",
			"ref_id", ref.RefID, "doi", ref.DOI, "error", err)
	}

	if strings.TrimSpace(ref.Title) == "" {
		return nil, ErrNoMatch
	}

	if res, err := c.resolveArxiv(ctx, ref); err == nil {
		return res, nil
	} else if !errors.Is(err, ErrNoMatch) {
		logger.WarnContext(ctx, "arxiv lookup failed", "ref_id", ref.RefID, "error", err)
	}

	if res, err := c.resolveSemanticScholar(ctx, ref); err == nil {
		return res, nil
	} else if !errors.Is(err, ErrNoMatch) {
		logger.WarnContext(ctx, "semantic scholar lookup failed", "ref_id", ref.RefID, "error", err)
	}

	return nil, ErrNoMatch
}

// resolveDOI asks Unpaywall for an open-access PDF and falls back to the
// doi.org landing page as a scrape candidate.
func (c *Client) resolveDOI(ctx context.Context, ref paper.ReferenceRecord) (*Resolution, error) {
	doi := paper.NormalizeDOI(ref.DOI)
	res := &Resolution{
		Title:   ref.Title,
		DOI:     doi,
		Source:  "doi",
		AltURLs: []string{c.doiURL + "/" + doi},
	}

	reqURL := fmt.Sprintf("%s/%s?email=%s", c.unpaywallURL, doi, url.QueryEscape(c.email))
	body, err := c.get(ctx, reqURL)
	if err != nil {
		// Landing page scrape is still worth a try.
		res.PDFURL = res.AltURLs[0]
		res.AltURLs = nil
		return res, nil
	}

	var payload struct {
		BestOALocation *struct {
			URLForPDF string `json:"url_for_pdf"`
			URL       string `json:"url"`
		} `json:"best_oa_location"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.BestOALocation != nil {
		if pdf := payload.BestOALocation.URLForPDF; pdf != "" {
			res.PDFURL = pdf
			res.Source = "unpaywall"
			return res, nil
		}
		if u := payload.BestOALocation.URL; u != "" {
			res.AltURLs = append([]string{u}, res.AltURLs...)
		}
	}
	res.PDFURL = res.AltURLs[0]
	res.AltURLs = res.AltURLs[1:]
	return res, nil
}

type arxivFeed struct {
	Entries []struct {
		ID    string `xml:"id"`
		Title string `xml:"title"`
		Links []struct {
			Href string `xml:"href,attr"`
			Type string `xml:"type,attr"`
		} `xml:"link"`
	} `xml:"entry"`
}

func (c *Client) resolveArxiv(ctx context.Context, ref paper.ReferenceRecord) (*Resolution, error) {
	query := url.Values{}
	query.Set("search_query", fmt.Sprintf("ti:%q", ref.Title))
	query.Set("max_results", "5")

	body, err := c.get(ctx, c.arxivURL+"?"+query.Encode())
	if err != nil {
		return nil, err
	}

	var feed arxivFeed
	if err := xml.Unmarshal(body, &feed); err != nil {
		return nil, fmt.Errorf("failed to parse arxiv feed: %w", err)
	}

	for _, entry := range feed.Entries {
		if titleSimilarity(ref.Title, entry.Title) < minTitleSimilarity {
			continue
		}
		pdfURL := ""
		for _, link := range entry.Links {
			if link.Type == "application/pdf" {
				pdfURL = link.Href
				break
			}
		}
		if pdfURL == "" {
			pdfURL = strings.Replace(entry.ID, "/abs/", "/pdf/", 1)
		}
		return &Resolution{
			Title:  strings.Join(strings.Fields(entry.Title), " "),
			PDFURL: pdfURL,
			Source: "arxiv",
		}, nil
	}
	return nil, ErrNoMatch
}

func (c *Client) resolveSemanticScholar(ctx context.Context, ref paper.ReferenceRecord) (*Resolution, error) {
	query := url.Values{}
	query.Set("query", ref.Title)
	query.Set("fields", "title,externalIds,openAccessPdf")
	query.Set("limit", "5")

	body, err := c.get(ctx, c.s2URL+"?"+query.Encode())
	if err != nil {
		return nil, err
	}

	var payload struct {
		Data []struct {
			Title       string `json:"title"`
			ExternalIDs struct {
				DOI string `json:"DOI"`
			} `json:"externalIds"`
			OpenAccessPDF *struct {
				URL string `json:"url"`
			} `json:"openAccessPdf"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("failed to parse semantic scholar response: %w", err)
	}

	for _, item := range payload.Data {
		if titleSimilarity(ref.Title, item.Title) < minTitleSimilarity {
			continue
		}
		res := &Resolution{
			Title:  item.Title,
			DOI:    paper.NormalizeDOI(item.ExternalIDs.DOI),
			Source: "semanticscholar",
		}
		if item.OpenAccessPDF != nil && item.OpenAccessPDF.URL != "" {
			res.PDFURL = item.OpenAccessPDF.URL
		} else if res.DOI != "" {
			res.PDFURL = c.doiURL + "/" + res.DOI
		} else {
			continue
		}
		return res, nil
	}
	return nil, ErrNoMatch
}

func (c *Client) get(ctx context.Context, reqURL string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d from %s", resp.StatusCode, reqURL)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxPDFSize))
}

// titleSimilarity scores two titles in [0,1] by blending Jaccard word
// overlap with containment, so a short title fully contained in a longer
// one still scores high.
func titleSimilarity(a, b string) float64 {
	aw, bw := wordSet(a), wordSet(b)
	if len(aw) == 0 || len(bw) == 0 {
		return 0
	}
	inter := 0
	for w := range aw {
		if _, ok := bw[w]; ok {
			inter++
		}
	}
	union := len(aw) + len(bw) - inter
	smaller := len(aw)
	if len(bw) < smaller {
		smaller = len(bw)
	}
	jaccard := float64(inter) / float64(union)
	containment := float64(inter) / float64(smaller)
	return 0.6*jaccard + 0.4*containment
}

func wordSet(s string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, word := range strings.Fields(strings.ToLower(s)) {
		word = strings.Trim(word, ".,:;!?()[]{}\"'")
		if word != "" {
			out[word] = struct{}{}
		}
	}
	return out
}
