// Package parser extracts structured paper metadata from PDFs by calling a
// GROBID service and decoding the TEI XML it returns.
package parser

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"refind/internal/contextutil"
	"refind/internal/paper"
)

// Client talks to a GROBID instance.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a GROBID client. PDF processing is slow for long
// papers, so the HTTP timeout is generous.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 5 * time.Minute},
	}
}

// ParsePDF sends the PDF to GROBID's full-text endpoint and converts the
// TEI response into paper metadata. Every extracted reference gets a
// deterministic ref_id and starts in the not_started state.
func (c *Client) ParsePDF(ctx context.Context, filename string, data []byte) (*paper.Metadata, error) {
	logger := contextutil.LoggerFromContext(ctx)

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("input", filename)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, fmt.Errorf("failed to write form file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	url := c.baseURL + "/api/processFulltextDocument"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Accept", "application/xml")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call grobid: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("grobid returned status %d: %s", resp.StatusCode, string(msg))
	}

	tei, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read grobid response: %w", err)
	}

	meta, err := parseTEI(tei)
	if err != nil {
		return nil, fmt.Errorf("failed to parse TEI document: %w", err)
	}

	for _, ref := range meta.References {
		ref.RefID = paper.NewRefID(ref.DOI, ref.Title)
		ref.Status = paper.StatusNotStarted
	}

	logger.InfoContext(ctx, "parsed pdf",
		"filename", filename,
		"title", meta.Title,
		"sections", len(meta.Sections),
		"references", len(meta.References))
	return meta, nil
}
