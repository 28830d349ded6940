package parser

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"refind/internal/paper"
)

const sampleTEI = `<?xml version="1.0" encoding="UTF-8"?>
<TEI xmlns="http://www.tei-c.org/ns/1.0">
  <teiHeader>
    <fileDesc>
      <titleStmt>
        <title level="a" type="main">Attention Is All You Need</title>
      </titleStmt>
      <publicationStmt>
        <date when="2017-06-12"/>
      </publicationStmt>
      <sourceDesc>
        <biblStruct>
          <analytic>
            <author>
              <persName><forename type="first">Ashish</forename><surname>Vaswani</surname></persName>
              <email>avaswani@example.com</email>
              <affiliation><orgName type="institution">Google Brain</orgName></affiliation>
              <idno type="ORCID">0000-0002-1825-0097</idno>
            </author>
            <author>
              <persName><forename type="first">Noam</forename><surname>Shazeer</surname></persName>
            </author>
          </analytic>
        </biblStruct>
      </sourceDesc>
    </fileDesc>
    <profileDesc>
      <abstract>
        <div><p>The dominant sequence transduction models are based on recurrent networks.</p></div>
      </abstract>
    </profileDesc>
  </teiHeader>
  <text>
    <body>
      <div><head>Introduction</head><p>Recurrent neural networks have been established as state of the art <ref type="bibr">[1]</ref>.</p><p>We propose the Transformer.</p></div>
      <div><head>Model Architecture</head><p>The encoder is composed of a stack of identical layers.</p></div>
      <div><head>Empty Section</head></div>
    </body>
    <back>
      <div type="references">
        <listBibl>
          <biblStruct>
            <analytic>
              <title level="a">Neural machine translation by jointly learning to align and translate</title>
              <author><persName><forename>Dzmitry</forename><surname>Bahdanau</surname></persName></author>
            </analytic>
            <monogr>
              <title level="m">ICLR</title>
              <imprint><date when="2015"/></imprint>
            </monogr>
            <idno type="DOI">10.48550/arXiv.1409.0473</idno>
          </biblStruct>
          <biblStruct>
            <monogr>
              <title level="m">Deep Learning</title>
              <author><persName><forename>Ian</forename><surname>Goodfellow</surname></persName></author>
              <imprint><date>2016</date></imprint>
            </monogr>
          </biblStruct>
          <biblStruct>
            <monogr><imprint><date when="1999"/></imprint></monogr>
          </biblStruct>
        </listBibl>
      </div>
    </back>
  </text>
</TEI>`

func TestParseTEI(t *testing.T) {
	meta, err := parseTEI([]byte(sampleTEI))
	if err != nil {
		t.Fatalf("parseTEI() error = %v", err)
	}

	if meta.Title != "Attention Is All You Need" {
		t.Errorf("Title = %q", meta.Title)
	}
	if meta.Year != "2017" {
		t.Errorf("Year = %q, want 2017", meta.Year)
	}
	if !strings.Contains(meta.Abstract, "sequence transduction") {
		t.Errorf("Abstract = %q", meta.Abstract)
	}

	if len(meta.Authors) != 2 {
		t.Fatalf("got %d authors, want 2", len(meta.Authors))
	}
	first := meta.Authors[0]
	if first.Firstname != "Ashish" || first.Lastname != "Vaswani" {
		t.Errorf("author[0] = %+v", first)
	}
	if first.Affiliation != "Google Brain" {
		t.Errorf("author[0].Affiliation = %q", first.Affiliation)
	}
	if first.ORCID != "0000-0002-1825-0097" {
		t.Errorf("author[0].ORCID = %q", first.ORCID)
	}

	// The section without paragraphs is dropped.
	if len(meta.Sections) != 2 {
		t.Fatalf("got %d sections, want 2: %+v", len(meta.Sections), meta.Sections)
	}
	if meta.Sections[0].Title != "Introduction" {
		t.Errorf("section[0].Title = %q", meta.Sections[0].Title)
	}
	// Text inside <ref> markup survives flattening.
	if !strings.Contains(meta.Sections[0].Content, "state of the art [1].") {
		t.Errorf("section[0].Content = %q", meta.Sections[0].Content)
	}
	if !strings.Contains(meta.Sections[0].Content, "\n\nWe propose the Transformer.") {
		t.Errorf("paragraphs not joined with blank line: %q", meta.Sections[0].Content)
	}

	if !strings.Contains(meta.SourceText, "# Attention Is All You Need") ||
		!strings.Contains(meta.SourceText, "## Abstract") ||
		!strings.Contains(meta.SourceText, "## Model Architecture") {
		t.Errorf("SourceText = %q", meta.SourceText)
	}

	// The reference with neither title nor DOI is dropped.
	if len(meta.References) != 2 {
		t.Fatalf("got %d references, want 2", len(meta.References))
	}
	ref := meta.References[0]
	if ref.Title != "Neural machine translation by jointly learning to align and translate" {
		t.Errorf("ref[0].Title = %q", ref.Title)
	}
	if ref.DOI != "10.48550/arXiv.1409.0473" {
		t.Errorf("ref[0].DOI = %q", ref.DOI)
	}
	if ref.Venue != "ICLR" {
		t.Errorf("ref[0].Venue = %q", ref.Venue)
	}
	if ref.Year != "2015" {
		t.Errorf("ref[0].Year = %q", ref.Year)
	}
	book := meta.References[1]
	if book.Title != "Deep Learning" || book.Year != "2016" {
		t.Errorf("ref[1] = %+v", book)
	}
	if len(book.Authors) != 1 || book.Authors[0].Lastname != "Goodfellow" {
		t.Errorf("ref[1].Authors = %+v", book.Authors)
	}
}

func TestParseTEI_Invalid(t *testing.T) {
	if _, err := parseTEI([]byte("not xml at all <<<")); err == nil {
		t.Error("parseTEI() expected error for invalid XML")
	}
}

func TestClient_ParsePDF(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/processFulltextDocument" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.Method != http.MethodPost {
			t.Errorf("method = %s", r.Method)
		}
		file, header, err := r.FormFile("input")
		if err != nil {
			t.Fatalf("missing input form file: %v", err)
		}
		defer func() { _ = file.Close() }()
		if header.Filename != "transformer.pdf" {
			t.Errorf("filename = %s", header.Filename)
		}
		w.Header().Set("Content-Type", "application/xml")
		_, _ = w.Write([]byte(sampleTEI))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	meta, err := client.ParsePDF(context.Background(), "transformer.pdf", []byte("%PDF-1.5 fake"))
	if err != nil {
		t.Fatalf("ParsePDF() error = %v", err)
	}
	if meta.Title != "Attention Is All You Need" {
		t.Errorf("Title = %q", meta.Title)
	}
	for _, ref := range meta.References {
		if ref.RefID == "" {
			t.Errorf("reference %q has empty ref_id", ref.Title)
		}
		if ref.Status != paper.StatusNotStarted {
			t.Errorf("reference %q status = %q, want not_started", ref.Title, ref.Status)
		}
	}
	// ref_ids are deterministic across parses.
	again, err := client.ParsePDF(context.Background(), "transformer.pdf", []byte("%PDF-1.5 fake"))
	if err != nil {
		t.Fatalf("ParsePDF() second call error = %v", err)
	}
	if again.References[0].RefID != meta.References[0].RefID {
		t.Error("ref_id not deterministic across parses")
	}
}

func TestClient_ParsePDF_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("grobid is busy"))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	if _, err := client.ParsePDF(context.Background(), "a.pdf", []byte("%PDF")); err == nil {
		t.Error("ParsePDF() expected error on 503")
	}
}
