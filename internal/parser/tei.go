package parser

import (
	"encoding/xml"
	"fmt"
	"strings"

	"refind/internal/paper"
)

type teiDocument struct {
	XMLName xml.Name  `xml:"TEI"`
	Header  teiHeader `xml:"teiHeader"`
	Text    teiText   `xml:"text"`
}

type teiHeader struct {
	FileDesc    teiFileDesc    `xml:"fileDesc"`
	ProfileDesc teiProfileDesc `xml:"profileDesc"`
}

type teiFileDesc struct {
	TitleStmt struct {
		Title string `xml:"title"`
	} `xml:"titleStmt"`
	PublicationStmt struct {
		Date teiDate `xml:"date"`
	} `xml:"publicationStmt"`
	SourceDesc struct {
		BiblStruct teiBiblStruct `xml:"biblStruct"`
	} `xml:"sourceDesc"`
}

type teiProfileDesc struct {
	Abstract teiRaw `xml:"abstract"`
}

type teiText struct {
	Body struct {
		Divs []teiDiv `xml:"div"`
	} `xml:"body"`
	Back struct {
		Divs []struct {
			ListBibl struct {
				BiblStructs []teiBiblStruct `xml:"biblStruct"`
			} `xml:"listBibl"`
		} `xml:"div"`
	} `xml:"back"`
}

type teiDiv struct {
	Head  string   `xml:"head"`
	Paras []teiRaw `xml:"p"`
}

type teiBiblStruct struct {
	Analytic struct {
		Titles  []teiTitle  `xml:"title"`
		Authors []teiAuthor `xml:"author"`
	} `xml:"analytic"`
	Monogr struct {
		Titles  []teiTitle  `xml:"title"`
		Authors []teiAuthor `xml:"author"`
		Imprint struct {
			Dates []teiDate `xml:"date"`
		} `xml:"imprint"`
	} `xml:"monogr"`
	IDNos []teiIDNo `xml:"idno"`
}

type teiAuthor struct {
	PersName struct {
		Forenames []string `xml:"forename"`
		Surname   string   `xml:"surname"`
	} `xml:"persName"`
	Email        string `xml:"email"`
	Affiliations []struct {
		OrgNames []string `xml:"orgName"`
	} `xml:"affiliation"`
	IDNos []teiIDNo `xml:"idno"`
}

type teiTitle struct {
	Level string `xml:"level,attr"`
	Value string `xml:",chardata"`
}

type teiDate struct {
	When string `xml:"when,attr"`
	Text string `xml:",chardata"`
}

type teiIDNo struct {
	Type  string `xml:"type,attr"`
	Value string `xml:",chardata"`
}

// teiRaw captures an element's raw inner XML so text nested inside markup
// (ref, hi, formula) survives flattening.
type teiRaw struct {
	Inner string `xml:",innerxml"`
}

// flatten strips all tags from raw inner XML and collapses whitespace.
func (r teiRaw) flatten() string {
	decoder := xml.NewDecoder(strings.NewReader("<root>" + r.Inner + "</root>"))
	var sb strings.Builder
	for {
		tok, err := decoder.Token()
		if err != nil {
			break
		}
		if cd, ok := tok.(xml.CharData); ok {
			sb.Write(cd)
		}
	}
	return strings.Join(strings.Fields(sb.String()), " ")
}

func parseTEI(data []byte) (*paper.Metadata, error) {
	var doc teiDocument
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("invalid TEI XML: %w", err)
	}

	meta := &paper.Metadata{
		Title:    strings.TrimSpace(doc.Header.FileDesc.TitleStmt.Title),
		Authors:  convertAuthors(doc.Header.FileDesc.SourceDesc.BiblStruct.Analytic.Authors),
		Abstract: doc.Header.ProfileDesc.Abstract.flatten(),
		Year:     yearOf([]teiDate{doc.Header.FileDesc.PublicationStmt.Date}),
	}
	if meta.Year == "" {
		meta.Year = yearOf(doc.Header.FileDesc.SourceDesc.BiblStruct.Monogr.Imprint.Dates)
	}

	for i, div := range doc.Text.Body.Divs {
		paras := make([]string, 0, len(div.Paras))
		for _, p := range div.Paras {
			if text := p.flatten(); text != "" {
				paras = append(paras, text)
			}
		}
		if len(paras) == 0 {
			continue
		}
		title := strings.TrimSpace(div.Head)
		if title == "" {
			title = fmt.Sprintf("Section %d", i+1)
		}
		meta.Sections = append(meta.Sections, paper.Section{
			Title:   title,
			Content: strings.Join(paras, "\n\n"),
		})
	}
	meta.SourceText = renderSourceText(meta)

	for _, backDiv := range doc.Text.Back.Divs {
		for _, bibl := range backDiv.ListBibl.BiblStructs {
			ref := convertReference(bibl)
			if ref.Title == "" && ref.DOI == "" {
				continue
			}
			meta.References = append(meta.References, ref)
		}
	}
	return meta, nil
}

func convertAuthors(authors []teiAuthor) []paper.Author {
	out := make([]paper.Author, 0, len(authors))
	for _, a := range authors {
		author := paper.Author{
			Firstname: strings.Join(a.PersName.Forenames, " "),
			Lastname:  strings.TrimSpace(a.PersName.Surname),
			Email:     strings.TrimSpace(a.Email),
		}
		if author.Firstname == "" && author.Lastname == "" {
			continue
		}
		var orgs []string
		for _, aff := range a.Affiliations {
			orgs = append(orgs, trimmedNames(aff.OrgNames)...)
		}
		author.Affiliation = strings.Join(orgs, ", ")
		for _, id := range a.IDNos {
			if strings.EqualFold(id.Type, "ORCID") {
				author.ORCID = strings.TrimSpace(id.Value)
			}
		}
		out = append(out, author)
	}
	return out
}

func trimmedNames(names []string) []string {
	out := make([]string, 0, len(names))
	for _, name := range names {
		if name = strings.TrimSpace(name); name != "" {
			out = append(out, name)
		}
	}
	return out
}

func convertReference(bibl teiBiblStruct) *paper.ReferenceRecord {
	ref := &paper.ReferenceRecord{
		Title:   pickTitle(bibl.Analytic.Titles),
		Authors: convertAuthors(bibl.Analytic.Authors),
		Year:    yearOf(bibl.Monogr.Imprint.Dates),
	}
	monogrTitle := pickTitle(bibl.Monogr.Titles)
	if ref.Title == "" {
		// Monographs (books, theses) carry their title at the monogr level.
		ref.Title = monogrTitle
	} else {
		ref.Venue = monogrTitle
	}
	if len(ref.Authors) == 0 {
		ref.Authors = convertAuthors(bibl.Monogr.Authors)
	}
	for _, id := range bibl.IDNos {
		if strings.EqualFold(id.Type, "DOI") {
			ref.DOI = strings.TrimSpace(id.Value)
		}
	}
	return ref
}

func pickTitle(titles []teiTitle) string {
	for _, t := range titles {
		if v := strings.TrimSpace(t.Value); v != "" {
			return v
		}
	}
	return ""
}

// yearOf extracts a four-digit year from the first date that has one.
func yearOf(dates []teiDate) string {
	for _, d := range dates {
		for _, candidate := range []string{d.When, strings.TrimSpace(d.Text)} {
			if len(candidate) >= 4 && isDigits(candidate[:4]) {
				return candidate[:4]
			}
		}
	}
	return ""
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}

// renderSourceText produces the markdown-like plain text the chunker and
// the /paper endpoint expose as sourceContent.
func renderSourceText(meta *paper.Metadata) string {
	var sb strings.Builder
	if meta.Title != "" {
		sb.WriteString("# " + meta.Title + "\n\n")
	}
	if meta.Abstract != "" {
		sb.WriteString("## Abstract\n\n" + meta.Abstract + "\n\n")
	}
	for _, section := range meta.Sections {
		sb.WriteString("## " + section.Title + "\n\n" + section.Content + "\n\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}
