package paper

import (
	"strings"

	"github.com/google/uuid"
)

// refNamespace is the fixed UUID namespace for deriving reference IDs.
// Changing it would change every derived ref_id, so it never changes.
var refNamespace = uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")

// NewRefID derives a stable, URL-safe identifier for a reference.
// A DOI is preferred when present; otherwise the normalized title is used.
// Identical input always yields the identical ID.
func NewRefID(doi, title string) string {
	if d := NormalizeDOI(doi); d != "" {
		return uuid.NewSHA1(refNamespace, []byte("doi:"+d)).String()
	}
	return uuid.NewSHA1(refNamespace, []byte("title:"+NormalizeTitle(title))).String()
}

// NormalizeDOI lowercases a DOI and strips common URL prefixes.
func NormalizeDOI(doi string) string {
	d := strings.TrimSpace(strings.ToLower(doi))
	for _, prefix := range []string{"https://doi.org/", "http://doi.org/", "doi.org/", "doi:"} {
		d = strings.TrimPrefix(d, prefix)
	}
	return d
}

// NormalizeTitle lowercases a title and collapses runs of whitespace,
// so trivially different renderings of the same title hash identically.
func NormalizeTitle(title string) string {
	return strings.Join(strings.Fields(strings.ToLower(title)), " ")
}
