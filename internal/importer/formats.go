package importer

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/shelfmark/shelfmark/internal/entities"
)

// formatAdapter knows how to turn one source format's rows into
// CanonicalRows.
//
// Implementations:
//   - goodreadsAdapter - Goodreads library export CSV
//   - storygraphAdapter - StoryGraph export CSV
//   - genericAdapter - arbitrary CSV driven by a caller-supplied mapping
type formatAdapter interface {
	// requiredHeaders lists the lowercased column headers the file must
	// carry for this format.
	requiredHeaders() []string

	// normalize converts one raw row into a CanonicalRow, or returns a
	// row-level validation error.
	normalize(raw RawRow) (CanonicalRow, error)
}

func adapterFor(opts Options) (formatAdapter, error) {
	switch opts.Format {
	case entities.ImportFormatGoodreads:
		return goodreadsAdapter{}, nil
	case entities.ImportFormatStoryGraph:
		return storygraphAdapter{}, nil
	case entities.ImportFormatGeneric:
		if opts.FieldMapping["title"] == "" {
			return nil, &ValidationError{Message: "generic format requires a field mapping with at least a title column"}
		}
		return genericAdapter{mapping: opts.FieldMapping}, nil
	default:
		return nil, &ValidationError{Message: fmt.Sprintf("unknown import format %q", opts.Format)}
	}
}

// validateRow enforces the minimum a row needs to be importable: a
// title, and either an ISBN or an author to identify the book by.
func validateRow(row CanonicalRow) error {
	if row.Title == "" {
		return fmt.Errorf("missing title")
	}
	if row.ISBN13 == "" && row.ISBN10 == "" && len(row.Authors) == 0 {
		return fmt.Errorf("missing both ISBN and author")
	}
	return nil
}

// Goodreads puts the series in the title, e.g.
// "The Fellowship of the Ring (The Lord of the Rings, #1)".
var goodreadsSeriesRe = regexp.MustCompile(`^(.+?)\s+\((.+?),\s*#(\d+)\)$`)

type goodreadsAdapter struct{}

func (goodreadsAdapter) requiredHeaders() []string {
	return []string{"title", "author"}
}

func (goodreadsAdapter) normalize(raw RawRow) (CanonicalRow, error) {
	row := CanonicalRow{
		Row:           raw.Row,
		Title:         raw.field("title"),
		ISBN10:        cleanGoodreadsISBN(raw.field("isbn")),
		ISBN13:        cleanGoodreadsISBN(raw.field("isbn13")),
		Format:        strings.ToLower(raw.field("binding")),
		Publisher:     raw.field("publisher"),
		PublishedDate: raw.field("year published"),
	}

	if m := goodreadsSeriesRe.FindStringSubmatch(row.Title); m != nil {
		row.Title = m[1]
		row.Series = m[2]
		row.SeriesVolume, _ = strconv.Atoi(m[3])
	}

	if author := raw.field("author"); author != "" {
		row.Authors = append(row.Authors, author)
	}
	for _, extra := range splitAuthors(raw.field("additional authors")) {
		row.Authors = append(row.Authors, extra)
	}

	if err := validateRow(row); err != nil {
		return CanonicalRow{}, err
	}
	return row, nil
}

// cleanGoodreadsISBN strips the `="..."` quoting Goodreads wraps ISBN
// columns in to stop spreadsheets from mangling them.
func cleanGoodreadsISBN(isbn string) string {
	isbn = strings.TrimPrefix(isbn, `="`)
	isbn = strings.TrimSuffix(isbn, `"`)
	isbn = strings.TrimPrefix(isbn, "=")
	return strings.TrimSpace(isbn)
}

type storygraphAdapter struct{}

func (storygraphAdapter) requiredHeaders() []string {
	return []string{"title", "authors"}
}

func (storygraphAdapter) normalize(raw RawRow) (CanonicalRow, error) {
	row := CanonicalRow{
		Row:     raw.Row,
		Title:   raw.field("title"),
		Authors: splitAuthors(raw.field("authors")),
		Format:  strings.ToLower(raw.field("format")),
	}

	// StoryGraph exposes a single "ISBN/UID" column that may hold either form.
	switch isbn := digitsOnly(raw.field("isbn/uid")); len(isbn) {
	case 13:
		row.ISBN13 = isbn
	case 10:
		row.ISBN10 = isbn
	}

	if err := validateRow(row); err != nil {
		return CanonicalRow{}, err
	}
	return row, nil
}

type genericAdapter struct {
	mapping map[string]string
}

func (a genericAdapter) requiredHeaders() []string {
	return []string{strings.ToLower(a.mapping["title"])}
}

func (a genericAdapter) normalize(raw RawRow) (CanonicalRow, error) {
	row := CanonicalRow{
		Row:           raw.Row,
		Title:         a.mapped(raw, "title"),
		Authors:       splitAuthors(a.mapped(raw, "authors")),
		ISBN10:        digitsOnly(a.mapped(raw, "isbn10")),
		ISBN13:        digitsOnly(a.mapped(raw, "isbn13")),
		Series:        a.mapped(raw, "series"),
		Format:        strings.ToLower(a.mapped(raw, "format")),
		Publisher:     a.mapped(raw, "publisher"),
		PublishedDate: a.mapped(raw, "published_date"),
	}

	if vol := a.mapped(raw, "series_volume"); vol != "" {
		row.SeriesVolume, _ = strconv.Atoi(vol)
	}

	if err := validateRow(row); err != nil {
		return CanonicalRow{}, err
	}
	return row, nil
}

func (a genericAdapter) mapped(raw RawRow, field string) string {
	column := a.mapping[field]
	if column == "" {
		return ""
	}
	return raw.field(strings.ToLower(column))
}

func splitAuthors(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	authors := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			authors = append(authors, p)
		}
	}
	return authors
}

// digitsOnly strips separators from an ISBN-ish value, keeping digits
// and a trailing X check digit.
func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == 'X' || r == 'x' {
			b.WriteRune(r)
		}
	}
	return strings.ToUpper(b.String())
}
