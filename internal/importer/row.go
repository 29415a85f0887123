package importer

import (
	"strings"

	"github.com/shelfmark/shelfmark/internal/entities"
	"github.com/shelfmark/shelfmark/internal/metadata"
)

// RawRow is one record from the uploaded file, keyed by lowercased
// column header. Row is the 1-based data row number in the source file.
type RawRow struct {
	Row    int
	Fields map[string]string
}

func (r RawRow) field(name string) string {
	return strings.TrimSpace(r.Fields[name])
}

// CanonicalRow is a row normalized into the internal book shape,
// independent of the source format. It lives only for the duration of
// one row's trip through the pipeline.
type CanonicalRow struct {
	Row           int
	Title         string
	Authors       []string
	ISBN10        string
	ISBN13        string
	Series        string
	SeriesVolume  int
	Format        string
	Publisher     string
	PublishedDate string
}

// PreferredISBN returns the ISBN-13 when present, falling back to ISBN-10.
func (r CanonicalRow) PreferredISBN() string {
	if r.ISBN13 != "" {
		return r.ISBN13
	}
	return r.ISBN10
}

func (r CanonicalRow) primaryAuthor() string {
	if len(r.Authors) == 0 {
		return ""
	}
	return r.Authors[0]
}

func (r CanonicalRow) toBook() *entities.Book {
	return &entities.Book{
		Title:         r.Title,
		Author:        strings.Join(r.Authors, ", "),
		ISBN10:        r.ISBN10,
		ISBN13:        r.ISBN13,
		Series:        r.Series,
		SeriesVolume:  r.SeriesVolume,
		Format:        r.Format,
		Publisher:     r.Publisher,
		PublishedDate: r.PublishedDate,
	}
}

// mergeMetadata fills blank book fields from fetched metadata. Fields
// the source row already provided are never overridden.
func mergeMetadata(book *entities.Book, meta *metadata.BookMetadata) {
	if book.Author == "" && meta.Author != "" {
		book.Author = meta.Author
	}
	if book.ISBN13 == "" && meta.ISBN13 != "" {
		book.ISBN13 = meta.ISBN13
	}
	if book.ISBN10 == "" && meta.ISBN10 != "" {
		book.ISBN10 = meta.ISBN10
	}
	if book.Publisher == "" && meta.Publisher != "" {
		book.Publisher = meta.Publisher
	}
	if book.PublishedDate == "" && meta.PublishedDate != "" {
		book.PublishedDate = meta.PublishedDate
	}
	if book.CoverURL == "" && meta.CoverURL != "" {
		book.CoverURL = meta.CoverURL
	}
	if book.PageCount == 0 && meta.PageCount > 0 {
		book.PageCount = meta.PageCount
	}
	if book.Description == "" && meta.Description != "" {
		book.Description = meta.Description
	}
}

// Options are an import job's settings, immutable after creation.
type Options struct {
	Format         entities.ImportFormat
	SkipDuplicates bool
	EnrichMetadata bool

	// FieldMapping maps canonical field names to source column headers.
	// Required for the generic format, ignored otherwise.
	FieldMapping map[string]string
}
