package importer

import (
	"context"
	"fmt"

	"github.com/shelfmark/shelfmark/internal/entities"
	"github.com/shelfmark/shelfmark/internal/metadata"
)

// RowOutcome is the terminal classification of one row's processing.
type RowOutcome string

const (
	OutcomeSuccess RowOutcome = "success"
	OutcomeFailed  RowOutcome = "failed"
	OutcomeSkipped RowOutcome = "skipped"
)

// RowResult is the outcome of one row. Message is set only for failures.
type RowResult struct {
	Outcome RowOutcome
	Message string
}

// DuplicateIndex reports whether a book with the given ISBN already
// exists in the collection.
type DuplicateIndex interface {
	ExistsByISBN(isbn string) (bool, error)
}

// MetadataLookup is the best-effort enrichment client. The boolean is
// false when the lookup is unavailable; that is never a row failure.
type MetadataLookup interface {
	Lookup(ctx context.Context, title, author, isbn string) (*metadata.BookMetadata, bool)
}

// Writer commits a book durably. Errors are row-level failures.
type Writer interface {
	SaveBook(book *entities.Book) error
}

// pipeline processes one row at a time for a single job:
// normalize -> duplicate check -> enrich -> persist.
// Rows of the same job are never processed concurrently; separate jobs
// each get their own pipeline over shared collaborators.
type pipeline struct {
	adapter formatAdapter
	opts    Options
	index   DuplicateIndex
	meta    MetadataLookup
	writer  Writer
}

// process resolves a raw row to exactly one outcome. Row-level problems
// are ordinary results, never errors: only the orchestrator's ledger
// writes can abort a job.
func (p *pipeline) process(ctx context.Context, raw RawRow) RowResult {
	row, err := p.adapter.normalize(raw)
	if err != nil {
		return RowResult{Outcome: OutcomeFailed, Message: err.Error()}
	}

	if p.opts.SkipDuplicates {
		if isbn := row.PreferredISBN(); isbn != "" {
			exists, err := p.index.ExistsByISBN(isbn)
			if err != nil {
				return RowResult{Outcome: OutcomeFailed, Message: fmt.Sprintf("duplicate check: %v", err)}
			}
			if exists {
				return RowResult{Outcome: OutcomeSkipped}
			}
		}
	}

	book := row.toBook()

	if p.opts.EnrichMetadata {
		if meta, ok := p.meta.Lookup(ctx, row.Title, row.primaryAuthor(), row.PreferredISBN()); ok {
			mergeMetadata(book, meta)
		}
	}

	if err := p.writer.SaveBook(book); err != nil {
		return RowResult{Outcome: OutcomeFailed, Message: err.Error()}
	}

	return RowResult{Outcome: OutcomeSuccess}
}
