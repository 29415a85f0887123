package entities

import (
	"time"
)

type ImportStatus string

const (
	ImportStatusPending   ImportStatus = "pending"
	ImportStatusRunning   ImportStatus = "running"
	ImportStatusPaused    ImportStatus = "paused"
	ImportStatusCancelled ImportStatus = "cancelled"
	ImportStatusCompleted ImportStatus = "completed"
	ImportStatusFailed    ImportStatus = "failed"
)

// Terminal reports whether the status permits no further transitions.
func (s ImportStatus) Terminal() bool {
	return s == ImportStatusCancelled || s == ImportStatusCompleted || s == ImportStatusFailed
}

type ImportFormat string

const (
	ImportFormatGoodreads  ImportFormat = "goodreads"
	ImportFormatStoryGraph ImportFormat = "storygraph"
	ImportFormatGeneric    ImportFormat = "generic"
)

// ImportJob is the durable ledger record for one bulk import.
// Progress counters and status are written only by the job's own
// processing loop (and by pause/resume requests for the status field);
// any number of readers may poll it concurrently.
type ImportJob struct {
	ID     string       `gorm:"primaryKey;size:36" json:"id"`
	Status ImportStatus `gorm:"size:20;index" json:"status"`

	// Options, immutable after creation.
	Format         ImportFormat `gorm:"size:20" json:"format"`
	SkipDuplicates bool         `json:"skip_duplicates"`
	EnrichMetadata bool         `json:"enrich_metadata"`
	FieldMapping   string       `gorm:"type:text" json:"field_mapping,omitempty"` // JSON object, generic format only

	// Source descriptor. The uploaded bytes themselves are not retained.
	Filename  string `gorm:"size:512" json:"filename"`
	TotalRows int    `json:"total_rows"`

	// Progress counters. Invariant: processed == succeeded + failed + skipped.
	Processed int `json:"processed"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`

	RowErrors []ImportRowError `gorm:"foreignKey:JobID;constraint:OnDelete:CASCADE" json:"row_errors,omitempty"`

	// Set only when Status is failed; describes a job-level abort,
	// as opposed to individual row errors.
	TopLevelError string `gorm:"type:text" json:"top_level_error,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	PausedAt    *time.Time `json:"paused_at,omitempty"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

func (ImportJob) TableName() string {
	return "import_jobs"
}

// ImportRowError records one failed row. Exactly one entry exists per
// row counted in ImportJob.Failed.
type ImportRowError struct {
	ID      uint   `gorm:"primaryKey" json:"-"`
	JobID   string `gorm:"index;size:36" json:"-"`
	Row     int    `json:"row"` // 1-based source row number
	Message string `gorm:"type:text" json:"error"`
}

func (ImportRowError) TableName() string {
	return "import_row_errors"
}
