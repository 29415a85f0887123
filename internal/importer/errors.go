package importer

import (
	"errors"
	"fmt"

	"github.com/shelfmark/shelfmark/internal/entities"
)

// ErrJobNotFound is returned when a job id is unknown to the ledger.
var ErrJobNotFound = errors.New("import job not found")

// InvalidStateError is returned by control operations (pause, resume,
// cancel, delete) requested while the job's current status does not
// permit them. The job is not mutated.
type InvalidStateError struct {
	Op     string
	Status entities.ImportStatus
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("cannot %s import job in status %q", e.Op, e.Status)
}

// ValidationError rejects a create request before any job exists:
// malformed options, an unparseable file, or an empty row set.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}
