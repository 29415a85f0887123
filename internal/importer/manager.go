// Package importer implements the bulk import subsystem: the job
// orchestrator and its state machine, the per-row processing pipeline,
// and the in-process registry of running jobs. Job state is persisted
// through the Ledger so status polling never touches a running loop.
package importer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/shelfmark/shelfmark/internal/entities"
)

// Ledger is the durable record of import jobs. RecordRow must apply
// the processed increment and the outcome counter increment (plus the
// error append, for failures) atomically: readers may never observe
// one without the other.
type Ledger interface {
	CreateJob(job *entities.ImportJob) error
	GetJob(id string) (*entities.ImportJob, error)
	ListJobs() ([]entities.ImportJob, error)
	DeleteJob(id string) error

	MarkRunning(id string, startedAt time.Time) error
	MarkPaused(id string, pausedAt time.Time) error
	MarkResumed(id string) error
	MarkCancelled(id string, cancelledAt time.Time) error
	MarkCompleted(id string, completedAt time.Time) error
	MarkFailed(id string, reason string, completedAt time.Time) error

	RecordRow(id string, outcome RowOutcome, row int, message string) error
}

// Manager is the import orchestrator. It creates jobs, runs one
// background loop per job, and routes control signals through the
// registry. Jobs are fully independent of each other; the only shared
// resource is the metadata rate limiter inside MetadataLookup.
type Manager struct {
	ledger Ledger
	index  DuplicateIndex
	meta   MetadataLookup
	writer Writer

	registry *registry

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewManager(ledger Ledger, index DuplicateIndex, meta MetadataLookup, writer Writer) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		ledger:   ledger,
		index:    index,
		meta:     meta,
		writer:   writer,
		registry: newRegistry(),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Create parses the uploaded file, persists a pending ledger entry, and
// schedules the processing loop. It returns as soon as the job exists;
// processing happens in the background. A file that yields no rows, or
// options that are malformed, fail with a ValidationError and no job is
// created.
func (m *Manager) Create(opts Options, filename string, file io.Reader) (*entities.ImportJob, error) {
	adapter, err := adapterFor(opts)
	if err != nil {
		return nil, err
	}

	rows, err := parseRows(file, adapter)
	if err != nil {
		return nil, &ValidationError{Message: err.Error()}
	}
	if len(rows) == 0 {
		return nil, &ValidationError{Message: "import file contains no data rows"}
	}

	record := &entities.ImportJob{
		ID:             uuid.NewString(),
		Status:         entities.ImportStatusPending,
		Format:         opts.Format,
		SkipDuplicates: opts.SkipDuplicates,
		EnrichMetadata: opts.EnrichMetadata,
		Filename:       filename,
		TotalRows:      len(rows),
	}
	if len(opts.FieldMapping) > 0 {
		mapping, err := json.Marshal(opts.FieldMapping)
		if err != nil {
			return nil, &ValidationError{Message: fmt.Sprintf("invalid field mapping: %v", err)}
		}
		record.FieldMapping = string(mapping)
	}

	if err := m.ledger.CreateJob(record); err != nil {
		return nil, fmt.Errorf("create import job: %w", err)
	}

	pipe := &pipeline{
		adapter: adapter,
		opts:    opts,
		index:   m.index,
		meta:    m.meta,
		writer:  m.writer,
	}
	j := newJob(record.ID, rows, pipe, m.ledger)
	m.registry.add(j)

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		j.run(m.ctx)
	}()

	return record, nil
}

// Pause suspends a running job at its next row boundary.
func (m *Manager) Pause(id string) error {
	j, err := m.liveJob(id, "pause")
	if err != nil {
		return err
	}
	return j.pause()
}

// Resume wakes a paused job.
func (m *Manager) Resume(id string) error {
	j, err := m.liveJob(id, "resume")
	if err != nil {
		return err
	}
	return j.resume()
}

// Cancel stops a pending, running, or paused job at its next row
// boundary. Rows past that point are never processed.
func (m *Manager) Cancel(id string) error {
	j, err := m.liveJob(id, "cancel")
	if err != nil {
		return err
	}
	return j.cancel()
}

// Status returns a read-only snapshot from the ledger. It never blocks
// on the processing loop.
func (m *Manager) Status(id string) (*entities.ImportJob, error) {
	job, err := m.ledger.GetJob(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrJobNotFound
		}
		return nil, err
	}
	return job, nil
}

// List returns snapshots of all known jobs, most recent first.
func (m *Manager) List() ([]entities.ImportJob, error) {
	return m.ledger.ListJobs()
}

// Delete removes a terminal job's ledger entry and registry handle.
func (m *Manager) Delete(id string) error {
	status, err := m.statusOf(id)
	if err != nil {
		return err
	}
	if !status.Terminal() {
		return &InvalidStateError{Op: "delete", Status: status}
	}

	if err := m.ledger.DeleteJob(id); err != nil {
		return fmt.Errorf("delete import job: %w", err)
	}
	m.registry.remove(id)
	return nil
}

// Shutdown requests cancellation of every running loop and waits for
// them to reach a terminal status, up to the context deadline.
func (m *Manager) Shutdown(ctx context.Context) {
	m.cancel()

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
	}
}

// liveJob resolves a control operation's target. Jobs known to the
// ledger but with no live loop (from a previous process) cannot accept
// control signals; the caller gets an invalid-state error naming the
// recorded status.
func (m *Manager) liveJob(id, op string) (*job, error) {
	if j := m.registry.get(id); j != nil {
		return j, nil
	}

	status, err := m.statusOf(id)
	if err != nil {
		return nil, err
	}
	return nil, &InvalidStateError{Op: op, Status: status}
}

func (m *Manager) statusOf(id string) (entities.ImportStatus, error) {
	if j := m.registry.get(id); j != nil {
		return j.currentStatus(), nil
	}

	record, err := m.ledger.GetJob(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrJobNotFound
		}
		return "", err
	}
	return record.Status, nil
}
