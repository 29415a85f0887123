package importer

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/shelfmark/shelfmark/internal/entities"
)

// control is what the caller has most recently asked the loop to do.
// The loop observes it only at row boundaries.
type control int

const (
	controlRun control = iota
	controlPause
	controlCancel
)

// job owns one import's processing loop. All progress and status
// writes to the ledger go through this single goroutine, except the
// pause/resume status flips performed by the requesting caller.
type job struct {
	id     string
	rows   []RawRow
	pipe   *pipeline
	ledger Ledger

	mu     sync.Mutex
	cond   *sync.Cond
	status entities.ImportStatus
	ctrl   control

	done chan struct{}
}

func newJob(id string, rows []RawRow, pipe *pipeline, ledger Ledger) *job {
	j := &job{
		id:     id,
		rows:   rows,
		pipe:   pipe,
		ledger: ledger,
		status: entities.ImportStatusPending,
		done:   make(chan struct{}),
	}
	j.cond = sync.NewCond(&j.mu)
	return j
}

func (j *job) currentStatus() entities.ImportStatus {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.status
}

// pause requests suspension at the next row boundary. Valid only while
// running.
func (j *job) pause() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.status != entities.ImportStatusRunning {
		return &InvalidStateError{Op: "pause", Status: j.status}
	}

	j.ctrl = controlPause
	j.status = entities.ImportStatusPaused
	return j.ledger.MarkPaused(j.id, time.Now())
}

// resume wakes a paused loop. Valid only while paused.
func (j *job) resume() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.status != entities.ImportStatusPaused {
		return &InvalidStateError{Op: "resume", Status: j.status}
	}

	j.ctrl = controlRun
	j.status = entities.ImportStatusRunning
	err := j.ledger.MarkResumed(j.id)
	j.cond.Broadcast()
	return err
}

// cancel requests termination at the next row boundary. A row already
// in flight is allowed to finish; a paused loop wakes immediately.
// Valid from pending, running, and paused.
func (j *job) cancel() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.status.Terminal() {
		return &InvalidStateError{Op: "cancel", Status: j.status}
	}

	j.requestCancelLocked()
	return nil
}

func (j *job) requestCancelLocked() {
	j.ctrl = controlCancel
	j.cond.Broadcast()
}

// run is the processing loop. It drives the job from pending to a
// terminal status and never returns before one is reached.
func (j *job) run(ctx context.Context) {
	defer close(j.done)

	// Server shutdown cancels ctx; treat it like a cancel request so a
	// paused loop does not block shutdown forever.
	stop := context.AfterFunc(ctx, func() {
		j.mu.Lock()
		if !j.status.Terminal() {
			j.requestCancelLocked()
		}
		j.mu.Unlock()
	})
	defer stop()

	if !j.begin() {
		return
	}

	for _, raw := range j.rows {
		if !j.checkpoint() {
			j.finish(entities.ImportStatusCancelled)
			return
		}

		res := j.pipe.process(ctx, raw)

		if err := j.ledger.RecordRow(j.id, res.Outcome, raw.Row, res.Message); err != nil {
			j.fail(fmt.Sprintf("record row progress: %v", err))
			return
		}
	}

	j.finish(entities.ImportStatusCompleted)
}

// begin performs the pending -> running transition, unless a cancel
// arrived before the loop started.
func (j *job) begin() bool {
	j.mu.Lock()
	if j.ctrl == controlCancel {
		j.mu.Unlock()
		j.finish(entities.ImportStatusCancelled)
		return false
	}
	j.status = entities.ImportStatusRunning
	j.mu.Unlock()

	if err := j.ledger.MarkRunning(j.id, time.Now()); err != nil {
		j.fail(fmt.Sprintf("mark job running: %v", err))
		return false
	}
	return true
}

// checkpoint is the loop's only suspension point. It blocks while
// paused and reports false once a cancel has been requested.
func (j *job) checkpoint() bool {
	j.mu.Lock()
	defer j.mu.Unlock()

	for j.ctrl == controlPause {
		j.cond.Wait()
	}
	return j.ctrl != controlCancel
}

func (j *job) finish(status entities.ImportStatus) {
	j.mu.Lock()
	j.status = status
	j.mu.Unlock()

	now := time.Now()
	var err error
	switch status {
	case entities.ImportStatusCancelled:
		err = j.ledger.MarkCancelled(j.id, now)
	case entities.ImportStatusCompleted:
		err = j.ledger.MarkCompleted(j.id, now)
	}
	if err != nil {
		log.Printf("import job %s: persist terminal status %s: %v", j.id, status, err)
	}
}

// fail records a job-level fatal error, distinct from any row error.
func (j *job) fail(reason string) {
	j.mu.Lock()
	j.status = entities.ImportStatusFailed
	j.mu.Unlock()

	if err := j.ledger.MarkFailed(j.id, reason, time.Now()); err != nil {
		log.Printf("import job %s: persist failure %q: %v", j.id, reason, err)
	}
}
