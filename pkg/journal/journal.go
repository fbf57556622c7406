// Package journal keeps a local record of sync runs in a SQL database.
//
// A nil *Journal is valid and records nothing, so callers do not need to
// check whether journaling is configured.
package journal

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/go-hclog"
	"gorm.io/gorm"

	"github.com/hashicorp-forge/dirsync/pkg/directory"
)

// Journal records sync runs.
type Journal struct {
	db     *gorm.DB
	logger hclog.Logger
	now    func() time.Time
}

// New wraps an open database.
func New(db *gorm.DB, logger hclog.Logger) *Journal {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Journal{db: db, logger: logger, now: time.Now}
}

// Open connects to the database described by cfg.
func Open(cfg Config, logger hclog.Logger) (*Journal, error) {
	db, err := Connect(cfg, logger)
	if err != nil {
		return nil, err
	}
	return New(db, logger), nil
}

// Close releases the database connection.
func (j *Journal) Close() error {
	if j == nil {
		return nil
	}
	sqlDB, err := j.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Outcome is what a finished run reports.
type Outcome struct {
	TransactionID string
	JobID         string
	Total         int
	Successful    int
	Failed        int
	Unresolved    int
}

// FromCommit builds an Outcome from a commit result.
func FromCommit(r *directory.CommitResult) Outcome {
	if r == nil {
		return Outcome{}
	}
	return Outcome{
		TransactionID: r.TransactionID,
		JobID:         r.JobID,
		Total:         r.TotalOperations,
		Successful:    r.SuccessfulOperations,
		Failed:        r.FailedOperations,
	}
}

// FromDirect builds an Outcome from a direct department sync.
func FromDirect(r *directory.DirectResult) Outcome {
	if r == nil {
		return Outcome{}
	}
	failed := len(r.Errors)
	successful := r.SuccessfulOperations
	if successful == 0 {
		successful = max(r.Processed-failed, 0)
	}
	return Outcome{
		Total:      r.Processed,
		Successful: successful,
		Failed:     failed,
	}
}

// Start records the beginning of a run.
func (j *Journal) Start(ctx context.Context, kind Kind, source string, data directory.SyncData) (*Run, error) {
	run := &Run{
		Kind:        kind,
		Status:      RunRunning,
		Source:      source,
		Departments: len(data.Departments),
		Users:       len(data.Users),
	}
	if j == nil {
		return run, nil
	}

	run.StartedAt = j.now().UTC()
	if err := run.Create(j.db.WithContext(ctx)); err != nil {
		return nil, fmt.Errorf("error recording run start: %w", err)
	}

	j.logger.Debug("recorded run start", "run_id", run.ID, "kind", kind)
	return run, nil
}

// Finish records the outcome of a run. runErr, when non-nil, marks the run
// failed; otherwise it is partial if any operation failed.
func (j *Journal) Finish(ctx context.Context, run *Run, out Outcome, runErr error) error {
	if run == nil {
		return nil
	}

	run.TransactionID = out.TransactionID
	run.JobID = out.JobID
	run.Total = out.Total
	run.Successful = out.Successful
	run.Failed = out.Failed
	run.UnresolvedDepartments = out.Unresolved

	switch {
	case runErr != nil:
		run.Status = RunFailed
		run.Error = runErr.Error()
	case out.Failed > 0:
		run.Status = RunPartial
	default:
		run.Status = RunSucceeded
	}

	if j == nil {
		return nil
	}

	finished := j.now().UTC()
	run.FinishedAt = &finished
	if err := run.Update(j.db.WithContext(ctx)); err != nil {
		return fmt.Errorf("error recording run outcome: %w", err)
	}

	j.logger.Debug("recorded run outcome", "run_id", run.ID, "status", run.Status)
	return nil
}

// Recent returns up to limit runs, newest first.
func (j *Journal) Recent(ctx context.Context, limit int) (Runs, error) {
	if j == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 20
	}

	var runs Runs
	if err := runs.FindRecent(j.db.WithContext(ctx), limit); err != nil {
		return nil, fmt.Errorf("error listing runs: %w", err)
	}
	return runs, nil
}

// ForTransaction returns the runs that produced a server transaction.
func (j *Journal) ForTransaction(ctx context.Context, txID string) (Runs, error) {
	if j == nil {
		return nil, nil
	}

	var runs Runs
	if err := runs.FindByTransaction(j.db.WithContext(ctx), txID); err != nil {
		return nil, fmt.Errorf("error finding runs: %w", err)
	}
	return runs, nil
}
