// Package runner orchestrates a single read -> transform -> write pass from the
// source spreadsheet to the output spreadsheet.
package runner

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/farmledger/inventory-sheets/gsheets"
	"github.com/farmledger/inventory-sheets/inventory"
)

type Reader interface {
	Read(ctx context.Context, spreadsheet string, area string) ([]inventory.RawRow, error)
}

type Writer interface {
	Plan(ctx context.Context, spreadsheet string, tables ...gsheets.Table) (*gsheets.WriteBatch, error)
	Apply(ctx context.Context, batch *gsheets.WriteBatch) error
}

// Journal records each run in the output spreadsheet.
type Journal interface {
	AppendLog(ctx context.Context, spreadsheet string, area string, entry gsheets.LogEntry) error
	PruneLog(ctx context.Context, spreadsheet string, area string, retention time.Duration, now time.Time) (int, error)
}

// Locker provides mutual exclusion between overlapping runs. The returned release
// function is invoked when the run terminates.
type Locker interface {
	Lock(ctx context.Context) (release func(), err error)
}

// Job is what a run synchronises.
type Job struct {
	Source       string
	Output       string
	Feeds        []inventory.Feed
	Inventory    string
	Summary      string
	Log          string
	LogRetention time.Duration
	Rules        inventory.Rules
}

type Controller struct {
	Reader  Reader
	Writer  Writer
	Journal Journal
	Locker  Locker
	Policy  Policy
	DryRun  bool
	Now     func() time.Time
	Logger  *slog.Logger

	mu    sync.Mutex
	state State
}

// State returns the current state of the controller.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.state
}

// Run executes one complete pass. The returned error is the Result error and is
// nil for a successful or partially successful run.
func (c *Controller) Run(ctx context.Context, job Job) (Result, error) {
	result := Result{
		ID:      uuid.New().String(),
		Status:  Failure,
		State:   Idle,
		Started: c.now(),
		DryRun:  c.DryRun,
		Tables:  []gsheets.Stats{},
		Skipped: []inventory.Skip{},
	}

	log := c.logger().With("run", result.ID)
	log.Info("run started", "source", job.Source, "output", job.Output, "dryrun", c.DryRun)

	c.transition(&result, Idle)

	if c.Locker != nil {
		release, err := c.Locker.Lock(ctx)
		if err != nil {
			return c.fail(ctx, log, job, &result, &LockError{Err: err})
		}

		defer release()
	}

	// ... read
	c.transition(&result, Reading)

	sheets := []inventory.Sheet{}
	for _, feed := range job.Feeds {
		var rows []inventory.RawRow

		err := c.retry(ctx, log, "read "+feed.Name, &result.Retries, func() (err error) {
			rows, err = c.Reader.Read(ctx, job.Source, feed.Range)
			return
		})

		if err != nil {
			return c.fail(ctx, log, job, &result, err)
		}

		log.Debug("read feed", "feed", feed.Name, "range", feed.Range, "rows", len(rows))
		sheets = append(sheets, inventory.Sheet{Feed: feed, Rows: rows})
	}

	// ... transform
	c.transition(&result, Transforming)

	transformer := inventory.Transformer{Rules: job.Rules}
	inv, err := transformer.Transform(result.Started, sheets...)
	if err != nil {
		return c.fail(ctx, log, job, &result, err)
	}

	result.RowsRead = inv.Rows
	result.Records = len(inv.Records)
	result.Skipped = inv.Skipped
	result.RecordsSkipped = len(inv.Skipped)

	for _, skip := range inv.Skipped {
		log.Debug("skipped row", "feed", skip.Feed, "row", skip.Row, "reason", skip.Reason)
	}

	// ... write
	c.transition(&result, Writing)

	tables := Tables(job, inv)

	var batch *gsheets.WriteBatch
	err = c.retry(ctx, log, "write", &result.Retries, func() error {
		b, err := c.Writer.Plan(ctx, job.Output, tables...)
		if err != nil {
			return err
		}

		batch = b
		if c.DryRun {
			return nil
		}

		return c.Writer.Apply(ctx, b)
	})

	if err != nil {
		return c.fail(ctx, log, job, &result, err)
	}

	result.Tables = batch.Stats
	for _, stats := range batch.Stats {
		if stats.Table == InventoryTable {
			result.RecordsUnchanged = stats.Unchanged
			if !c.DryRun {
				result.RecordsWritten = len(stats.Added) + len(stats.Updated)
			}
		}

		if len(stats.Stale) > 0 {
			log.Warn("stale rows", "table", stats.Table, "keys", stats.Stale)
		}
	}

	c.transition(&result, Done)

	result.Status = Success
	if result.RecordsSkipped > 0 {
		result.Status = Partial
	}

	result.Finished = c.now()
	c.journal(ctx, log, job, result)

	log.Info("run complete",
		"status", result.Status,
		"rows", result.RowsRead,
		"records", result.Records,
		"written", result.RecordsWritten,
		"unchanged", result.RecordsUnchanged,
		"skipped", result.RecordsSkipped,
		"retries", result.Retries,
		"duration", result.Duration())

	return result, nil
}

func (c *Controller) fail(ctx context.Context, log *slog.Logger, job Job, result *Result, err error) (Result, error) {
	c.transition(result, Failed)

	result.Status = Failure
	result.Err = err
	result.Finished = c.now()

	log.Error("run failed", "kind", Kind(err), "error", err, "retries", result.Retries)

	if _, locked := err.(*LockError); !locked {
		c.journal(ctx, log, job, *result)
	}

	return *result, err
}

// journal appends the run to the log sheet and prunes expired entries. Failures
// are logged and otherwise ignored.
func (c *Controller) journal(ctx context.Context, log *slog.Logger, job Job, result Result) {
	if c.Journal == nil || c.DryRun || job.Log == "" || ctx.Err() != nil {
		return
	}

	entry := gsheets.LogEntry{
		Timestamp: result.Finished,
		RunID:     result.ID,
		Status:    string(result.Status),
		Records:   result.Records,
		Written:   result.RecordsWritten,
		Unchanged: result.RecordsUnchanged,
		Skipped:   result.RecordsSkipped,
	}

	if result.Err != nil {
		entry.Error = fmt.Sprintf("%v: %v", Kind(result.Err), result.Err)
	}

	if err := c.Journal.AppendLog(ctx, job.Output, job.Log, entry); err != nil {
		log.Warn("error updating run log", "error", err)
		return
	}

	if job.LogRetention > 0 {
		if n, err := c.Journal.PruneLog(ctx, job.Output, job.Log, job.LogRetention, result.Finished); err != nil {
			log.Warn("error pruning run log", "error", err)
		} else if n > 0 {
			log.Debug("pruned run log", "rows", n)
		}
	}
}

func (c *Controller) transition(result *Result, state State) {
	c.mu.Lock()
	c.state = state
	c.mu.Unlock()

	result.State = state
}

func (c *Controller) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}

	return time.Now()
}

func (c *Controller) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}

	return slog.Default()
}
