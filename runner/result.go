package runner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/farmledger/inventory-sheets/gsheets"
	"github.com/farmledger/inventory-sheets/inventory"
)

type State int

const (
	Idle State = iota
	Reading
	Transforming
	Writing
	Done
	Failed
)

func (s State) String() string {
	return [...]string{"idle", "reading", "transforming", "writing", "done", "failed"}[s]
}

type Status string

const (
	Success Status = "success"
	Partial Status = "partial"
	Failure Status = "failure"
)

// Result is the outcome of a single run.
type Result struct {
	ID               string
	Status           Status
	State            State
	Started          time.Time
	Finished         time.Time
	RowsRead         int
	Records          int
	RecordsWritten   int
	RecordsUnchanged int
	RecordsSkipped   int
	Retries          int
	DryRun           bool
	Tables           []gsheets.Stats
	Skipped          []inventory.Skip
	Err              error
}

// Kind returns the error kind of a failed run.
func (r Result) Kind() string {
	return Kind(r.Err)
}

func (r Result) Duration() time.Duration {
	return r.Finished.Sub(r.Started)
}

// LockError is returned when the run lock could not be acquired, usually because
// another run is in progress.
type LockError struct {
	Err error
}

func (e *LockError) Error() string {
	return fmt.Sprintf("could not acquire run lock (%v)", e.Err)
}

func (e *LockError) Unwrap() error {
	return e.Err
}

// Kind classifies a run error as one of read, schema, write, transient, locked,
// cancelled or internal.
func Kind(err error) string {
	var lerr *LockError
	var serr *inventory.SchemaError
	var rerr *gsheets.ReadError
	var werr *gsheets.WriteError
	var terr *gsheets.TransientAPIError

	switch {
	case err == nil:
		return ""

	case errors.As(err, &lerr):
		return "locked"

	case errors.Is(err, context.Canceled):
		return "cancelled"

	case errors.As(err, &serr):
		return "schema"

	case errors.As(err, &rerr):
		return "read"

	case errors.As(err, &werr):
		return "write"

	case errors.As(err, &terr):
		return "transient"

	case errors.Is(err, context.DeadlineExceeded):
		return "cancelled"

	default:
		return "internal"
	}
}
