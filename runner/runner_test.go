package runner

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"

	"github.com/farmledger/inventory-sheets/gsheets"
	"github.com/farmledger/inventory-sheets/gsheets/sheetstest"
	"github.com/farmledger/inventory-sheets/inventory"
)

var now = time.Date(2024, time.March, 5, 10, 20, 0, 0, time.UTC)

func setup(rows ...[]string) *sheetstest.Fake {
	f := sheetstest.New()
	f.AddSheet("source", "stock", append([][]string{{"Item", "Quantity"}}, rows...)...)
	f.AddSheet("output", "Sheet1")

	return f
}

func job() Job {
	return Job{
		Source: "source",
		Output: "output",
		Feeds: []inventory.Feed{
			{Name: "stock", Range: "stock", Direction: inventory.Inflow},
		},
		Inventory: "inventory",
		Log:       "Log",
	}
}

func controller(f *sheetstest.Fake) *Controller {
	return &Controller{
		Reader:  gsheets.Reader{API: f},
		Writer:  gsheets.Writer{API: f},
		Journal: gsheets.Writer{API: f},
		Policy: Policy{
			MaxAttempts:     3,
			InitialInterval: time.Millisecond,
			MaxInterval:     5 * time.Millisecond,
		},
		Now: func() time.Time { return now },
	}
}

// quantities returns the 'quantity' column of the inventory sheet keyed by item,
// failing if an item appears on more than one row.
func quantities(t *testing.T, f *sheetstest.Fake) map[string]string {
	t.Helper()

	m := map[string]string{}
	for _, row := range f.Rows("output", "inventory")[1:] {
		if len(row) == 0 {
			continue
		}

		_, ok := m[row[0]]
		require.False(t, ok, "duplicate row for %v", row[0])

		m[row[0]] = row[3]
	}

	return m
}

func TestRun(t *testing.T) {
	f := setup([]string{"A123", "5"}, []string{"B456", "3"}, []string{"A123", "2"})
	c := controller(f)

	result, err := c.Run(context.Background(), job())

	require.NoError(t, err)
	assert.Equal(t, Success, result.Status)
	assert.Equal(t, Done, result.State)
	assert.Equal(t, Done, c.State())
	assert.Equal(t, 3, result.RowsRead)
	assert.Equal(t, 2, result.Records)
	assert.Equal(t, 2, result.RecordsWritten)
	assert.Equal(t, 0, result.RecordsSkipped)
	assert.Equal(t, 0, result.Retries)
	assert.NotEmpty(t, result.ID)

	assert.Equal(t, map[string]string{"A123": "7", "B456": "3"}, quantities(t, f))
	assert.Equal(t, inventory.RecordHeader, f.Rows("output", "inventory")[0])

	log := f.Rows("output", "Log")
	require.Len(t, log, 2)
	assert.Equal(t, []string{"2024-03-05 10:20:00", result.ID, "success", "2", "2", "0", "0"}, log[1])
}

func TestRunIgnoresBlankRowsInRowCount(t *testing.T) {
	f := setup([]string{"A123", "5"}, []string{}, []string{"", " "}, []string{"B456", "3"}, []string{"", "lots"})
	c := controller(f)

	result, err := c.Run(context.Background(), job())

	require.NoError(t, err)
	assert.Equal(t, 3, result.RowsRead)
	assert.Equal(t, 2, result.Records)
	assert.Equal(t, 1, result.RecordsSkipped)
}

func TestRunIsIdempotent(t *testing.T) {
	f := setup([]string{"A123", "5"}, []string{"B456", "3"}, []string{"A123", "2"})

	_, err := controller(f).Run(context.Background(), job())
	require.NoError(t, err)

	before := f.Rows("output", "inventory")
	updates := f.Calls("update")

	j := job()
	j.Log = ""

	result, err := controller(f).Run(context.Background(), j)
	require.NoError(t, err)

	assert.Equal(t, 0, result.RecordsWritten)
	assert.Equal(t, 2, result.RecordsUnchanged)
	assert.Equal(t, before, f.Rows("output", "inventory"))
	assert.Equal(t, updates, f.Calls("update"))
}

func TestRunRetriesTransientWriteError(t *testing.T) {
	f := setup([]string{"A123", "5"}, []string{"B456", "3"}, []string{"A123", "2"})

	var mu sync.Mutex
	failed := false
	f.Fail = func(op string) error {
		mu.Lock()
		defer mu.Unlock()

		if op == "update" && !failed {
			failed = true
			return &googleapi.Error{Code: http.StatusTooManyRequests, Message: "Quota exceeded"}
		}

		return nil
	}

	result, err := controller(f).Run(context.Background(), job())

	require.NoError(t, err)
	assert.Equal(t, Success, result.Status)
	assert.GreaterOrEqual(t, result.Retries, 1)
	assert.Equal(t, map[string]string{"A123": "7", "B456": "3"}, quantities(t, f))
}

func TestRunWithSkippedRowsIsPartial(t *testing.T) {
	f := setup([]string{"A123", "5"}, []string{"", "4"}, []string{"B456", "x"})

	result, err := controller(f).Run(context.Background(), job())

	require.NoError(t, err)
	assert.Equal(t, Partial, result.Status)
	assert.Equal(t, 2, result.RecordsSkipped)
	assert.Equal(t, []inventory.Skip{
		{Feed: "stock", Row: 3, Reason: "missing key"},
		{Feed: "stock", Row: 4, Reason: "invalid quantity 'x'"},
	}, result.Skipped)
	assert.Equal(t, map[string]string{"A123": "5"}, quantities(t, f))
}

func TestRunWithMissingSourceSheet(t *testing.T) {
	f := setup()
	j := job()
	j.Feeds[0].Range = "stock_inflow"

	c := controller(f)
	result, err := c.Run(context.Background(), j)

	var rerr *gsheets.ReadError

	require.Error(t, err)
	assert.ErrorAs(t, err, &rerr)
	assert.Equal(t, Failure, result.Status)
	assert.Equal(t, Failed, result.State)
	assert.Equal(t, Failed, c.State())
	assert.Equal(t, "read", result.Kind())
	assert.Equal(t, 0, result.Retries)
	assert.NotContains(t, f.Sheets("output"), "inventory")

	log := f.Rows("output", "Log")
	require.Len(t, log, 2)
	assert.Equal(t, "failure", log[1][2])
}

func TestRunWithInvalidHeader(t *testing.T) {
	f := sheetstest.New()
	f.AddSheet("source", "stock", []string{"Name", "Count"}, []string{"A123", "5"})
	f.AddSheet("output", "Sheet1")

	result, err := controller(f).Run(context.Background(), job())

	require.Error(t, err)
	assert.Equal(t, "schema", result.Kind())
	assert.Equal(t, Failure, result.Status)
	assert.NotContains(t, f.Sheets("output"), "inventory")
}

func TestRunWithExhaustedRetries(t *testing.T) {
	f := setup([]string{"A123", "5"})
	f.Fail = func(op string) error {
		if op == "get" {
			return &googleapi.Error{Code: http.StatusServiceUnavailable}
		}

		return nil
	}

	result, err := controller(f).Run(context.Background(), job())

	require.Error(t, err)
	assert.Equal(t, "read", result.Kind())
	assert.Equal(t, 2, result.Retries)
	assert.Equal(t, 3, f.Calls("get"))
}

func TestRunWithCancelledContext(t *testing.T) {
	f := setup([]string{"A123", "5"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := controller(f).Run(ctx, job())

	require.Error(t, err)
	assert.Equal(t, "cancelled", result.Kind())
	assert.NotContains(t, f.Sheets("output"), "Log")
}

type busy struct{}

func (busy) Lock(ctx context.Context) (func(), error) {
	return nil, errors.New("lock held by another process")
}

func TestRunWhenLocked(t *testing.T) {
	f := setup([]string{"A123", "5"})

	c := controller(f)
	c.Locker = busy{}

	result, err := c.Run(context.Background(), job())

	require.Error(t, err)
	assert.Equal(t, "locked", result.Kind())
	assert.Equal(t, 0, f.Calls("get"))
	assert.NotContains(t, f.Sheets("output"), "Log")
}

func TestDryRun(t *testing.T) {
	f := setup([]string{"A123", "5"}, []string{"B456", "3"})

	c := controller(f)
	c.DryRun = true

	result, err := c.Run(context.Background(), job())

	require.NoError(t, err)
	assert.True(t, result.DryRun)
	assert.Equal(t, 0, result.RecordsWritten)
	require.Len(t, result.Tables, 1)
	assert.Equal(t, []string{"A123", "B456"}, result.Tables[0].Added)
	assert.Equal(t, []string{"Sheet1"}, f.Sheets("output"))
	assert.Equal(t, 0, f.Calls("update"))
}

type mutex chan struct{}

func (m mutex) Lock(ctx context.Context) (func(), error) {
	select {
	case m <- struct{}{}:
		return func() { <-m }, nil

	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func TestOverlappingRuns(t *testing.T) {
	tests := map[string]Locker{
		"locked":   make(mutex, 1),
		"unlocked": nil,
	}

	for name, locker := range tests {
		t.Run(name, func(t *testing.T) {
			f := setup([]string{"A123", "5"}, []string{"A123", "2"})
			f.AddSheet("output", "inventory", inventory.RecordHeader)
			f.AddSheet("output", "Log", gsheets.LogHeader)

			var wg sync.WaitGroup
			errs := make(chan error, 4)

			for i := 0; i < 4; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()

					c := controller(f)
					c.Locker = locker
					if _, err := c.Run(context.Background(), job()); err != nil {
						errs <- err
					}
				}()
			}

			wg.Wait()
			close(errs)

			for err := range errs {
				t.Errorf("Unexpected error (%v)", err)
			}

			assert.Equal(t, map[string]string{"A123": "7"}, quantities(t, f))
			assert.Len(t, f.Rows("output", "Log"), 5)
		})
	}
}

func TestKind(t *testing.T) {
	tests := []struct {
		err  error
		kind string
	}{
		{nil, ""},
		{&LockError{Err: errors.New("busy")}, "locked"},
		{&inventory.SchemaError{Feed: "stock", Reason: "missing 'item' column"}, "schema"},
		{&gsheets.ReadError{Spreadsheet: "source", Range: "stock", Err: errors.New("not found")}, "read"},
		{&gsheets.TransientAPIError{Op: "read", Err: &gsheets.ReadError{Err: errors.New("429")}}, "read"},
		{&gsheets.WriteError{Spreadsheet: "output", Err: errors.New("quota")}, "write"},
		{&gsheets.TransientAPIError{Op: "plan", Err: errors.New("timeout")}, "transient"},
		{fmt.Errorf("wrapped (%w)", context.Canceled), "cancelled"},
		{context.DeadlineExceeded, "cancelled"},
		{errors.New("unexpected"), "internal"},
	}

	for _, test := range tests {
		assert.Equal(t, test.kind, Kind(test.err), "%v", test.err)
	}
}
