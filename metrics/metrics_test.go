package metrics

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farmledger/inventory-sheets/gsheets"
	"github.com/farmledger/inventory-sheets/runner"
)

var result = runner.Result{
	ID:               "4f1c",
	Status:           runner.Partial,
	State:            runner.Done,
	Started:          time.Date(2024, time.March, 5, 10, 20, 0, 0, time.UTC),
	Finished:         time.Date(2024, time.March, 5, 10, 20, 3, 0, time.UTC),
	RowsRead:         10,
	Records:          4,
	RecordsWritten:   2,
	RecordsUnchanged: 2,
	RecordsSkipped:   1,
	Retries:          1,
	Tables: []gsheets.Stats{
		{Table: "inventory", Added: []string{"A123"}, Updated: []string{"B456"}, Unchanged: 2, Stale: []string{"C789"}},
	},
}

func TestObserve(t *testing.T) {
	m := New()
	m.Observe(result)

	assert.Equal(t, 10.0, testutil.ToFloat64(m.RowsRead))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.Records))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Written))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Skipped))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.Duration))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Status.WithLabelValues("partial", "")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TableChanges.WithLabelValues("inventory", "stale")))
	assert.Equal(t, float64(result.Finished.Unix()), testutil.ToFloat64(m.LastSuccess))

	failed := result
	failed.Status = runner.Failure
	failed.Err = &gsheets.WriteError{Spreadsheet: "output", Err: errors.New("quota")}
	failed.Finished = failed.Finished.Add(time.Hour)

	m.Observe(failed)

	assert.Equal(t, 1, testutil.CollectAndCount(m.Status))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Status.WithLabelValues("failure", "write")))
	assert.Equal(t, float64(result.Finished.Unix()), testutil.ToFloat64(m.LastSuccess))
}

func TestPush(t *testing.T) {
	var mu sync.Mutex
	var method, path string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		method, path = r.Method, r.URL.Path
		mu.Unlock()

		w.WriteHeader(http.StatusOK)
	}))

	defer srv.Close()

	p := Pushgateway{URL: srv.URL, Instance: "farm1"}
	require.NoError(t, p.Push(context.Background(), New(), result))

	mu.Lock()
	defer mu.Unlock()

	assert.Equal(t, http.MethodPost, method)
	assert.Equal(t, "/metrics/job/inventory_sheets/instance/farm1", path)
}

func TestPushError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))

	defer srv.Close()

	err := Pushgateway{URL: srv.URL}.Push(context.Background(), New(), result)
	assert.Error(t, err)
}

func TestPushWithoutGateway(t *testing.T) {
	assert.NoError(t, Pushgateway{}.Push(context.Background(), New(), result))
}
