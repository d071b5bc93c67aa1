// Package metrics publishes the outcome of a run to a Prometheus Pushgateway.
package metrics

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"github.com/farmledger/inventory-sheets/runner"
)

const namespace = "inventory_sheets"

// Metrics holds the gauges describing the last run.
type Metrics struct {
	LastRun      prometheus.Gauge
	LastSuccess  prometheus.Gauge
	Duration     prometheus.Gauge
	Status       *prometheus.GaugeVec
	RowsRead     prometheus.Gauge
	Records      prometheus.Gauge
	Written      prometheus.Gauge
	Unchanged    prometheus.Gauge
	Skipped      prometheus.Gauge
	Retries      prometheus.Gauge
	TableChanges *prometheus.GaugeVec
	registry     *prometheus.Registry
}

// New creates the run gauges on a dedicated registry.
func New() *Metrics {
	gauge := func(name, help string) prometheus.Gauge {
		return prometheus.NewGauge(prometheus.GaugeOpts{Namespace: namespace, Name: name, Help: help})
	}

	m := Metrics{
		LastRun:     gauge("last_run_timestamp_seconds", "Time the last run finished"),
		LastSuccess: gauge("last_success_timestamp_seconds", "Time the last successful (or partially successful) run finished"),
		Duration:    gauge("last_run_duration_seconds", "Duration of the last run"),
		Status: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{Namespace: namespace, Name: "last_run_status", Help: "Status of the last run (1 for the current status/kind)"},
			[]string{"status", "kind"},
		),
		RowsRead:  gauge("rows_read", "Source rows read by the last run"),
		Records:   gauge("records", "Inventory records derived by the last run"),
		Written:   gauge("records_written", "Inventory records written by the last run"),
		Unchanged: gauge("records_unchanged", "Inventory records left unchanged by the last run"),
		Skipped:   gauge("rows_skipped", "Source rows skipped by the last run"),
		Retries:   gauge("retries", "Retries after transient API errors in the last run"),
		TableChanges: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{Namespace: namespace, Name: "table_changes", Help: "Row changes per output table in the last run"},
			[]string{"table", "change"},
		),
		registry: prometheus.NewRegistry(),
	}

	m.registry.MustRegister(m.LastRun, m.Duration, m.Status, m.RowsRead, m.Records, m.Written, m.Unchanged, m.Skipped, m.Retries, m.TableChanges)

	return &m
}

// Observe sets the gauges from a run result.
func (m *Metrics) Observe(r runner.Result) {
	m.LastRun.Set(float64(r.Finished.Unix()))
	m.Duration.Set(r.Duration().Seconds())
	m.Status.Reset()
	m.Status.WithLabelValues(string(r.Status), r.Kind()).Set(1)
	m.RowsRead.Set(float64(r.RowsRead))
	m.Records.Set(float64(r.Records))
	m.Written.Set(float64(r.RecordsWritten))
	m.Unchanged.Set(float64(r.RecordsUnchanged))
	m.Skipped.Set(float64(r.RecordsSkipped))
	m.Retries.Set(float64(r.Retries))

	m.TableChanges.Reset()
	for _, t := range r.Tables {
		m.TableChanges.WithLabelValues(t.Table, "added").Set(float64(len(t.Added)))
		m.TableChanges.WithLabelValues(t.Table, "updated").Set(float64(len(t.Updated)))
		m.TableChanges.WithLabelValues(t.Table, "unchanged").Set(float64(t.Unchanged))
		m.TableChanges.WithLabelValues(t.Table, "stale").Set(float64(len(t.Stale)))
		m.TableChanges.WithLabelValues(t.Table, "duplicates").Set(float64(len(t.Duplicates)))
		m.TableChanges.WithLabelValues(t.Table, "cleared").Set(float64(t.Cleared))
	}

	if r.Status != runner.Failure {
		m.LastSuccess.Set(float64(r.Finished.Unix()))
	}
}

// Pushgateway pushes run metrics to a Prometheus Pushgateway, grouped by job and
// instance.
type Pushgateway struct {
	URL      string
	Job      string
	Instance string
	Timeout  time.Duration
	Client   *http.Client
}

// Push updates the job/instance group with the run result. The
// last success timestamp is only pushed for successful runs so that a failed run
// does not overwrite it.
func (p Pushgateway) Push(ctx context.Context, m *Metrics, r runner.Result) error {
	if p.URL == "" {
		return nil
	}

	job := p.Job
	if job == "" {
		job = namespace
	}

	timeout := p.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	m.Observe(r)

	pusher := push.New(p.URL, job).Gatherer(m.registry)
	if r.Status != runner.Failure {
		pusher = pusher.Collector(m.LastSuccess)
	}

	if p.Instance != "" {
		pusher = pusher.Grouping("instance", p.Instance)
	}

	if p.Client != nil {
		pusher = pusher.Client(p.Client)
	}

	if err := pusher.AddContext(ctx); err != nil {
		return fmt.Errorf("error pushing metrics to %v (%w)", p.URL, err)
	}

	return nil
}
