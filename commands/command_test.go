package commands

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farmledger/inventory-sheets/config"
	"github.com/farmledger/inventory-sheets/inventory"
	"github.com/farmledger/inventory-sheets/lockfile"
	"github.com/farmledger/inventory-sheets/runner"
)

const source = "1BxiMVs0XRA5nFMdKvBdBZjgmUUqptlbs74OgvE2upms"
const output = "1Hk3nE8sGQ9qkX7v0bYw2mJc5dLrT4uPzA6fWiNoVeCs"

func TestSpreadsheetID(t *testing.T) {
	tests := []string{
		source,
		"https://docs.google.com/spreadsheets/d/" + source,
		"https://docs.google.com/spreadsheets/d/" + source + "/edit#gid=0",
		"  https://docs.google.com/spreadsheets/d/" + source + "/edit?usp=sharing ",
	}

	for _, s := range tests {
		id, err := spreadsheetID(s)
		require.NoError(t, err, s)
		assert.Equal(t, source, id, s)
	}
}

func TestSpreadsheetIDWithInvalidURL(t *testing.T) {
	for _, s := range []string{"", "inventory", "https://example.com/spreadsheets/d/abc", "https://docs.google.com/spreadsheets/d/"} {
		_, err := spreadsheetID(s)
		assert.Error(t, err, s)
	}
}

func TestArguments(t *testing.T) {
	type key string

	ctx := context.WithValue(context.Background(), key("run"), "nightly")
	opts := Options{Config: "inventory-sheets.yaml", Debug: true}

	options, c := arguments(ctx, &opts)

	assert.Same(t, &opts, options)
	assert.Equal(t, "nightly", c.Value(key("run")))

	options, c = arguments()

	assert.NotNil(t, options)
	assert.Equal(t, context.Background(), c)
}

func TestJob(t *testing.T) {
	cmd := command{}
	conf := config.Default()
	conf.Source = "https://docs.google.com/spreadsheets/d/" + source + "/edit"

	job, err := cmd.job(conf, "", output)
	require.NoError(t, err)

	assert.Equal(t, source, job.Source)
	assert.Equal(t, output, job.Output)
	assert.Equal(t, inventory.LowerCase, job.Rules.KeyCase)
	assert.Len(t, job.Feeds, 2)
}

func TestJobWithoutSpreadsheets(t *testing.T) {
	cmd := command{}

	_, err := cmd.job(config.Default(), "", output)
	assert.ErrorContains(t, err, "--source")

	_, err = cmd.job(config.Default(), source, "")
	assert.ErrorContains(t, err, "--output")

	_, err = cmd.job(config.Default(), source, "inventory")
	assert.Error(t, err)
}

func TestLocker(t *testing.T) {
	workdir := t.TempDir()
	cmd := command{workdir: workdir}
	conf := config.Default()

	assert.Equal(t, lockfile.Lockfile{Path: filepath.Join(workdir, "inventory-sheets.lock"), Wait: conf.Lock.Wait}, cmd.locker(conf, ""))

	conf.Lock.File = "/var/run/inventory.lock"
	assert.Equal(t, lockfile.Lockfile{Path: "/var/run/inventory.lock", Wait: conf.Lock.Wait}, cmd.locker(conf, ""))
	assert.Equal(t, lockfile.Lockfile{Path: "sync.lock", Wait: conf.Lock.Wait}, cmd.locker(conf, "sync.lock"))
}

func TestCompareValidate(t *testing.T) {
	job := runner.Job{
		Inventory: "inventory",
		Summary:   "summary!A1",
		Log:       "Log!A1:H",
		Feeds: []inventory.Feed{
			{Name: "stock_inflow", Range: "stock_inflow", Clean: "stock_inflow_clean"},
		},
	}

	tests := map[string]bool{
		"":                      true,
		"Audit!A1:C":            true,
		"stock_inflow!A1:C":     true,
		"summary!H1:J":          false,
		"stock_inflow_clean!A1": false,
		"inventory":             false,
		"Audit!A0":              false,
	}

	for report, ok := range tests {
		cmd := Compare{report: report}
		err := cmd.validate(job)

		if ok {
			assert.NoError(t, err, report)
		} else {
			assert.Error(t, err, report)
		}
	}
}
