package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farmledger/inventory-sheets/inventory"
)

const example = `
source: ${TEST_SOURCE}
feeds:
  - name: deliveries
    range: "'Deliveries 2024'!A2:G"
    direction: inflow
    key: [sku]
    weight: [weight_kg]
  - name: sales
    range: sales
    direction: release
    clean: sales_clean
outputs:
  inventory: "Stock!A1:L"
  summary: ""
  log: ""
rules:
  key_case: upper
  low_stock: "5"
retry:
  max_attempts: 3
  initial_interval: 500ms
lock:
  wait: 10s
`

func TestDefault(t *testing.T) {
	c := Default()

	require.NoError(t, c.Validate())

	job, err := c.Job()
	require.NoError(t, err)

	assert.Len(t, job.Feeds, 2)
	assert.Equal(t, inventory.Inflow, job.Feeds[0].Direction)
	assert.Equal(t, inventory.Release, job.Feeds[1].Direction)
	assert.Equal(t, "release_clean", job.Feeds[1].Clean)
	assert.Equal(t, "inventory", job.Inventory)
	assert.Equal(t, "summary", job.Summary)
	assert.Equal(t, inventory.LowerCase, job.Rules.KeyCase)
	assert.Equal(t, []string{"gizzard"}, job.Rules.WeightOnly)
	assert.Equal(t, 30*24*time.Hour, job.LogRetention)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "inventory-sheets.yaml")
	envfile := filepath.Join(dir, ".env")

	require.NoError(t, os.WriteFile(path, []byte(example), 0600))
	require.NoError(t, os.WriteFile(envfile, []byte("OUTPUT_SPREADSHEET_ID=output-from-dotenv\n"), 0600))

	t.Setenv("TEST_SOURCE", "source-from-yaml")
	t.Setenv("OUTPUT_SPREADSHEET_ID", "")
	os.Unsetenv("OUTPUT_SPREADSHEET_ID")

	c, err := Load(path, envfile, filepath.Join(dir, "missing.env"))
	require.NoError(t, err)
	require.NoError(t, c.Validate())

	assert.Equal(t, "source-from-yaml", c.Source)
	assert.Equal(t, "output-from-dotenv", c.Output)
	assert.Equal(t, 3, c.Policy().MaxAttempts)
	assert.Equal(t, 500*time.Millisecond, c.Policy().InitialInterval)
	assert.Equal(t, 10*time.Second, c.Lock.Wait)

	job, err := c.Job()
	require.NoError(t, err)

	assert.Equal(t, []inventory.Feed{
		{Name: "deliveries", Range: "'Deliveries 2024'!A2:G", Direction: inventory.Inflow, Key: []string{"sku"}, Weight: []string{"weight_kg"}},
		{Name: "sales", Range: "sales", Direction: inventory.Release, Clean: "sales_clean"},
	}, job.Feeds)
	assert.Equal(t, "Stock!A1:L", job.Inventory)
	assert.Equal(t, "", job.Summary)
	assert.Equal(t, inventory.UpperCase, job.Rules.KeyCase)
	assert.True(t, decimal.NewFromInt(5).Equal(job.Rules.LowStock))
}

func TestLoadWithMissingFile(t *testing.T) {
	t.Setenv("SOURCE_SPREADSHEET_ID", "1BxiMVs0XRA5nFMdKvBdBZjgmUUqptlbs74OgvE2upms")

	c, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "1BxiMVs0XRA5nFMdKvBdBZjgmUUqptlbs74OgvE2upms", c.Source)
	assert.Equal(t, Default().Feeds, c.Feeds)
}

func TestLoadWithInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "inventory-sheets.yaml")
	require.NoError(t, os.WriteFile(path, []byte("feeds: [\n"), 0600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := map[string]func(c *Config){
		"no feeds":          func(c *Config) { c.Feeds = nil },
		"duplicate feed":    func(c *Config) { c.Feeds[1].Name = c.Feeds[0].Name },
		"invalid range":     func(c *Config) { c.Feeds[0].Range = "stock!A0" },
		"invalid direction": func(c *Config) { c.Feeds[0].Direction = "sideways" },
		"shared worksheet":  func(c *Config) { c.Outputs.Summary = "inventory!A1" },
		"clean over output": func(c *Config) { c.Feeds[0].Clean = "summary" },
		"invalid key case":  func(c *Config) { c.Rules.KeyCase = "title" },
		"invalid low stock": func(c *Config) { c.Rules.LowStock = "lots" },
	}

	for name, modify := range tests {
		t.Run(name, func(t *testing.T) {
			c := Default()
			modify(c)

			assert.Error(t, c.Validate())
		})
	}
}
