// Package config loads the inventory-sheets configuration from a YAML file,
// optional .env files and the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/farmledger/inventory-sheets/gsheets"
	"github.com/farmledger/inventory-sheets/inventory"
	"github.com/farmledger/inventory-sheets/runner"
)

type Config struct {
	Source      string `yaml:"source"`
	Output      string `yaml:"output"`
	Credentials string `yaml:"credentials"`

	// service account JSON, only ever taken from the environment
	CredentialsJSON string `yaml:"-"`

	Feeds   []Feed  `yaml:"feeds"`
	Outputs Outputs `yaml:"outputs"`
	Rules   Rules   `yaml:"rules"`
	Retry   Retry   `yaml:"retry"`
	API     API     `yaml:"api"`
	Lock    Lock    `yaml:"lock"`
	Metrics Metrics `yaml:"metrics"`
	Logging Logging `yaml:"logging"`
}

type Feed struct {
	Name      string   `yaml:"name"`
	Range     string   `yaml:"range"`
	Direction string   `yaml:"direction"`
	Key       []string `yaml:"key"`
	Quantity  []string `yaml:"quantity"`
	Weight    []string `yaml:"weight"`
	Date      []string `yaml:"date"`
	Clean     string   `yaml:"clean"`
}

type Outputs struct {
	Inventory    string        `yaml:"inventory"`
	Summary      string        `yaml:"summary"`
	Log          string        `yaml:"log"`
	LogRetention time.Duration `yaml:"log_retention"`
}

type Rules struct {
	KeyCase    string   `yaml:"key_case"`
	WeightOnly []string `yaml:"weight_only"`
	LowStock   string   `yaml:"low_stock"`
}

type Retry struct {
	MaxAttempts     int           `yaml:"max_attempts"`
	InitialInterval time.Duration `yaml:"initial_interval"`
	MaxInterval     time.Duration `yaml:"max_interval"`
	Multiplier      float64       `yaml:"multiplier"`
	Jitter          float64       `yaml:"jitter"`
}

type API struct {
	RequestsPerMinute int           `yaml:"requests_per_minute"`
	Timeout           time.Duration `yaml:"timeout"`
}

type Lock struct {
	File string        `yaml:"file"`
	Wait time.Duration `yaml:"wait"`
}

type Metrics struct {
	Pushgateway string `yaml:"pushgateway"`
	Job         string `yaml:"job"`
	Instance    string `yaml:"instance"`
}

type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the configuration for the standard workbook layout: the
// 'stock_inflow' and 'release' worksheets are merged into the 'inventory' and
// 'summary' worksheets of the output spreadsheet.
func Default() *Config {
	return &Config{
		Feeds: []Feed{
			{
				Name:      "stock_inflow",
				Range:     "stock_inflow",
				Direction: "inflow",
				Key:       []string{"product_type", "product"},
				Clean:     "stock_inflow_clean",
			},
			{
				Name:      "release",
				Range:     "release",
				Direction: "release",
				Key:       []string{"product", "product_type"},
				Clean:     "release_clean",
			},
		},
		Outputs: Outputs{
			Inventory:    "inventory",
			Summary:      "summary",
			Log:          "Log!A1:H",
			LogRetention: 30 * 24 * time.Hour,
		},
		Rules: Rules{
			KeyCase:    string(inventory.LowerCase),
			WeightOnly: []string{"gizzard"},
			LowStock:   "0",
		},
		Retry: Retry{
			MaxAttempts:     runner.DefaultPolicy.MaxAttempts,
			InitialInterval: runner.DefaultPolicy.InitialInterval,
			MaxInterval:     runner.DefaultPolicy.MaxInterval,
			Multiplier:      runner.DefaultPolicy.Multiplier,
			Jitter:          runner.DefaultPolicy.Jitter,
		},
		API: API{
			RequestsPerMinute: gsheets.DefaultRequestsPerMinute,
			Timeout:           gsheets.DefaultRequestTimeout,
		},
		Lock: Lock{
			Wait: time.Minute,
		},
		Logging: Logging{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load returns the default configuration overlaid with the YAML file (if it
// exists), the .env files and the environment. Environment variables in the YAML
// file are expanded.
func Load(path string, envfiles ...string) (*Config, error) {
	for _, f := range envfiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("error loading %v (%w)", f, err)
		}
	}

	c := Default()

	if path != "" {
		bytes, err := os.ReadFile(path)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		} else if err == nil {
			if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(bytes))), c); err != nil {
				return nil, fmt.Errorf("error parsing %v (%w)", path, err)
			}
		}
	}

	c.environment()

	return c, nil
}

func (c *Config) environment() {
	set := func(v *string, key string) {
		if s, ok := os.LookupEnv(key); ok && strings.TrimSpace(s) != "" {
			*v = strings.TrimSpace(s)
		}
	}

	set(&c.Source, "SOURCE_SPREADSHEET_ID")
	set(&c.Output, "OUTPUT_SPREADSHEET_ID")
	set(&c.Credentials, "GOOGLE_APPLICATION_CREDENTIALS")
	set(&c.CredentialsJSON, "GOOGLE_CREDENTIALS")
	set(&c.Metrics.Pushgateway, "PUSHGATEWAY_URL")
	set(&c.Logging.Level, "LOG_LEVEL")
	set(&c.Logging.Format, "LOG_FORMAT")
}

// Validate checks the feeds, output ranges and rules. The spreadsheet IDs are
// not checked since they may still be supplied on the command line.
func (c *Config) Validate() error {
	if len(c.Feeds) == 0 {
		return fmt.Errorf("no source feeds configured")
	}

	names := map[string]bool{}
	targets := map[string]string{}

	target := func(area, owner string) error {
		if area == "" {
			return nil
		}

		a, err := gsheets.ParseArea(area)
		if err != nil {
			return fmt.Errorf("%v: %w", owner, err)
		}

		if other, ok := targets[a.Sheet]; ok {
			return fmt.Errorf("%v and %v both write to worksheet '%v'", other, owner, a.Sheet)
		}

		targets[a.Sheet] = owner

		return nil
	}

	for _, f := range c.Feeds {
		if strings.TrimSpace(f.Name) == "" {
			return fmt.Errorf("feed with missing name")
		}

		if names[f.Name] {
			return fmt.Errorf("duplicate feed '%v'", f.Name)
		}

		names[f.Name] = true

		if _, err := gsheets.ParseArea(f.Range); err != nil {
			return fmt.Errorf("feed '%v': %w", f.Name, err)
		}

		if _, err := direction(f.Direction); err != nil {
			return fmt.Errorf("feed '%v': %w", f.Name, err)
		}

		if err := target(f.Clean, fmt.Sprintf("feed '%v'", f.Name)); err != nil {
			return err
		}
	}

	if err := target(c.Outputs.Inventory, "inventory"); err != nil {
		return err
	}

	if err := target(c.Outputs.Summary, "summary"); err != nil {
		return err
	}

	if err := target(c.Outputs.Log, "log"); err != nil {
		return err
	}

	switch inventory.KeyCase(c.Rules.KeyCase) {
	case "", inventory.PreserveCase, inventory.LowerCase, inventory.UpperCase:
	default:
		return fmt.Errorf("invalid key_case '%v' - expected preserve, lower or upper", c.Rules.KeyCase)
	}

	if _, err := lowStock(c.Rules.LowStock); err != nil {
		return err
	}

	return nil
}

// Job converts the configuration to a run job. Validate should be invoked first.
func (c *Config) Job() (runner.Job, error) {
	job := runner.Job{
		Source:       c.Source,
		Output:       c.Output,
		Feeds:        []inventory.Feed{},
		Inventory:    c.Outputs.Inventory,
		Summary:      c.Outputs.Summary,
		Log:          c.Outputs.Log,
		LogRetention: c.Outputs.LogRetention,
		Rules: inventory.Rules{
			KeyCase:    inventory.KeyCase(c.Rules.KeyCase),
			WeightOnly: c.Rules.WeightOnly,
		},
	}

	for _, f := range c.Feeds {
		d, err := direction(f.Direction)
		if err != nil {
			return job, fmt.Errorf("feed '%v': %w", f.Name, err)
		}

		job.Feeds = append(job.Feeds, inventory.Feed{
			Name:      f.Name,
			Range:     f.Range,
			Direction: d,
			Key:       f.Key,
			Quantity:  f.Quantity,
			Weight:    f.Weight,
			Date:      f.Date,
			Clean:     f.Clean,
		})
	}

	low, err := lowStock(c.Rules.LowStock)
	if err != nil {
		return job, err
	}

	job.Rules.LowStock = low

	return job, nil
}

// Policy returns the retry policy.
func (c *Config) Policy() runner.Policy {
	return runner.Policy{
		MaxAttempts:     c.Retry.MaxAttempts,
		InitialInterval: c.Retry.InitialInterval,
		MaxInterval:     c.Retry.MaxInterval,
		Multiplier:      c.Retry.Multiplier,
		Jitter:          c.Retry.Jitter,
	}
}

func direction(s string) (inventory.Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "inflow", "in":
		return inventory.Inflow, nil

	case "release", "out":
		return inventory.Release, nil

	default:
		return inventory.Inflow, fmt.Errorf("invalid direction '%v' - expected inflow or release", s)
	}
}

func lowStock(s string) (decimal.Decimal, error) {
	if strings.TrimSpace(s) == "" {
		return decimal.Zero, nil
	}

	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid low_stock '%v' (%w)", s, err)
	}

	return d, nil
}
