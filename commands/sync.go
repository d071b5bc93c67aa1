package commands

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/farmledger/inventory-sheets/config"
	"github.com/farmledger/inventory-sheets/gsheets"
	"github.com/farmledger/inventory-sheets/lockfile"
	"github.com/farmledger/inventory-sheets/metrics"
	"github.com/farmledger/inventory-sheets/runner"
)

var SyncCmd = Sync{
	command: command{
		workdir:     DEFAULT_WORKDIR,
		credentials: "",
		debug:       false,
	},

	source:   "",
	output:   "",
	lockfile: "",
	nolock:   false,
	dryrun:   false,
}

type Sync struct {
	command
	source   string
	output   string
	lockfile string
	nolock   bool
	dryrun   bool
}

func (cmd *Sync) Name() string {
	return "sync"
}

func (cmd *Sync) Description() string {
	return "Rebuilds the inventory, summary and cleaned ledger worksheets from the source spreadsheet"
}

func (cmd *Sync) Usage() string {
	return "--source <url> --output <url>"
}

func (cmd *Sync) Help() {
	fmt.Println()
	fmt.Printf("  Usage: %s [--debug] [--config <file>] sync [options] --source <URL> --output <URL>\n", APP)
	fmt.Println()
	fmt.Println("  Reads the stock inflow and release worksheets from the source spreadsheet, derives the")
	fmt.Println("  current inventory and monthly summary and writes them to the output spreadsheet. Rows")
	fmt.Println("  that are already up to date are not rewritten so the command can safely be rerun.")
	fmt.Println()

	helpOptions(cmd.FlagSet())

	fmt.Println()
	fmt.Println("  Examples:")
	fmt.Println(`    inventory-sheets sync --source "https://docs.google.com/spreadsheets/d/1BxiMVs0XRA5nFMdKvBdBZjgmUUqptlbs74OgvE2upms" \`)
	fmt.Println(`                          --output "https://docs.google.com/spreadsheets/d/1Hk3nE8sGQ9qkX7v0bYw2mJc5dLrT4uPzA6fWiNoVeCs"`)
	fmt.Println()
	fmt.Println(`    SOURCE_SPREADSHEET_ID=... OUTPUT_SPREADSHEET_ID=... inventory-sheets --debug sync --dryrun`)
	fmt.Println()
}

func (cmd *Sync) FlagSet() *flag.FlagSet {
	flagset := cmd.flagset("sync")

	flagset.StringVar(&cmd.source, "source", cmd.source, "Source spreadsheet URL or ID. Defaults to $SOURCE_SPREADSHEET_ID")
	flagset.StringVar(&cmd.output, "output", cmd.output, "Output spreadsheet URL or ID. Defaults to $OUTPUT_SPREADSHEET_ID")
	flagset.StringVar(&cmd.lockfile, "lockfile", cmd.lockfile, "Run lock file. Defaults to <workdir>/inventory-sheets.lock")
	flagset.BoolVar(&cmd.nolock, "no-lock", cmd.nolock, "Runs without acquiring the run lock")
	flagset.BoolVar(&cmd.dryrun, "dryrun", cmd.dryrun, "Plans the updates without writing to the output spreadsheet")

	return flagset
}

func (cmd *Sync) Execute(args ...any) error {
	options, ctx := arguments(args...)

	conf, err := cmd.load(options)
	if err != nil {
		return err
	}

	job, err := cmd.job(conf, cmd.source, cmd.output)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	scope := SHEETS
	if cmd.dryrun {
		scope = READONLY
	}

	google, err := client(ctx, conf, scope)
	if err != nil {
		return err
	}

	controller := cmd.controller(google, conf, cmd.dryrun)

	if !cmd.nolock && !cmd.dryrun {
		controller.Locker = cmd.locker(conf, cmd.lockfile)
	}

	result, err := controller.Run(ctx, job)

	summarise(result)

	pushgateway := metrics.Pushgateway{
		URL:      conf.Metrics.Pushgateway,
		Job:      conf.Metrics.Job,
		Instance: conf.Metrics.Instance,
	}

	if !cmd.dryrun {
		if err := pushgateway.Push(context.Background(), metrics.New(), result); err != nil {
			warnf("%v", err)
		}
	}

	if err != nil {
		return fmt.Errorf("sync failed [%v] (%w)", result.Kind(), err)
	}

	return nil
}

// job resolves the spreadsheet IDs, preferring the command line to the configuration.
func (cmd *command) job(conf *config.Config, source, output string) (runner.Job, error) {
	if strings.TrimSpace(source) != "" {
		conf.Source = source
	}

	if strings.TrimSpace(output) != "" {
		conf.Output = output
	}

	if strings.TrimSpace(conf.Source) == "" {
		return runner.Job{}, fmt.Errorf("--source (or SOURCE_SPREADSHEET_ID) is required")
	}

	if strings.TrimSpace(conf.Output) == "" {
		return runner.Job{}, fmt.Errorf("--output (or OUTPUT_SPREADSHEET_ID) is required")
	}

	job, err := conf.Job()
	if err != nil {
		return job, err
	}

	if job.Source, err = spreadsheetID(conf.Source); err != nil {
		return job, err
	}

	if job.Output, err = spreadsheetID(conf.Output); err != nil {
		return job, err
	}

	debugf("source:%v  output:%v  feeds:%v", job.Source, job.Output, len(job.Feeds))

	return job, nil
}

func (cmd *command) controller(google gsheets.API, conf *config.Config, dryrun bool) *runner.Controller {
	writer := gsheets.Writer{API: google}

	return &runner.Controller{
		Reader:  gsheets.Reader{API: google},
		Writer:  writer,
		Journal: writer,
		Policy:  conf.Policy(),
		DryRun:  dryrun,
	}
}

func (cmd *command) locker(conf *config.Config, file string) runner.Locker {
	path := file
	if path == "" {
		path = conf.Lock.File
	}

	if path == "" {
		path = filepath.Join(cmd.workdir, "inventory-sheets.lock")
	}

	debugf("run lock %v", path)

	return lockfile.Lockfile{
		Path: path,
		Wait: conf.Lock.Wait,
	}
}

func summarise(r runner.Result) {
	for _, t := range r.Tables {
		infof("%-20v added:%-4v updated:%-4v unchanged:%-4v stale:%-4v duplicates:%v",
			t.Table, len(t.Added), len(t.Updated), t.Unchanged, len(t.Stale), len(t.Duplicates))
	}

	for _, s := range r.Skipped {
		warnf("%v row %v skipped (%v)", s.Feed, s.Row, s.Reason)
	}

	if r.Err != nil {
		warnf("run %v %v after %v retries (%v)", r.ID, r.Status, r.Retries, r.Err)
		return
	}

	infof("run %v %v: read:%v records:%v written:%v unchanged:%v skipped:%v retries:%v (%v)",
		r.ID, r.Status, r.RowsRead, r.Records, r.RecordsWritten, r.RecordsUnchanged, r.RecordsSkipped, r.Retries, r.Duration())
}
