package commands

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/farmledger/inventory-sheets/gsheets"
	"github.com/farmledger/inventory-sheets/runner"
)

var CompareCmd = Compare{
	command: command{
		workdir:     DEFAULT_WORKDIR,
		credentials: "",
		debug:       false,
	},

	source: "",
	output: "",
	report: "",
}

// Compare is a dry run that reports the differences between the derived inventory
// and the output spreadsheet.
type Compare struct {
	command
	source string
	output string
	report string
}

func (cmd *Compare) Name() string {
	return "compare"
}

func (cmd *Compare) Description() string {
	return "Reports the changes a sync would make to the output spreadsheet"
}

func (cmd *Compare) Usage() string {
	return "--source <url> --output <url> [--report-range <range>]"
}

func (cmd *Compare) Help() {
	fmt.Println()
	fmt.Printf("  Usage: %s [--debug] [--config <file>] compare [options] --source <URL> --output <URL>\n", APP)
	fmt.Println()
	fmt.Println("  Compares the inventory derived from the source spreadsheet with the output spreadsheet and lists")
	fmt.Println("  the records that would be added, updated or are stale. The output worksheets are not modified but")
	fmt.Println("  the report can optionally be written to a separate worksheet.")
	fmt.Println()

	helpOptions(cmd.FlagSet())

	fmt.Println()
	fmt.Println("  Examples:")
	fmt.Println(`    inventory-sheets compare --source "https://docs.google.com/spreadsheets/d/1BxiMVs0XRA5nFMdKvBdBZjgmUUqptlbs74OgvE2upms" \`)
	fmt.Println(`                             --output "https://docs.google.com/spreadsheets/d/1Hk3nE8sGQ9qkX7v0bYw2mJc5dLrT4uPzA6fWiNoVeCs" \`)
	fmt.Println(`                             --report-range "Audit!A1:C"`)
	fmt.Println()
}

func (cmd *Compare) FlagSet() *flag.FlagSet {
	flagset := cmd.flagset("compare")

	flagset.StringVar(&cmd.source, "source", cmd.source, "Source spreadsheet URL or ID. Defaults to $SOURCE_SPREADSHEET_ID")
	flagset.StringVar(&cmd.output, "output", cmd.output, "Output spreadsheet URL or ID. Defaults to $OUTPUT_SPREADSHEET_ID")
	flagset.StringVar(&cmd.report, "report-range", cmd.report, "Output spreadsheet range for the compare report e.g. 'Audit!A1:C'")

	return flagset
}

func (cmd *Compare) Execute(args ...any) error {
	options, ctx := arguments(args...)

	conf, err := cmd.load(options)
	if err != nil {
		return err
	}

	job, err := cmd.job(conf, cmd.source, cmd.output)
	if err != nil {
		return err
	}

	if err := cmd.validate(job); err != nil {
		return err
	}

	scope := READONLY
	if cmd.report != "" {
		scope = SHEETS
	}

	google, err := client(ctx, conf, scope)
	if err != nil {
		return err
	}

	result, err := cmd.controller(google, conf, true).Run(ctx, job)
	if err != nil {
		return fmt.Errorf("compare failed [%v] (%w)", result.Kind(), err)
	}

	header, rows := makeReport(result, time.Now())

	w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
	fmt.Fprintln(w, strings.Join(header, "\t"))
	for _, row := range rows {
		fmt.Fprintln(w, strings.Join(row, "\t"))
	}
	w.Flush()

	if cmd.report == "" {
		return nil
	}

	writer := gsheets.Writer{API: google}
	table := gsheets.Table{
		Name:   "report",
		Area:   cmd.report,
		Mode:   gsheets.Overwrite,
		Header: header,
		Rows:   rows,
		Stamp:  -1,
	}

	batch, err := writer.Plan(ctx, job.Output, table)
	if err != nil {
		return err
	}

	if err := writer.Apply(ctx, batch); err != nil {
		return err
	}

	infof("wrote compare report to %v", cmd.report)

	return nil
}

// validate ensures the report is not written over one of the synchronised worksheets.
func (cmd *Compare) validate(job runner.Job) error {
	if cmd.report == "" {
		return nil
	}

	report, err := gsheets.ParseArea(cmd.report)
	if err != nil {
		return fmt.Errorf("invalid report-range '%v' (%w)", cmd.report, err)
	}

	used := []string{job.Inventory, job.Summary, job.Log}
	for _, f := range job.Feeds {
		used = append(used, f.Clean)
	}

	for _, area := range used {
		if a, err := gsheets.ParseArea(area); err == nil && area != "" && a.Sheet == report.Sheet {
			return fmt.Errorf("report-range '%v' overlaps worksheet '%v'", cmd.report, a.Sheet)
		}
	}

	return nil
}
