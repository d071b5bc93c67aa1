package commands

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/farmledger/inventory-sheets/gsheets"
)

var PutCmd = Put{
	command: command{
		workdir:     DEFAULT_WORKDIR,
		credentials: "",
		debug:       false,
	},

	url:  "",
	area: "",
	file: "",
}

type Put struct {
	command
	url  string
	area string
	file string
}

func (cmd *Put) FlagSet() *flag.FlagSet {
	flagset := cmd.flagset("put")

	flagset.StringVar(&cmd.url, "url", cmd.url, "Spreadsheet URL or ID")
	flagset.StringVar(&cmd.area, "range", cmd.area, "Spreadsheet range e.g. 'opening_stock!A1:F'")
	flagset.StringVar(&cmd.file, "file", cmd.file, "TSV file")

	return flagset
}

func (cmd *Put) Execute(args ...any) error {
	options, ctx := arguments(args...)

	if strings.TrimSpace(cmd.url) == "" {
		return fmt.Errorf("--url is a required option")
	}

	if strings.TrimSpace(cmd.area) == "" {
		return fmt.Errorf("--range is a required option")
	}

	if strings.TrimSpace(cmd.file) == "" {
		return fmt.Errorf("--file is a required option")
	}

	spreadsheet, err := spreadsheetID(cmd.url)
	if err != nil {
		return err
	}

	conf, err := cmd.load(options)
	if err != nil {
		return err
	}

	debugf("Spreadsheet - ID:%s  range:%s", spreadsheet, cmd.area)

	f, err := os.Open(cmd.file)
	if err != nil {
		return err
	}

	defer f.Close()

	table, err := tsvToTable(f, cmd.area)
	if err != nil {
		return fmt.Errorf("invalid TSV file %v (%w)", cmd.file, err)
	}

	google, err := client(ctx, conf, SHEETS)
	if err != nil {
		return err
	}

	writer := gsheets.Writer{API: google}

	batch, err := writer.Plan(ctx, spreadsheet, table)
	if err != nil {
		return err
	}

	if err := writer.Apply(ctx, batch); err != nil {
		return err
	}

	infof("Uploaded TSV file %v to Google Sheets %v (%v rows updated)", cmd.file, cmd.area, batch.Len())

	return nil
}

func (cmd *Put) Name() string {
	return "put"
}

func (cmd *Put) Description() string {
	return "Uploads a TSV file to a Google Sheets worksheet"
}

func (cmd *Put) Usage() string {
	return "--url <url> --range <range> --file <file>"
}

func (cmd *Put) Help() {
	fmt.Println()
	fmt.Printf("  Usage: %s [options] put --url <URL> --range <range> --file <file>\n", APP)
	fmt.Println()
	fmt.Println("  Uploads a TSV file to a Google Sheets worksheet, replacing the contents of the range. Rows that")
	fmt.Println("  are already the same are left as is and the worksheet is created if it does not exist.")
	fmt.Println()

	helpOptions(cmd.FlagSet())

	fmt.Println()
	fmt.Println("  Examples:")
	fmt.Println()
	fmt.Println(`    inventory-sheets --debug put --url "https://docs.google.com/spreadsheets/d/1BxiMVs0XRA5nFMdKvBdBZjgmUUqptlbs74OgvE2upms" \`)
	fmt.Println(`                                 --range "opening_stock!A1:F" \`)
	fmt.Println(`                                 --file "opening_stock.tsv"`)
	fmt.Println()
}
