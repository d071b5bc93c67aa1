package commands

import (
	"bytes"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/farmledger/inventory-sheets/gsheets"
)

var GetCmd = Get{
	command: command{
		workdir:     DEFAULT_WORKDIR,
		credentials: "",
		debug:       false,
	},

	url:  "",
	area: "",
	file: time.Now().Format("inventory 2006-01-02T150405.tsv"),
}

type Get struct {
	command
	url  string
	area string
	file string
}

func (cmd *Get) Name() string {
	return "get"
}

func (cmd *Get) Description() string {
	return "Retrieves a Google Sheets worksheet range and stores it to a local TSV or XLSX file"
}

func (cmd *Get) Usage() string {
	return "--url <url> --range <range> --file <file>"
}

func (cmd *Get) Help() {
	fmt.Println()
	fmt.Printf("  Usage: %s [--debug] get [options] --url <URL> --range <range> --file <file>\n", APP)
	fmt.Println()
	fmt.Println("  Downloads a Google Sheets worksheet to a TSV file or, if the file has an .xlsx extension, an Excel workbook")
	fmt.Println()

	helpOptions(cmd.FlagSet())

	fmt.Println()
	fmt.Println("  Examples:")
	fmt.Println(`    inventory-sheets --debug get --url "https://docs.google.com/spreadsheets/d/1Hk3nE8sGQ9qkX7v0bYw2mJc5dLrT4uPzA6fWiNoVeCs" \`)
	fmt.Println(`                                 --range "inventory!A1:L" \`)
	fmt.Println(`                                 --file "inventory.xlsx"`)
	fmt.Println()
}

func (cmd *Get) FlagSet() *flag.FlagSet {
	flagset := cmd.flagset("get")

	flagset.StringVar(&cmd.url, "url", cmd.url, "Spreadsheet URL or ID")
	flagset.StringVar(&cmd.area, "range", cmd.area, "Spreadsheet range e.g. 'inventory!A1:L'")
	flagset.StringVar(&cmd.file, "file", cmd.file, "TSV or XLSX file name. Defaults to 'inventory <yyyy-mm-ddTHHmmss>.tsv'")

	return flagset
}

func (cmd *Get) Execute(args ...any) error {
	options, ctx := arguments(args...)

	// ... check parameters
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

	area, err := gsheets.ParseArea(cmd.area)
	if err != nil {
		return err
	}

	conf, err := cmd.load(options)
	if err != nil {
		return err
	}

	debugf("Spreadsheet - ID:%s  range:%s", spreadsheet, area)

	google, err := client(ctx, conf, READONLY)
	if err != nil {
		return err
	}

	rows, err := gsheets.Reader{API: google}.Read(ctx, spreadsheet, cmd.area)
	if err != nil {
		return err
	}

	if len(rows) == 0 {
		return fmt.Errorf("no data in spreadsheet/range")
	}

	var b bytes.Buffer

	if strings.EqualFold(filepath.Ext(cmd.file), ".xlsx") {
		err = sheetToXLSX(&b, area.Sheet, rows)
	} else {
		err = sheetToTSV(&b, rows)
	}

	if err != nil {
		return fmt.Errorf("error creating %v (%w)", cmd.file, err)
	}

	if err := write(cmd.file, b.Bytes()); err != nil {
		return err
	}

	infof("Retrieved %v rows to file %s", len(rows), cmd.file)

	return nil
}

// write replaces the file by renaming a completed temporary file.
func write(file string, b []byte) error {
	dir := filepath.Dir(file)
	if err := os.MkdirAll(dir, 0770); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".inventory-sheets-*")
	if err != nil {
		return err
	}

	defer func() {
		tmp.Close()
		os.Remove(tmp.Name())
	}()

	if _, err := tmp.Write(b); err != nil {
		return err
	}

	if err := tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmp.Name(), file)
}
