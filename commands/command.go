package commands

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/farmledger/inventory-sheets/config"
	"github.com/farmledger/inventory-sheets/logging"
)

const APP = "inventory-sheets"

const (
	SHEETS   = "https://www.googleapis.com/auth/spreadsheets"
	READONLY = "https://www.googleapis.com/auth/spreadsheets.readonly"
)

// Options are the global command line options.
type Options struct {
	Config string
	Debug  bool
}

type command struct {
	workdir     string
	credentials string
	debug       bool
}

var sheetURL = regexp.MustCompile(`^https://docs.google.com/spreadsheets/d/(.*?)(?:/.*)?$`)
var sheetID = regexp.MustCompile(`^[a-zA-Z0-9_-]{20,}$`)

func (cmd *command) flagset(name string) *flag.FlagSet {
	flagset := flag.NewFlagSet(name, flag.ExitOnError)

	flagset.StringVar(&cmd.workdir, "workdir", cmd.workdir, "Directory for working files (lockfile, exported files)")
	flagset.StringVar(&cmd.credentials, "credentials", cmd.credentials, "Path for the service account 'credentials.json' file. Defaults to $GOOGLE_CREDENTIALS")

	return flagset
}

// load returns the validated configuration with the command line overrides applied
// and sets up the default logger.
func (cmd *command) load(options *Options) (*config.Config, error) {
	file := DEFAULT_CONFIG
	if options != nil {
		cmd.debug = options.Debug
		if options.Config != "" {
			file = options.Config
		}
	}

	conf, err := config.Load(file, ".env", filepath.Join(cmd.workdir, ".env"))
	if err != nil {
		return nil, fmt.Errorf("could not load configuration (%w)", err)
	}

	logging.Setup(conf.Logging.Level, conf.Logging.Format, cmd.debug)

	if strings.TrimSpace(cmd.credentials) != "" {
		conf.Credentials = cmd.credentials
		conf.CredentialsJSON = ""
	}

	if err := conf.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration (%w)", err)
	}

	return conf, nil
}

func helpOptions(flagset *flag.FlagSet) {
	fmt.Println("  Options:")
	fmt.Println()

	flagset.VisitAll(func(f *flag.Flag) {
		fmt.Printf("    --%-13s %s\n", f.Name, f.Usage)
	})

	fmt.Println()
	fmt.Println("  Global options:")
	fmt.Println()
	fmt.Printf("    --%-13s %s\n", "config", "Configuration file. Defaults to "+DEFAULT_CONFIG)
	fmt.Printf("    --%-13s %s\n", "debug", "Displays internal information for diagnosing errors")
}

// spreadsheetID accepts either a Google Sheets URL or a bare spreadsheet ID.
func spreadsheetID(s string) (string, error) {
	s = strings.TrimSpace(s)

	if match := sheetURL.FindStringSubmatch(s); len(match) > 1 && match[1] != "" {
		return match[1], nil
	}

	if sheetID.MatchString(s) {
		return s, nil
	}

	return "", fmt.Errorf("invalid spreadsheet '%v' - expected an ID or a URL like 'https://docs.google.com/spreadsheets/d/1BxiMVs0XRA5nFMdKvBdBZjgmUUqptlbs74OgvE2upms'", s)
}

// arguments extracts the global options and context passed to Execute.
func arguments(args ...any) (*Options, context.Context) {
	options := &Options{}
	ctx := context.Background()

	for _, arg := range args {
		switch v := arg.(type) {
		case *Options:
			options = v
		case context.Context:
			ctx = v
		}
	}

	return options, ctx
}

func debugf(format string, args ...any) {
	slog.Debug(fmt.Sprintf(format, args...))
}

func infof(format string, args ...any) {
	slog.Info(fmt.Sprintf(format, args...))
}

func warnf(format string, args ...any) {
	slog.Warn(fmt.Sprintf(format, args...))
}
