package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/pkg/errors"
	mbp "go.messdienerplan.de/core/mainboilerplate"
	"go.messdienerplan.de/core/store"
)

const iniFilename = "messdienerctl.ini"

// CommandRegistry holds the sub-commands of messdienerctl.
var CommandRegistry = mbp.NewCommandRegistry()

var baseCfg = new(struct {
	Store struct {
		DatabaseURL string `long:"database-url" env:"DATABASE_URL" description:"URL of the relational database (postgres:// or sqlite:///path)"`
		DataDir     string `long:"data-dir" env:"DATA_DIR" default:"data" description:"Directory of legacy CSV files"`
	} `group:"Store" namespace:"store"`

	Gist struct {
		ID       string        `long:"id" env:"GIST_ID" description:"ID of the gist holding the remote document"`
		Token    string        `long:"token" env:"GITHUB_TOKEN" description:"GitHub access token having the gist scope"`
		Filename string        `long:"filename" env:"GIST_FILENAME" default:"messdiener_state.json" description:"Name of the remote document within the gist"`
		API      string        `long:"api" env:"GIST_API_URL" default:"https://api.github.com" description:"Base URL of the GitHub REST API"`
		Timeout  time.Duration `long:"timeout" env:"GIST_TIMEOUT" default:"10s" description:"Timeout of each request to the GitHub API"`
	} `group:"Gist" namespace:"gist"`

	Log mbp.LogConfig `group:"Logging" namespace:"log" env-namespace:"LOG"`
})

func main() {
	var parser = flags.NewParser(baseCfg, flags.Default)

	parser.LongDescription = `messdienerctl is a tool for maintaining the stored state of the messdiener application.

	See --help pages of each sub-command for documentation and usage examples.
	Optionally configure messdienerctl with a '` + iniFilename + `' file in the current working directory,
	or with '~/.config/messdiener/` + iniFilename + `'. Use the 'print-config' sub-command to inspect
	the tool's current configuration.
	`

	mbp.AddPrintConfigCmd(parser, iniFilename)
	mbp.Must(CommandRegistry.AddCommands("", parser.Command, true), "could not add subcommand")

	mbp.MustParseConfig(parser, iniFilename)
}

// startup initializes logging and returns a Context cancelled on SIGTERM or SIGINT.
func startup() (context.Context, context.CancelFunc) {
	mbp.InitLog(baseCfg.Log)
	return signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
}

// mustOpenSQL connects to the configured relational database.
func mustOpenSQL(ctx context.Context) *store.SQLBackend {
	if baseCfg.Store.DatabaseURL == "" {
		mbp.Must(errors.New("database URL is not configured"), "--store.database-url (or DATABASE_URL) is required")
	}
	var sql, err = store.OpenSQL(ctx, baseCfg.Store.DatabaseURL)
	mbp.Must(err, "failed to open relational database")
	return sql
}
