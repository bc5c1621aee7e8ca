package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
	"go.messdienerplan.de/core/auth"
	mbp "go.messdienerplan.de/core/mainboilerplate"
	"go.messdienerplan.de/core/metrics"
	"go.messdienerplan.de/core/roster"
	"go.messdienerplan.de/core/store"
	"go.messdienerplan.de/core/task"
	"go.messdienerplan.de/core/web"
)

const iniFilename = "messdiener.ini"

// Development defaults of the secret key and admin password. A warning is
// logged if either is used.
const (
	devSecretKey     = "dev-key-nur-fuer-lokale-entwicklung"
	devAdminPassword = "adminpass"
)

// Config is the top-level configuration object of the messdiener web application.
var Config = new(struct {
	Service struct {
		mbp.ServiceConfig
		SecretKey     string        `long:"secret-key" env:"SECRET_KEY" default:"dev-key-nur-fuer-lokale-entwicklung" description:"Secret signing admin sessions. Multiple comma-separated secrets may be given, of which the first signs"`
		AdminPassword string        `long:"admin-password" env:"ADMIN_PASSWORD" default:"adminpass" description:"Password granting admin rights"`
		SessionTTL    time.Duration `long:"session-ttl" env:"SESSION_TTL" default:"12h" description:"Lifetime of admin sessions"`
	} `group:"Service" namespace:"service"`

	Store struct {
		Backend     string `long:"backend" env:"STORE_BACKEND" default:"auto" choice:"auto" choice:"sql" choice:"file" choice:"remote" description:"Storage backend"`
		DatabaseURL string `long:"database-url" env:"DATABASE_URL" description:"URL of the relational database (postgres:// or sqlite:///path)"`
		DataDir     string `long:"data-dir" env:"DATA_DIR" default:"data" description:"Directory of CSV files, used by the file backend and migrated into an empty database"`
	} `group:"Store" namespace:"store"`

	Gist struct {
		ID       string        `long:"id" env:"GIST_ID" description:"ID of the gist holding the remote document"`
		Token    string        `long:"token" env:"GITHUB_TOKEN" description:"GitHub access token having the gist scope"`
		Filename string        `long:"filename" env:"GIST_FILENAME" default:"messdiener_state.json" description:"Name of the remote document within the gist"`
		API      string        `long:"api" env:"GIST_API_URL" default:"https://api.github.com" description:"Base URL of the GitHub REST API"`
		Timeout  time.Duration `long:"timeout" env:"GIST_TIMEOUT" default:"10s" description:"Timeout of each request to the GitHub API"`
	} `group:"Gist" namespace:"gist"`

	Log         mbp.LogConfig         `group:"Logging" namespace:"log" env-namespace:"LOG"`
	Diagnostics mbp.DiagnosticsConfig `group:"Debug" namespace:"debug" env-namespace:"DEBUG"`
})

type cmdServe struct{}

func (cmdServe) Execute(args []string) error {
	defer mbp.InitDiagnosticsAndRecover(Config.Diagnostics)()
	mbp.InitLog(Config.Log)

	log.WithFields(log.Fields{
		"backend": Config.Store.Backend,
		"dataDir": Config.Store.DataDir,
		"addr":    Config.Service.Addr(),
		"version": mbp.Version,
	}).Info("starting messdiener")
	prometheus.MustRegister(metrics.MessdienerCollectors()...)

	if Config.Service.SecretKey == devSecretKey {
		log.Warn("using the development secret key; set SECRET_KEY in production")
	}
	if Config.Service.AdminPassword == devAdminPassword {
		log.Warn("using the default admin password; set ADMIN_PASSWORD in production")
	}

	var ctx, cancel = signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	var svc, err = roster.Open(ctx, roster.Config{
		Mode:        Config.Store.Backend,
		DatabaseURL: Config.Store.DatabaseURL,
		DataDir:     Config.Store.DataDir,
		Remote:      remoteConfig(),
	})
	mbp.Must(err, "failed to open storage backend")
	defer svc.Close()

	ka, err := auth.NewKeyedAuth(Config.Service.SecretKey)
	mbp.Must(err, "failed to build session auth")

	var app = web.NewServer(svc, ka, Config.Service.AdminPassword)
	app.SessionTTL = Config.Service.SessionTTL

	var srv = &http.Server{
		Handler:           newHandler(app, Config.Diagnostics),
		ReadHeaderTimeout: 10 * time.Second,
	}
	var tasks = task.NewGroup(ctx)
	tasks.QueueServe("http.Serve", srv, Config.Service.MustListen(), 10*time.Second)

	tasks.GoRun()
	// Block until signaled, and all tasks complete. Assert none returned an error.
	mbp.Must(tasks.Wait(), "server task failed")
	log.Info("goodbye")
	return nil
}

// newHandler routes requests to |app|. Diagnostics registered with the
// default mux are reachable under /debug/ only if they're enabled.
func newHandler(app http.Handler, cfg mbp.DiagnosticsConfig) http.Handler {
	if !cfg.Enabled {
		return app
	}
	var mux = http.NewServeMux()
	mux.Handle("/debug/", http.DefaultServeMux)
	mux.Handle("/", app)
	return mux
}

func remoteConfig() store.RemoteConfig {
	return store.RemoteConfig{
		API:      strings.TrimSpace(Config.Gist.API),
		GistID:   strings.TrimSpace(Config.Gist.ID),
		Token:    strings.TrimSpace(Config.Gist.Token),
		Filename: Config.Gist.Filename,
		Timeout:  Config.Gist.Timeout,
	}
}

func main() {
	var parser = flags.NewParser(Config, flags.Default)

	_, _ = parser.AddCommand("serve", "Serve the messdiener web application", `
Serve the duty roster and sign-up queues of the messdiener web application.
The storage backend is chosen once at startup: in "auto" mode a relational
database is preferred, falling back to a remote GitHub gist document if the
database is unavailable.
`, &cmdServe{})

	mbp.AddPrintConfigCmd(parser, iniFilename)
	mbp.MustParseConfig(parser, iniFilename)

	os.Exit(0)
}
