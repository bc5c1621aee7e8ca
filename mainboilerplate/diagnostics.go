package mainboilerplate

import (
	_ "expvar" // Import for /debug/vars
	"fmt"
	"net/http"
	_ "net/http/pprof" // Import for /debug/pprof
	"os"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

// DiagnosticsConfig configures pull-based application metrics, debugging and diagnostics.
type DiagnosticsConfig struct {
	Enabled bool `long:"enabled" env:"ENABLED" description:"Serve metrics, profiles and a liveness check under /debug/ of the service port, without authentication"`
}

// InitDiagnosticsAndRecover serves metrics and debugging services on the
// default HTTPMux, if enabled. It also returns a closure which should be
// deferred, which recovers a panic and attempts to log a K8s termination
// message before re-panicking.
func InitDiagnosticsAndRecover(cfg DiagnosticsConfig) func() {
	if cfg.Enabled {
		// Package "net/http/pprof" serves /debug/pprof/.
		// Package "expvar" serves /debug/vars.

		// Serve a liveness check at /debug/ready.
		http.HandleFunc("/debug/ready", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		})
		// Serve Prometheus metrics at /debug/metrics.
		http.Handle("/debug/metrics", promhttp.Handler())
	}

	return func() {
		if r := recover(); r != nil {
			// Make a best effort attempt to write a termination message.
			if f, err := os.OpenFile(k8sTerminationLog, os.O_WRONLY, 0777); err == nil {
				fmt.Fprintf(f, "%+v", r)
				f.Close()
			}
			panic(r)
		}
	}
}

// Must panics if |err| is non-nil, supplying |msg| and |extra| as
// formatter and fields of the generated panic.
func Must(err error, msg string, extra ...interface{}) {
	if err == nil {
		return
	}
	var f = log.Fields{"err": err}
	for i := 0; i+1 < len(extra); i += 2 {
		f[extra[i].(string)] = extra[i+1]
	}
	log.WithFields(f).Panic(msg)
}

// k8sTerminationLog is the location to write a termination message for
// Kubernetes to retrieve.
const k8sTerminationLog = "/dev/termination-log"

// Version and BuildDate of the program, set at link time with eg
//
//	-ldflags "-X go.messdienerplan.de/core/mainboilerplate.Version=v1.2.3"
var (
	Version   = "development"
	BuildDate = "unknown"
)
