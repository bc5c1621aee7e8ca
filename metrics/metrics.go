package metrics

import "github.com/prometheus/client_golang/prometheus"

// Key constants are exported primarily for documentation reasons. Typically,
// they will not be used programmatically outside of defining the collectors.

// Keys for messdiener metrics.
const (
	StoreRequestsTotalKey    = "messdiener_store_requests_total"
	RemoteDocumentBytesKey   = "messdiener_remote_document_bytes"
	EnrollmentsTotalKey      = "messdiener_enrollments_total"
	BackendFallbacksTotalKey = "messdiener_backend_fallbacks_total"
	MigratedRowsTotalKey     = "messdiener_migrated_rows_total"
	ActiveBackendKey         = "messdiener_active_backend"
	AdminLoginAttemptsKey    = "messdiener_admin_login_attempts_total"
	MirrorTotalKey           = "messdiener_mirror_total"
	RowDecodeErrorsTotalKey  = "messdiener_row_decode_errors_total"

	Fail = "fail"
	Ok   = "ok"
)

// Collectors for messdiener metrics.
var (
	StoreRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: StoreRequestsTotalKey,
		Help: "Cumulative number of backend load and save operations.",
	}, []string{"backend", "operation", "status"})
	RemoteDocumentBytes = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: RemoteDocumentBytesKey,
		Help: "Size of the most recently read or written remote document.",
	})
	EnrollmentsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: EnrollmentsTotalKey,
		Help: "Cumulative number of enrollment attempts, by outcome.",
	}, []string{"outcome"})
	BackendFallbacksTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: BackendFallbacksTotalKey,
		Help: "Cumulative number of startups which fell back from the relational backend.",
	})
	MigratedRowsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: MigratedRowsTotalKey,
		Help: "Cumulative number of legacy rows migrated, by table and status.",
	}, []string{"table", "status"})
	ActiveBackend = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: ActiveBackendKey,
		Help: "Set to 1 for the backend selected at startup.",
	}, []string{"backend"})
	AdminLoginAttemptsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: AdminLoginAttemptsKey,
		Help: "Cumulative number of admin login attempts.",
	}, []string{"status"})
	MirrorTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: MirrorTotalKey,
		Help: "Cumulative number of relational-to-remote mirror attempts.",
	}, []string{"status"})
	RowDecodeErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: RowDecodeErrorsTotalKey,
		Help: "Cumulative number of stored rows skipped because they failed to decode.",
	}, []string{"table"})
)

// MessdienerCollectors returns the metrics used by the messdiener packages.
func MessdienerCollectors() []prometheus.Collector {
	return []prometheus.Collector{
		StoreRequestsTotal,
		RemoteDocumentBytes,
		EnrollmentsTotal,
		BackendFallbacksTotal,
		MigratedRowsTotal,
		ActiveBackend,
		AdminLoginAttemptsTotal,
		MirrorTotal,
		RowDecodeErrorsTotal,
	}
}

// Status maps an error to the Ok or Fail status label.
func Status(err error) string {
	if err != nil {
		return Fail
	}
	return Ok
}
