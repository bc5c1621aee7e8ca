package store

import (
	"strings"

	"github.com/pkg/errors"
)

// Drivers registered with database/sql.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"
)

// legacyPostgresPrefixes are connection-string schemes used by earlier
// deployments or hosting providers for PostgreSQL. They're rewritten to
// "postgresql://".
var legacyPostgresPrefixes = []string{
	"postgres://",
	"postgresql+psycopg://",
	"postgresql+psycopg2://",
}

// ParseDSN maps a database connection string to a database/sql driver name
// and the data source name to open it with:
//
//   - "postgresql://..." is used as-is with the "postgres" driver.
//   - "postgres://...", "postgresql+psycopg://..." and
//     "postgresql+psycopg2://..." are rewritten to "postgresql://...".
//   - A "key=value ..." string without a scheme is a PostgreSQL DSN.
//   - "sqlite:///relative.db" and "sqlite:////absolute.db" (or "sqlite3://")
//     select the "sqlite3" driver, with foreign keys enabled.
func ParseDSN(raw string) (driver, dsn string, err error) {
	raw = strings.TrimSpace(raw)

	if raw == "" {
		return "", "", errors.New("database URL is empty")
	} else if strings.HasPrefix(raw, "postgresql://") {
		return DriverPostgres, raw, nil
	}
	for _, prefix := range legacyPostgresPrefixes {
		if strings.HasPrefix(raw, prefix) {
			return DriverPostgres, "postgresql://" + strings.TrimPrefix(raw, prefix), nil
		}
	}
	for _, prefix := range []string{"sqlite://", "sqlite3://"} {
		if strings.HasPrefix(raw, prefix) {
			var path = strings.TrimPrefix(strings.TrimPrefix(raw, prefix), "/")
			if path == "" {
				return "", "", errors.Errorf("database URL %q has no path", raw)
			}
			return DriverSQLite, sqliteDSN(path), nil
		}
	}
	if !strings.Contains(raw, "://") && strings.Contains(raw, "=") {
		return DriverPostgres, raw, nil
	}

	var scheme = raw
	if ind := strings.Index(raw, "://"); ind != -1 {
		scheme = raw[:ind]
	}
	return "", "", errors.Errorf("unsupported database URL scheme %q", scheme)
}

func sqliteDSN(path string) string {
	if strings.Contains(path, "_foreign_keys=") {
		return path
	} else if strings.Contains(path, "?") {
		return path + "&_foreign_keys=1"
	}
	return path + "?_foreign_keys=1"
}
