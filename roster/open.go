package roster

import (
	"context"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"go.messdienerplan.de/core/metrics"
	"go.messdienerplan.de/core/store"
)

// Backend modes of Config.
const (
	ModeAuto   = "auto"
	ModeSQL    = "sql"
	ModeFile   = "file"
	ModeRemote = "remote"
)

// Config configures the selection of the Service's Backend.
type Config struct {
	// Mode is one of ModeAuto (the default), ModeSQL, ModeFile or ModeRemote.
	Mode string
	// DatabaseURL is the connection string of the relational backend.
	DatabaseURL string
	// DataDir holds the CSV files of the file backend, which are also the
	// legacy source migrated into an empty relational backend.
	DataDir string
	// Fs of DataDir. If nil, the OS filesystem is used.
	Fs afero.Fs
	// Remote configures the remote document backend.
	Remote store.RemoteConfig
}

// Open selects and initializes the Backend of a new Service. The selection
// is made once, and the returned Service uses its Backend for its lifetime.
//
// In ModeAuto, Open first tries the relational backend: it connects, ensures
// the schema exists, and migrates legacy CSV files into empty tables. If any
// of this fails, Open falls back to the remote document backend, seeding the
// document if credentials are configured. Otherwise, if credentials are
// configured, the relational state is mirrored into the remote document.
// Neither the fallback nor a failed mirror is an error of Open.
//
// The other modes select their backend directly. An error is returned only
// if an explicitly requested relational backend can't be initialized.
func Open(ctx context.Context, cfg Config, opts ...Option) (*Service, error) {
	if cfg.Fs == nil {
		cfg.Fs = afero.NewOsFs()
	}
	var backend store.Backend

	switch cfg.Mode {
	case "", ModeAuto:
		backend = openAuto(ctx, cfg)
	case ModeSQL:
		var sql, err = openSQL(ctx, cfg)
		if err != nil {
			return nil, err
		}
		backend = sql
	case ModeFile:
		backend = store.NewFileBackend(cfg.Fs, cfg.DataDir)
	case ModeRemote:
		var remote = store.NewRemoteBackend(cfg.Remote)
		if remote.Credentials() {
			remote.Seed(ctx)
		}
		backend = remote
	default:
		return nil, errors.Errorf("unknown backend mode %q", cfg.Mode)
	}

	metrics.ActiveBackend.WithLabelValues(backend.Name()).Set(1)
	log.WithFields(log.Fields{"mode": cfg.Mode, "backend": backend.Name()}).Info("selected storage backend")

	return NewService(backend, opts...), nil
}

func openAuto(ctx context.Context, cfg Config) store.Backend {
	var remote = store.NewRemoteBackend(cfg.Remote)

	var sql, err = openSQL(ctx, cfg)
	if err != nil {
		metrics.BackendFallbacksTotal.Inc()
		log.WithField("err", err).Warn("relational backend unavailable; falling back to remote document")

		if remote.Credentials() {
			remote.Seed(ctx)
		} else {
			log.Warn("remote document credentials are not configured; serving defaults without persistence")
		}
		return remote
	}

	if remote.Credentials() {
		if err = store.Mirror(ctx, sql, remote); err != nil {
			log.WithField("err", err).Warn("failed to mirror relational state into remote document")
		}
	}
	return sql
}

// openSQL connects to the relational backend, and prepares it for use.
func openSQL(ctx context.Context, cfg Config) (*store.SQLBackend, error) {
	var sql, err = store.OpenSQL(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err = sql.EnsureSchema(ctx); err == nil {
		err = store.Migrate(ctx, sql, store.NewFileBackend(cfg.Fs, cfg.DataDir))
	}
	if err != nil {
		_ = sql.Close()
		return nil, err
	}
	return sql, nil
}
