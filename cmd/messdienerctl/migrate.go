package main

import (
	"github.com/spf13/afero"
	mbp "go.messdienerplan.de/core/mainboilerplate"
	"go.messdienerplan.de/core/store"
)

type cmdMigrate struct{}

func init() {
	CommandRegistry.AddCommand("", "migrate", "Migrate legacy CSV files into the relational database", `
Ensure the relational schema exists, and then copy legacy CSV files of
--store.data-dir into the database.

Migration runs only if the database holds no roster entries and no queues.
Malformed, duplicate, or dangling rows of the legacy files are logged and
skipped. Running migrate against a populated database does nothing.
`, &cmdMigrate{})
}

func (cmd *cmdMigrate) Execute([]string) error {
	var ctx, cancel = startup()
	defer cancel()

	var sql = mustOpenSQL(ctx)
	defer sql.Close()

	mbp.Must(sql.EnsureSchema(ctx), "failed to ensure schema")
	mbp.Must(store.Migrate(ctx, sql, store.NewFileBackend(afero.NewOsFs(), baseCfg.Store.DataDir)),
		"failed to migrate legacy data", "dataDir", baseCfg.Store.DataDir)
	return nil
}
