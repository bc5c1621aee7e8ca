package main

import (
	log "github.com/sirupsen/logrus"
	mbp "go.messdienerplan.de/core/mainboilerplate"
	"go.messdienerplan.de/core/store"
)

type cmdMirror struct{}

func init() {
	CommandRegistry.AddCommand("", "mirror", "Overwrite the remote document with the relational state", `
Read the complete state of the relational database, and write it as the
remote document of the configured gist, replacing its prior content.

Both --gist.id and --gist.token are required.
`, &cmdMirror{})
}

func (cmd *cmdMirror) Execute([]string) error {
	var ctx, cancel = startup()
	defer cancel()

	var sql = mustOpenSQL(ctx)
	defer sql.Close()

	var remote = store.NewRemoteBackend(store.RemoteConfig{
		API:      baseCfg.Gist.API,
		GistID:   baseCfg.Gist.ID,
		Token:    baseCfg.Gist.Token,
		Filename: baseCfg.Gist.Filename,
		Timeout:  baseCfg.Gist.Timeout,
	})
	mbp.Must(store.Mirror(ctx, sql, remote), "failed to mirror state", "gist", baseCfg.Gist.ID)

	log.WithField("gist", baseCfg.Gist.ID).Info("mirrored relational state into remote document")
	return nil
}
