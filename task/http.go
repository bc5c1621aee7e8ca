package task

import (
	"context"
	"net"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
)

// QueueServe queues tasks which serve |srv| on |ln| until the Group is
// cancelled, and then shut it down gracefully. In-flight requests are given
// |grace| to complete.
func (g *Group) QueueServe(desc string, srv *http.Server, ln net.Listener, grace time.Duration) {
	g.Queue(desc, func() error {
		if err := srv.Serve(ln); err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Queue(desc+".Shutdown", func() error {
		<-g.ctx.Done()
		log.WithField("addr", ln.Addr().String()).Info("shutting down http server")

		var ctx, cancel = context.WithTimeout(context.Background(), grace)
		defer cancel()
		return srv.Shutdown(ctx)
	})
}
