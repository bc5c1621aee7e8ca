package mainboilerplate

import (
	"net"

	log "github.com/sirupsen/logrus"
)

// ServiceConfig represents addressing configuration of an HTTP service.
type ServiceConfig struct {
	Host string `long:"host" env:"HOST" default:"0.0.0.0" description:"Interface address on which to listen"`
	Port string `long:"port" env:"PORT" default:"5000" description:"Service port for HTTP requests"`
}

// Addr returns the "host:port" listen address of the ServiceConfig.
func (cfg ServiceConfig) Addr() string { return net.JoinHostPort(cfg.Host, cfg.Port) }

// MustListen returns a TCP Listener of the ServiceConfig's address.
func (cfg ServiceConfig) MustListen() net.Listener {
	var ln, err = net.Listen("tcp", cfg.Addr())
	Must(err, "failed to listen", "addr", cfg.Addr())

	log.WithField("addr", ln.Addr().String()).Info("listening")
	return ln
}
