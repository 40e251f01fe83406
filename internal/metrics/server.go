package metrics

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Server is the http server that serves the /metrics request for prometheus
type Server struct {
	server *http.Server
	log    zerolog.Logger
}

// NewServer creates a server listening on addr that responds only to
// the `/metrics` endpoint, serving the metrics gathered by g.
func NewServer(log zerolog.Logger, addr string, g prometheus.Gatherer) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))

	return &Server{
		server: &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second},
		log:    log,
	}
}

// Start serves in the background until Shutdown is called.
func (m *Server) Start() error {
	lis, err := net.Listen("tcp", m.server.Addr)
	if err != nil {
		return err
	}
	m.log.Info().Str("address", lis.Addr().String()).Str("endpoint", "/metrics").Msg("metrics server started")
	go func() {
		if err := m.server.Serve(lis); err != nil {
			// http.ErrServerClosed is returned when Close or Shutdown is called
			if errors.Is(err, http.ErrServerClosed) {
				m.log.Debug().Err(err).Msg("metrics server shutdown")
			} else {
				m.log.Err(err).Msg("error serving metrics")
			}
		}
	}()
	return nil
}

func (m *Server) Shutdown(ctx context.Context) error {
	return m.server.Shutdown(ctx)
}
