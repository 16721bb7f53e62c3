// Package monitoring runs the prometheus /metrics endpoint shared by every
// long-running job binary in this module.
package monitoring

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("prefix", "monitoring")

// Service serves Prometheus metrics registered with the default registerer
// on the given address.
type Service struct {
	server     *http.Server
	failStatus error
}

// New sets up a metrics service for a given address host:port. An empty
// host matches any interface, so ":8080" is a perfectly fine addr.
func New(addr string) *Service {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return &Service{server: &http.Server{Addr: addr, Handler: mux}}
}

// Start runs the service in the background. It refuses to bind a port
// already in use rather than crash the calling job.
func (s *Service) Start() {
	go func() {
		addrParts := strings.Split(s.server.Addr, ":")
		conn, err := net.DialTimeout("tcp", fmt.Sprintf("127.0.0.1:%s", addrParts[len(addrParts)-1]), time.Second)
		if err == nil {
			_ = conn.Close()
			log.WithField("address", s.server.Addr).Warn("port already in use, not starting monitoring service")
			return
		}
		log.WithField("address", s.server.Addr).Debug("starting monitoring service")
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("monitoring service stopped unexpectedly")
			s.failStatus = err
		}
	}()
}

// Stop shuts the service down gracefully.
func (s *Service) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

// Status reports the last fatal error the service encountered, if any.
func (s *Service) Status() error {
	return s.failStatus
}
