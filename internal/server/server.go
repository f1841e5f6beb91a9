package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/yanun0323/logs"
)

const (
	healthyBody   = "I am OK!"
	unhealthyBody = "Not health!"
)

// Config controls the ops server.
type Config struct {
	Addr          string
	ShutdownGrace time.Duration
}

// Server exposes the health probe and the administrative shutdown trigger.
type Server struct {
	cfg      Config
	exit     func()
	destroy  []func()
	healthy  atomic.Bool
	stopping sync.Once
	httpSrv  *http.Server
}

// New creates the ops server. On shutdown the destroy hooks run in order,
// then exit is called once the grace period has passed.
func New(cfg Config, exit func(), destroy ...func()) *Server {
	s := &Server{
		cfg:     cfg,
		exit:    exit,
		destroy: destroy,
	}
	s.healthy.Store(true)
	s.httpSrv = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler returns the ops routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/system/health", s.handleHealth)
	mux.HandleFunc("/system/shutdown", s.handleShutdown)
	return mux
}

// Healthy reports the current health state.
func (s *Server) Healthy() bool {
	return s.healthy.Load()
}

// Run serves until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	logs.Infof("ops server listening on %s", ln.Addr())

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.httpSrv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.httpSrv.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	if s.healthy.Load() {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(healthyBody))
		return
	}
	w.WriteHeader(http.StatusBadGateway)
	_, _ = w.Write([]byte(unhealthyBody))
}

func (s *Server) handleShutdown(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	s.Shutdown()
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("shutting down"))
}

// Shutdown marks the process unhealthy and starts the drain sequence once.
func (s *Server) Shutdown() {
	s.stopping.Do(func() {
		s.healthy.Store(false)
		logs.Infof("shutdown requested, grace: %s", s.cfg.ShutdownGrace)
		go func() {
			for _, fn := range s.destroy {
				fn()
			}
			time.Sleep(s.cfg.ShutdownGrace)
			if s.exit != nil {
				s.exit()
			}
		}()
	})
}
