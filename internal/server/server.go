package server

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/Echohint/dev-prop-firm/internal/logger"
)

const _shutdownTimeout = 10 * time.Second

type HTTPServer struct {
	s      *http.Server
	logger logger.Logger
}

func NewHTTPServer(ctx context.Context, port string, handler http.Handler, logger logger.Logger) *HTTPServer {
	return &HTTPServer{
		s: &http.Server{
			Handler:           handler,
			Addr:              ":" + port,
			ReadHeaderTimeout: 10 * time.Second,
			BaseContext: func(listener net.Listener) context.Context {
				return ctx
			},
		},
		logger: logger,
	}
}

func (s *HTTPServer) Start() error {
	return s.s.ListenAndServe()
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), _shutdownTimeout)
	defer cancel()
	return s.s.Shutdown(shutdownCtx)
}

func (s *HTTPServer) Run(ctx context.Context) error {
	errCh := make(chan error)
	go func() {
		s.logger.Infof("http server listening on %s", s.s.Addr)
		errCh <- s.Start()
	}()
	select {
	case <-ctx.Done():
		s.logger.Infof("shutting down http server")
		return s.Shutdown(ctx)
	case err := <-errCh:
		return err
	}
}
