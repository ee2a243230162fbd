package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"golang.org/x/crypto/acme/autocert"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultPort    = "8080"
	DefaultTLSMode = TLSModeFile

	TLSModeFile     = "file"
	TLSModeAutoCert = "autocert"

	shutdownTimeout = 10 * time.Second
)

type Server struct {
	Port string
	Host string
	TLS  ServerTLS
}

type ServerTLS struct {
	Enabled  bool
	Mode     string
	AutoCert *ServerTLSAutoCert
	CertFile string
	KeyFile  string
}

type ServerTLSAutoCert struct {
	CacheDir string
	Domains  []string
	Email    string
}

type UnknownTLSModeError struct {
	Mode string
}

func (err UnknownTLSModeError) Error() string {
	return fmt.Sprintf("unknown tls mode %q", err.Mode)
}

func (s *Server) addr() string {
	return net.JoinHostPort(s.Host, s.Port)
}

func newHTTPServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}

// Run serves handler until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, handler http.Handler) error {
	if !s.TLS.Enabled {
		srv := newHTTPServer(s.addr(), handler)

		slog.InfoContext(ctx, "starting http server", "address", "http://"+srv.Addr)

		return serve(ctx, srv, srv.ListenAndServe)
	}

	switch s.TLS.Mode {
	case TLSModeFile:
		srv := newHTTPServer(s.addr(), handler)

		slog.InfoContext(ctx, "starting https server", "address", "https://"+srv.Addr)

		return serve(ctx, srv, func() error {
			return srv.ListenAndServeTLS(s.TLS.CertFile, s.TLS.KeyFile)
		})
	case TLSModeAutoCert:
		return s.runAutoCert(ctx, handler)
	default:
		return &UnknownTLSModeError{Mode: s.TLS.Mode}
	}
}

func (s *Server) runAutoCert(ctx context.Context, handler http.Handler) error {
	if s.TLS.AutoCert == nil || len(s.TLS.AutoCert.Domains) == 0 {
		return errors.New("autocert requires at least one domain")
	}

	manager := &autocert.Manager{
		Prompt:     autocert.AcceptTOS,
		HostPolicy: autocert.HostWhitelist(s.TLS.AutoCert.Domains...),
		Cache:      autocert.DirCache(s.TLS.AutoCert.CacheDir),
		Email:      s.TLS.AutoCert.Email,
	}

	httpsSrv := newHTTPServer(net.JoinHostPort(s.Host, "443"), handler)
	httpsSrv.TLSConfig = manager.TLSConfig()

	challengeSrv := newHTTPServer(net.JoinHostPort(s.Host, "80"), manager.HTTPHandler(nil))

	slog.InfoContext(ctx, "starting https server with autocert", "address", domainsToHTTPSAddress(s.TLS.AutoCert.Domains))

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return serve(ctx, challengeSrv, challengeSrv.ListenAndServe)
	})

	g.Go(func() error {
		return serve(ctx, httpsSrv, func() error {
			return httpsSrv.ListenAndServeTLS("", "")
		})
	})

	err := g.Wait()
	if err != nil {
		return fmt.Errorf("failed to run autocert servers: %w", err)
	}

	return nil
}

func serve(ctx context.Context, srv *http.Server, listen func() error) error {
	errCh := make(chan error, 1)

	go func() {
		errCh <- listen()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}

		return fmt.Errorf("failed to listen on %s: %w", srv.Addr, err)
	case <-ctx.Done():
		slog.InfoContext(ctx, "shutting down server", "address", srv.Addr)

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()

		err := srv.Shutdown(shutdownCtx)
		if err != nil {
			return fmt.Errorf("failed to shutdown server: %w", err)
		}

		return nil
	}
}

func domainsToHTTPSAddress(domains []string) string {
	addresses := make([]string, 0, len(domains))
	for _, domain := range domains {
		addresses = append(addresses, "https://"+domain)
	}

	return strings.Join(addresses, ", ")
}
