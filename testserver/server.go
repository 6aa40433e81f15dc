// Package testserver runs a handler on an ephemeral loopback port for tests
// and sends requests to it.
package testserver

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"golang.org/x/net/nettest"
)

// Server wraps a handler in an HTTP server bound to an ephemeral loopback
// port on first use. The zero value is not usable, see New.
type Server struct {
	opts    *Options
	handler http.Handler
	listen  func(network string) (net.Listener, error)

	mu      sync.Mutex
	binding *binding
}

// binding is the memoized readiness signal of one listen/close segment.
type binding struct {
	done   chan struct{}
	served chan struct{}
	err    error
	ln     net.Listener
	srv    *http.Server
}

// New returns an unbound Server. It panics if handler is nil.
func New(handler http.Handler, opts ...Option) *Server {
	if handler == nil {
		panic("testserver.New: nil handler")
	}

	return &Server{
		opts:    NewOptions(opts...),
		handler: handler,
		listen:  nettest.NewLocalListener,
	}
}

// NewWithGin returns an unbound Server serving handlers for every method and path.
func NewWithGin(handlers []gin.HandlerFunc, opts ...Option) *Server {
	return New(GinHandler(handlers...), opts...)
}

// Listen binds the server once per segment; concurrent and later callers
// share the first outcome until Close. ctx bounds the wait only.
func (s *Server) Listen(ctx context.Context) error {
	b := s.acquire()

	select {
	case <-b.done:
		return b.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Server) acquire() *binding {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.binding == nil {
		s.binding = &binding{done: make(chan struct{})}
		go s.bind(s.binding)
	}

	return s.binding
}

func (s *Server) bind(b *binding) {
	defer close(b.done)

	ln, err := s.listen(s.opts.Network)
	if err != nil {
		s.opts.Logger.Debug().Err(err).Str("network", s.opts.Network).Msg("bind failed")
		b.err = fmt.Errorf("%w: %w", ErrBind, err)
		return
	}

	b.ln = ln
	b.served = make(chan struct{})
	b.srv = &http.Server{
		Handler:  s.handler,
		ErrorLog: log.New(s.opts.Logger, "", 0),
	}

	go func() {
		defer close(b.served)
		if err := b.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.opts.Logger.Error().Err(err).Str("addr", ln.Addr().String()).Msg("serve")
		}
	}()

	s.opts.Logger.Debug().Str("addr", ln.Addr().String()).Msg("listening")
}

// Close shuts the server down and forgets the binding so the next Listen
// binds a fresh port. The port is released when Close returns, even if
// shutdown fails. It returns ErrNotRunning if nothing is bound.
func (s *Server) Close(ctx context.Context) error {
	s.mu.Lock()
	b := s.binding
	s.binding = nil
	s.mu.Unlock()

	if b == nil {
		return ErrNotRunning
	}

	<-b.done
	if b.err != nil {
		return fmt.Errorf("%w: %w", ErrNotRunning, b.err)
	}

	if c, ok := s.opts.HTTPClient.(interface{ CloseIdleConnections() }); ok {
		c.CloseIdleConnections()
	}

	// Serve may not have tracked ln yet, in which case Shutdown leaves it open.
	shutdownErr := b.srv.Shutdown(ctx)
	if err := b.ln.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		s.opts.Logger.Debug().Err(err).Str("addr", b.ln.Addr().String()).Msg("close listener")
	}
	<-b.served

	if shutdownErr != nil {
		return fmt.Errorf("%w: %w", ErrShutdown, shutdownErr)
	}

	s.opts.Logger.Debug().Str("addr", b.ln.Addr().String()).Msg("closed")

	return nil
}

// Addr returns the bound listener address, or nil while unbound.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	b := s.binding
	s.mu.Unlock()

	if b == nil {
		return nil
	}

	select {
	case <-b.done:
	default:
		return nil
	}

	if b.ln == nil {
		return nil
	}

	return b.ln.Addr()
}

// Address returns http://<host>:<port>. It is only meaningful after Listen or
// a request has returned; while unbound it is empty.
func (s *Server) Address() string {
	addr := s.Addr()
	if addr == nil {
		return ""
	}

	_, port, err := net.SplitHostPort(addr.String())
	if err != nil {
		return ""
	}

	return "http://" + net.JoinHostPort(s.opts.Host, port)
}

// URL joins Address and path.
func (s *Server) URL(path string) string {
	return s.Address() + path
}

// Client returns the client requests are sent with.
func (s *Server) Client() HTTPClient {
	return s.opts.HTTPClient
}
