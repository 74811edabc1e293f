// Package server serves the preference service over a line oriented TCP
// protocol.
//
// Every request is one line and gets one reply line:
//
//	AUTH <tenant> [token]      OK | ERR <status> <message>
//	GET <route> [filter]       OK <json> | ERR ...
//	POST <route> <json>        OK | ERR ...
//	DEL <route>                OK | ERR ...
//	PING                       PONG
//	QUIT
//
// Routes are slash separated like HTTP paths; "/" is the tenant root.
package server

import (
	"bufio"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/celerix-dev/celerix-prefs/internal/auth"
	perrors "github.com/celerix-dev/celerix-prefs/internal/errors"
	"github.com/celerix-dev/celerix-prefs/internal/prefs"
)

const (
	maxConns     = 100
	connDeadline = 5 * time.Minute
	idleDeadline = 30 * time.Second
	// maxLine bounds a single request line.
	maxLine = 1 << 20
)

type Router struct {
	service  *prefs.Service
	resolver *auth.Resolver
	logger   *zap.Logger
	cert     *tls.Certificate

	mu       sync.Mutex
	listener net.Listener
	closed   bool
	active   map[net.Conn]struct{}
	conns    sync.WaitGroup
}

func NewRouter(s *prefs.Service, r *auth.Resolver, logger *zap.Logger) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{service: s, resolver: r, logger: logger, active: make(map[net.Conn]struct{})}
}

// SetCertificate sets the TLS certificate for the router
func (r *Router) SetCertificate(cert tls.Certificate) {
	r.cert = &cert
}

// Addr returns the bound address once Listen has started.
func (r *Router) Addr() net.Addr {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listener == nil {
		return nil
	}
	return r.listener.Addr()
}

// Listen starts the TCP server and blocks until Stop is called.
func (r *Router) Listen(addr string) error {
	var listener net.Listener
	var err error

	if r.cert != nil {
		config := &tls.Config{Certificates: []tls.Certificate{*r.cert}, MinVersion: tls.VersionTLS12}
		listener, err = tls.Listen("tcp", addr, config)
	} else {
		listener, err = net.Listen("tcp", addr)
	}
	if err != nil {
		return err
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return listener.Close()
	}
	r.listener = listener
	r.mu.Unlock()

	r.logger.Info("Line protocol listening", zap.String("addr", listener.Addr().String()), zap.Bool("tls", r.cert != nil))

	semaphore := make(chan struct{}, maxConns)

	for {
		conn, err := listener.Accept()
		if err != nil {
			r.mu.Lock()
			closed := r.closed
			r.mu.Unlock()
			if closed {
				return nil
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				continue
			}
			return err
		}

		// Set aggressive timeouts for light traffic to prevent resource exhaustion
		_ = conn.SetDeadline(time.Now().Add(connDeadline))

		r.mu.Lock()
		if r.closed {
			r.mu.Unlock()
			conn.Close()
			return nil
		}
		r.active[conn] = struct{}{}
		r.mu.Unlock()

		r.conns.Add(1)
		go func(c net.Conn) {
			semaphore <- struct{}{}
			defer func() {
				<-semaphore
				c.Close()
				r.mu.Lock()
				delete(r.active, c)
				r.mu.Unlock()
				r.conns.Done()
			}()
			r.handleConnection(c)
		}(conn)
	}
}

// Stop closes the listener and every open connection, then waits for the
// connection handlers to return.
func (r *Router) Stop() error {
	r.mu.Lock()
	r.closed = true
	l := r.listener
	for c := range r.active {
		c.Close()
	}
	r.mu.Unlock()

	var err error
	if l != nil {
		err = l.Close()
	}
	r.conns.Wait()
	return err
}

// session is the per-connection state.
type session struct {
	who *auth.Authorized
}

func (r *Router) handleConnection(conn net.Conn) {
	reader := bufio.NewReaderSize(conn, 64*1024)
	var s session

	for {
		// Set a deadline for the next command
		_ = conn.SetReadDeadline(time.Now().Add(idleDeadline))

		line, err := readLine(reader)
		if err != nil {
			if errors.Is(err, errLineTooLong) {
				fmt.Fprintf(conn, "ERR %d %s\n", 400, err)
			}
			return // Connection closed or timeout
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		command, rest := cut(line)
		switch strings.ToUpper(command) {
		case "PING":
			fmt.Fprintln(conn, "PONG")

		case "QUIT":
			return

		case "AUTH":
			tenantToken, token := cut(rest)
			switch rc := r.resolver.Resolve(context.Background(), tenantToken, strings.TrimSpace(token)).(type) {
			case auth.Authorized:
				s.who = &rc
				fmt.Fprintln(conn, "OK")
			case auth.Rejected:
				s.who = nil
				reply(conn, prefs.Response{}, perrors.New(perrors.EUnauthorized, "server.auth", "%s", rc.Reason))
			}

		case "GET":
			r.serve(conn, &s, prefs.Read, rest)

		case "POST", "PUT", "SET":
			r.serve(conn, &s, prefs.Write, rest)

		case "DEL", "DELETE":
			r.serve(conn, &s, prefs.Delete, rest)

		default:
			reply(conn, prefs.Response{}, perrors.New(perrors.EInvalid, "server.handle", "unknown command %q", command))
		}
	}
}

func (r *Router) serve(conn net.Conn, s *session, verb prefs.Verb, args string) {
	if s.who == nil {
		reply(conn, prefs.Response{}, perrors.New(perrors.EUnauthorized, "server.serve", "AUTH required"))
		return
	}
	route, body := cut(args)
	if route == "" {
		reply(conn, prefs.Response{}, perrors.New(perrors.EInvalid, "server.serve", "a route is required"))
		return
	}

	start := time.Now()
	req := r.service.ParseRoute(verb, route, []byte(body))
	resp, err := r.service.Do(context.Background(), *s.who, req)
	r.logger.Debug("Line request",
		zap.String("tenant", s.who.Tenant.String()),
		zap.Stringer("verb", verb),
		zap.String("route", route),
		zap.Int("status", perrors.HTTPStatus(err)),
		zap.Duration("took", time.Since(start)))
	reply(conn, resp, err)
}

func reply(conn net.Conn, resp prefs.Response, err error) {
	if err != nil {
		msg := strings.ReplaceAll(perrors.ErrorMessage(err), "\n", " ")
		fmt.Fprintf(conn, "ERR %d %s\n", perrors.HTTPStatus(err), msg)
		return
	}
	if resp.Empty {
		fmt.Fprintln(conn, "OK")
		return
	}
	fmt.Fprintln(conn, "OK", resp.Value.String())
}

// cut splits s at the first run of spaces.
func cut(s string) (head, tail string) {
	s = strings.TrimLeft(s, " \t")
	i := strings.IndexAny(s, " \t")
	if i < 0 {
		return s, ""
	}
	return s[:i], strings.TrimLeft(s[i:], " \t")
}

var errLineTooLong = errors.New("line too long")

// readLine reads up to a newline, refusing lines longer than maxLine.
func readLine(r *bufio.Reader) (string, error) {
	var b strings.Builder
	for {
		frag, isPrefix, err := r.ReadLine()
		if err != nil {
			return "", err
		}
		if b.Len()+len(frag) > maxLine {
			return "", errLineTooLong
		}
		b.Write(frag)
		if !isPrefix {
			return b.String(), nil
		}
	}
}
