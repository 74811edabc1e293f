// Package sdk provides the client-side library for the Celerix preference
// service. It supports both remote connections via TCP/TLS and a local
// embedded mode.
package sdk

import (
	"bufio"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/celerix-dev/celerix-prefs/internal/prefs"
)

const (
	attempts       = 3
	requestTimeout = 30 * time.Second
)

// Client is a remote client speaking the line protocol.
// It implements the PrefsStore interface.
type Client struct {
	ops

	addr   string
	tenant string
	token  string
	useTLS bool
	logger *zap.Logger

	mu     sync.Mutex // Protects concurrent access to the connection
	conn   net.Conn
	reader *bufio.Reader
}

// Option configures a Client.
type Option func(*Client)

// WithTLS overrides whether the connection is TLS encrypted.
func WithTLS(enabled bool) Option {
	return func(c *Client) { c.useTLS = enabled }
}

// WithLogger sets the logger used to report reconnects.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// Connect establishes a TLS-encrypted connection to a remote daemon and
// authenticates as tenant. The token may be empty when the daemon does not
// require tokens. If CELERIX_PREFS_DISABLE_TLS is "true", it falls back to
// plain TCP unless WithTLS says otherwise.
func Connect(addr, tenant, token string, opts ...Option) (*Client, error) {
	c := &Client{
		addr:   addr,
		tenant: tenant,
		token:  token,
		useTLS: os.Getenv("CELERIX_PREFS_DISABLE_TLS") != "true",
		logger: zap.NewNop(),
	}
	c.ops = ops{ex: c}
	for _, opt := range opts {
		opt(c)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.reconnect(); err != nil {
		return nil, err
	}
	return c, nil
}

// reconnect replaces the connection and re-authenticates. It must be called
// with c.mu held.
func (c *Client) reconnect() error {
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}

	dialer := &net.Dialer{
		Timeout:   10 * time.Second,
		KeepAlive: 60 * time.Second,
	}

	var conn net.Conn
	var err error
	if c.useTLS {
		config := &tls.Config{
			InsecureSkipVerify: true, // The daemon uses a self-signed certificate
		}
		conn, err = tls.DialWithDialer(dialer, "tcp", c.addr, config)
	} else {
		conn, err = dialer.Dial("tcp", c.addr)
	}
	if err != nil {
		return err
	}

	c.conn = conn
	c.reader = bufio.NewReader(conn)

	cmd := "AUTH " + c.tenant
	if c.token != "" {
		cmd += " " + c.token
	}
	if _, err := c.roundTrip(cmd); err != nil {
		c.conn.Close()
		c.conn = nil
		return err
	}
	return nil
}

// roundTrip writes one command and parses the reply line. It must be called
// with c.mu held.
func (c *Client) roundTrip(cmd string) ([]byte, error) {
	_ = c.conn.SetDeadline(time.Now().Add(requestTimeout))
	if _, err := fmt.Fprint(c.conn, cmd+"\n"); err != nil {
		return nil, err
	}
	line, err := c.reader.ReadString('\n')
	if err != nil {
		return nil, err
	}
	return parseReply(strings.TrimRight(line, "\r\n"))
}

// send performs cmd, reconnecting with backoff when the connection fails.
// Errors reported by the service are returned as is.
func (c *Client) send(cmd string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var err error
	for i := 0; i < attempts; i++ {
		if c.conn == nil {
			if err = c.reconnect(); err != nil {
				var serr *Error
				if errors.As(err, &serr) {
					return nil, err
				}
				time.Sleep(time.Duration(i*100) * time.Millisecond)
				continue
			}
		}

		var reply []byte
		reply, err = c.roundTrip(cmd)
		var serr *Error
		if err == nil || errors.As(err, &serr) {
			return reply, err
		}

		c.logger.Warn("Request failed, reconnecting", zap.Int("attempt", i+1), zap.String("addr", c.addr), zap.Error(err))
		c.conn.Close()
		c.conn = nil

		// Wait before retrying
		time.Sleep(time.Duration((i+1)*200) * time.Millisecond)
	}

	return nil, fmt.Errorf("failed after %d attempts: %w", attempts, err)
}

func (c *Client) exchange(verb prefs.Verb, route string, body []byte) ([]byte, error) {
	cmd := command(verb) + " " + route
	if len(body) > 0 {
		cmd += " " + string(body)
	}
	return c.send(cmd)
}

// Ping checks that the daemon answers.
func (c *Client) Ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		if err := c.reconnect(); err != nil {
			return err
		}
	}
	_ = c.conn.SetDeadline(time.Now().Add(requestTimeout))
	if _, err := fmt.Fprint(c.conn, "PING\n"); err != nil {
		return err
	}
	line, err := c.reader.ReadString('\n')
	if err != nil {
		return err
	}
	if strings.TrimSpace(line) != "PONG" {
		return fmt.Errorf("unexpected reply %q", line)
	}
	return nil
}

// Category returns a scope pinned to one category.
func (c *Client) Category(name string) *CategoryScope {
	return newCategoryScope(c, name)
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	fmt.Fprintln(c.conn, "QUIT")
	err := c.conn.Close()
	c.conn = nil
	return err
}

func command(verb prefs.Verb) string {
	switch verb {
	case prefs.Write:
		return "POST"
	case prefs.Delete:
		return "DEL"
	default:
		return "GET"
	}
}

// parseReply decodes "OK", "OK <json>" and "ERR <status> <message>".
func parseReply(line string) ([]byte, error) {
	switch {
	case line == "OK":
		return nil, nil
	case strings.HasPrefix(line, "OK "):
		return []byte(line[len("OK "):]), nil
	case strings.HasPrefix(line, "ERR "):
		status, msg, _ := strings.Cut(line[len("ERR "):], " ")
		code, err := strconv.Atoi(status)
		if err != nil {
			return nil, &Error{Status: 500, Message: line[len("ERR "):]}
		}
		return nil, &Error{Status: code, Message: msg}
	}
	return nil, fmt.Errorf("malformed reply %q", line)
}
