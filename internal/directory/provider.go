// Package directory provides the LDAP connection probe used before
// periodic DNS update attempts, and the connectivity monitor that fires
// callbacks when the directory transitions from offline to online.
package directory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/go-ldap/ldap/v3"
)

// Default connection settings.
const (
	// DefaultDialTimeout bounds a single connection attempt.
	DefaultDialTimeout = 6 * time.Second

	// DefaultMaxTries is how many dial attempts one Connect call makes
	// before reporting the server unreachable.
	DefaultMaxTries = 3

	// DefaultRetryInterval is the initial backoff between dial attempts.
	DefaultRetryInterval = 500 * time.Millisecond
)

// conn is the subset of *ldap.Conn the probe uses.
type conn interface {
	Bind(username, password string) error
	Close() error
}

type dialFunc func(ctx context.Context) (conn, error)

// Provider establishes directory connections on demand. One Connect
// call makes at most one outstanding connection at a time.
type Provider struct {
	uri          string
	bindDN       string
	bindPassword string

	dialTimeout   time.Duration
	maxTries      uint
	retryInterval time.Duration

	logger *slog.Logger
	dial   dialFunc
}

// ProviderOption is a functional option for configuring the Provider.
type ProviderOption func(*Provider)

// WithBind sets simple-bind credentials used to verify the connection.
// Without credentials the probe stops at the transport level.
func WithBind(dn, password string) ProviderOption {
	return func(p *Provider) {
		p.bindDN = dn
		p.bindPassword = password
	}
}

// WithDialTimeout bounds a single connection attempt.
func WithDialTimeout(timeout time.Duration) ProviderOption {
	return func(p *Provider) {
		if timeout > 0 {
			p.dialTimeout = timeout
		}
	}
}

// WithProviderLogger sets a custom logger.
func WithProviderLogger(logger *slog.Logger) ProviderOption {
	return func(p *Provider) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// NewProvider creates a connection provider for the given ldap:// URI.
func NewProvider(uri string, opts ...ProviderOption) *Provider {
	p := &Provider{
		uri:           uri,
		dialTimeout:   DefaultDialTimeout,
		maxTries:      DefaultMaxTries,
		retryInterval: DefaultRetryInterval,
		logger:        slog.Default(),
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.dial == nil {
		p.dial = p.dialLDAP
	}

	return p
}

// Connect establishes (and immediately releases) a directory
// connection. Network-level failures are retried with exponential
// backoff within this call; once retries are exhausted they are
// reported as ErrOffline. Any other failure is returned as-is.
func (p *Provider) Connect(ctx context.Context) error {
	op := func() (struct{}, error) {
		c, err := p.dial(ctx)
		if err != nil {
			if isNetworkError(err) {
				return struct{}{}, err
			}
			return struct{}{}, backoff.Permanent(err)
		}
		defer c.Close()

		if p.bindDN != "" {
			if err := c.Bind(p.bindDN, p.bindPassword); err != nil {
				return struct{}{}, backoff.Permanent(fmt.Errorf("bind as %q: %w", p.bindDN, err))
			}
		}

		return struct{}{}, nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = p.retryInterval

	_, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(bo),
		backoff.WithMaxTries(p.maxTries),
	)
	if err == nil {
		return nil
	}

	if isNetworkError(err) {
		p.logger.Debug("directory connection failed",
			slog.String("uri", p.uri),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("%w: %v", ErrOffline, err)
	}

	return fmt.Errorf("connecting to %s: %w", p.uri, err)
}

// URI returns the configured connection URI, scheme included.
func (p *Provider) URI() string {
	return p.uri
}

func (p *Provider) dialLDAP(_ context.Context) (conn, error) {
	return ldap.DialURL(p.uri,
		ldap.DialWithDialer(&net.Dialer{Timeout: p.dialTimeout}),
	)
}

// isNetworkError reports whether err is a transport-level failure, the
// class of error that maps to the offline condition.
func isNetworkError(err error) bool {
	if err == nil {
		return false
	}
	if ldap.IsErrorWithCode(err, ldap.ErrorNetwork) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}
