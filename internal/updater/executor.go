// Package updater builds the host's dynamic DNS update request from
// configuration and issues it to the update service. It performs no
// scheduling and no retries; pacing is the refresh coordinator's job.
package updater

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// SchemePrefix is the only connection URI scheme the directory service
// is expected to use. Anything else is a format error.
const SchemePrefix = "ldap://"

// Sentinel errors for request construction.
var (
	// ErrMissingDomain is returned when no domain name is configured.
	ErrMissingDomain = errors.New("domain name is not configured")

	// ErrBadServerURI is returned when the directory connection URI does
	// not carry the expected ldap:// scheme.
	ErrBadServerURI = errors.New("unexpected format of directory connection URI")
)

// Request is one fully-formed update, built fresh per attempt and
// discarded after completion.
type Request struct {
	// Interface is the network interface whose addresses are published.
	// Empty means all global unicast addresses of the host.
	Interface string

	// Hostname is the FQDN whose address records are updated.
	Hostname string

	// Zone is the DNS zone, always lower case.
	Zone string

	// Realm is the Kerberos realm the host is enrolled in.
	Realm string

	// Server is the DNS server to send the update to: the host portion
	// of the directory connection URI, scheme stripped.
	Server string

	// TTL is the time-to-live for the published records, in seconds.
	TTL uint32

	// Secure marks the update as authenticated. Always true; the
	// unauthenticated variant is not supported.
	Secure bool
}

// Service applies a fully-formed update against the DNS server.
type Service interface {
	Update(ctx context.Context, req Request) error
}

// Config holds the configuration an Executor builds requests from.
type Config struct {
	Domain    string
	Hostname  string
	Realm     string
	Interface string
	ServerURI string
	TTL       uint32
}

// Executor builds and issues update requests.
type Executor struct {
	cfg    Config
	svc    Service
	logger *slog.Logger
}

// Option is a functional option for configuring the Executor.
type Option func(*Executor)

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Executor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// New creates an Executor that builds requests from cfg and issues them
// through svc.
func New(cfg Config, svc Service, opts ...Option) (*Executor, error) {
	if svc == nil {
		return nil, errors.New("updater: update service is required")
	}

	e := &Executor{
		cfg:    cfg,
		svc:    svc,
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e, nil
}

// BuildRequest constructs the update request from configuration.
// The zone is the lower-cased domain; the server is the connection URI
// with its ldap:// prefix stripped.
func (e *Executor) BuildRequest() (Request, error) {
	if e.cfg.Domain == "" {
		return Request{}, fmt.Errorf("building update request: %w", ErrMissingDomain)
	}

	if !strings.HasPrefix(e.cfg.ServerURI, SchemePrefix) {
		return Request{}, fmt.Errorf("%w: %q", ErrBadServerURI, e.cfg.ServerURI)
	}

	server := strings.TrimPrefix(e.cfg.ServerURI, SchemePrefix)
	if server == "" {
		return Request{}, fmt.Errorf("%w: %q has no host", ErrBadServerURI, e.cfg.ServerURI)
	}

	return Request{
		Interface: e.cfg.Interface,
		Hostname:  e.cfg.Hostname,
		Zone:      strings.ToLower(e.cfg.Domain),
		Realm:     e.cfg.Realm,
		Server:    server,
		TTL:       e.cfg.TTL,
		Secure:    true,
	}, nil
}

// Update builds a request and issues it. The service's result is
// reported upward unchanged; there is no local retry.
func (e *Executor) Update(ctx context.Context) error {
	req, err := e.BuildRequest()
	if err != nil {
		return err
	}

	e.logger.Debug("performing dynamic DNS update",
		slog.String("hostname", req.Hostname),
		slog.String("zone", req.Zone),
		slog.String("server", req.Server),
	)

	return e.svc.Update(ctx, req)
}
