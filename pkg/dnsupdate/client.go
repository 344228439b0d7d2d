package dnsupdate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/miekg/dns"

	"gitlab.bluewillows.net/root/dyndns/internal/updater"
)

// Sentinel errors for update operations.
var (
	// ErrNotConfigured is returned when the client cannot perform the
	// requested update with its configuration, notably a secure update
	// without a TSIG key.
	ErrNotConfigured = errors.New("dnsupdate client is not configured")

	// ErrUpdateFailed is returned when the DNS UPDATE operation fails.
	ErrUpdateFailed = errors.New("dns update failed")

	// ErrAuthenticationFailed is returned when TSIG authentication fails.
	ErrAuthenticationFailed = errors.New("tsig authentication failed")

	// ErrConnectionFailed is returned when the connection to the DNS
	// server fails.
	ErrConnectionFailed = errors.New("connection to dns server failed")

	// ErrNoAddresses is returned when the host has no publishable
	// addresses.
	ErrNoAddresses = errors.New("no usable addresses to publish")
)

// exchangeFunc performs one DNS exchange.
type exchangeFunc func(ctx context.Context, msg *dns.Msg, addr string) (*dns.Msg, time.Duration, error)

// addressFunc gathers the addresses to publish for an interface.
type addressFunc func(iface string) ([]net.IP, error)

// Client applies host address updates via RFC 2136. It implements
// updater.Service.
type Client struct {
	config    *Config
	tsig      *TSIG
	logger    *slog.Logger
	dnsClient *dns.Client

	exchange  exchangeFunc
	addresses addressFunc

	mu         sync.RWMutex
	lastUpdate time.Time
}

// ClientOption is a functional option for configuring the Client.
type ClientOption func(*Client)

// WithLogger sets a custom logger for the DNS update client.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient creates an RFC 2136 update client.
func NewClient(config *Config, opts ...ClientOption) (*Client, error) {
	if config == nil {
		return nil, errors.New("config is required")
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	tsig, err := TSIGFromConfig(config)
	if err != nil {
		return nil, fmt.Errorf("invalid TSIG configuration: %w", err)
	}

	c := &Client{
		config: config,
		tsig:   tsig,
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	c.dnsClient = &dns.Client{
		Timeout: config.GetTimeout(),
	}
	if config.UseTCP {
		c.dnsClient.Net = "tcp"
	} else {
		c.dnsClient.Net = "udp"
	}
	tsig.ApplyToClient(c.dnsClient)

	if c.exchange == nil {
		c.exchange = c.dnsClient.ExchangeContext
	}
	if c.addresses == nil {
		c.addresses = interfaceAddresses
	}

	c.logger.Debug("RFC 2136 client initialized",
		slog.Bool("tsig", tsig != nil),
		slog.Bool("tcp", config.UseTCP),
	)

	return c, nil
}

// Update replaces the host's A and AAAA RRsets with the current
// addresses of the requested interface, in one UPDATE transaction
// against the requested server.
func (c *Client) Update(ctx context.Context, req updater.Request) error {
	if req.Secure && c.tsig == nil {
		return fmt.Errorf("%w: secure update requires a TSIG key", ErrNotConfigured)
	}

	ips, err := c.addresses(req.Interface)
	if err != nil {
		return fmt.Errorf("gathering addresses: %w", err)
	}
	if len(ips) == 0 {
		return ErrNoAddresses
	}

	name := dns.Fqdn(strings.ToLower(req.Hostname))
	zone := dns.Fqdn(req.Zone)

	msg := new(dns.Msg)
	msg.SetUpdate(zone)
	msg.RemoveRRset(rrsetHeaders(name, dns.TypeA, dns.TypeAAAA))
	msg.Insert(addressRecords(name, req.TTL, ips))

	if req.Secure {
		c.tsig.ApplyToMessage(msg)
	}

	server := net.JoinHostPort(req.Server, strconv.Itoa(c.config.GetPort()))

	c.logger.Debug("sending dynamic DNS update",
		slog.String("name", name),
		slog.String("zone", zone),
		slog.String("server", server),
		slog.Int("addresses", len(ips)),
	)

	resp, rtt, err := c.exchange(ctx, msg, server)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	if err := checkResponse(resp); err != nil {
		return err
	}

	c.mu.Lock()
	c.lastUpdate = time.Now()
	c.mu.Unlock()

	c.logger.Info("host address records updated",
		slog.String("name", name),
		slog.Int("addresses", len(ips)),
		slog.Duration("rtt", rtt),
	)

	return nil
}

// LastUpdate returns the time of the last successful update.
func (c *Client) LastUpdate() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastUpdate
}

// checkResponse maps DNS response codes to errors.
func checkResponse(resp *dns.Msg) error {
	if resp == nil {
		return fmt.Errorf("%w: no response from server", ErrUpdateFailed)
	}

	switch resp.Rcode {
	case dns.RcodeSuccess:
		return nil

	case dns.RcodeNotAuth:
		if resp.IsTsig() != nil {
			return fmt.Errorf("%w: %s", ErrAuthenticationFailed, dns.RcodeToString[resp.Rcode])
		}
		return fmt.Errorf("%w: server not authoritative for zone", ErrUpdateFailed)

	case dns.RcodeRefused:
		return fmt.Errorf("%w: update refused (check server policy or TSIG configuration)", ErrUpdateFailed)

	default:
		return fmt.Errorf("%w: %s", ErrUpdateFailed, dns.RcodeToString[resp.Rcode])
	}
}
