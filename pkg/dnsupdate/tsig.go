package dnsupdate

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/miekg/dns"
)

// TSIG represents a Transaction Signature key for RFC 2845
// authentication of dynamic updates.
type TSIG struct {
	// Name is the key name (must end with a dot, e.g., "host-client1.").
	Name string

	// Secret is the base64-encoded shared secret.
	Secret string

	// Algorithm is the TSIG algorithm (e.g., dns.HmacSHA256).
	Algorithm string
}

// NewTSIG creates a TSIG configuration. The secret must be
// base64-encoded.
func NewTSIG(name, secret, algorithm string) (*TSIG, error) {
	if !strings.HasSuffix(name, ".") {
		name += "."
	}

	if _, err := base64.StdEncoding.DecodeString(secret); err != nil {
		return nil, fmt.Errorf("tsig secret is not valid base64: %w", err)
	}

	alg := normalizeAlgorithm(algorithm)
	if !isValidAlgorithm(alg) {
		return nil, fmt.Errorf("unsupported tsig algorithm: %s", algorithm)
	}

	return &TSIG{
		Name:      name,
		Secret:    secret,
		Algorithm: alg,
	}, nil
}

// TSIGFromConfig creates a TSIG configuration from a Config.
// Returns nil if TSIG is not configured.
func TSIGFromConfig(config *Config) (*TSIG, error) {
	if !config.HasTSIG() {
		return nil, nil //nolint:nilnil // nil TSIG is valid (no key configured)
	}

	return NewTSIG(config.TSIGKeyName, config.TSIGSecret, config.GetTSIGAlgorithm())
}

// ApplyToClient applies the TSIG configuration to a dns.Client.
func (t *TSIG) ApplyToClient(client *dns.Client) {
	if t == nil {
		return
	}
	client.TsigSecret = map[string]string{t.Name: t.Secret}
}

// ApplyToMessage signs a fully-constructed DNS message.
func (t *TSIG) ApplyToMessage(msg *dns.Msg) {
	if t == nil {
		return
	}
	msg.SetTsig(t.Name, t.Algorithm, 300, 0)
}

// normalizeAlgorithm converts user-facing algorithm names to the
// miekg/dns format.
func normalizeAlgorithm(alg string) string {
	if alg == "" {
		return DefaultTSIGAlgorithm
	}

	switch strings.ToLower(strings.TrimSpace(alg)) {
	case "hmac-md5", "md5":
		return dns.HmacMD5
	case "hmac-sha256", "sha256":
		return dns.HmacSHA256
	case "hmac-sha512", "sha512":
		return dns.HmacSHA512
	default:
		return alg
	}
}

func isValidAlgorithm(alg string) bool {
	switch alg {
	case dns.HmacMD5, dns.HmacSHA256, dns.HmacSHA512:
		return true
	default:
		return false
	}
}
