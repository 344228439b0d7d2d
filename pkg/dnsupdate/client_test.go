package dnsupdate

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/miekg/dns"

	"gitlab.bluewillows.net/root/dyndns/internal/updater"
)

func testRequest() updater.Request {
	return updater.Request{
		Interface: "eth0",
		Hostname:  "client1.example.com",
		Zone:      "example.com",
		Realm:     "EXAMPLE.COM",
		Server:    "server1.example.com",
		TTL:       1200,
		Secure:    true,
	}
}

func tsigConfig() *Config {
	return &Config{
		TSIGKeyName:   "host-client1.",
		TSIGSecret:    "c2VjcmV0", // base64 of "secret"
		TSIGAlgorithm: "hmac-sha256",
	}
}

// newTestClient builds a client whose exchange and address gathering
// are scripted.
func newTestClient(t *testing.T, cfg *Config, rcode int, exchangeErr error) (*Client, *dns.Msg) {
	t.Helper()

	client, err := NewClient(cfg)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	captured := new(dns.Msg)
	client.exchange = func(_ context.Context, msg *dns.Msg, _ string) (*dns.Msg, time.Duration, error) {
		*captured = *msg
		if exchangeErr != nil {
			return nil, 0, exchangeErr
		}
		resp := new(dns.Msg)
		resp.SetReply(msg)
		resp.Rcode = rcode
		return resp, time.Millisecond, nil
	}
	client.addresses = func(iface string) ([]net.IP, error) {
		return []net.IP{
			net.ParseIP("192.0.2.10"),
			net.ParseIP("2001:db8::10"),
		}, nil
	}

	return client, captured
}

func TestNewClient(t *testing.T) {
	tests := []struct {
		name    string
		config  *Config
		wantErr bool
	}{
		{"valid with TSIG", tsigConfig(), false},
		{"valid without TSIG", &Config{}, false},
		{"nil config", nil, true},
		{
			"invalid TSIG secret",
			&Config{TSIGKeyName: "k.", TSIGSecret: "not-base64!!!"},
			true,
		},
		{
			"invalid port",
			&Config{Port: 70000},
			true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := NewClient(tt.config)
			if tt.wantErr {
				if err == nil {
					t.Error("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}
			if client == nil {
				t.Error("expected client, got nil")
			}
		})
	}
}

func TestUpdateBuildsReplaceMessage(t *testing.T) {
	client, captured := newTestClient(t, tsigConfig(), dns.RcodeSuccess, nil)

	if err := client.Update(context.Background(), testRequest()); err != nil {
		t.Fatalf("Update: %v", err)
	}

	if len(captured.Question) != 1 || captured.Question[0].Name != "example.com." {
		t.Errorf("update zone = %v, want example.com.", captured.Question)
	}

	// RRset removals for A and AAAA, then the two inserts.
	var removals, inserts int
	for _, rr := range captured.Ns {
		hdr := rr.Header()
		if hdr.Name != "client1.example.com." {
			t.Errorf("record name = %q, want client1.example.com.", hdr.Name)
		}
		switch hdr.Class {
		case dns.ClassANY:
			removals++
		case dns.ClassINET:
			inserts++
			if hdr.Ttl != 1200 {
				t.Errorf("insert TTL = %d, want 1200", hdr.Ttl)
			}
		}
	}
	if removals != 2 {
		t.Errorf("RRset removals = %d, want 2 (A and AAAA)", removals)
	}
	if inserts != 2 {
		t.Errorf("inserted records = %d, want 2", inserts)
	}
}

func TestUpdateSignsSecureMessages(t *testing.T) {
	client, captured := newTestClient(t, tsigConfig(), dns.RcodeSuccess, nil)

	if err := client.Update(context.Background(), testRequest()); err != nil {
		t.Fatalf("Update: %v", err)
	}

	tsig := captured.IsTsig()
	if tsig == nil {
		t.Fatal("secure update must carry a TSIG record")
	}
	if tsig.Hdr.Name != "host-client1." {
		t.Errorf("TSIG key name = %q, want host-client1.", tsig.Hdr.Name)
	}
}

func TestUpdateSecureWithoutTSIGFails(t *testing.T) {
	client, _ := newTestClient(t, &Config{}, dns.RcodeSuccess, nil)

	err := client.Update(context.Background(), testRequest())
	if !errors.Is(err, ErrNotConfigured) {
		t.Errorf("Update error = %v, want ErrNotConfigured", err)
	}
}

func TestUpdateLowercasesHostname(t *testing.T) {
	client, captured := newTestClient(t, tsigConfig(), dns.RcodeSuccess, nil)

	req := testRequest()
	req.Hostname = "CLIENT1.Example.COM"
	if err := client.Update(context.Background(), req); err != nil {
		t.Fatalf("Update: %v", err)
	}

	for _, rr := range captured.Ns {
		if rr.Header().Name != "client1.example.com." {
			t.Errorf("record name = %q, want lower-cased FQDN", rr.Header().Name)
		}
	}
}

func TestUpdateRcodeErrors(t *testing.T) {
	tests := []struct {
		name    string
		rcode   int
		wantErr error
	}{
		{"refused", dns.RcodeRefused, ErrUpdateFailed},
		{"not zone", dns.RcodeNotZone, ErrUpdateFailed},
		{"servfail", dns.RcodeServerFailure, ErrUpdateFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newTestClient(t, tsigConfig(), tt.rcode, nil)
			err := client.Update(context.Background(), testRequest())
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Update error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestUpdateExchangeErrorIsConnectionFailure(t *testing.T) {
	client, _ := newTestClient(t, tsigConfig(), 0, errors.New("i/o timeout"))

	err := client.Update(context.Background(), testRequest())
	if !errors.Is(err, ErrConnectionFailed) {
		t.Errorf("Update error = %v, want ErrConnectionFailed", err)
	}
}

func TestUpdateNoAddresses(t *testing.T) {
	client, _ := newTestClient(t, tsigConfig(), dns.RcodeSuccess, nil)
	client.addresses = func(string) ([]net.IP, error) { return nil, nil }

	err := client.Update(context.Background(), testRequest())
	if !errors.Is(err, ErrNoAddresses) {
		t.Errorf("Update error = %v, want ErrNoAddresses", err)
	}
}

func TestUpdateRecordsLastUpdate(t *testing.T) {
	client, _ := newTestClient(t, tsigConfig(), dns.RcodeSuccess, nil)

	if !client.LastUpdate().IsZero() {
		t.Fatal("LastUpdate should be zero before any update")
	}
	if err := client.Update(context.Background(), testRequest()); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if client.LastUpdate().IsZero() {
		t.Error("LastUpdate should be set after a successful update")
	}
}

func TestCheckResponse(t *testing.T) {
	if err := checkResponse(nil); !errors.Is(err, ErrUpdateFailed) {
		t.Errorf("nil response error = %v, want ErrUpdateFailed", err)
	}

	ok := new(dns.Msg)
	ok.Rcode = dns.RcodeSuccess
	if err := checkResponse(ok); err != nil {
		t.Errorf("success rcode: %v", err)
	}

	notAuth := new(dns.Msg)
	notAuth.Rcode = dns.RcodeNotAuth
	if err := checkResponse(notAuth); !errors.Is(err, ErrUpdateFailed) {
		t.Errorf("NOTAUTH without TSIG error = %v, want ErrUpdateFailed", err)
	}
}
