package dnsupdate

import (
	"fmt"
	"net"

	"github.com/miekg/dns"
)

// interfaceAddresses returns the IP addresses to publish for the host.
// With an interface name, only that interface's addresses are used;
// otherwise all addresses of the host are considered. Loopback,
// link-local and unspecified addresses are never published.
func interfaceAddresses(name string) ([]net.IP, error) {
	var (
		addrs []net.Addr
		err   error
	)

	if name == "" {
		addrs, err = net.InterfaceAddrs()
		if err != nil {
			return nil, fmt.Errorf("listing host addresses: %w", err)
		}
	} else {
		ifi, ifErr := net.InterfaceByName(name)
		if ifErr != nil {
			return nil, fmt.Errorf("looking up interface %q: %w", name, ifErr)
		}
		addrs, err = ifi.Addrs()
		if err != nil {
			return nil, fmt.Errorf("listing addresses of %q: %w", name, err)
		}
	}

	return usableIPs(addrs), nil
}

// usableIPs filters the publishable addresses out of an address list.
func usableIPs(addrs []net.Addr) []net.IP {
	var ips []net.IP
	for _, addr := range addrs {
		var ip net.IP
		switch a := addr.(type) {
		case *net.IPNet:
			ip = a.IP
		case *net.IPAddr:
			ip = a.IP
		default:
			continue
		}

		if ip.IsLoopback() || ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() || ip.IsUnspecified() {
			continue
		}
		ips = append(ips, ip)
	}
	return ips
}

// addressRecords builds the A/AAAA resource records for name from the
// given addresses.
func addressRecords(name string, ttl uint32, ips []net.IP) []dns.RR {
	rrs := make([]dns.RR, 0, len(ips))
	for _, ip := range ips {
		if ip4 := ip.To4(); ip4 != nil {
			rrs = append(rrs, &dns.A{
				Hdr: dns.RR_Header{
					Name:   name,
					Rrtype: dns.TypeA,
					Class:  dns.ClassINET,
					Ttl:    ttl,
				},
				A: ip4,
			})
			continue
		}
		rrs = append(rrs, &dns.AAAA{
			Hdr: dns.RR_Header{
				Name:   name,
				Rrtype: dns.TypeAAAA,
				Class:  dns.ClassINET,
				Ttl:    ttl,
			},
			AAAA: ip.To16(),
		})
	}
	return rrs
}

// rrsetHeaders builds header-only RRs naming the RRsets an update
// replaces.
func rrsetHeaders(name string, types ...uint16) []dns.RR {
	rrs := make([]dns.RR, 0, len(types))
	for _, typ := range types {
		rrs = append(rrs, &dns.ANY{
			Hdr: dns.RR_Header{
				Name:   name,
				Rrtype: typ,
				Class:  dns.ClassANY,
			},
		})
	}
	return rrs
}
