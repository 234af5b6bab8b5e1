package utils

import (
	"net"
	"net/url"
	"strings"
)

// privateNetworks are the ranges a development origin may come from:
// RFC1918, loopback, and link-local, for both IP versions.
var privateNetworks = []*net.IPNet{
	mustParseCIDR("10.0.0.0/8"),
	mustParseCIDR("172.16.0.0/12"),
	mustParseCIDR("192.168.0.0/16"),
	mustParseCIDR("127.0.0.0/8"),
	mustParseCIDR("169.254.0.0/16"),
	mustParseCIDR("::1/128"),
	mustParseCIDR("fe80::/10"),
	mustParseCIDR("fc00::/7"),
}

// IsAllowedOrigin reports whether an Origin header value should be trusted.
// Public origins are allowed only when listed as a storefront origin
// (compared case-insensitively, ignoring a trailing slash). Private-network
// origins (localhost, RFC1918 and link-local IPs, .local hostnames,
// single-label LAN names) are always allowed so development against a local
// frontend needs no configuration.
func IsAllowedOrigin(origin string, storefront []string) bool {
	if origin == "" {
		return false
	}

	for _, allowed := range storefront {
		allowed = strings.TrimSuffix(strings.TrimSpace(allowed), "/")
		if allowed != "" && strings.EqualFold(allowed, strings.TrimSuffix(origin, "/")) {
			return true
		}
	}

	parsed, err := url.Parse(origin)
	if err != nil || parsed.Host == "" {
		return false
	}

	hostname := parsed.Hostname()

	if hostname == "localhost" {
		return true
	}

	// mDNS names like studio-box.local
	if strings.HasSuffix(hostname, ".local") {
		return true
	}

	// Single-label hostnames only resolve on a LAN.
	if !strings.Contains(hostname, ".") {
		return true
	}

	if ip := net.ParseIP(hostname); ip != nil {
		for _, network := range privateNetworks {
			if network.Contains(ip) {
				return true
			}
		}
	}

	return false
}

func mustParseCIDR(s string) *net.IPNet {
	_, network, err := net.ParseCIDR(s)
	if err != nil {
		panic(err)
	}
	return network
}
