// Package ipchecker provides utilities for extracting client IP addresses
// from HTTP requests and for checking whether an address falls within a
// trusted subnet.
package ipchecker

import (
	"fmt"
	"net"
	"net/http"
	"strings"
)

const ipv4MappedPrefix = "::ffff:"

// IPChecker validates client addresses against a trusted subnet.
type IPChecker struct {
	trustedSubnet *net.IPNet
}

// New creates a new IPChecker instance configured with a trusted subnet.
// If the input trustedSubnet is an empty string, the IPChecker will be
// initialized in a disabled state - so the IsTrustedSubnetEmpty will return true
//
// The trustedSubnet must be in CIDR notation (e.g., "192.168.1.0/24").
// Returns an error if the CIDR string cannot be parsed.
func New(trustedSubnet string) (*IPChecker, error) {
	if trustedSubnet == "" {
		return &IPChecker{
			trustedSubnet: nil,
		}, nil
	}
	_, allowedNet, err := net.ParseCIDR(trustedSubnet)
	if err != nil {
		return nil, fmt.Errorf("in internal/ipchecker/ipchecker.go/New(): error while `net.ParseCIDR()` calling: %w", err)
	}
	return &IPChecker{
		trustedSubnet: allowedNet,
	}, nil
}

// Check verifies whether the given IP address belongs to the configured
// trusted subnet. If no trusted subnet is configured, it returns false.
func (checker *IPChecker) Check(clientIP net.IP) bool {
	return clientIP != nil && checker.trustedSubnet != nil && checker.trustedSubnet.Contains(clientIP)
}

// IsTrustedSubnetEmpty returns true if the IPChecker was initialized
// without a trusted subnet.
func (checker *IPChecker) IsTrustedSubnetEmpty() bool {
	return checker.trustedSubnet == nil
}

// GetTrustedClientIP extracts the address used for trusted-subnet checks,
// looking in order at "X-Real-IP" and then at ClientAddress.
func (checker *IPChecker) GetTrustedClientIP(request *http.Request) net.IP {
	if ip := net.ParseIP(strings.TrimSpace(request.Header.Get("X-Real-IP"))); ip != nil {
		return ip
	}

	return net.ParseIP(ClientAddress(request))
}

// ClientAddress returns the address recorded for a click: the first entry of
// "X-Forwarded-For" when the header is present, otherwise the transport peer
// address. An IPv4-mapped IPv6 prefix ("::ffff:") is stripped. The result is not
// validated and may be empty.
func ClientAddress(request *http.Request) string {
	if xff := request.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return stripIPv4MappedPrefix(strings.TrimSpace(first))
	}

	return stripIPv4MappedPrefix(peerAddress(request.RemoteAddr))
}

func peerAddress(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}

	return host
}

func stripIPv4MappedPrefix(address string) string {
	if len(address) >= len(ipv4MappedPrefix) && strings.EqualFold(address[:len(ipv4MappedPrefix)], ipv4MappedPrefix) {
		return address[len(ipv4MappedPrefix):]
	}

	return address
}
