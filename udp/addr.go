// File: udp/addr.go
// Author: momentics <momentics@gmail.com>
//
// Textual address parsing per family. The platform shim owns the
// conversion to and from wire sockaddr structures; this codec only
// deals in api.Addr.

package udp

import (
	"net"
	"strings"

	"github.com/momentics/hioload-udp/api"
)

// parseIP parses a textual address under the given family. IPv6
// literals may carry a %zone suffix. The wrong family for the literal
// is an invalid-argument error, never a silent reinterpretation.
func parseIP(op string, family api.Family, s string) (net.IP, string, error) {
	text, zone := s, ""
	if i := strings.IndexByte(s, '%'); i >= 0 {
		text, zone = s[:i], s[i+1:]
	}
	ip := net.ParseIP(text)
	if ip == nil {
		return nil, "", api.NewError(api.ErrCodeInvalidArgument, op, "invalid address "+s)
	}
	switch family {
	case api.FamilyIPv4:
		if v4 := ip.To4(); v4 != nil && !strings.Contains(text, ":") {
			return v4, "", nil
		}
		return nil, "", api.NewError(api.ErrCodeInvalidArgument, op, "not an IPv4 address: "+s)
	case api.FamilyIPv6:
		if strings.Contains(text, ":") {
			return ip.To16(), zone, nil
		}
		return nil, "", api.NewError(api.ErrCodeInvalidArgument, op, "not an IPv6 address: "+s)
	default:
		return nil, "", api.NewError(api.ErrCodeInvalidArgument, op, "unspecified address family")
	}
}

// groupFamily infers the family of a multicast group literal.
func groupFamily(group string) api.Family {
	if strings.Contains(group, ":") {
		return api.FamilyIPv6
	}
	return api.FamilyIPv4
}

// wildcard returns the any-address literal for a family.
func wildcard(family api.Family) string {
	if family == api.FamilyIPv6 {
		return "::"
	}
	return "0.0.0.0"
}
