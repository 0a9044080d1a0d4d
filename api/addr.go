// Package api
// Author: momentics
//
// Structured socket address representation used at the datagram
// boundary. Wire sockaddr structures never leak out of the platform
// shim; callers only ever see Addr values.

package api

import (
	"net"
	"strconv"
)

// Family identifies the address family a handle is bound under.
type Family uint8

const (
	FamilyUnspec Family = iota
	FamilyIPv4
	FamilyIPv6
)

// String returns the conventional family name.
func (f Family) String() string {
	switch f {
	case FamilyIPv4:
		return "IPv4"
	case FamilyIPv6:
		return "IPv6"
	default:
		return "unspec"
	}
}

// Addr is the decoded form of a socket address.
type Addr struct {
	Family Family
	IP     net.IP
	Port   int
	Zone   string // IPv6 scope zone, empty otherwise
}

// String renders host:port, bracketing IPv6 literals.
func (a Addr) String() string {
	host := a.IP.String()
	if a.Zone != "" {
		host += "%" + a.Zone
	}
	return net.JoinHostPort(host, strconv.Itoa(a.Port))
}

// IsValid reports whether the address carries a usable family.
func (a Addr) IsValid() bool {
	return a.Family == FamilyIPv4 || a.Family == FamilyIPv6
}
