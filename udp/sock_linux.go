//go:build linux
// +build linux

// File: udp/sock_linux.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Linux syscall shim. Wire sockaddr structures stay inside this file;
// everything above it speaks api.Addr.

package udp

import (
	"net"
	"syscall"

	"golang.org/x/sys/unix"

	"github.com/momentics/hioload-udp/api"
)

func sockOpen(family api.Family) (int, error) {
	domain := unix.AF_INET
	if family == api.FamilyIPv6 {
		domain = unix.AF_INET6
	}
	fd, err := unix.Socket(domain, unix.SOCK_DGRAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return -1, osErr("socket", err)
	}
	return fd, nil
}

func sockClose(fd int) error {
	if err := unix.Close(fd); err != nil {
		return osErr("close", err)
	}
	return nil
}

func sockBind(fd int, a api.Addr) error {
	sa, err := toSockaddr(a)
	if err != nil {
		return err
	}
	if err := unix.Bind(fd, sa); err != nil {
		return osErr("bind", err)
	}
	return nil
}

func sockSendTo(fd int, p []byte, a api.Addr) error {
	sa, err := toSockaddr(a)
	if err != nil {
		return err
	}
	if err := unix.Sendto(fd, p, 0, sa); err != nil {
		return osErr("sendto", err)
	}
	return nil
}

func sockRecvFrom(fd int, p []byte) (int, api.Addr, error) {
	n, sa, err := unix.Recvfrom(fd, p, 0)
	if err != nil {
		return 0, api.Addr{}, osErr("recvfrom", err)
	}
	return n, fromSockaddr(sa), nil
}

func sockName(fd int) (api.Addr, error) {
	sa, err := unix.Getsockname(fd)
	if err != nil {
		return api.Addr{}, osErr("getsockname", err)
	}
	return fromSockaddr(sa), nil
}

func sockSetReuseAddr(fd int) error {
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		return osErr("setsockopt SO_REUSEADDR", err)
	}
	return nil
}

func sockSetV6Only(fd int) error {
	if err := unix.SetsockoptInt(fd, unix.IPPROTO_IPV6, unix.IPV6_V6ONLY, 1); err != nil {
		return osErr("setsockopt IPV6_V6ONLY", err)
	}
	return nil
}

func sockSetTTL(fd int, family api.Family, v int) error {
	if family == api.FamilyIPv6 {
		if err := unix.SetsockoptInt(fd, unix.IPPROTO_IPV6, unix.IPV6_UNICAST_HOPS, v); err != nil {
			return osErr("setsockopt IPV6_UNICAST_HOPS", err)
		}
		return nil
	}
	if err := unix.SetsockoptInt(fd, unix.IPPROTO_IP, unix.IP_TTL, v); err != nil {
		return osErr("setsockopt IP_TTL", err)
	}
	return nil
}

func sockSetBroadcast(fd, v int) error {
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_BROADCAST, v); err != nil {
		return osErr("setsockopt SO_BROADCAST", err)
	}
	return nil
}

func sockSetMulticastTTL(fd int, family api.Family, v int) error {
	if family == api.FamilyIPv6 {
		if err := unix.SetsockoptInt(fd, unix.IPPROTO_IPV6, unix.IPV6_MULTICAST_HOPS, v); err != nil {
			return osErr("setsockopt IPV6_MULTICAST_HOPS", err)
		}
		return nil
	}
	if err := unix.SetsockoptInt(fd, unix.IPPROTO_IP, unix.IP_MULTICAST_TTL, v); err != nil {
		return osErr("setsockopt IP_MULTICAST_TTL", err)
	}
	return nil
}

func sockSetMulticastLoopback(fd int, family api.Family, v int) error {
	if family == api.FamilyIPv6 {
		if err := unix.SetsockoptInt(fd, unix.IPPROTO_IPV6, unix.IPV6_MULTICAST_LOOP, v); err != nil {
			return osErr("setsockopt IPV6_MULTICAST_LOOP", err)
		}
		return nil
	}
	if err := unix.SetsockoptInt(fd, unix.IPPROTO_IP, unix.IP_MULTICAST_LOOP, v); err != nil {
		return osErr("setsockopt IP_MULTICAST_LOOP", err)
	}
	return nil
}

func sockMembership(fd int, family api.Family, group net.IP, iface string, join bool) error {
	if family == api.FamilyIPv6 {
		idx, err := ifaceIndex(iface)
		if err != nil {
			return err
		}
		mreq := &unix.IPv6Mreq{Interface: uint32(idx)}
		copy(mreq.Multiaddr[:], group.To16())
		opt := unix.IPV6_JOIN_GROUP
		if !join {
			opt = unix.IPV6_LEAVE_GROUP
		}
		if err := unix.SetsockoptIPv6Mreq(fd, unix.IPPROTO_IPV6, opt, mreq); err != nil {
			return osErr("setsockopt IPv6 membership", err)
		}
		return nil
	}

	local, err := ifaceIPv4(iface)
	if err != nil {
		return err
	}
	mreq := &unix.IPMreq{}
	copy(mreq.Multiaddr[:], group.To4())
	copy(mreq.Interface[:], local)
	opt := unix.IP_ADD_MEMBERSHIP
	if !join {
		opt = unix.IP_DROP_MEMBERSHIP
	}
	if err := unix.SetsockoptIPMreq(fd, unix.IPPROTO_IP, opt, mreq); err != nil {
		return osErr("setsockopt IPv4 membership", err)
	}
	return nil
}

// ifaceIndex resolves an interface name or address to its index.
// Empty means the default interface (index 0).
func ifaceIndex(iface string) (int, error) {
	if iface == "" {
		return 0, nil
	}
	if ifi, err := net.InterfaceByName(iface); err == nil {
		return ifi.Index, nil
	}
	ip := net.ParseIP(iface)
	if ip == nil {
		return 0, api.NewError(api.ErrCodeInvalidArgument, "udp.membership", "unknown interface "+iface)
	}
	ifis, err := net.Interfaces()
	if err != nil {
		return 0, osErr("interfaces", err)
	}
	for _, ifi := range ifis {
		addrs, err := ifi.Addrs()
		if err != nil {
			continue
		}
		for _, a := range addrs {
			if ipn, ok := a.(*net.IPNet); ok && ipn.IP.Equal(ip) {
				return ifi.Index, nil
			}
		}
	}
	return 0, api.NewError(api.ErrCodeInvalidArgument, "udp.membership", "no interface with address "+iface)
}

// ifaceIPv4 resolves an interface address or name to the 4-byte local
// address used by IPMreq. Empty means INADDR_ANY.
func ifaceIPv4(iface string) ([]byte, error) {
	if iface == "" {
		return []byte{0, 0, 0, 0}, nil
	}
	if ip := net.ParseIP(iface); ip != nil {
		if v4 := ip.To4(); v4 != nil {
			return v4, nil
		}
		return nil, api.NewError(api.ErrCodeInvalidArgument, "udp.membership", "interface address is not IPv4: "+iface)
	}
	ifi, err := net.InterfaceByName(iface)
	if err != nil {
		return nil, api.NewError(api.ErrCodeInvalidArgument, "udp.membership", "unknown interface "+iface)
	}
	addrs, err := ifi.Addrs()
	if err != nil {
		return nil, osErr("interface addrs", err)
	}
	for _, a := range addrs {
		if ipn, ok := a.(*net.IPNet); ok {
			if v4 := ipn.IP.To4(); v4 != nil {
				return v4, nil
			}
		}
	}
	return nil, api.NewError(api.ErrCodeInvalidArgument, "udp.membership", "interface has no IPv4 address: "+iface)
}

func toSockaddr(a api.Addr) (unix.Sockaddr, error) {
	switch a.Family {
	case api.FamilyIPv4:
		sa := &unix.SockaddrInet4{Port: a.Port}
		copy(sa.Addr[:], a.IP.To4())
		return sa, nil
	case api.FamilyIPv6:
		sa := &unix.SockaddrInet6{Port: a.Port}
		copy(sa.Addr[:], a.IP.To16())
		if a.Zone != "" {
			idx, err := ifaceIndex(a.Zone)
			if err != nil {
				return nil, err
			}
			sa.ZoneId = uint32(idx)
		}
		return sa, nil
	default:
		return nil, api.NewError(api.ErrCodeInvalidArgument, "udp.sockaddr", "unspecified address family")
	}
}

func fromSockaddr(sa unix.Sockaddr) api.Addr {
	switch v := sa.(type) {
	case *unix.SockaddrInet4:
		ip := make(net.IP, 4)
		copy(ip, v.Addr[:])
		return api.Addr{Family: api.FamilyIPv4, IP: ip, Port: v.Port}
	case *unix.SockaddrInet6:
		ip := make(net.IP, 16)
		copy(ip, v.Addr[:])
		zone := ""
		if v.ZoneId != 0 {
			if ifi, err := net.InterfaceByIndex(int(v.ZoneId)); err == nil {
				zone = ifi.Name
			}
		}
		return api.Addr{Family: api.FamilyIPv6, IP: ip, Port: v.Port, Zone: zone}
	default:
		return api.Addr{}
	}
}

func osErr(op string, err error) error {
	if errno, ok := err.(syscall.Errno); ok {
		return api.NewOSError(op, errno)
	}
	return err
}
