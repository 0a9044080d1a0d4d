// File: udp/options.go
// Author: momentics <momentics@gmail.com>
//
// Socket options and multicast membership. Options are independent,
// order-insensitive and idempotent; membership is delegated entirely
// to the OS with no local tracking.

package udp

import "github.com/momentics/hioload-udp/api"

// SetTTL sets the unicast time-to-live.
func (h *Handle) SetTTL(ttl int) error {
	if err := h.optionSocket("udp.SetTTL"); err != nil {
		return err
	}
	return sockSetTTL(h.fd, h.family, ttl)
}

// SetBroadcast toggles SO_BROADCAST.
func (h *Handle) SetBroadcast(on int) error {
	if err := h.optionSocket("udp.SetBroadcast"); err != nil {
		return err
	}
	return sockSetBroadcast(h.fd, on)
}

// SetMulticastTTL sets the multicast hop limit.
func (h *Handle) SetMulticastTTL(ttl int) error {
	if err := h.optionSocket("udp.SetMulticastTTL"); err != nil {
		return err
	}
	return sockSetMulticastTTL(h.fd, h.family, ttl)
}

// SetMulticastLoopback toggles local loopback of multicast sends.
func (h *Handle) SetMulticastLoopback(on int) error {
	if err := h.optionSocket("udp.SetMulticastLoopback"); err != nil {
		return err
	}
	return sockSetMulticastLoopback(h.fd, h.family, on)
}

// AddMembership joins a multicast group. iface selects the local
// interface by address or name; empty means the default interface.
func (h *Handle) AddMembership(group, iface string) error {
	return h.setMembership("udp.AddMembership", group, iface, true)
}

// DropMembership leaves a multicast group. Leaving a group that was
// never joined surfaces whatever the OS reports.
func (h *Handle) DropMembership(group, iface string) error {
	return h.setMembership("udp.DropMembership", group, iface, false)
}

func (h *Handle) setMembership(op, group, iface string, join bool) error {
	family := groupFamily(group)
	gip, _, err := parseIP(op, family, group)
	if err != nil {
		return err
	}
	if err := h.ensureSocket(op, family); err != nil {
		return err
	}
	if !h.bound {
		// Membership requires an address; same deferred wildcard
		// bind the send path uses.
		if err := h.bindWildcard(op, family); err != nil {
			return err
		}
	}
	return sockMembership(h.fd, family, gip, iface, join)
}

// optionSocket materializes the socket for option calls made before
// any bind or send decided the family.
func (h *Handle) optionSocket(op string) error {
	family := h.family
	if family == api.FamilyUnspec {
		family = api.FamilyIPv4
	}
	return h.ensureSocket(op, family)
}
