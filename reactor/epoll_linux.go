//go:build linux
// +build linux

// File: reactor/epoll_linux.go
// Author: momentics <momentics@gmail.com>
//
// Linux epoll(7) poller with an eventfd wakeup channel.

package reactor

import (
	"encoding/binary"
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/momentics/hioload-udp/api"
)

type epollPoller struct {
	epfd   int
	wakeFD int
}

func newPoller() (poller, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("epoll create: %w", err)
	}
	wakeFD, err := unix.Eventfd(0, unix.EFD_NONBLOCK|unix.EFD_CLOEXEC)
	if err != nil {
		unix.Close(epfd)
		return nil, fmt.Errorf("eventfd: %w", err)
	}
	p := &epollPoller{epfd: epfd, wakeFD: wakeFD}
	ev := unix.EpollEvent{Events: unix.EPOLLIN, Fd: int32(wakeFD)}
	if err := unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, wakeFD, &ev); err != nil {
		p.close()
		return nil, fmt.Errorf("epoll ctl add wakefd: %w", err)
	}
	return p, nil
}

func epollEvents(interest api.Interest) uint32 {
	var events uint32
	if interest&api.InterestRead != 0 {
		events |= unix.EPOLLIN
	}
	if interest&api.InterestWrite != 0 {
		events |= unix.EPOLLOUT
	}
	return events
}

func (p *epollPoller) add(fd int, interest api.Interest) error {
	ev := unix.EpollEvent{Events: epollEvents(interest), Fd: int32(fd)}
	if err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_ADD, fd, &ev); err != nil {
		return fmt.Errorf("epoll ctl add: %w", err)
	}
	return nil
}

func (p *epollPoller) mod(fd int, interest api.Interest) error {
	ev := unix.EpollEvent{Events: epollEvents(interest), Fd: int32(fd)}
	if err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_MOD, fd, &ev); err != nil {
		return fmt.Errorf("epoll ctl mod: %w", err)
	}
	return nil
}

func (p *epollPoller) del(fd int) error {
	if err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_DEL, fd, nil); err != nil {
		return fmt.Errorf("epoll ctl del: %w", err)
	}
	return nil
}

func (p *epollPoller) wait(events []Event, timeoutMs int) (int, error) {
	raw := make([]unix.EpollEvent, len(events))
	n, err := unix.EpollWait(p.epfd, raw, timeoutMs)
	if err != nil {
		if err == unix.EINTR {
			return 0, nil // interrupted by signal, normal
		}
		return 0, fmt.Errorf("epoll wait: %w", err)
	}

	out := 0
	for i := 0; i < n; i++ {
		fd := int(raw[i].Fd)
		if fd == p.wakeFD {
			p.drainWake()
			continue
		}
		var ev api.Interest
		if raw[i].Events&unix.EPOLLIN != 0 {
			ev |= api.InterestRead
		}
		if raw[i].Events&unix.EPOLLOUT != 0 {
			ev |= api.InterestWrite
		}
		if raw[i].Events&(unix.EPOLLERR|unix.EPOLLHUP) != 0 {
			ev |= api.InterestError
		}
		events[out] = Event{FD: fd, Ev: ev}
		out++
	}
	return out, nil
}

func (p *epollPoller) wake() error {
	var one [8]byte
	binary.LittleEndian.PutUint64(one[:], 1)
	_, err := unix.Write(p.wakeFD, one[:])
	if err == unix.EAGAIN {
		// Counter saturated: a wakeup is already pending.
		return nil
	}
	return err
}

func (p *epollPoller) drainWake() {
	var buf [8]byte
	for {
		if _, err := unix.Read(p.wakeFD, buf[:]); err != nil {
			return
		}
	}
}

func (p *epollPoller) close() error {
	unix.Close(p.wakeFD)
	return unix.Close(p.epfd)
}
