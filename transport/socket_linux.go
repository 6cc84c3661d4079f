//go:build linux

package transport

import (
	"context"
	"fmt"
	"net"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	httperrors "github.com/ashep/esp-lib/errors"
)

// newStreamSocket creates a TCP socket matching ip's family along with the
// address to connect it to.
func newStreamSocket(ip net.IP, port uint16, nonblock bool) (int, syscall.Sockaddr, error) {
	var (
		family int
		sa     syscall.Sockaddr
	)
	if ip4 := ip.To4(); ip4 != nil {
		sa4 := &syscall.SockaddrInet4{Port: int(port)}
		copy(sa4.Addr[:], ip4)
		family, sa = syscall.AF_INET, sa4
	} else {
		sa6 := &syscall.SockaddrInet6{Port: int(port)}
		copy(sa6.Addr[:], ip.To16())
		family, sa = syscall.AF_INET6, sa6
	}

	fd, err := syscall.Socket(family, syscall.SOCK_STREAM, 0)
	if err != nil {
		return -1, nil, httperrors.NewTransportError(httperrors.TransportErrorSocketCreateFailure, "failed to create socket", err)
	}

	if nonblock {
		if err := syscall.SetNonblock(fd, true); err != nil {
			syscall.Close(fd)
			return -1, nil, httperrors.NewTransportError(httperrors.TransportErrorSocketCreateFailure, "failed to set non-blocking mode", err)
		}
	}

	return fd, sa, nil
}

// setNoDelay sets TCP_NODELAY on fd.
func setNoDelay(fd int) error {
	if err := unix.SetsockoptInt(fd, unix.IPPROTO_TCP, unix.TCP_NODELAY, 1); err != nil {
		return httperrors.NewTransportError(httperrors.TransportErrorSocketCreateFailure, "failed to set TCP_NODELAY", err)
	}
	return nil
}

// resolveIPs resolves host into IP addresses.
func resolveIPs(ctx context.Context, r Resolver, host string, timeout time.Duration) ([]net.IP, error) {
	addrs, err := resolve(ctx, r, host, timeout)
	if err != nil {
		return nil, err
	}
	ips := make([]net.IP, 0, len(addrs))
	for _, addr := range addrs {
		if ip := net.ParseIP(addr); ip != nil {
			ips = append(ips, ip)
		}
	}
	if len(ips) == 0 {
		return nil, httperrors.NewTransportError(
			httperrors.TransportErrorDnsFailure,
			fmt.Sprintf("no IP addresses found for %s", host),
			nil,
		)
	}
	return ips, nil
}

// waitReadable blocks until fd has data or the peer closed it. It reports
// false when timeout elapses first. A zero timeout waits forever.
func waitReadable(fd int, timeout time.Duration) (bool, error) {
	ms := -1
	if timeout > 0 {
		ms = int(timeout / time.Millisecond)
		if ms == 0 {
			ms = 1
		}
	}

	fds := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLIN}}
	for {
		n, err := unix.Poll(fds, ms)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return false, httperrors.NewTransportError(httperrors.TransportErrorSocketReadFailure, "poll failed", err)
		}
		return n > 0, nil
	}
}
