package server

import "syscall"

// isV6Only reads the IPV6_V6ONLY socket option the dual-stack probe
// of §4.1 relies on: if the OS reports true, a second IPv4
// acceptor is required; if false, the IPv6 socket already accepts
// IPv4-mapped connections and no second acceptor is created.
func isV6Only(fd uintptr) (bool, error) {
	v, err := syscall.GetsockoptInt(int(fd), syscall.IPPROTO_IPV6, syscall.IPV6_V6ONLY)
	if err != nil {
		return false, err
	}
	return v != 0, nil
}
