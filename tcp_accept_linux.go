//go:build linux

package reax

import "syscall"

// acceptNonblock accepts one pending connection off fd as a non-blocking,
// close-on-exec descriptor in a single syscall, using Accept4's flags
// argument rather than a separate fcntl round trip.
func acceptNonblock(fd int) (int, error) {
	nfd, _, err := syscall.Accept4(fd, syscall.SOCK_NONBLOCK|syscall.SOCK_CLOEXEC)
	return nfd, err
}

// newNonblockSocket opens a TCP socket in the given address family, already
// non-blocking and close-on-exec.
func newNonblockSocket(domain int) (int, error) {
	return syscall.Socket(domain, syscall.SOCK_STREAM|syscall.SOCK_NONBLOCK|syscall.SOCK_CLOEXEC, 0)
}
