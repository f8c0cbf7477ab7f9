//go:build darwin || netbsd || freebsd || openbsd || dragonfly

package reax

import "syscall"

// acceptNonblock has no single-syscall equivalent of Linux's accept4 on
// these platforms, so it accepts then applies O_NONBLOCK/FD_CLOEXEC as two
// extra syscalls.
func acceptNonblock(fd int) (int, error) {
	nfd, _, err := syscall.Accept(fd)
	if err != nil {
		return -1, err
	}
	syscall.SetNonblock(nfd, true)
	syscall.CloseOnExec(nfd)
	return nfd, nil
}

func newNonblockSocket(domain int) (int, error) {
	fd, err := syscall.Socket(domain, syscall.SOCK_STREAM, 0)
	if err != nil {
		return -1, err
	}
	syscall.SetNonblock(fd, true)
	syscall.CloseOnExec(fd)
	return fd, nil
}
