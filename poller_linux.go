//go:build linux

package reax

import (
	"sync/atomic"
	"syscall"
)

// sysPoller wraps epoll(7) plus a self-pipe wake descriptor, in the style
// of gaio's internal poller type (aio_generic.go's dupconn/Watch contract)
// but built directly on the stdlib syscall package rather than
// golang.org/x/sys/unix, since syscall already exposes EpollCreate1,
// EpollCtl and EpollWait on linux.
type sysPoller struct {
	epfd int

	wakeR int
	wakeW int

	signaling int32 // coalesces wake() writes, like Thread::_signaling in thread.cpp

	batch int
}

func newSysPoller(batch int) (*sysPoller, error) {
	epfd, err := syscall.EpollCreate1(syscall.EPOLL_CLOEXEC)
	if err != nil {
		return nil, err
	}

	var fds [2]int
	if err := syscall.Pipe2(fds[:], syscall.O_NONBLOCK|syscall.O_CLOEXEC); err != nil {
		syscall.Close(epfd)
		return nil, err
	}

	p := &sysPoller{epfd: epfd, wakeR: fds[0], wakeW: fds[1], batch: batch}
	ev := syscall.EpollEvent{Events: syscall.EPOLLIN, Fd: int32(p.wakeR)}
	if err := syscall.EpollCtl(epfd, syscall.EPOLL_CTL_ADD, p.wakeR, &ev); err != nil {
		syscall.Close(p.wakeR)
		syscall.Close(p.wakeW)
		syscall.Close(epfd)
		return nil, err
	}
	return p, nil
}

func epollBits(dir Direction) uint32 {
	base := uint32(syscall.EPOLLHUP | syscall.EPOLLERR)
	if dir == DirWrite {
		return base | syscall.EPOLLOUT
	}
	return base | syscall.EPOLLIN
}

func (p *sysPoller) register(fd int, dir Direction) error {
	ev := syscall.EpollEvent{Events: epollBits(dir), Fd: int32(fd)}
	err := syscall.EpollCtl(p.epfd, syscall.EPOLL_CTL_ADD, fd, &ev)
	if err == syscall.EEXIST {
		err = syscall.EpollCtl(p.epfd, syscall.EPOLL_CTL_MOD, fd, &ev)
	}
	return err
}

func (p *sysPoller) unregister(fd int) error {
	err := syscall.EpollCtl(p.epfd, syscall.EPOLL_CTL_DEL, fd, nil)
	if err == syscall.ENOENT {
		return nil
	}
	return err
}

func (p *sysPoller) wait(out []pollEvent, timeoutMs int) (int, error) {
	raw := make([]syscall.EpollEvent, len(out))
	n, err := syscall.EpollWait(p.epfd, raw, timeoutMs)
	if err == syscall.EINTR {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	for i := 0; i < n; i++ {
		var flags pollFlags
		e := raw[i].Events
		if e&syscall.EPOLLIN != 0 {
			flags |= flagReadable
		}
		if e&syscall.EPOLLOUT != 0 {
			flags |= flagWritable
		}
		if e&syscall.EPOLLHUP != 0 {
			flags |= flagHup
		}
		if e&syscall.EPOLLERR != 0 {
			flags |= flagErr
		}
		out[i] = pollEvent{fd: int(raw[i].Fd), flags: flags}
	}
	return n, nil
}

func (p *sysPoller) wakeFD() int { return p.wakeR }

// wake writes one byte to the wake pipe. Only the producer that flips
// signaling 0->1 writes; the flag is reset as soon as that write returns,
// so only wakers that overlap an in-progress write are coalesced. Wakers
// that arrive later each write again, even if the reactor has not yet
// drained the pipe.
func (p *sysPoller) wake() {
	if atomic.CompareAndSwapInt32(&p.signaling, 0, 1) {
		var b [1]byte
		syscall.Write(p.wakeW, b[:])
		atomic.StoreInt32(&p.signaling, 0)
	}
}

// drainWake empties the wake pipe after a readiness notification on wakeR.
func (p *sysPoller) drainWake() {
	var buf [64]byte
	for {
		n, err := syscall.Read(p.wakeR, buf[:])
		if n <= 0 || err != nil {
			return
		}
	}
}

func (p *sysPoller) close() error {
	syscall.Close(p.wakeR)
	syscall.Close(p.wakeW)
	return syscall.Close(p.epfd)
}
