//go:build darwin || netbsd || freebsd || openbsd || dragonfly

package reax

import (
	"sync/atomic"
	"syscall"
)

// sysPoller wraps kqueue(2) plus a self-pipe wake descriptor. Mirrors
// sysPoller's epoll counterpart but registers read/write interest as
// separate kevent filters, the same split gaio's BSD poller variant makes
// between EVFILT_READ and EVFILT_WRITE.
type sysPoller struct {
	kq int

	wakeR int
	wakeW int

	signaling int32

	batch int
}

func newSysPoller(batch int) (*sysPoller, error) {
	kq, err := syscall.Kqueue()
	if err != nil {
		return nil, err
	}

	var fds [2]int
	if err := syscall.Pipe(fds[:]); err != nil {
		syscall.Close(kq)
		return nil, err
	}
	syscall.SetNonblock(fds[0], true)
	syscall.SetNonblock(fds[1], true)

	p := &sysPoller{kq: kq, wakeR: fds[0], wakeW: fds[1], batch: batch}
	changes := []syscall.Kevent_t{{
		Ident:  uint64(p.wakeR),
		Filter: syscall.EVFILT_READ,
		Flags:  syscall.EV_ADD,
	}}
	if _, err := syscall.Kevent(kq, changes, nil, nil); err != nil {
		syscall.Close(fds[0])
		syscall.Close(fds[1])
		syscall.Close(kq)
		return nil, err
	}
	return p, nil
}

func (p *sysPoller) register(fd int, dir Direction) error {
	filter := int16(syscall.EVFILT_READ)
	if dir == DirWrite {
		filter = syscall.EVFILT_WRITE
	}
	changes := []syscall.Kevent_t{{
		Ident:  uint64(fd),
		Filter: filter,
		Flags:  syscall.EV_ADD,
	}}
	_, err := syscall.Kevent(p.kq, changes, nil, nil)
	return err
}

func (p *sysPoller) unregister(fd int) error {
	for _, filter := range []int16{syscall.EVFILT_READ, syscall.EVFILT_WRITE} {
		changes := []syscall.Kevent_t{{
			Ident:  uint64(fd),
			Filter: filter,
			Flags:  syscall.EV_DELETE,
		}}
		syscall.Kevent(p.kq, changes, nil, nil)
	}
	return nil
}

func (p *sysPoller) wait(out []pollEvent, timeoutMs int) (int, error) {
	raw := make([]syscall.Kevent_t, len(out))
	var ts *syscall.Timespec
	if timeoutMs >= 0 {
		t := syscall.NsecToTimespec(int64(timeoutMs) * 1e6)
		ts = &t
	}
	n, err := syscall.Kevent(p.kq, nil, raw, ts)
	if err == syscall.EINTR {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	for i := 0; i < n; i++ {
		var flags pollFlags
		switch raw[i].Filter {
		case syscall.EVFILT_READ:
			flags |= flagReadable
		case syscall.EVFILT_WRITE:
			flags |= flagWritable
		}
		if raw[i].Flags&syscall.EV_EOF != 0 {
			flags |= flagHup
		}
		if raw[i].Flags&syscall.EV_ERROR != 0 {
			flags |= flagErr
		}
		out[i] = pollEvent{fd: int(raw[i].Ident), flags: flags}
	}
	return n, nil
}

func (p *sysPoller) wakeFD() int { return p.wakeR }

func (p *sysPoller) wake() {
	if atomic.CompareAndSwapInt32(&p.signaling, 0, 1) {
		var b [1]byte
		syscall.Write(p.wakeW, b[:])
		atomic.StoreInt32(&p.signaling, 0)
	}
}

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
	return syscall.Close(p.kq)
}
