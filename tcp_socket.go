package reax

import (
	"context"
	"io"
	"net"
	"runtime"
	"sync/atomic"
	"syscall"

	"github.com/velarun/reax/rlog"
)

// TcpSocket is a non-blocking connected TCP socket bound to one Worker,
// with a thread-affinity connect overload and a BindToThread rebind.
type TcpSocket struct {
	fd     int
	worker atomic.Pointer[Worker]
	closed int32
}

func (s *TcpSocket) workerID() int {
	return s.worker.Load().id
}

// BindToThread pins all subsequent I/O on s to the Worker identified by
// hint (AnyThread resolves to the current least-loaded Worker at the time
// of the call). An await already in flight when BindToThread is called
// keeps running against the Worker it was registered on; only the next
// Read/Write/Accept-driven wait picks up the new binding.
func (s *TcpSocket) BindToThread(hint int) error {
	d, err := currentDispatcher()
	if err != nil {
		return err
	}
	w, err := d.pick(hint)
	if err != nil {
		return err
	}
	s.worker.Store(w)
	return nil
}

// resolveSockaddr resolves network/address into a syscall-level address
// family and sockaddr, shared by DialOn (connect) and Listen (bind).
func resolveSockaddr(network, address string) (int, syscall.Sockaddr, error) {
	raddr, err := net.ResolveTCPAddr(network, address)
	if err != nil {
		return 0, nil, err
	}
	if ip4 := raddr.IP.To4(); ip4 != nil {
		var a [4]byte
		copy(a[:], ip4)
		return syscall.AF_INET, &syscall.SockaddrInet4{Port: raddr.Port, Addr: a}, nil
	}
	var a [16]byte
	copy(a[:], raddr.IP.To16())
	return syscall.AF_INET6, &syscall.SockaddrInet6{Port: raddr.Port, Addr: a}, nil
}

// Dial opens a non-blocking connection to address on the least-loaded
// Worker. See DialOn to pin the connection to a specific Worker up front.
func Dial(ctx context.Context, network, address string) (*TcpSocket, error) {
	return DialOn(ctx, network, address, AnyThread)
}

// DialOn is Dial with an explicit thread hint. A connect() that would
// block returns EINPROGRESS; the caller awaits writability and then reads
// SO_ERROR to learn whether the connection actually succeeded.
func DialOn(ctx context.Context, network, address string, hint int) (*TcpSocket, error) {
	d, err := currentDispatcher()
	if err != nil {
		return nil, err
	}
	w, err := d.pick(hint)
	if err != nil {
		return nil, err
	}

	domain, sa, err := resolveSockaddr(network, address)
	if err != nil {
		return nil, err
	}

	fd, err := newNonblockSocket(domain)
	if err != nil {
		return nil, err
	}

	connErr := syscall.Connect(fd, sa)
	s := &TcpSocket{fd: fd}
	s.worker.Store(w)
	runtime.SetFinalizer(s, func(s *TcpSocket) { syscall.Close(s.fd) })

	if connErr != nil && connErr != syscall.EINPROGRESS {
		syscall.Close(fd)
		return nil, connErr
	}
	if connErr == syscall.EINPROGRESS {
		if werr := AwaitFD(ctx, fd, DirWrite, -1, w.id); werr != nil {
			s.Close()
			return nil, werr
		}
		errno, gerr := syscall.GetsockoptInt(fd, syscall.SOL_SOCKET, syscall.SO_ERROR)
		if gerr != nil {
			s.Close()
			return nil, gerr
		}
		if errno != 0 {
			s.Close()
			return nil, syscall.Errno(errno)
		}
	}
	return s, nil
}

// Fd returns the socket's raw file descriptor, for callers that need it
// for diagnostics; reax itself never leaks it into the poller's public API.
func (s *TcpSocket) Fd() int { return s.fd }

// ReadAny performs one non-blocking read into a buffer drawn from the
// Dispatcher's internal pool (sized by WithBufferSize, default 64KiB),
// for callers that would rather not manage their own read buffer, mirroring
// gaio's nil-buffer Read against its internal swap buffer. The returned
// slice is only valid until Release is called; copy out of it first if the
// bytes need to outlive that.
func (s *TcpSocket) ReadAny(ctx context.Context) ([]byte, error) {
	d, err := currentDispatcher()
	if err != nil {
		return nil, err
	}
	buf := d.bufPool.Get().([]byte)
	n, err := s.Read(ctx, buf)
	if err != nil {
		d.bufPool.Put(buf[:cap(buf)])
		return nil, err
	}
	return buf[:n], nil
}

// Release returns a buffer obtained from ReadAny to the Dispatcher's pool.
func (s *TcpSocket) Release(buf []byte) {
	if d, err := currentDispatcher(); err == nil {
		d.bufPool.Put(buf[:cap(buf)])
	}
}

// Read performs one non-blocking read, awaiting readability and retrying
// on EAGAIN.
func (s *TcpSocket) Read(ctx context.Context, buf []byte) (int, error) {
	for {
		n, err := syscall.Read(s.fd, buf)
		if err == nil {
			return n, nil
		}
		if err == syscall.EAGAIN || err == syscall.EWOULDBLOCK {
			if werr := AwaitFD(ctx, s.fd, DirRead, -1, s.workerID()); werr != nil {
				return 0, werr
			}
			continue
		}
		return 0, err
	}
}

// Write performs one non-blocking write, awaiting writability and
// retrying on EAGAIN.
func (s *TcpSocket) Write(ctx context.Context, buf []byte) (int, error) {
	if len(buf) == 0 {
		return 0, ErrEmptyBuffer
	}
	for {
		n, err := syscall.Write(s.fd, buf)
		if err == nil {
			return n, nil
		}
		if err == syscall.EAGAIN || err == syscall.EWOULDBLOCK {
			if werr := AwaitFD(ctx, s.fd, DirWrite, -1, s.workerID()); werr != nil {
				return 0, werr
			}
			continue
		}
		return 0, err
	}
}

// ReadFull reads until buf is completely filled, EOF, or an error,
// retrying over short reads.
func (s *TcpSocket) ReadFull(ctx context.Context, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := s.Read(ctx, buf[total:])
		if err != nil {
			return total, err
		}
		if n == 0 {
			return total, io.EOF
		}
		total += n
	}
	return total, nil
}

// WriteAll writes every byte of buf, looping over short writes.
func (s *TcpSocket) WriteAll(ctx context.Context, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := s.Write(ctx, buf[total:])
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

// Close releases the socket's fd. Idempotent.
func (s *TcpSocket) Close() error {
	if !atomic.CompareAndSwapInt32(&s.closed, 0, 1) {
		return nil
	}
	runtime.SetFinalizer(s, nil)
	rlog.ConnReleased(context.Background(), s.fd)
	return syscall.Close(s.fd)
}

// Detach marks s closed from reax's point of view and hands the raw fd to
// the caller without closing it, so ownership can move to code outside the
// scheduler (e.g. handing a connection off to net.FileConn). Detach is
// idempotent with Close: whichever runs first wins, the other is a no-op.
// A detached fd is still in non-blocking mode; the new owner is responsible
// for that if it matters to them.
func (s *TcpSocket) Detach() (int, error) {
	if !atomic.CompareAndSwapInt32(&s.closed, 0, 1) {
		return -1, ErrClosed
	}
	runtime.SetFinalizer(s, nil)
	rlog.ConnReleased(context.Background(), s.fd)
	return s.fd, nil
}
