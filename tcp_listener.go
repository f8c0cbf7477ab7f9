package reax

import (
	"context"
	"net"
	"runtime"
	"sync/atomic"
	"syscall"

	"github.com/velarun/reax/rlog"
)

// TcpListener is a non-blocking accept loop bound to one Worker, with
// thread-affinity bind/acceptOn overloads for pinning accepted connections
// to a specific Worker. The listening fd is a raw non-blocking socket
// built directly with syscall (resolve, bind, listen with an explicit
// backlog) so reax's own poller owns readiness for it from the start,
// instead of going through the Go runtime netpoller via net.Listen.
type TcpListener struct {
	fd     int
	worker *Worker
	addr   net.Addr
	closed int32
}

// defaultBacklog is used by Listen, which keeps the common net.Listen-like
// signature; ListenBacklog exposes the original's explicit backlog
// argument (suil::async's TcpListener::listen(addr, backlog)) for callers
// that want to size it themselves.
const defaultBacklog = 128

// Listen opens a listening socket on address with a default backlog and
// binds its Accept calls to the Worker resolved from hint (AnyThread for
// least-loaded). See ListenBacklog to set the backlog explicitly.
func Listen(network, address string, hint int) (*TcpListener, error) {
	return ListenBacklog(network, address, defaultBacklog, hint)
}

// ListenBacklog is Listen with an explicit backlog, the pending-connection
// queue length passed to listen(2). The socket is built directly with
// syscall (non-blocking, SO_REUSEADDR, explicit backlog) rather than via
// net.Listen+dup, since net.Listen has no way to choose the backlog
// itself.
func ListenBacklog(network, address string, backlog, hint int) (*TcpListener, error) {
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
	if err := syscall.SetsockoptInt(fd, syscall.SOL_SOCKET, syscall.SO_REUSEADDR, 1); err != nil {
		syscall.Close(fd)
		return nil, err
	}
	if err := syscall.Bind(fd, sa); err != nil {
		syscall.Close(fd)
		return nil, err
	}
	if err := syscall.Listen(fd, backlog); err != nil {
		syscall.Close(fd)
		return nil, err
	}

	lsa, err := syscall.Getsockname(fd)
	if err != nil {
		syscall.Close(fd)
		return nil, err
	}
	addr := sockaddrToTCPAddr(lsa)

	l := &TcpListener{fd: fd, worker: w, addr: addr}
	runtime.SetFinalizer(l, func(l *TcpListener) { syscall.Close(l.fd) })
	rlog.AcceptorListening(context.Background(), addr.String())
	return l, nil
}

// sockaddrToTCPAddr converts a resolved syscall.Sockaddr (from
// Getsockname, used so Listen("...:0") reports the OS-assigned port) into
// a net.Addr for TcpListener.Addr.
func sockaddrToTCPAddr(sa syscall.Sockaddr) net.Addr {
	switch a := sa.(type) {
	case *syscall.SockaddrInet4:
		return &net.TCPAddr{IP: net.IP(a.Addr[:]), Port: a.Port}
	case *syscall.SockaddrInet6:
		return &net.TCPAddr{IP: net.IP(a.Addr[:]), Port: a.Port}
	default:
		return nil
	}
}

// Addr returns the listener's bound address.
func (l *TcpListener) Addr() net.Addr { return l.addr }

// Accept blocks until a connection arrives or ctx is cancelled, looping on
// EAGAIN around its own non-blocking accept(2). Closing the listener does
// not wake an Accept that is already waiting; that call returns once ctx
// is done. The accepted socket is pinned to the listener's own Worker;
// see AcceptOn to pin it elsewhere.
func (l *TcpListener) Accept(ctx context.Context) (*TcpSocket, error) {
	return l.AcceptOn(ctx, l.worker.id)
}

// AcceptOn is Accept with an explicit thread hint for the accepted socket:
// the listener itself keeps polling on its own Worker, but each accepted
// connection can be handed to a different one, e.g. to spread load away
// from the acceptor.
func (l *TcpListener) AcceptOn(ctx context.Context, hint int) (*TcpSocket, error) {
	d, err := currentDispatcher()
	if err != nil {
		return nil, err
	}
	w, err := d.pick(hint)
	if err != nil {
		return nil, err
	}
	for {
		nfd, err := acceptNonblock(l.fd)
		if err == nil {
			s := &TcpSocket{fd: nfd}
			s.worker.Store(w)
			runtime.SetFinalizer(s, func(s *TcpSocket) { syscall.Close(s.fd) })
			return s, nil
		}
		if err != syscall.EAGAIN && err != syscall.EWOULDBLOCK {
			return nil, err
		}
		if werr := AwaitFD(ctx, l.fd, DirRead, -1, l.worker.id); werr != nil {
			return nil, werr
		}
	}
}

// Close stops accepting and releases the listening fd. Idempotent.
func (l *TcpListener) Close() error {
	if !atomic.CompareAndSwapInt32(&l.closed, 0, 1) {
		return nil
	}
	runtime.SetFinalizer(l, nil)
	rlog.ConnReleased(context.Background(), l.fd)
	return syscall.Close(l.fd)
}
