package reax

import (
	"context"
	"net"
	"syscall"
	"testing"
	"time"
)

func TestTcpEcho(t *testing.T) {
	if err := Init(WithThreads(2)); err != nil {
		t.Fatalf("Init: %v", err)
	}
	defer Shutdown()

	ln, err := Listen("tcp", "127.0.0.1:0", AnyThread)
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer ln.Close()

	serverDone := make(chan error, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		conn, err := ln.Accept(ctx)
		if err != nil {
			serverDone <- err
			return
		}
		defer conn.Close()
		buf := make([]byte, 11)
		if _, err := conn.ReadFull(ctx, buf); err != nil {
			serverDone <- err
			return
		}
		if _, err := conn.WriteAll(ctx, buf); err != nil {
			serverDone <- err
			return
		}
		serverDone <- nil
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	conn, err := Dial(ctx, "tcp", ln.Addr().String())
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()

	msg := []byte("hello world")
	if _, err := conn.WriteAll(ctx, msg); err != nil {
		t.Fatalf("WriteAll: %v", err)
	}
	rx := make([]byte, len(msg))
	if _, err := conn.ReadFull(ctx, rx); err != nil {
		t.Fatalf("ReadFull: %v", err)
	}
	if string(rx) != string(msg) {
		t.Fatalf("echo mismatch: got %q want %q", rx, msg)
	}

	if err := <-serverDone; err != nil {
		t.Fatalf("server: %v", err)
	}
}

func TestTcpAcceptOnPinsToDifferentWorker(t *testing.T) {
	if err := Init(WithThreads(2)); err != nil {
		t.Fatalf("Init: %v", err)
	}
	defer Shutdown()

	ln, err := Listen("tcp", "127.0.0.1:0", 0)
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer ln.Close()

	type result struct {
		workerID int
		err      error
	}
	serverDone := make(chan result, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		conn, err := ln.AcceptOn(ctx, 1)
		if err != nil {
			serverDone <- result{err: err}
			return
		}
		defer conn.Close()
		buf := make([]byte, 3)
		if _, err := conn.ReadFull(ctx, buf); err != nil {
			serverDone <- result{err: err}
			return
		}
		serverDone <- result{workerID: conn.workerID()}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	conn, err := Dial(ctx, "tcp", ln.Addr().String())
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()
	if _, err := conn.WriteAll(ctx, []byte("hi!")); err != nil {
		t.Fatalf("WriteAll: %v", err)
	}
	r := <-serverDone
	if r.err != nil {
		t.Fatalf("server: %v", r.err)
	}
	if r.workerID != 1 {
		t.Fatalf("expected accepted socket pinned to worker 1, got %d", r.workerID)
	}
}

func TestTcpSocketBindToThreadRebinds(t *testing.T) {
	if err := Init(WithThreads(2)); err != nil {
		t.Fatalf("Init: %v", err)
	}
	defer Shutdown()

	ln, err := Listen("tcp", "127.0.0.1:0", 0)
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer ln.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	conn, err := Dial(ctx, "tcp", ln.Addr().String())
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()

	if conn.workerID() != 0 {
		t.Fatalf("expected initial binding to worker 0, got %d", conn.workerID())
	}
	if err := conn.BindToThread(1); err != nil {
		t.Fatalf("BindToThread: %v", err)
	}
	if conn.workerID() != 1 {
		t.Fatalf("expected rebind to worker 1, got %d", conn.workerID())
	}
}

func TestListenBacklogReportsAssignedPort(t *testing.T) {
	if err := Init(WithThreads(1)); err != nil {
		t.Fatalf("Init: %v", err)
	}
	defer Shutdown()

	ln, err := ListenBacklog("tcp", "127.0.0.1:0", 16, AnyThread)
	if err != nil {
		t.Fatalf("ListenBacklog: %v", err)
	}
	defer ln.Close()

	addr, ok := ln.Addr().(*net.TCPAddr)
	if !ok {
		t.Fatalf("expected *net.TCPAddr, got %T", ln.Addr())
	}
	if addr.Port == 0 {
		t.Fatal("expected the OS to assign a nonzero port")
	}
	if !addr.IP.Equal(net.ParseIP("127.0.0.1")) {
		t.Fatalf("expected loopback address, got %v", addr.IP)
	}
}

func TestTcpSocketDetachHandsOffFd(t *testing.T) {
	if err := Init(WithThreads(1)); err != nil {
		t.Fatalf("Init: %v", err)
	}
	defer Shutdown()

	ln, err := Listen("tcp", "127.0.0.1:0", AnyThread)
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer ln.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	conn, err := Dial(ctx, "tcp", ln.Addr().String())
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}

	fd, err := conn.Detach()
	if err != nil {
		t.Fatalf("Detach: %v", err)
	}
	defer syscall.Close(fd)

	if fd < 0 {
		t.Fatalf("expected a valid fd, got %d", fd)
	}
	if err := conn.Close(); err != nil {
		t.Fatalf("Close after Detach should be a no-op, got: %v", err)
	}
	if _, err := conn.Detach(); err != ErrClosed {
		t.Fatalf("second Detach: expected ErrClosed, got %v", err)
	}
}

func TestTcpDialRefused(t *testing.T) {
	if err := Init(WithThreads(1)); err != nil {
		t.Fatalf("Init: %v", err)
	}
	defer Shutdown()

	ln, err := Listen("tcp", "127.0.0.1:0", AnyThread)
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := Dial(ctx, "tcp", addr); err == nil {
		t.Fatal("expected connection to a closed listener to fail")
	}
}
