// Package rlog wires reax's lifecycle logging through capitan, in the
// same signal/field style pipz connectors use (see pipz's signals.go for
// the pattern this mirrors): a small set of capitan.Signal constants and
// typed capitan field keys, logged at lifecycle edges only.
package rlog

import (
	"context"

	"github.com/zoobzio/capitan"
)

// Signals.
const (
	SignalWorkerStarted     capitan.Signal = "reax.worker.started"
	SignalWorkerStopped     capitan.Signal = "reax.worker.stopped"
	SignalDispatcherInit    capitan.Signal = "reax.dispatcher.init"
	SignalDispatcherAbort   capitan.Signal = "reax.dispatcher.abort"
	SignalRegisterFailed    capitan.Signal = "reax.poller.register_failed"
	SignalConnReleased      capitan.Signal = "reax.conn.released"
	SignalAcceptorListening capitan.Signal = "reax.tcp.listening"
)

// Field keys.
var (
	FieldWorkerID = capitan.NewIntKey("worker_id")
	FieldCount    = capitan.NewIntKey("count")
	FieldFD       = capitan.NewIntKey("fd")
	FieldError    = capitan.NewStringKey("error")
	FieldAddr     = capitan.NewStringKey("addr")
)

// WorkerStarted logs a Worker transitioning to ACTIVE.
func WorkerStarted(ctx context.Context, id int) {
	capitan.Info(ctx, SignalWorkerStarted, FieldWorkerID.Field(id))
}

// WorkerStopped logs a Worker transitioning to JOINED.
func WorkerStopped(ctx context.Context, id int) {
	capitan.Info(ctx, SignalWorkerStopped, FieldWorkerID.Field(id))
}

// DispatcherInit logs Dispatcher.Init completing.
func DispatcherInit(ctx context.Context, n int) {
	capitan.Info(ctx, SignalDispatcherInit, FieldCount.Field(n))
}

// DispatcherAbort logs Dispatcher teardown.
func DispatcherAbort(ctx context.Context, n int) {
	capitan.Info(ctx, SignalDispatcherAbort, FieldCount.Field(n))
}

// RegisterFailed logs a poller registration failure surfaced to an awaiter.
func RegisterFailed(ctx context.Context, workerID, fd int, err error) {
	capitan.Warn(ctx, SignalRegisterFailed,
		FieldWorkerID.Field(workerID), FieldFD.Field(fd), FieldError.Field(err.Error()))
}

// AcceptorListening logs a TcpListener binding to an address.
func AcceptorListening(ctx context.Context, addr string) {
	capitan.Info(ctx, SignalAcceptorListening, FieldAddr.Field(addr))
}

// ConnReleased logs a TcpSocket/TcpListener releasing its underlying fd.
func ConnReleased(ctx context.Context, fd int) {
	capitan.Info(ctx, SignalConnReleased, FieldFD.Field(fd))
}
