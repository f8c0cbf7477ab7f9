//go:build linux || darwin || netbsd || freebsd || openbsd || dragonfly

// Package reax is a multi-threaded, coroutine-oriented I/O scheduler.
//
// It multiplexes user-level tasks across a small pool of OS threads
// (Workers), each owning a readiness-based I/O reactor and a deadline-
// ordered timer list. Callers submit descriptor waits, timed sleeps, and
// bare task handoffs; the Dispatcher balances new work across Workers by
// least-load.
//
// reax acts in proactor mode: a Task suspends at an await point, the
// Worker that owns the corresponding IoWait or Sleep performs exactly one
// terminal state transition, and the Task's goroutine is resumed with the
// result.
package reax
