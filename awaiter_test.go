package reax

import (
	"testing"
	"time"
)

func TestAwaiterCoreCAS(t *testing.T) {
	a := newAwaiterCore(100)
	if a.loadState() != StateCreated {
		t.Fatal("expected CREATED initial state")
	}
	if !a.cas(StateCreated, StateScheduled) {
		t.Fatal("expected CAS to succeed")
	}
	if a.cas(StateCreated, StateScheduled) {
		t.Fatal("expected stale CAS from CREATED to fail")
	}
	if !a.cas(StateScheduled, StateFired) {
		t.Fatal("expected SCHEDULED->FIRED to succeed")
	}
	if a.cas(StateScheduled, StateTimeout) {
		t.Fatal("expected a second terminal transition to fail")
	}
}

func TestAwaiterCoreSignalWait(t *testing.T) {
	a := newAwaiterCore(-1)
	waited := make(chan struct{})
	go func() {
		a.wait(nil)
		close(waited)
	}()
	a.signal()
	select {
	case <-waited:
	case <-time.After(time.Second):
		t.Fatal("wait never returned after signal")
	}
}

func TestAwaiterCoreReady(t *testing.T) {
	a := newAwaiterCore(-1)
	if a.ready() {
		t.Fatal("expected not ready in CREATED")
	}
	if !a.cas(StateCreated, StateScheduled) {
		t.Fatal("expected CAS to SCHEDULED to succeed")
	}
	if a.ready() {
		t.Fatal("expected not ready in SCHEDULED")
	}
	if !a.cas(StateScheduled, StateFired) {
		t.Fatal("expected CAS to FIRED to succeed")
	}
	if !a.ready() {
		t.Fatal("expected ready once terminal")
	}
}

func TestAwaiterCoreWaitDie(t *testing.T) {
	a := newAwaiterCore(-1)
	die := make(chan struct{})
	waited := make(chan struct{})
	go func() {
		a.wait(die)
		close(waited)
	}()
	close(die)
	select {
	case <-waited:
	case <-time.After(time.Second):
		t.Fatal("wait never returned after die closed")
	}
}
