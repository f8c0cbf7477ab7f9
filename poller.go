package reax

// Direction identifies whether an IoWait is waiting for read- or
// write-readiness.
type Direction int

const (
	DirRead Direction = iota
	DirWrite
)

func (d Direction) String() string {
	if d == DirWrite {
		return "write"
	}
	return "read"
}

// pollFlags are the readiness bits a poller reports back per fd.
type pollFlags uint32

const (
	flagReadable pollFlags = 1 << iota
	flagWritable
	flagHup
	flagErr
)

// pollEvent is one readiness notification for a registered fd. Unlike the
// kernel-level epoll_data union, reax does not stash a raw pointer cookie
// in the event itself (Go's syscall.EpollEvent only carries an int32 fd on
// the data side); instead the owning Worker keeps its own fd -> target map
// and looks the target up by fd.
type pollEvent struct {
	fd    int
	flags pollFlags
}

// readinessPoller is the per-Worker OS readiness multiplexer. wake is safe
// to call from any thread.
type readinessPoller interface {
	// register installs or upgrades interest in fd for dir. Duplicate
	// installs on the same fd upgrade (modify) rather than fail.
	register(fd int, dir Direction) error
	// unregister removes all interest in fd. Idempotent.
	unregister(fd int) error
	// wait blocks up to timeoutMs (or indefinitely if timeoutMs < 0),
	// filling events and returning the count. 0 means timeout.
	wait(events []pollEvent, timeoutMs int) (int, error)
	// wakeFD returns the poller's own wake descriptor, so the reactor loop
	// can recognize and drain it without delivering it as a user event.
	wakeFD() int
	// wake makes the in-progress or next wait() return promptly. Safe
	// from any goroutine.
	wake()
	// drainWake empties the wake descriptor after wakeFD() reports readable.
	drainWake()
	close() error
}

func openPoller(batch int) (readinessPoller, error) {
	return newSysPoller(batch)
}
