package session

import (
	"bytes"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/gammazero/deque"
	"github.com/go-logr/logr"
	"go.uber.org/atomic"
)

// loop runs the tasks of a session one after another in submission order
// on its own goroutine.
type loop struct {
	log logr.Logger
	gid atomic.Uint64 // id of the loop goroutine, zero until it runs

	mu     sync.Mutex // Protects following fields
	tasks  deque.Deque[func()]
	closed bool
	wake   chan struct{} // signaled when tasks are pushed
	done   chan struct{} // closed when the loop goroutine exits
}

func newLoop(log logr.Logger) *loop {
	return &loop{
		log:  log,
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
}

// submit enqueues fn and reports whether it was accepted.
// Tasks submitted after close are dropped.
func (l *loop) submit(fn func()) bool {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return false
	}
	l.tasks.PushBack(fn)
	select {
	case l.wake <- struct{}{}:
	default: // already signaled
	}
	l.mu.Unlock()
	return true
}

// schedule submits fn after d, unless the loop is closed by then.
func (l *loop) schedule(d time.Duration, fn func()) *time.Timer {
	return time.AfterFunc(d, func() { l.submit(fn) })
}

// close stops accepting tasks and drops the queued ones.
// The running task, if any, completes.
func (l *loop) close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	l.closed = true
	l.tasks.Clear()
	close(l.wake)
}

// inLoop reports whether the caller runs on the loop goroutine.
func (l *loop) inLoop() bool {
	gid := l.gid.Load()
	return gid != 0 && gid == goroutineID()
}

// run processes tasks until the loop is closed.
func (l *loop) run() {
	defer close(l.done)
	l.gid.Store(goroutineID())
	for {
		l.mu.Lock()
		if l.closed {
			l.mu.Unlock()
			return
		}
		if l.tasks.Len() == 0 {
			l.mu.Unlock()
			if _, ok := <-l.wake; !ok {
				return
			}
			continue
		}
		fn := l.tasks.PopFront()
		l.mu.Unlock()

		l.exec(fn)
	}
}

func (l *loop) exec(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.log.Error(nil, "recovered panic in session task", "panic", r)
		}
	}()
	fn()
}

var goroutineSpace = []byte("goroutine ")

// goroutineID returns the id of the calling goroutine
// parsed from the "goroutine N [status]:" header of its stack trace.
func goroutineID() uint64 {
	var buf [64]byte
	b := buf[:runtime.Stack(buf[:], false)]
	b = bytes.TrimPrefix(b, goroutineSpace)
	if i := bytes.IndexByte(b, ' '); i >= 0 {
		b = b[:i]
	}
	id, err := strconv.ParseUint(string(b), 10, 64)
	if err != nil {
		panic(fmt.Sprintf("failed to parse goroutine id from %q: %v", b, err))
	}
	return id
}
