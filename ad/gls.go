package ad

// Goroutine-local tape storage. Each goroutine running AAD owns one
// Tape; no tape is ever shared between goroutines. Goroutines are
// identified by github.com/modern-go/gls's GoID, the same library the
// teacher's own examples/mt driver uses for exactly this purpose.

import (
	"sync"

	"github.com/modern-go/gls"
)

type tapeStore struct {
	mu    sync.Mutex
	tapes map[int64]*Tape
}

var tapes = &tapeStore{tapes: make(map[int64]*Tape)}

// CurrentTape returns the calling goroutine's tape, creating one with
// the default block size on first use.
func CurrentTape() *Tape {
	id := gls.GoID()
	tapes.mu.Lock()
	t, ok := tapes.tapes[id]
	tapes.mu.Unlock()
	if ok {
		return t
	}
	t = NewTape()
	tapes.mu.Lock()
	tapes.tapes[id] = t
	tapes.mu.Unlock()
	return t
}

// SetTape assigns t as the calling goroutine's tape, replacing any tape
// previously assigned to it. This is how a worker thread/goroutine
// opts into a non-default block size, or how a test harness swaps in a
// fresh tape between cases.
func SetTape(t *Tape) {
	id := gls.GoID()
	tapes.mu.Lock()
	tapes.tapes[id] = t
	tapes.mu.Unlock()
}

// DropTape releases the calling goroutine's tape. The next CurrentTape
// call on this goroutine allocates a fresh one.
func DropTape() {
	id := gls.GoID()
	tapes.mu.Lock()
	delete(tapes.tapes, id)
	tapes.mu.Unlock()
}
