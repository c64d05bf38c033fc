package ad

import "sync"

// Process-wide AAD mode: whether tapes record multi-output adjoints,
// and if so, how wide each node's adjoint vector is. Set once before
// any parallel AAD work begins; mutating it while a goroutine is
// mid-recording is undefined, per spec.
var (
	configMu         sync.Mutex
	globalMulti      bool
	globalNumOutputs int
)

// currentMode returns a snapshot of the process-wide AAD mode.
func currentMode() (multi bool, numOutputs int) {
	configMu.Lock()
	defer configMu.Unlock()
	return globalMulti, globalNumOutputs
}

// SetNumResultsForAAD sets the process-wide AAD mode: whether tapes
// created after this call record multi-output adjoints, and if so, the
// width k of each node's adjoint vector. It returns a restore closure
// that puts back the previous (multi, k) pair, so that nested
// multi-output sweeps — for example, bumping one set of Greeks inside a
// loop that is itself inside an outer multi-output sweep — compose
// correctly:
//
//	restore := ad.SetNumResultsForAAD(true, 2)
//	defer restore()
//	// ... build tapes under the new mode ...
func SetNumResultsForAAD(multi bool, k int) (restore func()) {
	configMu.Lock()
	prevMulti, prevK := globalMulti, globalNumOutputs
	globalMulti, globalNumOutputs = multi, k
	configMu.Unlock()

	return func() {
		configMu.Lock()
		globalMulti, globalNumOutputs = prevMulti, prevK
		configMu.Unlock()
	}
}
