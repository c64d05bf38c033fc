package ad

const defaultBlockSize = 1024

// cacheLineSize is the padding width reserved after a Tape's hot fields
// so that, when tapes are held in a contiguous []Tape (one per worker
// goroutine), two tapes' cursors and block pointers never share a cache
// line.
const cacheLineSize = 64

// Tape is the ordered log of recorded operations for one forward
// evaluation on one goroutine. It composes four BlockLists: nodes (the
// recorded operations), multiAdjoints (per-output adjoint storage, used
// only in multi-output mode), derivs (local partial derivatives) and
// argPtrs (back-pointers into argument adjoint storage).
//
// A Tape is not safe for concurrent use. Each goroutine must own its
// own Tape; see CurrentTape/SetTape.
type Tape struct {
	nodes         *BlockList[Node]
	multiAdjoints *BlockList[float64]
	derivs        *BlockList[float64]
	argPtrs       *BlockList[[]float64]

	multi      bool
	numOutputs int

	_ [cacheLineSize]byte // false-sharing pad; see spec §5
}

// NewTape returns an empty tape, reading the current process-wide AAD
// mode (see SetNumResultsForAAD) at construction time.
func NewTape() *Tape {
	return NewTapeSize(defaultBlockSize)
}

// NewTapeSize is NewTape with an explicit per-arena block size, for
// callers who know their workload's node count in advance and want to
// avoid block-chain fragmentation.
func NewTapeSize(blockSize int) *Tape {
	multi, numOutputs := currentMode()
	return &Tape{
		nodes:         NewBlockList[Node](blockSize),
		multiAdjoints: NewBlockList[float64](blockSize),
		derivs:        NewBlockList[float64](blockSize),
		argPtrs:       NewBlockList[[]float64](blockSize),
		multi:         multi,
		numOutputs:    numOutputs,
	}
}

// Multi reports whether this tape is recording multi-output adjoints.
func (t *Tape) Multi() bool { return t.multi }

// NumOutputs returns the configured adjoint-vector width in
// multi-output mode.
func (t *Tape) NumOutputs() int { return t.numOutputs }

// Len returns the number of nodes recorded on the tape.
func (t *Tape) Len() int { return t.nodes.Len() }

// RecordNode allocates a Node of the given arity onto the tape and
// returns a stable pointer to it. Arity must be 0, 1 or 2 per spec; the
// engine itself does not enforce the upper bound, since a future
// elemental of higher arity would only need this assumption relaxed
// here. In multi-output mode, numOutputs adjoint slots are reserved and
// zeroed explicitly, since after a Rewind or RewindToMark they are
// recycled and still hold the adjoints of an earlier sweep.
func (t *Tape) RecordNode(arity int) *Node {
	node := t.nodes.EmplaceBack(Node{arity: arity})
	if t.multi {
		node.ownAdjoints = t.multiAdjoints.EmplaceBackMulti(t.numOutputs)
		clear(node.ownAdjoints)
	}
	if arity > 0 {
		node.derivatives = t.derivs.EmplaceBackMulti(arity)
		node.argAdjoints = t.argPtrs.EmplaceBackMulti(arity)
	}
	return node
}

// ResetAdjoints zeros every adjoint on the tape: the multiAdjoints
// arena in multi-output mode, or each node's inline scalar adjoint
// otherwise.
func (t *Tape) ResetAdjoints() {
	if t.multi {
		for it := t.multiAdjoints.Begin(); it.Valid(); it = it.Next() {
			*it.Value() = 0
		}
		return
	}
	for it := t.nodes.Begin(); it.Valid(); it = it.Next() {
		it.Value().ownAdjoint = 0
	}
}

// Clear destroys every recorded node and releases all arena blocks.
func (t *Tape) Clear() {
	t.nodes.Clear()
	t.multiAdjoints.Clear()
	t.derivs.Clear()
	t.argPtrs.Clear()
}

// Rewind logically empties the tape but retains every arena's blocks
// for reuse by the next forward pass.
func (t *Tape) Rewind() {
	t.nodes.Rewind()
	t.multiAdjoints.Rewind()
	t.derivs.Rewind()
	t.argPtrs.Rewind()
}

// Mark is a saved tape cursor, spanning all four arenas atomically, for
// use with RewindToMark. Applying only part of a mark would leak
// pointers from live nodes into storage a later rewind has recycled, so
// Mark/RewindToMark must always be used as a matched pair on the same
// Tape.
type Mark struct {
	nodes, multiAdjoints, derivs, argPtrs blockMark
}

// Mark saves the current cursor position of all four arenas.
func (t *Tape) Mark() Mark {
	return Mark{
		nodes:         t.nodes.Mark(),
		multiAdjoints: t.multiAdjoints.Mark(),
		derivs:        t.derivs.Mark(),
		argPtrs:       t.argPtrs.Mark(),
	}
}

// RewindToMark restores all four arenas to a previously saved Mark.
func (t *Tape) RewindToMark(m Mark) {
	t.nodes.RewindToMark(m.nodes)
	t.multiAdjoints.RewindToMark(m.multiAdjoints)
	t.derivs.RewindToMark(m.derivs)
	t.argPtrs.RewindToMark(m.argPtrs)
}

// Begin returns an iterator at the first recorded node.
func (t *Tape) Begin() Iterator[Node] { return t.nodes.Begin() }

// End returns the past-the-end node iterator.
func (t *Tape) End() Iterator[Node] { return t.nodes.End() }

// MarkIterator returns a node iterator referring to the position saved
// by Mark. It is only valid to call this with a Mark taken from this
// same Tape and not yet invalidated by Clear.
func (t *Tape) MarkIterator(m Mark) Iterator[Node] {
	return Iterator[Node]{list: t.nodes, pos: m.nodes}
}

// Find returns an iterator referring to the node at address p, or End
// if the node is no longer on the tape. A debug-mode presence check,
// not a correctness guarantee: it is a linear scan.
func (t *Tape) Find(p *Node) Iterator[Node] {
	return t.nodes.Find(p)
}

// propagate walks the tape from "from" backward to "to" (both
// inclusive), running the node-appropriate propagation function on
// each visited node. from must be at or after to in insertion order.
func (t *Tape) propagate(from, to Iterator[Node], propagateNode func(*Node)) {
	if from.list != t.nodes || to.list != t.nodes {
		panic("ad: iterator does not belong to this tape")
	}
	it := from
	for {
		propagateNode(it.Value())
		if it.Equal(to) {
			break
		}
		it = it.Prev()
	}
}
