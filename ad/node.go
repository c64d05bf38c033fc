package ad

import "unsafe"

// Node records one operation on the tape: its arity, the local partial
// derivatives with respect to each argument, and a back-pointer into
// each argument's adjoint storage. Leaves have arity 0 and no
// derivative/back-pointer storage.
//
// ownAdjoint holds the node's own adjoint in single-output mode. Its
// address is stable because Node values live inside a BlockList block
// (see Tape.nodes), never in a slice that might be regrown. ownAdjoints
// holds the node's adjoints in multi-output mode, backed by the tape's
// multiAdjoints arena.
type Node struct {
	arity int

	ownAdjoint  float64
	ownAdjoints []float64

	derivatives []float64
	argAdjoints [][]float64
}

// adjointView returns a slice view over this node's own adjoint
// storage, suitable for use as another node's argAdjoints entry: length
// 1 over the inline scalar in single-output mode, or the arena-backed
// vector in multi-output mode.
//
// The single-output case is the one unsafe use in this module: it
// builds a length-1 slice over a struct field whose address is stable
// for the Node's lifetime (see the BlockList stability invariant), so
// that propagateOne/propagateAll can share one indexing code path
// instead of special-casing scalar vs. vector adjoint storage.
func (n *Node) adjointView() []float64 {
	if n.ownAdjoints != nil {
		return n.ownAdjoints
	}
	return unsafe.Slice(&n.ownAdjoint, 1)
}

// propagateOne runs single-output backward propagation for this node:
// for each argument i, arg_adjoints[i] += derivatives[i] * own_adjoint.
// A no-op for leaves (arity 0) or when the node's own adjoint is zero —
// the only AAD-level optimization in the core, skipping subgraphs that
// received no incoming adjoint (e.g. the untaken branch of a recorded
// max/min).
func (n *Node) propagateOne() {
	if n.arity == 0 || n.ownAdjoint == 0 {
		return
	}
	a := n.ownAdjoint
	for i := 0; i != n.arity; i++ {
		n.argAdjoints[i][0] += n.derivatives[i] * a
	}
}

// propagateAll runs multi-output backward propagation: for each
// argument i and each output j, arg_adjoints[i][j] +=
// derivatives[i] * own_adjoints[j]. A no-op for leaves or when every
// output's incoming adjoint is zero. The inner loop is the critical
// path of a multi-output sweep and is written as a tight stride-1 loop.
func (n *Node) propagateAll() {
	if n.arity == 0 {
		return
	}
	allZero := true
	for _, a := range n.ownAdjoints {
		if a != 0 {
			allZero = false
			break
		}
	}
	if allZero {
		return
	}
	for i := 0; i != n.arity; i++ {
		argAdj := n.argAdjoints[i]
		d := n.derivatives[i]
		for j, a := range n.ownAdjoints {
			argAdj[j] += d * a
		}
	}
}
