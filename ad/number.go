package ad

import (
	"math"
)

// Number is a differentiable scalar: a value plus a (possibly nil)
// back-pointer to the Node that recorded it on the calling goroutine's
// tape. Number is a small value type, passed and returned by value like
// float64.
//
// Number is a non-owning handle: its node is safe to dereference only
// while the node's tape position has not been rewound past (by Rewind
// or RewindToMark). Number has no destructor and does not remove itself
// from the tape; lifetime is managed entirely by the tape's own
// Rewind/Clear, collectively, for every Number recorded on it. Using a
// Number after its tape has rewound past its node is a programmer
// error (spec §7) and is not detected outside of the Find check in
// Number.PropagateAdjoints; mustNode() only rejects a nil node.
type Number struct {
	value float64
	node  *Node
}

// Value returns the forward-pass value.
func (a Number) Value() float64 { return a.value }

// Node returns the node that recorded a, or nil if a was never put on
// a tape (e.g. the zero Number).
func (a Number) Node() *Node { return a.node }

// mustNode returns a.node, panicking if it is nil — used internally by
// every operator and by propagation, since operating on an unrecorded
// Number is always a programmer error (spec §7): either it should have
// been constructed with Leaf, or PutOnTape should have been called
// first.
func (a Number) mustNode() *Node {
	if a.node == nil {
		panic("ad: Number used before being put on a tape (call Leaf or PutOnTape first)")
	}
	return a.node
}

// Adjoint returns the node's own adjoint in single-output mode.
func (a Number) Adjoint() float64 { return a.mustNode().ownAdjoint }

// AdjointAt returns the node's j-th adjoint in multi-output mode.
func (a Number) AdjointAt(j int) float64 { return a.mustNode().ownAdjoints[j] }

// SeedAdjoint sets the node's own adjoint in single-output mode; used
// to start a reverse sweep from a result other than through
// PropagateToStart/PropagateToMark, which seed 1.0 automatically.
func (a Number) SeedAdjoint(v float64) { a.mustNode().ownAdjoint = v }

// SeedAdjointAt sets the node's j-th adjoint in multi-output mode.
func (a Number) SeedAdjointAt(j int, v float64) { a.mustNode().ownAdjoints[j] = v }

// Leaf records a new leaf node (arity 0) on the calling goroutine's
// tape and returns a Number wrapping x. This is how independent
// variables enter the tape.
func Leaf(x float64) Number {
	t := CurrentTape()
	return Number{value: x, node: t.RecordNode(0)}
}

// PutOnTape forces a leaf recording for a Number whose node is nil —
// for example one default-constructed and then assigned a value
// outside of Leaf. It is a no-op if a is already recorded.
func (a *Number) PutOnTape() {
	if a.node != nil {
		return
	}
	t := CurrentTape()
	a.node = t.RecordNode(0)
}

// record1 records a unary node for a value computed from arg, with
// local derivative d(result)/d(arg) = deriv, and returns the result as
// a Number.
func record1(val float64, arg Number, deriv float64) Number {
	t := CurrentTape()
	n := t.RecordNode(1)
	n.derivatives[0] = deriv
	n.argAdjoints[0] = arg.mustNode().adjointView()
	return Number{value: val, node: n}
}

// record2 records a binary node for a value computed from lhs and rhs,
// with local derivatives dLhs = d(result)/d(lhs) and
// dRhs = d(result)/d(rhs).
func record2(val float64, lhs, rhs Number, dLhs, dRhs float64) Number {
	t := CurrentTape()
	n := t.RecordNode(2)
	n.derivatives[0], n.derivatives[1] = dLhs, dRhs
	n.argAdjoints[0] = lhs.mustNode().adjointView()
	n.argAdjoints[1] = rhs.mustNode().adjointView()
	return Number{value: val, node: n}
}

// Binary operators (Number, Number)

// Add returns a + b.
func (a Number) Add(b Number) Number {
	return record2(a.value+b.value, a, b, 1, 1)
}

// Sub returns a - b.
func (a Number) Sub(b Number) Number {
	return record2(a.value-b.value, a, b, 1, -1)
}

// Mul returns a * b.
func (a Number) Mul(b Number) Number {
	return record2(a.value*b.value, a, b, b.value, a.value)
}

// Div returns a / b.
func (a Number) Div(b Number) Number {
	return record2(a.value/b.value, a, b, 1/b.value, -a.value/(b.value*b.value))
}

// Pow returns a to the power b (aᵇ).
func Pow(a, b Number) Number {
	v := math.Pow(a.value, b.value)
	return record2(v, a, b, b.value*v/a.value, math.Log(a.value)*v)
}

// Max returns the larger of a and b. At a == b the derivative is
// assigned to b, the complement convention spec.md documents for this
// pseudo-discontinuity.
func Max(a, b Number) Number {
	var v, da float64
	if a.value > b.value {
		v, da = a.value, 1
	} else {
		v, da = b.value, 0
	}
	return record2(v, a, b, da, 1-da)
}

// Min returns the smaller of a and b, with the same complement
// convention as Max for the a == b case.
func Min(a, b Number) Number {
	var v, da float64
	if a.value < b.value {
		v, da = a.value, 1
	} else {
		v, da = b.value, 0
	}
	return record2(v, a, b, da, 1-da)
}

// Mixed operators (Number, float64): record a unary node depending
// only on the Number operand. The float64 constant is not itself put
// on the tape.

// AddConst returns a + c.
func (a Number) AddConst(c float64) Number {
	return record1(a.value+c, a, 1)
}

// SubConst returns a - c.
func (a Number) SubConst(c float64) Number {
	return record1(a.value-c, a, 1)
}

// ConstSub returns c - a.
func (a Number) ConstSub(c float64) Number {
	return record1(c-a.value, a, -1)
}

// MulConst returns a * c.
func (a Number) MulConst(c float64) Number {
	return record1(a.value*c, a, c)
}

// DivConst returns a / c.
func (a Number) DivConst(c float64) Number {
	return record1(a.value/c, a, 1/c)
}

// ConstDiv returns c / a.
func (a Number) ConstDiv(c float64) Number {
	v := c / a.value
	return record1(v, a, -v/a.value)
}

// Unary operators

// Neg returns -a, computed as 0.0 - a per spec.
func (a Number) Neg() Number {
	return record1(0.0-a.value, a, -1)
}

// Pos returns a unchanged: unary + is an identity and records no node.
func (a Number) Pos() Number { return a }

// Exp returns e^a.
func (a Number) Exp() Number {
	v := math.Exp(a.value)
	return record1(v, a, v)
}

// Log returns the natural logarithm of a. As with the underlying
// math.Log, a <= 0 propagates NaN without an inserted check.
func (a Number) Log() Number {
	return record1(math.Log(a.value), a, 1/a.value)
}

// Sqrt returns the square root of a.
func (a Number) Sqrt() Number {
	v := math.Sqrt(a.value)
	return record1(v, a, 0.5/v)
}

// Fabs returns |a|. The derivative at exactly zero is -1 (the known
// pseudo-discontinuity spec.md documents: callers seeding adjoints
// through a kink at exactly 0 are on their own).
func (a Number) Fabs() Number {
	var d float64 = -1
	if a.value > 0 {
		d = 1
	}
	return record1(math.Abs(a.value), a, d)
}

const invSqrt2Pi = 0.3989422804014327 // 1/sqrt(2*pi)

// NormalDens returns φ(a), the standard normal density at a.
func (a Number) NormalDens() Number {
	v := invSqrt2Pi * math.Exp(-0.5*a.value*a.value)
	return record1(v, a, -a.value*v)
}

// NormalCdf returns Φ(a), the standard normal cumulative distribution
// at a, via math.Erf.
func (a Number) NormalCdf() Number {
	v := 0.5 * (1 + math.Erf(a.value/math.Sqrt2))
	phi := invSqrt2Pi * math.Exp(-0.5*a.value*a.value)
	return record1(v, a, phi)
}

// Compound assignment: a = a op b. These produce a new node; they do
// not mutate a's existing node in place.

func (a *Number) AddAssign(b Number)       { *a = a.Add(b) }
func (a *Number) SubAssign(b Number)       { *a = a.Sub(b) }
func (a *Number) MulAssign(b Number)       { *a = a.Mul(b) }
func (a *Number) DivAssign(b Number)       { *a = a.Div(b) }
func (a *Number) AddConstAssign(c float64) { *a = a.AddConst(c) }
func (a *Number) SubConstAssign(c float64) { *a = a.SubConst(c) }
func (a *Number) MulConstAssign(c float64) { *a = a.MulConst(c) }
func (a *Number) DivConstAssign(c float64) { *a = a.DivConst(c) }

// Comparisons compare values only and never record.

func (a Number) Equal(b Number) bool          { return a.value == b.value }
func (a Number) NotEqual(b Number) bool       { return a.value != b.value }
func (a Number) Less(b Number) bool           { return a.value < b.value }
func (a Number) Greater(b Number) bool        { return a.value > b.value }
func (a Number) LessOrEqual(b Number) bool    { return a.value <= b.value }
func (a Number) GreaterOrEqual(b Number) bool { return a.value >= b.value }

// Reverse sweep

// PropagateAdjoints seeds a's adjoint to 1.0 (single-output mode only),
// locates a's node on the calling goroutine's tape, and walks backward
// to "to" inclusive.
func (a Number) PropagateAdjoints(to Iterator[Node]) {
	t := CurrentTape()
	if t.multi {
		panic("ad: Number.PropagateAdjoints used on a multi-output tape; " +
			"seed via SeedAdjointAt and drive the sweep from Tape directly")
	}
	node := a.mustNode()
	node.ownAdjoint = 1
	from := t.Find(node)
	if !from.Valid() {
		panic("ad: node not found on current tape")
	}
	t.PropagateAdjoints(from, to)
}

// PropagateToStart is PropagateAdjoints(tape.Begin()).
func (a Number) PropagateToStart() {
	a.PropagateAdjoints(CurrentTape().Begin())
}

// PropagateToMark is PropagateAdjoints(tape.MarkIterator(m)).
func (a Number) PropagateToMark(m Mark) {
	a.PropagateAdjoints(CurrentTape().MarkIterator(m))
}

// PropagateAdjoints walks the tape from "from" backward to "to" (both
// inclusive), dispatching each node to propagateOne or propagateAll
// according to the tape's mode. from must be at or after to in
// insertion order.
func (t *Tape) PropagateAdjoints(from, to Iterator[Node]) {
	propagateNode := (*Node).propagateOne
	if t.multi {
		propagateNode = (*Node).propagateAll
	}
	t.propagate(from, to, propagateNode)
}

// PropagateToStart is PropagateAdjoints(from, t.Begin()).
func (t *Tape) PropagateToStart(from Iterator[Node]) {
	t.PropagateAdjoints(from, t.Begin())
}

// PropagateToMark is PropagateAdjoints(from, t.MarkIterator(m)).
func (t *Tape) PropagateToMark(from Iterator[Node], m Mark) {
	t.PropagateAdjoints(from, t.MarkIterator(m))
}

// PropagateMarkToStart walks from the node just before the mark down to
// Begin(). It is meant to be called after a separate PropagateAdjoints
// (or Number.PropagateToMark) has already driven the sweep from a
// result down to the mark, letting a two-phase sweep seed the
// post-mark outputs once and then continue through the pre-mark phase
// without re-seeding.
func (t *Tape) PropagateMarkToStart(m Mark) {
	t.PropagateAdjoints(t.MarkIterator(m).Prev(), t.Begin())
}

// Last returns an iterator at the most recently recorded node. Useful
// to start a multi-output sweep whose outputs were the last operations
// recorded on the tape.
func (t *Tape) Last() Iterator[Node] {
	return t.End().Prev()
}
