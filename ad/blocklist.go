// Package ad implements a reverse-mode automatic differentiation engine:
// a block-pool allocator (BlockList), a tape of recorded operations
// (Tape, Node), and a differentiable scalar (Number) whose arithmetic
// operators eagerly record local derivatives onto the calling
// goroutine's tape.
package ad

import "fmt"

// blockMark identifies a cursor position within a BlockList: the index
// of the current block and the next free slot within it.
type blockMark struct {
	block int
	slot  int
}

// BlockList is a rewindable arena of T, served from a chain of
// fixed-capacity blocks. Once emplaced, a T's address is stable for the
// life of the BlockList: blocks are plain Go slices allocated once at
// full capacity and never regrown, so Go's non-moving garbage collector
// never relocates the backing array underneath a live pointer.
//
// BlockList is not safe for concurrent use; each Tape (and hence each
// goroutine's BlockLists) is private to its owning goroutine.
type BlockList[T any] struct {
	blockSize int
	blocks    [][]T
	cur       blockMark
}

// NewBlockList returns an empty BlockList serving T in blocks of
// blockSize elements.
func NewBlockList[T any](blockSize int) *BlockList[T] {
	if blockSize <= 0 {
		panic(fmt.Sprintf("ad: BlockList block size must be positive, got %d", blockSize))
	}
	return &BlockList[T]{blockSize: blockSize}
}

// Len returns the number of slots consumed up to the cursor. Slots that
// EmplaceBackMulti abandoned when it skipped to a fresh block are
// counted too, so Len equals the element count only for a list that
// never had such a skip.
func (b *BlockList[T]) Len() int {
	if len(b.blocks) == 0 {
		return 0
	}
	return b.cur.block*b.blockSize + b.cur.slot
}

// growIfNeeded advances the cursor into the next block once the current
// one is full, appending a fresh block only when no retained block (left
// over from a Rewind/RewindToMark) is available to advance into.
func (b *BlockList[T]) growIfNeeded() {
	if len(b.blocks) == 0 {
		b.blocks = append(b.blocks, make([]T, b.blockSize))
		return
	}
	if b.cur.slot == b.blockSize {
		b.cur.block++
		b.cur.slot = 0
	}
	if b.cur.block == len(b.blocks) {
		b.blocks = append(b.blocks, make([]T, b.blockSize))
	}
}

// EmplaceBack appends v to the list and returns a stable pointer to its
// storage.
func (b *BlockList[T]) EmplaceBack(v T) *T {
	b.growIfNeeded()
	block := b.blocks[b.cur.block]
	block[b.cur.slot] = v
	p := &block[b.cur.slot]
	b.cur.slot++
	return p
}

// EmplaceBackMulti reserves k contiguous slots and returns a slice
// viewing them. k must fit inside a single block; a k larger than the
// block size is a configuration error. If the current block cannot fit
// k more elements, its remaining slots are abandoned (left unused until
// the next Rewind) and allocation proceeds from a fresh block, so the
// returned slots are always contiguous in one block's backing array.
func (b *BlockList[T]) EmplaceBackMulti(k int) []T {
	if k <= 0 {
		return nil
	}
	if k > b.blockSize {
		panic(fmt.Sprintf(
			"ad: EmplaceBackMulti(%d) exceeds block size %d", k, b.blockSize))
	}
	if len(b.blocks) == 0 {
		b.blocks = append(b.blocks, make([]T, b.blockSize))
	} else if b.cur.slot+k > b.blockSize {
		b.cur.block++
		b.cur.slot = 0
		if b.cur.block == len(b.blocks) {
			b.blocks = append(b.blocks, make([]T, b.blockSize))
		}
	}
	block := b.blocks[b.cur.block]
	s := block[b.cur.slot : b.cur.slot+k : b.cur.slot+k]
	b.cur.slot += k
	return s
}

// Clear destroys all elements and releases every block, including the
// reserved first one.
func (b *BlockList[T]) Clear() {
	b.blocks = nil
	b.cur = blockMark{}
}

// Rewind logically empties the list but keeps every block allocated for
// reuse. Subsequent EmplaceBack/EmplaceBackMulti calls recycle the same
// backing arrays and, for a rewind-to-identical-shape sequence of
// recordings, return the identical addresses as before.
func (b *BlockList[T]) Rewind() {
	b.cur = blockMark{}
}

// Mark saves the current cursor position for a later RewindToMark.
func (b *BlockList[T]) Mark() blockMark {
	return b.cur
}

// RewindToMark restores the cursor to a position previously returned by
// Mark. The mark must refer to a still-existing position (i.e. no Clear
// happened since it was taken).
func (b *BlockList[T]) RewindToMark(m blockMark) {
	b.cur = m
}

// Iterator is a bidirectional, insertion-order cursor over a BlockList.
// It also visits slots abandoned by EmplaceBackMulti.
// The zero Iterator is not valid; obtain one from Begin/End.
type Iterator[T any] struct {
	list *BlockList[T]
	pos  blockMark
}

// Begin returns an iterator at the first element, or equal to End if
// the list is empty.
func (b *BlockList[T]) Begin() Iterator[T] {
	return Iterator[T]{list: b, pos: blockMark{0, 0}}
}

// End returns the past-the-end iterator.
func (b *BlockList[T]) End() Iterator[T] {
	return Iterator[T]{list: b, pos: b.cur}
}

// Equal reports whether two iterators refer to the same position.
func (it Iterator[T]) Equal(other Iterator[T]) bool {
	return it.pos == other.pos
}

// Valid reports whether the iterator currently refers to a live
// element (i.e. is not End).
func (it Iterator[T]) Valid() bool {
	return it.pos != it.list.cur
}

// Value returns a pointer to the element the iterator refers to. Only
// valid when Valid() is true.
func (it Iterator[T]) Value() *T {
	return &it.list.blocks[it.pos.block][it.pos.slot]
}

// Next advances the iterator by one element in insertion order.
func (it Iterator[T]) Next() Iterator[T] {
	pos := it.pos
	pos.slot++
	if pos.slot == it.list.blockSize && pos != it.list.cur {
		pos.block++
		pos.slot = 0
	}
	return Iterator[T]{list: it.list, pos: pos}
}

// Prev moves the iterator back by one element. Decrementing an
// iterator equal to Begin() is undefined; decrementing End() is
// defined only when the list is non-empty.
func (it Iterator[T]) Prev() Iterator[T] {
	pos := it.pos
	if pos.slot == 0 {
		pos.block--
		pos.slot = it.list.blockSize - 1
	} else {
		pos.slot--
	}
	return Iterator[T]{list: it.list, pos: pos}
}

// Find returns an iterator referring to the element at address p, or
// End() if no live element has that address. Find is a linear scan
// intended for debug-mode sanity checks, not a hot path.
func (b *BlockList[T]) Find(p *T) Iterator[T] {
	for it := b.Begin(); it.Valid(); it = it.Next() {
		if it.Value() == p {
			return it
		}
	}
	return b.End()
}
