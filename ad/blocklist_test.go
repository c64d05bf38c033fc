package ad

import "testing"

func TestBlockListRoundTrip(t *testing.T) {
	b := NewBlockList[int](4)
	var want []int
	for i := 0; i != 10; i++ {
		b.EmplaceBack(i)
		want = append(want, i)
	}
	var got []int
	for it := b.Begin(); it.Valid(); it = it.Next() {
		got = append(got, *it.Value())
	}
	if len(got) != len(want) {
		t.Fatalf("got %d elements, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("element %d: got %d, want %d", i, got[i], want[i])
		}
	}
}

func TestBlockListEmptyBeginEqualsEnd(t *testing.T) {
	b := NewBlockList[float64](4)
	if !b.Begin().Equal(b.End()) {
		t.Errorf("empty list: begin() != end()")
	}
}

func TestBlockListStableAddresses(t *testing.T) {
	b := NewBlockList[float64](2)
	var ptrs []*float64
	for i := 0; i != 5; i++ {
		ptrs = append(ptrs, b.EmplaceBack(float64(i)))
	}
	for i, p := range ptrs {
		if *p != float64(i) {
			t.Errorf("address %d: got %v, want %v", i, *p, float64(i))
		}
	}
}

func TestBlockListEmplaceBackMultiContiguous(t *testing.T) {
	b := NewBlockList[float64](4)
	leading := b.EmplaceBack(-1) // leave 3 free slots in the first block
	s := b.EmplaceBackMulti(3)
	if len(s) != 3 {
		t.Fatalf("got %d slots, want 3", len(s))
	}
	for i := range s {
		s[i] = float64(i + 1)
	}
	if *leading != -1 {
		t.Errorf("EmplaceBackMulti clobbered an earlier element")
	}
	for i := range s {
		if s[i] != float64(i+1) {
			t.Errorf("slot %d: got %v, want %v", i, s[i], i+1)
		}
	}
}

func TestBlockListEmplaceBackMultiSkipsFullBlock(t *testing.T) {
	b := NewBlockList[float64](4)
	b.EmplaceBack(0)
	b.EmplaceBack(0)
	b.EmplaceBack(0) // 1 slot free in block 0
	s := b.EmplaceBackMulti(2)
	if len(s) != 2 {
		t.Fatalf("got %d slots, want 2", len(s))
	}
	// The allocation must have skipped to a fresh block since only
	// 1 slot remained; the new block's cursor must be at 2, not 5.
	if b.cur.block != 1 || b.cur.slot != 2 {
		t.Errorf("cursor = %+v, want block=1 slot=2", b.cur)
	}
}

func TestBlockListEmplaceBackMultiTooLargePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Errorf("expected panic for oversized EmplaceBackMulti")
		}
	}()
	b := NewBlockList[float64](4)
	b.EmplaceBackMulti(5)
}

func TestBlockListRewindReusesAddresses(t *testing.T) {
	b := NewBlockList[float64](4)
	var first []*float64
	for i := 0; i != 10; i++ {
		first = append(first, b.EmplaceBack(float64(i)))
	}
	b.Rewind()
	var second []*float64
	for i := 0; i != 10; i++ {
		second = append(second, b.EmplaceBack(float64(i)))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("address %d changed across rewind: %p != %p",
				i, first[i], second[i])
		}
	}
}

func TestBlockListMarkRewindToMark(t *testing.T) {
	b := NewBlockList[float64](4)
	for i := 0; i != 3; i++ {
		b.EmplaceBack(float64(i))
	}
	m := b.Mark()
	for i := 0; i != 10; i++ {
		b.EmplaceBack(float64(100 + i))
	}
	b.RewindToMark(m)
	if b.Len() != 3 {
		t.Fatalf("after RewindToMark, Len() = %d, want 3", b.Len())
	}
	p := b.EmplaceBack(42)
	if *p != 42 {
		t.Errorf("unexpected value after RewindToMark + EmplaceBack")
	}
}

func TestBlockListFind(t *testing.T) {
	b := NewBlockList[float64](4)
	var ptrs []*float64
	for i := 0; i != 9; i++ {
		ptrs = append(ptrs, b.EmplaceBack(float64(i)))
	}
	for i, p := range ptrs {
		it := b.Find(p)
		if !it.Valid() {
			t.Fatalf("Find(%d) returned End()", i)
		}
		if it.Value() != p {
			t.Errorf("Find(%d): got different address", i)
		}
	}
	notFound := new(float64)
	if it := b.Find(notFound); it.Valid() {
		t.Errorf("Find on absent address returned a valid iterator")
	}
}

func TestBlockListClear(t *testing.T) {
	b := NewBlockList[float64](4)
	b.EmplaceBack(1)
	b.EmplaceBack(2)
	b.Clear()
	if b.Len() != 0 {
		t.Errorf("Len() after Clear = %d, want 0", b.Len())
	}
	if !b.Begin().Equal(b.End()) {
		t.Errorf("begin() != end() after Clear")
	}
}
