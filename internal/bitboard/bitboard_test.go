package bitboard

import "testing"

func TestAddRemoveCount(t *testing.T) {
	s := New(361)
	if s.Count() != 0 {
		t.Fatalf("new set should be empty, got count %d", s.Count())
	}
	s.Add(0)
	s.Add(63)
	s.Add(64)
	s.Add(360)
	if s.Count() != 4 {
		t.Fatalf("expected 4 members, got %d", s.Count())
	}
	s.Add(64) // idempotent
	if s.Count() != 4 {
		t.Fatalf("duplicate Add should not change the count, got %d", s.Count())
	}
	s.Remove(63)
	if s.Count() != 3 || s.Has(63) {
		t.Fatalf("expected 63 removed, count=%d has=%v", s.Count(), s.Has(63))
	}
	s.Remove(63) // idempotent
	if s.Count() != 3 {
		t.Fatalf("duplicate Remove should not change the count, got %d", s.Count())
	}
}

func TestFirstUsesTrailingZeroScan(t *testing.T) {
	s := New(361)
	if s.First() != -1 {
		t.Fatalf("empty set First() = %d, want -1", s.First())
	}
	s.Add(200)
	s.Add(70)
	s.Add(300)
	if s.First() != 70 {
		t.Fatalf("First() = %d, want 70", s.First())
	}
}

func TestMergeKeepsCountInSync(t *testing.T) {
	a, b := New(361), New(361)
	a.Add(1)
	a.Add(100)
	b.Add(100)
	b.Add(200)
	a.Merge(b)
	if a.Count() != 3 {
		t.Fatalf("merged count = %d, want 3 (overlap counted once)", a.Count())
	}
	for _, v := range []int{1, 100, 200} {
		if !a.Has(v) {
			t.Fatalf("merged set missing %d", v)
		}
	}
}

func TestIterAscendingOrder(t *testing.T) {
	s := New(361)
	want := []int{3, 64, 65, 359}
	for _, v := range want {
		s.Add(v)
	}
	var got []int
	s.Iter(func(v int) { got = append(got, v) })
	if len(got) != len(want) {
		t.Fatalf("Iter yielded %d members, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Iter order: got %v, want %v", got, want)
		}
	}
}

func TestEqualCloneCopyFrom(t *testing.T) {
	a := New(128)
	a.Add(5)
	a.Add(127)

	c := a.Clone()
	if !a.Equal(c) {
		t.Fatal("clone should equal its source")
	}
	c.Remove(5)
	if a.Equal(c) {
		t.Fatal("mutating the clone must not affect the source")
	}
	if !a.Has(5) {
		t.Fatal("source lost a member after clone mutation")
	}

	d := New(128)
	d.CopyFrom(a)
	if !d.Equal(a) || d.Count() != a.Count() {
		t.Fatal("CopyFrom should reproduce membership and count")
	}

	a.Clear()
	if a.Count() != 0 || a.First() != -1 {
		t.Fatal("Clear should empty the set")
	}
}
