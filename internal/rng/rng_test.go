package rng

import (
	"testing"

	"pgregory.net/rapid"
)

func TestSameSeedSameSequence(t *testing.T) {
	a := New("alpha")
	b := New("alpha")
	for i := 0; i < 1000; i++ {
		if x, y := a.Next(), b.Next(); x != y {
			t.Fatalf("step %d: %v != %v", i, x, y)
		}
	}
}

func TestDifferentSeedsDiverge(t *testing.T) {
	a := New("alpha")
	b := New("beta")
	same := 0
	for i := 0; i < 100; i++ {
		if a.Next() == b.Next() {
			same++
		}
	}
	if same > 5 {
		t.Errorf("sequences for different seeds matched %d/100 times", same)
	}
}

func TestHashStringStable(t *testing.T) {
	tests := []struct {
		in   string
		want uint32
	}{
		{"", 1779033703},
	}
	for _, tt := range tests {
		if got := HashString(tt.in); got != tt.want {
			t.Errorf("HashString(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
	if HashString("alpha") != HashString("alpha") {
		t.Error("HashString is not stable")
	}
}

func TestNextInUnitInterval(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		seed := rapid.String().Draw(t, "seed")
		r := New(seed)
		for i := 0; i < 64; i++ {
			v := r.Next()
			if v < 0 || v >= 1 {
				t.Fatalf("Next() = %v out of [0,1)", v)
			}
		}
	})
}

func TestIntInclusiveRange(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		seed := rapid.String().Draw(t, "seed")
		lo := rapid.IntRange(-50, 50).Draw(t, "lo")
		span := rapid.IntRange(0, 20).Draw(t, "span")
		r := New(seed)
		for i := 0; i < 32; i++ {
			v := r.Int(lo, lo+span)
			if v < lo || v > lo+span {
				t.Fatalf("Int(%d,%d) = %d", lo, lo+span, v)
			}
		}
	})
}

func TestShufflePermutes(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		seed := rapid.String().Draw(t, "seed")
		list := rapid.SliceOfDistinct(rapid.IntRange(0, 1000), rapid.ID[int]).Draw(t, "list")
		out := Shuffle(New(seed), list)
		if len(out) != len(list) {
			t.Fatalf("len %d != %d", len(out), len(list))
		}
		seen := make(map[int]bool, len(list))
		for _, v := range list {
			seen[v] = true
		}
		for _, v := range out {
			if !seen[v] {
				t.Fatalf("value %d not in input", v)
			}
			delete(seen, v)
		}
	})
}

func TestShuffleDoesNotMutateInput(t *testing.T) {
	in := []int{1, 2, 3, 4, 5}
	_ = Shuffle(New("x"), in)
	for i, v := range []int{1, 2, 3, 4, 5} {
		if in[i] != v {
			t.Fatalf("input mutated: %v", in)
		}
	}
}

func TestPickCoversAll(t *testing.T) {
	r := New("pick")
	list := []string{"a", "b", "c"}
	seen := map[string]bool{}
	for i := 0; i < 200; i++ {
		seen[Pick(r, list)] = true
	}
	if len(seen) != len(list) {
		t.Errorf("Pick reached %d of %d elements", len(seen), len(list))
	}
}
