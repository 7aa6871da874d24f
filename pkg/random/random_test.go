package random

import "testing"

func TestNewDeterministic(t *testing.T) {
	a, b := New(7), New(7)
	for i := 0; i < 50; i++ {
		if x, y := a.IntN(1000), b.IntN(1000); x != y {
			t.Fatalf("draw %d: %d != %d", i, x, y)
		}
	}
}

func TestForAttempt(t *testing.T) {
	same1 := ForAttempt(42, 3).Uint64()
	same2 := ForAttempt(42, 3).Uint64()
	if same1 != same2 {
		t.Error("ForAttempt should be deterministic")
	}

	seen := make(map[uint64]bool)
	for i := 0; i < 20; i++ {
		v := ForAttempt(42, i).Uint64()
		if seen[v] {
			t.Errorf("attempt %d repeated a stream", i)
		}
		seen[v] = true
	}
}

func TestBetween(t *testing.T) {
	rng := New(1)
	hits := make(map[int]bool)
	for i := 0; i < 2000; i++ {
		v := Between(rng, -3, 3)
		if v < -3 || v > 3 {
			t.Fatalf("Between(-3, 3) = %d", v)
		}
		hits[v] = true
	}
	if len(hits) != 7 {
		t.Errorf("expected all 7 values, saw %d", len(hits))
	}

	if got := Between(rng, 5, 5); got != 5 {
		t.Errorf("Between(5, 5) = %d", got)
	}
	if got := Between(rng, 9, 2); got != 9 {
		t.Errorf("Between(9, 2) = %d, want lo", got)
	}
}

func TestUniform(t *testing.T) {
	rng := New(2)
	for i := 0; i < 1000; i++ {
		v := Uniform(rng, 0.4, 0.7)
		if v < 0.4 || v >= 0.7 {
			t.Fatalf("Uniform = %v", v)
		}
	}
}

func TestSample(t *testing.T) {
	rng := New(3)
	tests := []struct {
		n, k, want int
	}{
		{5, 3, 3},
		{5, 5, 5},
		{5, 9, 5},
		{5, 0, 0},
		{0, 2, 0},
		{4, -1, 0},
	}
	for _, tt := range tests {
		got := Sample(rng, tt.n, tt.k)
		if len(got) != tt.want {
			t.Errorf("Sample(%d, %d) len = %d, want %d", tt.n, tt.k, len(got), tt.want)
		}
		seen := make(map[int]bool)
		for _, v := range got {
			if v < 0 || v >= tt.n {
				t.Errorf("Sample(%d, %d) out of range: %d", tt.n, tt.k, v)
			}
			if seen[v] {
				t.Errorf("Sample(%d, %d) repeated %d", tt.n, tt.k, v)
			}
			seen[v] = true
		}
	}
}
