package facematch

import (
	"math"
	"math/rand/v2"
	"testing"
)

// scenarioGallery places ALICE at the origin and BOB 0.8 away on the x axis.
func scenarioGallery() []Entry {
	return []Entry{
		{Identity: "ALICE", Embedding: Embedding{0, 0}},
		{Identity: "BOB", Embedding: Embedding{0.8, 0}},
	}
}

// pointAt returns the 2-d point at distance d1 from (0,0) and d2 from (0.8,0).
func pointAt(d1, d2 float64) Embedding {
	x := (d1*d1 - d2*d2 + 0.64) / 1.6
	y := math.Sqrt(d1*d1 - x*x)
	return Embedding{float32(x), float32(y)}
}

func TestEuclideanDistance(t *testing.T) {
	tests := []struct {
		name     string
		a        []float32
		b        []float32
		expected float64
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 0},
		{"unit axis", []float32{0, 0}, []float32{1, 0}, 1},
		{"3-4-5", []float32{0, 0}, []float32{3, 4}, 5},
		{"length mismatch", []float32{1}, []float32{1, 2}, math.Inf(1)},
		{"empty", []float32{}, []float32{}, math.Inf(1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := EuclideanDistance(tt.a, tt.b)
			if math.IsInf(tt.expected, 1) {
				if !math.IsInf(result, 1) {
					t.Errorf("EuclideanDistance(%v, %v) = %v, want +Inf", tt.a, tt.b, result)
				}
				return
			}
			if math.Abs(result-tt.expected) > 1e-6 {
				t.Errorf("EuclideanDistance(%v, %v) = %v, want %v", tt.a, tt.b, result, tt.expected)
			}
		})
	}
}

func TestMatch_ClosestBelowThreshold(t *testing.T) {
	q := pointAt(0.3, 0.9)

	result := Match(q, scenarioGallery(), 0.6)

	if !result.Matched() {
		t.Fatalf("expected a match, got unknown (nearest %s at %v)", result.Nearest, result.Distance)
	}
	if result.Identity != "ALICE" {
		t.Errorf("expected ALICE, got %s", result.Identity)
	}
	if math.Abs(result.Distance-0.3) > 1e-4 {
		t.Errorf("expected distance 0.3, got %v", result.Distance)
	}
}

func TestMatch_ClosestAboveThreshold(t *testing.T) {
	q := pointAt(0.7, 0.75)

	result := Match(q, scenarioGallery(), 0.6)

	if result.Matched() {
		t.Fatalf("expected unknown, got %s", result.Identity)
	}
	if result.Nearest != "ALICE" {
		t.Errorf("expected nearest ALICE, got %s", result.Nearest)
	}
	if math.Abs(result.Distance-0.7) > 1e-4 {
		t.Errorf("expected distance 0.7, got %v", result.Distance)
	}
}

func TestMatch_DistanceEqualToThresholdIsUnknown(t *testing.T) {
	entries := []Entry{{Identity: "ALICE", Embedding: Embedding{0, 0}}}

	result := Match(Embedding{0.5, 0}, entries, 0.5)

	if result.Matched() {
		t.Errorf("expected unknown at distance == threshold, got %s", result.Identity)
	}
}

func TestMatch_EmptyGallery(t *testing.T) {
	queries := []Embedding{{0, 0}, {1, 2, 3}, {}}
	for _, q := range queries {
		for _, threshold := range []float64{0, 0.6, math.MaxFloat64} {
			result := Match(q, nil, threshold)
			if result.Matched() {
				t.Errorf("Match(%v, {}, %v) matched %s", q, threshold, result.Identity)
			}
			if result.Nearest != "" {
				t.Errorf("Match(%v, {}, %v) nearest = %s, want empty", q, threshold, result.Nearest)
			}
		}
	}
}

func TestMatch_TieKeepsFirstInserted(t *testing.T) {
	entries := []Entry{
		{Identity: "LEFT", Embedding: Embedding{-1, 0}},
		{Identity: "RIGHT", Embedding: Embedding{1, 0}},
	}

	for range 10 {
		result := Match(Embedding{0, 0}, entries, 2)
		if result.Identity != "LEFT" {
			t.Fatalf("expected tie to resolve to LEFT, got %s", result.Identity)
		}
	}
}

func TestMatch_DimensionMismatchNeverMatches(t *testing.T) {
	entries := []Entry{{Identity: "ALICE", Embedding: Embedding{0, 0, 0}}}

	result := Match(Embedding{0, 0}, entries, 10)

	if result.Matched() {
		t.Errorf("expected unknown for mismatched dimensions, got %s", result.Identity)
	}
}

func TestMatch_UnknownIffMinDistanceAtLeastThreshold(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	randomEmbedding := func() Embedding {
		e := make(Embedding, 8)
		for i := range e {
			e[i] = float32(rng.Float64()*2 - 1)
		}
		return e
	}

	for range 500 {
		entries := make([]Entry, 1+rng.IntN(6))
		for i := range entries {
			entries[i] = Entry{Identity: string(rune('A' + i)), Embedding: randomEmbedding()}
		}
		q := randomEmbedding()
		threshold := rng.Float64() * 3

		minDist := math.Inf(1)
		for _, e := range entries {
			minDist = min(minDist, EuclideanDistance(q, e.Embedding))
		}

		result := Match(q, entries, threshold)
		if result.Matched() == (minDist >= threshold) {
			t.Fatalf("matched=%v with min distance %v and threshold %v", result.Matched(), minDist, threshold)
		}
		if result.Distance != minDist {
			t.Fatalf("reported distance %v, want minimum %v", result.Distance, minDist)
		}
	}
}
