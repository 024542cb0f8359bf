package facematch

import "math"

// Match classifies query against entries.
//
// The entry with the minimum Euclidean distance wins; on equal distances the
// earliest entry is kept so results do not vary between runs. The winner is
// reported as a match only if its distance is strictly below threshold.
// An empty entry set always yields an unknown result.
func Match(query Embedding, entries []Entry, threshold float64) Result {
	best := -1
	bestDist := math.Inf(1)

	for i := range entries {
		d := EuclideanDistance(query, entries[i].Embedding)
		if d < bestDist {
			best = i
			bestDist = d
		}
	}

	if best < 0 {
		return Result{Distance: bestDist}
	}

	result := Result{
		Nearest:  entries[best].Identity,
		Distance: bestDist,
	}
	if bestDist < threshold {
		result.Identity = entries[best].Identity
	}
	return result
}
