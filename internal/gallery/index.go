package gallery

import (
	"sort"

	"github.com/coder/hnsw"
	"github.com/kozaktomas/face-attendance/internal/facematch"
)

// HNSW parameters for small galleries
const (
	// hnswMaxNeighbors (M) is the maximum number of neighbors per node.
	hnswMaxNeighbors = 16

	// hnswSearchMultiplier is the factor to request more candidates from HNSW
	// so exact rescoring still has k results after reordering.
	hnswSearchMultiplier = 3
)

// Neighbor is one identity returned by a nearest-neighbor query.
type Neighbor struct {
	Identity string  `json:"identity"`
	Distance float64 `json:"distance"`
}

// Index answers top-k identity queries over a gallery with an HNSW graph.
// Candidate distances are recomputed exactly, so ordering matches facematch.Match.
type Index struct {
	graph   *hnsw.Graph[int]
	entries []facematch.Entry
	dim     int
}

// NewIndex builds an index over the gallery's current entries.
func NewIndex(g *Gallery) *Index {
	idx := &Index{
		entries: g.Entries(),
		dim:     g.Dim(),
	}
	if len(idx.entries) == 0 {
		return idx
	}

	graph := hnsw.NewGraph[int]()
	graph.M = hnswMaxNeighbors
	graph.Ml = 1.0 / float64(hnswMaxNeighbors) // Standard HNSW formula
	graph.Distance = hnsw.EuclideanDistance

	for i, e := range idx.entries {
		graph.Add(hnsw.MakeNode(i, []float32(e.Embedding)))
	}
	idx.graph = graph
	return idx
}

// Len returns the number of indexed identities.
func (ix *Index) Len() int {
	return len(ix.entries)
}

// Nearest returns up to k identities closest to query, nearest first.
// Equal distances keep gallery insertion order.
func (ix *Index) Nearest(query facematch.Embedding, k int) []Neighbor {
	if ix.graph == nil || k <= 0 || len(query) != ix.dim {
		return nil
	}

	// Clamp before multiplying: a huge k must not overflow the candidate count.
	k = min(k, len(ix.entries))
	nodes := ix.graph.Search([]float32(query), min(k*hnswSearchMultiplier, len(ix.entries)))

	type candidate struct {
		pos  int
		dist float64
	}
	candidates := make([]candidate, 0, len(nodes))
	for _, n := range nodes {
		candidates = append(candidates, candidate{
			pos:  n.Key,
			dist: facematch.EuclideanDistance(query, ix.entries[n.Key].Embedding),
		})
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].dist != candidates[j].dist {
			return candidates[i].dist < candidates[j].dist
		}
		return candidates[i].pos < candidates[j].pos
	})

	if len(candidates) > k {
		candidates = candidates[:k]
	}
	neighbors := make([]Neighbor, len(candidates))
	for i, c := range candidates {
		neighbors[i] = Neighbor{Identity: ix.entries[c.pos].Identity, Distance: c.dist}
	}
	return neighbors
}
