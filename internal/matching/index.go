package matching

import (
	"slices"
	"sync"

	"github.com/coder/hnsw"

	"github.com/ZanzyTHEbar/kinmatch-libsql-go/internal/apptype"
)

// HNSW parameters
const (
	HNSWMaxNeighbors     = 16
	HNSWSearchMultiplier = 2
)

// faceIndex keeps one HNSW graph per descriptor length; descriptors of
// different lengths are never comparable.
type faceIndex struct {
	mu      sync.RWMutex
	graphs  map[int]*hnsw.Graph[int64]
	vectors map[int64][]float32
}

func newFaceIndex() *faceIndex {
	return &faceIndex{
		graphs:  make(map[int]*hnsw.Graph[int64]),
		vectors: make(map[int64][]float32),
	}
}

func newGraph() *hnsw.Graph[int64] {
	g := hnsw.NewGraph[int64]()
	g.M = HNSWMaxNeighbors
	g.Ml = 1.0 / float64(HNSWMaxNeighbors) // Standard HNSW formula
	// facial scores are Euclidean, so candidates are ranked the same way
	g.Distance = hnsw.EuclideanDistance
	return g
}

// add indexes v under id, replacing any earlier descriptor. An empty
// descriptor only removes.
func (x *faceIndex) add(id int64, v apptype.FeatureVector) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.removeLocked(id)
	if len(v) == 0 {
		return
	}
	vec := make([]float32, len(v))
	for i, f := range v {
		vec[i] = float32(f)
	}
	g, ok := x.graphs[len(vec)]
	if !ok {
		g = newGraph()
		x.graphs[len(vec)] = g
	}
	g.Add(hnsw.MakeNode(id, vec))
	x.vectors[id] = vec
}

func (x *faceIndex) remove(id int64) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.removeLocked(id)
}

func (x *faceIndex) removeLocked(id int64) {
	old, ok := x.vectors[id]
	if !ok {
		return
	}
	delete(x.vectors, id)
	g := x.graphs[len(old)]
	if g == nil {
		return
	}
	if g.Len() <= 1 {
		delete(x.graphs, len(old))
		return
	}
	g.Delete(id)
}

// search returns up to k ids nearest to v, excluding self. ok is false when
// no graph of v's length holds any other descriptor.
func (x *faceIndex) search(self int64, v apptype.FeatureVector, k int) (ids []int64, ok bool) {
	if len(v) == 0 || k <= 0 {
		return nil, false
	}
	x.mu.RLock()
	defer x.mu.RUnlock()
	g := x.graphs[len(v)]
	if g == nil {
		return nil, false
	}
	_, selfIndexed := x.vectors[self]
	others := g.Len()
	if selfIndexed {
		others--
	}
	if others <= 0 {
		return nil, false
	}
	q := make([]float32, len(v))
	for i, f := range v {
		q[i] = float32(f)
	}
	searchK := k * HNSWSearchMultiplier
	if selfIndexed {
		searchK++
	}
	for _, n := range g.Search(q, searchK) {
		if n.Key == self {
			continue
		}
		ids = append(ids, n.Key)
		if len(ids) == k {
			break
		}
	}
	slices.Sort(ids)
	return ids, true
}

func (x *faceIndex) len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.vectors)
}
