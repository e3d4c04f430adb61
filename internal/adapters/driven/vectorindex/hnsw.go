package vectorindex

import (
	"math"
	"math/rand/v2"
	"slices"

	"github.com/custodia-labs/ragindex/internal/core/domain"
)

// Ensure HNSW implements the interface.
var _ domain.VectorIndex = (*HNSW)(nil)

// HNSWConfig holds graph construction and search parameters.
type HNSWConfig struct {
	// M is the neighbour budget per node on upper layers. Layer 0 keeps 2*M.
	M int

	// EfConstruction is the candidate list size while inserting.
	EfConstruction int

	// EfSearch is the candidate list size while searching. It is raised to
	// k when a search asks for more results.
	EfSearch int

	// Seed drives level assignment. The same seed and input produce the same graph.
	Seed uint64
}

// DefaultHNSWConfig returns the production parameters.
func DefaultHNSWConfig() HNSWConfig {
	return HNSWConfig{
		M:              32,
		EfConstruction: 128,
		EfSearch:       128,
		Seed:           42,
	}
}

func (c HNSWConfig) withDefaults() HNSWConfig {
	d := DefaultHNSWConfig()
	if c.M < 2 {
		c.M = d.M
	}
	if c.EfConstruction < c.M {
		c.EfConstruction = max(d.EfConstruction, 4*c.M)
	}
	if c.EfSearch <= 0 {
		c.EfSearch = d.EfSearch
	}
	return c
}

// HNSW is an approximate nearest-neighbour graph over inner product.
// Distance inside the graph is 1 - dot(query, vector).
type HNSW struct {
	dims       int
	normalized bool
	config     HNSWConfig

	vectors   []float32
	levels    []uint8
	neighbors [][][]uint32 // node -> layer -> neighbour ids
	entry     uint32
	maxLevel  int
}

// NewHNSW builds a graph from vectors, inserting them in order.
func NewHNSW(vectors [][]float32, config HNSWConfig, normalize bool) (*HNSW, error) {
	data, dims, err := flatten(vectors, normalize)
	if err != nil {
		return nil, err
	}
	config = config.withDefaults()

	h := &HNSW{
		dims:       dims,
		normalized: normalize,
		config:     config,
		vectors:    data,
		levels:     make([]uint8, 0, len(vectors)),
		neighbors:  make([][][]uint32, 0, len(vectors)),
	}

	rng := rand.New(rand.NewPCG(config.Seed, config.Seed))
	levelMult := 1 / math.Log(float64(config.M))
	for id := range uint32(len(vectors)) {
		h.insert(id, randomLevel(rng, levelMult))
	}
	return h, nil
}

// Kind returns IndexKindHNSW.
func (h *HNSW) Kind() domain.IndexKind { return domain.IndexKindHNSW }

// Len returns the number of stored vectors.
func (h *HNSW) Len() int { return len(h.levels) }

// Dimensions returns the vector dimension.
func (h *HNSW) Dimensions() int { return h.dims }

// Normalized reports whether vectors were normalised at build time.
func (h *HNSW) Normalized() bool { return h.normalized }

// Config returns the construction parameters.
func (h *HNSW) Config() HNSWConfig { return h.config }

// Search returns up to k approximate nearest positions, highest score first.
// If the beam search reaches fewer than min(k, Len()) nodes the exact scan
// is used instead, so the result size never depends on graph shape.
func (h *HNSW) Search(query []float32, k int) ([]domain.Hit, error) {
	if k <= 0 || h.Len() == 0 {
		return nil, nil
	}
	q, err := prepareQuery(query, h.dims, h.normalized)
	if err != nil {
		return nil, err
	}

	ep := h.entry
	for l := h.maxLevel; l > 0; l-- {
		ep = h.searchLayerSingle(q, ep, l)
	}

	want := min(k, h.Len())
	found := h.searchLayer(q, ep, max(h.config.EfSearch, k), 0)
	if len(found) < want {
		return h.exact(q, want), nil
	}

	hits := make([]domain.Hit, len(found))
	for i, item := range found {
		hits[i] = domain.Hit{Position: int(item.id), Score: Dot(q, h.vector(item.id))}
	}
	sortHits(hits)
	return hits[:want], nil
}

func (h *HNSW) exact(q []float32, k int) []domain.Hit {
	hits := make([]domain.Hit, h.Len())
	for i := range hits {
		hits[i] = domain.Hit{Position: i, Score: Dot(q, h.vector(uint32(i)))}
	}
	sortHits(hits)
	return hits[:k]
}

func randomLevel(rng *rand.Rand, mult float64) int {
	// 1-Float64 is in (0, 1], so the log is finite.
	level := int(-math.Log(1-rng.Float64()) * mult)
	return min(level, math.MaxUint8)
}

func (h *HNSW) insert(id uint32, level int) {
	h.levels = append(h.levels, uint8(level))
	h.neighbors = append(h.neighbors, make([][]uint32, level+1))

	if id == 0 {
		h.entry = id
		h.maxLevel = level
		return
	}

	vec := h.vector(id)
	ep := h.entry
	for l := h.maxLevel; l > level; l-- {
		ep = h.searchLayerSingle(vec, ep, l)
	}

	for l := min(level, h.maxLevel); l >= 0; l-- {
		candidates := h.searchLayer(vec, ep, h.config.EfConstruction, l)
		ids := make([]uint32, len(candidates))
		for i, c := range candidates {
			ids[i] = c.id
		}
		selected := h.selectNeighbors(vec, ids, h.maxNeighbors(l))
		h.neighbors[id][l] = selected

		for _, nb := range selected {
			h.insertNeighbor(nb, l, id)
		}
		if len(candidates) > 0 {
			ep = candidates[0].id
		}
	}

	if level > h.maxLevel {
		h.entry = id
		h.maxLevel = level
	}
}

func (h *HNSW) maxNeighbors(level int) int {
	if level == 0 {
		return 2 * h.config.M
	}
	return h.config.M
}

func (h *HNSW) insertNeighbor(node uint32, level int, added uint32) {
	if level >= len(h.neighbors[node]) {
		return
	}
	limit := h.maxNeighbors(level)
	current := h.neighbors[node][level]
	if len(current) < limit {
		h.neighbors[node][level] = append(current, added)
		return
	}

	// Full: keep the best limit among existing + new.
	all := make([]uint32, 0, len(current)+1)
	all = append(all, current...)
	all = append(all, added)
	h.neighbors[node][level] = h.selectNeighbors(h.vector(node), all, limit)
}

func (h *HNSW) selectNeighbors(query []float32, candidates []uint32, m int) []uint32 {
	if m <= 0 || len(candidates) == 0 {
		return nil
	}

	items := make([]distItem, len(candidates))
	for i, id := range candidates {
		items[i] = distItem{id: id, dist: h.distance(query, id)}
	}
	if len(items) > m {
		slices.SortStableFunc(items, compareDist)
		items = items[:m]
	}

	out := make([]uint32, len(items))
	for i := range items {
		out[i] = items[i].id
	}
	return out
}

// searchLayerSingle walks greedily towards the query on one layer.
func (h *HNSW) searchLayerSingle(query []float32, entry uint32, level int) uint32 {
	current := entry
	currentDist := h.distance(query, current)

	for {
		changed := false
		for _, nb := range h.neighborsAt(current, level) {
			if d := h.distance(query, nb); d < currentDist {
				current = nb
				currentDist = d
				changed = true
			}
		}
		if !changed {
			return current
		}
	}
}

// searchLayer runs a beam search of width ef and returns the results
// closest first.
func (h *HNSW) searchLayer(query []float32, entry uint32, ef int, level int) []distItem {
	visited := make(map[uint32]struct{}, ef*2)
	visited[entry] = struct{}{}

	candidates := newDistHeap(false, ef*2)
	results := newDistHeap(true, ef*2)

	entryDist := h.distance(query, entry)
	candidates.Push(distItem{id: entry, dist: entryDist})
	results.Push(distItem{id: entry, dist: entryDist})

	for candidates.Len() > 0 {
		closest := candidates.Pop()
		if results.Len() >= ef && closest.dist > results.Peek().dist {
			break
		}

		for _, nb := range h.neighborsAt(closest.id, level) {
			if _, seen := visited[nb]; seen {
				continue
			}
			visited[nb] = struct{}{}

			d := h.distance(query, nb)
			if results.Len() < ef || d < results.Peek().dist {
				candidates.Push(distItem{id: nb, dist: d})
				results.Push(distItem{id: nb, dist: d})
				if results.Len() > ef {
					results.Pop()
				}
			}
		}
	}

	out := make([]distItem, results.Len())
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = results.Pop()
	}
	return out
}

func (h *HNSW) neighborsAt(node uint32, level int) []uint32 {
	if level >= len(h.neighbors[node]) {
		return nil
	}
	return h.neighbors[node][level]
}

func (h *HNSW) distance(query []float32, id uint32) float32 {
	return 1 - Dot(query, h.vector(id))
}

func (h *HNSW) vector(id uint32) []float32 {
	off := int(id) * h.dims
	return h.vectors[off : off+h.dims]
}

type distItem struct {
	id   uint32
	dist float32
}

func compareDist(a, b distItem) int {
	switch {
	case a.dist < b.dist:
		return -1
	case a.dist > b.dist:
		return 1
	default:
		return int(a.id) - int(b.id)
	}
}

// distHeap is a binary heap of distItem, min-first or max-first.
type distHeap struct {
	max   bool
	items []distItem
}

func newDistHeap(max bool, capHint int) *distHeap {
	return &distHeap{max: max, items: make([]distItem, 0, capHint)}
}

func (h *distHeap) Len() int { return len(h.items) }

func (h *distHeap) Peek() distItem { return h.items[0] }

func (h *distHeap) Push(item distItem) {
	h.items = append(h.items, item)
	h.siftUp(len(h.items) - 1)
}

func (h *distHeap) Pop() distItem {
	n := len(h.items)
	out := h.items[0]
	last := h.items[n-1]
	h.items = h.items[:n-1]
	if len(h.items) > 0 {
		h.items[0] = last
		h.siftDown(0)
	}
	return out
}

func (h *distHeap) less(i, j int) bool {
	if h.max {
		return h.items[i].dist > h.items[j].dist
	}
	return h.items[i].dist < h.items[j].dist
}

func (h *distHeap) siftUp(i int) {
	for i > 0 {
		p := (i - 1) / 2
		if !h.less(i, p) {
			return
		}
		h.items[i], h.items[p] = h.items[p], h.items[i]
		i = p
	}
}

func (h *distHeap) siftDown(i int) {
	n := len(h.items)
	for {
		l := 2*i + 1
		if l >= n {
			return
		}
		best := l
		if r := l + 1; r < n && h.less(r, l) {
			best = r
		}
		if !h.less(best, i) {
			return
		}
		h.items[i], h.items[best] = h.items[best], h.items[i]
		i = best
	}
}
