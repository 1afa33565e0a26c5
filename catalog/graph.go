package catalog

import "github.com/giygas/pharmdb/entities"

// SubstituteGraph stores "can replace" edges as two arena-indexed adjacency views.
// forward[x-1] lists the drugs x can replace; reverse[s-1] lists the drugs that
// can replace s. Edges only ever point from a new vertex to older ones, so every
// reverse list is in ascending id order and every reverse edge goes to a larger id.
type SubstituteGraph struct {
	forward [][]entities.DrugID
	reverse [][]entities.DrugID
	edges   int
}

// NewSubstituteGraph returns an empty graph
func NewSubstituteGraph() *SubstituteGraph {
	return &SubstituteGraph{
		forward: make([][]entities.DrugID, 0),
		reverse: make([][]entities.DrugID, 0),
	}
}

// AddVertex appends id with edges to substitutes, which must already be vertices.
// id must be the next sequential id.
func (g *SubstituteGraph) AddVertex(id entities.DrugID, substitutes []entities.DrugID) {
	g.forward = append(g.forward, substitutes)
	g.reverse = append(g.reverse, nil)

	for _, sub := range substitutes {
		g.reverse[sub-1] = append(g.reverse[sub-1], id)
		g.edges++
	}
}

// Substitutes returns the drugs id can replace
func (g *SubstituteGraph) Substitutes(id entities.DrugID) []entities.DrugID {
	if !g.has(id) {
		return nil
	}
	return g.forward[id-1]
}

// ReplacedBy returns the drugs that can replace id
func (g *SubstituteGraph) ReplacedBy(id entities.DrugID) []entities.DrugID {
	if !g.has(id) {
		return nil
	}
	return g.reverse[id-1]
}

// Edges returns the number of substitute edges
func (g *SubstituteGraph) Edges() int {
	return g.edges
}

func (g *SubstituteGraph) has(id entities.DrugID) bool {
	return id > 0 && int(id) <= len(g.forward)
}

// queueItem pairs a vertex with its hop distance from the start
type queueItem struct {
	id    entities.DrugID
	depth int
}

// BestWithin walks reverse edges breadth-first from start, up to maxSteps hops,
// and returns the visited vertex with the lowest score (smaller id on ties).
// Each vertex is visited once, at its shortest distance.
func (g *SubstituteGraph) BestWithin(start entities.DrugID, maxSteps int, score func(entities.DrugID) float64) entities.DrugID {
	visited := map[entities.DrugID]bool{start: true}
	queue := []queueItem{{id: start, depth: 0}}

	best, bestScore := start, score(start)

	for len(queue) > 0 {
		item := queue[0]
		queue = queue[1:]

		if s := score(item.id); s < bestScore || (s == bestScore && item.id < best) {
			best, bestScore = item.id, s
		}

		if item.depth >= maxSteps {
			continue
		}
		for _, next := range g.ReplacedBy(item.id) {
			if !visited[next] {
				visited[next] = true
				queue = append(queue, queueItem{id: next, depth: item.depth + 1})
			}
		}
	}

	return best
}

// LongestChain returns the longest path along reverse edges, measured in
// vertices, choosing the smallest id sequence among equally long paths.
//
// length[v] = 1 + max(length[w]) over w in reverse[v]. Since every w > v, filling
// the memo from the largest id down visits each vertex and edge once. Scanning
// successors in ascending order and only replacing on a strictly longer result
// keeps the smallest next id on ties, which yields the smallest sequence.
func (g *SubstituteGraph) LongestChain() []entities.DrugID {
	n := len(g.reverse)
	if n == 0 {
		return []entities.DrugID{}
	}

	length := make([]int, n)
	next := make([]entities.DrugID, n)

	for i := n - 1; i >= 0; i-- {
		length[i] = 1
		for _, w := range g.reverse[i] {
			if l := length[w-1] + 1; l > length[i] {
				length[i] = l
				next[i] = w
			}
		}
	}

	start := 0
	for i := 1; i < n; i++ {
		if length[i] > length[start] {
			start = i
		}
	}

	chain := make([]entities.DrugID, 0, length[start])
	for cur := entities.DrugID(start + 1); cur.Valid(); cur = next[cur-1] {
		chain = append(chain, cur)
	}
	return chain
}
