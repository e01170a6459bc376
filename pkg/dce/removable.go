package dce

import (
	"math/bits"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/panbanda/eliminator/pkg/scope"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

// smallLimit is the largest candidate count resolved without Tarjan.
const smallLimit = 3

// FindRemovableBindings returns the bindings of s that may be deleted because
// every reference to them comes from inside a closed reference cycle: a self
// recursive binding, or a strongly connected group of bindings with no edge
// entering it from elsewhere. Bindings with a constant violation, for-in/of
// loop bindings, and anything reachable from a genuinely external reference
// are never returned. A binding with no references at all is not part of a
// cycle and is not returned either.
//
// The result is in declaration order.
func FindRemovableBindings(s *scope.Scope) []*scope.Binding {
	return findRemovable(s, nil)
}

// findRemovable is FindRemovableBindings with extra roots: pinned bindings
// are kept, and so is everything their declarations reference.
func findRemovable(s *scope.Scope, pinned func(*scope.Binding) bool) []*scope.Binding {
	g := buildGraph(s, pinned)
	set := g.removable()
	out := make([]*scope.Binding, 0, set.GetCardinality())
	for _, i := range set.ToArray() {
		out = append(out, g.bindings[i])
	}
	return out
}

// removable returns the indices of removable nodes.
func (g *refGraph) removable() *roaring.Bitmap {
	excluded := g.propagateExclusion()

	candidates := make([]int, 0, g.n)
	for i := 0; i < g.n; i++ {
		if !excluded.Contains(uint32(i)) {
			candidates = append(candidates, i)
		}
	}

	switch {
	case len(candidates) == 0:
		return roaring.New()
	case len(candidates) <= smallLimit:
		return g.removableSmall(candidates)
	default:
		return g.removableTarjan(candidates)
	}
}

// propagateExclusion extends the excluded set along reference edges: a kept
// binding keeps everything its declaration references.
func (g *refGraph) propagateExclusion() *roaring.Bitmap {
	excluded := g.excluded.Clone()
	work := excluded.ToArray()
	for len(work) > 0 {
		x := work[len(work)-1]
		work = work[:len(work)-1]
		for _, y := range g.edges[x] {
			if excluded.CheckedAdd(uint32(y)) {
				work = append(work, uint32(y))
			}
		}
	}
	return excluded
}

// removableSmall resolves up to three candidates with a bitmask transitive
// closure. It applies the same component rule as removableTarjan.
func (g *refGraph) removableSmall(candidates []int) *roaring.Bitmap {
	k := len(candidates)
	local := func(i int) int {
		for a, c := range candidates {
			if c == i {
				return a
			}
		}
		return -1
	}

	var adj, reach [smallLimit]uint8
	for a, i := range candidates {
		for _, j := range g.edges[i] {
			if b := local(j); b >= 0 && b != a {
				adj[a] |= 1 << b
			}
		}
		reach[a] = adj[a] | 1<<a
	}
	for m := range k {
		for a := range k {
			if reach[a]&(1<<m) != 0 {
				reach[a] |= reach[m]
			}
		}
	}

	out := roaring.New()
	for a := range k {
		var comp uint8
		for b := range k {
			if reach[a]&(1<<b) != 0 && reach[b]&(1<<a) != 0 {
				comp |= 1 << b
			}
		}

		if bits.OnesCount8(comp) == 1 {
			if g.self[candidates[a]] {
				out.Add(uint32(candidates[a]))
			}
			continue
		}

		incoming := false
		for c := range k {
			if comp&(1<<c) == 0 && adj[c]&comp != 0 {
				incoming = true
			}
		}
		if !incoming {
			out.Add(uint32(candidates[a]))
		}
	}
	return out
}

// removableTarjan decomposes the candidate-induced subgraph into strongly
// connected components and keeps the closed ones.
func (g *refGraph) removableTarjan(candidates []int) *roaring.Bitmap {
	isCandidate := roaring.New()
	dg := simple.NewDirectedGraph()
	for _, i := range candidates {
		isCandidate.Add(uint32(i))
		dg.AddNode(simple.Node(i))
	}

	// Self-loops are skipped as gonum simple graphs don't support them.
	for _, i := range candidates {
		for _, j := range g.edges[i] {
			if i != j && isCandidate.Contains(uint32(j)) {
				dg.SetEdge(simple.Edge{F: simple.Node(i), T: simple.Node(j)})
			}
		}
	}

	sccs := topo.TarjanSCC(dg)
	comp := make(map[int]int, len(candidates))
	for c, scc := range sccs {
		for _, n := range scc {
			comp[int(n.ID())] = c
		}
	}

	incoming := make([]bool, len(sccs))
	for _, i := range candidates {
		for _, j := range g.edges[i] {
			if isCandidate.Contains(uint32(j)) && comp[i] != comp[j] {
				incoming[comp[j]] = true
			}
		}
	}

	out := roaring.New()
	for c, scc := range sccs {
		if len(scc) == 1 {
			if id := int(scc[0].ID()); g.self[id] {
				out.Add(uint32(id))
			}
			continue
		}
		if incoming[c] {
			continue
		}
		for _, n := range scc {
			out.Add(uint32(n.ID()))
		}
	}
	return out
}
