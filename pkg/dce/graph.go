package dce

import (
	"github.com/RoaringBitmap/roaring/v2"
	"github.com/panbanda/eliminator/pkg/ast"
	"github.com/panbanda/eliminator/pkg/scope"
)

// refGraph is an integer-indexed reference-edge arena. An edge i→j means a
// reference to j sits inside i's declaration. Self references are kept in
// self rather than edges.
type refGraph struct {
	n        int
	edges    [][]int
	self     []bool
	excluded *roaring.Bitmap // initially excluded, before propagation
}

func newRefGraph(n int) *refGraph {
	return &refGraph{
		n:        n,
		edges:    make([][]int, n),
		self:     make([]bool, n),
		excluded: roaring.New(),
	}
}

func (g *refGraph) addEdge(from, to int) {
	if from == to {
		g.self[from] = true
		return
	}
	g.edges[from] = append(g.edges[from], to)
}

func (g *refGraph) exclude(i int) {
	g.excluded.Add(uint32(i))
}

// bindingGraph is the reference graph of one scope.
type bindingGraph struct {
	*refGraph
	bindings []*scope.Binding
}

// buildGraph derives the reference graph of s from its current bindings.
// Bindings for which pinned returns true are excluded like external roots.
func buildGraph(s *scope.Scope, pinned func(*scope.Binding) bool) *bindingGraph {
	bindings := s.Bindings
	g := &bindingGraph{refGraph: newRefGraph(len(bindings)), bindings: bindings}

	// Declaration containers. Several bindings share one declarator when it
	// destructures. A function expression's own name has no container of its
	// own; references inside it belong to whatever declares the expression.
	decls := make(map[ast.Node][]int, len(bindings))
	for i, b := range bindings {
		if b.Kind == scope.KindLocal {
			continue
		}
		decls[b.Decl] = append(decls[b.Decl], i)
		for _, v := range b.ConstantViolations {
			if assign := sweepableAssign(v); assign != nil {
				decls[assign] = append(decls[assign], i)
			}
		}
	}

	for j, b := range bindings {
		if len(b.ConstantViolations) > 0 || isLoopBinding(b) || (pinned != nil && pinned(b)) {
			g.exclude(j)
		}
		for _, ref := range b.References {
			owners := containerOf(ref, decls)
			if owners == nil {
				g.exclude(j)
				continue
			}
			for _, i := range owners {
				g.addEdge(i, j)
			}
		}
	}
	return g
}

// containerOf returns the bindings whose declaration most closely encloses
// site, or nil when the site is outside every declaration of the scope.
func containerOf(site scope.Site, decls map[ast.Node][]int) []int {
	if owners, ok := decls[site.Node]; ok {
		return owners
	}
	for i := len(site.Ancestors) - 1; i >= 0; i-- {
		if owners, ok := decls[site.Ancestors[i]]; ok {
			return owners
		}
	}
	return nil
}

// isLoopBinding reports whether b is declared by the left side of a for-in
// or for-of loop.
func isLoopBinding(b *scope.Binding) bool {
	if _, ok := b.Decl.(*ast.VarDeclarator); !ok {
		return false
	}
	anc := b.DeclSite.Ancestors
	if len(anc) < 2 {
		return false
	}
	decl, ok := anc[len(anc)-1].(*ast.VarDecl)
	if !ok {
		return false
	}
	loop, ok := anc[len(anc)-2].(*ast.ForInStmt)
	return ok && loop.Left == decl
}

// sweepableAssign returns the assignment at a constant-violation site when
// it has the form `x = function () {}` or `x = () => {}` as a whole
// expression statement. Such writes are removed together with the binding
// instead of keeping it alive.
func sweepableAssign(v scope.Site) *ast.AssignExpr {
	assign, ok := v.Node.(*ast.AssignExpr)
	if !ok || assign.Op != "=" {
		return nil
	}
	if _, ok := assign.Left.(*ast.Ident); !ok {
		return nil
	}
	switch assign.Right.(type) {
	case *ast.FuncExpr, *ast.ArrowFunc:
	default:
		return nil
	}
	if _, ok := v.Parent().(*ast.ExprStmt); !ok {
		return nil
	}
	return assign
}
