package dce

import (
	"fmt"
	"slices"
	"strings"
	"testing"

	"github.com/panbanda/eliminator/internal/testutil"
	"github.com/panbanda/eliminator/pkg/scope"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func removableNames(t *testing.T, src string) []string {
	t.Helper()
	prog := testutil.Parse(t, testutil.Dedent(src))
	res := scope.Crawl(prog)
	var names []string
	for _, b := range FindRemovableBindings(res.Program) {
		names = append(names, b.Name)
	}
	slices.Sort(names)
	return names
}

func TestFindRemovableBindings(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want []string
	}{
		{
			name: "mutual recursion without external refs",
			src: `
				function a() { return b() }
				function b() { return a() }
			`,
			want: []string{"a", "b"},
		},
		{
			name: "mutual recursion with external ref",
			src: `
				function a() { return b() }
				export function b() { return a() }
				ref(b)
			`,
		},
		{
			name: "self recursive function",
			src:  `function a() { return a() }`,
			want: []string{"a"},
		},
		{
			name: "imports",
			src: `
				import a from "pkg"
				import { b } from "pkg"
			`,
		},
		{
			name: "exports",
			src: `
				export const a = 1
				export function b() { return 2 }
			`,
		},
		{
			name: "mutual recursion with one function exported",
			src: `
				function y() { return x() }
				export function x() { return y() }
			`,
		},
		{
			name: "all externally used",
			src: `
				const a = 1
				const b = 2
				ref(a, b)
			`,
		},
		{
			name: "one self reference beside a used function",
			src: `
				function a() { return a() }
				function b() { return 1 }
				ref(b)
			`,
			want: []string{"a"},
		},
		{
			name: "chain of two",
			src: `
				function a() { return b() }
				function b() { return 1 }
			`,
		},
		{
			name: "triangle",
			src: `
				function a() { return b() }
				function b() { return c() }
				function c() { return a() }
			`,
			want: []string{"a", "b", "c"},
		},
		{
			name: "reverse triangle",
			src: `
				function a() { return c() }
				function b() { return a() }
				function c() { return b() }
			`,
			want: []string{"a", "b", "c"},
		},
		{
			name: "chain of three",
			src: `
				function a() { return b() }
				function b() { return c() }
				function c() { return 1 }
			`,
		},
		{
			name: "pair calling an unused third",
			src: `
				function a() { b(); c() }
				function b() { return a() }
				function c() { return 1 }
			`,
			want: []string{"a", "b"},
		},
		{
			name: "pair entered from third via a",
			src: `
				function a() { return b() }
				function b() { return a() }
				function c() { return a() }
			`,
		},
		{
			name: "pair entered from third via b",
			src: `
				function a() { return b() }
				function b() { return a() }
				function c() { return b() }
			`,
		},
		{
			name: "three self references",
			src: `
				function a() { return a() }
				function b() { return b() }
				function c() { return c() }
			`,
			want: []string{"a", "b", "c"},
		},
		{
			name: "self reference and a pair",
			src: `
				function a() { return a() }
				function b() { return c() }
				function c() { return b() }
			`,
			want: []string{"a", "b", "c"},
		},
		{
			name: "two pairs",
			src: `
				function a() { return b() }
				function b() { return a() }
				function c() { return d() }
				function d() { return c() }
			`,
			want: []string{"a", "b", "c", "d"},
		},
		{
			name: "pair kept alive through an external caller",
			src: `
				function a() { return b() }
				function b() { return a() }
				function c() { return a() }
				ref(c)
			`,
		},
		{
			name: "mixed",
			src: `
				function selfOnly() { return selfOnly() }
				function cycleA() { return cycleB() }
				function cycleB() { return cycleA() }
				function external() { return 1 }
				ref(external)
			`,
			want: []string{"cycleA", "cycleB", "selfOnly"},
		},
		{
			name: "five cycle",
			src: `
				function a() { return b() }
				function b() { return c() }
				function c() { return d() }
				function d() { return e() }
				function e() { return a() }
			`,
			want: []string{"a", "b", "c", "d", "e"},
		},
		{
			name: "self loop inside a pair",
			src: `
				function a() { a(); return b() }
				function b() { return a() }
			`,
			want: []string{"a", "b"},
		},
		{
			name: "constant violation",
			src: `
				let a = 1
				a = 2
			`,
		},
		{
			name: "for-of binding",
			src: `
				for (const x of xs) {}
			`,
		},
		{
			name: "empty program",
			src:  ``,
		},
		{
			name: "single unreferenced binding",
			src:  `const unused = 1`,
		},
		{
			name: "variables in a cycle",
			src: `
				const a = () => b()
				const b = () => a()
			`,
			want: []string{"a", "b"},
		},
		{
			name: "self recursive function called by a candidate",
			src: `
				function a() { return b() }
				function b() { return b() }
				function c() {}
				function d() {}
			`,
			want: []string{"b"},
		},
		{
			name: "cycle of four beside unused bindings",
			src: `
				function a() { return b() }
				function b() { return c() }
				function c() { return d() }
				function d() { return a() }
				const e = 1
				let f
			`,
			want: []string{"a", "b", "c", "d"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, removableNames(t, tt.src))
		})
	}
}

func TestFindRemovableBindingsDeclarationOrder(t *testing.T) {
	prog := testutil.Parse(t, testutil.Dedent(`
		function c() { return a() }
		function a() { return b() }
		function b() { return c() }
		function e() { return d() }
		function d() { return e() }
	`))
	res := scope.Crawl(prog)

	var names []string
	for _, b := range FindRemovableBindings(res.Program) {
		names = append(names, b.Name)
	}
	assert.Equal(t, []string{"c", "a", "b", "e", "d"}, names)
}

func TestFindRemovableBindingsNestedScope(t *testing.T) {
	prog := testutil.Parse(t, testutil.Dedent(`
		export function outer() {
			function a() { return b() }
			function b() { return a() }
			return 1
		}
	`))
	res := scope.Crawl(prog)

	assert.Empty(t, FindRemovableBindings(res.Program))

	var inner []string
	for _, s := range res.Scopes() {
		if s == res.Program {
			continue
		}
		for _, b := range FindRemovableBindings(s) {
			inner = append(inner, b.Name)
		}
	}
	assert.Equal(t, []string{"a", "b"}, inner)
}

// cycleSource declares a closed call cycle of n functions named
// <prefix>0..<prefix>n-1. A cycle of one calls itself.
func cycleSource(prefix string, n int) string {
	var sb strings.Builder
	for i := range n {
		fmt.Fprintf(&sb, "function %s%d() { return %s%d() }\n", prefix, i, prefix, (i+1)%n)
	}
	return sb.String()
}

func cycleNames(prefix string, n int) []string {
	names := make([]string, n)
	for i := range n {
		names[i] = fmt.Sprintf("%s%d", prefix, i)
	}
	slices.Sort(names)
	return names
}

func TestFindRemovableBindingsCycleSizes(t *testing.T) {
	for _, n := range []int{1, 2, 3, 4, 5, 10, 20} {
		t.Run(fmt.Sprintf("size %d", n), func(t *testing.T) {
			assert.Equal(t, cycleNames("f", n), removableNames(t, cycleSource("f", n)))
		})
	}
}

func TestFindRemovableBindingsDisjointCycles(t *testing.T) {
	src := cycleSource("a", 4) + cycleSource("b", 3) + cycleSource("c", 5) + "ref(c2)\n"

	want := append(cycleNames("a", 4), cycleNames("b", 3)...)
	slices.Sort(want)
	assert.Equal(t, want, removableNames(t, src))
}

func TestFindRemovableBindingsIncomingEdge(t *testing.T) {
	for _, n := range []int{2, 3, 5} {
		for i := range n {
			t.Run(fmt.Sprintf("size %d member %d", n, i), func(t *testing.T) {
				src := cycleSource("f", n) + fmt.Sprintf("ref(f%d)\n", i)
				assert.Empty(t, removableNames(t, src))
			})
		}
	}

	t.Run("from a candidate outside the cycle", func(t *testing.T) {
		src := cycleSource("f", 5) + "function g() { return f3() }\n"
		assert.Empty(t, removableNames(t, src))
	})
}

// graphFromMask builds an n-node graph where bit i*n+j of mask is the edge
// i→j, self edges included.
func graphFromMask(n int, mask uint) *refGraph {
	g := newRefGraph(n)
	for i := range n {
		for j := range n {
			if mask&(1<<(i*n+j)) != 0 {
				g.addEdge(i, j)
			}
		}
	}
	return g
}

func TestRemovableSmallMatchesTarjan(t *testing.T) {
	for n := 1; n <= smallLimit; n++ {
		candidates := make([]int, n)
		for i := range candidates {
			candidates[i] = i
		}
		for mask := uint(0); mask < 1<<(n*n); mask++ {
			g := graphFromMask(n, mask)
			small := g.removableSmall(candidates)
			general := g.removableTarjan(candidates)
			require.Truef(t, small.Equals(general),
				"n=%d mask=%b: small=%v tarjan=%v", n, mask, small.ToArray(), general.ToArray())
		}
	}
}

func TestRemovableSmallMatchesTarjanWithExclusions(t *testing.T) {
	// Four nodes, one excluded: the remaining three take the small path.
	for mask := uint(0); mask < 1<<16; mask += 7 {
		g := graphFromMask(4, mask)
		g.exclude(3)

		excluded := g.propagateExclusion()
		var candidates []int
		for i := range 4 {
			if !excluded.Contains(uint32(i)) {
				candidates = append(candidates, i)
			}
		}
		if len(candidates) == 0 {
			continue
		}
		small := g.removableSmall(candidates)
		general := g.removableTarjan(candidates)
		require.Truef(t, small.Equals(general),
			"mask=%b candidates=%v: small=%v tarjan=%v", mask, candidates, small.ToArray(), general.ToArray())
	}
}

func TestPropagateExclusion(t *testing.T) {
	g := newRefGraph(5)
	g.addEdge(0, 1)
	g.addEdge(1, 2)
	g.addEdge(3, 4)
	g.addEdge(4, 3)
	g.exclude(0)

	excluded := g.propagateExclusion()
	assert.Equal(t, []uint32{0, 1, 2}, excluded.ToArray())
	assert.Equal(t, []uint32{0}, g.excluded.ToArray(), "seed set must not change")
	assert.Equal(t, []uint32{3, 4}, g.removable().ToArray())
}
