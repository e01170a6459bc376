// Package dce removes unreferenced declarations from an ast.Program.
//
// Besides plain unused bindings it removes groups of declarations that only
// reference each other, such as two functions calling one another with no
// other caller. Removal repeats until a pass changes nothing, since deleting
// one declaration can leave the declarations it used unreferenced.
package dce

import (
	"encoding/binary"
	"log/slog"
	"slices"

	"github.com/cespare/xxhash/v2"
	"github.com/panbanda/eliminator/pkg/ast"
	"github.com/panbanda/eliminator/pkg/scope"
)

// IdentSet is a set of declaring identifiers. Identifiers are compared by
// node identity, not by name.
type IdentSet map[*ast.Ident]struct{}

// NewIdentSet returns a set holding ids.
func NewIdentSet(ids ...*ast.Ident) IdentSet {
	s := make(IdentSet, len(ids))
	for _, id := range ids {
		s.Add(id)
	}
	return s
}

// Add inserts id.
func (s IdentSet) Add(id *ast.Ident) {
	s[id] = struct{}{}
}

// Has reports whether id is in the set. A nil set holds nothing.
func (s IdentSet) Has(id *ast.Ident) bool {
	_, ok := s[id]
	return ok
}

// Names returns the identifier names in the set, sorted.
func (s IdentSet) Names() []string {
	names := make([]string, 0, len(s))
	for id := range s {
		names = append(names, id.Name)
	}
	slices.Sort(names)
	return names
}

// Rule names the structural rule that removed a binding.
type Rule string

const (
	RuleDeclarator          Rule = "declarator"
	RuleArraySlot           Rule = "array-slot"
	RuleObjectProperty      Rule = "object-property"
	RuleRest                Rule = "rest"
	RuleImportSpecifier     Rule = "import-specifier"
	RuleFunctionDeclaration Rule = "function-declaration"
	RuleAssignment          Rule = "assignment"
)

// Removal records one deleted binding site.
type Removal struct {
	Name string
	Kind scope.Kind
	Rule Rule
	Loc  ast.Loc
	Pass int

	// Key identifies the removal by name, kind, rule and source offset.
	Key uint64
}

func removalKey(name string, kind scope.Kind, rule Rule, loc ast.Loc) uint64 {
	d := xxhash.New()
	_, _ = d.WriteString(name)
	_, _ = d.Write([]byte{0, byte(kind), 0})
	_, _ = d.WriteString(string(rule))
	var off [4]byte
	binary.LittleEndian.PutUint32(off[:], loc.Offset)
	_, _ = d.Write(off[:])
	return d.Sum64()
}

// Result summarizes a sweep.
type Result struct {
	// Passes counts every pass, including the final one that removed
	// nothing.
	Passes  int
	Removed []Removal
}

// Names returns the names of the removed bindings in removal order.
func (r *Result) Names() []string {
	names := make([]string, len(r.Removed))
	for i, rm := range r.Removed {
		names[i] = rm.Name
	}
	return names
}

// Eliminator sweeps dead declarations out of program trees. It holds no
// per-tree state and may be reused, but a single tree must not be swept
// concurrently.
type Eliminator struct {
	candidates      IdentSet
	keepNames       map[string]struct{}
	logger          *slog.Logger
	maxPasses       int
	pruneBeforeRest bool
	variablesOnly   bool
}

// Option is a functional option for configuring Eliminator.
type Option func(*Eliminator)

// WithCandidates restricts removal to bindings whose declaring identifier is
// in ids. Every other binding is kept. A nil set removes the restriction.
func WithCandidates(ids IdentSet) Option {
	return func(e *Eliminator) {
		e.candidates = ids
	}
}

// WithKeepNames keeps every binding with one of the given names.
func WithKeepNames(names ...string) Option {
	return func(e *Eliminator) {
		if e.keepNames == nil {
			e.keepNames = make(map[string]struct{}, len(names))
		}
		for _, n := range names {
			e.keepNames[n] = struct{}{}
		}
	}
}

// WithLogger sets the logger for pass and removal records.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Eliminator) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithMaxPasses bounds the number of passes (0 = no limit). A sweep that
// still removes something in its last allowed pass fails with ErrPassLimit.
func WithMaxPasses(n int) Option {
	return func(e *Eliminator) {
		e.maxPasses = n
	}
}

// WithPruneBeforeRest lets unreferenced named properties be removed from an
// object pattern even when its rest element is used. This widens what the
// rest element captures at runtime.
func WithPruneBeforeRest(prune bool) Option {
	return func(e *Eliminator) {
		e.pruneBeforeRest = prune
	}
}

// withVariablesOnly limits sweeping to variable declarators.
func withVariablesOnly() Option {
	return func(e *Eliminator) {
		e.variablesOnly = true
	}
}

// New creates an Eliminator.
func New(opts ...Option) *Eliminator {
	e := &Eliminator{
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// EliminateDeadCode removes dead declarations from prog in place. When
// candidates is non-nil only bindings declared by one of its identifiers
// may be removed.
func EliminateDeadCode(prog *ast.Program, candidates IdentSet) (*Result, error) {
	return New(WithCandidates(candidates)).Eliminate(prog)
}

// FindReferencedBindings returns the declaring identifiers of every import,
// variable and function declaration in prog that a sweep would keep. prog is
// not modified.
//
// Taking this set before an edit and passing it to EliminateDeadCode
// afterwards removes only what the edit made unreferenced.
func FindReferencedBindings(prog *ast.Program) IdentSet {
	return New().Referenced(prog)
}

// RemoveUnusedVariables removes dead variable declarators only. Imports,
// function declarations and assignments are left alone.
func RemoveUnusedVariables(prog *ast.Program) (*Result, error) {
	return New(withVariablesOnly()).Eliminate(prog)
}
