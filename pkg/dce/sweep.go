package dce

import (
	"errors"
	"fmt"
	"slices"

	"github.com/panbanda/eliminator/pkg/ast"
	"github.com/panbanda/eliminator/pkg/scope"
)

var errNilProgram = errors.New("nil program")

// site is a declaration the sweep may edit, with its ancestor chain.
type site struct {
	node      ast.Node
	ancestors []ast.Node
}

// sweeper applies one pass of removals. Liveness comes from the crawl taken
// at the start of the pass; removals made during the pass are picked up by
// the next one.
type sweeper struct {
	e       *Eliminator
	res     *scope.Resolution
	cls     *classifier
	pass    int
	removed map[ast.Node]bool
	out     []Removal
}

// Eliminate sweeps prog until a pass removes nothing. On error the tree may
// hold removals already made in the failing pass; they are listed in the
// returned Result.
func (e *Eliminator) Eliminate(prog *ast.Program) (*Result, error) {
	if prog == nil {
		return nil, errNilProgram
	}

	result := &Result{}
	for {
		result.Passes++
		n, err := e.pass(prog, result)
		if err != nil {
			return result, fmt.Errorf("failed in pass %d: %w", result.Passes, err)
		}
		if n == 0 {
			return result, nil
		}
		if e.maxPasses > 0 && result.Passes >= e.maxPasses {
			return result, fmt.Errorf("%w: %d passes", ErrPassLimit, result.Passes)
		}
	}
}

func (e *Eliminator) pass(prog *ast.Program, result *Result) (int, error) {
	res := scope.Crawl(prog)
	sw := &sweeper{
		e:       e,
		res:     res,
		cls:     e.classify(prog, res),
		pass:    result.Passes,
		removed: make(map[ast.Node]bool),
	}

	var err error
	for _, s := range e.collectSites(prog) {
		if sw.detached(s) {
			continue
		}
		if err = sw.sweep(s); err != nil {
			break
		}
	}
	result.Removed = append(result.Removed, sw.out...)

	e.logger.Debug("dce pass",
		"pass", sw.pass,
		"removed", len(sw.out),
		"removable", len(sw.cls.removable),
	)
	return len(sw.out), err
}

// collectSites lists the declarations a pass visits, in source order.
func (e *Eliminator) collectSites(prog *ast.Program) []site {
	var sites []site
	ast.Inspect(prog, func(n ast.Node, ancestors []ast.Node) bool {
		switch n := n.(type) {
		case *ast.VarDecl:
			if len(ancestors) > 0 {
				if loop, ok := ancestors[len(ancestors)-1].(*ast.ForInStmt); ok && loop.Left == ast.Node(n) {
					return true
				}
			}
		case *ast.ImportDecl:
			if e.variablesOnly || len(n.Specifiers) == 0 {
				return true
			}
		case *ast.FuncDecl:
			if e.variablesOnly || n.ID == nil {
				return true
			}
		case *ast.ExprStmt:
			if e.variablesOnly || boundFunction(n) == nil {
				return true
			}
		default:
			return true
		}
		sites = append(sites, site{node: n, ancestors: slices.Clone(ancestors)})
		return true
	})
	return sites
}

// boundFunction returns the identifier assigned by a statement of the form
// `x = function () {}` or `x = () => {}`.
func boundFunction(stmt *ast.ExprStmt) *ast.Ident {
	assign, ok := stmt.X.(*ast.AssignExpr)
	if !ok || assign.Op != "=" {
		return nil
	}
	switch assign.Right.(type) {
	case *ast.FuncExpr, *ast.ArrowFunc:
	default:
		return nil
	}
	id, _ := assign.Left.(*ast.Ident)
	return id
}

func (sw *sweeper) detached(s site) bool {
	if sw.removed[s.node] {
		return true
	}
	for _, a := range s.ancestors {
		if sw.removed[a] {
			return true
		}
	}
	return false
}

func (sw *sweeper) drop(n ast.Node) {
	sw.removed[n] = true
}

func (sw *sweeper) record(b *scope.Binding, rule Rule) {
	rm := Removal{
		Name: b.Name,
		Kind: b.Kind,
		Rule: rule,
		Loc:  b.Ident.Pos(),
		Pass: sw.pass,
		Key:  removalKey(b.Name, b.Kind, rule, b.Ident.Pos()),
	}
	sw.out = append(sw.out, rm)
	sw.e.logger.Debug("removed binding",
		"name", rm.Name,
		"kind", rm.Kind.String(),
		"rule", string(rm.Rule),
		"loc", rm.Loc.String(),
		"pass", rm.Pass,
	)
}

func (sw *sweeper) sweep(s site) error {
	switch n := s.node.(type) {
	case *ast.ImportDecl:
		return sw.importDecl(n, s.ancestors)
	case *ast.VarDecl:
		return sw.varDecl(n, s.ancestors)
	case *ast.FuncDecl:
		return sw.funcDecl(n, s.ancestors)
	case *ast.ExprStmt:
		return sw.assignment(n, s.ancestors)
	}
	return unsupported(s.node, "declaration site")
}

func (sw *sweeper) binding(id *ast.Ident) (*scope.Binding, error) {
	b := sw.res.Binding(id)
	if b == nil {
		return nil, &InvariantError{Name: id.Name, Loc: id.Pos(), Reason: "declaring identifier has no binding"}
	}
	return b, nil
}

func (sw *sweeper) importDecl(d *ast.ImportDecl, ancestors []ast.Node) error {
	kept := make([]*ast.ImportSpecifier, 0, len(d.Specifiers))
	for _, spec := range d.Specifiers {
		b, err := sw.binding(spec.Local)
		if err != nil {
			return err
		}
		if sw.cls.live(b) {
			kept = append(kept, spec)
			continue
		}
		sw.record(b, RuleImportSpecifier)
		sw.drop(spec)
	}
	if len(kept) == len(d.Specifiers) {
		return nil
	}
	d.Specifiers = kept
	if len(kept) == 0 {
		sw.drop(d)
		return detach(d, ancestors)
	}
	return nil
}

func (sw *sweeper) varDecl(d *ast.VarDecl, ancestors []ast.Node) error {
	if len(d.Declarators) == 0 {
		return nil
	}
	kept := make([]*ast.VarDeclarator, 0, len(d.Declarators))
	for i, decl := range d.Declarators {
		n, empty, err := sw.prunePattern(decl.ID, RuleDeclarator)
		if err != nil {
			d.Declarators = append(kept, d.Declarators[i:]...)
			return err
		}
		if n > 0 && empty {
			sw.drop(decl)
			continue
		}
		kept = append(kept, decl)
	}
	d.Declarators = kept
	if len(kept) == 0 {
		sw.drop(d)
		return detach(d, ancestors)
	}
	return nil
}

func (sw *sweeper) funcDecl(fn *ast.FuncDecl, ancestors []ast.Node) error {
	b, err := sw.binding(fn.ID)
	if err != nil {
		return err
	}
	if sw.cls.live(b) {
		return nil
	}
	sw.record(b, RuleFunctionDeclaration)
	sw.drop(fn)
	return detach(fn, ancestors)
}

// assignment removes `x = function () {}` statements whose target is dead.
// Targets that do not resolve are globals and stay.
func (sw *sweeper) assignment(stmt *ast.ExprStmt, ancestors []ast.Node) error {
	id := boundFunction(stmt)
	b := sw.res.Resolve(id)
	if b == nil || sw.cls.live(b) {
		return nil
	}
	sw.record(b, RuleAssignment)
	sw.drop(stmt)
	return detach(stmt, ancestors)
}

// Referenced returns the declaring identifiers of every import, variable and
// function declaration in prog that a sweep with e's options would keep.
// prog is not modified.
func (e *Eliminator) Referenced(prog *ast.Program) IdentSet {
	out := NewIdentSet()
	if prog == nil {
		return out
	}
	res := scope.Crawl(prog)
	cls := e.classify(prog, res)

	keep := func(id *ast.Ident) {
		if id == nil {
			return
		}
		if b := res.Binding(id); b != nil && cls.live(b) {
			out.Add(id)
		}
	}
	for _, s := range e.collectSites(prog) {
		switch n := s.node.(type) {
		case *ast.ImportDecl:
			for _, spec := range n.Specifiers {
				keep(spec.Local)
			}
		case *ast.VarDecl:
			for _, d := range n.Declarators {
				for _, id := range ast.PatternIdents(d.ID) {
					keep(id)
				}
			}
		case *ast.FuncDecl:
			keep(n.ID)
		}
	}
	return out
}
