package dce

import (
	"github.com/panbanda/eliminator/pkg/ast"
	"github.com/panbanda/eliminator/pkg/scope"
)

// classifier decides liveness for one pass. It is built from a fresh crawl
// and discarded with it.
type classifier struct {
	e         *Eliminator
	res       *scope.Resolution
	removable map[*scope.Binding]bool
	protected map[*ast.Ident]bool // named properties beside a live rest
}

func (e *Eliminator) classify(prog *ast.Program, res *scope.Resolution) *classifier {
	c := &classifier{
		e:         e,
		res:       res,
		removable: make(map[*scope.Binding]bool),
		protected: make(map[*ast.Ident]bool),
	}
	for _, s := range res.Scopes() {
		for _, b := range findRemovable(s, c.rooted) {
			c.removable[b] = true
		}
	}
	if !e.pruneBeforeRest {
		c.protectRestSiblings(prog)
	}
	return c
}

// live reports whether b must be kept.
func (c *classifier) live(b *scope.Binding) bool {
	if c.baseLive(b) {
		return true
	}
	return c.protected[b.Ident]
}

// pinned reports whether options force b to be kept regardless of its
// references.
func (c *classifier) pinned(b *scope.Binding) bool {
	if c.e.candidates != nil && !c.e.candidates.Has(b.Ident) {
		return true
	}
	_, ok := c.e.keepNames[b.Name]
	return ok
}

// rooted reports whether b is kept no matter what references it. Everything
// a rooted binding's declaration references is kept with it.
func (c *classifier) rooted(b *scope.Binding) bool {
	return c.pinned(b) || neverSwept(b)
}

// neverSwept reports whether no removal rule applies to b.
func neverSwept(b *scope.Binding) bool {
	switch b.Kind {
	case scope.KindParam, scope.KindCatch, scope.KindClass, scope.KindLocal:
		return true
	}
	return isLoopBinding(b)
}

func (c *classifier) baseLive(b *scope.Binding) bool {
	if b == nil || c.rooted(b) {
		return true
	}
	if c.removable[b] {
		return false
	}
	return referencedOutside(b)
}

// referencedOutside is ordinary liveness. A function declaration only counts
// uses outside its own declaration, so a function that merely calls itself
// is dead.
func referencedOutside(b *scope.Binding) bool {
	if b.Kind == scope.KindFunction {
		for _, site := range b.References {
			if !site.Within(b.Decl) {
				return true
			}
		}
		for _, site := range b.ConstantViolations {
			if !site.Within(b.Decl) {
				return true
			}
		}
		return false
	}

	for _, v := range b.ConstantViolations {
		if sweepableAssign(v) == nil {
			return true
		}
	}
	return b.Referenced()
}

// protectRestSiblings marks the named properties of every declaring object
// pattern whose rest collector is live. Deleting one of them would change
// what the rest collector captures.
func (c *classifier) protectRestSiblings(prog *ast.Program) {
	ast.Inspect(prog, func(n ast.Node, _ []ast.Node) bool {
		op, ok := n.(*ast.ObjectPattern)
		if !ok || op.Rest == nil || !c.restLive(op.Rest) {
			return true
		}
		for _, prop := range op.Props {
			if id := directIdent(prop.Value); id != nil {
				c.protected[id] = true
			}
		}
		return true
	})
}

// restLive reports whether a declaring rest element keeps its siblings.
// Rest targets that are not declaring identifiers are treated as live.
func (c *classifier) restLive(rest *ast.RestElement) bool {
	id, ok := rest.Arg.(*ast.Ident)
	if !ok {
		return true
	}
	b := c.res.Binding(id)
	if b == nil {
		// assignment pattern, not a declaration
		return false
	}
	return c.baseLive(b)
}

// directIdent returns the identifier a pattern property binds without
// further destructuring.
func directIdent(p ast.Pattern) *ast.Ident {
	switch p := p.(type) {
	case *ast.Ident:
		return p
	case *ast.AssignPattern:
		if id, ok := p.Target.(*ast.Ident); ok {
			return id
		}
	}
	return nil
}
