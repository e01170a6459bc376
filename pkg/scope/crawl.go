package scope

import (
	"slices"

	"github.com/panbanda/eliminator/pkg/ast"
)

type pendingUse struct {
	id        *ast.Ident
	scope     *Scope
	site      Site
	violation bool
}

type crawler struct {
	res     *Resolution
	scope   *Scope
	stack   []ast.Node
	pending []pendingUse
}

// Crawl builds the scope tree of prog and resolves every identifier in it.
// The tree must not be mutated while the Resolution is in use; re-crawl
// after edits.
func Crawl(prog *ast.Program) *Resolution {
	c := &crawler{
		res: &Resolution{
			bindings: make(map[*ast.Ident]*Binding),
			resolved: make(map[*ast.Ident]*Binding),
		},
		stack: make([]ast.Node, 0, 32),
	}
	c.res.Program = c.open(ScopeProgram, prog)

	c.push(prog)
	for _, s := range prog.Body {
		c.visit(s)
	}
	c.pop()

	for _, u := range c.pending {
		b := u.scope.Lookup(u.id.Name)
		if b == nil {
			continue
		}
		c.res.resolved[u.id] = b
		if u.violation {
			b.ConstantViolations = append(b.ConstantViolations, u.site)
		} else {
			b.References = append(b.References, u.site)
		}
	}
	return c.res
}

func (c *crawler) push(n ast.Node) { c.stack = append(c.stack, n) }
func (c *crawler) pop()            { c.stack = c.stack[:len(c.stack)-1] }

// site returns the Site of the node on top of the stack.
func (c *crawler) site() Site {
	top := len(c.stack) - 1
	return Site{Node: c.stack[top], Ancestors: slices.Clone(c.stack[:top])}
}

// childSite returns the Site of n as a child of the node on top of the stack.
func (c *crawler) childSite(n ast.Node) Site {
	return Site{Node: n, Ancestors: slices.Clone(c.stack)}
}

func (c *crawler) open(kind ScopeKind, node ast.Node) *Scope {
	s := newScope(kind, node, c.scope)
	c.res.scopes = append(c.res.scopes, s)
	c.scope = s
	return s
}

func (c *crawler) close() {
	c.scope = c.scope.Parent
}

func (c *crawler) use(id *ast.Ident, site Site, violation bool) {
	c.pending = append(c.pending, pendingUse{id: id, scope: c.scope, site: site, violation: violation})
}

func (c *crawler) declare(s *Scope, id *ast.Ident, kind Kind, decl ast.Node, declSite Site) *Binding {
	if existing := s.Own(id.Name); existing != nil {
		existing.ConstantViolations = append(existing.ConstantViolations, declSite)
		c.res.bindings[id] = existing
		return existing
	}
	b := &Binding{
		Name:     id.Name,
		Ident:    id,
		Kind:     kind,
		Decl:     decl,
		DeclSite: declSite,
		Scope:    s,
	}
	s.add(b)
	c.res.bindings[id] = b
	return b
}

func varKind(k ast.VarKind) Kind {
	switch k {
	case ast.Let:
		return KindLet
	case ast.Const:
		return KindConst
	default:
		return KindVar
	}
}

func (c *crawler) visit(n ast.Node) {
	if n == nil {
		return
	}
	c.push(n)
	defer c.pop()

	switch n := n.(type) {
	case *ast.Ident:
		c.use(n, c.site(), false)

	case *ast.VarDecl:
		for _, d := range n.Declarators {
			c.declarator(n.Kind, d)
		}

	case *ast.FuncDecl:
		if n.ID != nil {
			c.push(n.ID)
			c.declare(c.scope, n.ID, KindFunction, n, c.siteBelow())
			c.pop()
		}
		c.function(n, &n.Function, nil)

	case *ast.FuncExpr:
		c.function(n, &n.Function, n.ID)

	case *ast.ArrowFunc:
		c.open(ScopeFunction, n)
		c.params(n.Params)
		if n.Body != nil {
			c.push(n.Body)
			for _, s := range n.Body.Body {
				c.visit(s)
			}
			c.pop()
		} else {
			c.visit(n.Expr)
		}
		c.close()

	case *ast.ClassDecl:
		if n.ID != nil {
			c.push(n.ID)
			c.declare(c.scope, n.ID, KindClass, n, c.siteBelow())
			c.pop()
		}
		c.class(n, &n.Class, nil)

	case *ast.ClassExpr:
		c.class(n, &n.Class, n.ID)

	case *ast.ClassMember:
		if n.Computed {
			c.visit(n.Key)
		}
		c.visit(n.Value)

	case *ast.BlockStmt:
		c.open(ScopeBlock, n)
		for _, s := range n.Body {
			c.visit(s)
		}
		c.close()

	case *ast.ForStmt:
		c.open(ScopeFor, n)
		c.visit(n.Init)
		c.visit(n.Test)
		c.visit(n.Update)
		c.visit(n.Body)
		c.close()

	case *ast.ForInStmt:
		c.open(ScopeFor, n)
		if decl, ok := n.Left.(*ast.VarDecl); ok {
			c.visit(decl)
		} else if target, ok := n.Left.(ast.Pattern); ok {
			c.assignTarget(target, c.site())
		}
		c.visit(n.Right)
		c.visit(n.Body)
		c.close()

	case *ast.TryStmt:
		if n.Block != nil {
			c.visit(n.Block)
		}
		if n.Handler != nil {
			c.visit(n.Handler)
		}
		if n.Finalizer != nil {
			c.visit(n.Finalizer)
		}

	case *ast.CatchClause:
		c.open(ScopeCatch, n)
		if n.Param != nil {
			c.bindPattern(n.Param, KindCatch, n.Param, c.childSite(n.Param), c.scope)
		}
		if n.Body != nil {
			c.push(n.Body)
			for _, s := range n.Body.Body {
				c.visit(s)
			}
			c.pop()
		}
		c.close()

	case *ast.SwitchStmt:
		c.visit(n.Disc)
		c.open(ScopeSwitch, n)
		for _, sc := range n.Cases {
			c.visit(sc)
		}
		c.close()

	case *ast.LabeledStmt:
		c.visit(n.Body)

	case *ast.BreakStmt, *ast.ContinueStmt:
		// labels are not bindings

	case *ast.ImportDecl:
		for _, spec := range n.Specifiers {
			c.push(spec)
			c.push(spec.Local)
			c.declare(c.scope, spec.Local, KindImport, spec, c.siteBelow())
			c.pop()
			c.pop()
		}

	case *ast.ExportNamedDecl:
		if n.Decl != nil {
			c.visit(n.Decl)
			c.exportDeclared(n.Decl)
		}
		if n.Source == nil {
			for _, spec := range n.Specifiers {
				c.visit(spec)
			}
		}

	case *ast.ExportSpecifier:
		c.visit(n.Local)

	case *ast.ExportDefaultDecl:
		if n.Decl != nil {
			c.visit(n.Decl)
			c.exportDeclared(n.Decl)
		} else {
			c.visit(n.Expr)
		}

	case *ast.ExportAllDecl, *ast.Literal, *ast.MetaProperty, *ast.ThisExpr, *ast.SuperExpr,
		*ast.EmptyStmt, *ast.DebuggerStmt:
		// no identifiers

	case *ast.MemberExpr:
		c.visit(n.Object)
		if n.Computed {
			c.visit(n.Property)
		}

	case *ast.Property:
		if n.Computed {
			c.visit(n.Key)
		}
		c.visit(n.Value)

	case *ast.AssignExpr:
		site := c.site()
		if id, ok := n.Left.(*ast.Ident); ok && n.Op != "=" {
			c.use(id, c.childSite(id), false)
		}
		c.assignTarget(n.Left, site)
		c.visit(n.Right)

	case *ast.UpdateExpr:
		if id, ok := n.X.(*ast.Ident); ok {
			c.use(id, c.childSite(id), false)
			c.use(id, c.site(), true)
			return
		}
		c.visit(n.X)

	default:
		for _, child := range ast.Children(n) {
			c.visit(child)
		}
	}
}

// siteBelow returns the Site of the node just below the top of the stack.
// It is used while a declaring identifier is pushed on top of its
// declaration.
func (c *crawler) siteBelow() Site {
	top := len(c.stack) - 2
	return Site{Node: c.stack[top], Ancestors: slices.Clone(c.stack[:top])}
}

func (c *crawler) declarator(kind ast.VarKind, d *ast.VarDeclarator) {
	c.push(d)
	defer c.pop()

	target := c.scope
	if kind == ast.Var {
		target = c.scope.FunctionScope()
	}
	c.bindPattern(d.ID, varKind(kind), d, c.site(), target)
	if d.Init != nil {
		c.visit(d.Init)
	}
}

func (c *crawler) function(n ast.Node, fn *ast.Function, local *ast.Ident) {
	c.open(ScopeFunction, n)
	if local != nil {
		c.push(local)
		c.declare(c.scope, local, KindLocal, n, c.siteBelow())
		c.pop()
	}
	c.params(fn.Params)
	if fn.Body != nil {
		c.push(fn.Body)
		for _, s := range fn.Body.Body {
			c.visit(s)
		}
		c.pop()
	}
	c.close()
}

func (c *crawler) params(params []ast.Pattern) {
	for _, p := range params {
		c.bindPattern(p, KindParam, p, c.childSite(p), c.scope)
	}
}

func (c *crawler) class(n ast.Node, cls *ast.Class, local *ast.Ident) {
	c.open(ScopeClass, n)
	if local != nil {
		c.push(local)
		c.declare(c.scope, local, KindLocal, n, c.siteBelow())
		c.pop()
	}
	c.visit(cls.Super)
	for _, m := range cls.Members {
		c.visit(m)
	}
	c.close()
}

// exportDeclared adds a reference, located at the export statement on top
// of the stack, to every binding decl introduces.
func (c *crawler) exportDeclared(decl ast.Stmt) {
	var ids []*ast.Ident
	switch d := decl.(type) {
	case *ast.VarDecl:
		for _, vd := range d.Declarators {
			ids = append(ids, ast.PatternIdents(vd.ID)...)
		}
	case *ast.FuncDecl:
		ids = append(ids, d.ID)
	case *ast.ClassDecl:
		ids = append(ids, d.ID)
	}
	for _, id := range ids {
		if id == nil {
			continue
		}
		if b := c.res.bindings[id]; b != nil {
			b.References = append(b.References, c.site())
		}
	}
}

// bindPattern declares every identifier of p in target. Default values and
// computed keys inside p are visited as expressions.
func (c *crawler) bindPattern(p ast.Pattern, kind Kind, decl ast.Node, declSite Site, target *Scope) {
	c.walkPattern(p, func(id *ast.Ident) {
		c.declare(target, id, kind, decl, declSite)
	})
}

// assignTarget records a constant violation, located at site, for every
// identifier p writes.
func (c *crawler) assignTarget(p ast.Pattern, site Site) {
	c.walkPattern(p, func(id *ast.Ident) {
		c.use(id, site, true)
	})
}

func (c *crawler) walkPattern(p ast.Pattern, onIdent func(*ast.Ident)) {
	if p == nil {
		return
	}
	c.push(p)
	defer c.pop()

	switch p := p.(type) {
	case *ast.Ident:
		onIdent(p)
	case *ast.MemberExpr:
		c.visit(p.Object)
		if p.Computed {
			c.visit(p.Property)
		}
	case *ast.ArrayPattern:
		for _, e := range p.Elems {
			if e != nil {
				c.walkPattern(e, onIdent)
			}
		}
	case *ast.ObjectPattern:
		for _, prop := range p.Props {
			c.push(prop)
			if prop.Computed {
				c.visit(prop.Key)
			}
			c.walkPattern(prop.Value, onIdent)
			c.pop()
		}
		if p.Rest != nil {
			c.walkPattern(p.Rest, onIdent)
		}
	case *ast.AssignPattern:
		c.walkPattern(p.Target, onIdent)
		c.visit(p.Default)
	case *ast.RestElement:
		c.walkPattern(p.Arg, onIdent)
	}
}
