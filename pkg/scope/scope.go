// Package scope resolves identifiers of an ast.Program to their bindings.
//
// Crawl builds the scope tree in one traversal: declarations are registered
// as they are met (var hoists to the enclosing function scope) and every
// identifier use is queued, then resolved against the finished tree, so
// references that precede their declaration resolve the same way as
// references that follow it.
package scope

import (
	"github.com/panbanda/eliminator/pkg/ast"
)

// Kind is how a binding was declared.
type Kind uint8

const (
	KindVar Kind = iota
	KindLet
	KindConst
	KindFunction // function declaration
	KindLocal    // own name of a function or class expression
	KindClass
	KindParam
	KindCatch
	KindImport
)

var kindNames = [...]string{
	KindVar:      "var",
	KindLet:      "let",
	KindConst:    "const",
	KindFunction: "function",
	KindLocal:    "local",
	KindClass:    "class",
	KindParam:    "param",
	KindCatch:    "catch",
	KindImport:   "import",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// ScopeKind is the syntactic construct that opened a scope.
type ScopeKind uint8

const (
	ScopeProgram ScopeKind = iota
	ScopeFunction
	ScopeBlock
	ScopeFor
	ScopeCatch
	ScopeSwitch
	ScopeClass
)

// Site locates a node in the tree. Ancestors runs from the program root to
// the node's parent and is owned by the Site.
type Site struct {
	Node      ast.Node
	Ancestors []ast.Node
}

// Parent returns the node's direct parent, or nil at the root.
func (s Site) Parent() ast.Node {
	if len(s.Ancestors) == 0 {
		return nil
	}
	return s.Ancestors[len(s.Ancestors)-1]
}

// Within reports whether n is the site's node or one of its ancestors.
func (s Site) Within(n ast.Node) bool {
	if s.Node == n {
		return true
	}
	for _, a := range s.Ancestors {
		if a == n {
			return true
		}
	}
	return false
}

// Binding is a declared name.
//
// Decl is the node that declares it: the *ast.VarDeclarator, *ast.FuncDecl,
// *ast.ClassDecl or *ast.ImportSpecifier, the top-level parameter pattern
// for parameters, the catch parameter, or the *ast.FuncExpr / *ast.ClassExpr
// that a KindLocal name belongs to.
type Binding struct {
	Name     string
	Ident    *ast.Ident
	Kind     Kind
	Decl     ast.Node
	DeclSite Site
	Scope    *Scope

	// References are read sites. Each Site.Node is the referencing
	// identifier, or the export statement for exported declarations.
	References []Site

	// ConstantViolations are write sites other than the declaration: the
	// assignment, update expression, for-in/of loop or redeclaration.
	ConstantViolations []Site
}

// Referenced reports whether the binding is read anywhere.
func (b *Binding) Referenced() bool {
	return len(b.References) > 0
}

// Scope is a lexical scope.
type Scope struct {
	Kind     ScopeKind
	Node     ast.Node
	Parent   *Scope
	Children []*Scope

	// Bindings are in declaration order.
	Bindings []*Binding

	byName map[string]*Binding
}

func newScope(kind ScopeKind, node ast.Node, parent *Scope) *Scope {
	s := &Scope{
		Kind:   kind,
		Node:   node,
		Parent: parent,
		byName: make(map[string]*Binding),
	}
	if parent != nil {
		parent.Children = append(parent.Children, s)
	}
	return s
}

// Own returns the binding declared directly in s, or nil.
func (s *Scope) Own(name string) *Binding {
	return s.byName[name]
}

// Lookup resolves name from s outward. It returns nil for globals.
func (s *Scope) Lookup(name string) *Binding {
	for cur := s; cur != nil; cur = cur.Parent {
		if b := cur.byName[name]; b != nil {
			return b
		}
	}
	return nil
}

// FunctionScope returns the nearest enclosing function or program scope.
func (s *Scope) FunctionScope() *Scope {
	cur := s
	for cur.Kind != ScopeProgram && cur.Kind != ScopeFunction && cur.Parent != nil {
		cur = cur.Parent
	}
	return cur
}

func (s *Scope) add(b *Binding) {
	s.byName[b.Name] = b
	s.Bindings = append(s.Bindings, b)
}

// Resolution is the result of Crawl.
type Resolution struct {
	Program *Scope

	scopes   []*Scope
	bindings map[*ast.Ident]*Binding // declaring identifiers
	resolved map[*ast.Ident]*Binding // referencing and assigned identifiers
}

// Binding returns the binding an identifier declares, or nil if id is not a
// declaring identifier.
func (r *Resolution) Binding(id *ast.Ident) *Binding {
	return r.bindings[id]
}

// Resolve returns the binding a referencing or assigned identifier refers
// to, or nil for unresolved globals and non-reference identifiers.
func (r *Resolution) Resolve(id *ast.Ident) *Binding {
	if b := r.resolved[id]; b != nil {
		return b
	}
	return r.bindings[id]
}

// Scopes returns every scope in creation (preorder) order.
func (r *Resolution) Scopes() []*Scope {
	return r.scopes
}
