// Package ast defines the mutable JavaScript module tree that the dead code
// eliminator edits in place.
//
// Node families are sealed: Stmt, Expr, Pattern and ObjectMember each carry
// an unexported marker method, so the set of variants is closed and every
// type switch over a family can be checked against this file.
package ast

import "fmt"

// Loc is the source position of a node's first byte.
type Loc struct {
	Line   uint32 // 1-based
	Column uint32 // 1-based, in bytes
	Offset uint32 // 0-based byte offset
}

func (l Loc) String() string {
	return fmt.Sprintf("%d:%d", l.Line, l.Column)
}

// Span is embedded by every node to carry its location.
type Span struct {
	Loc Loc
}

// Pos returns the node's start location.
func (s Span) Pos() Loc { return s.Loc }

// Node is any syntax tree node.
type Node interface {
	Pos() Loc
}

// Stmt is a statement or declaration.
type Stmt interface {
	Node
	isStmt()
}

// Expr is an expression.
type Expr interface {
	Node
	isExpr()
}

// Pattern is a binding or assignment target.
type Pattern interface {
	Node
	isPattern()
}

// ObjectMember is an entry of an object literal.
type ObjectMember interface {
	Node
	isObjectMember()
}

// Program is the root of a module.
type Program struct {
	Span
	Body []Stmt
}

// ---------------------------------------------------------------------------
// Statements

// VarKind is the declaration keyword of a VarDecl.
type VarKind uint8

const (
	Var VarKind = iota
	Let
	Const
)

func (k VarKind) String() string {
	switch k {
	case Let:
		return "let"
	case Const:
		return "const"
	default:
		return "var"
	}
}

// VarDecl is a var, let or const declaration.
type VarDecl struct {
	Span
	Kind        VarKind
	Declarators []*VarDeclarator
}

// VarDeclarator binds ID (an identifier or destructuring pattern) to Init.
type VarDeclarator struct {
	Span
	ID   Pattern
	Init Expr // nil when absent
}

// Function holds what function declarations and expressions share.
type Function struct {
	ID        *Ident // nil for anonymous functions
	Params    []Pattern
	Body      *BlockStmt
	Async     bool
	Generator bool
}

// FuncDecl is a function declaration statement.
type FuncDecl struct {
	Span
	Function
}

// Class holds what class declarations and expressions share.
type Class struct {
	ID      *Ident // nil for anonymous classes
	Super   Expr
	Members []*ClassMember
}

// MemberKind distinguishes class and object-literal members.
type MemberKind uint8

const (
	MemberInit MemberKind = iota // key: value / class field
	MemberMethod
	MemberGet
	MemberSet
)

// ClassMember is a method or field of a class body.
type ClassMember struct {
	Span
	Kind     MemberKind
	Key      Expr
	Computed bool
	Static   bool
	Value    Expr // *FuncExpr for methods, initializer (or nil) for fields
}

// ClassDecl is a class declaration statement.
type ClassDecl struct {
	Span
	Class
}

// ExprStmt is an expression evaluated for its effects.
type ExprStmt struct {
	Span
	X Expr
}

// BlockStmt is a braced statement list.
type BlockStmt struct {
	Span
	Body []Stmt
}

// ReturnStmt is a return statement.
type ReturnStmt struct {
	Span
	Arg Expr
}

// IfStmt is an if statement.
type IfStmt struct {
	Span
	Test Expr
	Cons Stmt
	Alt  Stmt
}

// ForStmt is a C-style for loop. Init is a *VarDecl, an Expr or nil.
type ForStmt struct {
	Span
	Init   Node
	Test   Expr
	Update Expr
	Body   Stmt
}

// ForInStmt is a for-in or for-of loop. Left is a *VarDecl or a Pattern.
type ForInStmt struct {
	Span
	Of    bool
	Await bool
	Left  Node
	Right Expr
	Body  Stmt
}

// WhileStmt is a while loop.
type WhileStmt struct {
	Span
	Test Expr
	Body Stmt
}

// DoWhileStmt is a do-while loop.
type DoWhileStmt struct {
	Span
	Body Stmt
	Test Expr
}

// BreakStmt is a break statement.
type BreakStmt struct {
	Span
	Label *Ident
}

// ContinueStmt is a continue statement.
type ContinueStmt struct {
	Span
	Label *Ident
}

// ThrowStmt is a throw statement.
type ThrowStmt struct {
	Span
	Arg Expr
}

// TryStmt is a try statement.
type TryStmt struct {
	Span
	Block     *BlockStmt
	Handler   *CatchClause
	Finalizer *BlockStmt
}

// CatchClause is the catch part of a try statement.
type CatchClause struct {
	Span
	Param Pattern // nil for `catch {`
	Body  *BlockStmt
}

// SwitchStmt is a switch statement.
type SwitchStmt struct {
	Span
	Disc  Expr
	Cases []*SwitchCase
}

// SwitchCase is one case (or the default when Test is nil).
type SwitchCase struct {
	Span
	Test Expr
	Body []Stmt
}

// LabeledStmt is a labeled statement.
type LabeledStmt struct {
	Span
	Label *Ident
	Body  Stmt
}

// EmptyStmt is a lone semicolon.
type EmptyStmt struct {
	Span
}

// DebuggerStmt is a debugger statement.
type DebuggerStmt struct {
	Span
}

// ImportKind is the shape of an import specifier.
type ImportKind uint8

const (
	ImportNamed ImportKind = iota
	ImportDefault
	ImportNamespace
)

// ImportDecl is an import declaration. A declaration with no specifiers is
// a side-effect-only import.
type ImportDecl struct {
	Span
	Specifiers []*ImportSpecifier
	Source     *Literal
}

// ImportSpecifier binds Local to an export of the imported module.
type ImportSpecifier struct {
	Span
	Kind     ImportKind
	Imported string // source text of the imported name for named imports
	Local    *Ident
}

// ExportNamedDecl exports a declaration or a specifier list.
type ExportNamedDecl struct {
	Span
	Decl       Stmt // *VarDecl, *FuncDecl or *ClassDecl; nil with specifiers
	Specifiers []*ExportSpecifier
	Source     *Literal // re-export source
}

// ExportSpecifier is `local as exported` inside an export clause.
type ExportSpecifier struct {
	Span
	Local    *Ident
	Exported string // source text of the exported name; empty if same as Local
}

// ExportDefaultDecl is `export default`. Exactly one of Decl and Expr is set.
type ExportDefaultDecl struct {
	Span
	Decl Stmt // *FuncDecl or *ClassDecl
	Expr Expr
}

// ExportAllDecl is `export * from "m"` or `export * as ns from "m"`.
type ExportAllDecl struct {
	Span
	Exported string
	Source   *Literal
}

// ---------------------------------------------------------------------------
// Expressions

// Ident is an identifier. It is both an expression and a binding target.
type Ident struct {
	Span
	Name string
}

// Literal is a string, number, regex, boolean or null literal kept verbatim.
type Literal struct {
	Span
	Raw string
}

// TemplateLiteral is a template string. len(Quasis) == len(Exprs)+1.
type TemplateLiteral struct {
	Span
	Quasis []string // raw text between substitutions
	Exprs  []Expr
}

// TaggedTemplate is tag`...`.
type TaggedTemplate struct {
	Span
	Tag   Expr
	Quasi *TemplateLiteral
}

// ArrayExpr is an array literal. Nil elements are holes.
type ArrayExpr struct {
	Span
	Elems []Expr
}

// ObjectExpr is an object literal.
type ObjectExpr struct {
	Span
	Props []ObjectMember
}

// Property is a key/value entry or method of an object literal.
type Property struct {
	Span
	Kind      MemberKind
	Key       Expr
	Computed  bool
	Shorthand bool
	Value     Expr
}

// SpreadElement is ...Arg in array literals, calls and object literals.
type SpreadElement struct {
	Span
	Arg Expr
}

// FuncExpr is a function expression.
type FuncExpr struct {
	Span
	Function
}

// ArrowFunc is an arrow function. Exactly one of Body and Expr is set.
type ArrowFunc struct {
	Span
	Params []Pattern
	Body   *BlockStmt
	Expr   Expr
	Async  bool
}

// ClassExpr is a class expression.
type ClassExpr struct {
	Span
	Class
}

// CallExpr is a call. Callee may be Ident{Name: "import"} for dynamic import.
type CallExpr struct {
	Span
	Callee   Expr
	Args     []Expr
	Optional bool
}

// NewExpr is a new expression.
type NewExpr struct {
	Span
	Callee Expr
	Args   []Expr
}

// MemberExpr is obj.prop or obj[prop]. A non-computed Property is an
// *Ident that names a property, not a binding.
type MemberExpr struct {
	Span
	Object   Expr
	Property Expr
	Computed bool
	Optional bool
}

// UnaryExpr is a prefix operator application.
type UnaryExpr struct {
	Span
	Op string
	X  Expr
}

// UpdateExpr is ++ or --.
type UpdateExpr struct {
	Span
	Op     string
	Prefix bool
	X      Expr
}

// BinaryExpr covers arithmetic, comparison and logical operators.
type BinaryExpr struct {
	Span
	Op    string
	Left  Expr
	Right Expr
}

// AssignExpr is an assignment. Op is "=" or a compound operator.
type AssignExpr struct {
	Span
	Op    string
	Left  Pattern
	Right Expr
}

// CondExpr is test ? cons : alt.
type CondExpr struct {
	Span
	Test Expr
	Cons Expr
	Alt  Expr
}

// SeqExpr is a comma expression.
type SeqExpr struct {
	Span
	Exprs []Expr
}

// AwaitExpr is await Arg.
type AwaitExpr struct {
	Span
	Arg Expr
}

// YieldExpr is yield or yield*.
type YieldExpr struct {
	Span
	Arg      Expr
	Delegate bool
}

// ThisExpr is this.
type ThisExpr struct {
	Span
}

// SuperExpr is super.
type SuperExpr struct {
	Span
}

// ParenExpr keeps source parentheses so the printer never has to reason
// about precedence.
type ParenExpr struct {
	Span
	X Expr
}

// MetaProperty is new.target or import.meta.
type MetaProperty struct {
	Span
	Meta     string
	Property string
}

// ---------------------------------------------------------------------------
// Patterns

// ArrayPattern destructures by position. Nil elements are elided slots.
type ArrayPattern struct {
	Span
	Elems []Pattern
}

// ObjectPattern destructures by key. Rest, when present, is always last.
type ObjectPattern struct {
	Span
	Props []*PatternProp
	Rest  *RestElement
}

// PatternProp is one `key: value` entry of an object pattern. For shorthand
// properties Key and the bound identifier are distinct nodes with the same
// name.
type PatternProp struct {
	Span
	Key       Expr
	Computed  bool
	Shorthand bool
	Value     Pattern
}

// AssignPattern is a target with a default value.
type AssignPattern struct {
	Span
	Target  Pattern
	Default Expr
}

// RestElement is ...Arg in patterns and parameter lists.
type RestElement struct {
	Span
	Arg Pattern
}

// ---------------------------------------------------------------------------
// Marker methods

func (*VarDecl) isStmt()           {}
func (*FuncDecl) isStmt()          {}
func (*ClassDecl) isStmt()         {}
func (*ExprStmt) isStmt()          {}
func (*BlockStmt) isStmt()         {}
func (*ReturnStmt) isStmt()        {}
func (*IfStmt) isStmt()            {}
func (*ForStmt) isStmt()           {}
func (*ForInStmt) isStmt()         {}
func (*WhileStmt) isStmt()         {}
func (*DoWhileStmt) isStmt()       {}
func (*BreakStmt) isStmt()         {}
func (*ContinueStmt) isStmt()      {}
func (*ThrowStmt) isStmt()         {}
func (*TryStmt) isStmt()           {}
func (*SwitchStmt) isStmt()        {}
func (*LabeledStmt) isStmt()       {}
func (*EmptyStmt) isStmt()         {}
func (*DebuggerStmt) isStmt()      {}
func (*ImportDecl) isStmt()        {}
func (*ExportNamedDecl) isStmt()   {}
func (*ExportDefaultDecl) isStmt() {}
func (*ExportAllDecl) isStmt()     {}

func (*Ident) isExpr()           {}
func (*Literal) isExpr()         {}
func (*TemplateLiteral) isExpr() {}
func (*TaggedTemplate) isExpr()  {}
func (*ArrayExpr) isExpr()       {}
func (*ObjectExpr) isExpr()      {}
func (*SpreadElement) isExpr()   {}
func (*FuncExpr) isExpr()        {}
func (*ArrowFunc) isExpr()       {}
func (*ClassExpr) isExpr()       {}
func (*CallExpr) isExpr()        {}
func (*NewExpr) isExpr()         {}
func (*MemberExpr) isExpr()      {}
func (*UnaryExpr) isExpr()       {}
func (*UpdateExpr) isExpr()      {}
func (*BinaryExpr) isExpr()      {}
func (*AssignExpr) isExpr()      {}
func (*CondExpr) isExpr()        {}
func (*SeqExpr) isExpr()         {}
func (*AwaitExpr) isExpr()       {}
func (*YieldExpr) isExpr()       {}
func (*ThisExpr) isExpr()        {}
func (*SuperExpr) isExpr()       {}
func (*ParenExpr) isExpr()       {}
func (*MetaProperty) isExpr()    {}

func (*Ident) isPattern()         {}
func (*MemberExpr) isPattern()    {}
func (*ArrayPattern) isPattern()  {}
func (*ObjectPattern) isPattern() {}
func (*AssignPattern) isPattern() {}
func (*RestElement) isPattern()   {}

func (*Property) isObjectMember()      {}
func (*SpreadElement) isObjectMember() {}
