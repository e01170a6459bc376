// Package printer renders an ast tree back to JavaScript source.
//
// Output is normalized rather than source-preserving: two-space indentation,
// one statement per line, patterns and object literals on a single line.
// Parentheses come only from ast.ParenExpr nodes.
package printer

import (
	"fmt"
	"io"
	"strings"

	"github.com/panbanda/eliminator/pkg/ast"
)

const indent = "  "

type printer struct {
	strings.Builder
	depth int
}

// Print renders a program, statement, expression or pattern.
func Print(n ast.Node) string {
	p := &printer{}
	switch n := n.(type) {
	case *ast.Program:
		p.stmts(n.Body)
	case ast.Stmt:
		p.stmt(n)
	case ast.Expr:
		p.expr(n)
	case ast.Pattern:
		p.pattern(n)
	default:
		panic(fmt.Sprintf("printer: cannot print %T", n))
	}
	return p.String()
}

// Fprint writes the rendered program to w.
func Fprint(w io.Writer, prog *ast.Program) error {
	_, err := io.WriteString(w, Print(prog))
	return err
}

func (p *printer) newline() {
	p.WriteByte('\n')
	for range p.depth {
		p.WriteString(indent)
	}
}

func (p *printer) stmts(list []ast.Stmt) {
	for _, s := range list {
		for range p.depth {
			p.WriteString(indent)
		}
		p.stmt(s)
		p.WriteByte('\n')
	}
}

func (p *printer) block(b *ast.BlockStmt) {
	if b == nil || len(b.Body) == 0 {
		p.WriteString("{}")
		return
	}
	p.WriteString("{\n")
	p.depth++
	p.stmts(b.Body)
	p.depth--
	for range p.depth {
		p.WriteString(indent)
	}
	p.WriteByte('}')
}

func (p *printer) stmt(s ast.Stmt) {
	switch s := s.(type) {
	case *ast.VarDecl:
		p.varDecl(s)
		p.WriteByte(';')
	case *ast.FuncDecl:
		p.function(&s.Function)
	case *ast.ClassDecl:
		p.class(&s.Class)
	case *ast.ExprStmt:
		p.expr(s.X)
		p.WriteByte(';')
	case *ast.BlockStmt:
		p.block(s)
	case *ast.ReturnStmt:
		p.WriteString("return")
		if s.Arg != nil {
			p.WriteByte(' ')
			p.expr(s.Arg)
		}
		p.WriteByte(';')
	case *ast.IfStmt:
		p.WriteString("if (")
		p.expr(s.Test)
		p.WriteString(") ")
		p.stmt(s.Cons)
		if s.Alt != nil {
			p.WriteString(" else ")
			p.stmt(s.Alt)
		}
	case *ast.ForStmt:
		p.WriteString("for (")
		switch init := s.Init.(type) {
		case *ast.VarDecl:
			p.varDecl(init)
		case ast.Expr:
			p.expr(init)
		}
		p.WriteByte(';')
		if s.Test != nil {
			p.WriteByte(' ')
			p.expr(s.Test)
		}
		p.WriteByte(';')
		if s.Update != nil {
			p.WriteByte(' ')
			p.expr(s.Update)
		}
		p.WriteString(") ")
		p.stmt(s.Body)
	case *ast.ForInStmt:
		p.WriteString("for ")
		if s.Await {
			p.WriteString("await ")
		}
		p.WriteByte('(')
		switch left := s.Left.(type) {
		case *ast.VarDecl:
			p.varDecl(left)
		case ast.Pattern:
			p.pattern(left)
		}
		if s.Of {
			p.WriteString(" of ")
		} else {
			p.WriteString(" in ")
		}
		p.expr(s.Right)
		p.WriteString(") ")
		p.stmt(s.Body)
	case *ast.WhileStmt:
		p.WriteString("while (")
		p.expr(s.Test)
		p.WriteString(") ")
		p.stmt(s.Body)
	case *ast.DoWhileStmt:
		p.WriteString("do ")
		p.stmt(s.Body)
		p.WriteString(" while (")
		p.expr(s.Test)
		p.WriteString(");")
	case *ast.BreakStmt:
		p.jump("break", s.Label)
	case *ast.ContinueStmt:
		p.jump("continue", s.Label)
	case *ast.ThrowStmt:
		p.WriteString("throw ")
		p.expr(s.Arg)
		p.WriteByte(';')
	case *ast.TryStmt:
		p.WriteString("try ")
		p.block(s.Block)
		if h := s.Handler; h != nil {
			p.WriteString(" catch ")
			if h.Param != nil {
				p.WriteByte('(')
				p.pattern(h.Param)
				p.WriteString(") ")
			}
			p.block(h.Body)
		}
		if s.Finalizer != nil {
			p.WriteString(" finally ")
			p.block(s.Finalizer)
		}
	case *ast.SwitchStmt:
		p.switchStmt(s)
	case *ast.LabeledStmt:
		p.WriteString(s.Label.Name)
		p.WriteString(": ")
		p.stmt(s.Body)
	case *ast.EmptyStmt:
		p.WriteByte(';')
	case *ast.DebuggerStmt:
		p.WriteString("debugger;")
	case *ast.ImportDecl:
		p.importDecl(s)
	case *ast.ExportNamedDecl:
		p.WriteString("export ")
		if s.Decl != nil {
			p.stmt(s.Decl)
			return
		}
		p.WriteByte('{')
		for i, spec := range s.Specifiers {
			if i > 0 {
				p.WriteByte(',')
			}
			p.WriteByte(' ')
			p.WriteString(spec.Local.Name)
			if spec.Exported != "" && spec.Exported != spec.Local.Name {
				p.WriteString(" as ")
				p.WriteString(spec.Exported)
			}
		}
		if len(s.Specifiers) > 0 {
			p.WriteByte(' ')
		}
		p.WriteByte('}')
		if s.Source != nil {
			p.WriteString(" from ")
			p.WriteString(s.Source.Raw)
		}
		p.WriteByte(';')
	case *ast.ExportDefaultDecl:
		p.WriteString("export default ")
		if s.Decl != nil {
			p.stmt(s.Decl)
			return
		}
		p.expr(s.Expr)
		p.WriteByte(';')
	case *ast.ExportAllDecl:
		p.WriteString("export *")
		if s.Exported != "" {
			p.WriteString(" as ")
			p.WriteString(s.Exported)
		}
		p.WriteString(" from ")
		p.WriteString(s.Source.Raw)
		p.WriteByte(';')
	default:
		panic(fmt.Sprintf("printer: unexpected statement %T", s))
	}
}

func (p *printer) jump(keyword string, label *ast.Ident) {
	p.WriteString(keyword)
	if label != nil {
		p.WriteByte(' ')
		p.WriteString(label.Name)
	}
	p.WriteByte(';')
}

func (p *printer) varDecl(d *ast.VarDecl) {
	p.WriteString(d.Kind.String())
	p.WriteByte(' ')
	for i, vd := range d.Declarators {
		if i > 0 {
			p.WriteString(", ")
		}
		p.pattern(vd.ID)
		if vd.Init != nil {
			p.WriteString(" = ")
			p.expr(vd.Init)
		}
	}
}

func (p *printer) switchStmt(s *ast.SwitchStmt) {
	p.WriteString("switch (")
	p.expr(s.Disc)
	p.WriteString(") ")
	if len(s.Cases) == 0 {
		p.WriteString("{}")
		return
	}
	p.WriteByte('{')
	p.depth++
	for _, c := range s.Cases {
		p.newline()
		if c.Test != nil {
			p.WriteString("case ")
			p.expr(c.Test)
			p.WriteByte(':')
		} else {
			p.WriteString("default:")
		}
		p.depth++
		for _, st := range c.Body {
			p.newline()
			p.stmt(st)
		}
		p.depth--
	}
	p.depth--
	p.newline()
	p.WriteByte('}')
}

func (p *printer) importDecl(d *ast.ImportDecl) {
	p.WriteString("import ")
	if len(d.Specifiers) == 0 {
		p.WriteString(d.Source.Raw)
		p.WriteByte(';')
		return
	}

	var parts []string
	var named []string
	for _, spec := range d.Specifiers {
		switch spec.Kind {
		case ast.ImportDefault:
			parts = append(parts, spec.Local.Name)
		case ast.ImportNamespace:
			parts = append(parts, "* as "+spec.Local.Name)
		default:
			if spec.Imported == "" || spec.Imported == spec.Local.Name {
				named = append(named, spec.Local.Name)
			} else {
				named = append(named, spec.Imported+" as "+spec.Local.Name)
			}
		}
	}
	if len(named) > 0 {
		parts = append(parts, "{ "+strings.Join(named, ", ")+" }")
	}
	p.WriteString(strings.Join(parts, ", "))
	p.WriteString(" from ")
	p.WriteString(d.Source.Raw)
	p.WriteByte(';')
}

func (p *printer) function(fn *ast.Function) {
	if fn.Async {
		p.WriteString("async ")
	}
	p.WriteString("function")
	if fn.Generator {
		p.WriteByte('*')
	}
	if fn.ID != nil {
		p.WriteByte(' ')
		p.WriteString(fn.ID.Name)
	}
	p.params(fn.Params)
	p.WriteByte(' ')
	p.block(fn.Body)
}

func (p *printer) params(params []ast.Pattern) {
	p.WriteByte('(')
	for i, param := range params {
		if i > 0 {
			p.WriteString(", ")
		}
		p.pattern(param)
	}
	p.WriteByte(')')
}

// method prints a method, getter or setter without the static keyword.
func (p *printer) method(kind ast.MemberKind, key ast.Expr, computed bool, fn *ast.FuncExpr) {
	switch kind {
	case ast.MemberGet:
		p.WriteString("get ")
	case ast.MemberSet:
		p.WriteString("set ")
	}
	if fn.Async {
		p.WriteString("async ")
	}
	if fn.Generator {
		p.WriteByte('*')
	}
	p.key(key, computed)
	p.params(fn.Params)
	p.WriteByte(' ')
	p.block(fn.Body)
}

func (p *printer) key(k ast.Expr, computed bool) {
	if computed {
		p.WriteByte('[')
		p.expr(k)
		p.WriteByte(']')
		return
	}
	p.expr(k)
}

func (p *printer) class(c *ast.Class) {
	p.WriteString("class")
	if c.ID != nil {
		p.WriteByte(' ')
		p.WriteString(c.ID.Name)
	}
	if c.Super != nil {
		p.WriteString(" extends ")
		p.expr(c.Super)
	}
	p.WriteByte(' ')
	if len(c.Members) == 0 {
		p.WriteString("{}")
		return
	}
	p.WriteByte('{')
	p.depth++
	for _, m := range c.Members {
		p.newline()
		if m.Static {
			p.WriteString("static ")
		}
		if fn, ok := m.Value.(*ast.FuncExpr); ok && m.Kind != ast.MemberInit {
			p.method(m.Kind, m.Key, m.Computed, fn)
			continue
		}
		p.key(m.Key, m.Computed)
		if m.Value != nil {
			p.WriteString(" = ")
			p.expr(m.Value)
		}
		p.WriteByte(';')
	}
	p.depth--
	p.newline()
	p.WriteByte('}')
}

func (p *printer) exprs(list []ast.Expr) {
	for i, x := range list {
		if i > 0 {
			p.WriteString(", ")
		}
		p.expr(x)
	}
}

func (p *printer) expr(x ast.Expr) {
	switch x := x.(type) {
	case *ast.Ident:
		p.WriteString(x.Name)
	case *ast.Literal:
		p.WriteString(x.Raw)
	case *ast.TemplateLiteral:
		p.template(x)
	case *ast.TaggedTemplate:
		p.expr(x.Tag)
		p.template(x.Quasi)
	case *ast.ArrayExpr:
		p.WriteByte('[')
		for i, e := range x.Elems {
			if i > 0 {
				p.WriteString(", ")
			}
			if e != nil {
				p.expr(e)
			}
		}
		if n := len(x.Elems); n > 0 && x.Elems[n-1] == nil {
			p.WriteByte(',')
		}
		p.WriteByte(']')
	case *ast.ObjectExpr:
		p.object(x)
	case *ast.SpreadElement:
		p.WriteString("...")
		p.expr(x.Arg)
	case *ast.FuncExpr:
		p.function(&x.Function)
	case *ast.ArrowFunc:
		if x.Async {
			p.WriteString("async ")
		}
		p.params(x.Params)
		p.WriteString(" => ")
		if x.Body != nil {
			p.block(x.Body)
		} else {
			p.expr(x.Expr)
		}
	case *ast.ClassExpr:
		p.class(&x.Class)
	case *ast.CallExpr:
		p.expr(x.Callee)
		if x.Optional {
			p.WriteString("?.")
		}
		p.WriteByte('(')
		p.exprs(x.Args)
		p.WriteByte(')')
	case *ast.NewExpr:
		p.WriteString("new ")
		p.expr(x.Callee)
		p.WriteByte('(')
		p.exprs(x.Args)
		p.WriteByte(')')
	case *ast.MemberExpr:
		p.member(x)
	case *ast.UnaryExpr:
		p.WriteString(x.Op)
		sub := &printer{depth: p.depth}
		sub.expr(x.X)
		operand := sub.String()
		switch {
		case x.Op == "typeof" || x.Op == "void" || x.Op == "delete":
			p.WriteByte(' ')
		case (x.Op == "-" || x.Op == "+") && (strings.HasPrefix(operand, "-") || strings.HasPrefix(operand, "+")):
			p.WriteByte(' ')
		}
		p.WriteString(operand)
	case *ast.UpdateExpr:
		if x.Prefix {
			p.WriteString(x.Op)
			p.expr(x.X)
		} else {
			p.expr(x.X)
			p.WriteString(x.Op)
		}
	case *ast.BinaryExpr:
		p.expr(x.Left)
		p.WriteByte(' ')
		p.WriteString(x.Op)
		p.WriteByte(' ')
		p.expr(x.Right)
	case *ast.AssignExpr:
		p.pattern(x.Left)
		p.WriteByte(' ')
		p.WriteString(x.Op)
		p.WriteByte(' ')
		p.expr(x.Right)
	case *ast.CondExpr:
		p.expr(x.Test)
		p.WriteString(" ? ")
		p.expr(x.Cons)
		p.WriteString(" : ")
		p.expr(x.Alt)
	case *ast.SeqExpr:
		p.exprs(x.Exprs)
	case *ast.AwaitExpr:
		p.WriteString("await ")
		p.expr(x.Arg)
	case *ast.YieldExpr:
		p.WriteString("yield")
		if x.Delegate {
			p.WriteByte('*')
		}
		if x.Arg != nil {
			p.WriteByte(' ')
			p.expr(x.Arg)
		}
	case *ast.ThisExpr:
		p.WriteString("this")
	case *ast.SuperExpr:
		p.WriteString("super")
	case *ast.ParenExpr:
		p.WriteByte('(')
		p.expr(x.X)
		p.WriteByte(')')
	case *ast.MetaProperty:
		p.WriteString(x.Meta)
		p.WriteByte('.')
		p.WriteString(x.Property)
	default:
		panic(fmt.Sprintf("printer: unexpected expression %T", x))
	}
}

func (p *printer) member(m *ast.MemberExpr) {
	p.expr(m.Object)
	if m.Computed {
		if m.Optional {
			p.WriteString("?.")
		}
		p.WriteByte('[')
		p.expr(m.Property)
		p.WriteByte(']')
		return
	}
	if m.Optional {
		p.WriteString("?.")
	} else {
		p.WriteByte('.')
	}
	p.expr(m.Property)
}

func (p *printer) template(t *ast.TemplateLiteral) {
	p.WriteByte('`')
	for i, q := range t.Quasis {
		p.WriteString(q)
		if i < len(t.Exprs) {
			p.WriteString("${")
			p.expr(t.Exprs[i])
			p.WriteByte('}')
		}
	}
	p.WriteByte('`')
}

func (p *printer) object(o *ast.ObjectExpr) {
	if len(o.Props) == 0 {
		p.WriteString("{}")
		return
	}
	p.WriteString("{ ")
	for i, m := range o.Props {
		if i > 0 {
			p.WriteString(", ")
		}
		switch m := m.(type) {
		case *ast.SpreadElement:
			p.WriteString("...")
			p.expr(m.Arg)
		case *ast.Property:
			if fn, ok := m.Value.(*ast.FuncExpr); ok && m.Kind != ast.MemberInit {
				p.method(m.Kind, m.Key, m.Computed, fn)
				continue
			}
			if m.Shorthand {
				p.expr(m.Value)
				continue
			}
			p.key(m.Key, m.Computed)
			p.WriteString(": ")
			p.expr(m.Value)
		}
	}
	p.WriteString(" }")
}

func (p *printer) pattern(pat ast.Pattern) {
	switch pat := pat.(type) {
	case *ast.Ident:
		p.WriteString(pat.Name)
	case *ast.MemberExpr:
		p.member(pat)
	case *ast.ArrayPattern:
		p.WriteByte('[')
		for i, e := range pat.Elems {
			if i > 0 {
				p.WriteString(", ")
			}
			if e != nil {
				p.pattern(e)
			}
		}
		if n := len(pat.Elems); n > 0 && pat.Elems[n-1] == nil {
			p.WriteByte(',')
		}
		p.WriteByte(']')
	case *ast.ObjectPattern:
		if len(pat.Props) == 0 && pat.Rest == nil {
			p.WriteString("{}")
			return
		}
		p.WriteString("{ ")
		for i, prop := range pat.Props {
			if i > 0 {
				p.WriteString(", ")
			}
			if prop.Shorthand {
				p.pattern(prop.Value)
				continue
			}
			p.key(prop.Key, prop.Computed)
			p.WriteString(": ")
			p.pattern(prop.Value)
		}
		if pat.Rest != nil {
			if len(pat.Props) > 0 {
				p.WriteString(", ")
			}
			p.pattern(pat.Rest)
		}
		p.WriteString(" }")
	case *ast.AssignPattern:
		p.pattern(pat.Target)
		p.WriteString(" = ")
		p.expr(pat.Default)
	case *ast.RestElement:
		p.WriteString("...")
		p.pattern(pat.Arg)
	default:
		panic(fmt.Sprintf("printer: unexpected pattern %T", pat))
	}
}
