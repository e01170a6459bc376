package parser

import (
	"fmt"
	"strings"

	"github.com/panbanda/eliminator/pkg/ast"
	sitter "github.com/smacker/go-tree-sitter"
)

// converter lowers a tree-sitter concrete syntax tree into package ast.
type converter struct {
	src  []byte
	path string
}

func (c *converter) text(n *sitter.Node) string {
	return GetNodeText(n, c.src)
}

func (c *converter) span(n *sitter.Node) ast.Span {
	return ast.Span{Loc: locOf(n)}
}

func (c *converter) ident(n *sitter.Node) *ast.Ident {
	return &ast.Ident{Span: c.span(n), Name: c.text(n)}
}

func (c *converter) unsupported(n *sitter.Node, what string) error {
	return &SyntaxError{
		Path:    c.path,
		Loc:     locOf(n),
		Message: fmt.Sprintf("unsupported %s %q", what, n.Type()),
	}
}

// named returns the named children of n, skipping comments.
func named(n *sitter.Node) []*sitter.Node {
	count := int(n.NamedChildCount())
	out := make([]*sitter.Node, 0, count)
	for i := range count {
		child := n.NamedChild(i)
		if child == nil || isComment(child) {
			continue
		}
		out = append(out, child)
	}
	return out
}

func isComment(n *sitter.Node) bool {
	t := n.Type()
	return t == "comment" || t == "html_comment" || t == "hash_bang_line"
}

// hasToken reports whether n has a direct anonymous child of the given type.
func hasToken(n *sitter.Node, tok string) bool {
	for i := range int(n.ChildCount()) {
		child := n.Child(i)
		if child != nil && !child.IsNamed() && child.Type() == tok {
			return true
		}
	}
	return false
}

// firstNamed returns the first non-comment named child, or nil.
func firstNamed(n *sitter.Node) *sitter.Node {
	kids := named(n)
	if len(kids) == 0 {
		return nil
	}
	return kids[0]
}

func (c *converter) program(root *sitter.Node) (*ast.Program, error) {
	body, err := c.stmtList(named(root))
	if err != nil {
		return nil, err
	}
	return &ast.Program{Span: c.span(root), Body: body}, nil
}

func (c *converter) stmtList(nodes []*sitter.Node) ([]ast.Stmt, error) {
	out := make([]ast.Stmt, 0, len(nodes))
	for _, n := range nodes {
		s, err := c.stmt(n)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func (c *converter) stmt(n *sitter.Node) (ast.Stmt, error) {
	switch n.Type() {
	case "expression_statement":
		x, err := c.expr(firstNamed(n))
		if err != nil {
			return nil, err
		}
		return &ast.ExprStmt{Span: c.span(n), X: x}, nil

	case "lexical_declaration", "variable_declaration":
		return c.varDecl(n)

	case "function_declaration", "generator_function_declaration":
		fn, err := c.function(n)
		if err != nil {
			return nil, err
		}
		return &ast.FuncDecl{Span: c.span(n), Function: fn}, nil

	case "class_declaration":
		cls, err := c.class(n)
		if err != nil {
			return nil, err
		}
		return &ast.ClassDecl{Span: c.span(n), Class: cls}, nil

	case "statement_block":
		return c.block(n)

	case "return_statement":
		arg, err := c.optExpr(firstNamed(n))
		if err != nil {
			return nil, err
		}
		return &ast.ReturnStmt{Span: c.span(n), Arg: arg}, nil

	case "throw_statement":
		arg, err := c.expr(firstNamed(n))
		if err != nil {
			return nil, err
		}
		return &ast.ThrowStmt{Span: c.span(n), Arg: arg}, nil

	case "if_statement":
		return c.ifStmt(n)

	case "for_statement":
		return c.forStmt(n)

	case "for_in_statement":
		return c.forInStmt(n)

	case "while_statement":
		test, err := c.condition(n.ChildByFieldName("condition"))
		if err != nil {
			return nil, err
		}
		body, err := c.stmt(n.ChildByFieldName("body"))
		if err != nil {
			return nil, err
		}
		return &ast.WhileStmt{Span: c.span(n), Test: test, Body: body}, nil

	case "do_statement":
		body, err := c.stmt(n.ChildByFieldName("body"))
		if err != nil {
			return nil, err
		}
		test, err := c.condition(n.ChildByFieldName("condition"))
		if err != nil {
			return nil, err
		}
		return &ast.DoWhileStmt{Span: c.span(n), Body: body, Test: test}, nil

	case "break_statement":
		s := &ast.BreakStmt{Span: c.span(n)}
		if label := n.ChildByFieldName("label"); label != nil {
			s.Label = c.ident(label)
		}
		return s, nil

	case "continue_statement":
		s := &ast.ContinueStmt{Span: c.span(n)}
		if label := n.ChildByFieldName("label"); label != nil {
			s.Label = c.ident(label)
		}
		return s, nil

	case "labeled_statement":
		body, err := c.stmt(n.ChildByFieldName("body"))
		if err != nil {
			return nil, err
		}
		return &ast.LabeledStmt{
			Span:  c.span(n),
			Label: c.ident(n.ChildByFieldName("label")),
			Body:  body,
		}, nil

	case "try_statement":
		return c.tryStmt(n)

	case "switch_statement":
		return c.switchStmt(n)

	case "empty_statement":
		return &ast.EmptyStmt{Span: c.span(n)}, nil

	case "debugger_statement":
		return &ast.DebuggerStmt{Span: c.span(n)}, nil

	case "import_statement":
		return c.importDecl(n)

	case "export_statement":
		return c.exportDecl(n)
	}
	return nil, c.unsupported(n, "statement")
}

func (c *converter) block(n *sitter.Node) (*ast.BlockStmt, error) {
	body, err := c.stmtList(named(n))
	if err != nil {
		return nil, err
	}
	return &ast.BlockStmt{Span: c.span(n), Body: body}, nil
}

func varKind(keyword string) ast.VarKind {
	switch keyword {
	case "let":
		return ast.Let
	case "const":
		return ast.Const
	default:
		return ast.Var
	}
}

func (c *converter) varDecl(n *sitter.Node) (*ast.VarDecl, error) {
	decl := &ast.VarDecl{Span: c.span(n), Kind: ast.Var}
	if n.Type() == "lexical_declaration" {
		if kind := n.ChildByFieldName("kind"); kind != nil {
			decl.Kind = varKind(c.text(kind))
		} else if first := n.Child(0); first != nil {
			decl.Kind = varKind(first.Type())
		}
	}
	for _, d := range named(n) {
		if d.Type() != "variable_declarator" {
			continue
		}
		id, err := c.pattern(d.ChildByFieldName("name"))
		if err != nil {
			return nil, err
		}
		init, err := c.optExpr(d.ChildByFieldName("value"))
		if err != nil {
			return nil, err
		}
		decl.Declarators = append(decl.Declarators, &ast.VarDeclarator{
			Span: c.span(d),
			ID:   id,
			Init: init,
		})
	}
	return decl, nil
}

// condition converts a parenthesized test, dropping the parentheses the
// statement syntax requires.
func (c *converter) condition(n *sitter.Node) (ast.Expr, error) {
	if n != nil && n.Type() == "parenthesized_expression" {
		return c.expr(firstNamed(n))
	}
	return c.expr(n)
}

func (c *converter) ifStmt(n *sitter.Node) (*ast.IfStmt, error) {
	test, err := c.condition(n.ChildByFieldName("condition"))
	if err != nil {
		return nil, err
	}
	cons, err := c.stmt(n.ChildByFieldName("consequence"))
	if err != nil {
		return nil, err
	}
	s := &ast.IfStmt{Span: c.span(n), Test: test, Cons: cons}
	if alt := n.ChildByFieldName("alternative"); alt != nil {
		if alt.Type() == "else_clause" {
			alt = firstNamed(alt)
		}
		if s.Alt, err = c.stmt(alt); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// forClause converts an initializer or test slot of a for header, which
// depending on grammar version is an expression_statement, an empty
// statement, a bare semicolon or the expression itself.
func (c *converter) forClause(n *sitter.Node) (ast.Expr, error) {
	if n == nil {
		return nil, nil
	}
	switch n.Type() {
	case ";", "empty_statement":
		return nil, nil
	case "expression_statement":
		return c.expr(firstNamed(n))
	}
	return c.expr(n)
}

func (c *converter) forStmt(n *sitter.Node) (*ast.ForStmt, error) {
	s := &ast.ForStmt{Span: c.span(n)}
	if init := n.ChildByFieldName("initializer"); init != nil {
		switch init.Type() {
		case "lexical_declaration", "variable_declaration":
			decl, err := c.varDecl(init)
			if err != nil {
				return nil, err
			}
			s.Init = decl
		default:
			x, err := c.forClause(init)
			if err != nil {
				return nil, err
			}
			if x != nil {
				s.Init = x
			}
		}
	}
	var err error
	if s.Test, err = c.forClause(n.ChildByFieldName("condition")); err != nil {
		return nil, err
	}
	if s.Update, err = c.optExpr(n.ChildByFieldName("increment")); err != nil {
		return nil, err
	}
	if s.Body, err = c.stmt(n.ChildByFieldName("body")); err != nil {
		return nil, err
	}
	return s, nil
}

func (c *converter) forInStmt(n *sitter.Node) (*ast.ForInStmt, error) {
	s := &ast.ForInStmt{Span: c.span(n), Await: hasToken(n, "await")}
	if op := n.ChildByFieldName("operator"); op != nil {
		s.Of = op.Type() == "of"
	} else {
		s.Of = hasToken(n, "of")
	}

	left := n.ChildByFieldName("left")
	target, err := c.pattern(left)
	if err != nil {
		return nil, err
	}
	if kind := n.ChildByFieldName("kind"); kind != nil {
		s.Left = &ast.VarDecl{
			Span: c.span(kind),
			Kind: varKind(c.text(kind)),
			Declarators: []*ast.VarDeclarator{
				{Span: c.span(left), ID: target},
			},
		}
	} else {
		s.Left = target
	}

	if s.Right, err = c.expr(n.ChildByFieldName("right")); err != nil {
		return nil, err
	}
	if s.Body, err = c.stmt(n.ChildByFieldName("body")); err != nil {
		return nil, err
	}
	return s, nil
}

func (c *converter) tryStmt(n *sitter.Node) (*ast.TryStmt, error) {
	body, err := c.block(n.ChildByFieldName("body"))
	if err != nil {
		return nil, err
	}
	s := &ast.TryStmt{Span: c.span(n), Block: body}

	if h := n.ChildByFieldName("handler"); h != nil {
		clause := &ast.CatchClause{Span: c.span(h)}
		if param := h.ChildByFieldName("parameter"); param != nil {
			if clause.Param, err = c.pattern(param); err != nil {
				return nil, err
			}
		}
		if clause.Body, err = c.block(h.ChildByFieldName("body")); err != nil {
			return nil, err
		}
		s.Handler = clause
	}

	if f := n.ChildByFieldName("finalizer"); f != nil {
		if s.Finalizer, err = c.block(f.ChildByFieldName("body")); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (c *converter) switchStmt(n *sitter.Node) (*ast.SwitchStmt, error) {
	disc, err := c.condition(n.ChildByFieldName("value"))
	if err != nil {
		return nil, err
	}
	s := &ast.SwitchStmt{Span: c.span(n), Disc: disc}

	for _, cs := range named(n.ChildByFieldName("body")) {
		sc := &ast.SwitchCase{Span: c.span(cs)}
		kids := named(cs)
		if cs.Type() == "switch_case" {
			if len(kids) == 0 {
				return nil, c.unsupported(cs, "switch case")
			}
			if sc.Test, err = c.expr(kids[0]); err != nil {
				return nil, err
			}
			kids = kids[1:]
		}
		if sc.Body, err = c.stmtList(kids); err != nil {
			return nil, err
		}
		s.Cases = append(s.Cases, sc)
	}
	return s, nil
}

func (c *converter) importDecl(n *sitter.Node) (*ast.ImportDecl, error) {
	decl := &ast.ImportDecl{Span: c.span(n)}
	if src := n.ChildByFieldName("source"); src != nil {
		decl.Source = &ast.Literal{Span: c.span(src), Raw: c.text(src)}
	}

	for _, clause := range named(n) {
		if clause.Type() != "import_clause" {
			continue
		}
		for _, part := range named(clause) {
			switch part.Type() {
			case "identifier":
				decl.Specifiers = append(decl.Specifiers, &ast.ImportSpecifier{
					Span:  c.span(part),
					Kind:  ast.ImportDefault,
					Local: c.ident(part),
				})
			case "namespace_import":
				local := firstNamed(part)
				decl.Specifiers = append(decl.Specifiers, &ast.ImportSpecifier{
					Span:  c.span(part),
					Kind:  ast.ImportNamespace,
					Local: c.ident(local),
				})
			case "named_imports":
				for _, spec := range named(part) {
					if spec.Type() != "import_specifier" {
						continue
					}
					name := spec.ChildByFieldName("name")
					local := spec.ChildByFieldName("alias")
					if local == nil {
						local = name
					}
					decl.Specifiers = append(decl.Specifiers, &ast.ImportSpecifier{
						Span:     c.span(spec),
						Kind:     ast.ImportNamed,
						Imported: c.text(name),
						Local:    c.ident(local),
					})
				}
			default:
				return nil, c.unsupported(part, "import clause")
			}
		}
	}
	return decl, nil
}

func (c *converter) exportDecl(n *sitter.Node) (ast.Stmt, error) {
	var source *ast.Literal
	if src := n.ChildByFieldName("source"); src != nil {
		source = &ast.Literal{Span: c.span(src), Raw: c.text(src)}
	}
	if dec := n.ChildByFieldName("decorator"); dec != nil {
		return nil, c.unsupported(dec, "syntax")
	}

	if hasToken(n, "default") {
		d := &ast.ExportDefaultDecl{Span: c.span(n)}
		var err error
		if decl := n.ChildByFieldName("declaration"); decl != nil {
			d.Decl, err = c.stmt(decl)
		} else {
			d.Expr, err = c.expr(n.ChildByFieldName("value"))
		}
		if err != nil {
			return nil, err
		}
		return d, nil
	}

	if decl := n.ChildByFieldName("declaration"); decl != nil {
		s, err := c.stmt(decl)
		if err != nil {
			return nil, err
		}
		return &ast.ExportNamedDecl{Span: c.span(n), Decl: s}, nil
	}

	if hasToken(n, "*") {
		return &ast.ExportAllDecl{Span: c.span(n), Source: source}, nil
	}

	d := &ast.ExportNamedDecl{Span: c.span(n), Source: source}
	for _, part := range named(n) {
		switch part.Type() {
		case "namespace_export":
			return &ast.ExportAllDecl{
				Span:     c.span(n),
				Exported: c.text(firstNamed(part)),
				Source:   source,
			}, nil
		}
		if part.Type() != "export_clause" {
			continue
		}
		for _, spec := range named(part) {
			if spec.Type() != "export_specifier" {
				continue
			}
			es := &ast.ExportSpecifier{
				Span:  c.span(spec),
				Local: c.ident(spec.ChildByFieldName("name")),
			}
			if alias := spec.ChildByFieldName("alias"); alias != nil {
				es.Exported = c.text(alias)
			}
			d.Specifiers = append(d.Specifiers, es)
		}
	}
	return d, nil
}

// ---------------------------------------------------------------------------
// Functions and classes

func (c *converter) function(n *sitter.Node) (ast.Function, error) {
	fn := ast.Function{
		Async:     hasToken(n, "async"),
		Generator: hasToken(n, "*"),
	}
	if name := n.ChildByFieldName("name"); name != nil {
		fn.ID = c.ident(name)
	}
	params, err := c.params(n.ChildByFieldName("parameters"))
	if err != nil {
		return fn, err
	}
	fn.Params = params
	if fn.Body, err = c.block(n.ChildByFieldName("body")); err != nil {
		return fn, err
	}
	return fn, nil
}

func (c *converter) params(n *sitter.Node) ([]ast.Pattern, error) {
	if n == nil {
		return nil, nil
	}
	var out []ast.Pattern
	for _, p := range named(n) {
		pat, err := c.pattern(p)
		if err != nil {
			return nil, err
		}
		out = append(out, pat)
	}
	return out, nil
}

func (c *converter) arrow(n *sitter.Node) (*ast.ArrowFunc, error) {
	fn := &ast.ArrowFunc{Span: c.span(n), Async: hasToken(n, "async")}
	if p := n.ChildByFieldName("parameter"); p != nil {
		fn.Params = []ast.Pattern{c.ident(p)}
	} else {
		params, err := c.params(n.ChildByFieldName("parameters"))
		if err != nil {
			return nil, err
		}
		fn.Params = params
	}

	body := n.ChildByFieldName("body")
	var err error
	if body.Type() == "statement_block" {
		fn.Body, err = c.block(body)
	} else {
		fn.Expr, err = c.expr(body)
	}
	if err != nil {
		return nil, err
	}
	return fn, nil
}

func (c *converter) class(n *sitter.Node) (ast.Class, error) {
	var cls ast.Class
	if name := n.ChildByFieldName("name"); name != nil {
		cls.ID = c.ident(name)
	}
	for _, part := range named(n) {
		switch part.Type() {
		case "decorator":
			return cls, c.unsupported(part, "syntax")
		case "class_heritage":
			super := firstNamed(part)
			if super != nil && super.Type() == "extends_clause" {
				super = super.ChildByFieldName("value")
			}
			var err error
			if cls.Super, err = c.expr(super); err != nil {
				return cls, err
			}
		}
	}

	body := n.ChildByFieldName("body")
	for _, m := range named(body) {
		member, err := c.classMember(m)
		if err != nil {
			return cls, err
		}
		cls.Members = append(cls.Members, member)
	}
	return cls, nil
}

func (c *converter) classMember(n *sitter.Node) (*ast.ClassMember, error) {
	switch n.Type() {
	case "method_definition":
		kind, key, computed, value, err := c.method(n)
		if err != nil {
			return nil, err
		}
		return &ast.ClassMember{
			Span:     c.span(n),
			Kind:     kind,
			Key:      key,
			Computed: computed,
			Static:   hasToken(n, "static"),
			Value:    value,
		}, nil

	case "field_definition":
		key, computed, err := c.propertyKey(n.ChildByFieldName("property"))
		if err != nil {
			return nil, err
		}
		value, err := c.optExpr(n.ChildByFieldName("value"))
		if err != nil {
			return nil, err
		}
		return &ast.ClassMember{
			Span:     c.span(n),
			Kind:     ast.MemberInit,
			Key:      key,
			Computed: computed,
			Static:   hasToken(n, "static"),
			Value:    value,
		}, nil
	}
	return nil, c.unsupported(n, "class member")
}

// method converts a method_definition shared by classes and object literals.
func (c *converter) method(n *sitter.Node) (ast.MemberKind, ast.Expr, bool, *ast.FuncExpr, error) {
	kind := ast.MemberMethod
	switch {
	case hasToken(n, "get"):
		kind = ast.MemberGet
	case hasToken(n, "set"):
		kind = ast.MemberSet
	}

	key, computed, err := c.propertyKey(n.ChildByFieldName("name"))
	if err != nil {
		return 0, nil, false, nil, err
	}
	params, err := c.params(n.ChildByFieldName("parameters"))
	if err != nil {
		return 0, nil, false, nil, err
	}
	body, err := c.block(n.ChildByFieldName("body"))
	if err != nil {
		return 0, nil, false, nil, err
	}
	fn := &ast.FuncExpr{
		Span: c.span(n),
		Function: ast.Function{
			Params:    params,
			Body:      body,
			Async:     hasToken(n, "async"),
			Generator: hasToken(n, "*"),
		},
	}
	return kind, key, computed, fn, nil
}

func (c *converter) propertyKey(n *sitter.Node) (ast.Expr, bool, error) {
	switch n.Type() {
	case "property_identifier", "private_property_identifier", "identifier":
		return c.ident(n), false, nil
	case "string", "number":
		return &ast.Literal{Span: c.span(n), Raw: c.text(n)}, false, nil
	case "computed_property_name":
		x, err := c.expr(firstNamed(n))
		return x, true, err
	}
	return nil, false, c.unsupported(n, "property key")
}

// ---------------------------------------------------------------------------
// Expressions

func (c *converter) optExpr(n *sitter.Node) (ast.Expr, error) {
	if n == nil {
		return nil, nil
	}
	return c.expr(n)
}

func (c *converter) exprList(nodes []*sitter.Node) ([]ast.Expr, error) {
	out := make([]ast.Expr, 0, len(nodes))
	for _, n := range nodes {
		x, err := c.expr(n)
		if err != nil {
			return nil, err
		}
		out = append(out, x)
	}
	return out, nil
}

func (c *converter) expr(n *sitter.Node) (ast.Expr, error) {
	if n == nil {
		return nil, &SyntaxError{Path: c.path, Message: "missing expression"}
	}
	switch n.Type() {
	case "identifier", "undefined", "private_property_identifier":
		return c.ident(n), nil

	case "number", "string", "regex", "true", "false", "null":
		return &ast.Literal{Span: c.span(n), Raw: c.text(n)}, nil

	case "this":
		return &ast.ThisExpr{Span: c.span(n)}, nil

	case "super":
		return &ast.SuperExpr{Span: c.span(n)}, nil

	case "import":
		return &ast.Ident{Span: c.span(n), Name: "import"}, nil

	case "template_string":
		return c.template(n)

	case "parenthesized_expression":
		x, err := c.expr(firstNamed(n))
		if err != nil {
			return nil, err
		}
		return &ast.ParenExpr{Span: c.span(n), X: x}, nil

	case "sequence_expression":
		var exprs []ast.Expr
		if err := c.flattenSeq(n, &exprs); err != nil {
			return nil, err
		}
		return &ast.SeqExpr{Span: c.span(n), Exprs: exprs}, nil

	case "array":
		return c.array(n)

	case "object":
		return c.object(n)

	case "function", "function_expression", "generator_function":
		fn, err := c.function(n)
		if err != nil {
			return nil, err
		}
		return &ast.FuncExpr{Span: c.span(n), Function: fn}, nil

	case "arrow_function":
		return c.arrow(n)

	case "class":
		cls, err := c.class(n)
		if err != nil {
			return nil, err
		}
		return &ast.ClassExpr{Span: c.span(n), Class: cls}, nil

	case "call_expression":
		return c.call(n)

	case "new_expression":
		callee, err := c.expr(n.ChildByFieldName("constructor"))
		if err != nil {
			return nil, err
		}
		x := &ast.NewExpr{Span: c.span(n), Callee: callee}
		if args := n.ChildByFieldName("arguments"); args != nil {
			if x.Args, err = c.exprList(named(args)); err != nil {
				return nil, err
			}
		}
		return x, nil

	case "member_expression":
		object, err := c.expr(n.ChildByFieldName("object"))
		if err != nil {
			return nil, err
		}
		prop := n.ChildByFieldName("property")
		return &ast.MemberExpr{
			Span:     c.span(n),
			Object:   object,
			Property: c.ident(prop),
			Optional: n.ChildByFieldName("optional_chain") != nil || hasToken(n, "?."),
		}, nil

	case "subscript_expression":
		object, err := c.expr(n.ChildByFieldName("object"))
		if err != nil {
			return nil, err
		}
		index, err := c.expr(n.ChildByFieldName("index"))
		if err != nil {
			return nil, err
		}
		return &ast.MemberExpr{
			Span:     c.span(n),
			Object:   object,
			Property: index,
			Computed: true,
			Optional: n.ChildByFieldName("optional_chain") != nil || hasToken(n, "?."),
		}, nil

	case "assignment_expression", "augmented_assignment_expression":
		left, err := c.pattern(n.ChildByFieldName("left"))
		if err != nil {
			return nil, err
		}
		right, err := c.expr(n.ChildByFieldName("right"))
		if err != nil {
			return nil, err
		}
		op := "="
		if o := n.ChildByFieldName("operator"); o != nil {
			op = o.Type()
		}
		return &ast.AssignExpr{Span: c.span(n), Op: op, Left: left, Right: right}, nil

	case "unary_expression":
		x, err := c.expr(n.ChildByFieldName("argument"))
		if err != nil {
			return nil, err
		}
		return &ast.UnaryExpr{
			Span: c.span(n),
			Op:   n.ChildByFieldName("operator").Type(),
			X:    x,
		}, nil

	case "update_expression":
		arg := n.ChildByFieldName("argument")
		op := n.ChildByFieldName("operator")
		x, err := c.expr(arg)
		if err != nil {
			return nil, err
		}
		return &ast.UpdateExpr{
			Span:   c.span(n),
			Op:     op.Type(),
			Prefix: op.StartByte() < arg.StartByte(),
			X:      x,
		}, nil

	case "binary_expression":
		left, err := c.expr(n.ChildByFieldName("left"))
		if err != nil {
			return nil, err
		}
		right, err := c.expr(n.ChildByFieldName("right"))
		if err != nil {
			return nil, err
		}
		return &ast.BinaryExpr{
			Span:  c.span(n),
			Op:    n.ChildByFieldName("operator").Type(),
			Left:  left,
			Right: right,
		}, nil

	case "ternary_expression":
		test, err := c.expr(n.ChildByFieldName("condition"))
		if err != nil {
			return nil, err
		}
		cons, err := c.expr(n.ChildByFieldName("consequence"))
		if err != nil {
			return nil, err
		}
		alt, err := c.expr(n.ChildByFieldName("alternative"))
		if err != nil {
			return nil, err
		}
		return &ast.CondExpr{Span: c.span(n), Test: test, Cons: cons, Alt: alt}, nil

	case "spread_element":
		arg, err := c.expr(firstNamed(n))
		if err != nil {
			return nil, err
		}
		return &ast.SpreadElement{Span: c.span(n), Arg: arg}, nil

	case "await_expression":
		arg, err := c.expr(firstNamed(n))
		if err != nil {
			return nil, err
		}
		return &ast.AwaitExpr{Span: c.span(n), Arg: arg}, nil

	case "yield_expression":
		arg, err := c.optExpr(firstNamed(n))
		if err != nil {
			return nil, err
		}
		return &ast.YieldExpr{Span: c.span(n), Arg: arg, Delegate: hasToken(n, "*")}, nil

	case "meta_property":
		meta, prop, _ := strings.Cut(strings.ReplaceAll(c.text(n), " ", ""), ".")
		return &ast.MetaProperty{Span: c.span(n), Meta: meta, Property: prop}, nil
	}
	return nil, c.unsupported(n, "expression")
}

func (c *converter) flattenSeq(n *sitter.Node, out *[]ast.Expr) error {
	for _, part := range named(n) {
		if part.Type() == "sequence_expression" {
			if err := c.flattenSeq(part, out); err != nil {
				return err
			}
			continue
		}
		x, err := c.expr(part)
		if err != nil {
			return err
		}
		*out = append(*out, x)
	}
	return nil
}

func (c *converter) call(n *sitter.Node) (ast.Expr, error) {
	callee, err := c.expr(n.ChildByFieldName("function"))
	if err != nil {
		return nil, err
	}
	args := n.ChildByFieldName("arguments")
	if args != nil && args.Type() == "template_string" {
		quasi, err := c.template(args)
		if err != nil {
			return nil, err
		}
		return &ast.TaggedTemplate{Span: c.span(n), Tag: callee, Quasi: quasi}, nil
	}
	x := &ast.CallExpr{
		Span:     c.span(n),
		Callee:   callee,
		Optional: n.ChildByFieldName("optional_chain") != nil || hasToken(n, "?."),
	}
	if args != nil {
		if x.Args, err = c.exprList(named(args)); err != nil {
			return nil, err
		}
	}
	return x, nil
}

func (c *converter) template(n *sitter.Node) (*ast.TemplateLiteral, error) {
	t := &ast.TemplateLiteral{Span: c.span(n)}
	cursor := n.StartByte() + 1
	end := n.EndByte() - 1
	for _, part := range named(n) {
		if part.Type() != "template_substitution" {
			continue
		}
		t.Quasis = append(t.Quasis, string(c.src[cursor:part.StartByte()]))
		x, err := c.expr(firstNamed(part))
		if err != nil {
			return nil, err
		}
		t.Exprs = append(t.Exprs, x)
		cursor = part.EndByte()
	}
	t.Quasis = append(t.Quasis, string(c.src[cursor:end]))
	return t, nil
}

// array converts an array literal, turning runs of commas into holes.
func (c *converter) array(n *sitter.Node) (*ast.ArrayExpr, error) {
	a := &ast.ArrayExpr{Span: c.span(n)}
	pending := false
	for i := range int(n.ChildCount()) {
		child := n.Child(i)
		switch {
		case child == nil || isComment(child):
		case !child.IsNamed() && child.Type() == ",":
			if !pending {
				a.Elems = append(a.Elems, nil)
			}
			pending = false
		case child.IsNamed():
			x, err := c.expr(child)
			if err != nil {
				return nil, err
			}
			a.Elems = append(a.Elems, x)
			pending = true
		}
	}
	return a, nil
}

func (c *converter) object(n *sitter.Node) (*ast.ObjectExpr, error) {
	o := &ast.ObjectExpr{Span: c.span(n)}
	for _, part := range named(n) {
		switch part.Type() {
		case "pair":
			key, computed, err := c.propertyKey(part.ChildByFieldName("key"))
			if err != nil {
				return nil, err
			}
			value, err := c.expr(part.ChildByFieldName("value"))
			if err != nil {
				return nil, err
			}
			o.Props = append(o.Props, &ast.Property{
				Span:     c.span(part),
				Kind:     ast.MemberInit,
				Key:      key,
				Computed: computed,
				Value:    value,
			})
		case "shorthand_property_identifier":
			o.Props = append(o.Props, &ast.Property{
				Span:      c.span(part),
				Kind:      ast.MemberInit,
				Key:       c.ident(part),
				Shorthand: true,
				Value:     c.ident(part),
			})
		case "spread_element":
			arg, err := c.expr(firstNamed(part))
			if err != nil {
				return nil, err
			}
			o.Props = append(o.Props, &ast.SpreadElement{Span: c.span(part), Arg: arg})
		case "method_definition":
			kind, key, computed, value, err := c.method(part)
			if err != nil {
				return nil, err
			}
			o.Props = append(o.Props, &ast.Property{
				Span:     c.span(part),
				Kind:     kind,
				Key:      key,
				Computed: computed,
				Value:    value,
			})
		default:
			return nil, c.unsupported(part, "object member")
		}
	}
	return o, nil
}

// ---------------------------------------------------------------------------
// Patterns

func (c *converter) pattern(n *sitter.Node) (ast.Pattern, error) {
	if n == nil {
		return nil, &SyntaxError{Path: c.path, Message: "missing binding"}
	}
	switch n.Type() {
	case "identifier", "shorthand_property_identifier_pattern", "undefined":
		return c.ident(n), nil

	case "member_expression", "subscript_expression":
		x, err := c.expr(n)
		if err != nil {
			return nil, err
		}
		return x.(*ast.MemberExpr), nil

	case "parenthesized_expression":
		return c.pattern(firstNamed(n))

	case "assignment_pattern", "object_assignment_pattern", "assignment_expression":
		target, err := c.pattern(n.ChildByFieldName("left"))
		if err != nil {
			return nil, err
		}
		def, err := c.expr(n.ChildByFieldName("right"))
		if err != nil {
			return nil, err
		}
		return &ast.AssignPattern{Span: c.span(n), Target: target, Default: def}, nil

	case "rest_pattern":
		arg, err := c.pattern(firstNamed(n))
		if err != nil {
			return nil, err
		}
		return &ast.RestElement{Span: c.span(n), Arg: arg}, nil

	case "object_pattern", "object":
		return c.objectPattern(n)

	case "array_pattern", "array":
		return c.arrayPattern(n)
	}
	return nil, c.unsupported(n, "binding pattern")
}

func (c *converter) objectPattern(n *sitter.Node) (*ast.ObjectPattern, error) {
	p := &ast.ObjectPattern{Span: c.span(n)}
	for _, part := range named(n) {
		if p.Rest != nil {
			return nil, &SyntaxError{Path: c.path, Loc: locOf(part), Message: "rest element must be last"}
		}
		switch part.Type() {
		case "pair_pattern", "pair":
			key, computed, err := c.propertyKey(part.ChildByFieldName("key"))
			if err != nil {
				return nil, err
			}
			value, err := c.pattern(part.ChildByFieldName("value"))
			if err != nil {
				return nil, err
			}
			p.Props = append(p.Props, &ast.PatternProp{
				Span:     c.span(part),
				Key:      key,
				Computed: computed,
				Value:    value,
			})

		case "shorthand_property_identifier_pattern", "shorthand_property_identifier":
			p.Props = append(p.Props, &ast.PatternProp{
				Span:      c.span(part),
				Key:       c.ident(part),
				Shorthand: true,
				Value:     c.ident(part),
			})

		case "object_assignment_pattern":
			left := part.ChildByFieldName("left")
			value, err := c.pattern(part)
			if err != nil {
				return nil, err
			}
			p.Props = append(p.Props, &ast.PatternProp{
				Span:      c.span(part),
				Key:       c.ident(left),
				Shorthand: true,
				Value:     value,
			})

		case "rest_pattern", "spread_element":
			arg, err := c.pattern(firstNamed(part))
			if err != nil {
				return nil, err
			}
			p.Rest = &ast.RestElement{Span: c.span(part), Arg: arg}

		default:
			return nil, c.unsupported(part, "object pattern member")
		}
	}
	return p, nil
}

func (c *converter) arrayPattern(n *sitter.Node) (*ast.ArrayPattern, error) {
	p := &ast.ArrayPattern{Span: c.span(n)}
	pending := false
	for i := range int(n.ChildCount()) {
		child := n.Child(i)
		switch {
		case child == nil || isComment(child):
		case !child.IsNamed() && child.Type() == ",":
			if !pending {
				p.Elems = append(p.Elems, nil)
			}
			pending = false
		case child.IsNamed():
			var (
				elem ast.Pattern
				err  error
			)
			if child.Type() == "spread_element" {
				var arg ast.Pattern
				if arg, err = c.pattern(firstNamed(child)); err == nil {
					elem = &ast.RestElement{Span: c.span(child), Arg: arg}
				}
			} else {
				elem, err = c.pattern(child)
			}
			if err != nil {
				return nil, err
			}
			p.Elems = append(p.Elems, elem)
			pending = true
		}
	}
	return p, nil
}
