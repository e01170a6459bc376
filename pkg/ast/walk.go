package ast

// Visitor is called for every node in preorder. ancestors lists the nodes
// from the root down to n's parent; the slice is reused between calls, so
// callers that keep it must copy it. Returning false skips n's children.
type Visitor func(n Node, ancestors []Node) bool

// Inspect traverses the tree rooted at root in source order.
func Inspect(root Node, visit Visitor) {
	if root == nil {
		return
	}
	stack := make([]Node, 0, 32)
	var walk func(n Node)
	walk = func(n Node) {
		if !visit(n, stack) {
			return
		}
		stack = append(stack, n)
		for _, c := range Children(n) {
			walk(c)
		}
		stack = stack[:len(stack)-1]
	}
	walk(root)
}

// Children returns the direct children of n in source order. Nil slots
// (array holes, absent initializers) are omitted.
func Children(n Node) []Node {
	var out []Node
	add := func(c Node) {
		if c != nil && !isNilNode(c) {
			out = append(out, c)
		}
	}
	addFunction := func(f *Function) {
		if f.ID != nil {
			add(f.ID)
		}
		for _, p := range f.Params {
			add(p)
		}
		if f.Body != nil {
			add(f.Body)
		}
	}
	addClass := func(c *Class) {
		if c.ID != nil {
			add(c.ID)
		}
		add(c.Super)
		for _, m := range c.Members {
			add(m)
		}
	}

	switch n := n.(type) {
	case *Program:
		for _, s := range n.Body {
			add(s)
		}
	case *VarDecl:
		for _, d := range n.Declarators {
			add(d)
		}
	case *VarDeclarator:
		add(n.ID)
		add(n.Init)
	case *FuncDecl:
		addFunction(&n.Function)
	case *FuncExpr:
		addFunction(&n.Function)
	case *ArrowFunc:
		for _, p := range n.Params {
			add(p)
		}
		if n.Body != nil {
			add(n.Body)
		}
		add(n.Expr)
	case *ClassDecl:
		addClass(&n.Class)
	case *ClassExpr:
		addClass(&n.Class)
	case *ClassMember:
		add(n.Key)
		add(n.Value)
	case *ExprStmt:
		add(n.X)
	case *BlockStmt:
		for _, s := range n.Body {
			add(s)
		}
	case *ReturnStmt:
		add(n.Arg)
	case *IfStmt:
		add(n.Test)
		add(n.Cons)
		add(n.Alt)
	case *ForStmt:
		add(n.Init)
		add(n.Test)
		add(n.Update)
		add(n.Body)
	case *ForInStmt:
		add(n.Left)
		add(n.Right)
		add(n.Body)
	case *WhileStmt:
		add(n.Test)
		add(n.Body)
	case *DoWhileStmt:
		add(n.Body)
		add(n.Test)
	case *BreakStmt:
		if n.Label != nil {
			add(n.Label)
		}
	case *ContinueStmt:
		if n.Label != nil {
			add(n.Label)
		}
	case *ThrowStmt:
		add(n.Arg)
	case *TryStmt:
		if n.Block != nil {
			add(n.Block)
		}
		if n.Handler != nil {
			add(n.Handler)
		}
		if n.Finalizer != nil {
			add(n.Finalizer)
		}
	case *CatchClause:
		add(n.Param)
		if n.Body != nil {
			add(n.Body)
		}
	case *SwitchStmt:
		add(n.Disc)
		for _, c := range n.Cases {
			add(c)
		}
	case *SwitchCase:
		add(n.Test)
		for _, s := range n.Body {
			add(s)
		}
	case *LabeledStmt:
		add(n.Label)
		add(n.Body)
	case *ImportDecl:
		for _, s := range n.Specifiers {
			add(s)
		}
		if n.Source != nil {
			add(n.Source)
		}
	case *ImportSpecifier:
		add(n.Local)
	case *ExportNamedDecl:
		add(n.Decl)
		for _, s := range n.Specifiers {
			add(s)
		}
		if n.Source != nil {
			add(n.Source)
		}
	case *ExportSpecifier:
		add(n.Local)
	case *ExportDefaultDecl:
		add(n.Decl)
		add(n.Expr)
	case *ExportAllDecl:
		if n.Source != nil {
			add(n.Source)
		}
	case *TemplateLiteral:
		for _, e := range n.Exprs {
			add(e)
		}
	case *TaggedTemplate:
		add(n.Tag)
		if n.Quasi != nil {
			add(n.Quasi)
		}
	case *ArrayExpr:
		for _, e := range n.Elems {
			add(e)
		}
	case *ObjectExpr:
		for _, p := range n.Props {
			add(p)
		}
	case *Property:
		if !n.Shorthand {
			add(n.Key)
		}
		add(n.Value)
	case *SpreadElement:
		add(n.Arg)
	case *CallExpr:
		add(n.Callee)
		for _, a := range n.Args {
			add(a)
		}
	case *NewExpr:
		add(n.Callee)
		for _, a := range n.Args {
			add(a)
		}
	case *MemberExpr:
		add(n.Object)
		add(n.Property)
	case *UnaryExpr:
		add(n.X)
	case *UpdateExpr:
		add(n.X)
	case *BinaryExpr:
		add(n.Left)
		add(n.Right)
	case *AssignExpr:
		add(n.Left)
		add(n.Right)
	case *CondExpr:
		add(n.Test)
		add(n.Cons)
		add(n.Alt)
	case *SeqExpr:
		for _, e := range n.Exprs {
			add(e)
		}
	case *AwaitExpr:
		add(n.Arg)
	case *YieldExpr:
		add(n.Arg)
	case *ParenExpr:
		add(n.X)
	case *ArrayPattern:
		for _, e := range n.Elems {
			add(e)
		}
	case *ObjectPattern:
		for _, p := range n.Props {
			add(p)
		}
		if n.Rest != nil {
			add(n.Rest)
		}
	case *PatternProp:
		if !n.Shorthand {
			add(n.Key)
		}
		add(n.Value)
	case *AssignPattern:
		add(n.Target)
		add(n.Default)
	case *RestElement:
		add(n.Arg)
	}
	return out
}

// isNilNode reports whether n is an interface holding a typed nil pointer.
func isNilNode(n Node) bool {
	switch v := n.(type) {
	case *Ident:
		return v == nil
	case *BlockStmt:
		return v == nil
	case *Literal:
		return v == nil
	case *VarDecl:
		return v == nil
	case *FuncDecl:
		return v == nil
	case *ClassDecl:
		return v == nil
	case *RestElement:
		return v == nil
	case *TemplateLiteral:
		return v == nil
	}
	return false
}

// PatternIdents returns the identifiers bound by p, in source order.
// Member expressions (assignment targets) bind nothing.
func PatternIdents(p Pattern) []*Ident {
	var out []*Ident
	var rec func(p Pattern)
	rec = func(p Pattern) {
		switch p := p.(type) {
		case *Ident:
			out = append(out, p)
		case *ArrayPattern:
			for _, e := range p.Elems {
				if e != nil {
					rec(e)
				}
			}
		case *ObjectPattern:
			for _, prop := range p.Props {
				rec(prop.Value)
			}
			if p.Rest != nil {
				rec(p.Rest)
			}
		case *AssignPattern:
			rec(p.Target)
		case *RestElement:
			rec(p.Arg)
		}
	}
	if p != nil {
		rec(p)
	}
	return out
}

// Contains reports whether needle is root or one of its descendants.
func Contains(root, needle Node) bool {
	found := false
	Inspect(root, func(n Node, _ []Node) bool {
		if found {
			return false
		}
		if n == needle {
			found = true
			return false
		}
		return true
	})
	return found
}
