package dce

import (
	"slices"

	"github.com/panbanda/eliminator/pkg/ast"
)

// detach removes stmt from its parent, the last entry of ancestors. Where
// the parent requires a statement in that position an empty statement is
// left in its place.
func detach(stmt ast.Stmt, ancestors []ast.Node) error {
	if len(ancestors) == 0 {
		return unsupported(stmt, "statement without parent")
	}
	parent := ancestors[len(ancestors)-1]

	switch p := parent.(type) {
	case *ast.Program:
		p.Body = without(p.Body, stmt)
	case *ast.BlockStmt:
		p.Body = without(p.Body, stmt)
	case *ast.SwitchCase:
		p.Body = without(p.Body, stmt)

	case *ast.ForStmt:
		if p.Init == ast.Node(stmt) {
			p.Init = nil
		} else {
			p.Body = emptyAt(stmt)
		}
	case *ast.ForInStmt:
		p.Body = emptyAt(stmt)
	case *ast.WhileStmt:
		p.Body = emptyAt(stmt)
	case *ast.DoWhileStmt:
		p.Body = emptyAt(stmt)
	case *ast.LabeledStmt:
		p.Body = emptyAt(stmt)
	case *ast.IfStmt:
		if p.Cons == stmt {
			p.Cons = emptyAt(stmt)
		} else {
			p.Alt = nil
		}

	case *ast.ExportNamedDecl:
		return detach(p, ancestors[:len(ancestors)-1])
	case *ast.ExportDefaultDecl:
		return detach(p, ancestors[:len(ancestors)-1])

	default:
		return unsupported(parent, "statement container")
	}
	return nil
}

func without(list []ast.Stmt, stmt ast.Stmt) []ast.Stmt {
	return slices.DeleteFunc(list, func(s ast.Stmt) bool { return s == stmt })
}

func emptyAt(stmt ast.Stmt) *ast.EmptyStmt {
	return &ast.EmptyStmt{Span: ast.Span{Loc: stmt.Pos()}}
}
