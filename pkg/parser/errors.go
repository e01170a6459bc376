package parser

import (
	"errors"
	"fmt"

	"github.com/panbanda/eliminator/pkg/ast"
	sitter "github.com/smacker/go-tree-sitter"
)

// ErrSyntax is matched by every *SyntaxError.
var ErrSyntax = errors.New("syntax error")

// SyntaxError reports source the parser could not turn into a tree, either
// because it is malformed or because it uses syntax outside the supported
// subset (JSX, TypeScript, decorators, static blocks, with).
type SyntaxError struct {
	Path    string
	Loc     ast.Loc
	Message string
}

func (e *SyntaxError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s: %s", e.Loc, e.Message)
	}
	return fmt.Sprintf("%s:%s: %s", e.Path, e.Loc, e.Message)
}

func (e *SyntaxError) Unwrap() error { return ErrSyntax }

func syntaxErrorAt(path string, n *sitter.Node, source []byte) *SyntaxError {
	msg := "unexpected input"
	if n.IsMissing() {
		msg = fmt.Sprintf("missing %q", n.Type())
	} else if text := GetNodeText(n, source); text != "" {
		if len(text) > 32 {
			text = text[:32] + "..."
		}
		msg = fmt.Sprintf("unexpected %q", text)
	}
	return &SyntaxError{Path: path, Loc: locOf(n), Message: msg}
}

func locOf(n *sitter.Node) ast.Loc {
	p := n.StartPoint()
	return ast.Loc{Line: p.Row + 1, Column: p.Column + 1, Offset: n.StartByte()}
}
