package dce

import (
	"errors"
	"fmt"

	"github.com/panbanda/eliminator/pkg/ast"
)

var (
	// ErrUnsupportedNode is matched by every *UnsupportedNodeError.
	ErrUnsupportedNode = errors.New("unsupported node shape")

	// ErrInvariant is matched by every *InvariantError.
	ErrInvariant = errors.New("invariant violation")

	// ErrPassLimit is returned when the sweep has not reached a fixed point
	// within the configured number of passes.
	ErrPassLimit = errors.New("pass limit reached before fixed point")
)

// UnsupportedNodeError reports a node shape that no removal rule covers.
// The tree may already hold removals committed earlier in the same pass.
type UnsupportedNodeError struct {
	Node    ast.Node
	Loc     ast.Loc
	Context string
}

func (e *UnsupportedNodeError) Error() string {
	return fmt.Sprintf("%s: %s: cannot remove from %T", e.Loc, e.Context, e.Node)
}

func (e *UnsupportedNodeError) Unwrap() error { return ErrUnsupportedNode }

func unsupported(n ast.Node, context string) *UnsupportedNodeError {
	return &UnsupportedNodeError{Node: n, Loc: n.Pos(), Context: context}
}

// InvariantError reports scope data that does not match the tree, such as a
// declaring identifier with no binding. It indicates a caller or resolver
// defect rather than bad input.
type InvariantError struct {
	Name   string
	Loc    ast.Loc
	Reason string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Loc, e.Name, e.Reason)
}

func (e *InvariantError) Unwrap() error { return ErrInvariant }
