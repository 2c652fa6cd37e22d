// Package ast defines the expression and type node sums consumed by
// inference, together with class and instance records, a rebuilding
// traversal over type graphs, and pretty printers.
//
// Nodes live in arenas; all cross-references are handles. The node
// structs here are immutable once allocated.
package ast

import "github.com/solvent-lang/solvent/internal/arena"

// ExprIdx is a handle into an expression arena.
type ExprIdx = arena.Idx[Expr]

// Expr is the closed sum of expression nodes. Expressions are input:
// created by the front-end, never mutated by inference.
type Expr interface {
	isExpr()
}

// ECon references a data constructor by name.
type ECon struct {
	Name string
}

// EVar references a value binding by name.
type EVar struct {
	Name string
}

// EApp applies a function expression to one or more arguments.
type EApp struct {
	Function  ExprIdx
	Arguments []ExprIdx
}

// ELam abstracts over one or more parameters.
type ELam struct {
	Parameters []string
	Body       ExprIdx
}

func (*ECon) isExpr() {}
func (*EVar) isExpr() {}
func (*EApp) isExpr() {}
func (*ELam) isExpr() {}
