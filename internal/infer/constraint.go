package infer

import "github.com/solvent-lang/solvent/internal/ast"

// Constraint is the closed sum of work items routed through the queue.
// Producers (unifier, instantiator, entailer) push; the solver pops.
type Constraint interface {
	isConstraint()
}

// ClassEntail asks the entailer to prove an assertion. The marker keys
// the obligation's evidence slot and per-obligation caches.
type ClassEntail struct {
	Marker    int
	Assertion ast.Assertion
}

// UnifyDeep records that two unification variables must share a
// solution. Emitted whenever two distinct unification variables meet;
// the solver resolves it against whatever solutions it has by then.
type UnifyDeep struct {
	T int
	U int
}

// UnifySolve records the solution of a unification variable.
type UnifySolve struct {
	Var int
	Ty  ast.TyIdx
}

// UnifyError carries a unification failure. Errors are data: the solver
// accumulates them and the run continues.
type UnifyError struct {
	Err error
}

func (*ClassEntail) isConstraint() {}
func (*UnifyDeep) isConstraint()   {}
func (*UnifySolve) isConstraint()  {}
func (*UnifyError) isConstraint()  {}
