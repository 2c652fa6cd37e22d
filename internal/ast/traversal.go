package ast

import "github.com/solvent-lang/solvent/internal/arena"

// Rewriter is a rebuilding traversal over type graphs. Implementations
// override VisitTy (and rarely VisitAssertions) for the cases they care
// about and delegate the rest to WalkTy. Composite nodes are rebuilt by
// fresh allocation; existing nodes are never rewritten in place.
type Rewriter interface {
	Arena() *arena.Arena[Ty]
	VisitTy(ty TyIdx) TyIdx
	VisitAssertions(assertions []Assertion) []Assertion
}

// WalkTy rebuilds a type bottom-up through the rewriter. Leaves return
// their own handle; composites allocate replacements from the visited
// children.
func WalkTy(r Rewriter, ty TyIdx) TyIdx {
	switch node := (*r.Arena().Get(ty)).(type) {
	case *TCon, *TVar, *TUni:
		return ty
	case *TFun:
		arguments := make([]TyIdx, len(node.Arguments))
		for i, argument := range node.Arguments {
			arguments[i] = r.VisitTy(argument)
		}
		result := r.VisitTy(node.Result)
		return r.Arena().Allocate(&TFun{Arguments: arguments, Result: result})
	case *TApp:
		function := r.VisitTy(node.Function)
		arguments := make([]TyIdx, len(node.Arguments))
		for i, argument := range node.Arguments {
			arguments[i] = r.VisitTy(argument)
		}
		return r.Arena().Allocate(&TApp{Function: function, Arguments: arguments})
	case *TForall:
		binders := append([]Binder(nil), node.Binders...)
		inner := r.VisitTy(node.Ty)
		return r.Arena().Allocate(&TForall{Binders: binders, Rank: node.Rank, Ty: inner})
	case *TConstrained:
		assertions := r.VisitAssertions(cloneAssertions(node.Assertions))
		inner := r.VisitTy(node.Ty)
		return r.Arena().Allocate(&TConstrained{Assertions: assertions, Ty: inner})
	default:
		return ty
	}
}

// WalkAssertions visits every argument of every assertion in place on
// the (caller-owned) slice.
func WalkAssertions(r Rewriter, assertions []Assertion) []Assertion {
	for i := range assertions {
		for j, argument := range assertions[i].Arguments {
			assertions[i].Arguments[j] = r.VisitTy(argument)
		}
	}
	return assertions
}

func cloneAssertions(assertions []Assertion) []Assertion {
	cloned := make([]Assertion, len(assertions))
	for i, assertion := range assertions {
		cloned[i] = Assertion{
			Name:      assertion.Name,
			Arguments: append([]TyIdx(nil), assertion.Arguments...),
		}
	}
	return cloned
}

// CloneAssertion deep-copies an assertion's argument slice so a caller
// can substitute into it without aliasing the original.
func CloneAssertion(assertion Assertion) Assertion {
	return Assertion{
		Name:      assertion.Name,
		Arguments: append([]TyIdx(nil), assertion.Arguments...),
	}
}
