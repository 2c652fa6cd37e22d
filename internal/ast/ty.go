package ast

import "github.com/solvent-lang/solvent/internal/arena"

// TyIdx is a handle into a type arena.
type TyIdx = arena.Idx[Ty]

// Binder names a type variable bound by a Forall.
type Binder struct {
	Name string
}

// Assertion is a class membership claim, C τ₁ … τₙ.
type Assertion struct {
	Name      string
	Arguments []TyIdx
}

// Ty is the closed sum of type nodes.
//
// Forall appears at the top of a stored type, or nested where a
// higher-rank type is written explicitly; Constrained only directly
// inside a Forall. The rank on a Variable matches the rank of
// the Forall that binds it, which is how instantiation distinguishes
// binders from shadowed or nested quantifiers.
type Ty interface {
	isTy()
}

// TCon is a type constructor such as Int or Array.
type TCon struct {
	Name string
}

// TVar is a bound type variable.
type TVar struct {
	Name string
	Rank int
}

// TUni is a unification variable. Identifiers come from the context's
// fresh counter and are never reused.
type TUni struct {
	Value int
}

// TFun is an n-ary function type.
type TFun struct {
	Arguments []TyIdx
	Result    TyIdx
}

// TApp is a type-level application, head applied to arguments.
type TApp struct {
	Function  TyIdx
	Arguments []TyIdx
}

// TForall quantifies variables at a given rank over an inner type.
type TForall struct {
	Binders []Binder
	Rank    int
	Ty      TyIdx
}

// TConstrained qualifies an inner type with class assertions.
type TConstrained struct {
	Assertions []Assertion
	Ty         TyIdx
}

func (*TCon) isTy()         {}
func (*TVar) isTy()         {}
func (*TUni) isTy()         {}
func (*TFun) isTy()         {}
func (*TApp) isTy()         {}
func (*TForall) isTy()      {}
func (*TConstrained) isTy() {}

// IsPolymorphic reports whether the node is an outermost Forall. The
// unifier refuses to solve a unification variable to such a type.
func IsPolymorphic(t Ty) bool {
	_, ok := t.(*TForall)
	return ok
}
