package infer

import "github.com/solvent-lang/solvent/internal/ast"

// Unify walks two types structurally, one level at a time, and emits
// constraints describing what it learned: UnifySolve when a unification
// variable meets a concrete type, UnifyDeep when two distinct
// unification variables meet, UnifyError on a definite mismatch. It records nothing itself;
// the solver interprets the emissions.
func (c *Context) Unify(t, u ast.TyIdx) {
	switch tn := c.Ty(t).(type) {
	case *ast.TCon:
		switch un := c.Ty(u).(type) {
		case *ast.TCon:
			if tn.Name != un.Name {
				c.emitCannotUnify(t, u)
			}
		case *ast.TUni:
			c.solveVariable(un.Value, t)
		default:
			c.emitCannotUnify(t, u)
		}

	case *ast.TVar:
		switch un := c.Ty(u).(type) {
		case *ast.TVar:
			if tn.Name != un.Name || tn.Rank != un.Rank {
				c.emitCannotUnify(t, u)
			}
		case *ast.TUni:
			c.solveVariable(un.Value, t)
		default:
			c.emitCannotUnify(t, u)
		}

	case *ast.TUni:
		switch un := c.Ty(u).(type) {
		case *ast.TUni:
			if tn.Value != un.Value {
				c.Volatile.Push(&UnifyDeep{T: tn.Value, U: un.Value})
			}
		default:
			c.solveVariable(tn.Value, u)
		}

	case *ast.TFun:
		switch un := c.Ty(u).(type) {
		case *ast.TFun:
			if len(tn.Arguments) != len(un.Arguments) {
				c.Volatile.Push(&UnifyError{Err: &InvalidArityError{
					T:      t,
					TArity: len(tn.Arguments),
					U:      u,
					UArity: len(un.Arguments),
					TText:  c.PrettyTy(t),
					UText:  c.PrettyTy(u),
				}})
				return
			}
			tArguments := append([]ast.TyIdx(nil), tn.Arguments...)
			uArguments := append([]ast.TyIdx(nil), un.Arguments...)
			tResult, uResult := tn.Result, un.Result
			for i := range tArguments {
				c.Unify(tArguments[i], uArguments[i])
			}
			c.Unify(tResult, uResult)
		case *ast.TUni:
			c.solveVariable(un.Value, t)
		default:
			c.emitCannotUnify(t, u)
		}

	case *ast.TApp:
		switch un := c.Ty(u).(type) {
		case *ast.TApp:
			if len(tn.Arguments) != len(un.Arguments) {
				c.Volatile.Push(&UnifyError{Err: &InvalidArityError{
					T:      t,
					TArity: len(tn.Arguments),
					U:      u,
					UArity: len(un.Arguments),
					TText:  c.PrettyTy(t),
					UText:  c.PrettyTy(u),
				}})
				return
			}
			tFunction, uFunction := tn.Function, un.Function
			tArguments := append([]ast.TyIdx(nil), tn.Arguments...)
			uArguments := append([]ast.TyIdx(nil), un.Arguments...)
			c.Unify(tFunction, uFunction)
			for i := range tArguments {
				c.Unify(tArguments[i], uArguments[i])
			}
		case *ast.TUni:
			c.solveVariable(un.Value, t)
		default:
			c.emitCannotUnify(t, u)
		}

	case *ast.TForall, *ast.TConstrained:
		if un, ok := c.Ty(u).(*ast.TUni); ok {
			c.solveVariable(un.Value, t)
			return
		}
		c.emitCannotUnify(t, u)

	default:
		c.emitCannotUnify(t, u)
	}
}

// solveVariable emits UnifySolve(v, ty) after the predicativity and
// occurs checks. Polymorphic solutions are refused; a variable occurring
// in its own solution is an infinite type.
func (c *Context) solveVariable(v int, ty ast.TyIdx) {
	if ast.IsPolymorphic(c.Ty(ty)) {
		c.Volatile.Push(&UnifyError{Err: &ImpredicativeTypeError{
			Var:    v,
			Ty:     ty,
			TyText: c.PrettyTy(ty),
		}})
		return
	}
	if c.Occurs(v, ty) {
		c.Volatile.Push(&UnifyError{Err: &InfiniteTypeError{
			Var:    v,
			Ty:     ty,
			TyText: c.PrettyTy(ty),
		}})
		return
	}
	c.Volatile.Push(&UnifySolve{Var: v, Ty: ty})
}

// Occurs reports whether unification variable v appears anywhere in ty,
// descending under Forall and Constrained (including assertion
// arguments).
func (c *Context) Occurs(v int, ty ast.TyIdx) bool {
	switch node := c.Ty(ty).(type) {
	case *ast.TCon, *ast.TVar:
		return false
	case *ast.TUni:
		return node.Value == v
	case *ast.TFun:
		for _, argument := range node.Arguments {
			if c.Occurs(v, argument) {
				return true
			}
		}
		return c.Occurs(v, node.Result)
	case *ast.TApp:
		if c.Occurs(v, node.Function) {
			return true
		}
		for _, argument := range node.Arguments {
			if c.Occurs(v, argument) {
				return true
			}
		}
		return false
	case *ast.TForall:
		return c.Occurs(v, node.Ty)
	case *ast.TConstrained:
		for _, assertion := range node.Assertions {
			for _, argument := range assertion.Arguments {
				if c.Occurs(v, argument) {
					return true
				}
			}
		}
		return c.Occurs(v, node.Ty)
	default:
		return false
	}
}

func (c *Context) emitCannotUnify(t, u ast.TyIdx) {
	c.Volatile.Push(&UnifyError{Err: &CannotUnifyError{
		T:     t,
		U:     u,
		TText: c.PrettyTy(t),
		UText: c.PrettyTy(u),
	}})
}
