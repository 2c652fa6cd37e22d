package infer

import (
	"fmt"

	"github.com/solvent-lang/solvent/internal/ast"
)

// Error values produced by unification and inference. The unification
// errors carry the offending handles plus the rendered types captured at
// construction, so a diagnostic can be produced after the arena has
// moved on.

// CannotUnifyError reports two concrete, incompatible shapes.
type CannotUnifyError struct {
	T, U         ast.TyIdx
	TText, UText string
}

func (e *CannotUnifyError) Error() string {
	return fmt.Sprintf("cannot unify %s with %s", e.TText, e.UText)
}

// ImpredicativeTypeError reports an attempt to solve a unification
// variable to a polymorphic type.
type ImpredicativeTypeError struct {
	Var    int
	Ty     ast.TyIdx
	TyText string
}

func (e *ImpredicativeTypeError) Error() string {
	return fmt.Sprintf("cannot solve ?%d to the polymorphic type %s", e.Var, e.TyText)
}

// InfiniteTypeError reports an occurs check failure: the variable
// appears inside its own candidate solution.
type InfiniteTypeError struct {
	Var    int
	Ty     ast.TyIdx
	TyText string
}

func (e *InfiniteTypeError) Error() string {
	return fmt.Sprintf("infinite type: ?%d occurs in %s", e.Var, e.TyText)
}

// InvalidArityError reports function or application nodes of different
// arity meeting during unification.
type InvalidArityError struct {
	T            ast.TyIdx
	TArity       int
	U            ast.TyIdx
	UArity       int
	TText, UText string
}

func (e *InvalidArityError) Error() string {
	return fmt.Sprintf("arity mismatch: %s takes %d argument(s), %s takes %d",
		e.TText, e.TArity, e.UText, e.UArity)
}

// UnboundNameError reports an environment lookup failure. It aborts the
// current inference walk but not the run.
type UnboundNameError struct {
	Kind string // "constructor", "value", or "expression" for an unknown node
	Name string
}

func (e *UnboundNameError) Error() string {
	return fmt.Sprintf("unbound %s: %s", e.Kind, e.Name)
}
