package diag

import (
	"errors"

	"github.com/solvent-lang/solvent/internal/infer"
	"github.com/solvent-lang/solvent/internal/solver"
)

// FromError maps a checker error value onto a coded report. Unknown
// error types get a generic TC001 report so nothing is dropped.
func FromError(err error) *Report {
	var (
		cannotUnify   *infer.CannotUnifyError
		impredicative *infer.ImpredicativeTypeError
		infinite      *infer.InfiniteTypeError
		arity         *infer.InvalidArityError
		unbound       *infer.UnboundNameError
		unresolved    *solver.UnresolvedObligationError
	)
	switch {
	case errors.As(err, &cannotUnify):
		return New(TC001, "typecheck", err.Error()).
			With("left", cannotUnify.TText).
			With("right", cannotUnify.UText)
	case errors.As(err, &impredicative):
		return New(TC002, "typecheck", err.Error()).
			With("variable", impredicative.Var).
			With("type", impredicative.TyText)
	case errors.As(err, &infinite):
		return New(TC003, "typecheck", err.Error()).
			With("variable", infinite.Var).
			With("type", infinite.TyText)
	case errors.As(err, &arity):
		return New(TC004, "typecheck", err.Error()).
			With("left_arity", arity.TArity).
			With("right_arity", arity.UArity)
	case errors.As(err, &unbound):
		return New(TC005, "typecheck", err.Error()).
			With("kind", unbound.Kind).
			With("name", unbound.Name)
	case errors.As(err, &unresolved):
		return New(TC006, "typecheck", err.Error()).
			With("marker", unresolved.Marker).
			With("assertion", unresolved.Text)
	default:
		return New(TC001, "typecheck", err.Error())
	}
}
