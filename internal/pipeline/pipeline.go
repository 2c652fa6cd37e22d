// Package pipeline drives a whole checker run: it pushes the goals from
// an environment manifest (or the REPL) into a context, runs the solver
// to its fixed point, and gathers the outputs the back-end consumes —
// the solution map, the evidence table, and structured diagnostics.
package pipeline

import (
	"github.com/solvent-lang/solvent/internal/ast"
	"github.com/solvent-lang/solvent/internal/envfile"
	"github.com/solvent-lang/solvent/internal/infer"
	"github.com/solvent-lang/solvent/internal/solver"
)

// GoalOutcome reports what one goal produced.
type GoalOutcome struct {
	Source string
	Kind   envfile.GoalKind

	// Marker keys the goal's evidence for entail goals.
	Marker int

	// Ty is the inferred type for infer goals, with all solved
	// unification variables resolved.
	Ty ast.TyIdx

	// Err is a per-goal inference failure (an unbound name, for
	// example). It aborts only that goal.
	Err error
}

// Outcome is a finished run.
type Outcome struct {
	Goals       []GoalOutcome
	Solver      *solver.Solver
	Diagnostics []error
}

// Succeeded reports whether the run met the success condition: no
// diagnostics and every goal inferred cleanly.
func (o *Outcome) Succeeded() bool {
	if len(o.Diagnostics) > 0 {
		return false
	}
	for _, goal := range o.Goals {
		if goal.Err != nil {
			return false
		}
	}
	return true
}

// Run executes goals against a populated context. maxSteps bounds the
// solver loop; 0 means unbounded.
func Run(ctx *infer.Context, goals []envfile.Goal, maxSteps int) *Outcome {
	outcome := &Outcome{}

	for _, goal := range goals {
		result := GoalOutcome{Source: goal.Source, Kind: goal.Kind}
		switch goal.Kind {
		case envfile.GoalEntail:
			result.Marker = ctx.FreshMarker()
			ctx.Volatile.Push(&infer.ClassEntail{
				Marker:    result.Marker,
				Assertion: goal.Assertion,
			})
		case envfile.GoalInfer:
			ty, err := ctx.Infer(goal.Expr)
			if err != nil {
				result.Err = err
			} else {
				result.Ty = ty
			}
		}
		outcome.Goals = append(outcome.Goals, result)
	}

	s := solver.New(ctx)
	s.MaxSteps = maxSteps
	s.Solve()
	outcome.Solver = s
	outcome.Diagnostics = s.Finish()

	for i := range outcome.Goals {
		goal := &outcome.Goals[i]
		if goal.Kind == envfile.GoalInfer && goal.Err == nil {
			goal.Ty = s.ResolveTy(goal.Ty)
		}
	}

	return outcome
}
