package solver

import (
	"fmt"
	"sort"

	"github.com/solvent-lang/solvent/internal/ast"
	"github.com/solvent-lang/solvent/internal/infer"
)

// DeferredAssertion is a parked class obligation: entailment could not
// decide it, and NeedsSolution lists the unification variables whose
// solutions would unblock it. An empty list means no instance matched;
// such entries stay parked until termination.
type DeferredAssertion struct {
	Marker        int
	Assertion     ast.Assertion
	NeedsSolution []NeedsSolution
}

// UnresolvedObligationError is produced at termination for every
// obligation still parked.
type UnresolvedObligationError struct {
	Marker    int
	Assertion ast.Assertion
	Text      string
}

func (e *UnresolvedObligationError) Error() string {
	return fmt.Sprintf("unresolved obligation #%d: %s", e.Marker, e.Text)
}

// Solver drains the context's constraint queue to a fixed point. It
// owns all solved state: the unification solution map, accumulated
// errors, entailment evidence, and the parked lists.
type Solver struct {
	Context *infer.Context

	// MaxSteps bounds the number of step() iterations; 0 means
	// unbounded, the reference behavior.
	MaxSteps int

	UnificationSolved  map[int]ast.TyIdx
	UnificationErrors  []error
	EntailmentEvidence map[int]Evidence
	EntailmentDeferred []DeferredAssertion

	unificationDeferred [][2]int

	// Per-marker memory of the instance and bindings chosen on a
	// previous attempt; lets a woken obligation retry the same instance
	// before walking the whole list.
	entailmentInstance     map[int]*ast.Instance
	entailmentSubstitution map[int]map[string]ast.TyIdx
}

// New creates a solver over a context whose queue already holds the
// constraints produced by inference or seeded by the front-end.
func New(ctx *infer.Context) *Solver {
	return &Solver{
		Context:                ctx,
		UnificationSolved:      make(map[int]ast.TyIdx),
		EntailmentEvidence:     make(map[int]Evidence),
		entailmentInstance:     make(map[int]*ast.Instance),
		entailmentSubstitution: make(map[int]map[string]ast.TyIdx),
	}
}

// Step performs one pass: phase A drains the queue, phase B wakes
// parked items whose blockers now have solutions. After Step returns,
// the queue is non-empty only if phase B re-enqueued something.
func (s *Solver) Step() {
	for {
		constraint, ok := s.Context.Volatile.Pop()
		if !ok {
			break
		}
		switch c := constraint.(type) {
		case *infer.ClassEntail:
			s.dispatchEntail(c.Marker, c.Assertion)
		case *infer.UnifyDeep:
			s.dispatchDeep(c.T, c.U)
		case *infer.UnifySolve:
			s.UnificationSolved[c.Var] = c.Ty
		case *infer.UnifyError:
			s.UnificationErrors = append(s.UnificationErrors, c.Err)
		}
	}

	s.wakeDeferredUnifications()
	s.wakeDeferredAssertions()
}

func (s *Solver) dispatchEntail(marker int, assertion ast.Assertion) {
	// Refresh arguments against facts learned earlier in this drain, so
	// the precheck and the matcher see solved variables as concrete.
	assertion = s.refreshAssertion(assertion)

	switch result := s.Entail(marker, assertion).(type) {
	case *Solved:
		s.EntailmentEvidence[marker] = result.Evidence
		s.unifyHead(assertion, result.Head)

	case *Depends:
		s.EntailmentEvidence[marker] = result.Evidence
		s.entailmentInstance[marker] = result.Instance
		s.entailmentSubstitution[marker] = result.Substitution
		s.unifyHead(assertion, result.Head)
		for _, dependency := range result.Dependencies {
			s.Context.Volatile.Push(&infer.ClassEntail{
				Marker:    dependency.Marker,
				Assertion: dependency.Assertion,
			})
		}

	case *Deferred:
		s.EntailmentDeferred = append(s.EntailmentDeferred, DeferredAssertion{
			Marker:        marker,
			Assertion:     assertion,
			NeedsSolution: result.NeedsSolution,
		})
	}
}

// unifyHead unifies each assertion argument with the corresponding
// position of the substituted instance head, propagating concrete types
// back into the caller's unification variables.
func (s *Solver) unifyHead(assertion, head ast.Assertion) {
	n := len(assertion.Arguments)
	if len(head.Arguments) < n {
		n = len(head.Arguments)
	}
	for i := 0; i < n; i++ {
		s.Context.Unify(assertion.Arguments[i], head.Arguments[i])
	}
}

func (s *Solver) dispatchDeep(t, u int) {
	tTy, tSolved := s.UnificationSolved[t]
	uTy, uSolved := s.UnificationSolved[u]
	switch {
	case tSolved && uSolved:
		s.Context.Unify(tTy, uTy)
	case !tSolved && uSolved:
		s.UnificationSolved[t] = uTy
	case tSolved && !uSolved:
		s.UnificationSolved[u] = tTy
	default:
		// Parking avoids spinning on unsolvable pairs.
		s.unificationDeferred = append(s.unificationDeferred, [2]int{t, u})
	}
}

// wakeDeferredUnifications re-enqueues parked UnifyDeep pairs once
// either side has a solution.
func (s *Solver) wakeDeferredUnifications() {
	kept := s.unificationDeferred[:0]
	for _, pair := range s.unificationDeferred {
		_, tSolved := s.UnificationSolved[pair[0]]
		_, uSolved := s.UnificationSolved[pair[1]]
		if tSolved || uSolved {
			s.Context.Volatile.Push(&infer.UnifyDeep{T: pair[0], U: pair[1]})
		} else {
			kept = append(kept, pair)
		}
	}
	s.unificationDeferred = kept
}

// wakeDeferredAssertions substitutes freshly solved variables into
// parked assertions and re-enqueues the ones whose blocker set drained.
// Assertions parked with no blockers (no instance matched) stay parked.
func (s *Solver) wakeDeferredAssertions() {
	kept := s.EntailmentDeferred[:0]
	for _, deferred := range s.EntailmentDeferred {
		if len(deferred.NeedsSolution) == 0 {
			kept = append(kept, deferred)
			continue
		}

		remaining := deferred.NeedsSolution[:0]
		for _, need := range deferred.NeedsSolution {
			if solution, ok := s.UnificationSolved[need.Var]; ok {
				deferred.Assertion.Arguments[need.ArgIndex] = solution
			} else {
				remaining = append(remaining, need)
			}
		}
		deferred.NeedsSolution = remaining

		if len(deferred.NeedsSolution) == 0 {
			s.Context.Volatile.Push(&infer.ClassEntail{
				Marker:    deferred.Marker,
				Assertion: deferred.Assertion,
			})
		} else {
			kept = append(kept, deferred)
		}
	}
	s.EntailmentDeferred = kept
}

// refreshAssertion replaces solved unification variables among the
// assertion's arguments, following alias chains.
func (s *Solver) refreshAssertion(assertion ast.Assertion) ast.Assertion {
	refreshed := ast.CloneAssertion(assertion)
	for i, argument := range refreshed.Arguments {
		refreshed.Arguments[i] = s.chase(argument)
	}
	return refreshed
}

// chase follows solution links from a unification variable to the most
// concrete handle known, guarding against alias cycles.
func (s *Solver) chase(ty ast.TyIdx) ast.TyIdx {
	seen := make(map[int]bool)
	for {
		u, ok := s.Context.Ty(ty).(*ast.TUni)
		if !ok {
			return ty
		}
		if seen[u.Value] {
			return ty
		}
		seen[u.Value] = true
		solution, ok := s.UnificationSolved[u.Value]
		if !ok {
			return ty
		}
		ty = solution
	}
}

// Solve runs Step until the queue is empty and no parked item can be
// woken. With MaxSteps > 0 the loop aborts after that many passes;
// whatever is still parked then surfaces through Finish.
func (s *Solver) Solve() {
	steps := 0
	for {
		s.Step()
		if s.Context.Volatile.QueueLen() == 0 {
			return
		}
		steps++
		if s.MaxSteps > 0 && steps >= s.MaxSteps {
			return
		}
	}
}

// Finish converts every still-parked obligation into an
// UnresolvedObligationError and returns the full diagnostic list:
// accumulated unification errors first, then unresolved obligations
// ordered by marker.
func (s *Solver) Finish() []error {
	diagnostics := append([]error(nil), s.UnificationErrors...)

	deferred := append([]DeferredAssertion(nil), s.EntailmentDeferred...)
	sort.Slice(deferred, func(i, j int) bool {
		return deferred[i].Marker < deferred[j].Marker
	})
	for _, d := range deferred {
		diagnostics = append(diagnostics, &UnresolvedObligationError{
			Marker:    d.Marker,
			Assertion: d.Assertion,
			Text:      s.Context.PrettyAssertion(d.Assertion),
		})
	}
	return diagnostics
}

// Succeeded reports whether the run ended with no errors and no parked
// obligations.
func (s *Solver) Succeeded() bool {
	return len(s.UnificationErrors) == 0 && len(s.EntailmentDeferred) == 0
}

// ResolveTy rebuilds a type with every solved unification variable
// replaced by its solution, transitively. Unsolved variables remain as
// they are; they are acceptable output.
func (s *Solver) ResolveTy(ty ast.TyIdx) ast.TyIdx {
	return s.resolveTy(ty, make(map[int]bool))
}

func (s *Solver) resolveTy(ty ast.TyIdx, visiting map[int]bool) ast.TyIdx {
	switch node := s.Context.Ty(ty).(type) {
	case *ast.TCon, *ast.TVar:
		return ty
	case *ast.TUni:
		if visiting[node.Value] {
			return ty
		}
		solution, ok := s.UnificationSolved[node.Value]
		if !ok {
			return ty
		}
		visiting[node.Value] = true
		resolved := s.resolveTy(solution, visiting)
		delete(visiting, node.Value)
		return resolved
	case *ast.TFun:
		arguments := make([]ast.TyIdx, len(node.Arguments))
		for i, argument := range node.Arguments {
			arguments[i] = s.resolveTy(argument, visiting)
		}
		result := s.resolveTy(node.Result, visiting)
		return s.Context.Volatile.Types.Allocate(&ast.TFun{Arguments: arguments, Result: result})
	case *ast.TApp:
		function := s.resolveTy(node.Function, visiting)
		arguments := make([]ast.TyIdx, len(node.Arguments))
		for i, argument := range node.Arguments {
			arguments[i] = s.resolveTy(argument, visiting)
		}
		return s.Context.Volatile.Types.Allocate(&ast.TApp{Function: function, Arguments: arguments})
	case *ast.TForall:
		inner := s.resolveTy(node.Ty, visiting)
		return s.Context.Volatile.Types.Allocate(&ast.TForall{
			Binders: append([]ast.Binder(nil), node.Binders...),
			Rank:    node.Rank,
			Ty:      inner,
		})
	case *ast.TConstrained:
		assertions := make([]ast.Assertion, len(node.Assertions))
		for i, assertion := range node.Assertions {
			cloned := ast.CloneAssertion(assertion)
			for j, argument := range cloned.Arguments {
				cloned.Arguments[j] = s.resolveTy(argument, visiting)
			}
			assertions[i] = cloned
		}
		inner := s.resolveTy(node.Ty, visiting)
		return s.Context.Volatile.Types.Allocate(&ast.TConstrained{Assertions: assertions, Ty: inner})
	default:
		return ty
	}
}
