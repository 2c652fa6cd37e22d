package solver

import (
	"github.com/solvent-lang/solvent/internal/arena"
	"github.com/solvent-lang/solvent/internal/ast"
	"github.com/solvent-lang/solvent/internal/infer"
)

// NeedsSolution records an assertion argument that must resolve to a
// concrete type before matching can be attempted: the argument's
// position and the unification variable sitting there.
type NeedsSolution struct {
	ArgIndex int
	Var      int
}

// Dependency pairs a freshly allocated marker with an instance
// dependency that must itself be entailed.
type Dependency struct {
	Marker    int
	Assertion ast.Assertion
}

// EntailResult is the closed sum of entailment outcomes.
type EntailResult interface {
	isEntailResult()
}

// Solved means the assertion matched an instance with no dependencies.
// Head is the instance head after substitution, as seen through the
// match; the solver unifies it against the assertion's arguments to
// propagate concrete types back to the caller.
type Solved struct {
	Evidence Evidence
	Head     ast.Assertion
}

// Depends means the assertion matched an instance whose dependencies
// must now be entailed under fresh markers. Instance and Substitution
// are remembered per-marker so a woken obligation can retry the same
// instance without walking the whole list.
type Depends struct {
	Evidence     Evidence
	Head         ast.Assertion
	Dependencies []Dependency
	Instance     *ast.Instance
	Substitution map[string]ast.TyIdx
}

// Deferred means the assertion cannot be decided yet. A non-empty
// NeedsSolution lists the unification variables that block the
// functional-dependency precheck; an empty one means no instance
// matched, which stays parked until termination in case later
// unification facts permit a match.
type Deferred struct {
	NeedsSolution []NeedsSolution
}

func (*Solved) isEntailResult()   {}
func (*Depends) isEntailResult()  {}
func (*Deferred) isEntailResult() {}

// Entail decides whether an assertion is provable from the instance
// database right now.
//
// The solvability precheck comes first: positions in the domain of some
// functional dependency (all positions, when the class declares none)
// must hold concrete types; any still-unsolved unification variable
// there defers the obligation. Then instances are tried in declaration
// order, first match wins. A marker whose previous attempt recorded an
// instance retries that instance before the full walk.
func (s *Solver) Entail(marker int, assertion ast.Assertion) EntailResult {
	if needs := s.needsSolution(assertion); len(needs) > 0 {
		return &Deferred{NeedsSolution: needs}
	}

	if cached, ok := s.entailmentInstance[marker]; ok {
		if result := s.entailWith(&assertion, cached); result != nil {
			return result
		}
	}

	for _, instance := range s.Context.Environment.Instances(assertion.Name) {
		if result := s.entailWith(&assertion, instance); result != nil {
			return result
		}
	}

	return &Deferred{}
}

// needsSolution implements the functional-dependency precheck.
func (s *Solver) needsSolution(assertion ast.Assertion) []NeedsSolution {
	var positions []int
	if class, ok := s.Context.Environment.LookupClass(assertion.Name); ok {
		positions = class.DeterminedPositions()
	} else {
		positions = make([]int, len(assertion.Arguments))
		for i := range positions {
			positions[i] = i
		}
	}

	var needs []NeedsSolution
	for _, i := range positions {
		if i >= len(assertion.Arguments) {
			continue
		}
		if u, ok := s.Context.Ty(assertion.Arguments[i]).(*ast.TUni); ok {
			if _, solved := s.UnificationSolved[u.Value]; !solved {
				needs = append(needs, NeedsSolution{ArgIndex: i, Var: u.Value})
			}
		}
	}
	return needs
}

// entailWith attempts a single instance; nil means the instance does
// not match and the caller should try the next one.
func (s *Solver) entailWith(assertion *ast.Assertion, instance *ast.Instance) EntailResult {
	substitutions := make(map[string]ast.TyIdx)

	instanceArguments := instance.Assertion.Arguments
	assertionArguments := assertion.Arguments
	if len(instanceArguments) != len(assertionArguments) {
		return nil
	}
	for i := range instanceArguments {
		if !s.matchArgument(substitutions, instanceArguments[i], assertionArguments[i]) {
			return nil
		}
	}

	// Substitute-generalizing-free: rebuild the head and dependencies
	// under the accumulated bindings, mapping any instance variable not
	// yet bound to a fresh unification variable.
	gen := &generalizer{ctx: s.Context, substitutions: substitutions}
	head := ast.CloneAssertion(instance.Assertion)
	head.Arguments = visitArguments(gen, head.Arguments)

	if len(instance.Dependencies) == 0 {
		return &Solved{
			Evidence: &Dictionary{},
			Head:     head,
		}
	}

	dependencies := make([]Dependency, len(instance.Dependencies))
	leaves := make([]Evidence, len(instance.Dependencies))
	for i, dependency := range instance.Dependencies {
		substituted := ast.CloneAssertion(dependency)
		substituted.Arguments = visitArguments(gen, substituted.Arguments)
		marker := s.Context.FreshMarker()
		dependencies[i] = Dependency{Marker: marker, Assertion: substituted}
		leaves[i] = &Ref{Marker: marker}
	}

	return &Depends{
		Evidence:     &Dictionary{Dependencies: leaves},
		Head:         head,
		Dependencies: dependencies,
		Instance:     instance,
		Substitution: substitutions,
	}
}

// matchArgument matches one instance argument (the pattern) against one
// assertion argument (the subject). Matching is one-sided: instance
// variables bind to whatever the subject holds, subject unification
// variables match anything (the solver unifies them against the
// substituted head afterwards), and concrete shapes must agree.
func (s *Solver) matchArgument(substitutions map[string]ast.TyIdx, pattern, subject ast.TyIdx) bool {
	switch p := s.Context.Ty(pattern).(type) {
	case *ast.TCon:
		switch sub := s.Context.Ty(subject).(type) {
		case *ast.TCon:
			return p.Name == sub.Name
		case *ast.TUni:
			return true
		default:
			return false
		}

	case *ast.TVar:
		if sub, ok := s.Context.Ty(subject).(*ast.TVar); ok {
			if p.Name == sub.Name && p.Rank == sub.Rank {
				return true
			}
		}
		if bound, ok := substitutions[p.Name]; ok {
			return s.matchArgument(substitutions, bound, subject)
		}
		substitutions[p.Name] = subject
		return true

	case *ast.TUni:
		if sub, ok := s.Context.Ty(subject).(*ast.TUni); ok {
			return p.Value == sub.Value
		}
		return false

	case *ast.TFun:
		switch sub := s.Context.Ty(subject).(type) {
		case *ast.TFun:
			if len(p.Arguments) != len(sub.Arguments) {
				return false
			}
			for i := range p.Arguments {
				if !s.matchArgument(substitutions, p.Arguments[i], sub.Arguments[i]) {
					return false
				}
			}
			return s.matchArgument(substitutions, p.Result, sub.Result)
		case *ast.TUni:
			return true
		default:
			return false
		}

	case *ast.TApp:
		switch sub := s.Context.Ty(subject).(type) {
		case *ast.TApp:
			if len(p.Arguments) != len(sub.Arguments) {
				return false
			}
			if !s.matchArgument(substitutions, p.Function, sub.Function) {
				return false
			}
			for i := range p.Arguments {
				if !s.matchArgument(substitutions, p.Arguments[i], sub.Arguments[i]) {
					return false
				}
			}
			return true
		case *ast.TUni:
			return true
		default:
			return false
		}

	default:
		// Forall/Constrained never appear in instance heads.
		_, subjectIsUni := s.Context.Ty(subject).(*ast.TUni)
		return subjectIsUni
	}
}

// generalizer substitutes bound instance variables and invents fresh
// unification variables for unbound ones, extending the substitution as
// it goes.
type generalizer struct {
	ctx           *infer.Context
	substitutions map[string]ast.TyIdx
}

func (g *generalizer) Arena() *arena.Arena[ast.Ty] {
	return g.ctx.Volatile.Types
}

func (g *generalizer) VisitTy(ty ast.TyIdx) ast.TyIdx {
	if v, ok := g.ctx.Ty(ty).(*ast.TVar); ok {
		if bound, ok := g.substitutions[v.Name]; ok {
			return bound
		}
		fresh := g.ctx.FreshUnification()
		g.substitutions[v.Name] = fresh
		return fresh
	}
	return ast.WalkTy(g, ty)
}

func (g *generalizer) VisitAssertions(assertions []ast.Assertion) []ast.Assertion {
	return ast.WalkAssertions(g, assertions)
}

func visitArguments(g *generalizer, arguments []ast.TyIdx) []ast.TyIdx {
	out := make([]ast.TyIdx, len(arguments))
	for i, argument := range arguments {
		out[i] = g.VisitTy(argument)
	}
	return out
}
