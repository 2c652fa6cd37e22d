package solver

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/solvent-lang/solvent/internal/ast"
	"github.com/solvent-lang/solvent/internal/infer"
	"github.com/solvent-lang/solvent/internal/reader"
)

// newFixture builds a context with the environment used throughout:
// identity : forall a. a -> a, zero : Int, Eq with Eq Int and
// Eq (Array a) <= Eq a, and Append with a fundep from the first two
// positions to the third.
func newFixture(t *testing.T) (*infer.Context, *reader.Reader) {
	t.Helper()
	ctx := infer.NewContext()
	rd := reader.New(ctx)

	mustTy := func(src string) ast.TyIdx {
		ty, err := rd.ParseTy(src)
		if err != nil {
			t.Fatalf("parse type %q: %v", src, err)
		}
		return ty
	}
	mustAssertion := func(src string) ast.Assertion {
		assertion, err := rd.ParseAssertion(src)
		if err != nil {
			t.Fatalf("parse assertion %q: %v", src, err)
		}
		return assertion
	}

	ctx.Environment.InsertValue("identity", mustTy("forall a. a -> a"))
	ctx.Environment.InsertValue("zero", mustTy("Int"))

	ctx.Environment.InsertClass(&ast.Class{Name: "Eq", Parameters: []string{"a"}})
	ctx.Environment.InsertInstance("Eq", &ast.Instance{
		Assertion: mustAssertion("Eq Int"),
	})
	ctx.Environment.InsertInstance("Eq", &ast.Instance{
		Assertion:    mustAssertion("Eq (Array a)"),
		Dependencies: []ast.Assertion{mustAssertion("Eq a")},
	})

	ctx.Environment.InsertClass(&ast.Class{
		Name:       "Append",
		Parameters: []string{"xs", "ys", "zs"},
		FunDeps:    []ast.FunDep{{Domain: []int{0, 1}, Codomain: []int{2}}},
	})
	ctx.Environment.InsertInstance("Append", &ast.Instance{
		Assertion: mustAssertion("Append Nil ys ys"),
	})
	ctx.Environment.InsertInstance("Append", &ast.Instance{
		Assertion:    mustAssertion("Append (Cons x xs) ys (Cons x zs)"),
		Dependencies: []ast.Assertion{mustAssertion("Append xs ys zs")},
	})

	return ctx, rd
}

func mustExpr(t *testing.T, rd *reader.Reader, src string) ast.ExprIdx {
	t.Helper()
	expr, err := rd.ParseExpr(src)
	if err != nil {
		t.Fatalf("parse expr %q: %v", src, err)
	}
	return expr
}

// Scenario 1: identity application with a monomorphic argument.
func TestSolveIdentityApplication(t *testing.T) {
	ctx, rd := newFixture(t)

	result, err := ctx.Infer(mustExpr(t, rd, "identity zero"))
	if err != nil {
		t.Fatalf("Infer: %v", err)
	}

	s := New(ctx)
	s.Solve()

	if !s.Succeeded() {
		t.Fatalf("run failed: %v, deferred %v", s.UnificationErrors, s.EntailmentDeferred)
	}
	if got := ctx.PrettyTy(s.ResolveTy(result)); got != "Int" {
		t.Errorf("resolved type = %q, want Int", got)
	}
}

// Scenario 2: a concrete class witness.
func TestSolveConcreteWitness(t *testing.T) {
	ctx, rd := newFixture(t)

	assertion, err := rd.ParseAssertion("Eq Int")
	if err != nil {
		t.Fatal(err)
	}
	marker := ctx.FreshMarker()
	ctx.Volatile.Push(&infer.ClassEntail{Marker: marker, Assertion: assertion})

	s := New(ctx)
	s.Solve()

	evidence, ok := s.EntailmentEvidence[marker]
	if !ok {
		t.Fatal("no evidence recorded")
	}
	dictionary, ok := evidence.(*Dictionary)
	if !ok || len(dictionary.Dependencies) != 0 {
		t.Errorf("evidence = %v, want an empty dictionary", evidence)
	}
	if len(s.EntailmentDeferred) != 0 {
		t.Errorf("deferred = %v, want none", s.EntailmentDeferred)
	}
}

// Scenario 3: an obligation deferred on a unification variable, then
// resolved once the variable is solved.
func TestSolveDeferredThenResolved(t *testing.T) {
	ctx, rd := newFixture(t)

	u := ctx.FreshUnification()
	uVar := (*ctx.Volatile.Types.Get(u)).(*ast.TUni).Value

	marker := ctx.FreshMarker()
	ctx.Volatile.Push(&infer.ClassEntail{
		Marker:    marker,
		Assertion: ast.Assertion{Name: "Eq", Arguments: []ast.TyIdx{u}},
	})
	intTy, err := rd.ParseTy("Int")
	if err != nil {
		t.Fatal(err)
	}
	ctx.Volatile.Push(&infer.UnifySolve{Var: uVar, Ty: intTy})

	s := New(ctx)

	// One step: phase A parks the obligation, then records the
	// solution; phase B substitutes and re-enqueues.
	s.Step()
	if len(s.EntailmentDeferred) != 0 {
		t.Fatalf("phase B should have woken the obligation, still parked: %v", s.EntailmentDeferred)
	}
	if ctx.Volatile.QueueLen() != 1 {
		t.Fatalf("queue length after step = %d, want 1", ctx.Volatile.QueueLen())
	}

	s.Solve()
	evidence, ok := s.EntailmentEvidence[marker]
	if !ok {
		t.Fatal("no evidence after resumption")
	}
	if dictionary := evidence.(*Dictionary); len(dictionary.Dependencies) != 0 {
		t.Errorf("evidence = %v, want Dictionary([])", evidence)
	}
}

// Scenario 4: a recursive class dependency.
func TestSolveRecursiveDependency(t *testing.T) {
	ctx, rd := newFixture(t)

	assertion, err := rd.ParseAssertion("Eq (Array Int)")
	if err != nil {
		t.Fatal(err)
	}
	m0 := ctx.FreshMarker()
	ctx.Volatile.Push(&infer.ClassEntail{Marker: m0, Assertion: assertion})

	s := New(ctx)
	s.Solve()

	if !s.Succeeded() {
		t.Fatalf("run failed: %v, deferred %v", s.UnificationErrors, s.EntailmentDeferred)
	}

	outer, ok := s.EntailmentEvidence[m0].(*Dictionary)
	if !ok || len(outer.Dependencies) != 1 {
		t.Fatalf("outer evidence = %v, want Dictionary([ref])", s.EntailmentEvidence[m0])
	}
	ref, ok := outer.Dependencies[0].(*Ref)
	if !ok {
		t.Fatalf("outer dependency = %T, want *Ref", outer.Dependencies[0])
	}
	if ref.Marker <= m0 {
		t.Errorf("dependency marker %d should be greater than parent %d", ref.Marker, m0)
	}
	inner, ok := s.EntailmentEvidence[ref.Marker].(*Dictionary)
	if !ok || len(inner.Dependencies) != 0 {
		t.Errorf("inner evidence = %v, want Dictionary([])", s.EntailmentEvidence[ref.Marker])
	}
}

// Scenario 5: functional-dependency-directed matching over Append.
func TestSolveAppendFunctionalDependency(t *testing.T) {
	ctx, rd := newFixture(t)

	assertion, err := rd.ParseAssertion("Append (Cons N1 (Cons N0 Nil)) (Cons N1 Nil) ?u")
	if err != nil {
		t.Fatal(err)
	}
	m0 := ctx.FreshMarker()
	ctx.Volatile.Push(&infer.ClassEntail{Marker: m0, Assertion: assertion})

	s := New(ctx)
	s.Solve()

	if !s.Succeeded() {
		t.Fatalf("run failed: %v, deferred %v", s.UnificationErrors, s.EntailmentDeferred)
	}

	hole := rd.Holes["u"]
	if got := ctx.PrettyTy(s.ResolveTy(hole)); got != "Cons N1 (Cons N0 (Cons N1 Nil))" {
		t.Errorf("?u = %q, want appended list", got)
	}

	// A chain of three markers ending in an empty dictionary.
	chain := 0
	marker := m0
	for {
		dictionary, ok := s.EntailmentEvidence[marker].(*Dictionary)
		if !ok {
			t.Fatalf("marker %d: evidence %v", marker, s.EntailmentEvidence[marker])
		}
		chain++
		if len(dictionary.Dependencies) == 0 {
			break
		}
		ref := dictionary.Dependencies[0].(*Ref)
		if ref.Marker <= marker {
			t.Fatalf("marker ordering violated: %d -> %d", marker, ref.Marker)
		}
		marker = ref.Marker
	}
	if chain != 3 {
		t.Errorf("evidence chain length = %d, want 3", chain)
	}
}

// Scenario 6: the occurs check surfaces as an error, not a solution.
func TestSolveOccursCheck(t *testing.T) {
	ctx, _ := newFixture(t)

	u := ctx.FreshUnification()
	loop := ctx.Volatile.Types.Allocate(&ast.TFun{
		Arguments: []ast.TyIdx{u},
		Result:    u,
	})
	ctx.Unify(u, loop)

	s := New(ctx)
	s.Solve()

	if len(s.UnificationErrors) != 1 {
		t.Fatalf("errors = %v, want exactly one", s.UnificationErrors)
	}
	var infinite *infer.InfiniteTypeError
	if !errors.As(s.UnificationErrors[0], &infinite) {
		t.Errorf("expected InfiniteTypeError, got %v", s.UnificationErrors[0])
	}
	if len(s.UnificationSolved) != 0 {
		t.Errorf("no solution may be recorded, got %v", s.UnificationSolved)
	}
}

func TestSolveDeepAliasing(t *testing.T) {
	ctx, rd := newFixture(t)

	intTy, err := rd.ParseTy("Int")
	if err != nil {
		t.Fatal(err)
	}
	ctx.Volatile.Push(&infer.UnifyDeep{T: 0, U: 1})
	ctx.Volatile.Push(&infer.UnifySolve{Var: 1, Ty: intTy})

	s := New(ctx)
	s.Solve()

	if got, ok := s.UnificationSolved[0]; !ok || got != intTy {
		t.Errorf("variable 0 should alias to Int, got %v", got)
	}
}

func TestSolveDeepBothUnsolvedStaysParked(t *testing.T) {
	ctx, _ := newFixture(t)
	ctx.Volatile.Push(&infer.UnifyDeep{T: 7, U: 8})

	s := New(ctx)
	s.Solve()

	if len(s.unificationDeferred) != 1 {
		t.Errorf("deferred deep pairs = %v, want one", s.unificationDeferred)
	}
}

func TestSolveUnresolvedObligationAtTermination(t *testing.T) {
	ctx, rd := newFixture(t)

	assertion, err := rd.ParseAssertion("Eq Bool")
	if err != nil {
		t.Fatal(err)
	}
	marker := ctx.FreshMarker()
	ctx.Volatile.Push(&infer.ClassEntail{Marker: marker, Assertion: assertion})

	s := New(ctx)
	s.Solve()

	if s.Succeeded() {
		t.Fatal("run should not succeed with an unmatched obligation")
	}
	diagnostics := s.Finish()
	if len(diagnostics) != 1 {
		t.Fatalf("diagnostics = %v, want one", diagnostics)
	}
	var unresolved *UnresolvedObligationError
	if !errors.As(diagnostics[0], &unresolved) {
		t.Fatalf("expected UnresolvedObligationError, got %v", diagnostics[0])
	}
	if unresolved.Marker != marker {
		t.Errorf("marker = %d, want %d", unresolved.Marker, marker)
	}
}

// Deferral progress: the blocker multiset never grows across steps.
func TestSolveDeferralMonotoneProgress(t *testing.T) {
	ctx, _ := newFixture(t)

	u := ctx.FreshUnification()
	v := ctx.FreshUnification()
	ctx.Volatile.Push(&infer.ClassEntail{
		Marker:    ctx.FreshMarker(),
		Assertion: ast.Assertion{Name: "Eq", Arguments: []ast.TyIdx{u}},
	})
	ctx.Volatile.Push(&infer.ClassEntail{
		Marker:    ctx.FreshMarker(),
		Assertion: ast.Assertion{Name: "Eq", Arguments: []ast.TyIdx{v}},
	})

	s := New(ctx)
	previous := -1
	for i := 0; i < 5; i++ {
		s.Step()
		blockers := 0
		for _, deferred := range s.EntailmentDeferred {
			blockers += len(deferred.NeedsSolution)
		}
		if previous >= 0 && blockers > previous {
			t.Fatalf("blocker count grew: %d -> %d", previous, blockers)
		}
		previous = blockers
	}
	if previous != 2 {
		t.Errorf("blockers = %d, want 2 (both obligations parked)", previous)
	}
}

// Determinism: identical inputs produce identical solutions and
// evidence, including identifier assignment.
func TestSolveDeterminism(t *testing.T) {
	run := func() (map[int]string, map[int]string) {
		ctx, rd := newFixture(t)
		assertion, err := rd.ParseAssertion("Eq (Array (Array Int))")
		if err != nil {
			t.Fatal(err)
		}
		ctx.Volatile.Push(&infer.ClassEntail{Marker: ctx.FreshMarker(), Assertion: assertion})
		result, err := ctx.Infer(mustExpr(t, rd, "identity zero"))
		if err != nil {
			t.Fatal(err)
		}
		s := New(ctx)
		s.Solve()

		solutions := make(map[int]string)
		for id, ty := range s.UnificationSolved {
			solutions[id] = ctx.PrettyTy(s.ResolveTy(ty))
		}
		evidence := make(map[int]string)
		for marker, e := range s.EntailmentEvidence {
			evidence[marker] = ResolveEvidence(e, s.EntailmentEvidence).(*Dictionary).String()
		}
		solutions[-1] = ctx.PrettyTy(s.ResolveTy(result))
		return solutions, evidence
	}

	solutions1, evidence1 := run()
	solutions2, evidence2 := run()

	if diff := cmp.Diff(solutions1, solutions2); diff != "" {
		t.Errorf("solutions differ between runs (-first +second):\n%s", diff)
	}
	if diff := cmp.Diff(evidence1, evidence2); diff != "" {
		t.Errorf("evidence differs between runs (-first +second):\n%s", diff)
	}
}
