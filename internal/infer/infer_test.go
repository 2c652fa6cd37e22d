package infer

import (
	"errors"
	"testing"

	"github.com/solvent-lang/solvent/internal/ast"
)

func conE(c *Context, name string) ast.ExprIdx {
	return c.Volatile.Exprs.Allocate(&ast.ECon{Name: name})
}

func varE(c *Context, name string) ast.ExprIdx {
	return c.Volatile.Exprs.Allocate(&ast.EVar{Name: name})
}

func appE(c *Context, function ast.ExprIdx, arguments ...ast.ExprIdx) ast.ExprIdx {
	return c.Volatile.Exprs.Allocate(&ast.EApp{Function: function, Arguments: arguments})
}

func lamE(c *Context, body ast.ExprIdx, parameters ...string) ast.ExprIdx {
	return c.Volatile.Exprs.Allocate(&ast.ELam{Parameters: parameters, Body: body})
}

func TestInferVariableLookup(t *testing.T) {
	c := NewContext()
	intTy := conT(c, "Int")
	c.Environment.InsertValue("zero", intTy)

	got, err := c.Infer(varE(c, "zero"))
	if err != nil {
		t.Fatalf("Infer: %v", err)
	}
	if got != intTy {
		t.Errorf("Infer returned %v, want the bound handle %v", got, intTy)
	}
}

func TestInferUnboundName(t *testing.T) {
	c := NewContext()

	_, err := c.Infer(varE(c, "missing"))
	var unbound *UnboundNameError
	if !errors.As(err, &unbound) {
		t.Fatalf("expected UnboundNameError, got %v", err)
	}
	if unbound.Kind != "value" || unbound.Name != "missing" {
		t.Errorf("unexpected error details: %+v", unbound)
	}

	_, err = c.Infer(conE(c, "Missing"))
	if !errors.As(err, &unbound) {
		t.Fatalf("expected UnboundNameError for constructor, got %v", err)
	}
	if unbound.Kind != "constructor" {
		t.Errorf("kind = %q, want constructor", unbound.Kind)
	}
}

func TestInferApplicationEmitsMediumUnification(t *testing.T) {
	c := NewContext()
	a := varT(c, "a", 0)
	identity := forallT(c, 0, funT(c, []ast.TyIdx{a}, a), "a")
	c.Environment.InsertValue("identity", identity)
	c.Environment.InsertValue("zero", conT(c, "Int"))

	result, err := c.Infer(appE(c, varE(c, "identity"), varE(c, "zero")))
	if err != nil {
		t.Fatalf("Infer: %v", err)
	}
	if _, ok := c.Ty(result).(*ast.TUni); !ok {
		t.Fatalf("application result should be a fresh unification variable, got %T", c.Ty(result))
	}

	constraints := drain(c)
	var solves, deeps int
	for _, constraint := range constraints {
		switch constraint.(type) {
		case *UnifySolve:
			solves++
		case *UnifyDeep:
			deeps++
		case *UnifyError:
			t.Errorf("unexpected unify error: %v", constraint)
		}
	}
	// ?a against Int, then ?a against the fresh result.
	if solves != 1 || deeps != 1 {
		t.Errorf("constraints = %d solves, %d deeps; want 1 and 1", solves, deeps)
	}
}

func TestInferLambdaScoping(t *testing.T) {
	c := NewContext()

	got, err := c.Infer(lamE(c, varE(c, "x"), "x"))
	if err != nil {
		t.Fatalf("Infer: %v", err)
	}
	fn, ok := c.Ty(got).(*ast.TFun)
	if !ok {
		t.Fatalf("expected a function type, got %T", c.Ty(got))
	}
	if fn.Arguments[0] != fn.Result {
		t.Errorf("identity lambda: argument and result should share a variable")
	}

	// The parameter binding must be gone.
	if _, err := c.Environment.LookupValue("x"); err == nil {
		t.Error("lambda parameter still bound after inference")
	}
}

func TestInferLambdaScopingOnError(t *testing.T) {
	c := NewContext()

	_, err := c.Infer(lamE(c, varE(c, "missing"), "x"))
	if err == nil {
		t.Fatal("expected an error for the unbound body")
	}
	if _, lookupErr := c.Environment.LookupValue("x"); lookupErr == nil {
		t.Error("lambda parameter still bound after a failed inference")
	}
}

func TestInferMultiParameterLambda(t *testing.T) {
	c := NewContext()

	got, err := c.Infer(lamE(c, varE(c, "y"), "x", "y"))
	if err != nil {
		t.Fatalf("Infer: %v", err)
	}
	fn := c.Ty(got).(*ast.TFun)
	if len(fn.Arguments) != 2 {
		t.Fatalf("arity = %d, want 2", len(fn.Arguments))
	}
	if fn.Arguments[1] != fn.Result {
		t.Errorf("second parameter should flow to the result")
	}
	if fn.Arguments[0] == fn.Result {
		t.Errorf("first parameter must not alias the result")
	}
}

func TestInferQualifiedApplicationSchedulesObligation(t *testing.T) {
	c := NewContext()
	a := varT(c, "a", 0)
	constrained := c.Volatile.Types.Allocate(&ast.TConstrained{
		Assertions: []ast.Assertion{{Name: "Show", Arguments: []ast.TyIdx{a}}},
		Ty:         funT(c, []ast.TyIdx{a}, conT(c, "String")),
	})
	c.Environment.InsertValue("show", forallT(c, 0, constrained, "a"))
	c.Environment.InsertValue("zero", conT(c, "Int"))

	if _, err := c.Infer(appE(c, varE(c, "show"), varE(c, "zero"))); err != nil {
		t.Fatalf("Infer: %v", err)
	}

	var entails int
	for _, constraint := range drain(c) {
		if entail, ok := constraint.(*ClassEntail); ok {
			entails++
			if entail.Assertion.Name != "Show" {
				t.Errorf("obligation class = %q, want Show", entail.Assertion.Name)
			}
		}
	}
	if entails != 1 {
		t.Errorf("expected exactly one class obligation, got %d", entails)
	}
}
