package infer

import (
	"github.com/solvent-lang/solvent/internal/arena"
	"github.com/solvent-lang/solvent/internal/ast"
)

// Instantiate opens an outermost Forall: each binder of the matching
// rank is replaced by a fresh unification variable, and every assertion
// in the immediately enclosed Constrained is scheduled as a class
// obligation tagged with a fresh marker. Non-polymorphic types are
// returned unchanged.
//
// Nested quantifiers keep their own rank and binders, so a higher-rank
// argument stays polymorphic until some later instantiation site opens
// it.
func (c *Context) Instantiate(t ast.TyIdx) ast.TyIdx {
	forall, ok := c.Ty(t).(*ast.TForall)
	if !ok {
		return t
	}

	binders := append([]ast.Binder(nil), forall.Binders...)
	rank := forall.Rank
	inner := forall.Ty

	sub := newSubstituter(c, binders, rank)

	if constrained, ok := c.Ty(inner).(*ast.TConstrained); ok {
		assertions := make([]ast.Assertion, len(constrained.Assertions))
		for i, assertion := range constrained.Assertions {
			assertions[i] = ast.CloneAssertion(assertion)
		}
		innerTy := constrained.Ty

		assertions = sub.VisitAssertions(assertions)
		result := sub.VisitTy(innerTy)

		for _, assertion := range assertions {
			c.Volatile.Push(&ClassEntail{
				Marker:    c.FreshMarker(),
				Assertion: assertion,
			})
		}
		return result
	}

	return sub.VisitTy(inner)
}

// substituter replaces bound variables of one rank with fresh
// unification variables. It rebuilds every composite node it touches;
// the original type is left intact in the arena.
type substituter struct {
	ctx     *Context
	rank    int
	mapping map[string]ast.TyIdx
}

func newSubstituter(ctx *Context, binders []ast.Binder, rank int) *substituter {
	mapping := make(map[string]ast.TyIdx, len(binders))
	for _, binder := range binders {
		mapping[binder.Name] = ctx.FreshUnification()
	}
	return &substituter{ctx: ctx, rank: rank, mapping: mapping}
}

func (s *substituter) Arena() *arena.Arena[ast.Ty] {
	return s.ctx.Volatile.Types
}

func (s *substituter) VisitTy(ty ast.TyIdx) ast.TyIdx {
	if v, ok := s.ctx.Ty(ty).(*ast.TVar); ok && v.Rank == s.rank {
		if fresh, ok := s.mapping[v.Name]; ok {
			return fresh
		}
		return ty
	}
	return ast.WalkTy(s, ty)
}

func (s *substituter) VisitAssertions(assertions []ast.Assertion) []ast.Assertion {
	return ast.WalkAssertions(s, assertions)
}
