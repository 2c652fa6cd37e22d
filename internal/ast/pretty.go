package ast

import (
	"fmt"
	"strings"

	"github.com/solvent-lang/solvent/internal/arena"
)

// PrettyTy renders a type for diagnostics and the REPL. Unification
// variables print as ?n, bound variables carry their rank only when it
// is non-zero.
func PrettyTy(types *arena.Arena[Ty], ty TyIdx) string {
	switch node := (*types.Get(ty)).(type) {
	case *TCon:
		return node.Name
	case *TVar:
		if node.Rank == 0 {
			return node.Name
		}
		return fmt.Sprintf("%s@%d", node.Name, node.Rank)
	case *TUni:
		return fmt.Sprintf("?%d", node.Value)
	case *TFun:
		var sb strings.Builder
		for _, argument := range node.Arguments {
			sb.WriteString(prettyAtom(types, argument))
			sb.WriteString(" -> ")
		}
		sb.WriteString(prettyAtom(types, node.Result))
		return sb.String()
	case *TApp:
		parts := []string{prettyAtom(types, node.Function)}
		for _, argument := range node.Arguments {
			parts = append(parts, prettyAtom(types, argument))
		}
		return strings.Join(parts, " ")
	case *TForall:
		names := make([]string, len(node.Binders))
		for i, binder := range node.Binders {
			names[i] = binder.Name
		}
		return fmt.Sprintf("forall %s. %s", strings.Join(names, " "), PrettyTy(types, node.Ty))
	case *TConstrained:
		return fmt.Sprintf("%s => %s",
			PrettyAssertions(types, node.Assertions),
			PrettyTy(types, node.Ty))
	default:
		return fmt.Sprintf("<%T>", node)
	}
}

// prettyAtom parenthesizes function, application, and quantified types
// when they appear in argument position.
func prettyAtom(types *arena.Arena[Ty], ty TyIdx) string {
	switch (*types.Get(ty)).(type) {
	case *TFun, *TForall, *TConstrained:
		return "(" + PrettyTy(types, ty) + ")"
	case *TApp:
		return "(" + PrettyTy(types, ty) + ")"
	default:
		return PrettyTy(types, ty)
	}
}

// PrettyAssertion renders a single class assertion.
func PrettyAssertion(types *arena.Arena[Ty], assertion Assertion) string {
	parts := []string{assertion.Name}
	for _, argument := range assertion.Arguments {
		parts = append(parts, prettyAtom(types, argument))
	}
	return strings.Join(parts, " ")
}

// PrettyAssertions renders an assertion list, parenthesized when there
// is more than one.
func PrettyAssertions(types *arena.Arena[Ty], assertions []Assertion) string {
	rendered := make([]string, len(assertions))
	for i, assertion := range assertions {
		rendered[i] = PrettyAssertion(types, assertion)
	}
	if len(rendered) == 1 {
		return rendered[0]
	}
	return "(" + strings.Join(rendered, ", ") + ")"
}

// PrettyExpr renders an expression; used by REPL echo and test output.
func PrettyExpr(exprs *arena.Arena[Expr], expr ExprIdx) string {
	switch node := (*exprs.Get(expr)).(type) {
	case *ECon:
		return node.Name
	case *EVar:
		return node.Name
	case *EApp:
		parts := []string{prettyExprAtom(exprs, node.Function)}
		for _, argument := range node.Arguments {
			parts = append(parts, prettyExprAtom(exprs, argument))
		}
		return strings.Join(parts, " ")
	case *ELam:
		return fmt.Sprintf("\\%s -> %s",
			strings.Join(node.Parameters, " "),
			PrettyExpr(exprs, node.Body))
	default:
		return fmt.Sprintf("<%T>", node)
	}
}

func prettyExprAtom(exprs *arena.Arena[Expr], expr ExprIdx) string {
	switch (*exprs.Get(expr)).(type) {
	case *EApp, *ELam:
		return "(" + PrettyExpr(exprs, expr) + ")"
	default:
		return PrettyExpr(exprs, expr)
	}
}
