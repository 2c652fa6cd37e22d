package infer

import "github.com/solvent-lang/solvent/internal/ast"

// Infer computes a type for an expression, emitting unification and
// class-obligation constraints along the way. The returned handle may
// contain unsolved unification variables; the solver's solution map
// resolves them afterwards.
//
// Lookup failures return an error that aborts this walk only — the
// context and queue stay usable, and bindings introduced by enclosing
// lambdas are removed on every exit path.
func (c *Context) Infer(expr ast.ExprIdx) (ast.TyIdx, error) {
	switch node := c.Expr(expr).(type) {
	case *ast.ECon:
		return c.Environment.LookupConstructor(node.Name)

	case *ast.EVar:
		return c.Environment.LookupValue(node.Name)

	case *ast.EApp:
		function := node.Function
		arguments := append([]ast.ExprIdx(nil), node.Arguments...)

		functionTy, err := c.Infer(function)
		if err != nil {
			return ast.TyIdx{}, err
		}
		functionTy = c.Instantiate(functionTy)

		argumentTys := make([]ast.TyIdx, len(arguments))
		for i, argument := range arguments {
			argumentTy, err := c.Infer(argument)
			if err != nil {
				return ast.TyIdx{}, err
			}
			argumentTys[i] = argumentTy
		}

		result := c.FreshUnification()
		medium := c.Volatile.Types.Allocate(&ast.TFun{
			Arguments: argumentTys,
			Result:    result,
		})
		c.Unify(functionTy, medium)

		return result, nil

	case *ast.ELam:
		parameters := append([]string(nil), node.Parameters...)
		body := node.Body

		parameterTys := make([]ast.TyIdx, len(parameters))
		for i := range parameters {
			parameterTys[i] = c.FreshUnification()
		}

		result, err := c.withValueBindings(parameters, parameterTys, func() (ast.TyIdx, error) {
			return c.Infer(body)
		})
		if err != nil {
			return ast.TyIdx{}, err
		}

		return c.Volatile.Types.Allocate(&ast.TFun{
			Arguments: parameterTys,
			Result:    result,
		}), nil

	default:
		return ast.TyIdx{}, &UnboundNameError{Kind: "expression", Name: "unknown node"}
	}
}

// withValueBindings runs action with the given bindings in scope and
// removes them afterwards, error or not.
func (c *Context) withValueBindings(names []string, tys []ast.TyIdx, action func() (ast.TyIdx, error)) (ast.TyIdx, error) {
	for i, name := range names {
		c.Environment.InsertValue(name, tys[i])
	}
	defer func() {
		for _, name := range names {
			c.Environment.RemoveValue(name)
		}
	}()
	return action()
}
