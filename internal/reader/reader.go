// Package reader parses the compact surface syntax used by environment
// manifests, the CLI, and the REPL, allocating nodes directly into a
// caller-supplied inference context.
//
// Types:       forall a b. (Eq a, Show b) => a -> b -> Pair a b
// Assertions:  Append xs ys zs
// Expressions: \x y -> append x y, identity zero
//
// Capitalized names are constructors, lowercase names are variables.
// `?name` is a hole: each distinct label becomes one fresh unification
// variable per Reader, recorded in Holes so callers can look up its
// solution afterwards.
package reader

import (
	"fmt"
	"unicode"

	"github.com/solvent-lang/solvent/internal/arena"
	"github.com/solvent-lang/solvent/internal/ast"
	"github.com/solvent-lang/solvent/internal/infer"
)

// SyntaxError reports a parse failure with a byte offset into the
// normalized input.
type SyntaxError struct {
	Offset  int
	Message string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error at offset %d: %s", e.Offset, e.Message)
}

// Reader parses surface text against one context. Holes accumulate
// across calls, so a goal can mention `?u` and a later inspection can
// find the unification variable it became.
type Reader struct {
	ctx   *infer.Context
	Holes map[string]ast.TyIdx
}

// New creates a reader over a context.
func New(ctx *infer.Context) *Reader {
	return &Reader{
		ctx:   ctx,
		Holes: make(map[string]ast.TyIdx),
	}
}

// ParseTy parses a type term.
func (r *Reader) ParseTy(src string) (ast.TyIdx, error) {
	p := r.newParser(src)
	ty, err := p.parseTy(0, nil)
	if err != nil {
		return ast.TyIdx{}, err
	}
	if err := p.expectEOF(); err != nil {
		return ast.TyIdx{}, err
	}
	return ty, nil
}

// ParseAssertion parses a class assertion such as `Eq (Array a)`.
func (r *Reader) ParseAssertion(src string) (ast.Assertion, error) {
	p := r.newParser(src)
	assertion, err := p.parseAssertion(0, nil)
	if err != nil {
		return ast.Assertion{}, err
	}
	if err := p.expectEOF(); err != nil {
		return ast.Assertion{}, err
	}
	return assertion, nil
}

// ParseExpr parses an expression term.
func (r *Reader) ParseExpr(src string) (ast.ExprIdx, error) {
	p := r.newParser(src)
	expr, err := p.parseExpr()
	if err != nil {
		return ast.ExprIdx{}, err
	}
	if err := p.expectEOF(); err != nil {
		return ast.ExprIdx{}, err
	}
	return expr, nil
}

// hole returns the unification variable for a label, allocating it on
// first sight.
func (r *Reader) hole(label string) ast.TyIdx {
	if ty, ok := r.Holes[label]; ok {
		return ty
	}
	ty := r.ctx.FreshUnification()
	r.Holes[label] = ty
	return ty
}

// scope is a linked binder environment: name → rank of the forall that
// bound it. Inner scopes shadow outer ones.
type scope struct {
	names  map[string]int
	parent *scope
}

func (s *scope) lookup(name string) (int, bool) {
	for cur := s; cur != nil; cur = cur.parent {
		if rank, ok := cur.names[name]; ok {
			return rank, true
		}
	}
	return 0, false
}

// Token kinds.
const (
	tokEOF = iota
	tokIdent
	tokHole
	tokLParen
	tokRParen
	tokDot
	tokComma
	tokArrow
	tokDArrow
	tokLambda
	tokInvalid
)

type token struct {
	kind   int
	text   string
	offset int
}

type parser struct {
	reader *Reader
	src    []rune
	pos    int
	tok    token
}

func (r *Reader) newParser(src string) *parser {
	p := &parser{
		reader: r,
		src:    []rune(string(Normalize([]byte(src)))),
	}
	p.next()
	return p
}

func (p *parser) next() {
	for p.pos < len(p.src) && unicode.IsSpace(p.src[p.pos]) {
		p.pos++
	}
	start := p.pos
	if p.pos >= len(p.src) {
		p.tok = token{kind: tokEOF, offset: start}
		return
	}
	c := p.src[p.pos]
	switch {
	case c == '(':
		p.pos++
		p.tok = token{kind: tokLParen, offset: start}
	case c == ')':
		p.pos++
		p.tok = token{kind: tokRParen, offset: start}
	case c == '.':
		p.pos++
		p.tok = token{kind: tokDot, offset: start}
	case c == ',':
		p.pos++
		p.tok = token{kind: tokComma, offset: start}
	case c == '\\':
		p.pos++
		p.tok = token{kind: tokLambda, offset: start}
	case c == '-' && p.peek(1) == '>':
		p.pos += 2
		p.tok = token{kind: tokArrow, offset: start}
	case c == '=' && p.peek(1) == '>':
		p.pos += 2
		p.tok = token{kind: tokDArrow, offset: start}
	case c == '?':
		p.pos++
		label := p.scanIdent()
		if label == "" {
			p.tok = token{kind: tokHole, text: "_", offset: start}
			return
		}
		p.tok = token{kind: tokHole, text: label, offset: start}
	case isIdentStart(c):
		p.tok = token{kind: tokIdent, text: p.scanIdent(), offset: start}
	default:
		p.tok = token{kind: tokInvalid, offset: start, text: string(c)}
		p.pos = len(p.src)
	}
}

func (p *parser) peek(ahead int) rune {
	if p.pos+ahead >= len(p.src) {
		return 0
	}
	return p.src[p.pos+ahead]
}

func (p *parser) scanIdent() string {
	start := p.pos
	for p.pos < len(p.src) && isIdentPart(p.src[p.pos]) {
		p.pos++
	}
	return string(p.src[start:p.pos])
}

func isIdentStart(c rune) bool {
	return unicode.IsLetter(c) || c == '_'
}

func isIdentPart(c rune) bool {
	return unicode.IsLetter(c) || unicode.IsDigit(c) || c == '_' || c == '\''
}

func (p *parser) errorf(format string, args ...any) error {
	return &SyntaxError{Offset: p.tok.offset, Message: fmt.Sprintf(format, args...)}
}

func (p *parser) expectEOF() error {
	if p.tok.kind == tokInvalid {
		return p.errorf("invalid character %q", p.tok.text)
	}
	if p.tok.kind != tokEOF {
		return p.errorf("unexpected trailing input %q", p.tok.text)
	}
	return nil
}

// parseTy parses a full type at the given quantifier depth.
//
//	ty := 'forall' ident+ '.' ty | qualified
func (p *parser) parseTy(depth int, sc *scope) (ast.TyIdx, error) {
	if p.tok.kind == tokIdent && p.tok.text == "forall" {
		p.next()
		var binders []ast.Binder
		names := make(map[string]int)
		for p.tok.kind == tokIdent {
			binders = append(binders, ast.Binder{Name: p.tok.text})
			names[p.tok.text] = depth
			p.next()
		}
		if len(binders) == 0 {
			return ast.TyIdx{}, p.errorf("forall needs at least one binder")
		}
		if p.tok.kind != tokDot {
			return ast.TyIdx{}, p.errorf("expected '.' after forall binders")
		}
		p.next()

		inner, err := p.parseQualified(depth, &scope{names: names, parent: sc})
		if err != nil {
			return ast.TyIdx{}, err
		}
		return p.types().Allocate(&ast.TForall{
			Binders: binders,
			Rank:    depth,
			Ty:      inner,
		}), nil
	}
	return p.parseQualified(depth, sc)
}

// parseQualified parses an optional assertion context followed by an
// arrow type.
//
//	qualified := (assertions '=>')? arrow
func (p *parser) parseQualified(depth int, sc *scope) (ast.TyIdx, error) {
	if assertions, ok, err := p.tryParseContext(depth, sc); err != nil {
		return ast.TyIdx{}, err
	} else if ok {
		inner, err := p.parseArrow(depth, sc)
		if err != nil {
			return ast.TyIdx{}, err
		}
		return p.types().Allocate(&ast.TConstrained{
			Assertions: assertions,
			Ty:         inner,
		}), nil
	}
	return p.parseArrow(depth, sc)
}

// tryParseContext speculatively parses `Assertion =>` or
// `(A, B, …) =>`; on failure it rewinds and reports no context.
func (p *parser) tryParseContext(depth int, sc *scope) ([]ast.Assertion, bool, error) {
	savedPos, savedTok := p.pos, p.tok

	rewind := func() {
		p.pos, p.tok = savedPos, savedTok
	}

	var assertions []ast.Assertion
	switch {
	case p.tok.kind == tokLParen:
		p.next()
		for {
			assertion, err := p.parseAssertion(depth, sc)
			if err != nil {
				rewind()
				return nil, false, nil
			}
			assertions = append(assertions, assertion)
			if p.tok.kind == tokComma {
				p.next()
				continue
			}
			break
		}
		if p.tok.kind != tokRParen {
			rewind()
			return nil, false, nil
		}
		p.next()
	case p.tok.kind == tokIdent && isUpper(p.tok.text):
		assertion, err := p.parseAssertion(depth, sc)
		if err != nil {
			rewind()
			return nil, false, nil
		}
		assertions = []ast.Assertion{assertion}
	default:
		return nil, false, nil
	}

	if p.tok.kind != tokDArrow {
		rewind()
		return nil, false, nil
	}
	p.next()
	return assertions, true, nil
}

// parseAssertion parses `ClassName atom+`.
func (p *parser) parseAssertion(depth int, sc *scope) (ast.Assertion, error) {
	if p.tok.kind != tokIdent || !isUpper(p.tok.text) {
		return ast.Assertion{}, p.errorf("expected a class name")
	}
	name := p.tok.text
	p.next()

	var arguments []ast.TyIdx
	for p.startsAtom() {
		argument, err := p.parseAtom(depth, sc)
		if err != nil {
			return ast.Assertion{}, err
		}
		arguments = append(arguments, argument)
	}
	if len(arguments) == 0 {
		return ast.Assertion{}, p.errorf("assertion %s needs at least one argument", name)
	}
	return ast.Assertion{Name: name, Arguments: arguments}, nil
}

// parseArrow parses `app (-> app)*`. The whole chain reads as one
// n-ary function: `a -> b -> c` is a function of two arguments, which
// matches how application sites build their medium type. Curried or
// higher-order shapes are written with parentheses.
func (p *parser) parseArrow(depth int, sc *scope) (ast.TyIdx, error) {
	first, err := p.parseApp(depth, sc)
	if err != nil {
		return ast.TyIdx{}, err
	}
	parts := []ast.TyIdx{first}
	for p.tok.kind == tokArrow {
		p.next()
		next, err := p.parseApp(depth, sc)
		if err != nil {
			return ast.TyIdx{}, err
		}
		parts = append(parts, next)
	}
	if len(parts) == 1 {
		return first, nil
	}
	return p.types().Allocate(&ast.TFun{
		Arguments: parts[:len(parts)-1],
		Result:    parts[len(parts)-1],
	}), nil
}

// parseApp parses juxtaposed atoms into a type application.
func (p *parser) parseApp(depth int, sc *scope) (ast.TyIdx, error) {
	head, err := p.parseAtom(depth, sc)
	if err != nil {
		return ast.TyIdx{}, err
	}
	var arguments []ast.TyIdx
	for p.startsAtom() {
		argument, err := p.parseAtom(depth, sc)
		if err != nil {
			return ast.TyIdx{}, err
		}
		arguments = append(arguments, argument)
	}
	if len(arguments) == 0 {
		return head, nil
	}
	return p.types().Allocate(&ast.TApp{Function: head, Arguments: arguments}), nil
}

func (p *parser) startsAtom() bool {
	switch p.tok.kind {
	case tokLParen, tokHole:
		return true
	case tokIdent:
		return p.tok.text != "forall"
	default:
		return false
	}
}

func (p *parser) parseAtom(depth int, sc *scope) (ast.TyIdx, error) {
	switch p.tok.kind {
	case tokIdent:
		name := p.tok.text
		p.next()
		if isUpper(name) {
			return p.types().Allocate(&ast.TCon{Name: name}), nil
		}
		rank := 0
		if sc != nil {
			if bound, ok := sc.lookup(name); ok {
				rank = bound
			}
		}
		return p.types().Allocate(&ast.TVar{Name: name, Rank: rank}), nil
	case tokHole:
		label := p.tok.text
		p.next()
		return p.reader.hole(label), nil
	case tokLParen:
		p.next()
		ty, err := p.parseTy(depth+1, sc)
		if err != nil {
			return ast.TyIdx{}, err
		}
		if p.tok.kind != tokRParen {
			return ast.TyIdx{}, p.errorf("expected ')'")
		}
		p.next()
		return ty, nil
	default:
		return ast.TyIdx{}, p.errorf("expected a type")
	}
}

// parseExpr parses a lambda or an application chain.
func (p *parser) parseExpr() (ast.ExprIdx, error) {
	if p.tok.kind == tokLambda {
		p.next()
		var parameters []string
		for p.tok.kind == tokIdent {
			parameters = append(parameters, p.tok.text)
			p.next()
		}
		if len(parameters) == 0 {
			return ast.ExprIdx{}, p.errorf("lambda needs at least one parameter")
		}
		if p.tok.kind != tokArrow {
			return ast.ExprIdx{}, p.errorf("expected '->' after lambda parameters")
		}
		p.next()
		body, err := p.parseExpr()
		if err != nil {
			return ast.ExprIdx{}, err
		}
		return p.exprs().Allocate(&ast.ELam{Parameters: parameters, Body: body}), nil
	}
	return p.parseExprApp()
}

func (p *parser) parseExprApp() (ast.ExprIdx, error) {
	head, err := p.parseExprAtom()
	if err != nil {
		return ast.ExprIdx{}, err
	}
	var arguments []ast.ExprIdx
	for p.tok.kind == tokIdent || p.tok.kind == tokLParen {
		argument, err := p.parseExprAtom()
		if err != nil {
			return ast.ExprIdx{}, err
		}
		arguments = append(arguments, argument)
	}
	if len(arguments) == 0 {
		return head, nil
	}
	return p.exprs().Allocate(&ast.EApp{Function: head, Arguments: arguments}), nil
}

func (p *parser) parseExprAtom() (ast.ExprIdx, error) {
	switch p.tok.kind {
	case tokIdent:
		name := p.tok.text
		p.next()
		if isUpper(name) {
			return p.exprs().Allocate(&ast.ECon{Name: name}), nil
		}
		return p.exprs().Allocate(&ast.EVar{Name: name}), nil
	case tokLParen:
		p.next()
		expr, err := p.parseExpr()
		if err != nil {
			return ast.ExprIdx{}, err
		}
		if p.tok.kind != tokRParen {
			return ast.ExprIdx{}, p.errorf("expected ')'")
		}
		p.next()
		return expr, nil
	default:
		return ast.ExprIdx{}, p.errorf("expected an expression")
	}
}

func (p *parser) types() *arena.Arena[ast.Ty]   { return p.reader.ctx.Volatile.Types }
func (p *parser) exprs() *arena.Arena[ast.Expr] { return p.reader.ctx.Volatile.Exprs }

func isUpper(name string) bool {
	for _, c := range name {
		return unicode.IsUpper(c)
	}
	return false
}
