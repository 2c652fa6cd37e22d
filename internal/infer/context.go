// Package infer implements the constraint-emitting half of the checker:
// the shared inference context, the structural unifier, instantiation of
// polymorphic types, and expression inference.
//
// None of the algorithms here solve anything. They allocate types and
// push constraints onto the context's queue; the solver package drains
// the queue and owns all solved state.
package infer

import (
	"github.com/solvent-lang/solvent/internal/arena"
	"github.com/solvent-lang/solvent/internal/ast"
)

// Environment holds the read-mostly bindings seeded by the front-end:
// constructor and value types, class declarations, and instances in
// declaration order.
type Environment struct {
	constructors map[string]ast.TyIdx
	values       map[string]ast.TyIdx
	classes      map[string]*ast.Class
	instances    map[string][]*ast.Instance
}

// NewEnvironment creates an empty environment.
func NewEnvironment() *Environment {
	return &Environment{
		constructors: make(map[string]ast.TyIdx),
		values:       make(map[string]ast.TyIdx),
		classes:      make(map[string]*ast.Class),
		instances:    make(map[string][]*ast.Instance),
	}
}

// InsertConstructor binds a constructor name to its declared type.
func (e *Environment) InsertConstructor(name string, ty ast.TyIdx) {
	e.constructors[name] = ty
}

// LookupConstructor resolves a constructor name.
func (e *Environment) LookupConstructor(name string) (ast.TyIdx, error) {
	ty, ok := e.constructors[name]
	if !ok {
		return ast.TyIdx{}, &UnboundNameError{Kind: "constructor", Name: name}
	}
	return ty, nil
}

// InsertValue binds a value name to its type. Lambda parameters are
// inserted here temporarily and removed when their scope ends.
func (e *Environment) InsertValue(name string, ty ast.TyIdx) {
	e.values[name] = ty
}

// LookupValue resolves a value name.
func (e *Environment) LookupValue(name string) (ast.TyIdx, error) {
	ty, ok := e.values[name]
	if !ok {
		return ast.TyIdx{}, &UnboundNameError{Kind: "value", Name: name}
	}
	return ty, nil
}

// RemoveValue drops a value binding, closing a lambda scope.
func (e *Environment) RemoveValue(name string) {
	delete(e.values, name)
}

// InsertClass registers a class declaration.
func (e *Environment) InsertClass(class *ast.Class) {
	e.classes[class.Name] = class
}

// LookupClass resolves a class by name.
func (e *Environment) LookupClass(name string) (*ast.Class, bool) {
	class, ok := e.classes[name]
	return class, ok
}

// InsertInstance appends an instance for a class. Declaration order is
// significant: entailment tries instances first-declared first.
func (e *Environment) InsertInstance(name string, instance *ast.Instance) {
	e.instances[name] = append(e.instances[name], instance)
}

// Instances returns the instances declared for a class, in order.
func (e *Environment) Instances(name string) []*ast.Instance {
	return e.instances[name]
}

// Volatile holds the state that grows during a single inference run:
// both arenas, the fresh counter shared by unification variables and
// obligation markers, and the constraint queue.
type Volatile struct {
	Exprs *arena.Arena[ast.Expr]
	Types *arena.Arena[ast.Ty]

	freshIndex int

	queue []Constraint
	head  int
}

// NewVolatile creates empty arenas and an empty queue.
func NewVolatile() *Volatile {
	return &Volatile{
		Exprs: arena.New[ast.Expr](),
		Types: arena.New[ast.Ty](),
	}
}

// FreshMarker returns the next identifier from the monotonic counter.
// Markers key per-obligation state; the same counter also names
// unification variables, so the two spaces never collide.
func (v *Volatile) FreshMarker() int {
	index := v.freshIndex
	v.freshIndex++
	return index
}

// FreshUnification allocates a unification variable bearing a fresh
// marker and returns its handle.
func (v *Volatile) FreshUnification() ast.TyIdx {
	return v.Types.Allocate(&ast.TUni{Value: v.FreshMarker()})
}

// Push enqueues a constraint. Safe to call while another constraint is
// being processed; the solver sees it in FIFO order.
func (v *Volatile) Push(constraint Constraint) {
	v.queue = append(v.queue, constraint)
}

// Pop dequeues the oldest pending constraint.
func (v *Volatile) Pop() (Constraint, bool) {
	if v.head >= len(v.queue) {
		// Reset so the backing slice does not grow without bound
		// across solver steps.
		v.queue = v.queue[:0]
		v.head = 0
		return nil, false
	}
	constraint := v.queue[v.head]
	v.queue[v.head] = nil
	v.head++
	return constraint, true
}

// QueueLen reports how many constraints are pending.
func (v *Volatile) QueueLen() int {
	return len(v.queue) - v.head
}

// Context is the shared state threaded through inference and solving.
// It is owned by one component at a time; there is no internal locking.
type Context struct {
	Environment *Environment
	Volatile    *Volatile
}

// NewContext creates a context with an empty environment and fresh
// volatile state.
func NewContext() *Context {
	return &Context{
		Environment: NewEnvironment(),
		Volatile:    NewVolatile(),
	}
}

// FreshMarker forwards to the volatile counter.
func (c *Context) FreshMarker() int {
	return c.Volatile.FreshMarker()
}

// FreshUnification forwards to the volatile counter.
func (c *Context) FreshUnification() ast.TyIdx {
	return c.Volatile.FreshUnification()
}

// Ty dereferences a type handle.
func (c *Context) Ty(ty ast.TyIdx) ast.Ty {
	return *c.Volatile.Types.Get(ty)
}

// Expr dereferences an expression handle.
func (c *Context) Expr(expr ast.ExprIdx) ast.Expr {
	return *c.Volatile.Exprs.Get(expr)
}

// PrettyTy renders a type against this context's arena.
func (c *Context) PrettyTy(ty ast.TyIdx) string {
	return ast.PrettyTy(c.Volatile.Types, ty)
}

// PrettyAssertion renders an assertion against this context's arena.
func (c *Context) PrettyAssertion(assertion ast.Assertion) string {
	return ast.PrettyAssertion(c.Volatile.Types, assertion)
}
