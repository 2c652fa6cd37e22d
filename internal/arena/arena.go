// Package arena provides append-only node storage with stable handles.
//
// An Arena owns nodes of a single kind; callers hold Idx values, which
// are small copyable indices tagged with the node kind at the type
// level. Nodes are never freed or rewritten: every mutation during
// inference allocates a new node, so a handle obtained at any point
// stays valid for the lifetime of the arena.
package arena

import "fmt"

// Idx is an opaque handle into an Arena[T]. The type parameter is a
// phantom tag: an Idx[Expr] cannot be used against an Arena[Ty].
type Idx[T any] struct {
	value uint32
}

// MakeIdx builds a handle from a raw index. Intended for tests and for
// decoding externally persisted handles; ordinary code receives handles
// from Allocate.
func MakeIdx[T any](value uint32) Idx[T] {
	return Idx[T]{value: value}
}

// Value exposes the raw index, for use as a map key prefix or in debug
// output.
func (i Idx[T]) Value() uint32 { return i.value }

func (i Idx[T]) String() string {
	return fmt.Sprintf("Idx(%d)", i.value)
}

// Arena is an append-only container of nodes.
type Arena[T any] struct {
	entries []T
}

// New creates an empty arena.
func New[T any]() *Arena[T] {
	return &Arena[T]{}
}

// Allocate stores v and returns its handle. O(1), never fails.
func (a *Arena[T]) Allocate(v T) Idx[T] {
	index := uint32(len(a.entries))
	a.entries = append(a.entries, v)
	return Idx[T]{value: index}
}

// Get dereferences a handle. The returned pointer gives an immutable
// view by convention: callers must not write through it.
func (a *Arena[T]) Get(i Idx[T]) *T {
	return &a.entries[i.value]
}

// Len reports how many nodes have been allocated.
func (a *Arena[T]) Len() int {
	return len(a.entries)
}
