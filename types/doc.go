// Package types holds the type graph and the Manager that mutates it.
//
// A type graph describes the layout of binary data: atomic scalars,
// pointers, arrays, structs, unions and function prototypes. Compound
// types own members; struct and union members sit at bit offsets, an
// array has one element member carrying the element count, and function
// prototype members carry an argument index.
//
// # Sizes
//
// Only atomic, pointer and function prototype types store a size. The size
// of an array is element size times count, a struct ends where its last
// member ends, and a union is as large as its largest member:
//
//	point := struct { int x@0; int y@32 }   // BitSize() == 64
//
// # Mutations
//
// Types and members are created, changed and removed only through the
// Manager. Each mutation follows the same order:
//
//  1. validate arguments and reject containment cycles
//  2. write through the store.Backend
//  3. apply the change to the graph
//  4. notify listeners
//
// When a type changes size, every type containing it is fixed up: the
// members behind the resized member are shifted so nothing overlaps.
//
//	mgr := types.New(memstore.New(), types.DefaultOptions())
//	i32, _ := mgr.CreateAtomicType(ctx, "int", 32, true)
//	inner, _ := mgr.CreateStructure(ctx, "inner", false)
//	mgr.AppendMember(ctx, inner, i32, "a")
//	outer, _ := mgr.CreateStructure(ctx, "outer", false)
//	mgr.AppendMember(ctx, outer, inner, "i")
//	mgr.AppendMember(ctx, outer, i32, "b")     // b at 32
//	mgr.UpdateType(ctx, i32, "int", 64, true)  // b now at 64
//
// Multi-step updates write to the backend one member at a time. If a write
// fails halfway, earlier writes stay applied in both the backend and the
// graph and the error is returned; there is no rollback.
//
// # Listeners
//
// TypeChangedListener and SubstitutionChangedListener are called on the
// mutating goroutine once the manager lock is released, in registration
// order. Accessors such as Type.Members return snapshots that later
// mutations do not change.
package types
