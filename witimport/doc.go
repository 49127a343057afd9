// Package witimport seeds a type graph from WIT type definitions.
//
// Each WIT type becomes the graph type that describes its Canonical ABI
// representation in wasm32 linear memory:
//
//	bool, u8..u64, s8..s64, f32, f64, char  atomic
//	record, tuple                          struct, fields at aligned offsets
//	string, list<T>                        struct {ptr: T *, len: u32}
//	variant, option<T>, result<T, E>       struct {tag, payload: union of cases}
//	enum                                   unsigned atomic of the tag size
//	flags                                  unsigned atomic, or u32 words
//	own<R>, borrow<R>                      32-bit handle
//
// Aliases resolve to the aliased type. Resources, futures and streams have
// no layout and are skipped by ImportResolve.
//
// # Usage
//
//	res, _ := wit.LoadJSON("component.wit.json")
//	imported, err := witimport.New(manager).ImportResolve(ctx, res)
package witimport
