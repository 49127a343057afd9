// Package store defines the persistence contract for the type graph.
//
// A Backend saves and loads raw records: types, members and type
// substitutions. Records refer to each other by integer id; the backend
// assigns ids on create and they stay stable for the lifetime of the store.
//
// # Implementations
//
//	memstore   - in-memory maps, used by tests and short sessions
//	filestore  - JSON snapshot on disk with optional change watching
//	neo4jstore - Neo4j graph database
//
// # Records
//
// Exactly one of RawMember.Offset, Count and ArgumentIndex is set, selecting
// a struct/union field, an array element descriptor or a function argument:
//
//	store.RawMember{ParentID: s, BaseTypeID: i32, Name: "x", Offset: store.Int(0)}
//
// Compound sizes are never authoritative in storage. The engine derives them
// from members after loading; RawType.BitSize only matters for atomic,
// pointer and function prototype types.
package store
