// Package typegraph maintains a live graph of data type layouts.
//
// Types are atomic values, pointers, arrays, structures, unions and function
// prototypes. Structures, unions and arrays derive their size from their
// members, so a change to one type propagates through every type that
// contains it. Every mutation is written to a persistence backend before the
// in-memory graph changes, and registered listeners are notified after the
// commit.
//
// # Architecture Overview
//
//	typegraph/
//	├── types/               Type graph, mutation engine and listeners
//	├── layout/              Offset resolution, substitution rendering, layout dumps
//	├── store/               Persistence contract and raw records
//	│   ├── memstore/        In-memory backend
//	│   ├── filestore/       JSON snapshot backend with a file watcher
//	│   └── neo4jstore/      Neo4j backend
//	├── witimport/           Seeds the graph from WIT type definitions
//	├── errors/              Structured error types
//	├── internal/depgraph/   Containment graph used for cycle checks
//	└── cmd/typegraph/       Command line inspector
//
// # Quick Start
//
//	m := types.NewWithDefaults(memstore.New())
//
//	i32, _ := m.CreateAtomicType(ctx, "int", 32, true)
//	point, _ := m.CreateStructure(ctx, "Point", false)
//	m.AppendMember(ctx, point, i32, "x")
//	m.AppendMember(ctx, point, i32, "y")
//
//	fmt.Println(point.BitSize())                       // 64
//	fmt.Println(layout.FindMember(point, 32).PathString) // "Point.y"
//
//	m.UpdateType(ctx, i32, "int", 64, true)
//	fmt.Println(point.BitSize())                       // 128
//
// # Persistence
//
// A Manager loads the whole graph from its backend in Initialize and keeps
// it in memory afterwards. The file backend rewrites its snapshot after
// every change; its watcher applies external edits to a running Manager
// through the LoadAndInitialize and LoadAndUpdate methods, which change the
// graph without writing back.
//
// # Thread Safety
//
// Manager is safe for concurrent use. Mutations are serialized. Listeners
// run on the mutating goroutine after the lock is released, so they may
// query the Manager.
package typegraph
