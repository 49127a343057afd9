// Package layout resolves bit offsets inside types to the members that own
// them and renders the result for humans.
//
// # Resolution Rules
//
//   - Atomic, pointer and function prototype types have no members; every
//     offset resolves to nothing
//   - Arrays resolve to their element member with an indexed path such as
//     "unsigned int[3]"; offsets past either end are annotated with the
//     excess in bytes, e.g. "unsigned int[10]+1"
//   - Structs and unions are walked in offset order. Scalar members match
//     only their exact start offset, array members match on element
//     boundaries, and compound members recurse with the offset rebased
//
// An offset that hits no member gives an invalid WalkResult, not an error:
// most offsets inside padding or in the middle of a scalar are expected to
// miss.
//
// # Usage
//
//	res := layout.FindMember(point, 32)
//	if res.Valid() {
//	    fmt.Println(res.PathString) // "Point.y"
//	}
package layout
