package layout

import (
	"github.com/wippyai/typegraph/types"
)

// Row is one line of a flattened layout.
type Row struct {
	Name     string
	TypeName string
	Offset   int
	Size     int
	Depth    int
}

// Dump flattens t into rows in offset order, descending into struct and
// union members. Offsets are absolute bit offsets from the start of t.
// Array members produce a single row.
func Dump(t *types.Type) []Row {
	if t == nil {
		return nil
	}
	rows := []Row{{Name: t.Name(), TypeName: t.Category().String(), Size: t.BitSize()}}
	switch t.Category() {
	case types.Struct, types.Union:
		rows = dumpMembers(rows, t, 0, t.Name(), 1)
	case types.Array:
		if elem := t.ElementMember(); elem != nil {
			n, _ := elem.NumberOfElements()
			rows = append(rows, Row{
				Name:     ArrayName(elem),
				TypeName: elem.BaseTypeName(),
				Size:     elem.BitSize() * n,
				Depth:    1,
			})
		}
	case types.FunctionPrototype:
		for _, arg := range t.Members() {
			rows = append(rows, Row{
				Name:     t.Name() + "." + arg.Name(),
				TypeName: arg.BaseTypeName(),
				Size:     arg.BitSize(),
				Depth:    1,
			})
		}
	}
	return rows
}

// ArrayName renders the element member of an array as "elem[count]".
func ArrayName(elem *types.Member) string {
	n, _ := elem.NumberOfElements()
	return types.ArrayName(elem.BaseTypeName(), n)
}

func dumpMembers(rows []Row, t *types.Type, base int, prefix string, depth int) []Row {
	for _, mem := range t.Members() {
		name := prefix + "." + mem.Name()
		offset := base + mem.Offset()
		rows = append(rows, Row{
			Name:     name,
			TypeName: mem.BaseTypeName(),
			Offset:   offset,
			Size:     mem.BitSize(),
			Depth:    depth,
		})
		if c := mem.BaseType().Category(); c == types.Struct || c == types.Union {
			rows = dumpMembers(rows, mem.BaseType(), offset, name, depth+1)
		}
	}
	return rows
}
