package main

import (
	"fmt"

	"github.com/wippyai/typegraph/store"
	"github.com/wippyai/typegraph/types"
)

// check compares the stored records with the loaded graph and verifies the
// layout invariants of every type. It returns one line per problem.
func check(m *types.Manager, rawTypes []store.RawType, rawMembers []store.RawMember) []string {
	var problems []string
	report := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	for _, raw := range rawTypes {
		t := m.Type(raw.ID)
		if t == nil {
			report("type %d (%s): stored but not loaded", raw.ID, raw.Name)
			continue
		}
		if t.Name() != raw.Name || t.Category().String() != raw.Category {
			report("type %d: stored as %s %q, loaded as %s %q", raw.ID, raw.Category, raw.Name, t.Category(), t.Name())
		}
		if !t.Category().HasDerivedSize() && t.BitSize() != raw.BitSize {
			report("%s: stored size %d, loaded %d", t.Name(), raw.BitSize, t.BitSize())
		}
	}

	for _, raw := range rawMembers {
		mem := m.Member(raw.ID)
		if mem == nil {
			report("member %d (%s): stored but not loaded", raw.ID, raw.Name)
			continue
		}
		if mem.Parent().ID() != raw.ParentID || mem.BaseType().ID() != raw.BaseTypeID {
			report("%s.%s: stored parent/base %d/%d, loaded %d/%d", mem.Parent().Name(), mem.Name(),
				raw.ParentID, raw.BaseTypeID, mem.Parent().ID(), mem.BaseType().ID())
		}
		if stored, loaded := storedPosition(raw), loadedPosition(mem); stored != loaded {
			report("%s.%s: stored position %d, loaded %d", mem.Parent().Name(), mem.Name(), stored, loaded)
		}
	}

	for _, t := range m.Types() {
		problems = append(problems, checkType(t)...)
	}
	return problems
}

func checkType(t *types.Type) []string {
	var problems []string
	members := t.Members()
	switch t.Category() {
	case types.Struct:
		for i := 1; i < len(members); i++ {
			prev, cur := members[i-1], members[i]
			if cur.Offset() < prev.End() {
				problems = append(problems, fmt.Sprintf("%s: %s@%d overlaps %s ending at %d",
					t.Name(), cur.Name(), cur.Offset(), prev.Name(), prev.End()))
			}
		}
	case types.Union:
		for _, mem := range members {
			if mem.Offset() != 0 {
				problems = append(problems, fmt.Sprintf("%s: union member %s at %d", t.Name(), mem.Name(), mem.Offset()))
			}
		}
	case types.Array:
		if len(members) != 1 || !members[0].IsElement() {
			problems = append(problems, fmt.Sprintf("%s: array has %d members", t.Name(), len(members)))
		}
	case types.Pointer:
		if t.PointsTo() == nil {
			problems = append(problems, fmt.Sprintf("%s: pointer without target", t.Name()))
		}
	case types.FunctionPrototype:
		for i := 1; i < len(members); i++ {
			prev, _ := members[i-1].ArgumentIndex()
			if idx, _ := members[i].ArgumentIndex(); idx == prev {
				problems = append(problems, fmt.Sprintf("%s: arguments %s and %s share index %d",
					t.Name(), members[i-1].Name(), members[i].Name(), idx))
			}
		}
	}
	return problems
}

func storedPosition(raw store.RawMember) int {
	switch {
	case raw.Offset != nil:
		return *raw.Offset
	case raw.Count != nil:
		return *raw.Count
	case raw.ArgumentIndex != nil:
		return *raw.ArgumentIndex
	}
	return -1
}

func loadedPosition(mem *types.Member) int {
	var (
		pos int
		ok  bool
	)
	switch mem.Kind() {
	case types.FieldMember:
		pos, ok = mem.BitOffset()
	case types.ElementMember:
		pos, ok = mem.NumberOfElements()
	case types.ArgumentMember:
		pos, ok = mem.ArgumentIndex()
	}
	if !ok {
		return -1
	}
	return pos
}
