package types

import (
	"github.com/wippyai/typegraph/errors"
	"github.com/wippyai/typegraph/store"
)

func typeFromRaw(raw store.RawType) (*Type, error) {
	category, ok := ParseCategory(raw.Category)
	if !ok {
		return nil, errors.New(errors.PhaseLoad, errors.KindInvalidCategory).
			TypeName(raw.Name).
			Detail("unknown category %q", raw.Category).
			Build()
	}
	if raw.BitSize < 0 {
		return nil, errors.New(errors.PhaseLoad, errors.KindInvalidInput).
			TypeName(raw.Name).
			Detail("negative bit size %d", raw.BitSize).
			Build()
	}
	size := raw.BitSize
	if category.HasDerivedSize() {
		size = 0
	}
	t := newType(raw.ID, raw.Name, size, raw.Signed, category)
	t.stackFrame = raw.StackFrame
	return t, nil
}

func rawType(t *Type) store.RawType {
	raw := store.RawType{
		ID:         t.id,
		Name:       t.name,
		Category:   t.category.String(),
		BitSize:    t.BitSize(),
		Signed:     t.signed,
		StackFrame: t.stackFrame,
	}
	if t.pointsTo != nil {
		raw.PointsTo = store.Int(t.pointsTo.id)
	}
	return raw
}

func (m *Manager) memberFromRaw(raw store.RawMember, phase errors.Phase) (*Member, error) {
	parent, ok := m.types[raw.ParentID]
	if !ok {
		return nil, errors.NotFound(phase, "parent type", raw.ParentID)
	}
	base, ok := m.types[raw.BaseTypeID]
	if !ok {
		return nil, errors.NotFound(phase, "base type", raw.BaseTypeID)
	}
	if _, dup := m.members[raw.ID]; dup {
		return nil, errors.New(phase, errors.KindDuplicate).Path(parent.name, raw.Name).Value(raw.ID).Build()
	}

	set := 0
	for _, p := range []*int{raw.Offset, raw.Count, raw.ArgumentIndex} {
		if p != nil {
			set++
		}
	}
	if set != 1 {
		return nil, errors.New(phase, errors.KindInvalidInput).
			Path(parent.name, raw.Name).
			Detail("member needs exactly one of offset, count and argument index, has %d", set).
			Build()
	}

	switch {
	case raw.Offset != nil:
		return newFieldMember(raw.ID, raw.Name, base, parent, *raw.Offset)
	case raw.Count != nil:
		return newElementMember(raw.ID, raw.Name, base, parent, *raw.Count)
	default:
		return newArgumentMember(raw.ID, raw.Name, base, parent, *raw.ArgumentIndex)
	}
}

func rawMember(mem *Member) store.RawMember {
	return rawMemberWith(mem, mem.baseType, mem.name, mem.position)
}

// rawMemberWith renders mem as it will look after an update.
func rawMemberWith(mem *Member, base *Type, name string, position int) store.RawMember {
	raw := store.RawMember{
		ID:         mem.id,
		ParentID:   mem.parent.id,
		BaseTypeID: base.id,
		Name:       name,
	}
	switch mem.kind {
	case FieldMember:
		raw.Offset = store.Int(position)
	case ElementMember:
		raw.Count = store.Int(position)
	case ArgumentMember:
		raw.ArgumentIndex = store.Int(position)
	}
	return raw
}

func (m *Manager) substitutionFromRaw(raw store.RawSubstitution) (*Substitution, error) {
	base, ok := m.types[raw.BaseTypeID]
	if !ok {
		return nil, errors.NotFound(errors.PhaseLoad, "substitution base type", raw.BaseTypeID)
	}
	path := make([]*Member, 0, len(raw.Path))
	for _, id := range raw.Path {
		mem, ok := m.members[id]
		if !ok {
			return nil, errors.NotFound(errors.PhaseLoad, "substitution path member", id)
		}
		path = append(path, mem)
	}
	s := &Substitution{
		id:              raw.ID,
		address:         raw.Address,
		operandPosition: raw.OperandPosition,
		expressionID:    raw.ExpressionID,
		baseType:        base,
		path:            path,
	}
	if raw.Offset != nil {
		s.offset = *raw.Offset
		s.hasOffset = true
	}
	return s, nil
}

func rawSubstitution(s *Substitution) store.RawSubstitution {
	raw := store.RawSubstitution{
		ID:              s.id,
		BaseTypeID:      s.baseType.id,
		Address:         s.address,
		OperandPosition: s.operandPosition,
		ExpressionID:    s.expressionID,
		Path:            make([]int, len(s.path)),
	}
	for i, mem := range s.path {
		raw.Path[i] = mem.id
	}
	if s.hasOffset {
		raw.Offset = store.Int(s.offset)
	}
	return raw
}
