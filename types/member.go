package types

import (
	"fmt"

	"github.com/wippyai/typegraph/errors"
)

// MemberKind selects which positional facet a member carries.
type MemberKind uint8

const (
	// FieldMember is a struct or union field placed at a bit offset.
	FieldMember MemberKind = iota
	// ElementMember is the single element descriptor of an array.
	ElementMember
	// ArgumentMember is a function prototype argument.
	ArgumentMember
)

var memberKindNames = [...]string{
	FieldMember:    "field",
	ElementMember:  "element",
	ArgumentMember: "argument",
}

func (k MemberKind) String() string {
	if int(k) < len(memberKindNames) {
		return memberKindNames[k]
	}
	return "unknown"
}

// Member is a field of a compound type. The kind decides what position
// means: a bit offset, an element count or an argument index.
type Member struct {
	parent   *Type
	baseType *Type
	name     string
	id       int
	position int
	kind     MemberKind
}

func newMember(id int, name string, baseType, parent *Type, kind MemberKind, position int) (*Member, error) {
	if baseType == nil || parent == nil {
		return nil, errors.InvalidInput("member %q needs a base type and a parent", name)
	}
	if baseType == parent {
		return nil, errors.SelfReference(parent.name, "member "+name)
	}
	if position < 0 {
		return nil, errors.InvalidInput("member %q has negative %s position %d", name, kind, position)
	}
	if want := parent.category.memberKind(); !parent.category.HoldsMembers() || want != kind {
		return nil, errors.InvalidCategory(parent.name, parent.category.String(), kind.String()+" member")
	}
	if parent.category == Union && position != 0 {
		return nil, errors.InvalidInput("union member %q must sit at offset 0, got %d", name, position)
	}
	return &Member{
		id:       id,
		name:     name,
		baseType: baseType,
		parent:   parent,
		kind:     kind,
		position: position,
	}, nil
}

func newFieldMember(id int, name string, baseType, parent *Type, bitOffset int) (*Member, error) {
	return newMember(id, name, baseType, parent, FieldMember, bitOffset)
}

func newElementMember(id int, name string, baseType, parent *Type, count int) (*Member, error) {
	return newMember(id, name, baseType, parent, ElementMember, count)
}

func newArgumentMember(id int, name string, baseType, parent *Type, index int) (*Member, error) {
	return newMember(id, name, baseType, parent, ArgumentMember, index)
}

func (m *Member) ID() int { return m.id }
func (m *Member) Name() string { return m.name }
func (m *Member) Parent() *Type { return m.parent }
func (m *Member) BaseType() *Type { return m.baseType }
func (m *Member) Kind() MemberKind { return m.kind }
func (m *Member) BitSize() int { return m.baseType.BitSize() }
func (m *Member) ByteSize() int { return m.baseType.ByteSize() }
func (m *Member) IsField() bool { return m.kind == FieldMember }
func (m *Member) IsElement() bool { return m.kind == ElementMember }
func (m *Member) IsArgument() bool { return m.kind == ArgumentMember }
func (m *Member) String() string { return fmt.Sprintf("%s %s", m.baseType.name, m.name) }
func (m *Member) BaseTypeName() string { return m.baseType.name }

// BitOffset returns the bit offset of a field member.
func (m *Member) BitOffset() (int, bool) {
	return m.position, m.kind == FieldMember
}

// ByteOffset returns the bit offset rounded up to whole bytes.
func (m *Member) ByteOffset() (int, bool) {
	return (m.position + 7) / 8, m.kind == FieldMember
}

// NumberOfElements returns the element count of an array element member.
func (m *Member) NumberOfElements() (int, bool) {
	return m.position, m.kind == ElementMember
}

// ArgumentIndex returns the index of a function prototype argument.
func (m *Member) ArgumentIndex() (int, bool) {
	return m.position, m.kind == ArgumentMember
}

// Offset returns the bit offset of a field member and 0 for other kinds.
func (m *Member) Offset() int {
	if m.kind != FieldMember {
		return 0
	}
	return m.position
}

// End returns the first bit past the member.
func (m *Member) End() int {
	return m.Offset() + m.BitSize()
}

// setPosition changes the positional facet. The member is taken out of its
// parent's container first because the container order depends on position.
func (m *Member) setPosition(position int) {
	if m.position == position {
		return
	}
	removed := m.parent != nil && m.parent.members.remove(m)
	m.position = position
	if removed {
		m.parent.members.add(m)
	}
}

func (m *Member) setName(name string) {
	m.name = name
}

// setBaseType swaps the base type without touching the container order.
func (m *Member) setBaseType(t *Type) {
	m.baseType = t
}

// less orders by offset, then element count, then argument index, then id.
// Equal positions are legal; the id breaks the tie.
func (m *Member) less(o *Member) bool {
	if m.kind != o.kind {
		return m.kind < o.kind
	}
	if m.position != o.position {
		return m.position < o.position
	}
	return m.id < o.id
}
