package types

import (
	"sort"

	"github.com/wippyai/typegraph/errors"
)

// Type is a node in the type graph. Only the Manager creates and mutates
// types; everything exported here is read-only.
type Type struct {
	pointsTo    *Type
	pointedToBy *Type
	name        string
	members     memberSet
	id          int
	size        int
	category    Category
	signed      bool
	stackFrame  bool
}

func newType(id int, name string, size int, signed bool, category Category) *Type {
	return &Type{
		id:       id,
		name:     name,
		size:     size,
		signed:   signed,
		category: category,
	}
}

func (t *Type) ID() int { return t.id }
func (t *Type) Name() string { return t.name }
func (t *Type) Category() Category { return t.category }
func (t *Type) IsSigned() bool { return t.signed }
func (t *Type) IsStackFrame() bool { return t.stackFrame }
func (t *Type) PointsTo() *Type { return t.pointsTo }
func (t *Type) PointedToBy() *Type { return t.pointedToBy }
func (t *Type) MemberCount() int { return t.members.len() }
func (t *Type) LastMember() *Member { return t.members.last() }
func (t *Type) FirstMember() *Member { return t.members.first() }
func (t *Type) String() string { return t.name }

// MemberByID returns the member with the given id, or nil.
func (t *Type) MemberByID(id int) *Member {
	return t.members.get(id)
}

// Members returns the members in order. The slice is a snapshot and is not
// updated by later mutations.
func (t *Type) Members() []*Member {
	return t.members.snapshot()
}

// BitSize derives the size from the category: stored for atomic, pointer
// and function prototype types, computed from members otherwise.
func (t *Type) BitSize() int {
	switch t.category {
	case Array:
		elem := t.members.last()
		if elem == nil {
			return 0
		}
		return elem.baseType.BitSize() * elem.position
	case Struct:
		last := t.members.last()
		if last == nil {
			return 0
		}
		return last.position + last.baseType.BitSize()
	case Union:
		size := 0
		for _, m := range t.members.ordered {
			if s := m.baseType.BitSize(); s > size {
				size = s
			}
		}
		return size
	default:
		return t.size
	}
}

// ByteSize is BitSize rounded up to whole bytes.
func (t *Type) ByteSize() int {
	return (t.BitSize() + 7) / 8
}

// PointerLevel counts pointsTo hops down to the value type.
func (t *Type) PointerLevel() int {
	level := 0
	for cur := t.pointsTo; cur != nil; cur = cur.pointsTo {
		level++
	}
	return level
}

// ValueType follows pointsTo to the end of the chain.
func (t *Type) ValueType() *Type {
	cur := t
	for cur.pointsTo != nil {
		cur = cur.pointsTo
	}
	return cur
}

// ElementMember returns the element descriptor of an array type.
func (t *Type) ElementMember() *Member {
	if t.category != Array {
		return nil
	}
	return t.members.last()
}

// LastArgument returns the argument with the highest index of a function
// prototype, or nil.
func (t *Type) LastArgument() *Member {
	if t.category != FunctionPrototype {
		return nil
	}
	return t.members.last()
}

// HasMember reports whether m belongs to t.
func (t *Type) HasMember(m *Member) bool {
	return m != nil && t.members.contains(m)
}

// SubsequentMembersInclusive returns the members at or after offset. A
// member whose span contains offset is included as the first element.
func (t *Type) SubsequentMembersInclusive(offset int) ([]*Member, error) {
	if !t.category.IsOffsetCategory() {
		return nil, errors.InvalidCategory(t.name, t.category.String(), "subsequent members")
	}
	if offset < 0 {
		return nil, errors.InvalidInput("negative offset %d", offset)
	}
	start := -1
	for i, m := range t.members.ordered {
		if m.position >= offset || (m.position < offset && offset < m.End()) {
			start = i
			break
		}
	}
	if start < 0 {
		return []*Member{}, nil
	}
	out := make([]*Member, len(t.members.ordered)-start)
	copy(out, t.members.ordered[start:])
	return out, nil
}

// SubsequentMembers returns the members ordered strictly after m.
func (t *Type) SubsequentMembers(m *Member) ([]*Member, error) {
	if !t.category.IsOffsetCategory() {
		return nil, errors.InvalidCategory(t.name, t.category.String(), "subsequent members")
	}
	idx := t.members.indexOf(m)
	if idx < 0 {
		return nil, errors.NotFound(errors.PhaseValidate, "member", m.id)
	}
	out := make([]*Member, len(t.members.ordered)-idx-1)
	copy(out, t.members.ordered[idx+1:])
	return out, nil
}

// MoveResult describes the members that shifted as a side effect of
// moving another block of members.
type MoveResult struct {
	Implicit []*Member
	Delta    int
}

// movePlan is a validated move that has not been applied yet.
type movePlan struct {
	block    []*Member
	implicit []*Member
	delta    int
	result   MoveResult
}

func (p movePlan) blockIDs() []int {
	ids := make([]int, len(p.block))
	for i, m := range p.block {
		ids[i] = m.id
	}
	return ids
}

func (p movePlan) implicitIDs() []int {
	ids := make([]int, len(p.implicit))
	for i, m := range p.implicit {
		ids[i] = m.id
	}
	return ids
}

// moveMembers shifts a contiguous block of members by delta bits. Members
// occupying the range the block moves into shift the other way by the
// block's size.
func (t *Type) moveMembers(moved []*Member, delta int) (MoveResult, error) {
	plan, err := t.planMove(moved, delta)
	if err != nil {
		return MoveResult{}, err
	}
	t.applyMove(plan)
	return plan.result, nil
}

func (t *Type) planMove(moved []*Member, delta int) (movePlan, error) {
	if t.category != Struct {
		return movePlan{}, errors.InvalidCategory(t.name, t.category.String(), "move members")
	}
	if len(moved) == 0 {
		return movePlan{}, errors.InvalidInput("no members to move")
	}

	block := make([]*Member, len(moved))
	copy(block, moved)
	sort.Slice(block, func(i, j int) bool { return block[i].less(block[j]) })

	inBlock := make(map[int]bool, len(block))
	for _, m := range block {
		if !t.members.contains(m) {
			return movePlan{}, errors.NotFound(errors.PhaseValidate, "member", m.id)
		}
		inBlock[m.id] = true
	}

	first, last := block[0], block[len(block)-1]
	end := t.BitSize()
	if first.position+delta < 0 {
		return movePlan{}, errors.OutOfBounds(t.name, first.position+delta, end)
	}
	if last.position+delta > end {
		return movePlan{}, errors.OutOfBounds(t.name, last.position+delta, end)
	}
	for i := 1; i < len(block); i++ {
		if block[i].position != block[i-1].End() {
			return movePlan{}, errors.NotContiguous(t.name, []string{block[i-1].name, block[i].name})
		}
	}

	plan := movePlan{block: block, delta: delta, implicit: []*Member{}}
	plan.result.Implicit = plan.implicit
	if delta == 0 {
		return plan, nil
	}

	occupied := last.End() - first.position
	var lo, hi int
	if delta < 0 {
		lo, hi = first.position+delta, first.position
		plan.result.Delta = occupied
	} else {
		lo, hi = last.End(), last.End()
		if next := t.nextOutside(last, inBlock); next != nil {
			lo, hi = next.position, next.position+delta
		}
		plan.result.Delta = -occupied
	}

	for _, m := range t.members.ordered {
		if !inBlock[m.id] && m.position >= lo && m.position < hi {
			plan.implicit = append(plan.implicit, m)
		}
	}
	plan.result.Implicit = plan.implicit
	return plan, nil
}

// applyMove takes every affected member out of the container before
// changing offsets and puts them back afterwards.
func (t *Type) applyMove(p movePlan) {
	if p.delta == 0 {
		return
	}
	for _, m := range p.block {
		t.members.remove(m)
	}
	for _, m := range p.implicit {
		t.members.remove(m)
	}
	for _, m := range p.block {
		m.position += p.delta
		t.members.add(m)
	}
	for _, m := range p.implicit {
		m.position += p.result.Delta
		t.members.add(m)
	}
}

func (t *Type) nextOutside(m *Member, skip map[int]bool) *Member {
	idx := t.members.indexOf(m)
	if idx < 0 {
		return nil
	}
	for i := idx + 1; i < len(t.members.ordered); i++ {
		if cur := t.members.ordered[i]; !skip[cur.id] {
			return cur
		}
	}
	return nil
}

func (t *Type) addMember(m *Member) {
	t.members.add(m)
}

func (t *Type) removeMember(m *Member) bool {
	return t.members.remove(m)
}

func (t *Type) setName(name string) { t.name = name }
func (t *Type) setSigned(signed bool) { t.signed = signed }
func (t *Type) setStackFrame(frame bool) { t.stackFrame = frame }

// setBitSize only applies to categories with a stored size.
func (t *Type) setBitSize(size int) {
	if !t.category.HasDerivedSize() {
		t.size = size
	}
}

// appendToPointerHierarchy makes pointer point to value.
func appendToPointerHierarchy(value, pointer *Type) error {
	if value == nil || pointer == nil {
		return errors.InvalidInput("pointer hierarchy needs both types")
	}
	if value == pointer {
		return errors.SelfReference(pointer.name, "pointer")
	}
	if pointer.category != Pointer {
		return errors.InvalidCategory(pointer.name, pointer.category.String(), "point to another type")
	}
	for cur := value; cur != nil; cur = cur.pointsTo {
		if cur == pointer {
			return errors.Cyclic(pointer.name, value.name)
		}
	}
	if value.pointedToBy != nil && value.pointedToBy != pointer {
		return errors.New(errors.PhaseValidate, errors.KindDuplicate).
			TypeName(value.name).
			Detail("already pointed to by %s", value.pointedToBy.name).
			Build()
	}
	pointer.pointsTo = value
	value.pointedToBy = pointer
	return nil
}

// detachFromPointerHierarchy removes the edges touching t.
func detachFromPointerHierarchy(t *Type) {
	if t.pointsTo != nil && t.pointsTo.pointedToBy == t {
		t.pointsTo.pointedToBy = nil
	}
	if t.pointedToBy != nil && t.pointedToBy.pointsTo == t {
		t.pointedToBy.pointsTo = nil
	}
	t.pointsTo = nil
	t.pointedToBy = nil
}
