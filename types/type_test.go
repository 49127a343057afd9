package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wippyai/typegraph/errors"
)

func TestCategory_Parse(t *testing.T) {
	for _, c := range []Category{Atomic, Array, Pointer, Struct, Union, FunctionPrototype} {
		got, ok := ParseCategory(c.String())
		require.True(t, ok, c.String())
		assert.Equal(t, c, got)
	}
	_, ok := ParseCategory("class")
	assert.False(t, ok)
	assert.Equal(t, "unknown", Category(42).String())
}

func TestCategory_Rules(t *testing.T) {
	tests := []struct {
		category Category
		offset   bool
		derived  bool
		members  bool
	}{
		{Atomic, false, false, false},
		{Pointer, false, false, false},
		{Array, false, true, true},
		{Struct, true, true, true},
		{Union, true, true, true},
		{FunctionPrototype, false, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.category.String(), func(t *testing.T) {
			assert.Equal(t, tt.offset, tt.category.IsOffsetCategory())
			assert.Equal(t, tt.derived, tt.category.HasDerivedSize())
			assert.Equal(t, tt.members, tt.category.HoldsMembers())
		})
	}
}

func TestType_BitSize(t *testing.T) {
	ts := newTypeSystem(t)

	tests := []struct {
		typ  *Type
		bits int
	}{
		{ts.intType, 32},
		{ts.uintPointer, DefaultPointerSize},
		{ts.uintArray, 10 * 32},
		{ts.simpleStruct, 10*32 + 32 + 32},
		{ts.nestedStruct, 32 + 384},
		{ts.doubleNestedStruct, 416 + 32 + 32},
		{ts.simpleUnion, ts.uintArray.BitSize()},
		{ts.complexUnion, ts.doubleNestedStruct.BitSize()},
		{ts.voidPrototype, 0},
	}
	for _, tt := range tests {
		t.Run(tt.typ.Name(), func(t *testing.T) {
			assert.Equal(t, tt.bits, tt.typ.BitSize())
			assert.Equal(t, (tt.bits+7)/8, tt.typ.ByteSize())
		})
	}
	assert.Equal(t, 4, ts.uintType.ByteSize())
}

func TestType_StructSizeFollowsLastMember(t *testing.T) {
	ts := newTypeSystem(t)

	last := ts.simpleStruct.LastMember()
	require.Equal(t, ts.ssArrayMember, last)
	assert.Equal(t, last.Offset()+last.BitSize(), ts.simpleStruct.BitSize())
	assert.Equal(t, ts.ssIntMember, ts.simpleStruct.FirstMember())
	assert.Nil(t, ts.uintType.LastMember())
	assert.Equal(t, 3, ts.simpleStruct.MemberCount())
	assert.Zero(t, ts.uintType.MemberCount())
}

func TestType_PointerHierarchy(t *testing.T) {
	ts := newTypeSystem(t)

	assert.Equal(t, "unsigned int *", ts.uintPointer.Name())
	assert.Equal(t, 1, ts.uintPointer.PointerLevel())
	assert.Equal(t, 0, ts.uintType.PointerLevel())
	assert.Equal(t, ts.uintType, ts.uintPointer.PointsTo())
	assert.Equal(t, ts.uintPointer, ts.uintType.PointedToBy())
	assert.Equal(t, ts.uintType, ts.uintPointer.ValueType())
	assert.Equal(t, ts.intType, ts.intType.ValueType())
}

func TestAppendToPointerHierarchy(t *testing.T) {
	a := newType(1, "a", 32, false, Atomic)
	p := newType(2, "a *", 32, false, Pointer)
	pp := newType(3, "a **", 32, false, Pointer)
	s := newType(4, "s", 0, false, Struct)

	require.ErrorIs(t, appendToPointerHierarchy(nil, p), errors.ErrInvalidInput)
	require.ErrorIs(t, appendToPointerHierarchy(p, p), errors.ErrSelfReference)
	require.ErrorIs(t, appendToPointerHierarchy(a, s), errors.ErrInvalidCategory)

	require.NoError(t, appendToPointerHierarchy(a, p))
	require.NoError(t, appendToPointerHierarchy(p, pp))
	assert.Equal(t, 2, pp.PointerLevel())
	assert.Equal(t, a, pp.ValueType())

	// pp -> p -> a; making p point to pp closes the chain.
	require.ErrorIs(t, appendToPointerHierarchy(pp, p), errors.ErrCyclicReference)

	other := newType(5, "a * alt", 32, false, Pointer)
	require.ErrorIs(t, appendToPointerHierarchy(a, other), errors.ErrDuplicate)

	detachFromPointerHierarchy(p)
	assert.Nil(t, a.PointedToBy())
	assert.Nil(t, pp.PointsTo())
	assert.Zero(t, pp.PointerLevel())
}

func TestType_SubsequentMembersInclusive(t *testing.T) {
	ts := newTypeSystem(t)

	tests := []struct {
		name   string
		offset int
		want   []*Member
	}{
		{"start", 0, []*Member{ts.ssIntMember, ts.ssUintMember, ts.ssArrayMember}},
		{"inside first member", 16, []*Member{ts.ssIntMember, ts.ssUintMember, ts.ssArrayMember}},
		{"exact second member", 32, []*Member{ts.ssUintMember, ts.ssArrayMember}},
		{"inside array member", 100, []*Member{ts.ssArrayMember}},
		{"past end", 384, []*Member{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ts.simpleStruct.SubsequentMembersInclusive(tt.offset)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ts.uintType.SubsequentMembersInclusive(0)
	require.ErrorIs(t, err, errors.ErrInvalidCategory)
	_, err = ts.simpleStruct.SubsequentMembersInclusive(-1)
	require.ErrorIs(t, err, errors.ErrInvalidInput)
}

func TestType_SubsequentMembers(t *testing.T) {
	ts := newTypeSystem(t)

	got, err := ts.simpleStruct.SubsequentMembers(ts.ssUintMember)
	require.NoError(t, err)
	assert.Equal(t, []*Member{ts.ssArrayMember}, got)

	got, err = ts.simpleStruct.SubsequentMembers(ts.ssArrayMember)
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = ts.simpleStruct.SubsequentMembers(ts.nsIntMember)
	require.ErrorIs(t, err, errors.ErrNotFound)

	_, err = ts.uintArray.SubsequentMembers(ts.uintArray.ElementMember())
	require.ErrorIs(t, err, errors.ErrInvalidCategory)
}

func TestType_MembersSnapshot(t *testing.T) {
	ts := newTypeSystem(t)

	snap := ts.simpleStruct.Members()
	snap[0] = nil
	assert.Equal(t, ts.ssIntMember, ts.simpleStruct.FirstMember())
	assert.Equal(t, ts.ssUintMember, ts.simpleStruct.MemberByID(ts.ssUintMember.ID()))
	assert.True(t, ts.simpleStruct.HasMember(ts.ssArrayMember))
	assert.False(t, ts.simpleStruct.HasMember(ts.nsIntMember))
	assert.False(t, ts.simpleStruct.HasMember(nil))
}

func TestType_UnionMembersShareOffset(t *testing.T) {
	ts := newTypeSystem(t)

	members := ts.simpleUnion.Members()
	require.Len(t, members, 2)
	assert.Equal(t, ts.suIntMember, members[0], "ties on offset are broken by id")
	assert.Equal(t, ts.suArrayMember, members[1])
	requireSorted(t, ts.simpleUnion)
}

func TestMember_Facets(t *testing.T) {
	ts := newTypeSystem(t)

	off, ok := ts.ssUintMember.BitOffset()
	assert.True(t, ok)
	assert.Equal(t, 32, off)
	byteOff, ok := ts.ssUintMember.ByteOffset()
	assert.True(t, ok)
	assert.Equal(t, 4, byteOff)
	_, ok = ts.ssUintMember.NumberOfElements()
	assert.False(t, ok)
	assert.True(t, ts.ssUintMember.IsField())

	elem := ts.uintArray.ElementMember()
	require.NotNil(t, elem)
	assert.Equal(t, ArrayElementName, elem.Name())
	n, ok := elem.NumberOfElements()
	assert.True(t, ok)
	assert.Equal(t, 10, n)
	_, ok = elem.BitOffset()
	assert.False(t, ok)
	assert.Zero(t, elem.Offset())
	assert.True(t, elem.IsElement())

	assert.Equal(t, "unsigned int ss_uint_member", ts.ssUintMember.String())
	assert.Equal(t, "unsigned int", ts.ssUintMember.BaseTypeName())
	assert.Equal(t, ts.simpleStruct, ts.ssUintMember.Parent())
	assert.Equal(t, 64, ts.ssUintMember.End())
}

func TestNewMember_Validation(t *testing.T) {
	s := newType(1, "s", 0, false, Struct)
	u := newType(2, "u", 0, false, Union)
	a := newType(3, "a", 0, false, Array)
	i := newType(4, "i", 32, true, Atomic)

	tests := []struct {
		name   string
		build  func() (*Member, error)
		target error
	}{
		{"nil base", func() (*Member, error) { return newFieldMember(1, "x", nil, s, 0) }, errors.ErrInvalidInput},
		{"self", func() (*Member, error) { return newFieldMember(1, "x", s, s, 0) }, errors.ErrSelfReference},
		{"negative", func() (*Member, error) { return newFieldMember(1, "x", i, s, -8) }, errors.ErrInvalidInput},
		{"count on struct", func() (*Member, error) { return newElementMember(1, "x", i, s, 4) }, errors.ErrInvalidCategory},
		{"offset on array", func() (*Member, error) { return newFieldMember(1, "x", i, a, 0) }, errors.ErrInvalidCategory},
		{"member of atomic", func() (*Member, error) { return newFieldMember(1, "x", s, i, 0) }, errors.ErrInvalidCategory},
		{"union offset", func() (*Member, error) { return newFieldMember(1, "x", i, u, 8) }, errors.ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.build()
			require.ErrorIs(t, err, tt.target)
		})
	}

	m, err := newArgumentMember(1, "arg", i, newType(5, "fn", 0, false, FunctionPrototype), 2)
	require.NoError(t, err)
	idx, ok := m.ArgumentIndex()
	assert.True(t, ok)
	assert.Equal(t, 2, idx)
}

func TestMember_SetPositionKeepsOrder(t *testing.T) {
	s := newType(1, "s", 0, false, Struct)
	i := newType(2, "i", 32, true, Atomic)

	a, err := newFieldMember(1, "a", i, s, 0)
	require.NoError(t, err)
	b, err := newFieldMember(2, "b", i, s, 32)
	require.NoError(t, err)
	s.addMember(a)
	s.addMember(b)

	a.setPosition(64)
	assert.Equal(t, []*Member{b, a}, s.Members())
	assert.Equal(t, a, s.LastMember())
	assert.Equal(t, 96, s.BitSize())
}
