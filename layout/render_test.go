package layout

import (
	"context"
	"reflect"
	"testing"

	"github.com/wippyai/typegraph/types"
)

func intPtr(v int) *int { return &v }

func TestRenderSubstitution(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	intType := f.m.TypeByName("int")
	simplePtr, err := f.m.CreatePointerType(ctx, f.simple)
	if err != nil {
		t.Fatalf("CreatePointerType: %v", err)
	}
	asPoint := f.union.Members()[0]
	points := f.records.Members()[1]
	pointArray := points.BaseType()
	y := f.point.Members()[1]

	tests := []struct {
		name string
		spec types.SubstitutionSpec
		want string
	}{
		{
			name: "explicit path through union",
			spec: types.SubstitutionSpec{BaseType: f.union, Path: []*types.Member{asPoint, y}},
			want: "PointOrInt.as_point.y",
		},
		{
			name: "explicit path through array",
			spec: types.SubstitutionSpec{
				BaseType: f.records,
				Path:     []*types.Member{points, pointArray.ElementMember(), y},
			},
			want: "Records.points[].y",
		},
		{
			name: "offset resolves",
			spec: types.SubstitutionSpec{BaseType: f.double, Offset: intPtr(416)},
			want: "DoubleNestedStruct.dns_int_member",
		},
		{
			name: "no offset resolves first member",
			spec: types.SubstitutionSpec{BaseType: f.simple},
			want: "SimpleStruct.ss_int_member",
		},
		{
			name: "offset misses",
			spec: types.SubstitutionSpec{BaseType: f.simple, Offset: intPtr(100)},
			want: "SimpleStruct+0xd",
		},
		{
			name: "pointer resolves value type",
			spec: types.SubstitutionSpec{BaseType: simplePtr, Offset: intPtr(32)},
			want: "SimpleStruct.ss_uint_member",
		},
		{
			name: "pointer misses",
			spec: types.SubstitutionSpec{BaseType: simplePtr, Offset: intPtr(8)},
			want: "SimpleStruct *+0x1",
		},
		{
			name: "scalar",
			spec: types.SubstitutionSpec{BaseType: intType},
			want: "int",
		},
		{
			name: "scalar with offset",
			spec: types.SubstitutionSpec{BaseType: intType, Offset: intPtr(16)},
			want: "int+0x2",
		},
	}

	for i, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			spec := tc.spec
			spec.Address = uint64(0x1000 + i)
			s, err := f.m.CreateSubstitution(ctx, spec)
			if err != nil {
				t.Fatalf("CreateSubstitution: %v", err)
			}
			if got := RenderSubstitution(s); got != tc.want {
				t.Errorf("got %q, want %q", got, tc.want)
			}
		})
	}
}

func TestRenderSubstitution_FollowsRename(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	s, err := f.m.CreateSubstitution(ctx, types.SubstitutionSpec{BaseType: f.point, Offset: intPtr(32)})
	if err != nil {
		t.Fatalf("CreateSubstitution: %v", err)
	}
	if err := f.m.RenameType(ctx, f.point, "Vec2"); err != nil {
		t.Fatalf("RenameType: %v", err)
	}
	if got := RenderSubstitution(s); got != "Vec2.y" {
		t.Errorf("got %q, want %q", got, "Vec2.y")
	}
}

func TestRenderOffset(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		typ    *types.Type
		offset int
		want   string
	}{
		{f.point, 32, "Point.y"},
		{f.point, 0, "Point.x"},
		{f.point, 16, "Point+0x2"},
		{f.uintType, 0, "unsigned int"},
		{f.uintType, 8, "unsigned int+0x1"},
		{f.uintArray, -8, "unsigned int[10]-1"},
		{f.records, 160, "Records.points[2]"},
	}
	for _, tc := range tests {
		if got := RenderOffset(tc.typ, tc.offset); got != tc.want {
			t.Errorf("RenderOffset(%s, %d) = %q, want %q", tc.typ.Name(), tc.offset, got, tc.want)
		}
	}
}

func TestDump(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name string
		typ  *types.Type
		want []Row
	}{
		{
			name: "nested struct",
			typ:  f.nested,
			want: []Row{
				{Name: "NestedStruct", TypeName: "struct", Offset: 0, Size: 416},
				{Name: "NestedStruct.ns_int_member", TypeName: "int", Offset: 0, Size: 32, Depth: 1},
				{Name: "NestedStruct.ns_simple_struct_member", TypeName: "SimpleStruct", Offset: 32, Size: 384, Depth: 1},
				{Name: "NestedStruct.ns_simple_struct_member.ss_int_member", TypeName: "int", Offset: 32, Size: 32, Depth: 2},
				{Name: "NestedStruct.ns_simple_struct_member.ss_uint_member", TypeName: "unsigned int", Offset: 64, Size: 32, Depth: 2},
				{Name: "NestedStruct.ns_simple_struct_member.ss_array_member", TypeName: "unsigned int[10]", Offset: 96, Size: 320, Depth: 2},
			},
		},
		{
			name: "array",
			typ:  f.uintArray,
			want: []Row{
				{Name: "unsigned int[10]", TypeName: "array", Size: 320},
				{Name: "unsigned int[10]", TypeName: "unsigned int", Size: 320, Depth: 1},
			},
		},
		{
			name: "union",
			typ:  f.union,
			want: []Row{
				{Name: "PointOrInt", TypeName: "union", Size: 64},
				{Name: "PointOrInt.as_point", TypeName: "Point", Size: 64, Depth: 1},
				{Name: "PointOrInt.as_point.x", TypeName: "int", Size: 32, Depth: 2},
				{Name: "PointOrInt.as_point.y", TypeName: "int", Offset: 32, Size: 32, Depth: 2},
				{Name: "PointOrInt.as_int", TypeName: "int", Size: 32, Depth: 1},
			},
		},
		{
			name: "prototype",
			typ:  f.fn,
			want: []Row{
				{Name: "handler", TypeName: "function_prototype"},
				{Name: "handler.code", TypeName: "int", Size: 32, Depth: 1},
			},
		},
		{
			name: "atomic",
			typ:  f.uintType,
			want: []Row{{Name: "unsigned int", TypeName: "atomic", Size: 32}},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Dump(tc.typ)
			if !reflect.DeepEqual(got, tc.want) {
				t.Errorf("Dump mismatch:\ngot:  %+v\nwant: %+v", got, tc.want)
			}
		})
	}

	if Dump(nil) != nil {
		t.Error("Dump(nil) should be nil")
	}
}
