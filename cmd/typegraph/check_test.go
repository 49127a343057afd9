package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/wippyai/typegraph/layout"
	"github.com/wippyai/typegraph/store"
	"github.com/wippyai/typegraph/store/memstore"
	"github.com/wippyai/typegraph/types"
)

type checkFixture struct {
	backend *memstore.Backend
	m       *types.Manager
	intType *types.Type
	point   *types.Type
	y       *types.Member
}

func newCheckFixture(t *testing.T) *checkFixture {
	t.Helper()
	ctx := context.Background()
	backend := memstore.New()
	m := types.NewWithDefaults(backend)

	intType, err := m.CreateAtomicType(ctx, "int", 32, true)
	if err != nil {
		t.Fatalf("CreateAtomicType: %v", err)
	}
	point, err := m.CreateStructure(ctx, "Point", false)
	if err != nil {
		t.Fatalf("CreateStructure: %v", err)
	}
	if _, err := m.AppendMember(ctx, point, intType, "x"); err != nil {
		t.Fatalf("AppendMember: %v", err)
	}
	y, err := m.AppendMember(ctx, point, intType, "y")
	if err != nil {
		t.Fatalf("AppendMember: %v", err)
	}
	if _, err := m.CreateArray(ctx, point, 4); err != nil {
		t.Fatalf("CreateArray: %v", err)
	}
	if _, err := m.CreatePointerType(ctx, point); err != nil {
		t.Fatalf("CreatePointerType: %v", err)
	}
	return &checkFixture{backend: backend, m: m, intType: intType, point: point, y: y}
}

func (f *checkFixture) check(t *testing.T) []string {
	t.Helper()
	ctx := context.Background()
	rawTypes, err := f.backend.LoadTypes(ctx)
	if err != nil {
		t.Fatalf("LoadTypes: %v", err)
	}
	rawMembers, err := f.backend.LoadMembers(ctx)
	if err != nil {
		t.Fatalf("LoadMembers: %v", err)
	}
	return check(f.m, rawTypes, rawMembers)
}

func TestCheck_Consistent(t *testing.T) {
	f := newCheckFixture(t)
	if problems := f.check(t); len(problems) != 0 {
		t.Errorf("unexpected problems: %v", problems)
	}
}

func TestCheck_StoredSizeDiffers(t *testing.T) {
	f := newCheckFixture(t)
	err := f.backend.UpdateType(context.Background(), store.RawType{
		ID:       f.intType.ID(),
		Name:     "int",
		Category: "atomic",
		BitSize:  64,
		Signed:   true,
	})
	if err != nil {
		t.Fatalf("UpdateType: %v", err)
	}

	problems := f.check(t)
	if len(problems) != 1 || problems[0] != "int: stored size 64, loaded 32" {
		t.Errorf("got %v", problems)
	}
}

func TestCheck_StoredOffsetDiffers(t *testing.T) {
	f := newCheckFixture(t)
	if err := f.backend.UpdateMemberOffsets(context.Background(), []int{f.y.ID()}, 8, nil, 0); err != nil {
		t.Fatalf("UpdateMemberOffsets: %v", err)
	}

	problems := f.check(t)
	if len(problems) != 1 || problems[0] != "Point.y: stored position 40, loaded 32" {
		t.Errorf("got %v", problems)
	}
}

func TestCheck_MissingType(t *testing.T) {
	f := newCheckFixture(t)
	if _, err := f.backend.CreateType(context.Background(), store.RawType{Name: "ghost", Category: "atomic", BitSize: 8}); err != nil {
		t.Fatalf("CreateType: %v", err)
	}

	problems := f.check(t)
	if len(problems) != 1 || !strings.Contains(problems[0], "(ghost): stored but not loaded") {
		t.Errorf("got %v", problems)
	}
}

func TestCheckArgs(t *testing.T) {
	tests := []struct {
		cmd  string
		args []string
		ok   bool
	}{
		{"show", []string{"Point"}, true},
		{"show", nil, false},
		{"find", []string{"Point", "32"}, true},
		{"find", []string{"Point"}, false},
		{"check", nil, true},
		{"drop", nil, false},
	}
	for _, tc := range tests {
		err := checkArgs(tc.cmd, tc.args)
		if (err == nil) != tc.ok {
			t.Errorf("checkArgs(%s, %v) = %v", tc.cmd, tc.args, err)
		}
	}
}

func TestRenderRows_Plain(t *testing.T) {
	f := newCheckFixture(t)
	var buf bytes.Buffer
	renderRows(&buf, layout.Dump(f.point), false)

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines:\n%s", len(lines), buf.String())
	}
	if lines[0] != "struct Point, 64 bits" {
		t.Errorf("header: %q", lines[0])
	}
	if !strings.HasSuffix(lines[2], "Point.y int") || !strings.Contains(lines[2], "32 +32") {
		t.Errorf("row: %q", lines[2])
	}
}
