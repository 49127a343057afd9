package types

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/stretchr/testify/require"

	"github.com/wippyai/typegraph/store"
	"github.com/wippyai/typegraph/store/memstore"
)

// typeSystem is a small graph shared by most tests:
//
//	SimpleStruct       { int ss_int_member@0; unsigned int ss_uint_member@32; unsigned int[10] ss_array_member@64 }
//	NestedStruct       { int ns_int_member@0; SimpleStruct ns_simple_struct_member@32 }
//	DoubleNestedStruct { NestedStruct dns_nested_struct_member@0; int dns_int_member@416; unsigned int * dns_pointer_member@448 }
//	SimpleUnion        { int su_int_member; unsigned int[10] su_array_member }
//	ComplexUnion       { SimpleStruct cu_simple_struct_member; DoubleNestedStruct cu_double_nested_struct_member }
type typeSystem struct {
	backend *memstore.Backend
	m       *Manager

	intType     *Type
	uintType    *Type
	uintArray   *Type
	uintPointer *Type

	simpleStruct  *Type
	ssIntMember   *Member
	ssUintMember  *Member
	ssArrayMember *Member

	nestedStruct         *Type
	nsIntMember          *Member
	nsSimpleStructMember *Member

	doubleNestedStruct    *Type
	dnsNestedStructMember *Member
	dnsIntMember          *Member
	dnsPointerMember      *Member

	simpleUnion   *Type
	suIntMember   *Member
	suArrayMember *Member

	complexUnion *Type

	voidPrototype *Type
}

func newTypeSystem(t *testing.T) *typeSystem {
	t.Helper()
	return newTypeSystemWith(t, DefaultOptions())
}

func newTypeSystemWith(t *testing.T, opts Options) *typeSystem {
	t.Helper()
	ctx := context.Background()
	ts := &typeSystem{backend: memstore.New()}
	ts.m = New(ts.backend, opts)
	m := ts.m

	var err error
	ts.intType, err = m.CreateAtomicType(ctx, "int", 32, true)
	require.NoError(t, err)
	ts.uintType, err = m.CreateAtomicType(ctx, "unsigned int", 32, false)
	require.NoError(t, err)
	ts.uintArray, err = m.CreateArray(ctx, ts.uintType, 10)
	require.NoError(t, err)
	ts.uintPointer, err = m.CreatePointerType(ctx, ts.uintType)
	require.NoError(t, err)

	ts.simpleStruct, err = m.CreateStructure(ctx, "SimpleStruct", false)
	require.NoError(t, err)
	ts.ssIntMember = appendMember(t, m, ts.simpleStruct, ts.intType, "ss_int_member")
	ts.ssUintMember = appendMember(t, m, ts.simpleStruct, ts.uintType, "ss_uint_member")
	ts.ssArrayMember = appendMember(t, m, ts.simpleStruct, ts.uintArray, "ss_array_member")

	ts.nestedStruct, err = m.CreateStructure(ctx, "NestedStruct", false)
	require.NoError(t, err)
	ts.nsIntMember = appendMember(t, m, ts.nestedStruct, ts.intType, "ns_int_member")
	ts.nsSimpleStructMember = appendMember(t, m, ts.nestedStruct, ts.simpleStruct, "ns_simple_struct_member")

	ts.doubleNestedStruct, err = m.CreateStructure(ctx, "DoubleNestedStruct", false)
	require.NoError(t, err)
	ts.dnsNestedStructMember = appendMember(t, m, ts.doubleNestedStruct, ts.nestedStruct, "dns_nested_struct_member")
	ts.dnsIntMember = appendMember(t, m, ts.doubleNestedStruct, ts.intType, "dns_int_member")
	ts.dnsPointerMember = appendMember(t, m, ts.doubleNestedStruct, ts.uintPointer, "dns_pointer_member")

	ts.simpleUnion, err = m.CreateUnion(ctx, "SimpleUnion")
	require.NoError(t, err)
	ts.suIntMember = appendMember(t, m, ts.simpleUnion, ts.intType, "su_int_member")
	ts.suArrayMember = appendMember(t, m, ts.simpleUnion, ts.uintArray, "su_array_member")

	ts.complexUnion, err = m.CreateUnion(ctx, "ComplexUnion")
	require.NoError(t, err)
	appendMember(t, m, ts.complexUnion, ts.simpleStruct, "cu_simple_struct_member")
	appendMember(t, m, ts.complexUnion, ts.doubleNestedStruct, "cu_double_nested_struct_member")

	ts.voidPrototype, err = m.CreateFunctionPrototype(ctx, "void_fn")
	require.NoError(t, err)
	return ts
}

func appendMember(t *testing.T, m *Manager, container, base *Type, name string) *Member {
	t.Helper()
	mem, err := m.AppendMember(context.Background(), container, base, name)
	require.NoError(t, err)
	return mem
}

// offsets maps member names to positions, for compact assertions.
func offsets(t *Type) map[string]int {
	out := make(map[string]int)
	for _, m := range t.Members() {
		out[m.Name()] = m.position
	}
	return out
}

// storedOffsets reads member offsets back from the backend.
func storedOffsets(t *testing.T, b store.Backend, parent *Type) map[string]int {
	t.Helper()
	raws, err := b.LoadMembers(context.Background())
	require.NoError(t, err)
	out := make(map[string]int)
	for _, raw := range raws {
		if raw.ParentID == parent.ID() && raw.Offset != nil {
			out[raw.Name] = *raw.Offset
		}
	}
	return out
}

// requireSorted checks that members come out in non-decreasing offset order
// and that union members all sit at offset 0.
func requireSorted(t *testing.T, typ *Type) {
	t.Helper()
	members := typ.Members()
	for i := 1; i < len(members); i++ {
		require.LessOrEqual(t, members[i-1].position, members[i].position, spew.Sdump(offsets(typ)))
	}
	if typ.Category() == Union {
		for _, mem := range members {
			require.Zero(t, mem.position, mem.Name())
		}
	}
}

// recorder logs every notification as "event:subject".
type recorder struct {
	log *[]string
	tag string
	mu  sync.Mutex
}

func newRecorder() *recorder {
	return &recorder{log: new([]string)}
}

func (r *recorder) add(event string, subject string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry := event + ":" + subject
	if r.tag != "" {
		entry = r.tag + "/" + entry
	}
	*r.log = append(*r.log, entry)
}

func (r *recorder) events() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), *r.log...)
}

func (r *recorder) count(prefix string) int {
	n := 0
	for _, e := range r.events() {
		if strings.HasPrefix(e, prefix) {
			n++
		}
	}
	return n
}

func (r *recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	*r.log = nil
}

func typeNames(types []*Type) string {
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = t.Name()
	}
	return strings.Join(names, ",")
}

func substIDs(s []*Substitution) string {
	names := make([]string, len(s))
	for i, cur := range s {
		names[i] = cur.BaseType().Name()
	}
	return strings.Join(names, ",")
}

func (r *recorder) MemberAdded(m *Member) { r.add("member_added", m.Name()) }
func (r *recorder) MemberDeleted(m *Member) { r.add("member_deleted", m.Name()) }
func (r *recorder) MemberUpdated(m *Member) { r.add("member_updated", m.Name()) }
func (r *recorder) MembersMoved(affected []*Type) { r.add("members_moved", typeNames(affected)) }
func (r *recorder) TypeAdded(t *Type) { r.add("type_added", t.Name()) }
func (r *recorder) TypeDeleted(t *Type) { r.add("type_deleted", t.Name()) }
func (r *recorder) TypesUpdated(affected []*Type) { r.add("types_updated", typeNames(affected)) }
func (r *recorder) SubstitutionsAdded(s []*Substitution) { r.add("substitutions_added", substIDs(s)) }
func (r *recorder) SubstitutionsChanged(s []*Substitution) { r.add("substitutions_changed", substIDs(s)) }
func (r *recorder) SubstitutionsDeleted(s []*Substitution) { r.add("substitutions_deleted", substIDs(s)) }

// countingBackend counts write calls that reach the backend.
type countingBackend struct {
	*memstore.Backend
	writes int
}

func (b *countingBackend) CreateType(ctx context.Context, t store.RawType) (int, error) {
	b.writes++
	return b.Backend.CreateType(ctx, t)
}

func (b *countingBackend) CreateMember(ctx context.Context, m store.RawMember) (int, error) {
	b.writes++
	return b.Backend.CreateMember(ctx, m)
}

func (b *countingBackend) UpdateMember(ctx context.Context, m store.RawMember) error {
	b.writes++
	return b.Backend.UpdateMember(ctx, m)
}

func (b *countingBackend) UpdateMemberOffsets(ctx context.Context, ids []int, delta int, implicitIDs []int, implicitDelta int) error {
	b.writes++
	return b.Backend.UpdateMemberOffsets(ctx, ids, delta, implicitIDs, implicitDelta)
}
