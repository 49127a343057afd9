// Package memstore provides an in-memory store.Backend.
package memstore

import (
	"context"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/typegraph/store"
)

// Backend is an in-memory store.Backend. Ids start at 1 and are not reused
// while the backend lives. Import rebuilds the id space from the imported
// records, so ids of deleted records above the highest imported id are
// handed out again.
type Backend struct {
	types    []typeEntry
	members  []memberEntry
	substs   []substEntry
	failures map[string]error
	mu       sync.RWMutex
	closed   bool
}

type typeEntry struct {
	value store.RawType
	valid bool
}

type memberEntry struct {
	value store.RawMember
	valid bool
}

type substEntry struct {
	value store.RawSubstitution
	valid bool
}

var _ store.Backend = (*Backend)(nil)

// New creates an empty backend.
func New() *Backend {
	return &Backend{
		types:    make([]typeEntry, 0, 64),
		members:  make([]memberEntry, 0, 128),
		failures: make(map[string]error),
	}
}

// FailNext makes the next call of the named operation return err.
// Operation names match the Backend method names.
func (b *Backend) FailNext(op string, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures[op] = err
}

func (b *Backend) check(op string) error {
	if b.closed {
		return store.ErrClosed
	}
	if err, ok := b.failures[op]; ok {
		delete(b.failures, op)
		return err
	}
	Logger().Debug("memstore", zap.String("op", op))
	return nil
}

// CreateType stores a type and returns its id.
func (b *Backend) CreateType(_ context.Context, t store.RawType) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.check("CreateType"); err != nil {
		return 0, err
	}
	t.ID = len(b.types) + 1
	b.types = append(b.types, typeEntry{value: t, valid: true})
	return t.ID, nil
}

// UpdateType overwrites a stored type.
func (b *Backend) UpdateType(_ context.Context, t store.RawType) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.check("UpdateType"); err != nil {
		return err
	}
	e := b.typeEntry(t.ID)
	if e == nil {
		return store.ErrNotFound
	}
	e.value = t
	return nil
}

// DeleteType removes a type and its members.
func (b *Backend) DeleteType(_ context.Context, id int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.check("DeleteType"); err != nil {
		return err
	}
	e := b.typeEntry(id)
	if e == nil {
		return store.ErrNotFound
	}
	e.valid = false
	for i := range b.members {
		if b.members[i].valid && b.members[i].value.ParentID == id {
			b.members[i].valid = false
		}
	}
	return nil
}

// CreateMember stores a member and returns its id.
func (b *Backend) CreateMember(_ context.Context, m store.RawMember) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.check("CreateMember"); err != nil {
		return 0, err
	}
	if b.typeEntry(m.ParentID) == nil || b.typeEntry(m.BaseTypeID) == nil {
		return 0, store.ErrNotFound
	}
	m.ID = len(b.members) + 1
	b.members = append(b.members, memberEntry{value: m, valid: true})
	return m.ID, nil
}

// UpdateMember overwrites a stored member.
func (b *Backend) UpdateMember(_ context.Context, m store.RawMember) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.check("UpdateMember"); err != nil {
		return err
	}
	e := b.memberEntry(m.ID)
	if e == nil {
		return store.ErrNotFound
	}
	e.value = m
	return nil
}

// DeleteMember removes a member.
func (b *Backend) DeleteMember(_ context.Context, id int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.check("DeleteMember"); err != nil {
		return err
	}
	e := b.memberEntry(id)
	if e == nil {
		return store.ErrNotFound
	}
	e.valid = false
	return nil
}

// UpdateMemberOffsets shifts two groups of member offsets.
func (b *Backend) UpdateMemberOffsets(_ context.Context, ids []int, delta int, implicitIDs []int, implicitDelta int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.check("UpdateMemberOffsets"); err != nil {
		return err
	}
	shift := func(ids []int, d int) error {
		for _, id := range ids {
			e := b.memberEntry(id)
			if e == nil || e.value.Offset == nil {
				return store.ErrNotFound
			}
			e.value.Offset = store.Int(*e.value.Offset + d)
		}
		return nil
	}
	if err := shift(ids, delta); err != nil {
		return err
	}
	return shift(implicitIDs, implicitDelta)
}

// CreateSubstitution stores a substitution and returns its id.
func (b *Backend) CreateSubstitution(_ context.Context, s store.RawSubstitution) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.check("CreateSubstitution"); err != nil {
		return 0, err
	}
	s.ID = len(b.substs) + 1
	s.Path = append([]int(nil), s.Path...)
	b.substs = append(b.substs, substEntry{value: s, valid: true})
	return s.ID, nil
}

// UpdateSubstitution overwrites a stored substitution.
func (b *Backend) UpdateSubstitution(_ context.Context, s store.RawSubstitution) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.check("UpdateSubstitution"); err != nil {
		return err
	}
	if s.ID <= 0 || s.ID > len(b.substs) || !b.substs[s.ID-1].valid {
		return store.ErrNotFound
	}
	s.Path = append([]int(nil), s.Path...)
	b.substs[s.ID-1].value = s
	return nil
}

// DeleteSubstitution removes a substitution.
func (b *Backend) DeleteSubstitution(_ context.Context, id int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.check("DeleteSubstitution"); err != nil {
		return err
	}
	if id <= 0 || id > len(b.substs) || !b.substs[id-1].valid {
		return store.ErrNotFound
	}
	b.substs[id-1].valid = false
	return nil
}

// LoadTypes returns all live types ordered by id.
func (b *Backend) LoadTypes(_ context.Context) ([]store.RawType, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.check("LoadTypes"); err != nil {
		return nil, err
	}
	out := make([]store.RawType, 0, len(b.types))
	for _, e := range b.types {
		if e.valid {
			out = append(out, e.value)
		}
	}
	return out, nil
}

// LoadMembers returns all live members ordered by id.
func (b *Backend) LoadMembers(_ context.Context) ([]store.RawMember, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.check("LoadMembers"); err != nil {
		return nil, err
	}
	out := make([]store.RawMember, 0, len(b.members))
	for _, e := range b.members {
		if e.valid {
			out = append(out, e.value)
		}
	}
	return out, nil
}

// LoadSubstitutions returns all live substitutions ordered by id.
func (b *Backend) LoadSubstitutions(_ context.Context) ([]store.RawSubstitution, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.check("LoadSubstitutions"); err != nil {
		return nil, err
	}
	out := make([]store.RawSubstitution, 0, len(b.substs))
	for _, e := range b.substs {
		if e.valid {
			s := e.value
			s.Path = append([]int(nil), s.Path...)
			out = append(out, s)
		}
	}
	return out, nil
}

// Import replaces the contents of the backend with the given records,
// keeping their ids. Used to restore snapshots.
func (b *Backend) Import(types []store.RawType, members []store.RawMember, substs []store.RawSubstitution) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.types = b.types[:0]
	b.members = b.members[:0]
	b.substs = b.substs[:0]

	sort.Slice(types, func(i, j int) bool { return types[i].ID < types[j].ID })
	for _, t := range types {
		for len(b.types) < t.ID-1 {
			b.types = append(b.types, typeEntry{})
		}
		b.types = append(b.types, typeEntry{value: t, valid: true})
	}
	sort.Slice(members, func(i, j int) bool { return members[i].ID < members[j].ID })
	for _, m := range members {
		for len(b.members) < m.ID-1 {
			b.members = append(b.members, memberEntry{})
		}
		b.members = append(b.members, memberEntry{value: m, valid: true})
	}
	sort.Slice(substs, func(i, j int) bool { return substs[i].ID < substs[j].ID })
	for _, s := range substs {
		for len(b.substs) < s.ID-1 {
			b.substs = append(b.substs, substEntry{})
		}
		b.substs = append(b.substs, substEntry{value: s, valid: true})
	}
}

// Len returns the number of live types and members.
func (b *Backend) Len() (types, members int) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, e := range b.types {
		if e.valid {
			types++
		}
	}
	for _, e := range b.members {
		if e.valid {
			members++
		}
	}
	return types, members
}

// Close releases all records.
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true
	b.types = nil
	b.members = nil
	b.substs = nil
	return nil
}

func (b *Backend) typeEntry(id int) *typeEntry {
	if id <= 0 || id > len(b.types) || !b.types[id-1].valid {
		return nil
	}
	return &b.types[id-1]
}

func (b *Backend) memberEntry(id int) *memberEntry {
	if id <= 0 || id > len(b.members) || !b.members[id-1].valid {
		return nil
	}
	return &b.members[id-1]
}
