package types

import (
	"context"

	"go.uber.org/zap"

	"github.com/wippyai/typegraph/errors"
	"github.com/wippyai/typegraph/store"
)

// The methods in this file apply changes that were already made to the
// backend by someone else, e.g. another process editing the same store.
// They update the graph and notify listeners without writing back.

// LoadAndInitializeType adds a type that exists in the backend.
func (m *Manager) LoadAndInitializeType(raw store.RawType) (*Type, error) {
	var out *Type
	err := m.apply(context.Background(), func(tx *txn) error {
		if _, dup := m.types[raw.ID]; dup {
			return errors.New(errors.PhaseSync, errors.KindDuplicate).TypeName(raw.Name).Value(raw.ID).Build()
		}
		t, err := typeFromRaw(raw)
		if err != nil {
			return err
		}
		m.types[t.id] = t
		if raw.PointsTo != nil {
			if err := m.linkPointer(raw); err != nil {
				delete(m.types, t.id)
				return err
			}
		}
		tx.register(t)
		out = t
		return nil
	})
	return out, err
}

// LoadAndInitializeMember adds a member that exists in the backend.
func (m *Manager) LoadAndInitializeMember(raw store.RawMember) (*Member, error) {
	var out *Member
	err := m.apply(context.Background(), func(tx *txn) error {
		mem, err := m.memberFromRaw(raw, errors.PhaseSync)
		if err != nil {
			return err
		}
		if m.deps.WillCreateCycle(mem.parent.id, mem.baseType.id) {
			return errors.Cyclic(mem.parent.name, mem.baseType.name)
		}
		m.attachMember(mem)
		tx.memberAdded(mem)
		out = mem
		return nil
	})
	return out, err
}

// LoadAndUpdateType applies a changed type record.
func (m *Manager) LoadAndUpdateType(raw store.RawType) error {
	return m.apply(context.Background(), func(tx *txn) error {
		t, ok := m.types[raw.ID]
		if !ok {
			return errors.NotFound(errors.PhaseSync, "type", raw.ID)
		}
		category, ok := ParseCategory(raw.Category)
		if !ok || category != t.category {
			return errors.New(errors.PhaseSync, errors.KindInvalidCategory).
				TypeName(t.name).
				Detail("category cannot change from %s to %q", t.category, raw.Category).
				Build()
		}
		t.setName(raw.Name)
		t.setSigned(raw.Signed)
		t.setStackFrame(raw.StackFrame)
		t.setBitSize(raw.BitSize)
		tx.typesUpdated(m.resolveIDs(m.deps.UpdateType(t.id)))
		return nil
	})
}

// LoadAndUpdateMember applies a changed member record.
func (m *Manager) LoadAndUpdateMember(raw store.RawMember) error {
	return m.apply(context.Background(), func(tx *txn) error {
		mem, ok := m.members[raw.ID]
		if !ok {
			return errors.NotFound(errors.PhaseSync, "member", raw.ID)
		}
		if raw.ParentID != mem.parent.id {
			return errors.New(errors.PhaseSync, errors.KindInvalidInput).
				Path(mem.parent.name, mem.name).
				Detail("member cannot move to parent %d", raw.ParentID).
				Build()
		}
		base, ok := m.types[raw.BaseTypeID]
		if !ok {
			return errors.NotFound(errors.PhaseSync, "base type", raw.BaseTypeID)
		}
		if base != mem.baseType && m.deps.WillCreateCycle(mem.parent.id, base.id) {
			return errors.Cyclic(mem.parent.name, base.name)
		}
		position, ok := rawPosition(raw, mem.kind)
		if !ok {
			return errors.New(errors.PhaseSync, errors.KindInvalidInput).
				Path(mem.parent.name, mem.name).
				Detail("record does not carry a %s position", mem.kind).
				Build()
		}

		old := mem.baseType
		mem.setName(raw.Name)
		mem.setBaseType(base)
		mem.setPosition(position)
		m.deps.UpdateMember(mem.parent.id, old.id, base.id)
		tx.memberUpdated(mem)
		return nil
	})
}

// RemoveTypeInstance drops a type that was deleted from the backend,
// together with any member still referring to it.
func (m *Manager) RemoveTypeInstance(id int) error {
	return m.apply(context.Background(), func(tx *txn) error {
		t, ok := m.types[id]
		if !ok {
			return errors.NotFound(errors.PhaseSync, "type", id)
		}
		for _, holder := range m.sortedTypes() {
			if holder == t {
				continue
			}
			for _, mem := range holder.Members() {
				if mem.baseType == t {
					m.detachMember(mem)
					tx.memberDeleted(mem)
				}
			}
		}
		for _, s := range m.sortedSubstitutions(func(s *Substitution) bool { return s.baseType == t }) {
			delete(m.substitutions, s.id)
			tx.substitutionsDeleted([]*Substitution{s})
		}
		tx.unregister(t)
		return nil
	})
}

// RemoveMemberInstance drops a member that was deleted from the backend.
func (m *Manager) RemoveMemberInstance(id int) error {
	return m.apply(context.Background(), func(tx *txn) error {
		mem, ok := m.members[id]
		if !ok {
			return errors.NotFound(errors.PhaseSync, "member", id)
		}
		for _, s := range m.sortedSubstitutions(func(s *Substitution) bool { return s.references(mem) }) {
			delete(m.substitutions, s.id)
			tx.substitutionsDeleted([]*Substitution{s})
		}
		m.detachMember(mem)
		m.log.Debug("member removed by sync", zap.Int("id", id))
		tx.memberDeleted(mem)
		return nil
	})
}

func rawPosition(raw store.RawMember, kind MemberKind) (int, bool) {
	var p *int
	switch kind {
	case FieldMember:
		p = raw.Offset
	case ElementMember:
		p = raw.Count
	case ArgumentMember:
		p = raw.ArgumentIndex
	}
	if p == nil || *p < 0 {
		return 0, false
	}
	return *p, true
}
