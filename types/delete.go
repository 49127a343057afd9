package types

import (
	"context"

	"go.uber.org/zap"

	"github.com/wippyai/typegraph/errors"
)

// DeleteMember removes mem from its parent together with the
// substitutions whose member path runs through it. When the parent
// changes size the change is propagated to every type containing it.
func (m *Manager) DeleteMember(ctx context.Context, mem *Member) error {
	return m.apply(ctx, func(tx *txn) error {
		if err := m.knownMember(mem); err != nil {
			return err
		}
		return tx.deleteMember(mem)
	})
}

func (tx *txn) deleteMember(mem *Member) error {
	parent := mem.parent
	affected := tx.m.deps.DependentTypes(parent.id)
	oldSizes := tx.captureSizes(affected)

	for _, s := range tx.m.sortedSubstitutions(func(s *Substitution) bool { return s.references(mem) }) {
		if err := tx.deleteSubstitution(s); err != nil {
			return err
		}
		tx.writes++
	}

	if err := tx.m.backend.DeleteMember(tx.ctx, mem.id); err != nil {
		return tx.diverged(tx.persist("delete member", err))
	}
	tx.m.detachMember(mem)
	tx.writes++
	tx.m.log.Debug("member deleted", zap.Int("id", mem.id), zap.Int("parent", parent.id))
	tx.memberDeleted(mem)

	old, tracked := oldSizes[parent.id]
	if !tracked || parent.BitSize() == old {
		return nil
	}
	tx.substitutionsChanged(tx.m.substitutionsOf(affected))
	return tx.ensureConsistency(affected, parent, oldSizes)
}

// DeleteType removes t. Every member of another type whose base type is t
// is deleted first, then every substitution referring to t; each removal
// is persisted and notified on its own. A type that still has a pointer
// type pointing to it cannot be deleted.
func (m *Manager) DeleteType(ctx context.Context, t *Type) error {
	return m.apply(ctx, func(tx *txn) error {
		if err := m.knownType(t, "deleted"); err != nil {
			return err
		}
		if t.pointedToBy != nil {
			return errors.InUse(t.name, t.pointedToBy.name)
		}

		for _, holder := range m.sortedTypes() {
			if holder == t {
				continue
			}
			for _, mem := range holder.Members() {
				if mem.baseType != t {
					continue
				}
				if err := tx.deleteMember(mem); err != nil {
					return err
				}
			}
		}

		for _, s := range m.sortedSubstitutions(func(s *Substitution) bool { return s.baseType == t }) {
			if err := tx.deleteSubstitution(s); err != nil {
				return tx.diverged(err)
			}
			tx.writes++
		}

		if err := m.backend.DeleteType(tx.ctx, t.id); err != nil {
			return tx.diverged(tx.persist("delete type", err))
		}
		tx.unregister(t)
		return nil
	})
}

// unregister drops t and its own members from memory.
func (tx *txn) unregister(t *Type) {
	for _, mem := range t.Members() {
		delete(tx.m.members, mem.id)
	}
	tx.m.deps.DeleteType(t.id)
	detachFromPointerHierarchy(t)
	delete(tx.m.types, t.id)
	tx.m.log.Debug("type deleted", zap.Int("id", t.id), zap.String("name", t.name))
	tx.typeDeleted(t)
}
