package types

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/wippyai/typegraph/errors"
)

// UpdateType changes name, signedness and, for atomic, pointer and
// function prototype types, the bit size. A size change is propagated to
// every type that contains t.
func (m *Manager) UpdateType(ctx context.Context, t *Type, name string, bitSize int, signed bool) error {
	return m.apply(ctx, func(tx *txn) error {
		if err := m.knownType(t, "updated"); err != nil {
			return err
		}
		if strings.TrimSpace(name) == "" {
			return errors.InvalidInput("type name is empty")
		}
		if bitSize < 0 {
			return errors.InvalidInput("negative bit size %d", bitSize)
		}
		return tx.updateType(t, name, bitSize, signed, t.stackFrame)
	})
}

// RenameType changes only the name of t.
func (m *Manager) RenameType(ctx context.Context, t *Type, name string) error {
	return m.apply(ctx, func(tx *txn) error {
		if err := m.knownType(t, "renamed"); err != nil {
			return err
		}
		if strings.TrimSpace(name) == "" {
			return errors.InvalidInput("type name is empty")
		}
		return tx.updateType(t, name, t.size, t.signed, t.stackFrame)
	})
}

// SetStackFrame marks or unmarks a struct as a function stack frame.
func (m *Manager) SetStackFrame(ctx context.Context, t *Type, stackFrame bool) error {
	return m.apply(ctx, func(tx *txn) error {
		if err := m.knownType(t, "stack frame"); err != nil {
			return err
		}
		if t.category != Struct {
			return errors.InvalidCategory(t.name, t.category.String(), "stack frame flag")
		}
		return tx.updateType(t, t.name, t.size, t.signed, stackFrame)
	})
}

func (tx *txn) updateType(t *Type, name string, bitSize int, signed, stackFrame bool) error {
	resized := !t.category.HasDerivedSize() && bitSize != t.size

	var affected []int
	var oldSizes map[int]int
	if resized {
		affected = tx.m.deps.UpdateType(t.id)
		oldSizes = tx.captureSizes(affected)
	}

	next := rawType(t)
	next.Name = name
	next.Signed = signed
	next.StackFrame = stackFrame
	if !t.category.HasDerivedSize() {
		next.BitSize = bitSize
	}
	if err := tx.m.backend.UpdateType(tx.ctx, next); err != nil {
		return tx.persist("update type", err)
	}

	t.setName(name)
	t.setSigned(signed)
	t.setStackFrame(stackFrame)
	t.setBitSize(bitSize)
	tx.m.log.Debug("type updated", zap.Int("id", t.id), zap.String("name", name), zap.Int("bits", t.BitSize()))

	if !resized {
		tx.typesUpdated([]*Type{t})
		return nil
	}
	tx.writes++
	tx.substitutionsChanged(tx.m.substitutionsOf(affected))
	return tx.ensureConsistency(affected, t, oldSizes)
}

// UpdateStructureMember changes base type, name and offset of a struct
// member. When the member changes size, the members behind it move by the
// difference and the change is propagated to every type containing the
// struct.
func (m *Manager) UpdateStructureMember(ctx context.Context, mem *Member, base *Type, name string, bitOffset int) error {
	return m.apply(ctx, func(tx *txn) error {
		if err := m.knownMember(mem); err != nil {
			return err
		}
		parent := mem.parent
		if parent.category != Struct {
			return errors.InvalidCategory(parent.name, parent.category.String(), "update structure member")
		}
		if bitOffset < 0 {
			return errors.InvalidInput("negative member offset %d", bitOffset)
		}
		if base != mem.baseType {
			if err := tx.checkMemberType(parent, base); err != nil {
				return err
			}
		}

		affected := m.deps.DependentTypes(parent.id)
		oldSizes := tx.captureSizes(affected)
		sizeDelta := base.BitSize() - mem.BitSize()
		following, err := parent.SubsequentMembers(mem)
		if err != nil {
			return err
		}

		if err := tx.updateMember(mem, base, name, bitOffset); err != nil {
			return err
		}
		if sizeDelta != 0 {
			if err := tx.shiftMembers(following, sizeDelta); err != nil {
				return tx.diverged(err)
			}
		}
		if parent.BitSize() == oldSizes[parent.id] {
			return nil
		}
		tx.substitutionsChanged(m.substitutionsOf(affected))
		return tx.ensureConsistency(affected, parent, oldSizes)
	})
}

// UpdateUnionMember changes base type and name of a union member.
func (m *Manager) UpdateUnionMember(ctx context.Context, mem *Member, base *Type, name string) error {
	return m.apply(ctx, func(tx *txn) error {
		if err := m.knownMember(mem); err != nil {
			return err
		}
		parent := mem.parent
		if parent.category != Union {
			return errors.InvalidCategory(parent.name, parent.category.String(), "update union member")
		}
		if base != mem.baseType {
			if err := tx.checkMemberType(parent, base); err != nil {
				return err
			}
		}

		affected := m.deps.DependentTypes(parent.id)
		oldSizes := tx.captureSizes(affected)

		if err := tx.updateMember(mem, base, name, 0); err != nil {
			return err
		}
		if parent.BitSize() == oldSizes[parent.id] {
			return nil
		}
		tx.substitutionsChanged(m.substitutionsOf(affected))
		return tx.ensureConsistency(affected, parent, oldSizes)
	})
}

// UpdateFunctionPrototypeMember changes base type, name and index of a
// function argument.
func (m *Manager) UpdateFunctionPrototypeMember(ctx context.Context, mem *Member, base *Type, name string, index int) error {
	return m.apply(ctx, func(tx *txn) error {
		if err := m.knownMember(mem); err != nil {
			return err
		}
		parent := mem.parent
		if parent.category != FunctionPrototype {
			return errors.InvalidCategory(parent.name, parent.category.String(), "update argument")
		}
		if index < 0 {
			return errors.InvalidInput("negative argument index %d", index)
		}
		if base != mem.baseType {
			if err := tx.checkMemberType(parent, base); err != nil {
				return err
			}
		}
		return tx.updateMember(mem, base, name, index)
	})
}

// UpdateArray changes the element type and count of an array. The array
// is renamed to match.
func (m *Manager) UpdateArray(ctx context.Context, array, element *Type, count int) error {
	return m.apply(ctx, func(tx *txn) error {
		if err := m.knownType(array, "array"); err != nil {
			return err
		}
		if array.category != Array {
			return errors.InvalidCategory(array.name, array.category.String(), "update array")
		}
		if count <= 0 {
			return errors.InvalidInput("array needs a positive element count, got %d", count)
		}
		elem := array.ElementMember()
		if elem == nil {
			return errors.New(errors.PhaseValidate, errors.KindNotFound).
				TypeName(array.name).
				Detail("array has no element member").
				Build()
		}
		if element != elem.baseType {
			if err := tx.checkMemberType(array, element); err != nil {
				return err
			}
		}

		affected := m.deps.DependentTypes(array.id)
		oldSizes := tx.captureSizes(affected)

		if err := tx.updateMember(elem, element, elem.name, count); err != nil {
			return err
		}
		next := rawType(array)
		next.Name = ArrayName(element.name, count)
		if err := m.backend.UpdateType(tx.ctx, next); err != nil {
			return tx.diverged(tx.persist("rename array", err))
		}
		array.setName(next.Name)
		tx.writes++
		tx.substitutionsChanged(m.substitutionsOf(affected))
		return tx.ensureConsistency(affected, array, oldSizes)
	})
}

// updateMember persists and applies base type, name and position, keeping
// the dependence graph in step with the base type.
func (tx *txn) updateMember(mem *Member, base *Type, name string, position int) error {
	if err := tx.m.backend.UpdateMember(tx.ctx, rawMemberWith(mem, base, name, position)); err != nil {
		return tx.persist("update member", err)
	}
	old := mem.baseType
	mem.setName(name)
	mem.setBaseType(base)
	mem.setPosition(position)
	tx.m.deps.UpdateMember(mem.parent.id, old.id, base.id)
	tx.writes++
	tx.m.log.Debug("member updated",
		zap.Int("id", mem.id),
		zap.Int("parent", mem.parent.id),
		zap.String("name", name),
		zap.Int("position", position))
	tx.memberUpdated(mem)
	return nil
}

// MoveMembers moves a contiguous block of struct members by delta bits.
// Members in the way move in the opposite direction by the size of the
// block.
func (m *Manager) MoveMembers(ctx context.Context, container *Type, members []*Member, delta int) (MoveResult, error) {
	var out MoveResult
	err := m.apply(ctx, func(tx *txn) error {
		if err := m.knownType(container, "container"); err != nil {
			return err
		}
		plan, err := container.planMove(members, delta)
		if err != nil {
			return err
		}
		out = plan.result
		if delta == 0 {
			return nil
		}

		affected := m.deps.DependentTypes(container.id)
		oldSizes := tx.captureSizes(affected)

		if err := m.backend.UpdateMemberOffsets(tx.ctx, plan.blockIDs(), delta, plan.implicitIDs(), plan.result.Delta); err != nil {
			return tx.persist("move members", err)
		}
		container.applyMove(plan)
		tx.writes++
		m.log.Debug("members moved",
			zap.Int("type", container.id),
			zap.Ints("members", plan.blockIDs()),
			zap.Int("delta", delta),
			zap.Ints("implicit", plan.implicitIDs()),
			zap.Int("implicit_delta", plan.result.Delta))
		tx.membersMoved(m.resolveIDs(affected))
		tx.substitutionsChanged(m.substitutionsOf(affected))

		if container.BitSize() == oldSizes[container.id] {
			return nil
		}
		return tx.ensureConsistency(affected, container, oldSizes)
	})
	return out, err
}
