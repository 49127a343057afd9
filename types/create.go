package types

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/wippyai/typegraph/errors"
	"github.com/wippyai/typegraph/store"
)

// ArrayElementName is the name given to the element member of array types.
const ArrayElementName = "array_elements"

// CreateAtomicType creates a scalar type such as int or char.
func (m *Manager) CreateAtomicType(ctx context.Context, name string, bitSize int, signed bool) (*Type, error) {
	if bitSize <= 0 {
		return nil, errors.InvalidInput("atomic type %q needs a positive bit size, got %d", name, bitSize)
	}
	return m.createType(ctx, name, bitSize, signed, Atomic)
}

// CreateStructure creates an empty struct. Stack frames are structs whose
// members are the local variables of a function.
func (m *Manager) CreateStructure(ctx context.Context, name string, stackFrame bool) (*Type, error) {
	var out *Type
	err := m.apply(ctx, func(tx *txn) error {
		t, err := tx.createType(name, 0, false, Struct, stackFrame)
		out = t
		return err
	})
	return out, err
}

// CreateUnion creates an empty union.
func (m *Manager) CreateUnion(ctx context.Context, name string) (*Type, error) {
	return m.createType(ctx, name, 0, false, Union)
}

// CreateFunctionPrototype creates a function prototype without arguments.
func (m *Manager) CreateFunctionPrototype(ctx context.Context, name string) (*Type, error) {
	return m.createType(ctx, name, 0, false, FunctionPrototype)
}

func (m *Manager) createType(ctx context.Context, name string, bitSize int, signed bool, category Category) (*Type, error) {
	var out *Type
	err := m.apply(ctx, func(tx *txn) error {
		t, err := tx.createType(name, bitSize, signed, category, false)
		out = t
		return err
	})
	return out, err
}

func (tx *txn) createType(name string, bitSize int, signed bool, category Category, stackFrame bool) (*Type, error) {
	if strings.TrimSpace(name) == "" {
		return nil, errors.InvalidInput("type name is empty")
	}
	t := newType(0, name, bitSize, signed, category)
	t.stackFrame = stackFrame

	id, err := tx.m.backend.CreateType(tx.ctx, rawType(t))
	if err != nil {
		return nil, tx.persist("create type", err)
	}
	t.id = id
	tx.register(t)
	return t, nil
}

func (tx *txn) register(t *Type) {
	tx.m.types[t.id] = t
	tx.m.deps.AddType(t.id)
	tx.m.log.Debug("type created",
		zap.Int("id", t.id),
		zap.String("name", t.name),
		zap.Stringer("category", t.category))
	tx.typeAdded(t)
}

// CreatePointerType returns the pointer type for value, creating it on
// first use.
func (m *Manager) CreatePointerType(ctx context.Context, value *Type) (*Type, error) {
	var out *Type
	err := m.apply(ctx, func(tx *txn) error {
		if err := m.knownType(value, "pointer target"); err != nil {
			return err
		}
		if value.pointedToBy != nil {
			out = value.pointedToBy
			return nil
		}

		t := newType(0, PointerName(value.ValueType().name, value.PointerLevel()+1), m.options.PointerSize, false, Pointer)
		raw := rawType(t)
		raw.PointsTo = store.Int(value.id)
		id, err := m.backend.CreateType(tx.ctx, raw)
		if err != nil {
			return tx.persist("create pointer type", err)
		}
		t.id = id
		if err := appendToPointerHierarchy(value, t); err != nil {
			return tx.rollback(err, func() error { return m.backend.DeleteType(tx.ctx, id) })
		}
		tx.register(t)
		out = t
		return nil
	})
	return out, err
}

// PointerName builds the name of a pointer type, e.g. "int **" for level 2.
func PointerName(valueName string, level int) string {
	return valueName + " " + strings.Repeat("*", level)
}

// ArrayName builds the name of an array type, e.g. "int[10]".
func ArrayName(elementName string, count int) string {
	return fmt.Sprintf("%s[%d]", elementName, count)
}

// CreateArray creates an array of count elements of type element.
func (m *Manager) CreateArray(ctx context.Context, element *Type, count int) (*Type, error) {
	var out *Type
	err := m.apply(ctx, func(tx *txn) error {
		if err := m.knownType(element, "array element"); err != nil {
			return err
		}
		if count <= 0 {
			return errors.InvalidInput("array of %s needs a positive element count, got %d", element.name, count)
		}

		t := newType(0, ArrayName(element.name, count), 0, false, Array)
		id, err := m.backend.CreateType(tx.ctx, rawType(t))
		if err != nil {
			return tx.persist("create array type", err)
		}
		t.id = id

		elem, err := newElementMember(0, ArrayElementName, element, t, count)
		if err != nil {
			return tx.rollback(err, func() error { return m.backend.DeleteType(tx.ctx, id) })
		}
		mid, err := m.backend.CreateMember(tx.ctx, rawMember(elem))
		if err != nil {
			return tx.rollback(tx.persist("create array element", err), func() error {
				return m.backend.DeleteType(tx.ctx, id)
			})
		}
		elem.id = mid

		tx.register(t)
		m.attachMember(elem)
		tx.memberAdded(elem)
		out = t
		return nil
	})
	return out, err
}

// AppendMember adds a member after the last member of container: at the
// end of a struct, at offset 0 of a union, or as the next argument of a
// function prototype.
func (m *Manager) AppendMember(ctx context.Context, container, base *Type, name string) (*Member, error) {
	var out *Member
	err := m.apply(ctx, func(tx *txn) error {
		if err := m.knownType(container, "container"); err != nil {
			return err
		}
		mem, err := tx.appendAt(container, container.LastMember(), base, name)
		out = mem
		return err
	})
	return out, err
}

// InsertMemberAfter adds a member directly after an existing member of
// container. Members and arguments behind it are shifted to make room.
func (m *Manager) InsertMemberAfter(ctx context.Context, container *Type, after *Member, base *Type, name string) (*Member, error) {
	var out *Member
	err := m.apply(ctx, func(tx *txn) error {
		if err := m.knownType(container, "container"); err != nil {
			return err
		}
		if err := m.knownMember(after); err != nil {
			return err
		}
		if after.parent != container {
			return errors.InvalidInput("member %s does not belong to %s", after.name, container.name)
		}
		mem, err := tx.appendAt(container, after, base, name)
		out = mem
		return err
	})
	return out, err
}

func (tx *txn) appendAt(container *Type, after *Member, base *Type, name string) (*Member, error) {
	switch container.category {
	case Struct:
		offset := 0
		if after != nil {
			offset = after.End()
		}
		return tx.createStructureMember(container, base, name, offset)
	case Union:
		return tx.createUnionMember(container, base, name)
	case FunctionPrototype:
		index := 0
		if after != nil {
			index = after.position + 1
		}
		return tx.createArgument(container, base, name, index)
	default:
		return nil, errors.InvalidCategory(container.name, container.category.String(), "append member")
	}
}

// CreateStructureMember adds a member at a bit offset. Members at or after
// the offset that would overlap the new member are shifted back, and the
// size change is propagated to every type that contains container.
func (m *Manager) CreateStructureMember(ctx context.Context, container, base *Type, name string, bitOffset int) (*Member, error) {
	var out *Member
	err := m.apply(ctx, func(tx *txn) error {
		if err := m.knownType(container, "container"); err != nil {
			return err
		}
		if container.category == Union {
			if bitOffset != 0 {
				return errors.InvalidInput("union members sit at offset 0, got %d", bitOffset)
			}
			mem, err := tx.createUnionMember(container, base, name)
			out = mem
			return err
		}
		mem, err := tx.createStructureMember(container, base, name, bitOffset)
		out = mem
		return err
	})
	return out, err
}

// CreateUnionMember adds a member at offset 0 of a union.
func (m *Manager) CreateUnionMember(ctx context.Context, container, base *Type, name string) (*Member, error) {
	var out *Member
	err := m.apply(ctx, func(tx *txn) error {
		if err := m.knownType(container, "container"); err != nil {
			return err
		}
		mem, err := tx.createUnionMember(container, base, name)
		out = mem
		return err
	})
	return out, err
}

// CreateFunctionPrototypeMember adds an argument at index. Arguments at or
// after index move up by one.
func (m *Manager) CreateFunctionPrototypeMember(ctx context.Context, container, base *Type, name string, index int) (*Member, error) {
	var out *Member
	err := m.apply(ctx, func(tx *txn) error {
		if err := m.knownType(container, "container"); err != nil {
			return err
		}
		mem, err := tx.createArgument(container, base, name, index)
		out = mem
		return err
	})
	return out, err
}

// checkMemberType runs the checks shared by every member insertion: the
// base type is known and adding it does not create a containment cycle.
func (tx *txn) checkMemberType(container, base *Type) error {
	if err := tx.m.knownType(base, "member base"); err != nil {
		return err
	}
	if container == base {
		return errors.SelfReference(container.name, "member")
	}
	if tx.m.deps.WillCreateCycle(container.id, base.id) {
		return errors.Cyclic(container.name, base.name)
	}
	return nil
}

func (tx *txn) createStructureMember(container, base *Type, name string, offset int) (*Member, error) {
	if container.category != Struct {
		return nil, errors.InvalidCategory(container.name, container.category.String(), "create structure member")
	}
	if offset < 0 {
		return nil, errors.InvalidInput("negative member offset %d", offset)
	}
	if err := tx.checkMemberType(container, base); err != nil {
		return nil, err
	}

	affected := tx.m.deps.DependentTypes(container.id)
	oldSizes := tx.captureSizes(affected)

	subsequent, err := container.SubsequentMembersInclusive(offset)
	if err != nil {
		return nil, err
	}
	if len(subsequent) > 0 {
		if overlap := offset + base.BitSize() - subsequent[0].position; overlap > 0 {
			if err := tx.shiftMembers(subsequent, overlap); err != nil {
				return nil, tx.diverged(err)
			}
		}
	}

	mem, err := tx.createMember(container, base, name, FieldMember, offset)
	if err != nil {
		return nil, err
	}
	tx.substitutionsChanged(tx.m.substitutionsOf(affected))

	if err := tx.ensureConsistency(affected, container, oldSizes); err != nil {
		return mem, err
	}
	return mem, nil
}

func (tx *txn) createUnionMember(container, base *Type, name string) (*Member, error) {
	if container.category != Union {
		return nil, errors.InvalidCategory(container.name, container.category.String(), "create union member")
	}
	if err := tx.checkMemberType(container, base); err != nil {
		return nil, err
	}

	affected := tx.m.deps.DependentTypes(container.id)
	oldSizes := tx.captureSizes(affected)

	mem, err := tx.createMember(container, base, name, FieldMember, 0)
	if err != nil {
		return nil, err
	}
	tx.substitutionsChanged(tx.m.substitutionsOf(affected))

	if err := tx.ensureConsistency(affected, container, oldSizes); err != nil {
		return mem, err
	}
	return mem, nil
}

func (tx *txn) createArgument(container, base *Type, name string, index int) (*Member, error) {
	if container.category != FunctionPrototype {
		return nil, errors.InvalidCategory(container.name, container.category.String(), "create argument")
	}
	if index < 0 {
		return nil, errors.InvalidInput("negative argument index %d", index)
	}
	if err := tx.checkMemberType(container, base); err != nil {
		return nil, err
	}

	later := make([]*Member, 0)
	for _, arg := range container.Members() {
		if arg.position >= index {
			later = append(later, arg)
		}
	}
	if err := tx.shiftMembers(later, 1); err != nil {
		return nil, tx.diverged(err)
	}
	return tx.createMember(container, base, name, ArgumentMember, index)
}

func (tx *txn) createMember(container, base *Type, name string, kind MemberKind, position int) (*Member, error) {
	mem, err := newMember(0, name, base, container, kind, position)
	if err != nil {
		return nil, err
	}
	id, err := tx.m.backend.CreateMember(tx.ctx, rawMember(mem))
	if err != nil {
		return nil, tx.persist("create member", err)
	}
	mem.id = id
	tx.m.attachMember(mem)
	tx.m.log.Debug("member created",
		zap.Int("id", id),
		zap.Int("parent", container.id),
		zap.String("name", name),
		zap.Int("position", position))
	tx.memberAdded(mem)
	return mem, nil
}

// shiftMembers moves each member by delta, persisting one at a time.
func (tx *txn) shiftMembers(members []*Member, delta int) error {
	for _, mem := range members {
		if err := tx.updatePosition(mem, mem.position+delta); err != nil {
			return err
		}
	}
	return nil
}

// updatePosition persists and applies a new position for one member.
func (tx *txn) updatePosition(mem *Member, position int) error {
	if err := tx.m.backend.UpdateMember(tx.ctx, rawMemberWith(mem, mem.baseType, mem.name, position)); err != nil {
		return tx.persist("update member position", err)
	}
	mem.setPosition(position)
	tx.memberUpdated(mem)
	tx.writes++
	return nil
}
