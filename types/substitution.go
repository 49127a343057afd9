package types

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"github.com/wippyai/typegraph/errors"
)

// Substitution binds an operand expression of a disassembled instruction
// to a type, with an optional bit offset and member path. The path is only
// needed where the offset alone is ambiguous, e.g. through nested unions.
type Substitution struct {
	baseType        *Type
	path            []*Member
	address         uint64
	id              int
	operandPosition int
	expressionID    int
	offset          int
	hasOffset       bool
}

func (s *Substitution) ID() int { return s.id }
func (s *Substitution) Address() uint64 { return s.address }
func (s *Substitution) OperandPosition() int { return s.operandPosition }
func (s *Substitution) ExpressionID() int { return s.expressionID }
func (s *Substitution) BaseType() *Type { return s.baseType }

// Offset returns the explicit bit offset, if one was given.
func (s *Substitution) Offset() (int, bool) {
	return s.offset, s.hasOffset
}

// Path returns a copy of the explicit member path.
func (s *Substitution) Path() []*Member {
	out := make([]*Member, len(s.path))
	copy(out, s.path)
	return out
}

func (s *Substitution) references(mem *Member) bool {
	for _, p := range s.path {
		if p == mem {
			return true
		}
	}
	return false
}

// SubstitutionSpec describes a substitution to create or the new state of
// one being updated. Address, OperandPosition and ExpressionID are ignored
// on update.
type SubstitutionSpec struct {
	BaseType        *Type
	Offset          *int
	Path            []*Member
	Address         uint64
	OperandPosition int
	ExpressionID    int
}

// CreateSubstitution binds an operand expression to a type.
func (m *Manager) CreateSubstitution(ctx context.Context, spec SubstitutionSpec) (*Substitution, error) {
	var out *Substitution
	err := m.apply(ctx, func(tx *txn) error {
		if err := m.validateSubstitution(spec); err != nil {
			return err
		}
		s := &Substitution{
			address:         spec.Address,
			operandPosition: spec.OperandPosition,
			expressionID:    spec.ExpressionID,
		}
		s.assign(spec)

		id, err := m.backend.CreateSubstitution(tx.ctx, rawSubstitution(s))
		if err != nil {
			return tx.persist("create substitution", err)
		}
		s.id = id
		m.substitutions[id] = s
		m.log.Debug("substitution created", zap.Int("id", id), zap.Uint64("address", s.address))
		tx.substitutionsAdded([]*Substitution{s})
		out = s
		return nil
	})
	return out, err
}

// UpdateSubstitution changes the type, offset and path of s.
func (m *Manager) UpdateSubstitution(ctx context.Context, s *Substitution, spec SubstitutionSpec) error {
	return m.apply(ctx, func(tx *txn) error {
		if s == nil || m.substitutions[s.id] != s {
			return errors.InvalidInput("unknown substitution")
		}
		if err := m.validateSubstitution(spec); err != nil {
			return err
		}
		next := *s
		next.assign(spec)
		if err := m.backend.UpdateSubstitution(tx.ctx, rawSubstitution(&next)); err != nil {
			return tx.persist("update substitution", err)
		}
		s.assign(spec)
		tx.substitutionsChanged([]*Substitution{s})
		return nil
	})
}

// DeleteSubstitution removes s.
func (m *Manager) DeleteSubstitution(ctx context.Context, s *Substitution) error {
	return m.apply(ctx, func(tx *txn) error {
		if s == nil || m.substitutions[s.id] != s {
			return errors.InvalidInput("unknown substitution")
		}
		return tx.deleteSubstitution(s)
	})
}

// Substitutions returns every substitution sorted by id.
func (m *Manager) Substitutions() []*Substitution {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sortedSubstitutions(func(*Substitution) bool { return true })
}

// SubstitutionsAt returns the substitutions of the instruction at address.
func (m *Manager) SubstitutionsAt(address uint64) []*Substitution {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sortedSubstitutions(func(s *Substitution) bool { return s.address == address })
}

func (s *Substitution) assign(spec SubstitutionSpec) {
	s.baseType = spec.BaseType
	s.path = append([]*Member(nil), spec.Path...)
	s.hasOffset = spec.Offset != nil
	s.offset = 0
	if spec.Offset != nil {
		s.offset = *spec.Offset
	}
}

// validateSubstitution checks that the path walks down from the base type,
// one member per nesting level.
func (m *Manager) validateSubstitution(spec SubstitutionSpec) error {
	if err := m.knownType(spec.BaseType, "substitution base"); err != nil {
		return err
	}
	if spec.Offset != nil && *spec.Offset < 0 {
		return errors.InvalidInput("negative substitution offset %d", *spec.Offset)
	}
	owner := spec.BaseType.ValueType()
	for _, mem := range spec.Path {
		if err := m.knownMember(mem); err != nil {
			return err
		}
		if mem.parent != owner {
			return errors.New(errors.PhaseValidate, errors.KindInvalidInput).
				TypeName(owner.name).
				Path(mem.parent.name, mem.name).
				Detail("path member does not belong to the enclosing type").
				Build()
		}
		owner = mem.baseType
	}
	return nil
}

func (m *Manager) sortedSubstitutions(keep func(*Substitution) bool) []*Substitution {
	out := make([]*Substitution, 0, len(m.substitutions))
	for _, s := range m.substitutions {
		if keep(s) {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

// substitutionsOf returns the substitutions whose base type is in ids.
func (m *Manager) substitutionsOf(ids []int) []*Substitution {
	set := make(map[int]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return m.sortedSubstitutions(func(s *Substitution) bool { return set[s.baseType.ValueType().id] })
}

func (tx *txn) deleteSubstitution(s *Substitution) error {
	if err := tx.m.backend.DeleteSubstitution(tx.ctx, s.id); err != nil {
		return tx.persist("delete substitution", err)
	}
	delete(tx.m.substitutions, s.id)
	tx.substitutionsDeleted([]*Substitution{s})
	return nil
}
