package store

import (
	"context"
	"errors"
)

var (
	ErrClosed   = errors.New("store closed")
	ErrNotFound = errors.New("record not found")
)

// RawType is the persisted form of a type node.
// ID is assigned by the backend on create and ignored on input.
type RawType struct {
	PointsTo   *int   `json:"points_to,omitempty"`
	Name       string `json:"name"`
	Category   string `json:"category"`
	ID         int    `json:"id"`
	BitSize    int    `json:"bit_size"`
	Signed     bool   `json:"signed"`
	StackFrame bool   `json:"stack_frame,omitempty"`
}

// RawMember is the persisted form of a member. Exactly one of Offset,
// Count and ArgumentIndex is set.
type RawMember struct {
	Offset        *int   `json:"offset,omitempty"`
	Count         *int   `json:"count,omitempty"`
	ArgumentIndex *int   `json:"argument_index,omitempty"`
	Name          string `json:"name"`
	ID            int    `json:"id"`
	ParentID      int    `json:"parent_id"`
	BaseTypeID    int    `json:"base_type_id"`
}

// RawSubstitution is the persisted form of a type substitution.
type RawSubstitution struct {
	Offset          *int   `json:"offset,omitempty"`
	Path            []int  `json:"path,omitempty"`
	Address         uint64 `json:"address"`
	ID              int    `json:"id"`
	BaseTypeID      int    `json:"base_type_id"`
	OperandPosition int    `json:"operand_position"`
	ExpressionID    int    `json:"expression_id"`
}

// Backend persists the type graph. The engine calls it before it touches
// its in-memory state and never calls it while notifying observers.
type Backend interface {
	// CreateType stores a new type and returns its assigned id.
	CreateType(ctx context.Context, t RawType) (int, error)

	// UpdateType overwrites name, size, signedness, pointer target and frame flag.
	UpdateType(ctx context.Context, t RawType) error

	// DeleteType removes a type together with the members it contains.
	DeleteType(ctx context.Context, id int) error

	// CreateMember stores a new member and returns its assigned id.
	CreateMember(ctx context.Context, m RawMember) (int, error)

	// UpdateMember overwrites base type, name and position.
	UpdateMember(ctx context.Context, m RawMember) error

	// DeleteMember removes a member.
	DeleteMember(ctx context.Context, id int) error

	// UpdateMemberOffsets shifts the offsets of ids by delta and the offsets
	// of implicitIDs by implicitDelta in one call.
	UpdateMemberOffsets(ctx context.Context, ids []int, delta int, implicitIDs []int, implicitDelta int) error

	// CreateSubstitution stores a new substitution and returns its assigned id.
	CreateSubstitution(ctx context.Context, s RawSubstitution) (int, error)

	// UpdateSubstitution overwrites base type, path and offset.
	UpdateSubstitution(ctx context.Context, s RawSubstitution) error

	// DeleteSubstitution removes a substitution.
	DeleteSubstitution(ctx context.Context, id int) error

	// LoadTypes returns every stored type.
	LoadTypes(ctx context.Context) ([]RawType, error)

	// LoadMembers returns every stored member.
	LoadMembers(ctx context.Context) ([]RawMember, error)

	// LoadSubstitutions returns every stored substitution.
	LoadSubstitutions(ctx context.Context) ([]RawSubstitution, error)

	// Close releases resources held by the backend.
	Close() error
}

// Int returns a pointer to v, for the optional fields of raw records.
func Int(v int) *int {
	return &v
}
