package types

// Category is the kind of a type node.
type Category uint8

const (
	Atomic Category = iota
	Array
	Pointer
	Struct
	Union
	FunctionPrototype
)

var categoryNames = [...]string{
	Atomic:            "atomic",
	Array:             "array",
	Pointer:           "pointer",
	Struct:            "struct",
	Union:             "union",
	FunctionPrototype: "function_prototype",
}

func (c Category) String() string {
	if int(c) < len(categoryNames) {
		return categoryNames[c]
	}
	return "unknown"
}

// ParseCategory is the inverse of String.
func ParseCategory(s string) (Category, bool) {
	for i, name := range categoryNames {
		if name == s {
			return Category(i), true
		}
	}
	return 0, false
}

// IsOffsetCategory reports whether members are addressed by bit offset.
func (c Category) IsOffsetCategory() bool {
	return c == Struct || c == Union
}

// HasDerivedSize reports whether the size is computed from members
// instead of stored.
func (c Category) HasDerivedSize() bool {
	return c == Array || c == Struct || c == Union
}

// HoldsMembers reports whether types of this category can have members.
func (c Category) HoldsMembers() bool {
	return c == Array || c == Struct || c == Union || c == FunctionPrototype
}

func (c Category) memberKind() MemberKind {
	switch c {
	case Array:
		return ElementMember
	case FunctionPrototype:
		return ArgumentMember
	default:
		return FieldMember
	}
}
