package layout

import (
	"fmt"
	"strings"

	"github.com/wippyai/typegraph/types"
)

// RenderSubstitution renders a type substitution the way it is shown in
// place of an operand.
//
// An explicit member path wins; it is the only way to pick a member
// through nested unions. Without one, compound types resolve their offset
// with FindMember. Scalars render as their type name. When nothing
// resolves, the result is "Type+0xN" with N in bytes.
func RenderSubstitution(s *types.Substitution) string {
	base := s.BaseType()
	offset, hasOffset := s.Offset()

	if path := s.Path(); len(path) > 0 {
		return renderPath(base.ValueType(), path)
	}

	value := base.ValueType()
	switch value.Category() {
	case types.Struct, types.Union, types.Array:
		if res := FindMember(value, offset); res.Valid() {
			return res.PathString
		}
		if offset == 0 {
			return base.Name()
		}
		return withByteOffset(base.Name(), offset)
	default:
		if hasOffset && offset != 0 {
			return withByteOffset(base.Name(), offset)
		}
		return base.Name()
	}
}

// RenderOffset renders bitOffset inside t, falling back to "Type+0xN".
func RenderOffset(t *types.Type, bitOffset int) string {
	if res := FindMember(t, bitOffset); res.Valid() {
		return res.PathString
	}
	if bitOffset == 0 {
		return t.Name()
	}
	return withByteOffset(t.Name(), bitOffset)
}

func renderPath(root *types.Type, path []*types.Member) string {
	var b strings.Builder
	b.WriteString(root.Name())
	for _, mem := range path {
		if mem.IsElement() {
			b.WriteString("[]")
			continue
		}
		b.WriteByte('.')
		b.WriteString(mem.Name())
	}
	return b.String()
}

func withByteOffset(name string, bitOffset int) string {
	if bitOffset < 0 {
		return fmt.Sprintf("%s-0x%x", name, bytesOf(-bitOffset))
	}
	return fmt.Sprintf("%s+0x%x", name, bytesOf(bitOffset))
}
