package layout

import (
	"strconv"
	"strings"

	"github.com/wippyai/typegraph/errors"
	"github.com/wippyai/typegraph/types"
)

// WalkResult is the outcome of resolving an offset. Path lists the members
// walked from the outermost type down to Member.
type WalkResult struct {
	Member     *types.Member
	PathString string
	Path       []*types.Member
}

// Valid reports whether a member was found.
func (r WalkResult) Valid() bool {
	return r.Member != nil
}

// FindMember returns the member of t that starts at bitOffset.
func FindMember(t *types.Type, bitOffset int) WalkResult {
	if t == nil {
		return WalkResult{}
	}
	switch t.Category() {
	case types.Array:
		return findInArray(t, bitOffset)
	case types.Struct, types.Union:
		if bitOffset < 0 {
			return WalkResult{}
		}
		return walk(t, bitOffset, nil, t.Name())
	default:
		return WalkResult{}
	}
}

// IsValidOffset reports whether bitOffset is non-negative and resolves to
// a member of t.
func IsValidOffset(t *types.Type, bitOffset int) bool {
	return bitOffset >= 0 && FindMember(t, bitOffset).Valid()
}

// ArrayElementByteSize returns the byte size of one element of an array.
func ArrayElementByteSize(t *types.Type) (int, error) {
	if t == nil {
		return 0, errors.InvalidInput("array type is nil")
	}
	if t.Category() != types.Array {
		return 0, errors.InvalidCategory(t.Name(), t.Category().String(), "array element size")
	}
	elem := t.ElementMember()
	if elem == nil {
		return 0, errors.New(errors.PhaseResolve, errors.KindNotFound).
			TypeName(t.Name()).
			Detail("array has no element member").
			Build()
	}
	return elem.ByteSize(), nil
}

func findInArray(t *types.Type, bitOffset int) WalkResult {
	elem := t.ElementMember()
	if elem == nil || elem.BitSize() == 0 {
		return WalkResult{}
	}
	res := WalkResult{Member: elem, Path: []*types.Member{elem}}

	switch {
	case bitOffset < 0:
		res.PathString = t.Name() + "-" + strconv.Itoa(bytesOf(-bitOffset))
	case bitOffset >= t.BitSize():
		res.PathString = t.Name() + "+" + strconv.Itoa(bytesOf(bitOffset)-t.ByteSize())
	default:
		res.PathString = indexed(elem.BaseTypeName(), bitOffset, elem.BitSize())
	}
	return res
}

// walk searches the members of t for bitOffset, which is relative to t.
// path holds the members walked so far and prefix the rendered path.
func walk(t *types.Type, bitOffset int, path []*types.Member, prefix string) WalkResult {
	for _, mem := range t.Members() {
		start := mem.Offset()
		if start > bitOffset {
			break
		}
		if bitOffset >= mem.End() && bitOffset != start {
			continue
		}

		base := mem.BaseType()
		here := appendPath(path, mem)
		name := prefix + "." + mem.Name()
		rel := bitOffset - start

		switch base.Category() {
		case types.Struct, types.Union:
			if res := walk(base, rel, here, name); res.Valid() {
				return res
			}
		case types.Array:
			if res, ok := walkArrayMember(base, rel, mem, here, name); ok {
				return res
			}
		default:
			if rel == 0 {
				return WalkResult{Member: mem, Path: here, PathString: name}
			}
		}
	}
	return WalkResult{}
}

// walkArrayMember matches an offset on an element boundary of an array
// member, or inside a compound element.
func walkArrayMember(array *types.Type, rel int, mem *types.Member, path []*types.Member, name string) (WalkResult, bool) {
	elem := array.ElementMember()
	if elem == nil {
		return WalkResult{}, false
	}
	size := elem.BitSize()
	if size == 0 {
		return WalkResult{}, false
	}
	index := rel / size
	if rel%size == 0 {
		return WalkResult{Member: mem, Path: path, PathString: name + "[" + strconv.Itoa(index) + "]"}, true
	}
	switch inner := elem.BaseType(); inner.Category() {
	case types.Struct, types.Union:
		res := walk(inner, rel%size, path, name+"["+strconv.Itoa(index)+"]")
		return res, res.Valid()
	}
	return WalkResult{}, false
}

func appendPath(path []*types.Member, mem *types.Member) []*types.Member {
	out := make([]*types.Member, len(path), len(path)+1)
	copy(out, path)
	return append(out, mem)
}

// indexed renders "name[i]", adding the byte remainder for offsets that
// fall inside an element.
func indexed(name string, bitOffset, elemBits int) string {
	var b strings.Builder
	b.WriteString(name)
	b.WriteByte('[')
	b.WriteString(strconv.Itoa(bitOffset / elemBits))
	b.WriteByte(']')
	if rem := bitOffset % elemBits; rem != 0 {
		b.WriteByte('+')
		b.WriteString(strconv.Itoa(bytesOf(rem)))
	}
	return b.String()
}

func bytesOf(bits int) int {
	return (bits + 7) / 8
}
