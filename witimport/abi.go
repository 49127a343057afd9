package witimport

import (
	"go.bytecodealliance.org/wit"
)

// Info is the Canonical ABI size and alignment of a WIT type, in bytes.
type Info struct {
	Size  uint32
	Align uint32
}

// sizer computes Canonical ABI layouts for the wasm32 memory model.
type sizer struct {
	cache map[*wit.TypeDef]Info
}

func newSizer() *sizer {
	return &sizer{cache: make(map[*wit.TypeDef]Info)}
}

func (s *sizer) info(t wit.Type) Info {
	switch typ := t.(type) {
	case wit.U8, wit.S8, wit.Bool:
		return Info{Size: 1, Align: 1}
	case wit.U16, wit.S16:
		return Info{Size: 2, Align: 2}
	case wit.U32, wit.S32, wit.F32, wit.Char:
		return Info{Size: 4, Align: 4}
	case wit.U64, wit.S64, wit.F64:
		return Info{Size: 8, Align: 8}
	case wit.String:
		return Info{Size: 8, Align: 4}
	case *wit.TypeDef:
		return s.typeDef(typ)
	default:
		return Info{Size: 0, Align: 1}
	}
}

func (s *sizer) typeDef(t *wit.TypeDef) Info {
	if cached, ok := s.cache[t]; ok {
		return cached
	}

	var info Info
	switch kind := t.Kind.(type) {
	case *wit.Record:
		types := make([]wit.Type, len(kind.Fields))
		for i, f := range kind.Fields {
			types[i] = f.Type
		}
		info = s.sequence(types)
	case *wit.Tuple:
		info = s.sequence(kind.Types)
	case *wit.Variant:
		payloads := make([]wit.Type, 0, len(kind.Cases))
		for _, c := range kind.Cases {
			if c.Type != nil {
				payloads = append(payloads, c.Type)
			}
		}
		info = s.tagged(discriminantSize(len(kind.Cases)), payloads)
	case *wit.Enum:
		size := discriminantSize(len(kind.Cases))
		info = Info{Size: size, Align: size}
	case *wit.Option:
		info = s.tagged(1, []wit.Type{kind.Type})
	case *wit.Result:
		var payloads []wit.Type
		if kind.OK != nil {
			payloads = append(payloads, kind.OK)
		}
		if kind.Err != nil {
			payloads = append(payloads, kind.Err)
		}
		info = s.tagged(1, payloads)
	case *wit.Flags:
		info = flagsInfo(len(kind.Flags))
	case *wit.List:
		info = Info{Size: 8, Align: 4}
	case *wit.Own, *wit.Borrow:
		info = Info{Size: 4, Align: 4}
	case wit.Type:
		info = s.info(kind)
	default:
		info = Info{Size: 0, Align: 1}
	}

	s.cache[t] = info
	return info
}

// sequence lays types out one after another with alignment padding.
func (s *sizer) sequence(types []wit.Type) Info {
	maxAlign := uint32(1)
	offset := uint32(0)
	for _, t := range types {
		info := s.info(t)
		offset = alignTo(offset, info.Align)
		if info.Align > maxAlign {
			maxAlign = info.Align
		}
		offset += info.Size
	}
	return Info{Size: alignTo(offset, maxAlign), Align: maxAlign}
}

// tagged lays out a discriminant followed by the largest payload.
func (s *sizer) tagged(tagSize uint32, payloads []wit.Type) Info {
	payload := s.payload(payloads)
	align := max(tagSize, payload.Align)
	offset := alignTo(tagSize, payload.Align)
	return Info{Size: alignTo(offset+payload.Size, align), Align: align}
}

// payload is the union of payloads: the largest size and alignment.
func (s *sizer) payload(payloads []wit.Type) Info {
	out := Info{Align: 1}
	for _, p := range payloads {
		info := s.info(p)
		out.Size = max(out.Size, info.Size)
		out.Align = max(out.Align, info.Align)
	}
	return out
}

func flagsInfo(n int) Info {
	switch {
	case n == 0:
		return Info{Size: 0, Align: 1}
	case n <= 8:
		return Info{Size: 1, Align: 1}
	case n <= 16:
		return Info{Size: 2, Align: 2}
	default:
		return Info{Size: uint32((n+31)/32) * 4, Align: 4}
	}
}

func discriminantSize(cases int) uint32 {
	switch {
	case cases <= 1<<8:
		return 1
	case cases <= 1<<16:
		return 2
	default:
		return 4
	}
}

func alignTo(offset, align uint32) uint32 {
	if align <= 1 {
		return offset
	}
	return (offset + align - 1) &^ (align - 1)
}
