package witimport

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"strings"

	"go.bytecodealliance.org/wit"
	"go.uber.org/zap"

	"github.com/wippyai/typegraph/errors"
	"github.com/wippyai/typegraph/types"
)

// Member names used for the pieces the Canonical ABI adds around values.
const (
	PointerField = "ptr"
	LengthField  = "len"
	TagField     = "tag"
	PayloadField = "payload"
	PaddingField = "padding"
)

// Importer creates types in a Manager from WIT definitions. Types are
// looked up by name first, so importing the same package twice reuses
// what the first import created.
type Importer struct {
	m     *types.Manager
	sizes *sizer
	done  map[*wit.TypeDef]*types.Type
	log   *zap.Logger
}

// New creates an Importer writing to m.
func New(m *types.Manager) *Importer {
	return &Importer{
		m:     m,
		sizes: newSizer(),
		done:  make(map[*wit.TypeDef]*types.Type),
		log:   Logger(),
	}
}

// ImportJSON decodes a Resolve in the JSON form emitted by
// `wasm-tools component wit --json` and imports its named types.
func (im *Importer) ImportJSON(ctx context.Context, r io.Reader) ([]*types.Type, error) {
	res, err := wit.DecodeJSON(r)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseImport, errors.KindInvalidInput, err, "decode WIT JSON")
	}
	return im.ImportResolve(ctx, res)
}

// ImportResolve imports every named type definition of res. Definitions
// with no memory layout, such as resources, are skipped.
func (im *Importer) ImportResolve(ctx context.Context, res *wit.Resolve) ([]*types.Type, error) {
	var out []*types.Type
	for _, td := range res.TypeDefs {
		if typeDefName(td) == "" {
			continue
		}
		t, err := im.Import(ctx, td)
		if stderrors.Is(err, errors.ErrUnsupportedInput) {
			im.log.Debug("skipping WIT type", zap.String("name", typeDefName(td)), zap.Error(err))
			continue
		}
		if err != nil {
			return out, err
		}
		out = append(out, t)
	}
	im.log.Info("WIT types imported", zap.Int("types", len(out)))
	return out, nil
}

// Import creates the type for t and everything it refers to.
func (im *Importer) Import(ctx context.Context, t wit.Type) (*types.Type, error) {
	switch typ := t.(type) {
	case *wit.TypeDef:
		return im.typeDef(ctx, typ)
	case wit.String:
		u8, err := im.Import(ctx, wit.U8{})
		if err != nil {
			return nil, err
		}
		return im.slice(ctx, "string", u8)
	case nil:
		return nil, errors.InvalidInput("WIT type is nil")
	}

	name, signed, ok := primitive(t)
	if !ok {
		return nil, errors.Unsupported(errors.PhaseImport, fmt.Sprintf("WIT type %T", t))
	}
	return im.atomic(ctx, name, im.sizes.info(t).Size*8, signed)
}

func (im *Importer) typeDef(ctx context.Context, td *wit.TypeDef) (*types.Type, error) {
	if t, ok := im.done[td]; ok {
		return t, nil
	}
	name := typeDefName(td)

	var (
		t   *types.Type
		err error
	)
	switch kind := td.Kind.(type) {
	case *wit.Record:
		fields := make([]field, len(kind.Fields))
		for i, f := range kind.Fields {
			fields[i] = field{name: f.Name, typ: f.Type}
		}
		t, err = im.record(ctx, name, fields)
	case *wit.Tuple:
		t, err = im.tuple(ctx, name, kind)
	case *wit.Variant:
		t, err = im.variant(ctx, name, kind)
	case *wit.Enum:
		if name == "" {
			name = "enum"
		}
		t, err = im.atomic(ctx, name, discriminantSize(len(kind.Cases))*8, false)
	case *wit.Flags:
		t, err = im.flags(ctx, name, len(kind.Flags))
	case *wit.List:
		var elem *types.Type
		if elem, err = im.Import(ctx, kind.Type); err == nil {
			if name == "" {
				name = "list<" + elem.Name() + ">"
			}
			t, err = im.slice(ctx, name, elem)
		}
	case *wit.Option:
		t, err = im.option(ctx, name, kind)
	case *wit.Result:
		t, err = im.result(ctx, name, kind)
	case *wit.Own, *wit.Borrow:
		if name == "" {
			name = "handle"
		}
		t, err = im.atomic(ctx, name, 32, false)
	case wit.Type:
		// An alias is the aliased type under another name; the graph keeps
		// one node for both.
		t, err = im.Import(ctx, kind)
	default:
		err = errors.Unsupported(errors.PhaseImport, fmt.Sprintf("WIT %T %q", kind, name))
	}
	if err != nil {
		return nil, err
	}
	im.done[td] = t
	return t, nil
}

type field struct {
	typ  wit.Type
	name string
}

func (im *Importer) record(ctx context.Context, name string, fields []field) (*types.Type, error) {
	bases := make([]*types.Type, len(fields))
	for i, f := range fields {
		base, err := im.Import(ctx, f.typ)
		if err != nil {
			return nil, err
		}
		bases[i] = base
	}
	if name == "" {
		name = "record"
	}
	members := make([]placed, len(fields))
	for i, f := range fields {
		members[i] = placed{name: f.name, base: bases[i], info: im.sizes.info(f.typ)}
	}
	return im.structure(ctx, name, members)
}

func (im *Importer) tuple(ctx context.Context, name string, tuple *wit.Tuple) (*types.Type, error) {
	fields := make([]placed, len(tuple.Types))
	names := make([]string, len(tuple.Types))
	for i, typ := range tuple.Types {
		base, err := im.Import(ctx, typ)
		if err != nil {
			return nil, err
		}
		fields[i] = placed{name: fmt.Sprintf("f%d", i), base: base, info: im.sizes.info(typ)}
		names[i] = base.Name()
	}
	if name == "" {
		name = "tuple<" + strings.Join(names, ", ") + ">"
	}
	return im.structure(ctx, name, fields)
}

// variant becomes a struct of a tag and, if any case carries a value, a
// union of the case payloads.
func (im *Importer) variant(ctx context.Context, name string, v *wit.Variant) (*types.Type, error) {
	if name == "" {
		name = "variant"
	}
	cases := make([]placed, 0, len(v.Cases))
	for _, c := range v.Cases {
		if c.Type == nil {
			continue
		}
		base, err := im.Import(ctx, c.Type)
		if err != nil {
			return nil, err
		}
		cases = append(cases, placed{name: c.Name, base: base, info: im.sizes.info(c.Type)})
	}
	return im.tagged(ctx, name, discriminantSize(len(v.Cases)), cases)
}

func (im *Importer) option(ctx context.Context, name string, o *wit.Option) (*types.Type, error) {
	base, err := im.Import(ctx, o.Type)
	if err != nil {
		return nil, err
	}
	if name == "" {
		name = "option<" + base.Name() + ">"
	}
	return im.tagged(ctx, name, 1, []placed{{name: "some", base: base, info: im.sizes.info(o.Type)}})
}

func (im *Importer) result(ctx context.Context, name string, r *wit.Result) (*types.Type, error) {
	var cases []placed
	label := func(t wit.Type, caseName string) (string, error) {
		if t == nil {
			return "_", nil
		}
		base, err := im.Import(ctx, t)
		if err != nil {
			return "", err
		}
		cases = append(cases, placed{name: caseName, base: base, info: im.sizes.info(t)})
		return base.Name(), nil
	}
	okName, err := label(r.OK, "ok")
	if err != nil {
		return nil, err
	}
	errName, err := label(r.Err, "err")
	if err != nil {
		return nil, err
	}
	if name == "" {
		name = "result<" + okName + ", " + errName + ">"
	}
	return im.tagged(ctx, name, 1, cases)
}

func (im *Importer) tagged(ctx context.Context, name string, tagSize uint32, cases []placed) (*types.Type, error) {
	if t := im.m.TypeByName(name); t != nil {
		return t, nil
	}
	tag, err := im.atomic(ctx, unsignedName(tagSize), tagSize*8, false)
	if err != nil {
		return nil, err
	}
	fields := []placed{{name: TagField, base: tag, info: Info{Size: tagSize, Align: tagSize}}}

	if len(cases) > 0 {
		payload, err := im.union(ctx, name+"."+PayloadField, cases)
		if err != nil {
			return nil, err
		}
		info := Info{Align: 1}
		for _, c := range cases {
			info.Size = max(info.Size, c.info.Size)
			info.Align = max(info.Align, c.info.Align)
		}
		fields = append(fields, placed{name: PayloadField, base: payload, info: info})
	}
	return im.structure(ctx, name, fields)
}

func (im *Importer) union(ctx context.Context, name string, cases []placed) (*types.Type, error) {
	if t := im.m.TypeByName(name); t != nil {
		return t, nil
	}
	u, err := im.m.CreateUnion(ctx, name)
	if err != nil {
		return nil, err
	}
	for _, c := range cases {
		if _, err := im.m.CreateUnionMember(ctx, u, c.base, c.name); err != nil {
			return nil, err
		}
	}
	return u, nil
}

func (im *Importer) flags(ctx context.Context, name string, n int) (*types.Type, error) {
	if name == "" {
		name = "flags"
	}
	info := flagsInfo(n)
	if info.Size <= 4 {
		return im.atomic(ctx, name, info.Size*8, false)
	}
	u32, err := im.atomic(ctx, "u32", 32, false)
	if err != nil {
		return nil, err
	}
	words, err := im.array(ctx, u32, int(info.Size/4))
	if err != nil {
		return nil, err
	}
	return im.structure(ctx, name, []placed{{name: "bits", base: words, info: info}})
}

// slice is the (pointer, length) pair lists and strings are passed as.
func (im *Importer) slice(ctx context.Context, name string, elem *types.Type) (*types.Type, error) {
	if t := im.m.TypeByName(name); t != nil {
		return t, nil
	}
	ptr, err := im.m.CreatePointerType(ctx, elem)
	if err != nil {
		return nil, err
	}
	length, err := im.atomic(ctx, "u32", 32, false)
	if err != nil {
		return nil, err
	}
	return im.structure(ctx, name, []placed{
		{name: PointerField, base: ptr, info: Info{Size: 4, Align: 4}},
		{name: LengthField, base: length, info: Info{Size: 4, Align: 4}},
	})
}

// placed is a member ready to be laid out.
type placed struct {
	base *types.Type
	name string
	info Info
}

// structure creates a struct with fields at their Canonical ABI offsets.
// Alignment gaps between fields stay holes; trailing padding becomes an
// explicit byte array so the struct size matches the ABI size.
func (im *Importer) structure(ctx context.Context, name string, fields []placed) (*types.Type, error) {
	if t := im.m.TypeByName(name); t != nil {
		im.log.Debug("reusing existing type", zap.String("name", name))
		return t, nil
	}
	s, err := im.m.CreateStructure(ctx, name, false)
	if err != nil {
		return nil, err
	}

	offset := uint32(0)
	maxAlign := uint32(1)
	for _, f := range fields {
		offset = alignTo(offset, f.info.Align)
		maxAlign = max(maxAlign, f.info.Align)
		if f.info.Size == 0 {
			continue
		}
		if _, err := im.m.CreateStructureMember(ctx, s, f.base, f.name, int(offset)*8); err != nil {
			return nil, err
		}
		offset += f.info.Size
	}

	if pad := alignTo(offset, maxAlign) - offset; pad > 0 && offset > 0 {
		u8, err := im.atomic(ctx, "u8", 8, false)
		if err != nil {
			return nil, err
		}
		bytes, err := im.array(ctx, u8, int(pad))
		if err != nil {
			return nil, err
		}
		if _, err := im.m.CreateStructureMember(ctx, s, bytes, PaddingField, int(offset)*8); err != nil {
			return nil, err
		}
	}
	im.log.Debug("struct imported", zap.String("name", name), zap.Int("bits", s.BitSize()))
	return s, nil
}

func (im *Importer) array(ctx context.Context, elem *types.Type, count int) (*types.Type, error) {
	if t := im.m.TypeByName(types.ArrayName(elem.Name(), count)); t != nil {
		return t, nil
	}
	return im.m.CreateArray(ctx, elem, count)
}

func (im *Importer) atomic(ctx context.Context, name string, bits uint32, signed bool) (*types.Type, error) {
	if t := im.m.TypeByName(name); t != nil {
		return t, nil
	}
	return im.m.CreateAtomicType(ctx, name, int(bits), signed)
}

func primitive(t wit.Type) (name string, signed, ok bool) {
	switch t.(type) {
	case wit.Bool:
		return "bool", false, true
	case wit.U8:
		return "u8", false, true
	case wit.S8:
		return "s8", true, true
	case wit.U16:
		return "u16", false, true
	case wit.S16:
		return "s16", true, true
	case wit.U32:
		return "u32", false, true
	case wit.S32:
		return "s32", true, true
	case wit.U64:
		return "u64", false, true
	case wit.S64:
		return "s64", true, true
	case wit.F32:
		return "f32", true, true
	case wit.F64:
		return "f64", true, true
	case wit.Char:
		return "char", false, true
	}
	return "", false, false
}

func unsignedName(bytes uint32) string {
	return fmt.Sprintf("u%d", bytes*8)
}

func typeDefName(td *wit.TypeDef) string {
	if td == nil || td.Name == nil {
		return ""
	}
	return *td.Name
}
