package witimport

import (
	"testing"

	"go.bytecodealliance.org/wit"
)

func TestSizerPrimitives(t *testing.T) {
	s := newSizer()

	tests := []struct {
		typ   wit.Type
		name  string
		size  uint32
		align uint32
	}{
		{wit.Bool{}, "bool", 1, 1},
		{wit.U8{}, "u8", 1, 1},
		{wit.S16{}, "s16", 2, 2},
		{wit.U32{}, "u32", 4, 4},
		{wit.S64{}, "s64", 8, 8},
		{wit.F32{}, "f32", 4, 4},
		{wit.F64{}, "f64", 8, 8},
		{wit.Char{}, "char", 4, 4},
		{wit.String{}, "string", 8, 4},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			info := s.info(tc.typ)
			if info.Size != tc.size {
				t.Errorf("size: got %d, want %d", info.Size, tc.size)
			}
			if info.Align != tc.align {
				t.Errorf("align: got %d, want %d", info.Align, tc.align)
			}
		})
	}
}

func TestSizerTypeDefs(t *testing.T) {
	s := newSizer()

	tests := []struct {
		kind  wit.TypeDefKind
		name  string
		size  uint32
		align uint32
	}{
		{&wit.Record{}, "empty_record", 0, 1},
		{&wit.Record{Fields: []wit.Field{
			{Name: "a", Type: wit.U8{}},
			{Name: "b", Type: wit.U32{}},
			{Name: "c", Type: wit.U8{}},
		}}, "mixed_record", 12, 4},
		{&wit.Tuple{Types: []wit.Type{wit.U8{}, wit.U64{}}}, "tuple", 16, 8},
		{&wit.Variant{Cases: []wit.Case{{Name: "a", Type: wit.U32{}}, {Name: "b"}}}, "variant", 8, 4},
		{&wit.Enum{Cases: make([]wit.EnumCase, 300)}, "wide_enum", 2, 2},
		{&wit.Option{Type: wit.U64{}}, "option_u64", 16, 8},
		{&wit.Result{OK: wit.U8{}}, "result_u8", 2, 1},
		{&wit.Result{}, "result_empty", 1, 1},
		{&wit.Flags{Flags: make([]wit.Flag, 8)}, "flags8", 1, 1},
		{&wit.Flags{Flags: make([]wit.Flag, 33)}, "flags33", 8, 4},
		{&wit.List{Type: wit.U8{}}, "list", 8, 4},
		{&wit.Own{}, "own", 4, 4},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			info := s.info(&wit.TypeDef{Kind: tc.kind})
			if info.Size != tc.size {
				t.Errorf("size: got %d, want %d", info.Size, tc.size)
			}
			if info.Align != tc.align {
				t.Errorf("align: got %d, want %d", info.Align, tc.align)
			}
		})
	}
}

func TestAlignTo(t *testing.T) {
	tests := []struct{ offset, align, want uint32 }{
		{0, 4, 0},
		{1, 4, 4},
		{4, 4, 4},
		{5, 8, 8},
		{3, 1, 3},
		{3, 0, 3},
	}
	for _, tc := range tests {
		if got := alignTo(tc.offset, tc.align); got != tc.want {
			t.Errorf("alignTo(%d, %d) = %d, want %d", tc.offset, tc.align, got, tc.want)
		}
	}
}
