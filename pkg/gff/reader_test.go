package gff

import (
	"bytes"
	"encoding/binary"
	"errors"
	"strings"
	"testing"
)

func TestRead(t *testing.T) {
	data := buildSample(t)
	f, err := Read(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if f.NumStructs() != 4 {
		t.Errorf("NumStructs = %d, want 4", f.NumStructs())
	}
}

func TestParseErrors(t *testing.T) {
	sample := buildSample(t)

	tests := []struct {
		name    string
		corrupt func(data []byte) []byte
		wantSub string
	}{
		{
			name:    "TooShort",
			corrupt: func(data []byte) []byte { return data[:20] },
			wantSub: "too short",
		},
		{
			name: "BadVersion",
			corrupt: func(data []byte) []byte {
				copy(data[4:8], "V3.3")
				return data
			},
			wantSub: "unsupported version",
		},
		{
			name: "StructSectionOutOfBounds",
			corrupt: func(data []byte) []byte {
				binary.LittleEndian.PutUint32(data[12:], 1<<30)
				return data
			},
			wantSub: "struct section",
		},
		{
			name: "FieldIndexMisaligned",
			corrupt: func(data []byte) []byte {
				n := binary.LittleEndian.Uint32(data[44:])
				binary.LittleEndian.PutUint32(data[44:], n+1)
				return data
			},
			wantSub: "multiple of 4",
		},
		{
			name: "RootMissingSentinel",
			corrupt: func(data []byte) []byte {
				binary.LittleEndian.PutUint32(data[56:], 3)
				return data
			},
			wantSub: "sentinel",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := tt.corrupt(bytes.Clone(sample))
			_, err := Parse(data)
			if err == nil {
				t.Fatal("Parse succeeded on corrupt input")
			}
			var ferr *FormatError
			if !errors.As(err, &ferr) {
				t.Fatalf("error type = %T, want *FormatError", err)
			}
			if !strings.Contains(err.Error(), tt.wantSub) {
				t.Errorf("error = %q, want substring %q", err, tt.wantSub)
			}
		})
	}
}

func TestParseNoStructs(t *testing.T) {
	data := make([]byte, headerSize)
	copy(data, "TST V3.2")
	for i := 8; i < headerSize; i += 8 {
		binary.LittleEndian.PutUint32(data[i:], headerSize)
	}
	_, err := Parse(data)
	if err == nil || !strings.Contains(err.Error(), "no structs") {
		t.Errorf("err = %v, want no-structs failure", err)
	}
}

func TestFormatErrorCarriesOffset(t *testing.T) {
	data := buildSample(t)
	copy(data[4:8], "V9.9")
	_, err := Parse(data)

	var ferr *FormatError
	if !errors.As(err, &ferr) {
		t.Fatalf("error type = %T, want *FormatError", err)
	}
	if ferr.Offset != 4 {
		t.Errorf("Offset = %d, want 4", ferr.Offset)
	}
}

func TestTypeMismatch(t *testing.T) {
	f, err := Parse(buildSample(t))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	fld, ok, err := f.Root().Field("Dword")
	if err != nil || !ok {
		t.Fatalf("Field: ok=%v err=%v", ok, err)
	}
	if _, err := fld.Text(); !errors.Is(err, ErrTypeMismatch) {
		t.Errorf("Text on DWORD field: err = %v, want ErrTypeMismatch", err)
	}
	if _, err := fld.List(); !errors.Is(err, ErrTypeMismatch) {
		t.Errorf("List on DWORD field: err = %v, want ErrTypeMismatch", err)
	}
}

func TestMissingFieldReportsAbsent(t *testing.T) {
	f, err := Parse(buildSample(t))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	_, ok, err := f.Root().Field("NoSuchLabel")
	if err != nil {
		t.Fatalf("Field: %v", err)
	}
	if ok {
		t.Error("Field reported presence for an absent label")
	}
}

// foreignFile hand-builds a file the way most third-party writers do:
// single-field structs store their field index directly and contribute
// nothing to the field index section.
func foreignFile() []byte {
	var out []byte
	out = append(out, "TST V3.2"...)
	for _, v := range []uint32{
		56, 2, // structs
		80, 2, // fields
		104, 1, // labels
		120, 0, // field data
		120, 0, // field indices: empty
		120, 0, // list indices
	} {
		out = binary.LittleEndian.AppendUint32(out, v)
	}
	for _, v := range []uint32{
		NoType, 0, 1, // root: one field, direct index 0
		5, 1, 1, // struct 1: one field, direct index 1
		uint32(TypeDword), 0, 7,
		uint32(TypeDword), 0, 9,
	} {
		out = binary.LittleEndian.AppendUint32(out, v)
	}
	var label [16]byte
	copy(label[:], "Value")
	return append(out, label[:]...)
}

func TestForeignPackingLoadsWithDrift(t *testing.T) {
	f, err := Parse(foreignFile())
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	fld, ok, err := f.Root().Field("Value")
	if err != nil || !ok {
		t.Fatalf("Field: ok=%v err=%v", ok, err)
	}
	if v, _ := fld.Uint(); v != 7 {
		t.Errorf("Value = %d, want 7", v)
	}

	drift := f.Drift()
	if len(drift) != 1 {
		t.Fatalf("Drift = %v, want exactly one finding", drift)
	}
	if !strings.Contains(drift[0], "field index section") {
		t.Errorf("drift finding = %q, want field index section size", drift[0])
	}
}

func TestDriftDetectsRunOffsets(t *testing.T) {
	data := buildSample(t)
	// Root is multi-field; its run offset lives at struct entry bytes 4..8.
	binary.LittleEndian.PutUint32(data[60:], 4)

	f, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	drift := f.Drift()
	if len(drift) != 1 || !strings.Contains(drift[0], "struct 0") {
		t.Errorf("Drift = %v, want one struct 0 run finding", drift)
	}
}

func TestStructIndexOutOfRange(t *testing.T) {
	f, err := Parse(buildSample(t))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if _, err := f.Struct(99); err == nil {
		t.Error("Struct(99) succeeded, table has 4")
	}
	if _, err := f.Struct(-1); err == nil {
		t.Error("Struct(-1) succeeded")
	}
}
