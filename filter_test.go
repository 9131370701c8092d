package gcs

import (
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"

	streamerrors "github.com/tamirms/gcs/errors"
)

// ============================================================================
// Open
// ============================================================================

func TestOpen(t *testing.T) {
	rng := newTestRNG(t)
	vals := generateValues(rng, 5000, 0.1)
	path := filepath.Join(t.TempDir(), "open.gcs")

	b, err := Create(path, 1<<14, WithIndexGranularity(256))
	if err != nil {
		t.Fatal(err)
	}
	for _, v := range vals {
		b.Add(v)
	}
	if err := b.Finish(); err != nil {
		t.Fatal(err)
	}
	built := b.Stats()

	flt, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer flt.Close()

	s := flt.Stats()
	if s.N != 5000 || s.P != 1<<14 || s.RemainderBits != 14 {
		t.Errorf("stats = %+v", s)
	}
	if s.DataBytes != built.DataBytes() || s.IndexEntries != built.IndexEntries {
		t.Errorf("stats = %+v, builder reported %+v", s, built)
	}
	if uint64(s.FileSize) != built.FileSize() {
		t.Errorf("FileSize = %d, want %d", s.FileSize, built.FileSize())
	}
	if s.BitsPerElement < 13 || s.BitsPerElement > 17 {
		t.Errorf("BitsPerElement = %.2f, want roughly log2(p)+1.5 per distinct value", s.BitsPerElement)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	dec := decodeFilter(t, raw)
	if !slices.Equal(flt.IndexEntries(), dec.filter.IndexEntries()) {
		t.Error("mapped index differs from in-memory index")
	}
	if !slices.Equal(flt.Data(), raw[:s.DataBytes]) {
		t.Error("mapped data section differs from file contents")
	}

	if err := flt.Close(); err != nil {
		t.Fatal(err)
	}
	if err := flt.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
	if flt.Data() != nil {
		t.Error("Data after Close should be nil")
	}
}

func TestOpenErrors(t *testing.T) {
	dir := t.TempDir()

	if _, err := Open(filepath.Join(dir, "missing.gcs")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("missing file: %v", err)
	}

	short := filepath.Join(dir, "short.gcs")
	if err := os.WriteFile(short, []byte(magic), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Open(short); !errors.Is(err, streamerrors.ErrTruncatedFile) {
		t.Errorf("short file: %v", err)
	}
}

// ============================================================================
// Layout Validation
// ============================================================================

func TestOpenBytesValidation(t *testing.T) {
	// {1, 4, 9} with p=4 and an entry per element: 2 data bytes, 2 index
	// entries, footer.
	valid := buildInMemory(t, []uint64{1, 4, 9}, 4, WithIndexGranularity(1))
	footerAt := len(valid) - footerSize

	if _, err := OpenBytes(valid); err != nil {
		t.Fatalf("valid filter rejected: %v", err)
	}

	putWord := func(data []byte, off int, v uint64) {
		binary.BigEndian.PutUint64(data[off:], v)
	}

	tests := []struct {
		name    string
		corrupt func(data []byte) []byte
		want    error
	}{
		{"too short", func(d []byte) []byte { return d[len(d)-footerSize+1:] }, streamerrors.ErrTruncatedFile},
		{"bad magic", func(d []byte) []byte { d[len(d)-1] = 'x'; return d }, streamerrors.ErrInvalidMagic},
		{"zero modulus", func(d []byte) []byte { putWord(d, footerAt+8, 0); return d }, streamerrors.ErrCorruptedFilter},
		{"data length mismatch", func(d []byte) []byte { putWord(d, footerAt+16, 3); return d }, streamerrors.ErrCorruptedFilter},
		{"huge data length", func(d []byte) []byte { putWord(d, footerAt+16, ^uint64(0)); return d }, streamerrors.ErrCorruptedFilter},
		{"index count too large", func(d []byte) []byte { putWord(d, footerAt+24, 1000); return d }, streamerrors.ErrTruncatedFile},
		{"index count short", func(d []byte) []byte { putWord(d, footerAt+24, 1); return d }, streamerrors.ErrCorruptedFilter},
		{"index out of order", func(d []byte) []byte {
			putWord(d, 2, 9)
			putWord(d, 2+16, 4)
			return d
		}, streamerrors.ErrCorruptedFilter},
		{"index offset past data", func(d []byte) []byte { putWord(d, 2+16+8, 17); return d }, streamerrors.ErrCorruptedFilter},
		{"index with zero n", func(d []byte) []byte { putWord(d, footerAt, 0); return d }, streamerrors.ErrCorruptedFilter},
		{"trailing garbage", func(d []byte) []byte { return append([]byte{0}, d...) }, streamerrors.ErrCorruptedFilter},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := tt.corrupt(slices.Clone(valid))
			if _, err := OpenBytes(data); !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
		})
	}
}

func TestFooterRoundTrip(t *testing.T) {
	if footerSize != 4*8+len(magic) {
		t.Fatalf("footerSize = %d, want four words plus %d-byte magic", footerSize, len(magic))
	}
	want := footer{N: 1 << 40, P: 784931, DataLen: 123456789, IndexCount: 42}
	var buf [footerSize]byte
	want.encodeTo(buf[:])
	if string(buf[footerSize-len(magic):]) != magic {
		t.Fatalf("magic not at end: %q", buf[footerSize-len(magic):])
	}
	got, err := decodeFooter(buf[:])
	if err != nil {
		t.Fatal(err)
	}
	if *got != want {
		t.Errorf("decoded %+v, want %+v", *got, want)
	}
}
