package codec

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/solatis/docupdate/internal/types"
)

func TestEncodeDecode(t *testing.T) {
	when := time.Date(2024, 2, 29, 10, 30, 0, 0, time.UTC)
	doc := map[string]any{
		"name":  "doc",
		"count": 3,
		"ratio": 0.5,
		"when":  when,
		"tags":  []any{"a", types.Undefined, "c"},
		"meta":  map[string]any{"ok": true, "none": nil},
		"long":  strings.Repeat("compressible ", 200),
	}
	want := map[string]any{
		"name":  "doc",
		"count": int64(3),
		"ratio": 0.5,
		"when":  when,
		"tags":  []any{"a", nil, "c"},
		"meta":  map[string]any{"ok": true, "none": nil},
		"long":  strings.Repeat("compressible ", 200),
	}

	for _, compress := range []bool{false, true} {
		data, err := Encode(doc, compress)
		if err != nil {
			t.Fatalf("Encode(compress=%v) error = %v", compress, err)
		}
		got, err := Decode(data)
		if err != nil {
			t.Fatalf("Decode(compress=%v) error = %v", compress, err)
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("round trip (compress=%v) mismatch (-want +got):\n%s", compress, diff)
		}
	}

	if doc["tags"].([]any)[1] != types.Undefined {
		t.Error("Encode() modified the input document")
	}
}

func TestEncode_CompressionShrinksRepetitiveDocuments(t *testing.T) {
	doc := map[string]any{"long": strings.Repeat("abcdefgh", 1000)}
	raw, err := Encode(doc, false)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	compressed, err := Encode(doc, true)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	if len(compressed) >= len(raw) {
		t.Errorf("compressed size %d >= raw size %d", len(compressed), len(raw))
	}
}

func TestEncode_IncompressibleFallsBackToRaw(t *testing.T) {
	data, err := Encode(map[string]any{"a": 1}, true)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	if data[5]&flagLZ4 != 0 {
		t.Error("tiny document stored compressed")
	}
	if _, err := Decode(data); err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
}

func TestDecode_RejectsBadHeaders(t *testing.T) {
	good, err := Encode(map[string]any{}, false)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	badMagic := bytes.Clone(good)
	copy(badMagic, "NOPE")
	badVersion := bytes.Clone(good)
	badVersion[4] = 99

	for name, data := range map[string][]byte{
		"bad magic":   badMagic,
		"bad version": badVersion,
		"truncated":   good[:3],
	} {
		t.Run(name, func(t *testing.T) {
			if _, err := Decode(data); err == nil {
				t.Error("Decode() error = nil")
			}
		})
	}
}

type sample struct {
	Name  string    `json:"name"`
	Count int       `json:"count"`
	When  time.Time `json:"when"`
	Inner struct {
		Flag bool `json:"flag"`
	} `json:"inner"`
}

func TestToPlain(t *testing.T) {
	when := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s := sample{Name: "x", Count: 2, When: when}
	s.Inner.Flag = true

	got, err := ToPlain(&s)
	if err != nil {
		t.Fatalf("ToPlain() error = %v", err)
	}
	want := map[string]any{
		"name":  "x",
		"count": int64(2),
		"when":  when,
		"inner": map[string]any{"flag": true},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ToPlain() mismatch (-want +got):\n%s", diff)
	}
}

func TestToPlain_PlainValuesPassThrough(t *testing.T) {
	doc := map[string]any{"a": 1}
	got, err := ToPlain(doc)
	if err != nil {
		t.Fatalf("ToPlain() error = %v", err)
	}
	if diff := cmp.Diff(doc, got); diff != "" {
		t.Errorf("ToPlain() mismatch (-want +got):\n%s", diff)
	}
}
