package codec

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/solatis/docupdate/internal/types"
)

func TestToWire(t *testing.T) {
	when := time.Date(2024, 5, 1, 12, 0, 0, 0, time.FixedZone("CEST", 2*3600))
	s := sample{Name: "n", Count: 1, When: when}

	got, err := ToWire(map[string]any{
		"when":  when,
		"holes": []any{1, types.Undefined},
		"inst":  s,
		"small": int32(7),
	})
	if err != nil {
		t.Fatalf("ToWire() error = %v", err)
	}
	want := map[string]any{
		"when":  "2024-05-01T10:00:00Z",
		"holes": []any{1, nil},
		"inst": map[string]any{
			"name":  "n",
			"count": int64(1),
			"when":  "2024-05-01T10:00:00Z",
			"inner": map[string]any{"flag": false},
		},
		"small": int64(7),
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ToWire() mismatch (-want +got):\n%s", diff)
	}
}

func TestFromWire(t *testing.T) {
	in := map[string]any{
		"count":  float64(3),
		"ratio":  0.25,
		"big":    float64(1 << 60),
		"nan":    math.Inf(1),
		"number": json.Number("42"),
		"frac":   json.Number("1.5"),
		"list":   []any{float64(1), "x", nil},
	}
	want := map[string]any{
		"count":  int64(3),
		"ratio":  0.25,
		"big":    float64(1 << 60),
		"nan":    math.Inf(1),
		"number": int64(42),
		"frac":   1.5,
		"list":   []any{int64(1), "x", nil},
	}
	if diff := cmp.Diff(want, FromWire(in)); diff != "" {
		t.Errorf("FromWire() mismatch (-want +got):\n%s", diff)
	}
}
