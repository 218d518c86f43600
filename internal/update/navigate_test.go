package update

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/solatis/docupdate/internal/types"
)

func TestGet(t *testing.T) {
	doc := map[string]any{
		"user": map[string]any{"name": "Alice"},
		"list": []any{map[string]any{"v": 1}, types.Undefined},
		"nil":  nil,
	}

	tests := []struct {
		name      string
		path      string
		wantValue any
		wantFound bool
	}{
		{"nested", "user.name", "Alice", true},
		{"array element field", "list[0].v", 1, true},
		{"null value is found", "nil", nil, true},
		{"hole is absent", "list[1]", nil, false},
		{"index past end", "list[5]", nil, false},
		{"missing intermediate", "nope.deeper", nil, false},
		{"key on array", "list.v", nil, false},
		{"index on object", "user[0]", nil, false},
		{"through scalar", "user.name.first", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, found, err := Get(doc, tt.path)
			if err != nil {
				t.Fatalf("Get() error = %v", err)
			}
			if found != tt.wantFound {
				t.Fatalf("Get() found = %v, want %v", found, tt.wantFound)
			}
			if diff := cmp.Diff(tt.wantValue, got); diff != "" {
				t.Errorf("Get() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestModify_CreatesIntermediates(t *testing.T) {
	tests := []struct {
		name string
		doc  any
		path string
		want any
	}{
		{
			name: "property creates maps",
			doc:  map[string]any{},
			path: "a.b.c",
			want: map[string]any{"a": map[string]any{"b": map[string]any{"c": "v"}}},
		},
		{
			name: "index creates array",
			doc:  map[string]any{},
			path: "a[1].b",
			want: map[string]any{"a": []any{types.Undefined, map[string]any{"b": "v"}}},
		},
		{
			name: "index on object replaces it",
			doc:  map[string]any{"a": map[string]any{"x": 1}},
			path: "a[0]",
			want: map[string]any{"a": []any{"v"}},
		},
		{
			name: "property on array replaces it",
			doc:  map[string]any{"a": []any{1}},
			path: "a.b",
			want: map[string]any{"a": map[string]any{"b": "v"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			segs, err := ParsePath(tt.path)
			if err != nil {
				t.Fatalf("ParsePath() error = %v", err)
			}
			got, err := modify(tt.doc, segs, func(any, bool) (any, error) { return "v", nil })
			if err != nil {
				t.Fatalf("modify() error = %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("modify() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestModify_SharesUntouchedSiblings(t *testing.T) {
	sibling := map[string]any{"keep": true}
	doc := map[string]any{"a": map[string]any{"b": 1}, "s": sibling}

	segs, _ := ParsePath("a.b")
	got, err := modify(doc, segs, func(any, bool) (any, error) { return 2, nil })
	if err != nil {
		t.Fatalf("modify() error = %v", err)
	}

	out := got.(map[string]any)
	out["s"].(map[string]any)["probe"] = 1
	if _, ok := sibling["probe"]; !ok {
		t.Error("untouched sibling was copied, want shared")
	}
	if doc["a"].(map[string]any)["b"] != 1 {
		t.Error("input document modified")
	}
}

func TestModify_ArrayExtensionLimit(t *testing.T) {
	segs := []types.PathSegment{{Key: "a"}, {Index: types.MaxArrayExtension + 5, IsIndex: true}}
	_, err := modify(map[string]any{}, segs, func(any, bool) (any, error) { return 1, nil })
	if !errors.Is(err, types.ErrArrayTooLong) {
		t.Fatalf("modify() error = %v, want ErrArrayTooLong", err)
	}
}

func TestRemove(t *testing.T) {
	doc := map[string]any{"a": map[string]any{"b": 1, "c": 2}, "l": []any{1, 2}}

	got, changed := remove(doc, []types.PathSegment{{Key: "a"}, {Key: "b"}})
	if !changed {
		t.Fatal("remove() changed = false")
	}
	want := map[string]any{"a": map[string]any{"c": 2}, "l": []any{1, 2}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("remove() mismatch (-want +got):\n%s", diff)
	}

	got, changed = remove(doc, []types.PathSegment{{Key: "l"}, {Index: 0, IsIndex: true}})
	if !changed {
		t.Fatal("remove() on array changed = false")
	}
	want = map[string]any{"a": map[string]any{"b": 1, "c": 2}, "l": []any{types.Undefined, 2}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("remove() mismatch (-want +got):\n%s", diff)
	}

	if _, changed := remove(doc, []types.PathSegment{{Key: "x"}, {Key: "y"}}); changed {
		t.Error("remove() on missing path changed = true")
	}
}
