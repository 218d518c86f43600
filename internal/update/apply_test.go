package update

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/solatis/docupdate/internal/restore"
)

type personName struct {
	First string `json:"first"`
	Last  string `json:"last"`
}

type person struct {
	Name     personName `json:"name"`
	Birthday time.Time  `json:"birthday"`
}

type nonRestorablePerson struct {
	Name     personName `json:"name"`
	Birthday string     `json:"birthday"`
}

func date(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func newRestoreEngine(t *testing.T) *Engine {
	t.Helper()
	reg := restore.NewRegistry()
	if err := restore.Register[person](reg, "Person"); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	return NewEngine(WithBridge(reg))
}

func TestUpdateAtPath(t *testing.T) {
	author := map[string]any{"name": map[string]any{"first": "Shin", "last": "Doe"}}
	book := map[string]any{
		"name": "Phenyl sp2",
		"meta": map[string]any{"author": author},
	}

	got, err := UpdateAtPath(book, "meta.author", map[string]any{
		"$set": map[string]any{"name.last": "Suzuki"},
	})
	if err != nil {
		t.Fatalf("UpdateAtPath() error = %v", err)
	}

	want := map[string]any{
		"name": "Phenyl sp2",
		"meta": map[string]any{
			"author": map[string]any{"name": map[string]any{"first": "Shin", "last": "Suzuki"}},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("UpdateAtPath() mismatch (-want +got):\n%s", diff)
	}
	if author["name"].(map[string]any)["last"] != "Doe" {
		t.Error("UpdateAtPath() modified the input sub-document")
	}
}

func TestUpdateAtPath_AbsentStartsEmpty(t *testing.T) {
	got, err := UpdateAtPath(map[string]any{}, "settings", map[string]any{"$inc": map[string]any{"visits": 1}})
	if err != nil {
		t.Fatalf("UpdateAtPath() error = %v", err)
	}
	want := map[string]any{"settings": map[string]any{"visits": 1}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("UpdateAtPath() mismatch (-want +got):\n%s", diff)
	}
}

func TestRestoreOperator(t *testing.T) {
	e := newRestoreEngine(t)
	plainPerson := map[string]any{
		"name":     map[string]any{"first": "Smith", "last": "Doe"},
		"birthday": "1986-02-10",
	}

	tests := []struct {
		name string
		doc  map[string]any
		desc string
		want any
	}{
		{
			name: "restorable descriptor builds instance",
			doc:  map[string]any{"name": "phenyl sp2", "author": plainPerson},
			desc: "Person",
			want: &person{Name: personName{"Smith", "Doe"}, Birthday: date("1986-02-10")},
		},
		{
			name: "unknown descriptor passes through",
			doc:  map[string]any{"name": "phenyl sp2", "author": plainPerson},
			desc: "NonRestorablePerson",
			want: plainPerson,
		},
		{
			name: "primitive value passes through",
			doc:  map[string]any{"name": "phenyl sp2", "author": "Shin Suzuki"},
			desc: "Person",
			want: "Shin Suzuki",
		},
		{
			name: "empty descriptor passes through",
			doc:  map[string]any{"name": "phenyl sp2", "author": plainPerson},
			desc: "",
			want: plainPerson,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := e.Update(tt.doc, map[string]any{"$restore": map[string]any{"author": tt.desc}})
			if err != nil {
				t.Fatalf("Update() error = %v", err)
			}
			author := got.(map[string]any)["author"]
			if diff := cmp.Diff(tt.want, author); diff != "" {
				t.Errorf("author mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestRestoreOperator_InstancePassesThrough(t *testing.T) {
	e := newRestoreEngine(t)
	inst := &person{Name: personName{"Smith", "Doe"}}
	doc := map[string]any{"author": inst}

	got, err := e.Update(doc, map[string]any{"$restore": map[string]any{"author": "Person"}})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if got.(map[string]any)["author"] != inst {
		t.Error("instance was rebuilt, want pass-through")
	}
}

func TestUpdateAndRestore(t *testing.T) {
	e := newRestoreEngine(t)
	p := person{Name: personName{"Smith", "Doe"}, Birthday: date("1986-02-10")}

	tests := []struct {
		name string
		op   map[string]any
		want *person
	}{
		{
			name: "updates a field",
			op:   map[string]any{"$set": map[string]any{"name.first": "John"}},
			want: &person{Name: personName{"John", "Doe"}, Birthday: date("1986-02-10")},
		},
		{
			name: "updates a date from a string",
			op:   map[string]any{"$set": map[string]any{"birthday": "1986-03-10"}},
			want: &person{Name: personName{"Smith", "Doe"}, Birthday: date("1986-03-10")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := e.UpdateAndRestore(p, tt.op)
			if err != nil {
				t.Fatalf("UpdateAndRestore() error = %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("UpdateAndRestore() mismatch (-want +got):\n%s", diff)
			}
		})
	}

	if p.Name.First != "Smith" {
		t.Error("UpdateAndRestore() modified the input instance")
	}
}

func TestUpdateAndRestore_NotRestorable(t *testing.T) {
	e := newRestoreEngine(t)
	p := nonRestorablePerson{Name: personName{"Smith", "Doe"}, Birthday: "1986-02-10"}

	got, err := e.UpdateAndRestore(p, map[string]any{"$set": map[string]any{"name.first": "John"}})
	if err != nil {
		t.Fatalf("UpdateAndRestore() error = %v", err)
	}
	want := map[string]any{
		"name":     map[string]any{"first": "John", "last": "Doe"},
		"birthday": "1986-02-10",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("UpdateAndRestore() mismatch (-want +got):\n%s", diff)
	}
}

func TestUpdateAndRestore_RestoreFailureReturnsPlain(t *testing.T) {
	e := newRestoreEngine(t)
	p := person{Name: personName{"Smith", "Doe"}, Birthday: date("1986-02-10")}

	got, err := e.UpdateAndRestore(p, map[string]any{"$set": map[string]any{"birthday": "not a date"}})
	if err != nil {
		t.Fatalf("UpdateAndRestore() error = %v", err)
	}
	want := map[string]any{
		"name":     map[string]any{"first": "Smith", "last": "Doe"},
		"birthday": "not a date",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("UpdateAndRestore() mismatch (-want +got):\n%s", diff)
	}
}

func TestUpdatePropAndRestore(t *testing.T) {
	e := newRestoreEngine(t)
	p := &person{Name: personName{"Smith", "Doe"}, Birthday: date("1986-02-10")}

	got, err := e.UpdatePropAndRestore(p, "name", map[string]any{"$set": map[string]any{"first": "John"}})
	if err != nil {
		t.Fatalf("UpdatePropAndRestore() error = %v", err)
	}
	want := &person{Name: personName{"John", "Doe"}, Birthday: date("1986-02-10")}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("UpdatePropAndRestore() mismatch (-want +got):\n%s", diff)
	}
}
