package restore

import (
	"errors"
	"testing"
	"time"
)

type address struct {
	City string `json:"city"`
}

type customer struct {
	Name    string        `json:"name"`
	Age     int           `json:"age"`
	Since   time.Time     `json:"since"`
	Address address       `json:"address"`
	Timeout time.Duration `json:"timeout"`
}

func TestRegistry_RestoreDecodesPlainMap(t *testing.T) {
	reg := NewRegistry()
	if err := Register[customer](reg, "Customer"); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	plain := map[string]any{
		"name":    "Ada",
		"age":     float64(36),
		"since":   "2020-01-02T03:04:05Z",
		"address": map[string]any{"city": "London"},
		"timeout": "1m30s",
	}
	got, err := reg.Restore(plain, "Customer")
	if err != nil {
		t.Fatalf("Restore() error = %v", err)
	}
	c, ok := got.(*customer)
	if !ok {
		t.Fatalf("Restore() returned %T, want *customer", got)
	}
	if c.Name != "Ada" || c.Age != 36 || c.Address.City != "London" {
		t.Errorf("Restore() = %+v", c)
	}
	if want := time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC); !c.Since.Equal(want) {
		t.Errorf("Since = %v, want %v", c.Since, want)
	}
	if c.Timeout != 90*time.Second {
		t.Errorf("Timeout = %v, want 1m30s", c.Timeout)
	}
}

func TestRegistry_DateFormats(t *testing.T) {
	reg := NewRegistry()
	if err := Register[customer](reg, "Customer"); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	want := time.Date(1986, 2, 10, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		since any
	}{
		{"plain date", "1986-02-10"},
		{"rfc3339", "1986-02-10T00:00:00Z"},
		{"epoch millis", want.UnixMilli()},
		{"time value", want},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := reg.Restore(map[string]any{"since": tt.since}, "Customer")
			if err != nil {
				t.Fatalf("Restore() error = %v", err)
			}
			if since := got.(*customer).Since; !since.Equal(want) {
				t.Errorf("Since = %v, want %v", since, want)
			}
		})
	}
}

func TestRegistry_DescribeAndCanRestore(t *testing.T) {
	reg := NewRegistry()
	if err := Register[customer](reg, "Customer"); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	if d, ok := reg.Describe(customer{}); !ok || d != "Customer" {
		t.Errorf("Describe(value) = %q, %v", d, ok)
	}
	if d, ok := reg.Describe(&customer{}); !ok || d != "Customer" {
		t.Errorf("Describe(pointer) = %q, %v", d, ok)
	}
	if d, ok := reg.Describe(address{}); !ok || reg.CanRestore(d) {
		t.Errorf("Describe(unregistered) = %q, %v; CanRestore = %v", d, ok, reg.CanRestore(d))
	}
	if _, ok := reg.Describe(map[string]any{}); ok {
		t.Error("Describe(map) ok = true, want false")
	}
	if _, ok := reg.Describe(nil); ok {
		t.Error("Describe(nil) ok = true, want false")
	}
}

func TestRegistry_Errors(t *testing.T) {
	reg := NewRegistry()

	if err := Register[int](reg, "Int"); err == nil {
		t.Error("Register(non-struct) error = nil")
	}
	if err := Register[customer](reg, ""); err == nil {
		t.Error("Register(empty name) error = nil")
	}
	if err := Register[customer](reg, "Thing"); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if err := Register[address](reg, "Thing"); err == nil {
		t.Error("Register(duplicate name) error = nil")
	}

	if _, err := reg.Restore(map[string]any{}, "Missing"); !errors.Is(err, ErrNotRestorable) {
		t.Errorf("Restore(missing) error = %v, want ErrNotRestorable", err)
	}
	if _, err := reg.Restore("scalar", "Thing"); err == nil {
		t.Error("Restore(scalar) error = nil")
	}
	if _, err := reg.Restore(map[string]any{"since": "not a date"}, "Thing"); err == nil {
		t.Error("Restore(bad date) error = nil")
	}
}
