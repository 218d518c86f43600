// Package restore rebuilds typed instances from plain document values.
//
// The update engine only sees the Bridge capability interface. Registry is
// the implementation used by the service and CLI: types are registered under
// a descriptor name and decoded from plain maps with mapstructure.
package restore

import (
	"errors"
	"fmt"
	"reflect"
	"sync"
	"time"

	"github.com/mitchellh/mapstructure"
)

// Descriptor names a restorable type.
type Descriptor string

// Bridge reconstructs typed instances from plain values.
type Bridge interface {
	// Describe returns the descriptor for the dynamic type of v.
	Describe(v any) (Descriptor, bool)
	// CanRestore reports whether d names a type the bridge can build.
	CanRestore(d Descriptor) bool
	// Restore builds a new instance of d from plain.
	Restore(plain any, d Descriptor) (any, error)
}

// ErrNotRestorable indicates a descriptor with no registered type.
var ErrNotRestorable = errors.New("type is not restorable")

// dateLayouts are tried in order when a string is decoded into time.Time.
var dateLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"}

// Registry maps descriptors to struct types. Safe for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	byName map[Descriptor]reflect.Type
	byType map[reflect.Type]Descriptor
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byName: make(map[Descriptor]reflect.Type),
		byType: make(map[reflect.Type]Descriptor),
	}
}

// Register makes struct type T restorable under name. Restore returns *T.
func Register[T any](r *Registry, name Descriptor) error {
	t := reflect.TypeOf((*T)(nil)).Elem()
	if t.Kind() != reflect.Struct {
		return fmt.Errorf("register %s: %s is not a struct type", name, t)
	}
	if name == "" {
		return fmt.Errorf("register %s: empty descriptor", t)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if prev, ok := r.byName[name]; ok && prev != t {
		return fmt.Errorf("register %s: already bound to %s", name, prev)
	}
	r.byName[name] = t
	r.byType[t] = name
	return nil
}

// Describe returns the descriptor of v's type. Pointers are dereferenced.
// Unregistered types are described by their Go type name and are not
// restorable.
func (r *Registry) Describe(v any) (Descriptor, bool) {
	if v == nil {
		return "", false
	}
	t := reflect.TypeOf(v)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return "", false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	if d, ok := r.byType[t]; ok {
		return d, true
	}
	return Descriptor(t.String()), true
}

// CanRestore reports whether d was registered.
func (r *Registry) CanRestore(d Descriptor) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.byName[d]
	return ok
}

// Restore decodes plain into a new instance of the type registered as d.
func (r *Registry) Restore(plain any, d Descriptor) (any, error) {
	r.mu.RLock()
	t, ok := r.byName[d]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotRestorable, d)
	}
	if _, isMap := plain.(map[string]any); !isMap {
		return nil, fmt.Errorf("restore %s: expected an object, got %T", d, plain)
	}

	target := reflect.New(t)
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target.Interface(),
		TagName:          "json",
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			stringToTimeHook,
			epochMillisToTimeHook,
			mapstructure.StringToTimeDurationHookFunc(),
		),
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(plain); err != nil {
		return nil, fmt.Errorf("restore %s: %w", d, err)
	}
	return target.Interface(), nil
}

var timeType = reflect.TypeOf(time.Time{})

// stringToTimeHook parses RFC 3339 timestamps and plain dates.
func stringToTimeHook(from, to reflect.Type, data any) (any, error) {
	if to != timeType || from.Kind() != reflect.String {
		return data, nil
	}
	s := data.(string)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return nil, fmt.Errorf("cannot parse %q as a date", s)
}

// epochMillisToTimeHook accepts $currentDate timestamps.
func epochMillisToTimeHook(from, to reflect.Type, data any) (any, error) {
	if to != timeType {
		return data, nil
	}
	switch from.Kind() {
	case reflect.Int, reflect.Int64:
		return time.UnixMilli(reflect.ValueOf(data).Int()).UTC(), nil
	case reflect.Float64:
		return time.UnixMilli(int64(data.(float64))).UTC(), nil
	default:
		return data, nil
	}
}

var _ Bridge = (*Registry)(nil)
