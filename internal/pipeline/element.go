package pipeline

import (
	"fmt"
	"sync"
)

// Element is one named stage of a pipeline instance.
type Element struct {
	name    string
	factory *Factory

	mu     sync.RWMutex
	values map[string]any
	order  []string // property names in first-set order
}

func newElement(factory *Factory, name string) *Element {
	return &Element{
		name:    name,
		factory: factory,
		values:  make(map[string]any),
	}
}

// Name returns the element's unique name within its instance.
func (e *Element) Name() string {
	return e.name
}

// Factory returns the element's factory name.
func (e *Element) Factory() string {
	return e.factory.Name
}

// SetParameter coerces value to the property's native type and stores it.
// Failures are returned as *CoercionError.
func (e *Element) SetParameter(key, value string) error {
	if key == "name" {
		return &CoercionError{Element: e.name, Property: key, Value: value, Kind: KindString,
			Err: fmt.Errorf("%w: name is fixed at construction", ErrInvalidValue)}
	}
	return e.assign(key, value)
}

func (e *Element) assign(key, value string) error {
	prop, ok := e.factory.Property(key)
	if !ok {
		return &CoercionError{Element: e.name, Property: key, Value: value, Kind: KindString, Err: ErrNoSuchProperty}
	}

	native, err := prop.Coerce(value)
	if err != nil {
		return &CoercionError{Element: e.name, Property: key, Value: value, Kind: prop.Kind, Err: err}
	}

	e.mu.Lock()
	if _, exists := e.values[key]; !exists {
		e.order = append(e.order, key)
	}
	e.values[key] = native
	e.mu.Unlock()
	return nil
}

// Value returns the native value of a property that has been set.
func (e *Element) Value(key string) (any, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	v, ok := e.values[key]
	return v, ok
}

// Get returns the string form of a property: the set value, or the
// factory default when it was never set.
func (e *Element) Get(key string) (string, bool) {
	prop, ok := e.factory.Property(key)
	if !ok {
		return "", false
	}
	if v, ok := e.Value(key); ok {
		return prop.Format(v), true
	}
	if key == "name" {
		return e.name, true
	}
	return prop.Default, true
}

// Properties returns the string form of every explicitly set property.
func (e *Element) Properties() map[string]string {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make(map[string]string, len(e.values))
	for _, key := range e.order {
		prop, _ := e.factory.Property(key)
		out[key] = prop.Format(e.values[key])
	}
	return out
}
