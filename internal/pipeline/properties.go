package pipeline

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Kind is the native type of an element property.
type Kind int

// Property kinds.
const (
	KindString Kind = iota
	KindInt
	KindUint
	KindUint64
	KindBool
	KindFloat
	KindEnum
	KindFlags
	KindCaps
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindUint:
		return "uint"
	case KindUint64:
		return "uint64"
	case KindBool:
		return "bool"
	case KindFloat:
		return "float"
	case KindEnum:
		return "enum"
	case KindFlags:
		return "flags"
	case KindCaps:
		return "caps"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Errors returned while coercing property values.
var (
	ErrNoSuchProperty = errors.New("no such property")
	ErrOutOfRange     = errors.New("value out of range")
	ErrInvalidValue   = errors.New("invalid value")
)

// CoercionError reports a value that could not be applied to a property.
type CoercionError struct {
	Element  string
	Property string
	Value    string
	Kind     Kind
	Err      error
}

func (e *CoercionError) Error() string {
	return fmt.Sprintf("%s.%s: cannot set %q as %s: %v", e.Element, e.Property, e.Value, e.Kind, e.Err)
}

func (e *CoercionError) Unwrap() error {
	return e.Err
}

// EnumValue is one member of an enum or flags property.
type EnumValue struct {
	Value int64
	Nick  string
}

// Property describes a settable element property.
type Property struct {
	Name    string
	Kind    Kind
	Min     float64
	Max     float64
	Values  []EnumValue
	Default string
}

func (p Property) ranged() bool {
	return p.Min != 0 || p.Max != 0
}

func intProp(name string, lo, hi int64, def string) Property {
	return Property{Name: name, Kind: KindInt, Min: float64(lo), Max: float64(hi), Default: def}
}

func uintProp(name string, hi uint64, def string) Property {
	return Property{Name: name, Kind: KindUint, Max: float64(hi), Default: def}
}

func uint64Prop(name, def string) Property {
	return Property{Name: name, Kind: KindUint64, Default: def}
}

func floatProp(name string, lo, hi float64, def string) Property {
	return Property{Name: name, Kind: KindFloat, Min: lo, Max: hi, Default: def}
}

func boolProp(name, def string) Property {
	return Property{Name: name, Kind: KindBool, Default: def}
}

func stringProp(name, def string) Property {
	return Property{Name: name, Kind: KindString, Default: def}
}

func enumProp(name, def string, nicks ...string) Property {
	values := make([]EnumValue, len(nicks))
	for i, n := range nicks {
		values[i] = EnumValue{Value: int64(i), Nick: n}
	}
	return Property{Name: name, Kind: KindEnum, Values: values, Default: def}
}

// Coerce converts a raw string to the property's native value.
func (p Property) Coerce(raw string) (any, error) {
	switch p.Kind {
	case KindString:
		return raw, nil

	case KindInt:
		v, err := strconv.ParseInt(strings.TrimSpace(raw), 0, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidValue, err)
		}
		if p.ranged() && (float64(v) < p.Min || float64(v) > p.Max) {
			return nil, fmt.Errorf("%w: %d not in [%d, %d]", ErrOutOfRange, v, int64(p.Min), int64(p.Max))
		}
		return v, nil

	case KindUint, KindUint64:
		v, err := strconv.ParseUint(strings.TrimSpace(raw), 0, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidValue, err)
		}
		hi := p.Max
		if p.Kind == KindUint && hi == 0 {
			hi = math.MaxUint32
		}
		if hi != 0 && float64(v) > hi {
			return nil, fmt.Errorf("%w: %d above %d", ErrOutOfRange, v, uint64(hi))
		}
		return v, nil

	case KindFloat:
		v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidValue, err)
		}
		if p.ranged() && (v < p.Min || v > p.Max) {
			return nil, fmt.Errorf("%w: %g not in [%g, %g]", ErrOutOfRange, v, p.Min, p.Max)
		}
		return v, nil

	case KindBool:
		return parseBool(raw)

	case KindEnum:
		return p.parseEnum(raw)

	case KindFlags:
		return p.parseFlags(raw)

	case KindCaps:
		return ParseCaps(raw)

	default:
		return nil, fmt.Errorf("%w: unsupported kind %s", ErrInvalidValue, p.Kind)
	}
}

// Format renders a native value back to its string form.
func (p Property) Format(v any) string {
	switch p.Kind {
	case KindEnum:
		if n, ok := v.(int64); ok {
			for _, ev := range p.Values {
				if ev.Value == n {
					return ev.Nick
				}
			}
		}
	case KindFlags:
		if n, ok := v.(int64); ok {
			return p.formatFlags(n)
		}
	case KindBool:
		if b, ok := v.(bool); ok {
			return strconv.FormatBool(b)
		}
	case KindFloat:
		if f, ok := v.(float64); ok {
			return strconv.FormatFloat(f, 'g', -1, 64)
		}
	}
	return fmt.Sprint(v)
}

func parseBool(raw string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "true", "yes", "t", "1", "on":
		return true, nil
	case "false", "no", "f", "0", "off":
		return false, nil
	default:
		return false, fmt.Errorf("%w: %q is not a boolean", ErrInvalidValue, raw)
	}
}

func (p Property) parseEnum(raw string) (int64, error) {
	s := strings.TrimSpace(raw)
	for _, ev := range p.Values {
		if ev.Nick == s {
			return ev.Value, nil
		}
	}
	if n, err := strconv.ParseInt(s, 0, 64); err == nil {
		for _, ev := range p.Values {
			if ev.Value == n {
				return n, nil
			}
		}
		return 0, fmt.Errorf("%w: %d is not a member", ErrOutOfRange, n)
	}
	return 0, fmt.Errorf("%w: %q is not one of %s", ErrInvalidValue, raw, p.nicks())
}

func (p Property) parseFlags(raw string) (int64, error) {
	s := strings.TrimSpace(raw)
	if n, err := strconv.ParseInt(s, 0, 64); err == nil {
		return n, nil
	}
	var out int64
	for _, part := range strings.FieldsFunc(s, func(r rune) bool { return r == '+' || r == '|' }) {
		found := false
		for _, ev := range p.Values {
			if ev.Nick == strings.TrimSpace(part) {
				out |= ev.Value
				found = true
				break
			}
		}
		if !found {
			return 0, fmt.Errorf("%w: unknown flag %q", ErrInvalidValue, part)
		}
	}
	return out, nil
}

func (p Property) formatFlags(n int64) string {
	if n == 0 {
		return "0"
	}
	var parts []string
	for _, ev := range p.Values {
		if ev.Value != 0 && n&ev.Value == ev.Value {
			parts = append(parts, ev.Nick)
		}
	}
	return strings.Join(parts, "+")
}

func (p Property) nicks() string {
	nicks := make([]string, len(p.Values))
	for i, ev := range p.Values {
		nicks[i] = ev.Nick
	}
	return strings.Join(nicks, ", ")
}
