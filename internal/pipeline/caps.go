package pipeline

import (
	"fmt"
	"strings"
)

// CapsField is one name=value pair of a caps structure.
type CapsField struct {
	Name  string
	Value string
}

// Caps is a parsed media-type description such as
// video/x-h264,width=1280,height=720,framerate=30/1.
type Caps struct {
	MediaType string
	Fields    []CapsField
}

// ParseCaps parses a single caps structure.
func ParseCaps(s string) (Caps, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Caps{}, fmt.Errorf("%w: empty caps", ErrInvalidValue)
	}
	if s == "ANY" || s == "EMPTY" {
		return Caps{MediaType: s}, nil
	}

	parts := strings.Split(s, ",")
	media := strings.TrimSpace(parts[0])
	kind, sub, ok := strings.Cut(media, "/")
	if !ok || kind == "" || sub == "" || strings.ContainsAny(media, " =") {
		return Caps{}, fmt.Errorf("%w: bad media type %q", ErrInvalidValue, media)
	}

	c := Caps{MediaType: media}
	for _, part := range parts[1:] {
		part = strings.TrimSpace(part)
		name, value, ok := strings.Cut(part, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return Caps{}, fmt.Errorf("%w: bad caps field %q", ErrInvalidValue, part)
		}
		value = strings.TrimSpace(value)
		// drop an explicit type annotation: width=(int)1280
		if strings.HasPrefix(value, "(") {
			if i := strings.IndexByte(value, ')'); i > 0 {
				value = value[i+1:]
			}
		}
		c.Fields = append(c.Fields, CapsField{Name: name, Value: value})
	}
	return c, nil
}

// Field returns the value of a named field.
func (c Caps) Field(name string) (string, bool) {
	for _, f := range c.Fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return "", false
}

func (c Caps) String() string {
	var b strings.Builder
	b.WriteString(c.MediaType)
	for _, f := range c.Fields {
		b.WriteByte(',')
		b.WriteString(f.Name)
		b.WriteByte('=')
		b.WriteString(f.Value)
	}
	return b.String()
}
