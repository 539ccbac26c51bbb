package control

import (
	"fmt"
	"strings"
)

// DirectiveKind classifies one token of a command.
type DirectiveKind int

// Directive kinds.
const (
	SelectStream DirectiveKind = iota
	Reset
	SetParam
	Malformed
)

func (k DirectiveKind) String() string {
	switch k {
	case SelectStream:
		return "select"
	case Reset:
		return "reset"
	case SetParam:
		return "set"
	case Malformed:
		return "malformed"
	default:
		return fmt.Sprintf("directive(%d)", int(k))
	}
}

// Directive is one parsed unit of a command.
type Directive struct {
	Kind   DirectiveKind
	Token  string // source text, quotes reassembled
	Stream string // SelectStream
	Key    string // SetParam
	Value  string // SetParam, quotes stripped
	Err    error  // Malformed
}

// Tokenize parses a command into directives in source order.
//
// Tokens are separated by single spaces; empty tokens are skipped. "reset"
// (any case) clears stored options, a token without '=' selects a stream,
// and key=value sets a parameter. A value opening with '"' absorbs the
// following raw tokens up to one ending in '"', joined with single spaces.
// One leading and one trailing quote are then stripped independently.
func Tokenize(command string) []Directive {
	raw := strings.Split(command, " ")
	var out []Directive

	for i := 0; i < len(raw); i++ {
		tok := raw[i]
		if tok == "" {
			continue
		}

		if strings.EqualFold(tok, "reset") {
			out = append(out, Directive{Kind: Reset, Token: tok})
			continue
		}

		key, value, ok := strings.Cut(tok, "=")
		if !ok {
			out = append(out, Directive{Kind: SelectStream, Token: tok, Stream: tok})
			continue
		}

		if strings.HasPrefix(value, `"`) && (len(value) == 1 || !strings.HasSuffix(value, `"`)) {
			var b strings.Builder
			b.WriteString(value)
			for i+1 < len(raw) {
				i++
				b.WriteByte(' ')
				b.WriteString(raw[i])
				if strings.HasSuffix(raw[i], `"`) {
					break
				}
			}
			value = b.String()
		}
		token := key + "=" + value

		value = strings.TrimPrefix(value, `"`)
		value = strings.TrimSuffix(value, `"`)

		if key == "" {
			out = append(out, Directive{
				Kind:  Malformed,
				Token: token,
				Err:   fmt.Errorf("%w: empty parameter name in %q", ErrMalformedDirective, token),
			})
			continue
		}

		out = append(out, Directive{Kind: SetParam, Token: token, Key: key, Value: value})
	}

	return out
}
