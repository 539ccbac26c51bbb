package pipeline

import (
	"errors"
	"fmt"
	"strings"
)

// Errors returned by Parse.
var (
	ErrSyntax        = errors.New("syntax error")
	ErrDuplicateName = errors.New("duplicate element name")
)

// ParseError reports a launch description that could not be built.
type ParseError struct {
	Pos   int
	Token string
	Err   error
}

func (e *ParseError) Error() string {
	if e.Token == "" {
		return fmt.Sprintf("parse description at %d: %v", e.Pos, e.Err)
	}
	return fmt.Sprintf("parse description at %d (%q): %v", e.Pos, e.Token, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

type tokenKind int

const (
	tokWord tokenKind = iota
	tokLink
	tokOpen
	tokClose
)

type token struct {
	kind tokenKind
	text string
	pos  int
}

// lex splits a description into words, links (!) and bin parentheses.
// Double quotes group text and are removed.
func lex(s string) ([]token, error) {
	var (
		toks    []token
		cur     strings.Builder
		start   = -1
		inQuote bool
		depth   int
	)

	flush := func() {
		if start >= 0 {
			toks = append(toks, token{kind: tokWord, text: cur.String(), pos: start})
		}
		cur.Reset()
		start = -1
		depth = 0
	}
	begin := func(i int) {
		if start < 0 {
			start = i
		}
	}

	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case inQuote:
			if c == '"' {
				inQuote = false
				continue
			}
			cur.WriteByte(c)
		case c == '"':
			begin(i)
			inQuote = true
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			flush()
		case c == '!':
			flush()
			toks = append(toks, token{kind: tokLink, text: "!", pos: i})
		case c == '(' && start < 0:
			toks = append(toks, token{kind: tokOpen, text: "(", pos: i})
		case c == ')' && depth == 0:
			flush()
			toks = append(toks, token{kind: tokClose, text: ")", pos: i})
		default:
			begin(i)
			if c == '(' {
				depth++
			} else if c == ')' {
				depth--
			}
			cur.WriteByte(c)
		}
	}
	if inQuote {
		return nil, &ParseError{Pos: len(s), Err: fmt.Errorf("%w: unterminated quote", ErrSyntax)}
	}
	flush()
	return toks, nil
}

type pendingElement struct {
	factory *Factory
	name    string
	props   []token
	linked  bool
	pos     int
}

type parser struct {
	inst     *Instance
	counters map[string]int
	pending  *pendingElement
	last     *Element
	link     bool
}

// Parse builds an instance from a gst-launch style description such as
// "( rpicamsrc name=videosrc1 bitrate=1000000 ! capsfilter caps=... ! rtph264pay name=pay0 )".
func Parse(description string) (*Instance, error) {
	toks, err := lex(description)
	if err != nil {
		return nil, err
	}

	p := &parser{
		inst:     newInstance(description),
		counters: make(map[string]int),
	}

	depth := 0
	for _, tok := range toks {
		switch tok.kind {
		case tokOpen:
			if p.link {
				return nil, &ParseError{Pos: tok.pos, Token: tok.text, Err: fmt.Errorf("%w: link into bin", ErrSyntax)}
			}
			if err := p.finish(); err != nil {
				return nil, err
			}
			p.last = nil
			depth++

		case tokClose:
			if depth == 0 {
				return nil, &ParseError{Pos: tok.pos, Token: tok.text, Err: fmt.Errorf("%w: unbalanced )", ErrSyntax)}
			}
			if p.link {
				return nil, &ParseError{Pos: tok.pos, Token: tok.text, Err: fmt.Errorf("%w: dangling link", ErrSyntax)}
			}
			if err := p.finish(); err != nil {
				return nil, err
			}
			p.last = nil
			depth--

		case tokLink:
			if p.link || (p.pending == nil && p.last == nil) {
				return nil, &ParseError{Pos: tok.pos, Token: tok.text, Err: fmt.Errorf("%w: link without source", ErrSyntax)}
			}
			if err := p.finish(); err != nil {
				return nil, err
			}
			p.link = true

		case tokWord:
			if err := p.word(tok); err != nil {
				return nil, err
			}
		}
	}

	if depth != 0 {
		return nil, &ParseError{Pos: len(description), Err: fmt.Errorf("%w: unbalanced (", ErrSyntax)}
	}
	if p.link {
		return nil, &ParseError{Pos: len(description), Err: fmt.Errorf("%w: dangling link", ErrSyntax)}
	}
	if err := p.finish(); err != nil {
		return nil, err
	}
	if len(p.inst.elements) == 0 {
		return nil, &ParseError{Pos: 0, Err: fmt.Errorf("%w: empty description", ErrSyntax)}
	}
	return p.inst, nil
}

func (p *parser) word(tok token) error {
	if tok.text == "" {
		return &ParseError{Pos: tok.pos, Err: fmt.Errorf("%w: empty word", ErrSyntax)}
	}
	head, _, _ := strings.Cut(tok.text, ",")

	switch {
	case strings.Contains(head, "="):
		if p.pending == nil {
			return &ParseError{Pos: tok.pos, Token: tok.text, Err: fmt.Errorf("%w: property without element", ErrSyntax)}
		}
		p.pending.props = append(p.pending.props, tok)
		return nil

	case strings.Contains(head, "/"):
		// caps shorthand between links
		if err := p.begin(factoryFor("capsfilter"), tok.pos); err != nil {
			return err
		}
		p.pending.props = append(p.pending.props, token{kind: tokWord, text: "caps=" + tok.text, pos: tok.pos})
		return nil

	default:
		return p.begin(factoryFor(tok.text), tok.pos)
	}
}

func (p *parser) begin(f *Factory, pos int) error {
	if err := p.finish(); err != nil {
		return err
	}
	if !p.link {
		p.last = nil
	}
	p.pending = &pendingElement{factory: f, linked: p.link, pos: pos}
	p.link = false
	return nil
}

// finish builds the pending element, applies its properties and links it.
func (p *parser) finish() error {
	pe := p.pending
	if pe == nil {
		return nil
	}
	p.pending = nil

	var props []token
	for _, t := range pe.props {
		key, value, _ := strings.Cut(t.text, "=")
		if key == "" {
			return &ParseError{Pos: t.pos, Token: t.text, Err: fmt.Errorf("%w: empty property name", ErrSyntax)}
		}
		if key == "name" {
			pe.name = value
			continue
		}
		props = append(props, t)
	}

	if pe.name == "" {
		pe.name = fmt.Sprintf("%s%d", pe.factory.Name, p.counters[pe.factory.Name])
		p.counters[pe.factory.Name]++
	}
	if _, dup := p.inst.byName[pe.name]; dup {
		return &ParseError{Pos: pe.pos, Token: pe.name, Err: ErrDuplicateName}
	}

	el := newElement(pe.factory, pe.name)
	for _, t := range props {
		key, value, _ := strings.Cut(t.text, "=")
		if err := el.assign(key, value); err != nil {
			return &ParseError{Pos: t.pos, Token: t.text, Err: err}
		}
	}

	p.inst.add(el)
	if pe.linked && p.last != nil {
		p.inst.links = append(p.inst.links, Link{From: p.last.Name(), To: el.Name()})
	}
	p.last = el
	return nil
}
