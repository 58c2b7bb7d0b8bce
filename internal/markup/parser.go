package markup

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"

	"github.com/conneroisu/gorsx/internal/errors"
)

// Parse parses src into a Markup AST. Several top-level nodes are wrapped
// in an implicit fragment. The returned tree has already passed Validate.
func Parse(filename string, src []byte) (Root, error) {
	p := &parser{filename: filename, src: string(src), line: 1, col: 1}
	root, err := p.parseRoot()
	if err != nil {
		return nil, err
	}
	if err := Validate(root); err != nil {
		return nil, err
	}
	return root, nil
}

// ParseString is Parse for in-memory markup with no file name.
func ParseString(src string) (Root, error) {
	return Parse("", []byte(src))
}

type parser struct {
	filename string
	src      string
	off      int
	line     int
	col      int
}

// closeTag is a closing tag met while reading children. An empty name is
// the fragment closer </>.
type closeTag struct {
	name string
	pos  Position
}

func (p *parser) pos() Position {
	return Position{Filename: p.filename, Offset: p.off, Line: p.line, Column: p.col}
}

func (p *parser) eof() bool { return p.off >= len(p.src) }

func (p *parser) peek() byte {
	if p.eof() {
		return 0
	}
	return p.src[p.off]
}

func (p *parser) hasPrefix(s string) bool {
	return strings.HasPrefix(p.src[p.off:], s)
}

func (p *parser) advance(n int) {
	end := min(p.off+n, len(p.src))
	for ; p.off < end; p.off++ {
		c := p.src[p.off]
		switch {
		case c == '\n':
			p.line++
			p.col = 1
		case utf8.RuneStart(c):
			p.col++
		}
	}
}

func (p *parser) skipSpace() bool {
	start := p.off
	for !p.eof() && isSpace(p.peek()) {
		p.advance(1)
	}
	return p.off > start
}

func (p *parser) fail(err *errors.MarkupError, at Position) error {
	return err.WithLocation(at.Filename, at.Line, at.Column).WithContext("offset", at.Offset)
}

func (p *parser) parseRoot() (Root, error) {
	start := p.pos()
	children, closing, err := p.parseChildren()
	if err != nil {
		return nil, err
	}
	if closing != nil {
		return nil, p.strayClose(children, closing)
	}
	if len(children) == 0 {
		return nil, p.fail(errors.NewStructuralError(errors.ErrCodeMalformedTag, "no markup found"), start)
	}
	if len(children) == 1 {
		if r, ok := children[0].(Root); ok {
			return r, nil
		}
	}
	return &FragmentSpec{Children: children, Implicit: true, Pos: start}, nil
}

// parseChildren reads nodes until end of input or a closing tag, which is
// consumed and returned.
func (p *parser) parseChildren() ([]Child, *closeTag, error) {
	var children []Child
	for !p.eof() {
		switch {
		case p.hasPrefix("</"):
			ct, err := p.parseCloseTag()
			if err != nil {
				return nil, nil, err
			}
			return children, ct, nil
		case p.hasPrefix("<!--"):
			c, err := p.parseComment()
			if err != nil {
				return nil, nil, err
			}
			children = append(children, c)
		case p.peek() == '<':
			c, err := p.parseTag()
			if err != nil {
				return nil, nil, err
			}
			children = append(children, c)
		case p.peek() == '{' && !p.hasPrefix("{{"):
			start := p.pos()
			expr, err := p.readBraced("expression", "")
			if err != nil {
				return nil, nil, err
			}
			if expr = strings.TrimSpace(expr); expr != "" {
				children = append(children, &Embedded{Expr: expr, Pos: start})
			}
		default:
			if t := p.parseText(); t != nil {
				children = append(children, t)
			}
		}
	}
	return children, nil, nil
}

func (p *parser) parseText() *TextLiteral {
	start := p.pos()
	var b strings.Builder
	for !p.eof() {
		switch {
		case p.hasPrefix("{{"):
			b.WriteByte('{')
			p.advance(2)
			continue
		case p.hasPrefix("}}"):
			b.WriteByte('}')
			p.advance(2)
			continue
		case p.peek() == '<' || p.peek() == '{':
		default:
			b.WriteByte(p.peek())
			p.advance(1)
			continue
		}
		break
	}
	text := cleanText(b.String())
	if text == "" {
		return nil
	}
	return &TextLiteral{Value: html.UnescapeString(text), Pos: start}
}

// cleanText applies JSX whitespace rules: a run that is only whitespace
// and spans a line break is dropped; otherwise lines are trimmed at their
// inner edges, blank lines are removed and the rest joined by single
// spaces.
func cleanText(s string) string {
	if !strings.ContainsAny(s, "\r\n") {
		return s
	}
	lines := strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n")
	kept := make([]string, 0, len(lines))
	for i, line := range lines {
		if i > 0 {
			line = strings.TrimLeft(line, " \t")
		}
		if i < len(lines)-1 {
			line = strings.TrimRight(line, " \t")
		}
		if strings.TrimSpace(line) != "" {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, " ")
}

func (p *parser) parseComment() (*CommentSpec, error) {
	start := p.pos()
	p.advance(len("<!--"))
	end := strings.Index(p.src[p.off:], "-->")
	if end < 0 {
		return nil, p.fail(errors.ErrUnterminated("comment", ""), start)
	}
	value := p.src[p.off : p.off+end]
	p.advance(end + len("-->"))
	return &CommentSpec{Value: value, Pos: start}, nil
}

func (p *parser) parseCloseTag() (*closeTag, error) {
	start := p.pos()
	p.advance(2)
	p.skipSpace()
	if p.peek() == '>' {
		p.advance(1)
		return &closeTag{pos: start}, nil
	}
	name := p.readName(isTagStart, isTagChar)
	if name == "" {
		return nil, p.fail(errors.ErrMalformedTag("", "expected a name in closing tag"), start)
	}
	p.skipSpace()
	if p.peek() != '>' {
		return nil, p.fail(errors.ErrMalformedTag(name, "expected '>' to end closing tag"), p.pos())
	}
	p.advance(1)
	return &closeTag{name: name, pos: start}, nil
}

// strayClose builds the error for a closing tag that closes nothing in the
// current scope. A tag right after a self-closing element of the same name
// is reported as a closed self-closing tag.
func (p *parser) strayClose(siblings []Child, ct *closeTag) error {
	if el := lastElement(siblings); el != nil && el.SelfClosing && el.Tag == ct.name {
		return p.fail(errors.ErrSelfClosingClosed(ct.name), ct.pos)
	}
	return p.fail(errors.ErrUnexpectedClose(ct.name), ct.pos)
}

func lastElement(children []Child) *ElementSpec {
	for i := len(children) - 1; i >= 0; i-- {
		switch c := children[i].(type) {
		case *ElementSpec:
			return c
		case *TextLiteral:
			if strings.TrimSpace(c.Value) != "" {
				return nil
			}
		default:
			return nil
		}
	}
	return nil
}

func (p *parser) parseTag() (Child, error) {
	start := p.pos()
	p.advance(1)

	if p.peek() == '>' {
		p.advance(1)
		children, closing, err := p.parseChildren()
		if err != nil {
			return nil, err
		}
		if closing == nil {
			return nil, p.fail(errors.ErrUnterminated("fragment", ""), start)
		}
		if closing.name != "" {
			if el := lastElement(children); el != nil && el.SelfClosing && el.Tag == closing.name {
				return nil, p.fail(errors.ErrSelfClosingClosed(closing.name), closing.pos)
			}
			return nil, p.fail(errors.ErrMismatchedTag("", closing.name), closing.pos)
		}
		return &FragmentSpec{Children: children, Pos: start}, nil
	}

	name := p.readName(isTagStart, isTagChar)
	if name == "" {
		return nil, p.fail(errors.ErrMalformedTag("", fmt.Sprintf("unexpected character %q after '<'", p.peek())), start)
	}
	el := &ElementSpec{Tag: name, Pos: start}

	for {
		spaced := p.skipSpace()
		if p.eof() {
			return nil, p.fail(errors.ErrUnterminated("tag", name), start)
		}
		if p.hasPrefix("/>") {
			p.advance(2)
			el.SelfClosing = true
			return el, nil
		}
		if p.peek() == '>' {
			p.advance(1)
			break
		}
		if !spaced {
			return nil, p.fail(errors.ErrMalformedTag(name, fmt.Sprintf("unexpected character %q", p.peek())), p.pos())
		}
		attr, err := p.parseAttr(name)
		if err != nil {
			return nil, err
		}
		el.Attrs = append(el.Attrs, attr)
	}

	children, closing, err := p.parseChildren()
	if err != nil {
		return nil, err
	}
	el.Children = children
	if closing == nil {
		return nil, p.fail(errors.ErrUnterminated("element", name), start)
	}
	if closing.name != name {
		if prev := lastElement(children); prev != nil && prev.SelfClosing && prev.Tag == closing.name {
			return nil, p.fail(errors.ErrSelfClosingClosed(closing.name), closing.pos)
		}
		return nil, p.fail(errors.ErrMismatchedTag(name, closing.name), closing.pos)
	}
	el.ClosingTag = closing.name
	return el, nil
}

func (p *parser) parseAttr(tag string) (*AttrSpec, error) {
	start := p.pos()
	name := p.readName(isAttrStart, isAttrChar)
	if name == "" {
		return nil, p.fail(errors.ErrMalformedTag(tag, fmt.Sprintf("unexpected character %q in attribute list", p.peek())), start)
	}
	attr := &AttrSpec{Name: name, Kind: AttrBool, Pos: start}

	// Look past optional spaces for '='.
	save := *p
	p.skipSpace()
	if p.peek() != '=' {
		*p = save
		return attr, nil
	}
	p.advance(1)
	p.skipSpace()

	switch c := p.peek(); c {
	case '"', '\'':
		raw, err := p.readQuoted(tag, name)
		if err != nil {
			return nil, err
		}
		parts, err := splitInterpolation(raw)
		if err != nil {
			return nil, p.fail(errors.ErrMalformedAttr(tag, name, err.Error()), start)
		}
		attr.Parts = parts
		attr.Kind = AttrLiteral
		if hasExpr(parts) {
			attr.Kind = AttrInterpolated
		}
	case '{':
		body, err := p.readBraced("attribute expression", tag)
		if err != nil {
			return nil, err
		}
		if err := fillBraced(attr, body); err != nil {
			return nil, p.fail(errors.ErrMalformedAttr(tag, name, err.Error()), start)
		}
	default:
		return nil, p.fail(errors.ErrMalformedAttr(tag, name, "value must be quoted or wrapped in braces"), p.pos())
	}
	return attr, nil
}

// fillBraced classifies name={...} as an expression or a conditional.
func fillBraced(attr *AttrSpec, body string) error {
	cond, value, ok := splitArrow(body)
	if !ok {
		expr := strings.TrimSpace(body)
		if expr == "" {
			return fmt.Errorf("empty expression")
		}
		attr.Kind = AttrExpr
		attr.Parts = []Part{{Expr: expr, IsExpr: true}}
		return nil
	}
	cond, value = strings.TrimSpace(cond), strings.TrimSpace(value)
	if cond == "" {
		return fmt.Errorf("missing condition before '=>'")
	}
	if value == "" {
		return fmt.Errorf("missing value after '=>'")
	}
	attr.Kind = AttrConditional
	attr.Cond = cond
	if inner, ok := stringLiteral(value); ok {
		parts, err := splitInterpolation(inner)
		if err != nil {
			return err
		}
		attr.Parts = parts
		return nil
	}
	attr.Parts = []Part{{Expr: value, IsExpr: true}}
	return nil
}

// readQuoted consumes a quoted attribute value and returns its raw body.
// Quotes inside {...} do not end the value.
func (p *parser) readQuoted(tag, attr string) (string, error) {
	start := p.pos()
	quote := p.peek()
	p.advance(1)
	begin := p.off
	depth := 0
	for !p.eof() {
		c := p.peek()
		switch {
		case depth == 0 && c == quote:
			raw := p.src[begin:p.off]
			p.advance(1)
			return raw, nil
		case depth == 0 && (p.hasPrefix("{{") || p.hasPrefix("}}")):
			p.advance(2)
			continue
		case c == '{':
			depth++
		case c == '}':
			if depth > 0 {
				depth--
			}
		case depth > 0 && (c == '"' || c == '\'' || c == '`'):
			if !p.skipString() {
				return "", p.fail(errors.ErrMalformedAttr(tag, attr, "unterminated string in expression"), start)
			}
			continue
		}
		p.advance(1)
	}
	return "", p.fail(errors.ErrMalformedAttr(tag, attr, "unterminated value"), start)
}

// readBraced consumes {...} and returns the text between the braces.
func (p *parser) readBraced(what, tag string) (string, error) {
	start := p.pos()
	p.advance(1)
	begin := p.off
	depth := 1
	for !p.eof() {
		switch c := p.peek(); c {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				body := p.src[begin:p.off]
				p.advance(1)
				return body, nil
			}
		case '"', '\'', '`':
			if !p.skipString() {
				return "", p.fail(errors.ErrUnterminated(what, tag), start)
			}
			continue
		}
		p.advance(1)
	}
	return "", p.fail(errors.ErrUnterminated(what, tag), start)
}

// skipString consumes a string literal starting at the current quote.
func (p *parser) skipString() bool {
	n := stringEnd(p.src[p.off:])
	if n < 0 {
		p.advance(len(p.src) - p.off)
		return false
	}
	p.advance(n)
	return true
}

// stringEnd returns the length of the string literal that s starts with,
// or -1 if it never closes. Backquoted strings have no escapes.
func stringEnd(s string) int {
	quote := s[0]
	for i := 1; i < len(s); i++ {
		switch s[i] {
		case '\\':
			if quote != '`' {
				i++
			}
		case quote:
			return i + 1
		}
	}
	return -1
}

// stringLiteral reports whether s is exactly one quoted string without
// escapes, returning its body.
func stringLiteral(s string) (string, bool) {
	if len(s) < 2 || (s[0] != '"' && s[0] != '\'') {
		return "", false
	}
	if stringEnd(s) != len(s) || strings.ContainsRune(s, '\\') {
		return "", false
	}
	return s[1 : len(s)-1], true
}

// splitArrow splits body at the first "=>" outside strings and brackets.
func splitArrow(body string) (string, string, bool) {
	depth := 0
	for i := 0; i < len(body); i++ {
		switch c := body[i]; c {
		case '"', '\'', '`':
			n := stringEnd(body[i:])
			if n < 0 {
				return "", "", false
			}
			i += n - 1
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
		case '=':
			if depth == 0 && i+1 < len(body) && body[i+1] == '>' {
				return body[:i], body[i+2:], true
			}
		}
	}
	return "", "", false
}

// splitInterpolation splits an attribute value into literal and {expr}
// parts. "{{" and "}}" are literal braces. Literal parts have entities
// decoded.
func splitInterpolation(raw string) ([]Part, error) {
	var parts []Part
	var lit strings.Builder
	flush := func() {
		if lit.Len() > 0 {
			parts = append(parts, Part{Literal: html.UnescapeString(lit.String())})
			lit.Reset()
		}
	}
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		switch {
		case strings.HasPrefix(raw[i:], "{{"):
			lit.WriteByte('{')
			i++
		case strings.HasPrefix(raw[i:], "}}"):
			lit.WriteByte('}')
			i++
		case c == '{':
			n, err := balancedEnd(raw[i:])
			if err != nil {
				return nil, err
			}
			expr := strings.TrimSpace(raw[i+1 : i+n-1])
			if expr == "" {
				return nil, fmt.Errorf("empty interpolation")
			}
			flush()
			parts = append(parts, Part{Expr: expr, IsExpr: true})
			i += n - 1
		case c == '}':
			return nil, fmt.Errorf("unmatched '}'")
		default:
			lit.WriteByte(c)
		}
	}
	flush()
	if len(parts) == 0 {
		parts = []Part{{Literal: ""}}
	}
	return parts, nil
}

// balancedEnd returns the length of the {...} group s starts with.
func balancedEnd(s string) (int, error) {
	depth := 0
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i + 1, nil
			}
		case '"', '\'', '`':
			n := stringEnd(s[i:])
			if n < 0 {
				return 0, fmt.Errorf("unterminated string in interpolation")
			}
			i += n - 1
		}
	}
	return 0, fmt.Errorf("unterminated interpolation")
}

func hasExpr(parts []Part) bool {
	for _, part := range parts {
		if part.IsExpr {
			return true
		}
	}
	return false
}

func (p *parser) readName(start, rest func(byte) bool) string {
	if p.eof() || !start(p.peek()) {
		return ""
	}
	begin := p.off
	for !p.eof() && rest(p.peek()) {
		p.advance(1)
	}
	return p.src[begin:p.off]
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f'
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isTagStart(c byte) bool { return isLetter(c) || c == '_' }

func isTagChar(c byte) bool {
	return isLetter(c) || isDigit(c) || c == '-' || c == '_' || c == '.' || c == ':'
}

func isAttrStart(c byte) bool { return isLetter(c) || c == '_' || c == ':' || c == '@' }

func isAttrChar(c byte) bool {
	return isTagChar(c) || c == '@'
}
