package rdf

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"
)

// QuadReader streams quads from line-based RDF input.
type QuadReader interface {
	Next() (Quad, error)
	Close() error
}

// QuadWriter streams quads to an output in canonical N-Quads form.
type QuadWriter interface {
	Write(Quad) error
	Flush() error
	Close() error
}

// Handler processes quads in push mode.
type Handler func(Quad) error

// NewQuadReader creates a reader for N-Quads or N-Triples input.
func NewQuadReader(r io.Reader, format Format, opts ...Option) (QuadReader, error) {
	switch format {
	case FormatNQuads, FormatNTriples:
	default:
		return nil, ErrUnsupportedFormat
	}
	options := buildOptions(opts)
	return &nqDecoder{reader: bufio.NewReader(r), format: format, opts: options}, nil
}

// Parse reads the input and streams quads to the handler.
// If ctx is nil, context.Background() is used.
func Parse(ctx context.Context, r io.Reader, format Format, handler Handler, opts ...Option) error {
	if ctx == nil {
		ctx = context.Background()
	}
	reader, err := NewQuadReader(r, format, append(opts, OptContext(ctx))...)
	if err != nil {
		return err
	}
	defer reader.Close()

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		quad, err := reader.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if err := handler(quad); err != nil {
			return err
		}
	}
}

// ParseNQuads reads every quad of an N-Quads document.
func ParseNQuads(ctx context.Context, r io.Reader, opts ...Option) ([]Quad, error) {
	var quads []Quad
	err := Parse(ctx, r, FormatNQuads, func(q Quad) error {
		quads = append(quads, q)
		return nil
	}, opts...)
	if err != nil {
		return nil, err
	}
	return quads, nil
}

type nqDecoder struct {
	reader *bufio.Reader
	format Format
	opts   Options
	line   int
	count  int64
	err    error
}

func (d *nqDecoder) Next() (Quad, error) {
	if d.err != nil {
		return Quad{}, d.err
	}
	for {
		if d.opts.Context != nil {
			if err := d.opts.Context.Err(); err != nil {
				d.err = err
				return Quad{}, err
			}
		}
		raw, err := d.readLine()
		if err != nil {
			if err != io.EOF {
				err = wrapParseErrorWithPosition(string(d.format), "", d.line, 0, -1, err)
			}
			d.err = err
			return Quad{}, err
		}
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if d.opts.MaxQuads > 0 && d.count >= d.opts.MaxQuads {
			d.err = wrapParseErrorWithPosition(string(d.format), "", d.line, 0, -1, ErrQuadLimitExceeded)
			return Quad{}, d.err
		}
		quad, err := parseNQLine(line, d.format)
		if err != nil {
			var parseErr *ParseError
			if errors.As(err, &parseErr) {
				parseErr.Line = d.line
			}
			d.err = err
			return Quad{}, err
		}
		d.count++
		return quad, nil
	}
}

func (d *nqDecoder) Close() error { return nil }

func (d *nqDecoder) readLine() (string, error) {
	var buf []byte
	for {
		chunk, isPrefix, err := d.reader.ReadLine()
		if err != nil {
			return "", err
		}
		buf = append(buf, chunk...)
		if d.opts.MaxLineBytes > 0 && len(buf) > d.opts.MaxLineBytes {
			d.line++
			return "", ErrLineTooLong
		}
		if !isPrefix {
			d.line++
			return string(buf), nil
		}
	}
}

func parseNQLine(line string, format Format) (Quad, error) {
	cursor := &nqCursor{input: line, format: format}
	subject, err := cursor.parseSubject()
	if err != nil {
		return Quad{}, err
	}
	predicate, err := cursor.parseIRI()
	if err != nil {
		return Quad{}, err
	}
	object, err := cursor.parseTerm(true)
	if err != nil {
		return Quad{}, err
	}

	var graph Term
	cursor.skipWS()
	if cursor.pos < len(cursor.input) && cursor.input[cursor.pos] != '.' {
		if format == FormatNTriples {
			return Quad{}, cursor.errorf("graph term not allowed in N-Triples")
		}
		graph, err = cursor.parseTerm(false)
		if err != nil {
			return Quad{}, err
		}
		if _, ok := graph.(TripleTerm); ok {
			return Quad{}, cursor.errorf("triple term not allowed as graph name")
		}
	}
	if !cursor.consume('.') {
		return Quad{}, cursor.errorf("expected '.' at end of statement")
	}
	cursor.skipWS()
	if cursor.pos < len(cursor.input) && cursor.input[cursor.pos] != '#' {
		return Quad{}, cursor.errorf("unexpected content after '.'")
	}

	triple := Triple{S: subject, P: predicate, O: object}
	if graph == nil {
		return triple.ToQuad(), nil
	}
	return triple.ToQuadInGraph(graph), nil
}

type nqCursor struct {
	input  string
	pos    int
	format Format
}

func (c *nqCursor) skipWS() {
	for c.pos < len(c.input) {
		switch c.input[c.pos] {
		case ' ', '\t', '\r', '\n':
			c.pos++
		default:
			return
		}
	}
}

func (c *nqCursor) consume(ch byte) bool {
	c.skipWS()
	if c.pos < len(c.input) && c.input[c.pos] == ch {
		c.pos++
		return true
	}
	return false
}

func (c *nqCursor) parseSubject() (Term, error) {
	return c.parseTerm(false)
}

func (c *nqCursor) parseTerm(allowLiteral bool) (Term, error) {
	c.skipWS()
	if c.pos >= len(c.input) {
		return nil, c.errorf("unexpected end of line")
	}
	switch {
	case strings.HasPrefix(c.input[c.pos:], "<<"):
		return c.parseTripleTerm()
	case c.input[c.pos] == '<':
		return c.parseIRI()
	case strings.HasPrefix(c.input[c.pos:], "_:"):
		return c.parseBlankNode()
	case c.input[c.pos] == '"':
		if !allowLiteral {
			return nil, c.errorf("literal not allowed here")
		}
		return c.parseLiteral()
	default:
		return nil, c.errorf("unexpected token")
	}
}

func (c *nqCursor) parseIRI() (IRI, error) {
	if !c.consume('<') {
		return IRI{}, c.errorf("expected IRI")
	}
	var builder strings.Builder
	for c.pos < len(c.input) {
		ch := c.input[c.pos]
		switch ch {
		case '>':
			c.pos++
			return IRI{Value: builder.String()}, nil
		case '\\':
			start := c.pos
			r, err := c.parseUCHAR()
			if err != nil {
				return IRI{}, err
			}
			if r < utf8.RuneSelf && invalidIRIChar(byte(r)) {
				c.pos = start
				return IRI{}, c.errorf("escaped character %q not allowed in IRI", r)
			}
			builder.WriteRune(r)
		default:
			if invalidIRIChar(ch) {
				return IRI{}, c.errorf("invalid character %q in IRI", ch)
			}
			builder.WriteByte(ch)
			c.pos++
		}
	}
	return IRI{}, c.errorf("unterminated IRI")
}

func (c *nqCursor) parseBlankNode() (BlankNode, error) {
	c.skipWS()
	if !strings.HasPrefix(c.input[c.pos:], "_:") {
		return BlankNode{}, c.errorf("expected blank node")
	}
	c.pos += 2
	start := c.pos
	for c.pos < len(c.input) && !isTermDelimiter(c.input[c.pos]) {
		c.pos++
	}
	// a label may contain '.' but never end with one
	for c.pos > start && c.input[c.pos-1] == '.' {
		c.pos--
	}
	if start == c.pos {
		return BlankNode{}, c.errorf("blank node id missing")
	}
	return BlankNode{ID: c.input[start:c.pos]}, nil
}

func (c *nqCursor) parseLiteral() (Literal, error) {
	if !c.consume('"') {
		return Literal{}, c.errorf("expected literal")
	}
	var builder strings.Builder
	closed := false
	for c.pos < len(c.input) && !closed {
		ch := c.input[c.pos]
		switch ch {
		case '"':
			c.pos++
			closed = true
		case '\\':
			if c.pos+1 >= len(c.input) {
				return Literal{}, c.errorf("unterminated escape")
			}
			switch next := c.input[c.pos+1]; next {
			case 'u', 'U':
				r, err := c.parseUCHAR()
				if err != nil {
					return Literal{}, err
				}
				builder.WriteRune(r)
				continue
			case 't':
				builder.WriteByte('\t')
			case 'b':
				builder.WriteByte('\b')
			case 'n':
				builder.WriteByte('\n')
			case 'r':
				builder.WriteByte('\r')
			case 'f':
				builder.WriteByte('\f')
			case '"', '\'', '\\':
				builder.WriteByte(next)
			default:
				return Literal{}, c.errorf("invalid escape sequence \\%c", next)
			}
			c.pos += 2
		default:
			builder.WriteByte(ch)
			c.pos++
		}
	}
	if !closed {
		return Literal{}, c.errorf("unterminated literal")
	}
	lexical := builder.String()
	if strings.HasPrefix(c.input[c.pos:], "@") {
		c.pos++
		start := c.pos
		for c.pos < len(c.input) && isLangChar(c.input[c.pos]) {
			c.pos++
		}
		if start == c.pos {
			return Literal{}, c.errorf("language tag missing")
		}
		return Literal{Lexical: lexical, Lang: c.input[start:c.pos]}, nil
	}
	if strings.HasPrefix(c.input[c.pos:], "^^") {
		c.pos += 2
		dt, err := c.parseIRI()
		if err != nil {
			return Literal{}, err
		}
		if dt.Value == xsdString {
			dt = IRI{}
		}
		return Literal{Lexical: lexical, Datatype: dt}, nil
	}
	return Literal{Lexical: lexical}, nil
}

// parseUCHAR decodes \uXXXX or \UXXXXXXXX at the cursor.
func (c *nqCursor) parseUCHAR() (rune, error) {
	if c.pos+1 >= len(c.input) || c.input[c.pos] != '\\' {
		return 0, c.errorf("expected escape")
	}
	var width int
	switch c.input[c.pos+1] {
	case 'u':
		width = 4
	case 'U':
		width = 8
	default:
		return 0, c.errorf("invalid escape sequence \\%c", c.input[c.pos+1])
	}
	start := c.pos + 2
	if start+width > len(c.input) {
		return 0, c.errorf("truncated unicode escape")
	}
	value, err := strconv.ParseUint(c.input[start:start+width], 16, 32)
	if err != nil || !utf8.ValidRune(rune(value)) {
		return 0, c.errorf("invalid unicode escape %q", c.input[c.pos:start+width])
	}
	c.pos = start + width
	return rune(value), nil
}

func (c *nqCursor) parseTripleTerm() (Term, error) {
	c.skipWS()
	if !strings.HasPrefix(c.input[c.pos:], "<<") {
		return nil, c.errorf("expected '<<'")
	}
	c.pos += 2
	subject, err := c.parseSubject()
	if err != nil {
		return nil, err
	}
	predicate, err := c.parseIRI()
	if err != nil {
		return nil, err
	}
	object, err := c.parseTerm(true)
	if err != nil {
		return nil, err
	}
	c.skipWS()
	if !strings.HasPrefix(c.input[c.pos:], ">>") {
		return nil, c.errorf("expected '>>'")
	}
	c.pos += 2
	return TripleTerm{S: subject, P: predicate, O: object}, nil
}

func (c *nqCursor) errorf(format string, args ...interface{}) error {
	return &ParseError{
		Format:    string(c.format),
		Statement: c.input,
		Column:    c.pos + 1,
		Offset:    c.pos,
		Err:       fmt.Errorf(format, args...),
	}
}

func isTermDelimiter(ch byte) bool {
	switch ch {
	case ' ', '\t', '\r', '\n', '<', '"', '#':
		return true
	default:
		return false
	}
}

func invalidIRIChar(ch byte) bool {
	if ch <= 0x20 {
		return true
	}
	switch ch {
	case '<', '>', '"', '{', '}', '|', '^', '`', '\\':
		return true
	}
	return false
}

func isLangChar(ch byte) bool {
	return ch == '-' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || (ch >= '0' && ch <= '9')
}

type nqEncoder struct {
	writer *bufio.Writer
	format Format
	err    error
}

// NewQuadWriter creates a writer emitting canonical N-Quads (or N-Triples) lines.
func NewQuadWriter(w io.Writer, format Format) (QuadWriter, error) {
	switch format {
	case FormatNQuads, FormatNTriples:
	default:
		return nil, ErrUnsupportedFormat
	}
	return &nqEncoder{writer: bufio.NewWriter(w), format: format}, nil
}

func (e *nqEncoder) Write(q Quad) error {
	if e.err != nil {
		return e.err
	}
	if q.IsZero() {
		return fmt.Errorf("nquads: empty statement")
	}
	if q.S == nil || q.P.Value == "" || q.O == nil {
		return fmt.Errorf("nquads: missing statement fields")
	}
	if e.format == FormatNTriples {
		if !q.InDefaultGraph() {
			return fmt.Errorf("ntriples: graph term not allowed")
		}
		q = q.ToTriple().ToQuad()
	}
	_, err := e.writer.WriteString(SerializeQuad(q))
	if err != nil {
		e.err = err
	}
	return err
}

func (e *nqEncoder) Flush() error {
	if e.err != nil {
		return e.err
	}
	return e.writer.Flush()
}

func (e *nqEncoder) Close() error {
	return e.Flush()
}

// SerializeQuad renders a quad as one canonical N-Quads line, including the
// trailing "\n". The default graph is omitted.
func SerializeQuad(q Quad) string {
	var b strings.Builder
	writeTerm(&b, q.S)
	b.WriteByte(' ')
	writeIRI(&b, q.P)
	b.WriteByte(' ')
	writeTerm(&b, q.O)
	if !q.InDefaultGraph() {
		b.WriteByte(' ')
		writeTerm(&b, q.G)
	}
	b.WriteString(" .\n")
	return b.String()
}

func writeIRI(b *strings.Builder, iri IRI) {
	b.WriteByte('<')
	b.WriteString(iri.Value)
	b.WriteByte('>')
}

func writeTerm(b *strings.Builder, term Term) {
	switch value := term.(type) {
	case IRI:
		writeIRI(b, value)
	case BlankNode:
		b.WriteString("_:")
		b.WriteString(value.ID)
	case Literal:
		b.WriteByte('"')
		writeEscaped(b, value.Lexical)
		b.WriteByte('"')
		switch {
		case value.Lang != "":
			b.WriteByte('@')
			b.WriteString(value.Lang)
		case value.Datatype.Value != "" && value.Datatype.Value != xsdString && value.Datatype.Value != rdfLangString:
			b.WriteString("^^")
			writeIRI(b, value.Datatype)
		}
	case TripleTerm:
		b.WriteString("<< ")
		writeTerm(b, value.S)
		b.WriteByte(' ')
		writeIRI(b, value.P)
		b.WriteByte(' ')
		writeTerm(b, value.O)
		b.WriteString(" >>")
	}
}

const hexDigits = "0123456789ABCDEF"

// writeEscaped applies the canonical N-Quads string escaping. Only ASCII bytes
// are ever escaped, so invalid UTF-8 passes through untouched.
func writeEscaped(b *strings.Builder, s string) {
	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch ch {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\b':
			b.WriteString(`\b`)
		case '\t':
			b.WriteString(`\t`)
		case '\f':
			b.WriteString(`\f`)
		default:
			if ch < 0x20 || ch == 0x7f {
				b.WriteString(`\u00`)
				b.WriteByte(hexDigits[ch>>4])
				b.WriteByte(hexDigits[ch&0xf])
				continue
			}
			b.WriteByte(ch)
		}
	}
}
