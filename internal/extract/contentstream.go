package extract

import (
	"strconv"
	"strings"
	"unicode/utf16"
)

// TJ kerning offsets below this (in thousandths of an em) read as a word gap.
const tjSpaceThreshold = -200

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokString
	tokNumber
	tokArray
	tokOperator
	tokOther
)

type token struct {
	kind  tokenKind
	text  string
	num   float64
	items []token
}

// ParseContentStream decodes the text-showing operators (Tj, TJ, ', ") of a
// PDF page content stream into plain text. Text positioning operators become
// line or word breaks. Fonts with custom encodings are not mapped.
func ParseContentStream(data []byte) string {
	s := &scanner{data: data}
	w := &textWriter{}

	var operands []token
	for {
		tok := s.next()
		switch tok.kind {
		case tokEOF:
			return w.String()
		case tokOperator:
			w.apply(tok.text, operands)
			if tok.text == "ID" {
				s.skipInlineImage()
			}
			operands = operands[:0]
		case tokOther:
		default:
			operands = append(operands, tok)
		}
	}
}

type textWriter struct {
	sb   strings.Builder
	last byte
}

func (w *textWriter) write(text string) {
	if text == "" {
		return
	}
	w.sb.WriteString(text)
	w.last = text[len(text)-1]
}

func (w *textWriter) apply(op string, operands []token) {
	last := func() (token, bool) {
		if len(operands) == 0 {
			return token{}, false
		}
		return operands[len(operands)-1], true
	}

	switch op {
	case "Tj":
		if t, ok := last(); ok && t.kind == tokString {
			w.write(t.text)
		}
	case "'", `"`:
		w.newline()
		if t, ok := last(); ok && t.kind == tokString {
			w.write(t.text)
		}
	case "TJ":
		if t, ok := last(); ok && t.kind == tokArray {
			for _, item := range t.items {
				switch {
				case item.kind == tokString:
					w.write(item.text)
				case item.kind == tokNumber && item.num < tjSpaceThreshold:
					w.space()
				}
			}
		}
	case "Td", "TD":
		if len(operands) >= 2 && operands[len(operands)-1].num != 0 {
			w.newline()
		} else {
			w.space()
		}
	case "T*", "Tm", "ET":
		w.newline()
	}
}

func (w *textWriter) newline() {
	if w.last == 0 || w.last == '\n' {
		return
	}
	w.write("\n")
}

func (w *textWriter) space() {
	if w.last == 0 || w.last == ' ' || w.last == '\n' {
		return
	}
	w.write(" ")
}

func (w *textWriter) String() string {
	lines := strings.Split(w.sb.String(), "\n")
	out := lines[:0]
	for _, l := range lines {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return strings.Join(out, "\n")
}

type scanner struct {
	data []byte
	pos  int
}

func isSpace(c byte) bool {
	switch c {
	case ' ', '\t', '\r', '\n', '\f', 0:
		return true
	}
	return false
}

func isDelim(c byte) bool {
	switch c {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	}
	return false
}

func (s *scanner) skipSpaceAndComments() {
	for s.pos < len(s.data) {
		c := s.data[s.pos]
		switch {
		case isSpace(c):
			s.pos++
		case c == '%':
			for s.pos < len(s.data) && s.data[s.pos] != '\n' && s.data[s.pos] != '\r' {
				s.pos++
			}
		default:
			return
		}
	}
}

func (s *scanner) next() token {
	s.skipSpaceAndComments()
	if s.pos >= len(s.data) {
		return token{kind: tokEOF}
	}

	c := s.data[s.pos]
	switch {
	case c == '(':
		s.pos++
		return token{kind: tokString, text: decodeText(s.literal())}
	case c == '<' && s.peek(1) == '<':
		s.pos += 2
		return token{kind: tokOther}
	case c == '>' && s.peek(1) == '>':
		s.pos += 2
		return token{kind: tokOther}
	case c == '<':
		s.pos++
		return token{kind: tokString, text: decodeText(s.hex())}
	case c == '[':
		s.pos++
		return s.array()
	case c == ']':
		s.pos++
		return token{kind: tokOther, text: "]"}
	case c == '/':
		s.pos++
		s.word()
		return token{kind: tokOther}
	case c == '+' || c == '-' || c == '.' || (c >= '0' && c <= '9'):
		w := s.word()
		if n, err := strconv.ParseFloat(w, 64); err == nil {
			return token{kind: tokNumber, num: n}
		}
		return token{kind: tokOther}
	case isDelim(c):
		s.pos++
		return token{kind: tokOther}
	default:
		return token{kind: tokOperator, text: s.word()}
	}
}

func (s *scanner) peek(offset int) byte {
	if s.pos+offset < len(s.data) {
		return s.data[s.pos+offset]
	}
	return 0
}

func (s *scanner) word() string {
	start := s.pos
	for s.pos < len(s.data) && !isSpace(s.data[s.pos]) && !isDelim(s.data[s.pos]) {
		s.pos++
	}
	if s.pos == start {
		s.pos++
	}
	return string(s.data[start:s.pos])
}

func (s *scanner) array() token {
	arr := token{kind: tokArray}
	for {
		s.skipSpaceAndComments()
		if s.pos >= len(s.data) {
			return arr
		}
		if s.data[s.pos] == ']' {
			s.pos++
			return arr
		}
		t := s.next()
		if t.kind == tokEOF {
			return arr
		}
		if t.kind == tokString || t.kind == tokNumber {
			arr.items = append(arr.items, t)
		}
	}
}

// literal reads a (...) string body after the opening parenthesis.
func (s *scanner) literal() []byte {
	var out []byte
	depth := 1
	for s.pos < len(s.data) {
		c := s.data[s.pos]
		s.pos++
		switch c {
		case '(':
			depth++
			out = append(out, c)
		case ')':
			depth--
			if depth == 0 {
				return out
			}
			out = append(out, c)
		case '\\':
			out = s.escape(out)
		default:
			out = append(out, c)
		}
	}
	return out
}

func (s *scanner) escape(out []byte) []byte {
	if s.pos >= len(s.data) {
		return out
	}
	c := s.data[s.pos]
	s.pos++

	switch c {
	case 'n':
		return append(out, '\n')
	case 'r':
		return append(out, '\r')
	case 't':
		return append(out, '\t')
	case 'b':
		return append(out, '\b')
	case 'f':
		return append(out, '\f')
	case '\r':
		if s.peek(0) == '\n' {
			s.pos++
		}
		return out
	case '\n':
		return out
	}

	if c >= '0' && c <= '7' {
		v := int(c - '0')
		for i := 0; i < 2 && s.pos < len(s.data); i++ {
			d := s.data[s.pos]
			if d < '0' || d > '7' {
				break
			}
			v = v*8 + int(d-'0')
			s.pos++
		}
		return append(out, byte(v))
	}
	return append(out, c)
}

// hex reads a <...> string body after the opening bracket.
func (s *scanner) hex() []byte {
	var digits []byte
	for s.pos < len(s.data) {
		c := s.data[s.pos]
		s.pos++
		if c == '>' {
			break
		}
		if isSpace(c) {
			continue
		}
		digits = append(digits, c)
	}
	if len(digits)%2 == 1 {
		digits = append(digits, '0')
	}

	out := make([]byte, 0, len(digits)/2)
	for i := 0; i < len(digits); i += 2 {
		v, err := strconv.ParseUint(string(digits[i:i+2]), 16, 8)
		if err != nil {
			continue
		}
		out = append(out, byte(v))
	}
	return out
}

func (s *scanner) skipInlineImage() {
	for i := s.pos; i+1 < len(s.data); i++ {
		if s.data[i] == 'E' && s.data[i+1] == 'I' &&
			(i == 0 || isSpace(s.data[i-1])) &&
			(i+2 >= len(s.data) || isSpace(s.data[i+2])) {
			s.pos = i + 2
			return
		}
	}
	s.pos = len(s.data)
}

// decodeText interprets raw string bytes as UTF-16BE when they carry a BOM or
// look like two-byte codes with a zero high byte, and as Latin-1 otherwise.
func decodeText(raw []byte) string {
	if len(raw) >= 2 && raw[0] == 0xFE && raw[1] == 0xFF {
		return utf16BE(raw[2:])
	}
	if len(raw) >= 2 && len(raw)%2 == 0 && zeroHighBytes(raw) {
		return utf16BE(raw)
	}

	runes := make([]rune, len(raw))
	for i, b := range raw {
		runes[i] = rune(b)
	}
	return string(runes)
}

func zeroHighBytes(raw []byte) bool {
	for i := 0; i < len(raw); i += 2 {
		if raw[i] != 0 {
			return false
		}
	}
	return true
}

func utf16BE(raw []byte) string {
	units := make([]uint16, 0, len(raw)/2)
	for i := 0; i+1 < len(raw); i += 2 {
		units = append(units, uint16(raw[i])<<8|uint16(raw[i+1]))
	}
	return string(utf16.Decode(units))
}
