// Package scanner lexes JavaScript/TypeScript source into classified byte
// spans. It is not a parser front end: its only consumers are bracket/template
// pair tracking and syntax coloring, so it favors never failing over strict
// conformance. Unterminated strings, templates and comments are consumed to
// the end of the input and reported as ordinary tokens.
package scanner

import (
	"unicode"
	"unicode/utf8"
)

type frameKind int

const (
	frameTemplate frameKind = iota // between backticks
	frameInterp                    // inside ${...}
)

type frame struct {
	kind       frameKind
	braceDepth int
}

type scanner struct {
	src    string
	pos    int
	tokens []Token
	frames []frame
	prev   Kind
	first  bool // no significant token emitted yet
}

// Scan tokenizes src from scratch. It is a pure function of its input; the
// same source always yields the same token sequence.
func Scan(src string) []Token {
	s := &scanner{src: src, first: true}
	for s.pos < len(s.src) {
		if len(s.frames) > 0 && s.top().kind == frameTemplate {
			s.scanTemplateBody()
		} else {
			s.scanToken()
		}
	}
	return s.tokens
}

func (s *scanner) top() *frame {
	return &s.frames[len(s.frames)-1]
}

func (s *scanner) emit(kind Kind, start, end int) {
	s.tokens = append(s.tokens, Token{Kind: kind, Start: start, End: end})
	if kind != Comment {
		s.prev = kind
		s.first = false
	}
}

func (s *scanner) peekAt(i int) byte {
	if i >= len(s.src) {
		return 0
	}
	return s.src[i]
}

func (s *scanner) scanToken() {
	c := s.src[s.pos]
	switch {
	case c == ' ' || c == '\t' || c == '\r' || c == '\n':
		s.pos++
	case c == '`':
		s.emit(BackQuote, s.pos, s.pos+1)
		s.pos++
		s.frames = append(s.frames, frame{kind: frameTemplate})
	case c == '(':
		s.emit(LParen, s.pos, s.pos+1)
		s.pos++
	case c == ')':
		s.emit(RParen, s.pos, s.pos+1)
		s.pos++
	case c == '[':
		s.emit(LBracket, s.pos, s.pos+1)
		s.pos++
	case c == ']':
		s.emit(RBracket, s.pos, s.pos+1)
		s.pos++
	case c == '{':
		s.emit(LBrace, s.pos, s.pos+1)
		s.pos++
		if len(s.frames) > 0 && s.top().kind == frameInterp {
			s.top().braceDepth++
		}
	case c == '}':
		s.emit(RBrace, s.pos, s.pos+1)
		s.pos++
		if len(s.frames) > 0 && s.top().kind == frameInterp {
			if s.top().braceDepth == 0 {
				// closes the interpolation, back into the template
				s.frames = s.frames[:len(s.frames)-1]
			} else {
				s.top().braceDepth--
			}
		}
	case c == '"' || c == '\'':
		s.scanString(c)
	case c == '/':
		s.scanSlash()
	case c >= '0' && c <= '9':
		s.scanNumber()
	case c == '.' && s.peekAt(s.pos+1) >= '0' && s.peekAt(s.pos+1) <= '9':
		s.scanNumber()
	case isIdentStart(c) || c >= utf8.RuneSelf:
		s.scanIdent()
	default:
		s.emit(Punct, s.pos, s.pos+1)
		s.pos++
	}
}

// scanTemplateBody consumes raw template text up to whichever comes first of
// a closing backtick, a ${ interpolation opener, or end of input.
func (s *scanner) scanTemplateBody() {
	start := s.pos
	for s.pos < len(s.src) {
		switch s.src[s.pos] {
		case '\\':
			s.pos += 2
		case '`':
			if s.pos > start {
				s.emit(Template, start, s.pos)
			}
			s.emit(BackQuote, s.pos, s.pos+1)
			s.pos++
			s.frames = s.frames[:len(s.frames)-1]
			return
		case '$':
			if s.peekAt(s.pos+1) == '{' {
				if s.pos > start {
					s.emit(Template, start, s.pos)
				}
				s.emit(DollarBrace, s.pos, s.pos+2)
				s.pos += 2
				s.frames = append(s.frames, frame{kind: frameInterp})
				return
			}
			s.pos++
		default:
			s.pos++
		}
	}
	if s.pos > start {
		s.emit(Template, start, s.pos)
	}
}

func (s *scanner) scanString(quote byte) {
	start := s.pos
	s.pos++
	for s.pos < len(s.src) {
		c := s.src[s.pos]
		if c == '\\' {
			s.pos += 2
			continue
		}
		if c == quote {
			s.pos++
			break
		}
		if c == '\n' {
			break
		}
		s.pos++
	}
	s.emit(Str, start, s.pos)
}

// scanSlash distinguishes comments, regex literals and the division
// operator. A slash starts a regex when the previous significant token
// cannot end an expression, which is the usual lexer heuristic.
func (s *scanner) scanSlash() {
	switch s.peekAt(s.pos + 1) {
	case '/':
		start := s.pos
		for s.pos < len(s.src) && s.src[s.pos] != '\n' {
			s.pos++
		}
		s.emit(Comment, start, s.pos)
		return
	case '*':
		start := s.pos
		s.pos += 2
		for s.pos < len(s.src) {
			if s.src[s.pos] == '*' && s.peekAt(s.pos+1) == '/' {
				s.pos += 2
				break
			}
			s.pos++
		}
		s.emit(Comment, start, s.pos)
		return
	}
	if s.regexAllowed() {
		s.scanRegex()
		return
	}
	s.emit(Punct, s.pos, s.pos+1)
	s.pos++
}

func (s *scanner) regexAllowed() bool {
	if s.first {
		return true
	}
	switch s.prev {
	case Ident, Num, BigInt, Str, BoolLit, NullLit, Regex,
		RParen, RBracket, Template, BackQuote:
		return false
	}
	return true
}

func (s *scanner) scanRegex() {
	start := s.pos
	s.pos++ // opening slash
	inClass := false
	for s.pos < len(s.src) {
		c := s.src[s.pos]
		if c == '\\' {
			s.pos += 2
			continue
		}
		if c == '\n' {
			break
		}
		s.pos++
		if c == '[' {
			inClass = true
		} else if c == ']' {
			inClass = false
		} else if c == '/' && !inClass {
			// flags
			for s.pos < len(s.src) && isIdentPart(rune(s.peekAt(s.pos))) {
				s.pos++
			}
			break
		}
	}
	s.emit(Regex, start, s.pos)
}

func (s *scanner) scanNumber() {
	start := s.pos
	if s.src[s.pos] == '0' {
		switch s.peekAt(s.pos + 1) {
		case 'x', 'X', 'o', 'O', 'b', 'B':
			s.pos += 2
			for s.pos < len(s.src) && isRadixDigit(s.src[s.pos]) {
				s.pos++
			}
			s.finishNumber(start)
			return
		}
	}
	s.consumeDigits()
	if s.peekAt(s.pos) == '.' {
		s.pos++
		s.consumeDigits()
	}
	if c := s.peekAt(s.pos); c == 'e' || c == 'E' {
		next := s.peekAt(s.pos + 1)
		if next == '+' || next == '-' || (next >= '0' && next <= '9') {
			s.pos++
			if next == '+' || next == '-' {
				s.pos++
			}
			s.consumeDigits()
		}
	}
	s.finishNumber(start)
}

func (s *scanner) finishNumber(start int) {
	if s.peekAt(s.pos) == 'n' {
		s.pos++
		s.emit(BigInt, start, s.pos)
		return
	}
	s.emit(Num, start, s.pos)
}

func (s *scanner) consumeDigits() {
	for s.pos < len(s.src) {
		c := s.src[s.pos]
		if (c >= '0' && c <= '9') || c == '_' {
			s.pos++
			continue
		}
		break
	}
}

func isRadixDigit(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') ||
		(c >= 'A' && c <= 'F') || c == '_'
}

func (s *scanner) scanIdent() {
	start := s.pos
	for s.pos < len(s.src) {
		r, size := utf8.DecodeRuneInString(s.src[s.pos:])
		if !isIdentPart(r) {
			break
		}
		s.pos += size
	}
	if s.pos == start {
		// a non-identifier rune slipped through (e.g. a stray symbol)
		_, size := utf8.DecodeRuneInString(s.src[s.pos:])
		s.pos += size
		s.emit(Punct, start, s.pos)
		return
	}
	s.emit(lookupIdent(s.src[start:s.pos]), start, s.pos)
}

func isIdentStart(c byte) bool {
	return c == '_' || c == '$' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(r rune) bool {
	return r == '_' || r == '$' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
