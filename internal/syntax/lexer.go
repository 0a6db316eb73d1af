package syntax

import "strings"

// Lexer produces tokens from IDL source text. It keeps a one-byte
// lookahead and tracks line/column for every token start.
type Lexer struct {
	file   string
	input  string
	pos    int  // offset of ch
	next   int  // offset after ch
	ch     byte // current byte, 0 at EOF
	line   int
	column int
}

// NewLexer creates a lexer over src. The file name only feeds
// positions in diagnostics.
func NewLexer(file, src string) *Lexer {
	l := &Lexer{file: file, input: src, line: 1, column: 0}
	l.readChar()
	return l
}

func (l *Lexer) readChar() {
	if l.next >= len(l.input) {
		l.ch = 0
	} else {
		l.ch = l.input[l.next]
	}
	l.pos = l.next
	l.next++
	if l.ch == '\n' {
		l.line++
		l.column = 0
	} else {
		l.column++
	}
}

func (l *Lexer) peekChar() byte {
	if l.next >= len(l.input) {
		return 0
	}
	return l.input[l.next]
}

func (l *Lexer) here() Pos {
	return Pos{File: l.file, Line: l.line, Column: l.column}
}

// Next returns the next token. Plain // comments are skipped; ///
// doc comment lines surface as TokenDoc so the parser can attach
// them to the following declaration.
func (l *Lexer) Next() Token {
	l.skipWhitespace()

	for l.ch == '/' && l.peekChar() == '/' {
		if doc, pos, ok := l.readComment(); ok {
			return Token{Type: TokenDoc, Literal: doc, Pos: pos}
		}
		l.skipWhitespace()
	}

	pos := l.here()
	var tok Token

	switch l.ch {
	case 0:
		return Token{Type: TokenEOF, Pos: pos}
	case '{':
		tok = Token{Type: TokenLBrace, Literal: "{", Pos: pos}
	case '}':
		tok = Token{Type: TokenRBrace, Literal: "}", Pos: pos}
	case '(':
		tok = Token{Type: TokenLParen, Literal: "(", Pos: pos}
	case ')':
		tok = Token{Type: TokenRParen, Literal: ")", Pos: pos}
	case '[':
		tok = Token{Type: TokenLBracket, Literal: "[", Pos: pos}
	case ']':
		tok = Token{Type: TokenRBracket, Literal: "]", Pos: pos}
	case '<':
		tok = Token{Type: TokenLAngle, Literal: "<", Pos: pos}
	case '>':
		tok = Token{Type: TokenRAngle, Literal: ">", Pos: pos}
	case ',':
		tok = Token{Type: TokenComma, Literal: ",", Pos: pos}
	case ':':
		tok = Token{Type: TokenColon, Literal: ":", Pos: pos}
	case '=':
		tok = Token{Type: TokenAssign, Literal: "=", Pos: pos}
	case '?':
		tok = Token{Type: TokenQuestion, Literal: "?", Pos: pos}
	case '@':
		tok = Token{Type: TokenAt, Literal: "@", Pos: pos}
	case '|':
		tok = Token{Type: TokenPipe, Literal: "|", Pos: pos}
	case '"':
		lit, terminated := l.readString()
		if !terminated {
			return Token{Type: TokenIllegal, Literal: lit, Pos: pos}
		}
		return Token{Type: TokenString, Literal: lit, Pos: pos}
	default:
		if isIdentStart(l.ch) {
			lit := l.readIdent()
			if kw, ok := keywords[lit]; ok {
				return Token{Type: kw, Literal: lit, Pos: pos}
			}
			return Token{Type: TokenIdent, Literal: lit, Pos: pos}
		}
		if isDigit(l.ch) {
			return Token{Type: TokenInt, Literal: l.readNumber(), Pos: pos}
		}
		tok = Token{Type: TokenIllegal, Literal: string(l.ch), Pos: pos}
	}

	l.readChar()
	return tok
}

func (l *Lexer) skipWhitespace() {
	for l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r' {
		l.readChar()
	}
}

// readComment consumes one // or /// line. It returns the doc text and
// ok=true only for the /// form.
func (l *Lexer) readComment() (string, Pos, bool) {
	pos := l.here()
	l.readChar() // first /
	l.readChar() // second /
	isDoc := l.ch == '/'
	if isDoc {
		l.readChar()
	}
	start := l.pos
	for l.ch != '\n' && l.ch != 0 {
		l.readChar()
	}
	if !isDoc {
		return "", pos, false
	}
	text := strings.TrimPrefix(l.input[start:l.pos], " ")
	return text, pos, true
}

// readIdent consumes an identifier, allowing embedded dots for
// qualified references (core.Money) and dotted attribute keys
// (http.method). The parser rejects malformed shapes.
func (l *Lexer) readIdent() string {
	start := l.pos
	for isIdentPart(l.ch) || (l.ch == '.' && isIdentStart(l.peekChar())) {
		l.readChar()
	}
	return l.input[start:l.pos]
}

func (l *Lexer) readNumber() string {
	start := l.pos
	for isDigit(l.ch) {
		l.readChar()
	}
	return l.input[start:l.pos]
}

// readString consumes a double-quoted literal, handling \" and \\
// escapes. The opening quote is the current char on entry; the
// closing quote is consumed on exit.
func (l *Lexer) readString() (string, bool) {
	var sb strings.Builder
	l.readChar() // opening quote
	for {
		switch l.ch {
		case '"':
			l.readChar()
			return sb.String(), true
		case 0, '\n':
			return sb.String(), false
		case '\\':
			switch l.peekChar() {
			case '"':
				sb.WriteByte('"')
				l.readChar()
			case '\\':
				sb.WriteByte('\\')
				l.readChar()
			default:
				sb.WriteByte('\\')
			}
			l.readChar()
		default:
			sb.WriteByte(l.ch)
			l.readChar()
		}
	}
}

func isIdentStart(ch byte) bool {
	return ch == '_' || ('a' <= ch && ch <= 'z') || ('A' <= ch && ch <= 'Z')
}

func isIdentPart(ch byte) bool {
	return isIdentStart(ch) || isDigit(ch)
}

func isDigit(ch byte) bool { return '0' <= ch && ch <= '9' }
