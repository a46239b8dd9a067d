package parser

import (
	"fmt"
	"strings"
)

// Syntax selects the lexical rules that differ between engines.
type Syntax int

const (
	// SyntaxDefault follows PostgreSQL, SQLite and DuckDB: block comments
	// nest, # is an operator and @name is a named bind parameter.
	SyntaxDefault Syntax = iota
	// SyntaxMySQL follows MySQL: # starts a line comment, -- only does when
	// followed by whitespace, block comments do not nest and @name is a
	// user variable.
	SyntaxMySQL
)

func (s Syntax) String() string {
	if s == SyntaxMySQL {
		return "mysql"
	}
	return "default"
}

// Lexer tokenizes SQL text. It understands the quoting and comment forms of
// PostgreSQL, MySQL, SQLite and DuckDB so that nothing hidden inside a literal
// or comment can reach the parser as code.
type Lexer struct {
	input   string
	syntax  Syntax
	pos     int  // current position in input (points to current char)
	readPos int  // current reading position (after current char)
	ch      byte // current char under examination
	line    int  // current line number (1-based)
	column  int  // current column number (1-based)
}

// NewLexer creates a lexer using SyntaxDefault.
func NewLexer(input string) *Lexer {
	return NewLexerAs(input, SyntaxDefault)
}

// NewLexerAs creates a lexer for the given syntax.
func NewLexerAs(input string, syntax Syntax) *Lexer {
	l := &Lexer{input: input, syntax: syntax, line: 1, column: 0}
	l.readChar()
	return l
}

// readChar advances to the next character.
func (l *Lexer) readChar() {
	if l.ch == '\n' {
		l.line++
		l.column = 0
	}
	if l.readPos >= len(l.input) {
		l.ch = 0
	} else {
		l.ch = l.input[l.readPos]
	}
	l.pos = l.readPos
	l.readPos++
	l.column++
}

func (l *Lexer) peekChar() byte {
	if l.readPos >= len(l.input) {
		return 0
	}
	return l.input[l.readPos]
}

func (l *Lexer) peekCharAt(n int) byte {
	i := l.pos + n
	if i >= len(l.input) {
		return 0
	}
	return l.input[i]
}

func (l *Lexer) position() Position {
	return Position{Line: l.line, Column: l.column, Offset: l.pos}
}

func (l *Lexer) atEOF() bool {
	return l.pos >= len(l.input)
}

// NextToken returns the next token. Unterminated strings, quoted identifiers
// and comments produce a TOKEN_ILLEGAL whose literal is the error message.
func (l *Lexer) NextToken() Token {
	if msg, pos, ok := l.skipWhitespaceAndComments(); !ok {
		return Token{Type: TOKEN_ILLEGAL, Literal: msg, Pos: pos}
	}

	pos := l.position()
	if l.atEOF() {
		return Token{Type: TOKEN_EOF, Pos: pos}
	}

	switch l.ch {
	case ',':
		return l.single(TOKEN_COMMA, pos)
	case ';':
		return l.single(TOKEN_SEMICOLON, pos)
	case '(':
		return l.single(TOKEN_LPAREN, pos)
	case ')':
		return l.single(TOKEN_RPAREN, pos)
	case '[':
		return l.single(TOKEN_LBRACKET, pos)
	case ']':
		return l.single(TOKEN_RBRACKET, pos)
	case '{':
		return l.single(TOKEN_LBRACE, pos)
	case '}':
		return l.single(TOKEN_RBRACE, pos)
	case '.':
		if isDigit(l.peekChar()) {
			return l.readNumber(pos)
		}
		return l.single(TOKEN_DOT, pos)
	case '\'':
		return l.readString(pos, false)
	case '"':
		return l.readQuotedIdent(pos, '"')
	case '`':
		return l.readQuotedIdent(pos, '`')
	case '?':
		return l.single(TOKEN_PARAM, pos)
	case '$':
		if isDigit(l.peekChar()) {
			start := l.pos
			l.readChar()
			for isDigit(l.ch) {
				l.readChar()
			}
			return Token{Type: TOKEN_PARAM, Literal: l.input[start:l.pos], Pos: pos}
		}
		if tag, ok := l.dollarTag(); ok {
			return l.readDollarString(pos, tag)
		}
		return l.illegal(pos)
	case ':':
		if l.peekChar() == ':' {
			l.readChar()
			l.readChar()
			return Token{Type: TOKEN_OP, Literal: "::", Pos: pos}
		}
		if isIdentStart(l.peekChar()) {
			return l.readNamedParam(pos)
		}
		if l.peekChar() == '=' {
			l.readChar()
			l.readChar()
			return Token{Type: TOKEN_OP, Literal: ":=", Pos: pos}
		}
		return l.single(TOKEN_COLON, pos)
	case '@':
		if l.peekChar() == '@' && isIdentStart(l.peekCharAt(2)) {
			return l.readVariable(pos)
		}
		if isIdentStart(l.peekChar()) {
			if l.syntax == SyntaxMySQL {
				return l.readVariable(pos)
			}
			return l.readNamedParam(pos)
		}
	}

	if (l.ch == 'E' || l.ch == 'e') && l.peekChar() == '\'' {
		l.readChar()
		return l.readString(pos, true)
	}
	if (l.ch == 'X' || l.ch == 'x' || l.ch == 'B' || l.ch == 'b' || l.ch == 'N' || l.ch == 'n') && l.peekChar() == '\'' {
		l.readChar()
		return l.readString(pos, false)
	}
	if isIdentStart(l.ch) {
		return l.readIdentifier(pos)
	}
	if isDigit(l.ch) {
		return l.readNumber(pos)
	}
	if op := l.matchOperator(); op != "" {
		for range len(op) {
			l.readChar()
		}
		return Token{Type: TOKEN_OP, Literal: op, Pos: pos}
	}
	return l.illegal(pos)
}

func (l *Lexer) single(t TokenType, pos Position) Token {
	lit := string(l.ch)
	l.readChar()
	return Token{Type: t, Literal: lit, Pos: pos}
}

func (l *Lexer) illegal(pos Position) Token {
	msg := fmt.Sprintf("unexpected character %q", l.ch)
	l.readChar()
	return Token{Type: TOKEN_ILLEGAL, Literal: msg, Pos: pos}
}

// skipWhitespaceAndComments skips blanks, line comments and block comments.
// Block comments nest except under SyntaxMySQL. Comments the server would
// execute or interpret (/*! */, /*M! */, /*+ */) are rejected.
func (l *Lexer) skipWhitespaceAndComments() (string, Position, bool) {
	for {
		switch {
		case isSpace(l.ch) && !l.atEOF():
			l.readChar()
		case l.ch == '-' && l.peekChar() == '-' && l.dashCommentStarts():
			l.skipLine()
		case l.ch == '#' && l.syntax == SyntaxMySQL:
			l.skipLine()
		case l.ch == '/' && l.peekChar() == '*':
			start := l.position()
			if c := l.peekCharAt(2); c == '!' || c == '+' || (c == 'M' && l.peekCharAt(3) == '!') {
				return "executable comments and optimizer hints are not supported", start, false
			}
			l.readChar()
			l.readChar()
			depth := 1
			for depth > 0 {
				if l.atEOF() {
					return "unterminated block comment", start, false
				}
				switch {
				case l.ch == '*' && l.peekChar() == '/':
					depth--
					l.readChar()
				case l.ch == '/' && l.peekChar() == '*' && l.syntax != SyntaxMySQL:
					depth++
					l.readChar()
				}
				l.readChar()
			}
		default:
			return "", Position{}, true
		}
	}
}

// dashCommentStarts reports whether the -- at the current position opens a
// comment. MySQL requires whitespace or a control character after it.
func (l *Lexer) dashCommentStarts() bool {
	if l.syntax != SyntaxMySQL {
		return true
	}
	return l.peekCharAt(2) <= ' '
}

func (l *Lexer) skipLine() {
	for l.ch != '\n' && !l.atEOF() {
		l.readChar()
	}
}

// readString reads a single-quoted string. Doubled quotes always escape;
// backslashes escape only in E'...' strings.
func (l *Lexer) readString(pos Position, backslash bool) Token {
	l.readChar() // opening quote
	var sb strings.Builder
	for {
		if l.atEOF() {
			return Token{Type: TOKEN_ILLEGAL, Literal: "unterminated string literal", Pos: pos}
		}
		switch {
		case backslash && l.ch == '\\':
			l.readChar()
			if l.atEOF() {
				continue
			}
			sb.WriteByte(l.ch)
		case l.ch == '\'':
			if l.peekChar() != '\'' {
				l.readChar()
				return Token{Type: TOKEN_STRING, Literal: sb.String(), Pos: pos}
			}
			sb.WriteByte('\'')
			l.readChar()
		default:
			sb.WriteByte(l.ch)
		}
		l.readChar()
	}
}

func (l *Lexer) readQuotedIdent(pos Position, quote byte) Token {
	l.readChar()
	var sb strings.Builder
	for {
		if l.atEOF() {
			return Token{Type: TOKEN_ILLEGAL, Literal: "unterminated quoted identifier", Pos: pos}
		}
		if l.ch == quote {
			if l.peekChar() != quote {
				l.readChar()
				return Token{Type: TOKEN_IDENT, Literal: sb.String(), Pos: pos, Quoted: true}
			}
			l.readChar()
		}
		sb.WriteByte(l.ch)
		l.readChar()
	}
}

// dollarTag reports whether a PostgreSQL dollar-quote opener ($$ or $tag$)
// starts at the current position.
func (l *Lexer) dollarTag() (string, bool) {
	i := 1
	for {
		c := l.peekCharAt(i)
		if c == '$' {
			return l.input[l.pos : l.pos+i+1], true
		}
		if c == 0 || !(isIdentStart(c) || (i > 1 && isDigit(c))) {
			return "", false
		}
		i++
	}
}

func (l *Lexer) readDollarString(pos Position, tag string) Token {
	start := l.pos + len(tag)
	end := strings.Index(l.input[start:], tag)
	if end < 0 {
		for !l.atEOF() {
			l.readChar()
		}
		return Token{Type: TOKEN_ILLEGAL, Literal: "unterminated dollar-quoted string", Pos: pos}
	}
	body := l.input[start : start+end]
	for range len(tag) + end + len(tag) {
		l.readChar()
	}
	return Token{Type: TOKEN_STRING, Literal: body, Pos: pos}
}

func (l *Lexer) readNamedParam(pos Position) Token {
	start := l.pos
	l.readChar() // sigil
	for isIdentPart(l.ch) {
		l.readChar()
	}
	return Token{Type: TOKEN_PARAM, Literal: l.input[start:l.pos], Pos: pos}
}

// readVariable reads a system variable (@@name) or a MySQL user variable (@name).
func (l *Lexer) readVariable(pos Position) Token {
	start := l.pos
	l.readChar()
	if l.ch == '@' {
		l.readChar()
	}
	for isIdentPart(l.ch) {
		l.readChar()
	}
	return Token{Type: TOKEN_VARIABLE, Literal: l.input[start:l.pos], Pos: pos}
}

func (l *Lexer) readIdentifier(pos Position) Token {
	start := l.pos
	for isIdentPart(l.ch) {
		l.readChar()
	}
	return Token{Type: TOKEN_IDENT, Literal: l.input[start:l.pos], Pos: pos}
}

func (l *Lexer) readNumber(pos Position) Token {
	start := l.pos
	if l.ch == '0' && (l.peekChar() == 'x' || l.peekChar() == 'X') {
		l.readChar()
		l.readChar()
		for isHexDigit(l.ch) {
			l.readChar()
		}
		return Token{Type: TOKEN_NUMBER, Literal: l.input[start:l.pos], Pos: pos}
	}
	for isDigit(l.ch) || l.ch == '_' {
		l.readChar()
	}
	if l.ch == '.' && l.peekChar() != '.' {
		l.readChar()
		for isDigit(l.ch) {
			l.readChar()
		}
	}
	if l.ch == 'e' || l.ch == 'E' {
		next := l.peekChar()
		if isDigit(next) || ((next == '+' || next == '-') && isDigit(l.peekCharAt(2))) {
			l.readChar()
			if l.ch == '+' || l.ch == '-' {
				l.readChar()
			}
			for isDigit(l.ch) {
				l.readChar()
			}
		}
	}
	return Token{Type: TOKEN_NUMBER, Literal: l.input[start:l.pos], Pos: pos}
}

// operators is ordered longest first so matching is greedy.
var operators = []string{
	"->>", "#>>", "!~*", "<=>",
	"->", "#>", "@>", "<@", "<=", ">=", "<>", "!=", "||", "<<", ">>", "&&", "**", "!~", "~*", "=>",
	"^@", "==", "//",
	"+", "-", "*", "/", "%", "=", "<", ">", "~", "!", "&", "|", "^", "#", "@",
}

func (l *Lexer) matchOperator() string {
	rest := l.input[l.pos:]
	for _, op := range operators {
		if strings.HasPrefix(rest, op) {
			return op
		}
	}
	return ""
}

// Tokenize lexes the whole input using SyntaxDefault.
func Tokenize(input string) []Token {
	return TokenizeAs(input, SyntaxDefault)
}

// TokenizeAs lexes the whole input, stopping after EOF or the first illegal token.
func TokenizeAs(input string, syntax Syntax) []Token {
	l := NewLexerAs(input, syntax)
	var out []Token
	for {
		tok := l.NextToken()
		out = append(out, tok)
		if tok.Type == TOKEN_EOF || tok.Type == TOKEN_ILLEGAL {
			return out
		}
	}
}

// StatementBody is StatementBodyAs with SyntaxDefault.
func StatementBody(input string) string {
	return StatementBodyAs(input, SyntaxDefault)
}

// StatementBodyAs returns input without leading and trailing semicolons and
// the whitespace or comments around them. Input that does not lex cleanly
// is returned trimmed but otherwise unchanged.
func StatementBodyAs(input string, syntax Syntax) string {
	toks := TokenizeAs(input, syntax)
	first, last := -1, -1
	for i, tok := range toks {
		switch tok.Type {
		case TOKEN_ILLEGAL:
			return strings.TrimSpace(input)
		case TOKEN_SEMICOLON, TOKEN_EOF:
		default:
			if first < 0 {
				first = i
			}
			last = i
		}
	}
	if first < 0 {
		return ""
	}
	start := toks[first].Pos.Offset
	end := len(input)
	for _, tok := range toks[last+1:] {
		if tok.Type == TOKEN_SEMICOLON {
			end = tok.Pos.Offset
			break
		}
	}
	return strings.TrimSpace(input[start:end])
}

func isSpace(ch byte) bool {
	return ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r' || ch == '\f' || ch == '\v'
}

func isDigit(ch byte) bool {
	return '0' <= ch && ch <= '9'
}

func isHexDigit(ch byte) bool {
	return isDigit(ch) || ('a' <= ch && ch <= 'f') || ('A' <= ch && ch <= 'F')
}

// isIdentStart treats every non-ASCII byte as a letter so UTF-8 identifiers
// lex as a single token.
func isIdentStart(ch byte) bool {
	return ('a' <= ch && ch <= 'z') || ('A' <= ch && ch <= 'Z') || ch == '_' || ch >= 0x80
}

func isIdentPart(ch byte) bool {
	return isIdentStart(ch) || isDigit(ch) || ch == '$'
}
