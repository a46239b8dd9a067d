package parser

import (
	"fmt"
)

// maxDepth bounds recursion so hostile input cannot exhaust the stack.
const maxDepth = 512

// Parsed is the outcome of parsing a single SQL statement.
type Parsed struct {
	Stmt Statement

	// Params lists placeholder tokens in order of appearance.
	Params []Token
}

// Parser is a recursive descent parser over a pre-lexed token stream.
// It stops at the first error.
type Parser struct {
	tokens []Token
	pos    int
	token  Token // current token
	depth  int
	params []Token
}

// bailout is panicked to unwind the parser on the first error.
type bailout struct {
	err *ParseError
}

// NewParser creates a parser for input using SyntaxDefault.
func NewParser(input string) *Parser {
	return NewParserAs(input, SyntaxDefault)
}

// NewParserAs creates a parser for input lexed with the given syntax.
func NewParserAs(input string, syntax Syntax) *Parser {
	p := &Parser{tokens: TokenizeAs(input, syntax)}
	p.token = p.tokens[0]
	return p
}

// Parse parses exactly one statement. A single trailing semicolon is
// accepted; anything after it is reported as ErrMultipleStatement at the
// start of the second statement.
func Parse(input string) (*Parsed, error) {
	return NewParser(input).Parse()
}

// ParseAs is Parse with the given lexical syntax.
func ParseAs(input string, syntax Syntax) (*Parsed, error) {
	return NewParserAs(input, syntax).Parse()
}

// Parse runs the parser over its input.
func (p *Parser) Parse() (parsed *Parsed, err error) {
	defer func() {
		if r := recover(); r != nil {
			b, ok := r.(bailout)
			if !ok {
				panic(r)
			}
			parsed, err = nil, b.err
		}
	}()

	if p.is(TOKEN_ILLEGAL) {
		p.fail("%s", p.token.Literal)
	}
	for p.is(TOKEN_SEMICOLON) {
		p.next()
	}
	if p.is(TOKEN_EOF) {
		return nil, &ParseError{Pos: p.token.Pos, Message: "no SQL statement found", Err: ErrEmptyInput}
	}

	stmt := p.parseStatement()

	if p.is(TOKEN_SEMICOLON) {
		p.next()
		for p.is(TOKEN_SEMICOLON) {
			p.next()
		}
		if !p.is(TOKEN_EOF) {
			p.failWith(ErrMultipleStatement, "multiple statements are not supported")
		}
	}
	if !p.is(TOKEN_EOF) {
		p.unexpected("end of statement")
	}
	return &Parsed{Stmt: stmt, Params: p.params}, nil
}

// ---------- token helpers ----------

func (p *Parser) next() {
	if p.pos < len(p.tokens)-1 {
		p.pos++
	}
	p.token = p.tokens[p.pos]
	if p.token.Type == TOKEN_ILLEGAL {
		p.fail("%s", p.token.Literal)
	}
}

func (p *Parser) peek(n int) Token {
	i := p.pos + n
	if i >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1]
	}
	return p.tokens[i]
}

func (p *Parser) is(t TokenType) bool {
	return p.token.Type == t
}

func (p *Parser) accept(t TokenType) bool {
	if p.is(t) {
		p.next()
		return true
	}
	return false
}

func (p *Parser) expect(t TokenType) Token {
	tok := p.token
	if !p.is(t) {
		p.unexpected(t.String())
	}
	p.next()
	return tok
}

// isWord reports whether the current token is the unquoted word w.
func (p *Parser) isWord(w string) bool {
	return p.token.Upper() == w
}

func (p *Parser) isWordAt(n int, w string) bool {
	return p.peek(n).Upper() == w
}

func (p *Parser) isAnyWord(words ...string) bool {
	u := p.token.Upper()
	if u == "" {
		return false
	}
	for _, w := range words {
		if u == w {
			return true
		}
	}
	return false
}

func (p *Parser) acceptWord(w string) bool {
	if p.isWord(w) {
		p.next()
		return true
	}
	return false
}

func (p *Parser) expectWord(w string) {
	if !p.acceptWord(w) {
		p.unexpected(w)
	}
}

func (p *Parser) isOp(op string) bool {
	return p.token.Type == TOKEN_OP && p.token.Literal == op
}

func (p *Parser) acceptOp(op string) bool {
	if p.isOp(op) {
		p.next()
		return true
	}
	return false
}

// ident consumes an identifier that is not a reserved word.
func (p *Parser) ident() string {
	tok := p.token
	if tok.Type != TOKEN_IDENT || (!tok.Quoted && isReserved(tok.Upper())) {
		p.unexpected("identifier")
	}
	p.next()
	return tok.Literal
}

// anyIdent consumes any identifier, reserved or not. Used after a dot.
func (p *Parser) anyIdent() string {
	tok := p.expect(TOKEN_IDENT)
	return tok.Literal
}

func (p *Parser) isIdent() bool {
	return p.token.Type == TOKEN_IDENT && (p.token.Quoted || !isReserved(p.token.Upper()))
}

// qualifiedName parses a dotted name such as db.schema.table.
func (p *Parser) qualifiedName() []string {
	parts := []string{p.ident()}
	for p.is(TOKEN_DOT) {
		p.next()
		parts = append(parts, p.anyIdent())
	}
	return parts
}

func (p *Parser) identList() []string {
	p.expect(TOKEN_LPAREN)
	var names []string
	for {
		names = append(names, p.ident())
		if !p.accept(TOKEN_COMMA) {
			break
		}
	}
	p.expect(TOKEN_RPAREN)
	return names
}

// skipParens consumes a balanced parenthesised token group.
func (p *Parser) skipParens() {
	p.expect(TOKEN_LPAREN)
	depth := 1
	for depth > 0 {
		switch p.token.Type {
		case TOKEN_EOF:
			p.unexpected("')'")
		case TOKEN_LPAREN:
			depth++
		case TOKEN_RPAREN:
			depth--
		}
		p.next()
	}
}

// ---------- errors ----------

func (p *Parser) enter() {
	p.depth++
	if p.depth > maxDepth {
		p.fail("statement is nested too deeply")
	}
}

func (p *Parser) leave() {
	p.depth--
}

func (p *Parser) fail(format string, args ...any) {
	p.failWith(ErrUnexpectedToken, format, args...)
}

func (p *Parser) failWith(sentinel error, format string, args ...any) {
	panic(bailout{err: &ParseError{
		Pos:     p.token.Pos,
		Message: fmt.Sprintf(format, args...),
		Err:     sentinel,
	}})
}

func (p *Parser) unexpected(expected string) {
	if p.is(TOKEN_EOF) {
		p.failWith(ErrUnexpectedEOF, "unexpected end of input, expected %s", expected)
	}
	p.fail("unexpected %s, expected %s", p.token.describe(), expected)
}
