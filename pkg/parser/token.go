package parser

import (
	"fmt"
	"strings"
)

// TokenType identifies the lexical class of a token.
type TokenType int

//nolint:revive // TOKEN_* names are intentionally ALL_CAPS for SQL token conventions
const (
	// Special tokens
	TOKEN_EOF TokenType = iota
	TOKEN_ILLEGAL

	// Literals
	TOKEN_IDENT    // bare or quoted identifier, including keywords
	TOKEN_NUMBER   // 42, 3.14, .5, 1e10, 0xFF
	TOKEN_STRING   // 'text', E'text', $$text$$
	TOKEN_PARAM    // ?, $1, :name, @name
	TOKEN_VARIABLE // @@name, and @name under SyntaxMySQL

	// Operators and punctuation
	TOKEN_OP // any operator; Literal holds the symbol
	TOKEN_COMMA
	TOKEN_DOT
	TOKEN_SEMICOLON
	TOKEN_COLON
	TOKEN_LPAREN
	TOKEN_RPAREN
	TOKEN_LBRACKET
	TOKEN_RBRACKET
	TOKEN_LBRACE
	TOKEN_RBRACE
)

var tokenNames = map[TokenType]string{
	TOKEN_EOF:       "end of input",
	TOKEN_ILLEGAL:   "illegal character",
	TOKEN_IDENT:     "identifier",
	TOKEN_NUMBER:    "number",
	TOKEN_STRING:    "string",
	TOKEN_PARAM:     "parameter",
	TOKEN_VARIABLE:  "variable",
	TOKEN_OP:        "operator",
	TOKEN_COMMA:     "','",
	TOKEN_DOT:       "'.'",
	TOKEN_SEMICOLON: "';'",
	TOKEN_COLON:     "':'",
	TOKEN_LPAREN:    "'('",
	TOKEN_RPAREN:    "')'",
	TOKEN_LBRACKET:  "'['",
	TOKEN_RBRACKET:  "']'",
	TOKEN_LBRACE:    "'{'",
	TOKEN_RBRACE:    "'}'",
}

func (t TokenType) String() string {
	if s, ok := tokenNames[t]; ok {
		return s
	}
	return fmt.Sprintf("token(%d)", int(t))
}

// Position is a location in the SQL text. Line and Column are 1-based.
type Position struct {
	Line   int
	Column int
	Offset int
}

// Token is a lexical token.
type Token struct {
	Type    TokenType
	Literal string
	Pos     Position

	// Quoted is set for "quoted" and `backquoted` identifiers. Quoted
	// identifiers never match keywords.
	Quoted bool
}

// Upper returns the upper-cased literal of an unquoted identifier, or "".
func (t Token) Upper() string {
	if t.Type != TOKEN_IDENT || t.Quoted {
		return ""
	}
	return strings.ToUpper(t.Literal)
}

// describe renders the token for error messages.
func (t Token) describe() string {
	switch t.Type {
	case TOKEN_EOF:
		return "end of input"
	case TOKEN_IDENT:
		if u := t.Upper(); u != "" && isReserved(u) {
			return "keyword " + u
		}
		return fmt.Sprintf("identifier %q", t.Literal)
	case TOKEN_STRING:
		return "string literal"
	case TOKEN_NUMBER:
		return "number " + t.Literal
	default:
		return fmt.Sprintf("%q", t.Literal)
	}
}
