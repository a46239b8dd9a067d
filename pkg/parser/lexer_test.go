package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func types(toks []Token) []TokenType {
	out := make([]TokenType, len(toks))
	for i, t := range toks {
		out[i] = t.Type
	}
	return out
}

func TestLexer_Basic(t *testing.T) {
	toks := Tokenize("SELECT a, b FROM t WHERE x >= 1.5e3;")
	assert.Equal(t, []TokenType{
		TOKEN_IDENT, TOKEN_IDENT, TOKEN_COMMA, TOKEN_IDENT, TOKEN_IDENT, TOKEN_IDENT,
		TOKEN_IDENT, TOKEN_IDENT, TOKEN_OP, TOKEN_NUMBER, TOKEN_SEMICOLON, TOKEN_EOF,
	}, types(toks))
	assert.Equal(t, ">=", toks[8].Literal)
	assert.Equal(t, "1.5e3", toks[9].Literal)
}

func TestLexer_Positions(t *testing.T) {
	toks := Tokenize("SELECT\n  id\nFROM users")
	require.Len(t, toks, 5)
	assert.Equal(t, Position{Line: 1, Column: 1, Offset: 0}, toks[0].Pos)
	assert.Equal(t, 2, toks[1].Pos.Line)
	assert.Equal(t, 3, toks[1].Pos.Column)
	assert.Equal(t, 3, toks[2].Pos.Line)
	assert.Equal(t, 1, toks[2].Pos.Column)
	assert.Equal(t, 6, toks[3].Pos.Column)
}

func TestLexer_StringsAndComments(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"doubled quote", "'it''s'", "it's"},
		{"backslash is literal", `'a\'`, `a\`},
		{"escape string", `E'a\'b'`, "a'b"},
		{"dollar quoted", "$$ DROP TABLE x; $$", " DROP TABLE x; "},
		{"tagged dollar quoted", "$fn$ body $$ inner $fn$", " body $$ inner "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			toks := Tokenize(tt.input)
			require.Equal(t, TOKEN_STRING, toks[0].Type, toks[0].Literal)
			assert.Equal(t, tt.want, toks[0].Literal)
			assert.Equal(t, TOKEN_EOF, toks[1].Type)
		})
	}

	toks := Tokenize("SELECT 1 -- DROP TABLE x\n/* DELETE /* nested */ FROM y */ + 2")
	assert.Equal(t, []TokenType{TOKEN_IDENT, TOKEN_NUMBER, TOKEN_OP, TOKEN_NUMBER, TOKEN_EOF}, types(toks))
}

func TestLexer_QuotedIdentifiers(t *testing.T) {
	toks := Tokenize("\"Order Items\" `select`")
	require.Len(t, toks, 3)
	assert.True(t, toks[0].Quoted)
	assert.Equal(t, "Order Items", toks[0].Literal)
	assert.Equal(t, "", toks[1].Upper(), "quoted identifiers never match keywords")
}

func TestLexer_Params(t *testing.T) {
	toks := Tokenize("? $1 :name @var x::int")
	assert.Equal(t, []TokenType{
		TOKEN_PARAM, TOKEN_PARAM, TOKEN_PARAM, TOKEN_PARAM, TOKEN_IDENT, TOKEN_OP, TOKEN_IDENT, TOKEN_EOF,
	}, types(toks))
	assert.Equal(t, "$1", toks[1].Literal)
	assert.Equal(t, ":name", toks[2].Literal)
	assert.Equal(t, "::", toks[5].Literal)
}

func TestLexer_Variables(t *testing.T) {
	toks := Tokenize("@@version @@session.sql_mode")
	assert.Equal(t, []TokenType{TOKEN_VARIABLE, TOKEN_VARIABLE, TOKEN_DOT, TOKEN_IDENT, TOKEN_EOF}, types(toks))
	assert.Equal(t, "@@version", toks[0].Literal)

	toks = TokenizeAs("@v @@version", SyntaxMySQL)
	assert.Equal(t, []TokenType{TOKEN_VARIABLE, TOKEN_VARIABLE, TOKEN_EOF}, types(toks))
	assert.Equal(t, "@v", toks[0].Literal)
}

func TestLexer_MySQLComments(t *testing.T) {
	tests := []struct {
		name  string
		input string
		def   []TokenType
		mysql []TokenType
	}{
		{
			name:  "hash starts a comment",
			input: "SELECT 1 # 'x\nDELETE",
			def:   []TokenType{TOKEN_IDENT, TOKEN_NUMBER, TOKEN_OP, TOKEN_ILLEGAL},
			mysql: []TokenType{TOKEN_IDENT, TOKEN_NUMBER, TOKEN_IDENT, TOKEN_EOF},
		},
		{
			name:  "double dash needs a space",
			input: "SELECT 1--1",
			def:   []TokenType{TOKEN_IDENT, TOKEN_NUMBER, TOKEN_EOF},
			mysql: []TokenType{TOKEN_IDENT, TOKEN_NUMBER, TOKEN_OP, TOKEN_OP, TOKEN_NUMBER, TOKEN_EOF},
		},
		{
			name:  "block comments do not nest",
			input: "SELECT /* a /* b */ 1 */",
			def:   []TokenType{TOKEN_IDENT, TOKEN_EOF},
			mysql: []TokenType{TOKEN_IDENT, TOKEN_NUMBER, TOKEN_OP, TOKEN_OP, TOKEN_EOF},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.def, types(TokenizeAs(tt.input, SyntaxDefault)))
			assert.Equal(t, tt.mysql, types(TokenizeAs(tt.input, SyntaxMySQL)))
		})
	}
}

func TestLexer_ExecutableComments(t *testing.T) {
	for _, input := range []string{
		"SELECT 1 /*! , sleep(5) */",
		"SELECT 1 /*M! , sleep(5) */",
		"SELECT /*+ MAX_EXECUTION_TIME(1) */ 1",
	} {
		for _, syntax := range []Syntax{SyntaxDefault, SyntaxMySQL} {
			t.Run(syntax.String()+"/"+input, func(t *testing.T) {
				toks := TokenizeAs(input, syntax)
				last := toks[len(toks)-1]
				assert.Equal(t, TOKEN_ILLEGAL, last.Type)
				assert.Contains(t, last.Literal, "executable comments")
			})
		}
	}
}

func TestLimitRows(t *testing.T) {
	tests := []struct {
		input string
		want  string
		ok    bool
	}{
		{"SELECT a.id, b.id FROM t a JOIN t b ON a.id = b.id;", "SELECT a.id, b.id FROM t a JOIN t b ON a.id = b.id\nLIMIT 11", true},
		{"SELECT * FROM t -- all\n", "SELECT * FROM t -- all\nLIMIT 11", true},
		{"SELECT 1 UNION ALL SELECT 2 ORDER BY 1", "SELECT 1 UNION ALL SELECT 2 ORDER BY 1\nLIMIT 11", true},
		{"SELECT * FROM t LIMIT 5", "", false},
		{"SELECT * FROM t LIMIT ALL", "", false},
		{"SELECT * FROM t OFFSET 5", "", false},
		{"SELECT * FROM t FETCH FIRST 5 ROWS ONLY", "", false},
		{"SELECT * FROM t FOR UPDATE", "", false},
		{"DELETE FROM t", "", false},
		{"SELECT (", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := LimitRows(tt.input, SyntaxDefault, 11)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLexer_Illegal(t *testing.T) {
	tests := []struct {
		input string
		msg   string
	}{
		{"SELECT 'abc", "unterminated string literal"},
		{"SELECT \"abc", "unterminated quoted identifier"},
		{"SELECT /* abc", "unterminated block comment"},
		{"SELECT $$abc", "unterminated dollar-quoted string"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			toks := Tokenize(tt.input)
			last := toks[len(toks)-1]
			assert.Equal(t, TOKEN_ILLEGAL, last.Type)
			assert.Equal(t, tt.msg, last.Literal)
			assert.Equal(t, 8, last.Pos.Column)
		})
	}
}

func TestStatementBody(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"SELECT 1", "SELECT 1"},
		{"  SELECT 1 ;  ", "SELECT 1"},
		{";;SELECT 1;;", "SELECT 1"},
		{"SELECT 1 -- done\n;", "SELECT 1 -- done"},
		{"SELECT ';' AS s;", "SELECT ';' AS s"},
		{"SELECT 1; /* tail */", "SELECT 1"},
		{" ; ", ""},
		{"SELECT 'open;", "SELECT 'open;"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, StatementBody(tt.input))
		})
	}
}
