package parser

import "strings"

// Operator precedence, lowest to highest.
const (
	precLowest = iota
	precOr
	precAnd
	precNot
	precIs
	precCompare
	precLike
	precOther
	precAdditive
	precMultiplicative
	precExponent
	precUnary
)

// parseExpr parses a full expression.
func (p *Parser) parseExpr() Expr {
	return p.parseSubExpr(precLowest)
}

func (p *Parser) parseExprList() []Expr {
	var list []Expr
	for {
		list = append(list, p.parseExpr())
		if !p.accept(TOKEN_COMMA) {
			return list
		}
	}
}

func (p *Parser) parseSubExpr(minPrec int) Expr {
	p.enter()
	defer p.leave()

	left := p.parsePrefix()
	for {
		prec := p.infixPrecedence()
		if prec == 0 || prec <= minPrec {
			return left
		}
		left = p.parseInfix(left, prec)
	}
}

func (p *Parser) parsePrefix() Expr {
	if p.isWord("NOT") {
		p.next()
		return &UnaryExpr{Op: "NOT", Expr: p.parseSubExpr(precNot)}
	}
	if p.is(TOKEN_OP) {
		switch p.token.Literal {
		case "-", "+", "~", "!", "@":
			op := p.token.Literal
			p.next()
			return &UnaryExpr{Op: op, Expr: p.parseSubExpr(precUnary)}
		}
	}
	return p.parsePostfix(p.parsePrimary())
}

var likeWords = map[string]bool{
	"LIKE": true, "ILIKE": true, "SIMILAR": true, "GLOB": true, "REGEXP": true, "RLIKE": true,
	"IN": true, "BETWEEN": true,
}

func (p *Parser) infixPrecedence() int {
	if p.is(TOKEN_OP) {
		switch p.token.Literal {
		case "=", "==", "<", ">", "<=", ">=", "<>", "!=", "<=>":
			return precCompare
		case "+", "-":
			return precAdditive
		case "*", "/", "%", "//":
			return precMultiplicative
		case "^", "**":
			return precExponent
		case "::", "=>":
			return 0
		}
		return precOther
	}
	switch w := p.token.Upper(); w {
	case "OR", "XOR":
		return precOr
	case "AND":
		return precAnd
	case "IS", "ISNULL", "NOTNULL":
		return precIs
	case "NOT":
		if likeWords[p.peek(1).Upper()] {
			return precLike
		}
	case "DIV", "MOD":
		return precMultiplicative
	case "AT":
		if p.isWordAt(1, "TIME") {
			return precOther
		}
	default:
		if likeWords[w] {
			return precLike
		}
	}
	return 0
}

func (p *Parser) parseInfix(left Expr, prec int) Expr {
	if p.is(TOKEN_OP) {
		op := p.token.Literal
		p.next()
		if prec == precCompare {
			if quant, right := p.parseQuantified(); quant != "" {
				return &QuantifiedExpr{Op: op, Quantifier: quant, Left: left, Right: right}
			}
		}
		if prec == precExponent {
			// right-associative
			return &BinaryExpr{Op: op, Left: left, Right: p.parseSubExpr(prec - 1)}
		}
		return &BinaryExpr{Op: op, Left: left, Right: p.parseSubExpr(prec)}
	}

	word := p.token.Upper()
	switch word {
	case "OR", "XOR", "AND", "DIV", "MOD":
		p.next()
		return &BinaryExpr{Op: word, Left: left, Right: p.parseSubExpr(prec)}
	case "ISNULL":
		p.next()
		return &IsExpr{Expr: left, What: "NULL"}
	case "NOTNULL":
		p.next()
		return &IsExpr{Expr: left, Not: true, What: "NULL"}
	case "IS":
		return p.parseIs(left)
	case "AT":
		p.next()
		p.expectWord("TIME")
		p.expectWord("ZONE")
		return &BinaryExpr{Op: "AT TIME ZONE", Left: left, Right: p.parseSubExpr(precOther)}
	}

	not := p.acceptWord("NOT")
	switch word := p.token.Upper(); word {
	case "IN":
		return p.parseIn(left, not)
	case "BETWEEN":
		p.next()
		if !p.acceptWord("SYMMETRIC") {
			p.acceptWord("ASYMMETRIC")
		}
		expr := &BetweenExpr{Expr: left, Not: not, Low: p.parseSubExpr(precLike)}
		p.expectWord("AND")
		expr.High = p.parseSubExpr(precLike)
		return expr
	default:
		p.next()
		if word == "SIMILAR" {
			p.expectWord("TO")
			word = "SIMILAR TO"
		}
		like := &LikeExpr{Op: word, Not: not, Expr: left}
		if quant, right := p.parseQuantified(); quant != "" {
			like.Pattern = &QuantifiedExpr{Op: word, Quantifier: quant, Right: right}
		} else {
			like.Pattern = p.parseSubExpr(precLike)
		}
		if p.acceptWord("ESCAPE") {
			like.Escape = p.parseSubExpr(precLike)
		}
		return like
	}
}

func (p *Parser) parseIs(left Expr) Expr {
	p.expectWord("IS")
	expr := &IsExpr{Expr: left, Not: p.acceptWord("NOT")}
	switch {
	case p.isAnyWord("NULL", "TRUE", "FALSE", "UNKNOWN", "NAN", "JSON"):
		expr.What = p.token.Upper()
		p.next()
	case p.acceptWord("DISTINCT"):
		p.expectWord("FROM")
		expr.What = "DISTINCT FROM"
		expr.Other = p.parseSubExpr(precIs)
	default:
		// SQLite and DuckDB allow IS [NOT] <expr>.
		expr.What = "EXPR"
		expr.Other = p.parseSubExpr(precIs)
	}
	return expr
}

func (p *Parser) parseIn(left Expr, not bool) Expr {
	p.expectWord("IN")
	in := &InExpr{Expr: left, Not: not}
	if !p.is(TOKEN_LPAREN) {
		// DuckDB list or PostgreSQL array operand
		in.List = []Expr{p.parseSubExpr(precLike)}
		return in
	}
	p.next()
	switch {
	case p.isStatementStart():
		in.Subquery = p.parseSubquery()
		return in
	case !p.is(TOKEN_RPAREN):
		in.List = p.parseExprList()
	}
	p.expect(TOKEN_RPAREN)
	return in
}

// parseQuantified parses ANY/ALL/SOME (subquery | expr) on the right side
// of a comparison. It returns an empty quantifier when none is present.
func (p *Parser) parseQuantified() (string, Expr) {
	if !p.isAnyWord("ANY", "ALL", "SOME") || p.peek(1).Type != TOKEN_LPAREN {
		return "", nil
	}
	quant := p.token.Upper()
	p.next()
	p.next()
	if p.isStatementStart() {
		return quant, &SubqueryExpr{Stmt: p.parseSubquery()}
	}
	e := p.parseExpr()
	p.expect(TOKEN_RPAREN)
	return quant, e
}

// parsePostfix applies ::casts, subscripts, COLLATE and field access.
func (p *Parser) parsePostfix(e Expr) Expr {
	for {
		switch {
		case p.isOp("::"):
			p.next()
			e = &CastExpr{Expr: e, Type: p.parseTypeName()}
		case p.is(TOKEN_LBRACKET):
			p.next()
			sub := &SubscriptExpr{Expr: e}
			if !p.is(TOKEN_COLON) {
				sub.Index = p.parseExpr()
			}
			switch {
			case p.accept(TOKEN_COLON):
				if !p.is(TOKEN_RBRACKET) {
					sub.Upper = p.parseExpr()
				}
			case p.is(TOKEN_PARAM) && strings.HasPrefix(p.token.Literal, ":"):
				// x[a:b] lexes the upper bound as a named parameter.
				sub.Upper = &ColumnRef{Parts: []string{p.token.Literal[1:]}}
				p.next()
			}
			p.expect(TOKEN_RBRACKET)
			e = sub
		case p.isWord("COLLATE"):
			p.next()
			name := p.qualifiedName()
			e = &BinaryExpr{Op: "COLLATE", Left: e, Right: &Literal{Kind: "string", Value: strings.Join(name, ".")}}
		case p.is(TOKEN_DOT):
			if _, isRef := e.(*ColumnRef); isRef {
				return e
			}
			p.next()
			if p.acceptOp("*") {
				e = &FieldExpr{Expr: e, Field: "*"}
				continue
			}
			name := p.anyIdent()
			if p.is(TOKEN_LPAREN) {
				// DuckDB method chaining: x.upper()
				call := p.parseFuncCall([]string{name})
				call.Args = append([]Expr{e}, call.Args...)
				e = call
				continue
			}
			e = &FieldExpr{Expr: e, Field: name}
		default:
			return e
		}
	}
}

func (p *Parser) parsePrimary() Expr {
	p.enter()
	defer p.leave()

	tok := p.token
	switch tok.Type {
	case TOKEN_NUMBER:
		p.next()
		return &Literal{Kind: "number", Value: tok.Literal}
	case TOKEN_STRING:
		p.next()
		value := tok.Literal
		for p.is(TOKEN_STRING) {
			value += p.token.Literal
			p.next()
		}
		return &Literal{Kind: "string", Value: value}
	case TOKEN_PARAM:
		p.next()
		p.params = append(p.params, tok)
		return &Param{Name: tok.Literal}
	case TOKEN_VARIABLE:
		p.next()
		return &Variable{Name: tok.Literal}
	case TOKEN_LPAREN:
		p.next()
		if p.isStatementStart() {
			return &SubqueryExpr{Stmt: p.parseSubquery()}
		}
		e := p.parseExpr()
		if p.is(TOKEN_COMMA) {
			p.next()
			row := &ListExpr{Kind: "row", Items: append([]Expr{e}, p.parseExprList()...)}
			p.expect(TOKEN_RPAREN)
			return row
		}
		p.expect(TOKEN_RPAREN)
		if _, isRef := e.(*ColumnRef); isRef && p.is(TOKEN_DOT) {
			// (composite).field
			p.next()
			if p.acceptOp("*") {
				return &FieldExpr{Expr: e, Field: "*"}
			}
			return &FieldExpr{Expr: e, Field: p.anyIdent()}
		}
		return e
	case TOKEN_LBRACKET:
		p.next()
		return p.parseListItems("list", TOKEN_RBRACKET)
	case TOKEN_LBRACE:
		return p.parseStruct()
	case TOKEN_OP:
		if tok.Literal == "*" {
			p.next()
			return &StarExpr{}
		}
	case TOKEN_IDENT:
		return p.parseWordExpr()
	}
	p.unexpected("an expression")
	return nil
}

func (p *Parser) parseListItems(kind string, closer TokenType) Expr {
	list := &ListExpr{Kind: kind}
	for !p.is(closer) {
		list.Items = append(list.Items, p.parseExpr())
		if !p.accept(TOKEN_COMMA) {
			break
		}
	}
	p.expect(closer)
	return list
}

// parseStruct parses a DuckDB struct literal {'key': value, ...}.
func (p *Parser) parseStruct() Expr {
	p.expect(TOKEN_LBRACE)
	st := &StructExpr{}
	for !p.is(TOKEN_RBRACE) {
		var key string
		if p.is(TOKEN_STRING) {
			key = p.token.Literal
			p.next()
		} else {
			key = p.anyIdent()
		}
		if p.is(TOKEN_PARAM) && strings.HasPrefix(p.token.Literal, ":") {
			// {k:v} lexes the value as a named parameter.
			st.Keys = append(st.Keys, key)
			st.Values = append(st.Values, &ColumnRef{Parts: []string{p.token.Literal[1:]}})
			p.next()
		} else {
			p.expect(TOKEN_COLON)
			st.Keys = append(st.Keys, key)
			st.Values = append(st.Values, p.parseExpr())
		}
		if !p.accept(TOKEN_COMMA) {
			break
		}
	}
	p.expect(TOKEN_RBRACE)
	return st
}

// parseWordExpr handles expressions that start with an identifier or keyword.
func (p *Parser) parseWordExpr() Expr {
	tok := p.token
	word := tok.Upper()
	nextTok := p.peek(1)
	callsNext := nextTok.Type == TOKEN_LPAREN

	switch word {
	case "NULL":
		p.next()
		return &Literal{Kind: "null", Value: "NULL"}
	case "TRUE", "FALSE":
		p.next()
		return &Literal{Kind: "bool", Value: word}
	case "CASE":
		return p.parseCase()
	case "EXISTS":
		p.next()
		p.expect(TOKEN_LPAREN)
		return &ExistsExpr{Stmt: p.parseSubquery()}
	case "CAST", "TRY_CAST", "SAFE_CAST":
		if callsNext {
			return p.parseCast()
		}
	case "INTERVAL":
		switch nextTok.Type {
		case TOKEN_STRING, TOKEN_NUMBER, TOKEN_PARAM, TOKEN_LPAREN:
			return p.parseInterval()
		}
	case "ARRAY":
		if nextTok.Type == TOKEN_LBRACKET {
			p.next()
			p.next()
			return p.parseListItems("array", TOKEN_RBRACKET)
		}
		if callsNext && isStatementWord(p.peek(2).Upper()) {
			p.next()
			p.next()
			return &SubqueryExpr{Stmt: p.parseSubquery()}
		}
	case "ROW":
		if callsNext {
			p.next()
			p.next()
			return p.parseListItems("row", TOKEN_RPAREN)
		}
	case "EXTRACT", "POSITION", "SUBSTRING", "TRIM", "OVERLAY":
		if callsNext {
			return p.parseSpecialCall()
		}
	case "DEFAULT":
		p.next()
		return &KeywordExpr{Word: word}
	case "DATE", "TIME", "TIMESTAMP", "TIMESTAMPTZ", "DATETIME":
		if nextTok.Type == TOKEN_STRING {
			p.next()
			lit := p.parsePrimary()
			return &CastExpr{Expr: lit, Type: word}
		}
	case "CURRENT_DATE", "CURRENT_TIME", "CURRENT_TIMESTAMP", "LOCALTIME", "LOCALTIMESTAMP",
		"CURRENT_USER", "SESSION_USER", "USER", "CURRENT_ROLE", "CURRENT_CATALOG", "CURRENT_SCHEMA":
		if !callsNext {
			p.next()
			return &FuncCall{Name: []string{word}}
		}
	}

	if !tok.Quoted && isReserved(word) {
		if !callsNext {
			p.unexpected("an expression")
		}
		// Reserved words used as function names: LEFT(), RIGHT(), ANY(), ...
		p.next()
		return p.parseFuncCall([]string{tok.Literal})
	}

	parts := []string{tok.Literal}
	p.next()
	for p.is(TOKEN_DOT) {
		p.next()
		if p.acceptOp("*") {
			return &ColumnRef{Parts: parts, Star: true}
		}
		parts = append(parts, p.anyIdent())
	}
	if p.is(TOKEN_LPAREN) {
		return p.parseFuncCall(parts)
	}
	return &ColumnRef{Parts: parts}
}

func isStatementWord(w string) bool {
	switch w {
	case "SELECT", "VALUES", "TABLE", "WITH", "INSERT", "UPDATE", "DELETE", "MERGE":
		return true
	}
	return false
}

// parseFuncCall parses the argument list and trailing clauses of a call
// whose name has already been consumed.
func (p *Parser) parseFuncCall(name []string) *FuncCall {
	call := &FuncCall{Name: name}
	p.expect(TOKEN_LPAREN)

	switch {
	case p.is(TOKEN_RPAREN):
	case p.isOp("*") && p.peek(1).Type == TOKEN_RPAREN:
		p.next()
		call.Args = []Expr{&StarExpr{}}
	default:
		if p.acceptWord("DISTINCT") {
			call.Distinct = true
		} else {
			p.acceptWord("ALL")
		}
		for {
			call.Args = append(call.Args, p.parseArg())
			if !p.accept(TOKEN_COMMA) {
				break
			}
		}
		if p.isWord("ORDER") {
			call.OrderBy = p.parseOrderBy()
		}
		if p.acceptWord("SEPARATOR") {
			call.Args = append(call.Args, p.parsePrimary())
		}
		if p.isAnyWord("IGNORE", "RESPECT") {
			p.next()
			p.expectWord("NULLS")
		}
		if p.acceptWord("LIMIT") {
			call.Args = append(call.Args, p.parseExpr())
		}
	}
	p.expect(TOKEN_RPAREN)

	if p.isWord("WITHIN") {
		p.next()
		p.expectWord("GROUP")
		p.expect(TOKEN_LPAREN)
		call.OrderBy = p.parseOrderBy()
		p.expect(TOKEN_RPAREN)
	}
	if p.isWord("FILTER") && p.peek(1).Type == TOKEN_LPAREN {
		p.next()
		p.next()
		p.expectWord("WHERE")
		call.Filter = p.parseExpr()
		p.expect(TOKEN_RPAREN)
	}
	if p.isAnyWord("IGNORE", "RESPECT") && p.isWordAt(1, "NULLS") {
		p.next()
		p.next()
	}
	if p.acceptWord("OVER") {
		if p.is(TOKEN_LPAREN) {
			call.Over = p.parseWindowSpec()
		} else {
			call.Over = &WindowSpec{Ref: p.ident()}
		}
	}
	return call
}

// parseArg parses one call argument, allowing named arguments
// (name => value, name := value) and bare subqueries.
func (p *Parser) parseArg() Expr {
	if p.is(TOKEN_IDENT) && p.peek(1).Type == TOKEN_OP && (p.peek(1).Literal == "=>" || p.peek(1).Literal == ":=") {
		p.next()
		p.next()
	}
	if p.isAnyWord("SELECT", "WITH") {
		start := p.token.Pos
		var with *WithClause
		if p.isWord("WITH") {
			with = p.parseWith()
		}
		return &SubqueryExpr{Stmt: p.parseSelectStmt(start, with)}
	}
	return p.parseExpr()
}

// parseSpecialCall handles functions whose arguments are separated by
// keywords: EXTRACT(f FROM x), POSITION(a IN b), SUBSTRING(s FROM a FOR b),
// TRIM(BOTH c FROM s), OVERLAY(s PLACING r FROM a FOR b).
func (p *Parser) parseSpecialCall() Expr {
	call := &FuncCall{Name: []string{p.token.Literal}}
	p.next()
	p.expect(TOKEN_LPAREN)
	for !p.is(TOKEN_RPAREN) {
		switch {
		case p.accept(TOKEN_COMMA):
		case p.isAnyWord("FROM", "FOR", "PLACING", "BOTH", "LEADING", "TRAILING", "IN", "SIMILAR", "ESCAPE"):
			p.next()
		default:
			// IN separates operands here, so parse above its precedence.
			call.Args = append(call.Args, p.parseSubExpr(precLike))
		}
	}
	p.expect(TOKEN_RPAREN)
	return call
}

func (p *Parser) parseCast() Expr {
	p.next()
	p.expect(TOKEN_LPAREN)
	cast := &CastExpr{Expr: p.parseExpr()}
	p.expectWord("AS")
	cast.Type = p.parseTypeName()
	if p.acceptWord("FORMAT") {
		p.parseExpr()
	}
	p.expect(TOKEN_RPAREN)
	return cast
}

var intervalUnits = map[string]bool{
	"YEAR": true, "YEARS": true, "MONTH": true, "MONTHS": true, "WEEK": true, "WEEKS": true,
	"DAY": true, "DAYS": true, "HOUR": true, "HOURS": true, "MINUTE": true, "MINUTES": true,
	"SECOND": true, "SECONDS": true, "MILLISECOND": true, "MILLISECONDS": true,
	"MICROSECOND": true, "MICROSECONDS": true, "QUARTER": true, "QUARTERS": true,
	"DECADE": true, "CENTURY": true, "MILLENNIUM": true,
}

func (p *Parser) parseInterval() Expr {
	p.expectWord("INTERVAL")
	iv := &IntervalExpr{Value: p.parsePostfix(p.parsePrimary())}
	if intervalUnits[p.token.Upper()] {
		iv.Unit = p.token.Upper()
		p.next()
		if p.acceptWord("TO") {
			if !intervalUnits[p.token.Upper()] {
				p.unexpected("interval unit")
			}
			iv.Unit += " TO " + p.token.Upper()
			p.next()
		}
	}
	return iv
}

func (p *Parser) parseCase() Expr {
	p.expectWord("CASE")
	c := &CaseExpr{}
	if !p.isWord("WHEN") {
		c.Operand = p.parseExpr()
	}
	for p.acceptWord("WHEN") {
		when := &WhenClause{Cond: p.parseExpr()}
		p.expectWord("THEN")
		when.Result = p.parseExpr()
		c.Whens = append(c.Whens, when)
	}
	if len(c.Whens) == 0 {
		p.unexpected("WHEN")
	}
	if p.acceptWord("ELSE") {
		c.Else = p.parseExpr()
	}
	p.expectWord("END")
	return c
}

// parseWindowSpec parses ( [ref] [PARTITION BY ...] [ORDER BY ...] [frame] ).
func (p *Parser) parseWindowSpec() *WindowSpec {
	p.expect(TOKEN_LPAREN)
	spec := &WindowSpec{}
	if p.isIdent() && !p.isAnyWord("PARTITION", "ROWS", "RANGE", "GROUPS") {
		spec.Ref = p.ident()
	}
	if p.isWord("PARTITION") {
		p.next()
		p.expectWord("BY")
		spec.PartitionBy = p.parseExprList()
	}
	if p.isWord("ORDER") {
		spec.OrderBy = p.parseOrderBy()
	}
	if p.isAnyWord("ROWS", "RANGE", "GROUPS") {
		p.next()
		if p.acceptWord("BETWEEN") {
			spec.Frame = append(spec.Frame, p.parseFrameBound())
			p.expectWord("AND")
		}
		spec.Frame = append(spec.Frame, p.parseFrameBound())
		if p.acceptWord("EXCLUDE") {
			switch {
			case p.acceptWord("CURRENT"):
				p.expectWord("ROW")
			case p.acceptWord("NO"):
				p.expectWord("OTHERS")
			case p.acceptWord("GROUP"), p.acceptWord("TIES"):
			default:
				p.unexpected("CURRENT ROW, GROUP, TIES or NO OTHERS")
			}
		}
	}
	p.expect(TOKEN_RPAREN)
	return spec
}

func (p *Parser) parseFrameBound() Expr {
	switch {
	case p.acceptWord("UNBOUNDED"):
		if !p.acceptWord("PRECEDING") {
			p.expectWord("FOLLOWING")
		}
		return &KeywordExpr{Word: "UNBOUNDED"}
	case p.acceptWord("CURRENT"):
		p.expectWord("ROW")
		return &KeywordExpr{Word: "CURRENT ROW"}
	}
	offset := p.parseSubExpr(precAnd)
	if !p.acceptWord("PRECEDING") {
		p.expectWord("FOLLOWING")
	}
	return offset
}

// typeContinuations are words that may follow the first word of a type name.
var typeContinuations = map[string]bool{
	"PRECISION": true, "VARYING": true, "UNSIGNED": true, "SIGNED": true, "ZEROFILL": true,
}

// parseTypeName parses a type such as integer, varchar(20), numeric(10,2),
// double precision, timestamp with time zone or int[].
func (p *Parser) parseTypeName() string {
	var sb strings.Builder
	sb.WriteString(strings.Join(p.typeWords(), "."))
	for {
		switch {
		case typeContinuations[p.token.Upper()]:
			sb.WriteString(" " + strings.ToLower(p.token.Literal))
			p.next()
		case p.isAnyWord("WITH", "WITHOUT") && p.isWordAt(1, "TIME") && p.isWordAt(2, "ZONE"):
			sb.WriteString(" " + strings.ToLower(p.token.Literal) + " time zone")
			p.next()
			p.next()
			p.next()
		case p.is(TOKEN_LPAREN):
			sb.WriteString("(")
			p.next()
			for i := 0; !p.is(TOKEN_RPAREN); i++ {
				if i > 0 {
					p.expect(TOKEN_COMMA)
					sb.WriteString(",")
				}
				switch p.token.Type {
				case TOKEN_NUMBER, TOKEN_IDENT, TOKEN_STRING:
					sb.WriteString(p.token.Literal)
					p.next()
					// DuckDB STRUCT(a INTEGER) / MAP(k, v) members
					if p.is(TOKEN_IDENT) {
						sb.WriteString(" " + p.parseTypeName())
					}
				default:
					p.unexpected("type modifier")
				}
			}
			p.expect(TOKEN_RPAREN)
			sb.WriteString(")")
		case p.is(TOKEN_LBRACKET):
			p.next()
			sb.WriteString("[")
			if p.is(TOKEN_NUMBER) {
				sb.WriteString(p.token.Literal)
				p.next()
			}
			p.expect(TOKEN_RBRACKET)
			sb.WriteString("]")
		default:
			return strings.ToLower(sb.String())
		}
	}
}

func (p *Parser) typeWords() []string {
	tok := p.expect(TOKEN_IDENT)
	words := []string{tok.Literal}
	for p.is(TOKEN_DOT) {
		p.next()
		words = append(words, p.anyIdent())
	}
	return words
}
