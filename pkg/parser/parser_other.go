package parser

// parseExplain parses EXPLAIN [options] statement. MySQL's EXPLAIN table
// form is accepted as a generic statement.
func (p *Parser) parseExplain(start Position) Statement {
	p.expectWord("EXPLAIN")
	stmt := &GenericStmt{Pos: start, Class: "admin", Verb: "EXPLAIN"}
	for {
		switch {
		case p.is(TOKEN_EOF), p.is(TOKEN_SEMICOLON):
			return stmt
		case p.isStatementStart(), p.isWord("FROM"):
			stmt.Inner = p.parseStatement()
			return stmt
		case p.is(TOKEN_LPAREN):
			if p.peekIsStatement() {
				stmt.Inner = p.parseStatement()
				return stmt
			}
			p.skipParens()
		default:
			p.next()
		}
	}
}

// parseGeneric consumes a statement the parser does not model in detail.
// It checks that brackets balance and that the statement ends at a
// semicolon or end of input. Procedural bodies delimited by BEGIN/CASE
// ... END may contain semicolons.
func (p *Parser) parseGeneric(start Position, class string) Statement {
	stmt := &GenericStmt{Pos: start, Class: class, Verb: p.token.Upper()}
	p.next()
	if class == "ddl" && p.isIdent() {
		stmt.Verb += " " + p.token.Upper()
	}
	return p.finishGeneric(stmt, class == "ddl")
}

func (p *Parser) finishGeneric(stmt *GenericStmt, blocks bool) Statement {
	var closers []TokenType
	blockDepth := 0
	for {
		switch p.token.Type {
		case TOKEN_EOF:
			if len(closers) > 0 {
				p.unexpected(closers[len(closers)-1].String())
			}
			if blockDepth > 0 {
				p.unexpected("END")
			}
			return stmt
		case TOKEN_SEMICOLON:
			if len(closers) == 0 && blockDepth == 0 {
				return stmt
			}
		case TOKEN_LPAREN:
			closers = append(closers, TOKEN_RPAREN)
		case TOKEN_LBRACKET:
			closers = append(closers, TOKEN_RBRACKET)
		case TOKEN_LBRACE:
			closers = append(closers, TOKEN_RBRACE)
		case TOKEN_RPAREN, TOKEN_RBRACKET, TOKEN_RBRACE:
			if len(closers) == 0 || closers[len(closers)-1] != p.token.Type {
				p.fail("unexpected %s", p.token.describe())
			}
			closers = closers[:len(closers)-1]
		case TOKEN_IDENT:
			if blocks && len(closers) == 0 {
				switch p.token.Upper() {
				case "AS":
					if stmt.Inner == nil && blockDepth == 0 && isStatementWord(p.peek(1).Upper()) {
						p.next()
						stmt.Inner = p.parseStatement()
						continue
					}
				case "BEGIN", "CASE":
					blockDepth++
				case "END":
					if p.peek(1).Upper() == "IF" || p.peek(1).Upper() == "LOOP" || p.peek(1).Upper() == "WHILE" || p.peek(1).Upper() == "REPEAT" {
						break
					}
					if blockDepth > 0 {
						blockDepth--
					}
				}
			}
		}
		p.next()
	}
}
