package parser

// parseInsert parses INSERT, REPLACE and UPSERT in their PostgreSQL,
// MySQL, SQLite and DuckDB forms.
func (p *Parser) parseInsert(start Position, with *WithClause) *InsertStmt {
	stmt := &InsertStmt{Pos: start, With: with, Verb: p.token.Upper()}
	p.next()

	for p.isAnyWord("LOW_PRIORITY", "DELAYED", "HIGH_PRIORITY", "IGNORE") {
		p.next()
	}
	if p.acceptWord("OR") {
		if !p.isAnyWord("REPLACE", "IGNORE", "ABORT", "FAIL", "ROLLBACK") {
			p.unexpected("REPLACE, IGNORE, ABORT, FAIL or ROLLBACK")
		}
		p.next()
	}
	p.acceptWord("INTO")

	stmt.Table = &TableName{Parts: p.qualifiedName()}
	if p.acceptWord("AS") {
		stmt.Table.Alias = p.ident()
	}
	if p.isWord("BY") {
		p.next()
		if !p.acceptWord("NAME") {
			p.expectWord("POSITION")
		}
	}
	if p.is(TOKEN_LPAREN) && !isStatementWord(p.peek(1).Upper()) && p.peek(1).Type != TOKEN_LPAREN {
		stmt.Columns = p.identList()
	}
	if p.acceptWord("OVERRIDING") {
		p.next() // SYSTEM | USER
		p.expectWord("VALUE")
	}

	switch {
	case p.isWord("DEFAULT"):
		p.next()
		p.expectWord("VALUES")
	case p.isWord("VALUE"):
		// MySQL accepts VALUE as a synonym.
		stmt.Source = &SelectStmt{Pos: p.token.Pos, Body: p.parseValues()}
	case p.acceptWord("SET"):
		stmt.Assign = p.parseAssignments()
	case p.isWord("WITH"):
		qstart := p.token.Pos
		stmt.Source = p.parseSelectStmt(qstart, p.parseWith())
	case p.isQueryStart():
		stmt.Source = p.parseSelectStmt(p.token.Pos, nil)
	default:
		p.unexpected("VALUES, SELECT or DEFAULT VALUES")
	}

	if p.isWord("AS") && p.peek(1).Type == TOKEN_IDENT {
		// MySQL 8 row alias: VALUES (...) AS new
		p.next()
		p.ident()
		if p.is(TOKEN_LPAREN) {
			p.identList()
		}
	}
	p.parseConflict(stmt)
	if p.acceptWord("RETURNING") {
		stmt.Returning = p.parseSelectItems()
	}
	return stmt
}

func (p *Parser) parseConflict(stmt *InsertStmt) {
	if !p.isWord("ON") {
		return
	}
	p.next()
	if p.acceptWord("DUPLICATE") {
		p.expectWord("KEY")
		p.expectWord("UPDATE")
		stmt.Assign = append(stmt.Assign, p.parseAssignments()...)
		return
	}
	p.expectWord("CONFLICT")
	switch {
	case p.is(TOKEN_LPAREN):
		p.next()
		stmt.Conflict = append(stmt.Conflict, p.parseExprList()...)
		p.expect(TOKEN_RPAREN)
		if p.acceptWord("WHERE") {
			stmt.Conflict = append(stmt.Conflict, p.parseExpr())
		}
	case p.acceptWord("ON"):
		p.expectWord("CONSTRAINT")
		p.ident()
	}
	p.expectWord("DO")
	if p.acceptWord("NOTHING") {
		return
	}
	p.expectWord("UPDATE")
	p.expectWord("SET")
	stmt.Assign = append(stmt.Assign, p.parseAssignments()...)
	if p.acceptWord("WHERE") {
		stmt.Conflict = append(stmt.Conflict, p.parseExpr())
	}
}

// parseAssignments parses col = expr, (a, b) = (expr, expr), ...
func (p *Parser) parseAssignments() []*Assignment {
	var list []*Assignment
	for {
		a := &Assignment{}
		if p.is(TOKEN_LPAREN) {
			a.Columns = p.identList()
		} else {
			name := p.qualifiedName()
			a.Columns = []string{(&TableName{Parts: name}).Name()}
			for p.is(TOKEN_LBRACKET) {
				p.next()
				p.parseExpr()
				p.expect(TOKEN_RBRACKET)
			}
		}
		if !p.acceptOp("=") {
			p.unexpected("'='")
		}
		a.Value = p.parseExpr()
		list = append(list, a)
		if !p.accept(TOKEN_COMMA) {
			return list
		}
	}
}

func (p *Parser) parseUpdate(start Position, with *WithClause) *UpdateStmt {
	p.expectWord("UPDATE")
	stmt := &UpdateStmt{Pos: start, With: with}
	for p.isAnyWord("LOW_PRIORITY", "IGNORE") {
		p.next()
	}
	if p.acceptWord("OR") {
		p.next()
	}
	stmt.Table = p.parseTableExpr()
	p.expectWord("SET")
	stmt.Set = p.parseAssignments()
	if p.acceptWord("FROM") {
		stmt.From = p.parseFromList()
	}
	if p.acceptWord("WHERE") {
		stmt.Where = p.parseWhereOrCursor()
	}
	if p.isWord("ORDER") {
		stmt.OrderBy = p.parseOrderBy()
	}
	if p.acceptWord("LIMIT") {
		stmt.Limit = p.parseExpr()
	}
	if p.acceptWord("RETURNING") {
		stmt.Returning = p.parseSelectItems()
	}
	return stmt
}

func (p *Parser) parseDelete(start Position, with *WithClause) *DeleteStmt {
	p.expectWord("DELETE")
	stmt := &DeleteStmt{Pos: start, With: with}
	for p.isAnyWord("LOW_PRIORITY", "QUICK", "IGNORE") {
		p.next()
	}
	if p.acceptWord("FROM") {
		stmt.Table = p.parseTablePrimary()
	} else {
		// MySQL multi-table form: DELETE t1, t2 FROM t1 JOIN t2 ...
		targets := []TableExpr{&TableName{Parts: p.qualifiedName()}}
		for p.accept(TOKEN_COMMA) {
			targets = append(targets, &TableName{Parts: p.qualifiedName()})
		}
		p.expectWord("FROM")
		stmt.Table = targets[0]
		stmt.Using = append(targets[1:], p.parseFromList()...)
	}
	if p.isWord("USING") {
		p.next()
		stmt.Using = append(stmt.Using, p.parseFromList()...)
	}
	if p.acceptWord("WHERE") {
		stmt.Where = p.parseWhereOrCursor()
	}
	if p.isWord("ORDER") {
		stmt.OrderBy = p.parseOrderBy()
	}
	if p.acceptWord("LIMIT") {
		stmt.Limit = p.parseExpr()
	}
	if p.acceptWord("RETURNING") {
		stmt.Returning = p.parseSelectItems()
	}
	return stmt
}

// parseWhereOrCursor parses a WHERE condition or WHERE CURRENT OF cursor.
func (p *Parser) parseWhereOrCursor() Expr {
	if p.isWord("CURRENT") && p.isWordAt(1, "OF") {
		p.next()
		p.next()
		return &KeywordExpr{Word: "CURRENT OF " + p.ident()}
	}
	return p.parseExpr()
}

// parseMerge parses MERGE INTO target USING source ON cond WHEN ... .
func (p *Parser) parseMerge(start Position, with *WithClause) *MergeStmt {
	p.expectWord("MERGE")
	p.acceptWord("INTO")
	stmt := &MergeStmt{Pos: start, With: with}
	stmt.Target = p.parseTablePrimary()
	p.expectWord("USING")
	stmt.Source = p.parseTablePrimary()
	p.expectWord("ON")
	stmt.On = p.parseExpr()

	for p.acceptWord("WHEN") {
		p.acceptWord("NOT")
		p.expectWord("MATCHED")
		if p.acceptWord("BY") {
			if !p.acceptWord("SOURCE") {
				p.expectWord("TARGET")
			}
		}
		if p.acceptWord("AND") {
			stmt.Exprs = append(stmt.Exprs, p.parseExpr())
		}
		p.expectWord("THEN")
		switch {
		case p.acceptWord("UPDATE"):
			p.expectWord("SET")
			for _, a := range p.parseAssignments() {
				stmt.Exprs = append(stmt.Exprs, a.Value)
			}
		case p.acceptWord("DELETE"):
		case p.acceptWord("INSERT"):
			if p.is(TOKEN_LPAREN) {
				p.identList()
			}
			if p.acceptWord("DEFAULT") {
				p.expectWord("VALUES")
				continue
			}
			p.expectWord("VALUES")
			p.expect(TOKEN_LPAREN)
			stmt.Exprs = append(stmt.Exprs, p.parseExprList()...)
			p.expect(TOKEN_RPAREN)
		case p.acceptWord("DO"):
			p.expectWord("NOTHING")
		default:
			p.unexpected("UPDATE, DELETE, INSERT or DO NOTHING")
		}
	}
	if p.acceptWord("RETURNING") {
		for _, item := range p.parseSelectItems() {
			if item.Expr != nil {
				stmt.Exprs = append(stmt.Exprs, item.Expr)
			}
		}
	}
	return stmt
}
