package parser

// parseStatement dispatches on the leading keyword.
func (p *Parser) parseStatement() Statement {
	p.enter()
	defer p.leave()

	start := p.token.Pos
	switch {
	case p.isWord("WITH"):
		with := p.parseWith()
		return p.parseAfterWith(start, with)
	case p.isQueryStart():
		return p.parseSelectStmt(start, nil)
	case p.isAnyWord("INSERT", "REPLACE", "UPSERT"):
		return p.parseInsert(start, nil)
	case p.isWord("UPDATE"):
		return p.parseUpdate(start, nil)
	case p.isWord("DELETE"):
		return p.parseDelete(start, nil)
	case p.isWord("MERGE"):
		return p.parseMerge(start, nil)
	case p.isWord("EXPLAIN"):
		return p.parseExplain(start)
	}
	if class, ok := statementVerbs[p.token.Upper()]; ok {
		return p.parseGeneric(start, class)
	}
	p.unexpected("a SQL statement")
	return nil
}

// isQueryStart reports whether the current token can begin a query body.
func (p *Parser) isQueryStart() bool {
	switch p.token.Upper() {
	case "SELECT", "VALUES", "TABLE", "FROM":
		return true
	}
	return p.is(TOKEN_LPAREN)
}

// isStatementStart reports whether a statement (query or DML) starts at the
// current token. Used to recognise subqueries after an opening paren.
func (p *Parser) isStatementStart() bool {
	switch p.token.Upper() {
	case "SELECT", "VALUES", "TABLE", "WITH", "INSERT", "UPDATE", "DELETE", "MERGE":
		return true
	}
	return false
}

func (p *Parser) parseAfterWith(start Position, with *WithClause) Statement {
	switch {
	case p.isQueryStart():
		return p.parseSelectStmt(start, with)
	case p.isAnyWord("INSERT", "REPLACE"):
		return p.parseInsert(start, with)
	case p.isWord("UPDATE"):
		return p.parseUpdate(start, with)
	case p.isWord("DELETE"):
		return p.parseDelete(start, with)
	case p.isWord("MERGE"):
		return p.parseMerge(start, with)
	}
	p.unexpected("SELECT, INSERT, UPDATE, DELETE or MERGE after WITH")
	return nil
}

// parseWith parses WITH [RECURSIVE] name [(cols)] AS [NOT] [MATERIALIZED] (stmt), ...
func (p *Parser) parseWith() *WithClause {
	p.expectWord("WITH")
	with := &WithClause{Recursive: p.acceptWord("RECURSIVE")}
	for {
		cte := &CTE{Name: p.ident()}
		if p.is(TOKEN_LPAREN) {
			cte.Columns = p.identList()
		}
		p.expectWord("AS")
		p.acceptWord("NOT")
		p.acceptWord("MATERIALIZED")
		p.expect(TOKEN_LPAREN)
		cte.Body = p.parseStatement()
		p.expect(TOKEN_RPAREN)
		// SEARCH / CYCLE clauses only reference the CTE's own columns.
		for p.isAnyWord("SEARCH", "CYCLE") {
			for !p.is(TOKEN_COMMA) && !p.is(TOKEN_EOF) && !p.isStatementStart() && !p.is(TOKEN_LPAREN) {
				p.next()
			}
		}
		with.CTEs = append(with.CTEs, cte)
		if !p.accept(TOKEN_COMMA) {
			return with
		}
	}
}

// parseSubquery parses the statement inside a parenthesised subquery. The
// opening paren has been consumed; the closing one is consumed here.
func (p *Parser) parseSubquery() Statement {
	stmt := p.parseStatement()
	p.expect(TOKEN_RPAREN)
	return stmt
}

// parseSelectStmt parses a query body followed by ORDER BY, LIMIT, OFFSET,
// FETCH and locking clauses.
func (p *Parser) parseSelectStmt(start Position, with *WithClause) *SelectStmt {
	stmt := &SelectStmt{Pos: start, With: with}
	stmt.Body = p.parseSetOp(0)

	if p.isWord("ORDER") {
		stmt.OrderBy = p.parseOrderBy()
	}
	for {
		switch {
		case p.acceptWord("LIMIT"):
			if p.acceptWord("ALL") {
				stmt.Limit = &KeywordExpr{Word: "ALL"}
				continue
			}
			stmt.Limit = p.parseExpr()
			if p.accept(TOKEN_COMMA) {
				// MySQL LIMIT offset, count
				stmt.Offset = stmt.Limit
				stmt.Limit = p.parseExpr()
			}
		case p.acceptWord("OFFSET"):
			stmt.Offset = p.parseExpr()
			if !p.acceptWord("ROWS") {
				p.acceptWord("ROW")
			}
		case p.acceptWord("FETCH"):
			if !p.acceptWord("FIRST") {
				p.expectWord("NEXT")
			}
			if p.isAnyWord("ROW", "ROWS") {
				stmt.Fetch = &Literal{Kind: "number", Value: "1"}
			} else {
				stmt.Fetch = p.parseExpr()
				p.acceptWord("PERCENT")
			}
			if !p.acceptWord("ROWS") {
				p.expectWord("ROW")
			}
			if !p.acceptWord("ONLY") {
				p.expectWord("WITH")
				p.expectWord("TIES")
			}
		case p.isWord("FOR") || (p.isWord("LOCK") && p.isWordAt(1, "IN")):
			stmt.Locking = append(stmt.Locking, p.parseLockClause())
		default:
			return stmt
		}
	}
}

func (p *Parser) parseLockClause() *LockClause {
	lock := &LockClause{}
	if p.acceptWord("LOCK") {
		// MySQL: LOCK IN SHARE MODE
		p.expectWord("IN")
		p.expectWord("SHARE")
		p.expectWord("MODE")
		lock.Strength = "SHARE"
		return lock
	}
	p.expectWord("FOR")
	switch {
	case p.acceptWord("UPDATE"):
		lock.Strength = "UPDATE"
	case p.acceptWord("SHARE"):
		lock.Strength = "SHARE"
	case p.acceptWord("NO"):
		p.expectWord("KEY")
		p.expectWord("UPDATE")
		lock.Strength = "NO KEY UPDATE"
	case p.acceptWord("KEY"):
		p.expectWord("SHARE")
		lock.Strength = "KEY SHARE"
	default:
		p.unexpected("UPDATE or SHARE")
	}
	if p.acceptWord("OF") {
		for {
			p.qualifiedName()
			if !p.accept(TOKEN_COMMA) {
				break
			}
		}
	}
	if !p.acceptWord("NOWAIT") && p.acceptWord("SKIP") {
		p.expectWord("LOCKED")
	}
	return lock
}

func setOpPrecedence(word string) int {
	switch word {
	case "UNION", "EXCEPT", "MINUS":
		return 1
	case "INTERSECT":
		return 2
	}
	return 0
}

// parseSetOp parses set operations; INTERSECT binds tighter than UNION and EXCEPT.
func (p *Parser) parseSetOp(minPrec int) QueryBody {
	left := p.parseQueryPrimary()
	for {
		op := p.token.Upper()
		prec := setOpPrecedence(op)
		if prec == 0 || prec <= minPrec {
			return left
		}
		p.next()
		all := p.acceptWord("ALL")
		if !all {
			p.acceptWord("DISTINCT")
		}
		if p.acceptWord("BY") {
			p.expectWord("NAME")
		}
		right := p.parseSetOp(prec)
		left = &SetOperation{Op: op, All: all, Left: left, Right: right}
	}
}

func (p *Parser) parseQueryPrimary() QueryBody {
	p.enter()
	defer p.leave()

	switch {
	case p.isWord("SELECT"), p.isWord("FROM"):
		return p.parseSelectCore()
	case p.isWord("VALUES"):
		return p.parseValues()
	case p.isWord("TABLE"):
		p.next()
		return &TableBody{Table: &TableName{Parts: p.qualifiedName()}}
	case p.is(TOKEN_LPAREN):
		p.next()
		start := p.token.Pos
		var with *WithClause
		if p.isWord("WITH") {
			with = p.parseWith()
		}
		if !p.isQueryStart() {
			p.unexpected("a query")
		}
		stmt := p.parseSelectStmt(start, with)
		p.expect(TOKEN_RPAREN)
		return &ParenQuery{Stmt: stmt}
	}
	p.unexpected("SELECT, VALUES or TABLE")
	return nil
}

func (p *Parser) parseValues() *ValuesBody {
	if !p.acceptWord("VALUE") {
		p.expectWord("VALUES")
	}
	body := &ValuesBody{}
	for {
		p.acceptWord("ROW")
		p.expect(TOKEN_LPAREN)
		var row []Expr
		if !p.is(TOKEN_RPAREN) {
			row = p.parseExprList()
		}
		p.expect(TOKEN_RPAREN)
		body.Rows = append(body.Rows, row)
		if !p.accept(TOKEN_COMMA) {
			return body
		}
	}
}

func (p *Parser) parseSelectCore() *SelectCore {
	core := &SelectCore{Pos: p.token.Pos}

	if p.acceptWord("FROM") {
		// FROM-first form: FROM t [SELECT ...]
		core.From = p.parseFromList()
		if p.acceptWord("SELECT") {
			p.parseSelectList(core)
		} else {
			core.Columns = []*SelectItem{{Star: true}}
		}
	} else {
		p.expectWord("SELECT")
		p.parseSelectList(core)
		p.parseInto(core)
		if p.acceptWord("FROM") {
			core.From = p.parseFromList()
		}
	}

	if p.acceptWord("WHERE") {
		core.Where = p.parseExpr()
	}
	if p.isWord("GROUP") && p.isWordAt(1, "BY") {
		p.next()
		p.next()
		core.GroupBy = p.parseGroupingList()
	}
	if p.acceptWord("HAVING") {
		core.Having = p.parseExpr()
	}
	if p.acceptWord("WINDOW") {
		for {
			def := &WindowDef{Name: p.ident()}
			p.expectWord("AS")
			def.Spec = p.parseWindowSpec()
			core.Windows = append(core.Windows, def)
			if !p.accept(TOKEN_COMMA) {
				break
			}
		}
	}
	if p.acceptWord("QUALIFY") {
		core.Qualify = p.parseExpr()
	}
	p.parseInto(core)
	return core
}

// parseInto handles SELECT ... INTO targets: a new table (PostgreSQL,
// SQL Server), OUTFILE/DUMPFILE (MySQL) or variables.
func (p *Parser) parseInto(core *SelectCore) {
	if !p.isWord("INTO") {
		return
	}
	p.next()
	into := &TableName{}
	switch {
	case p.isAnyWord("OUTFILE", "DUMPFILE"):
		p.next()
		into.Parts = []string{p.expect(TOKEN_STRING).Literal}
		for p.isAnyWord("FIELDS", "COLUMNS", "LINES", "TERMINATED", "ENCLOSED", "ESCAPED", "STARTING", "OPTIONALLY", "BY", "CHARACTER", "SET") || p.is(TOKEN_STRING) {
			p.next()
		}
	case p.is(TOKEN_PARAM) || p.is(TOKEN_VARIABLE):
		for {
			tok := p.token
			if !p.accept(TOKEN_VARIABLE) {
				tok = p.expect(TOKEN_PARAM)
			}
			into.Parts = append(into.Parts, tok.Literal)
			if !p.accept(TOKEN_COMMA) {
				break
			}
		}
	default:
		for p.isAnyWord("TEMP", "TEMPORARY", "UNLOGGED", "TABLE") {
			p.next()
		}
		into.Parts = p.qualifiedName()
	}
	core.Into = into
}

func (p *Parser) parseSelectList(core *SelectCore) {
	if p.acceptWord("DISTINCT") {
		core.Distinct = true
		if p.acceptWord("ON") {
			p.expect(TOKEN_LPAREN)
			core.DistinctOn = p.parseExprList()
			p.expect(TOKEN_RPAREN)
		}
	} else {
		p.acceptWord("ALL")
	}
	if p.isWord("TOP") && (p.peek(1).Type == TOKEN_NUMBER || p.peek(1).Type == TOKEN_LPAREN) {
		p.next()
		p.parsePrimary()
	}
	core.Columns = p.parseSelectItems()
}

func (p *Parser) parseSelectItems() []*SelectItem {
	var items []*SelectItem
	for {
		items = append(items, p.parseSelectItem())
		if !p.accept(TOKEN_COMMA) {
			return items
		}
	}
}

func (p *Parser) parseSelectItem() *SelectItem {
	if p.isOp("*") {
		p.next()
		p.skipStarModifiers()
		return &SelectItem{Star: true}
	}
	item := &SelectItem{Expr: p.parseExpr()}
	if ref, ok := item.Expr.(*ColumnRef); ok && ref.Star {
		item.TableStar = (&TableName{Parts: ref.Parts}).Name()
		p.skipStarModifiers()
		return item
	}
	item.Alias = p.parseAlias()
	return item
}

// skipStarModifiers consumes DuckDB's * EXCLUDE (...) / REPLACE (...) /
// RENAME (...) suffixes. Their contents are parsed as expressions.
func (p *Parser) skipStarModifiers() {
	for p.isAnyWord("EXCLUDE", "REPLACE", "RENAME", "EXCEPT") && p.peek(1).Type == TOKEN_LPAREN {
		p.next()
		p.next()
		for !p.is(TOKEN_RPAREN) {
			p.parseExpr()
			p.parseAlias()
			if !p.accept(TOKEN_COMMA) {
				break
			}
		}
		p.expect(TOKEN_RPAREN)
	}
}

// parseAlias parses [AS] alias. Reserved words never become aliases.
func (p *Parser) parseAlias() string {
	if p.acceptWord("AS") {
		if p.is(TOKEN_STRING) {
			tok := p.token
			p.next()
			return tok.Literal
		}
		return p.ident()
	}
	if p.isIdent() && !p.isWriteVerb() {
		return p.ident()
	}
	return ""
}

// isWriteVerb reports whether the current token is an unquoted verb that
// starts a data or schema changing statement. Such words need AS to become
// aliases.
func (p *Parser) isWriteVerb() bool {
	_, ok := writeVerbs[p.token.Upper()]
	return ok
}

func (p *Parser) parseOrderBy() []*OrderItem {
	p.expectWord("ORDER")
	p.expectWord("BY")
	var items []*OrderItem
	for {
		item := &OrderItem{}
		if p.isWord("ALL") {
			p.next()
			item.Expr = &KeywordExpr{Word: "ALL"}
		} else {
			item.Expr = p.parseExpr()
		}
		if p.acceptWord("DESC") {
			item.Desc = true
		} else if !p.acceptWord("ASC") && p.acceptWord("USING") {
			p.next() // operator
		}
		if p.acceptWord("NULLS") {
			if !p.acceptWord("FIRST") {
				p.expectWord("LAST")
			}
		}
		items = append(items, item)
		if !p.accept(TOKEN_COMMA) {
			return items
		}
	}
}

// parseGroupingList parses GROUP BY items including ALL, ROLLUP, CUBE and
// GROUPING SETS.
func (p *Parser) parseGroupingList() []Expr {
	if p.acceptWord("ALL") {
		return []Expr{&KeywordExpr{Word: "ALL"}}
	}
	p.acceptWord("DISTINCT")
	var items []Expr
	for {
		items = append(items, p.parseGroupingItem())
		if !p.accept(TOKEN_COMMA) {
			break
		}
	}
	if p.acceptWord("WITH") {
		if !p.acceptWord("ROLLUP") {
			p.expectWord("CUBE")
		}
	}
	return items
}

func (p *Parser) parseGroupingItem() Expr {
	switch {
	case p.isWord("GROUPING") && p.isWordAt(1, "SETS"):
		p.next()
		p.next()
		p.expect(TOKEN_LPAREN)
		list := &ListExpr{Kind: "row"}
		for !p.is(TOKEN_RPAREN) {
			list.Items = append(list.Items, p.parseGroupingItem())
			if !p.accept(TOKEN_COMMA) {
				break
			}
		}
		p.expect(TOKEN_RPAREN)
		return list
	case p.is(TOKEN_LPAREN) && p.peek(1).Type == TOKEN_RPAREN:
		p.next()
		p.next()
		return &ListExpr{Kind: "row"}
	}
	return p.parseExpr()
}

// ---------- FROM ----------

func (p *Parser) parseFromList() []TableExpr {
	var items []TableExpr
	for {
		items = append(items, p.parseTableExpr())
		if !p.accept(TOKEN_COMMA) {
			return items
		}
	}
}

// parseTableExpr parses a table primary followed by any number of joins.
func (p *Parser) parseTableExpr() TableExpr {
	left := p.parseTablePrimary()
	for {
		kind, natural, ok := p.parseJoinKeyword()
		if !ok {
			return left
		}
		join := &JoinExpr{Kind: kind, Natural: natural, Left: left, Right: p.parseTablePrimary()}
		switch {
		case p.acceptWord("ON"):
			join.On = p.parseExpr()
		case p.isWord("USING"):
			p.next()
			join.Using = p.identList()
		}
		left = join
	}
}

// parseJoinKeyword consumes a join operator and returns its kind.
func (p *Parser) parseJoinKeyword() (string, bool, bool) {
	if p.acceptWord("STRAIGHT_JOIN") {
		return "INNER", false, true
	}
	natural := p.acceptWord("NATURAL")
	kind := "INNER"
	switch {
	case p.isWord("JOIN"):
	case p.isAnyWord("INNER", "CROSS", "SEMI", "ANTI", "POSITIONAL"):
		kind = p.token.Upper()
		p.next()
	case p.isAnyWord("LEFT", "RIGHT", "FULL"):
		kind = p.token.Upper()
		p.next()
		p.acceptWord("OUTER")
		if p.isAnyWord("SEMI", "ANTI") {
			kind = p.token.Upper()
			p.next()
		}
	case p.isWord("ASOF"):
		kind = "ASOF"
		p.next()
		if p.isAnyWord("LEFT", "RIGHT", "FULL", "INNER") {
			p.next()
			p.acceptWord("OUTER")
		}
	default:
		if natural {
			p.unexpected("JOIN")
		}
		return "", false, false
	}
	p.expectWord("JOIN")
	return kind, natural, true
}

func (p *Parser) parseTablePrimary() TableExpr {
	p.enter()
	defer p.leave()

	lateral := p.acceptWord("LATERAL")

	if p.is(TOKEN_LPAREN) {
		p.next()
		if p.isStatementStart() || p.is(TOKEN_LPAREN) && p.peekIsStatement() {
			derived := &DerivedTable{Lateral: lateral, Stmt: p.parseSubquery()}
			derived.Alias = p.parseTableAlias()
			return derived
		}
		inner := p.parseTableExpr()
		p.expect(TOKEN_RPAREN)
		p.parseTableAlias()
		return inner
	}

	if p.is(TOKEN_STRING) {
		// DuckDB: FROM 'data.csv'
		tbl := &TableName{Parts: []string{p.token.Literal}}
		p.next()
		tbl.Alias = p.parseTableAlias()
		return tbl
	}

	if p.isWord("ONLY") && p.peek(1).Type == TOKEN_IDENT {
		p.next()
	}
	name := p.qualifiedName()
	if p.is(TOKEN_LPAREN) {
		fn := &TableFunction{Lateral: lateral, Call: p.parseFuncCall(name)}
		p.acceptWord("WITH") // WITH ORDINALITY
		p.acceptWord("ORDINALITY")
		fn.Alias = p.parseTableAlias()
		return fn
	}
	p.acceptOp("*") // PostgreSQL inheritance marker
	tbl := &TableName{Parts: name}
	tbl.Alias = p.parseTableAlias()
	p.skipTableSample()
	return tbl
}

// peekIsStatement looks through nested parens for a statement keyword.
func (p *Parser) peekIsStatement() bool {
	for i := 0; ; i++ {
		tok := p.peek(i)
		if tok.Type == TOKEN_LPAREN {
			continue
		}
		switch tok.Upper() {
		case "SELECT", "VALUES", "TABLE", "WITH", "INSERT", "UPDATE", "DELETE", "MERGE":
			return true
		}
		return false
	}
}

func (p *Parser) parseTableAlias() string {
	if p.isAnyWord("TABLESAMPLE", "ORDINALITY") {
		return ""
	}
	alias := p.parseAlias()
	if alias != "" && p.is(TOKEN_LPAREN) && p.peek(1).Type == TOKEN_IDENT {
		p.identList()
	}
	return alias
}

func (p *Parser) skipTableSample() {
	if p.acceptWord("TABLESAMPLE") {
		p.qualifiedName()
		p.expect(TOKEN_LPAREN)
		p.parseExprList()
		p.expect(TOKEN_RPAREN)
		if p.acceptWord("REPEATABLE") {
			p.expect(TOKEN_LPAREN)
			p.parseExpr()
			p.expect(TOKEN_RPAREN)
		}
	}
}
