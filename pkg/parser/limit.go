package parser

import "strconv"

// LimitRows returns the statement in input with LIMIT n appended. It reports
// false when the statement is not a plain query or already bounds itself
// with LIMIT, OFFSET, FETCH, a locking clause or SELECT INTO; such queries
// must be capped while reading instead. The clause goes on its own line so a
// trailing line comment cannot swallow it.
func LimitRows(input string, syntax Syntax, n int) (string, bool) {
	parsed, err := ParseAs(input, syntax)
	if err != nil {
		return "", false
	}
	sel, ok := parsed.Stmt.(*SelectStmt)
	if !ok || sel.Limit != nil || sel.Offset != nil || sel.Fetch != nil || len(sel.Locking) > 0 {
		return "", false
	}
	if core, ok := sel.Body.(*SelectCore); ok && core.Into != nil {
		return "", false
	}
	return StatementBodyAs(input, syntax) + "\nLIMIT " + strconv.Itoa(n), true
}
