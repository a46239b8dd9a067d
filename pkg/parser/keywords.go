package parser

// reservedWords cannot be used as bare aliases or column names. Everything
// else lexes as an ordinary identifier and is matched contextually, which
// keeps the parser tolerant of dialect-specific keywords.
var reservedWords = map[string]struct{}{
	"ALL": {}, "AND": {}, "ANY": {}, "AS": {}, "BETWEEN": {}, "BY": {}, "CASE": {}, "CROSS": {},
	"DISTINCT": {}, "ELSE": {}, "END": {}, "EXCEPT": {}, "EXISTS": {}, "FALSE": {}, "FETCH": {},
	"FOR": {}, "FROM": {}, "FULL": {}, "GROUP": {}, "HAVING": {}, "ILIKE": {}, "IN": {},
	"INNER": {}, "INTERSECT": {}, "INTO": {}, "IS": {}, "JOIN": {}, "LATERAL": {}, "LEFT": {},
	"LIKE": {}, "LIMIT": {}, "MINUS": {}, "NATURAL": {}, "NOT": {}, "NULL": {}, "OFFSET": {},
	"ON": {}, "OR": {}, "ORDER": {}, "OUTER": {}, "QUALIFY": {}, "RETURNING": {}, "RIGHT": {},
	"SELECT": {}, "SET": {}, "SOME": {}, "THEN": {}, "TRUE": {}, "UNION": {}, "USING": {},
	"VALUES": {}, "WHEN": {}, "WHERE": {}, "WINDOW": {}, "WITH": {}, "SEMI": {}, "ANTI": {},
	"ASOF": {}, "POSITIONAL": {}, "STRAIGHT_JOIN": {},
}

var writeVerbs = map[string]struct{}{
	"INSERT": {}, "UPDATE": {}, "DELETE": {}, "MERGE": {}, "REPLACE": {}, "UPSERT": {},
	"CREATE": {}, "ALTER": {}, "DROP": {}, "TRUNCATE": {}, "GRANT": {}, "REVOKE": {},
}

func isReserved(upper string) bool {
	_, ok := reservedWords[upper]
	return ok
}

// statementVerbs maps leading keywords of non-query statements to their class.
var statementVerbs = map[string]string{
	// DDL
	"CREATE": "ddl", "ALTER": "ddl", "DROP": "ddl", "TRUNCATE": "ddl", "RENAME": "ddl",
	"COMMENT": "ddl",
	// DCL
	"GRANT": "dcl", "REVOKE": "dcl", "DENY": "dcl",
	// Transaction control
	"BEGIN": "transaction", "START": "transaction", "COMMIT": "transaction",
	"ROLLBACK": "transaction", "SAVEPOINT": "transaction", "RELEASE": "transaction",
	"ABORT": "transaction",
	// Administration and utility
	"SHOW": "admin", "DESCRIBE": "admin", "DESC": "admin", "SET": "admin", "RESET": "admin",
	"PRAGMA": "admin", "VACUUM": "admin", "ANALYZE": "admin", "ANALYSE": "admin", "COPY": "admin",
	"CALL": "admin", "EXEC": "admin", "EXECUTE": "admin", "ATTACH": "admin", "DETACH": "admin",
	"INSTALL": "admin", "LOAD": "admin", "USE": "admin", "LOCK": "admin", "UNLOCK": "admin",
	"CHECKPOINT": "admin", "EXPORT": "admin", "IMPORT": "admin", "KILL": "admin",
	"REFRESH": "admin", "REINDEX": "admin", "CLUSTER": "admin", "DO": "admin", "PREPARE": "admin",
	"DEALLOCATE": "admin", "LISTEN": "admin", "NOTIFY": "admin", "UNLISTEN": "admin",
	"DISCARD": "admin", "SUMMARIZE": "admin", "FLUSH": "admin", "OPTIMIZE": "admin",
	"HANDLER": "admin", "SECURITY": "admin", "REASSIGN": "admin", "END": "transaction",
}

// StatementClass returns the class of a statement that begins with the
// given keyword: query, dml, ddl, dcl, transaction or admin. It returns ""
// for words that cannot start a statement.
func StatementClass(word string) string {
	switch word {
	case "SELECT", "WITH", "VALUES", "TABLE", "FROM":
		return "query"
	case "INSERT", "UPDATE", "DELETE", "MERGE", "REPLACE", "UPSERT":
		return "dml"
	case "EXPLAIN":
		return "admin"
	}
	return statementVerbs[word]
}
