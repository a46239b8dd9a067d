package validator

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapgate/pkg/core"
)

func TestValidate_ReadOnlyClassification(t *testing.T) {
	tests := []struct {
		name     string
		sql      string
		readOnly bool
		stmtType core.StatementType
	}{
		{"plain select", "SELECT * FROM users", true, core.StatementQuery},
		{"delete", "DELETE FROM users WHERE id=1", false, core.StatementDML},
		{"delete in cte", "WITH t AS (DELETE FROM x RETURNING *) SELECT * FROM t", false, core.StatementDML},
		{"select cte", "WITH t AS (SELECT 1 AS n) SELECT n FROM t", true, core.StatementQuery},
		{"union", "SELECT a FROM x UNION SELECT b FROM y", true, core.StatementQuery},
		{"values", "VALUES (1), (2)", true, core.StatementQuery},
		{"table", "TABLE users", true, core.StatementQuery},
		{"keyword in string", "SELECT 'DELETE FROM users; DROP TABLE x' AS s", true, core.StatementQuery},
		{"keyword as identifier", `SELECT "delete", "update" FROM "insert"`, true, core.StatementQuery},
		{"keyword in comment", "SELECT 1 -- DROP TABLE users", true, core.StatementQuery},
		{"insert", "INSERT INTO t VALUES (1)", false, core.StatementDML},
		{"update", "UPDATE t SET a = 1 WHERE id = 2", false, core.StatementDML},
		{"merge", "MERGE INTO t USING s ON t.id = s.id WHEN MATCHED THEN DELETE", false, core.StatementDML},
		{"insert in nested cte", "WITH a AS (WITH b AS (INSERT INTO t VALUES (1) RETURNING id) SELECT * FROM b) SELECT * FROM a", false, core.StatementDML},
		{"dml in derived table", "SELECT * FROM (UPDATE t SET a = 1 RETURNING *) x", false, core.StatementDML},
		{"select into", "SELECT * INTO backup FROM users", false, core.StatementDDL},
		{"side effect function", "SELECT pg_terminate_backend(pid) FROM pg_stat_activity", false, core.StatementAdmin},
		{"nextval", "SELECT nextval('seq')", false, core.StatementAdmin},
		{"side effect in subquery", "SELECT * FROM t WHERE id IN (SELECT setval('s', 1))", false, core.StatementAdmin},
		{"advisory lock", "SELECT pg_advisory_lock(42)", false, core.StatementAdmin},
		{"advisory xact lock", "SELECT pg_try_advisory_xact_lock(1, 2)", false, core.StatementAdmin},
		{"notify", "SELECT pg_notify('jobs', 'x')", false, core.StatementAdmin},
		{"mysql named lock", "SELECT GET_LOCK('job', 10)", false, core.StatementAdmin},
		{"create", "CREATE TABLE t (id int)", false, core.StatementDDL},
		{"drop", "DROP TABLE users", false, core.StatementDDL},
		{"truncate", "TRUNCATE orders", false, core.StatementDDL},
		{"grant", "GRANT ALL ON t TO public", false, core.StatementDCL},
		{"begin", "BEGIN", false, core.StatementTransaction},
		{"explain", "EXPLAIN SELECT 1", false, core.StatementAdmin},
		{"set", "SET statement_timeout = 0", false, core.StatementAdmin},
		{"pragma", "PRAGMA journal_mode = WAL", false, core.StatementAdmin},
		{"attach", "ATTACH 'other.db' AS other", false, core.StatementAdmin},
		{"for update stays read-only", "SELECT * FROM t WHERE id = 1 FOR UPDATE", true, core.StatementQuery},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Validate(tt.sql)
			require.True(t, res.Valid, "errors: %v", res.Errors)
			assert.Equal(t, tt.readOnly, res.ReadOnly)
			assert.Equal(t, tt.stmtType, res.StatementType)
		})
	}
}

func TestValidate_Empty(t *testing.T) {
	for _, sql := range []string{"", "   ", "\n\t"} {
		res := Validate(sql)
		assert.False(t, res.Valid)
		require.Len(t, res.Errors, 1)
		assert.Equal(t, EmptyMessage, res.Errors[0].Message)
		assert.Zero(t, res.Errors[0].Line)
		assert.False(t, res.ReadOnly)
	}
}

func TestValidate_SyntaxErrors(t *testing.T) {
	tests := []struct {
		name     string
		sql      string
		line     int
		column   int
		stmtType core.StatementType
	}{
		{"typo", "SELEC * FROM users", 1, 1, core.StatementUnknown},
		{"missing expression", "SELECT * FROM users WHERE", 1, 26, core.StatementQuery},
		{"multi line", "SELECT id,\n       name\n  FROM users\n WHERE id = = 1", 4, 13, core.StatementQuery},
		{"multiple statements", "SELECT 1; DELETE FROM users", 1, 11, core.StatementQuery},
		{"unterminated string", "SELECT 'abc FROM t", 1, 8, core.StatementQuery},
		{"broken delete", "DELETE users WHERE", 1, 14, core.StatementDML},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Validate(tt.sql)
			assert.False(t, res.Valid)
			assert.False(t, res.ReadOnly)
			require.Len(t, res.Errors, 1, "only the first fatal error is reported")
			assert.Equal(t, tt.line, res.Errors[0].Line, res.Errors[0].Message)
			assert.Equal(t, tt.column, res.Errors[0].Column, res.Errors[0].Message)
			assert.Equal(t, tt.stmtType, res.StatementType)
		})
	}
}

func TestValidate_MultipleStatementsMessage(t *testing.T) {
	res := Validate("SELECT 1;\nDROP TABLE users;")
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "multiple statements are not supported", res.Errors[0].Message)
	assert.Equal(t, 2, res.Errors[0].Line)
	assert.Equal(t, 1, res.Errors[0].Column)

	assert.True(t, Validate("SELECT 1;").Valid, "a single trailing semicolon is allowed")
}

func TestValidate_Parameters(t *testing.T) {
	tests := []struct {
		sql  string
		want []string
	}{
		{"SELECT * FROM t", []string{}},
		{"SELECT * FROM t WHERE a = ? AND b = ?", []string{"?1", "?2"}},
		{"SELECT * FROM t WHERE a = $1 AND b = $2 OR a = $1", []string{"$1", "$2"}},
		{"SELECT * FROM t WHERE a = :id AND b = :name AND c = :id", []string{":id", ":name"}},
		{"SELECT * FROM t WHERE a = @user", []string{"@user"}},
		{"SELECT @@version", []string{}},
		{"SELECT a::int FROM t WHERE b = :b", []string{":b"}},
		{"SELECT '?' , ':not_a_param' FROM t WHERE x = ?", []string{"?1"}},
	}
	for _, tt := range tests {
		t.Run(tt.sql, func(t *testing.T) {
			res := Validate(tt.sql)
			require.True(t, res.Valid, "errors: %v", res.Errors)
			assert.Equal(t, tt.want, res.Parameters)
		})
	}
}

func TestValidateFor_MySQLLexing(t *testing.T) {
	tests := []struct {
		name  string
		sql   string
		valid bool
		kinds []core.EngineKind
	}{
		{
			name:  "hash comment hides a statement",
			sql:   "SELECT 1 # 'x\nDELETE FROM t -- '",
			kinds: []core.EngineKind{core.EngineMySQL},
		},
		{
			name:  "executable comment",
			sql:   "SELECT 1 /*! , sleep(5) */",
			kinds: []core.EngineKind{core.EngineMySQL, core.EnginePostgres, core.EngineSQLite, core.EngineDuckDB},
		},
		{
			name:  "mariadb executable comment",
			sql:   "SELECT 1 /*M! , sleep(5) */",
			kinds: []core.EngineKind{core.EngineMySQL, core.EngineDuckDB},
		},
		{
			name:  "optimizer hint",
			sql:   "SELECT /*+ SET_VAR(sql_mode='') */ 1",
			kinds: []core.EngineKind{core.EngineMySQL, core.EnginePostgres},
		},
		{
			name:  "unnested comment ends early",
			sql:   "SELECT /* a /* b */ 1 */",
			kinds: []core.EngineKind{core.EngineMySQL},
		},
		{
			name:  "plain comments",
			sql:   "SELECT 1 -- done\n/* note */",
			valid: true,
			kinds: []core.EngineKind{core.EngineMySQL, core.EnginePostgres},
		},
	}
	for _, tt := range tests {
		for _, kind := range tt.kinds {
			t.Run(tt.name+"/"+string(kind), func(t *testing.T) {
				res := ValidateFor(tt.sql, kind)
				assert.Equal(t, tt.valid, res.Valid, "errors: %v", res.Errors)
				if !tt.valid {
					assert.False(t, res.ReadOnly)
					assert.NotEmpty(t, res.Errors)
				}
			})
		}
	}
}

func TestValidateFor_MySQLVariables(t *testing.T) {
	res := ValidateFor("SELECT @total := @total + 1, @@version", core.EngineMySQL)
	require.True(t, res.Valid, "errors: %v", res.Errors)
	assert.Empty(t, res.Parameters)

	res = ValidateFor("SELECT * FROM t WHERE a = @user", core.EngineSQLite)
	assert.Equal(t, []string{"@user"}, res.Parameters)
}

func warningRules(res core.ValidationResult) []string {
	ids := []string{}
	for _, w := range res.Warnings {
		ids = append(ids, w.Rule)
	}
	return ids
}

func TestValidate_Warnings(t *testing.T) {
	tests := []struct {
		name string
		sql  string
		want []string
	}{
		{"clean", "SELECT id FROM users LIMIT 10", []string{}},
		{"missing limit", "SELECT id FROM users", []string{"LM01"}},
		{"star and missing limit", "SELECT * FROM users", []string{"LM01", "ST01"}},
		{"aggregate only", "SELECT count(*) FROM users", []string{}},
		{"no from", "SELECT 1", []string{}},
		{"grouped", "SELECT dept, count(*) FROM emp GROUP BY dept LIMIT 5", []string{}},
		{"fetch counts as limit", "SELECT id FROM t FETCH FIRST 5 ROWS ONLY", []string{}},
		{"unfiltered delete", "DELETE FROM users", []string{"DM01"}},
		{"unfiltered update", "UPDATE users SET active = false", []string{"DM01"}},
		{"filtered delete", "DELETE FROM users WHERE id = 1", []string{}},
		{"locking", "SELECT id FROM t WHERE id = 1 LIMIT 1 FOR UPDATE", []string{"LK01"}},
		{"comma join", "SELECT a.id FROM a, b LIMIT 1", []string{"CJ01"}},
		{"comma join with predicate", "SELECT a.id FROM a, b WHERE a.id = b.id LIMIT 1", []string{}},
		{"cross join", "SELECT a.id FROM a CROSS JOIN b LIMIT 1", []string{"CJ01"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Validate(tt.sql)
			require.True(t, res.Valid, "errors: %v", res.Errors)
			assert.Equal(t, tt.want, warningRules(res))
		})
	}
}

func TestValidate_WarningsDoNotAffectValidity(t *testing.T) {
	res := Validate("SELECT * FROM a, b")
	assert.True(t, res.Valid)
	assert.True(t, res.ReadOnly)
	assert.NotEmpty(t, res.Warnings)
	assert.Empty(t, res.Errors)
}

func TestValidate_Idempotent(t *testing.T) {
	inputs := []string{
		"SELECT * FROM users",
		"WITH t AS (DELETE FROM x RETURNING *) SELECT * FROM t",
		"SELECT * FROM t WHERE a = ? AND b = :b",
		"SELEC broken",
		"",
	}
	want := make([]core.ValidationResult, len(inputs))
	for i, sql := range inputs {
		want[i] = Validate(sql)
	}

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := len(inputs) - 1; i >= 0; i-- {
				assert.Equal(t, want[i], Validate(inputs[i]))
			}
		}()
	}
	wg.Wait()
}

func TestRules_Metadata(t *testing.T) {
	seen := map[string]bool{}
	for _, r := range Rules() {
		assert.NotEmpty(t, r.ID)
		assert.NotEmpty(t, r.Name)
		assert.NotEmpty(t, r.Description)
		assert.NotNil(t, r.Check)
		assert.False(t, seen[r.ID], "duplicate rule %s", r.ID)
		seen[r.ID] = true
	}
}
