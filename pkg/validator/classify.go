package validator

import (
	"strings"

	"github.com/leapstack-labs/leapgate/pkg/core"
	"github.com/leapstack-labs/leapgate/pkg/parser"
)

// sideEffectFunctions mutate server state or run arbitrary SQL text even
// when called from a SELECT.
var sideEffectFunctions = map[string]bool{
	// PostgreSQL
	"pg_terminate_backend": true, "pg_cancel_backend": true, "pg_reload_conf": true,
	"pg_rotate_logfile": true, "pg_switch_wal": true, "pg_create_restore_point": true,
	"pg_promote": true, "pg_stat_reset": true, "pg_stat_reset_shared": true,
	"set_config": true, "nextval": true, "setval": true,
	"lo_import": true, "lo_export": true, "lo_unlink": true, "lo_create": true, "lo_creat": true,
	"lo_from_bytea": true, "lo_put": true, "lo_truncate": true,
	"pg_file_write": true, "pg_file_rename": true, "pg_file_unlink": true,
	"dblink": true, "dblink_exec": true, "dblink_connect": true,
	"query_to_xml": true, "query_to_xmlschema": true, "query_to_xml_and_xmlschema": true,
	"pg_logical_emit_message": true, "pg_drop_replication_slot": true,
	"pg_create_logical_replication_slot": true, "pg_create_physical_replication_slot": true,
	"pg_advisory_lock": true, "pg_advisory_lock_shared": true,
	"pg_try_advisory_lock": true, "pg_try_advisory_lock_shared": true,
	"pg_advisory_xact_lock": true, "pg_advisory_xact_lock_shared": true,
	"pg_try_advisory_xact_lock": true, "pg_try_advisory_xact_lock_shared": true,
	"pg_advisory_unlock": true, "pg_advisory_unlock_shared": true, "pg_advisory_unlock_all": true,
	"pg_notify": true,
	// MySQL
	"get_lock": true, "release_lock": true, "release_all_locks": true,
	// SQLite
	"load_extension": true, "writefile": true,
	// DuckDB
	"query": true, "query_table": true,
}

type classification struct {
	stmtType core.StatementType
	readOnly bool
}

// classify walks the statement tree. A statement is read-only only when its
// root is a query and nothing inside it mutates: no DML or DDL in a CTE or
// subquery, no SELECT INTO and no side-effecting function call.
func classify(stmt parser.Statement) classification {
	rootType := statementType(stmt)
	mutation := core.StatementType("")

	parser.Walk(stmt, func(n parser.Node) bool {
		if mutation != "" {
			return false
		}
		switch n := n.(type) {
		case *parser.InsertStmt, *parser.UpdateStmt, *parser.DeleteStmt, *parser.MergeStmt:
			mutation = core.StatementDML
		case *parser.GenericStmt:
			mutation = core.StatementType(n.Class)
		case *parser.SelectCore:
			if n.Into != nil {
				mutation = core.StatementDDL
			}
		case *parser.FuncCall:
			if len(n.Name) > 0 && sideEffectFunctions[strings.ToLower(n.Name[len(n.Name)-1])] {
				mutation = core.StatementAdmin
			}
		}
		return true
	})

	c := classification{stmtType: rootType, readOnly: rootType == core.StatementQuery && mutation == ""}
	if rootType == core.StatementQuery && mutation != "" {
		c.stmtType = mutation
	}
	return c
}

func statementType(stmt parser.Statement) core.StatementType {
	switch s := stmt.(type) {
	case *parser.SelectStmt:
		return core.StatementQuery
	case *parser.InsertStmt, *parser.UpdateStmt, *parser.DeleteStmt, *parser.MergeStmt:
		return core.StatementDML
	case *parser.GenericStmt:
		return core.StatementType(s.Class)
	}
	return core.StatementUnknown
}
