package validator

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/leapgate/pkg/core"
	"github.com/leapstack-labs/leapgate/pkg/parser"
)

// RuleDef is a data-driven warning rule. Rules are stateless and never
// affect validity.
type RuleDef struct {
	ID          string // e.g. "LM01"
	Name        string // e.g. "limit.missing"
	Description string
	Check       func(stmt parser.Statement) []string
}

var rules = []RuleDef{
	MissingLimit,
	SelectStar,
	UnfilteredMutation,
	LockingRead,
	CrossJoin,
}

// Rules returns the registered warning rules in evaluation order.
func Rules() []RuleDef {
	return append([]RuleDef(nil), rules...)
}

func runRules(stmt parser.Statement) []core.Warning {
	warnings := []core.Warning{}
	for _, r := range rules {
		for _, msg := range r.Check(stmt) {
			warnings = append(warnings, core.Warning{Rule: r.ID, Message: msg})
		}
	}
	return warnings
}

// MissingLimit warns about top-level queries that can return unbounded rows.
var MissingLimit = RuleDef{
	ID:          "LM01",
	Name:        "limit.missing",
	Description: "Top-level SELECT has no LIMIT or FETCH clause.",
	Check: func(stmt parser.Statement) []string {
		sel, ok := stmt.(*parser.SelectStmt)
		if !ok || sel.Limit != nil || sel.Fetch != nil || bounded(sel.Body) {
			return nil
		}
		return []string{"no LIMIT clause on unbounded SELECT; the server row cap will apply"}
	},
}

// bounded reports whether a query body returns a small, fixed number of rows.
func bounded(body parser.QueryBody) bool {
	switch b := body.(type) {
	case *parser.ValuesBody:
		return true
	case *parser.ParenQuery:
		return b.Stmt.Limit != nil || b.Stmt.Fetch != nil || bounded(b.Stmt.Body)
	case *parser.SelectCore:
		if len(b.From) == 0 {
			return true
		}
		if len(b.GroupBy) > 0 {
			return false
		}
		for _, item := range b.Columns {
			if item.Star || !isAggregate(item.Expr) {
				return false
			}
		}
		return true
	}
	return false
}

var aggregateFunctions = map[string]bool{
	"count": true, "sum": true, "avg": true, "min": true, "max": true,
	"bool_and": true, "bool_or": true, "every": true, "string_agg": true, "array_agg": true,
	"group_concat": true, "listagg": true, "stddev": true, "variance": true, "median": true,
	"approx_count_distinct": true, "json_agg": true, "jsonb_agg": true, "list": true,
}

func isAggregate(e parser.Expr) bool {
	switch e := e.(type) {
	case *parser.FuncCall:
		return e.Over == nil && len(e.Name) > 0 && aggregateFunctions[strings.ToLower(e.Name[len(e.Name)-1])]
	case *parser.Literal:
		return true
	case *parser.CastExpr:
		return isAggregate(e.Expr)
	case *parser.BinaryExpr:
		return isAggregate(e.Left) && isAggregate(e.Right)
	}
	return false
}

// SelectStar warns when a projection uses * or t.*.
var SelectStar = RuleDef{
	ID:          "ST01",
	Name:        "select.star",
	Description: "Projection selects every column with *.",
	Check: func(stmt parser.Statement) []string {
		found := false
		parser.Walk(stmt, func(n parser.Node) bool {
			if sc, ok := n.(*parser.SelectCore); ok {
				for _, item := range sc.Columns {
					if item.Star || item.TableStar != "" {
						found = true
					}
				}
			}
			return !found
		})
		if !found {
			return nil
		}
		return []string{"SELECT * returns every column; list the columns you need"}
	},
}

// UnfilteredMutation warns about UPDATE and DELETE without WHERE.
var UnfilteredMutation = RuleDef{
	ID:          "DM01",
	Name:        "mutation.unfiltered",
	Description: "UPDATE or DELETE without a WHERE clause affects every row.",
	Check: func(stmt parser.Statement) []string {
		var msgs []string
		parser.Walk(stmt, func(n parser.Node) bool {
			switch s := n.(type) {
			case *parser.UpdateStmt:
				if s.Where == nil {
					msgs = append(msgs, fmt.Sprintf("UPDATE of %s has no WHERE clause and affects every row", tableLabel(s.Table)))
				}
			case *parser.DeleteStmt:
				if s.Where == nil {
					msgs = append(msgs, fmt.Sprintf("DELETE from %s has no WHERE clause and affects every row", tableLabel(s.Table)))
				}
			}
			return true
		})
		return msgs
	},
}

func tableLabel(t parser.TableExpr) string {
	if name, ok := t.(*parser.TableName); ok {
		return name.Name()
	}
	return "table"
}

// LockingRead warns about SELECT ... FOR UPDATE / FOR SHARE.
var LockingRead = RuleDef{
	ID:          "LK01",
	Name:        "select.locking",
	Description: "Query takes row locks.",
	Check: func(stmt parser.Statement) []string {
		var msgs []string
		parser.Walk(stmt, func(n parser.Node) bool {
			if sel, ok := n.(*parser.SelectStmt); ok {
				for _, l := range sel.Locking {
					msgs = append(msgs, fmt.Sprintf("FOR %s takes row locks that are held until the statement finishes", l.Strength))
				}
			}
			return true
		})
		return msgs
	},
}

// CrossJoin warns about cartesian products.
var CrossJoin = RuleDef{
	ID:          "CJ01",
	Name:        "join.cross",
	Description: "Join produces a cartesian product.",
	Check: func(stmt parser.Statement) []string {
		var msgs []string
		parser.Walk(stmt, func(n parser.Node) bool {
			switch x := n.(type) {
			case *parser.SelectCore:
				if len(x.From) > 1 && x.Where == nil {
					msgs = append(msgs, "comma-separated FROM items without a WHERE clause produce a cross product")
				}
			case *parser.JoinExpr:
				if x.Kind == "CROSS" {
					msgs = append(msgs, "CROSS JOIN produces a cartesian product")
				}
			}
			return true
		})
		return msgs
	},
}
