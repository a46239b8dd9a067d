package parser

// Visitor is called for every node reached by Walk. Returning false skips
// the node's children.
type Visitor func(n Node) bool

// Walk traverses the tree rooted at n in depth-first order, including
// subqueries, CTE bodies and nested statements.
func Walk(n Node, v Visitor) {
	if isNil(n) || !v(n) {
		return
	}
	switch n := n.(type) {
	case *SelectStmt:
		walkWith(n.With, v)
		Walk(n.Body, v)
		walkOrder(n.OrderBy, v)
		walkExprs(v, n.Limit, n.Offset, n.Fetch)
	case *InsertStmt:
		walkWith(n.With, v)
		Walk(n.Table, v)
		Walk(n.Source, v)
		walkAssignments(n.Assign, v)
		walkExprs(v, n.Conflict...)
		walkItems(n.Returning, v)
	case *UpdateStmt:
		walkWith(n.With, v)
		Walk(n.Table, v)
		walkAssignments(n.Set, v)
		walkTables(n.From, v)
		walkExprs(v, n.Where)
		walkItems(n.Returning, v)
		walkOrder(n.OrderBy, v)
		walkExprs(v, n.Limit)
	case *DeleteStmt:
		walkWith(n.With, v)
		Walk(n.Table, v)
		walkTables(n.Using, v)
		walkExprs(v, n.Where)
		walkItems(n.Returning, v)
		walkOrder(n.OrderBy, v)
		walkExprs(v, n.Limit)
	case *MergeStmt:
		walkWith(n.With, v)
		Walk(n.Target, v)
		Walk(n.Source, v)
		walkExprs(v, n.On)
		walkExprs(v, n.Exprs...)
	case *GenericStmt:
		Walk(n.Inner, v)

	case *SelectCore:
		walkExprs(v, n.DistinctOn...)
		walkItems(n.Columns, v)
		Walk(n.Into, v)
		walkTables(n.From, v)
		walkExprs(v, n.Where)
		walkExprs(v, n.GroupBy...)
		walkExprs(v, n.Having)
		for _, w := range n.Windows {
			walkWindow(w.Spec, v)
		}
		walkExprs(v, n.Qualify)
	case *SetOperation:
		Walk(n.Left, v)
		Walk(n.Right, v)
	case *ValuesBody:
		for _, row := range n.Rows {
			walkExprs(v, row...)
		}
	case *TableBody:
		Walk(n.Table, v)
	case *ParenQuery:
		Walk(n.Stmt, v)

	case *DerivedTable:
		Walk(n.Stmt, v)
	case *TableFunction:
		Walk(n.Call, v)
	case *JoinExpr:
		Walk(n.Left, v)
		Walk(n.Right, v)
		walkExprs(v, n.On)

	case *FuncCall:
		walkExprs(v, n.Args...)
		walkOrder(n.OrderBy, v)
		walkExprs(v, n.Filter)
		walkWindow(n.Over, v)
	case *BinaryExpr:
		walkExprs(v, n.Left, n.Right)
	case *UnaryExpr:
		walkExprs(v, n.Expr)
	case *IsExpr:
		walkExprs(v, n.Expr, n.Other)
	case *InExpr:
		walkExprs(v, n.Expr)
		walkExprs(v, n.List...)
		Walk(n.Subquery, v)
	case *BetweenExpr:
		walkExprs(v, n.Expr, n.Low, n.High)
	case *LikeExpr:
		walkExprs(v, n.Expr, n.Pattern, n.Escape)
	case *QuantifiedExpr:
		walkExprs(v, n.Left, n.Right)
	case *CaseExpr:
		walkExprs(v, n.Operand)
		for _, w := range n.Whens {
			walkExprs(v, w.Cond, w.Result)
		}
		walkExprs(v, n.Else)
	case *CastExpr:
		walkExprs(v, n.Expr)
	case *SubqueryExpr:
		Walk(n.Stmt, v)
	case *ExistsExpr:
		Walk(n.Stmt, v)
	case *ListExpr:
		walkExprs(v, n.Items...)
	case *StructExpr:
		walkExprs(v, n.Values...)
	case *SubscriptExpr:
		walkExprs(v, n.Expr, n.Index, n.Upper)
	case *FieldExpr:
		walkExprs(v, n.Expr)
	case *IntervalExpr:
		walkExprs(v, n.Value)
	}
}

// isNil reports whether n is nil or a typed nil pointer.
func isNil(n Node) bool {
	if n == nil {
		return true
	}
	switch n := n.(type) {
	case *SelectStmt:
		return n == nil
	case *TableName:
		return n == nil
	case *FuncCall:
		return n == nil
	}
	return false
}

func walkWith(w *WithClause, v Visitor) {
	if w == nil {
		return
	}
	for _, cte := range w.CTEs {
		Walk(cte.Body, v)
	}
}

func walkExprs(v Visitor, exprs ...Expr) {
	for _, e := range exprs {
		if e != nil {
			Walk(e, v)
		}
	}
}

func walkItems(items []*SelectItem, v Visitor) {
	for _, item := range items {
		walkExprs(v, item.Expr)
	}
}

func walkOrder(items []*OrderItem, v Visitor) {
	for _, item := range items {
		walkExprs(v, item.Expr)
	}
}

func walkTables(tables []TableExpr, v Visitor) {
	for _, t := range tables {
		Walk(t, v)
	}
}

func walkAssignments(list []*Assignment, v Visitor) {
	for _, a := range list {
		walkExprs(v, a.Value)
	}
}

func walkWindow(spec *WindowSpec, v Visitor) {
	if spec == nil {
		return
	}
	walkExprs(v, spec.PartitionBy...)
	walkOrder(spec.OrderBy, v)
	walkExprs(v, spec.Frame...)
}
