package parser

// Node is any element of the syntax tree.
type Node interface {
	node()
}

// Statement is a top-level SQL statement.
type Statement interface {
	Node
	statementNode()
	Start() Position
}

// QueryBody is the body of a query: a SELECT core, a set operation,
// VALUES, TABLE or a parenthesised query.
type QueryBody interface {
	Node
	queryBodyNode()
}

// TableExpr is an item of a FROM clause.
type TableExpr interface {
	Node
	tableExprNode()
}

// Expr is a scalar expression.
type Expr interface {
	Node
	exprNode()
}

// ---------- Statements ----------

// WithClause holds common table expressions.
type WithClause struct {
	Recursive bool
	CTEs      []*CTE
}

// CTE is one named WITH binding. Its body may be any statement, since
// PostgreSQL allows data-modifying statements there.
type CTE struct {
	Name    string
	Columns []string
	Body    Statement
}

// SelectStmt is a complete query.
type SelectStmt struct {
	Pos     Position
	With    *WithClause
	Body    QueryBody
	OrderBy []*OrderItem
	Limit   Expr
	Offset  Expr
	Fetch   Expr
	Locking []*LockClause
}

// LockClause is FOR UPDATE / FOR SHARE and friends.
type LockClause struct {
	Strength string // UPDATE, SHARE, NO KEY UPDATE, KEY SHARE
}

// InsertStmt covers INSERT, REPLACE and UPSERT.
type InsertStmt struct {
	Pos       Position
	With      *WithClause
	Verb      string
	Table     *TableName
	Columns   []string
	Source    Statement // nil for DEFAULT VALUES
	Assign    []*Assignment
	Conflict  []Expr // expressions referenced by ON CONFLICT / ON DUPLICATE KEY
	Returning []*SelectItem
}

// UpdateStmt is an UPDATE.
type UpdateStmt struct {
	Pos       Position
	With      *WithClause
	Table     TableExpr
	Set       []*Assignment
	From      []TableExpr
	Where     Expr
	Returning []*SelectItem
	OrderBy   []*OrderItem
	Limit     Expr
}

// DeleteStmt is a DELETE.
type DeleteStmt struct {
	Pos       Position
	With      *WithClause
	Table     TableExpr
	Using     []TableExpr
	Where     Expr
	Returning []*SelectItem
	OrderBy   []*OrderItem
	Limit     Expr
}

// MergeStmt is a MERGE. The WHEN clauses are kept as raw expressions.
type MergeStmt struct {
	Pos    Position
	With   *WithClause
	Target TableExpr
	Source TableExpr
	On     Expr
	Exprs  []Expr
}

// GenericStmt is any statement the parser does not model in detail: DDL,
// DCL, transaction control and administrative commands. Inner holds a
// nested statement where one is syntactically present (EXPLAIN, CREATE
// TABLE AS, CREATE VIEW AS).
type GenericStmt struct {
	Pos   Position
	Class string // ddl, dcl, transaction, admin
	Verb  string
	Inner Statement
}

// ---------- Query bodies ----------

// SelectCore is a single SELECT ... FROM ... WHERE ... block.
type SelectCore struct {
	Pos        Position
	Distinct   bool
	DistinctOn []Expr
	Columns    []*SelectItem
	Into       *TableName
	From       []TableExpr
	Where      Expr
	GroupBy    []Expr
	Having     Expr
	Windows    []*WindowDef
	Qualify    Expr
}

// SetOperation is UNION / INTERSECT / EXCEPT.
type SetOperation struct {
	Op    string
	All   bool
	Left  QueryBody
	Right QueryBody
}

// ValuesBody is a VALUES list.
type ValuesBody struct {
	Rows [][]Expr
}

// TableBody is the TABLE name shorthand.
type TableBody struct {
	Table *TableName
}

// ParenQuery is a parenthesised query used as a set operand.
type ParenQuery struct {
	Stmt *SelectStmt
}

// SelectItem is one projection entry.
type SelectItem struct {
	Expr      Expr
	Alias     string
	Star      bool
	TableStar string // qualifier for t.*
}

// OrderItem is an ORDER BY entry.
type OrderItem struct {
	Expr Expr
	Desc bool
}

// WindowDef is a named window from the WINDOW clause.
type WindowDef struct {
	Name string
	Spec *WindowSpec
}

// Assignment is column = value in SET lists.
type Assignment struct {
	Columns []string
	Value   Expr
}

// ---------- Table expressions ----------

// TableName is a possibly qualified relation reference.
type TableName struct {
	Parts []string
	Alias string
}

// Name returns the dotted name.
func (t *TableName) Name() string {
	s := ""
	for i, p := range t.Parts {
		if i > 0 {
			s += "."
		}
		s += p
	}
	return s
}

// DerivedTable is a subquery in FROM. Stmt is usually a *SelectStmt but
// may be any statement the input placed there.
type DerivedTable struct {
	Lateral bool
	Stmt    Statement
	Alias   string
}

// TableFunction is a function call in FROM, e.g. read_csv('f.csv').
type TableFunction struct {
	Lateral bool
	Call    *FuncCall
	Alias   string
}

// JoinExpr is a join between two table expressions.
type JoinExpr struct {
	Kind    string // INNER, LEFT, RIGHT, FULL, CROSS, SEMI, ANTI, ASOF, POSITIONAL
	Natural bool
	Left    TableExpr
	Right   TableExpr
	On      Expr
	Using   []string
}

// ---------- Expressions ----------

// Literal is a number, string, boolean or NULL.
type Literal struct {
	Kind  string // number, string, bool, null
	Value string
}

// Param is a placeholder.
type Param struct {
	Name string
}

// Variable is a server variable reference: @@name, or @name under SyntaxMySQL.
type Variable struct {
	Name string
}

// ColumnRef is a possibly qualified column reference. Star is set for t.*.
type ColumnRef struct {
	Parts []string
	Star  bool
}

// StarExpr is a bare * inside an expression context, e.g. count(*).
type StarExpr struct{}

// FuncCall is a function or aggregate invocation.
type FuncCall struct {
	Name     []string
	Distinct bool
	Args     []Expr
	OrderBy  []*OrderItem
	Filter   Expr
	Over     *WindowSpec
}

// WindowSpec is an OVER clause.
type WindowSpec struct {
	Ref         string
	PartitionBy []Expr
	OrderBy     []*OrderItem
	Frame       []Expr
}

// BinaryExpr covers arithmetic, comparison and logical operators.
type BinaryExpr struct {
	Op    string
	Left  Expr
	Right Expr
}

// UnaryExpr is NOT x, -x, +x, ~x.
type UnaryExpr struct {
	Op   string
	Expr Expr
}

// IsExpr is x IS [NOT] NULL/TRUE/FALSE/UNKNOWN/DISTINCT FROM y.
type IsExpr struct {
	Expr  Expr
	Not   bool
	What  string
	Other Expr
}

// InExpr is x [NOT] IN (list | subquery).
type InExpr struct {
	Expr     Expr
	Not      bool
	List     []Expr
	Subquery Statement
}

// BetweenExpr is x [NOT] BETWEEN lo AND hi.
type BetweenExpr struct {
	Expr Expr
	Not  bool
	Low  Expr
	High Expr
}

// LikeExpr covers LIKE, ILIKE, SIMILAR TO, GLOB, REGEXP.
type LikeExpr struct {
	Op      string
	Not     bool
	Expr    Expr
	Pattern Expr
	Escape  Expr
}

// QuantifiedExpr is x op ANY/ALL/SOME (subquery | array).
type QuantifiedExpr struct {
	Op         string
	Quantifier string
	Left       Expr
	Right      Expr
}

// CaseExpr is a CASE expression.
type CaseExpr struct {
	Operand Expr
	Whens   []*WhenClause
	Else    Expr
}

// WhenClause is one WHEN ... THEN ... arm.
type WhenClause struct {
	Cond   Expr
	Result Expr
}

// CastExpr is CAST(x AS t), TRY_CAST(x AS t) or x::t.
type CastExpr struct {
	Expr Expr
	Type string
}

// SubqueryExpr is a scalar subquery.
type SubqueryExpr struct {
	Stmt Statement
}

// ExistsExpr is EXISTS (subquery).
type ExistsExpr struct {
	Not  bool
	Stmt Statement
}

// ListExpr is a parenthesised row, ARRAY[...] or [...] literal.
type ListExpr struct {
	Kind  string // row, array, list
	Items []Expr
}

// StructExpr is a DuckDB {'k': v} literal.
type StructExpr struct {
	Keys   []string
	Values []Expr
}

// SubscriptExpr is x[i] or x[a:b].
type SubscriptExpr struct {
	Expr  Expr
	Index Expr
	Upper Expr
}

// FieldExpr is (x).field access.
type FieldExpr struct {
	Expr  Expr
	Field string
}

// IntervalExpr is INTERVAL 'value' [unit].
type IntervalExpr struct {
	Value Expr
	Unit  string
}

// KeywordExpr is a bare keyword in expression position, such as DEFAULT
// or a date part inside EXTRACT.
type KeywordExpr struct {
	Word string
}

// ---------- interface assertions ----------

func (*SelectStmt) node()  {}
func (*InsertStmt) node()  {}
func (*UpdateStmt) node()  {}
func (*DeleteStmt) node()  {}
func (*MergeStmt) node()   {}
func (*GenericStmt) node() {}

func (*SelectStmt) statementNode()  {}
func (*InsertStmt) statementNode()  {}
func (*UpdateStmt) statementNode()  {}
func (*DeleteStmt) statementNode()  {}
func (*MergeStmt) statementNode()   {}
func (*GenericStmt) statementNode() {}

// Start returns the statement's first position.
func (s *SelectStmt) Start() Position  { return s.Pos }
func (s *InsertStmt) Start() Position  { return s.Pos }
func (s *UpdateStmt) Start() Position  { return s.Pos }
func (s *DeleteStmt) Start() Position  { return s.Pos }
func (s *MergeStmt) Start() Position   { return s.Pos }
func (s *GenericStmt) Start() Position { return s.Pos }

func (*SelectCore) node()   {}
func (*SetOperation) node() {}
func (*ValuesBody) node()   {}
func (*TableBody) node()    {}
func (*ParenQuery) node()   {}

func (*SelectCore) queryBodyNode()   {}
func (*SetOperation) queryBodyNode() {}
func (*ValuesBody) queryBodyNode()   {}
func (*TableBody) queryBodyNode()    {}
func (*ParenQuery) queryBodyNode()   {}

func (*TableName) node()     {}
func (*DerivedTable) node()  {}
func (*TableFunction) node() {}
func (*JoinExpr) node()      {}

func (*TableName) tableExprNode()     {}
func (*DerivedTable) tableExprNode()  {}
func (*TableFunction) tableExprNode() {}
func (*JoinExpr) tableExprNode()      {}

func (*Literal) node()        {}
func (*Param) node()          {}
func (*Variable) node()       {}
func (*ColumnRef) node()      {}
func (*StarExpr) node()       {}
func (*FuncCall) node()       {}
func (*BinaryExpr) node()     {}
func (*UnaryExpr) node()      {}
func (*IsExpr) node()         {}
func (*InExpr) node()         {}
func (*BetweenExpr) node()    {}
func (*LikeExpr) node()       {}
func (*QuantifiedExpr) node() {}
func (*CaseExpr) node()       {}
func (*CastExpr) node()       {}
func (*SubqueryExpr) node()   {}
func (*ExistsExpr) node()     {}
func (*ListExpr) node()       {}
func (*StructExpr) node()     {}
func (*SubscriptExpr) node()  {}
func (*FieldExpr) node()      {}
func (*IntervalExpr) node()   {}
func (*KeywordExpr) node()    {}

func (*Literal) exprNode()        {}
func (*Param) exprNode()          {}
func (*Variable) exprNode()       {}
func (*ColumnRef) exprNode()      {}
func (*StarExpr) exprNode()       {}
func (*FuncCall) exprNode()       {}
func (*BinaryExpr) exprNode()     {}
func (*UnaryExpr) exprNode()      {}
func (*IsExpr) exprNode()         {}
func (*InExpr) exprNode()         {}
func (*BetweenExpr) exprNode()    {}
func (*LikeExpr) exprNode()       {}
func (*QuantifiedExpr) exprNode() {}
func (*CaseExpr) exprNode()       {}
func (*CastExpr) exprNode()       {}
func (*SubqueryExpr) exprNode()   {}
func (*ExistsExpr) exprNode()     {}
func (*ListExpr) exprNode()       {}
func (*StructExpr) exprNode()     {}
func (*SubscriptExpr) exprNode()  {}
func (*FieldExpr) exprNode()      {}
func (*IntervalExpr) exprNode()   {}
func (*KeywordExpr) exprNode()    {}
