package core

// StatementType is the coarse classification of a parsed statement.
type StatementType string

// Statement types reported by the validator.
const (
	StatementQuery       StatementType = "query"
	StatementDML         StatementType = "dml"
	StatementDDL         StatementType = "ddl"
	StatementDCL         StatementType = "dcl"
	StatementTransaction StatementType = "transaction"
	StatementAdmin       StatementType = "admin"
	StatementUnknown     StatementType = "unknown"
)

// ValidationIssue is a fatal problem found in SQL text.
// Line and Column are 1-based; zero means the position is unknown.
type ValidationIssue struct {
	Message string `json:"message"`
	Line    int    `json:"line,omitempty"`
	Column  int    `json:"column,omitempty"`
}

// Warning is a non-fatal finding that does not affect validity.
type Warning struct {
	Rule    string `json:"rule,omitempty"`
	Message string `json:"message"`
}

// ValidationResult is the outcome of validating SQL text.
// It is a pure function of the text and never depends on a data source.
type ValidationResult struct {
	Valid         bool              `json:"isValid"`
	Errors        []ValidationIssue `json:"errors"`
	Warnings      []Warning         `json:"warnings"`
	ReadOnly      bool              `json:"isReadOnly"`
	StatementType StatementType     `json:"statementType,omitempty"`
	Parameters    []string          `json:"parameters"`
}

// Clone returns a deep copy of the result.
func (r ValidationResult) Clone() ValidationResult {
	out := r
	out.Errors = append([]ValidationIssue{}, r.Errors...)
	out.Warnings = append([]Warning{}, r.Warnings...)
	out.Parameters = append([]string{}, r.Parameters...)
	return out
}
