package core

import (
	"bytes"
	"encoding/json"
)

// ExecutionRequest asks the gateway to run SQL against a data source.
// Nil Limit or TimeoutMs fall back to the gateway defaults.
type ExecutionRequest struct {
	SQL          string `json:"sql"`
	DataSourceID string `json:"dataSourceId"`
	Limit        *int   `json:"limit,omitempty"`
	TimeoutMs    *int   `json:"timeoutMs,omitempty"`
}

// ResultColumn describes one column of a result set.
type ResultColumn struct {
	Name         string       `json:"name"`
	Type         TypeCategory `json:"type"`
	DatabaseType string       `json:"databaseType,omitempty"`
}

// Cell is one column value of a row.
type Cell struct {
	Column string
	Value  any
}

// Row is an ordered sequence of column values.
// It encodes as a JSON object whose keys keep the column order.
type Row []Cell

// Get returns the value of the named column.
func (r Row) Get(column string) (any, bool) {
	for _, c := range r {
		if c.Column == column {
			return c.Value, true
		}
	}
	return nil, false
}

// MarshalJSON writes the row as an ordered JSON object.
func (r Row) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, c := range r {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(c.Column)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := json.Marshal(c.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// ExecutionResult is the normalized outcome of an executed statement.
type ExecutionResult struct {
	Columns         []ResultColumn `json:"columns"`
	Rows            []Row          `json:"rows"`
	RowCount        int            `json:"rowCount"`
	Truncated       bool           `json:"truncated"`
	ExecutionTimeMs int64          `json:"executionTimeMs"`
}
