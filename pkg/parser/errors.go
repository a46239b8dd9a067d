package parser

import (
	"errors"
	"fmt"
)

// Sentinel errors for parser operations.
var (
	ErrUnexpectedToken   = errors.New("unexpected token")
	ErrUnexpectedEOF     = errors.New("unexpected end of input")
	ErrEmptyInput        = errors.New("empty statement")
	ErrMultipleStatement = errors.New("multiple statements are not allowed")
)

// ParseError represents an error that occurred during parsing.
type ParseError struct {
	Pos     Position
	Message string
	Err     error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at line %d, column %d: %s", e.Pos.Line, e.Pos.Column, e.Message)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
