// Package validator classifies and lints SQL text without touching a
// database. Validation is a pure function of the input: the same text
// always yields the same result.
package validator

import (
	"errors"
	"fmt"
	"strings"

	"github.com/leapstack-labs/leapgate/pkg/core"
	"github.com/leapstack-labs/leapgate/pkg/parser"
)

// EmptyMessage is the error reported for blank input.
const EmptyMessage = "SQL must not be empty"

// Validate is ValidateAs with parser.SyntaxDefault.
func Validate(sql string) core.ValidationResult {
	return ValidateAs(sql, parser.SyntaxDefault)
}

// ValidateFor validates sql the way the given engine will tokenize it.
func ValidateFor(sql string, kind core.EngineKind) core.ValidationResult {
	return ValidateAs(sql, SyntaxOf(kind))
}

// SyntaxOf returns the lexical syntax of an engine.
func SyntaxOf(kind core.EngineKind) parser.Syntax {
	if kind == core.EngineMySQL {
		return parser.SyntaxMySQL
	}
	return parser.SyntaxDefault
}

// ValidateAs parses sql under syntax and reports syntax errors, read-only
// classification, bind parameters and warnings.
func ValidateAs(sql string, syntax parser.Syntax) core.ValidationResult {
	res := core.ValidationResult{
		Errors:        []core.ValidationIssue{},
		Warnings:      []core.Warning{},
		Parameters:    []string{},
		StatementType: core.StatementUnknown,
	}

	if strings.TrimSpace(sql) == "" {
		res.Errors = append(res.Errors, core.ValidationIssue{Message: EmptyMessage})
		return res
	}

	parsed, err := parser.ParseAs(sql, syntax)
	if err != nil {
		res.Errors = append(res.Errors, issueFromError(err))
		res.StatementType = leadingType(sql, syntax)
		return res
	}

	c := classify(parsed.Stmt)
	res.Valid = true
	res.ReadOnly = c.readOnly
	res.StatementType = c.stmtType
	res.Parameters = parameterNames(parsed.Params)
	res.Warnings = runRules(parsed.Stmt)
	return res
}

// Plain adapts the package-level Validate function to an interface value.
type Plain struct{}

// Validate calls the package-level Validate.
func (Plain) Validate(sql string) core.ValidationResult {
	return Validate(sql)
}

// ValidateFor calls the package-level ValidateFor.
func (Plain) ValidateFor(sql string, kind core.EngineKind) core.ValidationResult {
	return ValidateFor(sql, kind)
}

func issueFromError(err error) core.ValidationIssue {
	var perr *parser.ParseError
	if errors.As(err, &perr) {
		return core.ValidationIssue{
			Message: perr.Message,
			Line:    perr.Pos.Line,
			Column:  perr.Pos.Column,
		}
	}
	return core.ValidationIssue{Message: err.Error()}
}

// leadingType gives a best-effort statement type for text that failed to parse.
func leadingType(sql string, syntax parser.Syntax) core.StatementType {
	for _, tok := range parser.TokenizeAs(sql, syntax) {
		switch tok.Type {
		case parser.TOKEN_LPAREN, parser.TOKEN_SEMICOLON:
			continue
		case parser.TOKEN_IDENT:
			if class := parser.StatementClass(tok.Upper()); class != "" {
				return core.StatementType(class)
			}
		}
		break
	}
	return core.StatementUnknown
}

// parameterNames renders placeholder tokens. Anonymous ? placeholders are
// numbered by occurrence; numbered and named placeholders are reported
// once, at their first appearance. @name counts as a named placeholder
// except under MySQL, where it is a user variable; @@name never does.
func parameterNames(params []parser.Token) []string {
	names := make([]string, 0, len(params))
	seen := make(map[string]bool, len(params))
	anon := 0
	for _, p := range params {
		name := p.Literal
		if name == "?" {
			anon++
			names = append(names, fmt.Sprintf("?%d", anon))
			continue
		}
		if seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	return names
}
