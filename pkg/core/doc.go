// Package core defines the shared language of the leapgate SQL gateway.
//
// This package contains:
//   - Domain entities (DataSource, ValidationResult, ExecutionResult, SchemaSnapshot)
//   - The common column type taxonomy used by execution and introspection
//   - The typed error taxonomy returned by the gateway
//   - Request-scoped actor propagation
//
// The Golden Rule: pkg/core imports ONLY stdlib.
// All other packages depend on core, not the reverse.
package core
