package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/leapstack-labs/leapgate/internal/executor"
	"github.com/leapstack-labs/leapgate/internal/pool"
	"github.com/leapstack-labs/leapgate/internal/schema"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

// structValidator reports field paths by their koanf keys.
func structValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("koanf"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

// Validate checks field constraints and cross-field rules.
func (c *Config) Validate() error {
	if err := structValidator().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", friendly(err, ""))
	}
	if err := uniqueIDs(c.DataSources); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// ValidateDataSources checks a data source list read outside the main
// config file.
func ValidateDataSources(list []DataSourceConfig) error {
	for i := range list {
		if err := structValidator().Struct(&list[i]); err != nil {
			return friendly(err, fmt.Sprintf("datasources[%d].", i))
		}
	}
	return uniqueIDs(list)
}

func uniqueIDs(list []DataSourceConfig) error {
	seen := make(map[string]bool, len(list))
	for _, ds := range list {
		if seen[ds.ID] {
			return fmt.Errorf("duplicate data source id %q", ds.ID)
		}
		seen[ds.ID] = true
	}
	return nil
}

// friendly flattens validator errors into one message.
func friendly(err error, prefix string) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, prefix+describe(fe))
	}
	return errors.New(strings.Join(msgs, "; "))
}

// describe renders one failed constraint as "key: problem".
func describe(fe validator.FieldError) string {
	// Namespace is "Config.limits.max_rows"; drop the type name.
	key := fe.Namespace()
	if i := strings.IndexByte(key, '.'); i >= 0 {
		key = key[i+1:]
	}
	switch fe.Tag() {
	case "required", "required_if":
		return key + ": is required"
	case "oneof":
		return fmt.Sprintf("%s: must be one of [%s], got %q", key, fe.Param(), fmt.Sprint(fe.Value()))
	case "gt", "gte", "lt", "lte", "min", "max":
		return fmt.Sprintf("%s: must be %s %s", key, comparison(fe.Tag()), param(fe))
	case "ltefield":
		return fmt.Sprintf("%s: must not exceed %s", key, fe.Param())
	}
	return fmt.Sprintf("%s: failed %q", key, fe.Tag())
}

func comparison(tag string) string {
	switch tag {
	case "gt":
		return ">"
	case "gte", "min":
		return ">="
	case "lt":
		return "<"
	}
	return "<="
}

func param(fe validator.FieldError) string {
	if fe.Kind() == reflect.String {
		return fe.Param() + " characters"
	}
	return fe.Param()
}

// PoolOptions returns the connection manager settings.
func (c *Config) PoolOptions() pool.Options {
	return pool.Options{
		MaxPerSource:      c.Pool.MaxPerSource,
		AcquireTimeout:    c.Pool.AcquireTimeout,
		IdleTimeout:       c.Pool.IdleTimeout,
		SweepInterval:     c.Pool.SweepInterval,
		ValidateAfterIdle: c.Pool.ValidateAfterIdle,
	}
}

// ExecutorOptions returns the execution limits.
func (c *Config) ExecutorOptions() executor.Options {
	return executor.Options{
		ReadOnly:       c.ReadOnly,
		DefaultLimit:   c.Limits.DefaultRows,
		MaxLimit:       c.Limits.MaxRows,
		DefaultTimeout: c.Limits.DefaultTimeout,
		MaxTimeout:     c.Limits.MaxTimeout,
	}
}

// SchemaOptions returns the schema cache settings. Validate has already
// rejected unknown partial policies.
func (c *Config) SchemaOptions() schema.Options {
	policy, _ := schema.ParsePartialPolicy(c.Schema.PartialPolicy)
	return schema.Options{
		TTL:            c.Schema.TTL,
		PartialPolicy:  policy,
		RefreshTimeout: c.Schema.RefreshTimeout,
	}
}
