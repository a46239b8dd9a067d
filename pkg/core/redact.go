package core

import (
	"errors"
	"strings"
)

// Redact returns an error whose message has every occurrence of the given
// secrets masked. Engine drivers sometimes echo DSNs or passwords back in
// their errors; those must never reach callers.
func Redact(err error, secrets ...string) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	changed := false
	for _, s := range secrets {
		if s == "" {
			continue
		}
		if strings.Contains(msg, s) {
			msg = strings.ReplaceAll(msg, s, "********")
			changed = true
		}
	}
	if !changed {
		return err
	}
	return &redactedError{msg: msg, cause: err}
}

type redactedError struct {
	msg   string
	cause error
}

func (e *redactedError) Error() string { return e.msg }

// Is lets errors.Is see through redaction for sentinel checks such as context.DeadlineExceeded.
func (e *redactedError) Is(target error) bool { return errors.Is(e.cause, target) }
