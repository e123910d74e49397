// Streamlens - Streaming Platform Log Analytics and ETL
// Copyright 2026 Streamlens Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/streamlens/streamlens

package parser

import (
	"errors"
	"fmt"
)

// ErrValidation is the root of all validation failures. Every typed error in
// this package matches it via errors.Is.
var ErrValidation = errors.New("validation failed")

// MissingFieldError reports a required field that is absent or empty.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("missing required field: %s", e.Field)
}

// Is makes the error match ErrValidation.
func (e *MissingFieldError) Is(target error) bool {
	return target == ErrValidation
}

// MalformedTimestampError reports a timestamp that matched no accepted form.
type MalformedTimestampError struct {
	Value string
}

func (e *MalformedTimestampError) Error() string {
	return fmt.Sprintf("malformed timestamp: %q", e.Value)
}

// Is makes the error match ErrValidation.
func (e *MalformedTimestampError) Is(target error) bool {
	return target == ErrValidation
}

// InvalidEnumError reports an event kind or severity outside the closed
// enumerations. Normalization treats it as fatal.
type InvalidEnumError struct {
	Field string
	Value string
}

func (e *InvalidEnumError) Error() string {
	return fmt.Sprintf("invalid value for %s: %q", e.Field, e.Value)
}

// Is makes the error match ErrValidation.
func (e *InvalidEnumError) Is(target error) bool {
	return target == ErrValidation
}
