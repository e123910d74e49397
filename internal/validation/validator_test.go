// Streamlens - Streaming Platform Log Analytics and ETL
// Copyright 2026 Streamlens Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/streamlens/streamlens

package validation

import (
	"strings"
	"testing"
)

func TestGetValidatorSingleton(t *testing.T) {
	v1 := GetValidator()
	v2 := GetValidator()

	if v1 == nil {
		t.Fatal("GetValidator() returned nil")
	}
	if v1 != v2 {
		t.Error("GetValidator() should return the same singleton instance")
	}
}

type metricsQuery struct {
	Name  string `validate:"omitempty,max=128"`
	Limit int    `validate:"min=1,max=1000"`
	Since string `validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
}

func TestValidateStructValid(t *testing.T) {
	tests := []struct {
		name  string
		input metricsQuery
	}{
		{"all fields", metricsQuery{Name: "error_rate", Limit: 100, Since: "2026-08-30T12:00:00Z"}},
		{"minimum limit", metricsQuery{Limit: 1}},
		{"maximum limit", metricsQuery{Limit: 1000}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := ValidateStruct(&tt.input); err != nil {
				t.Errorf("ValidateStruct() = %v, want nil", err)
			}
		})
	}
}

func TestValidateStructInvalid(t *testing.T) {
	tests := []struct {
		name      string
		input     metricsQuery
		wantField string
	}{
		{"limit too small", metricsQuery{Limit: 0}, "Limit"},
		{"limit too large", metricsQuery{Limit: 5000}, "Limit"},
		{"bad datetime", metricsQuery{Limit: 10, Since: "yesterday"}, "Since"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateStruct(&tt.input)
			if err == nil {
				t.Fatal("ValidateStruct() = nil, want error")
			}

			found := false
			for _, fieldErr := range err.Errors() {
				if fieldErr.Field() == tt.wantField {
					found = true
				}
			}
			if !found {
				t.Errorf("expected error on field %s, got %v", tt.wantField, err)
			}
		})
	}
}

func TestToAPIErrorSingle(t *testing.T) {
	err := ValidateStruct(&metricsQuery{Limit: 0})
	if err == nil {
		t.Fatal("expected validation error")
	}

	apiErr := err.ToAPIError()
	if apiErr.Code != "VALIDATION_ERROR" {
		t.Errorf("code = %q, want VALIDATION_ERROR", apiErr.Code)
	}
	if apiErr.Details["field"] != "Limit" {
		t.Errorf("details field = %v, want Limit", apiErr.Details["field"])
	}
	if !strings.Contains(apiErr.Message, "at least 1") {
		t.Errorf("message = %q, want min translation", apiErr.Message)
	}
}

func TestToAPIErrorMultiple(t *testing.T) {
	err := ValidateStruct(&metricsQuery{Limit: 0, Since: "not-a-date"})
	if err == nil {
		t.Fatal("expected validation error")
	}
	if len(err.Errors()) != 2 {
		t.Fatalf("errors = %d, want 2", len(err.Errors()))
	}

	apiErr := err.ToAPIError()
	if _, ok := apiErr.Details["fields"]; !ok {
		t.Error("expected fields detail for multi-error response")
	}
	if !strings.Contains(apiErr.Message, ";") {
		t.Errorf("message = %q, want joined messages", apiErr.Message)
	}
}
