package schema

import (
	"errors"
	"strings"
	"testing"
)

func TestValidationError_Error(t *testing.T) {
	// With path
	err := &ValidationError{Path: "search.max_magnitude", Message: "value 25 failed validation: d < 20"}
	expected := "search.max_magnitude: value 25 failed validation: d < 20"
	if err.Error() != expected {
		t.Errorf("got %q, want %q", err.Error(), expected)
	}

	// Without path
	err = &ValidationError{Message: "invalid configuration"}
	if err.Error() != "invalid configuration" {
		t.Errorf("got %q, want 'invalid configuration'", err.Error())
	}
}

func TestValidationErrors_Error(t *testing.T) {
	errs := &ValidationErrors{}

	// No errors
	if errs.Error() != "no validation errors" {
		t.Errorf("got %q for empty errors", errs.Error())
	}

	// Single error
	errs.Add("path", "message")
	if !strings.Contains(errs.Error(), "path: message") {
		t.Errorf("single error should contain the error: %q", errs.Error())
	}

	// Multiple errors
	errs.Add("path2", "message2")
	if !strings.Contains(errs.Error(), "2 validation errors") {
		t.Errorf("multiple errors should show count: %q", errs.Error())
	}
}

func TestValidationErrors_Merge(t *testing.T) {
	errs1 := &ValidationErrors{}
	errs1.Add("a", "first")

	errs2 := &ValidationErrors{}
	errs2.Add("b", "second")
	errs2.Add("c", "third")

	errs1.Merge(errs2)
	errs1.Merge(nil)

	if errs1.Len() != 3 {
		t.Errorf("expected 3 errors after merge, got %d", errs1.Len())
	}
}

func TestValidationErrors_AsError(t *testing.T) {
	errs := &ValidationErrors{}
	if errs.AsError() != nil {
		t.Error("empty errors should return nil")
	}

	errs.Add("path", "message")
	err := errs.AsError()
	var target *ValidationErrors
	if !errors.As(err, &target) || target.Len() != 1 {
		t.Errorf("AsError() = %v", err)
	}
}

func TestValidationErrors_Messages(t *testing.T) {
	errs := &ValidationErrors{}
	errs.AddError(NewSectionRequiredError("time"))
	errs.AddError(NewRequiredError("object.id"))

	want := []string{
		"time: missing required section",
		"object.id: missing required parameter",
	}
	got := errs.Messages()
	if len(got) != len(want) {
		t.Fatalf("Messages() = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Messages()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
	if len((&ValidationErrors{}).Messages()) != 0 {
		t.Error("empty errors should give no messages")
	}
}

func TestValidationErrors_ErrorsUnderPath(t *testing.T) {
	errs := &ValidationErrors{}
	errs.Add("object", "error 1")
	errs.Add("object.id", "error 2")
	errs.Add("objects.id", "error 3")
	errs.Add("search.mag", "error 4")

	result := errs.ErrorsUnderPath("object")
	if len(result) != 2 {
		t.Errorf("expected 2 errors under object, got %d", len(result))
	}
}

func TestNewEnumError(t *testing.T) {
	err := NewEnumError("search.mode", "fast", []string{"full", "quick"})
	if err.Value != "fast" {
		t.Errorf("Value = %q", err.Value)
	}
	if !strings.Contains(err.Message, "[full, quick]") {
		t.Errorf("Message = %q", err.Message)
	}
}

func TestNewRangeError(t *testing.T) {
	c := MustParseConstraint("d < 20")
	err := NewRangeError("search.max_magnitude", "25", c)
	if err.Expected != "d < 20" {
		t.Errorf("Expected = %q", err.Expected)
	}
	if err.Error() != "search.max_magnitude: value 25 failed validation: d < 20" {
		t.Errorf("Error() = %q", err.Error())
	}

	nn := NewNotNumericError("search.max_magnitude", "bright", c)
	if !strings.Contains(nn.Message, "not numeric") {
		t.Errorf("Message = %q", nn.Message)
	}
}
