package task

import (
	"errors"
	"testing"

	"taskboard-backend/internal/api"
)

func TestValidateTransition_GuardRequiresAssignee(t *testing.T) {
	// todo -> in_progress demands an assignee.
	err := ValidateTransition(StatusTodo, StatusInProgress, map[string]any{"assigned_to": ""})
	if err == nil {
		t.Fatal("expected guard failure without assignee")
	}
	var appErr *api.AppError
	if !errors.As(err, &appErr) || appErr.Code != "VALIDATION_FAILED" {
		t.Fatalf("expected VALIDATION_FAILED, got %v", err)
	}

	if err := ValidateTransition(StatusTodo, StatusInProgress, map[string]any{"assigned_to": "alice"}); err != nil {
		t.Fatalf("expected transition to pass with assignee, got %v", err)
	}
}

func TestValidateTransition_Paths(t *testing.T) {
	env := map[string]any{"assigned_to": "alice"}

	cases := []struct {
		from, to string
		ok       bool
	}{
		{StatusInProgress, StatusDone, true},
		{StatusInProgress, StatusTodo, true},
		{StatusDone, StatusTodo, true}, // reopen
		{StatusTodo, StatusDone, false},
		{StatusDone, StatusInProgress, false},
	}
	for _, tc := range cases {
		err := ValidateTransition(tc.from, tc.to, env)
		if tc.ok && err != nil {
			t.Fatalf("%s -> %s: expected ok, got %v", tc.from, tc.to, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("%s -> %s: expected rejection", tc.from, tc.to)
		}
	}
}

func TestValidateTransition_SameStatusIsNoop(t *testing.T) {
	if err := ValidateTransition(StatusTodo, StatusTodo, nil); err != nil {
		t.Fatalf("same-status update should pass, got %v", err)
	}
}

func TestValidateTransition_UnknownStatus(t *testing.T) {
	err := ValidateTransition(StatusTodo, "cancelled", nil)
	var appErr *api.AppError
	if !errors.As(err, &appErr) || appErr.Code != "VALIDATION_FAILED" {
		t.Fatalf("expected VALIDATION_FAILED for unknown status, got %v", err)
	}
}
