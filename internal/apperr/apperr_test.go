package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"Validation", Validation("bad_input", "bad input"), KindValidation},
		{"Forbidden", Forbidden("not_a_member", "not a member"), KindForbidden},
		{"NotFound", NotFound("user_not_found", "user not found"), KindNotFound},
		{"Conflict", Conflict("duplicate", "already exists"), KindConflict},
		{"Foreign error", errors.New("boom"), KindInternal},
		{"Nil", nil, KindInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestKindSurvivesWrapping(t *testing.T) {
	err := fmt.Errorf("while ensuring conversation: %w", Forbidden("not_a_member", "not a member"))

	if KindOf(err) != KindForbidden {
		t.Errorf("KindOf(wrapped) = %q, want %q", KindOf(err), KindForbidden)
	}
	if CodeOf(err) != "not_a_member" {
		t.Errorf("CodeOf(wrapped) = %q, want not_a_member", CodeOf(err))
	}
	if MessageOf(err) != "not a member" {
		t.Errorf("MessageOf(wrapped) = %q", MessageOf(err))
	}
}

func TestForeignErrorsHideDetails(t *testing.T) {
	err := errors.New("pq: connection refused")
	if CodeOf(err) != "" || MessageOf(err) != "" {
		t.Error("foreign errors must not leak code or message")
	}
}

func TestInternalWrapsCause(t *testing.T) {
	cause := errors.New("disk full")
	err := Internal("append_failed", cause)

	if !errors.Is(err, cause) {
		t.Error("Internal should wrap its cause")
	}
	if KindOf(err) != KindInternal {
		t.Errorf("KindOf = %q, want %q", KindOf(err), KindInternal)
	}
}
