package apperrors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestErrorString(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		contains []string
	}{
		{
			name:     "not authenticated",
			err:      NotAuthenticated("user-1"),
			contains: []string{"not_authenticated", "user=user-1"},
		},
		{
			name:     "reauth required",
			err:      ReauthRequired("user-2"),
			contains: []string{"reauth_required", "user=user-2"},
		},
		{
			name:     "refresh failed with cause",
			err:      RefreshFailed("user-3", errors.New("connection reset")),
			contains: []string{"refresh_failed", "cause=connection reset"},
		},
		{
			name:     "provider call failed with op",
			err:      ProviderCallFailed("tasks.insertTask", "user-4", errors.New("quota exceeded")),
			contains: []string{"provider_call_failed", "op=tasks.insertTask", "cause=quota exceeded"},
		},
		{
			name:     "validation",
			err:      Validation("due must be RFC 3339"),
			contains: []string{"validation", "due must be RFC 3339"},
		},
		{
			name:     "not found",
			err:      NotFound("todo"),
			contains: []string{"not_found", "todo not found"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, want := range tt.contains {
				if !strings.Contains(msg, want) {
					t.Errorf("Error() = %q, want substring %q", msg, want)
				}
			}
		})
	}
}

func TestIsType(t *testing.T) {
	err := ReauthRequired("user-1")
	if !IsType(err, TypeReauthRequired) {
		t.Error("IsType should match the error's own type")
	}
	if IsType(err, TypeRefreshFailed) {
		t.Error("IsType should not match a different type")
	}
	if IsType(nil, TypeReauthRequired) {
		t.Error("IsType(nil) should be false")
	}
	if IsType(errors.New("plain"), TypeReauthRequired) {
		t.Error("IsType should be false for non-app errors")
	}
}

func TestIsTypeWrapped(t *testing.T) {
	inner := RefreshFailed("user-1", errors.New("timeout"))
	wrapped := fmt.Errorf("failed to ensure client: %w", inner)
	if !IsType(wrapped, TypeRefreshFailed) {
		t.Error("IsType should look through fmt.Errorf wrapping")
	}
	if TypeOf(wrapped) != TypeRefreshFailed {
		t.Errorf("TypeOf(wrapped) = %q, want %q", TypeOf(wrapped), TypeRefreshFailed)
	}
}

func TestTypeOf(t *testing.T) {
	if got := TypeOf(NotAuthenticated("u")); got != TypeNotAuthenticated {
		t.Errorf("TypeOf = %q, want %q", got, TypeNotAuthenticated)
	}
	if got := TypeOf(errors.New("plain")); got != "" {
		t.Errorf("TypeOf(plain) = %q, want empty", got)
	}
	if got := TypeOf(nil); got != "" {
		t.Errorf("TypeOf(nil) = %q, want empty", got)
	}
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("boom")
	err := ProviderCallFailed("gmail.sendMessage", "user-1", cause)
	if !errors.Is(err, cause) {
		t.Error("errors.Is should find the cause through Unwrap")
	}
}

func TestIsAuthFailure(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"not authenticated", NotAuthenticated("u"), true},
		{"reauth required", ReauthRequired("u"), true},
		{"refresh failed", RefreshFailed("u", nil), true},
		{"provider call failed", ProviderCallFailed("op", "u", nil), false},
		{"validation", Validation("bad"), false},
		{"plain error", errors.New("plain"), false},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsAuthFailure(tt.err); got != tt.want {
				t.Errorf("IsAuthFailure() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestWithOp(t *testing.T) {
	err := RefreshFailed("user-1", nil).WithOp("auth.refresh")
	if err.Op != "auth.refresh" {
		t.Errorf("WithOp did not set Op, got %q", err.Op)
	}
	if !strings.Contains(err.Error(), "op=auth.refresh") {
		t.Errorf("Error() should include op, got %q", err.Error())
	}
}
