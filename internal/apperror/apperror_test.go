package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestErrorsIs(t *testing.T) {
	cause := errors.New("driver said no")

	tests := []struct {
		name      string
		err       error
		target    error
		wantMatch bool
	}{
		{
			name:      "NotFound matches ErrNotFound",
			err:       NotFound("user", "42"),
			target:    ErrNotFound,
			wantMatch: true,
		},
		{
			name:      "UniqueViolation matches ErrConflict",
			err:       UniqueViolation("users", "users_username_unique", []string{"username"}, cause),
			target:    ErrConflict,
			wantMatch: true,
		},
		{
			name:      "ForeignKeyViolation matches ErrConflict",
			err:       ForeignKeyViolation("messages", "messages_userid_fkey", cause),
			target:    ErrConflict,
			wantMatch: true,
		},
		{
			name:      "NotNullViolation matches ErrValidation",
			err:       NotNullViolation("users", "email", cause),
			target:    ErrValidation,
			wantMatch: true,
		},
		{
			name:      "Database matches ErrDatabase",
			err:       Database(cause),
			target:    ErrDatabase,
			wantMatch: true,
		},
		{
			name:      "wrapped error keeps its driver cause",
			err:       fmt.Errorf("repo: %w", InvalidData(cause)),
			target:    cause,
			wantMatch: true,
		},
		{
			name:      "NotFound does NOT match ErrConflict",
			err:       NotFound("user", "42"),
			target:    ErrConflict,
			wantMatch: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := errors.Is(tt.err, tt.target)
			if got != tt.wantMatch {
				t.Errorf("errors.Is(%v, %v) = %v, want %v", tt.err, tt.target, got, tt.wantMatch)
			}
		})
	}
}

func TestKindOf(t *testing.T) {
	wrapped := fmt.Errorf("service: %w", CheckViolation("users", "users_check", nil))
	if got := KindOf(wrapped); got != KindCheckViolation {
		t.Errorf("KindOf() = %v, want %v", got, KindCheckViolation)
	}
	if got := KindOf(errors.New("plain")); got != KindUnknown {
		t.Errorf("KindOf(plain) = %v, want %v", got, KindUnknown)
	}
}

func TestModelValidationMessageIsStable(t *testing.T) {
	err := ModelValidation(map[string][]FieldError{
		"username": {{Message: "must NOT have more than 255 characters", Keyword: "maxLength"}},
		"email":    {{Message: "must NOT have fewer than 1 characters", Keyword: "minLength"}},
	})

	want := "email: must NOT have fewer than 1 characters, username: must NOT have more than 255 characters"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestTranslate(t *testing.T) {
	cause := errors.New("duplicate key value violates unique constraint")

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantType   string
		wantData   []string
	}{
		{"model validation", ModelValidation(map[string][]FieldError{"username": {{Message: "too long"}}}), http.StatusBadRequest, "ModelValidation", []string{"username"}},
		{"not found", NotFound("user", "1"), http.StatusNotFound, "NotFound", nil},
		{"unique violation", UniqueViolation("users", "users_email_unique", []string{"email"}, cause), http.StatusConflict, "UniqueViolation", []string{"columns", "table", "constraint"}},
		{"not null violation", NotNullViolation("users", "email", nil), http.StatusBadRequest, "NotNullViolation", []string{"column", "table"}},
		{"foreign key violation", ForeignKeyViolation("messages", "fk", nil), http.StatusConflict, "ForeignKeyViolation", []string{"table", "constraint"}},
		{"check violation", CheckViolation("users", "chk", nil), http.StatusBadRequest, "CheckViolation", []string{"table", "constraint"}},
		{"invalid data", InvalidData(nil), http.StatusBadRequest, "InvalidData", nil},
		{"database", Database(errors.New("connection reset")), http.StatusInternalServerError, "UnknownDatabaseError", nil},
		{"anything else", errors.New("boom"), http.StatusInternalServerError, "UnknownError", nil},
		{"wrapped classified error", fmt.Errorf("signup: %w", UniqueViolation("users", "", []string{"username"}, cause)), http.StatusConflict, "UniqueViolation", []string{"columns"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, resp := Translate(tt.err)
			if status != tt.wantStatus {
				t.Errorf("status = %d, want %d", status, tt.wantStatus)
			}
			if resp.Type != tt.wantType {
				t.Errorf("type = %q, want %q", resp.Type, tt.wantType)
			}
			if resp.Message == "" {
				t.Error("message should not be empty")
			}
			if resp.Data == nil {
				t.Fatal("data should never be nil")
			}
			for _, key := range tt.wantData {
				if _, ok := resp.Data[key]; !ok {
					t.Errorf("data is missing key %q: %v", key, resp.Data)
				}
			}
		})
	}
}

func TestTranslate_UniqueViolationColumns(t *testing.T) {
	_, resp := Translate(UniqueViolation("users", "users_username_key", []string{"username"}, nil))

	cols, ok := resp.Data["columns"].([]string)
	if !ok || len(cols) != 1 || cols[0] != "username" {
		t.Errorf("columns = %#v, want [username]", resp.Data["columns"])
	}
	if resp.Data["table"] != "users" {
		t.Errorf("table = %v, want users", resp.Data["table"])
	}
}

func TestTranslate_UnclassifiedErrorsHideTheirText(t *testing.T) {
	for _, err := range []error{
		nil,
		fmt.Errorf("auth: hashing password: %w", errors.New("bcrypt: password length exceeds 72 bytes")),
		&Error{Kind: Kind(99), Err: errors.New("secret detail")},
	} {
		status, resp := Translate(err)
		if status != http.StatusInternalServerError {
			t.Errorf("Translate(%v) status = %d, want 500", err, status)
		}
		if resp.Message != "Internal server error" {
			t.Errorf("Translate(%v) message = %q, want the generic message", err, resp.Message)
		}
	}
}
