package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/chatapp/internal/apperror"
	"github.com/sakif/chatapp/internal/markdown"
	"github.com/sakif/chatapp/internal/model"
	"github.com/sakif/chatapp/internal/service"
)

// =========================================================================
// Fakes
// =========================================================================

type fakeAuth struct {
	loginFn    func(ctx context.Context, identifier, password string) (*model.User, error)
	signupFn   func(ctx context.Context, in service.SignupInput) (*model.User, error)
	identifyFn func(ctx context.Context, token string) (*model.User, error)

	signupCalls int
	lastToken   string
}

func (f *fakeAuth) Login(ctx context.Context, identifier, password string) (*model.User, error) {
	return f.loginFn(ctx, identifier, password)
}

func (f *fakeAuth) Signup(ctx context.Context, in service.SignupInput) (*model.User, error) {
	f.signupCalls++
	return f.signupFn(ctx, in)
}

func (f *fakeAuth) Identify(ctx context.Context, token string) (*model.User, error) {
	f.lastToken = token
	return f.identifyFn(ctx, token)
}

type recordedOutcome struct{ endpoint, outcome string }

type fakeRecorder struct{ got []recordedOutcome }

func (f *fakeRecorder) RecordAuthOutcome(endpoint, outcome string) {
	f.got = append(f.got, recordedOutcome{endpoint, outcome})
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func alice() *model.User {
	return &model.User{ID: 7, Username: "alice", Email: "alice@example.com", Password: "$2a$hash", Token: "tok-alice"}
}

func post(h http.HandlerFunc, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), "body: %s", rec.Body.String())
	return out
}

func decodeErrors(t *testing.T, rec *httptest.ResponseRecorder) []ValidationError {
	t.Helper()
	var out validationErrors
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), "body: %s", rec.Body.String())
	return out.Errors
}

// =========================================================================
// Login TESTS
// =========================================================================

func TestHandleLogin_Success(t *testing.T) {
	fa := &fakeAuth{loginFn: func(_ context.Context, id, pw string) (*model.User, error) {
		assert.Equal(t, "alice@example.com", id)
		assert.Equal(t, "password123", pw)
		return alice(), nil
	}}
	rec := &fakeRecorder{}
	h := NewAuthHandler(fa, rec, discardLogger())

	resp := post(h.HandleLogin, `{"username":"alice@example.com","password":"password123"}`)

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Header().Get("Content-Type"), "application/json")
	body := decodeBody(t, resp)
	assert.Equal(t, map[string]any{
		"userid":   float64(7),
		"username": "alice",
		"email":    "alice@example.com",
		"token":    "tok-alice",
	}, body)
	assert.NotContains(t, resp.Body.String(), "$2a$hash")
	assert.Equal(t, []recordedOutcome{{"login", OutcomeSuccess}}, rec.got)
}

func TestHandleLogin_ValidationErrors(t *testing.T) {
	fa := &fakeAuth{loginFn: func(context.Context, string, string) (*model.User, error) {
		t.Fatal("Login must not run for an invalid body")
		return nil, nil
	}}
	h := NewAuthHandler(fa, nil, discardLogger())

	resp := post(h.HandleLogin, `{"username":"","password":""}`)

	require.Equal(t, http.StatusBadRequest, resp.Code)
	errs := decodeErrors(t, resp)
	require.Len(t, errs, 2)
	assert.Equal(t, "username", errs[0].Path)
	assert.Equal(t, "Username is not valid", errs[0].Msg)
	assert.Equal(t, "body", errs[0].Location)
	assert.Equal(t, "password", errs[1].Path)
	assert.Equal(t, "Password cannot be blank", errs[1].Msg)
	assert.Nil(t, errs[1].Value)
}

func TestHandleLogin_MalformedBody(t *testing.T) {
	h := NewAuthHandler(&fakeAuth{}, nil, discardLogger())

	for _, body := range []string{"", "not json", `["array"]`} {
		resp := post(h.HandleLogin, body)
		assert.Equal(t, http.StatusBadRequest, resp.Code, "body %q", body)
		errs := decodeErrors(t, resp)
		require.Len(t, errs, 1)
		assert.Equal(t, "body", errs[0].Type)
	}
}

func TestHandleLogin_BadCredentialsAreIndistinguishable(t *testing.T) {
	for _, cause := range []error{service.ErrUnknownUser, service.ErrInvalidPassword} {
		t.Run(cause.Error(), func(t *testing.T) {
			fa := &fakeAuth{loginFn: func(context.Context, string, string) (*model.User, error) {
				return nil, cause
			}}
			rec := &fakeRecorder{}
			h := NewAuthHandler(fa, rec, discardLogger())

			resp := post(h.HandleLogin, `{"username":"alice","password":"wrong"}`)

			assert.Equal(t, http.StatusBadRequest, resp.Code)
			assert.Equal(t, map[string]any{"error": "Invalid username or password"}, decodeBody(t, resp))
			assert.Equal(t, []recordedOutcome{{"login", OutcomeInvalid}}, rec.got)
		})
	}
}

func TestHandleLogin_StorageFailure(t *testing.T) {
	fa := &fakeAuth{loginFn: func(context.Context, string, string) (*model.User, error) {
		return nil, apperror.Database(errors.New("connection refused"))
	}}
	rec := &fakeRecorder{}
	h := NewAuthHandler(fa, rec, discardLogger())

	resp := post(h.HandleLogin, `{"username":"alice","password":"password123"}`)

	assert.Equal(t, http.StatusInternalServerError, resp.Code)
	body := decodeBody(t, resp)
	assert.Equal(t, "UnknownDatabaseError", body["type"])
	assert.Equal(t, "connection refused", body["message"])
	assert.Equal(t, []recordedOutcome{{"login", OutcomeError}}, rec.got)
}

// =========================================================================
// Signup TESTS
// =========================================================================

func TestHandleSignup_Success(t *testing.T) {
	fa := &fakeAuth{signupFn: func(_ context.Context, in service.SignupInput) (*model.User, error) {
		assert.Equal(t, service.SignupInput{Username: "alice", Email: "alice@example.com", Password: "password123"}, in)
		return alice(), nil
	}}
	rec := &fakeRecorder{}
	h := NewAuthHandler(fa, rec, discardLogger())

	resp := post(h.HandleSignup, `{"username":"alice","email":"alice@example.com","password":"password123","confirmPassword":"password123"}`)

	require.Equal(t, http.StatusOK, resp.Code)
	body := decodeBody(t, resp)
	assert.Equal(t, "tok-alice", body["token"])
	assert.Equal(t, float64(7), body["userid"])
	assert.NotContains(t, body, "password")
	assert.Equal(t, []recordedOutcome{{"signup", OutcomeSuccess}}, rec.got)
}

func TestHandleSignup_ValidationErrors(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantPath []string
		wantMsg  []string
	}{
		{
			name:     "short password",
			body:     `{"username":"alice","email":"alice@example.com","password":"short","confirmPassword":"short"}`,
			wantPath: []string{"password"},
			wantMsg:  []string{"Password must be at least 8 characters long"},
		},
		{
			name:     "mismatched confirmation",
			body:     `{"username":"alice","email":"alice@example.com","password":"password123","confirmPassword":"password124"}`,
			wantPath: []string{"confirmPassword"},
			wantMsg:  []string{"Passwords do not match"},
		},
		{
			name:     "bad email",
			body:     `{"username":"alice","email":"not-an-email","password":"password123","confirmPassword":"password123"}`,
			wantPath: []string{"email"},
			wantMsg:  []string{"Email is not valid"},
		},
		{
			name:     "everything missing",
			body:     `{}`,
			wantPath: []string{"username", "password", "email"},
			wantMsg:  []string{"Username is not valid", "Password must be at least 8 characters long", "Email is not valid"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fa := &fakeAuth{}
			h := NewAuthHandler(fa, nil, discardLogger())

			resp := post(h.HandleSignup, tt.body)

			require.Equal(t, http.StatusBadRequest, resp.Code)
			errs := decodeErrors(t, resp)
			require.Len(t, errs, len(tt.wantPath))
			for i := range errs {
				assert.Equal(t, tt.wantPath[i], errs[i].Path)
				assert.Equal(t, tt.wantMsg[i], errs[i].Msg)
			}
			assert.Zero(t, fa.signupCalls, "nothing is written for an invalid body")
		})
	}
}

func TestHandleSignup_PasswordValuesAreNotEchoed(t *testing.T) {
	h := NewAuthHandler(&fakeAuth{}, nil, discardLogger())

	resp := post(h.HandleSignup, `{"username":"alice","email":"alice@example.com","password":"secret1","confirmPassword":"secret2"}`)

	require.Equal(t, http.StatusBadRequest, resp.Code)
	assert.NotContains(t, resp.Body.String(), "secret1")
	assert.NotContains(t, resp.Body.String(), "secret2")
}

func TestHandleSignup_DuplicateUser(t *testing.T) {
	fa := &fakeAuth{signupFn: func(context.Context, service.SignupInput) (*model.User, error) {
		return nil, apperror.UniqueViolation("users", "users_username_key", []string{"username"}, errors.New("duplicate key"))
	}}
	rec := &fakeRecorder{}
	h := NewAuthHandler(fa, rec, discardLogger())

	resp := post(h.HandleSignup, `{"username":"alice","email":"alice@example.com","password":"password123","confirmPassword":"password123"}`)

	assert.Equal(t, http.StatusConflict, resp.Code)
	body := decodeBody(t, resp)
	assert.Equal(t, "UniqueViolation", body["type"])
	data := body["data"].(map[string]any)
	assert.Equal(t, []any{"username"}, data["columns"])
	assert.Equal(t, "users", data["table"])
	assert.Equal(t, []recordedOutcome{{"signup", OutcomeError}}, rec.got)
}

func TestHandleSignup_UnclassifiedFailureHidesDetail(t *testing.T) {
	fa := &fakeAuth{signupFn: func(context.Context, service.SignupInput) (*model.User, error) {
		return nil, fmt.Errorf("signup: hashing password: %w", errors.New("bcrypt internals"))
	}}
	h := NewAuthHandler(fa, nil, discardLogger())

	resp := post(h.HandleSignup, `{"username":"alice","email":"alice@example.com","password":"password123","confirmPassword":"password123"}`)

	assert.Equal(t, http.StatusInternalServerError, resp.Code)
	assert.NotContains(t, resp.Body.String(), "bcrypt")
	body := decodeBody(t, resp)
	assert.Equal(t, "UnknownError", body["type"])
	assert.Equal(t, "Internal server error", body["message"])
}

func TestHandleSignup_ModelValidation(t *testing.T) {
	fa := &fakeAuth{signupFn: func(context.Context, service.SignupInput) (*model.User, error) {
		return nil, apperror.ModelValidation(map[string][]apperror.FieldError{
			"username": {{Message: "must NOT have more than 255 characters", Keyword: "maxLength"}},
		})
	}}
	h := NewAuthHandler(fa, nil, discardLogger())

	resp := post(h.HandleSignup, `{"username":"alice","email":"alice@example.com","password":"password123","confirmPassword":"password123"}`)

	assert.Equal(t, http.StatusBadRequest, resp.Code)
	body := decodeBody(t, resp)
	assert.Equal(t, "ModelValidation", body["type"])
	assert.Contains(t, body["data"], "username")
}

// =========================================================================
// Webhook TESTS
// =========================================================================

func webhook(h *AuthHandler, authorization string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/webhook", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	rec := httptest.NewRecorder()
	h.HandleWebhook(rec, req)
	return rec
}

func TestHandleWebhook_KnownToken(t *testing.T) {
	fa := &fakeAuth{identifyFn: func(_ context.Context, token string) (*model.User, error) {
		if token == "tok-alice" {
			return alice(), nil
		}
		return nil, nil
	}}
	rec := &fakeRecorder{}
	h := NewAuthHandler(fa, rec, discardLogger())

	resp := webhook(h, "Bearer tok-alice")

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, map[string]any{"X-Hasura-Role": "user", "X-Hasura-User-Id": "7"}, decodeBody(t, resp))
	assert.Equal(t, []recordedOutcome{{"webhook", OutcomeSuccess}}, rec.got)
}

func TestHandleWebhook_Anonymous(t *testing.T) {
	tests := []struct {
		name          string
		authorization string
	}{
		{"no header", ""},
		{"unknown token", "Bearer nobody"},
		{"wrong scheme", "Basic dXNlcjpwYXNz"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fa := &fakeAuth{identifyFn: func(context.Context, string) (*model.User, error) {
				return nil, nil
			}}
			rec := &fakeRecorder{}
			h := NewAuthHandler(fa, rec, discardLogger())

			resp := webhook(h, tt.authorization)

			require.Equal(t, http.StatusOK, resp.Code)
			body := decodeBody(t, resp)
			assert.Equal(t, map[string]any{"X-Hasura-Role": "anonymous"}, body)
			assert.Equal(t, []recordedOutcome{{"webhook", OutcomeAnonymous}}, rec.got)
		})
	}
}

func TestHandleWebhook_StorageFailure(t *testing.T) {
	fa := &fakeAuth{identifyFn: func(context.Context, string) (*model.User, error) {
		return nil, errors.New("db down")
	}}
	rec := &fakeRecorder{}
	h := NewAuthHandler(fa, rec, discardLogger())

	resp := webhook(h, "Bearer tok-alice")

	assert.Equal(t, http.StatusUnauthorized, resp.Code)
	assert.Equal(t, map[string]any{"error": "db down"}, decodeBody(t, resp))
	assert.Equal(t, "tok-alice", fa.lastToken)
	assert.Equal(t, []recordedOutcome{{"webhook", OutcomeError}}, rec.got)
}

// =========================================================================
// Preview TESTS
// =========================================================================

func TestHandlePreview(t *testing.T) {
	h := NewPreviewHandler(markdown.NewRenderer(), discardLogger())

	resp := post(h.HandlePreview, `{"content":"**hi**"}`)
	require.Equal(t, http.StatusOK, resp.Code)
	body := decodeBody(t, resp)
	assert.Equal(t, true, body["markdown"])
	assert.Contains(t, body["html"], "<strong>hi</strong>")

	resp = post(h.HandlePreview, `{"content":"x < y & z"}`)
	require.Equal(t, http.StatusOK, resp.Code)
	body = decodeBody(t, resp)
	assert.Equal(t, false, body["markdown"])
	assert.Equal(t, "<p>x &lt; y &amp; z</p>", body["html"])
}

func TestHandlePreview_TooLong(t *testing.T) {
	h := NewPreviewHandler(markdown.NewRenderer(), discardLogger())

	payload, err := json.Marshal(previewRequest{Content: strings.Repeat("a", maxMessageBytes+1)})
	require.NoError(t, err)

	resp := post(h.HandlePreview, string(payload))
	require.Equal(t, http.StatusBadRequest, resp.Code)
	errs := decodeErrors(t, resp)
	require.Len(t, errs, 1)
	assert.Equal(t, "content", errs[0].Path)
}

// =========================================================================
// Health TESTS
// =========================================================================

func getHealth(h http.HandlerFunc) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	return rec
}

func TestLiveness(t *testing.T) {
	h := NewHealthHandler(Dependency{Name: "users", Required: true, Check: func(context.Context) error {
		return errors.New("down")
	}})

	resp := getHealth(h.Liveness)
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, StatusHealthy, decodeBody(t, resp)["status"])
}

func TestReadiness(t *testing.T) {
	ok := func(context.Context) error { return nil }
	down := func(context.Context) error { return errors.New("connection refused") }

	tests := []struct {
		name       string
		users      func(context.Context) error
		sessions   func(context.Context) error
		wantCode   int
		wantStatus string
	}{
		{"all up", ok, ok, http.StatusOK, StatusHealthy},
		{"session store down", ok, down, http.StatusOK, StatusDegraded},
		{"user store down", down, ok, http.StatusServiceUnavailable, StatusUnhealthy},
		{"both down", down, down, http.StatusServiceUnavailable, StatusUnhealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthHandler(
				Dependency{Name: "users", Required: true, Check: tt.users},
				Dependency{Name: "sessions", Check: tt.sessions},
			)

			resp := getHealth(h.Readiness)

			assert.Equal(t, tt.wantCode, resp.Code)
			var status HealthStatus
			require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &status))
			assert.Equal(t, tt.wantStatus, status.Status)
			assert.Len(t, status.Dependencies, 2)
		})
	}
}

func TestReadiness_ReportsFailureMessage(t *testing.T) {
	h := NewHealthHandler(Dependency{Name: "users", Required: true, Check: func(context.Context) error {
		return errors.New("connection refused")
	}})

	status := h.Check(context.Background())
	assert.Equal(t, StatusUnhealthy, status.Dependencies["users"].Status)
	assert.Equal(t, "connection refused", status.Dependencies["users"].Message)
}
