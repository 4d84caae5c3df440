package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/sakif/chatapp/internal/auth"
	"github.com/sakif/chatapp/internal/model"
	"github.com/sakif/chatapp/internal/service"
)

// invalidCredentials is the single message for both local strategy failures.
const invalidCredentials = "Invalid username or password"

// Outcome labels reported to an OutcomeRecorder.
const (
	OutcomeSuccess   = "success"
	OutcomeInvalid   = "invalid"
	OutcomeAnonymous = "anonymous"
	OutcomeError     = "error"
)

// OutcomeRecorder counts authentication outcomes per endpoint.
type OutcomeRecorder interface {
	RecordAuthOutcome(endpoint, outcome string)
}

type noopRecorder struct{}

func (noopRecorder) RecordAuthOutcome(string, string) {}

// Authenticator is the part of service.AuthService the handlers use.
type Authenticator interface {
	Login(ctx context.Context, identifier, password string) (*model.User, error)
	Signup(ctx context.Context, in service.SignupInput) (*model.User, error)
	Identify(ctx context.Context, token string) (*model.User, error)
}

// AuthHandler serves /login, /signup and /webhook.
//
// HANDLER RESPONSIBILITIES:
//   - HandleLogin   → validate body, run the local strategy, return the user
//   - HandleSignup  → validate body, create the user, then log in
//   - HandleWebhook → resolve the bearer token to a gateway role
//
// All three are stateless; everything they need arrives with the request.
type AuthHandler struct {
	auth      Authenticator
	validator *RequestValidator
	outcomes  OutcomeRecorder
	logger    *slog.Logger
}

// NewAuthHandler creates an AuthHandler. outcomes may be nil.
func NewAuthHandler(a Authenticator, outcomes OutcomeRecorder, logger *slog.Logger) *AuthHandler {
	if outcomes == nil {
		outcomes = noopRecorder{}
	}
	return &AuthHandler{
		auth:      a,
		validator: NewRequestValidator(),
		outcomes:  outcomes,
		logger:    logger,
	}
}

type loginRequest struct {
	Username string `json:"username" validate:"required" msg:"Username is not valid"`
	Password string `json:"password" validate:"required" msg:"Password cannot be blank" secret:"true"`
}

type signupRequest struct {
	Username        string `json:"username" validate:"required" msg:"Username is not valid"`
	Password        string `json:"password" validate:"min=8" msg:"Password must be at least 8 characters long" secret:"true"`
	ConfirmPassword string `json:"confirmPassword" validate:"eqfield=Password" msg:"Passwords do not match" secret:"true"`
	Email           string `json:"email" validate:"required,email" msg:"Email is not valid"`
}

// webhookResponse is the body the GraphQL gateway's auth hook expects.
// UserID is omitted entirely for anonymous callers.
type webhookResponse struct {
	Role   string `json:"X-Hasura-Role"`
	UserID string `json:"X-Hasura-User-Id,omitempty"`
}

// HandleLogin authenticates with username-or-email and password.
//
// HTTP: POST /login
//
//	200 {userid, username, email, token}
//	400 {errors: [...]}        body failed validation
//	400 {error: "..."}         unknown user or wrong password (not distinguished)
//	5xx translated error       storage failure
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	user, err := h.auth.Login(r.Context(), req.Username, req.Password)
	h.respondWithUser(w, "login", user, err)
}

// HandleSignup creates an account and logs it in.
//
// HTTP: POST /signup
//
//	200 {userid, username, email, token}   same shape as /login
//	400 {errors: [...]}                    body failed validation; nothing written
//	409 {message, type, data}              username or email already taken
func (h *AuthHandler) HandleSignup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	user, err := h.auth.Signup(r.Context(), service.SignupInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	h.respondWithUser(w, "signup", user, err)
}

// HandleWebhook answers the gateway's authorization hook.
//
// HTTP: GET /webhook   (Authorization: Bearer <token>, optional)
//
// A missing, malformed or unknown token is the anonymous outcome (200), never
// an error. 401 is reserved for storage failures.
func (h *AuthHandler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	token, _ := auth.BearerToken(r)

	user, err := h.auth.Identify(r.Context(), token)
	if err != nil {
		h.outcomes.RecordAuthOutcome("webhook", OutcomeError)
		h.logger.Error("webhook lookup failed", slog.Any("error", err))
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: err.Error()})
		return
	}

	if user == nil {
		h.outcomes.RecordAuthOutcome("webhook", OutcomeAnonymous)
		writeJSON(w, http.StatusOK, webhookResponse{Role: "anonymous"})
		return
	}

	h.outcomes.RecordAuthOutcome("webhook", OutcomeSuccess)
	writeJSON(w, http.StatusOK, webhookResponse{
		Role:   "user",
		UserID: strconv.FormatInt(user.ID, 10),
	})
}

// decodeAndValidate writes the 400 response itself and reports false when
// the body is unusable.
func (h *AuthHandler) decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := decodeJSON(w, r, dst); err != nil {
		writeMalformedBody(w)
		return false
	}

	if errs := h.validator.Validate(dst); errs != nil {
		writeJSON(w, http.StatusBadRequest, validationErrors{Errors: errs})
		return false
	}
	return true
}

func (h *AuthHandler) respondWithUser(w http.ResponseWriter, endpoint string, user *model.User, err error) {
	switch {
	case err == nil:
		h.outcomes.RecordAuthOutcome(endpoint, OutcomeSuccess)
		writeJSON(w, http.StatusOK, user.Public())

	case errors.Is(err, service.ErrUnknownUser), errors.Is(err, service.ErrInvalidPassword):
		h.outcomes.RecordAuthOutcome(endpoint, OutcomeInvalid)
		h.logger.Debug("credential check failed", slog.String("endpoint", endpoint), slog.Any("reason", err))
		writeJSON(w, http.StatusBadRequest, errorBody{Error: invalidCredentials})

	default:
		h.outcomes.RecordAuthOutcome(endpoint, OutcomeError)
		writeTranslated(w, h.logger, err)
	}
}
