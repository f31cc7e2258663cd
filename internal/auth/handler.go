package auth

import (
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/redmonkez12/work4u/internal/httputil"
	"github.com/redmonkez12/work4u/internal/i18n"
	"github.com/redmonkez12/work4u/internal/logging"
	"github.com/redmonkez12/work4u/internal/user"
)

// Handler contains HTTP handlers for authentication and session endpoints
type Handler struct {
	oauth   OAuthFlow
	catalog *i18n.Catalog
	now     func() time.Time
}

// NewHandler creates the auth handlers. A nil oauth disables Google sign-in.
func NewHandler(oauth OAuthFlow, catalog *i18n.Catalog) *Handler {
	if oauth == nil {
		oauth = disabledFlow{}
	}
	return &Handler{oauth: oauth, catalog: catalog, now: time.Now}
}

// SignUpRequest represents the registration request body
type SignUpRequest = SignUpInput

// SignInRequest represents the sign-in request body
type SignInRequest = SignInInput

// ForgotPasswordRequest represents the password reset request
type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

// UserResponse wraps the signed-in user
type UserResponse struct {
	User *user.ApplicationUser `json:"user"`
}

// SessionResponse describes the client's session
type SessionResponse struct {
	User          *user.ApplicationUser `json:"user"`
	Authenticated bool                  `json:"authenticated"`
	Loading       bool                  `json:"loading"`
}

// TokenResponse carries a fresh ID token
type TokenResponse struct {
	Token string `json:"token"`
}

// MessageResponse carries a user-facing message
type MessageResponse struct {
	Message string `json:"message"`
}

// SignUp handles email/password registration
// @Summary      Sign up
// @Description  Create the identity account and the marketplace profile, then sign in.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body SignUpRequest true "Registration form"
// @Success      201 {object} UserResponse
// @Failure      400 {object} httputil.ErrorResponse "Validation error"
// @Failure      409 {object} httputil.ErrorResponse "Email already in use"
// @Failure      500 {object} httputil.ErrorResponse "Internal server error"
// @Router       /auth/signup [post]
func (h *Handler) SignUp(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())
	c, ok := h.client(w, r, FormSignUp)
	if !ok {
		return
	}

	var req SignUpRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		logger.Warn("invalid sign-up request body", "error", err.Error())
		h.respondProblem(w, r, FormSignUp, errInvalidBody)
		return
	}
	req.Email = strings.TrimSpace(req.Email)

	if err := ValidateSignUp(req); err != nil {
		logger.Warn("sign-up failed: validation error", "error", err.Error())
		h.respondProblem(w, r, FormSignUp, err)
		return
	}

	logger = logger.WithFields(map[string]any{"email": req.Email})

	c.Lock()
	u, err := c.Service.SignUp(r.Context(), req)
	c.Unlock()
	if err != nil {
		logger.Warn("sign-up failed", "error", err.Error())
		SyncAuthFlagCookie(w, r, c.Flag.Authenticated())
		h.respondProblem(w, r, FormSignUp, err)
		return
	}

	logger.Info("user signed up", "user_id", u.ID)
	SyncAuthFlagCookie(w, r, c.Flag.Authenticated())
	httputil.RespondJSON(w, UserResponse{User: u}, http.StatusCreated)
}

// SignIn handles email/password sign-in
// @Summary      Sign in
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body SignInRequest true "Credentials"
// @Success      200 {object} UserResponse
// @Failure      400 {object} httputil.ErrorResponse "Validation error"
// @Failure      401 {object} httputil.ErrorResponse "Unknown user or wrong password"
// @Failure      403 {object} httputil.ErrorResponse "Account disabled"
// @Router       /auth/signin [post]
func (h *Handler) SignIn(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())
	c, ok := h.client(w, r, FormSignIn)
	if !ok {
		return
	}

	var req SignInRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		logger.Warn("invalid sign-in request body", "error", err.Error())
		h.respondProblem(w, r, FormSignIn, errInvalidBody)
		return
	}
	req.Email = strings.TrimSpace(req.Email)

	if err := ValidateSignIn(req); err != nil {
		logger.Warn("sign-in failed: validation error", "error", err.Error())
		h.respondProblem(w, r, FormSignIn, err)
		return
	}

	logger = logger.WithFields(map[string]any{"email": req.Email})

	c.Lock()
	u, err := c.Service.SignIn(r.Context(), req)
	c.Unlock()
	if err != nil {
		logger.Warn("sign-in failed", "error", err.Error())
		SyncAuthFlagCookie(w, r, c.Flag.Authenticated())
		h.respondProblem(w, r, FormSignIn, err)
		return
	}

	logger.Info("user signed in", "user_id", u.ID)
	SyncAuthFlagCookie(w, r, c.Flag.Authenticated())
	httputil.RespondJSON(w, UserResponse{User: u}, http.StatusOK)
}

// SignOut handles sign-out
// @Summary      Sign out
// @Tags         auth
// @Produce      json
// @Success      200 {object} MessageResponse
// @Failure      500 {object} httputil.ErrorResponse
// @Router       /auth/signout [post]
func (h *Handler) SignOut(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())
	c, ok := h.client(w, r, FormSession)
	if !ok {
		return
	}

	c.Lock()
	err := c.Service.SignOut(r.Context())
	c.Unlock()
	if err != nil {
		logger.Error("sign-out failed", "error", err.Error())
		h.respondProblem(w, r, FormSession, err)
		return
	}

	logger.Info("user signed out")
	SyncAuthFlagCookie(w, r, c.Flag.Authenticated())
	httputil.RespondJSON(w, MessageResponse{Message: "signed out"}, http.StatusOK)
}

// ForgotPassword requests a password reset email
// @Summary      Request password reset
// @Description  Always reports success so accounts cannot be enumerated.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body ForgotPasswordRequest true "Email"
// @Success      200 {object} MessageResponse
// @Failure      400 {object} httputil.ErrorResponse
// @Router       /auth/forgot-password [post]
func (h *Handler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())
	c, ok := h.client(w, r, FormSignIn)
	if !ok {
		return
	}

	var req ForgotPasswordRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		logger.Warn("invalid forgot password request body", "error", err.Error())
		h.respondProblem(w, r, FormSignIn, errInvalidBody)
		return
	}
	if err := validateEmail(req.Email); err != nil {
		h.respondProblem(w, r, FormSignIn, err)
		return
	}

	c.Service.RequestPasswordReset(r.Context(), strings.TrimSpace(req.Email))

	httputil.RespondJSON(w, MessageResponse{Message: h.t(r, "auth.resetPassword.sent")}, http.StatusOK)
}

// GoogleSignIn starts the Google consent flow for an existing account
// @Summary      Sign in with Google
// @Tags         auth
// @Success      302 {string} string "Redirect"
// @Router       /auth/google/signin [get]
func (h *Handler) GoogleSignIn(w http.ResponseWriter, r *http.Request) {
	h.beginOAuth(w, r, PendingOAuth{Intent: IntentSignIn})
}

// GoogleSignUp starts the Google consent flow for a new account
// @Summary      Sign up with Google
// @Tags         auth
// @Param        userType query string false "PERSONAL or ENTERPRISE"
// @Param        workerTypes query string true "Comma separated WORKER,REQUESTOR"
// @Success      302 {string} string "Redirect"
// @Failure      400 {object} httputil.ErrorResponse
// @Router       /auth/google/signup [get]
func (h *Handler) GoogleSignUp(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	userType := user.UserType(strings.ToUpper(strings.TrimSpace(q.Get("userType"))))
	workerTypes := []user.WorkerType(user.ParseWorkerTypes(strings.ToUpper(q.Get("workerTypes"))))

	if userType != "" && !userType.Valid() {
		h.respondProblem(w, r, FormSignUp, fieldError(FieldUserType, ErrInvalidUserType))
		return
	}
	if err := validateWorkerTypes(workerTypes); err != nil {
		h.respondProblem(w, r, FormSignUp, err)
		return
	}

	h.beginOAuth(w, r, PendingOAuth{Intent: IntentSignUp, UserType: userType, WorkerTypes: workerTypes})
}

func (h *Handler) beginOAuth(w http.ResponseWriter, r *http.Request, pending PendingOAuth) {
	logger := logging.GetLoggerFromContext(r.Context())
	c, ok := h.client(w, r, FormSignIn)
	if !ok {
		return
	}

	pending.State = uuid.NewString()
	pending.StartedAt = h.now()

	authURL, flowData, err := h.oauth.Begin(pending.State)
	if err != nil {
		logger.Error("failed to start google flow", "error", err.Error())
		h.respondProblem(w, r, FormSignIn, err)
		return
	}
	pending.FlowData = flowData

	if err := savePendingOAuth(r.Context(), c.Storage, pending); err != nil {
		logger.Error("failed to save google flow", "error", err.Error())
		h.respondProblem(w, r, FormSignIn, err)
		return
	}

	http.Redirect(w, r, authURL, http.StatusFound)
}

// GoogleCallback completes the Google consent flow
// @Summary      Google OAuth callback
// @Description  Redirects to / on success, to /signup when the account must register first, otherwise back to the form with an error code.
// @Tags         auth
// @Success      302 {string} string "Redirect"
// @Router       /auth/google/callback [get]
func (h *Handler) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())
	c, ok := h.client(w, r, FormSignIn)
	if !ok {
		return
	}

	pending, err := takePendingOAuth(r.Context(), c.Storage, r.URL.Query().Get("state"), h.now())
	if err != nil {
		logger.Warn("google callback rejected", "error", err.Error())
		h.redirectWithError(w, r, "/signin", FormSignIn, err)
		return
	}

	form, page := FormSignIn, "/signin"
	if pending.Intent == IntentSignUp {
		form, page = FormSignUp, "/signup"
	}

	cred, err := h.oauth.Complete(r.Context(), pending.FlowData, r.URL.Query())
	if err != nil {
		logger.Warn("google consent failed", "error", err.Error())
		h.redirectWithError(w, r, page, form, err)
		return
	}

	c.Lock()
	if pending.Intent == IntentSignUp {
		_, err = c.Service.SignUpWithGoogle(r.Context(), cred, pending.UserType, pending.WorkerTypes)
	} else {
		_, err = c.Service.SignInWithGoogle(r.Context(), cred)
	}
	c.Unlock()

	SyncAuthFlagCookie(w, r, c.Flag.Authenticated())

	if errors.Is(err, ErrRegistrationRequired) {
		logger.Info("google account has no profile, redirecting to sign-up")
		h.redirectWithError(w, r, "/signup", FormSignIn, err)
		return
	}
	if err != nil {
		logger.Warn("google sign-in failed", "intent", string(pending.Intent), "error", err.Error())
		h.redirectWithError(w, r, page, form, err)
		return
	}

	logger.Info("user signed in with google", "intent", string(pending.Intent))
	http.Redirect(w, r, "/", http.StatusFound)
}

// Session restores and returns the client's session
// @Summary      Current session
// @Tags         session
// @Produce      json
// @Success      200 {object} SessionResponse
// @Router       /api/session [get]
func (h *Handler) Session(w http.ResponseWriter, r *http.Request) {
	c, ok := h.client(w, r, FormSession)
	if !ok {
		return
	}

	c.Service.Restore(r.Context())
	u := c.Service.CurrentUser()

	SyncAuthFlagCookie(w, r, c.Flag.Authenticated())
	httputil.RespondJSON(w, SessionResponse{
		User:          u,
		Authenticated: u != nil,
		Loading:       c.Service.Loading(),
	}, http.StatusOK)
}

// Token returns a valid ID token for the signed-in user
// @Summary      Current ID token
// @Tags         session
// @Produce      json
// @Success      200 {object} TokenResponse
// @Failure      401 {object} httputil.ErrorResponse "No session"
// @Router       /api/token [get]
func (h *Handler) Token(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())
	c, ok := h.client(w, r, FormSession)
	if !ok {
		return
	}

	token, err := c.Service.GetIDToken(r.Context())
	if err != nil {
		logger.Warn("failed to get id token", "error", err.Error())
		SyncAuthFlagCookie(w, r, c.Flag.Authenticated())
		h.respondProblem(w, r, FormSession, err)
		return
	}

	httputil.RespondJSON(w, TokenResponse{Token: token}, http.StatusOK)
}

// UpdateProfile patches the signed-in user's profile
// @Summary      Update profile
// @Tags         profile
// @Accept       json
// @Produce      json
// @Param        request body user.ProfileUpdate true "Changed fields"
// @Success      200 {object} UserResponse
// @Failure      400 {object} httputil.ErrorResponse
// @Failure      401 {object} httputil.ErrorResponse
// @Router       /api/profile [patch]
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())
	c, ok := h.client(w, r, FormProfile)
	if !ok {
		return
	}

	var req user.ProfileUpdate
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		logger.Warn("invalid profile update body", "error", err.Error())
		h.respondProblem(w, r, FormProfile, errInvalidBody)
		return
	}
	if req.UserType != nil && !req.UserType.Valid() {
		h.respondProblem(w, r, FormProfile, fieldError(FieldUserType, ErrInvalidUserType))
		return
	}
	if req.WorkerTypes != nil {
		if err := validateWorkerTypes(req.WorkerTypes); err != nil {
			h.respondProblem(w, r, FormProfile, err)
			return
		}
	}

	current := c.Service.CurrentUser()
	if current == nil {
		h.respondProblem(w, r, FormProfile, ErrMissingClient)
		return
	}

	c.Lock()
	defer c.Unlock()

	updated, err := c.Service.UpdateProfile(r.Context(), current.ID, req)
	if err != nil {
		logger.Warn("profile update failed", "user_id", current.ID, "error", err.Error())
		h.respondProblem(w, r, FormProfile, err)
		return
	}

	u := c.Service.ApplyProfileUpdate(r.Context(), updated, req)
	logger.Info("profile updated", "user_id", current.ID)
	httputil.RespondJSON(w, UserResponse{User: u}, http.StatusOK)
}

// DeleteProfile deletes the signed-in user's account
// @Summary      Delete account
// @Tags         profile
// @Success      204 {string} string "No Content"
// @Failure      401 {object} httputil.ErrorResponse
// @Router       /api/profile [delete]
func (h *Handler) DeleteProfile(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())
	c, ok := h.client(w, r, FormProfile)
	if !ok {
		return
	}

	c.Lock()
	err := c.Service.DeleteAccount(r.Context())
	c.Unlock()
	if err != nil {
		logger.Warn("account deletion failed", "error", err.Error())
		p := Classify(FormProfile, err)
		if p.Status >= http.StatusInternalServerError || p.Code == httputil.CodeBackendError {
			p.Key = "profile.error.deleteFailed"
		}
		h.respond(w, r, p)
		return
	}

	SyncAuthFlagCookie(w, r, c.Flag.Authenticated())
	w.WriteHeader(http.StatusNoContent)
}

var errInvalidBody = errors.New("invalid request body")

func (h *Handler) client(w http.ResponseWriter, r *http.Request, form Form) (*Client, bool) {
	c, ok := ClientFromContext(r.Context())
	if !ok {
		h.respondProblem(w, r, form, ErrMissingClient)
		return nil, false
	}
	return c, true
}

func (h *Handler) t(r *http.Request, key string) string {
	return h.catalog.Translator(i18n.TagFrom(r.Context())).T(key)
}

func (h *Handler) respondProblem(w http.ResponseWriter, r *http.Request, form Form, err error) {
	if errors.Is(err, errInvalidBody) {
		httputil.RespondErrorWithCode(w, h.t(r, "errors.invalidRequest"), httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}
	h.respond(w, r, Classify(form, err))
}

func (h *Handler) respond(w http.ResponseWriter, r *http.Request, p Problem) {
	msg := h.t(r, p.Key)
	if p.Field != "" {
		httputil.RespondFieldError(w, msg, p.Code, p.Field, p.Status)
		return
	}
	httputil.RespondErrorWithCode(w, msg, p.Code, p.Status)
}

func (h *Handler) redirectWithError(w http.ResponseWriter, r *http.Request, page string, form Form, err error) {
	p := Classify(form, err)
	q := url.Values{"error": {p.Code}}
	http.Redirect(w, r, page+"?"+q.Encode(), http.StatusFound)
}
