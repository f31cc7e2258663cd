package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultIdentityToolkitURL = "https://identitytoolkit.googleapis.com/v1"
	DefaultSecureTokenURL     = "https://securetoken.googleapis.com/v1"
)

// FirebaseConfig configures the Firebase Authentication REST client.
type FirebaseConfig struct {
	APIKey             string
	IdentityToolkitURL string
	SecureTokenURL     string
	// RequestURI is reported to signInWithIdp as the OAuth continue URI.
	RequestURI string
	Timeout    time.Duration
}

// Firebase implements Provider against the Firebase Authentication REST API.
type Firebase struct {
	apiKey     string
	toolkitURL string
	tokenURL   string
	requestURI string
	httpClient *http.Client
	verifier   TokenVerifier
	now        func() time.Time
}

// TokenVerifier checks an ID token and returns the identity it asserts.
type TokenVerifier interface {
	Verify(ctx context.Context, idToken string) (*User, error)
}

// NewFirebase creates a Firebase client. verifier may be nil, in which case
// tokens are trusted as returned (emulator setups).
func NewFirebase(cfg FirebaseConfig, verifier TokenVerifier) *Firebase {
	toolkitURL := cfg.IdentityToolkitURL
	if toolkitURL == "" {
		toolkitURL = DefaultIdentityToolkitURL
	}
	tokenURL := cfg.SecureTokenURL
	if tokenURL == "" {
		tokenURL = DefaultSecureTokenURL
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	requestURI := cfg.RequestURI
	if requestURI == "" {
		requestURI = "http://localhost"
	}

	return &Firebase{
		apiKey:     cfg.APIKey,
		toolkitURL: strings.TrimRight(toolkitURL, "/"),
		tokenURL:   strings.TrimRight(tokenURL, "/"),
		requestURI: requestURI,
		httpClient: &http.Client{Timeout: timeout},
		verifier:   verifier,
		now:        time.Now,
	}
}

type passwordRequest struct {
	Email             string `json:"email"`
	Password          string `json:"password"`
	ReturnSecureToken bool   `json:"returnSecureToken"`
}

type idpRequest struct {
	PostBody            string `json:"postBody"`
	RequestURI          string `json:"requestUri"`
	ReturnIdpCredential bool   `json:"returnIdpCredential"`
	ReturnSecureToken   bool   `json:"returnSecureToken"`
}

type oobRequest struct {
	RequestType string `json:"requestType"`
	Email       string `json:"email"`
}

type lookupRequest struct {
	IDToken string `json:"idToken"`
}

// tokenResponse covers the fields shared by signUp, signInWithPassword and
// signInWithIdp responses.
type tokenResponse struct {
	LocalID       string `json:"localId"`
	Email         string `json:"email"`
	DisplayName   string `json:"displayName"`
	PhotoURL      string `json:"photoUrl"`
	EmailVerified bool   `json:"emailVerified"`
	ProviderID    string `json:"providerId"`
	IDToken       string `json:"idToken"`
	RefreshToken  string `json:"refreshToken"`
	ExpiresIn     string `json:"expiresIn"`
}

type refreshResponse struct {
	IDToken      string `json:"id_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    string `json:"expires_in"`
	UserID       string `json:"user_id"`
}

type lookupResponse struct {
	Users []struct {
		LocalID       string `json:"localId"`
		Email         string `json:"email"`
		DisplayName   string `json:"displayName"`
		PhotoURL      string `json:"photoUrl"`
		PhoneNumber   string `json:"phoneNumber"`
		EmailVerified bool   `json:"emailVerified"`
		Disabled      bool   `json:"disabled"`
	} `json:"users"`
}

type errorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// SignUp creates an email/password account and signs it in.
func (f *Firebase) SignUp(ctx context.Context, email, password string) (*Session, error) {
	var resp tokenResponse
	req := passwordRequest{Email: email, Password: password, ReturnSecureToken: true}
	if err := f.call(ctx, "accounts:signUp", req, &resp); err != nil {
		return nil, err
	}
	resp.ProviderID = "password"
	return f.session(ctx, resp)
}

// SignInWithPassword authenticates an email/password account.
func (f *Firebase) SignInWithPassword(ctx context.Context, email, password string) (*Session, error) {
	var resp tokenResponse
	req := passwordRequest{Email: email, Password: password, ReturnSecureToken: true}
	if err := f.call(ctx, "accounts:signInWithPassword", req, &resp); err != nil {
		return nil, err
	}
	resp.ProviderID = "password"
	return f.session(ctx, resp)
}

// SignInWithCredential exchanges an OAuth credential for a session, creating
// the identity account on first use.
func (f *Firebase) SignInWithCredential(ctx context.Context, cred Credential) (*Session, error) {
	postBody := url.Values{}
	postBody.Set("providerId", cred.ProviderID)
	if cred.IDToken != "" {
		postBody.Set("id_token", cred.IDToken)
	}
	if cred.AccessToken != "" {
		postBody.Set("access_token", cred.AccessToken)
	}

	var resp tokenResponse
	req := idpRequest{
		PostBody:            postBody.Encode(),
		RequestURI:          f.requestURI,
		ReturnIdpCredential: true,
		ReturnSecureToken:   true,
	}
	if err := f.call(ctx, "accounts:signInWithIdp", req, &resp); err != nil {
		return nil, err
	}
	if resp.ProviderID == "" {
		resp.ProviderID = cred.ProviderID
	}
	return f.session(ctx, resp)
}

// Refresh exchanges the refresh token for a new ID token. The profile fields
// of the session are carried over.
func (f *Firebase) Refresh(ctx context.Context, session *Session) (*Session, error) {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", session.RefreshToken)

	endpoint := fmt.Sprintf("%s/token?key=%s", f.tokenURL, url.QueryEscape(f.apiKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create token refresh request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var resp refreshResponse
	if err := f.do(req, &resp); err != nil {
		return nil, err
	}

	refreshed := *session
	refreshed.IDToken = resp.IDToken
	refreshed.RefreshToken = resp.RefreshToken
	refreshed.ExpiresAt = f.expiry(resp.ExpiresIn)
	if resp.UserID != "" && resp.UserID != session.User.Subject {
		return nil, fmt.Errorf("%w: refreshed token belongs to another user", ErrInvalidToken)
	}
	return &refreshed, nil
}

// SendPasswordReset asks the provider to email a password reset link.
func (f *Firebase) SendPasswordReset(ctx context.Context, email string) error {
	req := oobRequest{RequestType: "PASSWORD_RESET", Email: email}
	return f.call(ctx, "accounts:sendOobCode", req, nil)
}

// session completes a token response into a Session, filling the profile
// fields the sign-in endpoints omit from accounts:lookup.
func (f *Firebase) session(ctx context.Context, resp tokenResponse) (*Session, error) {
	s := &Session{
		User: User{
			Subject:       resp.LocalID,
			Email:         resp.Email,
			DisplayName:   resp.DisplayName,
			PhotoURL:      resp.PhotoURL,
			EmailVerified: resp.EmailVerified,
		},
		ProviderID:   resp.ProviderID,
		IDToken:      resp.IDToken,
		RefreshToken: resp.RefreshToken,
		ExpiresAt:    f.expiry(resp.ExpiresIn),
	}

	if f.verifier != nil {
		claimed, err := f.verifier.Verify(ctx, s.IDToken)
		if err != nil {
			return nil, err
		}
		if claimed.Subject != s.User.Subject {
			return nil, fmt.Errorf("%w: token subject does not match account", ErrInvalidToken)
		}
	}

	var lookup lookupResponse
	if err := f.call(ctx, "accounts:lookup", lookupRequest{IDToken: s.IDToken}, &lookup); err != nil {
		return nil, fmt.Errorf("failed to look up account: %w", err)
	}
	if len(lookup.Users) > 0 {
		info := lookup.Users[0]
		if info.Disabled {
			return nil, ErrUserDisabled
		}
		s.User.Email = firstNonEmpty(info.Email, s.User.Email)
		s.User.DisplayName = firstNonEmpty(info.DisplayName, s.User.DisplayName)
		s.User.PhotoURL = firstNonEmpty(info.PhotoURL, s.User.PhotoURL)
		s.User.PhoneNumber = info.PhoneNumber
		s.User.EmailVerified = info.EmailVerified || s.User.EmailVerified
	}

	return s, nil
}

func (f *Firebase) expiry(expiresIn string) time.Time {
	seconds, err := strconv.Atoi(expiresIn)
	if err != nil || seconds <= 0 {
		seconds = 3600
	}
	return f.now().Add(time.Duration(seconds) * time.Second)
}

func (f *Firebase) call(ctx context.Context, method string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal %s request: %w", method, err)
	}

	endpoint := fmt.Sprintf("%s/%s?key=%s", f.toolkitURL, method, url.QueryEscape(f.apiKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	return f.do(req, out)
}

func (f *Firebase) do(req *http.Request, out any) error {
	resp, err := f.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach identity provider: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		var errResp errorResponse
		if err := json.Unmarshal(body, &errResp); err != nil || errResp.Error.Message == "" {
			return &ProviderError{Code: strconv.Itoa(resp.StatusCode), Message: strings.TrimSpace(string(body))}
		}
		return newProviderError(errResp.Error.Message)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode identity provider response: %w", err)
	}
	return nil
}

// newProviderError parses messages such as "WEAK_PASSWORD : Password should
// be at least 6 characters".
func newProviderError(message string) *ProviderError {
	code, detail, _ := strings.Cut(message, ":")
	code = strings.TrimSpace(code)
	return &ProviderError{
		Code:    code,
		Message: strings.TrimSpace(detail),
		Kind:    kindForCode(code),
	}
}

func kindForCode(code string) error {
	switch code {
	case "EMAIL_EXISTS":
		return ErrEmailAlreadyInUse
	case "WEAK_PASSWORD":
		return ErrWeakPassword
	case "INVALID_EMAIL", "MISSING_EMAIL":
		return ErrInvalidEmail
	case "EMAIL_NOT_FOUND", "USER_NOT_FOUND":
		return ErrUserNotFound
	case "INVALID_PASSWORD", "INVALID_LOGIN_CREDENTIALS", "MISSING_PASSWORD":
		return ErrWrongPassword
	case "USER_DISABLED":
		return ErrUserDisabled
	case "TOO_MANY_ATTEMPTS_TRY_LATER":
		return ErrTooManyAttempts
	case "TOKEN_EXPIRED", "INVALID_REFRESH_TOKEN", "INVALID_ID_TOKEN", "CREDENTIAL_TOO_OLD_LOGIN_AGAIN":
		return ErrSessionExpired
	default:
		return nil
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
