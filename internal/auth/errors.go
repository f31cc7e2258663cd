package auth

import (
	"errors"
	"net/http"

	"github.com/redmonkez12/work4u/internal/backend"
	"github.com/redmonkez12/work4u/internal/httputil"
	"github.com/redmonkez12/work4u/internal/identity"
)

var (
	// ErrRegistrationRequired is returned by Google sign-in when the account
	// has no backend profile yet.
	ErrRegistrationRequired = errors.New("no account found, sign up first")

	ErrEmailRequired       = errors.New("email is required")
	ErrInvalidEmailFormat  = errors.New("invalid email format")
	ErrPasswordRequired    = errors.New("password is required")
	ErrPasswordPolicy      = errors.New("password must be at least 6 characters and contain an uppercase letter, a number and a symbol")
	ErrDisplayNameRequired = errors.New("display name is required")
	ErrWorkerTypesRequired = errors.New("select at least one worker type")
	ErrInvalidWorkerType   = errors.New("unknown worker type")
	ErrInvalidUserType     = errors.New("unknown user type")
)

// Form scopes user-facing messages to the screen that produced the error.
type Form string

const (
	FormSignIn  Form = "signIn"
	FormSignUp  Form = "signUp"
	FormProfile Form = "profile"
	FormSession Form = "session"
)

// Form fields an error can be attached to
const (
	FieldEmail       = "email"
	FieldPassword    = "password"
	FieldDisplayName = "displayName"
	FieldWorkerTypes = "workerTypes"
	FieldUserType    = "userType"
)

// FieldError ties a validation or provider error to one form field.
type FieldError struct {
	Field string
	Err   error
}

func (e *FieldError) Error() string {
	return e.Field + ": " + e.Err.Error()
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

func fieldError(field string, err error) error {
	return &FieldError{Field: field, Err: err}
}

// Problem is how an error is presented to the user.
type Problem struct {
	Status int
	Code   string
	Field  string
	// Key is the message catalog key.
	Key string
}

// Classify maps err onto a status, code, optional field and message key.
// Unknown errors map to the generic message of form.
func Classify(form Form, err error) Problem {
	p := classify(form, err)

	var ferr *FieldError
	if p.Field == "" && errors.As(err, &ferr) {
		p.Field = ferr.Field
	}
	return p
}

func classify(form Form, err error) Problem {
	switch {
	case errors.Is(err, ErrEmailRequired):
		return Problem{http.StatusBadRequest, httputil.CodeEmailRequired, FieldEmail, formKey(form, "emailRequired")}
	case errors.Is(err, ErrInvalidEmailFormat), errors.Is(err, identity.ErrInvalidEmail):
		return Problem{http.StatusBadRequest, httputil.CodeInvalidEmail, FieldEmail, formKey(form, "invalidEmail")}
	case errors.Is(err, ErrPasswordRequired):
		return Problem{http.StatusBadRequest, httputil.CodePasswordRequired, FieldPassword, formKey(form, "passwordRequired")}
	case errors.Is(err, ErrPasswordPolicy):
		key := "passwordComplexity"
		if form == FormSignUp {
			key = "passwordLength"
		}
		return Problem{http.StatusBadRequest, httputil.CodePasswordPolicy, FieldPassword, formKey(form, key)}
	case errors.Is(err, ErrDisplayNameRequired):
		return Problem{http.StatusBadRequest, httputil.CodeDisplayNameRequired, FieldDisplayName, formKey(FormSignUp, "displayNameRequired")}
	case errors.Is(err, ErrWorkerTypesRequired), errors.Is(err, ErrInvalidWorkerType):
		return Problem{http.StatusBadRequest, httputil.CodeWorkerTypesRequired, FieldWorkerTypes, formKey(FormSignUp, "workerTypeRequired")}
	case errors.Is(err, ErrInvalidUserType):
		return Problem{http.StatusBadRequest, httputil.CodeValidationFailed, FieldUserType, "errors.invalidRequest"}

	case errors.Is(err, identity.ErrEmailAlreadyInUse):
		return Problem{http.StatusConflict, httputil.CodeEmailAlreadyInUse, FieldEmail, formKey(FormSignUp, "emailInUse")}
	case errors.Is(err, identity.ErrWeakPassword):
		return Problem{http.StatusBadRequest, httputil.CodeWeakPassword, FieldPassword, formKey(FormSignUp, "weakPassword")}
	case errors.Is(err, identity.ErrUserNotFound):
		return Problem{http.StatusUnauthorized, httputil.CodeUserNotFound, FieldEmail, formKey(FormSignIn, "userNotFound")}
	case errors.Is(err, identity.ErrWrongPassword):
		return Problem{http.StatusUnauthorized, httputil.CodeWrongPassword, FieldPassword, formKey(FormSignIn, "wrongPassword")}
	case errors.Is(err, identity.ErrUserDisabled):
		return Problem{http.StatusForbidden, httputil.CodeUserDisabled, FieldEmail, formKey(FormSignIn, "userDisabled")}
	case errors.Is(err, identity.ErrTooManyAttempts):
		return Problem{http.StatusTooManyRequests, httputil.CodeTooManyRequests, "", "errors.tooManyAttempts"}
	case errors.Is(err, identity.ErrPopupClosed):
		return Problem{http.StatusBadRequest, httputil.CodePopupClosed, "", formKey(form, "generic")}
	case errors.Is(err, ErrRegistrationRequired):
		return Problem{http.StatusNotFound, httputil.CodeRegistrationRequired, "", formKey(FormSignIn, "registrationRequired")}

	case errors.Is(err, ErrOAuthStateMismatch):
		return Problem{http.StatusBadRequest, httputil.CodeOAuthStateMismatch, "", "auth.oauth.stateMismatch"}
	case errors.Is(err, ErrOAuthDisabled):
		return Problem{http.StatusNotFound, httputil.CodeNotFound, "", formKey(form, "generic")}

	case errors.Is(err, identity.ErrNoSession), errors.Is(err, ErrMissingClient):
		return Problem{http.StatusUnauthorized, httputil.CodeNoSession, "", "auth.session.required"}
	case errors.Is(err, identity.ErrSessionExpired), errors.Is(err, identity.ErrInvalidToken):
		return Problem{http.StatusUnauthorized, httputil.CodeSessionExpired, "", "auth.session.expired"}

	case errors.Is(err, backend.ErrUnavailable):
		return Problem{http.StatusServiceUnavailable, httputil.CodeUnavailable, "", "errors.unavailable"}
	case errors.Is(err, backend.ErrNotFound):
		return Problem{http.StatusNotFound, httputil.CodeNotFound, "", "errors.notFound"}
	case errors.Is(err, backend.ErrConflict):
		return Problem{http.StatusConflict, httputil.CodeConflict, "", formKey(form, "generic")}
	case errors.Is(err, backend.ErrUnauthorized):
		return Problem{http.StatusUnauthorized, httputil.CodeSessionExpired, "", "auth.session.expired"}
	}

	var apiErr *backend.APIError
	if errors.As(err, &apiErr) {
		return Problem{http.StatusBadGateway, httputil.CodeBackendError, "", formKey(form, "generic")}
	}
	return Problem{http.StatusInternalServerError, httputil.CodeInternalError, "", formKey(form, "generic")}
}

func formKey(form Form, name string) string {
	switch form {
	case FormSignIn, FormSignUp:
		return "auth." + string(form) + ".error." + name
	case FormProfile:
		if name == "generic" {
			return "profile.error.generic"
		}
	}
	if name == "generic" {
		return "errors.generic"
	}
	return "auth.signIn.error." + name
}
