package auth

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redmonkez12/work4u/internal/backend"
	"github.com/redmonkez12/work4u/internal/httputil"
	"github.com/redmonkez12/work4u/internal/identity"
	"github.com/redmonkez12/work4u/internal/user"
)

func TestPasswordMeetsPolicy(t *testing.T) {
	tests := []struct {
		password string
		want     bool
	}{
		{"Secret1!", true},
		{"Ab1!xy", true},
		{"Ab1!x", false},
		{"secret1!", false},
		{"Secret!!", false},
		{"Secret12", false},
		{"ÉCRIT1!x", true},
		{"Abcdé12", true},
	}

	for _, tt := range tests {
		t.Run(tt.password, func(t *testing.T) {
			assert.Equal(t, tt.want, PasswordMeetsPolicy(tt.password))
		})
	}
}

func TestValidateSignIn(t *testing.T) {
	tests := []struct {
		name  string
		in    SignInInput
		err   error
		field string
	}{
		{"empty email", SignInInput{Password: "Secret1!"}, ErrEmailRequired, FieldEmail},
		{"blank email", SignInInput{Email: "   ", Password: "Secret1!"}, ErrEmailRequired, FieldEmail},
		{"email without at", SignInInput{Email: "ana.example.com", Password: "Secret1!"}, ErrInvalidEmailFormat, FieldEmail},
		{"empty password", SignInInput{Email: "ana@example.com"}, ErrPasswordRequired, FieldPassword},
		{"weak password", SignInInput{Email: "ana@example.com", Password: "secret"}, ErrPasswordPolicy, FieldPassword},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSignIn(tt.in)
			require.ErrorIs(t, err, tt.err)

			var ferr *FieldError
			require.ErrorAs(t, err, &ferr)
			assert.Equal(t, tt.field, ferr.Field)
		})
	}

	assert.NoError(t, ValidateSignIn(SignInInput{Email: "ana@example.com", Password: "Secret1!"}))
}

func TestValidateSignUp(t *testing.T) {
	valid := SignUpInput{
		Email:       "ana@example.com",
		Password:    "Secret1!",
		DisplayName: "Ana",
		WorkerTypes: []user.WorkerType{user.WorkerTypeWorker},
	}
	require.NoError(t, ValidateSignUp(valid))

	t.Run("reports every field", func(t *testing.T) {
		err := ValidateSignUp(SignUpInput{})
		assert.ErrorIs(t, err, ErrEmailRequired)
		assert.ErrorIs(t, err, ErrPasswordRequired)
		assert.ErrorIs(t, err, ErrDisplayNameRequired)
		assert.ErrorIs(t, err, ErrWorkerTypesRequired)
	})

	t.Run("unknown worker type", func(t *testing.T) {
		in := valid
		in.WorkerTypes = []user.WorkerType{"ADMIN"}
		assert.ErrorIs(t, ValidateSignUp(in), ErrInvalidWorkerType)
	})

	t.Run("unknown user type", func(t *testing.T) {
		in := valid
		in.UserType = "ROBOT"
		assert.ErrorIs(t, ValidateSignUp(in), ErrInvalidUserType)
	})

	t.Run("blank display name", func(t *testing.T) {
		in := valid
		in.DisplayName = "  "
		assert.ErrorIs(t, ValidateSignUp(in), ErrDisplayNameRequired)
	})
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		form Form
		err  error
		want Problem
	}{
		{
			name: "sign-in password policy",
			form: FormSignIn,
			err:  fieldError(FieldPassword, ErrPasswordPolicy),
			want: Problem{http.StatusBadRequest, httputil.CodePasswordPolicy, FieldPassword, "auth.signIn.error.passwordComplexity"},
		},
		{
			name: "sign-up password policy",
			form: FormSignUp,
			err:  fieldError(FieldPassword, ErrPasswordPolicy),
			want: Problem{http.StatusBadRequest, httputil.CodePasswordPolicy, FieldPassword, "auth.signUp.error.passwordLength"},
		},
		{
			name: "user not found",
			form: FormSignIn,
			err:  fmt.Errorf("failed to sign in: %w", &identity.ProviderError{Code: "auth/user-not-found", Kind: identity.ErrUserNotFound}),
			want: Problem{http.StatusUnauthorized, httputil.CodeUserNotFound, FieldEmail, "auth.signIn.error.userNotFound"},
		},
		{
			name: "too many attempts",
			form: FormSignIn,
			err:  identity.ErrTooManyAttempts,
			want: Problem{http.StatusTooManyRequests, httputil.CodeTooManyRequests, "", "errors.tooManyAttempts"},
		},
		{
			name: "registration required",
			form: FormSignIn,
			err:  ErrRegistrationRequired,
			want: Problem{http.StatusNotFound, httputil.CodeRegistrationRequired, "", "auth.signIn.error.registrationRequired"},
		},
		{
			name: "no session",
			form: FormSession,
			err:  identity.ErrNoSession,
			want: Problem{http.StatusUnauthorized, httputil.CodeNoSession, "", "auth.session.required"},
		},
		{
			name: "backend unavailable",
			form: FormProfile,
			err:  fmt.Errorf("failed to update profile: %w", backend.ErrUnavailable),
			want: Problem{http.StatusServiceUnavailable, httputil.CodeUnavailable, "", "errors.unavailable"},
		},
		{
			name: "backend error",
			form: FormProfile,
			err:  fmt.Errorf("failed to update profile: %w", backend.NewAPIError(500, "boom")),
			want: Problem{http.StatusBadGateway, httputil.CodeBackendError, "", "profile.error.generic"},
		},
		{
			name: "unknown",
			form: FormSignUp,
			err:  errors.New("something"),
			want: Problem{http.StatusInternalServerError, httputil.CodeInternalError, "", "auth.signUp.error.generic"},
		},
		{
			name: "unknown session error",
			form: FormSession,
			err:  errors.New("something"),
			want: Problem{http.StatusInternalServerError, httputil.CodeInternalError, "", "errors.generic"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.form, tt.err))
		})
	}
}

func TestClassifyJoinedValidationUsesFirstMatch(t *testing.T) {
	err := ValidateSignUp(SignUpInput{Email: "ana@example.com", Password: "Secret1!"})

	p := Classify(FormSignUp, err)
	assert.Equal(t, FieldDisplayName, p.Field)
	assert.Equal(t, "auth.signUp.error.displayNameRequired", p.Key)
}
