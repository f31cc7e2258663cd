package auth

import (
	"errors"
	"strings"

	"github.com/redmonkez12/work4u/internal/user"
)

const minPasswordLength = 6

// SignUpInput is the email/password registration form.
type SignUpInput struct {
	Email       string            `json:"email"`
	Password    string            `json:"password"`
	DisplayName string            `json:"displayName"`
	UserType    user.UserType     `json:"userType"`
	WorkerTypes []user.WorkerType `json:"workerTypes"`
}

// SignInInput is the email/password sign-in form.
type SignInInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ValidateSignUp checks the form before anything is sent to the identity
// provider. All field errors are returned joined.
func ValidateSignUp(in SignUpInput) error {
	var errs []error

	if err := validateEmail(in.Email); err != nil {
		errs = append(errs, err)
	}
	if err := validatePassword(in.Password); err != nil {
		errs = append(errs, err)
	}
	if strings.TrimSpace(in.DisplayName) == "" {
		errs = append(errs, fieldError(FieldDisplayName, ErrDisplayNameRequired))
	}
	if in.UserType != "" && !in.UserType.Valid() {
		errs = append(errs, fieldError(FieldUserType, ErrInvalidUserType))
	}
	if err := validateWorkerTypes(in.WorkerTypes); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// ValidateSignIn checks the sign-in form.
func ValidateSignIn(in SignInInput) error {
	return errors.Join(validateEmail(in.Email), validatePassword(in.Password))
}

func validateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return fieldError(FieldEmail, ErrEmailRequired)
	}
	if !strings.Contains(email, "@") {
		return fieldError(FieldEmail, ErrInvalidEmailFormat)
	}
	return nil
}

func validatePassword(password string) error {
	if password == "" {
		return fieldError(FieldPassword, ErrPasswordRequired)
	}
	if !PasswordMeetsPolicy(password) {
		return fieldError(FieldPassword, ErrPasswordPolicy)
	}
	return nil
}

func validateWorkerTypes(types []user.WorkerType) error {
	if len(types) == 0 {
		return fieldError(FieldWorkerTypes, ErrWorkerTypesRequired)
	}
	for _, t := range types {
		if !t.Valid() {
			return fieldError(FieldWorkerTypes, ErrInvalidWorkerType)
		}
	}
	return nil
}

// PasswordMeetsPolicy reports whether password has at least six characters
// including an ASCII uppercase letter, a digit and a character that is
// not an ASCII letter or digit.
func PasswordMeetsPolicy(password string) bool {
	var upper, digit, symbol bool
	n := 0
	for _, r := range password {
		n++
		switch {
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= '0' && r <= '9':
			digit = true
		case r < 'a' || r > 'z':
			symbol = true
		}
	}
	return n >= minPasswordLength && upper && digit && symbol
}
