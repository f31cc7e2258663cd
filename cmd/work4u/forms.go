package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/redmonkez12/work4u/internal/auth"
	"github.com/redmonkez12/work4u/internal/user"
)

func required(name string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", name)
		}
		return nil
	}
}

// runSignInForm asks for the fields in still empty.
func runSignInForm(in *auth.SignInInput) error {
	var fields []huh.Field
	if in.Email == "" {
		fields = append(fields, huh.NewInput().
			Title("Email").
			Placeholder("you@example.com").
			Value(&in.Email).
			Validate(required("email")))
	}
	if in.Password == "" {
		fields = append(fields, huh.NewInput().
			Title("Password").
			EchoMode(huh.EchoModePassword).
			Value(&in.Password).
			Validate(required("password")))
	}
	if len(fields) == 0 {
		return nil
	}

	return huh.NewForm(huh.NewGroup(fields...)).WithTheme(huh.ThemeCatppuccin()).Run()
}

// runSignUpForm asks for the fields in still empty. Field rules are
// checked server side by auth.ValidateSignUp, the form only requires input.
func runSignUpForm(in *auth.SignUpInput) error {
	var fields []huh.Field
	if in.DisplayName == "" {
		fields = append(fields, huh.NewInput().
			Title("Display name").
			Value(&in.DisplayName).
			Validate(required("display name")))
	}
	if in.Email == "" {
		fields = append(fields, huh.NewInput().
			Title("Email").
			Placeholder("you@example.com").
			Value(&in.Email).
			Validate(required("email")))
	}
	if in.Password == "" {
		fields = append(fields, huh.NewInput().
			Title("Password").
			Description("At least 6 characters with an uppercase letter, a digit and a symbol").
			EchoMode(huh.EchoModePassword).
			Value(&in.Password).
			Validate(func(s string) error {
				if !auth.PasswordMeetsPolicy(s) {
					return fmt.Errorf("password does not meet the policy")
				}
				return nil
			}))
	}

	userType := string(in.UserType)
	if userType == "" {
		fields = append(fields, huh.NewSelect[string]().
			Title("Account type").
			Options(
				huh.NewOption("Personal", string(user.UserTypePersonal)),
				huh.NewOption("Enterprise", string(user.UserTypeEnterprise)),
			).
			Value(&userType))
	}

	var workerTypes []string
	if len(in.WorkerTypes) == 0 {
		fields = append(fields, huh.NewMultiSelect[string]().
			Title("I want to").
			Options(
				huh.NewOption("Find work", string(user.WorkerTypeWorker)),
				huh.NewOption("Hire people", string(user.WorkerTypeRequestor)),
			).
			Value(&workerTypes))
	}

	if len(fields) > 0 {
		if err := huh.NewForm(huh.NewGroup(fields...)).WithTheme(huh.ThemeCatppuccin()).Run(); err != nil {
			return err
		}
	}

	in.UserType = user.UserType(userType)
	if len(in.WorkerTypes) == 0 {
		in.WorkerTypes = toWorkerTypes(workerTypes)
	}
	return nil
}

// confirm asks a yes/no question, defaulting to no.
func confirm(title string) (bool, error) {
	var ok bool
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(title).
				Affirmative("Yes").
				Negative("No").
				Value(&ok),
		),
	).WithTheme(huh.ThemeCatppuccin()).Run()
	return ok, err
}

// parseWorkerTypes reads a comma separated flag value. Values are upper
// cased; empty items are skipped.
func parseWorkerTypes(value string) []user.WorkerType {
	var items []string
	for _, item := range strings.Split(value, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			items = append(items, strings.ToUpper(item))
		}
	}
	return toWorkerTypes(items)
}

func toWorkerTypes(items []string) []user.WorkerType {
	if len(items) == 0 {
		return nil
	}
	out := make([]user.WorkerType, 0, len(items))
	for _, item := range items {
		out = append(out, user.WorkerType(item))
	}
	return out
}
