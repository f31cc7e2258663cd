package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/redmonkez12/work4u/internal/auth"
	"github.com/redmonkez12/work4u/internal/identity"
	"github.com/redmonkez12/work4u/internal/jobs"
	"github.com/redmonkez12/work4u/internal/user"
)

// withApp wraps a command body with the app lifecycle.
func withApp(opts *appOptions, run func(cmd *cobra.Command, a *app, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), *opts, cmd.OutOrStdout())
		if err != nil {
			return err
		}
		defer a.Close()
		return run(cmd, a, args)
	}
}

func newSignUpCmd(opts *appOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account with email and password",
		RunE: withApp(opts, func(cmd *cobra.Command, a *app, args []string) error {
			var in auth.SignUpInput
			in.Email, _ = cmd.Flags().GetString("email")
			in.Password, _ = cmd.Flags().GetString("password")
			in.DisplayName, _ = cmd.Flags().GetString("name")
			userType, _ := cmd.Flags().GetString("user-type")
			in.UserType = user.UserType(strings.ToUpper(userType))
			workerTypes, _ := cmd.Flags().GetString("worker-types")
			in.WorkerTypes = parseWorkerTypes(workerTypes)

			if err := runSignUpForm(&in); err != nil {
				return fmt.Errorf("form cancelled: %w", err)
			}
			in.Email = strings.TrimSpace(in.Email)

			if err := auth.ValidateSignUp(in); err != nil {
				return a.fail(auth.FormSignUp, err)
			}

			u, err := a.client.Service.SignUp(cmd.Context(), in)
			if err != nil {
				return a.fail(auth.FormSignUp, err)
			}

			printSuccess(a.out, "Account created")
			printUser(a, u)
			return nil
		}),
	}

	cmd.Flags().String("email", "", "Email address")
	cmd.Flags().String("password", "", "Password")
	cmd.Flags().String("name", "", "Display name")
	cmd.Flags().String("user-type", "", "Account type (personal, enterprise)")
	cmd.Flags().String("worker-types", "", "Comma separated roles (worker, requestor)")
	return cmd
}

func newSignInCmd(opts *appOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "signin",
		Short: "Sign in with email and password",
		RunE: withApp(opts, func(cmd *cobra.Command, a *app, args []string) error {
			var in auth.SignInInput
			in.Email, _ = cmd.Flags().GetString("email")
			in.Password, _ = cmd.Flags().GetString("password")

			if err := runSignInForm(&in); err != nil {
				return fmt.Errorf("form cancelled: %w", err)
			}
			in.Email = strings.TrimSpace(in.Email)

			if err := auth.ValidateSignIn(in); err != nil {
				return a.fail(auth.FormSignIn, err)
			}

			u, err := a.client.Service.SignIn(cmd.Context(), in)
			if err != nil {
				return a.fail(auth.FormSignIn, err)
			}

			printSuccess(a.out, "Signed in")
			printUser(a, u)
			return nil
		}),
	}

	cmd.Flags().String("email", "", "Email address")
	cmd.Flags().String("password", "", "Password")
	return cmd
}

func newSignOutCmd(opts *appOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "signout",
		Short: "Sign out and clear the stored session",
		RunE: withApp(opts, func(cmd *cobra.Command, a *app, args []string) error {
			if err := a.client.Service.SignOut(cmd.Context()); err != nil {
				return a.fail(auth.FormSession, err)
			}
			printSuccess(a.out, "Signed out")
			return nil
		}),
	}
}

func newWhoAmICmd(opts *appOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		RunE: withApp(opts, func(cmd *cobra.Command, a *app, args []string) error {
			u := a.client.Service.CurrentUser()
			if u == nil {
				return a.fail(auth.FormSession, identity.ErrNoSession)
			}
			printUser(a, u)
			return nil
		}),
	}
}

func newTokenCmd(opts *appOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "token",
		Short: "Print a valid ID token, refreshing it when needed",
		RunE: withApp(opts, func(cmd *cobra.Command, a *app, args []string) error {
			token, err := a.client.Service.GetIDToken(cmd.Context())
			if err != nil {
				return a.fail(auth.FormSession, err)
			}
			fmt.Fprintln(a.out, token)
			return nil
		}),
	}
}

func newResetPasswordCmd(opts *appOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reset-password",
		Short: "Email a password reset link",
		RunE: withApp(opts, func(cmd *cobra.Command, a *app, args []string) error {
			email, _ := cmd.Flags().GetString("email")
			email = strings.TrimSpace(email)
			if email == "" {
				return a.fail(auth.FormSignIn, auth.ErrEmailRequired)
			}

			a.client.Service.RequestPasswordReset(cmd.Context(), email)
			printSuccess(a.out, a.tr.T("auth.resetPassword.sent"))
			return nil
		}),
	}

	cmd.Flags().String("email", "", "Email address of the account")
	return cmd
}

func newProfileCmd(opts *appOptions) *cobra.Command {
	profileCmd := &cobra.Command{
		Use:   "profile",
		Short: "Manage the signed-in user's profile",
	}

	updateCmd := &cobra.Command{
		Use:   "update",
		Short: "Update profile fields",
		RunE: withApp(opts, func(cmd *cobra.Command, a *app, args []string) error {
			update, err := profileUpdateFromFlags(cmd)
			if err != nil {
				return a.fail(auth.FormProfile, err)
			}
			if update.IsEmpty() {
				return fmt.Errorf("nothing to update")
			}

			current := a.client.Service.CurrentUser()
			if current == nil {
				return a.fail(auth.FormSession, identity.ErrNoSession)
			}

			updated, err := a.client.Service.UpdateProfile(cmd.Context(), current.ID, update)
			if err != nil {
				return a.fail(auth.FormProfile, err)
			}

			u := a.client.Service.ApplyProfileUpdate(cmd.Context(), updated, update)
			printSuccess(a.out, "Profile updated")
			printUser(a, u)
			return nil
		}),
	}
	updateCmd.Flags().String("name", "", "Display name")
	updateCmd.Flags().String("phone", "", "Phone number")
	updateCmd.Flags().String("address", "", "Address")
	updateCmd.Flags().String("user-type", "", "Account type (personal, enterprise)")
	updateCmd.Flags().String("worker-types", "", "Comma separated roles (worker, requestor)")

	deleteCmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete the account and sign out",
		RunE: withApp(opts, func(cmd *cobra.Command, a *app, args []string) error {
			yes, _ := cmd.Flags().GetBool("yes")
			if !yes {
				ok, err := confirm("Delete your work4u account? This cannot be undone.")
				if err != nil {
					return fmt.Errorf("form cancelled: %w", err)
				}
				if !ok {
					printSubtle(a.out, "Aborted.")
					return nil
				}
			}

			if err := a.client.Service.DeleteAccount(cmd.Context()); err != nil {
				return a.fail(auth.FormProfile, err)
			}
			printSuccess(a.out, "Account deleted")
			return nil
		}),
	}
	deleteCmd.Flags().BoolP("yes", "y", false, "Skip confirmation prompt")

	profileCmd.AddCommand(updateCmd, deleteCmd)
	return profileCmd
}

// profileUpdateFromFlags builds a PATCH from the flags that were set.
func profileUpdateFromFlags(cmd *cobra.Command) (user.ProfileUpdate, error) {
	var update user.ProfileUpdate
	flags := cmd.Flags()

	if flags.Changed("name") {
		v, _ := flags.GetString("name")
		update.DisplayName = &v
	}
	if flags.Changed("phone") {
		v, _ := flags.GetString("phone")
		update.PhoneNumber = &v
	}
	if flags.Changed("address") {
		v, _ := flags.GetString("address")
		update.Address = &v
	}
	if flags.Changed("user-type") {
		v, _ := flags.GetString("user-type")
		t := user.UserType(strings.ToUpper(v))
		if !t.Valid() {
			return update, auth.ErrInvalidUserType
		}
		update.UserType = &t
	}
	if flags.Changed("worker-types") {
		v, _ := flags.GetString("worker-types")
		update.WorkerTypes = parseWorkerTypes(v)
		if len(update.WorkerTypes) == 0 {
			return update, auth.ErrWorkerTypesRequired
		}
		for _, w := range update.WorkerTypes {
			if !w.Valid() {
				return update, auth.ErrInvalidWorkerType
			}
		}
	}

	return update, nil
}

func newJobsCmd(opts *appOptions) *cobra.Command {
	jobsCmd := &cobra.Command{
		Use:   "jobs",
		Short: "Browse, post and apply to jobs",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List open jobs",
		RunE: withApp(opts, func(cmd *cobra.Command, a *app, args []string) error {
			list, err := a.jobs.List(cmd.Context())
			if err != nil {
				return a.fail(auth.FormSession, err)
			}
			printTitle(a.out, fmt.Sprintf("%d jobs", len(list)))
			for _, j := range list {
				fmt.Fprintf(a.out, "  %s  %s  %s\n", j.ID, j.Title, subtleStyle.Render(formatBudget(j)))
			}
			return nil
		}),
	}

	getCmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Show one job",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(opts, func(cmd *cobra.Command, a *app, args []string) error {
			j, err := a.jobs.Get(cmd.Context(), args[0])
			if err != nil {
				return a.fail(auth.FormSession, err)
			}
			printJob(a, j)
			return nil
		}),
	}

	postCmd := &cobra.Command{
		Use:   "post",
		Short: "Post a job as the signed-in user",
		RunE: withApp(opts, func(cmd *cobra.Command, a *app, args []string) error {
			u := a.client.Service.CurrentUser()
			if u == nil {
				return a.fail(auth.FormSession, identity.ErrNoSession)
			}

			req, err := createJobFromFlags(cmd, u)
			if err != nil {
				return err
			}
			if err := req.Validate(); err != nil {
				return err
			}

			j, err := a.jobs.Create(cmd.Context(), req)
			if err != nil {
				return a.fail(auth.FormSession, err)
			}
			printSuccess(a.out, "Job posted")
			printJob(a, j)
			return nil
		}),
	}
	postCmd.Flags().String("title", "", "Job title")
	postCmd.Flags().String("category", "", "Category")
	postCmd.Flags().String("description", "", "Description")
	postCmd.Flags().Float64("budget", 0, "Budget")
	postCmd.Flags().String("budget-type", string(jobs.BudgetFixed), "Budget type (fixed, hourly)")
	postCmd.Flags().String("location", "", "Location")
	postCmd.Flags().Bool("remote", false, "Remote work is possible")

	applyCmd := &cobra.Command{
		Use:   "apply <id>",
		Short: "Apply to a job as the signed-in user",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(opts, func(cmd *cobra.Command, a *app, args []string) error {
			u := a.client.Service.CurrentUser()
			if u == nil {
				return a.fail(auth.FormSession, identity.ErrNoSession)
			}

			req := jobs.ApplyRequest{ApplicantID: u.ID}
			req.CoverLetter, _ = cmd.Flags().GetString("cover-letter")
			req.ProposedDuration, _ = cmd.Flags().GetString("duration")
			if cmd.Flags().Changed("rate") {
				rate, _ := cmd.Flags().GetFloat64("rate")
				req.ProposedRate = &rate
			}

			application, err := a.jobs.Apply(cmd.Context(), args[0], req)
			if err != nil {
				return a.fail(auth.FormSession, err)
			}
			printSuccess(a.out, "Application sent")
			printField(a.out, "Application", application.ID)
			printField(a.out, "Status", string(application.Status))
			return nil
		}),
	}
	applyCmd.Flags().String("cover-letter", "", "Cover letter")
	applyCmd.Flags().Float64("rate", 0, "Proposed rate")
	applyCmd.Flags().String("duration", "", "Proposed duration")

	jobsCmd.AddCommand(listCmd, getCmd, postCmd, applyCmd)
	return jobsCmd
}

func createJobFromFlags(cmd *cobra.Command, u *user.ApplicationUser) (jobs.CreateJobRequest, error) {
	flags := cmd.Flags()
	var req jobs.CreateJobRequest

	req.Title, _ = flags.GetString("title")
	req.Category, _ = flags.GetString("category")
	req.Description, _ = flags.GetString("description")
	req.Budget, _ = flags.GetFloat64("budget")
	req.Location, _ = flags.GetString("location")
	req.Remote, _ = flags.GetBool("remote")

	budgetType, _ := flags.GetString("budget-type")
	switch jobs.BudgetType(strings.ToUpper(budgetType)) {
	case jobs.BudgetFixed:
		req.BudgetType = jobs.BudgetFixed
	case jobs.BudgetHourly:
		req.BudgetType = jobs.BudgetHourly
	default:
		return req, fmt.Errorf("unknown budget type %q", budgetType)
	}

	req.Poster = jobs.Poster{Name: deref(u.DisplayName)}
	if u.PhotoURL != nil {
		req.Poster.Image = *u.PhotoURL
	}
	return req, nil
}

func printUser(a *app, u *user.ApplicationUser) {
	if u == nil {
		return
	}
	fmt.Fprintln(a.out)
	printField(a.out, "ID", u.ID)
	printField(a.out, "Email", deref(u.Email))
	printField(a.out, "Name", deref(u.DisplayName))
	printField(a.out, "Status", string(u.Status))
	printField(a.out, "Account", string(u.UserType))
	printField(a.out, "Roles", joinWorkerTypes(u.WorkerTypes))
	printField(a.out, "Phone", deref(u.PhoneNumber))
	printField(a.out, "Address", deref(u.Address))
	printField(a.out, "City", deref(u.City))
	printField(a.out, "Country", deref(u.Country))
}

func printJob(a *app, j *jobs.Job) {
	printTitle(a.out, j.Title)
	printField(a.out, "ID", j.ID)
	printField(a.out, "Category", j.Category)
	printField(a.out, "Budget", formatBudget(*j))
	printField(a.out, "Location", j.Location)
	printField(a.out, "Remote", strconv.FormatBool(j.Remote))
	printField(a.out, "Applicants", strconv.Itoa(j.Applicants))
	printField(a.out, "Posted by", j.Poster.Name)
	fmt.Fprintln(a.out)
	fmt.Fprintln(a.out, j.Description)
}

func formatBudget(j jobs.Job) string {
	amount := strconv.FormatFloat(j.Budget, 'f', -1, 64)
	if j.BudgetType == jobs.BudgetHourly {
		return amount + "/h"
	}
	return amount
}

func joinWorkerTypes(types []user.WorkerType) string {
	parts := make([]string, 0, len(types))
	for _, t := range types {
		parts = append(parts, string(t))
	}
	return strings.Join(parts, ", ")
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// exitMessage is what main prints for an error cobra returned.
func exitMessage(err error) string {
	if isSilent(err) {
		return ""
	}
	var fe *auth.FieldError
	if errors.As(err, &fe) {
		return fe.Field + ": " + fe.Err.Error()
	}
	return err.Error()
}
