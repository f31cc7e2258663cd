package user

import (
	"github.com/redmonkez12/work4u/internal/address"
	"github.com/redmonkez12/work4u/internal/identity"
)

type normalizeOptions struct {
	workerTypes []WorkerType
	status      Status
	userType    UserType
	displayName string
	token       string
}

type NormalizeOption func(*normalizeOptions)

// WithWorkerTypes sets the worker types used when the profile has none,
// such as right after sign-up.
func WithWorkerTypes(types []WorkerType) NormalizeOption {
	return func(o *normalizeOptions) { o.workerTypes = types }
}

// WithStatus forces the status regardless of the profile.
func WithStatus(s Status) NormalizeOption {
	return func(o *normalizeOptions) { o.status = s }
}

// WithUserType sets the user type used when the profile has none.
func WithUserType(t UserType) NormalizeOption {
	return func(o *normalizeOptions) { o.userType = t }
}

// WithDisplayName sets the display name used when neither the profile nor
// the identity carry one.
func WithDisplayName(name string) NormalizeOption {
	return func(o *normalizeOptions) { o.displayName = name }
}

func WithToken(token string) NormalizeOption {
	return func(o *normalizeOptions) { o.token = token }
}

// Normalize merges the identity account and the backend profile into an
// ApplicationUser. The ID always comes from the identity; display fields
// prefer the profile, then the identity.
func Normalize(idp identity.User, profile *ApiUser, opts ...NormalizeOption) *ApplicationUser {
	var o normalizeOptions
	for _, opt := range opts {
		opt(&o)
	}

	var p ApiUser
	if profile != nil {
		p = *profile
	}

	u := &ApplicationUser{
		ID:          idp.Subject,
		Email:       pick(p.Email, idp.Email),
		DisplayName: pick(p.DisplayName, idp.DisplayName, o.displayName),
		PhotoURL:    pick(p.PhotoURL, idp.PhotoURL),
		PhoneNumber: pick(p.PhoneNumber, idp.PhoneNumber),
		Status:      Status(p.Status),
		UserType:    UserType(p.UserType),
		Token:       o.token,
	}

	if o.status != "" {
		u.Status = o.status
	}
	if u.UserType == "" {
		u.UserType = o.userType
	}

	switch {
	case len(p.WorkerTypes) > 0:
		u.WorkerTypes = append([]WorkerType(nil), p.WorkerTypes...)
	case len(o.workerTypes) > 0:
		u.WorkerTypes = append([]WorkerType(nil), o.workerTypes...)
	default:
		u.WorkerTypes = []WorkerType{}
	}

	if profile != nil {
		applyAddress(u, address.Decode(p.Address), p)
	}

	return u
}

// MergeProfileUpdate builds the user after a profile PATCH. Worker types
// and address come from the backend response, falling back to what was
// sent when the response omits them.
func MergeProfileUpdate(current *ApplicationUser, updated *ApiUser, sent ProfileUpdate) *ApplicationUser {
	next := current.Clone()
	if next == nil {
		return nil
	}

	var resp ApiUser
	if updated != nil {
		resp = *updated
	}

	if v := pick(resp.DisplayName, deref(sent.DisplayName)); v != nil {
		next.DisplayName = v
	}
	if v := pick(resp.PhoneNumber, deref(sent.PhoneNumber)); v != nil {
		next.PhoneNumber = v
	}
	if resp.UserType != "" {
		next.UserType = UserType(resp.UserType)
	} else if sent.UserType != nil {
		next.UserType = *sent.UserType
	}
	if resp.Status != "" {
		next.Status = Status(resp.Status)
	}

	switch {
	case resp.WorkerTypes != nil:
		next.WorkerTypes = append([]WorkerType{}, resp.WorkerTypes...)
	case sent.WorkerTypes != nil:
		next.WorkerTypes = append([]WorkerType{}, sent.WorkerTypes...)
	}

	raw := resp.Address
	if raw == nil {
		raw = sent.Address
	}
	if raw != nil || resp.Country != "" || resp.State != "" || resp.Postcode != "" || resp.Number != "" {
		applyAddress(next, address.Decode(raw), resp)
	}

	return next
}

func applyAddress(u *ApplicationUser, a address.Address, p ApiUser) {
	u.Country = address.Ptr(firstNonBlank(a.Country, p.Country))
	u.State = address.Ptr(firstNonBlank(a.State, p.State))
	u.Address = address.Ptr(a.Address)
	u.City = address.Ptr(a.City)
	u.Postcode = address.Ptr(firstNonBlank(a.Postcode, p.Postcode))
	u.Number = address.Ptr(firstNonBlank(a.Number, p.Number))
}

func pick(values ...string) *string {
	for _, v := range values {
		if v != "" {
			s := v
			return &s
		}
	}
	return nil
}

func firstNonBlank(values ...string) string {
	if v := pick(values...); v != nil {
		return *v
	}
	return ""
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
