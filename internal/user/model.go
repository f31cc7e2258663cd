package user

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

type Status string

const (
	StatusActive              Status = "ACTIVE"
	StatusPendingVerification Status = "PENDING_VERIFICATION"
	StatusPendingDeletion     Status = "PENDING_DELETION"
)

func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusPendingVerification, StatusPendingDeletion:
		return true
	}
	return false
}

type UserType string

const (
	UserTypePersonal   UserType = "PERSONAL"
	UserTypeEnterprise UserType = "ENTERPRISE"
	UserTypeAdmin      UserType = "ADMIN"
)

func (t UserType) Valid() bool {
	switch t {
	case UserTypePersonal, UserTypeEnterprise, UserTypeAdmin:
		return true
	}
	return false
}

type WorkerType string

const (
	WorkerTypeWorker    WorkerType = "WORKER"
	WorkerTypeRequestor WorkerType = "REQUESTOR"
)

func (w WorkerType) Valid() bool {
	return w == WorkerTypeWorker || w == WorkerTypeRequestor
}

// ApplicationUser is the signed-in user as the rest of the client sees it.
// Nil pointers are absent values.
type ApplicationUser struct {
	ID          string       `json:"id"`
	Email       *string      `json:"email"`
	DisplayName *string      `json:"displayName"`
	PhotoURL    *string      `json:"photoUrl"`
	PhoneNumber *string      `json:"phoneNumber"`
	Status      Status       `json:"status,omitempty"`
	UserType    UserType     `json:"userType,omitempty"`
	WorkerTypes []WorkerType `json:"workerTypes"`
	Country     *string      `json:"country"`
	State       *string      `json:"state"`
	Address     *string      `json:"address"`
	City        *string      `json:"city"`
	Postcode    *string      `json:"postcode"`
	Number      *string      `json:"number"`

	// Token is the session token at normalization time. It is never persisted.
	Token string `json:"-"`
}

// Clone returns a deep copy of u.
func (u *ApplicationUser) Clone() *ApplicationUser {
	if u == nil {
		return nil
	}

	c := *u
	c.Email = clonePtr(u.Email)
	c.DisplayName = clonePtr(u.DisplayName)
	c.PhotoURL = clonePtr(u.PhotoURL)
	c.PhoneNumber = clonePtr(u.PhoneNumber)
	c.Country = clonePtr(u.Country)
	c.State = clonePtr(u.State)
	c.Address = clonePtr(u.Address)
	c.City = clonePtr(u.City)
	c.Postcode = clonePtr(u.Postcode)
	c.Number = clonePtr(u.Number)
	if u.WorkerTypes != nil {
		c.WorkerTypes = append([]WorkerType(nil), u.WorkerTypes...)
	}
	return &c
}

// Validate reports enum values outside the known sets. Unknown values are
// kept on the user; callers decide whether to warn or reject.
func (u *ApplicationUser) Validate() error {
	var errs []error
	if u.Status != "" && !u.Status.Valid() {
		errs = append(errs, fmt.Errorf("unknown status %q", u.Status))
	}
	if u.UserType != "" && !u.UserType.Valid() {
		errs = append(errs, fmt.Errorf("unknown user type %q", u.UserType))
	}
	for _, w := range u.WorkerTypes {
		if !w.Valid() {
			errs = append(errs, fmt.Errorf("unknown worker type %q", w))
		}
	}
	return errors.Join(errs...)
}

// ApiUser is the user profile as stored by the backend.
type ApiUser struct {
	ID              string         `json:"id"`
	Email           string         `json:"email,omitempty"`
	DisplayName     string         `json:"displayName,omitempty"`
	PhotoURL        string         `json:"photoUrl,omitempty"`
	PhoneNumber     string         `json:"phoneNumber,omitempty"`
	Status          string         `json:"status,omitempty"`
	UserType        string         `json:"userType,omitempty"`
	WorkerTypes     WorkerTypeList `json:"workerTypes,omitempty"`
	Address         *string        `json:"address,omitempty"`
	Country         string         `json:"country,omitempty"`
	State           string         `json:"state,omitempty"`
	Postcode        string         `json:"postcode,omitempty"`
	Number          string         `json:"number,omitempty"`
	DateTimeCreated *time.Time     `json:"dateTimeCreated,omitempty"`
	DateTimeUpdated *time.Time     `json:"dateTimeUpdated,omitempty"`
}

// WorkerTypeList decodes worker types sent either as a JSON array or as one
// comma separated string. Other shapes decode to an empty list.
type WorkerTypeList []WorkerType

func (l *WorkerTypeList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		*l = WorkerTypeList{}
		return nil
	}

	switch data[0] {
	case '[':
		var items []string
		if err := json.Unmarshal(data, &items); err != nil {
			*l = WorkerTypeList{}
			return nil
		}
		out := make(WorkerTypeList, 0, len(items))
		for _, item := range items {
			out = append(out, WorkerType(item))
		}
		*l = out
	case '"':
		var csv string
		if err := json.Unmarshal(data, &csv); err != nil {
			*l = WorkerTypeList{}
			return nil
		}
		*l = ParseWorkerTypes(csv)
	default:
		*l = WorkerTypeList{}
	}
	return nil
}

// ParseWorkerTypes splits a comma separated list, trimming entries and
// dropping empty ones.
func ParseWorkerTypes(csv string) WorkerTypeList {
	out := WorkerTypeList{}
	for _, part := range strings.Split(csv, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, WorkerType(part))
	}
	return out
}

// CreateRequest is the body of a profile creation call.
type CreateRequest struct {
	Email       string   `json:"email"`
	DisplayName string   `json:"displayName"`
	UserType    UserType `json:"userType"`
}

// ProfileUpdate is a partial profile change. Nil fields are not sent.
// Address holds the already encoded address string.
type ProfileUpdate struct {
	DisplayName *string      `json:"displayName,omitempty"`
	PhoneNumber *string      `json:"phoneNumber,omitempty"`
	UserType    *UserType    `json:"userType,omitempty"`
	WorkerTypes []WorkerType `json:"workerTypes,omitempty"`
	Address     *string      `json:"address,omitempty"`
}

// IsEmpty reports whether the update carries no field.
func (p ProfileUpdate) IsEmpty() bool {
	return p.DisplayName == nil && p.PhoneNumber == nil && p.UserType == nil &&
		p.WorkerTypes == nil && p.Address == nil
}

func clonePtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
