package analytics

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const (
	EventUserSignup = "user_signup"
	EventUserLogin  = "user_login"
	EventUserLogout = "user_logout"

	MethodPasswordSignup = "password_signup"
	MethodPasswordSignin = "password_signin"
	MethodGoogleSignup   = "google_signup"
	MethodGoogleSignin   = "google_signin"
)

// Event is the body of POST /api/analytics.
type Event struct {
	UserID      *string        `json:"userId"`
	SessionID   string         `json:"sessionId"`
	EventType   string         `json:"eventType"`
	EventName   string         `json:"eventName"`
	EventData   map[string]any `json:"eventData"`
	PageURL     *string        `json:"pageUrl"`
	PagePath    *string        `json:"pagePath"`
	PageTitle   *string        `json:"pageTitle"`
	Referrer    *string        `json:"referrer"`
	DeviceType  string         `json:"deviceType"`
	BrowserName string         `json:"browserName"`
	OSName      string         `json:"osName"`
	OccurredAt  time.Time      `json:"occurredAt"`
}

// Sender delivers events to the backend.
type Sender interface {
	TrackEvent(ctx context.Context, event Event) error
}

// Tracker builds events for one client instance. All events it sends share
// one analytics session id.
type Tracker struct {
	sender    Sender
	sessionID string
	now       func() time.Time
}

func NewTracker(sender Sender) *Tracker {
	return &Tracker{
		sender:    sender,
		sessionID: "session_" + uuid.NewString(),
		now:       time.Now,
	}
}

func (t *Tracker) SessionID() string {
	return t.sessionID
}

// Track sends a user_action event. An empty userID is reported as null.
func (t *Tracker) Track(ctx context.Context, userID, name string, data map[string]any) error {
	if data == nil {
		data = map[string]any{}
	}

	cc := ClientContextFrom(ctx)
	event := Event{
		UserID:      nullable(userID),
		SessionID:   t.sessionID,
		EventType:   "user_action",
		EventName:   name,
		EventData:   data,
		PageURL:     nullable(cc.PageURL),
		PagePath:    nullable(cc.PagePath),
		PageTitle:   nullable(cc.PageTitle),
		Referrer:    nullable(cc.Referrer),
		DeviceType:  DeviceType(cc.UserAgent),
		BrowserName: BrowserName(cc.UserAgent),
		OSName:      OSName(cc.UserAgent),
		OccurredAt:  t.now().UTC(),
	}
	return t.sender.TrackEvent(ctx, event)
}

// LoggedInData builds the login-state metadata for method. Keys in extra
// override the defaults.
func LoggedInData(ctx context.Context, method string, extra map[string]any, now time.Time) map[string]any {
	cc := ClientContextFrom(ctx)
	data := map[string]any{
		"loginMethod": method,
		"loggedInAt":  now.UTC().Format(time.RFC3339Nano),
		"pageUrl":     nullable(cc.PageURL),
		"pagePath":    nullable(cc.PagePath),
		"referrer":    nullable(cc.Referrer),
		"deviceType":  DeviceType(cc.UserAgent),
		"browserName": BrowserName(cc.UserAgent),
		"osName":      OSName(cc.UserAgent),
	}
	for k, v := range extra {
		data[k] = v
	}
	return data
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
