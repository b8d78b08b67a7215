package provider

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/oauth2"
	googleoauth "golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
	"google.golang.org/api/people/v1"
	"google.golang.org/api/tasks/v1"
)

const (
	defaultPastWindow   = 30 * 24 * time.Hour
	defaultFutureWindow = 90 * 24 * time.Hour
	defaultMaxMessages  = 50
	defaultPageSize     = 200
)

// Scopes requested during the auth flow. All read-only: the daemon never
// writes back to the provider.
var Scopes = []string{
	calendar.CalendarReadonlyScope,
	tasks.TasksReadonlyScope,
	gmail.GmailReadonlyScope,
	people.ContactsReadonlyScope,
}

// OAuthConfig builds the oauth2 config for the desktop auth flow.
func OAuthConfig(clientID, clientSecret string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  "urn:ietf:wg:oauth:2.0:oob",
		Scopes:       Scopes,
		Endpoint:     googleoauth.Endpoint,
	}
}

// Exchange trades an authorization code for a token bundle.
func Exchange(ctx context.Context, cfg *oauth2.Config, code string) (*oauth2.Token, error) {
	tok, err := cfg.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchanging auth code: %w", err)
	}
	return tok, nil
}

// Client wraps the four provider sub-APIs (events, tasks, messages,
// people) behind normalized fetch methods.
type Client struct {
	calendar *calendar.Service
	tasks    *tasks.Service
	gmail    *gmail.Service
	people   *people.Service
	logger   *slog.Logger

	calendarID  string
	pastWindow  time.Duration
	future      time.Duration
	maxMessages int64
	now         func() time.Time
}

// NewClient creates a provider client from an oauth2 token. It fails fast
// with ErrUnauthenticated when the token is absent or expired.
func NewClient(ctx context.Context, cfg *oauth2.Config, tok *oauth2.Token, logger *slog.Logger) (*Client, error) {
	if err := CheckToken(tok); err != nil {
		return nil, err
	}
	return NewClientWithOptions(ctx, logger, option.WithHTTPClient(cfg.Client(ctx, tok)))
}

// NewClientWithOptions creates a client with explicit API client options.
// Tests use it with option.WithEndpoint and option.WithoutAuthentication.
func NewClientWithOptions(ctx context.Context, logger *slog.Logger, opts ...option.ClientOption) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}

	calSvc, err := calendar.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating calendar service: %w", err)
	}
	taskSvc, err := tasks.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating tasks service: %w", err)
	}
	mailSvc, err := gmail.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating gmail service: %w", err)
	}
	peopleSvc, err := people.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating people service: %w", err)
	}

	return &Client{
		calendar:    calSvc,
		tasks:       taskSvc,
		gmail:       mailSvc,
		people:      peopleSvc,
		logger:      logger,
		calendarID:  "primary",
		pastWindow:  defaultPastWindow,
		future:      defaultFutureWindow,
		maxMessages: defaultMaxMessages,
		now:         time.Now,
	}, nil
}

// SetCalendarID overrides the calendar the client reads from. Defaults to
// the account's primary calendar.
func (c *Client) SetCalendarID(id string) {
	if id != "" {
		c.calendarID = id
	}
}
