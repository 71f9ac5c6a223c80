// Package auth implements the login form: credential validation, the single
// remote login call and the resulting form state.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"ceycent/internal/activity"
	"ceycent/internal/api"
	"ceycent/internal/log"
)

const (
	SuccessMessage = "Login successful!"
	FailureMessage = "Login failed"
)

var (
	// ErrMissingCredentials is returned, without any remote call, when the
	// username or password is blank.
	ErrMissingCredentials = errors.New("username and password are required")
	// ErrLoginFailed wraps every remote or protocol failure.
	ErrLoginFailed = errors.New("login failed")
)

type State int

const (
	Editing State = iota
	Submitting
	Resolved
)

func (s State) String() string {
	switch s {
	case Editing:
		return "editing"
	case Submitting:
		return "submitting"
	case Resolved:
		return "resolved"
	default:
		return "unknown"
	}
}

// Form is the login form as rendered. The password is never echoed back.
type Form struct {
	Username string
	Error    string
	Success  string
	State    State
}

// Result is the outcome of one submission. Token is set only on success.
type Result struct {
	Form  Form
	Token string
}

// LoginClient is the remote login call.
type LoginClient interface {
	Login(ctx context.Context, username, password string) (api.LoginResponse, error)
}

type Authenticator struct {
	client     LoginClient
	publisher  activity.Publisher
	logger     *log.Logger
	structured *log.StructuredLogger
}

func New(client LoginClient, publisher activity.Publisher, logger *log.Logger) *Authenticator {
	if publisher == nil {
		publisher = activity.Noop{}
	}
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	logger = logger.WithComponent(log.ComponentAuth)
	return &Authenticator{
		client:     client,
		publisher:  publisher,
		logger:     logger,
		structured: log.NewStructuredLogger(logger),
	}
}

// Submit runs one login attempt. On failure the returned form is back in
// Editing with the message to show, and the error wraps ErrLoginFailed or
// is ErrMissingCredentials.
func (a *Authenticator) Submit(ctx context.Context, username, password string) (Result, error) {
	form := Form{Username: username, State: Submitting}

	if strings.TrimSpace(username) == "" || strings.TrimSpace(password) == "" {
		form.State = Editing
		form.Error = "Username and password are required"
		return Result{Form: form}, ErrMissingCredentials
	}

	resp, err := a.client.Login(ctx, username, password)
	if err == nil && !resp.Succeeded() {
		err = fmt.Errorf("unexpected login response status %q", resp.Status)
		if resp.Message != "" {
			err = &api.Error{Kind: api.KindStatus, Endpoint: api.EndpointLogin, StatusCode: 200, Message: resp.Message}
		}
	}

	if err != nil {
		form.State = Editing
		form.Success = ""
		form.Error = failureMessage(err)
		a.structured.LogLogin(ctx, username, err)
		a.emit(ctx, activity.KindLoginFailed, username, form.Error)
		return Result{Form: form}, fmt.Errorf("%w: %w", ErrLoginFailed, err)
	}

	form.State = Resolved
	form.Error = ""
	form.Success = SuccessMessage
	a.structured.LogLogin(ctx, username, nil)
	a.emit(ctx, activity.KindLoginSucceeded, username, "")
	return Result{Form: form, Token: resp.Token}, nil
}

// failureMessage prefers the server's message and falls back to the
// generic text.
func failureMessage(err error) string {
	if msg := strings.TrimSpace(api.ServerMessage(err)); msg != "" {
		return msg
	}
	return FailureMessage
}

func (a *Authenticator) emit(ctx context.Context, kind activity.Kind, username, detail string) {
	e := activity.NewEvent(kind)
	e.Username = username
	e.Detail = detail
	activity.Emit(ctx, a.publisher, e, a.logger)
}
