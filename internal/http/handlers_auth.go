package http

import (
	"errors"
	"net/http"

	"ceycent/internal/auth"
	"ceycent/internal/log"
	"ceycent/internal/session"
	"ceycent/internal/shell"
)

// alert is the modal shown after a failed full-page login.
type alert struct {
	Title   string
	Message string
}

type loginPage struct {
	Brand string
	Form  auth.Form
	Alert *alert
}

// handleLoginPage shows the credential form, or the dashboard when the
// session already holds a token.
func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	if sess, ok := session.FromContext(r.Context()); ok && sess.Authenticated() {
		shell.Redirect(w, r, shell.HomePath)
		return
	}
	s.render(w, r, "login.html", http.StatusOK, loginPage{Brand: shell.Brand})
}

// handleLogin submits the credentials once. Success stores the token and
// navigates to the dashboard; failure keeps the form with the message.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := log.FromContext(ctx).WithComponent(log.ComponentAuth)

	form, err := ParseLoginForm(r)
	if err != nil {
		logger.WarnContext(ctx, "Malformed login request",
			log.NewFields().WithOperation(log.OpLogin).WithError(err).ToSlice()...)
		BadRequestError("Invalid login request").Write(w)
		return
	}

	result, err := s.auth.Submit(ctx, form.Username, form.Password)
	if err != nil {
		status := http.StatusUnauthorized
		if errors.Is(err, auth.ErrMissingCredentials) {
			status = http.StatusUnprocessableEntity
		}
		s.renderLoginFailure(w, r, status, result.Form)
		return
	}

	if _, err := s.sessions.Start(ctx, w, r, result.Token, form.Username); err != nil {
		logger.ErrorContext(ctx, "Failed to persist session token",
			log.NewFields().WithOperation(log.OpLogin).WithError(err).ToSlice()...)
		result.Form.State = auth.Editing
		result.Form.Success = ""
		result.Form.Error = auth.FailureMessage
		s.renderLoginFailure(w, r, http.StatusInternalServerError, result.Form)
		return
	}

	shell.Redirect(w, r, shell.HomePath)
}

// renderLoginFailure shows the inline error and raises the alert: an
// HX-Trigger for htmx requests, an open dialog for plain form posts.
func (s *Server) renderLoginFailure(w http.ResponseWriter, r *http.Request, status int, form auth.Form) {
	page := loginPage{Brand: shell.Brand, Form: form}

	if shell.IsHTMX(r) {
		s.render(w, r, "login-form", status, page, func(b *HTMXResponseBuilder) {
			b.TriggerErrorNotification(form.Error)
		})
		return
	}

	page.Alert = &alert{Title: "Error!", Message: form.Error}
	s.render(w, r, "login.html", status, page)
}

// handleLogout clears the token without confirmation. The nav posts a form;
// GET is kept for typed or same-origin links, and a GET another site
// triggered (an <img src=/logout>) leaves the session alone.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
	case http.MethodGet:
		if crossSite(r) {
			log.FromContext(r.Context()).WarnContext(r.Context(), "Ignoring cross-site logout",
				log.NewFields().WithOperation(log.OpLogout).ToSlice()...)
			shell.Redirect(w, r, shell.HomePath)
			return
		}
	default:
		MethodNotAllowedError("GET, POST").Write(w)
		return
	}
	s.shell.Logout(r.Context(), w, r)
}

// crossSite reports whether the browser marked r as initiated by another
// site. Requests without Sec-Fetch-Site (old browsers, curl) are trusted.
func crossSite(r *http.Request) bool {
	switch r.Header.Get("Sec-Fetch-Site") {
	case "cross-site", "same-site":
		return true
	}
	return false
}
