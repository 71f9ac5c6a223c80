// Package shell is the authenticated page frame: side navigation, the
// navigation toggle, logout and the session gate.
package shell

import (
	"context"
	"net/http"
	"strings"

	"ceycent/internal/activity"
	"ceycent/internal/log"
	"ceycent/internal/session"
)

const (
	Brand     = "CEYCENT"
	LoginPath = "/"
	HomePath  = "/content"
)

type NavItem struct {
	Label  string
	Href   string
	Icon   string
	Active bool
}

// navItems is the fixed navigation, in display order.
var navItems = []NavItem{
	{Label: "Dashboard", Href: "/content", Icon: "fa-tachometer-alt"},
	{Label: "Inventory", Href: "/inventory", Icon: "fa-boxes"},
	{Label: "Suppliers", Href: "/suplier", Icon: "fa-truck"},
	{Label: "Expenses", Href: "/expense", Icon: "fa-receipt"},
	{Label: "Customer", Href: "/customer", Icon: "fa-users"},
	{Label: "Sales", Href: "/sales", Icon: "fa-dollar-sign"},
	{Label: "Pending", Href: "/shipping", Icon: "fa-shipping-fast"},
	{Label: "Shipped", Href: "/Shiped", Icon: "fa-check-circle"},
	{Label: "Report", Href: "/report", Icon: "fa-chart-bar"},
}

// NavItems returns a copy of the navigation entries.
func NavItems() []NavItem {
	return append([]NavItem(nil), navItems...)
}

// LabelFor returns the navigation label of path.
func LabelFor(path string) (string, bool) {
	for _, item := range navItems {
		if item.Href == path {
			return item.Label, true
		}
	}
	return "", false
}

// PlaceholderPaths are the navigation targets without a page of their own.
func PlaceholderPaths() []string {
	var out []string
	for _, item := range navItems {
		if item.Href != HomePath && item.Href != "/report" {
			out = append(out, item.Href)
		}
	}
	return out
}

// Layout is the data the page frame template needs.
type Layout struct {
	Brand      string
	Title      string
	Active     string
	Items      []NavItem
	NavOpen    bool
	ToggleHref string
	Username   string
}

// ToggleNav flips the navigation visibility.
func ToggleNav(open bool) bool {
	return !open
}

// NavOpenFromRequest reads the no-JS toggle state from ?nav=open.
func NavOpenFromRequest(r *http.Request) bool {
	return r.URL.Query().Get("nav") == "open"
}

// SessionDestroyer removes the persisted token.
type SessionDestroyer interface {
	Destroy(ctx context.Context, w http.ResponseWriter, id string) error
}

// ViewerDropper discards per-session report state.
type ViewerDropper interface {
	Drop(sessionID string)
}

type Shell struct {
	sessions  SessionDestroyer
	viewers   ViewerDropper
	publisher activity.Publisher
	logger    *log.Logger
}

func New(sessions SessionDestroyer, viewers ViewerDropper, publisher activity.Publisher, logger *log.Logger) *Shell {
	if publisher == nil {
		publisher = activity.Noop{}
	}
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &Shell{
		sessions:  sessions,
		viewers:   viewers,
		publisher: publisher,
		logger:    logger.WithComponent(log.ComponentShell),
	}
}

// Layout builds the frame with active marked. An unknown active path
// marks nothing.
func (s *Shell) Layout(active string, navOpen bool) Layout {
	items := NavItems()
	title := Brand
	for i := range items {
		if items[i].Href == active {
			items[i].Active = true
			title = items[i].Label
		}
	}

	toggle := active
	if ToggleNav(navOpen) {
		toggle += "?nav=open"
	}

	return Layout{
		Brand:      Brand,
		Title:      title,
		Active:     active,
		Items:      items,
		NavOpen:    navOpen,
		ToggleHref: toggle,
	}
}

// LayoutFor builds the frame for r, including the signed-in user.
func (s *Shell) LayoutFor(r *http.Request, active string) Layout {
	l := s.Layout(active, NavOpenFromRequest(r))
	if sess, ok := session.FromContext(r.Context()); ok {
		l.Username = sess.Username
	}
	return l
}

// Logout deletes the token without confirmation and sends the user to the
// login page. Store failures are logged; the user is logged out regardless.
func (s *Shell) Logout(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	sess, _ := session.FromContext(ctx)

	if err := s.sessions.Destroy(ctx, w, sess.ID); err != nil {
		s.logger.ErrorContext(ctx, "Failed to delete session token",
			log.NewFields().WithSessionID(sess.ID).WithOperation(log.OpLogout).WithError(err).ToSlice()...)
	}
	if sess.ID != "" && s.viewers != nil {
		s.viewers.Drop(sess.ID)
	}

	e := activity.NewEvent(activity.KindLogout)
	e.SessionID = sess.ID
	e.Username = sess.Username
	activity.Emit(ctx, s.publisher, e, s.logger)

	s.logger.InfoContext(ctx, "User logged out",
		log.NewFields().WithSessionID(sess.ID).WithOperation(log.OpLogout).ToSlice()...)

	Redirect(w, r, LoginPath)
}

// RequireSession sends requests without a token to the login page.
func (s *Shell) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, ok := session.FromContext(r.Context())
		if !ok || !sess.Authenticated() {
			Redirect(w, r, LoginPath)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// IsHTMX reports whether r was issued by htmx.
func IsHTMX(r *http.Request) bool {
	return strings.EqualFold(r.Header.Get("HX-Request"), "true")
}

// Redirect navigates to target: HX-Redirect for htmx requests, 303 otherwise.
func Redirect(w http.ResponseWriter, r *http.Request, target string) {
	if IsHTMX(r) {
		w.Header().Set("HX-Redirect", target)
		w.WriteHeader(http.StatusOK)
		return
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}
