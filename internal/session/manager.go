package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"ceycent/internal/log"

	"github.com/google/uuid"
)

const DefaultCookieName = "ceycent_session"

type Options struct {
	CookieName string
	TTL        time.Duration
	Secure     bool
}

// Manager binds the session store to HTTP requests via a cookie.
type Manager struct {
	store  Store
	opts   Options
	logger *log.Logger
	now    func() time.Time
}

func NewManager(store Store, opts Options, logger *log.Logger) *Manager {
	if opts.CookieName == "" {
		opts.CookieName = DefaultCookieName
	}
	if opts.TTL <= 0 {
		opts.TTL = 24 * time.Hour
	}
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &Manager{
		store:  store,
		opts:   opts,
		logger: logger.WithComponent(log.ComponentSession),
		now:    time.Now,
	}
}

// Load returns the session referenced by the request cookie.
func (m *Manager) Load(r *http.Request) (Session, error) {
	c, err := r.Cookie(m.opts.CookieName)
	if err != nil || c.Value == "" {
		return Session{}, ErrNotFound
	}
	if _, err := uuid.Parse(c.Value); err != nil {
		return Session{}, ErrNotFound
	}
	return m.store.Get(r.Context(), c.Value)
}

// Start persists token in a fresh session and sets the cookie.
// Any previous session referenced by the request is discarded.
func (m *Manager) Start(ctx context.Context, w http.ResponseWriter, r *http.Request, token, username string) (Session, error) {
	if prev, err := m.Load(r); err == nil {
		if err := m.store.Delete(ctx, prev.ID); err != nil {
			m.logger.WarnContext(ctx, "Failed to drop previous session",
				log.NewFields().WithSessionID(prev.ID).WithError(err).ToSlice()...)
		}
	}

	now := m.now().UTC()
	s := Session{
		ID:        uuid.NewString(),
		Token:     token,
		Username:  username,
		CreatedAt: now,
		LastSeen:  now,
	}
	if err := m.store.Save(ctx, s, m.opts.TTL); err != nil {
		return Session{}, fmt.Errorf("save session: %w", err)
	}

	http.SetCookie(w, m.cookie(s.ID, int(m.opts.TTL.Seconds())))
	m.logger.InfoContext(ctx, "Session started",
		log.NewFields().WithSessionID(s.ID).WithOperation(log.OpLogin).ToSlice()...)
	return s, nil
}

// Destroy deletes the stored token and expires the cookie. The cookie is
// cleared even when the store fails.
func (m *Manager) Destroy(ctx context.Context, w http.ResponseWriter, id string) error {
	http.SetCookie(w, m.cookie("", -1))
	if id == "" {
		return nil
	}
	if err := m.store.Delete(ctx, id); err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// Middleware loads the request's session, if any, into the context and
// refreshes its expiry.
func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s, err := m.Load(r)
		if err != nil {
			if !errors.Is(err, ErrNotFound) {
				m.logger.ErrorContext(r.Context(), "Failed to load session",
					log.NewFields().WithError(err).ToSlice()...)
			}
			next.ServeHTTP(w, r)
			return
		}

		s.LastSeen = m.now().UTC()
		if err := m.store.Refresh(r.Context(), s, m.opts.TTL); err != nil {
			if errors.Is(err, ErrNotFound) {
				// Logged out while this request was in flight.
				next.ServeHTTP(w, r)
				return
			}
			m.logger.WarnContext(r.Context(), "Failed to refresh session",
				log.NewFields().WithSessionID(s.ID).WithError(err).ToSlice()...)
		}

		next.ServeHTTP(w, r.WithContext(NewContext(r.Context(), s)))
	})
}

func (m *Manager) cookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     m.opts.CookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   m.opts.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}
