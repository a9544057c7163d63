package middleware

import (
	"encoding/gob"
	"errors"
	"net/http"
	"net/url"

	"github.com/anonto42/concordance/backend/internal/models"
	"github.com/anonto42/concordance/backend/internal/repositories"
	"github.com/gorilla/sessions"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

const (
	sessionName    = "concordance-session"
	sessionUserKey = "user_id"
	currentUserKey = "current_user"
)

// Flash is a one-shot message shown on the next rendered page
type Flash struct {
	Level   string // info, success, warning, error
	Message string
}

func init() {
	gob.Register(Flash{})
}

// SessionManager ties the cookie session to the signed-in user of the web views
type SessionManager struct {
	store sessions.Store
	users repositories.UserRepository
}

// NewSessionManager creates a cookie-backed session manager signed with secret
func NewSessionManager(secret string, secure bool, users repositories.UserRepository) *SessionManager {
	store := sessions.NewCookieStore([]byte(secret))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   14 * 24 * 3600,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	return &SessionManager{store: store, users: users}
}

func (m *SessionManager) session(c echo.Context) (*sessions.Session, error) {
	return m.store.Get(c.Request(), sessionName)
}

// Middleware resolves the signed-in user, if any, for every request
func (m *SessionManager) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			sess, err := m.session(c)
			if err != nil {
				// a cookie signed with another key is treated as no session
				logrus.WithError(err).Debug("Discarding unreadable session")
				return next(c)
			}
			id, ok := sess.Values[sessionUserKey].(uint)
			if !ok {
				return next(c)
			}
			user, err := m.users.GetUserByID(c.Request().Context(), id)
			if err != nil {
				if errors.Is(err, repositories.ErrNotFound) {
					return next(c)
				}
				return err
			}
			c.Set(currentUserKey, user)
			return next(c)
		}
	}
}

// CurrentUser returns the signed-in user, or nil
func CurrentUser(c echo.Context) *models.User {
	user, _ := c.Get(currentUserKey).(*models.User)
	return user
}

// Login binds user to the session
func (m *SessionManager) Login(c echo.Context, user *models.User) error {
	sess, _ := m.session(c)
	sess.Values[sessionUserKey] = user.ID
	c.Set(currentUserKey, user)
	return sess.Save(c.Request(), c.Response())
}

// Logout forgets the signed-in user but keeps pending flashes
func (m *SessionManager) Logout(c echo.Context) error {
	sess, _ := m.session(c)
	delete(sess.Values, sessionUserKey)
	c.Set(currentUserKey, nil)
	return sess.Save(c.Request(), c.Response())
}

// AddFlash queues a message for the next rendered page
func (m *SessionManager) AddFlash(c echo.Context, level, message string) error {
	sess, _ := m.session(c)
	sess.AddFlash(Flash{Level: level, Message: message})
	return sess.Save(c.Request(), c.Response())
}

// Flashes pops the queued messages
func (m *SessionManager) Flashes(c echo.Context) []Flash {
	sess, err := m.session(c)
	if err != nil {
		return nil
	}
	raw := sess.Flashes()
	if len(raw) == 0 {
		return nil
	}
	if err := sess.Save(c.Request(), c.Response()); err != nil {
		logrus.WithError(err).Warn("Failed to save session after reading flashes")
	}
	out := make([]Flash, 0, len(raw))
	for _, f := range raw {
		if flash, ok := f.(Flash); ok {
			out = append(out, flash)
		}
	}
	return out
}

// LoginRequired redirects anonymous visitors to loginURL, remembering where they were going
func LoginRequired(loginURL string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if CurrentUser(c) == nil {
				return c.Redirect(http.StatusFound, LoginRedirectURL(loginURL, c.Request().URL.RequestURI()))
			}
			return next(c)
		}
	}
}

// LoginRedirectURL appends the next parameter to loginURL
func LoginRedirectURL(loginURL, next string) string {
	return loginURL + "?" + url.Values{"next": {next}}.Encode()
}
