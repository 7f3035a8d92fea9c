// Package session resolves the caller of each request from a signed
// session token and issues or clears that token on login and logout.
package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/riwart/taskr/internal/model"
)

const DefaultCookieName = "taskr_session"

// UserGetter loads the current record of a user.
type UserGetter interface {
	Get(ctx context.Context, id int64) (model.User, error)
}

type Options struct {
	Secret     []byte
	TTL        time.Duration
	CookieName string
	Secure     bool
	Now        func() time.Time
}

type Manager struct {
	users UserGetter
	opts  Options
}

type claims struct {
	Name string `json:"name"`
	jwt.RegisteredClaims
}

func NewManager(users UserGetter, opts Options) (*Manager, error) {
	if len(opts.Secret) == 0 {
		return nil, errors.New("session secret is required")
	}
	if opts.TTL <= 0 {
		opts.TTL = 24 * time.Hour
	}
	if opts.CookieName == "" {
		opts.CookieName = DefaultCookieName
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Manager{users: users, opts: opts}, nil
}

// RequireLogin fails with model.ErrAuthRequired for the anonymous caller.
func RequireLogin(caller model.Caller) error {
	if caller.IsAnonymous() {
		return model.ErrAuthRequired
	}
	return nil
}

// Issue signs a session token for u.
func (m *Manager) Issue(u model.User) (string, error) {
	now := m.opts.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Name: u.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(u.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.opts.TTL)),
		},
	})
	signed, err := token.SignedString(m.opts.Secret)
	if err != nil {
		return "", fmt.Errorf("sign session: %w", err)
	}
	return signed, nil
}

// Login issues a token for u and stores it in the session cookie.
func (m *Manager) Login(w http.ResponseWriter, u model.User) (string, error) {
	signed, err := m.Issue(u)
	if err != nil {
		return "", err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     m.opts.CookieName,
		Value:    signed,
		Path:     "/",
		MaxAge:   int(m.opts.TTL / time.Second),
		HttpOnly: true,
		Secure:   m.opts.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	return signed, nil
}

// Logout expires the session cookie.
func (m *Manager) Logout(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.opts.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.opts.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Authenticate resolves the caller of r. Requests without a usable token,
// or whose user no longer exists, are anonymous. Only store failures are
// returned as errors.
func (m *Manager) Authenticate(ctx context.Context, r *http.Request) (model.Caller, error) {
	raw := m.tokenFrom(r)
	if raw == "" {
		return model.Anonymous, nil
	}

	id, ok := m.verify(raw)
	if !ok {
		return model.Anonymous, nil
	}

	u, err := m.users.Get(ctx, id)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return model.Anonymous, nil
		}
		return model.Anonymous, fmt.Errorf("load session user: %w", err)
	}
	return model.CallerFor(u), nil
}

func (m *Manager) tokenFrom(r *http.Request) string {
	if c, err := r.Cookie(m.opts.CookieName); err == nil && c.Value != "" {
		return c.Value
	}
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	return ""
}

func (m *Manager) verify(raw string) (int64, bool) {
	var c claims
	token, err := jwt.ParseWithClaims(raw, &c, func(*jwt.Token) (any, error) {
		return m.opts.Secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(m.opts.Now),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !token.Valid {
		return 0, false
	}

	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
