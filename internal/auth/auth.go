// Package auth wraps the external authentication service: session
// bootstrap, login and registration with local pre-checks, and the
// translation of raw backend validation messages into user-facing text.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"horizon/internal/api"
	"horizon/internal/content"
	"horizon/internal/models"
)

// translations maps raw backend validation messages to localized text.
// Untranslated messages pass through unchanged.
var translations = map[string]string{
	"A user is already registered with this e-mail address.":             "Пользователь с таким email уже зарегистрирован",
	"Unable to log in with provided credentials.":                        "Неверный email или пароль",
	"Enter a valid email address.":                                       "Введите корректный email",
	"This password is too short. It must contain at least 8 characters.": "Пароль слишком короткий (минимум 8 символов)",
	"This password is too common.":                                       "Пароль слишком простой",
	"This password is entirely numeric.":                                 "Пароль не может состоять только из цифр",
	"The two password fields didn't match.":                              "Пароли не совпадают",
}

// Translate maps a raw backend validation message to localized text,
// falling back to the raw message when no translation exists.
func Translate(raw string) string {
	if t, ok := translations[raw]; ok {
		return t
	}
	return raw
}

// Session holds the authenticated account state. A nil user means no
// session; that is a normal state, not an error.
type Session struct {
	client *api.Client

	mu   sync.RWMutex
	user *models.User
}

func NewSession(client *api.Client) *Session {
	return &Session{client: client}
}

// User returns the current account, or nil when not logged in.
func (s *Session) User() *models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user
}

// Bootstrap fetches the current user. An unauthorized response is
// swallowed: it just means no session cookie is present.
func (s *Session) Bootstrap(ctx context.Context) error {
	user, err := s.client.AuthUser(ctx)
	if err != nil {
		if errors.Is(err, models.ErrUnauthorized) {
			s.setUser(nil)
			return nil
		}
		var apiErr *api.Error
		if errors.As(err, &apiErr) && (apiErr.Status == 401 || apiErr.Status == 403) {
			s.setUser(nil)
			return nil
		}
		return fmt.Errorf("failed to fetch current user: %w", err)
	}
	s.setUser(&user)
	return nil
}

// Login authenticates with email and password, then re-fetches the user
// to confirm the session. The returned error message is user-facing.
func (s *Session) Login(ctx context.Context, email, password string) error {
	if err := s.client.Login(ctx, email, password); err != nil {
		return translateErr(err)
	}
	return s.Bootstrap(ctx)
}

// Register creates an account after local pre-checks and logs in.
func (s *Session) Register(ctx context.Context, email, password, username string) error {
	if err := content.ValidateUsername(username); err != nil {
		return err
	}
	if err := s.client.Register(ctx, email, password, username); err != nil {
		return translateErr(err)
	}
	return s.Login(ctx, email, password)
}

func (s *Session) Logout(ctx context.Context) error {
	if err := s.client.Logout(ctx); err != nil {
		// The local session is dropped regardless: the cookie may
		// already be invalid on the backend side.
		slog.Error("logout failed", "error", err)
	}
	s.setUser(nil)
	return nil
}

// ProviderLoginURL builds the OAuth redirect for a social provider.
// connect=true links the provider to the current account.
func (s *Session) ProviderLoginURL(provider string, connect bool, next string) string {
	return s.client.ProviderLoginURL(provider, connect, next)
}

func (s *Session) setUser(user *models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = user
}

func translateErr(err error) error {
	var apiErr *api.Error
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return errors.New(Translate(apiErr.Message))
	}
	return err
}
