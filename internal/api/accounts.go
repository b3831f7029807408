package api

import (
	"context"
	"net/http"
	"net/url"

	"horizon/internal/models"
)

const (
	authBase = "/api/auth"
	bankBase = "/api/bank"
)

// AuthUser returns the currently authenticated account, or
// models.ErrUnauthorized when no session cookie is held.
func (c *Client) AuthUser(ctx context.Context) (models.User, error) {
	var user models.User
	err := c.getJSON(ctx, authBase+"/user/", &user)
	return user, err
}

// Login establishes a session; the session and CSRF cookies land in the jar.
func (c *Client) Login(ctx context.Context, email, password string) error {
	body := struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}{Email: email, Password: password}
	return c.postJSON(ctx, authBase+"/login/", body, nil)
}

// Register creates an account. The backend expects the password twice.
func (c *Client) Register(ctx context.Context, email, password, username string) error {
	body := struct {
		Email     string `json:"email"`
		Password1 string `json:"password1"`
		Password2 string `json:"password2"`
		Username  string `json:"username"`
	}{Email: email, Password1: password, Password2: password, Username: username}
	return c.postJSON(ctx, authBase+"/registration/", body, nil)
}

func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, authBase+"/logout/", nil, "", nil)
}

// ProviderLoginURL builds the OAuth redirect URL for a social provider.
// With connect=true the provider is linked to the existing account
// instead of authenticating a new session.
func (c *Client) ProviderLoginURL(provider string, connect bool, next string) string {
	params := url.Values{}
	if connect {
		params.Set("process", "connect")
	}
	if next != "" {
		params.Set("next", next)
	}
	u := c.baseURL + "/accounts/" + url.PathEscape(provider) + "/login/"
	if encoded := params.Encode(); encoded != "" {
		u += "?" + encoded
	}
	return u
}

func (c *Client) Balance(ctx context.Context) (models.Balance, error) {
	var balance models.Balance
	err := c.getJSON(ctx, bankBase+"/balance/", &balance)
	return balance, err
}

func (c *Client) Transactions(ctx context.Context) ([]models.Transaction, error) {
	var history []models.Transaction
	err := c.getJSON(ctx, bankBase+"/transactions/", &history)
	return history, err
}

// Transfer moves an integer amount to another player by username.
func (c *Client) Transfer(ctx context.Context, toUsername string, amount int64) error {
	body := struct {
		ToUsername string `json:"to_username"`
		Amount     int64  `json:"amount"`
	}{ToUsername: toUsername, Amount: amount}
	return c.postJSON(ctx, bankBase+"/transfer/", body, nil)
}
