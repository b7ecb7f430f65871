package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sendwave-dev/sendwave/internal/guard"
	"github.com/sendwave-dev/sendwave/internal/routes"
	"github.com/sendwave-dev/sendwave/internal/store"
)

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
)

// Client represents an HTTP client for the Sendwave gateway API
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a new API client for the gateway at serverURL
func New(serverURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(serverURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// SetHTTPClient sets a custom HTTP client
func (c *Client) SetHTTPClient(httpClient *http.Client) {
	c.httpClient = httpClient
}

// BaseURL returns the gateway address
func (c *Client) BaseURL() string {
	return c.baseURL
}

// LoginRequest represents the login request body
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UserDetail is the gateway's user representation
type UserDetail struct {
	ID          string     `json:"id"`
	Email       string     `json:"email"`
	Name        string     `json:"name"`
	Role        string     `json:"role"`
	CurrentView guard.View `json:"current_view"`
	CreatedAt   time.Time  `json:"created_at"`
}

func (u UserDetail) user() guard.User {
	return guard.User{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
	}
}

// LoginResponse represents the login response
type LoginResponse struct {
	Token       string     `json:"token"`
	User        UserDetail `json:"user"`
	CurrentView guard.View `json:"current_view"`
	RedirectTo  string     `json:"redirect_to"`
}

// Login authenticates the user and returns the session token
func (c *Client) Login(ctx context.Context, email, password string) (*store.LoginResult, error) {
	var loginResp LoginResponse
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", "", LoginRequest{Email: email, Password: password}, http.StatusOK, &loginResp); err != nil {
		return nil, err
	}

	return &store.LoginResult{
		Token:       loginResp.Token,
		User:        loginResp.User.user(),
		CurrentView: loginResp.CurrentView,
		RedirectTo:  loginResp.RedirectTo,
	}, nil
}

// Me returns the user the token belongs to
func (c *Client) Me(ctx context.Context, token string) (*store.Profile, error) {
	var user UserDetail
	if err := c.do(ctx, http.MethodGet, "/api/auth/me", token, nil, http.StatusOK, &user); err != nil {
		return nil, err
	}

	return &store.Profile{User: user.user(), CurrentView: user.CurrentView}, nil
}

// Logout ends the session on the gateway
func (c *Client) Logout(ctx context.Context, token string) error {
	return c.do(ctx, http.MethodPost, "/api/auth/logout", token, nil, http.StatusNoContent, nil)
}

// SetView switches an admin between the admin and user views
func (c *Client) SetView(ctx context.Context, token string, view guard.View) error {
	body := map[string]string{"view": string(view)}
	return c.do(ctx, http.MethodPut, "/api/auth/view", token, body, http.StatusOK, nil)
}

// Routes fetches the gateway's page declarations
func (c *Client) Routes(ctx context.Context) (*routes.Table, guard.Paths, error) {
	var manifest routes.File
	if err := c.do(ctx, http.MethodGet, "/api/routes", "", nil, http.StatusOK, &manifest); err != nil {
		return nil, guard.Paths{}, err
	}

	table, err := manifest.Table()
	if err != nil {
		return nil, guard.Paths{}, fmt.Errorf("invalid route manifest: %w", err)
	}
	return table, manifest.Paths, nil
}

// do sends a JSON request and decodes the response into out when it is non-nil
func (c *Client) do(ctx context.Context, method, path, token string, body interface{}, wantStatus int, out interface{}) error {
	var reader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", token))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != wantStatus {
		return responseError(resp)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// responseError turns a non-success response into an error carrying the
// gateway's message
func responseError(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)

	var payload struct {
		Error string `json:"error"`
	}
	message := strings.TrimSpace(string(body))
	if json.Unmarshal(body, &payload) == nil && payload.Error != "" {
		message = payload.Error
	}

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return fmt.Errorf("%w: %s", ErrUnauthorized, message)
	case http.StatusForbidden:
		return fmt.Errorf("%w: %s", ErrForbidden, message)
	default:
		return fmt.Errorf("request failed (status %d): %s", resp.StatusCode, message)
	}
}
