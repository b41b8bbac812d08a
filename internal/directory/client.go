// Package directory is the client side of the profile admin API.
package directory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/ovaphlow/pitchfork/service-profile-admin/internal/profile/entity"
	userentity "github.com/ovaphlow/pitchfork/service-profile-admin/internal/user/entity"
)

// Service is the remote directory as the listing and profile commands see it.
type Service interface {
	ListProfiles(ctx context.Context) ([]entity.Profile, error)
	UpdateProfile(ctx context.Context, id string, patch entity.Patch) (*entity.Profile, error)
}

// APIError is a non-2xx response. Message is the server's "error" field.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%d %s", e.Status, http.StatusText(e.Status))
	}
	return e.Message
}

// ErrNotOwnProfile is returned when updating a profile other than the signed-in one.
var ErrNotOwnProfile = errors.New("only the signed-in profile can be updated")

// Config locates the API.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// ConfigFromEnv reads ADMIN_API_URL and ADMIN_HTTP_TIMEOUT.
func ConfigFromEnv() Config {
	cfg := Config{BaseURL: "http://localhost:8431", Timeout: 10 * time.Second}
	if v := os.Getenv("ADMIN_API_URL"); v != "" {
		cfg.BaseURL = v
	}
	if v := os.Getenv("ADMIN_HTTP_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.Timeout = d
		}
	}
	return cfg
}

// Tokens mirrors the login and refresh response.
type Tokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

// Session is the signed-in account and its profile, if one exists.
type Session struct {
	User    *userentity.MinimalAuthView `json:"user"`
	Profile *entity.Profile             `json:"profile"`
}

// Listing is the admin listing payload.
type Listing struct {
	Users    []userentity.Summary `json:"users"`
	Profiles []entity.Profile     `json:"profiles"`
}

// Client talks JSON over HTTP to the API. Set the access token with
// SetToken before calling authenticated endpoints.
type Client struct {
	base   string
	http   *http.Client
	token  string
	userID string
}

func NewClient(cfg Config) *Client {
	return &Client{
		base: strings.TrimRight(cfg.BaseURL, "/"),
		http: &http.Client{Timeout: cfg.Timeout},
	}
}

// SetToken sets the bearer token sent with every request.
func (c *Client) SetToken(token string) { c.token = token }

// SetUserID records the signed-in account so UpdateProfile can refuse other ids.
func (c *Client) SetUserID(id string) { c.userID = id }

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var rd io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "encode request")
		}
		rd = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, rd)
	if err != nil {
		return errors.Wrapf(err, "build %s %s", method, path)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrapf(err, "%s %s", method, path)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrapf(err, "read %s %s", method, path)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		var payload struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(raw, &payload) == nil {
			apiErr.Message = payload.Error
		}
		return apiErr
	}
	if out == nil {
		return nil
	}
	if len(raw) == 0 {
		return errors.Errorf("decode %s %s: empty body", method, path)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return errors.Wrapf(err, "decode %s %s", method, path)
	}
	return nil
}

// Listing fetches accounts and profiles from the admin endpoint.
func (c *Client) Listing(ctx context.Context) (*Listing, error) {
	var out Listing
	if err := c.do(ctx, http.MethodGet, "/api/users", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListProfiles returns the profile half of the listing; a missing list is empty.
func (c *Client) ListProfiles(ctx context.Context) ([]entity.Profile, error) {
	l, err := c.Listing(ctx)
	if err != nil {
		return nil, err
	}
	if l.Profiles == nil {
		return []entity.Profile{}, nil
	}
	return l.Profiles, nil
}

// GetProfile returns the signed-in account's profile.
func (c *Client) GetProfile(ctx context.Context) (*entity.Profile, error) {
	var out entity.Profile
	if err := c.do(ctx, http.MethodGet, "/api/profile", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateProfile writes patch to the signed-in account's profile. The server
// resolves the target from the session, so id must be that account.
func (c *Client) UpdateProfile(ctx context.Context, id string, patch entity.Patch) (*entity.Profile, error) {
	if c.userID != "" && id != c.userID {
		return nil, ErrNotOwnProfile
	}
	var out entity.Profile
	if err := c.do(ctx, http.MethodPut, "/api/profile", patch, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Login(ctx context.Context, identifier, password string) (*Tokens, error) {
	body := map[string]string{"identifier": identifier, "password": password, "client_id": "adminctl"}
	var out Tokens
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Refresh(ctx context.Context, refreshToken string) (*Tokens, error) {
	var out Tokens
	if err := c.do(ctx, http.MethodPost, "/api/auth/refresh", map[string]string{"refresh_token": refreshToken}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Logout(ctx context.Context, refreshToken string) error {
	return c.do(ctx, http.MethodPost, "/api/auth/logout", map[string]string{"refresh_token": refreshToken}, nil)
}

// Session returns the signed-in account and profile.
func (c *Client) Session(ctx context.Context) (*Session, error) {
	var out Session
	if err := c.do(ctx, http.MethodGet, "/api/auth/session", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
