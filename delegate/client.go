// Package delegate talks to an external identity service that owns
// credentials and sessions, keeping only a denormalized profile row locally.
package delegate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
)

type (
	// ExternalUser is the identity as the delegate reports it. The ID is
	// owned by the delegate, doorward never mints one.
	ExternalUser struct {
		ID    string `json:"id"`
		Email string `json:"email"`
		Name  string `json:"name"`
	}

	Session struct {
		AccessToken  string       `json:"access_token"`
		RefreshToken string       `json:"refresh_token"`
		ExpiresIn    int          `json:"expires_in"`
		User         ExternalUser `json:"user"`
	}

	Client struct {
		baseURL string
		apiKey  string
		hc      *http.Client
	}

	credentials struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		Name     string `json:"name,omitempty"`
	}

	servicePayload struct {
		Error string `json:"error"`
		Msg   string `json:"msg"`
	}
)

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		hc:      &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *Client) do(ctx context.Context, method, path, bearer string, body, out interface{}) error {
	var reqBody bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&reqBody).Encode(body); err != nil {
			return fmt.Errorf("unable to encode request to %v, cause %v", path, err)
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, &reqBody)
	if err != nil {
		return fmt.Errorf("unable to build request to %v, cause %v", path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", c.apiKey)
	// correlation id so upstream support can find the request in their logs
	req.Header.Set("X-Request-Id", uuid.NewString())
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	res, err := c.hc.Do(req)
	if err != nil {
		return NetworkFailure{Err: err}
	}
	defer res.Body.Close()
	if res.StatusCode == http.StatusTooManyRequests {
		return RateLimited{RetryAfter: retryAfter(res)}
	}
	if res.StatusCode < 200 || res.StatusCode > 299 {
		var payload servicePayload
		json.NewDecoder(res.Body).Decode(&payload)
		reason := payload.Error
		if reason == "" {
			reason = payload.Msg
		}
		if reason == "" {
			reason = http.StatusText(res.StatusCode)
		}
		return Rejected{Status: res.StatusCode, Reason: reason}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return NetworkFailure{Err: fmt.Errorf("unable to decode response from %v, cause %v", path, err)}
	}
	return nil
}

func retryAfter(res *http.Response) time.Duration {
	secs, err := strconv.Atoi(res.Header.Get("Retry-After"))
	if err != nil || secs <= 0 {
		secs = 60
	}
	return time.Duration(secs) * time.Second
}

func (c *Client) SignUp(ctx context.Context, email, passwd, name string) (Session, error) {
	var out Session
	err := c.do(ctx, "POST", "/auth/v1/signup", "", credentials{Email: email, Password: passwd, Name: name}, &out)
	return out, err
}

func (c *Client) SignIn(ctx context.Context, email, passwd string) (Session, error) {
	var out Session
	err := c.do(ctx, "POST", "/auth/v1/token?grant_type=password", "", credentials{Email: email, Password: passwd}, &out)
	return out, err
}

func (c *Client) Refresh(ctx context.Context, refreshToken string) (Session, error) {
	var out Session
	err := c.do(ctx, "POST", "/auth/v1/token?grant_type=refresh_token",
		"", map[string]string{"refresh_token": refreshToken}, &out)
	return out, err
}

func (c *Client) SignOut(ctx context.Context, accessToken string) error {
	return c.do(ctx, "POST", "/auth/v1/logout", accessToken, nil, nil)
}

func (c *Client) CurrentUser(ctx context.Context, accessToken string) (ExternalUser, error) {
	var out ExternalUser
	err := c.do(ctx, "GET", "/auth/v1/user", accessToken, nil, &out)
	return out, err
}

// AdminCreateUser imports an already-hashed credential into the delegate.
// Only the migration uses it, the api key must be a service-role key.
func (c *Client) AdminCreateUser(ctx context.Context, email, name, passwordHash string) (ExternalUser, error) {
	var out ExternalUser
	err := c.do(ctx, "POST", "/auth/v1/admin/users", "", map[string]string{
		"email":         email,
		"name":          name,
		"password_hash": passwordHash,
	}, &out)
	return out, err
}
