package adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/k-fujimoto/careerchat/pkg/model"
	"github.com/m-mizutani/goerr/v2"
)

const identityBaseURL = "https://identitytoolkit.googleapis.com/v1"

// Identity is the interface for the external anonymous auth collaborator
type Identity interface {
	SignInAnonymously(ctx context.Context) (model.UserID, error)
}

type IdentityClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

type IdentityOption func(*IdentityClient)

func WithIdentityBaseURL(baseURL string) IdentityOption {
	return func(c *IdentityClient) {
		c.baseURL = baseURL
	}
}

func WithIdentityHTTPClient(client *http.Client) IdentityOption {
	return func(c *IdentityClient) {
		c.httpClient = client
	}
}

// NewIdentity creates a client for the Identity Toolkit anonymous sign-in
// endpoint (the Firebase Auth REST surface)
func NewIdentity(apiKey string, opts ...IdentityOption) *IdentityClient {
	c := &IdentityClient{
		apiKey:     apiKey,
		baseURL:    identityBaseURL,
		httpClient: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type signUpRequest struct {
	ReturnSecureToken bool `json:"returnSecureToken"`
}

type signUpResponse struct {
	LocalID string `json:"localId"`
	IDToken string `json:"idToken"`
}

type identityError struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// SignInAnonymously requests a fresh anonymous identity. No retry is
// attempted; the caller decides how to surface a failure.
func (c *IdentityClient) SignInAnonymously(ctx context.Context) (model.UserID, error) {
	body, err := json.Marshal(signUpRequest{ReturnSecureToken: true})
	if err != nil {
		return "", goerr.Wrap(err, "failed to marshal sign-up request")
	}

	url := c.baseURL + "/accounts:signUp?key=" + c.apiKey
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", goerr.Wrap(err, "failed to create sign-up request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", goerr.Wrap(err, "failed to call sign-up endpoint")
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", goerr.Wrap(err, "failed to read sign-up response")
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr identityError
		if err := json.Unmarshal(data, &apiErr); err == nil && apiErr.Error.Message != "" {
			return "", goerr.New("anonymous sign-in rejected",
				goerr.V("status", resp.StatusCode),
				goerr.V("message", apiErr.Error.Message))
		}
		return "", goerr.New("anonymous sign-in rejected", goerr.V("status", resp.StatusCode))
	}

	var signUp signUpResponse
	if err := json.Unmarshal(data, &signUp); err != nil {
		return "", goerr.Wrap(err, "failed to unmarshal sign-up response")
	}
	if signUp.LocalID == "" {
		return "", goerr.New("sign-up response has no user ID")
	}

	return model.UserID(signUp.LocalID), nil
}
