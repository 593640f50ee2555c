package clients

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

const authenticatePath = "/v3/autenticar"

type loginRequest struct {
	Credential string `json:"credencial"`
	Password   string `json:"senha"`
}

type loginResponse struct {
	Token string `json:"token"`
}

// IdentityClient exchanges account credentials for a session token.
type IdentityClient struct {
	base       *BaseClient
	credential string
	password   string
}

// NewIdentityClient returns client.
func NewIdentityClient(baseURL string, httpClient HTTPDoer, credential, password string) *IdentityClient {
	return &IdentityClient{
		base:       NewBaseClient(baseURL, httpClient),
		credential: credential,
		password:   password,
	}
}

// Authenticate posts the credentials and returns the raw token.
func (c *IdentityClient) Authenticate(ctx context.Context) (string, error) {
	body, err := json.Marshal(loginRequest{Credential: c.credential, Password: c.password})
	if err != nil {
		return "", err
	}

	status, resp, err := c.base.Do(ctx, http.MethodPost, authenticatePath, nil, body, nil)
	if err != nil {
		return "", err
	}
	if err := checkStatus(http.MethodPost, authenticatePath, status, resp); err != nil {
		return "", err
	}

	var out loginResponse
	if err := json.Unmarshal(resp, &out); err != nil {
		return "", fmt.Errorf("identity: decode response: %w", err)
	}
	if out.Token == "" {
		return "", errors.New("identity: response carries no token")
	}
	return out.Token, nil
}
