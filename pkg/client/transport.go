package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
)

// authTransport attaches the bearer and client tokens to every request
// and, on a 401, performs exactly one refresh-and-retry. A second 401, or
// a failed refresh, surfaces the original response unchanged.
type authTransport struct {
	base    http.RoundTripper
	store   TokenStore
	baseURL string
}

func (t *authTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	t.decorate(req)

	resp, err := t.base.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized || isAuthPath(req.URL.Path) {
		return resp, nil
	}

	if !t.refresh(req) {
		return resp, nil
	}

	retry, err := cloneRequest(req)
	if err != nil {
		return resp, nil
	}
	resp.Body.Close()

	t.decorate(retry)
	return t.base.RoundTrip(retry)
}

func (t *authTransport) decorate(req *http.Request) {
	access, _ := t.store.Tokens()
	if access != "" {
		req.Header.Set("Authorization", "Bearer "+access)
	}
	if token := t.store.ClientToken(); token != "" {
		req.Header.Set("x-client-token", token)
	}
}

// refresh exchanges the stored refresh token for a new pair, reporting
// whether the caller should retry.
func (t *authTransport) refresh(orig *http.Request) bool {
	_, refreshToken := t.store.Tokens()
	if refreshToken == "" {
		return false
	}

	body, err := json.Marshal(map[string]string{"refreshToken": refreshToken})
	if err != nil {
		return false
	}
	req, err := http.NewRequestWithContext(orig.Context(), http.MethodPost,
		t.baseURL+"/auth/refresh", bytes.NewReader(body))
	if err != nil {
		return false
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.base.RoundTrip(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return false
	}

	var tokens struct {
		AccessToken  string `json:"accessToken"`
		RefreshToken string `json:"refreshToken"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tokens); err != nil {
		return false
	}
	t.store.SetTokens(tokens.AccessToken, tokens.RefreshToken)
	return true
}

func cloneRequest(req *http.Request) (*http.Request, error) {
	retry := req.Clone(req.Context())
	if req.GetBody == nil {
		if req.Body != nil {
			return nil, fmt.Errorf("client: request body is not replayable")
		}
		return retry, nil
	}
	body, err := req.GetBody()
	if err != nil {
		return nil, err
	}
	retry.Body = body
	return retry, nil
}

func isAuthPath(path string) bool {
	switch path {
	case "/auth/login", "/auth/register", "/auth/refresh", "/auth/logout":
		return true
	}
	return false
}
