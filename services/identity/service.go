// Package identitysvc implements the session.IdentityProvider against a
// Google-Identity-style REST surface: password sign-in and refresh-token
// exchange, each returning an id token, a refresh token and a lifetime in
// seconds.
package identitysvc

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/pkg/errors"

	"github.com/nurturehq/nurture/core"
	"github.com/nurturehq/nurture/core/session"
)

var errAuthenticationFailed = errors.New("authentication failed, check your email and password")

type service struct {
	baseURL string
	apiKey  string
	http    *http.Client
	log     core.Logger
}

var _ session.IdentityProvider = (*service)(nil)

func NewService(conf *core.Config, log core.Logger) session.IdentityProvider {
	return &service{
		baseURL: conf.IdentityBaseURL,
		apiKey:  conf.IdentityAPIKey,
		http:    &http.Client{Timeout: conf.APITimeout},
		log:     log,
	}
}

type (
	authResponse struct {
		LocalID      string `json:"localId"`
		Email        string `json:"email"`
		DisplayName  string `json:"displayName"`
		IDToken      string `json:"idToken"`
		RefreshToken string `json:"refreshToken"`
		ExpiresIn    string `json:"expiresIn"` // seconds, as a string
	}

	refreshResponse struct {
		UserID       string `json:"user_id"`
		IDToken      string `json:"id_token"`
		RefreshToken string `json:"refresh_token"`
		ExpiresIn    string `json:"expires_in"`
	}

	apiError struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
)

func (svc *service) SignIn(ctx context.Context, email, password string) (session.Account, session.Token, error) {
	var res authResponse
	err := svc.post(ctx, "/v1/accounts:signInWithPassword", map[string]interface{}{
		"email":             email,
		"password":          password,
		"returnSecureToken": true,
	}, &res)
	if err != nil {
		return session.Account{}, session.Token{}, err
	}
	return svc.account(res), svc.token(res.IDToken, res.RefreshToken, res.ExpiresIn), nil
}

func (svc *service) SignUp(ctx context.Context, na session.NewAccount) (session.Account, session.Token, error) {
	var res authResponse
	err := svc.post(ctx, "/v1/accounts:signUp", map[string]interface{}{
		"email":             na.Email,
		"password":          na.Password,
		"displayName":       na.Name,
		"returnSecureToken": true,
	}, &res)
	if err != nil {
		return session.Account{}, session.Token{}, err
	}
	acct := svc.account(res)
	if acct.Name == "" {
		acct.Name = na.Name
	}
	return acct, svc.token(res.IDToken, res.RefreshToken, res.ExpiresIn), nil
}

func (svc *service) Refresh(ctx context.Context, refreshToken string) (session.Token, error) {
	var res refreshResponse
	err := svc.post(ctx, "/v1/token", map[string]interface{}{
		"grant_type":    "refresh_token",
		"refresh_token": refreshToken,
	}, &res)
	if err != nil {
		return session.Token{}, err
	}
	return svc.token(res.IDToken, res.RefreshToken, res.ExpiresIn), nil
}

func (svc *service) post(ctx context.Context, pth string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return errors.Wrap(err, "encoding identity request")
	}

	url := svc.baseURL + pth
	if svc.apiKey != "" {
		url += "?key=" + svc.apiKey
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return errors.Wrap(err, "preparing identity request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := svc.http.Do(req)
	if err != nil {
		return errors.Wrap(err, "calling identity provider")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		var apiErr apiError
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		svc.log.Warn("identity provider refused request", apiErr.Error.Message)
		return errAuthenticationFailed
	}
	return errors.Wrap(json.NewDecoder(resp.Body).Decode(out), "decoding identity response")
}

func (svc *service) account(res authResponse) session.Account {
	return session.Account{ID: res.LocalID, Email: res.Email, Name: res.DisplayName}
}

func (svc *service) token(value, refresh, expiresIn string) session.Token {
	secs, err := strconv.ParseInt(expiresIn, 10, 64)
	if err != nil || secs <= 0 {
		secs = 3600
	}
	return session.Token{
		Value:        value,
		RefreshToken: refresh,
		ExpiresAt:    core.NowFunc().Add(time.Duration(secs) * time.Second),
	}
}
