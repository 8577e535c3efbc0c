// Package nurtureapi is the single point of outbound calls to the remote
// Nurture API. It attaches the bearer token, decodes the response envelope,
// and recovers from an expired token exactly once per request.
package nurtureapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/pkg/errors"

	"github.com/nurturehq/nurture/core"
)

type (
	// TokenSource supplies valid bearer tokens and absorbs the session
	// consequences of failed recovery.
	TokenSource interface {
		Token(ctx context.Context) (string, error)
		ForceRefresh(ctx context.Context) (string, error)
		Expire()
	}

	Client struct {
		base   *url.URL
		http   *http.Client
		tokens TokenSource
		log    core.Logger
	}

	// envelope is the remote API's uniform response shape. Business-level
	// failure is signalled by success=false, not by the HTTP status.
	envelope struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
		Message string          `json:"message"`
		Error   string          `json:"error"`
	}
)

func NewClient(conf *core.Config, tokens TokenSource, log core.Logger) (*Client, error) {
	base, err := url.Parse(conf.APIBaseURL)
	if err != nil {
		return nil, errors.Wrap(err, "parsing API base URL")
	}
	return &Client{
		base:   base,
		http:   &http.Client{Timeout: conf.APITimeout},
		tokens: tokens,
		log:    log,
	}, nil
}

// get/post/patch decode the envelope's data into out (which may be nil).

func (c *Client) get(ctx context.Context, pth string, out interface{}) error {
	return c.call(ctx, http.MethodGet, pth, nil, out)
}

func (c *Client) post(ctx context.Context, pth string, body, out interface{}) error {
	return c.call(ctx, http.MethodPost, pth, body, out)
}

func (c *Client) patch(ctx context.Context, pth string, body, out interface{}) error {
	return c.call(ctx, http.MethodPatch, pth, body, out)
}

func (c *Client) call(ctx context.Context, method, pth string, body, out interface{}) error {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return errors.Wrap(err, "encoding request")
		}
	}

	resp, err := c.send(ctx, method, pth, payload, false)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return errors.Wrapf(err, "decoding %s %s response", method, pth)
	}
	if !env.Success {
		msg := env.Message
		if msg == "" {
			msg = env.Error
		}
		if msg == "" {
			msg = "request failed"
		}
		return core.NewBusinessError(msg)
	}
	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return errors.Wrapf(err, "decoding %s %s data", method, pth)
		}
	}
	return nil
}

// send performs the HTTP exchange. On a 401 it asks the session for a fresh
// token and retries once; a second 401 expires the session.
func (c *Client) send(ctx context.Context, method, pth string, payload []byte, retried bool) (*http.Response, error) {
	token, err := c.token(ctx, retried)
	if err != nil {
		return nil, err
	}

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.resolve(pth), body)
	if err != nil {
		return nil, errors.Wrap(err, "preparing request")
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "%s %s", method, pth)
	}
	if resp.StatusCode == http.StatusUnauthorized {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
		if retried {
			c.tokens.Expire()
			return nil, errors.New("session expired")
		}
		c.log.Info("got 401, refreshing token and retrying once")
		return c.send(ctx, method, pth, payload, true)
	}
	return resp, nil
}

func (c *Client) token(ctx context.Context, forced bool) (string, error) {
	if forced {
		return c.tokens.ForceRefresh(ctx)
	}
	return c.tokens.Token(ctx)
}

func (c *Client) resolve(pth string) string {
	u := *c.base
	u.Path = path.Join(u.Path, pth)
	if strings.HasSuffix(pth, "/") {
		u.Path += "/"
	}
	return u.String()
}
