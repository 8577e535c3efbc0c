package nurtureapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nurturehq/nurture/core"
	testutil "github.com/nurturehq/nurture/tests"
)

type fakeTokens struct {
	mu           sync.Mutex
	token        string
	refreshed    string
	refreshCalls int
	expired      bool
}

func (f *fakeTokens) Token(_ context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.token, nil
}

func (f *fakeTokens) ForceRefresh(_ context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshCalls++
	f.token = f.refreshed
	return f.token, nil
}

func (f *fakeTokens) Expire() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.expired = true
}

func newTestClient(t *testing.T, handler http.Handler) (*Client, *fakeTokens, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	conf := testutil.Config()
	conf.APIBaseURL = srv.URL
	tokens := &fakeTokens{token: "stale", refreshed: "fresh"}
	client, err := NewClient(conf, tokens, testutil.Logger{})
	if err != nil {
		t.Fatalf("NewClient() failed: %v", err)
	}
	return client, tokens, srv
}

func TestClientAttachesBearer(t *testing.T) {
	var gotAuth string
	client, _, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"success": true, "data": map[string]string{"id": "x"}})
	}))

	var out struct {
		ID string `json:"id"`
	}
	err := client.get(context.Background(), "/v1/profile", &out)
	assert.NoError(t, err)
	assert.Equal(t, "Bearer stale", gotAuth)
	assert.Equal(t, "x", out.ID)
}

func TestClientBusinessFailure(t *testing.T) {
	// business failure rides on a 200: callers branch on the envelope
	client, _, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"success": false, "message": "maximum children exceeded"})
	}))

	err := client.get(context.Background(), "/v1/profile", nil)
	assert.Error(t, err)
	assert.True(t, core.IsBusiness(err))
	assert.EqualError(t, err, "maximum children exceeded")
}

func TestClientRefreshesOnceOn401(t *testing.T) {
	var auths []string
	client, tokens, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		auths = append(auths, auth)
		if auth != "Bearer fresh" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"success": true})
	}))

	err := client.get(context.Background(), "/v1/profile", nil)
	assert.NoError(t, err)
	assert.Equal(t, []string{"Bearer stale", "Bearer fresh"}, auths)
	assert.Equal(t, 1, tokens.refreshCalls)
	assert.False(t, tokens.expired)
}

func TestClientExpiresSessionOnSecond401(t *testing.T) {
	var calls int
	client, tokens, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusUnauthorized)
	}))
	tokens.refreshed = "still-bad"

	err := client.get(context.Background(), "/v1/profile", nil)
	assert.Error(t, err)
	assert.Equal(t, 2, calls, "exactly one retry is allowed")
	assert.True(t, tokens.expired, "a second 401 must expire the session")
}

func TestClientPostBody(t *testing.T) {
	var gotBody map[string]string
	var gotMethod, gotPath string
	client, _, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod, gotPath = r.Method, r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"success": true})
	}))

	err := client.post(context.Background(), "/v1/children/c1/onboarding/answers",
		map[string]string{"questionId": "q1", "answer": "hello"}, nil)
	assert.NoError(t, err)
	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "/v1/children/c1/onboarding/answers", gotPath)
	assert.Equal(t, "q1", gotBody["questionId"])
}
