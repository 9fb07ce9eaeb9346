package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
)

func TestSerpAPIClientSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "key", q.Get("api_key"))
		assert.Equal(t, "google", q.Get("engine"))
		assert.Equal(t, "email of Acme", q.Get("q"))
		assert.Equal(t, "5", q.Get("num"))
		w.Write([]byte(`{"organic_results":[{"position":1,"snippet":"a@acme.com"},{"position":2,"snippet":"Acme contact"}]}`))
	}))
	defer srv.Close()

	tracker := NewUsageTracker()
	c, err := NewSerpAPIClient("key", WithSerpAPIBaseURL(srv.URL), WithSerpAPIUsageTracker(tracker))
	require.NoError(t, err)

	ctx := ContextWithRunID(context.Background(), "run-1")
	res, err := c.Search(ctx, "email of Acme", 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"a@acme.com", "Acme contact"}, res.Snippets())
	assert.Equal(t, 1, tracker.Usage("run-1").SearchQueries)
}

func TestSerpAPIClientNoResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error":"Google hasn't returned any results for this query."}`))
	}))
	defer srv.Close()

	c, err := NewSerpAPIClient("key", WithSerpAPIBaseURL(srv.URL))
	require.NoError(t, err)

	res, err := c.Search(context.Background(), "nothing", 5)
	require.NoError(t, err)
	assert.Empty(t, res.Snippets())
}

func TestSerpAPIClientErrors(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		transient bool
	}{
		{"invalid key", http.StatusUnauthorized, `{"error":"Invalid API key."}`, false},
		{"rate limited", http.StatusTooManyRequests, `{}`, true},
		{"server error", http.StatusBadGateway, `oops`, true},
		{"error in body", http.StatusOK, `{"error":"Your account has run out of searches."}`, false},
		{"garbage", http.StatusOK, `{not json`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c, err := NewSerpAPIClient("key", WithSerpAPIBaseURL(srv.URL))
			require.NoError(t, err)

			_, err = c.Search(context.Background(), "q", 5)
			require.Error(t, err)
			assert.True(t, IsServiceError(err))
			assert.Equal(t, tt.transient, IsTransient(err))
		})
	}
}

func TestSerperClientSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "key", r.Header.Get("X-API-KEY"))

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Acme", body["q"])
		assert.EqualValues(t, 3, body["num"])

		w.Write([]byte(`{"organic":[{"title":"Acme","link":"https://acme.com","snippet":"Acme makes anvils","position":1}]}`))
	}))
	defer srv.Close()

	c, err := NewSerperClient("key", WithSerperBaseURL(srv.URL))
	require.NoError(t, err)

	res, err := c.Search(context.Background(), "Acme", 3)
	require.NoError(t, err)
	require.Len(t, res.Organic, 1)
	assert.Equal(t, "https://acme.com", res.Organic[0].Link)
	assert.Equal(t, []string{"Acme makes anvils"}, res.Snippets())
}

func TestSerperClientNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	c, err := NewSerperClient("key", WithSerperBaseURL(url))
	require.NoError(t, err)

	_, err = c.Search(context.Background(), "Acme", 3)
	require.Error(t, err)
	assert.False(t, IsServiceError(err))
	assert.True(t, IsTransient(err))
}

func TestGoogleCSEClientSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "engine", r.URL.Query().Get("cx"))
		assert.Equal(t, "Acme", r.URL.Query().Get("q"))
		assert.Equal(t, "10", r.URL.Query().Get("num"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"items":[{"title":"Acme","link":"https://acme.com","snippet":"first"},{"snippet":"second"}]}`))
	}))
	defer srv.Close()

	tracker := NewUsageTracker()
	c, err := NewGoogleCSEClient(context.Background(), "engine", tracker,
		option.WithEndpoint(srv.URL+"/"), option.WithAPIKey("key"))
	require.NoError(t, err)

	res, err := c.Search(context.Background(), "Acme", 25)
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second"}, res.Snippets())
	assert.Equal(t, 2, res.Organic[1].Position)
	assert.Equal(t, 1, tracker.Usage("").SearchQueries)
}

func TestGoogleCSEClientServiceError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"error":{"code":403,"message":"quota exceeded"}}`))
	}))
	defer srv.Close()

	c, err := NewGoogleCSEClient(context.Background(), "engine", nil,
		option.WithEndpoint(srv.URL+"/"), option.WithAPIKey("key"))
	require.NoError(t, err)

	_, err = c.Search(context.Background(), "Acme", 5)
	var se *ServiceError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusForbidden, se.StatusCode)
	assert.False(t, IsTransient(err))
}
